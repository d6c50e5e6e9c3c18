package ask

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koso-dev/absquery/internal/domain"
)

const summarizerPromptFormat = "You are a helpful assistant specializing in Australian Bureau of " +
	"Statistics data. Filter at least 3 relevant data and return ONLY json object with fields " +
	"'summary' and a 'products' array of objects with 'product_title', 'product_release_date', " +
	"'product_url', and 'topics' string array based on title. Use this context about available " +
	"datasets to summarize the content using the data from context based on question: %s"

// summarize asks the model to curate the fetched series into a summary plus a
// product list. The raw model text comes back as-is: models wrap JSON in
// prose or markdown fences often enough that parsing and repair belong to the
// normalizer, not here.
func (s *Service) summarize(ctx context.Context, question string, qr domain.CategoryQueryResult, apiKey string) (string, error) {
	contextBlob, err := json.Marshal(qr)
	if err != nil {
		return "", fmt.Errorf("serialize series context: %w", err)
	}

	system := fmt.Sprintf(summarizerPromptFormat, contextBlob)

	raw, err := s.chat.Complete(ctx, system, question, apiKey)
	if err != nil {
		return "", fmt.Errorf("summarize series: %w", err)
	}

	return raw, nil
}
