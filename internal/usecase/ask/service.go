// Package ask implements the query resolution pipeline: category inference,
// ABS metadata retrieval, AI-assisted summarization and response
// normalization.
package ask

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/koso-dev/absquery/internal/domain"
)

// noDatasetAnswer is returned when the resolver cannot map the question to
// any catalog category. This short-circuits the pipeline before ABS is
// called: an id the model itself flagged as invalid has nothing to fetch.
const noDatasetAnswer = "Could not determine a relevant ABS dataset for this question. " +
	"Try asking about a published statistic such as inflation, employment or housing."

// Service orchestrates one question through the pipeline. It holds no
// mutable state, so concurrent invocations are independent.
type Service struct {
	catalog Catalog
	abs     MetadataFetcher
	chat    ChatClient
	logger  *zap.Logger
}

// New creates the pipeline service.
func New(catalog Catalog, abs MetadataFetcher, chat ChatClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, abs: abs, chat: chat, logger: logger}
}

// Ask answers one question: resolve a category, fetch its series metadata,
// summarize, normalize. Steps run sequentially with no retries; any step
// failure bubbles up unchanged and no partial result is returned. apiKey,
// when non-empty, overrides the configured model credential for both chat
// calls.
func (s *Service) Ask(ctx context.Context, question, apiKey string) (domain.AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return domain.AskResult{}, fmt.Errorf("question must not be empty: %w", domain.ErrInvalidInput)
	}

	categoryID, err := s.resolveCategory(ctx, question, apiKey)
	if err != nil {
		return domain.AskResult{}, err
	}

	if categoryID == invalidCategory {
		s.logger.Info("no category resolved", zap.String("question", question))
		return domain.AskResult{Answer: noDatasetAnswer, Datasets: []domain.DatasetSummary{}}, nil
	}

	qr, err := s.abs.Fetch(ctx, categoryID)
	if err != nil {
		return domain.AskResult{}, err
	}

	raw, err := s.summarize(ctx, question, qr, apiKey)
	if err != nil {
		return domain.AskResult{}, err
	}

	result := normalizeResponse(raw, qr, categoryID, s.catalog)

	s.logger.Info("question answered",
		zap.String("category_id", categoryID),
		zap.Int("series_count", qr.SeriesCount),
		zap.Int("datasets", len(result.Datasets)),
	)

	return result, nil
}
