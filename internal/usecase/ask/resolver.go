package ask

import (
	"context"
	"fmt"
	"strings"
)

// invalidCategory is the sentinel the resolver prompt instructs the model to
// answer with when no catalog category fits the question.
const invalidCategory = "invalid"

const resolverPromptFormat = "You are a helpful assistant specializing in Australian Bureau of " +
	"Statistics data. Use this context about available datasets: %s. " +
	"Provide only the category ID of the relevant data or 'invalid' in plain string."

// resolveCategory maps the question to a single category id via one chat
// completion. The first choice's content, trimmed, is the result; no
// validation against the catalog happens here — an unknown id surfaces
// downstream when ABS is queried with it.
func (s *Service) resolveCategory(ctx context.Context, question, apiKey string) (string, error) {
	system := fmt.Sprintf(resolverPromptFormat, s.catalog.ContextJSON())

	answer, err := s.chat.Complete(ctx, system, question, apiKey)
	if err != nil {
		return "", fmt.Errorf("resolve category: %w", err)
	}

	return strings.TrimSpace(answer), nil
}
