package ask

import (
	"context"

	"github.com/koso-dev/absquery/internal/domain"
)

// Catalog is the read-only category catalog.
type Catalog interface {
	// ContextJSON returns the catalog serialized for use as model context.
	ContextJSON() string
	// TopicsFor returns the topics of the entry with the given category id,
	// or an empty slice when none matches.
	TopicsFor(categoryID string) []string
}

// MetadataFetcher retrieves series metadata for a category from ABS.
type MetadataFetcher interface {
	Fetch(ctx context.Context, categoryID string) (domain.CategoryQueryResult, error)
}

// ChatClient sends one system+user exchange to a chat-completion model.
// apiKeyOverride, when non-empty, takes precedence over the configured key.
type ChatClient interface {
	Complete(ctx context.Context, system, user, apiKeyOverride string) (string, error)
}
