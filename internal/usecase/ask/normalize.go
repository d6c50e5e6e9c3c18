package ask

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/koso-dev/absquery/internal/domain"
)

// noSummary is the placeholder used when a parsed object carries no summary.
const noSummary = "No summary available"

var (
	// fencedJSON matches the first ```json code fence and captures the object inside.
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	// braceObject matches the first brace-delimited span mentioning both required keys.
	braceObject = regexp.MustCompile(`(?s)\{.*"summary".*"products".*\}`)
)

// normalizeResponse turns raw model text into the final AskResult. It is a
// total function: any byte sequence produces a usable result, because model
// output is unreliable by construction and junk content must degrade, not
// error. The parse ladder runs in order and stops at the first strategy that
// yields a JSON object; when all fail the raw text verbatim becomes the
// summary. If no products survive parsing and dedup, the dataset list is
// rebuilt from the ABS series data.
func normalizeResponse(raw string, fallback domain.CategoryQueryResult, categoryID string, catalog Catalog) domain.AskResult {
	obj, parsed := parseLadder(raw)

	summary := raw
	var products []any
	if parsed {
		summary = stringOr(obj, "summary", noSummary)
		products, _ = obj["products"].([]any)
	}

	seen := make(map[string]struct{})
	datasets := make([]domain.DatasetSummary, 0, len(products))

	for _, item := range products {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title := strings.TrimSpace(firstString(p, "product_title", "title"))
		key := strings.ToLower(title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		datasets = append(datasets, domain.DatasetSummary{
			Agency:      stringOr(p, "agency", domain.DefaultAgency),
			Title:       title,
			ReleaseDate: firstString(p, "product_release_date", "release_date"),
			URL:         firstString(p, "product_url", "url"),
			Topics:      stringSlice(p["topics"]),
		})
	}

	// Fallback reconciliation: the model gave nothing usable, so the series
	// records themselves become the dataset list. The seen set carries over —
	// titles already emitted stay deduplicated.
	if len(datasets) == 0 {
		topics := catalog.TopicsFor(categoryID)
		for _, sr := range fallback.SeriesData {
			title := ""
			if sr.ProductTitle != nil {
				title = strings.TrimSpace(*sr.ProductTitle)
			}
			key := strings.ToLower(title)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			datasets = append(datasets, domain.DatasetSummary{
				Agency:      domain.DefaultAgency,
				Title:       title,
				ReleaseDate: derefOr(sr.ProductReleaseDate, ""),
				URL:         derefOr(sr.ProductURL, ""),
				Topics:      topics,
			})
		}
	}

	return domain.AskResult{Answer: summary, Datasets: datasets}
}

// parseLadder tries each extraction strategy in order and returns the first
// JSON object produced.
func parseLadder(raw string) (map[string]any, bool) {
	for _, try := range []func(string) (map[string]any, bool){
		parseDirect,
		parseFenced,
		parseBraced,
	} {
		if obj, ok := try(raw); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseDirect parses the whole text as a JSON object.
func parseDirect(raw string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// parseFenced parses the contents of the first ```json code fence.
func parseFenced(raw string) (map[string]any, bool) {
	m := fencedJSON.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return parseDirect(m[1])
}

// parseBraced parses the first brace-delimited substring that mentions both
// the "summary" and "products" keys.
func parseBraced(raw string) (map[string]any, bool) {
	m := braceObject.FindString(raw)
	if m == "" {
		return nil, false
	}
	return parseDirect(m)
}

// firstString returns the value of the first listed key holding a string.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			return v
		}
	}
	return ""
}

// stringOr returns the string under key, or def when absent or not a string.
func stringOr(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// stringSlice coerces a decoded JSON value into a string slice, skipping
// non-string elements. Always returns a non-nil slice.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func derefOr(s *string, def string) string {
	if s != nil {
		return *s
	}
	return def
}
