package ask

import (
	"strings"
	"testing"

	"github.com/koso-dev/absquery/internal/domain"
)

// --- Helpers ---

type stubCatalog struct {
	context string
	topics  map[string][]string
}

func (c *stubCatalog) ContextJSON() string { return c.context }

func (c *stubCatalog) TopicsFor(categoryID string) []string {
	if t, ok := c.topics[categoryID]; ok {
		return t
	}
	return []string{}
}

func strptr(s string) *string { return &s }

func fallbackWith(titles ...string) domain.CategoryQueryResult {
	qr := domain.CategoryQueryResult{CategoryID: "6401.0"}
	for _, title := range titles {
		t := title
		qr.SeriesData = append(qr.SeriesData, domain.SeriesRecord{
			ProductTitle:       &t,
			ProductReleaseDate: strptr("Jun 2025"),
			ProductURL:         strptr("https://abs.gov.au/cpi"),
		})
	}
	qr.SeriesCount = len(qr.SeriesData)
	return qr
}

// --- Tests ---

func TestNormalize_DirectJSON(t *testing.T) {
	raw := `{"summary":"CPI rose 0.9%","products":[` +
		`{"product_title":"CPI Report","product_release_date":"Jun 2025",` +
		`"product_url":"https://abs.gov.au/cpi","topics":["inflation","prices"]}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if got.Answer != "CPI rose 0.9%" {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(got.Datasets))
	}
	d := got.Datasets[0]
	if d.Title != "CPI Report" || d.ReleaseDate != "Jun 2025" || d.URL != "https://abs.gov.au/cpi" {
		t.Errorf("unexpected dataset: %+v", d)
	}
	if d.Agency != domain.DefaultAgency {
		t.Errorf("agency = %q", d.Agency)
	}
	if len(d.Topics) != 2 {
		t.Errorf("topics = %v", d.Topics)
	}
}

func TestNormalize_FencedJSON(t *testing.T) {
	raw := "```json\n{\"summary\":\"x\",\"products\":[{\"title\":\"A\"}]}\n```"

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if got.Answer != "x" {
		t.Errorf("answer = %q, want %q", got.Answer, "x")
	}
	if len(got.Datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(got.Datasets))
	}
	d := got.Datasets[0]
	if d.Title != "A" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Agency != domain.DefaultAgency {
		t.Errorf("agency = %q", d.Agency)
	}
	if d.ReleaseDate != "" || d.URL != "" {
		t.Errorf("expected empty release_date and url, got %+v", d)
	}
	if d.Topics == nil || len(d.Topics) != 0 {
		t.Errorf("topics = %#v, want empty non-nil slice", d.Topics)
	}
}

func TestNormalize_BraceEmbeddedInProse(t *testing.T) {
	raw := `Here is what I found: {"summary":"two datasets","products":[{"title":"A"},{"title":"B"}]} hope it helps.`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if got.Answer != "two datasets" {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Datasets) != 2 {
		t.Errorf("expected 2 datasets, got %d", len(got.Datasets))
	}
}

func TestNormalize_RawProseNoFallback(t *testing.T) {
	raw := "I could not find anything relevant, sorry."

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if got.Answer != raw {
		t.Errorf("answer = %q, want the prose verbatim", got.Answer)
	}
	if len(got.Datasets) != 0 {
		t.Errorf("expected no datasets, got %d", len(got.Datasets))
	}
}

func TestNormalize_RawProseWithFallback(t *testing.T) {
	raw := "The model rambled with no JSON at all."
	cat := &stubCatalog{topics: map[string][]string{"6401.0": {"inflation"}}}

	got := normalizeResponse(raw, fallbackWith("CPI Report", "CPI Detail"), "6401.0", cat)

	if got.Answer != raw {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Datasets) != 2 {
		t.Fatalf("expected 2 fallback datasets, got %d", len(got.Datasets))
	}
	d := got.Datasets[0]
	if d.Title != "CPI Report" || d.ReleaseDate != "Jun 2025" || d.URL != "https://abs.gov.au/cpi" {
		t.Errorf("unexpected fallback dataset: %+v", d)
	}
	if d.Agency != domain.DefaultAgency {
		t.Errorf("agency = %q", d.Agency)
	}
	if len(d.Topics) != 1 || d.Topics[0] != "inflation" {
		t.Errorf("topics = %v", d.Topics)
	}
}

func TestNormalize_FallbackTopicsForUnknownCategory(t *testing.T) {
	got := normalizeResponse("prose", fallbackWith("CPI Report"), "9999.9", &stubCatalog{})

	if len(got.Datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(got.Datasets))
	}
	if got.Datasets[0].Topics == nil || len(got.Datasets[0].Topics) != 0 {
		t.Errorf("topics = %#v, want empty non-nil slice", got.Datasets[0].Topics)
	}
}

func TestNormalize_FallbackOnlyWhenProductsEmpty(t *testing.T) {
	raw := `{"summary":"found one","products":[{"title":"Model Pick"}]}`

	got := normalizeResponse(raw, fallbackWith("CPI Report"), "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 || got.Datasets[0].Title != "Model Pick" {
		t.Errorf("fallback must not activate when the model produced products: %+v", got.Datasets)
	}
}

func TestNormalize_FallbackWhenProductsDedupToNothing(t *testing.T) {
	// Products exist but every title is empty after trimming, so the parsed
	// list ends up empty and the fallback takes over.
	raw := `{"summary":"s","products":[{"title":"   "},{"title":""}]}`

	got := normalizeResponse(raw, fallbackWith("CPI Report"), "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 || got.Datasets[0].Title != "CPI Report" {
		t.Errorf("expected fallback dataset, got %+v", got.Datasets)
	}
}

func TestNormalize_DedupCaseInsensitiveTrimmed(t *testing.T) {
	raw := `{"summary":"s","products":[` +
		`{"title":"CPI Report","product_url":"https://first"},` +
		`{"title":" cpi report ","product_url":"https://second"}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 {
		t.Fatalf("expected duplicates to collapse, got %d datasets", len(got.Datasets))
	}
	if got.Datasets[0].URL != "https://first" {
		t.Errorf("first occurrence must win, got url %q", got.Datasets[0].URL)
	}
}

func TestNormalize_FallbackDedupAgainstParsedTitles(t *testing.T) {
	// A parsed product with an identical title would be re-emitted by the
	// fallback if the seen set did not carry over; it must not be.
	raw := `{"summary":"s","products":[{"title":"CPI Report"},{"title":"   "}]}`

	got := normalizeResponse(raw, fallbackWith("CPI Report"), "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 {
		t.Errorf("expected 1 dataset after cross-phase dedup, got %d", len(got.Datasets))
	}
}

func TestNormalize_AliasFields(t *testing.T) {
	raw := `{"summary":"s","products":[` +
		`{"title":"A","release_date":"May 2025","url":"https://a","agency":"Treasury"}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(got.Datasets))
	}
	d := got.Datasets[0]
	if d.ReleaseDate != "May 2025" || d.URL != "https://a" || d.Agency != "Treasury" {
		t.Errorf("alias fields not honored: %+v", d)
	}
}

func TestNormalize_PrimaryFieldBeatsAlias(t *testing.T) {
	raw := `{"summary":"s","products":[` +
		`{"product_title":"Primary","title":"Alias","product_url":"https://primary","url":"https://alias"}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(got.Datasets))
	}
	if got.Datasets[0].Title != "Primary" || got.Datasets[0].URL != "https://primary" {
		t.Errorf("product_* fields must win over aliases: %+v", got.Datasets[0])
	}
}

func TestNormalize_MissingSummaryUsesPlaceholder(t *testing.T) {
	raw := `{"products":[{"title":"A"}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if got.Answer != noSummary {
		t.Errorf("answer = %q, want placeholder", got.Answer)
	}
}

func TestNormalize_NonObjectProductsSkipped(t *testing.T) {
	raw := `{"summary":"s","products":["just a string",42,{"title":"A"}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if len(got.Datasets) != 1 || got.Datasets[0].Title != "A" {
		t.Errorf("non-object entries must be skipped: %+v", got.Datasets)
	}
}

func TestNormalize_TotalOverArbitraryInput(t *testing.T) {
	inputs := []string{
		"",
		"{",
		`{"summary":`,
		"null",
		"[1,2,3]",
		`"just a json string"`,
		"```json\nnot even close\n```",
		strings.Repeat("garbage \x00\xff ", 100),
		`{"summary":123,"products":{"not":"an array"}}`,
	}

	for _, in := range inputs {
		got := normalizeResponse(in, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})
		if got.Datasets == nil {
			t.Errorf("datasets must never be nil for input %q", in)
		}
	}
}

func TestNormalize_NonStringSummaryFallsToPlaceholder(t *testing.T) {
	raw := `{"summary":123,"products":[{"title":"A"}]}`

	got := normalizeResponse(raw, domain.CategoryQueryResult{}, "6401.0", &stubCatalog{})

	if got.Answer != noSummary {
		t.Errorf("answer = %q, want placeholder for non-string summary", got.Answer)
	}
	if len(got.Datasets) != 1 {
		t.Errorf("products must still be read, got %d datasets", len(got.Datasets))
	}
}
