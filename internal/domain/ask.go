package domain

// DefaultAgency is the publisher attributed to datasets when the model
// response does not name one.
const DefaultAgency = "Australian Bureau of Statistics"

// DatasetSummary is the normalized, user-facing dataset unit. Within one
// AskResult titles are unique after trimming and case folding; the first
// occurrence wins.
type DatasetSummary struct {
	Agency      string   `json:"agency"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	URL         string   `json:"url"`
	Topics      []string `json:"topics"`
}

// AskResult is the terminal artifact of the query pipeline: a prose answer
// plus the curated dataset list. Built fresh per request, never cached.
type AskResult struct {
	Answer   string           `json:"answer"`
	Datasets []DatasetSummary `json:"datasets"`
}
