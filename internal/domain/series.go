package domain

// SeriesRecord is one published ABS time series. Every field is optional:
// an element missing from the upstream XML leaves the field nil rather than
// failing the fetch.
type SeriesRecord struct {
	ProductNumber      *string `json:"product_number"`
	ProductTitle       *string `json:"product_title"`
	ProductIssue       *string `json:"product_issue"`
	ProductReleaseDate *string `json:"product_release_date"`
	ProductURL         *string `json:"product_url"`
	TableURL           *string `json:"table_url"`
	TableTitle         *string `json:"table_title"`
	TableOrder         *string `json:"table_order"`
	Description        *string `json:"description"`
	Unit               *string `json:"unit"`
	SeriesType         *string `json:"series_type"`
	DataType           *string `json:"data_type"`
	Frequency          *string `json:"frequency"`
	CollectionMonth    *string `json:"collection_month"`
	SeriesStart        *string `json:"series_start"`
	SeriesEnd          *string `json:"series_end"`
	NoObs              *string `json:"no_obs"`
	SeriesID           *string `json:"series_id"`
}

// TableDescriptor is the downloadable-table view of a series, unique by URL
// within one ABS response. The first series seen for a table URL determines
// the descriptor's fields.
type TableDescriptor struct {
	URL           string  `json:"url"`
	Title         *string `json:"title"`
	ProductTitle  *string `json:"product_title"`
	ProductNumber *string `json:"product_number"`
	SeriesID      *string `json:"series_id"`
	Description   *string `json:"description"`
	Unit          *string `json:"unit"`
	Frequency     *string `json:"frequency"`
}

// CategoryQueryResult is the parsed outcome of one ABS metadata fetch.
// SeriesCount carries the document's declared count when present, otherwise
// the number of parsed records.
type CategoryQueryResult struct {
	CategoryID       string            `json:"category_id"`
	APIURL           string            `json:"api_url"`
	SeriesCount      int               `json:"series_count"`
	SeriesData       []SeriesRecord    `json:"series_data"`
	TableDescriptors []TableDescriptor `json:"table_descriptors"`
	TableCount       int               `json:"table_count"`
}

// TableRef is the compact table listing used by download tooling:
// product title, table URL and the release date of the first series in the
// response.
type TableRef struct {
	ProductTitle string `json:"product_title"`
	URL          string `json:"url"`
	ReleaseDate  string `json:"release_date"`
}
