// Package abs implements the client for the ABS time-series search servlet.
package abs

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/koso-dev/absquery/internal/domain"
	"github.com/koso-dev/absquery/internal/metrics"
)

// maxErrorBody caps how much of an upstream error body is kept for diagnostics.
const maxErrorBody = 1024

// Client fetches series metadata from the ABS time-series API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *zap.Logger
}

// Config holds the ABS client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// NewClient creates an ABS metadata client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// seriesDoc mirrors the servlet response: a root with zero or more Series
// children and an optional declared SeriesCount.
type seriesDoc struct {
	SeriesCount *string     `xml:"SeriesCount"`
	Series      []seriesXML `xml:"Series"`
}

// seriesXML uses pointer fields throughout: a child element missing from a
// Series stays nil instead of failing the whole fetch.
type seriesXML struct {
	ProductNumber      *string `xml:"ProductNumber"`
	ProductTitle       *string `xml:"ProductTitle"`
	ProductIssue       *string `xml:"ProductIssue"`
	ProductReleaseDate *string `xml:"ProductReleaseDate"`
	ProductURL         *string `xml:"ProductURL"`
	TableURL           *string `xml:"TableURL"`
	TableTitle         *string `xml:"TableTitle"`
	TableOrder         *string `xml:"TableOrder"`
	Description        *string `xml:"Description"`
	Unit               *string `xml:"Unit"`
	SeriesType         *string `xml:"SeriesType"`
	DataType           *string `xml:"DataType"`
	Frequency          *string `xml:"Frequency"`
	CollectionMonth    *string `xml:"CollectionMonth"`
	SeriesStart        *string `xml:"SeriesStart"`
	SeriesEnd          *string `xml:"SeriesEnd"`
	NoObs              *string `xml:"NoObs"`
	SeriesID           *string `xml:"SeriesID"`
}

// Fetch retrieves and parses the series metadata for one category id.
func (c *Client) Fetch(ctx context.Context, categoryID string) (domain.CategoryQueryResult, error) {
	if strings.TrimSpace(categoryID) == "" {
		return domain.CategoryQueryResult{}, fmt.Errorf("category id must be a non-empty string: %w", domain.ErrInvalidInput)
	}

	apiURL := c.baseURL + "?catno=" + url.QueryEscape(categoryID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return domain.CategoryQueryResult{}, fmt.Errorf("build abs request for category %s: %w", categoryID, err)
	}
	req.Header.Set("Accept", "application/xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ABSRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ABSRequestsTotal.WithLabelValues("error").Inc()
		return domain.CategoryQueryResult{}, fmt.Errorf(
			"fetch abs category %s: %v: %w", categoryID, err, domain.ErrUpstreamUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ABSRequestsTotal.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.CategoryQueryResult{}, fmt.Errorf("fetch abs category %s: %w",
			categoryID, domain.NewUpstreamError("abs", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ABSRequestsTotal.WithLabelValues("error").Inc()
		return domain.CategoryQueryResult{}, fmt.Errorf(
			"read abs response for category %s: %v: %w", categoryID, err, domain.ErrUpstreamUnavailable)
	}

	var doc seriesDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		metrics.ABSRequestsTotal.WithLabelValues("error").Inc()
		return domain.CategoryQueryResult{}, fmt.Errorf(
			"parse abs xml for category %s: %v: %w", categoryID, err, domain.ErrMalformedResponse)
	}
	metrics.ABSRequestsTotal.WithLabelValues("success").Inc()

	result := assemble(categoryID, apiURL, doc)
	metrics.ABSSeriesParsed.Add(float64(len(result.SeriesData)))

	c.logger.Debug("abs fetch complete",
		zap.String("category_id", categoryID),
		zap.Int("series_count", result.SeriesCount),
		zap.Int("table_count", result.TableCount),
	)

	return result, nil
}

// assemble converts the raw document into a CategoryQueryResult: series in
// document order, table descriptors deduplicated by URL with first-seen
// fields winning, and the declared count preferred over the parsed count.
func assemble(categoryID, apiURL string, doc seriesDoc) domain.CategoryQueryResult {
	series := make([]domain.SeriesRecord, 0, len(doc.Series))
	descriptors := make([]domain.TableDescriptor, 0, len(doc.Series))
	seen := make(map[string]struct{}, len(doc.Series))

	for _, s := range doc.Series {
		rec := domain.SeriesRecord{
			ProductNumber:      s.ProductNumber,
			ProductTitle:       s.ProductTitle,
			ProductIssue:       s.ProductIssue,
			ProductReleaseDate: s.ProductReleaseDate,
			ProductURL:         s.ProductURL,
			TableURL:           s.TableURL,
			TableTitle:         s.TableTitle,
			TableOrder:         s.TableOrder,
			Description:        s.Description,
			Unit:               s.Unit,
			SeriesType:         s.SeriesType,
			DataType:           s.DataType,
			Frequency:          s.Frequency,
			CollectionMonth:    s.CollectionMonth,
			SeriesStart:        s.SeriesStart,
			SeriesEnd:          s.SeriesEnd,
			NoObs:              s.NoObs,
			SeriesID:           s.SeriesID,
		}
		series = append(series, rec)

		if rec.TableURL == nil || *rec.TableURL == "" {
			continue
		}
		if _, dup := seen[*rec.TableURL]; dup {
			continue
		}
		seen[*rec.TableURL] = struct{}{}
		descriptors = append(descriptors, domain.TableDescriptor{
			URL:           *rec.TableURL,
			Title:         rec.TableTitle,
			ProductTitle:  rec.ProductTitle,
			ProductNumber: rec.ProductNumber,
			SeriesID:      rec.SeriesID,
			Description:   rec.Description,
			Unit:          rec.Unit,
			Frequency:     rec.Frequency,
		})
	}

	count := len(series)
	if doc.SeriesCount != nil {
		if declared, err := strconv.Atoi(strings.TrimSpace(*doc.SeriesCount)); err == nil {
			count = declared
		}
	}

	return domain.CategoryQueryResult{
		CategoryID:       categoryID,
		APIURL:           apiURL,
		SeriesCount:      count,
		SeriesData:       series,
		TableDescriptors: descriptors,
		TableCount:       len(descriptors),
	}
}

// TableRefs returns the compact table listing for a category: product title,
// table URL and the release date of the first series in the response.
func (c *Client) TableRefs(ctx context.Context, categoryID string) ([]domain.TableRef, error) {
	qr, err := c.Fetch(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	release := "unknown"
	if len(qr.SeriesData) > 0 && qr.SeriesData[0].ProductReleaseDate != nil {
		release = *qr.SeriesData[0].ProductReleaseDate
	}

	refs := make([]domain.TableRef, 0, len(qr.TableDescriptors))
	for _, d := range qr.TableDescriptors {
		title := ""
		if d.ProductTitle != nil {
			title = *d.ProductTitle
		}
		refs = append(refs, domain.TableRef{ProductTitle: title, URL: d.URL, ReleaseDate: release})
	}
	return refs, nil
}
