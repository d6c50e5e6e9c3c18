// Package table implements the tabular data accessor: download a published
// spreadsheet by URL and return its rows and columns.
package table

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/koso-dev/absquery/internal/domain"
)

// Service downloads and reads spreadsheets.
type Service struct {
	httpClient *http.Client
	dir        string
	maxBytes   int64
	logger     *zap.Logger
}

// Config holds the accessor settings.
type Config struct {
	Dir      string // where kept files are stored
	Timeout  time.Duration
	MaxBytes int64
	Logger   *zap.Logger
}

// Options control how one spreadsheet is fetched and read.
type Options struct {
	SheetName string // empty = first sheet
	HeaderRow int    // 0-indexed row holding column names
	MaxRows   int    // 0 = no limit
	SavePath  string // explicit save location; implies keeping the file
	KeepFile  bool
}

// Result is the parsed spreadsheet content.
type Result struct {
	Rows      []map[string]any `json:"rows"`
	Columns   []string         `json:"columns"`
	RowCount  int              `json:"row_count"`
	SheetName string           `json:"sheet_name"`
	SourceURL string           `json:"source_url"`
	FilePath  string           `json:"file_path,omitempty"`
}

// NewService creates a tabular data accessor.
func NewService(cfg *Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		httpClient: &http.Client{Timeout: timeout},
		dir:        cfg.Dir,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Fetch downloads the spreadsheet at rawURL and reads it into rows/columns.
// Unless the options ask to keep the file, the download is removed on every
// path; a removal failure is logged and never masks the primary outcome.
func (s *Service) Fetch(ctx context.Context, rawURL string, opts Options) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{}, fmt.Errorf("invalid spreadsheet url %q: %w", rawURL, domain.ErrInvalidInput)
	}

	filePath, err := s.download(ctx, rawURL, u, opts)
	if err != nil {
		return Result{}, err
	}

	keep := opts.KeepFile || opts.SavePath != ""
	if !keep {
		defer func() {
			if rmErr := os.Remove(filePath); rmErr != nil {
				s.logger.Warn("failed to remove downloaded spreadsheet",
					zap.String("path", filePath), zap.Error(rmErr))
			}
		}()
	}

	result, err := readWorkbook(filePath, opts)
	if err != nil {
		return Result{}, err
	}

	result.SourceURL = rawURL
	if keep {
		result.FilePath = filePath
	}
	return result, nil
}

// download saves the URL body to disk and returns the file path. Kept files
// get a content-addressed name under the service directory; transient files
// go to a temp location.
func (s *Service) download(ctx context.Context, rawURL string, u *url.URL, opts Options) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %v: %w", rawURL, err, domain.ErrUpstreamUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("download %s: %w", rawURL,
			domain.NewUpstreamError("table", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	filePath := opts.SavePath
	switch {
	case filePath != "":
		if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
			return "", fmt.Errorf("create save directory: %w", err)
		}
	case opts.KeepFile:
		if err := os.MkdirAll(s.dir, 0o750); err != nil {
			return "", fmt.Errorf("create files directory: %w", err)
		}
		filePath = filepath.Join(s.dir, keptFileName(rawURL, u))
	default:
		f, err := os.CreateTemp("", "absquery-table-*"+extensionOf(u))
		if err != nil {
			return "", fmt.Errorf("create temp file: %w", err)
		}
		filePath = f.Name()
		_ = f.Close()
	}

	out, err := os.OpenFile(filepath.Clean(filePath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filePath, err)
	}

	_, copyErr := io.Copy(out, io.LimitReader(resp.Body, s.maxBytes))
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(filePath)
		return "", fmt.Errorf("save %s: %v: %w", rawURL, copyErr, domain.ErrUpstreamUnavailable)
	}
	if closeErr != nil {
		_ = os.Remove(filePath)
		return "", fmt.Errorf("close %s: %w", filePath, closeErr)
	}

	return filePath, nil
}

// keptFileName builds a stable content-addressed name from the source URL.
func keptFileName(rawURL string, u *url.URL) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "table_" + hex.EncodeToString(sum[:4]) + extensionOf(u)
}

func extensionOf(u *url.URL) string {
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return ".xlsx"
}

// readWorkbook reads one sheet into column-keyed rows. Empty cells map to
// nil values, mirroring how absent observations appear in the source tables.
func readWorkbook(filePath string, opts Options) (Result, error) {
	f, err := excelize.OpenFile(filepath.Clean(filePath))
	if err != nil {
		return Result{}, fmt.Errorf("open workbook %s: %v: %w", filePath, err, domain.ErrMalformedResponse)
	}
	defer func() { _ = f.Close() }()

	sheet := opts.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %v: %w", sheet, err, domain.ErrMalformedResponse)
	}

	if opts.HeaderRow < 0 || opts.HeaderRow >= len(rows) {
		return Result{}, fmt.Errorf("header row %d out of range for sheet %q with %d rows: %w",
			opts.HeaderRow, sheet, len(rows), domain.ErrInvalidInput)
	}

	columns := make([]string, len(rows[opts.HeaderRow]))
	for i, name := range rows[opts.HeaderRow] {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		columns[i] = name
	}

	dataRows := rows[opts.HeaderRow+1:]
	if opts.MaxRows > 0 && len(dataRows) > opts.MaxRows {
		dataRows = dataRows[:opts.MaxRows]
	}

	out := make([]map[string]any, 0, len(dataRows))
	for _, row := range dataRows {
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(row) && row[i] != "" {
				record[col] = row[i]
			} else {
				record[col] = nil
			}
		}
		out = append(out, record)
	}

	return Result{
		Rows:      out,
		Columns:   columns,
		RowCount:  len(out),
		SheetName: sheet,
	}, nil
}
