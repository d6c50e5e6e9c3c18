package chi

import (
	"github.com/koso-dev/absquery/internal/domain"
	tableuc "github.com/koso-dev/absquery/internal/usecase/table"
)

// ErrorCode classifies an error response.
type ErrorCode string

const (
	// ErrorCodeBadRequest signals an unreadable request body.
	ErrorCodeBadRequest ErrorCode = "bad_request"
	// ErrorCodeInvalidInput signals an empty or malformed input value.
	ErrorCodeInvalidInput ErrorCode = "invalid_input"
	// ErrorCodeAuthMissing signals a missing model credential.
	ErrorCodeAuthMissing ErrorCode = "auth_missing"
	// ErrorCodeUpstreamUnavailable signals an ABS or model API failure.
	ErrorCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	// ErrorCodeMalformedResponse signals an unparsable upstream payload.
	ErrorCodeMalformedResponse ErrorCode = "malformed_response"
	// ErrorCodeUnauthorized signals a failed bearer check.
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	// ErrorCodeInternalError is the catch-all.
	ErrorCodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type askRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key,omitempty"`
}

type askResponse struct {
	Answer   string                  `json:"answer"`
	Datasets []domain.DatasetSummary `json:"datasets"`
}

type downloadRequest struct {
	URL       string `json:"url"`
	SheetName string `json:"sheet_name,omitempty"`
	HeaderRow int    `json:"header_row,omitempty"`
	MaxRows   int    `json:"max_rows,omitempty"`
	SavePath  string `json:"save_path,omitempty"`
	KeepFile  *bool  `json:"keep_file,omitempty"` // default true
}

type downloadResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *tableuc.Result `json:"data,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}
