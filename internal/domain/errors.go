package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryRequired signals a missing or empty search query.
	ErrQueryRequired = errors.New("query parameter is required")
	// ErrUpstreamStatus signals a non-success HTTP status from ClinicalTrials.gov.
	ErrUpstreamStatus = errors.New("clinicaltrials.gov returned a non-success status")
	// ErrUpstreamFormat signals a success response without a JSON content type.
	ErrUpstreamFormat = errors.New("clinicaltrials.gov returned an unexpected response format")
	// ErrTooManyPages signals that pagination exceeded the configured page cap.
	ErrTooManyPages = errors.New("pagination exceeded the configured page limit")
	// ErrExtractionProviderError signals a disease-extraction provider failure.
	ErrExtractionProviderError = errors.New("extraction provider error")
)

// UpstreamError wraps ErrUpstreamStatus with the HTTP status and the
// best-effort parsed response body. The upstream error shape is not
// contractually stable, so RawData is relayed verbatim to clients for
// debugging.
type UpstreamError struct {
	StatusCode int
	RawData    any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", ErrUpstreamStatus.Error(), e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamStatus }

// NewUpstreamError creates an upstream status error with its diagnostic payload.
func NewUpstreamError(statusCode int, rawData any) error {
	return &UpstreamError{StatusCode: statusCode, RawData: rawData}
}
