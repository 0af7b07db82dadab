// Package models defines typed errors for better error handling and context.
package models

import (
	"errors"
	"fmt"
)

// CloudflareBlockError represents a Cloudflare blocking error
type CloudflareBlockError struct {
	Domain string
	Err    error
}

func (e *CloudflareBlockError) Error() string {
	return fmt.Sprintf("blocked by Cloudflare on domain %s: %v", e.Domain, e.Err)
}

func (e *CloudflareBlockError) Unwrap() error { return e.Err }

// TimeoutError represents a timeout error
type TimeoutError struct {
	Operation string
	Timeout   string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout during %s after %s: %v", e.Operation, e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// InvalidURLError is returned when a page URL has no usable hostname
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %s: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// HTTPError represents an HTTP-related error
type HTTPError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %v", e.StatusCode, e.URL, e.Err)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// ExtractorError records a single site extractor or strategy failing.
// It is always absorbed by the caller and turned into "no result".
type ExtractorError struct {
	Extractor string
	Err       error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("extractor %s failed: %v", e.Extractor, e.Err)
}

func (e *ExtractorError) Unwrap() error { return e.Err }

// ExtractionFailedError is the terminal per-page failure raised once every
// fallback strategy is exhausted.
type ExtractionFailedError struct {
	URL string
	Err error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("content extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Err }

// DocsAPIError is returned by the document API client
type DocsAPIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *DocsAPIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Operation, e.StatusCode, e.Message)
}

// ErrEmptyContent marks a strategy that produced a record without body text
var ErrEmptyContent = errors.New("empty content")
