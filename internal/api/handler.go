// Package api maps extraction results and errors onto the HTTP responses
// served by the Cloud Run, Lambda and local server entry points.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sheet2docs/internal/extractor"
	"sheet2docs/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeoutMs is the full budget a request may ask for
	DefaultTimeoutMs = MaxTimeoutMs
	MaxTimeoutMs     = 240000
	MinTimeoutMs     = 1000
)

// CORSHeaders are set on every response
var CORSHeaders = map[string]string{
	"Content-Type":                 "application/json; charset=utf-8",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,X-Api-Key,x-api-key",
	"Access-Control-Allow-Methods": "GET,OPTIONS",
}

// Scraper is the extraction entry point the handlers call
type Scraper interface {
	ScrapeWithTimeout(ctx context.Context, targetURL string, timeoutMs int) (*models.ExtractedContent, error)
}

// Result is a response ready to be written by any transport
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// ClampTimeout parses a millisecond timeout, falling back to def and
// keeping the result within [MinTimeoutMs, MaxTimeoutMs]
func ClampTimeout(raw string, def int) int {
	timeoutMs := def
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			timeoutMs = parsed
		}
	}
	return min(max(timeoutMs, MinTimeoutMs), MaxTimeoutMs)
}

// Extract scrapes targetURL and renders the outcome. format selects the
// body: json (default) or one of the extractor's text formats.
func Extract(ctx context.Context, s Scraper, targetURL, format string, timeoutMs int) Result {
	if targetURL == "" {
		return ErrorResult(http.StatusBadRequest, "Missing \"url\" query parameter", "")
	}

	outFormat := extractor.FormatJSON
	if format != "" {
		parsed, err := extractor.ParseFormat(format)
		if err != nil {
			return ErrorResult(http.StatusBadRequest, "Invalid format", err.Error())
		}
		outFormat = parsed
	}

	log.Info().Str("url", targetURL).Int("timeoutMs", timeoutMs).Msg("starting scrape")
	start := time.Now()
	result, err := s.ScrapeWithTimeout(ctx, targetURL, timeoutMs)
	duration := time.Since(start)

	metadata := models.Metadata{
		URL:        targetURL,
		ScrapedAt:  time.Now(),
		DurationMs: duration.Milliseconds(),
	}

	if err != nil {
		log.Warn().Err(err).Str("url", targetURL).Dur("duration", duration).Msg("scrape failed")
		return failure(err, metadata)
	}
	log.Info().Str("url", targetURL).Dur("duration", duration).Msg("scraped")

	if outFormat != extractor.FormatJSON {
		opts := extractor.DefaultRenderOptions()
		opts.Format = outFormat
		text, err := extractor.Render(result, opts)
		if err != nil {
			return ErrorResult(http.StatusInternalServerError, "Failed to render content", err.Error())
		}
		return Result{StatusCode: http.StatusOK, ContentType: contentType(outFormat), Body: []byte(text)}
	}

	return jsonResult(http.StatusOK, models.ExtractResponse{ExtractedContent: result, Metadata: metadata})
}

func failure(err error, metadata models.Metadata) Result {
	var cfErr *models.CloudflareBlockError
	var invalid *models.InvalidURLError
	var timeout *models.TimeoutError
	var failed *models.ExtractionFailedError

	switch {
	case errors.As(err, &cfErr):
		return jsonResult(http.StatusUnavailableForLegalReasons, models.BlockedResponse{
			Error:    "Blocked by site protection",
			Provider: "cloudflare",
			Domain:   cfErr.Domain,
			Metadata: metadata,
		})
	case errors.As(err, &invalid):
		return ErrorResult(http.StatusBadRequest, "Invalid URL format", err.Error())
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorResult(http.StatusGatewayTimeout, "Scrape took too long", "")
	case errors.As(err, &failed):
		return ErrorResult(http.StatusUnprocessableEntity, "Content extraction failed", err.Error())
	default:
		return ErrorResult(http.StatusInternalServerError, "Failed to scrape", "")
	}
}

func contentType(format extractor.OutputFormat) string {
	switch format {
	case extractor.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case extractor.FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ErrorResult is a JSON ErrorResponse
func ErrorResult(statusCode int, message, details string) Result {
	return jsonResult(statusCode, models.ErrorResponse{Error: message, Details: details})
}

func jsonResult(statusCode int, v any) Result {
	body, err := json.Marshal(v)
	if err != nil {
		body, _ = json.Marshal(models.ErrorResponse{Error: "Failed to serialize response"})
		statusCode = http.StatusInternalServerError
	}
	return Result{StatusCode: statusCode, ContentType: CORSHeaders["Content-Type"], Body: body}
}

// Handler serves GET /?url=...&timeout=...&format=...
type Handler struct {
	scraper Scraper
}

func NewHandler(s Scraper) *Handler {
	return &Handler{scraper: s}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for k, v := range CORSHeaders {
		w.Header().Set(k, v)
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		write(w, ErrorResult(http.StatusMethodNotAllowed, "Method not allowed", ""))
		return
	}

	log.Debug().Str("method", r.Method).Str("uri", r.URL.String()).Msg("request received")

	q := r.URL.Query()
	timeoutMs := ClampTimeout(q.Get("timeout"), DefaultTimeoutMs)
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	write(w, Extract(ctx, h.scraper, q.Get("url"), q.Get("format"), timeoutMs))
}

func write(w http.ResponseWriter, res Result) {
	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write(res.Body); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
