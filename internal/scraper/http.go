package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/extractor"
	"sheet2docs/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// HTTPClient fetches pages and raw files with browser-like headers
type HTTPClient struct {
	client  *http.Client
	config  config.ScrapeConfig
	regexes map[string]*regexp.Regexp
	backoff time.Duration
}

func NewHTTPClient(cfg config.ScrapeConfig) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:  client,
		config:  cfg,
		regexes: config.Regexes(),
		backoff: BaseBackoff,
	}
}

// setRequestHeaders sets browser-like headers on the request
func (h *HTTPClient) setRequestHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Referer", "https://www.google.com/")
}

// FetchHTML fetches an HTML page, retrying 5xx responses with exponential backoff
func (h *HTTPClient) FetchHTML(ctx context.Context, targetURL string) (string, error) {
	return h.fetch(ctx, targetURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", func(contentType string) bool {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	})
}

// FetchRaw downloads a plain-text resource such as a raw repository file
func (h *HTTPClient) FetchRaw(ctx context.Context, rawURL string) (string, error) {
	return h.fetch(ctx, rawURL, "text/plain,*/*;q=0.8", func(contentType string) bool {
		ct := strings.ToLower(contentType)
		return ct == "" || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "markdown")
	})
}

func (h *HTTPClient) fetch(ctx context.Context, targetURL, accept string, acceptable func(string) bool) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := h.backoff * time.Duration(1<<(attempt-1))
			if delay > MaxBackoff {
				delay = MaxBackoff
			}
			log.Debug().Str("url", targetURL).Int("attempt", attempt).Dur("delay", delay).Msg("retrying fetch")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retry, err := h.do(ctx, targetURL, accept, acceptable)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return "", lastErr
}

// do performs one request; retry is true for server errors
func (h *HTTPClient) do(ctx context.Context, targetURL, accept string, acceptable func(string) bool) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	h.setRequestHeaders(req, accept)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", true, &models.HTTPError{StatusCode: resp.StatusCode, URL: targetURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return "", false, &models.HTTPError{StatusCode: resp.StatusCode, URL: targetURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !acceptable(contentType) {
		return "", false, fmt.Errorf("unexpected content-type: %s", contentType)
	}

	reader := io.LimitReader(resp.Body, int64(h.config.SizeLimitBytes))
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", false, fmt.Errorf("failed to read response: %w", err)
	}

	return string(body), false, nil
}

// LooksLikeCFBlock checks if HTML content indicates Cloudflare blocking
func (h *HTTPClient) LooksLikeCFBlock(html string) bool {
	return h.regexes["cfBlock"].MatchString(strings.ToLower(html))
}

// GenerateAlternateURLs creates alternative URLs for AMP/mobile fallback
func GenerateAlternateURLs(originalURL string) ([]string, error) {
	u, err := url.Parse(originalURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	alternates := make([]string, 0, 4)

	if !strings.HasPrefix(u.Path, "/amp/") {
		ampURL := *u
		ampURL.Path = "/amp" + u.Path
		alternates = append(alternates, ampURL.String())
	}

	if !strings.HasSuffix(u.Path, "/amp") {
		ampURL := *u
		ampURL.Path = strings.TrimSuffix(ampURL.Path, "/") + "/amp"
		alternates = append(alternates, ampURL.String())
	}

	queryURL := *u
	query := queryURL.Query()
	query.Set("outputType", "amp")
	queryURL.RawQuery = query.Encode()
	alternates = append(alternates, queryURL.String())

	if !strings.HasPrefix(u.Hostname(), "m.") {
		mobileURL := *u
		mobileURL.Host = "m." + u.Host
		alternates = append(alternates, mobileURL.String())
	}

	return alternates, nil
}

// shouldTryAlternates reports whether a primary failure may be a block
func shouldTryAlternates(err error) bool {
	var httpErr *models.HTTPError
	if errors.As(err, &httpErr) {
		return alternateStatuses[httpErr.StatusCode] || httpErr.StatusCode >= 500
	}
	return false
}

// FetchWithAlternates tries the primary URL first, then alternates in
// parallel. It returns the HTML and the URL it came from.
func (h *HTTPClient) FetchWithAlternates(ctx context.Context, targetURL string) (string, string, error) {
	html, err := h.FetchHTML(ctx, targetURL)
	if err == nil && !h.LooksLikeCFBlock(html) {
		return html, targetURL, nil
	}
	if err != nil && !shouldTryAlternates(err) {
		return "", "", err
	}

	alternates, err := GenerateAlternateURLs(targetURL)
	if err != nil {
		return "", "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	type result struct {
		html string
		url  string
	}
	results := make(chan result, len(alternates))

	for _, altURL := range alternates {
		g.Go(func() error {
			html, err := h.FetchHTML(gctx, altURL)
			if err != nil {
				return nil
			}
			if h.LooksLikeCFBlock(html) {
				return nil
			}
			results <- result{html, altURL}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	select {
	case r, ok := <-results:
		if ok {
			log.Debug().Str("url", targetURL).Str("alternate", r.url).Msg("fetched alternate URL")
			return r.html, r.url, nil
		}
		return "", "", fmt.Errorf("all alternate URLs failed or were blocked")
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// IsCloudflareBlock checks if the error indicates Cloudflare blocking
func IsCloudflareBlock(err error) bool {
	if err == nil {
		return false
	}
	var cfErr *models.CloudflareBlockError
	if errors.As(err, &cfErr) {
		return true
	}
	return extractor.ContainsAny(err.Error(), CloudflarePatterns)
}
