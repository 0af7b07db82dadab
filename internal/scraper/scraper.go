// Package scraper fetches pages and runs content extraction on them. It
// fetches over HTTP first, with AMP/mobile alternates, and falls back to a
// headless browser that also serves as the tab messaging channel for
// re-extraction.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/extractor"
	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

var errTabsClosed = errors.New("scrape finished, tab not needed")

// Scraper turns a URL into an ExtractedContent
type Scraper struct {
	cfg           config.Config
	httpClient    *HTTPClient
	browserClient *BrowserClient
	extractor     *extractor.Extractor
}

func NewScraper(cfg config.Config) *Scraper {
	httpClient := NewHTTPClient(cfg.Scrape)
	ext := extractor.New(cfg.Extract, extractor.WithRawFetcher(httpClient))

	s := &Scraper{
		cfg:        cfg,
		httpClient: httpClient,
		extractor:  ext,
	}
	if cfg.Scrape.UseBrowser {
		s.browserClient = NewBrowserClient(cfg.Scrape, ext.Extract)
	}
	return s
}

// Close releases any browser tabs still open
func (s *Scraper) Close() {
	if s.browserClient != nil {
		s.browserClient.Close()
	}
}

// Fetch returns the page HTML: HTTP first, browser fallback
func (s *Scraper) Fetch(ctx context.Context, targetURL string) (string, string, error) {
	httpCtx, cancel := context.WithTimeout(ctx, HTTPTimeout)
	defer cancel()

	html, finalURL, err := s.httpClient.FetchWithAlternates(httpCtx, targetURL)
	if err == nil {
		return html, finalURL, nil
	}
	log.Debug().Err(err).Str("url", targetURL).Msg("http fetch failed")

	if s.browserClient == nil {
		return "", "", s.classify(targetURL, err)
	}

	html, finalURL, err = s.browserClient.Fetch(ctx, targetURL, BrowserTimeout)
	if err == nil {
		return html, finalURL, nil
	}

	return "", "", s.classify(targetURL, err)
}

func (s *Scraper) classify(targetURL string, err error) error {
	if IsCloudflareBlock(err) {
		domain := ""
		if u, parseErr := url.Parse(targetURL); parseErr == nil {
			domain = u.Hostname()
		}
		return &models.CloudflareBlockError{Domain: domain, Err: err}
	}
	return fmt.Errorf("fetch failed: %w", err)
}

// Scrape fetches targetURL and extracts it through the fallback chain. The
// record's URL is always targetURL, even when an alternate was fetched.
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*models.ExtractedContent, error) {
	if _, err := extractor.ParsePageURL(targetURL); err != nil {
		return nil, err
	}

	html, finalURL, err := s.Fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", finalURL, err)
	}

	var messenger extractor.Messenger
	if s.browserClient != nil {
		tabs := &tabMessenger{browser: s.browserClient, pageURL: targetURL}
		defer tabs.close()
		messenger = tabs
	}

	return extractor.NewRobustExtractor(s.extractor, messenger).ExtractWithFallback(ctx, targetURL, doc)
}

// ScrapeWithTimeout runs Scrape with a timeout
func (s *Scraper) ScrapeWithTimeout(ctx context.Context, targetURL string, timeoutMs int) (*models.ExtractedContent, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	return s.Scrape(ctx, targetURL)
}

type tabBrowser interface {
	OpenTab(ctx context.Context, pageURL string) (int, error)
	CloseTab(id int)
	Send(ctx context.Context, tabID int, msg models.Message) (models.MessageResponse, error)
}

// tabMessenger opens a tab on the page the first time the active tab is
// requested and closes it once the scrape is done. A tab that finishes
// opening after close is shut down immediately.
type tabMessenger struct {
	browser tabBrowser
	pageURL string

	mu     sync.Mutex
	opened []int
	closed bool
}

func (m *tabMessenger) ActiveTab(ctx context.Context) (int, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return 0, errTabsClosed
	}

	id, err := m.browser.OpenTab(ctx, m.pageURL)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.browser.CloseTab(id)
		return 0, errTabsClosed
	}
	m.opened = append(m.opened, id)
	m.mu.Unlock()
	return id, nil
}

func (m *tabMessenger) Send(ctx context.Context, tabID int, msg models.Message) (models.MessageResponse, error) {
	return m.browser.Send(ctx, tabID, msg)
}

func (m *tabMessenger) close() {
	m.mu.Lock()
	opened := m.opened
	m.opened = nil
	m.closed = true
	m.mu.Unlock()

	for _, id := range opened {
		m.browser.CloseTab(id)
	}
}
