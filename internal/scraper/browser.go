package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ContentHandler is the in-tab extraction run when a tab receives an
// extractContent message
type ContentHandler func(ctx context.Context, pageURL string, doc *goquery.Document) (*models.ExtractedContent, error)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
}

// BrowserClient renders pages in headless Chrome. Besides one-shot fetches
// it keeps a registry of open tabs that answer extractContent messages.
type BrowserClient struct {
	config  config.ScrapeConfig
	regexes map[string]*regexp.Regexp
	handler ContentHandler

	mu     sync.Mutex
	tabs   map[int]*tab
	nextID int
	active int
}

func NewBrowserClient(cfg config.ScrapeConfig, handler ContentHandler) *BrowserClient {
	return &BrowserClient{
		config:  cfg,
		regexes: config.Regexes(),
		handler: handler,
		tabs:    make(map[int]*tab),
	}
}

// Fetch renders targetURL, trying AMP/mobile alternates when the primary
// page fails or looks blocked
func (b *BrowserClient) Fetch(ctx context.Context, targetURL string, timeout time.Duration) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := OptimizedBrowserOptions(b.config)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, BuildChromeOptions(opts)...)
	defer cancel()

	ctx, cancel = chromedp.NewContext(allocCtx)
	defer cancel()

	html, finalURL, err := b.navigateAndExtract(ctx, targetURL, opts)
	if err == nil && !b.LooksLikeCFBlock(html) {
		return html, finalURL, nil
	}

	alternates, altErr := GenerateAlternateURLs(targetURL)
	if altErr != nil {
		return "", "", altErr
	}

	for _, altURL := range alternates {
		html, finalURL, err := b.navigateAndExtract(ctx, altURL, opts)
		if err == nil && !b.LooksLikeCFBlock(html) {
			return html, finalURL, nil
		}
	}

	return "", "", fmt.Errorf("all URLs failed or were blocked by Cloudflare")
}

// navigateAndExtract navigates to a URL and returns its rendered HTML
func (b *BrowserClient) navigateAndExtract(ctx context.Context, targetURL string, opts BrowserOptions) (string, string, error) {
	var html string
	var finalURL string

	err := chromedp.Run(ctx,
		chromedp.Navigate(targetURL),
		chromedp.Evaluate(RequestBlockingScript(opts), nil),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", "", fmt.Errorf("navigation failed: %w", err)
	}

	return html, finalURL, nil
}

// LooksLikeCFBlock checks if HTML content indicates Cloudflare blocking
func (b *BrowserClient) LooksLikeCFBlock(html string) bool {
	return b.regexes["cfBlock"].MatchString(strings.ToLower(html))
}

// OpenTab starts a browser tab on pageURL and makes it the active tab
func (b *BrowserClient) OpenTab(ctx context.Context, pageURL string) (int, error) {
	opts := DefaultBrowserOptions(b.config)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), BuildChromeOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// the tab outlives ctx, the page load does not
	boundCtx, stop := mergeCancel(tabCtx, ctx)
	defer stop()
	loadCtx, loadCancel := context.WithTimeout(boundCtx, BrowserTimeout)
	defer loadCancel()
	if err := chromedp.Run(loadCtx, chromedp.Navigate(pageURL), chromedp.WaitReady("body")); err != nil {
		cancel()
		return 0, fmt.Errorf("open tab %s: %w", pageURL, err)
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.tabs[b.nextID] = &tab{ctx: tabCtx, cancel: cancel, url: pageURL}
	b.active = b.nextID

	log.Debug().Int("tab", b.nextID).Str("url", pageURL).Msg("tab opened")
	return b.nextID, nil
}

// CloseTab shuts a tab down; unknown ids are ignored
func (b *BrowserClient) CloseTab(id int) {
	b.mu.Lock()
	t, ok := b.tabs[id]
	delete(b.tabs, id)
	if b.active == id {
		b.active = 0
	}
	b.mu.Unlock()

	if ok {
		t.cancel()
	}
}

// Close shuts every open tab down
func (b *BrowserClient) Close() {
	b.mu.Lock()
	ids := make([]int, 0, len(b.tabs))
	for id := range b.tabs {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.CloseTab(id)
	}
}

// ActiveTab returns the most recently opened tab
func (b *BrowserClient) ActiveTab(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == 0 {
		return 0, fmt.Errorf("no active tab")
	}
	return b.active, nil
}

// Send delivers msg to a tab. extractContent reads the tab's live DOM and
// runs the content handler on it; the reply never carries a Go error for
// extraction failures, only Success=false.
func (b *BrowserClient) Send(ctx context.Context, tabID int, msg models.Message) (models.MessageResponse, error) {
	b.mu.Lock()
	t, ok := b.tabs[tabID]
	b.mu.Unlock()
	if !ok {
		return models.MessageResponse{}, fmt.Errorf("tab %d not found", tabID)
	}

	if msg.Action != models.ActionExtractContent {
		return models.MessageResponse{Success: false, Error: fmt.Sprintf("unknown action %q", msg.Action)}, nil
	}
	if b.handler == nil {
		return models.MessageResponse{Success: false, Error: "no content handler"}, nil
	}

	var html string
	runCtx, stop := mergeCancel(t.ctx, ctx)
	defer stop()
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return models.MessageResponse{}, fmt.Errorf("read tab %d: %w", tabID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.MessageResponse{Success: false, Error: err.Error()}, nil
	}

	content, err := b.handler(ctx, t.url, doc)
	if err != nil {
		return models.MessageResponse{Success: false, Error: err.Error()}, nil
	}
	return models.MessageResponse{Success: true, Content: content}, nil
}

// mergeCancel returns a child of tabCtx that is also cancelled with ctx
func mergeCancel(tabCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(tabCtx)
	stop := context.AfterFunc(ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
