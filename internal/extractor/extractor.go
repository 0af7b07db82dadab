package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/rs/zerolog/log"
)

// Extractor selects a site rule by hostname, falls back to the generic
// extractor and validates whichever result it takes.
type Extractor struct {
	cfg     config.ExtractConfig
	rules   []SiteRule
	generic *GenericExtractor
	fetcher RawFetcher
	now     func() time.Time
}

// Option configures an Extractor
type Option func(*Extractor)

// WithRawFetcher enables raw-file fetching for code hosting pages
func WithRawFetcher(f RawFetcher) Option {
	return func(e *Extractor) { e.fetcher = f }
}

// WithSiteRules replaces the built-in platform table
func WithSiteRules(rules []SiteRule) Option {
	return func(e *Extractor) { e.rules = rules }
}

// WithClock sets the time source used for default dates and extractedAt
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func New(cfg config.ExtractConfig, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:     cfg,
		rules:   DefaultSiteRules(),
		generic: NewGenericExtractor(cfg),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the validated content of doc. The only error is
// *models.InvalidURLError; extractor failures fall through to the generic
// path and a generic failure yields an empty, defaulted record.
func (e *Extractor) Extract(ctx context.Context, pageURL string, doc *goquery.Document) (*models.ExtractedContent, error) {
	base, err := ParsePageURL(pageURL)
	if err != nil {
		return nil, err
	}

	page := Page{URL: pageURL, Base: base, Doc: doc, Fetcher: e.fetcher}
	host := strings.ToLower(base.Hostname())

	for _, rule := range e.rules {
		if !rule.Matches(host) {
			continue
		}

		raw, err := runRule(ctx, rule, page)
		if err != nil {
			log.Warn().Err(err).Str("domain", host).Str("pattern", rule.Pattern).Msg("site extractor failed")
			continue
		}
		if raw == nil || Normalize(raw.Content) == "" {
			log.Debug().Str("domain", host).Str("pattern", rule.Pattern).Msg("site extractor found no content")
			continue
		}

		log.Debug().Str("domain", host).Str("pattern", rule.Pattern).Msg("extracted with site extractor")
		return e.validateAndClean(raw, pageURL), nil
	}

	log.Debug().Str("domain", host).Msg("using generic extractor")
	raw, err := e.generic.Extract(page)
	if err != nil {
		log.Warn().Err(err).Str("domain", host).Msg("generic extractor failed")
		raw = &RawContent{}
	}

	return e.validateAndClean(raw, pageURL), nil
}

// ParsePageURL requires an absolute URL with a hostname
func ParsePageURL(pageURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return nil, &models.InvalidURLError{URL: pageURL, Err: err}
	}
	if u.Hostname() == "" {
		return nil, &models.InvalidURLError{URL: pageURL, Err: fmt.Errorf("missing hostname")}
	}
	return u, nil
}

// runRule turns a panicking extractor into an ExtractorError
func runRule(ctx context.Context, rule SiteRule, page Page) (raw *RawContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = &models.ExtractorError{Extractor: rule.Pattern, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	raw, err = rule.Extract(ctx, page)
	if err != nil {
		return nil, &models.ExtractorError{Extractor: rule.Pattern, Err: err}
	}
	return raw, nil
}

// validateAndClean normalizes every field and substitutes sentinel defaults
func (e *Extractor) validateAndClean(raw *RawContent, pageURL string) *models.ExtractedContent {
	now := e.now().UTC()

	content := truncateRunes(Normalize(raw.Content), e.cfg.MaxContentChars)
	result := &models.ExtractedContent{
		Title:       Normalize(raw.Title),
		Description: Normalize(raw.Description),
		Content:     content,
		Structure:   raw.Structure,
		HTML:        raw.HTML,
		Author:      Normalize(raw.Author),
		Date:        e.normalizeDate(raw.Date, now),
		URL:         pageURL,
		Images:      raw.Images,
		Tags:        raw.Tags,
		CodeBlocks:  raw.CodeBlocks,
		Type:        raw.Type,
		ExtractedAt: now.Format(time.RFC3339),
	}

	if result.Title == "" {
		result.Title = models.UntitledTitle
	}
	if result.Author == "" {
		result.Author = models.UnknownAuthor
	}
	if result.Images == nil {
		result.Images = []models.ImageRef{}
	}
	if result.Type == "" {
		result.Type = models.TypeArticle
	}

	if n := textLength(content); n < e.cfg.MinContentLength {
		result.Suspect = true
		log.Warn().Str("url", pageURL).Int("length", n).Msg("content too short")
	}

	return result
}

// normalizeDate parses best-effort into RFC 3339. Unparseable values are
// kept as-is and logged; an absent date becomes now.
func (e *Extractor) normalizeDate(raw string, now time.Time) string {
	raw = Normalize(raw)
	if raw == "" {
		return now.Format(time.RFC3339)
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		log.Warn().Err(err).Str("date", raw).Msg("unparseable date kept verbatim")
		return raw
	}
	return t.UTC().Format(time.RFC3339)
}
