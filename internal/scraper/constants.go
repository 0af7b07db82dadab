package scraper

import "time"

// Timeout budgets for the two fetch phases
const (
	HTTPTimeout    = 18 * time.Second
	BrowserTimeout = 40 * time.Second
	DefaultTimeout = 15 * time.Second
)

// Browser configuration
const (
	DefaultWindowWidth  = 1366
	DefaultWindowHeight = 900
	MaxRedirects        = 5
)

// Retry backoff for 5xx responses
const (
	BaseBackoff = time.Second
	MaxBackoff  = 5 * time.Second
)

// Blocked domains for browser requests
var BlockedDomains = []string{
	"doubleclick",
	"googlesyndication",
	"google-analytics",
	"facebook.com/tr",
	"taboola",
	"outbrain",
	"scorecardresearch",
	"chartbeat",
	"amazon-adsystem",
}

// Cloudflare detection patterns matched against error text
var CloudflarePatterns = []string{
	"CF_BLOCKED",
	"cloudflare",
	"HTTP 403",
	"all alternate URLs failed",
	"attention required",
	"cloudflare ray id",
	"what can i do to resolve this?",
	"why have i been blocked?",
	"performance & security by cloudflare",
}

// Status codes after which alternate URLs are worth trying
var alternateStatuses = map[int]bool{403: true, 406: true, 451: true}
