package scraper

import (
	"encoding/json"
	"fmt"

	"sheet2docs/internal/config"

	"github.com/chromedp/chromedp"
)

// BrowserOptions contains configuration for browser automation
type BrowserOptions struct {
	Optimized    bool
	BlockImages  bool
	BlockFonts   bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
}

// DefaultBrowserOptions returns standard browser options for the configured user agent
func DefaultBrowserOptions(cfg config.ScrapeConfig) BrowserOptions {
	return BrowserOptions{
		WindowWidth:  DefaultWindowWidth,
		WindowHeight: DefaultWindowHeight,
		UserAgent:    cfg.UserAgent,
	}
}

// OptimizedBrowserOptions blocks images and fonts. Scripts stay enabled
// since many article bodies are rendered client-side.
func OptimizedBrowserOptions(cfg config.ScrapeConfig) BrowserOptions {
	opts := DefaultBrowserOptions(cfg)
	opts.Optimized = true
	opts.BlockImages = true
	opts.BlockFonts = true
	return opts
}

// BuildChromeOptions creates Chrome allocator options from BrowserOptions
func BuildChromeOptions(opts BrowserOptions) []chromedp.ExecAllocatorOption {
	chromeOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)

	if opts.UserAgent != "" {
		chromeOpts = append(chromeOpts, chromedp.UserAgent(opts.UserAgent))
	}

	if opts.Optimized {
		if opts.BlockImages {
			chromeOpts = append(chromeOpts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
		}
		chromeOpts = append(chromeOpts,
			chromedp.Flag("disable-plugins", true),
			chromedp.Flag("disable-extensions", true),
		)
	}

	return chromeOpts
}

// RequestBlockingScript returns the JavaScript installed in every tab to
// reject tracker requests and hide the webdriver flag
func RequestBlockingScript(opts BrowserOptions) string {
	domains, _ := json.Marshal(BlockedDomains)

	script := fmt.Sprintf(`
		(() => {
			const blocked = %s;
			const isBlocked = (u) => typeof u === 'string' && blocked.some(d => u.includes(d));
			const originalFetch = window.fetch;
			window.fetch = function(...args) {
				if (isBlocked(args[0])) return Promise.reject(new Error('Blocked'));
				return originalFetch.apply(this, args);
			};
			const originalOpen = XMLHttpRequest.prototype.open;
			XMLHttpRequest.prototype.open = function(method, url, ...rest) {
				if (isBlocked(url)) throw new Error('Blocked');
				return originalOpen.apply(this, [method, url, ...rest]);
			};
			Object.defineProperty(navigator, 'webdriver', { get: () => false });
		})();
	`, domains)

	if opts.BlockFonts {
		script += `
		document.querySelectorAll('link[rel="preload"][as="font"]').forEach(l => l.remove());
		`
	}

	return script
}
