package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration shared by the CLI and the HTTP endpoints
type Config struct {
	Extract ExtractConfig `yaml:"extract"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Docs    DocsConfig    `yaml:"docs"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Log     LogConfig     `yaml:"log"`
}

// ExtractConfig contains the tunables of the extraction engine
type ExtractConfig struct {
	// MinContentLength below which a result is flagged as suspect
	MinContentLength int `yaml:"min_content_length"`
	// LocatorMinText is the text length a landmark candidate must exceed
	LocatorMinText int `yaml:"locator_min_text"`
	// MaxContentChars caps the content field; zero means unbounded
	MaxContentChars int `yaml:"max_content_chars"`
	// MessageTimeout bounds the content-script round-trip
	MessageTimeout time.Duration `yaml:"message_timeout"`
	// UseReadabilityHints enables readability byline/excerpt as last candidates
	UseReadabilityHints bool `yaml:"use_readability_hints"`
}

// ScrapeConfig contains general scraping configuration
type ScrapeConfig struct {
	UserAgent      string `yaml:"user_agent"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	SizeLimitBytes int    `yaml:"size_limit_bytes"`
	MaxRetries     int    `yaml:"max_retries"`
	ChromeMajor    int    `yaml:"chrome_major"`
	UseBrowser     bool   `yaml:"use_browser"`
}

// DocsConfig configures the document API client
type DocsConfig struct {
	BaseURL       string  `yaml:"base_url"`
	DriveURL      string  `yaml:"drive_url"`
	Token         string  `yaml:"-"`
	Share         bool    `yaml:"share"`
	ChunkSize     int     `yaml:"chunk_size"`
	MaxRetries    int     `yaml:"max_retries"`
	IncludeHeader bool    `yaml:"include_header"`
	// NumberedNames names documents "NNN_name_subject" instead of "N-name-subject"
	NumberedNames bool    `yaml:"numbered_names"`
	// RatePerSecond paces API calls; zero disables pacing
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// SheetsConfig configures the spreadsheet client and column layout.
// Column fields hold letters ("A", "M"); empty means auto-detect.
type SheetsConfig struct {
	BaseURL       string  `yaml:"base_url"`
	Token         string  `yaml:"-"`
	SpreadsheetID string  `yaml:"spreadsheet_id"`
	HeaderRow     int     `yaml:"header_row"`
	StartRow      int     `yaml:"start_row"`
	URLColumn     string  `yaml:"url_column"`
	DocColumn     string  `yaml:"doc_column"`
	NameColumn    string  `yaml:"name_column"`
	SubjectColumn string  `yaml:"subject_column"`
	Overwrite     bool    `yaml:"overwrite"`
	// MaxRows bounds the URL column read
	MaxRows       int     `yaml:"max_rows"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// LogConfig configures zerolog output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultExtractConfig returns the default extraction configuration
func DefaultExtractConfig() ExtractConfig {
	maxChars := 0
	if env := os.Getenv("SHEET2DOCS_MAX_CONTENT_CHARS"); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil && parsed >= 0 {
			maxChars = parsed
		}
	}

	return ExtractConfig{
		MinContentLength:    100,
		LocatorMinText:      500,
		MaxContentChars:     maxChars,
		MessageTimeout:      5 * time.Second,
		UseReadabilityHints: true,
	}
}

// DefaultScrapeConfig returns the default scraping configuration
func DefaultScrapeConfig() ScrapeConfig {
	chromeMajor := 133
	if env := os.Getenv("CHROME_MAJOR"); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil {
			chromeMajor = parsed
		}
	}

	userAgent := os.Getenv("SCRAPE_USER_AGENT")
	if userAgent == "" {
		userAgent = fmt.Sprintf("Mozilla/5.0 (Windows NT 10; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.6943.126 Safari/537.36", chromeMajor)
	}

	return ScrapeConfig{
		UserAgent:      userAgent,
		TimeoutMs:      15000,
		SizeLimitBytes: 6_000_000,
		MaxRetries:     2,
		ChromeMajor:    chromeMajor,
		UseBrowser:     true,
	}
}

// DefaultDocsConfig returns the default document API configuration
func DefaultDocsConfig() DocsConfig {
	return DocsConfig{
		BaseURL:       "https://docs.googleapis.com/",
		DriveURL:      "https://www.googleapis.com/drive/v3/",
		Token:         os.Getenv("SHEET2DOCS_TOKEN"),
		Share:         true,
		ChunkSize:     50,
		MaxRetries:    3,
		IncludeHeader: true,
		RatePerSecond: 2,
	}
}

// DefaultSheetsConfig returns the default spreadsheet configuration
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		BaseURL:       "https://sheets.googleapis.com/",
		Token:         os.Getenv("SHEET2DOCS_TOKEN"),
		HeaderRow:     2,
		StartRow:      3,
		MaxRows:       1000,
		RatePerSecond: 5,
	}
}

// Default returns the complete default configuration
func Default() Config {
	level := os.Getenv("SHEET2DOCS_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	return Config{
		Extract: DefaultExtractConfig(),
		Scrape:  DefaultScrapeConfig(),
		Docs:    DefaultDocsConfig(),
		Sheets:  DefaultSheetsConfig(),
		Log:     LogConfig{Level: level, Format: "console"},
	}
}

// Load overlays the YAML file at path onto the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c Config) Validate() error {
	if c.Extract.MinContentLength < 0 || c.Extract.LocatorMinText < 0 {
		return fmt.Errorf("extract thresholds must not be negative")
	}
	if c.Extract.MaxContentChars < 0 {
		return fmt.Errorf("extract.max_content_chars must not be negative")
	}
	if c.Sheets.HeaderRow < 1 || c.Sheets.StartRow <= c.Sheets.HeaderRow {
		return fmt.Errorf("sheets.start_row (%d) must follow sheets.header_row (%d)", c.Sheets.StartRow, c.Sheets.HeaderRow)
	}
	if c.Sheets.MaxRows < c.Sheets.StartRow {
		return fmt.Errorf("sheets.max_rows (%d) must not precede sheets.start_row (%d)", c.Sheets.MaxRows, c.Sheets.StartRow)
	}
	if c.Docs.ChunkSize <= 0 {
		return fmt.Errorf("docs.chunk_size must be positive")
	}
	return nil
}

// Regexes returns the shared pattern table, compiled on first use
var Regexes = sync.OnceValue(func() map[string]*regexp.Regexp {
	return map[string]*regexp.Regexp{
		"badHint":       regexp.MustCompile(`(?i)(logo|icon)`),
		"markdownTitle": regexp.MustCompile(`(?m)^#\s+(.+)$`),
		"cfBlock":       regexp.MustCompile(`(attention required|cloudflare ray id|what can i do to resolve this\?|why have i been blocked\?|performance & security by cloudflare)`),
	}
})
