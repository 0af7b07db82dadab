package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.ExtractConfig {
	cfg := config.DefaultExtractConfig()
	cfg.MaxContentChars = 0
	cfg.UseReadabilityHints = false
	return cfg
}

func newTestExtractor(opts ...Option) *Extractor {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(testConfig(), opts...)
}

type fakeFetcher struct {
	body string
	err  error
	urls []string
}

func (f *fakeFetcher) FetchRaw(_ context.Context, rawURL string) (string, error) {
	f.urls = append(f.urls, rawURL)
	return f.body, f.err
}

func TestExtractEndToEndGeneric(t *testing.T) {
	doc := mustDoc(t, `<article><h1>Title</h1><p>Hello world.</p></article>`)

	got, err := newTestExtractor().Extract(context.Background(), "https://example.com/x", doc)
	require.NoError(t, err)

	assert.Equal(t, "Title", got.Title)
	assert.Contains(t, got.Content, "Hello world.")
	assert.Equal(t, []models.ContentBlock{
		models.Heading(1, "Title"),
		models.Paragraph("Hello world."),
	}, got.Structure)
	assert.Equal(t, models.UnknownAuthor, got.Author)
	assert.NotNil(t, got.Images)
	assert.Empty(t, got.Images)
	assert.Equal(t, "https://example.com/x", got.URL)
	assert.Equal(t, models.TypeArticle, got.Type)
	assert.Equal(t, fixedNow.Format(time.RFC3339), got.Date)
	assert.Equal(t, fixedNow.Format(time.RFC3339), got.ExtractedAt)
	assert.True(t, got.Suspect)
}

func TestExtractKeepsEscapedMarkupInText(t *testing.T) {
	doc := mustDoc(t, `<html><head><title>Tags</title></head><body><article>
		<h1>Using the &lt;template&gt; element</h1><p>Body text</p>
	</article></body></html>`)

	got, err := newTestExtractor().Extract(context.Background(), "https://example.com/t", doc)
	require.NoError(t, err)
	assert.Equal(t, "Using the <template> element", got.Title)
	assert.Contains(t, got.Content, "<template> element Body text")
	assert.NotContains(t, got.Content, "elementBody")
}

func TestExtractKeepsEscapedMarkupInMeta(t *testing.T) {
	doc := mustDoc(t, `<html><head>
		<meta property="og:title" content="Using the &lt;template&gt; element">
		<meta name="description" content="Why &lt;slot&gt; matters">
	</head><body><p>Short body.</p></body></html>`)

	got, err := newTestExtractor().Extract(context.Background(), "https://example.com/t", doc)
	require.NoError(t, err)
	assert.Equal(t, "Using the <template> element", got.Title)
	assert.Equal(t, "Why <slot> matters", got.Description)
}

func TestExtractDoesNotMutateDocument(t *testing.T) {
	doc := mustDoc(t, `<html><body><nav>menu</nav><article><p>text</p></article></body></html>`)

	_, err := newTestExtractor().Extract(context.Background(), "https://example.com/", doc)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("nav").Length())
}

func TestExtractSiteMissFallsThroughToGeneric(t *testing.T) {
	doc := mustDoc(t, `<html><head><title>Doc Title</title></head><body>
		<h1>Heading One</h1>
		<div><p>Nothing here matches the platform selectors.</p></div>
	</body></html>`)

	got, err := newTestExtractor().Extract(context.Background(), "https://qiita.com/user/items/abc", doc)
	require.NoError(t, err)

	assert.NotEqual(t, models.UntitledTitle, got.Title)
	assert.Equal(t, "Heading One", got.Title)
	assert.Contains(t, got.Content, "Nothing here matches")
	assert.Empty(t, got.Tags)
}

func TestExtractSiteProfile(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<h1 class="it-Header_title">Go generics</h1>
		<span class="it-Header_authorName">gopher</span>
		<time datetime="2024-03-01T10:00:00+09:00">March 1</time>
		<a class="it-Tags_item">Go</a><a class="it-Tags_item">Generics</a><a class="it-Tags_item">Go</a>
		<div class="it-MdContent">
			<p>Type parameters arrived in Go 1.18.</p>
			<pre><code class="language-go">func Map[T any](xs []T) {}</code></pre>
			<img src="https://cdn.example.com/diagram.png" alt="diagram">
		</div>
	</body></html>`)

	got, err := newTestExtractor().Extract(context.Background(), "https://qiita.com/gopher/items/1", doc)
	require.NoError(t, err)

	assert.Equal(t, "Go generics", got.Title)
	assert.Equal(t, "gopher", got.Author)
	assert.Equal(t, "2024-03-01T01:00:00Z", got.Date)
	assert.Equal(t, []string{"Go", "Generics"}, got.Tags)
	require.Len(t, got.CodeBlocks, 1)
	assert.Equal(t, "go", got.CodeBlocks[0].Language)
	assert.Equal(t, []models.ImageRef{{Src: "https://cdn.example.com/diagram.png", Alt: "diagram"}}, got.Images)
	assert.NotEmpty(t, got.Structure)
	assert.Contains(t, got.HTML, "Type parameters")
}

func TestExtractFixedAuthor(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1 id="firstHeading" class="firstHeading">Go (language)</h1>
		<div id="mw-content-text"><div class="mw-parser-output"><p>Go is a programming language.</p></div></div>
	</body></html>`)

	got, err := newTestExtractor().Extract(context.Background(), "https://en.wikipedia.org/wiki/Go", doc)
	require.NoError(t, err)
	assert.Equal(t, "Wikipedia", got.Author)
	assert.Equal(t, "Go (language)", got.Title)
	assert.Equal(t, fixedNow.Format(time.RFC3339), got.Date)
}

func TestExtractPanickingRuleIsAbsorbed(t *testing.T) {
	rules := []SiteRule{
		{Pattern: "example.com", Extract: func(context.Context, Page) (*RawContent, error) {
			panic("boom")
		}},
		{Pattern: "example", Extract: func(context.Context, Page) (*RawContent, error) {
			return nil, errors.New("selector exploded")
		}},
	}
	doc := mustDoc(t, `<html><body><article><h1>Fallback</h1><p>generic body</p></article></body></html>`)

	got, err := newTestExtractor(WithSiteRules(rules)).Extract(context.Background(), "https://www.example.com/a", doc)
	require.NoError(t, err)
	assert.Equal(t, "Fallback", got.Title)
}

func TestExtractFirstMatchingRuleWins(t *testing.T) {
	var calls []string
	rule := func(name string) SiteFunc {
		return func(context.Context, Page) (*RawContent, error) {
			calls = append(calls, name)
			return &RawContent{Title: name, Content: "body from " + name}, nil
		}
	}
	rules := []SiteRule{
		{Pattern: "other.org", Extract: rule("other")},
		{Pattern: "blog", Extract: rule("first")},
		{Pattern: "example", Extract: rule("second")},
	}

	got, err := newTestExtractor(WithSiteRules(rules)).Extract(context.Background(), "https://blog.example.com/", mustDoc(t, "<p></p>"))
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, []string{"first"}, calls)
}

func TestExtractInvalidURL(t *testing.T) {
	for _, raw := range []string{"not a url", "://missing-scheme", "/relative/path"} {
		_, err := newTestExtractor().Extract(context.Background(), raw, mustDoc(t, "<p>x</p>"))
		var invalid *models.InvalidURLError
		assert.True(t, errors.As(err, &invalid), "url %q", raw)
	}
}

func TestValidateAndClean(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContentChars = 10
	e := New(cfg, WithClock(func() time.Time { return fixedNow }))

	got := e.validateAndClean(&RawContent{
		Title:   "  <em>Spaced</em>   title ",
		Content: strings.Repeat("abc ", 40),
		Author:  "\x00 Jane \n Doe",
		Date:    "2009-15-12T22:15Z",
	}, "https://example.com/a")

	assert.Equal(t, "Spaced title", got.Title)
	assert.Equal(t, "abc abc ab", got.Content)
	assert.Equal(t, "Jane Doe", got.Author)
	assert.Equal(t, "2009-15-12T22:15Z", got.Date)
	assert.True(t, got.Suspect)
	assert.Equal(t, models.TypeArticle, got.Type)
}

func TestValidateAndCleanDefaults(t *testing.T) {
	got := newTestExtractor().validateAndClean(&RawContent{Content: strings.Repeat("x", 150)}, "https://example.com")

	assert.Equal(t, models.UntitledTitle, got.Title)
	assert.Equal(t, models.UnknownAuthor, got.Author)
	assert.Equal(t, fixedNow.Format(time.RFC3339), got.Date)
	assert.False(t, got.Suspect)
	assert.NotNil(t, got.Images)
}

func TestExtractGitHubBlobUsesRawFile(t *testing.T) {
	fetcher := &fakeFetcher{body: "# My Project\n\nIntro text.\n\n```go\nfmt.Println()\n```\n"}
	doc := mustDoc(t, `<html><body><div class="markdown-body"><p>rendered</p></div></body></html>`)

	got, err := newTestExtractor(WithRawFetcher(fetcher)).Extract(context.Background(), "https://github.com/o/r/blob/main/README.md", doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://raw.githubusercontent.com/o/r/main/README.md"}, fetcher.urls)
	assert.Equal(t, "My Project", got.Title)
	assert.Equal(t, models.TypeMarkdown, got.Type)
	assert.Equal(t, "GitHub", got.Author)
	assert.Equal(t, []models.ContentBlock{
		models.Heading(1, "My Project"),
		models.Paragraph("Intro text."),
		models.Code("go", "fmt.Println()"),
	}, got.Structure)
}

func TestExtractGitHubRawFailureReadsPage(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("HTTP 404")}
	doc := mustDoc(t, `<html><body><div class="markdown-body"><h1>Readme</h1><p>rendered body</p></div></body></html>`)

	got, err := newTestExtractor(WithRawFetcher(fetcher)).Extract(context.Background(), "https://github.com/o/r/blob/main/README.md", doc)
	require.NoError(t, err)
	assert.Equal(t, "Readme", got.Title)
	assert.Equal(t, models.TypeArticle, got.Type)
	assert.Contains(t, got.Content, "rendered body")
}

func TestExtractGitHubTreeSkipsRawFetch(t *testing.T) {
	fetcher := &fakeFetcher{body: "# raw"}
	doc := mustDoc(t, `<html><body><div class="markdown-body"><p>tree listing</p></div></body></html>`)

	_, err := newTestExtractor(WithRawFetcher(fetcher)).Extract(context.Background(), "https://github.com/o/r/tree/main/docs", doc)
	require.NoError(t, err)
	assert.Empty(t, fetcher.urls)
}

func TestMarkdownTitle(t *testing.T) {
	assert.Equal(t, "Hello", MarkdownTitle("intro\n# Hello\n## sub"))
	assert.Equal(t, "README", MarkdownTitle("## only sub"))
}
