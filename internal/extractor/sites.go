package extractor

import (
	"context"
	"net/url"
	"strings"

	"sheet2docs/internal/config"
	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// RawContent is what an extractor returns before validation. Empty fields
// are filled with sentinel defaults by the orchestrator.
type RawContent struct {
	Title       string
	Description string
	Content     string
	Author      string
	Date        string
	HTML        string
	Type        string
	Structure   []models.ContentBlock
	Images      []models.ImageRef
	Tags        []string
	CodeBlocks  []models.CodeSnippet
}

// Page is the input handed to every site rule
type Page struct {
	URL     string
	Base    *url.URL
	Doc     *goquery.Document
	Fetcher RawFetcher
}

// RawFetcher downloads a resource as plain text
type RawFetcher interface {
	FetchRaw(ctx context.Context, rawURL string) (string, error)
}

// SiteFunc extracts a known platform's page. A nil result or empty Content
// means "no result" and lets the orchestrator fall through.
type SiteFunc func(ctx context.Context, page Page) (*RawContent, error)

// SiteRule pairs a hostname substring with its extractor
type SiteRule struct {
	Pattern string
	Extract SiteFunc
}

// Matches reports whether host contains the rule's pattern
func (r SiteRule) Matches(host string) bool {
	return r.Pattern != "" && strings.Contains(host, r.Pattern)
}

// siteProfile is a selector lookup table for one platform. Each list is
// tried in order; the first selector yielding non-empty text wins.
type siteProfile struct {
	Title       []string
	Body        []string
	Author      []string
	Date        []string
	Images      []string
	Tags        []string
	FixedAuthor string
	CodeBlocks  bool
}

// DefaultSiteRules returns the built-in platform table in dispatch order
func DefaultSiteRules() []SiteRule {
	return []SiteRule{
		{Pattern: "news.yahoo.co.jp", Extract: yahooNews.extract},
		{Pattern: "www3.nhk.or.jp", Extract: nhk.extract},
		{Pattern: "asahi.com", Extract: asahi.extract},
		{Pattern: "yomiuri.co.jp", Extract: yomiuri.extract},
		{Pattern: "nikkei.com", Extract: nikkei.extract},
		{Pattern: "note.com", Extract: note.extract},
		{Pattern: "hatenablog", Extract: hatenaBlog.extract},
		{Pattern: "qiita.com", Extract: qiita.extract},
		{Pattern: "zenn.dev", Extract: zenn.extract},
		{Pattern: "medium.com", Extract: medium.extract},
		{Pattern: "wikipedia.org", Extract: wikipedia.extract},
		{Pattern: "github.com", Extract: extractGitHub},
		{Pattern: "prtimes.jp", Extract: prTimes.extract},
	}
}

var (
	yahooNews = siteProfile{
		Title:  []string{"article header h1", "h1.sc-gBOOmk", ".article-header h1"},
		Body:   []string{"div.article_body", ".sc-eVJWDD", "article .article-main"},
		Author: []string{"span.author", ".article-author"},
		Date:   []string{"time"},
		Images: []string{"article img", ".article_body img"},
	}
	nhk = siteProfile{
		Title:       []string{"h1.content--title", ".content-title", "h1"},
		Body:        []string{".content--summary", ".content--detail", ".body-text"},
		Date:        []string{"time", ".content--date"},
		Images:      []string{".content img", "figure img"},
		FixedAuthor: "NHK",
	}
	asahi = siteProfile{
		Title:  []string{"h1.Title", "h1", ".article-title"},
		Body:   []string{".ArticleBody", ".article-body", ".tk_honbun"},
		Author: []string{".Author", ".writer"},
		Date:   []string{"time", ".date", ".updatedate"},
		Images: []string{".ArticleBody img", "figure img"},
	}
	yomiuri = siteProfile{
		Title:  []string{".article-header h1", "h1.title", "h1"},
		Body:   []string{".article-body", ".p-main-contents", ".article-text"},
		Author: []string{".byline", ".writer"},
		Date:   []string{"time", ".date"},
		Images: []string{".article-body img", "figure img"},
	}
	nikkei = siteProfile{
		Title:  []string{".article-header h1", "h1.title", "h1"},
		Body:   []string{".article-body", ".cmn-article_text", ".body"},
		Author: []string{".author", ".writer"},
		Date:   []string{"time", ".date-area"},
		Images: []string{".article-body img", "figure img"},
	}
	note = siteProfile{
		Title:  []string{"h1.o-noteContentHeader__title", "h1", ".note-title"},
		Body:   []string{"div.note-common-styles__textnote", ".p-article__content", ".note-body"},
		Author: []string{"a.o-noteContentHeader__userNameLink", ".o-noteContentHeader__name"},
		Date:   []string{"time", ".o-noteContentHeader__publishedAt"},
		Images: []string{"figure img", ".note-embed img"},
	}
	hatenaBlog = siteProfile{
		Title:  []string{".entry-title", "h1.title", "h1"},
		Body:   []string{".entry-content", ".entry-body", "article"},
		Author: []string{".author", ".entry-author-name"},
		Date:   []string{"time", ".date", ".entry-date"},
		Images: []string{".entry-content img", "article img"},
	}
	qiita = siteProfile{
		Title:      []string{"h1.it-Header_title", "h1"},
		Body:       []string{".it-MdContent", ".p-items_main"},
		Author:     []string{".it-Header_authorName", ".it-Header_author"},
		Date:       []string{"time", ".it-Header_time"},
		Images:     []string{".it-MdContent img"},
		Tags:       []string{".it-Tags_item", ".tagList_item"},
		CodeBlocks: true,
	}
	zenn = siteProfile{
		Title:      []string{"h1", ".article-title"},
		Body:       []string{".znc", ".article-content", "article"},
		Author:     []string{".author-name", ".article-author"},
		Date:       []string{"time", ".article-date"},
		Images:     []string{".znc img", "article img"},
		CodeBlocks: true,
	}
	medium = siteProfile{
		Title:  []string{"h1", "article h1"},
		Body:   []string{"article section", "article", "main"},
		Author: []string{"[data-testid='authorName']", ".author-name"},
		Date:   []string{"time", "[data-testid='storyPublishDate']"},
		Images: []string{"article img", "figure img"},
	}
	wikipedia = siteProfile{
		Title:       []string{"h1.firstHeading", "h1#firstHeading", "h1"},
		Body:        []string{"#mw-content-text .mw-parser-output", "#mw-content-text"},
		Images:      []string{"#mw-content-text img"},
		FixedAuthor: "Wikipedia",
	}
	gitHub = siteProfile{
		Title:       []string{".markdown-body h1", "h1", "[itemprop='name'] a"},
		Body:        []string{".markdown-body", ".repository-content", ".blob-wrapper"},
		Images:      []string{".markdown-body img"},
		FixedAuthor: "GitHub",
	}
	prTimes = siteProfile{
		Title:  []string{"h1.title", "h1", ".release-title"},
		Body:   []string{".release-body", ".content", "article"},
		Author: []string{".company-name", ".release-company"},
		Date:   []string{"time", ".release-date"},
		Images: []string{".release-body img", "article img"},
	}
)

func (p siteProfile) extract(ctx context.Context, page Page) (*RawContent, error) {
	root := page.Doc.Selection

	raw := &RawContent{
		Title:  firstText(root, p.Title),
		Author: p.FixedAuthor,
		Date:   firstDate(root, p.Date),
		Type:   models.TypeArticle,
	}
	if raw.Author == "" {
		raw.Author = firstText(root, p.Author)
	}

	body := firstMatch(root, p.Body)
	if body == nil {
		return raw, nil
	}

	raw.Content = Normalize(blockText(body))
	raw.Structure = BuildStructure(body, page.Base)
	raw.HTML = sanitizedHTML(body)

	if len(p.Images) > 0 {
		raw.Images = NewImageFilter().Collect(root.Find(strings.Join(p.Images, ", ")), page.Base)
	}
	if len(p.Tags) > 0 {
		raw.Tags = collectTags(root.Find(strings.Join(p.Tags, ", ")))
	}
	if p.CodeBlocks {
		raw.CodeBlocks = collectCodeBlocks(body)
	}

	return raw, nil
}

// extractGitHub fetches the raw file behind /blob/ URLs and otherwise reads
// the rendered page like any other profile.
func extractGitHub(ctx context.Context, page Page) (*RawContent, error) {
	if page.Fetcher != nil && page.Base != nil && strings.Contains(page.Base.Path, "/blob/") {
		rawURL := GitHubRawURL(page.Base)
		markdown, err := page.Fetcher.FetchRaw(ctx, rawURL)
		if err == nil && strings.TrimSpace(markdown) != "" {
			return &RawContent{
				Title:     MarkdownTitle(markdown),
				Content:   markdown,
				Structure: ParseMarkdown(markdown),
				Author:    gitHub.FixedAuthor,
				Type:      models.TypeMarkdown,
			}, nil
		}
		log.Warn().Err(err).Str("url", rawURL).Msg("raw fetch failed, reading rendered page")
	}

	return gitHub.extract(ctx, page)
}

// GitHubRawURL maps a github.com blob URL to raw.githubusercontent.com
func GitHubRawURL(u *url.URL) string {
	raw := *u
	raw.Host = "raw.githubusercontent.com"
	raw.Path = strings.Replace(u.Path, "/blob/", "/", 1)
	raw.RawPath = ""
	raw.RawQuery = ""
	raw.Fragment = ""
	return raw.String()
}

// MarkdownTitle returns the first level-one ATX heading, or "README"
func MarkdownTitle(markdown string) string {
	if m := config.Regexes()["markdownTitle"].FindStringSubmatch(markdown); len(m) > 1 {
		if title := Normalize(m[1]); title != "" {
			return title
		}
	}
	return "README"
}

// firstMatch returns the first element, over selectors in order, whose
// normalized text is non-empty
func firstMatch(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		var found *goquery.Selection
		root.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if Normalize(s.Text()) != "" {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func firstText(root *goquery.Selection, selectors []string) string {
	if s := firstMatch(root, selectors); s != nil {
		return Normalize(s.Text())
	}
	return ""
}

// firstDate prefers a datetime attribute over the element's text
func firstDate(root *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		s := root.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		if dt, ok := s.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		if text := Normalize(s.Text()); text != "" {
			return text
		}
	}
	return ""
}

func collectTags(sel *goquery.Selection) []string {
	var tags []string
	seen := make(map[string]bool)
	sel.Each(func(i int, s *goquery.Selection) {
		tag := Normalize(s.Text())
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	})
	return tags
}

func collectCodeBlocks(body *goquery.Selection) []models.CodeSnippet {
	var snippets []models.CodeSnippet
	body.Find("pre").Each(func(i int, s *goquery.Selection) {
		block := codeBlock(s.Nodes[0])
		if block.IsEmpty() {
			return
		}
		snippets = append(snippets, models.CodeSnippet{Language: block.Language, Code: block.Code})
	})
	return snippets
}
