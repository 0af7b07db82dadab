package extractor

import (
	"fmt"
	"strings"

	"sheet2docs/internal/config"
	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

var ugcPolicy = bluemonday.UGCPolicy()

// GenericExtractor extracts any page with the landmark/scoring locator and
// ordered candidate chains for the metadata fields.
type GenericExtractor struct {
	locator          Locator
	images           ImageFilter
	readabilityHints bool
}

func NewGenericExtractor(cfg config.ExtractConfig) *GenericExtractor {
	return &GenericExtractor{
		locator:          NewLocator(cfg.LocatorMinText),
		images:           NewImageFilter(),
		readabilityHints: cfg.UseReadabilityHints,
	}
}

// Extract works on a copy of page.Doc; the caller's document is never modified
func (g *GenericExtractor) Extract(page Page) (*RawContent, error) {
	if page.Doc == nil || len(page.Doc.Nodes) == 0 {
		return nil, fmt.Errorf("no document")
	}

	work := cloneDocument(page.Doc)
	RemoveBoilerplate(work.Selection)

	main, ok := g.locator.Locate(work.Selection)
	if !ok {
		log.Debug().Str("url", page.URL).Msg("no main content candidate, using body")
		main = work.Find("body").First()
		if main.Length() == 0 {
			main = work.Selection
		}
	}

	raw := &RawContent{
		Title:       g.title(work),
		Description: g.description(work),
		Content:     Normalize(blockText(main)),
		Author:      g.author(work),
		Date:        g.date(work),
		HTML:        sanitizedHTML(main),
		Type:        models.TypeArticle,
		Structure:   BuildStructure(main, page.Base),
		Images:      g.collectImages(work, page),
	}

	if g.readabilityHints && (raw.Author == "" || raw.Description == "") {
		g.applyReadability(page, raw)
	}

	return raw, nil
}

// RemoveBoilerplate drops navigation, ads and other non-content elements
func RemoveBoilerplate(root *goquery.Selection) {
	root.Find(strings.Join(BoilerplateSelectors, ", ")).Remove()
}

func (g *GenericExtractor) title(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "article h1", ".title", "[class*='title']"} {
		if text := Normalize(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	if og := FindMetaTag(doc, OGTitle, ""); og != "" {
		return Normalize(og)
	}
	return Normalize(doc.Find("title").First().Text())
}

func (g *GenericExtractor) description(doc *goquery.Document) string {
	for _, pair := range [][2]string{{OGDescription, ""}, {"", TwitterDesc}, {"", MetaDesc}} {
		if value := FindMetaTag(doc, pair[0], pair[1]); value != "" {
			return Normalize(value)
		}
	}
	return ExtractDescriptionFromParagraph(doc)
}

func (g *GenericExtractor) author(doc *goquery.Document) string {
	for _, selector := range []string{"[class*='author']", "[class*='writer']", "[class*='byline']"} {
		if text := Normalize(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	if value := FindMetaTag(doc, "", MetaAuthor); value != "" {
		return Normalize(value)
	}
	return Normalize(FindMetaTag(doc, ArticleAuthor, ""))
}

// date returns the first raw candidate; parsing happens during validation
func (g *GenericExtractor) date(doc *goquery.Document) string {
	timeEl := doc.Find("time").First()
	if dt, ok := timeEl.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return strings.TrimSpace(dt)
	}

	candidates := []string{
		timeEl.Text(),
		doc.Find("[class*='date']").First().Text(),
		doc.Find("[class*='publish']").First().Text(),
		FindMetaTag(doc, PublishedTime, ""),
	}
	for _, candidate := range candidates {
		if text := Normalize(candidate); text != "" {
			return text
		}
	}
	return ""
}

func (g *GenericExtractor) collectImages(doc *goquery.Document, page Page) []models.ImageRef {
	scoped := doc.Find("article img, main img, .content img")
	if scoped.Length() == 0 {
		scoped = doc.Find("img")
	}
	return g.images.Collect(scoped, page.Base)
}

// applyReadability fills author and description from readability's byline
// and excerpt when the selector chains found nothing
func (g *GenericExtractor) applyReadability(page Page, raw *RawContent) {
	source, err := page.Doc.Html()
	if err != nil || strings.TrimSpace(source) == "" {
		return
	}

	article, err := readability.FromReader(strings.NewReader(source), page.Base)
	if err != nil {
		log.Debug().Err(err).Str("url", page.URL).Msg("readability hints unavailable")
		return
	}

	if raw.Author == "" {
		raw.Author = Normalize(article.Byline)
	}
	if raw.Description == "" {
		raw.Description = Normalize(article.Excerpt)
	}
}

// FindMetaTag returns the content of the first meta tag whose property or
// name attribute matches
func FindMetaTag(doc *goquery.Document, property, name string) string {
	var value string

	doc.Find("meta").EachWithBreak(func(i int, s *goquery.Selection) bool {
		content, exists := s.Attr("content")
		if !exists || strings.TrimSpace(content) == "" {
			return true
		}
		if prop, ok := s.Attr("property"); ok && property != "" && prop == property {
			value = strings.TrimSpace(content)
			return false
		}
		if n, ok := s.Attr("name"); ok && name != "" && n == name {
			value = strings.TrimSpace(content)
			return false
		}
		return true
	})

	return value
}

// ExtractDescriptionFromParagraph returns the first paragraph when its
// length fits a description
func ExtractDescriptionFromParagraph(doc *goquery.Document) string {
	text := Normalize(doc.Find("p").First().Text())
	if n := textLength(text); n > MinDescriptionLen && n < MaxDescriptionLen {
		return text
	}
	return ""
}

// sanitizedHTML is the element's outer HTML passed through the UGC policy
func sanitizedHTML(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	raw, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ugcPolicy.Sanitize(raw))
}

func cloneDocument(doc *goquery.Document) *goquery.Document {
	return goquery.NewDocumentFromNode(doc.Selection.Clone().Nodes[0])
}
