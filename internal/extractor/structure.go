package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	skippedTags = map[string]bool{
		"script": true, "style": true, "noscript": true, "template": true,
		"iframe": true, "svg": true, "button": true, "select": true,
	}

	containerTags = map[string]bool{
		"html": true, "body": true, "div": true, "section": true, "article": true,
		"main": true, "header": true, "footer": true, "aside": true, "nav": true,
		"table": true, "thead": true, "tbody": true, "tfoot": true, "dl": true,
		"dt": true, "dd": true, "details": true, "summary": true, "form": true,
		"fieldset": true, "center": true, "address": true, "li": true,
		"td": true, "th": true, "caption": true,
	}

	blockTags = map[string]bool{
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"p": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
		"figure": true, "img": true, "hr": true, "tr": true,
	}

	languageClass = regexp.MustCompile(`(?:^|\s)(?:language|lang)-([\w+#-]+)`)
)

// StructureBuilder turns a DOM subtree into an ordered ContentBlock sequence.
// Loose text and inline elements between blocks are gathered into a pending
// paragraph that is flushed whenever a block boundary is reached.
type StructureBuilder struct {
	base   *url.URL
	images ImageFilter
	blocks []models.ContentBlock
	buf    strings.Builder
}

// NewStructureBuilder resolves image sources against base, which may be nil
func NewStructureBuilder(base *url.URL) *StructureBuilder {
	return &StructureBuilder{base: base, images: NewImageFilter()}
}

// BuildStructure is a convenience wrapper over StructureBuilder.Build
func BuildStructure(sel *goquery.Selection, base *url.URL) []models.ContentBlock {
	return NewStructureBuilder(base).Build(sel)
}

// Build walks every node in sel depth-first and returns the blocks found.
// Headings deeper than h3 are demoted to level 3; this is lossy on purpose
// since the document target only has three heading styles.
func (b *StructureBuilder) Build(sel *goquery.Selection) []models.ContentBlock {
	b.blocks = nil
	b.buf.Reset()
	if sel == nil {
		return nil
	}

	for _, n := range sel.Nodes {
		b.visit(n)
	}
	b.flush()

	out := b.blocks
	b.blocks = nil
	return out
}

func (b *StructureBuilder) visit(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.buf.WriteString(collapseSpaces(n.Data))
		return
	case html.DocumentNode:
		b.visitChildren(n)
		return
	case html.ElementNode:
	default:
		return
	}

	tag := strings.ToLower(n.Data)
	if skippedTags[tag] {
		return
	}

	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		b.flush()
		b.emit(models.Heading(int(tag[1]-'0'), CleanStructuredText(inlineText(n))))
	case "p":
		b.flush()
		b.emit(models.Paragraph(CleanStructuredText(inlineText(n))))
		b.inlineImages(n)
	case "ul", "ol":
		b.flush()
		b.emit(models.List(tag == "ol", listItems(n)))
	case "blockquote":
		b.flush()
		b.emit(models.Quote(b.quoteText(n)))
	case "pre":
		b.flush()
		b.emit(codeBlock(n))
	case "code":
		if strings.Contains(nodeText(n), "\n") {
			b.flush()
			b.emit(codeBlock(n))
			return
		}
		b.buf.WriteString(inlineText(n))
	case "img":
		b.flush()
		if img, ok := b.image(n); ok {
			b.emit(img)
		}
	case "figure":
		b.flush()
		b.figure(n)
	case "br":
		b.buf.WriteString(SingleNewline)
	case "hr":
		b.flush()
	case "tr":
		b.flush()
		b.emit(models.Paragraph(rowText(n)))
	default:
		if containerTags[tag] || hasBlockDescendant(n) {
			b.flush()
			b.visitChildren(n)
			b.flush()
			return
		}
		b.buf.WriteString(inlineText(n))
	}
}

func (b *StructureBuilder) visitChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.visit(c)
	}
}

// flush turns the pending inline text into a paragraph
func (b *StructureBuilder) flush() {
	text := CleanStructuredText(b.buf.String())
	b.buf.Reset()
	b.emit(models.Paragraph(text))
}

// emit appends a block unless it is empty after normalization
func (b *StructureBuilder) emit(block models.ContentBlock) {
	switch block.Kind {
	case models.BlockList:
		items := block.Items[:0]
		for _, item := range block.Items {
			if Normalize(item) != "" {
				items = append(items, item)
			}
		}
		block.Items = items
	case models.BlockCode, models.BlockImage:
	default:
		if Normalize(block.Text) == "" {
			return
		}
	}

	if block.IsEmpty() {
		return
	}
	b.blocks = append(b.blocks, block)
}

func (b *StructureBuilder) image(n *html.Node) (models.ContentBlock, bool) {
	s := goquery.NewDocumentFromNode(n).Selection
	ref, ok := b.images.Accept(s, b.base)
	if !ok {
		return models.ContentBlock{}, false
	}
	return models.Image(ref.Src, ref.Alt), true
}

// inlineImages emits images nested in a paragraph right after its text
func (b *StructureBuilder) inlineImages(n *html.Node) {
	goquery.NewDocumentFromNode(n).Find("img").Each(func(i int, s *goquery.Selection) {
		if ref, ok := b.images.Accept(s, b.base); ok {
			b.emit(models.Image(ref.Src, ref.Alt))
		}
	})
}

// figure emits the first image and, when present, the caption as a paragraph
func (b *StructureBuilder) figure(n *html.Node) {
	fig := goquery.NewDocumentFromNode(n).Selection
	if img := fig.Find("img").First(); img.Length() > 0 {
		if ref, ok := b.images.Accept(img, b.base); ok {
			b.emit(models.Image(ref.Src, ref.Alt))
		}
	}
	if caption := fig.Find("figcaption").First(); caption.Length() > 0 {
		b.emit(models.Paragraph(CleanStructuredText(inlineText(caption.Nodes[0]))))
	}
}

// quoteText joins the blocks inside a blockquote with newlines
func (b *StructureBuilder) quoteText(n *html.Node) string {
	inner := NewStructureBuilder(b.base)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inner.visit(c)
	}
	inner.flush()

	var lines []string
	for _, block := range inner.blocks {
		switch block.Kind {
		case models.BlockList:
			lines = append(lines, block.Items...)
		case models.BlockCode:
			lines = append(lines, block.Code)
		case models.BlockImage:
		default:
			lines = append(lines, block.Text)
		}
	}
	return CleanStructuredText(strings.Join(lines, SingleNewline))
}

// listItems returns the text of each direct li child. Nested lists are kept
// out of their parent item's text and their items follow it in order.
func listItems(n *html.Node) []string {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || strings.ToLower(c.Data) != "li" {
			continue
		}

		var own strings.Builder
		var nested []string
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			if gc.Type == html.ElementNode && (gc.Data == "ul" || gc.Data == "ol") {
				nested = append(nested, listItems(gc)...)
				continue
			}
			own.WriteString(inlineNode(gc))
		}

		items = append(items, CleanStructuredText(own.String()))
		items = append(items, nested...)
	}
	return items
}

func codeBlock(n *html.Node) models.ContentBlock {
	language := codeLanguage(n)
	code := strings.Trim(controlChars.ReplaceAllString(nodeText(n), ""), SingleNewline)
	return models.Code(language, code)
}

// codeLanguage reads a language-xxx class token from the element or its
// first code child; "text" when absent.
func codeLanguage(n *html.Node) string {
	if lang := languageFromClass(attr(n, "class")); lang != "" {
		return lang
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			if lang := languageFromClass(attr(c, "class")); lang != "" {
				return lang
			}
		}
	}
	return "text"
}

func languageFromClass(class string) string {
	m := languageClass.FindStringSubmatch(class)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

func rowText(n *html.Node) string {
	var cells []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			if text := Normalize(inlineText(c)); text != "" {
				cells = append(cells, text)
			}
		}
	}
	return strings.Join(cells, " | ")
}

// inlineText renders an element's content with **bold** and *italic*
// markers and literal newlines for <br>.
func inlineText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(inlineNode(c))
	}
	return sb.String()
}

func inlineNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return collapseSpaces(n.Data)
	case html.ElementNode:
	default:
		return ""
	}

	tag := strings.ToLower(n.Data)
	if skippedTags[tag] {
		return ""
	}

	switch tag {
	case "br":
		return SingleNewline
	case "img":
		return ""
	case "strong", "b":
		return emphasize(inlineText(n), "**")
	case "em", "i":
		return emphasize(inlineText(n), "*")
	default:
		return inlineText(n)
	}
}

// emphasize wraps the trimmed text in marker, keeping any surrounding
// whitespace outside the markers.
func emphasize(text, marker string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}

	var sb strings.Builder
	if strings.TrimLeft(text, " \n") != text {
		sb.WriteString(SingleSpace)
	}
	sb.WriteString(fmt.Sprintf("%s%s%s", marker, trimmed, marker))
	if strings.TrimRight(text, " \n") != text {
		sb.WriteString(SingleSpace)
	}
	return sb.String()
}

// nodeText is the raw textContent of a node, whitespace preserved
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
			return
		}
		if cur.Type == html.ElementNode && strings.ToLower(cur.Data) == "br" {
			sb.WriteString(SingleNewline)
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// blockText is the text of every node in sel with a line break at each
// block or container boundary, so adjacent blocks never run together
func blockText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			sb.WriteString(cur.Data)
			return
		case html.ElementNode:
			tag := strings.ToLower(cur.Data)
			if skippedTags[tag] {
				return
			}
			if tag == "br" {
				sb.WriteString(SingleNewline)
				return
			}
			if blockTags[tag] || containerTags[tag] {
				sb.WriteString(SingleNewline)
				defer sb.WriteString(SingleNewline)
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return sb.String()
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(c.Data)
		if blockTags[tag] || containerTags[tag] || hasBlockDescendant(c) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpaces applies HTML whitespace rules to a text node: any run of
// whitespace, newlines included, renders as a single space.
func collapseSpaces(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !lastSpace {
				sb.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}
	return sb.String()
}
