package extractor

import (
	"strings"

	"sheet2docs/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseMarkdown splits a markdown document into content blocks: headings
// (ATX and setext), fenced and indented code, lists, block quotes,
// standalone images and paragraphs. Nested list items are flattened into
// their parent list; HTML blocks and thematic breaks are dropped.
func ParseMarkdown(markdown string) []models.ContentBlock {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var blocks []models.ContentBlock
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		block, ok := markdownBlock(n, src)
		if ok && !block.IsEmpty() {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func markdownBlock(n ast.Node, src []byte) (models.ContentBlock, bool) {
	switch v := n.(type) {
	case *ast.Heading:
		return models.Heading(v.Level, Normalize(markdownInline(v, src))), true
	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := n.FirstChild().(*ast.Image); ok && n.ChildCount() == 1 {
			return models.Image(string(img.Destination), Normalize(markdownInline(img, src))), true
		}
		return models.Paragraph(CleanStructuredText(markdownInline(n, src))), true
	case *ast.List:
		return models.List(v.IsOrdered(), listItemTexts(v, src)), true
	case *ast.Blockquote:
		var parts []string
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, markdownInline(c, src))
		}
		return models.Quote(CleanStructuredText(strings.Join(parts, DoubleNewline))), true
	case *ast.FencedCodeBlock:
		return models.Code(strings.ToLower(string(v.Language(src))), codeLines(v, src)), true
	case *ast.CodeBlock:
		return models.Code("", codeLines(v, src)), true
	}
	return models.ContentBlock{}, false
}

// listItemTexts returns one entry per item, nested lists following their
// parent item in document order
func listItemTexts(list *ast.List, src []byte) []string {
	var items []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, listItemTexts(sub, src)...)
				continue
			}
			parts = append(parts, markdownInline(c, src))
		}
		if joined := Normalize(strings.Join(parts, SingleSpace)); joined != "" {
			items = append(items, joined)
		}
		items = append(items, nested...)
	}
	return items
}

// markdownInline renders the inline children of n as text. Soft and hard
// line breaks become newlines and emphasis keeps its markers.
func markdownInline(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString(SingleNewline)
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.CodeSpan:
			sb.WriteString("`" + markdownInline(v, src) + "`")
		case *ast.Emphasis:
			marker := "*"
			if v.Level >= 2 {
				marker = "**"
			}
			sb.WriteString(emphasize(markdownInline(v, src), marker))
		case *ast.AutoLink:
			sb.Write(v.URL(src))
		case *ast.RawHTML:
		default:
			sb.WriteString(markdownInline(c, src))
		}
	}
	return sb.String()
}

func codeLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), SingleNewline)
}
