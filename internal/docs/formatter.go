package docs

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	"sheet2docs/internal/models"

	docsapi "google.golang.org/api/docs/v1"
)

const (
	ruleWidth        = 50
	ruleRune         = "─"
	bulletsOrdered   = "NUMBERED_DECIMAL_ALPHA_ROMAN"
	bulletsUnordered = "BULLET_DISC_CIRCLE_SQUARE"
	codeFont         = "Courier New"
	imageWidthPt     = 400
	imageHeightPt    = 300
)

var (
	headingSpacing = map[int][2]float64{
		1: {18, 6},
		2: {14, 4},
		3: {12, 4},
	}
	blankLines = regexp.MustCompile(`\n\s*\n`)
)

// Options controls what BuildRequests emits around the body
type Options struct {
	IncludeHeader bool
	Now           time.Time
}

// builder appends text at a running insertion point. Offsets are UTF-16
// code units and the body starts at index 1.
type builder struct {
	index    int64
	requests []*docsapi.Request
}

func utf16Len(s string) int64 {
	return int64(len(utf16.Encode([]rune(s))))
}

// insert adds text plus a paragraph break and returns the range of text
func (b *builder) insert(text string) docsapi.Range {
	start := b.index
	b.requests = append(b.requests, insertText(text+"\n", start))
	n := utf16Len(text)
	b.index += n + 1
	return docsapi.Range{StartIndex: start, EndIndex: start + n}
}

func (b *builder) textStyle(r docsapi.Range, style *docsapi.TextStyle, fields string) {
	if r.EndIndex <= r.StartIndex {
		return
	}
	b.requests = append(b.requests, &docsapi.Request{UpdateTextStyle: &docsapi.UpdateTextStyleRequest{
		Range: &r, TextStyle: style, Fields: fields,
	}})
}

func (b *builder) paragraphStyle(r docsapi.Range, style *docsapi.ParagraphStyle, fields string) {
	if r.EndIndex <= r.StartIndex {
		return
	}
	b.requests = append(b.requests, &docsapi.Request{UpdateParagraphStyle: &docsapi.UpdateParagraphStyleRequest{
		Range: &r, ParagraphStyle: style, Fields: fields,
	}})
}

// BuildRequests lays out content as a document: optional metadata header,
// a rule, the title as HEADING_1, one request group per block and a footer
// naming the source URL.
func BuildRequests(content *models.ExtractedContent, opts Options) []*docsapi.Request {
	if content == nil {
		return nil
	}
	b := &builder{index: 1}

	if opts.IncludeHeader {
		b.header(content, opts.Now)
	}
	b.insert(strings.Repeat(ruleRune, ruleWidth))

	if content.Title != "" {
		b.heading(1, content.Title)
	}

	blocks := content.Structure
	if len(blocks) == 0 {
		blocks = paragraphsOf(content.Content)
	}
	for _, block := range blocks {
		if block.IsEmpty() {
			continue
		}
		b.block(block)
	}

	b.footer(content.URL)
	return b.requests
}

func paragraphsOf(text string) []models.ContentBlock {
	var blocks []models.ContentBlock
	for _, p := range blankLines.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			blocks = append(blocks, models.Paragraph(p))
		}
	}
	return blocks
}

func (b *builder) header(content *models.ExtractedContent, now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	lines := []string{
		"Extracted: " + now.Format("2006-01-02 15:04:05 MST"),
		"Source URL: " + content.URL,
	}
	if content.Author != "" && content.Author != models.UnknownAuthor {
		lines = append(lines, "Author: "+content.Author)
	}
	if content.Date != "" {
		lines = append(lines, "Published: "+content.Date)
	}

	r := b.insert(strings.Join(lines, "\n"))
	b.textStyle(r, &docsapi.TextStyle{FontSize: pt(10), ForegroundColor: grey(0.5)}, "fontSize,foregroundColor")
}

func (b *builder) footer(sourceURL string) {
	b.insert("")
	b.insert(strings.Repeat(ruleRune, ruleWidth))
	r := b.insert("Source URL: " + sourceURL)
	b.textStyle(r, &docsapi.TextStyle{FontSize: pt(9), ForegroundColor: grey(0.5)}, "fontSize,foregroundColor")
}

func (b *builder) heading(level int, text string) {
	spacing, ok := headingSpacing[level]
	if !ok {
		level = models.MaxHeadingLevel
		spacing = headingSpacing[level]
	}
	r := b.insert(text)
	b.paragraphStyle(r, &docsapi.ParagraphStyle{
		NamedStyleType: fmt.Sprintf("HEADING_%d", level),
		SpaceAbove:     pt(spacing[0]),
		SpaceBelow:     pt(spacing[1]),
	}, "namedStyleType,spaceAbove,spaceBelow")
}

func (b *builder) block(block models.ContentBlock) {
	switch block.Kind {
	case models.BlockHeading:
		b.heading(block.Level, block.Text)
	case models.BlockList:
		b.list(block)
	case models.BlockQuote:
		r := b.insert(block.Text)
		b.paragraphStyle(r, &docsapi.ParagraphStyle{
			IndentFirstLine: pt(0),
			IndentStart:     pt(36),
			BorderLeft: &docsapi.ParagraphBorder{
				Color:     grey(0.8),
				Width:     pt(3),
				Padding:   pt(12),
				DashStyle: "SOLID",
			},
		}, "indentFirstLine,indentStart,borderLeft")
	case models.BlockCode:
		r := b.insert(block.Code)
		b.textStyle(r, &docsapi.TextStyle{
			WeightedFontFamily: &docsapi.WeightedFontFamily{FontFamily: codeFont},
			FontSize:           pt(10),
			BackgroundColor:    grey(0.95),
		}, "weightedFontFamily,fontSize,backgroundColor")
		b.paragraphStyle(r, &docsapi.ParagraphStyle{IndentFirstLine: pt(0), IndentStart: pt(36)}, "indentFirstLine,indentStart")
	case models.BlockImage:
		b.image(block)
	default:
		b.insert(block.Text)
	}
}

func (b *builder) list(block models.ContentBlock) {
	start := b.index
	for _, item := range block.Items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		b.insert(item)
	}
	if b.index == start {
		return
	}

	preset := bulletsUnordered
	if block.Ordered {
		preset = bulletsOrdered
	}
	b.requests = append(b.requests, &docsapi.Request{CreateParagraphBullets: &docsapi.CreateParagraphBulletsRequest{
		Range:        &docsapi.Range{StartIndex: start, EndIndex: b.index - 1},
		BulletPreset: preset,
	}})
}

// image places the picture in its own paragraph, captioned with its alt text
func (b *builder) image(block models.ContentBlock) {
	b.requests = append(b.requests, &docsapi.Request{InsertInlineImage: &docsapi.InsertInlineImageRequest{
		Uri:      block.Src,
		Location: &docsapi.Location{Index: b.index},
		ObjectSize: &docsapi.Size{
			Height: pt(imageHeightPt),
			Width:  pt(imageWidthPt),
		},
	}})
	b.index++
	b.insert("")

	if block.Alt != "" {
		r := b.insert("Figure: " + block.Alt)
		b.textStyle(r, &docsapi.TextStyle{Italic: true}, "italic")
	}
}
