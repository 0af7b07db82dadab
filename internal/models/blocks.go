package models

import (
	"fmt"
	"regexp"
	"strings"
)

// BlockKind tags the variant held by a ContentBlock
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockQuote     BlockKind = "quote"
	BlockCode      BlockKind = "code"
	BlockImage     BlockKind = "image"
)

// MaxHeadingLevel caps heading depth; h4-h6 are demoted to it.
const MaxHeadingLevel = 3

// ContentBlock is one typed unit of structured content. Only the fields
// belonging to Kind are meaningful.
type ContentBlock struct {
	Kind     BlockKind `json:"kind"`
	Level    int       `json:"level,omitempty"`
	Text     string    `json:"text,omitempty"`
	Ordered  bool      `json:"ordered,omitempty"`
	Items    []string  `json:"items,omitempty"`
	Language string    `json:"language,omitempty"`
	Code     string    `json:"code,omitempty"`
	Src      string    `json:"src,omitempty"`
	Alt      string    `json:"alt,omitempty"`
}

func Heading(level int, text string) ContentBlock {
	if level < 1 {
		level = 1
	}
	if level > MaxHeadingLevel {
		level = MaxHeadingLevel
	}
	return ContentBlock{Kind: BlockHeading, Level: level, Text: text}
}

func Paragraph(text string) ContentBlock {
	return ContentBlock{Kind: BlockParagraph, Text: text}
}

func List(ordered bool, items []string) ContentBlock {
	return ContentBlock{Kind: BlockList, Ordered: ordered, Items: items}
}

func Quote(text string) ContentBlock {
	return ContentBlock{Kind: BlockQuote, Text: text}
}

func Code(language, code string) ContentBlock {
	if language == "" {
		language = "text"
	}
	return ContentBlock{Kind: BlockCode, Language: language, Code: code}
}

func Image(src, alt string) ContentBlock {
	return ContentBlock{Kind: BlockImage, Src: src, Alt: alt}
}

// IsEmpty reports whether the block has nothing worth emitting
func (b ContentBlock) IsEmpty() bool {
	switch b.Kind {
	case BlockList:
		for _, item := range b.Items {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case BlockCode:
		return strings.TrimSpace(b.Code) == ""
	case BlockImage:
		return b.Src == ""
	default:
		return strings.TrimSpace(b.Text) == ""
	}
}

var manyNewlines = regexp.MustCompile(`\n{3,}`)

// Flatten renders blocks as plain text in order, one blank line between
// blocks. Headings keep a markdown "#" prefix, list items a "- " or "N. "
// prefix and quote lines a "> " prefix.
func Flatten(blocks []ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.IsEmpty() {
			continue
		}
		parts = append(parts, b.flat())
	}
	joined := manyNewlines.ReplaceAllString(strings.Join(parts, "\n\n"), "\n\n")
	return strings.TrimSpace(joined)
}

func (b ContentBlock) flat() string {
	switch b.Kind {
	case BlockHeading:
		return strings.Repeat("#", b.Level) + " " + b.Text
	case BlockList:
		lines := make([]string, 0, len(b.Items))
		n := 0
		for _, item := range b.Items {
			if strings.TrimSpace(item) == "" {
				continue
			}
			n++
			if b.Ordered {
				lines = append(lines, fmt.Sprintf("%d. %s", n, item))
			} else {
				lines = append(lines, "- "+item)
			}
		}
		return strings.Join(lines, "\n")
	case BlockQuote:
		lines := strings.Split(b.Text, "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n")
	case BlockCode:
		return "```" + b.Language + "\n" + b.Code + "\n```"
	case BlockImage:
		return fmt.Sprintf("![%s](%s)", b.Alt, b.Src)
	default:
		return b.Text
	}
}
