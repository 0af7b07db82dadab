package extractor

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\n\r ", ""},
		{"collapses runs", "  hello \n\n  world\t!  ", "hello world !"},
		{"strips control characters", "a\x00b\x07c\x1Fd\x7Fe", "abcde"},
		{"control between words", "one\x0B\x0Ctwo", "onetwo"},
		{"keeps tab and newline as space", "a\tb\nc", "a b c"},
		{"ideographic space", "日本語　テキスト", "日本語 テキスト"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotentAndClean(t *testing.T) {
	forbidden := regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	inputs := []string{
		"",
		"plain",
		"\x00\x01\x02 lead",
		"trail \x7f\x7f",
		" a \x0E b \x1F c ",
		"mixed\r\n\tline\x0Bbreaks\x0C",
		strings.Repeat("x\x05 ", 50),
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.False(t, forbidden.MatchString(once), "input %q left control characters", in)
	}
}

func TestCleanStructuredText(t *testing.T) {
	assert.Equal(t, "a b\n\nc", CleanStructuredText("\n  a   b \n\n\n\n c\n"))
	assert.Equal(t, "line one\nline two", CleanStructuredText("line one\nline\t two"))
	assert.Equal(t, "", CleanStructuredText(""))
}

func TestNormalizeKeepsLiteralMarkup(t *testing.T) {
	assert.Equal(t, "Using the <template> element", Normalize(" Using the <template>\n element "))
	assert.Equal(t, "Tom & Jerry", Normalize("Tom & Jerry"))
}

func TestBlockTextSeparatesBlocks(t *testing.T) {
	doc := mustDoc(t, `<article><h1>Heading</h1><p>First <b>bold</b> para</p><ul><li>one</li><li>two</li></ul><script>skip()</script></article>`)

	assert.Equal(t, "Heading First bold para one two", Normalize(blockText(doc.Find("article"))))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
