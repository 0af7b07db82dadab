package extractor

import (
	"encoding/json"
	"testing"

	"sheet2docs/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContent() *models.ExtractedContent {
	return &models.ExtractedContent{
		Title:   "Sample",
		Content: "Intro Hello world",
		Structure: []models.ContentBlock{
			models.Heading(1, "Intro"),
			models.Paragraph("Hello world"),
		},
		HTML:   `<article><h1>Intro</h1><p>Hello <strong>world</strong></p></article>`,
		Author: "Jane",
		Date:   "2024-05-01T12:00:00Z",
		URL:    "https://example.com/a",
		Images: []models.ImageRef{},
		Type:   models.TypeArticle,
	}
}

func TestRenderText(t *testing.T) {
	out, err := Render(sampleContent(), DefaultRenderOptions())
	require.NoError(t, err)
	assert.Equal(t, "Title: Sample\nAuthor: Jane\nDate: 2024-05-01T12:00:00Z\nURL: https://example.com/a\n\n# Intro\n\nHello world", out)

	out, err = Render(sampleContent(), RenderOptions{Format: FormatText})
	require.NoError(t, err)
	assert.Equal(t, "# Intro\n\nHello world", out)
}

func TestRenderMarkdownUsesHTML(t *testing.T) {
	out, err := Render(sampleContent(), MarkdownRenderOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "# Sample")
	assert.Contains(t, out, "Hello **world**")
}

func TestRenderMarkdownWithoutHTML(t *testing.T) {
	c := sampleContent()
	c.HTML = ""
	out, err := Render(c, RenderOptions{Format: FormatMarkdown})
	require.NoError(t, err)
	assert.Equal(t, "# Intro\n\nHello world", out)
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	c := sampleContent()
	c.HTML = ""
	c.Structure = nil
	c.Content = "a < b"
	out, err := Render(c, RenderOptions{Format: FormatHTML})
	require.NoError(t, err)
	assert.Equal(t, "<p>a &lt; b</p>", out)
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(sampleContent(), RenderOptions{Format: FormatJSON})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Sample", decoded["title"])
	assert.Contains(t, decoded, "extractedAt")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MD")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestExtractedContentText(t *testing.T) {
	c := sampleContent()
	assert.Equal(t, "Intro Hello world", c.Text())
	c.Content = ""
	assert.Equal(t, "# Intro\n\nHello world", c.Text())
}
