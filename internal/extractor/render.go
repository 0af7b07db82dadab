package extractor

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"sheet2docs/internal/models"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// OutputFormat selects how Render prints an ExtractedContent
type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatMarkdown OutputFormat = "markdown"
	FormatHTML     OutputFormat = "html"
	FormatJSON     OutputFormat = "json"
)

// RenderOptions defines configurable options for rendering
type RenderOptions struct {
	Format          OutputFormat `json:"outputFormat"`
	IncludeMetadata bool         `json:"includeMetadata"`
}

// DefaultRenderOptions returns plain text with a metadata header
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Format:          FormatText,
		IncludeMetadata: true,
	}
}

// MarkdownRenderOptions returns options for markdown output
func MarkdownRenderOptions() RenderOptions {
	opts := DefaultRenderOptions()
	opts.Format = FormatMarkdown
	return opts
}

// HTMLRenderOptions returns options for HTML output
func HTMLRenderOptions() RenderOptions {
	opts := DefaultRenderOptions()
	opts.Format = FormatHTML
	return opts
}

// ParseFormat validates a format name from the command line
func ParseFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatMarkdown, FormatHTML, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q", name)
	}
}

// Flatten is models.Flatten, exposed next to the other renderers
func Flatten(blocks []models.ContentBlock) string {
	return models.Flatten(blocks)
}

// Render prints content in the requested format
func Render(content *models.ExtractedContent, opts RenderOptions) (string, error) {
	if content == nil {
		return "", fmt.Errorf("nothing to render")
	}

	switch opts.Format {
	case FormatJSON:
		out, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		return string(out), nil
	case FormatMarkdown:
		return renderMarkdown(content, opts), nil
	case FormatHTML:
		return renderHTML(content, opts), nil
	case FormatText, "":
		return renderText(content, opts), nil
	default:
		return "", fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func renderText(c *models.ExtractedContent, opts RenderOptions) string {
	var sb strings.Builder
	if opts.IncludeMetadata {
		fmt.Fprintf(&sb, "Title: %s\nAuthor: %s\nDate: %s\nURL: %s\n\n", c.Title, c.Author, c.Date, c.URL)
	}
	sb.WriteString(structuredBody(c))
	return strings.TrimSpace(sb.String())
}

func renderMarkdown(c *models.ExtractedContent, opts RenderOptions) string {
	body := ""
	if c.HTML != "" {
		converter := md.NewConverter("", true, nil)
		if converted, err := converter.ConvertString(c.HTML); err == nil {
			body = strings.TrimSpace(converted)
		}
	}
	if body == "" {
		body = structuredBody(c)
	}

	var sb strings.Builder
	if opts.IncludeMetadata {
		fmt.Fprintf(&sb, "# %s\n\n", c.Title)
		fmt.Fprintf(&sb, "- Author: %s\n- Date: %s\n- Source: <%s>\n\n", c.Author, c.Date, c.URL)
	}
	sb.WriteString(body)
	return strings.TrimSpace(sb.String())
}

func renderHTML(c *models.ExtractedContent, opts RenderOptions) string {
	body := c.HTML
	if body == "" {
		var sb strings.Builder
		for _, para := range strings.Split(c.Text(), DoubleNewline) {
			if para = strings.TrimSpace(para); para != "" {
				fmt.Fprintf(&sb, "<p>%s</p>\n", html.EscapeString(para))
			}
		}
		body = sb.String()
	}

	if !opts.IncludeMetadata {
		return strings.TrimSpace(body)
	}
	return fmt.Sprintf("<h1>%s</h1>\n<p>%s | %s | <a href=\"%s\">%s</a></p>\n%s",
		html.EscapeString(c.Title), html.EscapeString(c.Author), html.EscapeString(c.Date),
		html.EscapeString(c.URL), html.EscapeString(c.URL), strings.TrimSpace(body))
}

// structuredBody prefers the block structure and falls back to content
func structuredBody(c *models.ExtractedContent) string {
	if flat := models.Flatten(c.Structure); flat != "" {
		return flat
	}
	return c.Content
}
