package models

import (
	"strings"
	"time"
)

// Sentinel defaults substituted when a field cannot be extracted
const (
	UntitledTitle = "Untitled"
	UnknownAuthor = "Unknown"
)

// Content types
const (
	TypeArticle  = "article"
	TypeMarkdown = "markdown"
)

// ImageRef is an image found in the page, in document order
type ImageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// CodeSnippet is a code block collected by platform extractors
type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExtractedContent is the normalized result of extracting one page
type ExtractedContent struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content"`
	Structure   []ContentBlock `json:"structure,omitempty"`
	HTML        string         `json:"html,omitempty"`
	Author      string         `json:"author"`
	Date        string         `json:"date"`
	URL         string         `json:"url"`
	Images      []ImageRef     `json:"images"`
	Tags        []string       `json:"tags,omitempty"`
	CodeBlocks  []CodeSnippet  `json:"codeBlocks,omitempty"`
	Type        string         `json:"type"`
	Suspect     bool           `json:"suspect,omitempty"`
	ExtractedAt string         `json:"extractedAt"`
}

// HasContent reports whether the record carries usable body text
func (c *ExtractedContent) HasContent() bool {
	return c != nil && strings.TrimSpace(c.Content) != ""
}

// Text is the flat body: Content, or the flattened structure when Content is empty
func (c *ExtractedContent) Text() string {
	if c == nil {
		return ""
	}
	if c.Content != "" {
		return c.Content
	}
	return Flatten(c.Structure)
}

// Message is sent to a tab's content script
type Message struct {
	Action string `json:"action"`
}

// ActionExtractContent asks a content script to extract its page
const ActionExtractContent = "extractContent"

// MessageResponse is the content script's reply
type MessageResponse struct {
	Success bool              `json:"success"`
	Content *ExtractedContent `json:"content,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// SheetRow is one spreadsheet row to be turned into a document
type SheetRow struct {
	Row            int    `json:"row"`
	URL            string `json:"url"`
	ExistingDocURL string `json:"existingDocUrl,omitempty"`
	Name           string `json:"name,omitempty"`
	Subject        string `json:"subject,omitempty"`
}

// ErrorResponse represents error responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// BlockedResponse represents when scraping is blocked
type BlockedResponse struct {
	Error    string   `json:"error"`
	Provider string   `json:"provider"`
	Domain   string   `json:"domain"`
	Metadata Metadata `json:"metadata"`
}

// Metadata contains request metadata
type Metadata struct {
	URL        string    `json:"url"`
	ScrapedAt  time.Time `json:"scrapedAt"`
	DurationMs int64     `json:"durationMs"`
}

// ExtractResponse is the JSON body returned by the HTTP endpoints
type ExtractResponse struct {
	*ExtractedContent
	Metadata Metadata `json:"metadata"`
}
