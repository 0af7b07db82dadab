// Package docs turns extracted content into document batchUpdate requests
// and creates, shares and deletes documents through the Docs and Drive
// services.
package docs

import (
	docsapi "google.golang.org/api/docs/v1"
)

// pt is a point dimension. Magnitude is always sent so that a zero indent
// clears the paragraph's inherited value.
func pt(v float64) *docsapi.Dimension {
	return &docsapi.Dimension{Magnitude: v, Unit: "PT", ForceSendFields: []string{"Magnitude"}}
}

func grey(level float64) *docsapi.OptionalColor {
	return &docsapi.OptionalColor{Color: &docsapi.Color{RgbColor: &docsapi.RgbColor{
		Red: level, Green: level, Blue: level,
	}}}
}

func insertText(text string, index int64) *docsapi.Request {
	return &docsapi.Request{InsertText: &docsapi.InsertTextRequest{
		Text:     text,
		Location: &docsapi.Location{Index: index},
	}}
}
