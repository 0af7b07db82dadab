// Package sheets reads source URLs from a spreadsheet and writes document
// links back to it.
package sheets

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// NoColumn marks an optional column the sheet does not have
	NoColumn = -1
	// HiddenColumn marks a column excluded from document titles on purpose
	HiddenColumn = -2

	hiddenKeyword = "HIDDEN"
)

// Columns holds zero-based column indices
type Columns struct {
	URL     int `json:"url"`
	Doc     int `json:"doc"`
	Name    int `json:"name"`
	Subject int `json:"subject"`
}

var (
	urlAliases     = []string{"必要なURL", "URL", "リンク", "Link"}
	docAliases     = []string{"ドキュメント化", "ドキュメント", "Document", "Docs", "GoogleDocs", "結果"}
	nameAliases    = []string{"名前", "Name", "氏名", "お名前"}
	subjectAliases = []string{"件名", "Subject", "タイトル", "Title", "題名"}
)

// ColumnToIndex converts a column letter ("A", "AA") to a zero-based index
func ColumnToIndex(column string) (int, error) {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return 0, fmt.Errorf("empty column")
	}

	result := 0
	for _, r := range column {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column %q", column)
		}
		result = result*26 + int(r-'A'+1)
	}
	return result - 1, nil
}

// IndexToColumn converts a zero-based index to a column letter
func IndexToColumn(index int) string {
	var column []byte
	for index >= 0 {
		column = append([]byte{byte('A' + index%26)}, column...)
		index = index/26 - 1
	}
	return string(column)
}

// DetectColumns finds columns by their header text. The URL column
// defaults to A and the doc column to the first column after the headers.
func DetectColumns(headers []string) Columns {
	cols := Columns{
		URL:     findColumn(headers, urlAliases),
		Doc:     findColumn(headers, docAliases),
		Name:    findColumn(headers, nameAliases),
		Subject: findColumn(headers, subjectAliases),
	}

	if cols.URL == NoColumn {
		log.Warn().Msg("URL column not found in headers, using column A")
		cols.URL = 0
	}
	if cols.Doc == NoColumn {
		log.Warn().Int("column", len(headers)).Msg("document column not found, using next empty column")
		cols.Doc = len(headers)
	}
	return cols
}

// findColumn returns the column of the first alias present, comparing
// case-insensitively; aliases earlier in the list win
func findColumn(headers []string, aliases []string) int {
	for _, alias := range aliases {
		for i, header := range headers {
			if strings.EqualFold(strings.TrimSpace(header), alias) {
				return i
			}
		}
	}
	return NoColumn
}

// overrideColumn applies a configured column letter. "HIDDEN" yields
// HiddenColumn and an empty value keeps current.
func overrideColumn(current int, letter string) (int, error) {
	letter = strings.TrimSpace(letter)
	switch {
	case letter == "":
		return current, nil
	case strings.EqualFold(letter, hiddenKeyword):
		return HiddenColumn, nil
	default:
		return ColumnToIndex(letter)
	}
}

// cell returns row[col] or "" when the row is short or col is unset
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
