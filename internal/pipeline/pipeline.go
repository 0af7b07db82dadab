// Package pipeline turns the URL rows of a spreadsheet into documents, one
// row at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/docs"
	"sheet2docs/internal/models"
	"sheet2docs/internal/sheets"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCreateAttempts = 3
	DefaultRetryDelay     = time.Second
)

// Scraper fetches and extracts one page
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*models.ExtractedContent, error)
}

// Documents creates and deletes documents
type Documents interface {
	CreateDocument(ctx context.Context, content *models.ExtractedContent, title string) (string, error)
	Delete(ctx context.Context, docURL string) error
}

// Sheet is the spreadsheet the rows come from
type Sheet interface {
	ResolveColumns(ctx context.Context) (sheets.Columns, error)
	URLs(ctx context.Context, col int) ([]string, error)
	Row(ctx context.Context, row int) ([]string, error)
	WriteCell(ctx context.Context, row, col int, value string) error
	ClearCell(ctx context.Context, row, col int) error
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// RowResult is the outcome of one row
type RowResult struct {
	Row    int    `json:"row"`
	URL    string `json:"url"`
	DocURL string `json:"docUrl,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Summary collects the row results of a run
type Summary struct {
	Results   []RowResult `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Stopped   bool        `json:"stopped"`
}

func (s *Summary) add(r RowResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusSuccess:
		s.Succeeded++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
}

// Processor runs the sheet-to-documents batch
type Processor struct {
	scraper   Scraper
	documents Documents
	sheet     Sheet

	startRow      int
	overwrite     bool
	numberedNames bool

	attempts   int
	retryDelay time.Duration
}

func New(cfg config.Config, scraper Scraper, documents Documents, sheet Sheet) *Processor {
	return &Processor{
		scraper:       scraper,
		documents:     documents,
		sheet:         sheet,
		startRow:      cfg.Sheets.StartRow,
		overwrite:     cfg.Sheets.Overwrite,
		numberedNames: cfg.Docs.NumberedNames,
		attempts:      DefaultCreateAttempts,
		retryDelay:    DefaultRetryDelay,
	}
}

// Run processes every row from the start row. A failing row is recorded
// and the batch continues. ctx is checked between rows only: once it is
// done the current row finishes and the summary is returned with Stopped
// set. The error is non-nil only when the sheet layout cannot be read.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	cols, err := p.sheet.ResolveColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}
	log.Info().
		Str("url", sheets.IndexToColumn(cols.URL)).
		Str("doc", sheets.IndexToColumn(cols.Doc)).
		Int("name", cols.Name).
		Int("subject", cols.Subject).
		Msg("column layout")

	urls, err := p.sheet.URLs(ctx, cols.URL)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Results: []RowResult{}}
	for i, raw := range urls {
		if ctx.Err() != nil {
			log.Info().Int("row", p.startRow+i).Msg("processing stopped")
			summary.Stopped = true
			break
		}

		rawURL := strings.TrimSpace(raw)
		if rawURL == "" {
			continue
		}

		result := p.processRow(context.WithoutCancel(ctx), p.startRow+i, rawURL, cols)
		summary.add(result)
	}

	log.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Bool("stopped", summary.Stopped).
		Msg("processing complete")
	return summary, nil
}

func (p *Processor) processRow(ctx context.Context, rowNum int, rawURL string, cols sheets.Columns) RowResult {
	result := RowResult{Row: rowNum, URL: rawURL}
	logger := log.With().Int("row", rowNum).Str("url", rawURL).Logger()

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		logger.Warn().Msg("invalid URL format")
		return failed(result, fmt.Errorf("invalid URL format: %s", rawURL))
	}

	cells, err := p.sheet.Row(ctx, rowNum)
	if err != nil {
		logger.Warn().Err(err).Msg("row data unavailable, continuing without name and subject")
	}
	row := sheetRow(rowNum, rawURL, cells, cols)

	if row.ExistingDocURL != "" && !p.overwrite {
		logger.Info().Str("doc", row.ExistingDocURL).Msg("document already exists, skipping")
		result.DocURL = row.ExistingDocURL
		result.Status = StatusSkipped
		return result
	}

	content, err := p.scraper.Scrape(ctx, rawURL)
	if err != nil {
		logger.Error().Err(err).Msg("extraction failed")
		return failed(result, err)
	}

	title := p.documentTitle(row)
	docURL, err := p.createWithRetry(ctx, content, title)
	if err != nil {
		logger.Error().Err(err).Str("title", title).Msg("document creation failed")
		return failed(result, err)
	}
	result.DocURL = docURL

	if err := p.sheet.WriteCell(ctx, rowNum, cols.Doc, docURL); err != nil {
		logger.Error().Err(err).Msg("writing document URL failed")
		return failed(result, err)
	}

	logger.Info().Str("doc", docURL).Msg("row completed")
	result.Status = StatusSuccess
	return result
}

func failed(r RowResult, err error) RowResult {
	r.Status = StatusFailed
	r.Error = err.Error()
	return r
}

func sheetRow(rowNum int, rawURL string, cells []string, cols sheets.Columns) models.SheetRow {
	return models.SheetRow{
		Row:            rowNum,
		URL:            rawURL,
		ExistingDocURL: cellAt(cells, cols.Doc),
		Name:           cellAt(cells, cols.Name),
		Subject:        cellAt(cells, cols.Subject),
	}
}

func cellAt(cells []string, col int) string {
	if col < 0 || col >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col])
}

func (p *Processor) documentTitle(row models.SheetRow) string {
	serial := row.Row - p.startRow + 1
	if p.numberedNames {
		return docs.DocumentName(serial, row.Name, row.Subject)
	}
	return DocumentTitle(serial, row.Name, row.Subject)
}

// DocumentTitle joins serial, name and subject with "-", leaving out the
// empty ones
func DocumentTitle(serial int, name, subject string) string {
	parts := []string{strconv.Itoa(serial)}
	for _, part := range []string{name, subject} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "-")
}

func (p *Processor) createWithRetry(ctx context.Context, content *models.ExtractedContent, title string) (string, error) {
	var errs []error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		docURL, err := p.documents.CreateDocument(ctx, content, title)
		if err == nil {
			return docURL, nil
		}
		errs = append(errs, err)
		log.Warn().Err(err).Int("attempt", attempt).Str("title", title).Msg("document creation attempt failed")

		if attempt < p.attempts {
			time.Sleep(p.retryDelay)
		}
	}
	return "", fmt.Errorf("create document after %d attempts: %w", p.attempts, errors.Join(errs...))
}

// Clean deletes every document linked from the doc column and clears the
// cells of the ones that were deleted
func (p *Processor) Clean(ctx context.Context) (*Summary, error) {
	cols, err := p.sheet.ResolveColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}
	docURLs, err := p.sheet.URLs(ctx, cols.Doc)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Results: []RowResult{}}
	for i, raw := range docURLs {
		if ctx.Err() != nil {
			summary.Stopped = true
			break
		}
		docURL := strings.TrimSpace(raw)
		if docURL == "" {
			continue
		}

		rowNum := p.startRow + i
		result := RowResult{Row: rowNum, DocURL: docURL}
		rowCtx := context.WithoutCancel(ctx)
		if err := p.documents.Delete(rowCtx, docURL); err != nil {
			log.Warn().Err(err).Int("row", rowNum).Str("doc", docURL).Msg("delete failed")
			summary.add(failed(result, err))
			continue
		}
		if err := p.sheet.ClearCell(rowCtx, rowNum, cols.Doc); err != nil {
			summary.add(failed(result, err))
			continue
		}
		result.Status = StatusSuccess
		summary.add(result)
	}
	return summary, nil
}
