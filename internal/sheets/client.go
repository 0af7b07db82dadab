package sheets

import (
	"context"
	"fmt"

	"sheet2docs/internal/config"
	"sheet2docs/internal/gapi"

	"github.com/rs/zerolog/log"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// defaultDocColumn is column M, used when columns are configured by hand
// without a doc column
const defaultDocColumn = 12

// Client reads and writes one spreadsheet through the values API
type Client struct {
	cfg    config.SheetsConfig
	values *sheetsapi.SpreadsheetsValuesService
}

func NewClient(ctx context.Context, cfg config.SheetsConfig) (*Client, error) {
	httpClient := gapi.NewHTTPClient(cfg.Token, cfg.RatePerSecond)
	svc, err := sheetsapi.NewService(ctx, gapi.Options(httpClient, cfg.BaseURL)...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{cfg: cfg, values: svc.Spreadsheets.Values}, nil
}

func (c *Client) get(ctx context.Context, a1 string) ([][]string, error) {
	vr, err := c.values.Get(c.cfg.SpreadsheetID, a1).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

// Headers returns the header row
func (c *Client) Headers(ctx context.Context) ([]string, error) {
	values, err := c.get(ctx, fmt.Sprintf("%d:%d", c.cfg.HeaderRow, c.cfg.HeaderRow))
	if err != nil {
		return nil, fmt.Errorf("read header row %d: %w", c.cfg.HeaderRow, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// ResolveColumns returns the column layout. Hand-configured columns skip
// header detection; unset ones then default to URL=A, doc=M.
func (c *Client) ResolveColumns(ctx context.Context) (Columns, error) {
	var cols Columns
	if c.cfg.URLColumn != "" || c.cfg.DocColumn != "" || c.cfg.NameColumn != "" || c.cfg.SubjectColumn != "" {
		cols = Columns{URL: 0, Doc: defaultDocColumn, Name: NoColumn, Subject: NoColumn}
	} else {
		headers, err := c.Headers(ctx)
		if err != nil {
			return Columns{}, err
		}
		log.Debug().Strs("headers", headers).Msg("header row")
		cols = DetectColumns(headers)
	}

	var err error
	if cols.URL, err = overrideColumn(cols.URL, c.cfg.URLColumn); err != nil {
		return Columns{}, fmt.Errorf("url_column: %w", err)
	}
	if cols.Doc, err = overrideColumn(cols.Doc, c.cfg.DocColumn); err != nil {
		return Columns{}, fmt.Errorf("doc_column: %w", err)
	}
	if cols.Name, err = overrideColumn(cols.Name, c.cfg.NameColumn); err != nil {
		return Columns{}, fmt.Errorf("name_column: %w", err)
	}
	if cols.Subject, err = overrideColumn(cols.Subject, c.cfg.SubjectColumn); err != nil {
		return Columns{}, fmt.Errorf("subject_column: %w", err)
	}
	if cols.URL < 0 || cols.Doc < 0 {
		return Columns{}, fmt.Errorf("url and doc columns cannot be hidden")
	}

	return cols, nil
}

// URLs reads column col from the start row down to MaxRows. Element i
// belongs to row StartRow+i; blank cells are kept as "".
func (c *Client) URLs(ctx context.Context, col int) ([]string, error) {
	letter := IndexToColumn(col)
	a1 := fmt.Sprintf("%s%d:%s%d", letter, c.cfg.StartRow, letter, c.cfg.MaxRows)

	values, err := c.get(ctx, a1)
	if err != nil {
		return nil, fmt.Errorf("read URLs %s: %w", a1, err)
	}

	urls := make([]string, len(values))
	for i, row := range values {
		urls[i] = cell(row, 0)
	}
	log.Info().Str("range", a1).Int("rows", len(urls)).Msg("read URL column")
	return urls, nil
}

// Row returns every cell of a row
func (c *Client) Row(ctx context.Context, row int) ([]string, error) {
	values, err := c.get(ctx, fmt.Sprintf("%d:%d", row, row))
	if err != nil {
		return nil, fmt.Errorf("read row %d: %w", row, err)
	}
	if len(values) == 0 {
		return []string{}, nil
	}
	return values[0], nil
}

// WriteCell stores value verbatim in one cell
func (c *Client) WriteCell(ctx context.Context, row, col int, value string) error {
	a1 := fmt.Sprintf("%s%d", IndexToColumn(col), row)
	body := &sheetsapi.ValueRange{Range: a1, Values: [][]interface{}{{value}}}
	_, err := c.values.Update(c.cfg.SpreadsheetID, a1, body).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", a1, err)
	}
	return nil
}

// ClearCell empties one cell
func (c *Client) ClearCell(ctx context.Context, row, col int) error {
	a1 := fmt.Sprintf("%s%d", IndexToColumn(col), row)
	_, err := c.values.Clear(c.cfg.SpreadsheetID, a1, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", a1, err)
	}
	return nil
}
