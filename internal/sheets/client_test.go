package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sheet2docs/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnConversions(t *testing.T) {
	tests := []struct {
		letter string
		index  int
	}{
		{"A", 0},
		{"B", 1},
		{"M", 12},
		{"Z", 25},
		{"AA", 26},
		{"AZ", 51},
		{"BA", 52},
		{"ZZ", 701},
		{"AAA", 702},
	}

	for _, tt := range tests {
		t.Run(tt.letter, func(t *testing.T) {
			got, err := ColumnToIndex(tt.letter)
			require.NoError(t, err)
			assert.Equal(t, tt.index, got)
			assert.Equal(t, tt.letter, IndexToColumn(tt.index))
		})
	}

	got, err := ColumnToIndex(" ab ")
	require.NoError(t, err)
	assert.Equal(t, 27, got)

	_, err = ColumnToIndex("A1")
	assert.Error(t, err)
	_, err = ColumnToIndex("")
	assert.Error(t, err)
}

func TestDetectColumns(t *testing.T) {
	cols := DetectColumns([]string{"No", "名前", "件名", "必要なURL", "メモ", "ドキュメント化"})
	assert.Equal(t, Columns{URL: 3, Doc: 5, Name: 1, Subject: 2}, cols)

	cols = DetectColumns([]string{"Link", "title", "notes"})
	assert.Equal(t, Columns{URL: 0, Doc: 3, Name: NoColumn, Subject: 1}, cols)

	cols = DetectColumns(nil)
	assert.Equal(t, Columns{URL: 0, Doc: 0, Name: NoColumn, Subject: NoColumn}, cols)
}

func TestDetectColumnsAliasPriority(t *testing.T) {
	cols := DetectColumns([]string{"Link", "URL"})
	assert.Equal(t, 1, cols.URL)
}

type fakeSheet struct {
	mu     sync.Mutex
	values map[string][][]string
	writes map[string]string
	clears []string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/sheet1/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rest, "values": f.values[rest]})
	case http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		var body struct {
			Values [][]string `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.writes[rest] = body.Values[0][0]
		fmt.Fprint(w, `{}`)
	case http.MethodPost:
		f.clears = append(f.clears, strings.TrimSuffix(rest, ":clear"))
		fmt.Fprint(w, `{}`)
	}
}

func newTestSheetClient(t *testing.T, sheet *fakeSheet, mutate func(*config.SheetsConfig)) *Client {
	srv := httptest.NewServer(sheet)
	t.Cleanup(srv.Close)

	cfg := config.DefaultSheetsConfig()
	cfg.BaseURL = srv.URL + "/"
	cfg.SpreadsheetID = "sheet1"
	cfg.RatePerSecond = 0
	cfg.MaxRows = 50
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	return c
}

func TestResolveColumnsFromHeaders(t *testing.T) {
	sheet := &fakeSheet{values: map[string][][]string{
		"2:2": {{"Name", "Subject", "URL"}},
	}}
	c := newTestSheetClient(t, sheet, nil)

	cols, err := c.ResolveColumns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Columns{URL: 2, Doc: 3, Name: 0, Subject: 1}, cols)
}

func TestResolveColumnsManual(t *testing.T) {
	c := newTestSheetClient(t, &fakeSheet{}, func(cfg *config.SheetsConfig) {
		cfg.URLColumn = "C"
		cfg.NameColumn = "hidden"
	})

	cols, err := c.ResolveColumns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Columns{URL: 2, Doc: 12, Name: HiddenColumn, Subject: NoColumn}, cols)
}

func TestResolveColumnsRejectsBadLetter(t *testing.T) {
	c := newTestSheetClient(t, &fakeSheet{}, func(cfg *config.SheetsConfig) {
		cfg.DocColumn = "M2"
	})

	_, err := c.ResolveColumns(context.Background())
	assert.ErrorContains(t, err, "doc_column")
}

func TestURLs(t *testing.T) {
	sheet := &fakeSheet{values: map[string][][]string{
		"B3:B50": {{"https://a.example"}, {}, {" https://c.example "}},
	}}
	c := newTestSheetClient(t, sheet, nil)

	urls, err := c.URLs(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "", "https://c.example"}, urls)
}

func TestRow(t *testing.T) {
	sheet := &fakeSheet{values: map[string][][]string{
		"4:4": {{"Taro", "Hello", "https://a.example"}},
	}}
	c := newTestSheetClient(t, sheet, nil)

	row, err := c.Row(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Taro", "Hello", "https://a.example"}, row)

	empty, err := c.Row(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWriteAndClearCell(t *testing.T) {
	sheet := &fakeSheet{writes: map[string]string{}}
	c := newTestSheetClient(t, sheet, nil)

	require.NoError(t, c.WriteCell(context.Background(), 5, 12, "https://docs.google.com/document/d/x/edit"))
	assert.Equal(t, "https://docs.google.com/document/d/x/edit", sheet.writes["M5"])

	require.NoError(t, c.ClearCell(context.Background(), 5, 12))
	assert.Equal(t, []string{"M5"}, sheet.clears)
}

func TestHeadersErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.DefaultSheetsConfig()
	cfg.BaseURL = srv.URL + "/"
	cfg.SpreadsheetID = "sheet1"
	cfg.RatePerSecond = 0

	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	_, err = c.Headers(context.Background())
	assert.ErrorContains(t, err, "read header row 2")
	assert.ErrorContains(t, err, "does not have permission")
}
