package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 100, cfg.Extract.MinContentLength)
	assert.Equal(t, 500, cfg.Extract.LocatorMinText)
	assert.Equal(t, 5*time.Second, cfg.Extract.MessageTimeout)
	assert.Equal(t, 2, cfg.Sheets.HeaderRow)
	assert.Equal(t, 3, cfg.Sheets.StartRow)
	assert.Equal(t, 50, cfg.Docs.ChunkSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet2docs.yaml")
	body := []byte(`
extract:
  max_content_chars: 10000
  message_timeout: 3s
sheets:
  spreadsheet_id: abc123
  url_column: B
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Extract.MaxContentChars)
	assert.Equal(t, 3*time.Second, cfg.Extract.MessageTimeout)
	assert.Equal(t, 500, cfg.Extract.LocatorMinText, "unset keys keep defaults")
	assert.Equal(t, "abc123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "B", cfg.Sheets.URLColumn)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sheets:\n  header_row: 3\n  start_row: 2\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Extract, cfg.Extract)
}

func TestRegexes(t *testing.T) {
	re := Regexes()

	assert.True(t, re["badHint"].MatchString("/static/Site-LOGO.png"))
	assert.False(t, re["badHint"].MatchString("/uploads/photo.jpg"))
	assert.True(t, re["cfBlock"].MatchString("cloudflare ray id: 123"))

	m := re["markdownTitle"].FindStringSubmatch("intro\n# Title here\n")
	require.Len(t, m, 2)
	assert.Equal(t, "Title here", m[1])

	assert.Same(t, re["badHint"], Regexes()["badHint"])
}
