package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	tabErr error
	resp   models.MessageResponse
	block  bool
	sent   []models.Message
}

func (m *fakeMessenger) ActiveTab(ctx context.Context) (int, error) {
	if m.tabErr != nil {
		return 0, m.tabErr
	}
	return 7, nil
}

func (m *fakeMessenger) Send(ctx context.Context, tabID int, msg models.Message) (models.MessageResponse, error) {
	m.sent = append(m.sent, msg)
	if m.block {
		<-ctx.Done()
		return models.MessageResponse{}, ctx.Err()
	}
	return m.resp, nil
}

func staticStrategy(name string, content *models.ExtractedContent, err error) Strategy {
	return Strategy{Name: name, Run: func(context.Context, string, *goquery.Document) (*models.ExtractedContent, error) {
		return content, err
	}}
}

func TestExtractWithFallbackReachesThirdStrategy(t *testing.T) {
	robust := NewRobustExtractorWithStrategies(
		staticStrategy("dom", nil, errors.New("dom exploded")),
		staticStrategy("content-script", &models.ExtractedContent{Content: ""}, nil),
		staticStrategy("basic", &models.ExtractedContent{Title: "t", Content: "minimal body"}, nil),
	)

	got, err := robust.ExtractWithFallback(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)
	assert.Equal(t, "minimal body", got.Content)
}

func TestExtractWithFallbackRecoversPanics(t *testing.T) {
	robust := NewRobustExtractorWithStrategies(
		Strategy{Name: "dom", Run: func(context.Context, string, *goquery.Document) (*models.ExtractedContent, error) {
			panic("nil map")
		}},
		staticStrategy("basic", &models.ExtractedContent{Content: "ok"}, nil),
	)

	got, err := robust.ExtractWithFallback(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Content)
}

func TestExtractWithFallbackAllFail(t *testing.T) {
	robust := NewRobustExtractorWithStrategies(
		staticStrategy("dom", nil, errors.New("first")),
		staticStrategy("content-script", nil, nil),
		staticStrategy("basic", &models.ExtractedContent{}, nil),
	)

	_, err := robust.ExtractWithFallback(context.Background(), "https://example.com/a", nil)
	var failed *models.ExtractionFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "https://example.com/a", failed.URL)
	assert.ErrorIs(t, err, models.ErrEmptyContent)
	assert.Contains(t, err.Error(), "first")
}

func TestExtractWithFallbackInvalidURL(t *testing.T) {
	called := false
	robust := NewRobustExtractorWithStrategies(Strategy{Name: "dom", Run: func(context.Context, string, *goquery.Document) (*models.ExtractedContent, error) {
		called = true
		return nil, nil
	}})

	_, err := robust.ExtractWithFallback(context.Background(), "no host here", nil)
	var invalid *models.InvalidURLError
	assert.True(t, errors.As(err, &invalid))
	assert.False(t, called)
}

func TestRobustExtractorDefaultChain(t *testing.T) {
	doc := mustDoc(t, `<html><head><title>Page</title></head><body><article><h1>Head</h1><p>Body text.</p></article></body></html>`)
	robust := NewRobustExtractor(newTestExtractor(), nil)

	got, err := robust.ExtractWithFallback(context.Background(), "https://example.com/a", doc)
	require.NoError(t, err)
	assert.Equal(t, "Head", got.Title)
}

func TestContentScriptStrategy(t *testing.T) {
	want := &models.ExtractedContent{Title: "from tab", Content: "tab body"}
	messenger := &fakeMessenger{resp: models.MessageResponse{Success: true, Content: want}}

	got, err := viaContentScript(messenger, time.Second)(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []models.Message{{Action: models.ActionExtractContent}}, messenger.sent)
}

func TestContentScriptReplyIsCleaned(t *testing.T) {
	messenger := &fakeMessenger{resp: models.MessageResponse{Success: true, Content: &models.ExtractedContent{
		Content: "  tab   body ",
	}}}

	got, err := newTestExtractor().cleaned(viaContentScript(messenger, time.Second))(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)
	assert.Equal(t, "tab body", got.Content)
	assert.Equal(t, models.UntitledTitle, got.Title)
	assert.Equal(t, models.UnknownAuthor, got.Author)
	assert.Equal(t, fixedNow.Format(time.RFC3339), got.Date)
	assert.Equal(t, "https://example.com/a", got.URL)
}

func TestBlankContentScriptReplyFallsThrough(t *testing.T) {
	ext := newTestExtractor()
	messenger := &fakeMessenger{resp: models.MessageResponse{Success: true, Content: &models.ExtractedContent{Content: "   "}}}

	robust := NewRobustExtractorWithStrategies(
		staticStrategy("dom", nil, errors.New("dom failed")),
		Strategy{Name: "content-script", Run: ext.cleaned(viaContentScript(messenger, time.Second))},
		staticStrategy("basic", &models.ExtractedContent{Title: "t", Content: "minimal body"}, nil),
	)

	got, err := robust.ExtractWithFallback(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)
	assert.Equal(t, "minimal body", got.Content)
	assert.Len(t, messenger.sent, 1)
}

func TestContentScriptStrategyFailures(t *testing.T) {
	_, err := viaContentScript(&fakeMessenger{tabErr: errors.New("no window")}, time.Second)(context.Background(), "https://example.com", nil)
	assert.ErrorContains(t, err, "no active tab")

	_, err = viaContentScript(&fakeMessenger{resp: models.MessageResponse{Success: false, Error: "not ready"}}, time.Second)(context.Background(), "https://example.com", nil)
	assert.ErrorContains(t, err, "not ready")

	_, err = viaContentScript(nil, time.Second)(context.Background(), "https://example.com", nil)
	assert.Error(t, err)
}

func TestContentScriptStrategyTimesOut(t *testing.T) {
	messenger := &fakeMessenger{block: true}

	start := time.Now()
	_, err := viaContentScript(messenger, 20*time.Millisecond)(context.Background(), "https://example.com", nil)

	var timeout *models.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBasicInfo(t *testing.T) {
	doc := mustDoc(t, `<html><head><title> Plain </title><script>ignored()</script></head><body>
		<p>Visible text</p><script>var hidden = 1;</script><style>p{}</style>
	</body></html>`)

	got, err := newTestExtractor().basicInfo(context.Background(), "https://example.com/a", doc)
	require.NoError(t, err)
	assert.Equal(t, "Plain", got.Title)
	assert.Equal(t, "Visible text", got.Content)
	assert.Equal(t, models.UnknownAuthor, got.Author)

	got, err = newTestExtractor().basicInfo(context.Background(), "https://example.com/a", mustDoc(t, "<p>x</p>"))
	require.NoError(t, err)
	assert.Equal(t, NoTitle, got.Title)
}
