package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// Messenger is the request/response channel to a tab's content script
type Messenger interface {
	ActiveTab(ctx context.Context) (int, error)
	Send(ctx context.Context, tabID int, msg models.Message) (models.MessageResponse, error)
}

// Strategy is one step of the fallback chain
type Strategy struct {
	Name string
	Run  func(ctx context.Context, pageURL string, doc *goquery.Document) (*models.ExtractedContent, error)
}

// RobustExtractor tries its strategies in order until one returns a record
// with content.
type RobustExtractor struct {
	strategies []Strategy
}

// NewRobustExtractor builds the DOM, messaging, minimal chain. A nil
// messenger makes the messaging step fail immediately.
func NewRobustExtractor(ext *Extractor, messenger Messenger) *RobustExtractor {
	return NewRobustExtractorWithStrategies(
		Strategy{Name: "dom", Run: ext.Extract},
		Strategy{Name: "content-script", Run: ext.cleaned(viaContentScript(messenger, ext.cfg.MessageTimeout))},
		Strategy{Name: "basic", Run: ext.basicInfo},
	)
}

func NewRobustExtractorWithStrategies(strategies ...Strategy) *RobustExtractor {
	return &RobustExtractor{strategies: strategies}
}

// ExtractWithFallback returns the first strategy result with content. An
// invalid URL is returned as-is; exhausting every strategy returns
// *models.ExtractionFailedError.
func (r *RobustExtractor) ExtractWithFallback(ctx context.Context, pageURL string, doc *goquery.Document) (*models.ExtractedContent, error) {
	if _, err := ParsePageURL(pageURL); err != nil {
		return nil, err
	}

	var errs []error
	for _, strategy := range r.strategies {
		result, err := runStrategy(ctx, strategy, pageURL, doc)
		if err != nil {
			var invalid *models.InvalidURLError
			if errors.As(err, &invalid) {
				return nil, err
			}
			log.Warn().Err(err).Str("strategy", strategy.Name).Str("url", pageURL).Msg("strategy failed")
			errs = append(errs, err)
			continue
		}
		if !result.HasContent() {
			errs = append(errs, &models.ExtractorError{Extractor: strategy.Name, Err: models.ErrEmptyContent})
			continue
		}
		return result, nil
	}

	return nil, &models.ExtractionFailedError{URL: pageURL, Err: errors.Join(errs...)}
}

func runStrategy(ctx context.Context, s Strategy, pageURL string, doc *goquery.Document) (result *models.ExtractedContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &models.ExtractorError{Extractor: s.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.Run(ctx, pageURL, doc)
}

// viaContentScript asks the active tab to extract itself, bounded by timeout
func viaContentScript(messenger Messenger, timeout time.Duration) func(context.Context, string, *goquery.Document) (*models.ExtractedContent, error) {
	return func(ctx context.Context, pageURL string, _ *goquery.Document) (*models.ExtractedContent, error) {
		if messenger == nil {
			return nil, errors.New("no messaging channel")
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		type reply struct {
			resp models.MessageResponse
			err  error
		}
		done := make(chan reply, 1)
		go func() {
			tabID, err := messenger.ActiveTab(ctx)
			if err != nil {
				done <- reply{err: fmt.Errorf("no active tab: %w", err)}
				return
			}
			resp, err := messenger.Send(ctx, tabID, models.Message{Action: models.ActionExtractContent})
			done <- reply{resp: resp, err: err}
		}()

		timedOut := func(err error) error {
			return &models.TimeoutError{Operation: "content script message", Timeout: timeout.String(), Err: err}
		}

		select {
		case <-ctx.Done():
			return nil, timedOut(ctx.Err())
		case r := <-done:
			if r.err != nil {
				if errors.Is(r.err, context.DeadlineExceeded) {
					return nil, timedOut(r.err)
				}
				return nil, r.err
			}
			if !r.resp.Success || r.resp.Content == nil {
				return nil, fmt.Errorf("content script extraction failed: %s", r.resp.Error)
			}
			return r.resp.Content, nil
		}
	}
}

// cleaned passes a strategy's record through the same normalization and
// sentinel defaults as the DOM path
func (e *Extractor) cleaned(run func(context.Context, string, *goquery.Document) (*models.ExtractedContent, error)) func(context.Context, string, *goquery.Document) (*models.ExtractedContent, error) {
	return func(ctx context.Context, pageURL string, doc *goquery.Document) (*models.ExtractedContent, error) {
		result, err := run(ctx, pageURL, doc)
		if err != nil || result == nil {
			return result, err
		}
		return e.validateAndClean(&RawContent{
			Title:       result.Title,
			Description: result.Description,
			Content:     result.Content,
			Author:      result.Author,
			Date:        result.Date,
			HTML:        result.HTML,
			Type:        result.Type,
			Structure:   result.Structure,
			Images:      result.Images,
			Tags:        result.Tags,
			CodeBlocks:  result.CodeBlocks,
		}, pageURL), nil
	}
}

// basicInfo is the minimal fallback: document title and raw body text
func (e *Extractor) basicInfo(_ context.Context, pageURL string, doc *goquery.Document) (*models.ExtractedContent, error) {
	if doc == nil {
		return nil, errors.New("no document")
	}

	now := e.now().UTC().Format(time.RFC3339)
	title := Normalize(doc.Find("title").First().Text())
	if title == "" {
		title = NoTitle
	}

	body := doc.Find("body").First().Clone()
	body.Find("script, style, noscript, template").Remove()

	return &models.ExtractedContent{
		Title:       title,
		Content:     truncateRunes(Normalize(blockText(body)), e.cfg.MaxContentChars),
		Author:      models.UnknownAuthor,
		Date:        now,
		URL:         pageURL,
		Images:      []models.ImageRef{},
		Type:        models.TypeArticle,
		ExtractedAt: now,
	}, nil
}
