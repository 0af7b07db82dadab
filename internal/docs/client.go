package docs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sheet2docs/internal/config"
	"sheet2docs/internal/gapi"
	"sheet2docs/internal/models"

	"github.com/rs/zerolog/log"
	docsapi "google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
)

const (
	BaseBackoff = time.Second
	MaxBackoff  = 8 * time.Second
)

// Client creates, fills, shares and deletes documents
type Client struct {
	cfg     config.DocsConfig
	docs    *docsapi.Service
	drive   *drive.Service
	backoff time.Duration
	now     func() time.Time
}

// NewClient builds the Docs and Drive services on one paced, token-bearing
// HTTP client
func NewClient(ctx context.Context, cfg config.DocsConfig) (*Client, error) {
	httpClient := gapi.NewHTTPClient(cfg.Token, cfg.RatePerSecond)

	docsService, err := docsapi.NewService(ctx, gapi.Options(httpClient, cfg.BaseURL)...)
	if err != nil {
		return nil, fmt.Errorf("docs service: %w", err)
	}
	driveService, err := drive.NewService(ctx, gapi.Options(httpClient, cfg.DriveURL)...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}

	return &Client{
		cfg:     cfg,
		docs:    docsService,
		drive:   driveService,
		backoff: BaseBackoff,
		now:     time.Now,
	}, nil
}

func docsError(operation string, err error) error {
	if status := gapi.StatusCode(err); status != 0 {
		return &models.DocsAPIError{Operation: operation, StatusCode: status, Message: gapi.Message(err)}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// CreateEmpty creates an empty document and returns its id
func (c *Client) CreateEmpty(ctx context.Context, title string) (string, error) {
	doc, err := c.docs.Documents.Create(&docsapi.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", docsError("create document", err)
	}
	if doc.DocumentId == "" {
		return "", &models.DocsAPIError{Operation: "create document", StatusCode: http.StatusOK, Message: "response has no documentId"}
	}
	return doc.DocumentId, nil
}

// BatchUpdate applies requests in order. Rate-limited calls are retried
// with exponential backoff; a request the API rejects as too large is
// resent in chunks of ChunkSize.
func (c *Client) BatchUpdate(ctx context.Context, documentID string, requests []*docsapi.Request) error {
	return c.batchUpdate(ctx, documentID, requests, true)
}

func (c *Client) batchUpdate(ctx context.Context, documentID string, requests []*docsapi.Request, allowChunks bool) error {
	attempts := max(1, c.cfg.MaxRetries)
	body := &docsapi.BatchUpdateDocumentRequest{Requests: requests}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		_, err := c.docs.Documents.BatchUpdate(documentID, body).Context(ctx).Do()
		if err == nil {
			return nil
		}
		lastErr = err

		status := gapi.StatusCode(err)
		switch {
		case status == 0:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		case tooLarge(status, gapi.Message(err)):
			if allowChunks && len(requests) > c.cfg.ChunkSize {
				return c.batchUpdateChunked(ctx, documentID, requests)
			}
			return docsError("batchUpdate", err)
		case status != http.StatusTooManyRequests && status < 500:
			return docsError("batchUpdate", err)
		}

		if attempt == attempts-1 {
			break
		}
		delay := min(c.backoff*time.Duration(1<<attempt), MaxBackoff)
		log.Warn().Err(err).Str("document", documentID).Int("attempt", attempt+1).Dur("delay", delay).Msg("batchUpdate retry")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return docsError("batchUpdate", lastErr)
}

func (c *Client) batchUpdateChunked(ctx context.Context, documentID string, requests []*docsapi.Request) error {
	log.Info().Str("document", documentID).Int("requests", len(requests)).Int("chunk", c.cfg.ChunkSize).Msg("request too large, sending in chunks")

	for start := 0; start < len(requests); start += c.cfg.ChunkSize {
		end := min(start+c.cfg.ChunkSize, len(requests))
		if err := c.batchUpdate(ctx, documentID, requests[start:end], false); err != nil {
			return err
		}
	}
	return nil
}

func tooLarge(status int, message string) bool {
	return status == http.StatusRequestEntityTooLarge ||
		strings.Contains(strings.ToLower(message), "request too large")
}

// Share grants anyone with the link read access
func (c *Client) Share(ctx context.Context, documentID string) error {
	perm := &drive.Permission{
		Role:               "reader",
		Type:               "anyone",
		AllowFileDiscovery: false,
		ForceSendFields:    []string{"AllowFileDiscovery"},
	}
	if _, err := c.drive.Permissions.Create(documentID, perm).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return docsError("share document", err)
	}
	return nil
}

// CreateDocument creates a document named title holding content and
// returns its edit URL. A sharing failure is logged, not returned.
func (c *Client) CreateDocument(ctx context.Context, content *models.ExtractedContent, title string) (string, error) {
	id, err := c.CreateEmpty(ctx, title)
	if err != nil {
		return "", err
	}

	requests := BuildRequests(content, Options{IncludeHeader: c.cfg.IncludeHeader, Now: c.now()})
	if err := c.BatchUpdate(ctx, id, requests); err != nil {
		return "", err
	}

	if c.cfg.Share {
		if err := c.Share(ctx, id); err != nil {
			log.Warn().Err(err).Str("document", id).Msg("failed to update sharing")
		}
	}

	log.Info().Str("document", id).Str("title", title).Int("requests", len(requests)).Msg("document created")
	return DocumentURL(id), nil
}

// Delete moves the document behind an edit link, an ?id= link or a bare id
// to the trash
func (c *Client) Delete(ctx context.Context, docURL string) error {
	id, ok := DocumentID(docURL)
	if !ok {
		return fmt.Errorf("no document id in %q", docURL)
	}

	_, err := c.drive.Files.Update(id, &drive.File{Trashed: true}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return docsError("delete document", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
