// Package gapi builds the authorized, paced HTTP client the Google API
// services run on and reads the errors they return.
package gapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const DefaultTimeout = 30 * time.Second

type pacedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns a client that sends token as a bearer credential
// and allows perSecond requests per second. Zero or less disables pacing;
// an empty token sends no credential.
func NewHTTPClient(token string, perSecond float64) *http.Client {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	var transport http.RoundTripper = &pacedTransport{
		limiter: rate.NewLimiter(limit, 1),
		base:    http.DefaultTransport,
	}
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   transport,
		}
	}

	return &http.Client{Timeout: DefaultTimeout, Transport: transport}
}

// Options are the options a service is built with. An empty endpoint keeps
// the service's default.
func Options(httpClient *http.Client, endpoint string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// StatusCode is the HTTP status of an API error, 0 when err never reached
// the API
func StatusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// Message is the API's error.message, or the trimmed body when the reply
// carried none
func Message(err error) string {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(apiErr.Body)
}
