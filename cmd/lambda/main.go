package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"sheet2docs/internal/api"
	"sheet2docs/internal/config"
	"sheet2docs/internal/logging"
	"sheet2docs/internal/scraper"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
)

const (
	// lambdaDefaultTimeoutMs leaves a safety margin under the function limit
	lambdaDefaultTimeoutMs = 70000
	safetyMarginMs         = 3000
)

// LambdaHandler handles API Gateway proxy events
type LambdaHandler struct {
	scraper api.Scraper
	apiKey  string
}

func NewLambdaHandler(s api.Scraper, apiKey string) *LambdaHandler {
	return &LambdaHandler{scraper: s, apiKey: apiKey}
}

func (h *LambdaHandler) Handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if event.HTTPMethod == http.MethodOptions {
		return respond(api.Result{StatusCode: http.StatusNoContent}), nil
	}

	log.Debug().Str("method", event.HTTPMethod).Str("path", event.Path).Msg("request received")

	if h.apiKey == "" {
		log.Error().Msg("SCRAPE_API_KEY environment variable not set")
		return errorResponse(http.StatusInternalServerError, "Server misconfiguration"), nil
	}

	apiKey := event.Headers["x-api-key"]
	if apiKey == "" {
		apiKey = event.Headers["X-Api-Key"]
	}
	if apiKey == "" {
		apiKey = event.QueryStringParameters["key"]
	}
	if apiKey != h.apiKey {
		return errorResponse(http.StatusUnauthorized, "Invalid or missing API key"), nil
	}

	timeoutMs := lambdaDefaultTimeoutMs
	if deadline, ok := ctx.Deadline(); ok {
		timeoutMs = api.ClampTimeout("", int(time.Until(deadline).Milliseconds())-safetyMarginMs)
	}
	timeoutMs = min(timeoutMs, lambdaDefaultTimeoutMs)

	q := event.QueryStringParameters
	return respond(api.Extract(ctx, h.scraper, q["url"], q["format"], timeoutMs)), nil
}

func respond(res api.Result) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(api.CORSHeaders))
	for k, v := range api.CORSHeaders {
		headers[k] = v
	}
	if res.ContentType != "" {
		headers["Content-Type"] = res.ContentType
	}
	return events.APIGatewayProxyResponse{
		StatusCode: res.StatusCode,
		Headers:    headers,
		Body:       string(res.Body),
	}
}

func errorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	return respond(api.ErrorResult(statusCode, message, ""))
}

func main() {
	cfg, err := config.Load(os.Getenv("SHEET2DOCS_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Log.Format = "json"
	if err := logging.Setup(cfg.Log, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}
	// Lambda has no Chrome binary
	cfg.Scrape.UseBrowser = false

	handler := NewLambdaHandler(scraper.NewScraper(cfg), os.Getenv("SCRAPE_API_KEY"))
	lambda.Start(handler.Handler)
}
