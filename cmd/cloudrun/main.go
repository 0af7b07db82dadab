package main

import (
	"net/http"
	"os"

	"sheet2docs/internal/api"
	"sheet2docs/internal/config"
	"sheet2docs/internal/logging"
	"sheet2docs/internal/scraper"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(os.Getenv("SHEET2DOCS_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Log.Format = "json"
	if err := logging.Setup(cfg.Log, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	s := scraper.NewScraper(cfg)
	defer s.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// API key validation is handled by API Gateway
	mux := http.NewServeMux()
	mux.Handle("/", api.NewHandler(s))

	log.Info().Str("port", port).Msg("starting server")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
