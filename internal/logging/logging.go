// Package logging configures the global zerolog logger from LogConfig.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"sheet2docs/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at w. Format "json" writes one JSON
// object per line; anything else writes human-readable console output.
func Setup(cfg config.LogConfig, w io.Writer) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	return nil
}
