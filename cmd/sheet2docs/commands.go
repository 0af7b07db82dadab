package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"sheet2docs/internal/api"
	"sheet2docs/internal/config"
	"sheet2docs/internal/docs"
	"sheet2docs/internal/extractor"
	"sheet2docs/internal/logging"
	"sheet2docs/internal/pipeline"
	"sheet2docs/internal/scraper"
	"sheet2docs/internal/sheets"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	noBrowser  bool
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "sheet2docs",
		Short:         "Extract web articles and turn spreadsheet URL lists into documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if opts.logFormat != "" {
				cfg.Log.Format = opts.logFormat
			}
			if opts.noBrowser {
				cfg.Scrape.UseBrowser = false
			}
			if err := logging.Setup(cfg.Log, cmd.ErrOrStderr()); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", os.Getenv("SHEET2DOCS_CONFIG"), "YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&opts.noBrowser, "no-browser", false, "never fall back to headless Chrome")

	root.AddCommand(
		newExtractCmd(opts),
		newRunCmd(opts),
		newCleanCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var format string
	var noMetadata bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract one page and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := extractor.ParseFormat(format)
			if err != nil {
				return err
			}

			s := scraper.NewScraper(opts.cfg)
			defer s.Close()

			content, err := s.ScrapeWithTimeout(cmd.Context(), args[0], int(timeout.Milliseconds()))
			if err != nil {
				return err
			}

			out, err := extractor.Render(content, extractor.RenderOptions{Format: outFormat, IncludeMetadata: !noMetadata})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(extractor.FormatText), "output format (text, markdown, html, json)")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "omit the title/author/date header")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall extraction timeout")
	return cmd
}

func newProcessor(ctx context.Context, cfg config.Config, s *scraper.Scraper) (*pipeline.Processor, error) {
	docsClient, err := docs.NewClient(ctx, cfg.Docs)
	if err != nil {
		return nil, err
	}
	sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, s, docsClient, sheetsClient), nil
}

func requireSheet(cfg config.Config) error {
	if cfg.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("no spreadsheet: set sheets.spreadsheet_id or pass --sheet")
	}
	if cfg.Sheets.Token == "" || cfg.Docs.Token == "" {
		return fmt.Errorf("no API token: set SHEET2DOCS_TOKEN")
	}
	return nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var sheetID string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a document for every URL row of the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if sheetID != "" {
				cfg.Sheets.SpreadsheetID = sheetID
			}
			if overwrite {
				cfg.Sheets.Overwrite = true
			}
			if err := requireSheet(cfg); err != nil {
				return err
			}

			s := scraper.NewScraper(cfg)
			defer s.Close()

			p, err := newProcessor(cmd.Context(), cfg, s)
			if err != nil {
				return err
			}
			summary, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&sheetID, "sheet", "", "spreadsheet id")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "recreate documents for rows that already have one")
	return cmd
}

func newCleanCmd(opts *rootOptions) *cobra.Command {
	var sheetID string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the documents linked from the spreadsheet and clear their cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if sheetID != "" {
				cfg.Sheets.SpreadsheetID = sheetID
			}
			if err := requireSheet(cfg); err != nil {
				return err
			}

			p, err := newProcessor(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			summary, err := p.Clean(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&sheetID, "sheet", "", "spreadsheet id")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction endpoint over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := scraper.NewScraper(opts.cfg)
			defer s.Close()

			srv := &http.Server{Addr: addr, Handler: api.NewHandler(s)}
			go func() {
				<-cmd.Context().Done()
				_ = srv.Close()
			}()

			log.Info().Str("addr", addr).Msg("starting server")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func printSummary(w io.Writer, summary *pipeline.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
