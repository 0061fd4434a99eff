package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagebook/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Optional .env for local defaults; absence is fine.
	_ = godotenv.Load()

	var (
		outputPath      string
		outputFromTitle bool
		enablePDF       bool
		userAgent       string
		timeout         time.Duration
		maxAttempts     int
		extractorCmd    string
		maxImageWidth   int
		configPath      string
		verbose         bool
	)

	flag.StringVar(&outputPath, "output", "book.epub", "Path to write the EPUB")
	flag.BoolVar(&outputFromTitle, "output.fromTitle", false, "Derive the output filename from the slugified article title")
	flag.BoolVar(&enablePDF, "enable.pdf", false, "Also write a plain-text PDF rendition next to the EPUB")
	flag.StringVar(&userAgent, "fetch.ua", "pagebook/1.0 (+https://github.com/hyperifyio/pagebook)", "User-Agent for outgoing requests")
	flag.DurationVar(&timeout, "fetch.timeout", 30*time.Second, "Per-request timeout")
	flag.IntVar(&maxAttempts, "fetch.maxAttempts", 2, "Attempts per fetch including the first")
	flag.StringVar(&extractorCmd, "extractor.cmd", os.Getenv("PAGEBOOK_EXTRACTOR"), "External extractor command with {input}/{output} placeholders; empty uses the built-in readability extractor")
	flag.IntVar(&maxImageWidth, "images.maxWidth", 0, "Downscale images wider than this many pixels (0 disables)")
	flag.StringVar(&configPath, "config", os.Getenv("PAGEBOOK_CONFIG"), "Optional YAML or JSON config file")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <article-url>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := app.Config{
		TargetURL:         flag.Arg(0),
		OutputPath:        outputPath,
		OutputFromTitle:   outputFromTitle,
		EnablePDF:         enablePDF,
		UserAgent:         userAgent,
		PerRequestTimeout: timeout,
		MaxAttempts:       maxAttempts,
		ExtractorCommand:  extractorCmd,
		MaxImageWidth:     maxImageWidth,
		Verbose:           verbose,
	}

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file unreadable")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if strings.TrimSpace(cfg.TargetURL) == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := app.New(cfg).Run(context.Background()); err != nil {
		// Exit code policy: an unusable input URL ends the run cleanly
		// with a message; everything else is a hard failure.
		if errors.Is(err, app.ErrInvalidTargetURL) {
			log.Warn().Err(err).Msg("nothing to do")
			os.Exit(0)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
