package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagebook/internal/assemble"
	"github.com/hyperifyio/pagebook/internal/extract"
	"github.com/hyperifyio/pagebook/internal/fetch"
	"github.com/hyperifyio/pagebook/internal/resolve"
)

// workDirPrefix names the per-run working directory so stray ones are
// recognizable under the system temp dir.
const workDirPrefix = "pagebook_"

// articleRecordName is the extractor's output file inside the working directory.
const articleRecordName = "article.json"

// ErrInvalidTargetURL is returned when the input URL does not parse as an
// http(s) URL. Per the exit code policy, the CLI reports it and terminates
// cleanly rather than treating it as a hard failure.
var ErrInvalidTargetURL = fmt.Errorf("invalid target URL")

// App runs the conversion pipeline for a single target URL.
type App struct {
	cfg Config
	// Extractor overrides the configured extraction strategy; used in tests.
	Extractor extract.Extractor
}

func New(cfg Config) *App {
	return &App{cfg: cfg}
}

// Run executes the pipeline: validate URL, fetch the page, extract the
// article, resolve and fetch its images, assemble the EPUB, write the
// output. The working directory is created only after URL validation and
// removed on every exit path.
func (a *App) Run(ctx context.Context) error {
	target, err := parseTargetURL(a.cfg.TargetURL)
	if err != nil {
		return err
	}
	log.Info().Str("url", target.String()).Msg("converting article")

	workDir, err := os.MkdirTemp("", workDirPrefix)
	if err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("working directory cleanup failed")
		}
	}()

	client := &fetch.Client{
		Dir:               workDir,
		UserAgent:         a.cfg.UserAgent,
		MaxAttempts:       a.cfg.MaxAttempts,
		PerRequestTimeout: a.cfg.PerRequestTimeout,
	}

	htmlPath, err := client.Download(ctx, target.String(), fetch.ModeText)
	if err != nil {
		return fmt.Errorf("fetch article page: %w", err)
	}

	recordPath := filepath.Join(workDir, articleRecordName)
	if err := a.extractor(target).Extract(ctx, htmlPath, recordPath); err != nil {
		return fmt.Errorf("extract article: %w", err)
	}
	article, err := extract.Load(recordPath)
	if err != nil {
		return fmt.Errorf("extract article: %w", err)
	}
	// Required fields are checked before any image I/O happens.
	if err := article.Validate(); err != nil {
		return err
	}

	var imageURLs []string
	if article.Content != nil {
		imageURLs, err = resolve.Images(*article.Content, target)
		if err != nil {
			return fmt.Errorf("resolve images: %w", err)
		}
	}
	log.Info().Int("count", len(imageURLs)).Msg("resolved image references")

	images := make([]assemble.Image, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		path, err := client.Download(ctx, imageURL, fetch.ModeBinary)
		if err != nil {
			return fmt.Errorf("fetch image %s: %w", imageURL, err)
		}
		images = append(images, assemble.Image{SourceURL: imageURL, LocalPath: path})
	}

	book, err := assemble.Build(article, images, assemble.Options{
		Origin:        target,
		MaxImageWidth: a.cfg.MaxImageWidth,
	})
	if err != nil {
		return fmt.Errorf("assemble document: %w", err)
	}

	outPath := a.outputPath(article)
	if err := os.WriteFile(outPath, book, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", outPath).Msg("wrote book")

	if a.cfg.EnablePDF {
		pdfPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".pdf"
		if err := writeArticlePDF(article, pdfPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", pdfPath).Msg("wrote pdf")
	}
	return nil
}

// parseTargetURL validates the input URL. Anything that is not an absolute
// http(s) URL with a host is rejected before a workspace exists.
func parseTargetURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargetURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTargetURL, raw)
	}
	return u, nil
}

// extractor picks the configured extraction strategy. An explicit command
// takes precedence; otherwise the built-in readability extractor is used.
func (a *App) extractor(target *url.URL) extract.Extractor {
	if a.Extractor != nil {
		return a.Extractor
	}
	if cmd := strings.TrimSpace(a.cfg.ExtractorCommand); cmd != "" {
		parts := strings.Fields(cmd)
		return &extract.Command{Name: parts[0], Args: parts[1:]}
	}
	return &extract.Readability{PageURL: target}
}

// outputPath returns the configured output path, or one derived from the
// slugified article title when requested.
func (a *App) outputPath(article *extract.Article) string {
	if !a.cfg.OutputFromTitle || article.Title == nil {
		return a.cfg.OutputPath
	}
	dir := filepath.Dir(a.cfg.OutputPath)
	return filepath.Join(dir, slugify(*article.Title)+".epub")
}
