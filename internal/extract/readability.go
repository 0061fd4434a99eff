package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Readability is the built-in extractor. It purifies the HTML in-process
// and writes the same JSON record shape an external extractor would.
type Readability struct {
	// PageURL is the article's source URL, used to absolutize links
	// inside the purified markup where the parser can.
	PageURL *url.URL
}

func (r *Readability) Extract(ctx context.Context, htmlPath, outPath string) error {
	f, err := os.Open(htmlPath)
	if err != nil {
		return fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	art, err := readability.FromReader(f, r.PageURL)
	if err != nil {
		return fmt.Errorf("readability: %w", err)
	}

	rec := Article{}
	if art.Title != "" {
		rec.Title = &art.Title
	}
	if art.Byline != "" {
		rec.Byline = &art.Byline
	}
	if art.PublishedTime != nil {
		d := art.PublishedTime.Format(time.RFC3339)
		rec.Date = &d
	}
	if art.Content != "" {
		rec.Content = &art.Content
	}
	if art.TextContent != "" {
		rec.PlainContent = &art.TextContent
	}

	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode article record: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write article record: %w", err)
	}
	return nil
}
