package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// TargetURL is the article page to convert.
	TargetURL string

	// Output
	OutputPath      string
	OutputFromTitle bool
	EnablePDF       bool

	// Fetch
	UserAgent         string
	PerRequestTimeout time.Duration
	MaxAttempts       int

	// Extraction: external command invoked with {input}/{output}
	// placeholders; empty selects the built-in readability extractor.
	ExtractorCommand string

	// Images
	MaxImageWidth int

	// Behavior
	Verbose bool
}
