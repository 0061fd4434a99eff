package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags.
type FileConfig struct {
	URL             string `yaml:"url" json:"url"`
	Output          string `yaml:"output" json:"output"`
	OutputFromTitle bool   `yaml:"outputFromTitle" json:"outputFromTitle"`
	EnablePDF       bool   `yaml:"enablePDF" json:"enablePDF"`

	Fetch struct {
		UserAgent   string        `yaml:"userAgent" json:"userAgent"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
	} `yaml:"fetch" json:"fetch"`

	Extractor struct {
		Command string `yaml:"command" json:"command"`
	} `yaml:"extractor" json:"extractor"`

	Images struct {
		MaxWidth int `yaml:"maxWidth" json:"maxWidth"`
	} `yaml:"images" json:"images"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// that are currently unset or still at their flag default. Flags should
// already have been parsed; this lets file config supply defaults while
// preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	const (
		outputDefault  = "book.epub"
		timeoutDefault = 30 * time.Second
	)

	if cfg.TargetURL == "" && fc.URL != "" {
		cfg.TargetURL = fc.URL
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == outputDefault) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if !cfg.OutputFromTitle && fc.OutputFromTitle {
		cfg.OutputFromTitle = true
	}
	if !cfg.EnablePDF && fc.EnablePDF {
		cfg.EnablePDF = true
	}
	if cfg.UserAgent == "" && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if (cfg.PerRequestTimeout == 0 || cfg.PerRequestTimeout == timeoutDefault) && fc.Fetch.Timeout > 0 {
		cfg.PerRequestTimeout = fc.Fetch.Timeout
	}
	if cfg.MaxAttempts == 0 && fc.Fetch.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Fetch.MaxAttempts
	}
	if cfg.ExtractorCommand == "" && fc.Extractor.Command != "" {
		cfg.ExtractorCommand = fc.Extractor.Command
	}
	if cfg.MaxImageWidth == 0 && fc.Images.MaxWidth > 0 {
		cfg.MaxImageWidth = fc.Images.MaxWidth
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}
