package extract

import (
	"encoding/json"
	"fmt"
	"os"
)

// Article is the purified article record produced by an extractor. Every
// field is optional at the contract boundary; Validate enforces what the
// assembly step actually needs.
type Article struct {
	Title        *string `json:"title"`
	Byline       *string `json:"byline"`
	Date         *string `json:"date"`
	Content      *string `json:"content"`
	PlainContent *string `json:"plain_content"`
}

// MissingFieldError reports a required article field absent after extraction.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("article missing required field %q", e.Field)
}

// Validate checks the fields assembly depends on. It returns a
// MissingFieldError for the first absent one of title, byline, content.
// Date and plain_content stay optional.
func (a *Article) Validate() error {
	if a.Title == nil || *a.Title == "" {
		return &MissingFieldError{Field: "title"}
	}
	if a.Byline == nil || *a.Byline == "" {
		return &MissingFieldError{Field: "byline"}
	}
	if a.Content == nil || *a.Content == "" {
		return &MissingFieldError{Field: "content"}
	}
	return nil
}

// Load reads and deserializes an article record written by an extractor.
func Load(path string) (*Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read article record: %w", err)
	}
	var a Article
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode article record: %w", err)
	}
	return &a, nil
}
