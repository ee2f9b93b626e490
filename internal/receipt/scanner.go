package receipt

import (
	"context"
	"fmt"
)

// Result is the outcome of a total lookup. Text is the recognized receipt text
// so a client can show it for manual correction.
type Result struct {
	Total string
	Found bool
	Text  string
}

// Scanner combines a Recognizer with ExtractTotal. A nil recognizer still
// serves text input.
type Scanner struct {
	rec Recognizer
}

func NewScanner(rec Recognizer) *Scanner {
	return &Scanner{rec: rec}
}

// CanRecognize reports whether image input is supported.
func (s *Scanner) CanRecognize() bool {
	return s != nil && s.rec != nil
}

// FromText extracts the total from already recognized text.
func (s *Scanner) FromText(text string) Result {
	total, found := ExtractTotal(text)
	return Result{Total: total, Found: found, Text: text}
}

// FromImage recognizes the image and extracts its total.
func (s *Scanner) FromImage(ctx context.Context, image []byte, mimeType string) (Result, error) {
	if !s.CanRecognize() {
		return Result{}, ErrNoRecognizer
	}
	text, err := s.rec.Recognize(ctx, image, mimeType)
	if err != nil {
		return Result{}, fmt.Errorf("recognize receipt: %w", err)
	}
	return s.FromText(text), nil
}
