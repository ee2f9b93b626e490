package receipt

import (
	"context"
	"errors"
	"testing"
)

func TestExtractTotal(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		total string
		found bool
	}{
		{"subtotal is not total", "Subtotal 10.00\nTotal RM 25.50", "25.50", true},
		{"rm line", "Nasi lemak\nRM 7.5 paid", "5.00", true},
		{"rm two decimals", "Item 1\nRM 12.90", "12.90", true},
		{"integer", "TOTAL 42", "42.00", true},
		{"last number wins", "Total items 3 amount 18.40", "18.40", true},
		{"trailing text", "Total: 9.99 MYR", "9.99", true},
		{"three decimals", "Total 1.234", "234.00", true},
		{"first candidate only", "Total due\nRM 25.50", "", false},
		{"no candidate", "Coffee 3.20\nCake 4.80", "", false},
		{"empty", "", "", false},
		{"lowercase rm ignored", "rm 5.00", "", false},
		{"crlf", "Grand Total 15.00\r\n", "15.00", true},
	}
	for _, tc := range cases {
		total, found := ExtractTotal(tc.in)
		if found != tc.found || total != tc.total {
			t.Fatalf("%s: expected (%q, %v), got (%q, %v)", tc.name, tc.total, tc.found, total, found)
		}
	}
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	return f.text, f.err
}

func TestScanner(t *testing.T) {
	ctx := context.Background()

	s := NewScanner(fakeRecognizer{text: "Shop\nTotal RM 25.50"})
	res, err := s.FromImage(ctx, []byte{1}, "image/png")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !res.Found || res.Total != "25.50" {
		t.Fatalf("unexpected result %+v", res)
	}

	s = NewScanner(fakeRecognizer{err: ErrRecognition})
	if _, err := s.FromImage(ctx, []byte{1}, "image/png"); !errors.Is(err, ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}

	s = NewScanner(nil)
	if _, err := s.FromImage(ctx, []byte{1}, "image/png"); !errors.Is(err, ErrNoRecognizer) {
		t.Fatalf("expected ErrNoRecognizer, got %v", err)
	}
	if res := s.FromText("Total 3"); !res.Found || res.Total != "3.00" {
		t.Fatalf("text path should work without recognizer, got %+v", res)
	}
}
