// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request data:
// JSON bodies, path ids and date range query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

const maxJSONBody = 1 << 20

// errBadRequest marks input that could not be decoded at all, as opposed to
// decoded input that failed validation.
var errBadRequest = errors.New("bad request")

// amountInput accepts an amount as a JSON string ("25.50", "25,50") or a
// JSON number (25.5).
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = amountInput(n.String())
	return nil
}

// transactionRequest is the POST /api/transactions body.
type transactionRequest struct {
	Title  string      `json:"title"`
	Amount amountInput `json:"amount"`
	Type   string      `json:"type"`
	Date   string      `json:"date"`
	Tags   []string    `json:"tags"`
}

// toTransaction converts the request into a domain transaction. The returned
// error is always a core validation error.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	title := sanitizeInput(req.Title)
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		tags = append(tags, sanitizeInput(tag))
	}

	return core.Transaction{
		Title:  title,
		Amount: amount,
		Kind:   kind,
		Date:   date,
		Tags:   tags,
	}, nil
}

// receiptTextRequest is the JSON form of POST /api/receipts/total.
type receiptTextRequest struct {
	Text string `json:"text"`
}

// decodeJSON reads a single JSON value from the body into dst. Any failure is
// wrapped with errBadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		default:
			return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid transaction id %q", errBadRequest, raw)
	}
	return id, nil
}

// ParseDateRange reads the optional from/to query parameters. Errors wrap
// both errBadRequest and core.ErrInvalidDate.
func ParseDateRange(query url.Values) (core.DateRange, error) {
	var r core.DateRange
	for _, p := range []struct {
		name string
		dst  *core.Date
	}{{"from", &r.From}, {"to", &r.To}} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%w: %s: %w", errBadRequest, p.name, err)
		}
		*p.dst = d
	}
	if err := r.Validate(); err != nil {
		return core.DateRange{}, fmt.Errorf("%w: from is after to: %w", errBadRequest, err)
	}
	return r, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
