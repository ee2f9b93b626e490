// Package http provides HTTP server and handler implementations.
//
// This file holds the JSON response shapes and the single place where errors
// are mapped to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/receipt"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

// transactionResponse is a transaction as the dashboard reads it. Amounts
// are JSON numbers with exactly two decimals.
type transactionResponse struct {
	ID     int64       `json:"id"`
	Title  string      `json:"title"`
	Amount json.Number `json:"amount"`
	Type   core.Kind   `json:"type"`
	Date   string      `json:"date"`
	Tags   []string    `json:"tags"`
}

type tagResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type summaryResponse struct {
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Income  json.Number    `json:"income"`
	Expense json.Number    `json:"expense"`
	Balance json.Number    `json:"balance"`
	Count   int            `json:"count"`
	Display summaryDisplay `json:"display"`
}

// summaryDisplay carries the same figures formatted in the display currency.
type summaryDisplay struct {
	Currency string `json:"currency"`
	Income   string `json:"income"`
	Expense  string `json:"expense"`
	Balance  string `json:"balance"`
}

type dailyTotalResponse struct {
	Date    string      `json:"date"`
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Net     json.Number `json:"net"`
}

type receiptResponse struct {
	Found bool   `json:"found"`
	Total string `json:"total,omitempty"`
	Text  string `json:"text,omitempty"`
}

type createdResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func amountNumber(d decimal.Decimal) json.Number {
	return json.Number(core.FormatAmount(d))
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionResponse{
		ID:     t.ID,
		Title:  t.Title,
		Amount: amountNumber(t.Amount),
		Type:   t.Kind,
		Date:   t.Date.String(),
		Tags:   tags,
	}
}

func newTransactionsResponse(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

func newSummaryResponse(s core.Summary, currency string) summaryResponse {
	return summaryResponse{
		From:    s.From.String(),
		To:      s.To.String(),
		Income:  amountNumber(s.Income),
		Expense: amountNumber(s.Expense),
		Balance: amountNumber(s.Balance()),
		Count:   s.Count,
		Display: summaryDisplay{
			Currency: currency,
			Income:   core.FormatMoney(s.Income, currency),
			Expense:  core.FormatMoney(s.Expense, currency),
			Balance:  core.FormatMoney(s.Balance(), currency),
		},
	}
}

func newDailyTotalsResponse(totals []core.DailyTotal) []dailyTotalResponse {
	out := make([]dailyTotalResponse, 0, len(totals))
	for _, dt := range totals {
		out = append(out, dailyTotalResponse{
			Date:    dt.Date.String(),
			Income:  amountNumber(dt.Income),
			Expense: amountNumber(dt.Expense),
			Net:     amountNumber(dt.Net()),
		})
	}
	return out
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to write response",
			log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeStorageError maps any handler error to its status code and logs the
// server side failures.
func writeStorageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case core.IsValidationError(err):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "transaction not found")
	case errors.Is(err, receipt.ErrNoRecognizer):
		writeError(w, r, http.StatusServiceUnavailable, "image recognition is not configured; send the receipt text instead")
	case errors.Is(err, receipt.ErrRecognition):
		logger.WarnContext(ctx, "Receipt recognition failed",
			log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeUpstream).ToSlice()...)
		writeJSON(w, r, http.StatusBadGateway, errorResponse{Error: "could not read the receipt, try again", Retryable: true})
	case ctx.Err() != nil:
		// Client went away; nobody reads the body.
		logger.InfoContext(ctx, "Request cancelled", log.FieldOperation, op)
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		logger.ErrorContext(ctx, "Request failed",
			log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
