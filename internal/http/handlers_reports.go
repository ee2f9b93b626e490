package http

import (
	"net/http"

	"fintrack/internal/log"
)

// handleSummary serves GET /api/summary?from=&to=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	dr, err := ParseDateRange(r.URL.Query())
	if err != nil {
		writeStorageError(w, r, log.OpRead, err)
		return
	}
	sum, err := s.reader.Summary(r.Context(), dr)
	if err != nil {
		writeStorageError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSummaryResponse(sum, s.currency))
}

// handleDailyTotals serves GET /api/daily-totals?from=&to=.
func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	dr, err := ParseDateRange(r.URL.Query())
	if err != nil {
		writeStorageError(w, r, log.OpRead, err)
		return
	}
	totals, err := s.reader.DailyTotals(r.Context(), dr)
	if err != nil {
		writeStorageError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newDailyTotalsResponse(totals))
}
