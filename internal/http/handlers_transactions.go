package http

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const allTransactionsKey = "all"

func tagKey(name string) string { return "tag:" + name }

// handleListTransactions serves GET /api/transactions, optionally filtered by
// ?tag=.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("tag") {
		s.writeTagTransactions(w, r, r.URL.Query().Get("tag"))
		return
	}

	ctx := r.Context()
	txs, err := s.listCache.GetOrLoad(allTransactionsKey, func() ([]core.Transaction, error) {
		return s.reader.GetAll(context.WithoutCancel(ctx))
	})
	if err != nil {
		writeStorageError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionsResponse(txs))
}

// handleTagTransactions serves GET /api/tags/{name}/transactions.
func (s *Server) handleTagTransactions(w http.ResponseWriter, r *http.Request) {
	s.writeTagTransactions(w, r, r.PathValue("name"))
}

func (s *Server) writeTagTransactions(w http.ResponseWriter, r *http.Request, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		writeJSON(w, r, http.StatusOK, []transactionResponse{})
		return
	}

	ctx := r.Context()
	txs, err := s.listCache.GetOrLoad(tagKey(name), func() ([]core.Transaction, error) {
		return s.reader.GetByTag(context.WithoutCancel(ctx), name)
	})
	if err != nil {
		writeStorageError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionsResponse(txs))
}

// handleGetTransaction serves GET /api/transactions/{id}.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeStorageError(w, r, log.OpRead, err)
		return
	}
	t, err := s.reader.Get(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionResponse(t))
}

// handleCreateTransaction serves POST /api/transactions.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeStorageError(w, r, log.OpCreate, err)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeStorageError(w, r, log.OpCreate, err)
		return
	}

	id, err := s.writer.Create(r.Context(), t)
	// A failed write may still have touched the database; drop cached reads
	// either way.
	s.invalidate()
	if err != nil {
		writeStorageError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, createdResponse{ID: id, Message: "Transaction added successfully"})
}

// handleDeleteTransaction serves DELETE /api/transactions/{id}. A missing id
// is still a success.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeStorageError(w, r, log.OpDelete, err)
		return
	}

	_, err = s.writer.Delete(r.Context(), id)
	s.invalidate()
	if err != nil {
		writeStorageError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Transaction deleted successfully"})
}

// handleListTags serves GET /api/tags.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tags, err := s.tagsCache.GetOrLoad(allTransactionsKey, func() ([]core.TagCount, error) {
		return s.reader.ListTags(context.WithoutCancel(ctx))
	})
	if err != nil {
		writeStorageError(w, r, log.OpList, err)
		return
	}

	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagResponse{Name: t.Name, Count: t.Count})
	}
	writeJSON(w, r, http.StatusOK, out)
}
