package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docoutline/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleListDocuments lists indexed outlines, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		jsonError(w, "document index unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	docs, err := s.index.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleGetDocument returns the stored outline for a document.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		jsonError(w, "document index unavailable", http.StatusServiceUnavailable)
		return
	}
	rec, err := s.index.Get(r.Context(), chi.URLParam(r, "docID"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteDocument removes a document from the index. Copies already
// written to sinks are left alone.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		jsonError(w, "document index unavailable", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	err := s.index.Delete(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("document deleted", "doc_id", docID)
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}
