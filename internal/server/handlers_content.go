package server

import (
	"log"
	"net/http"

	"github.com/jonathan/resume-builder/internal/types"
)

// RefineResponse reports a refinement and the document after it.
type RefineResponse struct {
	types.RefineResult
	Document types.Document `json:"document"`
}

// SummaryResponse reports a generated summary and the document after it.
type SummaryResponse struct {
	Summary  string         `json:"summary"`
	Document types.Document `json:"document"`
}

// handleRefine refines the description of one experience entry. The entry
// stays editable while the call runs; the result lands on the entry by id.
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if s.content == nil {
		s.failure(w, r, &ErrUnavailable{Feature: "text generation"})
		return
	}

	result, err := sess.RefineExperience(r.Context(), s.content, r.PathValue("entry_id"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, RefineResponse{RefineResult: result, Document: sess.Document()})
}

// handleRefineStream is handleRefine over SSE: "refining" when the call
// starts, then "refined" and "complete", or "error".
func (s *Server) handleRefineStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if s.content == nil {
		s.failure(w, r, &ErrUnavailable{Feature: "text generation"})
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	entryID := r.PathValue("entry_id")
	if err := sse.WriteEvent("refining", map[string]string{"entry_id": entryID}); err != nil {
		log.Printf("[REFINE] client went away: %v", err)
		return
	}

	result, err := sess.RefineExperience(r.Context(), s.content, entryID)
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[REFINE] stream for %s failed: %v", entryID, err)
		}
		sse.WriteError(status, err.Error())
		return
	}

	sse.WriteEvent("refined", RefineResponse{RefineResult: result, Document: sess.Document()}) //nolint:errcheck
	sse.WriteComplete(entryID, result.Applied)
}

// handleGenerateSummary drafts the summary from experience and skills.
func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if s.content == nil {
		s.failure(w, r, &ErrUnavailable{Feature: "text generation"})
		return
	}

	summary, err := sess.GenerateSummary(r.Context(), s.content)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SummaryResponse{Summary: summary, Document: sess.Document()})
}
