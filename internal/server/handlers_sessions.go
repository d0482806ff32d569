package server

import (
	"bytes"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/session"
	"github.com/jonathan/resume-builder/internal/types"
)

// SessionResponse is the full view of one editing session.
type SessionResponse struct {
	ID       uuid.UUID      `json:"id"`
	Document types.Document `json:"document"`
	Status   session.Status `json:"status"`
}

// DocumentResponse is returned by every edit.
type DocumentResponse struct {
	Document types.Document `json:"document"`
}

// TemplateRequest selects the presentation template.
type TemplateRequest struct {
	Template string `json:"template" validate:"required"`
}

func (s *Server) sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{ID: sess.ID, Document: sess.Document(), Status: sess.Status()}
}

// lookupSession resolves {id} for the authenticated caller. Sessions owned
// by someone else are reported as not found.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid session ID")
		return nil, false
	}

	sess, err := s.store.Get(id, userID)
	if err != nil {
		s.failure(w, r, err)
		return nil, false
	}
	return sess, true
}

// readDocument parses an optional document body. An empty body yields the
// seed document.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (types.Document, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return types.Document{}, &ErrValidation{Field: "body", Message: "request body too large"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resume.Seed(), nil
	}
	return schemas.ParseDocument(data)
}

// handleCreateSession starts a session from the posted document or the seed.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doc, err := s.readDocument(w, r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	sess := s.store.Create(types.Identity{ID: userID}, doc)
	s.jsonResponse(w, http.StatusCreated, s.sessionResponse(sess))
}

// handleListSessions lists the caller's session IDs.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ids := s.store.List(userID)
	s.jsonResponse(w, http.StatusOK, map[string]any{"sessions": ids, "count": len(ids)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(sess.ID, sess.Owner); err != nil {
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReplaceDocument imports a whole document into the session.
func (s *Server) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "body", Message: "request body too large"})
		return
	}
	doc, err := schemas.ParseDocument(data)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	sess.Replace(doc)
	s.jsonResponse(w, http.StatusOK, DocumentResponse{Document: sess.Document()})
}

// handleSetField applies one field edit.
func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req types.SetFieldRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.failure(w, r, extractValidationErrors(err))
		return
	}

	doc, err := sess.SetField(req.Section, req.Index, req.Field, req.Value)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, DocumentResponse{Document: doc})
}

func (s *Server) handleSetTemplate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.failure(w, r, extractValidationErrors(err))
		return
	}

	doc, err := sess.SetTemplate(types.Template(req.Template))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, DocumentResponse{Document: doc})
}

// handleAddEntry appends an entry to {section}. A blank skill name leaves
// the document unchanged and still answers 200.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req types.AddEntryRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.failure(w, r, err)
		return
	}

	doc, err := sess.AddEntry(types.Section(r.PathValue("section")), req.Fields)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, DocumentResponse{Document: doc})
}

// handleRemoveEntry deletes {entry_id} from {section}. Unknown ids are a no-op.
func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	doc, err := sess.RemoveEntry(types.Section(r.PathValue("section")), r.PathValue("entry_id"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, DocumentResponse{Document: doc})
}
