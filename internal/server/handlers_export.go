package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/rendering"
)

// handleLayout returns the structured preview of the current document.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, rendering.Render(sess.Document()))
}

// handlePreview returns the preview page, the same HTML the exporter captures.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	html, err := rendering.RenderHTML(rendering.Render(sess.Document()))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		log.Printf("[SERVER] failed to write preview: %v", err)
	}
}

// handleExport renders the current document and downloads it as
// ?format=pdf|pdf-single|png. One export per session runs at a time.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	doc, err := sess.BeginExport()
	if err != nil {
		s.failure(w, r, err)
		return
	}
	defer sess.EndExport()

	html, err := rendering.RenderHTML(rendering.Render(doc))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	blob, err := s.exporter.Export(r.Context(), export.Surface{
		HTML:     html,
		Selector: rendering.CaptureSelector,
		Name:     "resume",
	}, format)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	if s.verbose {
		log.Printf("[EXPORT] session %s: %s, %d page(s), %d bytes", sess.ID, blob.Filename, blob.Pages, len(blob.Data))
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blob.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("X-Export-Pages", strconv.Itoa(blob.Pages))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		log.Printf("[EXPORT] failed to write %s: %v", blob.Filename, err)
	}
}
