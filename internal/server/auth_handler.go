package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-builder/internal/auth"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/types"
)

// AuthHandler handles sign-in HTTP requests.
type AuthHandler struct {
	provider   auth.Provider
	jwtService *JWTService
	validator  *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(provider auth.Provider, jwtService *JWTService, v *validator.Validate) *AuthHandler {
	if v == nil {
		v = validator.New()
	}
	return &AuthHandler{
		provider:   provider,
		jwtService: jwtService,
		validator:  v,
	}
}

// Begin starts a sign-in with the configured strategy. The redirect
// strategy answers with a 302 to the identity provider; the others answer
// with the challenge as JSON.
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var req types.BeginAuthRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.error(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.error(w, extractValidationErrors(err))
		return
	}

	challenge, err := h.provider.Begin(r.Context(), req)
	if err != nil {
		h.error(w, err)
		return
	}

	if challenge.Redirect {
		http.Redirect(w, r, challenge.URL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// Complete finishes a sign-in and issues a session token.
func (h *AuthHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req types.CompleteAuthRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.error(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	h.complete(w, r, req)
}

// Callback is the OAuth redirect target: the provider sends the browser
// back with state and code in the query.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		log.Printf("[AUTH] sign-in rejected by provider: %s", reason)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign-in rejected: " + reason})
		return
	}
	h.complete(w, r, types.CompleteAuthRequest{
		State: q.Get("state"),
		Code:  q.Get("code"),
	})
}

func (h *AuthHandler) complete(w http.ResponseWriter, r *http.Request, req types.CompleteAuthRequest) {
	if err := h.validator.Struct(req); err != nil {
		h.error(w, extractValidationErrors(err))
		return
	}

	identity, err := h.provider.Complete(r.Context(), req)
	if err != nil {
		h.error(w, err)
		return
	}

	token, err := h.jwtService.GenerateToken(identity)
	if err != nil {
		log.Printf("[AUTH] failed to issue token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, types.LoginResponse{User: identity, Token: token})
}

// State reports the caller's sign-in state as {user, isLoading}. The
// tracker starts loading and settles on the token check, so the response
// is always settled.
func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	tracker := auth.NewTracker()

	token, ok := middleware.BearerToken(r)
	if !ok {
		tracker.Resolve(nil)
	} else if claims, err := h.jwtService.ValidateToken(token); err != nil {
		tracker.Fail(err)
	} else {
		tracker.Resolve(claims.Identity())
	}

	writeJSON(w, http.StatusOK, tracker.State())
}

func (h *AuthHandler) error(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[AUTH] %v", err)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}
