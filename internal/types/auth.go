// Package types provides type definitions for structured data used throughout the resume-builder system.
package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Identity is the signed-in user as reported by the identity provider.
// The editor only ever sees the ID; the Document never references it.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Subject     string    `json:"subject"`
	Provider    string    `json:"provider"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
}

// AuthState mirrors what the editor shell needs to gate access.
type AuthState struct {
	User      *Identity `json:"user"`
	IsLoading bool      `json:"isLoading"`
	Error     string    `json:"error,omitempty"`
}

// BeginAuthRequest starts a sign-in. Phone is required for the OTP strategy.
type BeginAuthRequest struct {
	Phone       string `json:"phone,omitempty" validate:"omitempty,e164"`
	RedirectURL string `json:"redirect_url,omitempty" validate:"omitempty,url"`
}

// CompleteAuthRequest finishes a sign-in started by BeginAuthRequest. Which
// fields are needed depends on the strategy.
type CompleteAuthRequest struct {
	State string `json:"state,omitempty" validate:"omitempty,max=256"`
	Code  string `json:"code,omitempty" validate:"omitempty,max=2048"`
	Phone string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// LoginResponse represents the sign-in response with identity and session token.
type LoginResponse struct {
	User  *Identity `json:"user"`
	Token string    `json:"token"`
}

// Validate validates the BeginAuthRequest using the validator.
func (r *BeginAuthRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CompleteAuthRequest using the validator.
func (r *CompleteAuthRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
