// Package auth implements the sign-in strategies that establish who is
// editing. Exactly one strategy is active, chosen by configuration.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/types"
)

var (
	// ErrUnknownStrategy means the configured strategy has no implementation.
	ErrUnknownStrategy = errors.New("unknown auth strategy")
	// ErrRedirectNotAllowed means the requested redirect URL is not configured.
	ErrRedirectNotAllowed = errors.New("redirect url not allowed")
	// ErrInvalidState means the OAuth state is unknown, used or expired.
	ErrInvalidState = errors.New("invalid or expired auth state")
	// ErrMissingPhone means an OTP request did not carry a phone number.
	ErrMissingPhone = errors.New("phone number is required")
	// ErrMissingCode means a completion request did not carry a code.
	ErrMissingCode = errors.New("code is required")
	// ErrInvalidCode means the one-time code did not match.
	ErrInvalidCode = errors.New("invalid code")
	// ErrCodeExpired means no live code exists for the phone number.
	ErrCodeExpired = errors.New("code expired or not requested")
	// ErrTooManyAttempts means the code was invalidated after repeated failures.
	ErrTooManyAttempts = errors.New("too many attempts")
)

// ProviderError represents a failure talking to the upstream identity service
type ProviderError struct {
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("identity provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("identity provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Challenge tells the client how to continue a sign-in.
type Challenge struct {
	Strategy string `json:"strategy"`
	// URL is the authorization page for redirect and popup sign-in.
	URL   string `json:"url,omitempty"`
	State string `json:"state,omitempty"`
	// Redirect asks the HTTP layer to answer with a 302 instead of JSON.
	Redirect  bool       `json:"-"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Provider is one sign-in strategy.
type Provider interface {
	Strategy() string
	Begin(ctx context.Context, req types.BeginAuthRequest) (*Challenge, error)
	Complete(ctx context.Context, req types.CompleteAuthRequest) (*types.Identity, error)
}

// Deps are the collaborators a Provider may need.
type Deps struct {
	OTP        *config.OTPConfig
	Sender     CodeSender
	HTTPClient *http.Client
}

// NewProvider builds the provider for cfg.Strategy.
func NewProvider(cfg config.AuthConfig, deps Deps) (Provider, error) {
	switch cfg.Strategy {
	case config.AuthStrategyRedirect, config.AuthStrategyPopup:
		return NewOAuthProvider(cfg, deps.HTTPClient), nil
	case config.AuthStrategyOTP:
		if deps.OTP == nil {
			return nil, fmt.Errorf("otp strategy needs an OTP config")
		}
		sender := deps.Sender
		if sender == nil {
			sender = LogSender{}
		}
		return NewOTPProvider(deps.OTP, sender), nil
	case config.AuthStrategyNone, "":
		return NoneProvider{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
}

// IdentityID derives a stable id for a provider subject, so the same person
// signing in twice gets the same id.
func IdentityID(provider, subject string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("resume-builder:"+provider+":"+subject))
}

// NoneProvider signs everyone in as one local user. Development only.
type NoneProvider struct{}

// Strategy returns "none".
func (NoneProvider) Strategy() string { return config.AuthStrategyNone }

// Begin has nothing to do.
func (NoneProvider) Begin(context.Context, types.BeginAuthRequest) (*Challenge, error) {
	return &Challenge{Strategy: config.AuthStrategyNone}, nil
}

// Complete returns the local identity.
func (NoneProvider) Complete(context.Context, types.CompleteAuthRequest) (*types.Identity, error) {
	return &types.Identity{
		ID:          IdentityID(config.AuthStrategyNone, "local"),
		Subject:     "local",
		Provider:    config.AuthStrategyNone,
		DisplayName: "Local User",
	}, nil
}
