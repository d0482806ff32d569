// Package server provides the HTTP API for the resume builder.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-builder/internal/auth"
	"github.com/jonathan/resume-builder/internal/content"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/session"
	"github.com/jonathan/resume-builder/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates an optional collaborator was not configured.
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured on this server", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		unavailable   *ErrUnavailable
		fieldErr      *types.UnknownFieldError
		schemaErr     *schemas.ValidationError
		validatorErrs validator.ValidationErrors
		collabErr     *content.CollaboratorError
		providerErr   *auth.ProviderError
		exportErr     *export.Error
	)

	switch {
	case err == nil:
		return http.StatusOK

	case errors.As(err, &validationErr),
		errors.As(err, &fieldErr),
		errors.As(err, &schemaErr),
		errors.As(err, &validatorErrs),
		errors.Is(err, resume.ErrUnknownSection),
		errors.Is(err, types.ErrUnknownTemplate),
		errors.Is(err, types.ErrDuplicateID),
		errors.Is(err, session.ErrIndexOutOfRange),
		errors.Is(err, content.ErrEmptyContent),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, schemas.ErrMalformedJSON),
		errors.Is(err, auth.ErrMissingPhone),
		errors.Is(err, auth.ErrMissingCode),
		errors.Is(err, auth.ErrRedirectNotAllowed):
		return http.StatusBadRequest

	case errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrCodeExpired),
		errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusUnauthorized

	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrEntryNotFound):
		return http.StatusNotFound

	case errors.Is(err, session.ErrRefineInProgress),
		errors.Is(err, session.ErrSummaryInProgress),
		errors.Is(err, session.ErrExportInProgress):
		return http.StatusConflict

	case errors.Is(err, export.ErrCaptureTargetMissing),
		errors.Is(err, export.ErrBlankCapture),
		errors.Is(err, export.ErrInvalidGeometry):
		return http.StatusUnprocessableEntity

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable

	case errors.As(err, &collabErr), errors.As(err, &providerErr):
		return http.StatusBadGateway

	case errors.As(err, &exportErr) && exportErr.Stage == "rasterize":
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// extractValidationErrors converts validator errors into an ErrValidation.
func extractValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		// Report the first failure only
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "request", Message: "invalid request"}
}
