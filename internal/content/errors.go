package content

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is returned when there is nothing to send to the collaborator.
var ErrEmptyContent = errors.New("content is empty")

// CollaboratorError represents a failed or malformed collaborator call
type CollaboratorError struct {
	Message string
	Cause   error
}

func (e *CollaboratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("collaborator call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("collaborator call failed: %s", e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}
