// Package resume implements the pure edit operations applied to a resume Document.
package resume

import (
	"errors"
	"fmt"
)

// ErrUnknownSection is returned when an edit targets a section the operation does not support.
var ErrUnknownSection = errors.New("unknown section")

// SectionError wraps ErrUnknownSection with the offending section name.
type SectionError struct {
	Section string
	Op      string
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s: %v %q", e.Op, ErrUnknownSection, e.Section)
}

func (e *SectionError) Unwrap() error {
	return ErrUnknownSection
}
