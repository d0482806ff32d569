// Package export captures a rendered resume as a raster image and emits it as
// PDF or PNG, slicing tall captures across fixed-size pages.
package export

import (
	"errors"
	"fmt"
)

var (
	// ErrCaptureTargetMissing means the capture element is not part of the rendered page.
	ErrCaptureTargetMissing = errors.New("capture target not found in rendered surface")
	// ErrBlankCapture means rasterization produced no usable image data.
	ErrBlankCapture = errors.New("capture produced a blank image")
	// ErrInvalidGeometry means a page or image dimension was not positive.
	ErrInvalidGeometry = errors.New("image and page dimensions must be positive")
	// ErrUnknownFormat means the requested export format is not supported.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Error records which pipeline stage failed.
type Error struct {
	Stage string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s failed: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
