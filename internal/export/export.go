package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Format is an export output kind.
type Format string

// Format constants
const (
	FormatPDF       Format = "pdf"
	FormatPDFSingle Format = "pdf-single"
	FormatPNG       Format = "png"
)

// ParseFormat converts a raw string into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatPDFSingle, FormatPNG:
		return f, nil
	case "":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatPNG {
		return "png"
	}
	return "pdf"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "application/pdf"
}

// Surface is a rendered page and the element to capture from it.
type Surface struct {
	HTML     string
	Selector string
	Name     string
}

// Blob is a finished export file.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
	Pages       int
}

// Options tunes the exporter.
type Options struct {
	// Scale is the oversampling factor; values below 2 are raised to 2.
	Scale float64
	// PageWidth and PageHeight are the physical page size in millimetres.
	PageWidth  float64
	PageHeight float64
	Verbose    bool
}

// DefaultOptions returns A4 portrait at 2x oversampling.
func DefaultOptions() Options {
	return Options{Scale: 2, PageWidth: A4WidthMM, PageHeight: A4HeightMM}
}

// Exporter runs the rasterize -> paginate -> assemble pipeline.
type Exporter struct {
	rasterizer Rasterizer
	opts       Options
}

// New creates an Exporter around a rasterizer.
func New(r Rasterizer, opts Options) *Exporter {
	if opts.Scale < 2 {
		opts.Scale = 2
	}
	if opts.PageWidth <= 0 || opts.PageHeight <= 0 {
		opts.PageWidth, opts.PageHeight = A4WidthMM, A4HeightMM
	}
	return &Exporter{rasterizer: r, opts: opts}
}

// Export captures the surface and emits it in the requested format. Nothing
// is returned unless every stage succeeded.
func (e *Exporter) Export(ctx context.Context, surface Surface, format Format) (*Blob, error) {
	switch format {
	case FormatPDF, FormatPDFSingle, FormatPNG:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if e.rasterizer == nil {
		return nil, &Error{Stage: "rasterize", Cause: errors.New("no rasterizer configured")}
	}

	if err := checkTarget(surface.HTML, surface.Selector); err != nil {
		return nil, &Error{Stage: "capture", Cause: err}
	}

	raw, err := e.rasterizer.Rasterize(ctx, surface.HTML, surface.Selector, e.opts.Scale)
	if err != nil {
		return nil, &Error{Stage: "rasterize", Cause: err}
	}

	capture, err := decodeCapture(raw)
	if err != nil {
		return nil, &Error{Stage: "capture", Cause: err}
	}
	if e.opts.Verbose {
		log.Printf("[EXPORT] Capture %dx%d px, format %s", capture.Width, capture.Height, format)
	}

	blob := &Blob{
		ContentType: format.ContentType(),
		Filename:    filename(surface.Name, format),
	}

	switch format {
	case FormatPNG:
		blob.Data = capture.PNG
		blob.Pages = 1

	case FormatPDFSingle:
		data, err := buildSinglePagePDF(capture, e.opts.PageWidth)
		if err != nil {
			return nil, &Error{Stage: "assemble", Cause: err}
		}
		blob.Data = data
		blob.Pages = 1

	case FormatPDF:
		plan, err := Paginate(capture.Width, capture.Height, e.opts.PageWidth, e.opts.PageHeight)
		if err != nil {
			return nil, &Error{Stage: "paginate", Cause: err}
		}
		data, err := buildMultiPagePDF(capture, plan)
		if err != nil {
			return nil, &Error{Stage: "assemble", Cause: err}
		}
		blob.Data = data
		blob.Pages = len(plan.Pages)
	}

	return blob, nil
}

func filename(name string, format Format) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "resume"
	}
	return name + "." + format.Extension()
}
