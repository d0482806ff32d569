package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rasterizer captures one element of an HTML page as a PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, html, selector string, scale float64) ([]byte, error)
}

// Capture is a decoded raster ready for pagination.
type Capture struct {
	PNG    []byte
	Width  int
	Height int
}

// checkTarget verifies the surface contains the capture element before a
// browser is started for it.
func checkTarget(html, selector string) error {
	if strings.TrimSpace(html) == "" {
		return ErrCaptureTargetMissing
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse surface: %w", err)
	}
	if doc.Find(selector).Length() == 0 {
		return ErrCaptureTargetMissing
	}
	return nil
}

// decodeCapture validates raw raster bytes. Empty data, undecodable data,
// zero-sized images and single-colour images are all blank captures.
func decodeCapture(data []byte) (*Capture, error) {
	if len(data) == 0 {
		return nil, ErrBlankCapture
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlankCapture, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrBlankCapture
	}
	if isUniform(img) {
		return nil, ErrBlankCapture
	}

	// fpdf only needs one encoding; normalise anything that is not PNG.
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to re-encode capture: %w", err)
		}
		data = buf.Bytes()
	}

	return &Capture{PNG: data, Width: b.Dx(), Height: b.Dy()}, nil
}

func isUniform(img image.Image) bool {
	b := img.Bounds()
	r0, g0, b0, a0 := img.At(b.Min.X, b.Min.Y).RGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != r0 || g != g0 || bl != b0 || a != a0 {
				return false
			}
		}
	}
	return true
}
