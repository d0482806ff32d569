package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/export"
)

// fakeRasterizer returns a striped image so captures are never blank.
type fakeRasterizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, html, selector string, _ float64) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	img := image.NewRGBA(image.Rect(0, 0, 400, 900))
	for y := 0; y < 900; y++ {
		c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		if (y/30)%2 == 0 {
			c = color.RGBA{R: 30, G: 30, B: 30, A: 255}
		}
		for x := 0; x < 400; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func useRasterizer(t *testing.T, r export.Rasterizer) {
	t.Helper()
	old := newRasterizer
	newRasterizer = func(*config.Config) export.Rasterizer { return r }
	t.Cleanup(func() { newRasterizer = old })
}

func resetExportFlags(t *testing.T, outDir string) {
	t.Helper()
	withVar(t, &exportInFile, "")
	withVar(t, &exportFormats, "pdf")
	withVar(t, &exportOutDir, outDir)
	withVar(t, &exportName, "resume")
	withVar(t, &configPath, "")
	withVar(t, &verbose, false)
}

func TestRunExport_PDFAndPNG(t *testing.T) {
	dir := t.TempDir()
	resetExportFlags(t, dir)
	withVar(t, &exportFormats, "pdf,png")
	raster := &fakeRasterizer{}
	useRasterizer(t, raster)

	cmd, _ := newTestCommand(t)
	require.NoError(t, runExport(cmd, nil))

	pdf, err := os.ReadFile(filepath.Join(dir, "resume.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	pngData, err := os.ReadFile(filepath.Join(dir, "resume.png"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(pngData))
	assert.NoError(t, err)

	assert.Equal(t, 2, raster.calls)
}

func TestRunExport_FailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	resetExportFlags(t, dir)
	withVar(t, &exportFormats, "pdf,png")
	useRasterizer(t, &fakeRasterizer{err: errors.New("browser crashed")})

	cmd, _ := newTestCommand(t)
	err := runExport(cmd, nil)
	require.Error(t, err)

	var exportErr *export.Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "rasterize", exportErr.Stage)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunExport_CustomName(t *testing.T) {
	dir := t.TempDir()
	resetExportFlags(t, dir)
	withVar(t, &exportName, "jane-doe")
	useRasterizer(t, &fakeRasterizer{})

	cmd, _ := newTestCommand(t)
	require.NoError(t, runExport(cmd, nil))

	assert.FileExists(t, filepath.Join(dir, "jane-doe.pdf"))
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []export.Format
		wantErr bool
	}{
		{name: "single", input: "pdf", want: []export.Format{export.FormatPDF}},
		{name: "two with spaces", input: " png , pdf ", want: []export.Format{export.FormatPNG, export.FormatPDF}},
		{name: "duplicates dropped", input: "png,PNG", want: []export.Format{export.FormatPNG}},
		{name: "pdf variants collide", input: "pdf,pdf-single", wantErr: true},
		{name: "unknown", input: "docx", wantErr: true},
		{name: "empty", input: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFormats(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
