package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-builder/internal/types"
)

// newTestCommand returns a command whose output is captured.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

// withVar sets a package-level flag variable for the duration of a test.
func withVar[T any](t *testing.T, dst *T, v T) {
	t.Helper()
	old := *dst
	*dst = v
	t.Cleanup(func() { *dst = old })
}

// writeDocument stores doc as JSON in a temp dir and returns its path.
func writeDocument(t *testing.T, doc types.Document) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func decodeDocument(t *testing.T, data []byte) types.Document {
	t.Helper()
	var doc types.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}
