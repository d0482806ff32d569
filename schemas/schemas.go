// Package schemas holds the JSON Schemas for documents exchanged with the service.
package schemas

import _ "embed"

// Document is the JSON Schema of an importable resume document.
//
//go:embed document.schema.json
var Document string
