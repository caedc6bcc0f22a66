// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
)

// Writer registries (format → handler). Registered from init() blocks in
// the per-table writer files.
var (
	MarkerWriters    = map[string]func(w io.Writer, data interface{}) error{}
	ClusterQCWriters = map[string]func(w io.Writer, data interface{}) error{}
	EmbeddingWriters = map[string]func(w io.Writer, data interface{}) error{}
)

// Register helpers (idempotent last-wins).
func RegisterMarker(format string, fn func(io.Writer, interface{}) error)    { MarkerWriters[format] = fn }
func RegisterClusterQC(format string, fn func(io.Writer, interface{}) error) { ClusterQCWriters[format] = fn }
func RegisterEmbedding(format string, fn func(io.Writer, interface{}) error) { EmbeddingWriters[format] = fn }

// Dispatch helpers.
func WriteMarkers(format string, w io.Writer, payload interface{}) error {
	fn, ok := MarkerWriters[format]
	if !ok {
		return fmt.Errorf("unknown marker format %q (no writer registered)", format)
	}
	return fn(w, payload)
}

func WriteClusterQC(format string, w io.Writer, payload interface{}) error {
	fn, ok := ClusterQCWriters[format]
	if !ok {
		return fmt.Errorf("unknown cluster-qc format %q (no writer registered)", format)
	}
	return fn(w, payload)
}

func WriteEmbedding(format string, w io.Writer, payload interface{}) error {
	fn, ok := EmbeddingWriters[format]
	if !ok {
		return fmt.Errorf("unknown embedding format %q (no writer registered)", format)
	}
	return fn(w, payload)
}
