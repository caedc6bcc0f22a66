// internal/writers/json.go
package writers

import (
	"encoding/json"
	"io"
)

// EncodePretty writes v as indented JSON to w.
func EncodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	RegisterMarker("json", func(w io.Writer, data interface{}) error {
		return EncodePretty(w, data)
	})
	RegisterClusterQC("json", func(w io.Writer, data interface{}) error {
		return EncodePretty(w, data)
	})
	RegisterEmbedding("json", func(w io.Writer, data interface{}) error {
		return EncodePretty(w, data)
	})
}
