// core/expr/gob.go
package expr

import (
	"bytes"
	"encoding/gob"

	"gonum.org/v1/gonum/mat"
)

// matrixWire is the gob envelope for Matrix. *mat.Dense serializes through
// its BinaryMarshaler implementation.
type matrixWire struct {
	Genes []string
	Cells []string
	Data  *mat.Dense
}

func (m *Matrix) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(matrixWire{Genes: m.genes, Cells: m.cells, Data: m.data})
	return buf.Bytes(), err
}

func (m *Matrix) GobDecode(b []byte) error {
	var w matrixWire
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	nm, err := New(w.Genes, w.Cells, w.Data)
	if err != nil {
		return err
	}
	*m = *nm
	return nil
}
