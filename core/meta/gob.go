// core/meta/gob.go
package meta

import (
	"bytes"
	"encoding/gob"
)

type tableWire struct {
	Cells  []string
	Cols   []string
	Values map[string][]string
}

func (t *Table) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(tableWire{Cells: t.cells, Cols: t.cols, Values: t.values})
	return buf.Bytes(), err
}

func (t *Table) GobDecode(b []byte) error {
	var w tableWire
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	nt, err := NewTable(w.Cells)
	if err != nil {
		return err
	}
	for _, c := range w.Cols {
		if err := nt.SetColumn(c, w.Values[c]); err != nil {
			return err
		}
	}
	*t = *nt
	return nil
}
