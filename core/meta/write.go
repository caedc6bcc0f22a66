// core/meta/write.go
package meta

import (
	"fmt"
	"io"
	"strings"
)

// WriteTSV renders the table with a barcode column followed by every
// column in insertion order.
func (t *Table) WriteTSV(w io.Writer) error {
	header := append([]string{"barcode"}, t.cols...)
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, cell := range t.cells {
		row[0] = cell
		for c, col := range t.cols {
			row[c+1] = t.values[col][i]
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}
