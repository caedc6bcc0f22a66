// core/expr/load.go
package expr

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// LoadTSV reads a tab-delimited genes×cells matrix. The first row names the
// cell barcodes, the first column of every following row names the gene.
// Plain text, gzip, or "-" for stdin are accepted. Blank lines and lines
// starting with '#' are skipped.
func LoadTSV(path string) (*Matrix, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)

	var cells []string
	var genes []string
	var values []float64
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" || line[0] == '#' {
			continue
		}
		f := strings.Split(line, "\t")
		if cells == nil {
			// Header row. Tolerate an optional leading corner label: the
			// header then has one more field than barcodes.
			cells = f
			if len(cells) > 1 && (cells[0] == "" || strings.EqualFold(cells[0], "gene")) {
				cells = cells[1:]
			}
			cells = append([]string(nil), cells...)
			continue
		}
		if len(f) != len(cells)+1 {
			return nil, fmt.Errorf("%s:%d: %d fields, want %d (gene + %d cells)", path, ln, len(f), len(cells)+1, len(cells))
		}
		genes = append(genes, f[0])
		for _, s := range f[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad value %q: %v", path, ln, s, err)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("%s: no expression rows", path)
	}
	return NewFromValues(genes, cells, values)
}

// NewFromValues builds a matrix from row-major values (genes×cells).
func NewFromValues(genes, cells []string, values []float64) (*Matrix, error) {
	if len(values) != len(genes)*len(cells) {
		return nil, fmt.Errorf("expr: %d values for %d genes × %d cells", len(values), len(genes), len(cells))
	}
	return New(genes, cells, mat.NewDense(len(genes), len(cells), values))
}
