// core/meta/table.go
package meta

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Columns every metadata file must carry (beyond the barcode key). Extra
// columns are kept as-is.
var RequiredColumns = []string{"twin", "case", "sample", "sort", "clone"}

// Table is a per-cell attribute table keyed by barcode. Values are stored
// as strings; typed setters format derived columns (nGene, percent_mito,
// cluster, embedding coordinates) on attach.
type Table struct {
	cells   []string
	cellIdx map[string]int
	cols    []string
	values  map[string][]string
}

// NewTable builds an empty table over the given barcodes.
func NewTable(cells []string) (*Table, error) {
	idx := make(map[string]int, len(cells))
	for i, c := range cells {
		if c == "" {
			return nil, fmt.Errorf("meta: empty barcode at position %d", i)
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("meta: duplicate barcode %q", c)
		}
		idx[c] = i
	}
	return &Table{
		cells:   append([]string(nil), cells...),
		cellIdx: idx,
		values:  map[string][]string{},
	}, nil
}

func (t *Table) NCells() int      { return len(t.cells) }
func (t *Table) Cells() []string  { return t.cells }
func (t *Table) Columns() []string { return t.cols }

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.values[name]
	return ok
}

// SetColumn installs or replaces a column; vals must align with Cells().
func (t *Table) SetColumn(name string, vals []string) error {
	if len(vals) != len(t.cells) {
		return fmt.Errorf("meta: column %q has %d values for %d cells", name, len(vals), len(t.cells))
	}
	if _, ok := t.values[name]; !ok {
		t.cols = append(t.cols, name)
	}
	t.values[name] = append([]string(nil), vals...)
	return nil
}

// SetFloatColumn formats a float column with compact precision.
func (t *Table) SetFloatColumn(name string, vals []float64) error {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return t.SetColumn(name, s)
}

// SetIntColumn formats an integer column.
func (t *Table) SetIntColumn(name string, vals []int) error {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.Itoa(v)
	}
	return t.SetColumn(name, s)
}

// Column returns the values of a column aligned with Cells().
func (t *Table) Column(name string) ([]string, error) {
	v, ok := t.values[name]
	if !ok {
		return nil, fmt.Errorf("meta: no column %q", name)
	}
	return v, nil
}

// Value returns one cell's value in a column.
func (t *Table) Value(barcode, column string) (string, error) {
	i, ok := t.cellIdx[barcode]
	if !ok {
		return "", fmt.Errorf("meta: unknown barcode %q", barcode)
	}
	col, err := t.Column(column)
	if err != nil {
		return "", err
	}
	return col[i], nil
}

// Subset returns a new table restricted to the given barcodes, in order.
func (t *Table) Subset(barcodes []string) (*Table, error) {
	nt, err := NewTable(barcodes)
	if err != nil {
		return nil, err
	}
	rows := make([]int, len(barcodes))
	for k, b := range barcodes {
		i, ok := t.cellIdx[b]
		if !ok {
			return nil, fmt.Errorf("meta: barcode %q not in table", b)
		}
		rows[k] = i
	}
	for _, c := range t.cols {
		src := t.values[c]
		vals := make([]string, len(rows))
		for k, i := range rows {
			vals[k] = src[i]
		}
		if err := nt.SetColumn(c, vals); err != nil {
			return nil, err
		}
	}
	return nt, nil
}

// Levels returns the distinct values of a column, sorted.
func (t *Table) Levels(column string) ([]string, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, v := range col {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadTSV reads a whitespace/tab-delimited metadata table whose first
// column is the cell barcode. A header row names the remaining columns and
// may or may not carry a label for the barcode column itself.
func LoadTSV(path string) (*Table, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)

	var header []string
	var cells []string
	var rows [][]string
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		f := strings.Fields(line)
		if header == nil {
			header = f
			continue
		}
		want := len(header) + 1
		switch {
		case len(f) == want:
			// barcode + values
		case len(f) == want-1 && len(rows) == 0:
			// header included a barcode label; only the first data row may
			// establish that, later short rows are malformed input
			header = header[1:]
		default:
			return nil, fmt.Errorf("%s:%d: %d fields, want %d", path, ln, len(f), want)
		}
		cells = append(cells, f[0])
		rows = append(rows, f[1:])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if header == nil {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%s: no metadata rows", path)
	}

	t, err := NewTable(cells)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	for j, name := range header {
		vals := make([]string, len(rows))
		for i, r := range rows {
			vals[i] = r[j]
		}
		if err := t.SetColumn(name, vals); err != nil {
			return nil, err
		}
	}
	for _, req := range RequiredColumns {
		if !t.HasColumn(req) {
			return nil, fmt.Errorf("%s: missing required column %q (have %v)", path, req, header)
		}
	}
	return t, nil
}
