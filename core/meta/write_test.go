// core/meta/write_test.go
package meta

import (
	"bytes"
	"testing"
)

func TestWriteTSV(t *testing.T) {
	tab, _ := NewTable([]string{"a", "b"})
	_ = tab.SetColumn("twin", []string{"TW1", "TW2"})
	_ = tab.SetColumn("cluster", []string{"0", "3"})

	var buf bytes.Buffer
	if err := tab.WriteTSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := "barcode\ttwin\tcluster\na\tTW1\t0\nb\tTW2\t3\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
