// core/meta/open.go
package meta

import (
	"compress/gzip"
	"io"
	"os"
	"strings"
)

// openReader mirrors the matrix loader: gzip by suffix, "-" for stdin.
func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &gzipReadCloser{gr: gr, fh: fh}, nil
	}
	return fh, nil
}

type gzipReadCloser struct {
	gr *gzip.Reader
	fh *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gr.Read(p) }

func (g *gzipReadCloser) Close() error {
	err := g.gr.Close()
	if cerr := g.fh.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
