// core/checkpoint/checkpoint.go

// Package checkpoint persists the analysis object between refinement
// rounds. Each round's pre-removal state is written before the next subset
// is taken, so intermediate states stay recoverable.
package checkpoint

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// envelope format
const (
	magic   = "SCELLCKPT"
	version = 1
)

type envelope struct {
	Magic   string
	Version int
}

// Save writes the value as a versioned gob checkpoint, atomically (temp
// file + rename).
func Save(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ckpt-*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	bw := bufio.NewWriter(tmp)
	enc := gob.NewEncoder(bw)
	if err := enc.Encode(envelope{Magic: magic, Version: version}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint written by Save into v (a pointer).
func Load(path string, v any) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return Read(bufio.NewReader(fh), v)
}

// Read decodes a checkpoint stream into v.
func Read(r io.Reader, v any) error {
	dec := gob.NewDecoder(r)
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("checkpoint: not a checkpoint file: %w", err)
	}
	if env.Magic != magic {
		return fmt.Errorf("checkpoint: bad magic %q", env.Magic)
	}
	if env.Version != version {
		return fmt.Errorf("checkpoint: unsupported format version %d (want %d)", env.Version, version)
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("checkpoint: decode: %w", err)
	}
	return nil
}
