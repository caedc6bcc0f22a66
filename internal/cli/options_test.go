// internal/cli/options_test.go
package cli

import (
	"flag"
	"testing"
)

func newFS() *flag.FlagSet { return flag.NewFlagSet("test", flag.ContinueOnError) }

func mustParse(t *testing.T, args ...string) Options {
	t.Helper()
	opts, err := ParseArgs(newFS(), args)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	return opts
}

func TestFirstRoundOK(t *testing.T) {
	o := mustParse(t,
		"--matrix", "expr.tsv",
		"--metadata", "cells.tsv",
	)
	if o.MatrixFile != "expr.tsv" || o.Resume != "" {
		t.Errorf("want matrix input only, got %+v", o)
	}
	if o.PCs != -1 || o.Resolution != -1 {
		t.Errorf("untouched parameters must stay at the sentinel: %+v", o)
	}
}

func TestResumeWithDropOK(t *testing.T) {
	o := mustParse(t,
		"--resume", "run/round1.ckpt",
		"--drop-cluster", "3",
		"--pcs", "11",
	)
	if o.Resume != "run/round1.ckpt" || o.DropCluster != 3 || o.PCs != 11 {
		t.Errorf("bad resume parse %+v", o)
	}
}

func TestErrorMutualExclusion(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{
		"--matrix", "expr.tsv", "--metadata", "cells.tsv",
		"--resume", "x.ckpt",
	})
	if err == nil {
		t.Fatal("expected mutual-exclusion error")
	}
}

func TestErrorNoInput(t *testing.T) {
	if _, err := ParseArgs(newFS(), []string{"--quiet"}); err == nil {
		t.Fatal("expected error with no input")
	}
}

func TestErrorMatrixWithoutMetadata(t *testing.T) {
	if _, err := ParseArgs(newFS(), []string{"--matrix", "expr.tsv"}); err == nil {
		t.Fatal("expected error: --matrix requires --metadata")
	}
}

func TestErrorDropOnFirstRound(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{
		"--matrix", "expr.tsv", "--metadata", "cells.tsv",
		"--drop-cluster", "0",
	})
	if err == nil {
		t.Fatal("expected error: drop-cluster needs a previous round")
	}
}

func TestErrorBadOutput(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{
		"--matrix", "expr.tsv", "--metadata", "cells.tsv",
		"--output", "xml",
	})
	if err == nil {
		t.Fatal("expected invalid output format error")
	}
}

func TestVersionSkipsValidation(t *testing.T) {
	o, err := ParseArgs(newFS(), []string{"--version"})
	if err != nil || !o.Version {
		t.Fatalf("version parse: %+v, %v", o, err)
	}
}

func TestAliases(t *testing.T) {
	o := mustParse(t,
		"-m", "expr.tsv", "--metadata", "cells.tsv",
		"-o", "outdir", "-t", "4", "-q",
	)
	if o.MatrixFile != "expr.tsv" || o.OutDir != "outdir" || o.Threads != 4 || !o.Quiet {
		t.Errorf("alias parse failed: %+v", o)
	}
}
