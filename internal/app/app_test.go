// internal/app/app_test.go
package app_test

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"scell/internal/app"
	"scell/internal/inspectapp"
	"scell/internal/markersapp"
)

// writeInputs lays down a 31-gene x 40-cell log-scale matrix with two
// expression programs, plus an aligned metadata table, plus a parameter
// file sized for a fast test run.
func writeInputs(t *testing.T, dir string) (matrix, metadata, cfg string) {
	t.Helper()

	genes := make([]string, 31)
	for i := 0; i < 30; i++ {
		genes[i] = fmt.Sprintf("G%02d", i)
	}
	genes[30] = "MT-ND1"
	cells := make([]string, 40)
	for j := range cells {
		cells[j] = fmt.Sprintf("C%02d", j)
	}

	var sb strings.Builder
	sb.WriteString("gene\t" + strings.Join(cells, "\t") + "\n")
	for i, g := range genes {
		sb.WriteString(g)
		for j := range cells {
			jitter := 0.3 * math.Sin(float64(i*7+j*13))
			v := 1.0 + jitter
			switch {
			case i < 10 && j < 20:
				v += 3
			case i >= 10 && i < 20 && j >= 20:
				v += 3
			case i == 30:
				v = 0.5 + 0.1*jitter
			}
			if v < 0 {
				v = 0
			}
			fmt.Fprintf(&sb, "\t%.4f", v)
		}
		sb.WriteString("\n")
	}
	matrix = filepath.Join(dir, "expr.tsv")
	if err := os.WriteFile(matrix, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	var mb strings.Builder
	mb.WriteString("twin\tcase\tsample\tsort\tclone\n")
	for j, c := range cells {
		pair := "TW1"
		if j >= 20 {
			pair = "TW2"
		}
		fmt.Fprintf(&mb, "%s\t%s\tMS\tS%d\tCD8\tNA\n", c, pair, j%3)
	}
	metadata = filepath.Join(dir, "cells.tsv")
	if err := os.WriteFile(metadata, []byte(mb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg = filepath.Join(dir, "params.yaml")
	cfgText := `min_cells_per_gene: 1
min_genes: 5
max_genes: 1000
max_mito: 1.0
mean_low: 0.0
mean_high: 100
dispersion_cutoff: -100
pcs: 4
jackstraw_replicates: 5
jackstraw_prop: 0.2
perplexity: 4
tsne_iterations: 60
neighbors: 8
threads: 2
`
	if err := os.WriteFile(cfg, []byte(cfgText), 0o644); err != nil {
		t.Fatal(err)
	}
	return matrix, metadata, cfg
}

// clusterLabels parses the first column of a TSV cluster-QC table.
func clusterLabels(t *testing.T, table string) []int {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) < 2 {
		t.Fatalf("cluster table too short:\n%s", table)
	}
	var labels []int
	for _, ln := range lines[1:] {
		f := strings.Split(ln, "\t")
		l, err := strconv.Atoi(f[0])
		if err != nil {
			t.Fatalf("bad cluster label in %q: %v", ln, err)
		}
		labels = append(labels, l)
	}
	return labels
}

func TestTwoRoundsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	matrix, metadata, cfg := writeInputs(t, dir)

	var out, errb bytes.Buffer
	code := app.Run([]string{
		"--matrix", matrix, "--metadata", metadata,
		"--config", cfg, "--out-dir", dir, "--quiet",
	}, &out, &errb)
	if code != 0 {
		t.Fatalf("round 1 exit %d\nstderr: %s", code, errb.String())
	}

	ckpt1 := filepath.Join(dir, "round1.ckpt")
	for _, f := range []string{
		ckpt1,
		filepath.Join(dir, "cluster_qc.round1.tsv"),
		filepath.Join(dir, "tsne.round1.tsv"),
		filepath.Join(dir, "metadata.round1.tsv"),
		filepath.Join(dir, "round1.summary.json"),
	} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}

	labels := clusterLabels(t, out.String())
	if len(labels) < 2 {
		t.Fatalf("expected >= 2 clusters, table:\n%s", out.String())
	}

	// Round 2: remove the highest-numbered (smallest) cluster and
	// recluster the survivors from the checkpoint.
	drop := labels[len(labels)-1]
	out.Reset()
	errb.Reset()
	code = app.Run([]string{
		"--resume", ckpt1, "--drop-cluster", strconv.Itoa(drop),
		"--config", cfg, "--out-dir", dir, "--quiet",
	}, &out, &errb)
	if code != 0 {
		t.Fatalf("round 2 exit %d\nstderr: %s", code, errb.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "round2.ckpt")); err != nil {
		t.Errorf("missing round 2 checkpoint: %v", err)
	}
	summary, err := os.ReadFile(filepath.Join(dir, "round2.summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(summary), `"cluster_dropped": `+strconv.Itoa(drop)) {
		t.Errorf("round 2 summary does not record the dropped cluster:\n%s", summary)
	}
}

func TestMarkersFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	matrix, metadata, cfg := writeInputs(t, dir)

	var out, errb bytes.Buffer
	if code := app.Run([]string{
		"--matrix", matrix, "--metadata", metadata,
		"--config", cfg, "--out-dir", dir, "--quiet",
	}, &out, &errb); code != 0 {
		t.Fatalf("round 1 exit %d\nstderr: %s", code, errb.String())
	}
	ckpt := filepath.Join(dir, "round1.ckpt")

	out.Reset()
	errb.Reset()
	code := markersapp.Run([]string{
		"--checkpoint", ckpt, "--out-dir", dir,
		"--display", "2", "--top", "5", "--quiet",
	}, &out, &errb)
	if code != 0 {
		t.Fatalf("markers exit %d\nstderr: %s", code, errb.String())
	}
	if !strings.HasPrefix(out.String(), "cluster\tgene\t") {
		t.Errorf("marker digest missing header:\n%s", out.String())
	}
	exported, err := os.ReadFile(filepath.Join(dir, "markers.round1.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(exported), "\n"); lines < 2 {
		t.Errorf("exported marker table too short:\n%s", exported)
	}

	out.Reset()
	errb.Reset()
	if code := inspectapp.Run([]string{"--checkpoint", ckpt}, &out, &errb); code != 0 {
		t.Fatalf("inspect exit %d\nstderr: %s", code, errb.String())
	}
	if !strings.Contains(out.String(), "round completed: 1") {
		t.Errorf("inspect output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "metadata twin:") ||
		!strings.Contains(out.String(), "2 levels [TW1 TW2]") {
		t.Errorf("inspect output missing metadata levels:\n%s", out.String())
	}
}

func TestUsageErrors(t *testing.T) {
	var out, errb bytes.Buffer
	if code := app.Run([]string{"--matrix", "x.tsv"}, &out, &errb); code != 2 {
		t.Errorf("missing metadata should exit 2, got %d", code)
	}
	if code := app.Run([]string{
		"--matrix", "x.tsv", "--metadata", "y.tsv", "--drop-cluster", "1",
	}, &out, &errb); code != 2 {
		t.Errorf("drop without resume should exit 2, got %d", code)
	}
	if code := markersapp.Run([]string{"--output", "xml", "--checkpoint", "x"}, &out, &errb); code != 2 {
		t.Errorf("bad marker format should exit 2, got %d", code)
	}
}
