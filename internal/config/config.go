// internal/config/config.go

// Package config resolves the pipeline's tunable parameters. The built-in
// defaults are the workflow literals; a YAML file can override any of them
// globally or per round, and CLI flags override both.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scell-core/cluster"
	"scell-core/markers"
	"scell-core/normalize"
	"scell-core/qc"
)

// Params is the full tunable surface of one refinement round.
type Params struct {
	// QC / filtering
	MitoPrefix      string
	MinCellsPerGene int
	MinGenes        int
	MaxGenes        int
	MaxMitoFrac     float64

	// Normalization / feature selection / scaling
	ScaleTotal float64
	MeanLow    float64
	MeanHigh   float64
	DispCutoff float64
	ScaleClip  float64

	// Reduction
	PCs            int
	JackstrawReps  int
	JackstrawProp  float64
	Perplexity     float64
	TSNEIterations int

	// Clustering
	Neighbors  int
	Resolution float64

	// Markers
	MinPct     float64
	MinLogFC   float64
	TopDisplay int
	TopExport  int

	// Run
	Seed    int64
	Threads int
}

// Defaults returns the literals of the original workflow for the given
// round (1-based), sourced from the core packages so a change there shows
// up here. The mito ceiling tightens from 0.05 to 0.025 after round 1 and
// the component count moves from 10 to 11; everything else is
// round-independent.
func Defaults(round int) Params {
	hvg := normalize.DefaultHVGParams()
	cl := cluster.DefaultParams()
	mk := markers.DefaultParams()
	p := Params{
		MitoPrefix:      qc.DefaultMitoPrefix,
		MinCellsPerGene: qc.DefaultMinCellsPerGene,
		MinGenes:        qc.DefaultMinGenesPerCell,
		MaxGenes:        6000,
		MaxMitoFrac:     0.05,

		ScaleTotal: 1e4,
		MeanLow:    hvg.MeanLow,
		MeanHigh:   hvg.MeanHigh,
		DispCutoff: hvg.DispCutoff,
		ScaleClip:  10,

		PCs:            10,
		JackstrawReps:  100,
		JackstrawProp:  0.01,
		Perplexity:     30,
		TSNEIterations: 1000,

		Neighbors:  cl.K,
		Resolution: cl.Resolution,

		MinPct:     mk.MinPct,
		MinLogFC:   mk.MinLogFC,
		TopDisplay: 2,
		TopExport:  10,

		Seed:    42,
		Threads: 0,
	}
	if round >= 2 {
		p.MaxMitoFrac = 0.025
		p.PCs = 11
	}
	return p
}

// override mirrors Params with optional fields; nil means "keep".
type override struct {
	MitoPrefix      *string  `yaml:"mito_prefix"`
	MinCellsPerGene *int     `yaml:"min_cells_per_gene"`
	MinGenes        *int     `yaml:"min_genes"`
	MaxGenes        *int     `yaml:"max_genes"`
	MaxMitoFrac     *float64 `yaml:"max_mito"`

	ScaleTotal *float64 `yaml:"scale_total"`
	MeanLow    *float64 `yaml:"mean_low"`
	MeanHigh   *float64 `yaml:"mean_high"`
	DispCutoff *float64 `yaml:"dispersion_cutoff"`
	ScaleClip  *float64 `yaml:"scale_clip"`

	PCs            *int     `yaml:"pcs"`
	JackstrawReps  *int     `yaml:"jackstraw_replicates"`
	JackstrawProp  *float64 `yaml:"jackstraw_prop"`
	Perplexity     *float64 `yaml:"perplexity"`
	TSNEIterations *int     `yaml:"tsne_iterations"`

	Neighbors  *int     `yaml:"neighbors"`
	Resolution *float64 `yaml:"resolution"`

	MinPct     *float64 `yaml:"min_pct"`
	MinLogFC   *float64 `yaml:"min_logfc"`
	TopDisplay *int     `yaml:"top_display"`
	TopExport  *int     `yaml:"top_export"`

	Seed    *int64 `yaml:"seed"`
	Threads *int   `yaml:"threads"`
}

// File is a parsed configuration file: global overrides plus per-round
// refinements.
type File struct {
	override `yaml:",inline"`
	Rounds   map[int]override `yaml:"rounds"`
}

// Load parses a YAML parameter file. Unknown keys are an error: silently
// ignored thresholds are exactly the failure mode this tool exists to
// avoid.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &f, nil
}

// Resolve returns the parameters for a round: defaults, then global file
// overrides, then the round's own overrides.
func (f *File) Resolve(round int) Params {
	p := Defaults(round)
	if f == nil {
		return p
	}
	f.override.apply(&p)
	if ro, ok := f.Rounds[round]; ok {
		ro.apply(&p)
	}
	return p
}

func (o *override) apply(p *Params) {
	if o.MitoPrefix != nil {
		p.MitoPrefix = *o.MitoPrefix
	}
	if o.MinCellsPerGene != nil {
		p.MinCellsPerGene = *o.MinCellsPerGene
	}
	if o.MinGenes != nil {
		p.MinGenes = *o.MinGenes
	}
	if o.MaxGenes != nil {
		p.MaxGenes = *o.MaxGenes
	}
	if o.MaxMitoFrac != nil {
		p.MaxMitoFrac = *o.MaxMitoFrac
	}
	if o.ScaleTotal != nil {
		p.ScaleTotal = *o.ScaleTotal
	}
	if o.MeanLow != nil {
		p.MeanLow = *o.MeanLow
	}
	if o.MeanHigh != nil {
		p.MeanHigh = *o.MeanHigh
	}
	if o.DispCutoff != nil {
		p.DispCutoff = *o.DispCutoff
	}
	if o.ScaleClip != nil {
		p.ScaleClip = *o.ScaleClip
	}
	if o.PCs != nil {
		p.PCs = *o.PCs
	}
	if o.JackstrawReps != nil {
		p.JackstrawReps = *o.JackstrawReps
	}
	if o.JackstrawProp != nil {
		p.JackstrawProp = *o.JackstrawProp
	}
	if o.Perplexity != nil {
		p.Perplexity = *o.Perplexity
	}
	if o.TSNEIterations != nil {
		p.TSNEIterations = *o.TSNEIterations
	}
	if o.Neighbors != nil {
		p.Neighbors = *o.Neighbors
	}
	if o.Resolution != nil {
		p.Resolution = *o.Resolution
	}
	if o.MinPct != nil {
		p.MinPct = *o.MinPct
	}
	if o.MinLogFC != nil {
		p.MinLogFC = *o.MinLogFC
	}
	if o.TopDisplay != nil {
		p.TopDisplay = *o.TopDisplay
	}
	if o.TopExport != nil {
		p.TopExport = *o.TopExport
	}
	if o.Seed != nil {
		p.Seed = *o.Seed
	}
	if o.Threads != nil {
		p.Threads = *o.Threads
	}
}
