// core/sc/dataset.go

// Package sc holds the evolving analysis object: every matrix, embedding,
// label vector, and metadata column attached to the same set of cells.
// Mutating operations go through methods that keep those structures
// aligned; removing a cell removes it everywhere at once.
package sc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"scell-core/expr"
	"scell-core/meta"
	"scell-core/qc"
	"scell-core/reduce"
)

// Dataset aggregates the state of one analysis run.
type Dataset struct {
	Raw    *expr.Matrix // as loaded: log TPM, construction-filtered
	Norm   *expr.Matrix // library-size normalized
	Scaled *expr.Matrix // scaled residuals over retained genes

	VarGenes []string
	PCA      *reduce.PCA
	TSNE     *mat.Dense // cells × 2, visualization only
	Clusters []int      // per cell; nil before the first clustering

	Metrics *qc.Metrics
	Meta    *meta.Table

	Round int // refinement rounds completed
}

// New builds a dataset around a construction-filtered raw matrix and its
// aligned metadata.
func New(raw *expr.Matrix, table *meta.Table, metrics *qc.Metrics) (*Dataset, error) {
	ds := &Dataset{Raw: raw, Meta: table, Metrics: metrics}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Cells returns the barcodes of the current cell set.
func (d *Dataset) Cells() []string { return d.Raw.Cells() }

// NCells returns the current cell count.
func (d *Dataset) NCells() int { return d.Raw.NCells() }

// Validate checks the cross-structure identifier invariant: every attached
// structure describes exactly the cells of Raw, in the same order.
func (d *Dataset) Validate() error {
	if d.Raw == nil {
		return fmt.Errorf("sc: dataset has no raw matrix")
	}
	n := d.Raw.NCells()
	cells := d.Raw.Cells()

	checkCells := func(name string, got []string) error {
		if len(got) != n {
			return fmt.Errorf("sc: %s covers %d cells, raw has %d", name, len(got), n)
		}
		for i := range got {
			if got[i] != cells[i] {
				return fmt.Errorf("sc: %s cell %d is %q, raw has %q", name, i, got[i], cells[i])
			}
		}
		return nil
	}

	if d.Norm != nil {
		if err := checkCells("normalized matrix", d.Norm.Cells()); err != nil {
			return err
		}
	}
	if d.Scaled != nil {
		if err := checkCells("scaled matrix", d.Scaled.Cells()); err != nil {
			return err
		}
	}
	if d.Meta != nil {
		if err := checkCells("metadata", d.Meta.Cells()); err != nil {
			return err
		}
	}
	if d.Metrics != nil {
		if err := checkCells("qc metrics", d.Metrics.Cells); err != nil {
			return err
		}
	}
	if d.PCA != nil {
		if err := checkCells("pca", d.PCA.Cells); err != nil {
			return err
		}
	}
	if d.Clusters != nil && len(d.Clusters) != n {
		return fmt.Errorf("sc: %d cluster labels for %d cells", len(d.Clusters), n)
	}
	if d.TSNE != nil {
		if r, _ := d.TSNE.Dims(); r != n {
			return fmt.Errorf("sc: t-SNE covers %d cells, raw has %d", r, n)
		}
	}
	return nil
}

// SubsetCells returns a new dataset restricted to the cells at keep
// (positions into the current cell order). Embeddings and cluster labels
// computed on the full set are dropped, not sliced: they are only
// meaningful for the cell set they were computed on. Metadata and QC
// metrics follow the subset.
func (d *Dataset) SubsetCells(keep []int) (*Dataset, error) {
	raw, err := d.Raw.SubsetCells(keep)
	if err != nil {
		return nil, err
	}
	out := &Dataset{Raw: raw, Round: d.Round}
	if d.Meta != nil {
		if out.Meta, err = d.Meta.Subset(raw.Cells()); err != nil {
			return nil, err
		}
	}
	if d.Metrics != nil {
		out.Metrics = d.Metrics.Subset(keep)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// DropCluster removes every cell carrying the given label. It is the
// explicit, caller-supplied half of the quality-refinement loop: the tool
// never decides which cluster dies.
func (d *Dataset) DropCluster(label int) (*Dataset, int, error) {
	if d.Clusters == nil {
		return nil, 0, fmt.Errorf("sc: no cluster labels to drop from")
	}
	var keep []int
	removed := 0
	for j, l := range d.Clusters {
		if l == label {
			removed++
		} else {
			keep = append(keep, j)
		}
	}
	if removed == 0 {
		return nil, 0, fmt.Errorf("sc: no cells carry cluster label %d", label)
	}
	if len(keep) == 0 {
		return nil, 0, fmt.Errorf("sc: dropping cluster %d would remove every cell", label)
	}
	out, err := d.SubsetCells(keep)
	if err != nil {
		return nil, 0, err
	}
	return out, removed, nil
}

// SetNorm attaches the normalized matrix.
func (d *Dataset) SetNorm(m *expr.Matrix) error {
	d.Norm = m
	return d.Validate()
}

// SetScaled attaches the scaled matrix.
func (d *Dataset) SetScaled(m *expr.Matrix) error {
	d.Scaled = m
	return d.Validate()
}

// SetClusters attaches cluster labels and mirrors them into the metadata
// table (column "cluster").
func (d *Dataset) SetClusters(labels []int) error {
	d.Clusters = labels
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Meta != nil {
		return d.Meta.SetIntColumn("cluster", labels)
	}
	return nil
}

// SetTSNE attaches 2-D embedding coordinates and mirrors them into the
// metadata table (columns "tsne_1", "tsne_2").
func (d *Dataset) SetTSNE(y *mat.Dense) error {
	d.TSNE = y
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Meta == nil {
		return nil
	}
	n, _ := y.Dims()
	c1 := make([]float64, n)
	c2 := make([]float64, n)
	for i := 0; i < n; i++ {
		c1[i] = y.At(i, 0)
		c2[i] = y.At(i, 1)
	}
	if err := d.Meta.SetFloatColumn("tsne_1", c1); err != nil {
		return err
	}
	return d.Meta.SetFloatColumn("tsne_2", c2)
}

// AttachQCColumns mirrors the QC metrics into the metadata table.
func (d *Dataset) AttachQCColumns() error {
	if d.Meta == nil || d.Metrics == nil {
		return fmt.Errorf("sc: need metadata and metrics to attach QC columns")
	}
	n := len(d.Metrics.PerCell)
	ngene := make([]int, n)
	counts := make([]float64, n)
	mito := make([]float64, n)
	for i, c := range d.Metrics.PerCell {
		ngene[i] = c.NGenes
		counts[i] = c.Counts
		mito[i] = c.MitoFrac
	}
	if err := d.Meta.SetIntColumn("n_gene", ngene); err != nil {
		return err
	}
	if err := d.Meta.SetFloatColumn("n_umi", counts); err != nil {
		return err
	}
	return d.Meta.SetFloatColumn("percent_mito", mito)
}
