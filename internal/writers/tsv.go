// internal/writers/tsv.go
package writers

import (
	"fmt"
	"io"
	"strconv"

	"scell/pkg/api"
)

// Canonical TSV headers. Single source of truth per table.
const (
	MarkerTSVHeader    = "cluster\tgene\tlog_fc\tpct_in\tpct_out\tmean_in\tmean_out\tp_value\tfdr"
	ClusterQCTSVHeader = "cluster\tcells\tmedian_genes\tmedian_counts\tmedian_mito_frac\tmax_mito_frac"
	EmbeddingTSVHeader = "cell\ttsne_1\ttsne_2"
)

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

// EmbeddingRow pairs a barcode with its 2-D coordinates.
type EmbeddingRow struct {
	Cell string  `json:"cell"`
	X    float64 `json:"tsne_1"`
	Y    float64 `json:"tsne_2"`
}

// WriteMarkerTSV prints one marker per line.
func WriteMarkerTSV(w io.Writer, list []api.MarkerV1) error {
	if _, err := fmt.Fprintln(w, MarkerTSVHeader); err != nil {
		return err
	}
	for _, m := range list {
		_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Cluster, m.Gene,
			ftoa(m.LogFC), ftoa(m.PctIn), ftoa(m.PctOut),
			ftoa(m.MeanIn), ftoa(m.MeanOut), ftoa(m.PValue), ftoa(m.FDR),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteClusterQCTSV prints one cluster summary per line.
func WriteClusterQCTSV(w io.Writer, list []api.ClusterQCV1) error {
	if _, err := fmt.Fprintln(w, ClusterQCTSVHeader); err != nil {
		return err
	}
	for _, c := range list {
		_, err := fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			c.Cluster, c.Cells,
			ftoa(c.MedianGenes), ftoa(c.MedianCounts),
			ftoa(c.MedianMitoFrac), ftoa(c.MaxMitoFrac),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteEmbeddingTSV prints per-cell t-SNE coordinates.
func WriteEmbeddingTSV(w io.Writer, rows []EmbeddingRow) error {
	if _, err := fmt.Fprintln(w, EmbeddingTSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", r.Cell, ftoa(r.X), ftoa(r.Y)); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	RegisterMarker("tsv", func(w io.Writer, data interface{}) error {
		list, ok := data.([]api.MarkerV1)
		if !ok {
			return fmt.Errorf("marker tsv writer: unexpected payload %T", data)
		}
		return WriteMarkerTSV(w, list)
	})
	RegisterClusterQC("tsv", func(w io.Writer, data interface{}) error {
		list, ok := data.([]api.ClusterQCV1)
		if !ok {
			return fmt.Errorf("cluster-qc tsv writer: unexpected payload %T", data)
		}
		return WriteClusterQCTSV(w, list)
	})
	RegisterEmbedding("tsv", func(w io.Writer, data interface{}) error {
		rows, ok := data.([]EmbeddingRow)
		if !ok {
			return fmt.Errorf("embedding tsv writer: unexpected payload %T", data)
		}
		return WriteEmbeddingTSV(w, rows)
	})
}
