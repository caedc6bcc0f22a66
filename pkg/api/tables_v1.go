// pkg/api/tables_v1.go
package api

// Stable export schemas. Keep fields, names, and types stable; add new
// fields only with ",omitempty".

// MarkerV1 is one (cluster, gene) marker record.
type MarkerV1 struct {
	Cluster int     `json:"cluster"`
	Gene    string  `json:"gene"`
	LogFC   float64 `json:"log_fc"`
	PctIn   float64 `json:"pct_in"`
	PctOut  float64 `json:"pct_out"`
	MeanIn  float64 `json:"mean_in"`
	MeanOut float64 `json:"mean_out"`
	PValue  float64 `json:"p_value"`
	FDR     float64 `json:"fdr"`
}

// ClusterQCV1 summarizes one cluster's QC-metric distribution. This table
// is what a human reviews before choosing --drop-cluster.
type ClusterQCV1 struct {
	Cluster        int     `json:"cluster"`
	Cells          int     `json:"cells"`
	MedianGenes    float64 `json:"median_genes"`
	MedianCounts   float64 `json:"median_counts"`
	MedianMitoFrac float64 `json:"median_mito_frac"`
	MaxMitoFrac    float64 `json:"max_mito_frac"`
}

// RoundSummaryV1 reports what one refinement round did.
type RoundSummaryV1 struct {
	Round          int     `json:"round"`
	CellsIn        int     `json:"cells_in"`
	CellsDropped   int     `json:"cells_dropped"`
	ClusterDropped int     `json:"cluster_dropped"` // -1 when none
	VariableGenes  int     `json:"variable_genes"`
	PCsUsed        int     `json:"pcs_used"`
	SignificantPCs int     `json:"significant_pcs"`
	ElbowPCs       int     `json:"elbow_pcs"`
	Clusters       int     `json:"clusters"`
	Resolution     float64 `json:"resolution"`
	Checkpoint     string  `json:"checkpoint,omitempty"`
}
