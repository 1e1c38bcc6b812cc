package domain

import "time"

// Artifact kinds.
const (
	KindAnnotations      = "annotations"
	KindGrossRange       = "gross_range"
	KindClimatology      = "climatology"
	KindClimatologyTable = "climatology_table"
)

// ArtifactFile is one file written by an export.
type ArtifactFile struct {
	Kind      string `json:"kind"`
	Parameter string `json:"parameter,omitempty"`
	Path      string `json:"path"`
}

// ReferenceSummary describes one published table loaded for comparison.
type ReferenceSummary struct {
	Kind      string `json:"kind"`
	Parameter string `json:"parameter"`
	URL       string `json:"url"`
	Found     bool   `json:"found"`
	Rows      int    `json:"rows"`
}

// ExportRecord describes a completed export. It is what the run ledger stores
// and what downstream consumers receive.
type ExportRecord struct {
	RefDes     RefDes             `json:"refdes"`
	ID         string             `json:"id"`
	SensorType string             `json:"sensor_type"`
	Cutoff     string             `json:"cutoff"`
	OutputDir  string             `json:"output_dir"`
	Files      []ArtifactFile     `json:"files"`
	References []ReferenceSummary `json:"references,omitempty"`
	ExportedAt time.Time          `json:"exported_at"`
	Duration   time.Duration      `json:"duration_ns"`
}

// OutputPaths lists the files written for one reference designator.
type OutputPaths struct {
	Dir         string
	Annotations string
	GrossRange  string
	Climatology string

	// ClimatologyTables maps each tracked parameter to its table file, in
	// catalog order.
	ClimatologyTables []ParameterFile
}

// ParameterFile is a per-parameter climatology table file.
type ParameterFile struct {
	Parameter string
	Path      string
}

// All returns every path in write order.
func (p OutputPaths) All() []string {
	out := []string{p.Annotations, p.GrossRange, p.Climatology}
	for _, f := range p.ClimatologyTables {
		out = append(out, f.Path)
	}
	return out
}

// Files lists every path with its artifact kind, in write order.
func (p OutputPaths) Files() []ArtifactFile {
	out := []ArtifactFile{
		{Kind: KindAnnotations, Path: p.Annotations},
		{Kind: KindGrossRange, Path: p.GrossRange},
		{Kind: KindClimatology, Path: p.Climatology},
	}
	for _, f := range p.ClimatologyTables {
		out = append(out, ArtifactFile{Kind: KindClimatologyTable, Parameter: f.Parameter, Path: f.Path})
	}
	return out
}
