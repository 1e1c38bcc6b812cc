package domain

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is returned when a table lacks a column its schema requires.
var ErrMissingColumn = errors.New("missing column")

// Fixed column projections for the three tabular artifacts. These match the
// headers of the published qc-lookup tables.
var (
	AnnotationColumns = []string{
		"id", "subsite", "node", "sensor", "method", "stream", "parameters",
		"beginDate", "endDate", "exclusionFlag", "qcFlag", "source", "annotation",
	}
	GrossRangeColumns = []string{
		"subsite", "node", "sensor", "stream", "parameters", "qcConfig", "source", "notes",
	}
	ClimatologyColumns = []string{
		"subsite", "node", "sensor", "stream", "parameters", "climatologyTable", "source", "notes",
	}
)

// Table is a tabular artifact as produced by the QC engine. Cells are kept as
// text; structured cells hold literal mappings or lists.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Project returns the table's rows reordered to schema. Columns not in schema
// are dropped; a schema column the table lacks is an error. Short rows are
// padded with empty cells. A table with neither columns nor rows projects to
// no rows, so an artifact the engine left empty is written header-only.
func (t Table) Project(schema []string) ([][]string, error) {
	if len(t.Columns) == 0 && len(t.Rows) == 0 {
		return [][]string{}, nil
	}

	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		index[c] = i
	}

	pos := make([]int, len(schema))
	for i, c := range schema {
		j, ok := index[c]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
		pos[i] = j
	}

	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		projected := make([]string, len(schema))
		for i, j := range pos {
			if j < len(row) {
				projected[i] = row[j]
			}
		}
		out[r] = projected
	}
	return out, nil
}

// Artifacts holds everything one QC engine run produces for a reference designator.
type Artifacts struct {
	Annotations Table `json:"annotations"`
	GrossRange  Table `json:"gross_range"`
	Climatology Table `json:"climatology"`

	// ClimatologyTables holds one serialized table per tracked parameter, in
	// the order of the sensor type's parameter catalog.
	ClimatologyTables []string `json:"climatology_tables"`
}
