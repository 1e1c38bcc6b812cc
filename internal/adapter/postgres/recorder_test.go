package postgres

import (
	"testing"
	"time"

	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBatch(t *testing.T) {
	refdes := domain.RefDes{Site: "CE01ISSM", Node: "SBD17", Sensor: "06-CTDBPC000"}
	exportedAt := time.Date(2024, 4, 27, 6, 0, 0, 0, time.UTC)
	rec := domain.ExportRecord{
		RefDes:     refdes,
		ID:         refdes.String(),
		SensorType: "ctdbp",
		Cutoff:     "2021-01-01T00:00:00",
		OutputDir:  "/data/ctdbp",
		Files: []domain.ArtifactFile{
			{Kind: domain.KindAnnotations, Path: "/data/ctdbp/a.csv"},
			{Kind: domain.KindClimatologyTable, Parameter: "practical_salinity", Path: "/data/ctdbp/b.csv"},
		},
		References: []domain.ReferenceSummary{
			{Kind: domain.KindGrossRange, Parameter: "practical_salinity", URL: "http://x/gr.csv", Found: false},
		},
		ExportedAt: exportedAt,
		Duration:   1500 * time.Millisecond,
	}

	batch := recordBatch(rec)
	require.Equal(t, 4, batch.Len())

	export := batch.QueuedQueries[0]
	assert.Equal(t, upsertExportSQL, export.SQL)
	assert.Equal(t, []any{
		"CE01ISSM-SBD17-06-CTDBPC000", "CE01ISSM", "SBD17", "06-CTDBPC000", "ctdbp",
		"2021-01-01T00:00:00", "/data/ctdbp", exportedAt, int64(1500),
	}, export.Arguments)

	artifact := batch.QueuedQueries[2]
	assert.Equal(t, upsertArtifactSQL, artifact.SQL)
	assert.Equal(t, []any{"CE01ISSM-SBD17-06-CTDBPC000", domain.KindClimatologyTable, "practical_salinity", "/data/ctdbp/b.csv"}, artifact.Arguments)

	ref := batch.QueuedQueries[3]
	assert.Equal(t, upsertReferenceSQL, ref.SQL)
	assert.Equal(t, false, ref.Arguments[4])
	assert.Equal(t, 0, ref.Arguments[5])
}
