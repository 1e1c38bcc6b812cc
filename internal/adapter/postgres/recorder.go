// Package postgres keeps a ledger of completed exports: which reference
// designators were exported, with what cutoff, where the files went, and
// which published reference tables were found for them.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/qartod-export/internal/domain"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS qartod;

CREATE TABLE IF NOT EXISTS qartod.exports (
    refdes       TEXT PRIMARY KEY,
    site         TEXT NOT NULL,
    node         TEXT NOT NULL,
    sensor       TEXT NOT NULL,
    sensor_type  TEXT NOT NULL,
    cutoff       TEXT NOT NULL,
    output_dir   TEXT NOT NULL,
    exported_at  TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS qartod.export_artifacts (
    refdes     TEXT NOT NULL REFERENCES qartod.exports (refdes) ON DELETE CASCADE,
    kind       TEXT NOT NULL,
    parameter  TEXT NOT NULL DEFAULT '',
    path       TEXT NOT NULL,
    PRIMARY KEY (refdes, kind, parameter)
);

CREATE TABLE IF NOT EXISTS qartod.reference_tables (
    refdes      TEXT NOT NULL REFERENCES qartod.exports (refdes) ON DELETE CASCADE,
    kind        TEXT NOT NULL,
    parameter   TEXT NOT NULL,
    url         TEXT NOT NULL,
    found       BOOLEAN NOT NULL,
    row_count   INTEGER NOT NULL,
    checked_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (refdes, kind, parameter)
);`

const upsertExportSQL = `INSERT INTO qartod.exports (refdes, site, node, sensor, sensor_type, cutoff, output_dir, exported_at, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (refdes) DO UPDATE
SET cutoff = EXCLUDED.cutoff,
    output_dir = EXCLUDED.output_dir,
    exported_at = EXCLUDED.exported_at,
    duration_ms = EXCLUDED.duration_ms`

const upsertArtifactSQL = `INSERT INTO qartod.export_artifacts (refdes, kind, parameter, path)
VALUES ($1,$2,$3,$4)
ON CONFLICT (refdes, kind, parameter) DO UPDATE
SET path = EXCLUDED.path`

const upsertReferenceSQL = `INSERT INTO qartod.reference_tables (refdes, kind, parameter, url, found, row_count, checked_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (refdes, kind, parameter) DO UPDATE
SET url = EXCLUDED.url,
    found = EXCLUDED.found,
    row_count = EXCLUDED.row_count,
    checked_at = EXCLUDED.checked_at`

// Recorder writes export records to Postgres.
// It implements export.Recorder.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder connects to databaseURL and makes sure the ledger tables exist.
func NewRecorder(ctx context.Context, databaseURL string, logger *slog.Logger) (*Recorder, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Recorder{pool: pool, logger: logger}, nil
}

// Record upserts the export, its artifact paths and its reference summaries
// in one batch.
func (r *Recorder) Record(ctx context.Context, rec domain.ExportRecord) error {
	batch := recordBatch(rec)

	res := r.pool.SendBatch(ctx, batch)
	defer res.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("record export %s: %w", rec.ID, err)
		}
	}

	r.logger.Debug("export recorded", "refdes", rec.ID, "statements", batch.Len())
	return nil
}

// Close releases the connection pool.
func (r *Recorder) Close() {
	r.pool.Close()
}

func recordBatch(rec domain.ExportRecord) *pgx.Batch {
	batch := &pgx.Batch{}
	batch.Queue(upsertExportSQL,
		rec.ID, rec.RefDes.Site, rec.RefDes.Node, rec.RefDes.Sensor, rec.SensorType,
		rec.Cutoff, rec.OutputDir, rec.ExportedAt, rec.Duration.Milliseconds())

	for _, f := range rec.Files {
		batch.Queue(upsertArtifactSQL, rec.ID, f.Kind, f.Parameter, f.Path)
	}
	for _, ref := range rec.References {
		batch.Queue(upsertReferenceSQL, rec.ID, ref.Kind, ref.Parameter, ref.URL, ref.Found, ref.Rows, rec.ExportedAt)
	}
	return batch
}
