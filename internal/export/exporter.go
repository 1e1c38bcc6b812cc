// Package export drives one QARTOD lookup-table export: run the QC engine,
// persist its artifacts, optionally load the published reference tables, and
// hand the completed export to any configured sinks. Every step runs in order
// on the calling goroutine and the first failure ends the export.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/observability"
)

// ArtifactWriter persists the engine's artifacts.
type ArtifactWriter interface {
	Write(refdes domain.RefDes, params []domain.Parameter, a domain.Artifacts) (domain.OutputPaths, error)
}

// ReferenceFetcher loads published lookup tables for comparison.
type ReferenceFetcher interface {
	GrossRange(ctx context.Context, refdes domain.RefDes, param domain.Parameter, stream string) (domain.Reference[[]domain.GrossRangeRow], error)
	Climatology(ctx context.Context, refdes domain.RefDes, param domain.Parameter) (domain.Reference[domain.ClimatologyTable], error)
}

// Notifier announces completed exports.
type Notifier interface {
	Notify(ctx context.Context, rec domain.ExportRecord) error
}

// Recorder stores completed exports in a ledger.
type Recorder interface {
	Record(ctx context.Context, rec domain.ExportRecord) error
}

// Job is one reference designator to export.
type Job struct {
	RefDes domain.RefDes
	Cutoff domain.Cutoff
	// Stream narrows the gross range reference rows; empty matches all streams.
	Stream string
	// Compare loads the published reference tables after writing.
	Compare bool
	// Parameter limits the comparison to one tracked parameter; empty
	// compares all of them. Every parameter's artifacts are still written.
	Parameter string
}

// Comparison holds both published tables for one parameter. Diffing them
// against the local artifacts is left to the caller.
type Comparison struct {
	Parameter   domain.Parameter
	GrossRange  domain.Reference[[]domain.GrossRangeRow]
	Climatology domain.Reference[domain.ClimatologyTable]
}

// Result is a completed export.
type Result struct {
	Record      domain.ExportRecord
	Paths       domain.OutputPaths
	Artifacts   domain.Artifacts
	Comparisons []Comparison
}

// Exporter orchestrates generate, persist, compare and notify.
type Exporter struct {
	generator  domain.Generator
	writer     ArtifactWriter
	references ReferenceFetcher
	notifier   Notifier
	recorder   Recorder
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures optional Exporter collaborators.
type Option func(*Exporter)

// WithReferences enables the comparison path for jobs that ask for it.
func WithReferences(f ReferenceFetcher) Option {
	return func(e *Exporter) { e.references = f }
}

// WithNotifier publishes every completed export.
func WithNotifier(n Notifier) Option {
	return func(e *Exporter) { e.notifier = n }
}

// WithRecorder records every completed export.
func WithRecorder(r Recorder) Option {
	return func(e *Exporter) { e.recorder = r }
}

// New creates an Exporter with the given engine, writer and observability.
func New(g domain.Generator, w ArtifactWriter, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Exporter {
	e := &Exporter{
		generator: g,
		writer:    w,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export runs one job to completion.
func (e *Exporter) Export(ctx context.Context, job Job) (Result, error) {
	res, err := e.export(ctx, job)
	if err != nil {
		e.metrics.Exports.WithLabelValues("error").Inc()
		return res, err
	}
	e.metrics.Exports.WithLabelValues("success").Inc()
	e.metrics.LastSuccess.Set(float64(res.Record.ExportedAt.Unix()))
	return res, nil
}

// ExportAll runs jobs in order and stops at the first failure, returning the
// results completed so far.
func (e *Exporter) ExportAll(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.Export(ctx, job)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Exporter) export(ctx context.Context, job Job) (Result, error) {
	if err := job.RefDes.Validate(); err != nil {
		return Result{}, err
	}
	refdes := job.RefDes
	start := domain.Now()

	params, err := domain.ParametersFor(refdes.SensorType())
	if err != nil {
		return Result{}, err
	}
	compared := params
	if job.Parameter != "" {
		p, err := domain.LookupParameter(refdes.SensorType(), job.Parameter)
		if err != nil {
			return Result{}, err
		}
		compared = []domain.Parameter{p}
	}

	e.logger.Info("export started", "refdes", refdes.String(), "cutoff", job.Cutoff.String())

	genStart := time.Now()
	artifacts, err := e.generator.Generate(ctx, refdes, job.Cutoff)
	e.metrics.GenerateDuration.Observe(time.Since(genStart).Seconds())
	if err != nil {
		return Result{}, fmt.Errorf("generate %s: %w", refdes, err)
	}
	if len(artifacts.ClimatologyTables) != len(params) {
		return Result{}, fmt.Errorf("generate %s: engine returned %d climatology tables, want %d",
			refdes, len(artifacts.ClimatologyTables), len(params))
	}

	paths, err := e.writer.Write(refdes, params, artifacts)
	if err != nil {
		return Result{}, fmt.Errorf("write %s: %w", refdes, err)
	}
	e.countArtifacts(paths)

	res := Result{Paths: paths, Artifacts: artifacts}
	if job.Compare {
		if res.Comparisons, err = e.loadReferences(ctx, job, compared); err != nil {
			return res, fmt.Errorf("load references %s: %w", refdes, err)
		}
	}

	res.Record = domain.ExportRecord{
		RefDes:     refdes,
		ID:         refdes.String(),
		SensorType: refdes.SensorType(),
		Cutoff:     job.Cutoff.String(),
		OutputDir:  paths.Dir,
		Files:      paths.Files(),
		References: summarize(res.Comparisons),
		ExportedAt: domain.Now(),
	}
	res.Record.Duration = res.Record.ExportedAt.Sub(start)

	if err := e.deliver(ctx, res.Record); err != nil {
		return res, err
	}

	e.metrics.ExportDuration.Observe(res.Record.Duration.Seconds())
	e.logger.Info("export finished",
		"refdes", refdes.String(),
		"dir", paths.Dir,
		"files", len(res.Record.Files),
		"duration", res.Record.Duration,
	)
	return res, nil
}

func (e *Exporter) countArtifacts(p domain.OutputPaths) {
	for _, f := range p.Files() {
		e.metrics.ArtifactsWritten.WithLabelValues(f.Kind).Inc()
	}
}

// loadReferences fetches both published tables for every tracked parameter.
func (e *Exporter) loadReferences(ctx context.Context, job Job, params []domain.Parameter) ([]Comparison, error) {
	if e.references == nil {
		e.logger.Warn("comparison requested but no reference source configured", "refdes", job.RefDes.String())
		return nil, nil
	}

	out := make([]Comparison, 0, len(params))
	for _, p := range params {
		gr, err := e.references.GrossRange(ctx, job.RefDes, p, job.Stream)
		if err != nil {
			return out, err
		}
		clim, err := e.references.Climatology(ctx, job.RefDes, p)
		if err != nil {
			return out, err
		}
		c := Comparison{Parameter: p, GrossRange: gr, Climatology: clim}
		e.metrics.ReferenceRows.WithLabelValues(domain.KindGrossRange).Add(float64(len(gr.Value)))
		e.metrics.ReferenceRows.WithLabelValues(domain.KindClimatology).Add(float64(len(clim.Value.Index)))

		e.logger.Info("reference tables loaded",
			"refdes", job.RefDes.String(),
			"parameter", p.Name,
			"gross_range_found", gr.Found,
			"gross_range_rows", len(gr.Value),
			"climatology_found", clim.Found,
			"climatology_rows", len(clim.Value.Index),
		)
		out = append(out, c)
	}
	return out, nil
}

func summarize(cs []Comparison) []domain.ReferenceSummary {
	if len(cs) == 0 {
		return nil
	}
	out := make([]domain.ReferenceSummary, 0, 2*len(cs))
	for _, c := range cs {
		out = append(out,
			domain.ReferenceSummary{
				Kind:      domain.KindGrossRange,
				Parameter: c.Parameter.Name,
				URL:       c.GrossRange.URL,
				Found:     c.GrossRange.Found,
				Rows:      len(c.GrossRange.Value),
			},
			domain.ReferenceSummary{
				Kind:      domain.KindClimatology,
				Parameter: c.Parameter.Name,
				URL:       c.Climatology.URL,
				Found:     c.Climatology.Found,
				Rows:      len(c.Climatology.Value.Index),
			},
		)
	}
	return out
}

// deliver hands the record to the ledger first, then to the topic.
func (e *Exporter) deliver(ctx context.Context, rec domain.ExportRecord) error {
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, rec); err != nil {
			e.metrics.SinkErrors.WithLabelValues("postgres").Inc()
			return err
		}
	}
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, rec); err != nil {
			e.metrics.SinkErrors.WithLabelValues("kafka").Inc()
			return err
		}
	}
	return nil
}
