// Command qartod exports QARTOD lookup tables for one deployment, or for every
// deployment listed in a manifest.
//
// Usage:
//
//	qartod -s CE01ISSM -n SBD17 -sn 06-CTDBPC000 -co 2021-01-01T00:00:00
//	qartod -s CE01ISSM -n SBD17 -sn 06-CTDBPC000 -compare -stream ctdbp_cdef_dcl_instrument
//	qartod -s CE01ISSM -n SBD17 -sn 06-CTDBPC000 -compare -param practical_salinity
//	qartod -manifest deployments.yaml
//
// The QC engine command, output directory and optional sinks are configured
// through the environment (see internal/config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/qartod-export/internal/adapter/csvfile"
	"github.com/couchcryptid/qartod-export/internal/adapter/engine"
	kafkaadapter "github.com/couchcryptid/qartod-export/internal/adapter/kafka"
	"github.com/couchcryptid/qartod-export/internal/adapter/postgres"
	"github.com/couchcryptid/qartod-export/internal/adapter/qclookup"
	"github.com/couchcryptid/qartod-export/internal/config"
	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/export"
	"github.com/couchcryptid/qartod-export/internal/manifest"
	"github.com/couchcryptid/qartod-export/internal/observability"
)

func main() {
	jobs, err := parseJobs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger, metrics, jobs)
	stop()

	if cfg.MetricsTextfile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			logger.Error("write metrics textfile", "path", cfg.MetricsTextfile, "error", werr)
		}
	}
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, jobs []export.Job) error {
	gen, err := engine.NewCommand(cfg.EngineCmd, cfg.EngineTimeout, logger)
	if err != nil {
		return err
	}
	gen.WithGrace(cfg.ShutdownTimeout)

	writer := csvfile.NewWriter(cfg.OutputDir, logger)
	opts := []export.Option{
		export.WithReferences(qclookup.NewClient(cfg.LookupBaseURL, cfg.LookupTimeout, cfg.LookupCacheSize, metrics, logger)),
	}

	if cfg.DatabaseURL != "" {
		rec, err := postgres.NewRecorder(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, export.WithRecorder(rec))
		logger.Info("export ledger enabled")
	}

	if cfg.KafkaEnabled() {
		notifier := kafkaadapter.NewNotifier(cfg, logger)
		defer func() {
			if err := notifier.Close(); err != nil {
				logger.Error("kafka notifier close error", "error", err)
			}
		}()
		opts = append(opts, export.WithNotifier(notifier))
		logger.Info("export notifications enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	exporter := export.New(gen, writer, logger, metrics, opts...)

	results, err := exporter.ExportAll(ctx, jobs)
	logger.Info("run complete", "exported", len(results), "requested", len(jobs))
	return err
}

// parseJobs turns the command line into export jobs. A manifest replaces the
// single-deployment flags; -stream and -compare still apply as overrides.
func parseJobs(args []string, stderr io.Writer) ([]export.Job, error) {
	fs := flag.NewFlagSet("qartod", flag.ContinueOnError)
	fs.SetOutput(stderr)

	site := fs.String("s", "", "site (subsite) code, e.g. CE01ISSM")
	node := fs.String("n", "", "node code, e.g. SBD17")
	sensor := fs.String("sn", "", "sensor code, e.g. 06-CTDBPC000")
	cutoff := fs.String("co", "", "cutoff timestamp (default: start of today, UTC)")
	stream := fs.String("stream", "", "stream name used to filter published gross range rows")
	compare := fs.Bool("compare", false, "load the published qc-lookup tables after exporting")
	param := fs.String("param", "", "compare only this parameter, e.g. practical_salinity")
	manifestPath := fs.String("manifest", "", "YAML file listing deployments to export")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *manifestPath != "" {
		if set["s"] || set["n"] || set["sn"] || set["co"] {
			return nil, errors.New("-manifest cannot be combined with -s, -n, -sn or -co")
		}
		m, err := manifest.Load(*manifestPath)
		if err != nil {
			return nil, err
		}
		jobs, err := m.Jobs()
		if err != nil {
			return nil, err
		}
		for i := range jobs {
			if set["stream"] {
				jobs[i].Stream = *stream
			}
			if set["compare"] {
				jobs[i].Compare = *compare
			}
			jobs[i].Parameter = *param
		}
		return jobs, nil
	}

	refdes := domain.RefDes{Site: *site, Node: *node, Sensor: *sensor}
	if err := refdes.Validate(); err != nil {
		return nil, err
	}
	co, err := domain.ParseCutoff(*cutoff)
	if err != nil {
		return nil, err
	}
	return []export.Job{{RefDes: refdes, Cutoff: co, Stream: *stream, Compare: *compare, Parameter: *param}}, nil
}
