// Package engine runs the external QARTOD QC engine.
//
// The engine is invoked like the ooi-data-explorations QARTOD drivers:
//
//	<cmd> -s <site> -n <node> -sn <sensor> -co <cutoff>
//
// and must print one JSON document on stdout:
//
//	{
//	  "annotations":        {"columns": [...], "rows": [[...], ...]},
//	  "gross_range":        {"columns": [...], "rows": [[...], ...]},
//	  "climatology":        {"columns": [...], "rows": [[...], ...]},
//	  "climatology_tables": ["<csv text>", ...]
//	}
//
// Climatology tables are listed in the order of the sensor type's parameter
// catalog. Anything the engine prints on stderr is attached to the error when
// it exits non-zero.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/couchcryptid/qartod-export/internal/domain"
)

const maxStderr = 4096

// Command implements domain.Generator by executing the engine as a subprocess.
type Command struct {
	path    string
	args    []string
	timeout time.Duration
	grace   time.Duration
	logger  *slog.Logger
}

// NewCommand parses a command line such as "python -m qartod_engine". A
// non-positive timeout disables the deadline.
func NewCommand(cmdline string, timeout time.Duration, logger *slog.Logger) (*Command, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("engine command is empty")
	}
	return &Command{
		path:    fields[0],
		args:    fields[1:],
		timeout: timeout,
		logger:  logger,
	}, nil
}

// WithGrace makes cancellation interrupt the engine and wait up to d for it
// to exit before killing it.
func (c *Command) WithGrace(d time.Duration) *Command {
	c.grace = d
	return c
}

// Args returns the full argument list passed to the engine for one export.
func (c *Command) Args(refdes domain.RefDes, cutoff domain.Cutoff) []string {
	args := append([]string(nil), c.args...)
	return append(args,
		"-s", refdes.Site,
		"-n", refdes.Node,
		"-sn", refdes.Sensor,
		"-co", cutoff.String(),
	)
}

// Generate runs the engine and decodes its output. Failures are returned as
// they come; there is no retry.
func (c *Command) Generate(ctx context.Context, refdes domain.RefDes, cutoff domain.Cutoff) (domain.Artifacts, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.Args(refdes, cutoff)
	cmd := exec.CommandContext(ctx, c.path, args...)
	if c.grace > 0 {
		cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
		cmd.WaitDelay = c.grace
	}

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: maxStderr}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	c.logger.Debug("running qc engine", "cmd", c.path, "args", args)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return domain.Artifacts{}, fmt.Errorf("qc engine %s: %w: %s", refdes, err, msg)
		}
		return domain.Artifacts{}, fmt.Errorf("qc engine %s: %w", refdes, err)
	}

	a, err := decodeOutput(&stdout)
	if err != nil {
		return domain.Artifacts{}, fmt.Errorf("qc engine %s: %w", refdes, err)
	}
	return a, nil
}

func decodeOutput(r io.Reader) (domain.Artifacts, error) {
	var a domain.Artifacts
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return domain.Artifacts{}, fmt.Errorf("decode output: %w", err)
	}
	if len(a.GrossRange.Columns) == 0 || len(a.Climatology.Columns) == 0 {
		return domain.Artifacts{}, errors.New("decode output: gross_range and climatology tables need columns")
	}
	return a, nil
}

// limitedBuffer keeps the first max bytes written and discards the rest.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
