package csvfile

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/qartod-export/internal/domain"
)

// Writer persists export artifacts under <baseDir>/<sensor-type>/.
// It implements export.ArtifactWriter.
type Writer struct {
	baseDir string
	logger  *slog.Logger
}

// NewWriter creates a Writer rooted at baseDir. A nil logger uses slog.Default.
func NewWriter(baseDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{baseDir: baseDir, logger: logger}
}

// PathsFor returns the deterministic file layout for refdes without touching
// the filesystem.
func (w *Writer) PathsFor(refdes domain.RefDes, params []domain.Parameter) domain.OutputPaths {
	dir := filepath.Join(w.baseDir, refdes.SensorType())
	id := refdes.String()

	p := domain.OutputPaths{
		Dir:         dir,
		Annotations: filepath.Join(dir, id+".quality_annotations.csv"),
		GrossRange:  filepath.Join(dir, id+".gross_range.csv"),
		Climatology: filepath.Join(dir, id+".climatology.csv"),
	}
	for _, param := range params {
		p.ClimatologyTables = append(p.ClimatologyTables, domain.ParameterFile{
			Parameter: param.Name,
			Path:      filepath.Join(dir, id+"-"+param.Name+".csv"),
		})
	}
	return p
}

// Write creates the output directory if needed and writes all artifacts,
// overwriting files from earlier runs. Writes are not atomic: a failure part
// way through leaves the files already written in place.
func (w *Writer) Write(refdes domain.RefDes, params []domain.Parameter, a domain.Artifacts) (domain.OutputPaths, error) {
	if len(a.ClimatologyTables) != len(params) {
		return domain.OutputPaths{}, fmt.Errorf("got %d climatology tables for %d parameters", len(a.ClimatologyTables), len(params))
	}

	p := w.PathsFor(refdes, params)
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return domain.OutputPaths{}, fmt.Errorf("create output dir: %w", err)
	}

	if err := writeTable(p.Annotations, a.Annotations, domain.AnnotationColumns); err != nil {
		return p, err
	}
	if err := writeTable(p.GrossRange, a.GrossRange, domain.GrossRangeColumns); err != nil {
		return p, err
	}
	if err := writeTable(p.Climatology, a.Climatology, domain.ClimatologyColumns); err != nil {
		return p, err
	}
	for i, f := range p.ClimatologyTables {
		if err := os.WriteFile(f.Path, []byte(a.ClimatologyTables[i]), 0o644); err != nil {
			return p, fmt.Errorf("write %s: %w", f.Path, err)
		}
	}

	w.logger.Debug("artifacts written", "refdes", refdes.String(), "dir", p.Dir, "files", len(p.All()))
	return p, nil
}

func writeTable(path string, t domain.Table, schema []string) error {
	rows, err := t.Project(schema)
	if err != nil {
		return fmt.Errorf("project %s: %w", filepath.Base(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(schema); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
