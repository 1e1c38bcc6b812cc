// Command validate checks an exported artifact tree for one reference
// designator: every file is present, tabular artifacts carry the fixed
// qc-lookup headers and their own designator, and every structured cell
// decodes.
//
// Usage:
//
//	go run ./cmd/validate -dir ~/ooidata/qartod -refdes CE01ISSM-SBD17-06-CTDBPC000
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/qartod-export/internal/adapter/csvfile"
	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/literal"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "artifact root (QARTOD_OUTPUT_DIR)")
	refdesFlag := flag.String("refdes", "", "reference designator, e.g. CE01ISSM-SBD17-06-CTDBPC000")
	flag.Parse()

	if *dir == "" || *refdesFlag == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *dir, *refdesFlag))
}

func run(out io.Writer, dir, refdesText string) int {
	refdes, err := domain.ParseRefDes(refdesText)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	params, err := domain.ParametersFor(refdes.SensorType())
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	paths := csvfile.NewWriter(dir, nil).PathsFor(refdes, params)

	fmt.Fprintf(out, "=== QARTOD artifact validation: %s ===\n\n", refdes)

	phases := []*phase{
		validateLayout(paths),
		validateTable("Annotations", paths.Annotations, domain.AnnotationColumns, refdes, nil),
		validateTable("Gross range table", paths.GrossRange, domain.GrossRangeColumns, refdes, checkGrossRangeRow),
		validateTable("Climatology table", paths.Climatology, domain.ClimatologyColumns, refdes, checkClimatologyRow),
		validateClimatologyTables(paths),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Fprintf(out, "  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return 0
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

func validateLayout(paths domain.OutputPaths) *phase {
	p := &phase{name: "Artifact layout"}
	for _, path := range paths.All() {
		info, err := os.Stat(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if info.IsDir() {
			p.errorf("%s: is a directory", path)
		}
	}
	return p
}

type rowCheck func(p *phase, line int, row map[string]string)

// validateTable checks the header, the designator columns and, when given,
// each row's structured cells.
func validateTable(name, path string, schema []string, refdes domain.RefDes, check rowCheck) *phase {
	p := &phase{name: name}
	records, err := loadCSV(path)
	if err != nil {
		p.errorf("read %s: %v", path, err)
		return p
	}
	if len(records) == 0 {
		p.errorf("%s: no header", path)
		return p
	}
	if !slices.Equal(records[0], schema) {
		p.errorf("header = %v, want %v", records[0], schema)
		return p
	}

	for i, rec := range records[1:] {
		line := i + 2
		row := make(map[string]string, len(schema))
		for j, col := range schema {
			row[col] = rec[j]
		}
		if row["subsite"] != refdes.Site || row["node"] != refdes.Node || row["sensor"] != refdes.Sensor {
			p.errorf("line %d: designator %s-%s-%s, want %s", line, row["subsite"], row["node"], row["sensor"], refdes)
		}
		if check != nil {
			check(p, line, row)
		}
	}
	return p
}

func checkGrossRangeRow(p *phase, line int, row map[string]string) {
	params, err := literal.DecodeMap(row["parameters"])
	if err != nil {
		p.errorf("line %d parameters: %v", line, err)
		return
	}
	qc, err := literal.DecodeMap(row["qcConfig"])
	if err != nil {
		p.errorf("line %d qcConfig: %v", line, err)
		return
	}
	gr := domain.GrossRangeRow{Parameters: params, QCConfig: qc}
	if gr.Input() == "" {
		p.errorf("line %d: parameters has no 'inp'", line)
	}
	suspect, fail, err := gr.Spans()
	if err != nil {
		p.errorf("line %d: %v", line, err)
		return
	}
	if len(suspect) != 2 || len(fail) != 2 {
		p.errorf("line %d: spans must have two bounds, got suspect=%v fail=%v", line, suspect, fail)
	}
}

func checkClimatologyRow(p *phase, line int, row map[string]string) {
	if _, err := literal.DecodeMap(row["parameters"]); err != nil {
		p.errorf("line %d parameters: %v", line, err)
	}
	if !strings.HasSuffix(row["climatologyTable"], ".csv") {
		p.errorf("line %d: climatologyTable %q is not a csv file name", line, row["climatologyTable"])
	}
}

func validateClimatologyTables(paths domain.OutputPaths) *phase {
	p := &phase{name: "Per-parameter climatology tables"}
	for _, f := range paths.ClimatologyTables {
		records, err := loadCSV(f.Path)
		if err != nil {
			p.errorf("%s: %v", f.Parameter, err)
			continue
		}
		if len(records) < 2 || len(records[0]) < 2 {
			p.errorf("%s: table has no data", f.Parameter)
			continue
		}
		for i, rec := range records {
			for j, cell := range rec {
				if i == 0 && j == 0 {
					continue
				}
				if _, err := literal.Decode(cell); err != nil {
					p.errorf("%s line %d column %d: %v", f.Parameter, i+1, j+1, err)
				}
			}
		}
	}
	return p
}
