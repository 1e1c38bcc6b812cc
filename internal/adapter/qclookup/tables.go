package qclookup

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/literal"
)

func parseGrossRange(records [][]string) ([]domain.GrossRangeRow, error) {
	if len(records) == 0 {
		return nil, errors.New("empty table")
	}
	cols, err := columnIndex(records[0], "subsite", "node", "sensor", "stream", "parameters", "qcConfig")
	if err != nil {
		return nil, err
	}
	optional := headerIndex(records[0])

	rows := make([]domain.GrossRangeRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		params, err := literal.DecodeMap(rec[cols["parameters"]])
		if err != nil {
			return nil, fmt.Errorf("line %d parameters: %w", line, err)
		}
		qc, err := literal.DecodeMap(rec[cols["qcConfig"]])
		if err != nil {
			return nil, fmt.Errorf("line %d qcConfig: %w", line, err)
		}
		rows = append(rows, domain.GrossRangeRow{
			Subsite:    rec[cols["subsite"]],
			Node:       rec[cols["node"]],
			Sensor:     rec[cols["sensor"]],
			Stream:     rec[cols["stream"]],
			Parameters: params,
			QCConfig:   qc,
			Source:     field(rec, optional, "source"),
			Notes:      field(rec, optional, "notes"),
		})
	}
	return rows, nil
}

// filterGrossRange keeps rows for param, then for refdes, then for stream.
func filterGrossRange(rows []domain.GrossRangeRow, refdes domain.RefDes, param domain.Parameter, stream string) []domain.GrossRangeRow {
	out := make([]domain.GrossRangeRow, 0)
	for _, r := range rows {
		if r.Input() != param.Input {
			continue
		}
		if r.Subsite != refdes.Site || r.Node != refdes.Node || r.Sensor != refdes.Sensor {
			continue
		}
		if !matchStream(r.Stream, stream) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchStream reports whether a row's stream covers want. Rows may name a
// stream exactly or carry a regular expression over stream names.
func matchStream(rowStream, want string) bool {
	if want == "" || rowStream == want {
		return true
	}
	re, err := regexp.Compile(`^(?:` + rowStream + `)$`)
	if err != nil {
		return false
	}
	return re.MatchString(want)
}

func parseClimatology(records [][]string) (domain.ClimatologyTable, error) {
	if len(records) == 0 {
		return domain.ClimatologyTable{}, errors.New("empty table")
	}
	header := records[0]
	if len(header) < 2 {
		return domain.ClimatologyTable{}, errors.New("table has no data columns")
	}

	t := domain.ClimatologyTable{
		IndexName: header[0],
		Columns:   append([]string(nil), header[1:]...),
		Index:     make([]string, 0, len(records)-1),
		Cells:     make([][]any, 0, len(records)-1),
	}
	for i, rec := range records[1:] {
		row := make([]any, len(rec)-1)
		for j, cell := range rec[1:] {
			v, err := literal.Decode(cell)
			if err != nil {
				return domain.ClimatologyTable{}, fmt.Errorf("line %d column %q: %w", i+2, t.Columns[j], err)
			}
			row[j] = v
		}
		t.Index = append(t.Index, rec[0])
		t.Cells = append(t.Cells, row)
	}
	return t, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := headerIndex(header)
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w %q", domain.ErrMissingColumn, c)
		}
	}
	return idx, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}
