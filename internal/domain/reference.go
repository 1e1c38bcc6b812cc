package domain

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/qartod-export/internal/literal"
)

// Reference is the result of fetching a published lookup table. Found is false
// when the remote host has no such table, which is distinct from a table that
// exists but filters down to nothing.
type Reference[T any] struct {
	URL   string
	Found bool
	Value T
}

// NotFound builds a Reference for a table the remote host does not have.
func NotFound[T any](url string) Reference[T] {
	return Reference[T]{URL: url}
}

// Found builds a Reference for a fetched table.
func Found[T any](url string, v T) Reference[T] {
	return Reference[T]{URL: url, Found: true, Value: v}
}

// GrossRangeRow is one row of a published gross range table with its
// structured columns decoded.
type GrossRangeRow struct {
	Subsite    string
	Node       string
	Sensor     string
	Stream     string
	Parameters map[string]any
	QCConfig   map[string]any
	Source     string
	Notes      string
}

// Input returns the parameter identifier of the row ({'inp': ...}).
func (r GrossRangeRow) Input() string {
	s, _ := r.Parameters["inp"].(string)
	return s
}

// Spans returns the suspect and fail spans of the row's gross range test.
func (r GrossRangeRow) Spans() (suspect, fail []float64, err error) {
	test, ok := dig(r.QCConfig, "qartod", "gross_range_test")
	if !ok {
		return nil, nil, errors.New("qcConfig has no qartod.gross_range_test")
	}
	if suspect, err = literal.Floats(test["suspect_span"]); err != nil {
		return nil, nil, fmt.Errorf("suspect_span: %w", err)
	}
	if fail, err = literal.Floats(test["fail_span"]); err != nil {
		return nil, nil, fmt.Errorf("fail_span: %w", err)
	}
	return suspect, fail, nil
}

func dig(m map[string]any, keys ...string) (map[string]any, bool) {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// ClimatologyTable is a published climatology table. Index holds the first
// column of each row (typically a depth range); Cells holds the decoded
// remaining cells, one slice per row, aligned with Columns.
type ClimatologyTable struct {
	IndexName string
	Columns   []string
	Index     []string
	Cells     [][]any
}
