// Package literal decodes structured values embedded as text in qc-lookup CSV
// cells. The tables store mappings and lists in Python literal notation:
//
//	{'inp': 'sea_water_temperature'}
//	{'qartod': {'gross_range_test': {'suspect_span': [-5.0, 35.0], 'fail_span': [-5, 35]}}}
//	[[0, 5000], [1, 12]]
//
// Once Python string escapes are rewritten and the Python keywords (None,
// True, False, nan, inf) are resolved, that notation is YAML flow style, so
// cells are parsed with yaml.v3 and converted node by node.
package literal

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed literal")

// Decode converts one cell into map[string]any, []any, int64, float64, bool,
// string or nil. Blank cells decode to nil.
func Decode(cell string) (any, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil, nil
	}

	flow, err := normalize(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrMalformed, s, err)
	}

	dec := yaml.NewDecoder(strings.NewReader(flow))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrMalformed, s, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w %q: expected a single value", ErrMalformed, s)
	}
	var rest yaml.Node
	if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w %q: trailing content", ErrMalformed, s)
	}

	v, err := convert(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrMalformed, s, err)
	}
	return v, nil
}

// DecodeMap decodes a cell that must hold a mapping.
func DecodeMap(cell string) (map[string]any, error) {
	v, err := Decode(cell)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w %q: expected a mapping, got %T", ErrMalformed, strings.TrimSpace(cell), v)
	}
	return m, nil
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) != 0 {
			return n.Value, nil
		}
		return resolvePlain(n.Value)

	case yaml.SequenceNode:
		if n.Style&yaml.FlowStyle == 0 {
			return nil, errors.New("block sequences are not literals")
		}
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case yaml.MappingNode:
		if n.Style&yaml.FlowStyle == 0 {
			return nil, errors.New("block mappings are not literals")
		}
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := convert(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[mapKey(k)] = v
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported node at line %d", n.Line)
	}
}

// resolvePlain resolves an unquoted scalar. Anything that is not a Python
// keyword or a number is rejected: literal strings are always quoted.
func resolvePlain(s string) (any, error) {
	switch s {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "nan":
		return math.NaN(), nil
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("bare word %q", s)
}

func mapKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// Floats flattens a list of numbers, accepting both int64 and float64 items.
// It is meant for span cells such as [-5, 35.5].
func Floats(v any) ([]float64, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrMalformed, v)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		switch x := item.(type) {
		case int64:
			out[i] = float64(x)
		case float64:
			out[i] = x
		default:
			return nil, fmt.Errorf("%w: item %d is %T, not a number", ErrMalformed, i, item)
		}
	}
	return out, nil
}
