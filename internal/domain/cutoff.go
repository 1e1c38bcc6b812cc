package domain

import (
	"fmt"
	"strings"
	"time"
)

// CutoffLayout is the zone-less ISO-8601 form passed to the QC engine.
const CutoffLayout = "2006-01-02T15:04:05"

var cutoffLayouts = []string{CutoffLayout, time.RFC3339, "2006-01-02"}

// Cutoff bounds the historical data used to compute QC statistics.
type Cutoff struct {
	time.Time
}

// ParseCutoff accepts "2006-01-02T15:04:05", RFC 3339 or a bare date. An empty
// string yields the start of the current UTC day.
func ParseCutoff(s string) (Cutoff, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		now := Now()
		return Cutoff{time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}, nil
	}
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Cutoff{t.UTC()}, nil
		}
	}
	return Cutoff{}, fmt.Errorf("invalid cutoff %q: want %s", s, CutoffLayout)
}

func (c Cutoff) String() string {
	return c.UTC().Format(CutoffLayout)
}
