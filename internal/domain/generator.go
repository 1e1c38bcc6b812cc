package domain

import "context"

// Generator computes QARTOD lookup tables for one reference designator.
// Implementations wrap the external QC engine; any failure inside the engine
// is returned unmodified apart from wrapping.
type Generator interface {
	Generate(ctx context.Context, refdes RefDes, cutoff Cutoff) (Artifacts, error)
}
