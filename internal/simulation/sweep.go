package simulation

import (
	"context"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

// Options tune a sweep. Both hooks are optional.
type Options struct {
	// Progress is called after each candidate finishes.
	Progress func(completed, total int)
	// Cancelled is polled before each candidate starts.
	Cancelled func() bool
}

// SweepOutcome holds the results produced by a sweep, in candidate order.
// A cancelled sweep returns the prefix completed before cancellation.
type SweepOutcome struct {
	Results   []domain.EstimateResult `json:"results"`
	Cancelled bool                    `json:"cancelled"`
}

// Sweep estimates reliability for each tank size in order, replacing only the
// input's capacity. Cancellation through ctx or opts.Cancelled is checked
// between candidates and yields a partial outcome, not an error.
func Sweep(ctx context.Context, input domain.SimulationInput, rain RainfallSource, sizesM3 []float64, opts Options) (SweepOutcome, error) {
	out := SweepOutcome{Results: make([]domain.EstimateResult, 0, len(sizesM3))}

	for i, size := range sizesM3 {
		if ctx.Err() != nil || (opts.Cancelled != nil && opts.Cancelled()) {
			out.Cancelled = true
			return out, nil
		}

		res, err := Estimate(input.WithTankCapacity(size), rain)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, res)

		if opts.Progress != nil {
			opts.Progress(i+1, len(sizesM3))
		}
	}
	return out, nil
}
