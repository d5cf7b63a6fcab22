// Package solver computes the stationary distribution of a Markov process
// graph by damped power iteration. The chain's radiation edges already
// encode the damping; each step averages the sparse x·M multiply with the
// previous distribution (the lazy chain (M+I)/2), which has the same
// stationary distribution and converges even when the chain is periodic,
// as it is when alpha is 1 and the walk bounces between seed and
// contributions.
//
// Determinism: rows are accumulated in matrix order into a preallocated
// output vector, so results are bit-for-bit reproducible for identical
// inputs and iteration counts.
package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sourcecred/credrank/core/markov"
)

// Defaults for the convergence test.
const (
	DefaultEpsilon       = 1e-7
	DefaultMaxIterations = 255
)

// logEvery is the iteration stride for progress logging.
const logEvery = 32

// ErrNonconvergent indicates the iteration failed to meet the convergence
// threshold within the iteration budget.
var ErrNonconvergent = errors.New("solver: power iteration did not converge")

// Options tunes the power iteration. The zero value selects the defaults.
type Options struct {
	// Epsilon is the max-norm convergence threshold.
	Epsilon float64

	// MaxIterations bounds the iteration count; exceeding it fails with
	// ErrNonconvergent.
	MaxIterations int

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Stats reports how the iteration went.
type Stats struct {
	// Iterations is the number of x·M multiplies performed.
	Iterations int

	// Delta is the final max-norm step size.
	Delta float64
}

// Solve returns the stationary distribution of the chain, starting from
// the uniform distribution. The result sums to one; Cred scaling is the
// caller's concern.
func Solve(c *markov.Chain, opts Options) ([]float64, Stats, error) {
	opts = opts.withDefaults()
	n := c.NumVertices()
	if n == 0 {
		return nil, Stats{}, fmt.Errorf("%w: empty chain", ErrNonconvergent)
	}

	x := make([]float64, n)
	next := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}

	var stats Stats
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		step(c, x, next)
		for i := range next {
			next[i] = 0.5*next[i] + 0.5*x[i]
		}
		delta := maxDelta(x, next)
		x, next = next, x
		stats = Stats{Iterations: iter, Delta: delta}

		if iter%logEvery == 0 {
			opts.Logger.Debug("power iteration progress",
				"iteration", iter, "delta", delta)
		}
		// A lazy step moves half as far as a plain step, so converging
		// to epsilon/2 bounds the true residual ||x·M - x|| by epsilon.
		if 2*delta < opts.Epsilon {
			opts.Logger.Debug("power iteration converged",
				"iterations", iter, "delta", delta)
			return x, stats, nil
		}
	}
	return nil, stats, fmt.Errorf("%w: delta %g after %d iterations (epsilon %g)",
		ErrNonconvergent, stats.Delta, stats.Iterations, opts.Epsilon)
}

// step computes next = x·M row by row in matrix order.
func step(c *markov.Chain, x, next []float64) {
	for i := range next {
		next[i] = 0
	}
	for i := range x {
		mass := x[i]
		if mass == 0 {
			continue
		}
		for _, l := range c.Links(uint32(i)) {
			next[l.Column] += mass * l.Probability
		}
	}
}

// maxDelta returns the max-norm distance between two distributions.
func maxDelta(a, b []float64) float64 {
	max := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}

// Residual returns the max-norm of x·M - x, a direct check of how close x
// is to stationarity.
func Residual(c *markov.Chain, x []float64) float64 {
	next := make([]float64, len(x))
	step(c, x, next)
	return maxDelta(x, next)
}

// ScaleToTotal rescales scores in place so that the entries at and beyond
// the given start index sum to total, and zeroes the entries before it.
// The prefix holds the seed, whose stationary mass is an artifact of the
// teleport rather than Cred. With no mass to scale, all scores are zeroed.
func ScaleToTotal(scores []float64, start int, total float64) {
	mass := floats.Sum(scores[start:])
	if mass <= 0 || total <= 0 {
		for i := range scores {
			scores[i] = 0
		}
		return
	}
	floats.Scale(total/mass, scores)
	for i := 0; i < start; i++ {
		scores[i] = 0
	}
}
