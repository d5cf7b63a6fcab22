// Package credrank ties the CredRank core together: it builds the Markov
// process graph from a contribution graph, solves it for the stationary
// distribution, and projects the result back onto contributions and
// participants as Cred.
package credrank

import (
	"log/slog"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
	"github.com/sourcecred/credrank/core/interval"
	"github.com/sourcecred/credrank/core/markov"
	"github.com/sourcecred/credrank/core/solver"
	"github.com/sourcecred/credrank/core/weights"
)

// Options tunes a CredRank run. The zero value selects the defaults.
type Options struct {
	Solver solver.Options
	Logger *slog.Logger
}

// CredGraph is the solved Markov process graph: every vertex annotated
// with its Cred, every edge with its Cred flow. It is a read-only view.
type CredGraph struct {
	chain  *markov.Chain
	scores []float64 // Cred per vertex; seed pinned to zero
	stats  solver.Stats

	// vertexIntervals maps each vertex to the interval its Cred is
	// minted in: the gadget interval for epochs and accumulators, the
	// node timestamp's interval for organics, -1 for the seed and for
	// timeless organics.
	vertexIntervals []int32
}

// CredRank runs the core end to end: declaration coverage check, weight
// resolution, MPG construction, stationary solve, and Cred scaling.
func CredRank(
	g *graph.Graph,
	w weights.Weights,
	decls []weights.Declaration,
	participants []markov.Participant,
	params markov.Parameters,
	intervals interval.Sequence,
	opts Options,
) (*CredGraph, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Solver.Logger == nil {
		opts.Solver.Logger = opts.Logger
	}

	if err := weights.CheckCoverage(g, decls); err != nil {
		return nil, err
	}
	res, err := weights.NewResolver(decls, w)
	if err != nil {
		return nil, err
	}
	chain, err := markov.Build(g, res, intervals, participants, params, opts.Logger)
	if err != nil {
		return nil, err
	}
	scores, stats, err := solver.Solve(chain, opts.Solver)
	if err != nil {
		return nil, err
	}
	solver.ScaleToTotal(scores, int(markov.SeedIndex)+1, chain.TotalMint())

	opts.Logger.Debug("credrank run complete",
		"iterations", stats.Iterations,
		"delta", stats.Delta,
		"totalCred", chain.TotalMint(),
	)

	return &CredGraph{
		chain:           chain,
		scores:          scores,
		stats:           stats,
		vertexIntervals: vertexIntervals(chain, g),
	}, nil
}

// CredRankWithWidth derives the interval sequence from the graph's edge
// timestamps and the given epoch width before running CredRank.
func CredRankWithWidth(
	g *graph.Graph,
	w weights.Weights,
	decls []weights.Declaration,
	participants []markov.Participant,
	params markov.Parameters,
	epochWidthMs int64,
	opts Options,
) (*CredGraph, error) {
	var ts []graph.Timestamp
	for _, e := range g.Edges() {
		ts = append(ts, e.Timestamp)
	}
	seq, err := interval.Partition(ts, epochWidthMs)
	if err != nil {
		return nil, err
	}
	return CredRank(g, w, decls, participants, params, seq, opts)
}

func vertexIntervals(c *markov.Chain, g *graph.Graph) []int32 {
	seq := c.Intervals()
	out := make([]int32, c.NumVertices())
	for i := range out {
		v := c.Vertex(uint32(i))
		switch v.Kind {
		case markov.VertexEpoch, markov.VertexAccumulator:
			out[i] = v.Interval
		case markov.VertexOrganic:
			out[i] = -1
			if n, ok := g.Node(v.Address); ok && !n.Timeless() {
				if ii, found := seq.Find(n.Timestamp); found {
					out[i] = int32(ii)
				}
			}
		default:
			out[i] = -1
		}
	}
	return out
}

// =============================================================================
// Projection
// =============================================================================

// Chain exposes the underlying Markov process graph.
func (cg *CredGraph) Chain() *markov.Chain { return cg.chain }

// SolverStats reports the convergence statistics of the run.
func (cg *CredGraph) SolverStats() solver.Stats { return cg.stats }

// TotalCred returns the sum of all Cred, which equals the total mint.
func (cg *CredGraph) TotalCred() float64 { return floats.Sum(cg.scores) }

// VertexCred returns the Cred of the vertex at the given matrix index.
func (cg *CredGraph) VertexCred(i uint32) float64 { return cg.scores[i] }

// NodeCred returns the Cred of the MPG vertex with the given address,
// organic or synthetic.
func (cg *CredGraph) NodeCred(addr address.NodeAddress) (float64, bool) {
	i, ok := cg.chain.VertexIndex(addr)
	if !ok {
		return 0, false
	}
	return cg.scores[i], true
}

// EdgeFlow is the Cred flowing along one MPG rendering of a contribution
// edge.
type EdgeFlow struct {
	// Reversed marks the backward rendering.
	Reversed bool

	// Flow is src Cred times transition probability.
	Flow float64
}

// EdgeCredFlows returns the Cred flows carried by the given contribution
// edge, one entry per surviving direction. Edges dropped for zero weight
// yield no entries.
func (cg *CredGraph) EdgeCredFlows(addr address.EdgeAddress) []EdgeFlow {
	indices := cg.chain.OrganicEdges(addr)
	out := make([]EdgeFlow, 0, len(indices))
	for _, ei := range indices {
		e := cg.chain.EdgeAt(ei)
		out = append(out, EdgeFlow{
			Reversed: e.Reversed,
			Flow:     cg.scores[e.From] * e.Probability,
		})
	}
	return out
}

// ParticipantCredPerInterval returns the participant's Cred in each
// interval: the Cred flow of the epoch's payout edge.
func (cg *CredGraph) ParticipantCredPerInterval(id uuid.UUID) ([]float64, bool) {
	pi, ok := cg.chain.ParticipantIndex(id)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(cg.chain.Intervals()))
	for ii := range out {
		epoch, ok := cg.chain.EpochVertex(pi, ii)
		if !ok {
			continue
		}
		ei, ok := cg.chain.PayoutEdge(epoch)
		if !ok {
			// beta == 0: no payout edge, no participant Cred.
			continue
		}
		e := cg.chain.EdgeAt(ei)
		out[ii] = cg.scores[epoch] * e.Probability
	}
	return out, true
}

// ParticipantCred returns the participant's total Cred across intervals.
func (cg *CredGraph) ParticipantCred(id uuid.UUID) (float64, bool) {
	perInterval, ok := cg.ParticipantCredPerInterval(id)
	if !ok {
		return 0, false
	}
	return floats.Sum(perInterval), true
}

// IntervalCred returns the raw Cred minted in each interval: the summed
// Cred of every vertex whose activity falls in that interval. The seed
// and timeless organic nodes contribute to no interval.
func (cg *CredGraph) IntervalCred() []float64 {
	out := make([]float64, len(cg.chain.Intervals()))
	for i, ii := range cg.vertexIntervals {
		if ii >= 0 {
			out[ii] += cg.scores[i]
		}
	}
	return out
}

// Equal reports whether two cred graphs are structurally identical with
// bit-for-bit equal scores.
func (cg *CredGraph) Equal(other *CredGraph) bool {
	if cg.chain.NumVertices() != other.chain.NumVertices() ||
		cg.chain.NumEdges() != other.chain.NumEdges() ||
		len(cg.scores) != len(other.scores) {
		return false
	}
	for i, s := range cg.scores {
		if other.scores[i] != s {
			return false
		}
	}
	for i := 0; i < cg.chain.NumVertices(); i++ {
		if cg.chain.Vertex(uint32(i)) != other.chain.Vertex(uint32(i)) {
			return false
		}
		if cg.vertexIntervals[i] != other.vertexIntervals[i] {
			return false
		}
	}
	for i := 0; i < cg.chain.NumEdges(); i++ {
		if cg.chain.EdgeAt(uint32(i)) != other.chain.EdgeAt(uint32(i)) {
			return false
		}
	}
	return true
}
