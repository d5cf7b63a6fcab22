package solver_test

import (
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
	"github.com/sourcecred/credrank/core/interval"
	"github.com/sourcecred/credrank/core/markov"
	"github.com/sourcecred/credrank/core/solver"
	"github.com/sourcecred/credrank/core/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nodeA = address.MustNodeAddress("test", "node", "a")
	nodeB = address.MustNodeAddress("test", "node", "b")
)

func buildChain(t *testing.T, overrides weights.Weights, edges ...graph.Edge) *markov.Chain {
	t.Helper()
	decl := weights.Declaration{
		Name:       "test",
		NodePrefix: address.MustNodeAddress("test"),
		EdgePrefix: address.MustEdgeAddress("test"),
		NodeTypes: []weights.NodeType{
			{Name: "node", Prefix: address.MustNodeAddress("test", "node"), DefaultWeight: 1},
		},
		EdgeTypes: []weights.EdgeType{
			{Name: "edge", Prefix: address.MustEdgeAddress("test", "edge"),
				DefaultForwards: 1, DefaultBackwards: 0},
		},
	}
	res, err := weights.NewResolver([]weights.Declaration{decl}, overrides)
	require.NoError(t, err)

	g := graph.New()
	require.NoError(t, g.AddNode(graph.Node{Address: nodeA, Timestamp: 0}))
	require.NoError(t, g.AddNode(graph.Node{Address: nodeB, Timestamp: 0}))
	var ts []graph.Timestamp
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e))
		ts = append(ts, e.Timestamp)
	}

	seq, err := interval.Partition(ts, 2)
	require.NoError(t, err)

	c, err := markov.Build(g, res, seq, nil, markov.DefaultParameters(), nil)
	require.NoError(t, err)
	return c
}

func TestSolve_StationaryWithinEpsilon(t *testing.T) {
	c := buildChain(t, weights.New(), graph.Edge{
		Address: address.MustEdgeAddress("test", "edge", "ab"),
		Src:     nodeA, Dst: nodeB, Timestamp: 1,
	})

	x, stats, err := solver.Solve(c, solver.Options{})
	require.NoError(t, err)
	assert.Greater(t, stats.Iterations, 0)
	assert.Less(t, stats.Delta, solver.DefaultEpsilon)

	// x is a distribution and is stationary within epsilon.
	assert.InDelta(t, 1.0, floats.Sum(x), 1e-9)
	assert.LessOrEqual(t, solver.Residual(c, x), solver.DefaultEpsilon)
}

func TestSolve_Deterministic(t *testing.T) {
	c := buildChain(t, weights.New(), graph.Edge{
		Address: address.MustEdgeAddress("test", "edge", "ab"),
		Src:     nodeA, Dst: nodeB, Timestamp: 1,
	})

	x1, s1, err := solver.Solve(c, solver.Options{})
	require.NoError(t, err)
	x2, s2, err := solver.Solve(c, solver.Options{})
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, x1, x2) // bit-for-bit
}

func TestSolve_Nonconvergent(t *testing.T) {
	c := buildChain(t, weights.New(), graph.Edge{
		Address: address.MustEdgeAddress("test", "edge", "ab"),
		Src:     nodeA, Dst: nodeB, Timestamp: 1,
	})

	_, _, err := solver.Solve(c, solver.Options{Epsilon: 1e-7, MaxIterations: 1})
	assert.ErrorIs(t, err, solver.ErrNonconvergent)
}

func TestScaleToTotal(t *testing.T) {
	scores := []float64{0.4, 0.3, 0.3}
	solver.ScaleToTotal(scores, 1, 3)
	assert.Equal(t, 0.0, scores[0])
	assert.InDelta(t, 1.5, scores[1], 1e-12)
	assert.InDelta(t, 1.5, scores[2], 1e-12)

	// No scalable mass zeroes everything.
	scores = []float64{1, 0, 0}
	solver.ScaleToTotal(scores, 1, 3)
	assert.Equal(t, []float64{0, 0, 0}, scores)

	// Zero total zeroes everything.
	scores = []float64{0.5, 0.25, 0.25}
	solver.ScaleToTotal(scores, 1, 0)
	assert.Equal(t, []float64{0, 0, 0}, scores)
}
