package graph_test

import (
	"testing"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = address.MustNodeAddress("test", "node", "a")
	addrB = address.MustNodeAddress("test", "node", "b")
	addrC = address.MustNodeAddress("test", "node", "c")

	edgeAB = address.MustEdgeAddress("test", "edge", "ab")
	edgeBA = address.MustEdgeAddress("test", "edge", "ba")
)

func nodeA() graph.Node {
	return graph.Node{Address: addrA, Description: "a", Timestamp: 100}
}

func nodeB() graph.Node {
	return graph.Node{Address: addrB, Description: "b", Timestamp: graph.Timeless}
}

func TestAddNode_Idempotent(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddNode(nodeA()))
	require.NoError(t, g.AddNode(nodeA()))
	assert.Equal(t, 1, g.NumNodes())
}

func TestAddNode_ConflictingContent(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddNode(nodeA()))

	clash := nodeA()
	clash.Description = "different"
	err := g.AddNode(clash)
	assert.ErrorIs(t, err, graph.ErrDuplicateAddress)
}

func TestAddEdge_DanglingEndpoints(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddNode(nodeA()))

	err := g.AddEdge(graph.Edge{Address: edgeAB, Src: addrA, Dst: addrB, Timestamp: 5})
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)

	err = g.AddEdge(graph.Edge{Address: edgeAB, Src: addrB, Dst: addrA, Timestamp: 5})
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)
}

func TestAddEdge_SelfLoopAndParallel(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddNode(nodeA()))
	require.NoError(t, g.AddNode(nodeB()))

	loop := address.MustEdgeAddress("test", "edge", "loop")
	require.NoError(t, g.AddEdge(graph.Edge{Address: loop, Src: addrA, Dst: addrA, Timestamp: 1}))

	// Parallel edges with distinct addresses are fine.
	p1 := address.MustEdgeAddress("test", "edge", "p1")
	p2 := address.MustEdgeAddress("test", "edge", "p2")
	require.NoError(t, g.AddEdge(graph.Edge{Address: p1, Src: addrA, Dst: addrB, Timestamp: 1}))
	require.NoError(t, g.AddEdge(graph.Edge{Address: p2, Src: addrA, Dst: addrB, Timestamp: 2}))

	assert.Equal(t, 3, g.NumEdges())
	assert.Len(t, g.OutEdges(addrA), 3)
	assert.Len(t, g.InEdges(addrA), 1)
	assert.Len(t, g.InEdges(addrB), 2)
}

func TestNodes_PrefixFilterAndOrder(t *testing.T) {
	g := graph.New()
	other := graph.Node{Address: address.MustNodeAddress("other", "x"), Timestamp: graph.Timeless}
	require.NoError(t, g.AddNode(nodeB()))
	require.NoError(t, g.AddNode(other))
	require.NoError(t, g.AddNode(nodeA()))

	all := g.Nodes()
	require.Len(t, all, 3)
	assert.Equal(t, addrB, all[0].Address)
	assert.Equal(t, addrA, all[2].Address)

	filtered := g.Nodes(address.MustNodeAddress("test"))
	require.Len(t, filtered, 2)
	assert.Equal(t, addrB, filtered[0].Address)
	assert.Equal(t, addrA, filtered[1].Address)
}

func TestMerge_DedupesAndConflicts(t *testing.T) {
	g1 := graph.New()
	require.NoError(t, g1.AddNode(nodeA()))
	require.NoError(t, g1.AddNode(nodeB()))
	require.NoError(t, g1.AddEdge(graph.Edge{Address: edgeAB, Src: addrA, Dst: addrB, Timestamp: 7}))

	g2 := graph.New()
	require.NoError(t, g2.AddNode(nodeB()))
	require.NoError(t, g2.AddNode(graph.Node{Address: addrC, Timestamp: 9}))
	require.NoError(t, g2.AddEdge(graph.Edge{Address: edgeBA, Src: addrB, Dst: addrC, Timestamp: 8}))

	merged, err := graph.Merge(g1, g2)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.NumNodes())
	assert.Equal(t, 2, merged.NumEdges())

	// Conflicting node content across graphs is rejected.
	g3 := graph.New()
	clash := nodeA()
	clash.Description = "mismatch"
	require.NoError(t, g3.AddNode(clash))

	_, err = graph.Merge(g1, g3)
	assert.ErrorIs(t, err, graph.ErrMergeConflict)
}

func TestMerge_EdgeEndpointsFromOtherGraph(t *testing.T) {
	// g2's edge references a node that only g1 carries; merge still works
	// because nodes are merged before edges.
	g1 := graph.New()
	require.NoError(t, g1.AddNode(nodeA()))
	require.NoError(t, g1.AddNode(nodeB()))

	g2 := graph.New()
	require.NoError(t, g2.AddNode(nodeA()))
	require.NoError(t, g2.AddNode(nodeB()))
	require.NoError(t, g2.AddEdge(graph.Edge{Address: edgeAB, Src: addrA, Dst: addrB, Timestamp: 3}))

	merged, err := graph.Merge(g1, g2)
	require.NoError(t, err)
	_, ok := merged.Edge(edgeAB)
	assert.True(t, ok)
}

func TestEqual_Structural(t *testing.T) {
	build := func() *graph.Graph {
		g := graph.New()
		_ = g.AddNode(nodeA())
		_ = g.AddNode(nodeB())
		_ = g.AddEdge(graph.Edge{Address: edgeAB, Src: addrA, Dst: addrB, Timestamp: 7})
		return g
	}
	assert.True(t, build().Equal(build()))

	other := build()
	_ = other.AddNode(graph.Node{Address: addrC})
	assert.False(t, build().Equal(other))
}
