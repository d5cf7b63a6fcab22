// Package graph implements the typed, append-only contribution graph: a
// directed multigraph whose nodes and edges are identified by prefix-
// structured addresses. The graph is an arena of two insertion-ordered
// slices with index maps, so all cross-references are plain uint32 indices.
//
// Once constructed, a graph is never mutated in place; Merge builds a new
// graph from its inputs.
package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/sourcecred/credrank/core/address"
)

// Timestamp is a moment in milliseconds since the Unix epoch.
type Timestamp int64

// Timeless marks a node that has no meaningful creation time. Timeless
// nodes never fall inside any interval.
const Timeless Timestamp = math.MinInt64

// Sentinel errors for graph construction. Use errors.Is() to check error
// types.
var (
	// ErrDuplicateAddress indicates an address was re-added with different
	// content.
	ErrDuplicateAddress = errors.New("graph: duplicate address with conflicting content")

	// ErrDanglingEdge indicates an edge references a node that has not been
	// added.
	ErrDanglingEdge = errors.New("graph: edge references missing node")

	// ErrMergeConflict indicates two graphs disagree on the content stored
	// at the same address.
	ErrMergeConflict = errors.New("graph: merge conflict")
)

// Node is a contribution: an addressed, described, optionally timestamped
// entity.
type Node struct {
	Address     address.NodeAddress
	Description string
	Timestamp   Timestamp
}

// Timeless reports whether the node carries no timestamp.
func (n Node) Timeless() bool { return n.Timestamp == Timeless }

// Edge is a directed, timestamped connection between two nodes. Self-loops
// and parallel edges are allowed; parallel edges are distinguished by
// address.
type Edge struct {
	Address   address.EdgeAddress
	Src       address.NodeAddress
	Dst       address.NodeAddress
	Timestamp Timestamp
}

// Graph is the contribution multigraph.
type Graph struct {
	nodes []Node
	edges []Edge

	nodeIndex map[address.NodeAddress]uint32
	edgeIndex map[address.EdgeAddress]uint32

	// Adjacency in insertion order, aligned with nodes.
	in  [][]uint32
	out [][]uint32
}

// New creates an empty contribution graph.
func New() *Graph {
	return &Graph{
		nodeIndex: make(map[address.NodeAddress]uint32),
		edgeIndex: make(map[address.EdgeAddress]uint32),
	}
}

// =============================================================================
// Construction
// =============================================================================

// AddNode adds a node. Re-adding an identical node is a no-op; re-adding
// the same address with different content fails with ErrDuplicateAddress.
func (g *Graph) AddNode(n Node) error {
	if i, ok := g.nodeIndex[n.Address]; ok {
		if g.nodes[i] == n {
			return nil
		}
		return fmt.Errorf("%w: node %q", ErrDuplicateAddress, n.Address)
	}
	g.nodeIndex[n.Address] = uint32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	return nil
}

// AddEdge adds an edge. Both endpoints must already be present. Re-adding
// an identical edge is a no-op; address reuse with different content fails
// with ErrDuplicateAddress.
func (g *Graph) AddEdge(e Edge) error {
	if i, ok := g.edgeIndex[e.Address]; ok {
		if g.edges[i] == e {
			return nil
		}
		return fmt.Errorf("%w: edge %q", ErrDuplicateAddress, e.Address)
	}
	src, ok := g.nodeIndex[e.Src]
	if !ok {
		return fmt.Errorf("%w: edge %q src %q", ErrDanglingEdge, e.Address, e.Src)
	}
	dst, ok := g.nodeIndex[e.Dst]
	if !ok {
		return fmt.Errorf("%w: edge %q dst %q", ErrDanglingEdge, e.Address, e.Dst)
	}
	idx := uint32(len(g.edges))
	g.edgeIndex[e.Address] = idx
	g.edges = append(g.edges, e)
	g.out[src] = append(g.out[src], idx)
	g.in[dst] = append(g.in[dst], idx)
	return nil
}

// Merge unions the nodes and edges of the given graphs into a new graph.
// Matching entries dedupe; entries that share an address but disagree on
// content fail with ErrMergeConflict.
func Merge(graphs ...*Graph) (*Graph, error) {
	out := New()
	for _, g := range graphs {
		for _, n := range g.nodes {
			if err := out.AddNode(n); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMergeConflict, err)
			}
		}
	}
	// Second pass so that edges never dangle regardless of input order.
	for _, g := range graphs {
		for _, e := range g.edges {
			if err := out.AddEdge(e); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMergeConflict, err)
			}
		}
	}
	return out, nil
}

// =============================================================================
// Lookup
// =============================================================================

// Node returns the node at addr, if present.
func (g *Graph) Node(addr address.NodeAddress) (Node, bool) {
	i, ok := g.nodeIndex[addr]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Edge returns the edge at addr, if present.
func (g *Graph) Edge(addr address.EdgeAddress) (Edge, bool) {
	i, ok := g.edgeIndex[addr]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// HasNode reports whether addr names a node in g.
func (g *Graph) HasNode(addr address.NodeAddress) bool {
	_, ok := g.nodeIndex[addr]
	return ok
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// =============================================================================
// Iteration
// =============================================================================

// Nodes returns the nodes in insertion order. With a prefix argument, only
// nodes under that prefix are returned.
func (g *Graph) Nodes(prefix ...address.NodeAddress) []Node {
	if len(prefix) == 0 {
		return append([]Node(nil), g.nodes...)
	}
	var out []Node
	for _, n := range g.nodes {
		if n.Address.HasPrefix(prefix[0]) {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns the edges in insertion order. With a prefix argument, only
// edges under that prefix are returned.
func (g *Graph) Edges(prefix ...address.EdgeAddress) []Edge {
	if len(prefix) == 0 {
		return append([]Edge(nil), g.edges...)
	}
	var out []Edge
	for _, e := range g.edges {
		if e.Address.HasPrefix(prefix[0]) {
			out = append(out, e)
		}
	}
	return out
}

// InEdges returns the edges whose destination is addr, in insertion order.
func (g *Graph) InEdges(addr address.NodeAddress) []Edge {
	i, ok := g.nodeIndex[addr]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.in[i]))
	for _, ei := range g.in[i] {
		out = append(out, g.edges[ei])
	}
	return out
}

// OutEdges returns the edges whose source is addr, in insertion order.
func (g *Graph) OutEdges(addr address.NodeAddress) []Edge {
	i, ok := g.nodeIndex[addr]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.out[i]))
	for _, ei := range g.out[i] {
		out = append(out, g.edges[ei])
	}
	return out
}

// Equal reports structural equality: the same node and edge sequences.
func (g *Graph) Equal(other *Graph) bool {
	if len(g.nodes) != len(other.nodes) || len(g.edges) != len(other.edges) {
		return false
	}
	for i, n := range g.nodes {
		if other.nodes[i] != n {
			return false
		}
	}
	for i, e := range g.edges {
		if other.edges[i] != e {
			return false
		}
	}
	return true
}
