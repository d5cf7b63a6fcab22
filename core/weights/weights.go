// Package weights resolves the mint weight of every node and the directional
// weights of every edge in a contribution graph. Explicit overrides win over
// type defaults; type defaults are found by longest-prefix match against the
// plugin declarations; anything unmatched weighs zero.
package weights

import (
	"errors"
	"fmt"

	"github.com/sourcecred/credrank/core/address"
)

// Sentinel errors. Use errors.Is() to check error types.
var (
	// ErrWeightConflict indicates two override sources assign different
	// weights to the same key.
	ErrWeightConflict = errors.New("weights: conflicting override")

	// ErrUnclaimedAddress indicates a graph address is not covered by
	// exactly one plugin declaration.
	ErrUnclaimedAddress = errors.New("weights: address not claimed by exactly one declaration")
)

// EdgeWeight carries the forward and backward weight of an edge. Either
// side may be zero; an edge with both sides zero is dropped from the
// Markov process graph entirely.
type EdgeWeight struct {
	Forwards  float64 `json:"forwards" yaml:"forwards"`
	Backwards float64 `json:"backwards" yaml:"backwards"`
}

// IsZero reports whether both directions carry no weight.
func (w EdgeWeight) IsZero() bool { return w.Forwards == 0 && w.Backwards == 0 }

// Weights holds explicit per-address overrides. Node overrides replace the
// type default outright; edge overrides multiply it (1.0 is neutral).
type Weights struct {
	Node map[address.NodeAddress]float64
	Edge map[address.EdgeAddress]EdgeWeight
}

// New creates an empty override set.
func New() Weights {
	return Weights{
		Node: make(map[address.NodeAddress]float64),
		Edge: make(map[address.EdgeAddress]EdgeWeight),
	}
}

// Merge unions override sets. Duplicate keys that agree dedupe; duplicate
// keys that disagree fail with ErrWeightConflict.
func Merge(ws ...Weights) (Weights, error) {
	out := New()
	for _, w := range ws {
		for addr, v := range w.Node {
			if prev, ok := out.Node[addr]; ok && prev != v {
				return Weights{}, fmt.Errorf("%w: node %q has %v and %v",
					ErrWeightConflict, addr, prev, v)
			}
			out.Node[addr] = v
		}
		for addr, v := range w.Edge {
			if prev, ok := out.Edge[addr]; ok && prev != v {
				return Weights{}, fmt.Errorf("%w: edge %q has %+v and %+v",
					ErrWeightConflict, addr, prev, v)
			}
			out.Edge[addr] = v
		}
	}
	return out, nil
}

// =============================================================================
// Plugin declarations
// =============================================================================

// NodeType declares a default mint weight for every node under a prefix.
type NodeType struct {
	Name          string
	Prefix        address.NodeAddress
	DefaultWeight float64
}

// EdgeType declares default directional weights for every edge under a
// prefix.
type EdgeType struct {
	Name             string
	Prefix           address.EdgeAddress
	DefaultForwards  float64
	DefaultBackwards float64
}

// Declaration describes one plugin's address territory and its type
// defaults. Every non-gadget address in a scored graph must fall under
// exactly one declaration.
type Declaration struct {
	Name       string
	NodePrefix address.NodeAddress
	EdgePrefix address.EdgeAddress
	NodeTypes  []NodeType
	EdgeTypes  []EdgeType
}
