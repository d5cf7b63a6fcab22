package markov

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
)

// Gadget vertices get synthetic addresses under a reserved namespace so
// they can never collide with contribution addresses.
var gadgetPrefix = address.MustNodeAddress("sourcecred", "core")

// Participant designates a contribution-graph node as a person. In the
// Markov process graph the participant's organic node is removed and
// replaced by one epoch node per interval.
type Participant struct {
	// ID is the stable 16-byte identity. Epoch ordering follows the
	// lexicographic order of these bytes.
	ID uuid.UUID

	// Address is the participant's node address in the contribution
	// graph. The address need not be present in the graph; epochs are
	// created either way.
	Address address.NodeAddress

	Description string
}

// VertexKind discriminates the gadget families of the Markov process graph.
type VertexKind uint8

const (
	// VertexSeed is the single absorbing teleport target and mint source.
	VertexSeed VertexKind = iota

	// VertexAccumulator collects the payout flow of one interval.
	VertexAccumulator

	// VertexEpoch stands in for one participant during one interval.
	VertexEpoch

	// VertexOrganic is a non-participant contribution node carried over
	// from the contribution graph.
	VertexOrganic
)

func (k VertexKind) String() string {
	switch k {
	case VertexSeed:
		return "seed"
	case VertexAccumulator:
		return "accumulator"
	case VertexEpoch:
		return "epoch"
	case VertexOrganic:
		return "organic"
	default:
		return fmt.Sprintf("VertexKind(%d)", uint8(k))
	}
}

// Vertex is one node of the Markov process graph, modeled as a tagged
// variant rather than an interface so that row construction can
// pattern-match on the kind.
type Vertex struct {
	Kind VertexKind

	// Address is the synthetic gadget address, or the original node
	// address for organic vertices.
	Address address.NodeAddress

	// Interval indexes the interval sequence for epoch and accumulator
	// vertices; -1 otherwise.
	Interval int32

	// Participant indexes the chain's participant table for epoch
	// vertices; -1 otherwise.
	Participant int32
}

func seedVertex() Vertex {
	addr, _ := gadgetPrefix.Append("SEED")
	return Vertex{Kind: VertexSeed, Address: addr, Interval: -1, Participant: -1}
}

func accumulatorVertex(intervalIdx int, start graph.Timestamp) Vertex {
	addr, _ := gadgetPrefix.Append("ACCUMULATOR", strconv.FormatInt(int64(start), 10))
	return Vertex{
		Kind:        VertexAccumulator,
		Address:     addr,
		Interval:    int32(intervalIdx),
		Participant: -1,
	}
}

func epochVertex(p Participant, participantIdx, intervalIdx int, start graph.Timestamp) Vertex {
	addr, _ := gadgetPrefix.Append("EPOCH", p.ID.String(), strconv.FormatInt(int64(start), 10))
	return Vertex{
		Kind:        VertexEpoch,
		Address:     addr,
		Interval:    int32(intervalIdx),
		Participant: int32(participantIdx),
	}
}

func organicVertex(addr address.NodeAddress) Vertex {
	return Vertex{Kind: VertexOrganic, Address: addr, Interval: -1, Participant: -1}
}

// EdgeKind discriminates the gadget families of Markov process graph edges.
type EdgeKind uint8

const (
	// EdgeMint flows from the seed to an organic node, proportional to
	// the node's share of the total mint.
	EdgeMint EdgeKind = iota

	// EdgeOrganic is a contribution edge rewritten onto MPG vertices.
	EdgeOrganic

	// EdgePayout flows from an epoch to its interval accumulator.
	EdgePayout

	// EdgeWebbingForward connects an epoch to the next epoch of the same
	// participant.
	EdgeWebbingForward

	// EdgeWebbingBackward connects an epoch to the previous epoch of the
	// same participant.
	EdgeWebbingBackward

	// EdgeRadiation teleports a vertex's residual probability back to
	// the seed.
	EdgeRadiation
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeMint:
		return "mint"
	case EdgeOrganic:
		return "organic"
	case EdgePayout:
		return "payout"
	case EdgeWebbingForward:
		return "webbing-forward"
	case EdgeWebbingBackward:
		return "webbing-backward"
	case EdgeRadiation:
		return "radiation"
	default:
		return fmt.Sprintf("EdgeKind(%d)", uint8(k))
	}
}

// Edge is one transition of the Markov process graph.
type Edge struct {
	Kind        EdgeKind
	From        uint32
	To          uint32
	Probability float64

	// Original is the contribution-graph edge address for organic edges.
	Original address.EdgeAddress

	// Reversed marks the backward rendering of an organic edge: the MPG
	// edge runs dst -> src of the original.
	Reversed bool
}
