// Package markov builds the Markov process graph (MPG): the row-stochastic
// transition matrix CredRank runs its random walk over. The MPG augments
// the contribution graph with a seed vertex, one accumulator vertex per
// interval, one epoch vertex per (participant, interval), and the mint,
// payout, webbing, and radiation gadget edges that connect them.
//
// Vertex ordering is part of the contract: seed first, then accumulators in
// interval order, then epochs in (participant-ID, interval) order, then
// organic vertices in contribution-graph insertion order.
package markov

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/interval"
)

// rowSumTolerance bounds the floating-point drift allowed in a stochastic
// row before construction fails.
const rowSumTolerance = 1e-9

// SeedIndex is the vertex index of the seed. The seed always comes first.
const SeedIndex uint32 = 0

// ErrConstruction indicates the built matrix violates an invariant, most
// importantly a row failing to sum to one.
var ErrConstruction = errors.New("markov: construction invariant violated")

// Link is one sparse matrix entry of a row: the target column, the
// transition probability, and the index of the full edge record.
type Link struct {
	Column      uint32
	Probability float64
	Edge        uint32
}

// Chain is the built Markov process graph. It is immutable after
// construction; the solver treats it as a read-only sparse matrix.
type Chain struct {
	vertices []Vertex
	edges    []Edge   // row-major order
	rows     [][]Link // aligned with vertices

	intervals    interval.Sequence
	participants []Participant // sorted by ID bytes
	params       Parameters
	totalMint    float64

	vertexIndex      map[address.NodeAddress]uint32
	participantIndex map[uuid.UUID]int
	organicEdges     map[address.EdgeAddress][]uint32 // edge indices, row-major order
	payoutEdges      map[uint32]uint32                // epoch vertex -> payout edge index

	numAccumulators int
	numEpochs       int
}

// =============================================================================
// Accessors
// =============================================================================

// NumVertices returns the number of MPG vertices.
func (c *Chain) NumVertices() int { return len(c.vertices) }

// NumEdges returns the number of MPG edges.
func (c *Chain) NumEdges() int { return len(c.edges) }

// Vertex returns the vertex at index i.
func (c *Chain) Vertex(i uint32) Vertex { return c.vertices[i] }

// Vertices returns a copy of the vertex table in matrix order.
func (c *Chain) Vertices() []Vertex { return append([]Vertex(nil), c.vertices...) }

// EdgeAt returns the edge record at index i.
func (c *Chain) EdgeAt(i uint32) Edge { return c.edges[i] }

// Edges returns a copy of the edge table in row-major matrix order.
func (c *Chain) Edges() []Edge { return append([]Edge(nil), c.edges...) }

// Links returns row i of the sparse matrix in deterministic order. The
// returned slice is shared with the chain and must not be mutated.
func (c *Chain) Links(i uint32) []Link { return c.rows[i] }

// VertexIndex returns the matrix index of the vertex with the given
// address, synthetic or organic.
func (c *Chain) VertexIndex(addr address.NodeAddress) (uint32, bool) {
	i, ok := c.vertexIndex[addr]
	return i, ok
}

// AccumulatorVertex returns the vertex index of the accumulator for the
// interval at intervalIdx.
func (c *Chain) AccumulatorVertex(intervalIdx int) (uint32, bool) {
	if intervalIdx < 0 || intervalIdx >= c.numAccumulators {
		return 0, false
	}
	return 1 + uint32(intervalIdx), true
}

// EpochVertex returns the vertex index of the epoch for the given
// participant index and interval index.
func (c *Chain) EpochVertex(participantIdx, intervalIdx int) (uint32, bool) {
	if participantIdx < 0 || participantIdx >= len(c.participants) {
		return 0, false
	}
	if intervalIdx < 0 || intervalIdx >= len(c.intervals) {
		return 0, false
	}
	base := 1 + uint32(c.numAccumulators)
	return base + uint32(participantIdx*len(c.intervals)+intervalIdx), true
}

// PayoutEdge returns the index of the payout edge leaving the given epoch
// vertex. Absent when beta is zero.
func (c *Chain) PayoutEdge(epochVertex uint32) (uint32, bool) {
	e, ok := c.payoutEdges[epochVertex]
	return e, ok
}

// OrganicEdges returns the MPG edge indices carrying the given
// contribution edge, in row-major emission order. The Reversed flag on the
// records distinguishes the forward and backward renderings.
func (c *Chain) OrganicEdges(addr address.EdgeAddress) []uint32 {
	return c.organicEdges[addr]
}

// ParticipantIndex returns the index of the participant with the given ID
// in the chain's sorted participant table.
func (c *Chain) ParticipantIndex(id uuid.UUID) (int, bool) {
	i, ok := c.participantIndex[id]
	return i, ok
}

// Participants returns the participant table in epoch order (ID-sorted).
func (c *Chain) Participants() []Participant {
	return append([]Participant(nil), c.participants...)
}

// Intervals returns the interval sequence the chain was built over.
func (c *Chain) Intervals() interval.Sequence {
	return append(interval.Sequence(nil), c.intervals...)
}

// Parameters returns the transition parameters the chain was built with.
func (c *Chain) Parameters() Parameters { return c.params }

// TotalMint returns the sum of organic mint weights; total Cred equals
// this after score scaling.
func (c *Chain) TotalMint() float64 { return c.totalMint }

// =============================================================================
// Reconstruction and validation
// =============================================================================

// FromParts reassembles a chain from its serialized pieces, rebuilding the
// derived indices and re-checking the stochastic row invariant. Edges must
// be in row-major matrix order.
func FromParts(
	vertices []Vertex,
	edges []Edge,
	intervals interval.Sequence,
	participants []Participant,
	params Parameters,
	totalMint float64,
) (*Chain, error) {
	c := &Chain{
		vertices:         append([]Vertex(nil), vertices...),
		edges:            append([]Edge(nil), edges...),
		rows:             make([][]Link, len(vertices)),
		intervals:        append(interval.Sequence(nil), intervals...),
		participants:     append([]Participant(nil), participants...),
		params:           params,
		totalMint:        totalMint,
		vertexIndex:      make(map[address.NodeAddress]uint32, len(vertices)),
		participantIndex: make(map[uuid.UUID]int, len(participants)),
		organicEdges:     make(map[address.EdgeAddress][]uint32),
		payoutEdges:      make(map[uint32]uint32),
	}
	c.numAccumulators = len(intervals)
	c.numEpochs = len(participants) * len(intervals)

	for i, v := range c.vertices {
		c.vertexIndex[v.Address] = uint32(i)
	}
	for i, p := range c.participants {
		c.participantIndex[p.ID] = i
	}
	for i, e := range c.edges {
		if int(e.From) >= len(c.vertices) || int(e.To) >= len(c.vertices) {
			return nil, fmt.Errorf("%w: edge %d references vertex out of range", ErrConstruction, i)
		}
		c.rows[e.From] = append(c.rows[e.From], Link{
			Column:      e.To,
			Probability: e.Probability,
			Edge:        uint32(i),
		})
		switch e.Kind {
		case EdgeOrganic:
			c.organicEdges[e.Original] = append(c.organicEdges[e.Original], uint32(i))
		case EdgePayout:
			c.payoutEdges[e.From] = uint32(i)
		}
	}

	if err := c.checkRows(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkRows verifies that every row sums to one within tolerance.
func (c *Chain) checkRows() error {
	for i, row := range c.rows {
		sum := 0.0
		for _, l := range row {
			sum += l.Probability
		}
		if math.Abs(sum-1) > rowSumTolerance {
			return fmt.Errorf("%w: row %d (%s %q) sums to %.12f",
				ErrConstruction, i, c.vertices[i].Kind, c.vertices[i].Address, sum)
		}
	}
	return nil
}
