package markov

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
	"github.com/sourcecred/credrank/core/interval"
	"github.com/sourcecred/credrank/core/weights"
)

// pendingLink is an unnormalized organic contribution to a row, collected
// before the row's probability budget is known.
type pendingLink struct {
	to       uint32
	weight   float64
	original address.EdgeAddress
	reversed bool
}

// Build constructs the Markov process graph from a contribution graph, a
// weight resolver, an interval sequence, the participant set, and the
// transition parameters. A nil logger falls back to slog.Default().
func Build(
	g *graph.Graph,
	res *weights.Resolver,
	intervals interval.Sequence,
	participants []Participant,
	params Parameters,
	logger *slog.Logger,
) (*Chain, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(intervals) < 2 {
		return nil, fmt.Errorf("%w: interval sequence must include both sentinels", ErrConstruction)
	}
	if logger == nil {
		logger = slog.Default()
	}

	sorted, err := sortParticipants(participants)
	if err != nil {
		return nil, err
	}
	participantAt := make(map[address.NodeAddress]int, len(sorted))
	for i, p := range sorted {
		participantAt[p.Address] = i
	}

	c := &Chain{
		intervals:        append(interval.Sequence(nil), intervals...),
		participants:     sorted,
		params:           params,
		vertexIndex:      make(map[address.NodeAddress]uint32),
		participantIndex: make(map[uuid.UUID]int, len(sorted)),
		organicEdges:     make(map[address.EdgeAddress][]uint32),
		payoutEdges:      make(map[uint32]uint32),
		numAccumulators:  len(intervals),
		numEpochs:        len(sorted) * len(intervals),
	}
	for i, p := range sorted {
		c.participantIndex[p.ID] = i
	}

	// Vertex table: seed, accumulators, epochs, organics.
	c.vertices = append(c.vertices, seedVertex())
	for ii, iv := range intervals {
		c.vertices = append(c.vertices, accumulatorVertex(ii, iv.Start))
	}
	for pi, p := range sorted {
		for ii, iv := range intervals {
			c.vertices = append(c.vertices, epochVertex(p, pi, ii, iv.Start))
		}
	}
	var (
		organicOrder   []uint32
		organicWeights []float64
		totalMint      float64
	)
	for _, n := range g.Nodes() {
		if _, isParticipant := participantAt[n.Address]; isParticipant {
			continue
		}
		if n.Address.HasPrefix(gadgetPrefix) {
			return nil, fmt.Errorf("%w: contribution node %q intrudes on the reserved gadget namespace",
				ErrConstruction, n.Address)
		}
		idx := uint32(len(c.vertices))
		c.vertices = append(c.vertices, organicVertex(n.Address))
		organicOrder = append(organicOrder, idx)
		w := res.NodeWeight(n.Address)
		organicWeights = append(organicWeights, w)
		totalMint += w
	}
	c.totalMint = totalMint
	for i, v := range c.vertices {
		c.vertexIndex[v.Address] = uint32(i)
	}
	c.rows = make([][]Link, len(c.vertices))

	// Rewrite contribution edges onto MPG vertices, collecting the
	// unnormalized organic mass of each row.
	pending := make([][]pendingLink, len(c.vertices))
	rewrite := func(addr address.NodeAddress, intervalIdx int) uint32 {
		if pi, ok := participantAt[addr]; ok {
			v, _ := c.EpochVertex(pi, intervalIdx)
			return v
		}
		return c.vertexIndex[addr]
	}
	for _, e := range g.Edges() {
		w := res.EdgeWeight(e.Address)
		if w.IsZero() {
			continue
		}
		ii, ok := intervals.Find(e.Timestamp)
		if !ok {
			return nil, fmt.Errorf("%w: edge %q timestamp %d outside interval sequence",
				ErrConstruction, e.Address, e.Timestamp)
		}
		src := rewrite(e.Src, ii)
		dst := rewrite(e.Dst, ii)
		if w.Forwards > 0 {
			pending[src] = append(pending[src], pendingLink{
				to: dst, weight: w.Forwards, original: e.Address,
			})
		}
		if w.Backwards > 0 {
			pending[dst] = append(pending[dst], pendingLink{
				to: src, weight: w.Backwards, original: e.Address, reversed: true,
			})
		}
	}

	// Assemble rows in vertex order; edges land in row-major order.
	for i, v := range c.vertices {
		row := uint32(i)
		switch v.Kind {
		case VertexSeed:
			c.buildSeedRow(row, organicOrder, organicWeights)
		case VertexAccumulator:
			c.emit(Edge{Kind: EdgeRadiation, From: row, To: SeedIndex, Probability: 1})
		case VertexEpoch:
			c.buildEpochRow(row, v, pending[row])
		case VertexOrganic:
			c.buildOrganicRow(row, pending[row])
		}
	}

	if err := c.checkRows(); err != nil {
		return nil, err
	}

	logger.Debug("built markov process graph",
		"vertices", len(c.vertices),
		"edges", len(c.edges),
		"participants", len(sorted),
		"intervals", len(intervals),
		"totalMint", totalMint,
	)
	return c, nil
}

// sortParticipants copies and orders participants by the lexicographic
// order of their ID bytes, rejecting duplicate IDs and addresses.
func sortParticipants(participants []Participant) ([]Participant, error) {
	sorted := append([]Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})
	seenAddr := make(map[address.NodeAddress]bool, len(sorted))
	for i, p := range sorted {
		if i > 0 && sorted[i-1].ID == p.ID {
			return nil, fmt.Errorf("%w: duplicate participant ID %s", ErrConstruction, p.ID)
		}
		if seenAddr[p.Address] {
			return nil, fmt.Errorf("%w: duplicate participant address %q", ErrConstruction, p.Address)
		}
		seenAddr[p.Address] = true
	}
	return sorted, nil
}

func (c *Chain) emit(e Edge) {
	idx := uint32(len(c.edges))
	c.edges = append(c.edges, e)
	c.rows[e.From] = append(c.rows[e.From], Link{
		Column:      e.To,
		Probability: e.Probability,
		Edge:        idx,
	})
	switch e.Kind {
	case EdgeOrganic:
		c.organicEdges[e.Original] = append(c.organicEdges[e.Original], idx)
	case EdgePayout:
		c.payoutEdges[e.From] = idx
	}
}

// buildSeedRow emits the mint edges, normalized over the total mint. With
// no mint anywhere the seed radiates to itself instead.
func (c *Chain) buildSeedRow(row uint32, organicOrder []uint32, organicWeights []float64) {
	if c.totalMint <= 0 {
		c.emit(Edge{Kind: EdgeRadiation, From: row, To: SeedIndex, Probability: 1})
		return
	}
	for i, target := range organicOrder {
		w := organicWeights[i]
		if w <= 0 {
			continue
		}
		c.emit(Edge{Kind: EdgeMint, From: row, To: target, Probability: w / c.totalMint})
	}
}

// buildEpochRow assigns the payout, webbing, and scaled organic
// probabilities, then radiates the remainder. Sentinel epochs carry no
// webbing; their webbing mass flows into radiation.
func (c *Chain) buildEpochRow(row uint32, v Vertex, pend []pendingLink) {
	p := c.params
	ii := int(v.Interval)
	pi := int(v.Participant)
	assigned := 0.0

	if p.Beta > 0 {
		acc, _ := c.AccumulatorVertex(ii)
		c.emit(Edge{Kind: EdgePayout, From: row, To: acc, Probability: p.Beta})
		assigned += p.Beta
	}
	if p.GammaForward > 0 && ii+1 < len(c.intervals) &&
		c.intervals[ii].Finite() && c.intervals[ii+1].Finite() {
		next, _ := c.EpochVertex(pi, ii+1)
		c.emit(Edge{Kind: EdgeWebbingForward, From: row, To: next, Probability: p.GammaForward})
		assigned += p.GammaForward
	}
	if p.GammaBackward > 0 && ii-1 >= 0 &&
		c.intervals[ii-1].Finite() && c.intervals[ii].Finite() {
		prev, _ := c.EpochVertex(pi, ii-1)
		c.emit(Edge{Kind: EdgeWebbingBackward, From: row, To: prev, Probability: p.GammaBackward})
		assigned += p.GammaBackward
	}

	budget := p.EpochOrganicBudget()
	assigned += c.emitOrganic(row, pend, budget)
	c.emitRadiation(row, assigned)
}

// buildOrganicRow scales the row's organic mass to 1 - alpha and radiates
// the rest. A row with no organic mass radiates everything.
func (c *Chain) buildOrganicRow(row uint32, pend []pendingLink) {
	assigned := c.emitOrganic(row, pend, 1-c.params.Alpha)
	c.emitRadiation(row, assigned)
}

// emitOrganic normalizes the pending organic links so their probabilities
// total the given budget, and returns the mass actually assigned.
func (c *Chain) emitOrganic(row uint32, pend []pendingLink, budget float64) float64 {
	if len(pend) == 0 || budget <= 0 {
		return 0
	}
	total := 0.0
	for _, pl := range pend {
		total += pl.weight
	}
	if total <= 0 {
		return 0
	}
	assigned := 0.0
	for _, pl := range pend {
		prob := pl.weight / total * budget
		if prob <= 0 {
			continue
		}
		c.emit(Edge{
			Kind:        EdgeOrganic,
			From:        row,
			To:          pl.to,
			Probability: prob,
			Original:    pl.original,
			Reversed:    pl.reversed,
		})
		assigned += prob
	}
	return assigned
}

// emitRadiation sends the row's residual probability to the seed, clamping
// floating-point dust below zero.
func (c *Chain) emitRadiation(row uint32, assigned float64) {
	rem := 1 - assigned
	if rem < 0 {
		if rem < -rowSumTolerance {
			// Leave the inconsistency for checkRows to report.
			return
		}
		rem = 0
	}
	if rem == 0 {
		return
	}
	c.emit(Edge{Kind: EdgeRadiation, From: row, To: SeedIndex, Probability: rem})
}
