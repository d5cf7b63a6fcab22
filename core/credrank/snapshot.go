package credrank

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/interval"
	"github.com/sourcecred/credrank/core/markov"
	"github.com/sourcecred/credrank/core/solver"
)

// Snapshot schema identification. Readers refuse a mismatched type and
// accept any version with the same major.
const (
	SnapshotType    = "sourcecred/credrank"
	SnapshotVersion = "1.0.0"
)

// ErrSnapshotVersion indicates a snapshot with an unknown type or an
// incompatible major version.
var ErrSnapshotVersion = errors.New("credrank: incompatible snapshot")

type snapshotVertex struct {
	Kind        uint8  `json:"kind"`
	Address     string `json:"address"`
	Interval    int32  `json:"interval"`
	Participant int32  `json:"participant"`
}

type snapshotEdge struct {
	Kind        uint8   `json:"kind"`
	From        uint32  `json:"from"`
	To          uint32  `json:"to"`
	Probability float64 `json:"probability"`
	Original    string  `json:"original,omitempty"`
	Reversed    bool    `json:"reversed,omitempty"`
}

type snapshotParticipant struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Description string `json:"description,omitempty"`
}

type snapshot struct {
	Type            string                `json:"type"`
	Version         string                `json:"version"`
	Parameters      markov.Parameters     `json:"parameters"`
	Intervals       []interval.Interval   `json:"intervals"`
	Participants    []snapshotParticipant `json:"participants"`
	Vertices        []snapshotVertex      `json:"vertices"`
	Edges           []snapshotEdge        `json:"edges"`
	VertexIntervals []int32               `json:"vertexIntervals"`
	Scores          []float64             `json:"scores"`
	TotalMint       float64               `json:"totalMint"`
	Iterations      int                   `json:"iterations"`
	Delta           float64               `json:"delta"`
}

// ToSnapshot serializes the cred graph, preserving vertex and edge order
// exactly. Floating-point values survive bit-for-bit: encoding/json emits
// the shortest decimal that parses back to the same float64.
func (cg *CredGraph) ToSnapshot() ([]byte, error) {
	s := snapshot{
		Type:            SnapshotType,
		Version:         SnapshotVersion,
		Parameters:      cg.chain.Parameters(),
		Intervals:       cg.chain.Intervals(),
		VertexIntervals: cg.vertexIntervals,
		Scores:          cg.scores,
		TotalMint:       cg.chain.TotalMint(),
		Iterations:      cg.stats.Iterations,
		Delta:           cg.stats.Delta,
	}
	for _, p := range cg.chain.Participants() {
		s.Participants = append(s.Participants, snapshotParticipant{
			ID:          p.ID.String(),
			Address:     p.Address.Encode(),
			Description: p.Description,
		})
	}
	for _, v := range cg.chain.Vertices() {
		s.Vertices = append(s.Vertices, snapshotVertex{
			Kind:        uint8(v.Kind),
			Address:     v.Address.Encode(),
			Interval:    v.Interval,
			Participant: v.Participant,
		})
	}
	for _, e := range cg.chain.Edges() {
		se := snapshotEdge{
			Kind:        uint8(e.Kind),
			From:        e.From,
			To:          e.To,
			Probability: e.Probability,
			Reversed:    e.Reversed,
		}
		if e.Kind == markov.EdgeOrganic {
			se.Original = e.Original.Encode()
		}
		s.Edges = append(s.Edges, se)
	}
	return json.Marshal(s)
}

// FromSnapshot reassembles a cred graph from its serialized form,
// rebuilding the chain's derived indices and re-checking the stochastic
// row invariant.
func FromSnapshot(data []byte) (*CredGraph, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("credrank: decoding snapshot: %w", err)
	}
	if err := checkSchema(s.Type, s.Version); err != nil {
		return nil, err
	}

	participants := make([]markov.Participant, 0, len(s.Participants))
	for _, sp := range s.Participants {
		id, err := uuid.Parse(sp.ID)
		if err != nil {
			return nil, fmt.Errorf("credrank: snapshot participant ID: %w", err)
		}
		addr, err := address.ParseNodeAddress(sp.Address)
		if err != nil {
			return nil, fmt.Errorf("credrank: snapshot participant address: %w", err)
		}
		participants = append(participants, markov.Participant{
			ID: id, Address: addr, Description: sp.Description,
		})
	}

	vertices := make([]markov.Vertex, 0, len(s.Vertices))
	for _, sv := range s.Vertices {
		addr, err := address.ParseNodeAddress(sv.Address)
		if err != nil {
			return nil, fmt.Errorf("credrank: snapshot vertex address: %w", err)
		}
		vertices = append(vertices, markov.Vertex{
			Kind:        markov.VertexKind(sv.Kind),
			Address:     addr,
			Interval:    sv.Interval,
			Participant: sv.Participant,
		})
	}

	edges := make([]markov.Edge, 0, len(s.Edges))
	for _, se := range s.Edges {
		e := markov.Edge{
			Kind:        markov.EdgeKind(se.Kind),
			From:        se.From,
			To:          se.To,
			Probability: se.Probability,
			Reversed:    se.Reversed,
		}
		if se.Original != "" {
			orig, err := address.ParseEdgeAddress(se.Original)
			if err != nil {
				return nil, fmt.Errorf("credrank: snapshot edge address: %w", err)
			}
			e.Original = orig
		}
		edges = append(edges, e)
	}

	chain, err := markov.FromParts(vertices, edges, s.Intervals, participants,
		s.Parameters, s.TotalMint)
	if err != nil {
		return nil, err
	}
	if len(s.Scores) != chain.NumVertices() || len(s.VertexIntervals) != chain.NumVertices() {
		return nil, fmt.Errorf("%w: score tables do not match vertex count",
			markov.ErrConstruction)
	}

	return &CredGraph{
		chain:           chain,
		scores:          s.Scores,
		stats:           solver.Stats{Iterations: s.Iterations, Delta: s.Delta},
		vertexIntervals: s.VertexIntervals,
	}, nil
}

func checkSchema(typ, version string) error {
	if typ != SnapshotType {
		return fmt.Errorf("%w: type %q, want %q", ErrSnapshotVersion, typ, SnapshotType)
	}
	major := func(v string) string {
		if i := strings.IndexByte(v, '.'); i >= 0 {
			return v[:i]
		}
		return v
	}
	if major(version) != major(SnapshotVersion) {
		return fmt.Errorf("%w: version %q, want major %q",
			ErrSnapshotVersion, version, major(SnapshotVersion))
	}
	return nil
}
