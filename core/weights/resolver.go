package weights

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
)

// resolverCacheSize bounds the per-resolver memoization caches. Resolution
// is called once per node and twice per edge during an MPG build, and
// repeatedly for the same hot addresses when builds are re-run with varied
// parameters.
const resolverCacheSize = 4096

// Resolver answers weight queries for a fixed declaration set and a fixed,
// merged override set. It is safe for concurrent readers.
type Resolver struct {
	nodeTypes *address.Trie[float64]
	edgeTypes *address.Trie[EdgeWeight]
	overrides Weights

	nodeCache *lru.Cache[address.NodeAddress, float64]
	edgeCache *lru.Cache[address.EdgeAddress, EdgeWeight]
}

// NewResolver builds a resolver from plugin declarations and pre-merged
// overrides.
func NewResolver(decls []Declaration, overrides Weights) (*Resolver, error) {
	nodeTrie := address.NewTrie[float64]()
	edgeTrie := address.NewTrie[EdgeWeight]()
	for _, d := range decls {
		for _, nt := range d.NodeTypes {
			nodeTrie.Insert(nt.Prefix.Parts(), nt.DefaultWeight)
		}
		for _, et := range d.EdgeTypes {
			edgeTrie.Insert(et.Prefix.Parts(), EdgeWeight{
				Forwards:  et.DefaultForwards,
				Backwards: et.DefaultBackwards,
			})
		}
	}

	nodeCache, err := lru.New[address.NodeAddress, float64](resolverCacheSize)
	if err != nil {
		return nil, err
	}
	edgeCache, err := lru.New[address.EdgeAddress, EdgeWeight](resolverCacheSize)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		nodeTypes: nodeTrie,
		edgeTypes: edgeTrie,
		overrides: overrides,
		nodeCache: nodeCache,
		edgeCache: edgeCache,
	}, nil
}

// NodeWeight resolves the mint weight of a node address. An explicit
// override wins outright; otherwise the longest-prefix type default;
// otherwise zero.
func (r *Resolver) NodeWeight(addr address.NodeAddress) float64 {
	if v, ok := r.overrides.Node[addr]; ok {
		return v
	}
	if v, ok := r.nodeCache.Get(addr); ok {
		return v
	}
	v, ok := r.nodeTypes.GetLast(addr.Parts())
	if !ok {
		v = 0
	}
	r.nodeCache.Add(addr, v)
	return v
}

// EdgeWeight resolves the directional weights of an edge address. The
// longest-prefix type default is multiplied by the override, per direction;
// with no matching type the weight is zero in both directions.
func (r *Resolver) EdgeWeight(addr address.EdgeAddress) EdgeWeight {
	w, ok := r.edgeCache.Get(addr)
	if !ok {
		w, ok = r.edgeTypes.GetLast(addr.Parts())
		if !ok {
			w = EdgeWeight{}
		}
		r.edgeCache.Add(addr, w)
	}
	if o, ok := r.overrides.Edge[addr]; ok {
		w.Forwards *= o.Forwards
		w.Backwards *= o.Backwards
	}
	return w
}

// =============================================================================
// Declaration coverage
// =============================================================================

// CheckCoverage verifies that every node and edge address in g falls under
// exactly one declaration's territory. Zero or multiple claims fail with
// ErrUnclaimedAddress.
func CheckCoverage(g *graph.Graph, decls []Declaration) error {
	nodeClaims := address.NewTrie[string]()
	edgeClaims := address.NewTrie[string]()
	for _, d := range decls {
		nodeClaims.Insert(d.NodePrefix.Parts(), d.Name)
		edgeClaims.Insert(d.EdgePrefix.Parts(), d.Name)
	}

	for _, n := range g.Nodes() {
		claims := nodeClaims.Get(n.Address.Parts())
		if len(claims) != 1 {
			return coverageError("node", n.Address.String(), claims)
		}
	}
	for _, e := range g.Edges() {
		claims := edgeClaims.Get(e.Address.Parts())
		if len(claims) != 1 {
			return coverageError("edge", e.Address.String(), claims)
		}
	}
	return nil
}

func coverageError(kind, addr string, claims []string) error {
	if len(claims) == 0 {
		return fmt.Errorf("%w: %s %q matches no declaration", ErrUnclaimedAddress, kind, addr)
	}
	return fmt.Errorf("%w: %s %q claimed by %d declarations %v",
		ErrUnclaimedAddress, kind, addr, len(claims), claims)
}
