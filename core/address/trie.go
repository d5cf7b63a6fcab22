package address

// Trie is a prefix tree keyed by address part sequences. It supports the
// O(|parts|) longest-prefix dispatch the weighting layer needs when many
// type prefixes must be tested against many addresses.
//
// The zero value is not usable; construct with NewTrie.
type Trie[T any] struct {
	root *trieNode[T]
}

type trieNode[T any] struct {
	children map[string]*trieNode[T]
	value    T
	set      bool
}

// NewTrie creates an empty trie.
func NewTrie[T any]() *Trie[T] {
	return &Trie[T]{root: &trieNode[T]{}}
}

// Insert stores v at the given prefix, replacing any previous value there.
func (t *Trie[T]) Insert(prefix []string, v T) {
	n := t.root
	for _, part := range prefix {
		if n.children == nil {
			n.children = make(map[string]*trieNode[T])
		}
		child, ok := n.children[part]
		if !ok {
			child = &trieNode[T]{}
			n.children[part] = child
		}
		n = child
	}
	n.value = v
	n.set = true
}

// Get returns every value stored on the path from the root to parts,
// shallowest prefix first.
func (t *Trie[T]) Get(parts []string) []T {
	var out []T
	n := t.root
	if n.set {
		out = append(out, n.value)
	}
	for _, part := range parts {
		child, ok := n.children[part]
		if !ok {
			return out
		}
		n = child
		if n.set {
			out = append(out, n.value)
		}
	}
	return out
}

// GetLast returns the value of the longest stored prefix of parts, if any.
func (t *Trie[T]) GetLast(parts []string) (T, bool) {
	var (
		best  T
		found bool
	)
	n := t.root
	if n.set {
		best, found = n.value, true
	}
	for _, part := range parts {
		child, ok := n.children[part]
		if !ok {
			break
		}
		n = child
		if n.set {
			best, found = n.value, true
		}
	}
	return best, found
}
