package address_test

import (
	"testing"

	"github.com/sourcecred/credrank/core/address"
	"github.com/stretchr/testify/assert"
)

func TestTrie_GetLast_LongestMatchWins(t *testing.T) {
	trie := address.NewTrie[int]()
	trie.Insert([]string{"sourcecred"}, 1)
	trie.Insert([]string{"sourcecred", "discord"}, 2)
	trie.Insert([]string{"sourcecred", "discord", "MESSAGE"}, 3)

	v, ok := trie.GetLast([]string{"sourcecred", "discord", "MESSAGE", "123"})
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = trie.GetLast([]string{"sourcecred", "discord", "REACTION"})
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = trie.GetLast([]string{"sourcecred"})
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = trie.GetLast([]string{"unrelated"})
	assert.False(t, ok)
}

func TestTrie_Get_PathOrder(t *testing.T) {
	trie := address.NewTrie[string]()
	trie.Insert(nil, "root")
	trie.Insert([]string{"a", "b"}, "ab")

	assert.Equal(t, []string{"root", "ab"}, trie.Get([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"root"}, trie.Get([]string{"z"}))
}

func TestTrie_Insert_Replaces(t *testing.T) {
	trie := address.NewTrie[float64]()
	trie.Insert([]string{"n"}, 1.0)
	trie.Insert([]string{"n"}, 2.0)

	v, ok := trie.GetLast([]string{"n"})
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}
