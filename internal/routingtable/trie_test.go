package routingtable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseTrie_Register(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("orders/created", "A")

	matches := trie.Match("orders/created")
	if len(matches) != 1 {
		t.Fatalf("Expected 1 handler, got %d", len(matches))
	}
	if matches[0] != "A" {
		t.Errorf("Expected handler 'A', got '%s'", matches[0])
	}
}

func TestReverseTrie_RegisterReplaces(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("orders/created", "first")
	trie.Register("orders/created", "second")

	matches := trie.Match("orders/created")
	require.Len(t, matches, 1)
	assert.Equal(t, "second", matches[0])
	assert.Equal(t, 1, trie.Len())
	assert.Equal(t, 2, trie.NodeCount(), "re-registering must not create duplicate nodes")
}

func TestReverseTrie_SlashesAreTrimmed(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("/orders/created/", "A")

	assert.Equal(t, []string{"A"}, trie.Match("orders/created"))
	assert.Equal(t, []string{"A"}, trie.Match("orders/created/"))
	assert.Equal(t, []string{"A"}, trie.Match("/orders/created"))
}

func TestReverseTrie_Unregister(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("orders/created", "A")

	if !trie.Unregister("orders/created") {
		t.Fatal("Expected Unregister to report a removed handler")
	}

	if matches := trie.Match("orders/created"); len(matches) != 0 {
		t.Fatalf("Expected 0 handlers after unregister, got %d", len(matches))
	}

	// Nodes are kept for reuse.
	assert.Equal(t, 2, trie.NodeCount())
	assert.Equal(t, 0, trie.Len())
}

func TestReverseTrie_Lookup(t *testing.T) {
	trie := NewReverseTrie[string]()
	trie.Register("sensors/+/temp", "wild")
	trie.Register("sensors/a", "A")

	h, ok := trie.Lookup("/sensors/+/temp/")
	require.True(t, ok)
	assert.Equal(t, "wild", h)

	// Lookup is exact; the wildcard is not expanded.
	_, ok = trie.Lookup("sensors/kitchen/temp")
	assert.False(t, ok)

	// Intermediate nodes hold no handler.
	_, ok = trie.Lookup("sensors/+")
	assert.False(t, ok)

	trie.Unregister("sensors/a")
	_, ok = trie.Lookup("sensors/a")
	assert.False(t, ok)
}

func TestReverseTrie_Unregister_NotFound(t *testing.T) {
	trie := NewReverseTrie[string]()

	assert.False(t, trie.Unregister("never/registered"))

	trie.Register("orders/created/v2", "A")

	// Intermediate node exists but holds no handler.
	assert.False(t, trie.Unregister("orders/created"))
	// Second removal of the same pattern is a no-op.
	assert.True(t, trie.Unregister("orders/created/v2"))
	assert.False(t, trie.Unregister("orders/created/v2"))
}

func TestReverseTrie_UnregisterKeepsDescendants(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("a/b", "parent")
	trie.Register("a/b/c", "child")

	require.True(t, trie.Unregister("a/b"))

	assert.Empty(t, trie.Match("a/b"))
	assert.Equal(t, []string{"child"}, trie.Match("a/b/c"))
}

func TestReverseTrie_Match_NoMatch(t *testing.T) {
	trie := NewReverseTrie[string]()

	if matches := trie.Match("non/existent/topic"); len(matches) != 0 {
		t.Fatalf("Expected 0 handlers for non-existent topic, got %d", len(matches))
	}
}

func TestReverseTrie_Match_EmptyTopic(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("a", "A")

	assert.Empty(t, trie.Match(""))
	assert.Empty(t, trie.Match("/"))

	// The empty pattern is a single empty segment, addressable like any other.
	trie.Register("", "root")
	assert.Equal(t, []string{"root"}, trie.Match("//"))
}

func TestReverseTrie_Match_DepthMustBeEqual(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("a/b", "shallow")
	trie.Register("a/b/c/d", "deep")

	assert.Empty(t, trie.Match("a"))
	assert.Empty(t, trie.Match("a/b/c"))
	assert.Equal(t, []string{"shallow"}, trie.Match("a/b"))
	assert.Equal(t, []string{"deep"}, trie.Match("a/b/c/d"))
	assert.Empty(t, trie.Match("a/b/c/d/e"))
}

func TestReverseTrie_Registrations(t *testing.T) {
	trie := NewReverseTrie[string]()

	trie.Register("a/+/c", "A")
	trie.Register("/sensors/temp/", "B")
	trie.Register("x", "C")
	trie.Unregister("x")

	regs := trie.Registrations()
	require.Len(t, regs, 2)

	byPattern := make(map[string]string)
	for _, r := range regs {
		byPattern[r.Pattern] = r.Handler
	}
	assert.Equal(t, map[string]string{"a/+/c": "A", "sensors/temp": "B"}, byPattern)
}

func TestReverseTrie_ConcurrentAccess(t *testing.T) {
	trie := NewReverseTrie[string]()

	var wg sync.WaitGroup
	const numWorkers = 10

	// Concurrent registrations on disjoint and shared branches
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			trie.Register(fmt.Sprintf("orders/%d/created", id), fmt.Sprintf("client-%d", id))
			trie.Register("orders/+/created", "wildcard")
			trie.Match(fmt.Sprintf("orders/%d/created", id))
		}(i)
	}

	wg.Wait()

	for i := 0; i < numWorkers; i++ {
		matches := trie.Match(fmt.Sprintf("orders/%d/created", i))
		assert.ElementsMatch(t, []string{fmt.Sprintf("client-%d", i), "wildcard"}, matches)
	}
	assert.Equal(t, numWorkers+1, trie.Len())
}

func TestReverseTrie_ConcurrentRegisterAndUnregister(t *testing.T) {
	trie := NewReverseTrie[int]()

	var wg sync.WaitGroup
	const rounds = 200

	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			trie.Register("a/b/c", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			trie.Unregister("a/b/c")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if n := len(trie.Match("a/b/c")); n > 1 {
				t.Errorf("Expected at most 1 handler, got %d", n)
			}
		}
	}()

	wg.Wait()
}
