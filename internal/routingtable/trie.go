package routingtable

import (
	"strings"
	"sync"

	"github.com/rmacdonaldsmith/emitter-go/pkg/routingtable"
)

// ReverseTrie implements routingtable.RoutingTable as a trie keyed by topic
// segment. Lookup walks from the root consuming one query segment per level
// and expands both the literal child and the "+" child at every level, so a
// single Match finds every registered pattern that fits the topic.
//
// Locking is per node: a node's mutex guards its children map and its
// handler slot. Registrations on disjoint branches never contend, and Match
// holds a node's read lock only while copying out what it needs, so a
// registration racing with a Match may or may not be observed by it.
type ReverseTrie[H any] struct {
	root *trieNode[H]
}

// trieNode is one segment of a registered pattern.
type trieNode[H any] struct {
	mu       sync.RWMutex
	children map[string]*trieNode[H]
	level    int // depth from root, root is -1
	handler  H
	set      bool
}

func newTrieNode[H any](level int) *trieNode[H] {
	return &trieNode[H]{
		children: make(map[string]*trieNode[H]),
		level:    level,
	}
}

// NewReverseTrie creates an empty trie.
func NewReverseTrie[H any]() *ReverseTrie[H] {
	return &ReverseTrie[H]{root: newTrieNode[H](-1)}
}

// Register stores handler at pattern. Intermediate nodes are created as
// needed and an existing handler at the same pattern is replaced.
func (t *ReverseTrie[H]) Register(pattern string, handler H) {
	node := t.root
	for i, seg := range routingtable.Segments(pattern) {
		node = node.getOrAddChild(seg, i)
	}

	node.mu.Lock()
	node.handler = handler
	node.set = true
	node.mu.Unlock()
}

// Unregister clears the handler at pattern and reports whether there was one.
// Nodes are not pruned; an emptied branch is reused by later registrations.
func (t *ReverseTrie[H]) Unregister(pattern string) bool {
	node := t.root
	for _, seg := range routingtable.Segments(pattern) {
		if node = node.child(seg); node == nil {
			return false
		}
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	if !node.set {
		return false
	}

	var zero H
	node.handler = zero
	node.set = false
	return true
}

// Lookup returns the handler stored at exactly pattern. Wildcards are taken
// literally.
func (t *ReverseTrie[H]) Lookup(pattern string) (H, bool) {
	var zero H
	node := t.root
	for _, seg := range routingtable.Segments(pattern) {
		if node = node.child(seg); node == nil {
			return zero, false
		}
	}

	node.mu.RLock()
	defer node.mu.RUnlock()
	if !node.set {
		return zero, false
	}
	return node.handler, true
}

// Match returns the handlers of every pattern with exactly as many segments
// as topic whose segments are each equal to the topic's or "+".
func (t *ReverseTrie[H]) Match(topic string) []H {
	query := routingtable.Segments(topic)

	var matches []H
	t.root.match(query, 0, &matches)
	return matches
}

// Registrations returns every stored handler with the pattern it was stored at.
func (t *ReverseTrie[H]) Registrations() []routingtable.Registration[H] {
	var regs []routingtable.Registration[H]
	t.root.collect(nil, &regs)
	return regs
}

// Len returns the number of stored handlers.
func (t *ReverseTrie[H]) Len() int {
	return len(t.Registrations())
}

// NodeCount returns the number of nodes below the root, including emptied ones.
func (t *ReverseTrie[H]) NodeCount() int {
	return t.root.countNodes() - 1
}

func (n *trieNode[H]) child(seg string) *trieNode[H] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.children[seg]
}

func (n *trieNode[H]) getOrAddChild(seg string, level int) *trieNode[H] {
	if c := n.child(seg); c != nil {
		return c
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	// Another registration may have created it between the two locks.
	c := n.children[seg]
	if c == nil {
		c = newTrieNode[H](level)
		n.children[seg] = c
	}
	return c
}

// match reports a handler only from nodes reached by consuming the whole query.
func (n *trieNode[H]) match(query []string, pos int, matches *[]H) {
	if pos == len(query) {
		n.mu.RLock()
		if n.set {
			*matches = append(*matches, n.handler)
		}
		n.mu.RUnlock()
		return
	}

	n.mu.RLock()
	literal := n.children[query[pos]]
	wildcard := n.children[routingtable.Wildcard]
	n.mu.RUnlock()

	if literal != nil {
		literal.match(query, pos+1, matches)
	}
	// A literal "+" in the query would otherwise visit the same child twice.
	if wildcard != nil && wildcard != literal {
		wildcard.match(query, pos+1, matches)
	}
}

func (n *trieNode[H]) collect(path []string, regs *[]routingtable.Registration[H]) {
	n.mu.RLock()
	if n.set {
		*regs = append(*regs, routingtable.Registration[H]{
			Pattern: strings.Join(path, "/"),
			Handler: n.handler,
		})
	}
	children := make(map[string]*trieNode[H], len(n.children))
	for seg, c := range n.children {
		children[seg] = c
	}
	n.mu.RUnlock()

	for seg, c := range children {
		c.collect(append(path[:len(path):len(path)], seg), regs)
	}
}

func (n *trieNode[H]) countNodes() int {
	n.mu.RLock()
	children := make([]*trieNode[H], 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c)
	}
	n.mu.RUnlock()

	count := 1
	for _, c := range children {
		count += c.countNodes()
	}
	return count
}

// Verify that ReverseTrie implements the RoutingTable interface at compile time
var _ routingtable.RoutingTable[func()] = (*ReverseTrie[func()])(nil)
