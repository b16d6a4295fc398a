package routingtable

import "strings"

// Wildcard is the single-level wildcard segment.
const Wildcard = "+"

// Registration is a handler stored at an exact pattern.
type Registration[H any] struct {
	// Pattern is the trimmed pattern string the handler was registered with.
	Pattern string

	// Handler is the value stored at the pattern's terminal node.
	Handler H
}

// RoutingTable maps topic patterns to handlers and resolves concrete topics
// to every handler whose pattern matches.
//
// At most one handler is stored per exact pattern: registering a pattern
// again replaces the previous handler. Implementations must be safe for
// concurrent use.
type RoutingTable[H any] interface {
	// Register stores handler at pattern, replacing any previous handler.
	Register(pattern string, handler H)

	// Unregister clears the handler stored at pattern.
	// Returns false if no handler was registered there.
	Unregister(pattern string) bool

	// Lookup returns the handler stored at exactly pattern, without
	// wildcard expansion.
	Lookup(pattern string) (H, bool)

	// Match returns the handlers of every pattern that matches topic.
	// The returned slice is owned by the caller.
	Match(topic string) []H

	// Registrations returns every stored (pattern, handler) pair.
	Registrations() []Registration[H]

	// Len returns the number of stored handlers.
	Len() int
}

// Segments splits a pattern or topic into trie keys. Leading and trailing
// slashes are trimmed first, so an empty topic yields a single empty segment.
func Segments(pattern string) []string {
	return strings.Split(strings.Trim(pattern, "/"), "/")
}
