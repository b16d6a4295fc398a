// Package routingtable provides interfaces for topic-pattern-to-handler routing.
//
// This package defines the core abstractions for the client's routing tables:
//   - RoutingTable: maps slash-delimited topic patterns to exactly one handler each
//   - Registration: a (pattern, handler) pair as stored by a table
//   - Segments: the canonical way a pattern or topic is split into trie keys
//
// A client keeps two independent tables, one for channel message handlers and
// one for presence handlers. Both live as long as the owning connection.
//
// Example usage:
//
//	table := routingtable.NewReverseTrie[MessageHandler]() // internal/routingtable
//	table.Register("sensors/+", onAnySensor)
//	table.Register("sensors/temp", onTemperature)
//
//	// Both handlers are returned; order is not meaningful.
//	for _, h := range table.Match("sensors/temp") {
//		h(topic, payload)
//	}
//
// Wildcard Patterns:
//   - "+" matches exactly one topic segment
//   - "sensors/+" matches "sensors/temp", "sensors/humidity"
//   - "+/alerts" matches "kitchen/alerts", "garage/alerts"
//   - There is no multi-level wildcard; a pattern only matches topics with the
//     same number of segments.
//
// Leading and trailing slashes are ignored, so "sensors/temp/" and
// "/sensors/temp" address the same node.
package routingtable
