// Package correlation matches request/response exchanges by MQTT packet identifier.
//
// A request published at QoS 1 is assigned a packet identifier by the transport.
// The broker echoes that identifier as "requestId" in the reply, so a Table maps
// identifiers to the handler waiting for that reply. Identifier 0 means the
// transport assigned none and is never stored.
package correlation

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config controls entry lifetime. Zero values mean entries never expire and the
// table is unbounded.
type Config struct {
	TTL        time.Duration
	MaxEntries int

	// OnExpire is called for entries evicted by TTL or capacity, not for Remove.
	OnExpire func(id uint16)
}

// Table is a concurrency-safe map from packet identifier to handler.
type Table[H any] struct {
	entries  *expirable.LRU[uint16, H]
	removing removingSet
	onExpire func(id uint16)
}

// New creates an empty table.
func New[H any](config Config) *Table[H] {
	t := &Table[H]{onExpire: config.OnExpire}
	t.removing.ids = make(map[uint16]struct{})

	size := config.MaxEntries
	if size < 0 {
		size = 0
	}
	t.entries = expirable.NewLRU[uint16, H](size, t.evicted, config.TTL)
	return t
}

// Register stores handler under id, replacing any previous entry. It returns
// false and stores nothing when id is 0.
func (t *Table[H]) Register(id uint16, handler H) bool {
	if id == 0 {
		return false
	}
	t.entries.Add(id, handler)
	return true
}

// Resolve returns the handler for id without removing it.
func (t *Table[H]) Resolve(id uint16) (H, bool) {
	if id == 0 {
		var zero H
		return zero, false
	}
	return t.entries.Peek(id)
}

// Take returns and removes the handler for id. When several callers take the
// same id concurrently only one of them gets the handler.
func (t *Table[H]) Take(id uint16) (H, bool) {
	var zero H
	h, ok := t.Resolve(id)
	if !ok || !t.remove(id) {
		return zero, false
	}
	return h, true
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (t *Table[H]) Remove(id uint16) {
	t.remove(id)
}

// remove reports whether this call deleted the entry.
func (t *Table[H]) remove(id uint16) bool {
	t.removing.add(id)
	defer t.removing.del(id)
	return t.entries.Remove(id)
}

// Len returns the number of pending entries.
func (t *Table[H]) Len() int {
	return t.entries.Len()
}

// Purge drops every entry without calling OnExpire.
func (t *Table[H]) Purge() {
	for _, id := range t.entries.Keys() {
		t.Remove(id)
	}
}

func (t *Table[H]) evicted(id uint16, _ H) {
	if t.onExpire == nil || t.removing.has(id) {
		return
	}
	t.onExpire(id)
}
