// Package state holds the client-side interaction state for one page scope:
// the per-kind interaction cache, the optimistic toggle mutator, the threaded
// comment store, pagination cursors, and one-shot scroll intents. Everything
// here is in-memory and mutates synchronously; the only suspension points
// live in the remote calls handed in by callers.
package state

import "sync"

// Kind tags an interaction keyspace. The same entity id may hold independent
// entries under different kinds.
type Kind int

const (
	KindLike Kind = iota
	KindScrap
	KindFollow
	KindReplyLike
)

func (k Kind) String() string {
	switch k {
	case KindLike:
		return "like"
	case KindScrap:
		return "scrap"
	case KindFollow:
		return "follow"
	case KindReplyLike:
		return "reply_like"
	default:
		return "unknown"
	}
}

// Entry is one hydration record. A nil Count means the kind carries no
// displayed aggregate (follow) or the caller has none to offer.
type Entry struct {
	ID    int64
	Value bool
	Count *int
}

type cacheEntry struct {
	value    bool
	count    int
	hasCount bool
}

// InteractionCache overrides server-provided defaults with locally-known
// values. Absence of an entry means "not yet decided locally", never false:
// reads fall back to the server default without writing it.
//
// The cache is shared by every view that displays the same entity, which is
// why a like toggled on a feed card survives opening the detail screen.
type InteractionCache struct {
	mu      sync.RWMutex
	entries map[Kind]map[int64]cacheEntry
}

func NewInteractionCache() *InteractionCache {
	return &InteractionCache{entries: make(map[Kind]map[int64]cacheEntry)}
}

// Get returns the cached value for (kind, id), or serverDefault when the
// entity has never been written under this kind.
func (c *InteractionCache) Get(kind Kind, id int64, serverDefault bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[kind][id]; ok {
		return e.value
	}
	return serverDefault
}

// GetCount returns the cached counter with the same precedence as Get.
// Counters never render negative.
func (c *InteractionCache) GetCount(kind Kind, id int64, serverDefault int) int {
	c.mu.RLock()
	e, ok := c.entries[kind][id]
	c.mu.RUnlock()
	n := serverDefault
	if ok && e.hasCount {
		n = e.count
	}
	if n < 0 {
		return 0
	}
	return n
}

// Set overwrites unconditionally. Both optimistic flips and server-confirmed
// reconciliation go through here. A nil count leaves any cached counter as is.
func (c *InteractionCache) Set(kind Kind, id int64, value bool, count *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.entries[kind]
	if m == nil {
		m = make(map[int64]cacheEntry)
		c.entries[kind] = m
	}
	e := m[id]
	e.value = value
	if count != nil {
		e.count = *count
		e.hasCount = true
	}
	m[id] = e
}

// Hydrate bulk-initializes entries for ids not already present. Existing
// entries are never overwritten: a list fetched after a toggle must not
// clobber the toggle back to stale server state.
func (c *InteractionCache) Hydrate(kind Kind, entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.entries[kind]
	if m == nil {
		m = make(map[int64]cacheEntry)
		c.entries[kind] = m
	}
	for _, in := range entries {
		if _, ok := m[in.ID]; ok {
			continue
		}
		e := cacheEntry{value: in.Value}
		if in.Count != nil {
			e.count = *in.Count
			e.hasCount = true
		}
		m[in.ID] = e
	}
}

// Reset drops every entry. Called when the owning page scope unmounts.
func (c *InteractionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Kind]map[int64]cacheEntry)
}
