package geocache

import (
	"container/list"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"stroll/internal/domain/entity"
)

// Memory is the first cache tier: a bounded in-process LRU with per-entry
// expiry. Expired entries are dropped lazily on lookup and eagerly by Sweep.
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // Front is most recently used.
	entries  map[string]*list.Element

	now func() time.Time // Overridable for tests.
}

type memoryEntry struct {
	key       string
	segment   entity.RouteSegment
	createdAt time.Time
	expiresAt time.Time
}

// NewMemory creates an in-memory tier with the given capacity and TTL.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity < 1 {
		capacity = 1
	}

	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the cached segment for key, or nil on miss or expiry. The
// result is an owned copy; mutating it cannot corrupt the resident entry.
func (m *Memory) Get(key string) *entity.RouteSegment {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil
	}

	entry := elem.Value.(*memoryEntry)
	if m.now().After(entry.expiresAt) {
		m.removeLocked(elem)

		return nil
	}

	m.order.MoveToFront(elem)
	segment := entry.segment
	if entry.segment.Path != nil {
		segment.Path = make(orb.LineString, len(entry.segment.Path))
		copy(segment.Path, entry.segment.Path)
	}

	return &segment
}

// Put stores a segment under key, evicting the least recently used entry
// when the tier is full. A racing double-put is harmless: the last write
// stands, and cached values for a coordinate pair are stable.
func (m *Memory) Put(key string, segment entity.RouteSegment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	createdAt := m.now()
	if elem, ok := m.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.segment = segment
		entry.createdAt = createdAt
		entry.expiresAt = createdAt.Add(m.ttl)
		m.order.MoveToFront(elem)

		return
	}

	elem := m.order.PushFront(&memoryEntry{
		key:       key,
		segment:   segment,
		createdAt: createdAt,
		expiresAt: createdAt.Add(m.ttl),
	})
	m.entries[key] = elem

	for m.order.Len() > m.capacity {
		m.removeLocked(m.order.Back())
	}
}

// Sweep eagerly drops all expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for elem := m.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			m.removeLocked(elem)
			removed++
		}
		elem = prev
	}

	return removed
}

// Len returns the number of resident entries, including not-yet-swept ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.order.Len()
}

func (m *Memory) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	m.order.Remove(elem)
	delete(m.entries, entry.key)
}
