// pkg/memcache/seen_events.go
package memcache

import (
	"sync"
	"time"
)

// SeenEventStore remembers recently processed webhook event ids so that a
// fast redelivery can be acknowledged without touching the database. The
// durable dedupe guard is the unique index on webhook_events; this cache
// only fronts it.
type SeenEventStore interface {
	Mark(eventID string, ttl time.Duration)
	Seen(eventID string) bool
}

type entry struct {
	expiresAt time.Time
}

type SeenEvents struct {
	mu   sync.RWMutex
	data map[string]entry
}

func NewSeenEvents() *SeenEvents {
	return &SeenEvents{
		data: make(map[string]entry),
	}
}

func (s *SeenEvents) Mark(eventID string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[eventID] = entry{expiresAt: time.Now().Add(ttl)}

	// Opportunistic sweep; the map stays small at webhook volumes.
	for id, e := range s.data {
		if time.Now().After(e.expiresAt) {
			delete(s.data, id)
		}
	}
}

func (s *SeenEvents) Seen(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[eventID]
	if !ok {
		return false
	}
	return time.Now().Before(e.expiresAt)
}
