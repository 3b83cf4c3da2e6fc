package storage

import (
	"slices"
	"sync"
	"time"

	"github.com/dolthub/swiss"
)

// DefaultTagRetention is how long an idle tag log entry is kept
const DefaultTagRetention = 24 * time.Hour

// MemoryStore implements the Store interface using in-memory storage
// This is suitable for development and testing, but not for production
type MemoryStore struct {
	mu       sync.RWMutex
	rings    *swiss.Map[string, *Ring]
	tags     *swiss.Map[string, *TagEntry]
	denylist *swiss.Map[string, struct{}]

	retention time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a new in-memory store. Tag log entries idle for
// longer than retention are pruned in the background; zero means
// DefaultTagRetention.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = DefaultTagRetention
	}
	store := &MemoryStore{
		rings:     swiss.NewMap[string, *Ring](16),
		tags:      swiss.NewMap[string, *TagEntry](64),
		denylist:  swiss.NewMap[string, struct{}](16),
		retention: retention,
		done:      make(chan struct{}),
	}

	// Start cleanup goroutine
	go store.cleanupLoop()

	return store
}

// cleanupLoop runs periodic cleanup of idle tag entries
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupTagLog(s.retention)
		case <-s.done:
			return
		}
	}
}

func tagKey(ringID, tag string) string {
	return ringID + "/" + tag
}

// CreateRing registers a ring under its ID
func (s *MemoryStore) CreateRing(ring *Ring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rings.Has(ring.ID) {
		return ErrRingExists
	}

	ring.CreatedAt = time.Now()

	// Store a copy to avoid race conditions
	ringCopy := *ring
	ringCopy.Members = slices.Clone(ring.Members)
	s.rings.Put(ring.ID, &ringCopy)

	return nil
}

// GetRing retrieves a ring by ID
func (s *MemoryStore) GetRing(id string) (*Ring, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring, exists := s.rings.Get(id)
	if !exists {
		return nil, ErrRingNotFound
	}

	ringCopy := *ring
	ringCopy.Members = slices.Clone(ring.Members)
	return &ringCopy, nil
}

// ListRings returns all registered rings
func (s *MemoryStore) ListRings() ([]Ring, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rings := make([]Ring, 0, s.rings.Count())
	s.rings.Iter(func(_ string, ring *Ring) bool {
		r := *ring
		r.Members = slices.Clone(ring.Members)
		rings = append(rings, r)
		return false
	})

	return rings, nil
}

// RecordSignature logs that tag signed msgHash under ringID
func (s *MemoryStore) RecordSignature(ringID, tag, msgHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := tagKey(ringID, tag)

	entry, exists := s.tags.Get(key)
	if !exists {
		s.tags.Put(key, &TagEntry{
			RingID:    ringID,
			Tag:       tag,
			Messages:  []string{msgHash},
			FirstSeen: now,
			LastSeen:  now,
		})
		return false, nil
	}

	entry.LastSeen = now
	linked := false
	for _, m := range entry.Messages {
		if m != msgHash {
			linked = true
			break
		}
	}
	if !slices.Contains(entry.Messages, msgHash) {
		entry.Messages = append(entry.Messages, msgHash)
	}

	return linked, nil
}

// GetTag returns the log entry for a tag under a ring
func (s *MemoryStore) GetTag(ringID, tag string) (*TagEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.tags.Get(tagKey(ringID, tag))
	if !exists {
		return nil, ErrTagNotFound
	}

	entryCopy := *entry
	entryCopy.Messages = slices.Clone(entry.Messages)
	return &entryCopy, nil
}

// CleanupTagLog removes entries not seen for maxAge
func (s *MemoryStore) CleanupTagLog(maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	var stale []string
	s.tags.Iter(func(key string, entry *TagEntry) bool {
		if entry.LastSeen.Before(cutoff) {
			stale = append(stale, key)
		}
		return false
	})
	for _, key := range stale {
		s.tags.Delete(key)
	}

	return nil
}

// AddToDenylist bans a tag
func (s *MemoryStore) AddToDenylist(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.denylist.Put(tag, struct{}{})
	return nil
}

// IsInDenylist checks if a tag is banned
func (s *MemoryStore) IsInDenylist(tag string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.denylist.Has(tag), nil
}

// RemoveFromDenylist unbans a tag
func (s *MemoryStore) RemoveFromDenylist(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.denylist.Delete(tag)
	return nil
}

// ListDenylist returns all banned tags, sorted
func (s *MemoryStore) ListDenylist() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]string, 0, s.denylist.Count())
	s.denylist.Iter(func(tag string, _ struct{}) bool {
		tags = append(tags, tag)
		return false
	})
	slices.Sort(tags)

	return tags, nil
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryStore) Ping() error {
	select {
	case <-s.done:
		return ErrStoreClosed
	default:
		return nil
	}
}

// Stats returns storage statistics for monitoring
func (s *MemoryStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]int{
		"rings":    s.rings.Count(),
		"tags":     s.tags.Count(),
		"denylist": s.denylist.Count(),
	}
}
