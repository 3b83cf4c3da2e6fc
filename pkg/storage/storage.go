package storage

import (
	"fmt"
	"time"
)

// Ring is a registered ordered key list
type Ring struct {
	ID        string    `json:"id" db:"id"`           // Hex digest of the ring transcript
	Curve     string    `json:"curve" db:"curve"`     // Curve name
	Profile   string    `json:"profile" db:"profile"` // Hash profile (default|legacy)
	Members   []string  `json:"members" db:"members"` // SEC1 hex points, in ring order
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TagEntry records the messages a linkability tag has signed under one ring
type TagEntry struct {
	RingID    string    `json:"ring_id" db:"ring_id"`
	Tag       string    `json:"tag" db:"tag"`             // SEC1 hex of Y
	Messages  []string  `json:"messages" db:"messages"`   // Hex digests of signed messages
	FirstSeen time.Time `json:"first_seen" db:"first_seen"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
}

// RingStore defines the interface for ring registration
type RingStore interface {
	// CreateRing registers a ring under its ID
	CreateRing(ring *Ring) error

	// GetRing retrieves a ring by ID
	GetRing(id string) (*Ring, error)

	// ListRings returns all registered rings
	ListRings() ([]Ring, error)
}

// TagStore defines the interface for the linkability log
type TagStore interface {
	// RecordSignature logs that tag signed msgHash under ringID. linked is
	// true when the tag had already signed a different message there.
	RecordSignature(ringID, tag, msgHash string) (linked bool, err error)

	// GetTag returns the log entry for a tag under a ring
	GetTag(ringID, tag string) (*TagEntry, error)

	// CleanupTagLog removes entries not seen for maxAge
	CleanupTagLog(maxAge time.Duration) error
}

// DenylistStore defines the interface for banned linkability tags
type DenylistStore interface {
	// AddToDenylist bans a tag
	AddToDenylist(tag string) error

	// IsInDenylist checks if a tag is banned
	IsInDenylist(tag string) (bool, error)

	// RemoveFromDenylist unbans a tag
	RemoveFromDenylist(tag string) error

	// ListDenylist returns all banned tags
	ListDenylist() ([]string, error)
}

// Store combines all storage interfaces
type Store interface {
	RingStore
	TagStore
	DenylistStore

	// Close closes the storage connection
	Close() error

	// Ping checks if the storage is healthy
	Ping() error
}

var (
	// ErrRingNotFound indicates a ring was not found
	ErrRingNotFound = fmt.Errorf("ring not found")

	// ErrRingExists indicates a ring is already registered
	ErrRingExists = fmt.Errorf("ring already exists")

	// ErrTagNotFound indicates a tag has no log entry
	ErrTagNotFound = fmt.Errorf("tag not found")

	// ErrStoreClosed indicates the store has been closed
	ErrStoreClosed = fmt.Errorf("store closed")
)
