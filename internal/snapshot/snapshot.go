// Package snapshot holds the current immutable set of imported watch events.
package snapshot

import (
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/google/uuid"
)

// ErrNoSnapshot is returned when nothing has been imported yet.
var ErrNoSnapshot = errors.New("no watch history has been imported")

// Snapshot is one import's entries and the statistics derived from them.
// It is never modified after publication.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Snapshot struct {
	ImportID   uuid.UUID
	Source     string
	ImportedAt time.Time
	Report     models.ImportReport
	Stats      models.WatchStats
	entries    []models.VideoEntry
}

// New builds a snapshot. The entries slice is copied.
func New(source string, entries []models.VideoEntry, report models.ImportReport, stats models.WatchStats) *Snapshot {
	return &Snapshot{
		ImportID:   uuid.New(),
		Source:     source,
		ImportedAt: time.Now(),
		Report:     report,
		Stats:      stats,
		entries:    slices.Clone(entries),
	}
}

// Entries returns a copy of the snapshot's entries in extraction order.
func (s *Snapshot) Entries() []models.VideoEntry {
	return slices.Clone(s.entries)
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Store publishes snapshots atomically. Readers never observe a partially built one.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current snapshot and returns the previous one, if any.
func (st *Store) Publish(s *Snapshot) *Snapshot {
	return st.current.Swap(s)
}

// Current returns the current snapshot or ErrNoSnapshot.
func (st *Store) Current() (*Snapshot, error) {
	s := st.current.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}
