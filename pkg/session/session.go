// Package session holds uploaded event logs and their analysis results
// in memory for the lifetime of the server process.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/procsight/procsight/internal/model"
)

// Snapshot is one uploaded log and its identity. Snapshots are treated
// as immutable; Update replaces the whole value.
type Snapshot struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	UploadedAt time.Time  `json:"uploaded_at"`
	Log        *model.Log `json:"-"`

	// Cleaned is the post-cleaning view, nil until an analysis with
	// cleaning has run.
	Cleaned *model.Log `json:"-"`
}

// Store is a concurrent session registry.
type Store struct {
	sessions sync.Map // id -> *Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Put registers a log under a fresh id and returns the snapshot.
func (s *Store) Put(name string, log *model.Log) *Snapshot {
	snap := &Snapshot{
		ID:         uuid.New().String(),
		Name:       name,
		UploadedAt: time.Now(),
		Log:        log,
	}
	s.sessions.Store(snap.ID, snap)
	return snap
}

// Get returns the snapshot for an id.
func (s *Store) Get(id string) (*Snapshot, bool) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

// Update replaces the snapshot for an existing id. Unknown ids are
// ignored.
func (s *Store) Update(snap *Snapshot) {
	if _, ok := s.sessions.Load(snap.ID); ok {
		s.sessions.Store(snap.ID, snap)
	}
}

// Delete removes a session. It reports whether the id existed.
func (s *Store) Delete(id string) bool {
	_, ok := s.sessions.LoadAndDelete(id)
	return ok
}

// List returns all snapshots in no particular order.
func (s *Store) List() []*Snapshot {
	var out []*Snapshot
	s.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Snapshot))
		return true
	})
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	n := 0
	s.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
