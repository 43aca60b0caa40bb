// Package store holds uploaded datasets in memory, scoped by session.
// Datasets are immutable once stored; everything is lost on process exit,
// which is the intended lifecycle for this service.
package store

import (
	"fmt"
	"sync"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// entry pairs dataset metadata with its payload: observation rows for
// tabular datasets, a boundary region for geometry datasets.
type entry struct {
	meta   domain.Dataset
	obs    []domain.Observation
	region *domain.BoundaryRegion
}

// session holds one browser session's datasets in insertion order.
type session struct {
	entries map[string]*entry
	order   []string
}

// Store is a thread-safe, session-scoped dataset store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func New() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// PutTabular stores a tabular dataset with its observation rows.
func (s *Store) PutTabular(sessionID string, meta domain.Dataset, obs []domain.Observation) error {
	return s.put(sessionID, &entry{meta: meta, obs: cloneObservations(obs)})
}

// PutBoundary stores a boundary dataset with its region geometry.
func (s *Store) PutBoundary(sessionID string, meta domain.Dataset, region domain.BoundaryRegion) error {
	r := cloneRegion(region)
	return s.put(sessionID, &entry{meta: meta, region: &r})
}

func (s *Store) put(sessionID string, e *entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{entries: make(map[string]*entry)}
		s.sessions[sessionID] = sess
	}
	id := e.meta.ID
	if _, exists := sess.entries[id]; exists {
		return fmt.Errorf("dataset %s already exists", id)
	}
	sess.entries[id] = e
	sess.order = append(sess.order, id)
	return nil
}

// List returns metadata for the session's non-boundary datasets in upload order.
func (s *Store) List(sessionID string) []domain.Dataset {
	return s.list(sessionID, func(e *entry) bool { return !e.meta.IsBoundary })
}

// ListBoundaries returns metadata for the session's boundary datasets in upload order.
func (s *Store) ListBoundaries(sessionID string) []domain.Dataset {
	return s.list(sessionID, func(e *entry) bool { return e.meta.IsBoundary })
}

func (s *Store) list(sessionID string, keep func(*entry) bool) []domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	var out []domain.Dataset
	for _, id := range sess.order {
		if e := sess.entries[id]; keep(e) {
			out = append(out, e.meta)
		}
	}
	return out
}

// Get returns dataset metadata, or ErrNotFound if the ID does not exist in
// this session. IDs from other sessions are invisible.
func (s *Store) Get(sessionID, datasetID string) (domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(sessionID, datasetID)
	if err != nil {
		return domain.Dataset{}, err
	}
	return e.meta, nil
}

// Observations returns a dataset's metadata and a copy of its observation
// rows. Boundary datasets yield an empty row slice.
func (s *Store) Observations(sessionID, datasetID string) (domain.Dataset, []domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(sessionID, datasetID)
	if err != nil {
		return domain.Dataset{}, nil, err
	}
	return e.meta, cloneObservations(e.obs), nil
}

// Boundary returns a boundary dataset's metadata and region. A tabular
// dataset ID yields ErrNotFound: callers asking for geometry should not see
// row datasets.
func (s *Store) Boundary(sessionID, datasetID string) (domain.Dataset, domain.BoundaryRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(sessionID, datasetID)
	if err != nil {
		return domain.Dataset{}, domain.BoundaryRegion{}, err
	}
	if e.region == nil {
		return domain.Dataset{}, domain.BoundaryRegion{}, fmt.Errorf("dataset %s: %w", datasetID, domain.ErrNotFound)
	}
	return e.meta, cloneRegion(*e.region), nil
}

// BoundaryRegions returns every boundary region in the session, in upload
// order. Used to overlay study areas on export plans.
func (s *Store) BoundaryRegions(sessionID string) []domain.BoundaryRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	var out []domain.BoundaryRegion
	for _, id := range sess.order {
		if e := sess.entries[id]; e.region != nil {
			out = append(out, cloneRegion(*e.region))
		}
	}
	return out
}

// Delete removes a dataset and reports whether it existed. Deleting an
// unknown or already-deleted ID is a no-op, not an error.
func (s *Store) Delete(sessionID, datasetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	if _, ok := sess.entries[datasetID]; !ok {
		return false
	}
	delete(sess.entries, datasetID)
	for i, id := range sess.order {
		if id == datasetID {
			sess.order = append(sess.order[:i], sess.order[i+1:]...)
			break
		}
	}
	if len(sess.entries) == 0 {
		delete(s.sessions, sessionID)
	}
	return true
}

// Len reports the total dataset count across all sessions, for gauges.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessions {
		n += len(sess.entries)
	}
	return n
}

// lookup must be called with the lock held.
func (s *Store) lookup(sessionID, datasetID string) (*entry, error) {
	if sess, ok := s.sessions[sessionID]; ok {
		if e, ok := sess.entries[datasetID]; ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("dataset %s: %w", datasetID, domain.ErrNotFound)
}

// cloneObservations copies the row slice so callers can never mutate stored
// state. Observation itself has no reference fields.
func cloneObservations(obs []domain.Observation) []domain.Observation {
	if obs == nil {
		return nil
	}
	out := make([]domain.Observation, len(obs))
	copy(out, obs)
	return out
}

func cloneRegion(r domain.BoundaryRegion) domain.BoundaryRegion {
	out := r
	out.Coordinates = make([]domain.Coordinate, len(r.Coordinates))
	copy(out.Coordinates, r.Coordinates)
	return out
}
