// Package memory is an in-process implementation of store.Store. Each
// transaction works on a private copy of the state that replaces the parent
// state on commit. Nested transactions copy their parent the same way, which
// gives savepoint semantics. Top-level transactions are serialized.
//
// It backs the CLI's offline validation mode and the engine tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/store"
)

type state struct {
	people       map[uuid.UUID]store.Person
	campuses     map[uuid.UUID]store.Campus
	areas        map[uuid.UUID]store.KnowledgeArea
	types        map[uuid.UUID]store.ScholarshipType
	orgs         map[uuid.UUID]store.Organization
	initiatives  map[uuid.UUID]store.Initiative
	scholarships map[uuid.UUID]store.Scholarship
	groups       map[uuid.UUID]store.OrganizationalGroup
	runs         map[uuid.UUID]store.ImportRun
}

func newState() state {
	return state{
		people:       map[uuid.UUID]store.Person{},
		campuses:     map[uuid.UUID]store.Campus{},
		areas:        map[uuid.UUID]store.KnowledgeArea{},
		types:        map[uuid.UUID]store.ScholarshipType{},
		orgs:         map[uuid.UUID]store.Organization{},
		initiatives:  map[uuid.UUID]store.Initiative{},
		scholarships: map[uuid.UUID]store.Scholarship{},
		groups:       map[uuid.UUID]store.OrganizationalGroup{},
		runs:         map[uuid.UUID]store.ImportRun{},
	}
}

// clone is shallow per map. Stored values are never mutated in place, so
// sharing their slices between copies is safe.
func (s state) clone() state {
	return state{
		people:       maps.Clone(s.people),
		campuses:     maps.Clone(s.campuses),
		areas:        maps.Clone(s.areas),
		types:        maps.Clone(s.types),
		orgs:         maps.Clone(s.orgs),
		initiatives:  maps.Clone(s.initiatives),
		scholarships: maps.Clone(s.scholarships),
		groups:       maps.Clone(s.groups),
		runs:         maps.Clone(s.runs),
	}
}

// Store is the in-memory store. The zero value is not usable; call New.
type Store struct {
	lock  chan struct{} // held by the open top-level transaction
	mu    sync.RWMutex  // guards state
	state state
	nowFn func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		lock:  make(chan struct{}, 1),
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Begin waits for any open top-level transaction to finish.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.RLock()
	st := s.state.clone()
	s.mu.RUnlock()
	return &tx{store: s, state: st}, nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// Counts is a row count per entity, used by tests and the CLI summary.
type Counts struct {
	People           int
	Campuses         int
	KnowledgeAreas   int
	ScholarshipTypes int
	Organizations    int
	Initiatives      int
	Scholarships     int
	Groups           int
	Runs             int
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		People:           len(s.state.people),
		Campuses:         len(s.state.campuses),
		KnowledgeAreas:   len(s.state.areas),
		ScholarshipTypes: len(s.state.types),
		Organizations:    len(s.state.orgs),
		Initiatives:      len(s.state.initiatives),
		Scholarships:     len(s.state.scholarships),
		Groups:           len(s.state.groups),
		Runs:             len(s.state.runs),
	}
}

func (s *Store) People() []store.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.state.people, func(p store.Person) time.Time { return p.CreatedAt })
}

func (s *Store) Campuses() []store.Campus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.state.campuses, func(c store.Campus) time.Time { return c.CreatedAt })
}

func (s *Store) ScholarshipTypes() []store.ScholarshipType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.state.types, func(t store.ScholarshipType) time.Time { return t.CreatedAt })
}

func (s *Store) Initiatives() []store.Initiative {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.state.initiatives, func(i store.Initiative) time.Time { return i.CreatedAt })
}

func (s *Store) Scholarships() []store.Scholarship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.state.scholarships, func(sc store.Scholarship) time.Time { return sc.CreatedAt })
}

func (s *Store) Groups() []store.OrganizationalGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.state.groups, func(g store.OrganizationalGroup) time.Time { return g.CreatedAt })
}

func values[T any](m map[uuid.UUID]T, created func(T) time.Time) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b T) int { return created(a).Compare(created(b)) })
	return out
}

type tx struct {
	store  *Store
	parent *tx
	state  state
	done   bool
}

var _ store.Tx = (*tx)(nil)

func (t *tx) Begin(context.Context) (store.Tx, error) {
	if t.done {
		return nil, store.ErrTxDone
	}
	return &tx{store: t.store, parent: t, state: t.state.clone()}, nil
}

func (t *tx) Commit(context.Context) error {
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	if t.parent != nil {
		if t.parent.done {
			return store.ErrTxDone
		}
		t.parent.state = t.state
		return nil
	}
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	<-t.store.lock
	return nil
}

func (t *tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if t.parent == nil {
		<-t.store.lock
	}
	return nil
}

func (t *tx) now() time.Time { return t.store.nowFn() }
