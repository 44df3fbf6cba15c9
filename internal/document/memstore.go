package document

import (
	"fmt"
	"sync"
)

// MemEntity is a plain in-memory entity.
type MemEntity struct {
	EntID   string
	EntKind string
	EntTag  string
	EntText string
}

func (e MemEntity) ID() string   { return e.EntID }
func (e MemEntity) Kind() string { return e.EntKind }
func (e MemEntity) Tag() string  { return e.EntTag }
func (e MemEntity) Text() string { return e.EntText }

// MemStore is an in-memory document store used in tests and dry runs.
type MemStore struct {
	mu       sync.Mutex
	entities map[string]*MemEntity
	order    []string

	// FailUpdate makes the next Update abort after mutating its snapshot,
	// simulating a hard transactional I/O failure.
	FailUpdate error
}

// NewMemStore builds a store from entities in the given order.
func NewMemStore(entities ...MemEntity) *MemStore {
	s := &MemStore{entities: make(map[string]*MemEntity, len(entities))}
	for _, e := range entities {
		e := e
		s.entities[e.EntID] = &e
		s.order = append(s.order, e.EntID)
	}
	return s
}

// Enumerate returns entities whose tag matches selector; empty selector
// matches all. Order is insertion order.
func (s *MemStore) Enumerate(selector string) ([]Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entity
	for _, id := range s.order {
		e := s.entities[id]
		if selector == "" || e.EntTag == selector {
			out = append(out, *e)
		}
	}
	return out, nil
}

// Delete removes an entity, simulating external deletion between enumerate
// and apply.
func (s *MemStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, id)
}

// TextOf returns the current text of an entity.
func (s *MemStore) TextOf(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return "", false
	}
	return e.EntText, true
}

type memTx struct {
	snapshot map[string]*MemEntity
}

func (tx *memTx) Lookup(id string) (Entity, bool) {
	e, ok := tx.snapshot[id]
	if !ok {
		return nil, false
	}
	return *e, true
}

func (tx *memTx) SetText(id, text string) error {
	e, ok := tx.snapshot[id]
	if !ok {
		return fmt.Errorf("entity %q not found", id)
	}
	e.EntText = text
	return nil
}

// Update runs fn against a copy of the entities and commits the copy only
// when fn succeeds.
func (s *MemStore) Update(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*MemEntity, len(s.entities))
	for id, e := range s.entities {
		copied := *e
		snapshot[id] = &copied
	}

	if err := fn(&memTx{snapshot: snapshot}); err != nil {
		return err
	}
	if s.FailUpdate != nil {
		err := s.FailUpdate
		s.FailUpdate = nil
		return err
	}

	s.entities = snapshot
	order := make([]string, 0, len(snapshot))
	for _, id := range s.order {
		if _, ok := snapshot[id]; ok {
			order = append(order, id)
		}
	}
	s.order = order
	return nil
}
