package ecs

import "errors"

// ErrEntityGone is returned when a handle refers to an entity that has been
// removed, or that never carried the requested component. Callers treat it as
// "the entity no longer exists", not as a programming error.
var ErrEntityGone = errors.New("entity gone")

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
	Has(id EntityID) bool
	Kind() Kind
}

// ComponentStore is a generic typed map store for ECS components.
type ComponentStore[T any] struct {
	kind Kind
	data map[EntityID]*T
}

// NewComponentStore creates a store and registers it with w, which assigns
// the store its component kind.
func NewComponentStore[T any](w *World) *ComponentStore[T] {
	s := &ComponentStore[T]{
		data: make(map[EntityID]*T, 256),
	}
	s.kind = w.registry.Register(s)
	return s
}

func (s *ComponentStore[T]) Kind() Kind { return s.kind }

func (s *ComponentStore[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *ComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *ComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits every stored component, including those of entities that have
// not been flushed yet. Systems iterate views instead.
func (s *ComponentStore[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}

// With runs fn on the entity's component. It fails with ErrEntityGone if the
// handle is stale or the component is absent.
func With[T any](w *World, s *ComponentStore[T], id EntityID, fn func(*T)) error {
	if !w.Alive(id) {
		return ErrEntityGone
	}
	c, ok := s.data[id]
	if !ok {
		return ErrEntityGone
	}
	fn(c)
	return nil
}
