package ecs

import "fmt"

// Kind identifies a component store. At most 64 kinds fit in a Mask.
type Kind uint8

const maxKinds = 64

// Registry tracks all component stores and supports bulk cleanup on entity destroy.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
	}
}

// Register adds a component store to the registry and returns its kind.
func (r *Registry) Register(store Removable) Kind {
	if len(r.stores) >= maxKinds {
		panic(fmt.Sprintf("ecs: more than %d component kinds", maxKinds))
	}
	r.stores = append(r.stores, store)
	return Kind(len(r.stores) - 1)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}

// MaskOf returns the set of component kinds currently attached to id.
func (r *Registry) MaskOf(id EntityID) Mask {
	var m Mask
	for i, s := range r.stores {
		if s.Has(id) {
			m |= 1 << uint(i)
		}
	}
	return m
}
