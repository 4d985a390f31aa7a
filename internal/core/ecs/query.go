package ecs

// Observer is told about entities matching its aspect when they become
// visible or are removed at a flush point.
type Observer interface {
	Aspect() Aspect
	OnAdded(id EntityID)
	OnRemoved(id EntityID)
}

// View is an Observer that keeps the set of flushed entities matching an
// aspect. Iteration order is unspecified.
type View struct {
	aspect  Aspect
	members map[EntityID]struct{}
}

// NewView creates a view and registers it with w.
func NewView(w *World, aspect Aspect) *View {
	v := &View{
		aspect:  aspect,
		members: make(map[EntityID]struct{}, 64),
	}
	w.Observe(v)
	return v
}

func (v *View) Aspect() Aspect        { return v.aspect }
func (v *View) OnAdded(id EntityID)   { v.members[id] = struct{}{} }
func (v *View) OnRemoved(id EntityID) { delete(v.members, id) }
func (v *View) Len() int              { return len(v.members) }

func (v *View) Contains(id EntityID) bool {
	_, ok := v.members[id]
	return ok
}

// Each visits every member. fn may queue creations or destructions on the
// world; membership only changes at the next flush.
func (v *View) Each(fn func(EntityID)) {
	for id := range v.members {
		fn(id)
	}
}

// Slice returns a snapshot of the members.
func (v *View) Slice() []EntityID {
	out := make([]EntityID, 0, len(v.members))
	for id := range v.members {
		out = append(out, id)
	}
	return out
}
