package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and the deferred creation and destruction queues. Nothing a system
// can observe changes between two calls to Flush.
type World struct {
	pool     *EntityPool
	registry *Registry

	createQueue  []EntityID
	destroyQueue []EntityID
	doomed       map[EntityID]struct{}
	active       map[EntityID]Mask

	observers []Observer
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		createQueue:  make([]EntityID, 0, 64),
		destroyQueue: make([]EntityID, 0, 64),
		doomed:       make(map[EntityID]struct{}, 64),
		active:       make(map[EntityID]Mask, 1024),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// Observe registers an observer. It is told about entities flushed from now on.
func (w *World) Observe(o Observer) {
	w.observers = append(w.observers, o)
}

// CreateEntity allocates a handle. Components can be attached right away, but
// the entity stays inert until the next Flush.
func (w *World) CreateEntity() EntityID {
	id := w.pool.Create()
	w.createQueue = append(w.createQueue, id)
	return id
}

// Alive reports whether the handle still refers to an existing entity,
// flushed or not.
func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Active reports whether the entity has been flushed and not yet destroyed.
func (w *World) Active(id EntityID) bool {
	_, ok := w.active[id]
	return ok
}

// Doomed reports whether the entity is queued for destruction.
func (w *World) Doomed(id EntityID) bool {
	_, ok := w.doomed[id]
	return ok
}

// MarkForDestruction queues an entity for removal at the next Flush.
// Marking a stale or already doomed entity is a no-op.
func (w *World) MarkForDestruction(id EntityID) {
	if !w.pool.Alive(id) || w.Doomed(id) {
		return
	}
	w.doomed[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Flush applies queued removals, then queued creations, notifying matching
// observers of each change.
func (w *World) Flush() {
	for _, id := range w.destroyQueue {
		if mask, ok := w.active[id]; ok {
			for _, o := range w.observers {
				if o.Aspect().Matches(mask) {
					o.OnRemoved(id)
				}
			}
			delete(w.active, id)
		}
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
		delete(w.doomed, id)
	}
	w.destroyQueue = w.destroyQueue[:0]

	for _, id := range w.createQueue {
		if !w.pool.Alive(id) {
			continue // created and destroyed before this flush
		}
		mask := w.registry.MaskOf(id)
		w.active[id] = mask
		for _, o := range w.observers {
			if o.Aspect().Matches(mask) {
				o.OnAdded(id)
			}
		}
	}
	w.createQueue = w.createQueue[:0]
}

// Len returns the number of flushed, live entities.
func (w *World) Len() int {
	return len(w.active)
}
