package system

import (
	"maps"
	"slices"

	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
)

// NetEntitySystem indexes replicated entities by net id and builds the
// NetState sent to clients. It observes the world directly instead of running
// in a phase.
type NetEntitySystem struct {
	s        *service.Services
	aspect   ecs.Aspect
	entities map[proto.NetEntityID]ecs.EntityID
	last     *proto.NetState
}

func NewNetEntitySystem(s *service.Services) *NetEntitySystem {
	sys := &NetEntitySystem{
		s:        s,
		aspect:   ecs.All(s.C.NetEntity.Kind()),
		entities: make(map[proto.NetEntityID]ecs.EntityID, 256),
		last:     proto.NewNetState(),
	}
	s.World.Observe(sys)
	return sys
}

func (sys *NetEntitySystem) Aspect() ecs.Aspect { return sys.aspect }

func (sys *NetEntitySystem) OnAdded(id ecs.EntityID) {
	if net, ok := sys.s.C.NetEntity.Get(id); ok {
		sys.entities[net.ID] = id
	}
}

// OnRemoved runs before the entity's components are dropped.
func (sys *NetEntitySystem) OnRemoved(id ecs.EntityID) {
	if net, ok := sys.s.C.NetEntity.Get(id); ok {
		delete(sys.entities, net.ID)
	}
}

// Entity resolves a net id to the local entity.
func (sys *NetEntitySystem) Entity(id proto.NetEntityID) (ecs.EntityID, bool) {
	e, ok := sys.entities[id]
	return e, ok
}

func (sys *NetEntitySystem) Len() int { return len(sys.entities) }

func (sys *NetEntitySystem) sortedIDs() []proto.NetEntityID {
	return slices.Sorted(maps.Keys(sys.entities))
}

// ReplicateEntities queues a CreateEntity event for every flushed net entity,
// for one player only.
func (sys *NetEntitySystem) ReplicateEntities(player proto.PlayerID) error {
	for _, id := range sys.sortedIDs() {
		net, _ := sys.s.C.NetEntity.Get(sys.entities[id])
		err := sys.s.AddPlayerEvent(player, proto.CreateEntity{ID: net.ID, Type: net.Type, Owner: net.Owner})
		if err != nil {
			return err
		}
	}
	return nil
}

// RemovePlayerEntities removes every net entity owned by player.
func (sys *NetEntitySystem) RemovePlayerEntities(player proto.PlayerID) {
	for _, id := range sys.sortedIDs() {
		e := sys.entities[id]
		if net, ok := sys.s.C.NetEntity.Get(e); ok && net.Owner == player {
			sys.s.RemoveNet(e)
		}
	}
}

// Snapshot returns the replicated components of every net entity, and the
// subset that changed since the previous snapshot. Forced components are
// attached to both and then cleared.
func (sys *NetEntitySystem) Snapshot() (full, delta *proto.NetState) {
	c := sys.s.C
	full = proto.NewNetState()
	for id, e := range sys.entities {
		net, _ := c.NetEntity.Get(e)
		t := entity.Get(net.Type)
		if t == nil {
			continue
		}
		for _, ct := range t.NetComponents {
			switch ct {
			case proto.ComponentPosition:
				copyComponent(c.Position, e, id, full.Position)
			case proto.ComponentOrientation:
				copyComponent(c.Orientation, e, id, full.Orientation)
			case proto.ComponentLinearVelocity:
				copyComponent(c.LinearVelocity, e, id, full.LinearVelocity)
			case proto.ComponentPlayerState:
				copyComponent(c.PlayerState, e, id, full.PlayerState)
			case proto.ComponentItemSpawn:
				copyComponent(c.ItemSpawn, e, id, full.ItemSpawn)
			case proto.ComponentWallPosition:
				copyComponent(c.WallPosition, e, id, full.WallPosition)
			}
		}
	}

	delta = proto.NewNetState()
	changed(full.Position, sys.last.Position, delta.Position)
	changed(full.Orientation, sys.last.Orientation, delta.Orientation)
	changed(full.LinearVelocity, sys.last.LinearVelocity, delta.LinearVelocity)
	changed(full.PlayerState, sys.last.PlayerState, delta.PlayerState)
	changed(full.ItemSpawn, sys.last.ItemSpawn, delta.ItemSpawn)
	changed(full.WallPosition, sys.last.WallPosition, delta.WallPosition)

	// Only forced components of entities that still exist are sent.
	for _, f := range sys.s.TakeForced() {
		if _, ok := sys.entities[f.ID]; ok {
			full.Forced = append(full.Forced, f)
			delta.Forced = append(delta.Forced, f)
		}
	}

	sys.last = full
	return full, delta
}

func copyComponent[T any](store *ecs.ComponentStore[T], e ecs.EntityID, id proto.NetEntityID, out map[proto.NetEntityID]T) {
	if v, ok := store.Get(e); ok {
		out[id] = *v
	}
}

func changed[T comparable](cur, prev, out map[proto.NetEntityID]T) {
	for id, v := range cur {
		if old, ok := prev[id]; !ok || old != v {
			out[id] = v
		}
	}
}
