// Package service holds the per-world context threaded through every system:
// the entity store, the event bus and the net entity id allocator.
package service

import (
	"math/rand/v2"
	"time"

	"github.com/catcharena/server/internal/component"
	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/core/event"
	"github.com/catcharena/server/internal/data"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/proto"
	"go.uber.org/zap"
)

// Services is state that systems can access mutably. One instance per world,
// only touched from the game goroutine.
type Services struct {
	World  *ecs.World
	C      *component.Stores
	Map    *data.Map
	Events *event.Bus[proto.PlayerID, proto.GameEvent]
	Rand   *rand.Rand
	Log    *zap.Logger

	// TickDur is the simulated duration of one tick.
	TickDur time.Duration

	entityIDCounter proto.NetEntityID
	killed          map[proto.PlayerID]struct{}
	forced          []proto.ForcedComponent
}

func New(m *data.Map, tickDur time.Duration, rng *rand.Rand, log *zap.Logger) *Services {
	w := ecs.NewWorld()
	return &Services{
		World:   w,
		C:       component.NewStores(w),
		Map:     m,
		Events:  event.NewBus[proto.PlayerID, proto.GameEvent](),
		Rand:    rng,
		Log:     log,
		TickDur: tickDur,
		killed:  make(map[proto.PlayerID]struct{}),
	}
}

// TickSeconds returns the tick duration in seconds.
func (s *Services) TickSeconds() float32 {
	return float32(s.TickDur.Seconds())
}

// PrepareForTick resets the event queues for the given players. It fails if
// events from the previous tick were never drained.
func (s *Services) PrepareForTick(tick proto.TickNumber, players []proto.PlayerID) error {
	clear(s.killed)
	return s.Events.PrepareForTick(uint32(tick), players)
}

// NextEntityID allocates a net entity id. Ids start at 1 and are never reused.
func (s *Services) NextEntityID() proto.NetEntityID {
	s.entityIDCounter++
	return s.entityIDCounter
}

// AddEvent queues e for every player and for server-side processing.
func (s *Services) AddEvent(e proto.GameEvent) {
	s.Events.Add(e)
}

// AddPlayerEvent queues e for one player only.
func (s *Services) AddPlayerEvent(id proto.PlayerID, e proto.GameEvent) error {
	return s.Events.AddFor(id, e)
}

// KillPlayer emits a PlayerDied event unless the player already died this tick.
func (s *Services) KillPlayer(e proto.PlayerDied) {
	if _, ok := s.killed[e.PlayerID]; ok {
		return
	}
	s.killed[e.PlayerID] = struct{}{}
	s.AddEvent(e)
}

// ForceComponent marks a component that clients must not interpolate this
// tick, e.g. the position of a freshly spawned player.
func (s *Services) ForceComponent(id proto.NetEntityID, ct proto.ComponentType) {
	s.forced = append(s.forced, proto.ForcedComponent{ID: id, Type: ct})
}

// TakeForced drains the forced component list.
func (s *Services) TakeForced() []proto.ForcedComponent {
	out := s.forced
	s.forced = nil
	return out
}

// BuildNet creates a replicated entity of the given type and announces it to
// every player. The entity becomes visible to systems at the next flush.
func (s *Services) BuildNet(typ proto.EntityTypeID, owner proto.PlayerID) ecs.EntityID {
	t := entity.Get(typ)
	if t == nil {
		s.Log.Panic("unknown entity type", zap.Uint8("type", uint8(typ)))
	}

	id := s.World.CreateEntity()
	t.Build(s.C, id, owner)

	netID := s.NextEntityID()
	s.C.NetEntity.Set(id, &component.NetEntity{ID: netID, Type: typ, Owner: owner})
	s.AddEvent(proto.CreateEntity{ID: netID, Type: typ, Owner: owner})
	return id
}

// RemoveNet announces the removal of a replicated entity and queues its
// destruction. Removing an entity twice is a no-op.
func (s *Services) RemoveNet(id ecs.EntityID) {
	if !s.World.Alive(id) || s.World.Doomed(id) {
		return
	}
	if net, ok := s.C.NetEntity.Get(id); ok {
		s.AddEvent(proto.RemoveEntity{ID: net.ID})
	}
	s.World.MarkForDestruction(id)
}

// NetID returns the net entity id of id, if it is replicated.
func (s *Services) NetID(id ecs.EntityID) (proto.NetEntityID, bool) {
	net, ok := s.C.NetEntity.Get(id)
	if !ok {
		return 0, false
	}
	return net.ID, true
}

// Usable reports whether id refers to an entity systems may still act on.
func (s *Services) Usable(id ecs.EntityID) bool {
	return s.World.Alive(id) && !s.World.Doomed(id)
}
