package proto

// NetState holds the replicated components of one tick, keyed by entity.
// Delta snapshots only carry components that changed since the previous tick.
type NetState struct {
	Position       map[NetEntityID]Position
	Orientation    map[NetEntityID]Orientation
	LinearVelocity map[NetEntityID]LinearVelocity
	PlayerState    map[NetEntityID]PlayerState
	ItemSpawn      map[NetEntityID]ItemSpawn
	WallPosition   map[NetEntityID]WallPosition

	// Components that must not be interpolated into this tick, e.g. the
	// position of a player that was just spawned.
	Forced []ForcedComponent
}

type ForcedComponent struct {
	ID   NetEntityID
	Type ComponentType
}

func NewNetState() *NetState {
	return &NetState{
		Position:       make(map[NetEntityID]Position),
		Orientation:    make(map[NetEntityID]Orientation),
		LinearVelocity: make(map[NetEntityID]LinearVelocity),
		PlayerState:    make(map[NetEntityID]PlayerState),
		ItemSpawn:      make(map[NetEntityID]ItemSpawn),
		WallPosition:   make(map[NetEntityID]WallPosition),
	}
}

// Entities returns every entity id carried by the state, unordered.
func (s *NetState) Entities() map[NetEntityID]struct{} {
	out := make(map[NetEntityID]struct{})
	add := func(id NetEntityID) { out[id] = struct{}{} }
	for id := range s.Position {
		add(id)
	}
	for id := range s.Orientation {
		add(id)
	}
	for id := range s.LinearVelocity {
		add(id)
	}
	for id := range s.PlayerState {
		add(id)
	}
	for id := range s.ItemSpawn {
		add(id)
	}
	for id := range s.WallPosition {
		add(id)
	}
	for _, f := range s.Forced {
		add(f.ID)
	}
	return out
}

// Tick is the per-tick unit sent to each client.
type Tick struct {
	Number   TickNumber
	Events   []GameEvent
	NetState *NetState
}
