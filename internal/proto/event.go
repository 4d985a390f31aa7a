package proto

import "github.com/catcharena/server/internal/mathx"

// EventTag is the wire tag of a GameEvent.
type EventTag uint8

const (
	EventPlayerJoin EventTag = iota + 1
	EventPlayerLeave
	EventInitialPlayerList
	EventUpdatePlayerStats
	EventCreateEntity
	EventRemoveEntity
	EventPlayerDied
	EventProjectileImpact
	EventItemPickup
)

// GameEvent is an immutable fact produced during a tick. Events carry ids and
// value snapshots, never entity handles.
type GameEvent interface {
	Tag() EventTag
}

type PlayerJoin struct {
	ID   PlayerID
	Info PlayerInfo
}

type PlayerLeave struct {
	ID PlayerID
}

// InitialPlayerList is sent only to a newly admitted player and includes
// that player.
type InitialPlayerList struct {
	Players []PlayerInfo
}

type UpdatePlayerStats struct {
	Stats map[PlayerID]PlayerStats
}

type CreateEntity struct {
	ID    NetEntityID
	Type  EntityTypeID
	Owner PlayerID
}

type RemoveEntity struct {
	ID NetEntityID
}

type PlayerDied struct {
	PlayerID    PlayerID
	Position    mathx.Vec2
	Responsible PlayerID
	Reason      DeathReason
}

type ProjectileImpact struct {
	Position mathx.Vec2
}

type ItemPickup struct {
	PlayerID PlayerID
	Item     ItemKind
}

func (PlayerJoin) Tag() EventTag        { return EventPlayerJoin }
func (PlayerLeave) Tag() EventTag       { return EventPlayerLeave }
func (InitialPlayerList) Tag() EventTag { return EventInitialPlayerList }
func (UpdatePlayerStats) Tag() EventTag { return EventUpdatePlayerStats }
func (CreateEntity) Tag() EventTag      { return EventCreateEntity }
func (RemoveEntity) Tag() EventTag      { return EventRemoveEntity }
func (PlayerDied) Tag() EventTag        { return EventPlayerDied }
func (ProjectileImpact) Tag() EventTag  { return EventProjectileImpact }
func (ItemPickup) Tag() EventTag        { return EventItemPickup }
