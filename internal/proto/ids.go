// Package proto holds everything client and server agree on: identifiers,
// replicated components, game events, messages and their binary encoding.
package proto

// PlayerID identifies a connection for its whole lifetime. Zero is reserved
// for NeutralPlayerID.
type PlayerID uint32

// NeutralPlayerID owns map entities and is "responsible" for deaths no player
// caused.
const NeutralPlayerID PlayerID = 0

// NetEntityID is the only entity identity that goes over the wire. Allocated
// once per net entity, strictly increasing, never reused.
type NetEntityID uint32

// EntityTypeID indexes GameInfo.EntityTypes.
type EntityTypeID uint8

type TickNumber uint32

// Channel separates control messages from the tick stream.
type Channel byte

const (
	ChannelMessages Channel = iota
	ChannelTicks

	NumChannels = 2
)

// ComponentType names a replicated component kind.
type ComponentType uint8

const (
	ComponentPosition ComponentType = iota
	ComponentOrientation
	ComponentLinearVelocity
	ComponentPlayerState
	ComponentItemSpawn
	ComponentWallPosition
)

func (c ComponentType) String() string {
	switch c {
	case ComponentPosition:
		return "position"
	case ComponentOrientation:
		return "orientation"
	case ComponentLinearVelocity:
		return "linear_velocity"
	case ComponentPlayerState:
		return "player_state"
	case ComponentItemSpawn:
		return "item_spawn"
	case ComponentWallPosition:
		return "wall_position"
	default:
		return "unknown"
	}
}
