// Package component holds the server-side component records. Pure data, zero
// methods beyond trivial accessors; all behavior lives in systems.
package component

import "github.com/catcharena/server/internal/proto"

// NetEntity marks an entity replicated to clients.
type NetEntity struct {
	ID    proto.NetEntityID
	Type  proto.EntityTypeID
	Owner proto.PlayerID
}

// Shape is the collision radius used by the interaction dispatcher.
type Shape struct {
	Radius float32
}

// PlayerController queues inputs received from the owning client.
type PlayerController struct {
	Owner  proto.PlayerID
	Inputs []proto.TimedPlayerInput
}

type BouncyEnemy struct {
	Attract bool
	Speed   float32
	Owner   proto.PlayerID // player who spawned it, NeutralPlayerID for map enemies
}

// ProjectileKind distinguishes what happens when a projectile expires.
type ProjectileKind uint8

const (
	ProjectileBullet ProjectileKind = iota
	ProjectileFrag
)

type Projectile struct {
	Kind      ProjectileKind
	Owner     proto.PlayerID
	LifetimeS float32
}

// ItemSpawner is the server half of an item spawn point.
type ItemSpawner struct {
	CooldownS float32
}

type Rotate struct {
	Speed float32 // radians per second
}
