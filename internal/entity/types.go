// Package entity defines the replicated entity types and how to assemble them
// from components.
package entity

import (
	"github.com/catcharena/server/internal/component"
	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/proto"
)

// Entity type ids, in the order clients receive them in GameInfo.
const (
	TypePlayer proto.EntityTypeID = iota
	TypeBouncyEnemy
	TypeItemSpawn
	TypeWallWood
	TypeBullet
	TypeFrag

	NumTypes = 6
)

// Gameplay tuning. Distances in pixels, times in seconds.
const (
	PlayerRadius  = 12
	PlayerSpeed   = 150
	CatcherSpeed  = 165
	InvulnerableS = 2.5
	ShieldGraceS  = 0.5

	BouncyRadius   = 14
	BouncySpeed    = 120
	BouncyTurnRate = 2.5 // radians per second

	BulletRadius    = 3
	BulletSpeed     = 500
	BulletLifetimeS = 1.5

	FragRadius      = 5
	FragSpeed       = 250
	FragLifetimeS   = 0.8
	FragRotateSpeed = 10
	FragBullets     = 12

	ItemSpawnRadius    = 12
	ItemSpawnCooldownS = 10
)

// Type describes one kind of replicated entity.
type Type struct {
	Name string

	// NetComponents are sent to clients in NetState.
	NetComponents []proto.ComponentType

	build func(c *component.Stores, id ecs.EntityID, owner proto.PlayerID)
}

// Build attaches the type's default components to id.
func (t *Type) Build(c *component.Stores, id ecs.EntityID, owner proto.PlayerID) {
	t.build(c, id, owner)
}

// Replicates reports whether components of kind ct are sent for this type.
func (t *Type) Replicates(ct proto.ComponentType) bool {
	for _, n := range t.NetComponents {
		if n == ct {
			return true
		}
	}
	return false
}

var types = [NumTypes]Type{
	TypePlayer: {
		Name: "player",
		NetComponents: []proto.ComponentType{
			proto.ComponentPosition,
			proto.ComponentOrientation,
			proto.ComponentLinearVelocity,
			proto.ComponentPlayerState,
		},
		build: func(c *component.Stores, id ecs.EntityID, owner proto.PlayerID) {
			c.Position.Set(id, &proto.Position{})
			c.Orientation.Set(id, &proto.Orientation{})
			c.LinearVelocity.Set(id, &proto.LinearVelocity{})
			c.Shape.Set(id, &component.Shape{Radius: PlayerRadius})
			c.PlayerState.Set(id, &proto.PlayerState{})
			c.PlayerController.Set(id, &component.PlayerController{Owner: owner})
		},
	},
	TypeBouncyEnemy: {
		Name: "bouncy_enemy",
		NetComponents: []proto.ComponentType{
			proto.ComponentPosition,
			proto.ComponentOrientation,
		},
		build: func(c *component.Stores, id ecs.EntityID, owner proto.PlayerID) {
			c.Position.Set(id, &proto.Position{})
			c.Orientation.Set(id, &proto.Orientation{})
			c.LinearVelocity.Set(id, &proto.LinearVelocity{})
			c.Shape.Set(id, &component.Shape{Radius: BouncyRadius})
			c.BouncyEnemy.Set(id, &component.BouncyEnemy{Speed: BouncySpeed, Owner: owner})
		},
	},
	TypeItemSpawn: {
		Name: "item_spawn",
		NetComponents: []proto.ComponentType{
			proto.ComponentPosition,
			proto.ComponentItemSpawn,
		},
		build: func(c *component.Stores, id ecs.EntityID, _ proto.PlayerID) {
			c.Position.Set(id, &proto.Position{})
			c.Shape.Set(id, &component.Shape{Radius: ItemSpawnRadius})
			c.ItemSpawn.Set(id, &proto.ItemSpawn{})
			c.ItemSpawner.Set(id, &component.ItemSpawner{})
		},
	},
	TypeWallWood: {
		Name:          "wall_wood",
		NetComponents: []proto.ComponentType{proto.ComponentWallPosition},
		build: func(c *component.Stores, id ecs.EntityID, _ proto.PlayerID) {
			c.WallPosition.Set(id, &proto.WallPosition{})
		},
	},
	TypeBullet: {
		Name: "bullet",
		NetComponents: []proto.ComponentType{
			proto.ComponentPosition,
			proto.ComponentOrientation,
		},
		build: func(c *component.Stores, id ecs.EntityID, owner proto.PlayerID) {
			c.Position.Set(id, &proto.Position{})
			c.Orientation.Set(id, &proto.Orientation{})
			c.LinearVelocity.Set(id, &proto.LinearVelocity{})
			c.Shape.Set(id, &component.Shape{Radius: BulletRadius})
			c.Projectile.Set(id, &component.Projectile{
				Kind:      component.ProjectileBullet,
				Owner:     owner,
				LifetimeS: BulletLifetimeS,
			})
		},
	},
	TypeFrag: {
		Name: "frag",
		NetComponents: []proto.ComponentType{
			proto.ComponentPosition,
			proto.ComponentOrientation,
		},
		build: func(c *component.Stores, id ecs.EntityID, owner proto.PlayerID) {
			c.Position.Set(id, &proto.Position{})
			c.Orientation.Set(id, &proto.Orientation{})
			c.LinearVelocity.Set(id, &proto.LinearVelocity{})
			c.Shape.Set(id, &component.Shape{Radius: FragRadius})
			c.Projectile.Set(id, &component.Projectile{
				Kind:      component.ProjectileFrag,
				Owner:     owner,
				LifetimeS: FragLifetimeS,
			})
			c.Rotate.Set(id, &component.Rotate{Speed: FragRotateSpeed})
		},
	},
}

// Get returns the type for id, or nil if id is out of range.
func Get(id proto.EntityTypeID) *Type {
	if int(id) >= NumTypes {
		return nil
	}
	return &types[id]
}

// Lookup finds a type id by name.
func Lookup(name string) (proto.EntityTypeID, bool) {
	for i := range types {
		if types[i].Name == name {
			return proto.EntityTypeID(i), true
		}
	}
	return 0, false
}

// Names lists type names indexed by type id.
func Names() []string {
	out := make([]string, NumTypes)
	for i := range types {
		out[i] = types[i].Name
	}
	return out
}

// ItemCharges is how many uses a freshly picked up item carries.
func ItemCharges(kind proto.ItemKind) uint8 {
	switch kind {
	case proto.ItemWeapon:
		return 20
	case proto.ItemFragWeapon:
		return 2
	case proto.ItemBallSpawner:
		return 3
	default:
		return 0
	}
}
