// Package system holds the simulation systems of the arena world.
package system

import (
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/service"
)

// Systems bundles every system of one world. Construct it before the first
// flush so each view sees all entities.
type Systems struct {
	Controller  *PlayerControllerSystem
	Movement    *MovementSystem
	Bouncy      *BouncyEnemySystem
	Projectile  *ProjectileSystem
	ItemSpawn   *ItemSpawnSystem
	Rotate      *RotateSystem
	Walls       *WallSystem
	Interaction *InteractionSystem
	Net         *NetEntitySystem
}

// New builds the systems with the default interaction rules.
func New(s *service.Services) *Systems {
	sys := &Systems{
		Controller:  NewPlayerControllerSystem(s),
		Movement:    NewMovementSystem(s),
		Bouncy:      NewBouncyEnemySystem(s),
		Projectile:  NewProjectileSystem(s),
		ItemSpawn:   NewItemSpawnSystem(s),
		Rotate:      NewRotateSystem(s),
		Walls:       NewWallSystem(s),
		Interaction: NewInteractionSystem(s),
		Net:         NewNetEntitySystem(s),
	}
	AddDefaultWallRules(sys.Walls, s)
	AddDefaultRules(sys.Interaction, s)
	return sys
}

// Register adds the phased systems to r. Walls go before pair rules.
func (sys *Systems) Register(r *coresys.Runner) {
	r.Register(sys.Controller)
	r.Register(sys.Movement)
	r.Register(sys.Bouncy)
	r.Register(sys.Projectile)
	r.Register(sys.ItemSpawn)
	r.Register(sys.Rotate)
	r.Register(sys.Walls)
	r.Register(sys.Interaction)
}
