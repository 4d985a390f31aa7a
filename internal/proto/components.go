package proto

import "github.com/catcharena/server/internal/mathx"

// Replicated components. Pure data, comparable with ==, so snapshots can be
// diffed without reflection.

type Position struct {
	P mathx.Vec2
}

type Orientation struct {
	Angle float32
}

type LinearVelocity struct {
	V mathx.Vec2
}

type WallPosition struct {
	A, B mathx.Vec2
}

// ItemKind enumerates usable items. ItemNone marks an empty slot.
type ItemKind uint8

const (
	ItemNone ItemKind = iota
	ItemWeapon
	ItemFragWeapon
	ItemBallSpawner

	NumItemKinds = 4
)

func (k ItemKind) String() string {
	switch k {
	case ItemNone:
		return "none"
	case ItemWeapon:
		return "weapon"
	case ItemFragWeapon:
		return "frag_weapon"
	case ItemBallSpawner:
		return "ball_spawner"
	default:
		return "unknown"
	}
}

type Item struct {
	Kind    ItemKind
	Charges uint8
}

const NumItemSlots = 3

type PlayerState struct {
	IsCatcher     bool
	HasShield     bool
	InvulnerableS float32 // > 0 while invulnerable
	Items         [NumItemSlots]Item
}

// Invulnerable reports whether the player is in a post-spawn grace window.
func (s *PlayerState) Invulnerable() bool { return s.InvulnerableS > 0 }

// FreeSlot returns the first empty item slot, or -1.
func (s *PlayerState) FreeSlot() int {
	for i, it := range s.Items {
		if it.Kind == ItemNone {
			return i
		}
	}
	return -1
}

type ItemSpawn struct {
	HasItem bool
	Item    ItemKind
}
