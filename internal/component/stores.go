package component

import (
	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/proto"
)

// Stores caches a pointer to every component store of the game world.
// Built once at startup; the pointers stay valid for the world's lifetime.
type Stores struct {
	Position       *ecs.ComponentStore[proto.Position]
	Orientation    *ecs.ComponentStore[proto.Orientation]
	LinearVelocity *ecs.ComponentStore[proto.LinearVelocity]
	PlayerState    *ecs.ComponentStore[proto.PlayerState]
	ItemSpawn      *ecs.ComponentStore[proto.ItemSpawn]
	WallPosition   *ecs.ComponentStore[proto.WallPosition]

	NetEntity        *ecs.ComponentStore[NetEntity]
	Shape            *ecs.ComponentStore[Shape]
	PlayerController *ecs.ComponentStore[PlayerController]
	BouncyEnemy      *ecs.ComponentStore[BouncyEnemy]
	Projectile       *ecs.ComponentStore[Projectile]
	ItemSpawner      *ecs.ComponentStore[ItemSpawner]
	Rotate           *ecs.ComponentStore[Rotate]
}

// NewStores registers every component kind with w.
func NewStores(w *ecs.World) *Stores {
	return &Stores{
		Position:       ecs.NewComponentStore[proto.Position](w),
		Orientation:    ecs.NewComponentStore[proto.Orientation](w),
		LinearVelocity: ecs.NewComponentStore[proto.LinearVelocity](w),
		PlayerState:    ecs.NewComponentStore[proto.PlayerState](w),
		ItemSpawn:      ecs.NewComponentStore[proto.ItemSpawn](w),
		WallPosition:   ecs.NewComponentStore[proto.WallPosition](w),

		NetEntity:        ecs.NewComponentStore[NetEntity](w),
		Shape:            ecs.NewComponentStore[Shape](w),
		PlayerController: ecs.NewComponentStore[PlayerController](w),
		BouncyEnemy:      ecs.NewComponentStore[BouncyEnemy](w),
		Projectile:       ecs.NewComponentStore[Projectile](w),
		ItemSpawner:      ecs.NewComponentStore[ItemSpawner](w),
		Rotate:           ecs.NewComponentStore[Rotate](w),
	}
}
