package system

import (
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
)

// ItemSpawnSystem refills empty item spawns after a cooldown. Phase 4 (Spawn).
type ItemSpawnSystem struct {
	s    *service.Services
	view *ecs.View
}

func NewItemSpawnSystem(s *service.Services) *ItemSpawnSystem {
	return &ItemSpawnSystem{
		s:    s,
		view: ecs.NewView(s.World, ecs.All(s.C.ItemSpawner.Kind(), s.C.ItemSpawn.Kind())),
	}
}

func (sys *ItemSpawnSystem) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (sys *ItemSpawnSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	c := sys.s.C
	sys.view.Each(func(id ecs.EntityID) {
		spawn, _ := c.ItemSpawn.Get(id)
		if spawn.HasItem {
			return
		}
		spawner, _ := c.ItemSpawner.Get(id)
		spawner.CooldownS -= secs
		if spawner.CooldownS > 0 {
			return
		}
		spawner.CooldownS = entity.ItemSpawnCooldownS
		spawn.HasItem = true
		spawn.Item = proto.ItemKind(1 + sys.s.Rand.IntN(proto.NumItemKinds-1))
	})
}
