package system

import (
	"math"
	"time"

	"github.com/catcharena/server/internal/component"
	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
)

// ProjectileSystem moves projectiles and removes them when their lifetime
// runs out or they hit a blocked tile. Expiring frags burst into bullets.
// Phase 3 (Projectile).
type ProjectileSystem struct {
	s    *service.Services
	view *ecs.View
}

func NewProjectileSystem(s *service.Services) *ProjectileSystem {
	c := s.C
	return &ProjectileSystem{
		s: s,
		view: ecs.NewView(s.World, ecs.All(
			c.Projectile.Kind(),
			c.Position.Kind(),
			c.LinearVelocity.Kind(),
		)),
	}
}

func (sys *ProjectileSystem) Phase() coresys.Phase { return coresys.PhaseProjectile }

func (sys *ProjectileSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	c := sys.s.C
	for _, id := range sys.view.Slice() {
		if !sys.s.Usable(id) {
			continue
		}
		proj, _ := c.Projectile.Get(id)
		pos, _ := c.Position.Get(id)
		vel, _ := c.LinearVelocity.Get(id)

		pos.P = pos.P.Add(vel.V.Scale(secs))
		proj.LifetimeS -= secs

		switch {
		case proj.LifetimeS <= 0:
			if proj.Kind == component.ProjectileFrag {
				sys.burst(proj.Owner, pos.P)
			}
			sys.s.RemoveNet(id)
		case circleBlocked(sys.s.Map, pos.P, 0):
			sys.s.AddEvent(proto.ProjectileImpact{Position: pos.P})
			sys.s.RemoveNet(id)
		}
	}
}

func (sys *ProjectileSystem) burst(owner proto.PlayerID, at mathx.Vec2) {
	step := 2 * math.Pi / float32(entity.FragBullets)
	for i := range entity.FragBullets {
		launch(sys.s, entity.TypeBullet, owner, at, float32(i)*step, entity.BulletSpeed)
	}
}
