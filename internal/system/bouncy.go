package system

import (
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
)

// BouncyEnemySystem steers bouncy enemies toward (or away from) the nearest
// player and bounces them off the map. Phase 2 (AI).
type BouncyEnemySystem struct {
	s       *service.Services
	view    *ecs.View
	players *ecs.View
}

func NewBouncyEnemySystem(s *service.Services) *BouncyEnemySystem {
	c := s.C
	return &BouncyEnemySystem{
		s: s,
		view: ecs.NewView(s.World, ecs.All(
			c.BouncyEnemy.Kind(),
			c.Position.Kind(),
			c.Orientation.Kind(),
			c.LinearVelocity.Kind(),
			c.Shape.Kind(),
		)),
		players: ecs.NewView(s.World, ecs.All(
			c.PlayerController.Kind(),
			c.PlayerState.Kind(),
			c.Position.Kind(),
		)),
	}
}

func (sys *BouncyEnemySystem) Phase() coresys.Phase { return coresys.PhaseAI }

func (sys *BouncyEnemySystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	c := sys.s.C
	sys.view.Each(func(id ecs.EntityID) {
		enemy, _ := c.BouncyEnemy.Get(id)
		pos, _ := c.Position.Get(id)
		orient, _ := c.Orientation.Get(id)
		vel, _ := c.LinearVelocity.Get(id)
		shape, _ := c.Shape.Get(id)

		dir := mathx.FromAngle(orient.Angle)
		if target, ok := sys.nearestPlayer(pos.P, enemy.Owner); ok {
			want := target.Sub(pos.P).Norm()
			if !enemy.Attract {
				want = want.Scale(-1)
			}
			if steered := dir.Add(want.Scale(entity.BouncyTurnRate * secs)).Norm(); !steered.IsZero() {
				dir = steered
			}
		}

		pos.P, vel.V = bounce(sys.s.Map, pos.P, dir.Scale(enemy.Speed), secs, shape.Radius)
		orient.Angle = vel.V.Angle()
	})
}

// nearestPlayer ignores the player that spawned the enemy.
func (sys *BouncyEnemySystem) nearestPlayer(from mathx.Vec2, owner proto.PlayerID) (mathx.Vec2, bool) {
	c := sys.s.C
	var best mathx.Vec2
	bestDist := float32(-1)
	sys.players.Each(func(id ecs.EntityID) {
		ctrl, _ := c.PlayerController.Get(id)
		if owner != proto.NeutralPlayerID && ctrl.Owner == owner {
			return
		}
		pos, _ := c.Position.Get(id)
		if d := pos.P.Dist(from); bestDist < 0 || d < bestDist {
			best, bestDist = pos.P, d
		}
	})
	return best, bestDist >= 0
}
