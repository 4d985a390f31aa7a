package system

import (
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/service"
)

// MovementSystem integrates player entities, sliding along blocked tiles,
// and counts invulnerability down. Phase 1 (Movement).
type MovementSystem struct {
	s    *service.Services
	view *ecs.View
}

func NewMovementSystem(s *service.Services) *MovementSystem {
	c := s.C
	return &MovementSystem{
		s: s,
		view: ecs.NewView(s.World, ecs.All(
			c.PlayerController.Kind(),
			c.Position.Kind(),
			c.LinearVelocity.Kind(),
			c.Shape.Kind(),
			c.PlayerState.Kind(),
		)),
	}
}

func (sys *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }

func (sys *MovementSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	c := sys.s.C
	sys.view.Each(func(id ecs.EntityID) {
		state, _ := c.PlayerState.Get(id)
		if state.InvulnerableS > 0 {
			state.InvulnerableS = max(0, state.InvulnerableS-secs)
		}

		pos, _ := c.Position.Get(id)
		vel, _ := c.LinearVelocity.Get(id)
		shape, _ := c.Shape.Get(id)
		if !vel.V.IsZero() {
			pos.P = slide(sys.s.Map, pos.P, vel.V.Scale(secs), shape.Radius)
		}
	})
}
