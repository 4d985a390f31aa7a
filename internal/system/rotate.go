package system

import (
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/service"
)

// RotateSystem spins entities at a constant angular speed. Phase 5 (Rotate).
type RotateSystem struct {
	s    *service.Services
	view *ecs.View
}

func NewRotateSystem(s *service.Services) *RotateSystem {
	return &RotateSystem{
		s:    s,
		view: ecs.NewView(s.World, ecs.All(s.C.Rotate.Kind(), s.C.Orientation.Kind())),
	}
}

func (sys *RotateSystem) Phase() coresys.Phase { return coresys.PhaseRotate }

func (sys *RotateSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	sys.view.Each(func(id ecs.EntityID) {
		r, _ := sys.s.C.Rotate.Get(id)
		o, _ := sys.s.C.Orientation.Get(id)
		o.Angle += r.Speed * secs
	})
}
