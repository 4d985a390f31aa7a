package system

import (
	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
)

// launch builds a moving net entity at from, heading along angle.
func launch(s *service.Services, typ proto.EntityTypeID, owner proto.PlayerID,
	from mathx.Vec2, angle, speed float32) ecs.EntityID {
	e := s.BuildNet(typ, owner)
	if pos, ok := s.C.Position.Get(e); ok {
		pos.P = from
	}
	if o, ok := s.C.Orientation.Get(e); ok {
		o.Angle = angle
	}
	if v, ok := s.C.LinearVelocity.Get(e); ok {
		v.V = mathx.FromAngle(angle).Scale(speed)
	}
	return e
}
