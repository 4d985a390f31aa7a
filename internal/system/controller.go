package system

import (
	"math"
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
	"go.uber.org/zap"
)

// PlayerControllerSystem applies at most one queued input per player entity
// per tick. Entities without input stand still. Phase 0 (Input).
type PlayerControllerSystem struct {
	s    *service.Services
	view *ecs.View
}

func NewPlayerControllerSystem(s *service.Services) *PlayerControllerSystem {
	c := s.C
	return &PlayerControllerSystem{
		s: s,
		view: ecs.NewView(s.World, ecs.All(
			c.PlayerController.Kind(),
			c.Position.Kind(),
			c.Orientation.Kind(),
			c.LinearVelocity.Kind(),
			c.PlayerState.Kind(),
		)),
	}
}

func (sys *PlayerControllerSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (sys *PlayerControllerSystem) Update(_ time.Duration) {
	c := sys.s.C
	for _, id := range sys.view.Slice() {
		if !sys.s.Usable(id) {
			continue
		}
		ctrl, _ := c.PlayerController.Get(id)
		vel, _ := c.LinearVelocity.Get(id)
		if len(ctrl.Inputs) == 0 {
			vel.V = mathx.Vec2{}
			continue
		}
		in := ctrl.Inputs[0].Input
		ctrl.Inputs[0] = proto.TimedPlayerInput{}
		ctrl.Inputs = ctrl.Inputs[1:]

		orient, _ := c.Orientation.Get(id)
		state, _ := c.PlayerState.Get(id)
		orient.Angle = in.Angle

		speed := float32(entity.PlayerSpeed)
		if state.IsCatcher {
			speed = entity.CatcherSpeed
		}
		vel.V = inputDirection(in).Scale(speed)

		if slot := int(in.UseItem); slot >= 0 && slot < proto.NumItemSlots {
			sys.useItem(id, ctrl.Owner, state, slot, in.Angle)
		}
	}
}

func inputDirection(in proto.PlayerInput) mathx.Vec2 {
	forward := mathx.FromAngle(in.Angle)
	right := mathx.FromAngle(in.Angle + math.Pi/2)
	var d mathx.Vec2
	if in.Forward {
		d = d.Add(forward)
	}
	if in.Backward {
		d = d.Sub(forward)
	}
	if in.StrafeRight {
		d = d.Add(right)
	}
	if in.StrafeLeft {
		d = d.Sub(right)
	}
	return d.Norm()
}

func (sys *PlayerControllerSystem) useItem(id ecs.EntityID, owner proto.PlayerID,
	state *proto.PlayerState, slot int, angle float32) {
	item := &state.Items[slot]
	if item.Kind == proto.ItemNone || item.Charges == 0 {
		return
	}
	pos, _ := sys.s.C.Position.Get(id)
	muzzle := func(radius float32) mathx.Vec2 {
		return pos.P.Add(mathx.FromAngle(angle).Scale(entity.PlayerRadius + radius + 2))
	}

	switch item.Kind {
	case proto.ItemWeapon:
		launch(sys.s, entity.TypeBullet, owner, muzzle(entity.BulletRadius), angle, entity.BulletSpeed)
	case proto.ItemFragWeapon:
		launch(sys.s, entity.TypeFrag, owner, muzzle(entity.FragRadius), angle, entity.FragSpeed)
	case proto.ItemBallSpawner:
		e := launch(sys.s, entity.TypeBouncyEnemy, owner, muzzle(entity.BouncyRadius), angle, entity.BouncySpeed)
		if b, ok := sys.s.C.BouncyEnemy.Get(e); ok {
			b.Attract = true
		}
	}

	item.Charges--
	if item.Charges == 0 {
		*item = proto.Item{}
	}
	sys.s.Log.Debug("item used",
		zap.Uint32("player", uint32(owner)),
		zap.Int("slot", slot))
}
