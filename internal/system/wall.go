package system

import (
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
)

// WallOutcome tells the wall system how to resolve a contact.
type WallOutcome uint8

const (
	// WallContinue leaves the entity alone.
	WallContinue WallOutcome = iota
	// WallFlip reflects velocity and orientation and pushes the entity out.
	WallFlip
	// WallStop pushes the entity out and cancels its velocity into the wall.
	WallStop
)

// WallInteraction decides what happens when an entity touches a wall.
type WallInteraction interface {
	Apply(s *service.Services, e, wall ecs.EntityID) WallOutcome
}

type WallFunc func(s *service.Services, e, wall ecs.EntityID) WallOutcome

func (f WallFunc) Apply(s *service.Services, e, wall ecs.EntityID) WallOutcome { return f(s, e, wall) }

type wallRule struct {
	view  *ecs.View
	apply WallInteraction
}

// WallSystem resolves contacts between circles and wall segments.
// Phase 6 (Interaction), ahead of the pair rules.
type WallSystem struct {
	s     *service.Services
	walls *ecs.View
	rules []wallRule
}

func NewWallSystem(s *service.Services) *WallSystem {
	return &WallSystem{
		s:     s,
		walls: ecs.NewView(s.World, ecs.All(s.C.WallPosition.Kind())),
	}
}

func (sys *WallSystem) Phase() coresys.Phase { return coresys.PhaseInteraction }

// Add registers a rule for entities matching a. Entities also need Position
// and Shape to touch walls.
func (sys *WallSystem) Add(a ecs.Aspect, rule WallInteraction) {
	sys.rules = append(sys.rules, wallRule{view: ecs.NewView(sys.s.World, a), apply: rule})
}

// AddDefaultWallRules registers the game's wall rules.
func AddDefaultWallRules(sys *WallSystem, s *service.Services) {
	sys.Add(bouncyAspect(s), WallFunc(func(*service.Services, ecs.EntityID, ecs.EntityID) WallOutcome {
		return WallFlip
	}))
	sys.Add(projectileAspect(s), WallFunc(projectileWall))
	sys.Add(playerAspect(s), WallFunc(func(*service.Services, ecs.EntityID, ecs.EntityID) WallOutcome {
		return WallStop
	}))
}

func projectileWall(s *service.Services, projectile, _ ecs.EntityID) WallOutcome {
	pos, _ := s.C.Position.Get(projectile)
	s.AddEvent(proto.ProjectileImpact{Position: pos.P})
	s.RemoveNet(projectile)
	return WallStop
}

func (sys *WallSystem) Update(_ time.Duration) {
	walls := sys.walls.Slice()
	for _, r := range sys.rules {
		for _, e := range r.view.Slice() {
			for _, w := range walls {
				if !sys.s.Usable(e) {
					break
				}
				if !sys.s.Usable(w) {
					continue
				}
				sys.touch(r.apply, e, w)
			}
		}
	}
}

func (sys *WallSystem) touch(rule WallInteraction, e, w ecs.EntityID) {
	c := sys.s.C
	pos, ok1 := c.Position.Get(e)
	shape, ok2 := c.Shape.Get(e)
	wall, ok3 := c.WallPosition.Get(w)
	if !ok1 || !ok2 || !ok3 {
		return
	}

	closest := mathx.ClosestOnSegment(pos.P, wall.A, wall.B)
	d := pos.P.Sub(closest)
	if d.Len() >= shape.Radius {
		return
	}

	outcome := rule.Apply(sys.s, e, w)
	if outcome == WallContinue {
		return
	}

	n := d.Norm()
	vel, hasVel := c.LinearVelocity.Get(e)
	if n.IsZero() {
		// Center exactly on the segment: push out against the direction of travel.
		ab := wall.B.Sub(wall.A)
		n = mathx.V(-ab.Y, ab.X).Norm()
		if hasVel && vel.V.Dot(n) > 0 {
			n = n.Scale(-1)
		}
	}
	pos.P = closest.Add(n.Scale(shape.Radius + 0.01))

	if !hasVel || vel.V.Dot(n) >= 0 {
		return
	}
	switch outcome {
	case WallFlip:
		vel.V = vel.V.Reflect(n)
		if o, ok := c.Orientation.Get(e); ok {
			o.Angle = vel.V.Angle()
		}
	case WallStop:
		vel.V = vel.V.Sub(n.Scale(vel.V.Dot(n)))
	}
}
