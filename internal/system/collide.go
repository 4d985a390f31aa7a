package system

import (
	"github.com/catcharena/server/internal/data"
	"github.com/catcharena/server/internal/mathx"
)

// circleBlocked reports whether a circle at p with radius r leaves the map or
// touches a blocked tile. Tiles are larger than any entity, so testing the
// corners of the bounding box is enough.
func circleBlocked(m *data.Map, p mathx.Vec2, r float32) bool {
	if p.X-r < 0 || p.Y-r < 0 || p.X+r > m.WidthPixels() || p.Y+r > m.HeightPixels() {
		return true
	}
	return m.Blocked(mathx.V(p.X-r, p.Y-r)) ||
		m.Blocked(mathx.V(p.X+r, p.Y-r)) ||
		m.Blocked(mathx.V(p.X-r, p.Y+r)) ||
		m.Blocked(mathx.V(p.X+r, p.Y+r))
}

// slide moves p by d one axis at a time, dropping the axes that collide.
func slide(m *data.Map, p, d mathx.Vec2, r float32) mathx.Vec2 {
	next := p
	if d.X != 0 {
		if c := mathx.V(p.X+d.X, p.Y); !circleBlocked(m, c, r) {
			next.X = c.X
		}
	}
	if d.Y != 0 {
		if c := mathx.V(next.X, p.Y+d.Y); !circleBlocked(m, c, r) {
			next.Y = c.Y
		}
	}
	return next
}

// bounce moves p by v*dt one axis at a time, flipping the velocity on the
// axes that collide.
func bounce(m *data.Map, p, v mathx.Vec2, dt, r float32) (mathx.Vec2, mathx.Vec2) {
	d := v.Scale(dt)
	next := p
	if c := mathx.V(p.X+d.X, p.Y); circleBlocked(m, c, r) {
		v.X = -v.X
	} else {
		next.X = c.X
	}
	if c := mathx.V(next.X, p.Y+d.Y); circleBlocked(m, c, r) {
		v.Y = -v.Y
	} else {
		next.Y = c.Y
	}
	return next, v
}
