// Package mathx holds the small amount of 2D vector math the simulation needs.
package mathx

import "math"

// Vec2 is a 2D vector in map pixel space.
type Vec2 struct {
	X, Y float32
}

func V(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

// FromAngle returns the unit vector pointing at angle radians.
func FromAngle(angle float32) Vec2 {
	s, c := math.Sincos(float64(angle))
	return Vec2{X: float32(c), Y: float32(s)}
}

func (a Vec2) Add(b Vec2) Vec2        { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2        { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(s float32) Vec2   { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float32     { return a.X*b.X + a.Y*b.Y }
func (a Vec2) Len() float32           { return float32(math.Hypot(float64(a.X), float64(a.Y))) }
func (a Vec2) Dist(b Vec2) float32    { return a.Sub(b).Len() }
func (a Vec2) Angle() float32         { return float32(math.Atan2(float64(a.Y), float64(a.X))) }
func (a Vec2) IsZero() bool           { return a.X == 0 && a.Y == 0 }

// Norm returns a unit vector, or the zero vector for zero input.
func (a Vec2) Norm() Vec2 {
	l := a.Len()
	if l == 0 {
		return Vec2{}
	}
	return a.Scale(1 / l)
}

// Reflect mirrors a about the line with unit normal n.
func (a Vec2) Reflect(n Vec2) Vec2 {
	return a.Sub(n.Scale(2 * a.Dot(n)))
}

// ClosestOnSegment returns the point of segment ab closest to p.
func ClosestOnSegment(p, a, b Vec2) Vec2 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Scale(t))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
