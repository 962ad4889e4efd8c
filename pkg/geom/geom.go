// Package geom provides the small generic 2D vector and rectangle types the
// quadtree is built on. Every type is parameterized over a floating point
// Scalar so the same code serves float32 and float64 fields.
package geom

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Scalar is the constraint for coordinates and field values.
type Scalar interface {
	constraints.Float
}

// Vec2 is a 2D point or vector.
type Vec2[F Scalar] struct {
	X, Y F
}

// V returns the vector ⟨x, y⟩.
func V[F Scalar](x, y F) Vec2[F] {
	return Vec2[F]{X: x, Y: y}
}

func (v Vec2[F]) String() string {
	return fmt.Sprintf("⟨%g, %g⟩", float64(v.X), float64(v.Y))
}

// Add returns v + o.
func (v Vec2[F]) Add(o Vec2[F]) Vec2[F] {
	return Vec2[F]{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2[F]) Sub(o Vec2[F]) Vec2[F] {
	return Vec2[F]{X: v.X - o.X, Y: v.Y - o.Y}
}

// Mul scales v by s.
func (v Vec2[F]) Mul(s F) Vec2[F] {
	return Vec2[F]{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of v and o.
func (v Vec2[F]) Dot(o Vec2[F]) F {
	return v.X*o.X + v.Y*o.Y
}

// Len returns the magnitude of v.
func (v Vec2[F]) Len() F {
	return F(math.Hypot(float64(v.X), float64(v.Y)))
}

// Normalize returns the unit vector with the direction of v. It reports false
// for a zero-length (or non-finite) vector, in which case the zero vector is
// returned instead of a NaN vector.
func (v Vec2[F]) Normalize() (Vec2[F], bool) {
	l := v.Len()
	if l == 0 || math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
		return Vec2[F]{}, false
	}
	return Vec2[F]{X: v.X / l, Y: v.Y / l}, true
}

// Lerp linearly interpolates from v to o.
func (v Vec2[F]) Lerp(o Vec2[F], t F) Vec2[F] {
	return v.Add(o.Sub(v).Mul(t))
}

// Midpoint returns the point halfway between v and o.
func (v Vec2[F]) Midpoint(o Vec2[F]) Vec2[F] {
	return Vec2[F]{X: (v.X + o.X) * 0.5, Y: (v.Y + o.Y) * 0.5}
}

// Rect is an axis-aligned rectangle stored as two opposite corners.
//
// Corner and midpoint ordering is fixed:
//
//	3 ---- 2 ---- 2
//	|             |
//	3             1
//	|             |
//	0 ---- 0 ---- 1
//
// Corners run -x-y, +x-y, +x+y, -x+y. Midpoint i lies on the edge from corner i
// to corner i+1.
type Rect[F Scalar] struct {
	P0, P1 Vec2[F]
}

// NewRect returns the rectangle spanned by two opposite corners. The corners
// are normalized so that P0 is the minimum and P1 the maximum.
func NewRect[F Scalar](a, b Vec2[F]) Rect[F] {
	return Rect[F]{
		P0: Vec2[F]{X: min(a.X, b.X), Y: min(a.Y, b.Y)},
		P1: Vec2[F]{X: max(a.X, b.X), Y: max(a.Y, b.Y)},
	}
}

func (r Rect[F]) String() string {
	return fmt.Sprintf("[%v, %v]", r.P0, r.P1)
}

// Min returns the minimum corner.
func (r Rect[F]) Min() Vec2[F] { return r.P0 }

// Max returns the maximum corner.
func (r Rect[F]) Max() Vec2[F] { return r.P1 }

// Width returns the extent along x.
func (r Rect[F]) Width() F { return r.P1.X - r.P0.X }

// Height returns the extent along y.
func (r Rect[F]) Height() F { return r.P1.Y - r.P0.Y }

// Corners returns the four corners in the fixed winding.
func (r Rect[F]) Corners() [4]Vec2[F] {
	return [4]Vec2[F]{
		r.P0,
		{X: r.P1.X, Y: r.P0.Y},
		r.P1,
		{X: r.P0.X, Y: r.P1.Y},
	}
}

// Midpoints returns the four edge midpoints in the fixed winding.
func (r Rect[F]) Midpoints() [4]Vec2[F] {
	c := r.Corners()
	return [4]Vec2[F]{
		c[0].Midpoint(c[1]),
		c[1].Midpoint(c[2]),
		c[2].Midpoint(c[3]),
		c[3].Midpoint(c[0]),
	}
}

// Center returns the center of the rectangle.
func (r Rect[F]) Center() Vec2[F] {
	return r.P0.Midpoint(r.P1)
}

// Contains reports whether p lies inside r or on its boundary.
func (r Rect[F]) Contains(p Vec2[F]) bool {
	return p.X >= r.P0.X && p.X <= r.P1.X && p.Y >= r.P0.Y && p.Y <= r.P1.Y
}

// Inflate grows r by dx on both x sides and dy on both y sides.
func (r Rect[F]) Inflate(dx, dy F) Rect[F] {
	return Rect[F]{
		P0: Vec2[F]{X: r.P0.X - dx, Y: r.P0.Y - dy},
		P1: Vec2[F]{X: r.P1.X + dx, Y: r.P1.Y + dy},
	}
}

// IsEmpty reports whether r has no area.
func (r Rect[F]) IsEmpty() bool {
	return !(r.P1.X > r.P0.X && r.P1.Y > r.P0.Y)
}
