// Package field defines implicit 2D scalar fields. The zero level set of a
// field is the boundary the quadtree resolves.
package field

import (
	"sync/atomic"

	"github.com/chazu/dualquad/pkg/geom"
)

// Field evaluates a scalar value at a point.
type Field[F geom.Scalar] interface {
	Eval(p geom.Vec2[F]) F
}

// Gradienter is implemented by fields that can supply their gradient
// directly instead of by finite differences.
type Gradienter[F geom.Scalar] interface {
	Field[F]
	EvalGradient(p geom.Vec2[F], eps F) (F, geom.Vec2[F])
}

// Func adapts a plain function to the Field interface.
type Func[F geom.Scalar] func(p geom.Vec2[F]) F

// Eval calls fn(p).
func (fn Func[F]) Eval(p geom.Vec2[F]) F {
	return fn(p)
}

// ValueAndGradient returns the field value at p and its gradient. Fields
// implementing Gradienter are asked directly; all others are differentiated
// with one-sided finite differences of step eps.
func ValueAndGradient[F geom.Scalar](f Field[F], p geom.Vec2[F], eps F) (F, geom.Vec2[F]) {
	if g, ok := f.(Gradienter[F]); ok {
		return g.EvalGradient(p, eps)
	}
	return FiniteDifference(f, p, eps)
}

// FiniteDifference approximates the gradient of f at p with forward
// differences of step eps.
func FiniteDifference[F geom.Scalar](f Field[F], p geom.Vec2[F], eps F) (F, geom.Vec2[F]) {
	v := f.Eval(p)
	dx := f.Eval(geom.Vec2[F]{X: p.X + eps, Y: p.Y})
	dy := f.Eval(geom.Vec2[F]{X: p.X, Y: p.Y + eps})
	return v, geom.Vec2[F]{X: (dx - v) / eps, Y: (dy - v) / eps}
}

// Counting wraps a field and counts evaluations. It is safe for concurrent
// use.
type Counting[F geom.Scalar] struct {
	Field[F]
	n atomic.Int64
}

// NewCounting returns a counting wrapper around f.
func NewCounting[F geom.Scalar](f Field[F]) *Counting[F] {
	return &Counting[F]{Field: f}
}

// Eval evaluates the wrapped field and bumps the counter.
func (c *Counting[F]) Eval(p geom.Vec2[F]) F {
	c.n.Add(1)
	return c.Field.Eval(p)
}

// Count returns the number of evaluations so far.
func (c *Counting[F]) Count() int {
	return int(c.n.Load())
}

// Reset zeroes the counter.
func (c *Counting[F]) Reset() {
	c.n.Store(0)
}
