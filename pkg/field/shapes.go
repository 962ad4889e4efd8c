package field

import (
	"github.com/chazu/dualquad/pkg/geom"
)

// Circle is positive inside a disc and negative outside: r - |p - c|.
// It supplies an exact gradient.
type Circle[F geom.Scalar] struct {
	Center geom.Vec2[F]
	Radius F
}

func (c Circle[F]) Eval(p geom.Vec2[F]) F {
	return c.Radius - p.Sub(c.Center).Len()
}

// EvalGradient returns the value and the analytic gradient -(p-c)/|p-c|.
// At the center the gradient is undefined and the zero vector is returned.
func (c Circle[F]) EvalGradient(p geom.Vec2[F], _ F) (F, geom.Vec2[F]) {
	d := p.Sub(c.Center)
	n, _ := d.Normalize()
	return c.Radius - d.Len(), n.Mul(-1)
}

// HalfPlane is the signed distance n·(p - o): positive on the side the
// normal points to.
type HalfPlane[F geom.Scalar] struct {
	Origin geom.Vec2[F]
	Normal geom.Vec2[F]
}

func (h HalfPlane[F]) Eval(p geom.Vec2[F]) F {
	return h.Normal.Dot(p.Sub(h.Origin))
}

// EvalGradient returns the value and the constant gradient n.
func (h HalfPlane[F]) EvalGradient(p geom.Vec2[F], _ F) (F, geom.Vec2[F]) {
	return h.Eval(p), h.Normal
}
