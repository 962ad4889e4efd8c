// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/dualquad/pkg/field"
	"github.com/chazu/dualquad/pkg/geom"
	"github.com/chazu/dualquad/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxShape wraps an sdf.SDF2 to implement kernel.Shape.
type sdfxShape struct {
	s sdf.SDF2
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxShape) BoundingBox() (min, max [2]float64) {
	bb := s.s.BoundingBox()
	min = [2]float64{bb.Min.X, bb.Min.Y}
	max = [2]float64{bb.Max.X, bb.Max.Y}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF2 from a kernel.Shape.
func unwrap(s kernel.Shape) sdf.SDF2 {
	return s.(*sdfxShape).s
}

// wrap creates a kernel.Shape from an sdf.SDF2.
func wrap(s sdf.SDF2) kernel.Shape {
	return &sdfxShape{s: s}
}

// Circle creates a circle of the given radius.
func (k *SdfxKernel) Circle(radius float64) (kernel.Shape, error) {
	s, err := sdf.Circle2D(radius)
	if err != nil {
		return nil, errors.New("creating circle failed").
			WithTag("radius", radius).
			Wrap(err)
	}
	return wrap(s), nil
}

// Rect creates a width × height rectangle with corners rounded by round.
func (k *SdfxKernel) Rect(width, height, round float64) (kernel.Shape, error) {
	if !(width > 0) || !(height > 0) {
		return nil, errors.New("rect size must be positive").
			WithTag("width", width).
			WithTag("height", height)
	}
	if round < 0 || 2*round > min(width, height) {
		return nil, errors.New("rect rounding out of range").
			WithTag("round", round).
			WithTag("max", min(width, height)/2)
	}
	return wrap(sdf.Box2D(v2.Vec{X: width, Y: height}, round)), nil
}

// Union returns the union of one or more shapes.
func (k *SdfxKernel) Union(shapes ...kernel.Shape) (kernel.Shape, error) {
	if len(shapes) == 0 {
		return nil, errors.New("union needs at least one shape")
	}
	ss := make([]sdf.SDF2, len(shapes))
	for i, s := range shapes {
		ss[i] = unwrap(s)
	}
	return wrap(sdf.Union2D(ss...)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Difference2D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two shapes.
func (k *SdfxKernel) Intersection(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Intersect2D(unwrap(a), unwrap(b)))
}

// Translate moves a shape by (x, y).
func (k *SdfxKernel) Translate(s kernel.Shape, x, y float64) kernel.Shape {
	m := sdf.Translate2d(v2.Vec{X: x, Y: y})
	return wrap(sdf.Transform2D(unwrap(s), m))
}

// Rotate rotates a shape counter-clockwise by degrees about the origin.
func (k *SdfxKernel) Rotate(s kernel.Shape, degrees float64) kernel.Shape {
	m := sdf.Rotate2d(degrees * math.Pi / 180.0)
	return wrap(sdf.Transform2D(unwrap(s), m))
}

// Field returns the shape as an implicit field. sdfx distances are negative
// inside, so the sign is flipped.
func (k *SdfxKernel) Field(s kernel.Shape) field.Field[float64] {
	return shapeField{s: unwrap(s)}
}

type shapeField struct {
	s sdf.SDF2
}

func (f shapeField) Eval(p geom.Vec2[float64]) float64 {
	return -f.s.Evaluate(v2.Vec{X: p.X, Y: p.Y})
}
