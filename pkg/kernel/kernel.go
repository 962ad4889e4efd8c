// Package kernel defines the abstract 2D shape kernel interface.
// Implementations build shapes as signed distance fields and expose them
// as implicit fields that are positive inside, the convention the
// quadtree builder expects.
package kernel

import (
	"github.com/chazu/dualquad/pkg/field"
)

// Shape is an opaque handle to a kernel shape.
// Implementations wrap their internal representation.
type Shape interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [2]float64)
}

// Kernel is the abstract shape kernel interface.
type Kernel interface {
	// Primitives, centered on the origin.
	Circle(radius float64) (Shape, error)
	Rect(width, height, round float64) (Shape, error)

	// Boolean operations
	Union(shapes ...Shape) (Shape, error)
	Difference(a, b Shape) Shape
	Intersection(a, b Shape) Shape

	// Transforms
	Translate(s Shape, x, y float64) Shape
	Rotate(s Shape, degrees float64) Shape // counter-clockwise about the origin

	// Field returns s as an implicit field: positive inside, negative
	// outside, zero on the boundary.
	Field(s Shape) field.Field[float64]
}
