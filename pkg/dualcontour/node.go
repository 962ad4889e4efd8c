package dualcontour

import (
	"github.com/chazu/dualquad/pkg/arena"
	"github.com/chazu/dualquad/pkg/geom"
	"github.com/chazu/dualquad/pkg/rootfind"
)

// Quadtree order:
//
//	-------2--------
//	|     +y       |
//	|  3   |   2   |
//	|      |       |
//	3-x---------+x 1
//	|      |       |
//	|  0   |   1   |
//	|     -y       |
//	-------0--------
//
// Quadrant i spans from corner i to the center of its parent. Corner i of the
// parent is therefore corner i of child i.

// CellClass classifies a leaf by the signs of its four corner values.
type CellClass int

const (
	Positive CellClass = iota // every corner >= 0
	Negative                  // every corner < 0
	Mixed                     // corners disagree; the boundary crosses the cell
)

func (c CellClass) String() string {
	switch c {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Mixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Homogeneous reports whether c is Positive or Negative.
func (c CellClass) Homogeneous() bool {
	return c == Positive || c == Negative
}

// Classify returns the class of four corner values. Zero counts as positive,
// the same convention the root finder uses to detect a bracket.
func Classify[F geom.Scalar](corners [4]F) CellClass {
	pos := 0
	for _, v := range corners {
		if rootfind.Positive(v) {
			pos++
		}
	}
	switch pos {
	case 4:
		return Positive
	case 0:
		return Negative
	default:
		return Mixed
	}
}

// Hermite is a boundary crossing on a cell edge: where the field's zero level
// set crosses, and the unit surface normal there.
type Hermite[F geom.Scalar] struct {
	P geom.Vec2[F] `json:"p"`
	N geom.Vec2[F] `json:"n"`
}

// node is either a *leaf or an *interior.
type node[F geom.Scalar] interface {
	bounds() geom.Rect[F]
	quadNode() // restricts implementations to this package
}

// leaf caches the field values at its corners and the Hermite data of its
// sign-changing edges.
type leaf[F geom.Scalar] struct {
	rect    geom.Rect[F]
	corners [4]F
	hermite []Hermite[F]
}

func (l *leaf[F]) bounds() geom.Rect[F] { return l.rect }
func (*leaf[F]) quadNode()              {}

func (l *leaf[F]) class() CellClass {
	return Classify(l.corners)
}

type interior[F geom.Scalar] struct {
	rect     geom.Rect[F]
	children [4]arena.Key
}

func (n *interior[F]) bounds() geom.Rect[F] { return n.rect }
func (*interior[F]) quadNode()              {}

// quadrants splits r into its four children in quadrant order.
func quadrants[F geom.Scalar](r geom.Rect[F]) [4]geom.Rect[F] {
	c := r.Corners()
	m := r.Midpoints()
	ctr := r.Center()
	return [4]geom.Rect[F]{
		geom.NewRect(c[0], ctr),
		geom.NewRect(m[0], m[1]),
		geom.NewRect(ctr, c[2]),
		geom.NewRect(m[3], m[2]),
	}
}

// childCorners assembles each quadrant's corner values from the parent's
// corners, its edge midpoints and its center.
func childCorners[F geom.Scalar](cv, mid [4]F, ctr F) [4][4]F {
	return [4][4]F{
		{cv[0], mid[0], ctr, mid[3]},
		{mid[0], cv[1], mid[1], ctr},
		{ctr, mid[1], cv[2], mid[2]},
		{mid[3], ctr, mid[2], cv[3]},
	}
}
