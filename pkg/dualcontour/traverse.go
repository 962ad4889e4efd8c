package dualcontour

import (
	"slices"

	"github.com/chazu/dualquad/pkg/arena"
	"github.com/chazu/dualquad/pkg/geom"
)

// LeafRect pairs a leaf's rectangle with its class.
type LeafRect[F geom.Scalar] struct {
	Rect  geom.Rect[F]
	Class CellClass
}

// Leaf is a read-only view of a leaf node.
type Leaf[F geom.Scalar] struct {
	Rect          geom.Rect[F]
	Corners       [4]F
	Class         CellClass
	Intersections []Hermite[F]
}

// QEF returns the quadratic error function of the leaf's crossings.
func (l Leaf[F]) QEF() QEF[F] {
	return NewQEF(l.Intersections)
}

// walk visits every leaf in pre-order, children in quadrant order.
func (t *QuadTree[F]) walk(k arena.Key, visit func(*leaf[F])) {
	switch n := t.nodes.MustGet(k).(type) {
	case *leaf[F]:
		visit(n)
	case *interior[F]:
		for _, c := range n.children {
			t.walk(c, visit)
		}
	}
}

// LeafRects returns the rectangle and class of every leaf in pre-order.
func (t *QuadTree[F]) LeafRects() []LeafRect[F] {
	out := make([]LeafRect[F], 0, t.CountLeaves())
	t.walk(t.root, func(l *leaf[F]) {
		out = append(out, LeafRect[F]{Rect: l.rect, Class: l.class()})
	})
	return out
}

// Leaves returns a view of every leaf in pre-order.
func (t *QuadTree[F]) Leaves() []Leaf[F] {
	out := make([]Leaf[F], 0, t.CountLeaves())
	t.walk(t.root, func(l *leaf[F]) {
		out = append(out, Leaf[F]{
			Rect:          l.rect,
			Corners:       l.corners,
			Class:         l.class(),
			Intersections: slices.Clone(l.hermite),
		})
	})
	return out
}

// CountLeaves returns the number of leaves.
func (t *QuadTree[F]) CountLeaves() int {
	return t.countLeaves(t.root)
}

func (t *QuadTree[F]) countLeaves(k arena.Key) int {
	switch n := t.nodes.MustGet(k).(type) {
	case *interior[F]:
		sum := 0
		for _, c := range n.children {
			sum += t.countLeaves(c)
		}
		return sum
	default:
		return 1
	}
}

// NodeCount returns the number of nodes, leaves and interiors, held by the
// tree.
func (t *QuadTree[F]) NodeCount() int {
	return t.nodes.Len()
}

// Depth returns the length of the longest root-to-leaf path.
func (t *QuadTree[F]) Depth() int {
	return t.depth(t.root)
}

func (t *QuadTree[F]) depth(k arena.Key) int {
	n, ok := t.nodes.MustGet(k).(*interior[F])
	if !ok {
		return 0
	}
	d := 0
	for _, c := range n.children {
		d = max(d, t.depth(c))
	}
	return d + 1
}

// IsValid reports whether the root and every key reachable through interior
// nodes resolve in the arena. It is a diagnostic for tests; the other
// traversals assume a valid tree and panic on a dangling key.
func (t *QuadTree[F]) IsValid() bool {
	return t.valid(t.root)
}

func (t *QuadTree[F]) valid(k arena.Key) bool {
	n, ok := t.nodes.Get(k)
	if !ok {
		return false
	}
	in, ok := n.(*interior[F])
	if !ok {
		return true
	}
	for _, c := range in.children {
		if !t.valid(c) {
			return false
		}
	}
	return true
}

// ClassAt returns the class of the leaf covering p. Points on a shared edge
// resolve to the first quadrant containing them. It reports false if p lies
// outside the tree.
func (t *QuadTree[F]) ClassAt(p geom.Vec2[F]) (CellClass, bool) {
	k := t.root
	if !t.nodes.MustGet(k).bounds().Contains(p) {
		return Mixed, false
	}
	for {
		switch n := t.nodes.MustGet(k).(type) {
		case *leaf[F]:
			return n.class(), true
		case *interior[F]:
			next := n.children[0]
			for _, c := range n.children {
				if t.nodes.MustGet(c).bounds().Contains(p) {
					next = c
					break
				}
			}
			k = next
		}
	}
}
