package dualcontour

import (
	"github.com/chazu/dualquad/pkg/arena"
)

// Collapse merges, bottom up, every interior node whose four children are
// homogeneous leaves into a single leaf over the interior's rectangle. It is
// idempotent, never increases the leaf count and never changes the class of
// the cell covering any sample point. It returns the number of merges.
func (t *QuadTree[F]) Collapse() int {
	before := t.stats.Merges
	t.collapse(t.root)
	return t.stats.Merges - before
}

func (t *QuadTree[F]) collapse(k arena.Key) {
	n, ok := t.nodes.MustGet(k).(*interior[F])
	if !ok {
		return
	}
	for _, c := range n.children {
		t.collapse(c)
	}
	if merged, ok := t.merge(n); ok {
		t.nodes.Set(k, merged)
	}
}

// merge replaces n by a leaf if all four children are homogeneous leaves.
// The children are removed from the arena; the caller stores the returned
// leaf in n's place.
//
// Corner i of the merged leaf is corner i of child i: the children share the
// parent's center, so each one carries exactly one of the parent's corners and
// it sits at the same index as the child. No field evaluation is needed. A
// homogeneous region has no crossings, so no Hermite data is carried over.
func (t *QuadTree[F]) merge(n *interior[F]) (*leaf[F], bool) {
	var kids [4]*leaf[F]
	for i, c := range n.children {
		l, ok := t.nodes.MustGet(c).(*leaf[F])
		if !ok || !l.class().Homogeneous() {
			return nil, false
		}
		kids[i] = l
	}

	merged := &leaf[F]{rect: n.rect}
	for i, l := range kids {
		merged.corners[i] = l.corners[i]
	}
	for _, c := range n.children {
		t.nodes.Remove(c)
	}
	t.stats.Merges++
	return merged, true
}
