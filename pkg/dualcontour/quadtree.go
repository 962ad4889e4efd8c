// Package dualcontour builds adaptive quadtrees over implicit 2D fields and
// annotates their leaves with the Hermite data a dual contouring stage needs
// to place one vertex per boundary cell.
//
// Nodes live in a generational arena owned by the QuadTree. Interior nodes
// refer to their children by arena key, which keeps collapsing (four leaves
// out, one leaf in) a matter of key bookkeeping.
package dualcontour

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/dualquad/pkg/arena"
	"github.com/chazu/dualquad/pkg/field"
	"github.com/chazu/dualquad/pkg/geom"
)

// DefaultTolerance is the bracket width, residual and finite difference step
// used for Hermite data unless WithHermite says otherwise.
const DefaultTolerance = 1e-4

// MaxDepth is the deepest subdivision the sample lattice can address. Deeper
// requests are clamped. It is not a practical limit: a full build of depth d
// holds 4^d leaves.
const MaxDepth = 24

// Stats counts the work done while building and collapsing a tree.
type Stats struct {
	Evaluations       int `json:"evaluations"`        // lattice samples
	LeavesBuilt       int `json:"leaves_built"`       // leaves created from samples
	Merges            int `json:"merges"`             // interiors replaced by a leaf
	HermitePoints     int `json:"hermite_points"`     // crossings recorded
	RootMisses        int `json:"root_misses"`        // sign-changing edges without a root
	DegenerateNormals int `json:"degenerate_normals"` // crossings dropped for a zero gradient
}

type config struct {
	eager     bool
	hermite   bool
	tolerance float64
}

// Option configures Build.
type Option func(*config)

// WithEagerCollapse collapses every interior node as soon as its children are
// built, so homogeneous regions never occupy four arena slots.
func WithEagerCollapse() Option {
	return func(c *config) {
		c.eager = true
	}
}

// WithHermite computes Hermite data for every leaf created from samples.
// tol is the root finder's bracket width and residual and the finite
// difference step for normals; a non-positive tol selects DefaultTolerance.
func WithHermite(tol float64) Option {
	return func(c *config) {
		c.hermite = true
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// QuadTree is an adaptive quadtree over a rectangle.
type QuadTree[F geom.Scalar] struct {
	nodes *arena.Arena[node[F]]
	root  arena.Key
	stats Stats
}

// lattice addresses a sample point by its integer coordinates on the finest
// grid of the build.
type lattice struct {
	x, y uint32
}

type builder[F geom.Scalar] struct {
	f       field.Field[F]
	cfg     config
	tree    *QuadTree[F]
	pending map[lattice]F // edge midpoints awaiting the neighbour across the edge
}

// Build subdivides bb maxDepth times, sampling f at every cell corner. Each
// distinct sample point is evaluated exactly once: corner values are handed
// down to children and edge midpoints are shared with the neighbouring cell.
//
// A maxDepth of zero or less yields a single leaf.
func Build[F geom.Scalar](f field.Field[F], bb geom.Rect[F], maxDepth int, opts ...Option) *QuadTree[F] {
	cfg := config{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(&cfg)
	}
	maxDepth = max(0, min(maxDepth, MaxDepth))

	t := &QuadTree[F]{nodes: arena.New[node[F]](nodeEstimate(maxDepth))}
	b := &builder[F]{
		f:       f,
		cfg:     cfg,
		tree:    t,
		pending: make(map[lattice]F),
	}

	c := bb.Corners()
	cv := [4]F{b.eval(c[0]), b.eval(c[1]), b.eval(c[2]), b.eval(c[3])}
	root := b.build(bb, maxDepth, cv, lattice{}, uint32(1)<<maxDepth)
	t.root = t.nodes.Insert(root)

	logs.WithTag("depth", maxDepth).
		WithTag("evaluations", t.stats.Evaluations).
		WithTag("nodes", t.nodes.Len()).
		Debug("quadtree built")

	return t
}

func nodeEstimate(depth int) int {
	if depth > 6 {
		return 1 << 14
	}
	return (1<<(2*depth+2) - 1) / 3
}

func (b *builder[F]) eval(p geom.Vec2[F]) F {
	b.tree.stats.Evaluations++
	return b.f.Eval(p)
}

// shared returns the value at an edge midpoint, evaluating it unless the cell
// on the other side of the edge already did. Each edge midpoint belongs to at
// most two cells, so the entry is dropped once both have used it.
func (b *builder[F]) shared(p geom.Vec2[F], at lattice) F {
	if v, ok := b.pending[at]; ok {
		delete(b.pending, at)
		return v
	}
	v := b.eval(p)
	b.pending[at] = v
	return v
}

// build creates the node for r. origin and size locate r on the sample
// lattice.
func (b *builder[F]) build(r geom.Rect[F], depth int, cv [4]F, origin lattice, size uint32) node[F] {
	if depth == 0 {
		l := &leaf[F]{rect: r, corners: cv}
		if b.cfg.hermite {
			l.hermite = b.intersect(r, cv)
		}
		b.tree.stats.LeavesBuilt++
		return l
	}

	half := size / 2
	mp := r.Midpoints()
	mid := [4]F{
		b.shared(mp[0], lattice{origin.x + half, origin.y}),
		b.shared(mp[1], lattice{origin.x + size, origin.y + half}),
		b.shared(mp[2], lattice{origin.x + half, origin.y + size}),
		b.shared(mp[3], lattice{origin.x, origin.y + half}),
	}
	ctr := b.eval(r.Center())

	rects := quadrants(r)
	evals := childCorners(cv, mid, ctr)
	origins := [4]lattice{
		origin,
		{origin.x + half, origin.y},
		{origin.x + half, origin.y + half},
		{origin.x, origin.y + half},
	}

	n := &interior[F]{rect: r}
	for i := range 4 {
		child := b.build(rects[i], depth-1, evals[i], origins[i], half)
		n.children[i] = b.tree.nodes.Insert(child)
	}

	if b.cfg.eager {
		if merged, ok := b.tree.merge(n); ok {
			return merged
		}
	}
	return n
}

// Stats returns the work counters accumulated so far.
func (t *QuadTree[F]) Stats() Stats {
	return t.stats
}

// Bounds returns the rectangle covered by the tree.
func (t *QuadTree[F]) Bounds() geom.Rect[F] {
	return t.rootNode().bounds()
}

func (t *QuadTree[F]) rootNode() node[F] {
	return t.nodes.MustGet(t.root)
}
