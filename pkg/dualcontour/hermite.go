package dualcontour

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/dualquad/pkg/field"
	"github.com/chazu/dualquad/pkg/geom"
	"github.com/chazu/dualquad/pkg/rootfind"
)

// intersect computes the Hermite data of a cell with corner values cv. Edge i
// runs from corner i to corner i+1; an edge whose endpoints differ in sign is
// solved for its crossing along t in [0, 1].
func (b *builder[F]) intersect(r geom.Rect[F], cv [4]F) []Hermite[F] {
	tol := F(b.cfg.tolerance)
	corners := r.Corners()

	var out []Hermite[F]
	for i := range 4 {
		j := (i + 1) % 4
		if rootfind.Positive(cv[i]) == rootfind.Positive(cv[j]) {
			continue
		}

		a, e := corners[i], corners[j]
		along := func(t F) F {
			return b.f.Eval(a.Lerp(e, t))
		}
		t, ok := rootfind.FindRoot(along, 0, 1, tol, tol)
		if !ok {
			b.tree.stats.RootMisses++
			continue
		}

		p := a.Lerp(e, t)
		_, grad := field.ValueAndGradient(b.f, p, tol)
		n, ok := grad.Normalize()
		if !ok {
			b.tree.stats.DegenerateNormals++
			logs.WithTag("x", float64(p.X)).
				WithTag("y", float64(p.Y)).
				Debug("zero gradient at crossing, skipping")
			continue
		}

		out = append(out, Hermite[F]{P: p, N: n})
		b.tree.stats.HermitePoints++
	}
	return out
}
