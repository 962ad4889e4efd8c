package dualcontour

import (
	"github.com/chazu/dualquad/pkg/geom"
	"gonum.org/v1/gonum/mat"
)

// QEF accumulates the least squares system for placing a dual vertex
// against a set of Hermite constraints. Each crossing (p, n) contributes the
// row [n.x, n.y, n·p] to a matrix A; only AᵗA is kept, which is additive
// over stacked rows, so QEFs of neighbouring cells merge by summation.
//
// The minimizer of Σ(n·x - n·p)² is not computed here. A zero QEF (Count 0)
// has no solvable vertex.
type QEF[F geom.Scalar] struct {
	ata  *mat.SymDense
	mass geom.Vec2[F]
	n    int
}

// NewQEF accumulates points.
func NewQEF[F geom.Scalar](points []Hermite[F]) QEF[F] {
	ata := mat.NewSymDense(3, nil)
	var mass geom.Vec2[F]
	row := mat.NewVecDense(3, nil)
	for _, h := range points {
		row.SetVec(0, float64(h.N.X))
		row.SetVec(1, float64(h.N.Y))
		row.SetVec(2, float64(h.N.Dot(h.P)))
		ata.SymRankOne(ata, 1, row)
		mass = mass.Add(h.P)
	}
	return QEF[F]{ata: ata, mass: mass, n: len(points)}
}

// Merge returns the QEF of the union of the constraints of q and o.
func (q QEF[F]) Merge(o QEF[F]) QEF[F] {
	sum := mat.NewSymDense(3, nil)
	switch {
	case q.ata != nil && o.ata != nil:
		sum.AddSym(q.ata, o.ata)
	case q.ata != nil:
		sum.CopySym(q.ata)
	case o.ata != nil:
		sum.CopySym(o.ata)
	}
	return QEF[F]{ata: sum, mass: q.mass.Add(o.mass), n: q.n + o.n}
}

// Count returns the number of accumulated constraints.
func (q QEF[F]) Count() int {
	return q.n
}

// Empty reports whether no constraint has been accumulated.
func (q QEF[F]) Empty() bool {
	return q.n == 0
}

// AtA returns the accumulated 3×3 normal matrix.
func (q QEF[F]) AtA() [3][3]float64 {
	var m [3][3]float64
	if q.ata == nil {
		return m
	}
	for i := range 3 {
		for j := range 3 {
			m[i][j] = q.ata.At(i, j)
		}
	}
	return m
}

// MassPointSum returns the sum of the crossing positions.
func (q QEF[F]) MassPointSum() geom.Vec2[F] {
	return q.mass
}

// MassPoint returns the average crossing position. It reports false for an
// empty QEF.
func (q QEF[F]) MassPoint() (geom.Vec2[F], bool) {
	if q.n == 0 {
		return geom.Vec2[F]{}, false
	}
	return q.mass.Mul(1 / F(q.n)), true
}

// Error evaluates Σ(n·x - n·p)² at x, which equals vᵗ AᵗA v for
// v = [x.X, x.Y, -1].
func (q QEF[F]) Error(x geom.Vec2[F]) float64 {
	if q.ata == nil {
		return 0
	}
	v := mat.NewVecDense(3, []float64{float64(x.X), float64(x.Y), -1})
	return mat.Inner(v, q.ata, v)
}
