// Package rootfind solves scalar functions for a zero crossing.
package rootfind

import (
	"math"

	"github.com/chazu/dualquad/pkg/geom"
)

// MaxIterations bounds the secant loop.
const MaxIterations = 64

// FindRoot finds a root of f inside the interval spanned by a and b.
//
// The interval may be given in either order. delta is the bracket width
// below which iteration stops and epsilon the residual |f(x)| that is
// accepted as a root; both are taken by absolute value. The iteration is
// regula falsi with the Illinois modification: an endpoint kept twice in a
// row has its value halved, so both ends of the bracket keep moving.
//
// When it stops within MaxIterations, the returned x satisfies
// |f(x)| < epsilon or lies within delta of the sign change. Once the
// iteration cap is hit, x is the best estimate from the current bracket.
//
// FindRoot reports false when f(a) and f(b) have the same sign, since no
// root is bracketed, and when f yields NaN at an endpoint or during the
// search. A value of exactly zero has positive sign.
func FindRoot[F geom.Scalar](f func(F) F, a, b, delta, epsilon F) (F, bool) {
	l, r := a, b
	if l > r {
		l, r = r, l
	}
	fl, fr := f(l), f(r)
	if isNaN(fl) || isNaN(fr) {
		return 0, false
	}
	if Positive(fl) == Positive(fr) {
		return 0, false
	}
	if fl == 0 {
		return l, true
	}
	if fr == 0 {
		return r, true
	}

	delta = abs(delta)
	epsilon = abs(epsilon)

	// side is -1 when l moved last, +1 when r did.
	side := 0
	for i := 0; i < MaxIterations && r-l > delta; i++ {
		m := secant(l, r, fl, fr)
		fm := f(m)
		if isNaN(fm) {
			return 0, false
		}
		if abs(fm) < epsilon {
			return m, true
		}
		if Positive(fl) == Positive(fm) {
			l, fl = m, fm
			if side == -1 {
				fr /= 2
			}
			side = -1
		} else {
			r, fr = m, fm
			if side == 1 {
				fl /= 2
			}
			side = 1
		}
	}

	return secant(l, r, fl, fr), true
}

// Positive is the sign predicate shared by the root finder and the quadtree:
// zero counts as positive, NaN as negative.
func Positive[F geom.Scalar](v F) bool {
	return v >= 0
}

// secant returns where the line through (l, fl) and (r, fr) crosses zero.
func secant[F geom.Scalar](l, r, fl, fr F) F {
	return l - fl*(r-l)/(fr-fl)
}

func isNaN[F geom.Scalar](v F) bool {
	return math.IsNaN(float64(v))
}

func abs[F geom.Scalar](v F) F {
	return F(math.Abs(float64(v)))
}
