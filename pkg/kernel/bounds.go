package kernel

import (
	"github.com/chazu/dualquad/pkg/geom"
)

// DefaultMargin is the fraction of the larger side added around a shape's
// bounding box by Bounds.
const DefaultMargin = 0.1

// Bounds returns the bounding box of s grown by margin times its larger
// side on every edge, so the boundary of s does not run along the edge of
// the sampled region. A negative margin is treated as zero.
func Bounds(s Shape, margin float64) geom.Rect[float64] {
	lo, hi := s.BoundingBox()
	r := geom.NewRect(geom.V(lo[0], lo[1]), geom.V(hi[0], hi[1]))
	pad := max(r.Width(), r.Height()) * max(margin, 0)
	return r.Inflate(pad, pad)
}
