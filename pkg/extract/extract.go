// Package extract runs a scene through the quadtree pipeline: it samples the
// scene's shape as an implicit field, builds and collapses the tree, and
// reports every leaf cell along with its Hermite data.
package extract

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/dualquad/pkg/dualcontour"
	"github.com/chazu/dualquad/pkg/engine"
	"github.com/chazu/dualquad/pkg/field"
	"github.com/chazu/dualquad/pkg/geom"
	"github.com/chazu/dualquad/pkg/kernel"
)

const (
	ErrTypeInvalidScene = "invalid-scene"
	ErrTypeInvalidDepth = "invalid-depth"
)

// DefaultDepth is the subdivision depth used when neither the scene nor the
// options give one.
const DefaultDepth = 6

// Precision selects the scalar type the quadtree is built with.
type Precision string

const (
	Float64 Precision = "float64"
	Float32 Precision = "float32"
)

// Options configures an extraction.
type Options struct {
	// Depth overrides the scene's depth when positive. With neither set,
	// DefaultDepth is used.
	Depth int

	// Margin grows the shape's bounding box when the scene has no explicit
	// bounds. Zero selects kernel.DefaultMargin.
	Margin float64

	// NoCollapse keeps the full tree instead of merging homogeneous cells.
	NoCollapse bool

	// Eager merges homogeneous cells while building rather than afterwards.
	Eager bool

	// Hermite computes crossings and QEFs for boundary cells. Tolerance is
	// passed to dualcontour.WithHermite.
	Hermite   bool
	Tolerance float64

	// Precision defaults to Float64.
	Precision Precision
}

// Extract builds the quadtree for sc, sampling its shape through k.
func Extract(sc *engine.Scene, k kernel.Kernel, opts Options) (*Report, error) {
	r, err := extract(sc, k, opts)
	if err != nil {
		instrumentExtractionError(err)
		return nil, err
	}
	return r, nil
}

func extract(sc *engine.Scene, k kernel.Kernel, opts Options) (*Report, error) {
	if sc.Empty() {
		return nil, errors.New("scene has no shape").
			WithType(ErrTypeInvalidScene)
	}

	depth := DefaultDepth
	switch {
	case opts.Depth > 0:
		depth = opts.Depth
	case sc.Depth > 0:
		depth = sc.Depth
	}
	if opts.Depth < 0 || depth > engine.MaxSceneDepth {
		return nil, errors.New("depth out of range").
			WithType(ErrTypeInvalidDepth).
			WithTag("depth", min(opts.Depth, depth)).
			WithTag("max", engine.MaxSceneDepth)
	}

	bb := sc.Bounds
	if !sc.HasBounds {
		margin := opts.Margin
		if margin == 0 {
			margin = kernel.DefaultMargin
		}
		bb = kernel.Bounds(sc.Shape, margin)
	}
	if bb.IsEmpty() {
		return nil, errors.New("scene bounds have no area").
			WithType(ErrTypeInvalidScene).
			WithTag("bounds", bb.String())
	}

	var buildOpts []dualcontour.Option
	if opts.Eager {
		buildOpts = append(buildOpts, dualcontour.WithEagerCollapse())
	}
	if opts.Hermite {
		buildOpts = append(buildOpts, dualcontour.WithHermite(opts.Tolerance))
	}

	start := time.Now()
	f := k.Field(sc.Shape)

	var r *Report
	switch opts.Precision {
	case Float32:
		bb32 := geom.NewRect(
			geom.V(float32(bb.P0.X), float32(bb.P0.Y)),
			geom.V(float32(bb.P1.X), float32(bb.P1.Y)),
		)
		r = run(narrow(f), bb32, depth, !opts.NoCollapse, buildOpts)
	case Float64, "":
		r = run(f, bb, depth, !opts.NoCollapse, buildOpts)
	default:
		return nil, errors.Newf("unknown precision %q", opts.Precision).
			WithType(ErrTypeInvalidScene)
	}
	r.Precision = opts.Precision
	if r.Precision == "" {
		r.Precision = Float64
	}
	r.Warnings = append(r.Warnings, sc.Warnings...)

	instrumentExtraction(string(r.Precision), r, start)
	logs.WithTag("precision", r.Precision).
		WithTag("depth", depth).
		WithTag("leaves", r.Leaves).
		WithTag("evaluations", r.Stats.Evaluations).
		WithTag("duration", time.Since(start)).
		Debug("extraction done")
	return r, nil
}

// narrow samples a float64 field at float32 points.
func narrow(f field.Field[float64]) field.Field[float32] {
	return field.Func[float32](func(p geom.Vec2[float32]) float32 {
		return float32(f.Eval(geom.V(float64(p.X), float64(p.Y))))
	})
}

func run[F geom.Scalar](f field.Field[F], bb geom.Rect[F], depth int, collapse bool, opts []dualcontour.Option) *Report {
	t := dualcontour.Build(f, bb, depth, opts...)
	if collapse {
		t.Collapse()
	}

	r := &Report{
		Bounds:               rectJSON(bb),
		Depth:                depth,
		LeavesBeforeCollapse: t.Stats().LeavesBuilt,
		Classes:              make(map[string]int, 3),
		Stats:                t.Stats(),
	}
	for _, l := range t.Leaves() {
		r.Cells = append(r.Cells, newCell(l))
		r.Classes[l.Class.String()]++
	}
	r.Leaves = len(r.Cells)
	r.Valid = t.IsValid()
	return r
}
