package extract

import (
	"io"

	"github.com/chazu/dualquad/pkg/dualcontour"
	"github.com/chazu/dualquad/pkg/geom"
	"github.com/segmentio/encoding/json"
)

// Report is the JSON-serializable result of an extraction.
type Report struct {
	RunID     string    `json:"run_id,omitempty"`
	Precision Precision `json:"precision"`
	Bounds    Rect      `json:"bounds"`
	Depth     int       `json:"depth"`
	Leaves    int       `json:"leaves"`
	// LeavesBeforeCollapse counts the leaves built from samples, so it is the
	// uncollapsed leaf count for eager builds too.
	LeavesBeforeCollapse int               `json:"leaves_before_collapse"`
	Classes              map[string]int    `json:"classes"`
	Valid                bool              `json:"valid"`
	Stats                dualcontour.Stats `json:"stats"`
	Cells                []Cell            `json:"cells"`
	Warnings             []string          `json:"warnings,omitempty"`
}

// Rect is a rectangle as its minimum and maximum corners.
type Rect struct {
	Min [2]float64 `json:"min"`
	Max [2]float64 `json:"max"`
}

// Cell is one leaf of the quadtree. Corners follow the quadtree order:
// -x-y, +x-y, +x+y, -x+y.
type Cell struct {
	Rect
	Class   string      `json:"class"`
	Corners [4]float64  `json:"corners"`
	Hermite []Crossing  `json:"hermite,omitempty"`
	QEF     *QEFSummary `json:"qef,omitempty"`
}

// Crossing is a boundary point on a cell edge and the unit normal there.
type Crossing struct {
	P [2]float64 `json:"p"`
	N [2]float64 `json:"n"`
}

// QEFSummary is the accumulated least squares system of a cell's crossings.
type QEFSummary struct {
	AtA       [3][3]float64 `json:"ata"`
	MassPoint [2]float64    `json:"mass_point"`
	Count     int           `json:"count"`
}

func rectJSON[F geom.Scalar](r geom.Rect[F]) Rect {
	return Rect{
		Min: [2]float64{float64(r.P0.X), float64(r.P0.Y)},
		Max: [2]float64{float64(r.P1.X), float64(r.P1.Y)},
	}
}

func newCell[F geom.Scalar](l dualcontour.Leaf[F]) Cell {
	c := Cell{
		Rect:  rectJSON(l.Rect),
		Class: l.Class.String(),
	}
	for i, v := range l.Corners {
		c.Corners[i] = float64(v)
	}
	if len(l.Intersections) == 0 {
		return c
	}

	for _, h := range l.Intersections {
		c.Hermite = append(c.Hermite, Crossing{
			P: [2]float64{float64(h.P.X), float64(h.P.Y)},
			N: [2]float64{float64(h.N.X), float64(h.N.Y)},
		})
	}
	q := l.QEF()
	mp, _ := q.MassPoint()
	c.QEF = &QEFSummary{
		AtA:       q.AtA(),
		MassPoint: [2]float64{float64(mp.X), float64(mp.Y)},
		Count:     q.Count(),
	}
	return c
}

// WriteJSON encodes r to w, indented if indent is set.
func (r *Report) WriteJSON(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}
