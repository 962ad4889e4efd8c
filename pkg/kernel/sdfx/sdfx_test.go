package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/dualquad/pkg/dualcontour"
	"github.com/chazu/dualquad/pkg/geom"
	"github.com/chazu/dualquad/pkg/kernel"
)

const tol = 1e-9

func eval(k *SdfxKernel, s kernel.Shape, x, y float64) float64 {
	return k.Field(s).Eval(geom.V(x, y))
}

func near(a, b float64) bool {
	return math.Abs(a-b) < tol
}

func TestCircle(t *testing.T) {
	k := New()
	c, err := k.Circle(2)
	if err != nil {
		t.Fatalf("Circle failed: %v", err)
	}

	if v := eval(k, c, 0, 0); !near(v, 2) {
		t.Errorf("center value = %v, want 2", v)
	}
	if v := eval(k, c, 2, 0); !near(v, 0) {
		t.Errorf("boundary value = %v, want 0", v)
	}
	if v := eval(k, c, 3, 4); !near(v, -3) {
		t.Errorf("outside value = %v, want -3", v)
	}

	lo, hi := c.BoundingBox()
	if lo != [2]float64{-2, -2} || hi != [2]float64{2, 2} {
		t.Errorf("bounding box = %v %v", lo, hi)
	}
}

func TestCircleInvalid(t *testing.T) {
	if _, err := New().Circle(-1); err == nil {
		t.Fatal("expected an error for a negative radius")
	}
}

func TestRect(t *testing.T) {
	k := New()
	r, err := k.Rect(4, 2, 0)
	if err != nil {
		t.Fatalf("Rect failed: %v", err)
	}
	if v := eval(k, r, 0, 0); !near(v, 1) {
		t.Errorf("center value = %v, want 1", v)
	}
	if v := eval(k, r, 3, 0); !near(v, -1) {
		t.Errorf("outside value = %v, want -1", v)
	}
	lo, hi := r.BoundingBox()
	if lo != [2]float64{-2, -1} || hi != [2]float64{2, 1} {
		t.Errorf("bounding box = %v %v", lo, hi)
	}
}

func TestRectInvalid(t *testing.T) {
	k := New()
	tests := []struct {
		name                 string
		width, height, round float64
	}{
		{"zero width", 0, 1, 0},
		{"negative height", 1, -1, 0},
		{"nan", math.NaN(), 1, 0},
		{"negative round", 1, 1, -0.1},
		{"round too large", 2, 1, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := k.Rect(tt.width, tt.height, tt.round); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestUnion(t *testing.T) {
	k := New()
	a, _ := k.Circle(1)
	b, _ := k.Circle(1)
	b = k.Translate(b, 4, 0)

	u, err := k.Union(a, b)
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	if v := eval(k, u, 0, 0); v <= 0 {
		t.Errorf("first center value = %v, want > 0", v)
	}
	if v := eval(k, u, 4, 0); v <= 0 {
		t.Errorf("second center value = %v, want > 0", v)
	}
	if v := eval(k, u, 2, 0); v >= 0 {
		t.Errorf("gap value = %v, want < 0", v)
	}

	if _, err := k.Union(); err == nil {
		t.Error("expected an error for an empty union")
	}
}

func TestDifference(t *testing.T) {
	k := New()
	outer, _ := k.Circle(2)
	inner, _ := k.Circle(1)
	ring := k.Difference(outer, inner)

	if v := eval(k, ring, 0, 0); v >= 0 {
		t.Errorf("hole value = %v, want < 0", v)
	}
	if v := eval(k, ring, 1.5, 0); v <= 0 {
		t.Errorf("ring value = %v, want > 0", v)
	}
	if v := eval(k, ring, 2.5, 0); v >= 0 {
		t.Errorf("outside value = %v, want < 0", v)
	}
}

func TestIntersection(t *testing.T) {
	k := New()
	r, _ := k.Rect(2, 2, 0)
	c, _ := k.Circle(1)
	lens := k.Intersection(r, k.Translate(c, 1, 0))

	if v := eval(k, lens, 0.5, 0); v <= 0 {
		t.Errorf("shared value = %v, want > 0", v)
	}
	if v := eval(k, lens, -0.5, 0); v >= 0 {
		t.Errorf("rect-only value = %v, want < 0", v)
	}
	if v := eval(k, lens, 1.5, 0); v >= 0 {
		t.Errorf("circle-only value = %v, want < 0", v)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	c, _ := k.Circle(1)
	moved := k.Translate(c, 2, 3)

	if v := eval(k, moved, 2, 3); !near(v, 1) {
		t.Errorf("center value = %v, want 1", v)
	}
	lo, hi := moved.BoundingBox()
	if !near(lo[0], 1) || !near(lo[1], 2) || !near(hi[0], 3) || !near(hi[1], 4) {
		t.Errorf("bounding box = %v %v", lo, hi)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	r, _ := k.Rect(4, 2, 0)
	turned := k.Rotate(r, 90)

	if v := eval(k, turned, 0, 1.5); v <= 0 {
		t.Errorf("value on rotated long axis = %v, want > 0", v)
	}
	if v := eval(k, turned, 1.5, 0); v >= 0 {
		t.Errorf("value on rotated short axis = %v, want < 0", v)
	}
	lo, hi := turned.BoundingBox()
	if !near(lo[0], -1) || !near(lo[1], -2) || !near(hi[0], 1) || !near(hi[1], 2) {
		t.Errorf("bounding box = %v %v", lo, hi)
	}
}

func TestFieldDrivesQuadtree(t *testing.T) {
	k := New()
	c, _ := k.Circle(1)
	bb := geom.NewRect(geom.V(-1.5, -1.5), geom.V(1.5, 1.5))

	tree := dualcontour.Build(k.Field(c), bb, 5)
	if n := tree.CountLeaves(); n != 1024 {
		t.Fatalf("leaves before collapse = %d, want 1024", n)
	}
	tree.Collapse()
	if n := tree.CountLeaves(); n != 244 {
		t.Fatalf("leaves after collapse = %d, want 244", n)
	}
	if !tree.IsValid() {
		t.Fatal("tree invalid after collapse")
	}
}
