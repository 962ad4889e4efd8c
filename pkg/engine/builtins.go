package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/dualquad/pkg/geom"
	"github.com/chazu/dualquad/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites script source into something zygomys accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot collide with user variables.
//  2. kebab-case identifiers become snake_case, since zygomys reads a
//     hyphen as the subtraction operator.
//  3. ; line comments become // comments.
//
// String literals, double-quoted and backtick, pass through untouched.
func preprocessSource(source string) string {
	s := scanner{src: source}
	s.out.Grow(len(source) + len(source)/4)
	for !s.done() {
		switch c := s.peek(0); {
		case c == '"':
			s.quoted('"', true)
		case c == '`':
			s.quoted('`', false)
		case c == ';':
			s.comment()
		case c == ':' && s.peek(1) == '=':
			s.copy(2)
		case c == ':' && isLetter(s.peek(1)):
			s.keyword()
		case c == '-' && s.pos > 0 && isIdentChar(s.src[s.pos-1]) && isLetter(s.peek(1)):
			s.out.WriteByte('_')
			s.pos++
		default:
			s.copy(1)
		}
	}
	return s.out.String()
}

type scanner struct {
	src string
	pos int
	out strings.Builder
}

func (s *scanner) done() bool {
	return s.pos >= len(s.src)
}

// peek returns the byte n positions ahead, or 0 past the end.
func (s *scanner) peek(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *scanner) copy(n int) {
	end := min(s.pos+n, len(s.src))
	s.out.WriteString(s.src[s.pos:end])
	s.pos = end
}

// quoted copies a literal delimited by q, honouring backslash escapes if
// escapes is set. An unterminated literal runs to the end of the source.
func (s *scanner) quoted(q byte, escapes bool) {
	s.copy(1)
	for !s.done() {
		c := s.peek(0)
		if escapes && c == '\\' {
			s.copy(2)
			continue
		}
		s.copy(1)
		if c == q {
			return
		}
	}
}

// comment rewrites a run of semicolons as // and copies the rest of the line.
func (s *scanner) comment() {
	s.out.WriteString("//")
	for s.peek(0) == ';' {
		s.pos++
	}
	end := strings.IndexByte(s.src[s.pos:], '\n')
	if end < 0 {
		end = len(s.src) - s.pos
	}
	s.copy(end)
}

func (s *scanner) keyword() {
	start := s.pos + 1
	end := start
	for end < len(s.src) && isKWChar(s.src[end]) {
		end++
	}
	fmt.Fprintf(&s.out, "%q", kwPrefix+s.src[start:end])
	s.pos = end
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a kernel.Shape so it can be passed between builtins.
type sexpShape struct {
	shape kernel.Shape
	desc  string
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string { return s.desc }
func (s *sexpShape) Type() *zygo.RegisteredType            { return nil }

// sexpVec2 wraps a 2D point.
type sexpVec2 struct {
	vec geom.Vec2[float64]
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A trailing keyword without a value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// number returns the keyword argument key, falling back to the positional
// argument at index pos (if pos >= 0), and then to def.
func (a kwArgs) number(key string, pos int, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok && pos >= 0 && pos < len(a.positional) {
		v, ok = a.positional[pos], true
	}
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toShape(s zygo.Sexp) (kernel.Shape, error) {
	if v, ok := s.(*sexpShape); ok {
		return v.shape, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

func toVec2(s zygo.Sexp) (geom.Vec2[float64], error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return geom.Vec2[float64]{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toShapes flattens shape arguments; lists and arrays of shapes are
// spliced in place.
func toShapes(args []zygo.Sexp) ([]kernel.Shape, error) {
	var out []kernel.Shape
	for i, a := range args {
		items := []zygo.Sexp{a}
		switch v := a.(type) {
		case *zygo.SexpPair:
			l, err := zygo.ListToArray(v)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			items = l
		case *zygo.SexpArray:
			items = v.Val
		}
		for _, item := range items {
			s, err := toShape(item)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Scene state
// ---------------------------------------------------------------------------

// sceneState collects what the scene builtin records during a run.
type sceneState struct {
	scene *Scene
	calls int
}

// result returns the recorded scene, or a scene around the script's final
// value if that is a shape.
func (st *sceneState) result(last zygo.Sexp) *Scene {
	if st.scene != nil {
		if st.calls > 1 {
			st.scene.Warnings = append(st.scene.Warnings,
				fmt.Sprintf("scene given %d times; the last one is used", st.calls))
		}
		return st.scene
	}
	if s, ok := last.(*sexpShape); ok {
		return &Scene{Shape: s.shape}
	}
	return &Scene{}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the shape builtins into a zygomys environment.
// Shapes are built with k; the scene builtin records into st.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k kernel.Kernel, st *sceneState) {
	shape := func(s kernel.Shape, format string, a ...any) zygo.Sexp {
		return &sexpShape{shape: s, desc: fmt.Sprintf(format, a...)}
	}

	// (vec2 1 2)
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: geom.V(x, y)}, nil
	})

	// (circle :radius 1) or (circle 1)
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, err := pa.number("radius", 0, 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		s, err := k.Circle(r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		return shape(s, "(circle :radius %g)", r), nil
	})

	// (rect :width 2 :height 1 :round 0.1) or (rect 2 1)
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		w, err := pa.number("width", 0, 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		h, err := pa.number("height", 1, w)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		round, err := pa.number("round", 2, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		s, err := k.Rect(w, h, round)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		return shape(s, "(rect :width %g :height %g :round %g)", w, h, round), nil
	})

	// (union a b ...)
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		shapes, err := toShapes(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("union: %w", err)
		}
		s, err := k.Union(shapes...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("union: %w", err)
		}
		return shape(s, "(union <%d shapes>)", len(shapes)), nil
	})

	// (difference a b) and (intersect a b)
	binary := func(op string, fn func(a, b kernel.Shape) kernel.Shape) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 2 shapes, got %d", op, len(args))
			}
			a, err := toShape(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: first: %w", op, err)
			}
			b, err := toShape(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: second: %w", op, err)
			}
			return shape(fn(a, b), "(%s %s %s)", op, args[0].SexpString(nil), args[1].SexpString(nil)), nil
		}
	}
	env.AddFunction("difference", binary("difference", k.Difference))
	env.AddFunction("intersect", binary("intersect", k.Intersection))

	// (translate s (vec2 1 2))
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a shape and a vec2")
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		v, err := toVec2(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		return shape(k.Translate(s, v.X, v.Y), "(translate %s %s)", args[0].SexpString(nil), args[1].SexpString(nil)), nil
	})

	// (rotate s 45), degrees counter-clockwise
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a shape and an angle")
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		deg, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: angle: %w", err)
		}
		return shape(k.Rotate(s, deg), "(rotate %s %g)", args[0].SexpString(nil), deg), nil
	})

	// (scene s :min (vec2 -2 -2) :max (vec2 2 2) :depth 6)
	env.AddFunction("scene", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("scene requires exactly one shape, got %d", len(pa.positional))
		}
		s, err := toShape(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scene: %w", err)
		}
		sc := &Scene{Shape: s}

		lo, hasMin := pa.kw["min"]
		hi, hasMax := pa.kw["max"]
		if hasMin != hasMax {
			return zygo.SexpNull, fmt.Errorf("scene: :min and :max must be given together")
		}
		if hasMin {
			p0, err := toVec2(lo)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("scene: min: %w", err)
			}
			p1, err := toVec2(hi)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("scene: max: %w", err)
			}
			sc.Bounds = geom.NewRect(p0, p1)
			if sc.Bounds.IsEmpty() {
				return zygo.SexpNull, fmt.Errorf("scene: bounds %v have no area", sc.Bounds)
			}
			sc.HasBounds = true
		}

		if v, ok := pa.kw["depth"]; ok {
			d, ok := v.(*zygo.SexpInt)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("scene: depth: expected integer, got %s", v.SexpString(nil))
			}
			if d.Val < 0 || d.Val > MaxSceneDepth {
				return zygo.SexpNull, fmt.Errorf("scene: depth %d out of range [0, %d]", d.Val, MaxSceneDepth)
			}
			sc.Depth = int(d.Val)
		}

		st.scene = sc
		st.calls++
		return pa.positional[0], nil
	})
}
