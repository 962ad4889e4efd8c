package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/dualquad/pkg/kernel/sdfx"
)

func newTestEngine() *Engine {
	return NewEngine(sdfx.New())
}

func TestEvaluateEmptyString(t *testing.T) {
	eng := newTestEngine()

	sc, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
	if !sc.Empty() {
		t.Errorf("expected empty scene, got %+v", sc)
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := newTestEngine()

	sc, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if !sc.Empty() {
		t.Errorf("expected empty scene, got %+v", sc)
	}
}

func TestEvaluateNonShapeResult(t *testing.T) {
	eng := newTestEngine()

	// Valid Lisp whose value is not a shape describes nothing.
	sc, evalErrs, err := eng.Evaluate("(+ 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if !sc.Empty() {
		t.Errorf("expected empty scene, got %+v", sc)
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := newTestEngine()

	source := `
(def r 2)
(def c (circle :radius r))
c
`
	sc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc.Empty() {
		t.Fatal("expected a shape")
	}
	lo, hi := sc.Shape.BoundingBox()
	if lo != [2]float64{-2, -2} || hi != [2]float64{2, 2} {
		t.Errorf("bounding box = %v %v", lo, hi)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := newTestEngine()

	// Unmatched paren is a parse error.
	sc, evalErrs, err := eng.Evaluate("(circle 1")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := newTestEngine()

	sc, evalErrs, err := eng.Evaluate("(circle undefined-radius)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	eng := newTestEngine()

	source := "(circle 1)\n(circle 2"
	_, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}

	// Line info depends on the zygomys error format; only require a message.
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := newTestEngine()
	source := `(scene (difference (rect 4 2) (circle 0.5)) :depth 4)`

	var first *Scene
	for i := 0; i < 5; i++ {
		sc, evalErrs, err := eng.Evaluate(source)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if first == nil {
			first = sc
			continue
		}
		lo0, hi0 := first.Shape.BoundingBox()
		lo, hi := sc.Shape.BoundingBox()
		if lo != lo0 || hi != hi0 || sc.Depth != first.Depth {
			t.Errorf("iteration %d: scene differs", i)
		}
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	eng := newTestEngine()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Superseded evaluations report a fatal error; any other
			// outcome must be a clean scene.
			sc, evalErrs, err := eng.Evaluate("(circle 1)")
			if err != nil {
				if !strings.Contains(err.Error(), "superseded") {
					t.Errorf("unexpected fatal error: %v", err)
				}
				return
			}
			if len(evalErrs) > 0 || sc.Empty() {
				t.Errorf("unexpected result: %v %v", sc, evalErrs)
			}
		}()
	}
	wg.Wait()
}

func TestEvaluateTimeout(t *testing.T) {
	// An infinite loop in zygomys is awkward to express portably, so the
	// timeout plumbing is exercised directly with a channel that never sends.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, _, resultErr = waitWithTimeout(ch, 1, &mu, &gen)
	}()

	select {
	case <-done:
		if resultErr == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !strings.Contains(resultErr.Error(), "timed out") {
			t.Errorf("expected timeout error message, got: %v", resultErr)
		}
	case <-time.After(EvalTimeout + 2*time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{scene: &Scene{}}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  []string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  []string{"unexpected token"},
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  []string{"some generic error"},
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  []string{"missing paren"},
		},
		{
			name:     "short line format",
			msg:      "line 3: bad vec2",
			wantLine: 3,
			wantMsg:  []string{"bad vec2"},
		},
		{
			name:     "text before the location is kept",
			msg:      "circle: radius < 0\nerror on line 2: (circle -1)\nstack...",
			wantLine: 2,
			wantMsg:  []string{"radius < 0", "(circle -1)", "stack..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			for _, want := range tt.wantMsg {
				if !strings.Contains(e.Message, want) {
					t.Errorf("message = %q, want containing %q", e.Message, want)
				}
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
