package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/dualquad/pkg/extract"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shape.dq")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func readReport(t *testing.T, path string) extract.Report {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var r extract.Report
	require.NoError(t, json.Unmarshal(b, &r))
	return r
}

func testConfig(script string, out string) config {
	return config{
		Script: script,
		Output: out,
	}
}

// TestE2ECircleExample runs the bundled circle script through the whole
// pipeline: script, engine, extraction and JSON report.
func TestE2ECircleExample(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	conf := testConfig(filepath.Join("..", "..", "examples", "circle.dq"), out)

	require.NoError(t, run(context.Background(), conf, "run-1"))

	r := readReport(t, out)
	require.Equal(t, "run-1", r.RunID)
	require.Equal(t, extract.Float64, r.Precision)
	require.Equal(t, 5, r.Depth)
	require.Equal(t, 1024, r.LeavesBeforeCollapse)
	require.Equal(t, 244, r.Leaves)
	require.Len(t, r.Cells, 244)
	require.True(t, r.Valid)
	require.Equal(t, 33*33, r.Stats.Evaluations)
	require.Equal(t, [2]float64{-1.5, -1.5}, r.Bounds.Min)
	require.Equal(t, [2]float64{1.5, 1.5}, r.Bounds.Max)
}

func TestE2EWasherExample(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	conf := testConfig(filepath.Join("..", "..", "examples", "washer.dq"), out)
	conf.Depth = 4
	conf.Hermite = true

	require.NoError(t, run(context.Background(), conf, "run-2"))

	r := readReport(t, out)
	require.Equal(t, 4, r.Depth)
	require.True(t, r.Valid)
	require.Positive(t, r.Classes["mixed"])
	require.Positive(t, r.Stats.HermitePoints)
	require.Less(t, r.Leaves, r.LeavesBeforeCollapse)
}

func TestRunOptions(t *testing.T) {
	script := writeScript(t, `(scene (circle 1) :min (vec2 -1.5 -1.5) :max (vec2 1.5 1.5) :depth 5)`)

	t.Run("no collapse", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "report.json")
		conf := testConfig(script, out)
		conf.NoCollapse = true

		require.NoError(t, run(context.Background(), conf, "x"))
		r := readReport(t, out)
		require.Equal(t, 1024, r.Leaves)
	})

	t.Run("eager float32", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "report.json")
		conf := testConfig(script, out)
		conf.Eager = true
		conf.Float32 = true

		require.NoError(t, run(context.Background(), conf, "x"))
		r := readReport(t, out)
		require.Equal(t, extract.Float32, r.Precision)
		require.Equal(t, 244, r.Leaves)
	})

	t.Run("depth override", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "report.json")
		conf := testConfig(script, out)
		conf.Depth = 3

		require.NoError(t, run(context.Background(), conf, "x"))
		r := readReport(t, out)
		require.Equal(t, 52, r.Leaves)
	})
}

func TestRunWritesMetrics(t *testing.T) {
	dir := t.TempDir()
	conf := testConfig(writeScript(t, `(circle 1)`), filepath.Join(dir, "report.json"))
	conf.Depth = 2
	conf.MetricsFile = filepath.Join(dir, "metrics.prom")

	require.NoError(t, run(context.Background(), conf, "x"))

	b, err := os.ReadFile(conf.MetricsFile)
	require.NoError(t, err)
	require.Contains(t, string(b), "dualquad_extractions")
	require.Contains(t, string(b), "dualquad_info")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "script errors",
			source: `(circle :radius -1)`,
			want:   "script has errors",
		},
		{
			name:   "empty script",
			source: "  \n\t\n",
			want:   "extraction failed",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "report.json")
			err := run(context.Background(), testConfig(writeScript(t, test.source), out), "x")
			require.Error(t, err)
			require.Contains(t, err.Error(), test.want)

			_, statErr := os.Stat(out)
			require.True(t, os.IsNotExist(statErr))
		})
	}

	t.Run("missing script", func(t *testing.T) {
		conf := testConfig(filepath.Join(t.TempDir(), "nope.dq"), "-")
		err := run(context.Background(), conf, "x")
		require.Error(t, err)
		require.Contains(t, err.Error(), "reading script failed")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		conf := testConfig(writeScript(t, `(circle 1)`), "-")
		err := run(ctx, conf, "x")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		conf    config
		wantErr string
	}{
		{name: "valid", conf: config{Script: "a.dq"}},
		{name: "missing script", conf: config{}, wantErr: "missing script"},
		{name: "negative depth", conf: config{Script: "a.dq", Depth: -1}, wantErr: "depth out of range"},
		{name: "depth too large", conf: config{Script: "a.dq", Depth: 25}, wantErr: "depth out of range"},
		{name: "depth past practical limit", conf: config{Script: "a.dq", Depth: 13}, wantErr: "depth out of range"},
		{name: "deepest allowed", conf: config{Script: "a.dq", Depth: 12}},
		{name: "negative margin", conf: config{Script: "a.dq", Margin: -0.1}, wantErr: "margin must not be negative"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := validateConfig(test.conf)
			if test.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), test.wantErr), err.Error())
		})
	}
}

type closeRecorder struct {
	bytes.Buffer
	closeErr error
	closed   int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.closeErr
}

func TestWriteAndClose(t *testing.T) {
	r := &extract.Report{RunID: "x", Leaves: 1}

	t.Run("ok", func(t *testing.T) {
		w := &closeRecorder{}
		require.NoError(t, writeAndClose(r, w, "out.json", false))
		require.Equal(t, 1, w.closed)
		require.Contains(t, w.String(), `"run_id":"x"`)
	})

	t.Run("close error", func(t *testing.T) {
		w := &closeRecorder{closeErr: stderrors.New("disk full")}
		err := writeAndClose(r, w, "out.json", false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "closing output failed")
		require.Equal(t, 1, w.closed)
	})
}
