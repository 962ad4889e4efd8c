package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/dualquad/pkg/dualcontour"
	"github.com/chazu/dualquad/pkg/engine"
	"github.com/chazu/dualquad/pkg/extract"
	"github.com/chazu/dualquad/pkg/kernel/sdfx"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/encoding/json"
)

var (
	// The dualquad version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "dualquad_info",
		Help:        "dualquad information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

type config struct {
	Script      string  `cli:""        env:"DUALQUAD_SCRIPT"       help:"Path of the shape script to evaluate."`
	Output      string  `cli:""        env:"DUALQUAD_OUTPUT"       help:"Where to write the JSON report (- for stdout)."`
	Depth       int     `cli:""        env:"DUALQUAD_DEPTH"        help:"Subdivision depth; overrides the script's scene depth when positive."`
	Margin      float64 `cli:""        env:"DUALQUAD_MARGIN"       help:"Bounding box margin, as a fraction of the larger side, when the script gives no bounds."`
	NoCollapse  bool    `cli:""        env:"DUALQUAD_NO_COLLAPSE"  help:"Keep the full tree instead of merging homogeneous cells."`
	Eager       bool    `cli:",hidden" env:"DUALQUAD_EAGER"        help:"Merge homogeneous cells while building."`
	Hermite     bool    `cli:""        env:"DUALQUAD_HERMITE"      help:"Compute boundary crossings and QEFs for mixed cells."`
	Tolerance   float64 `cli:",hidden" env:"DUALQUAD_TOLERANCE"    help:"Root finder and gradient tolerance for Hermite data."`
	Float32     bool    `cli:""        env:"DUALQUAD_FLOAT32"      help:"Build the tree in single precision."`
	Indent      bool    `cli:""        env:"DUALQUAD_INDENT"       help:"Indent the JSON report."`
	MetricsFile string  `cli:""        env:"DUALQUAD_METRICS_FILE" help:"Write Prometheus metrics in text format to this file."`
	LogLevel    string  `cli:""        env:"DUALQUAD_LOG_LEVEL"    help:"Log level (debug|info|warning|error)."`
	LogIndent   bool    `cli:""        env:"DUALQUAD_LOG_INDENT"   help:"Indent logs."`
	Version     bool    `cli:""        env:"-"                     help:"Show version."`
	Help        bool    `cli:""        env:"-"                     help:"Show help."`
}

func main() {
	conf := config{
		Output:    "-",
		Tolerance: dualcontour.DefaultTolerance,
		LogLevel:  logs.InfoLevel.String(),
	}

	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Resolves the boundary of a 2D shape script with an adaptive quadtree.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	runID := uuid.NewString()
	logs.WithTag("version", version).
		WithTag("run_id", runID).
		WithTag("script", conf.Script).
		WithTag("log_level", conf.LogLevel).
		Info("starting dualquad")

	if err := run(ctx, conf, runID); err != nil {
		logs.Fatal(errors.New("dualquad failed").
			WithTag("run_id", runID).
			Wrap(err))
	}
}

func validateConfig(conf config) error {
	if conf.Script == "" {
		return errors.New("missing script").
			WithTag("hint", "pass -script or set DUALQUAD_SCRIPT")
	}
	if conf.Depth < 0 || conf.Depth > engine.MaxSceneDepth {
		return errors.New("depth out of range").
			WithTag("depth", conf.Depth).
			WithTag("max", engine.MaxSceneDepth)
	}
	if conf.Margin < 0 {
		return errors.New("margin must not be negative").
			WithTag("margin", conf.Margin)
	}
	return nil
}

// run evaluates the script, extracts its quadtree and writes the report.
func run(ctx context.Context, conf config, runID string) error {
	src, err := os.ReadFile(conf.Script)
	if err != nil {
		return errors.New("reading script failed").
			WithTag("path", conf.Script).
			Wrap(err)
	}

	k := sdfx.New()
	sc, evalErrs, err := engine.NewEngine(k).Evaluate(string(src))
	if err != nil {
		return errors.New("evaluating script failed").Wrap(err)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			logs.Warn(errors.New(e.Message).
				WithTag("line", e.Line).
				WithTag("script", conf.Script))
		}
		return errors.New("script has errors").
			WithTag("count", len(evalErrs))
	}
	for _, w := range sc.Warnings {
		logs.WithTag("script", conf.Script).Info(w)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	opts := extract.Options{
		Depth:      conf.Depth,
		Margin:     conf.Margin,
		NoCollapse: conf.NoCollapse,
		Eager:      conf.Eager,
		Hermite:    conf.Hermite,
		Tolerance:  conf.Tolerance,
		Precision:  extract.Float64,
	}
	if conf.Float32 {
		opts.Precision = extract.Float32
	}
	r, err := extract.Extract(sc, k, opts)
	if err != nil {
		return errors.New("extraction failed").Wrap(err)
	}
	r.RunID = runID

	if err := writeReport(r, conf.Output, conf.Indent); err != nil {
		return err
	}

	if conf.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(conf.MetricsFile, prometheus.DefaultGatherer); err != nil {
			return errors.New("writing metrics failed").
				WithTag("path", conf.MetricsFile).
				Wrap(err)
		}
	}

	logs.WithTag("run_id", runID).
		WithTag("leaves", r.Leaves).
		WithTag("leaves_before_collapse", r.LeavesBeforeCollapse).
		WithTag("evaluations", r.Stats.Evaluations).
		WithTag("hermite_points", r.Stats.HermitePoints).
		Info("extraction complete")
	return nil
}

func writeReport(r *extract.Report, path string, indent bool) error {
	if path == "" || path == "-" {
		return encodeReport(r, os.Stdout, path, indent)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New("creating output failed").
			WithTag("path", path).
			Wrap(err)
	}
	return writeAndClose(r, f, path, indent)
}

// writeAndClose encodes r to w and closes w. A failed close is reported
// since the report may not have reached the file.
func writeAndClose(r *extract.Report, w io.WriteCloser, path string, indent bool) error {
	if err := encodeReport(r, w, path, indent); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return errors.New("closing output failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}

func encodeReport(r *extract.Report, w io.Writer, path string, indent bool) error {
	if err := r.WriteJSON(w, indent); err != nil {
		return errors.New("writing report failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}
