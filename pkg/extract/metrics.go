package extract

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel   = "error_type"
	precisionLabel = "precision"
	classLabel     = "class"
)

var (
	extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dualquad_extractions",
		Help: "The number of completed extractions.",
	}, []string{
		precisionLabel,
	})

	extractionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dualquad_extraction_errors",
		Help: "The errors that occured while preparing an extraction.",
	}, []string{
		errTypeLabel,
	})

	fieldEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dualquad_field_evaluations",
		Help: "The number of lattice samples taken from implicit fields.",
	}, []string{
		precisionLabel,
	})

	leafCells = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dualquad_leaf_cells",
		Help: "The number of leaf cells reported, by class.",
	}, []string{
		classLabel,
	})

	hermitePoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dualquad_hermite_points",
		Help: "The number of boundary crossings recorded.",
	})

	extractLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "dualquad_extract_latency",
		Help: "The time to build, collapse and report a quadtree.",
	}, []string{
		precisionLabel,
	})
)

func instrumentExtraction(precision string, r *Report, start time.Time) {
	labels := prometheus.Labels{precisionLabel: precision}
	extractions.With(labels).Inc()
	fieldEvaluations.With(labels).Add(float64(r.Stats.Evaluations))
	extractLatency.With(labels).Observe(time.Since(start).Seconds())
	hermitePoints.Add(float64(r.Stats.HermitePoints))
	for class, n := range r.Classes {
		leafCells.With(prometheus.Labels{classLabel: class}).Add(float64(n))
	}
}

func instrumentExtractionError(err error) {
	extractionErrors.
		With(prometheus.Labels{
			errTypeLabel: errors.Type(err),
		}).
		Inc()
}
