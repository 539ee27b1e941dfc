package metrics

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maimai/spacetarot"
)

var (
	once sync.Once

	// SubmissionsTotal counts accepted form submissions.
	SubmissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tarot",
		Name:      "submissions_total",
		Help:      "Total number of valid form submissions.",
	})

	// StoreErrorsTotal counts submissions that could not be persisted.
	StoreErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tarot",
		Name:      "store_errors_total",
		Help:      "Total number of submissions the store failed to append.",
	})

	// PipelineRunsTotal counts generation runs by result (done, failed, canceled).
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tarot",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of card generation runs, labeled by result.",
	}, []string{"result"})

	// StageFailuresTotal counts failed runs by the stage and kind of failure.
	StageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tarot",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Total number of failed generation runs, labeled by stage and error kind.",
	}, []string{"stage", "kind"})

	// PipelineDurationSeconds is end-to-end generation time.
	PipelineDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tarot",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "End-to-end time of a card generation run.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"result"})

	// DownloadsTotal counts card image downloads by result (ok, error).
	DownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tarot",
		Name:      "downloads_total",
		Help:      "Total number of generated card images fetched for download, labeled by result.",
	}, []string{"result"})
)

// Register registers tarot metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			StoreErrorsTotal,
			PipelineRunsTotal,
			StageFailuresTotal,
			PipelineDurationSeconds,
			DownloadsTotal,
		)
	})
}

// ObservePipeline is a tarot.Observer that counts finished runs.
func ObservePipeline(stage tarot.Stage, err error) {
	switch stage {
	case tarot.StageDone:
		PipelineRunsTotal.WithLabelValues("done").Inc()
	case tarot.StageFailed:
		var genErr *tarot.GenerationError
		if errors.As(err, &genErr) && genErr.Kind == tarot.KindCanceled {
			PipelineRunsTotal.WithLabelValues("canceled").Inc()
			return
		}
		PipelineRunsTotal.WithLabelValues("failed").Inc()
		if genErr != nil {
			StageFailuresTotal.WithLabelValues(string(genErr.Stage), string(genErr.Kind)).Inc()
		} else {
			StageFailuresTotal.WithLabelValues("unknown", "unknown").Inc()
		}
	}
}

// ObserveDuration records how long a run took.
func ObserveDuration(result string, seconds float64) {
	PipelineDurationSeconds.WithLabelValues(result).Observe(seconds)
}
