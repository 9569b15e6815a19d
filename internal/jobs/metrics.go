package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subsystem = "question_pipeline"

	kindLabel   = "kind"
	statusLabel = "status"
	resultLabel = "result"
)

var jobsFinishedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "jobs_finished_total",
		Help:      "number of jobs that reached a terminal status",
	},
	[]string{kindLabel, statusLabel},
)

var jobsInFlightMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "jobs_in_flight",
		Help:      "number of jobs currently running",
	},
	[]string{kindLabel},
)

var generationBatchesMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "generation_batches_total",
		Help:      "provider batches by outcome (ok, empty, failed)",
	},
	[]string{resultLabel},
)

var approvedQuestionsMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "approved_questions_total",
		Help:      "questions committed into the normalized schema",
	},
)

func observeJobFinished(kind, status string) {
	jobsFinishedMetric.With(prometheus.Labels{kindLabel: kind, statusLabel: status}).Inc()
}

func trackInFlight(kind string) func() {
	g := jobsInFlightMetric.With(prometheus.Labels{kindLabel: kind})
	g.Inc()
	return g.Dec
}

func observeBatch(result string) {
	generationBatchesMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func init() {
	prometheus.MustRegister(jobsFinishedMetric)
	prometheus.MustRegister(jobsInFlightMetric)
	prometheus.MustRegister(generationBatchesMetric)
	prometheus.MustRegister(approvedQuestionsMetric)
}
