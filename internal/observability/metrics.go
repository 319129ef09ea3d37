// Package observability registers the service's Prometheus metrics.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	workoutMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftscore",
		Subsystem: "workouts",
		Name:      "mutations_total",
		Help:      "Workout create/update/delete operations that completed successfully.",
	}, []string{"op"})
	storeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftscore",
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Operations that failed against the database, by operation.",
	}, []string{"op"})
	authEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftscore",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Authentication events by kind and outcome.",
	}, []string{"event", "outcome"})
	statsCompute = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "liftscore",
		Subsystem: "stats",
		Name:      "compute_seconds",
		Help:      "Time to list a user's history and recompute statistics.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	scoreDrift = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftscore",
		Subsystem: "reconcile",
		Name:      "profiles_corrected_total",
		Help:      "Profiles whose cumulative score was repaired by reconciliation.",
	})
)

func init() {
	prometheus.MustRegister(workoutMutations, storeErrors, authEvents, statsCompute, scoreDrift)
}

// RecordWorkoutMutation counts a successful workout mutation ("create", "update", "delete", "import").
func RecordWorkoutMutation(op string) {
	workoutMutations.WithLabelValues(op).Inc()
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	storeErrors.WithLabelValues(op).Inc()
}

// RecordAuthEvent counts an auth event such as ("signin", "failure").
func RecordAuthEvent(event, outcome string) {
	authEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveStatsCompute records one statistics recomputation.
func ObserveStatsCompute(d time.Duration) {
	statsCompute.Observe(d.Seconds())
}

// RecordScoreCorrections counts profiles repaired by reconciliation.
func RecordScoreCorrections(n int) {
	scoreDrift.Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
