package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	attemptsStarted prometheus.Counter
	eventsWritten   *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			attemptsStarted: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "requestlog_attempts_total",
					Help: "Total request attempts for which audit logging was started.",
				},
			),
			eventsWritten: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "requestlog_events_written_total",
					Help: "Total response events written to audit streams by type.",
				},
				[]string{"type"},
			),
			eventsDropped: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "requestlog_events_dropped_total",
					Help: "Total response events lost to logging failures by reason.",
				},
				[]string{"reason"},
			),
		}

		prometheus.MustRegister(
			m.attemptsStarted,
			m.eventsWritten,
			m.eventsDropped,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordAttemptStarted() {
	getMetrics().attemptsStarted.Inc()
}

func RecordEventWritten(eventType string) {
	getMetrics().eventsWritten.WithLabelValues(eventType).Inc()
}

func RecordEventDropped(reason string) {
	getMetrics().eventsDropped.WithLabelValues(reason).Inc()
}
