package dispatcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics follows the package-level CounterVec/GaugeVec block plus a
// single sync.Once registration pattern used by the committee worker
// code: per-request-type counters, a queue depth gauge, and an abort
// counter.
var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oasis_dispatcher_request_count",
			Help: "Number of requests dispatched, by body type.",
		},
		[]string{"type"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oasis_dispatcher_queue_depth",
			Help: "Number of requests currently queued awaiting dispatch.",
		},
	)
	abortCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oasis_dispatcher_abort_count",
			Help: "Number of abort_and_wait calls acknowledged by the worker.",
		},
	)

	dispatcherCollectors = []prometheus.Collector{
		requestCount,
		queueDepth,
		abortCount,
	}

	metricsOnce sync.Once
)

func registerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(dispatcherCollectors...)
	})
}
