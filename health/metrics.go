package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// This file exposes internal operational metrics about the tracker itself:
// decode failures, poll cycle durations and reconnects for each of the three
// pollers. It deliberately does not expose anything from the query layer
// (committed offsets, lag, group membership) — that data stays behind the
// Query type and is never rendered over HTTP.

const metricsNamespace = "offset_tracker"

var (
	DecodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "commit_listener",
		Name:      "decode_errors_total",
		Help:      "Number of __consumer_offsets records that failed to decode.",
	}, []string{"reason"})

	RecordsConsumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "commit_listener",
		Name:      "records_consumed_total",
		Help:      "Number of records consumed from __consumer_offsets.",
	})

	PollCycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "poll_cycle_duration_seconds",
		Help:      "Duration of one poll cycle, by poller.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"poller"})

	ReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "reconnects_total",
		Help:      "Number of times a poller had to recreate its Kafka client after an error.",
	}, []string{"poller"})
)

func init() {
	prometheus.MustRegister(DecodeErrorsTotal)
	prometheus.MustRegister(RecordsConsumedTotal)
	prometheus.MustRegister(PollCycleDuration)
	prometheus.MustRegister(ReconnectsTotal)
}

// ObserveCycle records how long a poll cycle took for the given poller.
func ObserveCycle(poller string, start time.Time) {
	PollCycleDuration.WithLabelValues(poller).Observe(time.Since(start).Seconds())
}
