// Package metrics exposes the engine's prometheus instrumentation (spec.md
// §6), built with promauto the way the teacher repo's metrics package
// wraps prometheus registration for every subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the prometheus namespace all exchange metrics share.
const Namespace = "aee"

func newCounter(name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help})
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help}, labels)
}

func newHistogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.NewHistogram(prometheus.HistogramOpts{Namespace: Namespace, Name: name, Help: help, Buckets: buckets})
}

var (
	exchangesStarted = newCounter(
		"exchanges_started_total",
		"Number of exchanges started.",
	)

	exchangesTimedOut = newCounter(
		"exchanges_timed_out_total",
		"Number of exchanges that ended in TimedOut.",
	)

	terminalPhase = newCounterVec(
		"exchange_terminal_phase_total",
		"Number of exchanges ending at each terminal phase, labeled by phase.",
		[]string{"phase"},
	)

	repairSetSize = newHistogram(
		"repair_set_size",
		"Size of the symmetric-difference repair set computed at ClockCompare exit.",
		prometheus.ExponentialBuckets(1, 2, 14),
	)
)

// ReportStarted records that a new exchange has begun.
func ReportStarted() {
	exchangesStarted.Inc()
}

// ReportTerminal records an exchange's terminal phase, and additionally
// counts it as a timeout when terminal is TimedOut.
func ReportTerminal(terminal string) {
	terminalPhase.WithLabelValues(terminal).Inc()
	if terminal == "TimedOut" {
		exchangesTimedOut.Inc()
	}
}

// ReportRepairSetSize records the size of a computed repair set.
func ReportRepairSetSize(n int) {
	repairSetSize.Observe(float64(n))
}
