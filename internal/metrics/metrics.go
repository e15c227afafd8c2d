// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "guildpulse"

// Metrics holds the Prometheus collectors for sweeps and point aggregation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sweepRuns      *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	transitions    *prometheus.CounterVec
	announcements  *prometheus.CounterVec
	duplicateSlots prometheus.Counter
	contributions  *prometheus.CounterVec
	pointsRecorded *prometheus.CounterVec
	rosterFailures prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Lifecycle sweeps by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Lifecycle sweep duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "transitions_total",
			Help:      "Event status transitions by target status.",
		}, []string{"to"}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "announce",
			Name:      "notices_total",
			Help:      "Announcements by notice kind and result.",
		}, []string{"kind", "result"}),
		duplicateSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "duplicate_slots_total",
			Help:      "Slots that were already recorded by an overlapping sweep.",
		}),
		contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "raid",
			Name:      "contributions_total",
			Help:      "Contribution writes by source and result.",
		}, []string{"source", "result"}),
		pointsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "raid",
			Name:      "points_total",
			Help:      "Points added to event running totals.",
		}, []string{"source"}),
		rosterFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "raid",
			Name:      "faction_lookup_failures_total",
			Help:      "Actor faction lookups that fell back to unaffiliated because of an error.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.sweepRuns,
			m.sweepDuration,
			m.transitions,
			m.announcements,
			m.duplicateSlots,
			m.contributions,
			m.pointsRecorded,
			m.rosterFailures,
		)
	}
	return m
}

func (m *Metrics) ObserveSweep(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweepRuns.WithLabelValues(result).Inc()
	m.sweepDuration.Observe(d.Seconds())
}

func (m *Metrics) IncTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncAnnouncement(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.announcements.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncDuplicateSlot() {
	if m == nil {
		return
	}
	m.duplicateSlots.Inc()
}

func (m *Metrics) IncContribution(source, result string, points int64) {
	if m == nil {
		return
	}
	m.contributions.WithLabelValues(source, result).Inc()
	if result == "ok" && points > 0 {
		m.pointsRecorded.WithLabelValues(source).Add(float64(points))
	}
}

func (m *Metrics) IncFactionLookupFailure() {
	if m == nil {
		return
	}
	m.rosterFailures.Inc()
}
