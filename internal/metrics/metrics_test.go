package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSweep(time.Second, nil)
		m.IncTransition("active")
		m.IncAnnouncement("start", nil)
		m.IncDuplicateSlot()
		m.IncContribution("organic", "ok", 3)
		m.IncFactionLookupFailure()
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSweep(time.Second, nil)
	m.ObserveSweep(time.Second, errors.New("boom"))
	m.IncAnnouncement("reminder", nil)
	m.IncContribution("organic", "ok", 40)
	m.IncContribution("manual", "ok", 10)
	m.IncContribution("organic", "rejected", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.announcements.WithLabelValues("reminder", "ok")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.pointsRecorded.WithLabelValues("organic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contributions.WithLabelValues("organic", "rejected")))

	n, err := testutil.GatherAndCount(reg, "guildpulse_sweep_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
