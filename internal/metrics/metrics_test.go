package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSync("full", "completed", 3, time.Second)
		m.IncSyncSkipped("throttled")
		m.ObserveStrategy("api_media", "success")
		m.ObserveCache(true)
		m.IncPlaceholder()
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())

	m.ObserveSync("full", "completed", 3, time.Second)
	m.ObserveSync("full", "completed", 2, time.Second)
	m.ObserveStrategy("thumbnail", "rejected")
	m.ObserveCache(false)
	m.ObserveCache(true)
	m.ObserveCache(true)
	m.IncPlaceholder()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.syncRuns.WithLabelValues("full", "completed")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.itemsSynced.WithLabelValues("full")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.strategyTotal.WithLabelValues("thumbnail", "rejected")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.placeholders))
}
