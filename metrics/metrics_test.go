package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	return m.GetCounter().GetValue()
}

func TestCollectorObservesLaneSwitchesAndSamplesRouted(t *testing.T) {
	reg := prometheus.NewRegistry()
	coll := New(reg)

	coll.ObserveLaneSwitch("zc")
	coll.ObserveLaneSwitch("zc")
	coll.ObserveSamplesRouted("zc", 128)
	coll.ObserveSamplesRouted("zc", 0)

	assert.Equal(t, float64(2), counterValue(t, coll.LaneSwitches.WithLabelValues("zc")))
	assert.Equal(t, float64(128), counterValue(t, coll.SamplesRouted.WithLabelValues("zc")))
}

func TestCollectorObservesSyncHitsAndIFFTDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	coll := New(reg)

	coll.ObserveSyncHit()
	coll.ObserveSyncDiscarded()
	coll.ObserveIFFTDuration(5 * time.Millisecond)

	assert.Equal(t, float64(1), counterValue(t, coll.SyncHits))
	assert.Equal(t, float64(1), counterValue(t, coll.SyncMisses))

	m := &dto.Metric{}
	require.NoError(t, coll.IFFTDuration.Write(m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestNilCollectorIsInertNoOp(t *testing.T) {
	var coll *Collector
	coll.ObserveLaneSwitch("zc")
	coll.ObserveSamplesRouted("zc", 1)
	coll.ObserveSyncHit()
	coll.ObserveSyncDiscarded()
	coll.ObserveIFFTDuration(time.Second)
	coll.ObserveBurstInserted("laneA")
}
