// Package metrics wires the detector and inserter blocks to Prometheus
// with promauto-registered collectors. A nil *Collector is always a legal,
// inert no-op - every call site below nil-checks before touching it, the
// same pattern this codebase uses for its other optional subsystems.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus collectors shared by detector, detectorfft
// and inserter.
type Collector struct {
	LaneSwitches   *prometheus.CounterVec
	SamplesRouted  *prometheus.CounterVec
	SyncHits       prometheus.Counter
	SyncMisses     prometheus.Counter
	IFFTDuration   prometheus.Histogram
	BurstsInserted *prometheus.CounterVec
}

// New registers a fresh Collector against reg. Pass prometheus.DefaultRegisterer
// for top-level wiring, or a private registry in tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		LaneSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "protodetect_lane_switches_total",
			Help: "Number of times a detector switched its active output lane, by destination protocol.",
		}, []string{"protocol"}),
		SamplesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "protodetect_samples_routed_total",
			Help: "Number of samples routed to each protocol's output lane.",
		}, []string{"protocol"}),
		SyncHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "protodetect_fft_sync_hits_total",
			Help: "Number of sync-sequence hits found by the FFT detector's windowed search.",
		}),
		SyncMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "protodetect_fft_sync_discarded_total",
			Help: "Number of sync hits discarded because no discriminator matched.",
		}),
		IFFTDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "protodetect_fft_ifft_duration_seconds",
			Help:    "Time spent inside the inverse FFT per windowed sync search.",
			Buckets: prometheus.DefBuckets,
		}),
		BurstsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "protodetect_bursts_inserted_total",
			Help: "Number of bursts spliced onto the inserter's output lane, by source port.",
		}, []string{"port"}),
	}
}

// ObserveLaneSwitch records a protocol-lane switch, if c is non-nil.
func (c *Collector) ObserveLaneSwitch(protocolName string) {
	if c == nil {
		return
	}
	c.LaneSwitches.WithLabelValues(protocolName).Inc()
}

// ObserveSamplesRouted records n samples routed to protocolName's lane.
func (c *Collector) ObserveSamplesRouted(protocolName string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.SamplesRouted.WithLabelValues(protocolName).Add(float64(n))
}

// ObserveSyncHit records a sync-sequence hit found by the FFT detector.
func (c *Collector) ObserveSyncHit() {
	if c == nil {
		return
	}
	c.SyncHits.Inc()
}

// ObserveSyncDiscarded records a sync hit discarded for lack of a
// discriminator match.
func (c *Collector) ObserveSyncDiscarded() {
	if c == nil {
		return
	}
	c.SyncMisses.Inc()
}

// ObserveIFFTDuration records time spent in one inverse FFT call.
func (c *Collector) ObserveIFFTDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.IFFTDuration.Observe(d.Seconds())
}

// ObserveBurstInserted records a spliced burst from portName.
func (c *Collector) ObserveBurstInserted(portName string) {
	if c == nil {
		return
	}
	c.BurstsInserted.WithLabelValues(portName).Inc()
}
