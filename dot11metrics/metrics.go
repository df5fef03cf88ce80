// Package dot11metrics is an optional Prometheus observer for a dot11.Link,
// built around a counter-per-event collector keyed by outcome. The core
// never imports this package; callers that want metrics wire it in
// themselves, so the core's own errors stay observable only through the
// status word and debug log.
package dot11metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes counters for the status-word outcomes dot11.Link
// publishes, a retry counter, and a clock-offset gauge.
type Collector struct {
	Frames      *prometheus.CounterVec
	Retries     prometheus.Counter
	ClockOffset prometheus.Gauge
}

// NewCollector builds a Collector with the given MAC label applied to every
// metric, so a multi-node demo process can distinguish its stations.
func NewCollector(mac string) *Collector {
	c := &Collector{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dot11mac",
			Name:      "frames_total",
			Help:      "Frames observed on the link surface, by outcome.",
			ConstLabels: prometheus.Labels{
				"mac": mac,
			},
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dot11mac",
			Name:      "retries_total",
			Help:      "DATA frame retransmissions attempted.",
			ConstLabels: prometheus.Labels{
				"mac": mac,
			},
		}),
		ClockOffset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dot11mac",
			Name:      "clock_offset_ms",
			Help:      "Current beacon-derived clock offset, in milliseconds.",
			ConstLabels: prometheus.Labels{
				"mac": mac,
			},
		}),
	}
	return c
}

// MustRegister registers all of the collector's metrics with reg.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.Frames, c.Retries, c.ClockOffset)
}

// ObserveStatus increments the frames_total counter for a status-word value
// published by a dot11.Link (RX_OK=1, TX_DELIVERED=4, TX_FAILED=5).
func (c *Collector) ObserveStatus(status int32) {
	switch status {
	case 1:
		c.Frames.WithLabelValues("rx_ok").Inc()
	case 4:
		c.Frames.WithLabelValues("tx_delivered").Inc()
	case 5:
		c.Frames.WithLabelValues("tx_failed").Inc()
	}
}

// ObserveRetry increments the retry counter.
func (c *Collector) ObserveRetry() {
	c.Retries.Inc()
}

// ObserveClockOffset sets the clock-offset gauge.
func (c *Collector) ObserveClockOffset(ms int64) {
	c.ClockOffset.Set(float64(ms))
}
