package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powerotp"

// Metrics holds the application collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	redemptions        *prometheus.CounterVec
	redemptionDuration prometheus.Histogram
	linksCreated       prometheus.Counter
	linksPurged        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Share link redemption attempts by outcome.",
		}, []string{"outcome"}),
		redemptionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redemption_duration_seconds",
			Help:      "Latency of share link redemption including the store round trip.",
			Buckets:   prometheus.DefBuckets,
		}),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Share links created.",
		}),
		linksPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_purged_total",
			Help:      "Expired share links removed by the purger.",
		}),
	}

	reg.MustRegister(m.redemptions, m.redemptionDuration, m.linksCreated, m.linksPurged)
	return m
}

// ObserveRedemption records one redemption attempt.
func (m *Metrics) ObserveRedemption(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(outcome).Inc()
	m.redemptionDuration.Observe(elapsed.Seconds())
}

// LinkCreated counts a successful link creation.
func (m *Metrics) LinkCreated() {
	if m == nil {
		return
	}
	m.linksCreated.Inc()
}

// LinksPurged adds n purged links.
func (m *Metrics) LinksPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.linksPurged.Add(float64(n))
}
