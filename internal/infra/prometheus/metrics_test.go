package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveRedemption(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRedemption("ok", 3*time.Millisecond)
	m.ObserveRedemption("burned", time.Millisecond)
	m.ObserveRedemption("burned", time.Millisecond)

	if got := testutil.ToFloat64(m.redemptions.WithLabelValues("burned")); got != 2 {
		t.Fatalf("expected 2 burned redemptions, got %v", got)
	}
	if got := testutil.ToFloat64(m.redemptions.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 ok redemption, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRedemption("ok", time.Second)
	m.LinkCreated()
	m.LinksPurged(3)
}

func TestMetrics_LinksPurgedIgnoresZero(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.LinksPurged(0)
	m.LinksPurged(4)
	if got := testutil.ToFloat64(m.linksPurged); got != 4 {
		t.Fatalf("expected 4 purged, got %v", got)
	}
}
