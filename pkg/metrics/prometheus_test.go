package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSignal("BUY", "bitcoin")
	r.RecordSignal("BUY", "bitcoin")
	r.RecordCorrections("SELL", 2)
	r.RecordCorrections("SELL", 0)
	r.RecordLastPrice("bitcoin", 65000)

	if got := testutil.ToFloat64(r.signalsTotal.WithLabelValues("BUY", "bitcoin")); got != 2 {
		t.Fatalf("expected 2 signals, got %v", got)
	}
	if got := testutil.ToFloat64(r.corrections.WithLabelValues("SELL")); got != 2 {
		t.Fatalf("expected 2 corrections, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("bitcoin")); got != 65000 {
		t.Fatalf("unexpected last price %v", got)
	}
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
