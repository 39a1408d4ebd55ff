package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	corrections  *prometheus.CounterVec
	regimes      *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalsmith_signals_total",
				Help: "Total number of composed signals",
			},
			[]string{"direction", "symbol"},
		),
		corrections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalsmith_level_corrections_total",
				Help: "Price levels clamped to restore direction ordering",
			},
			[]string{"direction"},
		),
		regimes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalsmith_regimes_total",
				Help: "Sampled market regimes",
			},
			[]string{"regime"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalsmith_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalsmith_last_price",
				Help: "Last price a signal was generated for",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalsmith_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts a composed signal.
func (r *Recorder) RecordSignal(direction, symbol string) {
	r.signalsTotal.WithLabelValues(direction, symbol).Inc()
}

// RecordCorrections counts clamps applied while composing a signal.
func (r *Recorder) RecordCorrections(direction string, n int) {
	if n > 0 {
		r.corrections.WithLabelValues(direction).Add(float64(n))
	}
}

// RecordRegime counts a sampled regime.
func (r *Recorder) RecordRegime(regime string) {
	r.regimes.WithLabelValues(regime).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
