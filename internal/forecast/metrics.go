package forecast

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors for forecast calls. A nil *Metrics
// records nothing.
type Metrics struct {
	forecasts     *prometheus.CounterVec
	duration      prometheus.Histogram
	dealsAnalyzed prometheus.Histogram
	accuracy      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revforecast_forecasts_total",
			Help: "Forecast calls by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "revforecast_forecast_duration_seconds",
			Help:    "Wall time of successful forecasts, including the deal fetch",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		dealsAnalyzed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "revforecast_deals_analyzed",
			Help:    "Open deals simulated per forecast",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		accuracy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "revforecast_accuracy_score",
			Help:    "Accuracy score of resolved forecasts (0-100)",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
	}
	reg.MustRegister(m.forecasts, m.duration, m.dealsAnalyzed, m.accuracy)
	return m
}

const (
	outcomeOK         = "ok"
	outcomeInvalid    = "invalid"
	outcomeBackendErr = "backend_error"
	outcomeError      = "error"
)

func (m *Metrics) observeForecast(outcome string, elapsed time.Duration, deals int) {
	if m == nil {
		return
	}
	m.forecasts.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.duration.Observe(elapsed.Seconds())
		m.dealsAnalyzed.Observe(float64(deals))
	}
}

func (m *Metrics) observeAccuracy(score float64) {
	if m == nil {
		return
	}
	m.accuracy.Observe(score)
}
