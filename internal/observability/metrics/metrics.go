package metrics

import "github.com/prometheus/client_golang/prometheus"

// GeocodingMetrics exposes counters/histograms for provider calls.
type GeocodingMetrics struct {
	callsTotal  *prometheus.CounterVec
	callLatency *prometheus.HistogramVec
	loaderState *prometheus.GaugeVec
}

func NewGeocodingMetrics(reg prometheus.Registerer) *GeocodingMetrics {
	m := &GeocodingMetrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "location",
			Subsystem: "geocoding",
			Name:      "calls_total",
			Help:      "Total geocoding provider calls",
		}, []string{"operation", "outcome"}),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "location",
			Subsystem: "geocoding",
			Name:      "call_latency_seconds",
			Help:      "Latency of geocoding provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		loaderState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "location",
			Subsystem: "geocoding",
			Name:      "loader_state",
			Help:      "Mapping library readiness; 1 for the current state",
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsTotal, m.callLatency, m.loaderState)
	return m
}

func (m *GeocodingMetrics) ObserveCall(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(operation, outcome).Inc()
	m.callLatency.WithLabelValues(operation).Observe(seconds)
}

// SetLoaderState marks state as current and clears the others.
func (m *GeocodingMetrics) SetLoaderState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.loaderState.WithLabelValues(s).Set(v)
	}
}

// ResolutionMetrics tracks location engine transitions.
type ResolutionMetrics struct {
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

func NewResolutionMetrics(reg prometheus.Registerer) *ResolutionMetrics {
	m := &ResolutionMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "location",
			Subsystem: "engine",
			Name:      "transitions_total",
			Help:      "Location engine events by kind",
		}, []string{"event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "location",
			Subsystem: "engine",
			Name:      "failures_total",
			Help:      "Failed resolution attempts by reason",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.failures)
	return m
}

func (m *ResolutionMetrics) ObserveEvent(event string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event).Inc()
}

func (m *ResolutionMetrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
