package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics holds Prometheus metrics for the sensor session and its fetchers.
type SessionMetrics struct {
	State              prometheus.Gauge
	Transitions        *prometheus.CounterVec
	SensorCallFailures *prometheus.CounterVec
	NoticesRaised      *prometheus.CounterVec
	RecordsEmitted     *prometheus.CounterVec
	DuplicateSteps     prometheus.Counter
	FetchDuration      *prometheus.HistogramVec
	Refreshes          *prometheus.CounterVec
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session state (0=inactive, 1=activating, 2=active, 3=deactivating).",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Total number of session state transitions, by target state.",
		}, []string{"to"}),
		SensorCallFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "call_failures_total",
			Help:      "Total number of failed sensor SDK calls, by sensor kind, operation and SDK error code.",
		}, []string{"kind", "op", "code"}),
		NoticesRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notices",
			Name:      "raised_total",
			Help:      "Total number of user notices raised, by SDK error code.",
		}, []string{"code"}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "records_emitted_total",
			Help:      "Total number of display records bound, by sensor kind.",
		}, []string{"kind"}),
		DuplicateSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "duplicate_steps_total",
			Help:      "Total number of step readings skipped as consecutive duplicates.",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "duration_seconds",
			Help:      "Duration of history fetches in seconds, by sensor kind.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Total number of refresh passes, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.State, m.Transitions, m.SensorCallFailures, m.NoticesRaised,
		m.RecordsEmitted, m.DuplicateSteps, m.FetchDuration, m.Refreshes)
	return m
}
