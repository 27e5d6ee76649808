package host

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the host's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	SubrequestsTotal   prometheus.Counter
	PoolBytes          *prometheus.HistogramVec
	AllocFailuresTotal *prometheus.CounterVec
	ConfigLoadsTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ngxmod_requests_total",
			Help: "Requests served, by response status.",
		}, []string{"status"}),
		RequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ngxmod_request_duration_seconds",
			Help:    "Time spent running request phases.",
			Buckets: prometheus.DefBuckets,
		}),
		SubrequestsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "ngxmod_subrequests_total",
			Help: "Subrequests created by modules.",
		}),
		PoolBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ngxmod_pool_bytes",
			Help:    "Bytes accounted to an arena when it was destroyed.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"pool"}),
		AllocFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ngxmod_pool_alloc_failures_total",
			Help: "Arena allocations refused.",
		}, []string{"pool"}),
		ConfigLoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ngxmod_config_loads_total",
			Help: "Configuration loads, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) request(status int, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.RequestDuration.Observe(seconds)
}

func (m *Metrics) subrequest() {
	if m == nil {
		return
	}
	m.SubrequestsTotal.Inc()
}

func (m *Metrics) poolDestroyed(kind string, used int64) {
	if m == nil {
		return
	}
	m.PoolBytes.WithLabelValues(kind).Observe(float64(used))
}

func (m *Metrics) allocFailure(kind string) {
	if m == nil {
		return
	}
	m.AllocFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) configLoad(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ConfigLoadsTotal.WithLabelValues(result).Inc()
}
