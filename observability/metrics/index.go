package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IndexMetrics records handler outcomes and store contention for the index.
type IndexMetrics struct {
	handlerTotal    *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	storeAttempts   prometheus.Histogram
	stakeLocked     *prometheus.GaugeVec
	bribeEscrowed   *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
}

var (
	indexOnce     sync.Once
	indexRegistry *IndexMetrics
)

// Index returns the process wide index metrics, registering them with the
// default prometheus registry on first use.
func Index() *IndexMetrics {
	indexOnce.Do(func() {
		indexRegistry = newIndexMetrics()
		prometheus.MustRegister(indexRegistry.collectors()...)
	})
	return indexRegistry
}

// NewIndexMetrics builds an unregistered metrics set. Register it with reg
// when reg is not nil.
func NewIndexMetrics(reg prometheus.Registerer) *IndexMetrics {
	m := newIndexMetrics()
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func newIndexMetrics() *IndexMetrics {
	return &IndexMetrics{
		handlerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dipindex_handler_total",
			Help: "Count of index handler invocations by handler and result code.",
		}, []string{"handler", "code"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dipindex_handler_duration_seconds",
			Help:    "Latency of index handlers including commit.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
		storeAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dipindex_store_attempts",
			Help:    "Attempts needed before a record set stabilised and committed.",
			Buckets: []float64{1, 2, 3, 4, 6, 8},
		}),
		stakeLocked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dipindex_stake_locked",
			Help: "Vote tokens currently held in forest custody.",
		}, []string{"forest"}),
		bribeEscrowed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dipindex_bribe_escrowed",
			Help: "Unclaimed bribe balance per bribe escrow.",
		}, []string{"bribe"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dipindex_http_requests_total",
			Help: "HTTP requests served by route and status class.",
		}, []string{"route", "status"}),
	}
}

func (m *IndexMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.handlerTotal,
		m.handlerDuration,
		m.storeAttempts,
		m.stakeLocked,
		m.bribeEscrowed,
		m.httpRequests,
	}
}

func (m *IndexMetrics) ObserveHandler(handler, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if handler == "" {
		handler = "unknown"
	}
	m.handlerTotal.WithLabelValues(handler, code).Inc()
	m.handlerDuration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

func (m *IndexMetrics) ObserveAttempts(attempts int) {
	if m == nil || attempts <= 0 {
		return
	}
	m.storeAttempts.Observe(float64(attempts))
}

func (m *IndexMetrics) SetStakeLocked(forest string, amount uint64) {
	if m == nil {
		return
	}
	m.stakeLocked.WithLabelValues(forest).Set(float64(amount))
}

func (m *IndexMetrics) SetBribeEscrowed(bribe string, amount uint64) {
	if m == nil {
		return
	}
	m.bribeEscrowed.WithLabelValues(bribe).Set(float64(amount))
}

func (m *IndexMetrics) ObserveHTTP(route, status string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}

// HandlerCount returns the counter for a handler and code pair.
func (m *IndexMetrics) HandlerCount(handler, code string) prometheus.Counter {
	return m.handlerTotal.WithLabelValues(handler, code)
}

// StakeLocked returns the custody gauge of a forest.
func (m *IndexMetrics) StakeLocked(forest string) prometheus.Gauge {
	return m.stakeLocked.WithLabelValues(forest)
}
