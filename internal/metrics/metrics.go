// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome and result label values.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
	CacheStale = "stale"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	balanceComputations    *prometheus.CounterVec
	settlementTransactions prometheus.Histogram
	cacheRequests          *prometheus.CounterVec
	inconsistencies        prometheus.Counter
	rpcRequests            *prometheus.CounterVec
	rpcDuration            *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		balanceComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitpay",
			Name:      "balance_computations_total",
			Help:      "Balance computations by outcome.",
		}, []string{"outcome"}),
		settlementTransactions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "splitpay",
			Name:      "settlement_transactions",
			Help:      "Number of transactions in each simplified settlement plan.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitpay",
			Name:      "balance_cache_requests_total",
			Help:      "Balance cache lookups by result.",
		}, []string{"result"}),
		inconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "splitpay",
			Name:      "balance_inconsistencies_total",
			Help:      "Balance maps whose sum drifted from zero.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitpay",
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs by procedure and code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitpay",
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	reg.MustRegister(
		m.balanceComputations,
		m.settlementTransactions,
		m.cacheRequests,
		m.inconsistencies,
		m.rpcRequests,
		m.rpcDuration,
	)
	return m
}

// BalanceComputed records one balance computation.
func (m *Metrics) BalanceComputed(outcome string, settlements int) {
	if m == nil {
		return
	}
	m.balanceComputations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.settlementTransactions.Observe(float64(settlements))
	}
}

// CacheLookup records a balance cache lookup.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// Inconsistency records a failed conservation check.
func (m *Metrics) Inconsistency() {
	if m == nil {
		return
	}
	m.inconsistencies.Inc()
}

// RPC records a finished Connect call.
func (m *Metrics) RPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}
