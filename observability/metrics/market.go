package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"moneymarket/core/events"
)

// MarketMetrics tracks the money market event stream.
type MarketMetrics struct {
	gracefulFailures *prometheus.CounterVec
	ledgerEntries    *prometheus.CounterVec
	transferOuts     prometheus.Counter
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the shared metrics registry for the market module.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			gracefulFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_graceful_failures_total",
				Help: "Count of gracefully declined operations by failure code.",
			}, []string{"code"}),
			ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_ledger_entries_total",
				Help: "Count of posted ledger entry legs by reason and account.",
			}, []string{"reason", "account"}),
			transferOuts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_transfer_outs_total",
				Help: "Count of custody transfers leaving the protocol.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.gracefulFailures,
			marketRegistry.ledgerEntries,
			marketRegistry.transferOuts,
		)
	})
	return marketRegistry
}

// Observer bridges the market event stream into the metrics registry.
type Observer struct {
	metrics *MarketMetrics
}

// NewObserver constructs an events.Emitter that feeds the shared registry.
func NewObserver() *Observer {
	return &Observer{metrics: Market()}
}

// Emit implements the events.Emitter interface.
func (o *Observer) Emit(event events.Event) {
	if o == nil || o.metrics == nil {
		return
	}
	switch e := event.(type) {
	case events.LedgerEntryPosted:
		o.metrics.ledgerEntries.WithLabelValues(e.Reason, e.Account).Inc()
	case events.GracefulFailure:
		o.metrics.gracefulFailures.WithLabelValues(e.Code).Inc()
	case events.TransferOut:
		o.metrics.transferOuts.Inc()
	}
}
