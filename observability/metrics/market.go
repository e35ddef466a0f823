package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type MarketMetrics struct {
	proposalsCreated prometheus.Counter
	stakesPlaced     *prometheus.CounterVec
	settlements      prometheus.Counter
	resolutions      *prometheus.CounterVec
	poolBalance      prometheus.Gauge
	payoutsTotal     prometheus.Counter
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			proposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_proposals_created_total",
				Help: "Count of prediction proposals created.",
			}),
			stakesPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_stakes_total",
				Help: "Count of stakes accepted by direction.",
			}, []string{"direction"}),
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_settlements_total",
				Help: "Count of proposals settled.",
			}),
			resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_resolutions_total",
				Help: "Count of predictions resolved by outcome.",
			}, []string{"outcome"}),
			poolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_pool_balance",
				Help: "Current pooled escrow balance.",
			}),
			payoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_payouts_total",
				Help: "Cumulative amount paid out to winners.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.proposalsCreated,
			marketRegistry.stakesPlaced,
			marketRegistry.settlements,
			marketRegistry.resolutions,
			marketRegistry.poolBalance,
			marketRegistry.payoutsTotal,
		)
	})
	return marketRegistry
}

func (m *MarketMetrics) ObserveProposalCreated() {
	if m == nil {
		return
	}
	m.proposalsCreated.Inc()
}

func (m *MarketMetrics) ObserveStake(goLong bool) {
	if m == nil {
		return
	}
	direction := "short"
	if goLong {
		direction = "long"
	}
	m.stakesPlaced.WithLabelValues(direction).Inc()
}

func (m *MarketMetrics) ObserveSettlement() {
	if m == nil {
		return
	}
	m.settlements.Inc()
}

func (m *MarketMetrics) ObserveResolution(won bool, payout float64) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strconv.FormatBool(won)).Inc()
	if payout > 0 {
		m.payoutsTotal.Add(payout)
	}
}

func (m *MarketMetrics) SetPoolBalance(balance float64) {
	if m == nil {
		return
	}
	m.poolBalance.Set(balance)
}
