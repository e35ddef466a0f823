package metrics

import (
	"strconv"

	"predmarket/core/events"
	"predmarket/core/types"
	"predmarket/native/market"
)

type payloadEvent interface {
	Event() *types.Event
}

// MarketEmitter observes engine events and feeds the prometheus registry. It
// satisfies events.Emitter so it can be wired straight into the engine.
type MarketEmitter struct {
	metrics *MarketMetrics
}

// NewMarketEmitter returns an emitter backed by the shared market registry.
func NewMarketEmitter() *MarketEmitter {
	return &MarketEmitter{metrics: Market()}
}

// Emit implements events.Emitter.
func (e *MarketEmitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	var attrs map[string]string
	if payload, ok := evt.(payloadEvent); ok && payload.Event() != nil {
		attrs = payload.Event().Attributes
	}
	switch evt.EventType() {
	case market.EventTypeProposalCreated:
		e.metrics.ObserveProposalCreated()
	case market.EventTypePredictionStaked:
		e.metrics.ObserveStake(attrs["goLong"] == "true")
	case market.EventTypeProposalSettled:
		e.metrics.ObserveSettlement()
	case market.EventTypePredictionResolved:
		payout, _ := strconv.ParseFloat(attrs["payout"], 64)
		e.metrics.ObserveResolution(attrs["won"] == "true", payout)
	case market.EventTypeLedgerCredited:
		if balance, err := strconv.ParseFloat(attrs["poolBalance"], 64); err == nil {
			e.metrics.SetPoolBalance(balance)
		}
	}
}
