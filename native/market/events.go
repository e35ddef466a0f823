package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"predmarket/core/types"
)

const (
	EventTypeLedgerInitialized  = "market.ledger.initialized"
	EventTypeLedgerCredited     = "market.ledger.credited"
	EventTypeProposalCreated    = "market.proposal.created"
	EventTypePredictionStaked   = "market.prediction.staked"
	EventTypeProposalSettled    = "market.proposal.settled"
	EventTypePredictionResolved = "market.prediction.resolved"
)

// NewLedgerInitializedEvent returns the canonical payload emitted when the
// escrow ledger singleton is created.
func NewLedgerInitializedEvent(l *EscrowLedger) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["owner"] = hex.EncodeToString(l.Owner[:])
		attrs["createdAt"] = strconv.FormatInt(l.CreatedAt, 10)
	}
	return &types.Event{Type: EventTypeLedgerInitialized, Attributes: attrs}
}

// NewLedgerCreditedEvent returns the payload emitted after the owner tops up
// the pool.
func NewLedgerCreditedEvent(owner [20]byte, amount, poolBalance *big.Int) *types.Event {
	return &types.Event{Type: EventTypeLedgerCredited, Attributes: map[string]string{
		"owner":       hex.EncodeToString(owner[:]),
		"amount":      bigIntString(amount),
		"poolBalance": bigIntString(poolBalance),
	}}
}

// NewProposalCreatedEvent returns the payload for a newly created proposal.
func NewProposalCreatedEvent(p *Proposal) *types.Event {
	return &types.Event{Type: EventTypeProposalCreated, Attributes: proposalAttributes(p)}
}

// NewProposalSettledEvent returns the payload emitted when the authority
// records the settlement price.
func NewProposalSettledEvent(p *Proposal) *types.Event {
	return &types.Event{Type: EventTypeProposalSettled, Attributes: proposalAttributes(p)}
}

// NewPredictionStakedEvent returns the payload emitted when a stake enters the
// pool.
func NewPredictionStakedEvent(p *UserPrediction) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		sanitized, err := SanitizePrediction(p)
		if err == nil {
			attrs["id"] = hex.EncodeToString(sanitized.ID[:])
			attrs["proposalId"] = hex.EncodeToString(sanitized.ProposalID[:])
			attrs["user"] = hex.EncodeToString(sanitized.Authority[:])
			attrs["goLong"] = strconv.FormatBool(sanitized.GoLong)
			attrs["amount"] = bigIntString(sanitized.Amount)
		}
	}
	return &types.Event{Type: EventTypePredictionStaked, Attributes: attrs}
}

// NewPredictionResolvedEvent returns the payload emitted when the reward
// distributor finalises a stake. Payout is zero for losing predictions.
func NewPredictionResolvedEvent(p *UserPrediction, won bool, payout *big.Int) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		attrs["id"] = hex.EncodeToString(p.ID[:])
		attrs["proposalId"] = hex.EncodeToString(p.ProposalID[:])
		attrs["user"] = hex.EncodeToString(p.Authority[:])
	}
	attrs["won"] = strconv.FormatBool(won)
	attrs["payout"] = bigIntString(payout)
	return &types.Event{Type: EventTypePredictionResolved, Attributes: attrs}
}

func proposalAttributes(p *Proposal) map[string]string {
	attrs := make(map[string]string)
	if p == nil {
		return attrs
	}
	sanitized, err := SanitizeProposal(p)
	if err != nil {
		return attrs
	}
	attrs["id"] = hex.EncodeToString(sanitized.ID[:])
	attrs["authority"] = hex.EncodeToString(sanitized.Authority[:])
	attrs["coin"] = sanitized.Coin
	attrs["price"] = bigIntString(sanitized.Price)
	attrs["priceOnExpiry"] = bigIntString(sanitized.PriceOnExpiry)
	attrs["expiry"] = strconv.FormatInt(sanitized.Expiry, 10)
	attrs["settled"] = strconv.FormatBool(sanitized.Settled)
	return attrs
}

func bigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
