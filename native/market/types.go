package market

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	proposalSeed   = []byte("market/proposal")
	predictionSeed = []byte("market/prediction")
)

// EscrowLedger is the singleton record anchoring the pooled escrow. The pooled
// balance itself lives on the vault account maintained by the hosting ledger;
// the record only pins the owner allowed to credit the pool.
type EscrowLedger struct {
	Owner     [20]byte
	CreatedAt int64
}

// Clone returns a copy of the ledger record.
func (l *EscrowLedger) Clone() *EscrowLedger {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// Proposal captures one binary market: a tracked asset, a reference price and
// an expiry. PriceOnExpiry stays zero until the authority settles the
// proposal; Settled transitions false to true exactly once.
type Proposal struct {
	ID            [32]byte
	Authority     [20]byte
	Coin          string
	Price         *big.Int
	PriceOnExpiry *big.Int
	Expiry        int64
	Settled       bool
	CreatedAt     int64
}

// Clone returns a deep copy of the proposal so callers can safely mutate the
// copy without affecting the stored instance.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	if p.PriceOnExpiry != nil {
		clone.PriceOnExpiry = new(big.Int).Set(p.PriceOnExpiry)
	} else {
		clone.PriceOnExpiry = big.NewInt(0)
	}
	return &clone
}

// UserPrediction records one user's stake against one proposal. Direction and
// amount are immutable after creation; Resolved flips exactly once, by the
// reward distributor, after the proposal settles.
type UserPrediction struct {
	ID         [32]byte
	ProposalID [32]byte
	Authority  [20]byte
	GoLong     bool
	Amount     *big.Int
	Resolved   bool
	CreatedAt  int64
}

// Clone returns a deep copy of the prediction record.
func (p *UserPrediction) Clone() *UserPrediction {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// ProposalID derives the deterministic identifier for a proposal from its
// immutable fields and the authority's account nonce at creation time.
func ProposalID(authority [20]byte, coin string, expiry int64, nonce uint64) [32]byte {
	var expiryBytes, nonceBytes [8]byte
	binary.BigEndian.PutUint64(expiryBytes[:], uint64(expiry))
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	return ethcrypto.Keccak256Hash(proposalSeed, authority[:], []byte(coin), expiryBytes[:], nonceBytes[:])
}

// PredictionID derives the content-addressed key for the (proposal, user)
// pair. A second stake by the same user on the same proposal maps to the same
// key and is rejected rather than overwriting the first.
func PredictionID(proposalID [32]byte, user [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash(predictionSeed, proposalID[:], user[:])
}

// SanitizeProposal validates and normalises a proposal before persistence,
// returning a cloned instance with non-nil price fields. The original value is
// not mutated.
func SanitizeProposal(p *Proposal) (*Proposal, error) {
	if p == nil {
		return nil, fmt.Errorf("nil proposal")
	}
	clone := p.Clone()
	clone.Coin = strings.TrimSpace(clone.Coin)
	if clone.Coin == "" {
		return nil, fmt.Errorf("proposal coin required")
	}
	if clone.Price.Sign() < 0 {
		return nil, fmt.Errorf("proposal price must be non-negative")
	}
	if clone.PriceOnExpiry.Sign() < 0 {
		return nil, fmt.Errorf("proposal settlement price must be non-negative")
	}
	if clone.PriceOnExpiry.Sign() != 0 && !clone.Settled {
		return nil, fmt.Errorf("unsettled proposal cannot carry a settlement price")
	}
	return clone, nil
}

// SanitizePrediction validates and normalises a prediction record before
// persistence.
func SanitizePrediction(p *UserPrediction) (*UserPrediction, error) {
	if p == nil {
		return nil, fmt.Errorf("nil prediction")
	}
	clone := p.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("prediction amount must be positive")
	}
	if clone.ID != PredictionID(clone.ProposalID, clone.Authority) {
		return nil, fmt.Errorf("prediction id does not match proposal and user")
	}
	return clone, nil
}
