package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"predmarket/core/types"
	"predmarket/native/market"
	"predmarket/storage"
)

var (
	ledgerKey        = ethcrypto.Keccak256([]byte("market/ledger"))
	vaultSeed        = []byte("market/vault")
	accountPrefix    = []byte("market/account:")
	proposalPrefix   = []byte("market/proposal:")
	predictionPrefix = []byte("market/prediction:")
)

// Manager persists accounts and market records in the key-value store. Keys
// are keccak hashes of a prefix plus the record identifier; values are
// RLP-encoded.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func proposalKey(id [32]byte) []byte {
	buf := make([]byte, len(proposalPrefix)+len(id))
	copy(buf, proposalPrefix)
	copy(buf[len(proposalPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

func predictionKey(id [32]byte) []byte {
	buf := make([]byte, len(predictionPrefix)+len(id))
	copy(buf, predictionPrefix)
	copy(buf[len(predictionPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

// MarketVaultAddress returns the deterministic module address holding the
// pooled escrow balance.
func (m *Manager) MarketVaultAddress() ([20]byte, error) {
	hash := ethcrypto.Keccak256(vaultSeed)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr, nil
}

// RLP cannot carry signed integers, so timestamps are stored with an
// unsigned cast and restored on load.

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

type storedLedger struct {
	Owner     [20]byte
	CreatedAt uint64
}

type storedProposal struct {
	ID            [32]byte
	Authority     [20]byte
	Coin          string
	Price         *big.Int
	PriceOnExpiry *big.Int
	Expiry        uint64
	Settled       bool
	CreatedAt     uint64
}

type storedPrediction struct {
	ID         [32]byte
	ProposalID [32]byte
	Authority  [20]byte
	GoLong     bool
	Amount     *big.Int
	Resolved   bool
	CreatedAt  uint64
}

// GetAccount loads the account for addr, returning an empty account when the
// address has never been written.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	data, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return types.NewAccount(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	account := &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// PutAccount persists the account for addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(&storedAccount{Nonce: account.Nonce, Balance: balance})
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), encoded)
}

// LedgerGet loads the escrow ledger singleton.
func (m *Manager) LedgerGet() (*market.EscrowLedger, bool) {
	data, err := m.db.Get(ledgerKey)
	if err != nil {
		return nil, false
	}
	var stored storedLedger
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false
	}
	return &market.EscrowLedger{Owner: stored.Owner, CreatedAt: int64(stored.CreatedAt)}, true
}

// LedgerPut persists the escrow ledger singleton.
func (m *Manager) LedgerPut(l *market.EscrowLedger) error {
	if l == nil {
		return fmt.Errorf("state: nil ledger")
	}
	encoded, err := rlp.EncodeToBytes(&storedLedger{Owner: l.Owner, CreatedAt: uint64(l.CreatedAt)})
	if err != nil {
		return err
	}
	return m.db.Put(ledgerKey, encoded)
}

// ProposalGet loads a proposal by its identifier.
func (m *Manager) ProposalGet(id [32]byte) (*market.Proposal, bool) {
	data, err := m.db.Get(proposalKey(id))
	if err != nil {
		return nil, false
	}
	var stored storedProposal
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false
	}
	proposal := &market.Proposal{
		ID:            stored.ID,
		Authority:     stored.Authority,
		Coin:          stored.Coin,
		Price:         stored.Price,
		PriceOnExpiry: stored.PriceOnExpiry,
		Expiry:        int64(stored.Expiry),
		Settled:       stored.Settled,
		CreatedAt:     int64(stored.CreatedAt),
	}
	return proposal.Clone(), true
}

// ProposalPut validates and persists a proposal.
func (m *Manager) ProposalPut(p *market.Proposal) error {
	sanitized, err := market.SanitizeProposal(p)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(&storedProposal{
		ID:            sanitized.ID,
		Authority:     sanitized.Authority,
		Coin:          sanitized.Coin,
		Price:         sanitized.Price,
		PriceOnExpiry: sanitized.PriceOnExpiry,
		Expiry:        uint64(sanitized.Expiry),
		Settled:       sanitized.Settled,
		CreatedAt:     uint64(sanitized.CreatedAt),
	})
	if err != nil {
		return err
	}
	return m.db.Put(proposalKey(sanitized.ID), encoded)
}

// PredictionGet loads a prediction record by its content-addressed key.
func (m *Manager) PredictionGet(id [32]byte) (*market.UserPrediction, bool) {
	data, err := m.db.Get(predictionKey(id))
	if err != nil {
		return nil, false
	}
	var stored storedPrediction
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false
	}
	prediction := &market.UserPrediction{
		ID:         stored.ID,
		ProposalID: stored.ProposalID,
		Authority:  stored.Authority,
		GoLong:     stored.GoLong,
		Amount:     stored.Amount,
		Resolved:   stored.Resolved,
		CreatedAt:  int64(stored.CreatedAt),
	}
	return prediction.Clone(), true
}

// PredictionPut validates and persists a prediction record.
func (m *Manager) PredictionPut(p *market.UserPrediction) error {
	sanitized, err := market.SanitizePrediction(p)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(&storedPrediction{
		ID:         sanitized.ID,
		ProposalID: sanitized.ProposalID,
		Authority:  sanitized.Authority,
		GoLong:     sanitized.GoLong,
		Amount:     sanitized.Amount,
		Resolved:   sanitized.Resolved,
		CreatedAt:  uint64(sanitized.CreatedAt),
	})
	if err != nil {
		return err
	}
	return m.db.Put(predictionKey(sanitized.ID), encoded)
}
