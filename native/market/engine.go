package market

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"predmarket/core/events"
	"predmarket/core/types"
)

var errNilState = errors.New("market engine: state not configured")

type engineState interface {
	LedgerGet() (*EscrowLedger, bool)
	LedgerPut(*EscrowLedger) error
	ProposalGet(id [32]byte) (*Proposal, bool)
	ProposalPut(*Proposal) error
	PredictionGet(id [32]byte) (*UserPrediction, bool)
	PredictionPut(*UserPrediction) error
	MarketVaultAddress() ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine wires the settlement business logic with external state and event
// emitters. Every operation is a single state transition: all reads, writes
// and fund movements within one call commit together or the call fails with
// no observable change.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a market engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used for expiry gating. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return types.NewAccount()
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// transfer moves amount between two ledger accounts, failing with
// ErrInsufficientFunds when the source balance is short.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func (e *Engine) vaultBalance() (*big.Int, error) {
	vault, err := e.state.MarketVaultAddress()
	if err != nil {
		return nil, err
	}
	acc, err := e.state.GetAccount(vault[:])
	if err != nil {
		return nil, err
	}
	return ensureAccount(acc).Balance, nil
}

// InitializeLedger creates the escrow ledger singleton with the given owner.
// Exactly one ledger exists per deployment; a second call fails with
// ErrAlreadyInitialized and leaves the first untouched.
func (e *Engine) InitializeLedger(owner [20]byte) (*EscrowLedger, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok := e.state.LedgerGet(); ok {
		return nil, ErrAlreadyInitialized
	}
	ledger := &EscrowLedger{Owner: owner, CreatedAt: e.now()}
	if err := e.state.LedgerPut(ledger); err != nil {
		return nil, err
	}
	e.emit(NewLedgerInitializedEvent(ledger))
	return ledger.Clone(), nil
}

// Credit moves amount from the owner's account into the pooled vault. Only the
// ledger owner may credit the pool; nothing else ever deposits into it apart
// from incoming stakes.
func (e *Engine) Credit(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ledger, ok := e.state.LedgerGet()
	if !ok {
		return nil, ErrLedgerNotInitialized
	}
	if caller != ledger.Owner {
		return nil, ErrUnauthorized
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := checkedUint64(amt); err != nil {
		return nil, err
	}
	vault, err := e.state.MarketVaultAddress()
	if err != nil {
		return nil, err
	}
	if err := e.transfer(caller, vault, amt); err != nil {
		return nil, err
	}
	balance, err := e.vaultBalance()
	if err != nil {
		return nil, err
	}
	e.emit(NewLedgerCreditedEvent(ledger.Owner, amt, balance))
	return cloneBigInt(balance), nil
}

// CreateProposal allocates a new proposal with the given immutable fields. The
// expiry is deliberately not validated against the current time so downstream
// expiry gating stays exercisable; the identifier is derived from the
// authority's account nonce, which is bumped as part of the call.
func (e *Engine) CreateProposal(authority [20]byte, coin string, price *big.Int, expiry int64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	trimmed := strings.TrimSpace(coin)
	if trimmed == "" {
		return nil, errors.New("market engine: coin identifier required")
	}
	refPrice := cloneBigInt(price)
	if refPrice.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if err := checkedUint64(refPrice); err != nil {
		return nil, err
	}
	account, err := e.state.GetAccount(authority[:])
	if err != nil {
		return nil, err
	}
	account = ensureAccount(account)
	nonce := account.Nonce
	account.Nonce++
	if err := e.state.PutAccount(authority[:], account); err != nil {
		return nil, err
	}
	proposal := &Proposal{
		ID:            ProposalID(authority, trimmed, expiry, nonce),
		Authority:     authority,
		Coin:          trimmed,
		Price:         refPrice,
		PriceOnExpiry: big.NewInt(0),
		Expiry:        expiry,
		Settled:       false,
		CreatedAt:     e.now(),
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(NewProposalCreatedEvent(proposal))
	return proposal.Clone(), nil
}

// Stake escrows a user's binary bet against an open proposal. The pool
// transfer and the record creation commit together; any precondition failure
// aborts with no state change.
func (e *Engine) Stake(proposalID [32]byte, user [20]byte, goLong bool, amount *big.Int) (*UserPrediction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	proposal, ok := e.state.ProposalGet(proposalID)
	if !ok {
		return nil, ErrProposalNotFound
	}
	if proposal.Settled {
		return nil, ErrProposalAlreadySettled
	}
	if e.now() >= proposal.Expiry {
		return nil, ErrProposalHasExpired
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	// The winning payout is twice the stake; reject stakes whose payout
	// cannot be represented rather than discovering it at resolution.
	if _, err := checkedPayout(amt); err != nil {
		return nil, err
	}
	if _, ok := e.state.LedgerGet(); !ok {
		return nil, ErrLedgerNotInitialized
	}
	id := PredictionID(proposalID, user)
	if _, ok := e.state.PredictionGet(id); ok {
		return nil, ErrPredictionAlreadyExists
	}
	vault, err := e.state.MarketVaultAddress()
	if err != nil {
		return nil, err
	}
	if err := e.transfer(user, vault, amt); err != nil {
		return nil, err
	}
	prediction := &UserPrediction{
		ID:         id,
		ProposalID: proposalID,
		Authority:  user,
		GoLong:     goLong,
		Amount:     amt,
		Resolved:   false,
		CreatedAt:  e.now(),
	}
	if err := e.state.PredictionPut(prediction); err != nil {
		return nil, err
	}
	e.emit(NewPredictionStakedEvent(prediction))
	return prediction.Clone(), nil
}

// Settle records the observed outcome price and closes the proposal. Only the
// proposal authority may settle, and only once; there is no time gate, so the
// authority may settle before, at, or after expiry.
func (e *Engine) Settle(proposalID [32]byte, caller [20]byte, finalPrice *big.Int) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	proposal, ok := e.state.ProposalGet(proposalID)
	if !ok {
		return nil, ErrProposalNotFound
	}
	if caller != proposal.Authority {
		return nil, ErrUnauthorized
	}
	if proposal.Settled {
		return nil, ErrProposalAlreadySettled
	}
	price := cloneBigInt(finalPrice)
	if price.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if err := checkedUint64(price); err != nil {
		return nil, err
	}
	proposal.PriceOnExpiry = price
	proposal.Settled = true
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(NewProposalSettledEvent(proposal))
	return proposal.Clone(), nil
}

// Resolve finalises one stake under a settled proposal. A winning prediction
// is one whose direction matches the recorded outcome: long wins on a strict
// price increase, short wins otherwise, including the exact-tie case. Winners
// receive twice their stake from the pool; losers receive nothing. Either way
// the prediction is marked resolved exactly once.
func (e *Engine) Resolve(proposalID [32]byte, user [20]byte, caller [20]byte) (bool, *big.Int, error) {
	if e == nil || e.state == nil {
		return false, nil, errNilState
	}
	proposal, ok := e.state.ProposalGet(proposalID)
	if !ok {
		return false, nil, ErrProposalNotFound
	}
	if !proposal.Settled {
		return false, nil, ErrProposalNotSettled
	}
	prediction, ok := e.state.PredictionGet(PredictionID(proposalID, user))
	if !ok {
		return false, nil, ErrPredictionNotFound
	}
	if prediction.Resolved {
		return false, nil, ErrPredictionAlreadyResolved
	}
	if caller != proposal.Authority {
		return false, nil, ErrUnauthorized
	}
	priceWentUp := proposal.PriceOnExpiry.Cmp(proposal.Price) > 0
	won := prediction.GoLong == priceWentUp
	payout := big.NewInt(0)
	if won {
		amount, err := checkedPayout(prediction.Amount)
		if err != nil {
			return false, nil, err
		}
		vault, err := e.state.MarketVaultAddress()
		if err != nil {
			return false, nil, err
		}
		balance, err := e.vaultBalance()
		if err != nil {
			return false, nil, err
		}
		if balance.Cmp(amount) < 0 {
			return false, nil, ErrInsufficientPoolFunds
		}
		if err := e.transfer(vault, user, amount); err != nil {
			return false, nil, err
		}
		payout = amount
	}
	prediction.Resolved = true
	if err := e.state.PredictionPut(prediction); err != nil {
		return false, nil, err
	}
	e.emit(NewPredictionResolvedEvent(prediction, won, payout))
	return won, cloneBigInt(payout), nil
}
