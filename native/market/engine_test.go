package market

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"predmarket/core/events"
	"predmarket/core/types"
)

type mockState struct {
	ledger      *EscrowLedger
	proposals   map[[32]byte]*Proposal
	predictions map[[32]byte]*UserPrediction
	accounts    map[[20]byte]*types.Account
	vault       [20]byte
}

func newMockState() *mockState {
	return &mockState{
		proposals:   make(map[[32]byte]*Proposal),
		predictions: make(map[[32]byte]*UserPrediction),
		accounts:    make(map[[20]byte]*types.Account),
		vault:       newTestAddress(0xEE),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) LedgerGet() (*EscrowLedger, bool) {
	if m.ledger == nil {
		return nil, false
	}
	return m.ledger.Clone(), true
}

func (m *mockState) LedgerPut(l *EscrowLedger) error {
	if l == nil {
		return fmt.Errorf("nil ledger")
	}
	m.ledger = l.Clone()
	return nil
}

func (m *mockState) ProposalGet(id [32]byte) (*Proposal, bool) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (m *mockState) ProposalPut(p *Proposal) error {
	sanitized, err := SanitizeProposal(p)
	if err != nil {
		return err
	}
	m.proposals[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) PredictionGet(id [32]byte) (*UserPrediction, bool) {
	p, ok := m.predictions[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (m *mockState) PredictionPut(p *UserPrediction) error {
	sanitized, err := SanitizePrediction(p)
	if err != nil {
		return err
	}
	m.predictions[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) MarketVaultAddress() ([20]byte, error) { return m.vault, nil }

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	acc, ok := m.accounts[key]
	if !ok {
		return types.NewAccount(), nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	acc, _ := m.GetAccount(addr[:])
	acc.Balance = new(big.Int).Add(acc.Balance, big.NewInt(amount))
	m.accounts[addr] = acc
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acc, _ := m.GetAccount(addr[:])
	return acc.Balance
}

func newTestEngine(state *mockState, now int64) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return now })
	return engine
}

func TestInitializeLedgerOnce(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 100)
	owner := newTestAddress(0x01)

	ledger, err := engine.InitializeLedger(owner)
	if err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	if ledger.Owner != owner {
		t.Fatalf("unexpected ledger owner")
	}
	if ledger.CreatedAt != 100 {
		t.Fatalf("unexpected creation time %d", ledger.CreatedAt)
	}

	state.fund(state.vault, 50)
	if _, err := engine.InitializeLedger(newTestAddress(0x02)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if state.ledger.Owner != owner {
		t.Fatalf("failed re-initialization must not change the owner")
	}
	if state.balance(state.vault).Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("failed re-initialization must not touch the pool")
	}
}

func TestCreditAuthorizationAndBalance(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 100)
	owner := newTestAddress(0x01)
	stranger := newTestAddress(0x02)
	state.fund(owner, 1_000)
	state.fund(stranger, 1_000)

	if _, err := engine.Credit(owner, big.NewInt(10)); !errors.Is(err, ErrLedgerNotInitialized) {
		t.Fatalf("expected ErrLedgerNotInitialized, got %v", err)
	}
	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	if _, err := engine.Credit(stranger, big.NewInt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if state.balance(state.vault).Sign() != 0 {
		t.Fatalf("rejected credit must not move funds")
	}

	pool, err := engine.Credit(owner, big.NewInt(400))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if pool.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected pool balance 400, got %s", pool)
	}
	if state.balance(owner).Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected owner balance 600, got %s", state.balance(owner))
	}

	if _, err := engine.Credit(owner, big.NewInt(601)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := engine.Credit(owner, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if state.balance(state.vault).Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("failed credits must leave the pool unchanged")
	}
}

func TestCreateProposalDefaults(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	authority := newTestAddress(0x03)

	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if proposal.Authority != authority || proposal.Coin != "DOGE" {
		t.Fatalf("proposal fields do not match arguments")
	}
	if proposal.Price.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("unexpected reference price %s", proposal.Price)
	}
	if proposal.PriceOnExpiry.Sign() != 0 {
		t.Fatalf("new proposal must have zero settlement price")
	}
	if proposal.Settled {
		t.Fatalf("new proposal must not be settled")
	}
	if proposal.Expiry != 5_000 {
		t.Fatalf("unexpected expiry %d", proposal.Expiry)
	}

	// Identical parameters must still yield a distinct proposal because the
	// authority nonce advances.
	second, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create second proposal: %v", err)
	}
	if second.ID == proposal.ID {
		t.Fatalf("proposal identifiers must be unique per creation")
	}

	// Creating an already-expired proposal is allowed.
	expired, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 10)
	if err != nil {
		t.Fatalf("create expired proposal: %v", err)
	}
	if expired.Expiry != 10 {
		t.Fatalf("unexpected expiry %d", expired.Expiry)
	}
}

func TestStakeLifecycle(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	owner := newTestAddress(0x01)
	authority := newTestAddress(0x03)
	user := newTestAddress(0x04)
	state.fund(user, 500)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	prediction, err := engine.Stake(proposal.ID, user, true, big.NewInt(200))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if !prediction.GoLong || prediction.Amount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("prediction fields do not match arguments")
	}
	if prediction.Resolved {
		t.Fatalf("new prediction must not be resolved")
	}
	if prediction.ID != PredictionID(proposal.ID, user) {
		t.Fatalf("prediction key must be derived from proposal and user")
	}
	if state.balance(state.vault).Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected pool balance 200, got %s", state.balance(state.vault))
	}
	if state.balance(user).Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected user balance 300, got %s", state.balance(user))
	}

	if _, err := engine.Stake(proposal.ID, user, false, big.NewInt(50)); !errors.Is(err, ErrPredictionAlreadyExists) {
		t.Fatalf("expected ErrPredictionAlreadyExists, got %v", err)
	}
	if state.balance(user).Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("rejected stake must not move funds")
	}
	stored, _ := state.PredictionGet(prediction.ID)
	if !stored.GoLong || stored.Amount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("rejected stake must not overwrite the first record")
	}
}

func TestStakeGates(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	owner := newTestAddress(0x01)
	authority := newTestAddress(0x03)
	user := newTestAddress(0x04)
	state.fund(user, 500)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}

	if _, err := engine.Stake(newTestAddressHash(0x99), user, true, big.NewInt(10)); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}

	expired, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 900)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(expired.ID, user, true, big.NewInt(10)); !errors.Is(err, ErrProposalHasExpired) {
		t.Fatalf("expected ErrProposalHasExpired, got %v", err)
	}
	if _, ok := state.PredictionGet(PredictionID(expired.ID, user)); ok {
		t.Fatalf("expired stake must not create a record")
	}
	if state.balance(user).Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expired stake must not move funds")
	}

	// A proposal expiring exactly now is closed to new stakes.
	boundary, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 1_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(boundary.ID, user, true, big.NewInt(10)); !errors.Is(err, ErrProposalHasExpired) {
		t.Fatalf("expected ErrProposalHasExpired at the boundary, got %v", err)
	}

	open, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(open.ID, user, true, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.Stake(open.ID, user, true, big.NewInt(501)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if _, err := engine.Settle(open.ID, authority, big.NewInt(3_000)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := engine.Stake(open.ID, user, true, big.NewInt(10)); !errors.Is(err, ErrProposalAlreadySettled) {
		t.Fatalf("expected ErrProposalAlreadySettled, got %v", err)
	}
}

func newTestAddressHash(fill byte) [32]byte {
	var id [32]byte
	copy(id[:], bytes.Repeat([]byte{fill}, 32))
	return id
}

func TestSettleOnce(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	authority := newTestAddress(0x03)
	stranger := newTestAddress(0x05)

	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	if _, err := engine.Settle(proposal.ID, stranger, big.NewInt(3_220)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	settled, err := engine.Settle(proposal.ID, authority, big.NewInt(3_220))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !settled.Settled {
		t.Fatalf("proposal must be settled")
	}
	if settled.PriceOnExpiry.Cmp(big.NewInt(3_220)) != 0 {
		t.Fatalf("unexpected settlement price %s", settled.PriceOnExpiry)
	}

	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(9_999)); !errors.Is(err, ErrProposalAlreadySettled) {
		t.Fatalf("expected ErrProposalAlreadySettled, got %v", err)
	}
	stored, _ := state.ProposalGet(proposal.ID)
	if stored.PriceOnExpiry.Cmp(big.NewInt(3_220)) != 0 || !stored.Settled {
		t.Fatalf("second settle must not change the recorded outcome")
	}
}

func TestSettleBeforeExpiryAllowed(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	authority := newTestAddress(0x03)

	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 999_999)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(100)); err != nil {
		t.Fatalf("pre-expiry settlement must be allowed: %v", err)
	}
}

func TestResolvePaysWinnersOnce(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	owner := newTestAddress(0x01)
	authority := newTestAddress(0x03)
	long := newTestAddress(0x04)
	short := newTestAddress(0x05)
	state.fund(owner, 100)
	state.fund(long, 10)
	state.fund(short, 10)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	if _, err := engine.Credit(owner, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(proposal.ID, long, true, big.NewInt(1)); err != nil {
		t.Fatalf("stake long: %v", err)
	}
	if _, err := engine.Stake(proposal.ID, short, false, big.NewInt(1)); err != nil {
		t.Fatalf("stake short: %v", err)
	}

	if _, _, err := engine.Resolve(proposal.ID, long, authority); !errors.Is(err, ErrProposalNotSettled) {
		t.Fatalf("expected ErrProposalNotSettled, got %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(3_220)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, _, err := engine.Resolve(proposal.ID, long, newTestAddress(0x07)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	poolBefore := new(big.Int).Set(state.balance(state.vault))

	won, payout, err := engine.Resolve(proposal.ID, long, authority)
	if err != nil {
		t.Fatalf("resolve long: %v", err)
	}
	if !won || payout.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("long bettor must win exactly 2, got won=%v payout=%s", won, payout)
	}
	if state.balance(long).Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("expected long balance 11, got %s", state.balance(long))
	}
	wantPool := new(big.Int).Sub(poolBefore, big.NewInt(2))
	if state.balance(state.vault).Cmp(wantPool) != 0 {
		t.Fatalf("expected pool %s, got %s", wantPool, state.balance(state.vault))
	}

	won, payout, err = engine.Resolve(proposal.ID, short, authority)
	if err != nil {
		t.Fatalf("resolve short: %v", err)
	}
	if won || payout.Sign() != 0 {
		t.Fatalf("short bettor must not be paid, got won=%v payout=%s", won, payout)
	}
	if state.balance(short).Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("expected short balance 9, got %s", state.balance(short))
	}
	if state.balance(state.vault).Cmp(wantPool) != 0 {
		t.Fatalf("losing resolution must not move pool funds")
	}

	for _, user := range [][20]byte{long, short} {
		stored, _ := state.PredictionGet(PredictionID(proposal.ID, user))
		if !stored.Resolved {
			t.Fatalf("prediction must be resolved")
		}
	}

	// Repeated resolution must fail without moving any balance.
	longBefore := new(big.Int).Set(state.balance(long))
	if _, _, err := engine.Resolve(proposal.ID, long, authority); !errors.Is(err, ErrPredictionAlreadyResolved) {
		t.Fatalf("expected ErrPredictionAlreadyResolved, got %v", err)
	}
	if state.balance(long).Cmp(longBefore) != 0 || state.balance(state.vault).Cmp(wantPool) != 0 {
		t.Fatalf("repeated resolution must not move funds")
	}
}

func TestResolveTiePaysShortSide(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	owner := newTestAddress(0x01)
	authority := newTestAddress(0x03)
	long := newTestAddress(0x04)
	short := newTestAddress(0x05)
	state.fund(owner, 100)
	state.fund(long, 10)
	state.fund(short, 10)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	if _, err := engine.Credit(owner, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(proposal.ID, long, true, big.NewInt(3)); err != nil {
		t.Fatalf("stake long: %v", err)
	}
	if _, err := engine.Stake(proposal.ID, short, false, big.NewInt(3)); err != nil {
		t.Fatalf("stake short: %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(2_000)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	won, _, err := engine.Resolve(proposal.ID, long, authority)
	if err != nil {
		t.Fatalf("resolve long: %v", err)
	}
	if won {
		t.Fatalf("long side must lose an exact tie")
	}
	won, payout, err := engine.Resolve(proposal.ID, short, authority)
	if err != nil {
		t.Fatalf("resolve short: %v", err)
	}
	if !won || payout.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("short side must win an exact tie, got won=%v payout=%s", won, payout)
	}
}

func TestResolveInsufficientPool(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	owner := newTestAddress(0x01)
	authority := newTestAddress(0x03)
	user := newTestAddress(0x04)
	state.fund(user, 10)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	// The only pool funds are the user's own stake, so a 2x payout cannot be
	// covered.
	if _, err := engine.Stake(proposal.ID, user, true, big.NewInt(5)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(3_000)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, _, err := engine.Resolve(proposal.ID, user, authority); !errors.Is(err, ErrInsufficientPoolFunds) {
		t.Fatalf("expected ErrInsufficientPoolFunds, got %v", err)
	}
	stored, _ := state.PredictionGet(PredictionID(proposal.ID, user))
	if stored.Resolved {
		t.Fatalf("failed payout must leave the prediction unresolved")
	}
	if state.balance(user).Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("failed payout must not move funds")
	}
}

func TestResolveUnknownPrediction(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	authority := newTestAddress(0x03)

	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(3_000)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, _, err := engine.Resolve(proposal.ID, newTestAddress(0x09), authority); !errors.Is(err, ErrPredictionNotFound) {
		t.Fatalf("expected ErrPredictionNotFound, got %v", err)
	}
}

func TestCheckedArithmeticGates(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	owner := newTestAddress(0x01)
	user := newTestAddress(0x04)
	authority := newTestAddress(0x03)

	huge := new(big.Int).Lsh(big.NewInt(1), 64) // 2^64, beyond the accounting width
	halfPlus := new(big.Int).Rsh(huge, 1)       // 2^63, doubles past the width
	state.fund(owner, 1)
	state.fund(user, 1)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	if _, err := engine.Credit(owner, huge); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}

	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(proposal.ID, user, true, huge); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow for oversized stake, got %v", err)
	}
	if _, err := engine.Stake(proposal.ID, user, true, halfPlus); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow for unpayable stake, got %v", err)
	}
	if _, ok := state.PredictionGet(PredictionID(proposal.ID, user)); ok {
		t.Fatalf("rejected stake must not create a record")
	}

	if _, err := engine.CreateProposal(authority, "DOGE", huge, 5_000); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow for oversized price, got %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, huge); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow for oversized settlement price, got %v", err)
	}
}

type eventRecorder struct {
	types []string
}

func (r *eventRecorder) Emit(evt events.Event) {
	r.types = append(r.types, evt.EventType())
}

func TestEngineEmitsLifecycleEvents(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, 1_000)
	recorder := &eventRecorder{}
	engine.SetEmitter(recorder)

	owner := newTestAddress(0x01)
	authority := newTestAddress(0x03)
	user := newTestAddress(0x04)
	state.fund(owner, 100)
	state.fund(user, 10)

	if _, err := engine.InitializeLedger(owner); err != nil {
		t.Fatalf("initialize ledger: %v", err)
	}
	if _, err := engine.Credit(owner, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	proposal, err := engine.CreateProposal(authority, "DOGE", big.NewInt(2_000), 5_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := engine.Stake(proposal.ID, user, true, big.NewInt(1)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := engine.Settle(proposal.ID, authority, big.NewInt(3_220)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, _, err := engine.Resolve(proposal.ID, user, authority); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []string{
		EventTypeLedgerInitialized,
		EventTypeLedgerCredited,
		EventTypeProposalCreated,
		EventTypePredictionStaked,
		EventTypeProposalSettled,
		EventTypePredictionResolved,
	}
	if len(recorder.types) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(recorder.types))
	}
	for i, eventType := range want {
		if recorder.types[i] != eventType {
			t.Fatalf("event %d: expected %s, got %s", i, eventType, recorder.types[i])
		}
	}
}
