package market

import "errors"

// Sentinel errors surfaced by the engine. Every failure aborts the whole
// operation with no partial state change; callers match with errors.Is. The
// four lifecycle errors keep the wire messages clients already display.
var (
	ErrAlreadyInitialized    = errors.New("market: escrow ledger already initialized")
	ErrLedgerNotInitialized  = errors.New("market: escrow ledger not initialized")
	ErrUnauthorized          = errors.New("market: caller not authorized")
	ErrInvalidAmount         = errors.New("market: amount must be positive")
	ErrInsufficientFunds     = errors.New("market: insufficient funds")
	ErrInsufficientPoolFunds = errors.New("market: pool balance insufficient for payout")
	ErrProposalNotFound      = errors.New("market: proposal not found")
	ErrPredictionNotFound    = errors.New("market: prediction not found")
	ErrArithmeticOverflow    = errors.New("market: arithmetic overflow")

	ErrProposalHasExpired        = errors.New("Proposal has expired and it's not possible to add predictions")
	ErrProposalAlreadySettled    = errors.New("Proposal has already been settled")
	ErrProposalNotSettled        = errors.New("Proposal has not been settled yet")
	ErrPredictionAlreadyExists   = errors.New("Prediction already exists for this proposal and user")
	ErrPredictionAlreadyResolved = errors.New("Prediction has already been resolved")
)
