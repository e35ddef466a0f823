package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"predmarket/crypto"
	"predmarket/native/market"
)

const (
	codeMarketInvalidParams = -32061
	codeMarketNotFound      = -32062
	codeMarketForbidden     = -32063
	codeMarketConflict      = -32064
	codeMarketInsufficient  = -32065
	codeMarketInternal      = -32066
)

type initializeLedgerParams struct {
	Owner string `json:"owner"`
}

type creditParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type createProposalParams struct {
	Authority string `json:"authority"`
	Coin      string `json:"coin"`
	Price     string `json:"price"`
	Expiry    int64  `json:"expiry"`
}

type stakeParams struct {
	ProposalID string `json:"proposalId"`
	User       string `json:"user"`
	GoLong     bool   `json:"goLong"`
	Amount     string `json:"amount"`
}

type settleParams struct {
	ProposalID string `json:"proposalId"`
	Caller     string `json:"caller"`
	FinalPrice string `json:"finalPrice"`
}

type resolveParams struct {
	ProposalID string `json:"proposalId"`
	User       string `json:"user"`
	Caller     string `json:"caller"`
}

type getProposalParams struct {
	ID string `json:"id"`
}

type getPredictionParams struct {
	ProposalID string `json:"proposalId"`
	User       string `json:"user"`
}

type ledgerJSON struct {
	Owner       string `json:"owner"`
	CreatedAt   int64  `json:"createdAt"`
	PoolBalance string `json:"poolBalance"`
}

type proposalJSON struct {
	ID            string `json:"id"`
	Authority     string `json:"authority"`
	Coin          string `json:"coin"`
	Price         string `json:"price"`
	PriceOnExpiry string `json:"priceOnExpiry"`
	Expiry        int64  `json:"expiry"`
	Settled       bool   `json:"settled"`
	CreatedAt     int64  `json:"createdAt"`
}

type predictionJSON struct {
	ID         string `json:"id"`
	ProposalID string `json:"proposalId"`
	User       string `json:"user"`
	GoLong     bool   `json:"goLong"`
	Amount     string `json:"amount"`
	Resolved   bool   `json:"resolved"`
	CreatedAt  int64  `json:"createdAt"`
}

type creditResult struct {
	PoolBalance string `json:"poolBalance"`
}

type stakeResult struct {
	PredictionID string `json:"predictionId"`
}

type resolveResult struct {
	Won      bool   `json:"won"`
	Payout   string `json:"payout"`
	Resolved bool   `json:"resolved"`
}

func proposalToJSON(p *market.Proposal) proposalJSON {
	return proposalJSON{
		ID:            "0x" + hex.EncodeToString(p.ID[:]),
		Authority:     crypto.NewAddress(p.Authority[:]).String(),
		Coin:          p.Coin,
		Price:         p.Price.String(),
		PriceOnExpiry: p.PriceOnExpiry.String(),
		Expiry:        p.Expiry,
		Settled:       p.Settled,
		CreatedAt:     p.CreatedAt,
	}
}

func predictionToJSON(p *market.UserPrediction) predictionJSON {
	return predictionJSON{
		ID:         "0x" + hex.EncodeToString(p.ID[:]),
		ProposalID: "0x" + hex.EncodeToString(p.ProposalID[:]),
		User:       crypto.NewAddress(p.Authority[:]).String(),
		GoLong:     p.GoLong,
		Amount:     p.Amount.String(),
		Resolved:   p.Resolved,
		CreatedAt:  p.CreatedAt,
	}
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, errors.New("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("invalid amount")
	}
	if amount.Sign() < 0 {
		return nil, errors.New("amount must not be negative")
	}
	return amount, nil
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return out, errors.New("identifier required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, errors.New("invalid identifier")
	}
	if len(decoded) != 32 {
		return out, errors.New("identifier must be 32 bytes")
	}
	copy(out[:], decoded)
	return out, nil
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

// writeMarketError maps engine sentinels to stable JSON-RPC codes.
func writeMarketError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, market.ErrProposalNotFound), errors.Is(err, market.ErrPredictionNotFound):
		writeError(w, http.StatusNotFound, id, codeMarketNotFound, "not_found", err.Error())
	case errors.Is(err, market.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeMarketForbidden, "forbidden", err.Error())
	case errors.Is(err, market.ErrAlreadyInitialized),
		errors.Is(err, market.ErrLedgerNotInitialized),
		errors.Is(err, market.ErrProposalAlreadySettled),
		errors.Is(err, market.ErrProposalNotSettled),
		errors.Is(err, market.ErrProposalHasExpired),
		errors.Is(err, market.ErrPredictionAlreadyExists),
		errors.Is(err, market.ErrPredictionAlreadyResolved):
		writeError(w, http.StatusConflict, id, codeMarketConflict, "conflict", err.Error())
	case errors.Is(err, market.ErrInsufficientFunds), errors.Is(err, market.ErrInsufficientPoolFunds):
		writeError(w, http.StatusUnprocessableEntity, id, codeMarketInsufficient, "insufficient_funds", err.Error())
	case errors.Is(err, market.ErrInvalidAmount), errors.Is(err, market.ErrArithmeticOverflow):
		writeError(w, http.StatusBadRequest, id, codeMarketInvalidParams, "invalid_params", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeMarketInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleInitializeLedger(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params initializeLedgerParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	ledger, err := s.engine.InitializeLedger(owner)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ledgerJSON{
		Owner:       crypto.NewAddress(ledger.Owner[:]).String(),
		CreatedAt:   ledger.CreatedAt,
		PoolBalance: "0",
	})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params creditParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	pool, err := s.engine.Credit(caller, amount)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, creditResult{PoolBalance: pool.String()})
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params createProposalParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	authority, err := parseAddress(params.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	coin := strings.TrimSpace(params.Coin)
	if coin == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "coin required")
		return
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposal, err := s.engine.CreateProposal(authority, coin, price, params.Expiry)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params stakeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposalID, err := parseHash(params.ProposalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	user, err := parseAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	prediction, err := s.engine.Stake(proposalID, user, params.GoLong, amount)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeResult{PredictionID: "0x" + hex.EncodeToString(prediction.ID[:])})
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params settleParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposalID, err := parseHash(params.ProposalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	finalPrice, err := parseAmount(params.FinalPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposal, err := s.engine.Settle(proposalID, caller, finalPrice)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params resolveParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposalID, err := parseHash(params.ProposalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	user, err := parseAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	won, payout, err := s.engine.Resolve(proposalID, user, caller)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, resolveResult{Won: won, Payout: payout.String(), Resolved: true})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, req *RPCRequest) {
	var params getProposalParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposal, ok := s.state.ProposalGet(id)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", "proposal not found")
		return
	}
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, req *RPCRequest) {
	var params getPredictionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposalID, err := parseHash(params.ProposalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	user, err := parseAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	prediction, ok := s.state.PredictionGet(market.PredictionID(proposalID, user))
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", "prediction not found")
		return
	}
	writeResult(w, req.ID, predictionToJSON(prediction))
}

func (s *Server) handleGetLedger(w http.ResponseWriter, req *RPCRequest) {
	ledger, ok := s.state.LedgerGet()
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", "escrow ledger not initialized")
		return
	}
	vault, err := s.state.MarketVaultAddress()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeMarketInternal, "internal_error", err.Error())
		return
	}
	account, err := s.state.GetAccount(vault[:])
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeMarketInternal, "internal_error", err.Error())
		return
	}
	writeResult(w, req.ID, ledgerJSON{
		Owner:       crypto.NewAddress(ledger.Owner[:]).String(),
		CreatedAt:   ledger.CreatedAt,
		PoolBalance: account.Balance.String(),
	})
}
