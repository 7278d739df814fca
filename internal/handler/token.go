package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/response"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

// TokenHandler serves /api/token.
type TokenHandler struct {
	base
	token *contracts.Token
}

type tokenWriteRequest struct {
	credentials
	To      string `json:"to"`
	Spender string `json:"spender"`
	Amount  Amount `json:"amount"`
}

func (h *TokenHandler) bind(id *signer.Identity, creds credentials) *contracts.Token {
	t := h.token.WithSigner(id)
	if creds.EstimateOnly {
		t = t.EstimateOnly()
	}
	return t
}

// Info returns the token metadata and owner.
func (h *TokenHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.token.Info(r.Context())
	if err != nil {
		h.fail(w, r, err, "fetch token information")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(info))
}

// Balance returns the DSC balance of ?address=.
func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	address, ok := queryAddress(w, r, "address", "Address parameter is required", "Invalid Ethereum address format")
	if !ok {
		return
	}
	ctx := r.Context()
	balance, err := h.token.BalanceOf(ctx, common.HexToAddress(address))
	if err != nil {
		h.fail(w, r, err, "fetch balance")
		return
	}
	symbol, err := h.token.Symbol(ctx)
	if err != nil {
		h.fail(w, r, err, "fetch balance")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{
		"address": address,
		"balance": balance,
		"symbol":  symbol,
	}))
}

// Allowance returns what ?spender= may still spend of ?owner='s DSC.
func (h *TokenHandler) Allowance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("owner") == "" || q.Get("spender") == "" {
		response.BadRequest(w, "Both owner and spender parameters are required")
		return
	}
	owner, err1 := validator.FormatAddress(q.Get("owner"))
	spender, err2 := validator.FormatAddress(q.Get("spender"))
	if err1 != nil || err2 != nil {
		response.BadRequest(w, "Invalid Ethereum address format")
		return
	}
	allowance, err := h.token.Allowance(r.Context(), common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		h.fail(w, r, err, "fetch allowance")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{
		"owner":     owner,
		"spender":   spender,
		"allowance": allowance,
	}))
}

// Mint mints amount DSC to the recipient. Only the owner may mint.
func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req tokenWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "to", "amount") {
		return
	}
	to, err := validator.FormatAddress(req.To)
	if err != nil {
		response.BadRequest(w, "Invalid recipient address format")
		return
	}
	if !validator.ValidateAmount(req.Amount) {
		response.BadRequest(w, "Amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).Mint(r.Context(), common.HexToAddress(to), req.Amount.String())
	if err != nil {
		h.fail(w, r, err, "mint tokens")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(tokenTxData{
		Recipient:         to,
		Amount:            req.Amount.String(),
		TransactionResult: res,
	}))
}

// Burn burns amount of the signer's DSC.
func (h *TokenHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var req tokenWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "amount") {
		return
	}
	if !validator.ValidateAmount(req.Amount) {
		response.BadRequest(w, "Amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).Burn(r.Context(), req.Amount.String())
	if err != nil {
		h.fail(w, r, err, "burn tokens")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(tokenTxData{
		Amount:            req.Amount.String(),
		TransactionResult: res,
	}))
}

// Transfer sends amount DSC from the signer to the recipient.
func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req tokenWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "to", "amount") {
		return
	}
	to, err := validator.FormatAddress(req.To)
	if err != nil {
		response.BadRequest(w, "Invalid recipient address format")
		return
	}
	if !validator.ValidateAmount(req.Amount) {
		response.BadRequest(w, "Amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).Transfer(r.Context(), common.HexToAddress(to), req.Amount.String())
	if err != nil {
		h.fail(w, r, err, "transfer tokens")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(tokenTxData{
		Recipient:         to,
		Amount:            req.Amount.String(),
		TransactionResult: res,
	}))
}

// Approve sets the spender's allowance. Zero revokes it.
func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req tokenWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "spender", "amount") {
		return
	}
	spender, err := validator.FormatAddress(req.Spender)
	if err != nil {
		response.BadRequest(w, "Invalid spender address format")
		return
	}
	if !validator.ValidateNonNegativeAmount(req.Amount) {
		response.BadRequest(w, "Amount must be a non-negative number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).Approve(r.Context(), common.HexToAddress(spender), req.Amount.String())
	if err != nil {
		h.fail(w, r, err, "approve tokens")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(tokenTxData{
		Spender:           spender,
		Amount:            req.Amount.String(),
		TransactionResult: res,
	}))
}

// RenounceOwnership gives up ownership of the token. After this nobody can
// mint.
func (h *TokenHandler) RenounceOwnership(w http.ResponseWriter, r *http.Request) {
	var req credentials
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body) {
		return
	}
	id, ok := h.identity(w, req)
	if !ok {
		return
	}

	res, err := h.bind(id, req).RenounceOwnership(r.Context())
	if err != nil {
		h.fail(w, r, err, "renounce ownership")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(res))
}
