package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/response"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

// EngineHandler serves /api/engine.
type EngineHandler struct {
	base
	engine *contracts.Engine
}

type engineWriteRequest struct {
	credentials
	TokenCollateralAddress string `json:"tokenCollateralAddress"`
	AmountCollateral       Amount `json:"amountCollateral"`
	AmountDscToMint        Amount `json:"amountDscToMint"`
	AmountDscToBurn        Amount `json:"amountDscToBurn"`
	Amount                 Amount `json:"amount"`
	Collateral             string `json:"collateral"`
	User                   string `json:"user"`
	DebtToCover            Amount `json:"debtToCover"`
}

type accountResponse struct {
	User string `json:"user"`
	*contracts.AccountData
}

func (h *EngineHandler) bind(id *signer.Identity, creds credentials) *contracts.Engine {
	e := h.engine.WithSigner(id)
	if creds.EstimateOnly {
		e = e.EstimateOnly()
	}
	return e
}

// Account returns the position of ?user=.
func (h *EngineHandler) Account(w http.ResponseWriter, r *http.Request) {
	user, ok := queryAddress(w, r, "user", "User address parameter is required", "Invalid Ethereum address format")
	if !ok {
		return
	}
	data, err := h.engine.AccountData(r.Context(), common.HexToAddress(user))
	if err != nil {
		h.fail(w, r, err, "fetch account information")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(accountResponse{User: user, AccountData: data}))
}

// Collateral lists the accepted collateral tokens, or with ?token= the
// user's balance of that token and its price feed.
func (h *EngineHandler) Collateral(w http.ResponseWriter, r *http.Request) {
	user, ok := queryAddress(w, r, "user", "User address parameter is required", "Invalid user address format")
	if !ok {
		return
	}
	ctx := r.Context()

	if r.URL.Query().Get("token") == "" {
		tokens, err := h.engine.GetCollateralTokens(ctx)
		if err != nil {
			h.fail(w, r, err, "fetch collateral information")
			return
		}
		list := make([]string, 0, len(tokens))
		for _, t := range tokens {
			list = append(list, t.Hex())
		}
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
			"user":             user,
			"collateralTokens": list,
		}))
		return
	}

	token, ok := queryAddress(w, r, "token", "", "Invalid token address format")
	if !ok {
		return
	}
	balance, err := h.engine.GetCollateralBalanceOfUser(ctx, common.HexToAddress(user), common.HexToAddress(token))
	if err != nil {
		h.fail(w, r, err, "fetch collateral information")
		return
	}
	feed, err := h.engine.GetCollateralTokenPriceFeed(ctx, common.HexToAddress(token))
	if err != nil {
		h.fail(w, r, err, "fetch collateral information")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{
		"user":      user,
		"token":     token,
		"balance":   balance,
		"priceFeed": feed.Hex(),
	}))
}

// Price converts between a collateral token and USD through the engine's
// price feed. ?amount= gives the USD value, ?usdAmount= the token amount.
func (h *EngineHandler) Price(w http.ResponseWriter, r *http.Request) {
	token, ok := queryAddress(w, r, "token", "Token address parameter is required", "Invalid token address format")
	if !ok {
		return
	}
	q := r.URL.Query()
	amount, usdAmount := q.Get("amount"), q.Get("usdAmount")

	switch {
	case amount != "":
		if !validator.ValidateAmount(amount) {
			response.BadRequest(w, "Amount must be a positive number")
			return
		}
		usd, err := h.engine.GetUsdValue(r.Context(), common.HexToAddress(token), amount)
		if err != nil {
			h.fail(w, r, err, "fetch price information")
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{
			"token":    token,
			"amount":   amount,
			"usdValue": usd,
		}))
	case usdAmount != "":
		if !validator.ValidateAmount(usdAmount) {
			response.BadRequest(w, "USD amount must be a positive number")
			return
		}
		tokens, err := h.engine.GetTokenAmountFromUsd(r.Context(), common.HexToAddress(token), usdAmount)
		if err != nil {
			h.fail(w, r, err, "fetch price information")
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{
			"token":       token,
			"usdAmount":   usdAmount,
			"tokenAmount": tokens,
		}))
	default:
		response.BadRequest(w, "amount or usdAmount parameter is required")
	}
}

// Deposit deposits collateral that the engine is already approved to pull.
func (h *EngineHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "tokenCollateralAddress", "amountCollateral") {
		return
	}
	token, err := validator.FormatAddress(req.TokenCollateralAddress)
	if err != nil {
		response.BadRequest(w, "Invalid collateral token address format")
		return
	}
	if !validator.ValidateAmount(req.AmountCollateral) {
		response.BadRequest(w, "Collateral amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).DepositCollateral(r.Context(), common.HexToAddress(token), req.AmountCollateral.String())
	if err != nil {
		h.fail(w, r, err, "deposit collateral")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		TokenCollateralAddress: token,
		AmountCollateral:       req.AmountCollateral.String(),
		TransactionResult:      res,
	}))
}

// Mint mints DSC against the signer's deposited collateral.
func (h *EngineHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "amountDscToMint") {
		return
	}
	if !validator.ValidateAmount(req.AmountDscToMint) {
		response.BadRequest(w, "Amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).MintDSC(r.Context(), req.AmountDscToMint.String())
	if err != nil {
		h.fail(w, r, err, "mint DSC")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		AmountDscToMint:   req.AmountDscToMint.String(),
		TransactionResult: res,
	}))
}

// DepositAndMint deposits collateral and mints DSC in one transaction.
func (h *EngineHandler) DepositAndMint(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "tokenCollateralAddress", "amountCollateral", "amountDscToMint") {
		return
	}
	token, err := validator.FormatAddress(req.TokenCollateralAddress)
	if err != nil {
		response.BadRequest(w, "Invalid collateral token address format")
		return
	}
	if !validator.ValidateAmount(req.AmountCollateral) {
		response.BadRequest(w, "Collateral amount must be a positive number")
		return
	}
	if !validator.ValidateAmount(req.AmountDscToMint) {
		response.BadRequest(w, "DSC amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).DepositCollateralAndMintDSC(r.Context(),
		common.HexToAddress(token), req.AmountCollateral.String(), req.AmountDscToMint.String())
	if err != nil {
		h.fail(w, r, err, "deposit collateral and mint DSC")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		TokenCollateralAddress: token,
		AmountCollateral:       req.AmountCollateral.String(),
		AmountDscToMint:        req.AmountDscToMint.String(),
		TransactionResult:      res,
	}))
}

// Redeem withdraws collateral, subject to the health factor staying above
// the minimum.
func (h *EngineHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "tokenCollateralAddress", "amountCollateral") {
		return
	}
	token, err := validator.FormatAddress(req.TokenCollateralAddress)
	if err != nil {
		response.BadRequest(w, "Invalid collateral token address format")
		return
	}
	if !validator.ValidateAmount(req.AmountCollateral) {
		response.BadRequest(w, "Amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).RedeemCollateral(r.Context(), common.HexToAddress(token), req.AmountCollateral.String())
	if err != nil {
		h.fail(w, r, err, "redeem collateral")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		TokenCollateralAddress: token,
		AmountCollateral:       req.AmountCollateral.String(),
		TransactionResult:      res,
	}))
}

// Burn repays DSC debt.
func (h *EngineHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
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

	res, err := h.bind(id, req.credentials).BurnDSC(r.Context(), req.Amount.String())
	if err != nil {
		h.fail(w, r, err, "burn DSC")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		Amount:            req.Amount.String(),
		TransactionResult: res,
	}))
}

// RedeemAndBurn burns DSC and redeems collateral in one transaction.
func (h *EngineHandler) RedeemAndBurn(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "tokenCollateralAddress", "amountCollateral", "amountDscToBurn") {
		return
	}
	token, err := validator.FormatAddress(req.TokenCollateralAddress)
	if err != nil {
		response.BadRequest(w, "Invalid collateral token address format")
		return
	}
	if !validator.ValidateAmount(req.AmountCollateral) {
		response.BadRequest(w, "Collateral amount must be a positive number")
		return
	}
	if !validator.ValidateAmount(req.AmountDscToBurn) {
		response.BadRequest(w, "DSC amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).RedeemCollateralForDSC(r.Context(),
		common.HexToAddress(token), req.AmountCollateral.String(), req.AmountDscToBurn.String())
	if err != nil {
		h.fail(w, r, err, "redeem collateral and burn DSC")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		TokenCollateralAddress: token,
		AmountCollateral:       req.AmountCollateral.String(),
		AmountDscToBurn:        req.AmountDscToBurn.String(),
		TransactionResult:      res,
	}))
}

// Liquidate covers debtToCover of an undercollateralised user's debt in
// exchange for their collateral plus a bonus.
func (h *EngineHandler) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req engineWriteRequest
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, "collateral", "user", "debtToCover") {
		return
	}
	collateral, err := validator.FormatAddress(req.Collateral)
	if err != nil {
		response.BadRequest(w, "Invalid collateral token address format")
		return
	}
	user, err := validator.FormatAddress(req.User)
	if err != nil {
		response.BadRequest(w, "Invalid user address format")
		return
	}
	if !validator.ValidateAmount(req.DebtToCover) {
		response.BadRequest(w, "Debt to cover must be a positive number")
		return
	}
	id, ok := h.identity(w, req.credentials)
	if !ok {
		return
	}

	res, err := h.bind(id, req.credentials).Liquidate(r.Context(),
		common.HexToAddress(collateral), common.HexToAddress(user), req.DebtToCover.String())
	if err != nil {
		h.fail(w, r, err, "liquidate position")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(engineTxData{
		Collateral:        collateral,
		User:              user,
		DebtToCover:       req.DebtToCover.String(),
		TransactionResult: res,
	}))
}
