package handler

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/response"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

// WrappedHandler serves /api/weth and /api/wbtc. Field names follow the
// asset: "ethAmount" and "wethAmount" for wETH, "btcAmount" and
// "wbtcAmount" for wBTC.
type WrappedHandler struct {
	base
	collateral *contracts.Collateral
	dsc        *contracts.Token

	cfg     contracts.AssetConfig
	native  string
	wrapped string
}

func newWrappedHandler(b base, collateral *contracts.Collateral, dsc *contracts.Token) *WrappedHandler {
	cfg := collateral.Asset().Config()
	return &WrappedHandler{
		base:       b,
		collateral: collateral,
		dsc:        dsc,
		cfg:        cfg,
		native:     strings.ToLower(cfg.NativeSymbol),
		wrapped:    strings.ToLower(cfg.Symbol),
	}
}

type wrappedWriteRequest struct {
	credentials
	To      string `json:"to"`
	Spender string `json:"spender"`
	Amount  Amount `json:"amount"`
}

func (h *WrappedHandler) asset(id *signer.Identity, creds credentials) *contracts.WrappedAsset {
	a := h.collateral.Asset().WithSigner(id)
	if creds.EstimateOnly {
		a = a.EstimateOnly()
	}
	return a
}

// pair reads e.g. "ETH to wETH".
func (h *WrappedHandler) pair() string {
	return h.cfg.NativeSymbol + " to " + h.cfg.Symbol
}

// Info returns the token metadata, or with ?address= that account's native
// and wrapped balances alongside it.
func (h *WrappedHandler) Info(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asset := h.collateral.Asset()
	operation := "fetch " + h.cfg.Symbol + " information"

	if r.URL.Query().Get("address") == "" {
		md, err := asset.Metadata(ctx)
		if err != nil {
			h.fail(w, r, err, operation)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK(md))
		return
	}

	address, ok := queryAddress(w, r, "address", "", "Invalid address format")
	if !ok {
		return
	}
	md, err := asset.Metadata(ctx)
	if err != nil {
		h.fail(w, r, err, operation)
		return
	}
	bal, err := asset.Balances(ctx, common.HexToAddress(address))
	if err != nil {
		h.fail(w, r, err, operation)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
		"userAddress": address,
		"balances": map[string]string{
			h.native:  bal.Native,
			h.wrapped: bal.Wrapped,
		},
		"token": map[string]any{
			"name":            md.Name,
			"symbol":          md.Symbol,
			"decimals":        md.Decimals,
			"contractAddress": md.ContractAddress,
		},
	}))
}

// Wrap deposits native currency and mints the wrapped token 1:1.
func (h *WrappedHandler) Wrap(w http.ResponseWriter, r *http.Request) {
	field := h.native + "Amount"
	var req credentials
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, field) {
		return
	}
	amount := fieldAmount(body, field)
	if !validator.ValidateAmount(amount) {
		response.BadRequest(w, h.cfg.NativeSymbol+" amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req)
	if !ok {
		return
	}

	asset := h.asset(id, req)
	res, err := asset.Deposit(r.Context(), amount.String())
	if err != nil {
		h.fail(w, r, err, "wrap "+h.pair())
		return
	}
	data := map[string]any{h.native + "AmountWrapped": amount.String()}
	h.respondWithBalances(w, r, asset, id, data, res, "wrap "+h.pair())
}

// Unwrap burns the wrapped token and returns the native currency.
func (h *WrappedHandler) Unwrap(w http.ResponseWriter, r *http.Request) {
	field := h.wrapped + "Amount"
	var req credentials
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, field) {
		return
	}
	amount := fieldAmount(body, field)
	if !validator.ValidateAmount(amount) {
		response.BadRequest(w, h.cfg.Symbol+" amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req)
	if !ok {
		return
	}

	asset := h.asset(id, req)
	res, err := asset.Withdraw(r.Context(), amount.String())
	if err != nil {
		h.fail(w, r, err, "unwrap "+h.cfg.Symbol+" to "+h.cfg.NativeSymbol)
		return
	}
	data := map[string]any{h.wrapped + "AmountUnwrapped": amount.String()}
	h.respondWithBalances(w, r, asset, id, data, res, "unwrap "+h.cfg.Symbol+" to "+h.cfg.NativeSymbol)
}

func (h *WrappedHandler) respondWithBalances(w http.ResponseWriter, r *http.Request, asset *contracts.WrappedAsset,
	id *signer.Identity, data map[string]any, res *format.TransactionResult, operation string) {
	bal, err := asset.Balances(r.Context(), id.Address())
	if err != nil {
		h.fail(w, r, err, operation)
		return
	}
	data = withResult(data, res)
	data["userAddress"] = id.Address().Hex()
	balances := make(map[string]string, 2)
	balances["new"+h.cfg.NativeSymbol+"Balance"] = bal.Native
	balances["new"+strings.ToUpper(h.wrapped)+"Balance"] = bal.Wrapped
	data["balances"] = balances
	response.WriteJSON(w, http.StatusOK, response.OK(data))
}

// DepositAsCollateral wraps native currency, approves the engine and
// deposits the wrapped tokens as collateral.
func (h *WrappedHandler) DepositAsCollateral(w http.ResponseWriter, r *http.Request) {
	field := h.native + "Amount"
	var req credentials
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, field) {
		return
	}
	amount := fieldAmount(body, field)
	if !validator.ValidateAmount(amount) {
		response.BadRequest(w, h.cfg.NativeSymbol+" amount must be a positive number")
		return
	}
	id, ok := h.identity(w, req)
	if !ok {
		return
	}

	res, err := h.collateral.WithSigner(id).DepositAsCollateral(r.Context(), amount.String())
	if err != nil {
		h.fail(w, r, err, "complete "+h.pair()+" collateral deposit workflow")
		return
	}

	data := h.workflowData(res, amount.String(), false)
	data["workflow"] = h.cfg.NativeSymbol + " → " + h.cfg.Symbol + " → Collateral Deposit"
	response.WriteJSON(w, http.StatusOK, response.OK(data))
}

// DepositAndMint wraps native currency, approves the engine, then deposits
// the wrapped tokens and mints DSC in one engine call.
func (h *WrappedHandler) DepositAndMint(w http.ResponseWriter, r *http.Request) {
	field := h.native + "Amount"
	var req credentials
	body, ok := decode(w, r, &req)
	if !ok || !h.require(w, body, field, "dscToMint") {
		return
	}
	amount := fieldAmount(body, field)
	if !validator.ValidateAmount(amount) {
		response.BadRequest(w, h.cfg.NativeSymbol+" amount must be a positive number")
		return
	}
	dscToMint := fieldAmount(body, "dscToMint")
	if !validator.ValidateAmount(dscToMint) {
		response.BadRequest(w, "DSC amount to mint must be a positive number")
		return
	}
	id, ok := h.identity(w, req)
	if !ok {
		return
	}

	res, err := h.collateral.WithSigner(id).DepositAndMint(r.Context(), amount.String(), dscToMint.String())
	if err != nil {
		h.fail(w, r, err, "complete "+h.pair()+" collateral deposit and mint workflow")
		return
	}

	data := h.workflowData(res, amount.String(), true)
	data["workflow"] = h.cfg.NativeSymbol + " → " + h.cfg.Symbol + " → Collateral Deposit + DSC Mint"
	data["dscMinted"] = dscToMint.String()
	response.WriteJSON(w, http.StatusOK, response.OK(data))
}

func (h *WrappedHandler) workflowData(res *contracts.WorkflowResult, amount string, minted bool) map[string]any {
	steps := make(map[string]any, len(res.Steps))
	for _, s := range res.Steps {
		steps[s.Step] = map[string]string{
			"description":     s.Description,
			"transactionHash": s.TransactionHash,
			"gasUsed":         s.GasUsed,
		}
	}

	snapshot := func(s contracts.Snapshot) map[string]string {
		m := map[string]string{h.native: s.Native, h.wrapped: s.Wrapped}
		if minted {
			m["dsc"] = s.DSC
		}
		return m
	}
	balances := map[string]any{
		"before": snapshot(res.Before),
		"after":  snapshot(res.After),
	}

	account := map[string]string{
		"totalDscMinted":       res.Account.TotalDscMinted,
		"collateralValueInUsd": res.Account.CollateralValueInUsd,
	}
	account[h.wrapped+"CollateralDeposited"] = res.CollateralBalance

	addresses := map[string]string{"dscEngineAddress": h.collateral.Engine().Address().Hex()}
	addresses[h.wrapped+"Address"] = h.collateral.Asset().Address().Hex()

	if minted {
		changes := map[string]string{"dscReceived": res.DSCReceived()}
		changes[h.native+"Used"] = res.NativeUsed()
		changes[h.wrapped+"Collateral"] = res.CollateralBalance
		balances["changes"] = changes
		account["healthFactor"] = res.HealthFactor
		addresses["dscTokenAddress"] = h.dsc.Address().Hex()
	}

	data := map[string]any{
		"userAddress": res.User.Hex(),
		"steps":       steps,
		"balances":    balances,
		"dscAccount":  account,
		"contracts":   addresses,
	}
	data[h.native+"AmountProcessed"] = amount
	return data
}

// Approve sets an allowance on the wrapped token.
func (h *WrappedHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req wrappedWriteRequest
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

	res, err := h.asset(id, req.credentials).Approve(r.Context(), common.HexToAddress(spender), req.Amount.String())
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

// Transfer sends wrapped tokens from the signer.
func (h *WrappedHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req wrappedWriteRequest
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

	res, err := h.asset(id, req.credentials).Transfer(r.Context(), common.HexToAddress(to), req.Amount.String())
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

// withResult copies the transaction fields into data.
func withResult(data map[string]any, res *format.TransactionResult) map[string]any {
	if res.EstimatedGas != "" {
		data["estimatedGas"] = res.EstimatedGas
		return data
	}
	data["transactionHash"] = res.TransactionHash
	data["blockNumber"] = res.BlockNumber
	data["gasUsed"] = res.GasUsed
	data["status"] = res.Status
	data["confirmations"] = res.Confirmations
	return data
}
