package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xueqianLu/dscgateway/internal/cache"
	"github.com/xueqianLu/dscgateway/internal/chain/chaintest"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/metrics"
	"github.com/xueqianLu/dscgateway/internal/middleware"
	"github.com/xueqianLu/dscgateway/internal/signer"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	user       = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	other      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tokenAddr  = common.HexToAddress("0x2c3B2411D8BEeA449f3dfbdAA80bE8C290a159C3")
	engineAddr = common.HexToAddress("0x38febeed266b885a6d84f129463330f81f02df86")
	wethAddr   = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	wbtcAddr   = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fixture struct {
	token, engine, weth, wbtc *chaintest.Contract
	backend                   *chaintest.Backend
	handler                   http.Handler
}

func newFixture(t *testing.T, km signer.KeyManager, opts Options) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	f := &fixture{
		token: chaintest.NewContract(tokenAddr).
			SetResult("symbol", "DSC").
			SetResult("balanceOf", ether(0)),
		engine: chaintest.NewContract(engineAddr).
			SetResult("getAccountInformation", ether(100), ether(2000)).
			SetResult("getHealthFactor", ether(10)).
			SetResult("getAccountCollateralValued", ether(2000)).
			SetResult("getCollateralBalanceOfUser", ether(1)),
		weth: chaintest.NewContract(wethAddr).
			SetResult("name", "Wrapped Ether").
			SetResult("symbol", "WETH").
			SetResult("decimals", uint8(18)).
			SetResult("totalSupply", ether(50)).
			SetResult("balanceOf", ether(0)),
		wbtc:    chaintest.NewContract(wbtcAddr).SetResult("decimals", uint8(8)),
		backend: chaintest.NewBackend(),
	}
	f.backend.SetBalance(user, ether(10))

	meta := cache.NewMemory()
	token := contracts.NewToken(f.token, f.backend, meta)
	engine := contracts.NewEngine(f.engine, f.backend)
	svc := Services{
		Token:   token,
		Engine:  engine,
		WETH:    contracts.NewCollateral(contracts.NewWrappedAsset(contracts.WETH, f.weth, f.backend, meta), engine, token),
		WBTC:    contracts.NewCollateral(contracts.NewWrappedAsset(contracts.WBTC, f.wbtc, f.backend, meta), engine, token),
		Backend: f.backend,
		Signer:  signer.NewSigner(km, log),
	}
	f.handler = NewRouter(svc, opts, log)
	return f
}

func (f *fixture) callCount() int {
	return f.token.CallCount() + f.engine.CallCount() + f.weth.CallCount() + f.wbtc.CallCount()
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestWritesRequirePrivateKey(t *testing.T) {
	f := newFixture(t, nil, Options{})

	cases := []struct {
		path string
		body map[string]any
	}{
		{"/api/token/mint", map[string]any{"to": other.Hex(), "amount": "1"}},
		{"/api/token/approve", map[string]any{"spender": other.Hex(), "amount": "1"}},
		{"/api/token/renounce-ownership", map[string]any{}},
		{"/api/engine/deposit-and-mint", map[string]any{"tokenCollateralAddress": wethAddr.Hex(), "amountCollateral": "1", "amountDscToMint": "1"}},
		{"/api/engine/liquidate", map[string]any{"collateral": wethAddr.Hex(), "user": other.Hex(), "debtToCover": "1"}},
		{"/api/weth/wrap", map[string]any{"ethAmount": "1"}},
		{"/api/wbtc/deposit-and-mint", map[string]any{"btcAmount": "1", "dscToMint": "5"}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			code, out := f.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, "privateKey is required", out["error"])
		})
	}
	assert.Zero(t, f.callCount())
}

func TestMissingFieldNamedFirst(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/engine/redeem-and-burn", map[string]any{
		"tokenCollateralAddress": wethAddr.Hex(),
		"privateKey":             testKey,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "amountCollateral is required", out["error"])
}

func TestEngineAccount(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodGet, "/api/engine/account?user="+user.Hex(), nil)
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, user.Hex(), data["user"])
	assert.Equal(t, "100.0", data["totalDscMinted"])
	assert.Equal(t, "2000.0", data["collateralValueInUsd"])
	assert.Equal(t, "10.0", data["healthFactor"])
	assert.Equal(t, "2000.0", data["totalCollateralValueInUsd"])
}

func TestReadValidation(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodGet, "/api/engine/account", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User address parameter is required", out["error"])

	code, out = f.do(t, http.MethodGet, "/api/token/balance?address=0x123", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid Ethereum address format", out["error"])

	code, out = f.do(t, http.MethodGet, "/api/token/allowance?owner="+user.Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Both owner and spender parameters are required", out["error"])

	assert.Zero(t, f.callCount())
}

func TestTokenBalance(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.token.SetResult("balanceOf", ether(42))

	code, out := f.do(t, http.MethodGet, "/api/token/balance?address="+user.Hex(), nil)
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "42.0", data["balance"])
	assert.Equal(t, "DSC", data["symbol"])
}

func TestEngineCollateral(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.engine.SetResult("getCollateralTokens", []common.Address{wethAddr, wbtcAddr})
	f.engine.SetResult("getCollateralTokenPriceFeed", other)

	code, out := f.do(t, http.MethodGet, "/api/engine/collateral?user="+user.Hex(), nil)
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, []any{wethAddr.Hex(), wbtcAddr.Hex()}, data["collateralTokens"])

	code, out = f.do(t, http.MethodGet, "/api/engine/collateral?user="+user.Hex()+"&token="+wethAddr.Hex(), nil)
	require.Equal(t, http.StatusOK, code)
	data = out["data"].(map[string]any)
	assert.Equal(t, "1.0", data["balance"])
	assert.Equal(t, other.Hex(), data["priceFeed"])
}

func TestEnginePrice(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.engine.SetResult("getUsdValue", ether(4000))

	code, out := f.do(t, http.MethodGet, "/api/engine/price?token="+wethAddr.Hex()+"&amount=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "4000.0", out["data"].(map[string]any)["usdValue"])

	code, out = f.do(t, http.MethodGet, "/api/engine/price?token="+wethAddr.Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "amount or usdAmount parameter is required", out["error"])
}

func TestMintTokens(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/token/mint", map[string]any{
		"to":         other.Hex(),
		"amount":     5,
		"privateKey": testKey,
	})
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, other.Hex(), data["recipient"])
	assert.Equal(t, "5", data["amount"])
	assert.Equal(t, "25000", data["gasUsed"])
	assert.Equal(t, float64(1), data["status"])
	assert.NotEmpty(t, data["transactionHash"])

	calls := f.token.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, user, calls[0].From)
	assert.Equal(t, []any{other, ether(5)}, calls[0].Args)
}

func TestWriteValidation(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/token/transfer", map[string]any{
		"to": "0xnope", "amount": "1", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid recipient address format", out["error"])

	code, out = f.do(t, http.MethodPost, "/api/engine/burn", map[string]any{
		"amount": "-3", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Amount must be a positive number", out["error"])

	code, out = f.do(t, http.MethodPost, "/api/token/burn", map[string]any{
		"amount": "1", "privateKey": "0x1234",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid private key format", out["error"])

	code, out = f.do(t, http.MethodPost, "/api/token/burn", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", out["error"])

	assert.Zero(t, f.callCount())
}

func TestApproveAcceptsZero(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, _ := f.do(t, http.MethodPost, "/api/token/approve", map[string]any{
		"spender": engineAddr.Hex(), "amount": "0", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, f.token.Count("transact", "approve"))
}

func TestEstimateOnly(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/engine/mint", map[string]any{
		"amountDscToMint": "50", "privateKey": testKey, "estimateOnly": true,
	})
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "50000", data["estimatedGas"])
	assert.NotContains(t, data, "transactionHash")
	assert.Empty(t, f.backend.Mined())
}

func TestRevertedTransaction(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.backend.Revert = true

	code, out := f.do(t, http.MethodPost, "/api/engine/deposit", map[string]any{
		"tokenCollateralAddress": wethAddr.Hex(), "amountCollateral": "1", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to deposit collateral", out["error"])
	assert.Contains(t, out["details"], "transaction reverted")
}

func TestWrapChecksBalance(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/weth/wrap", map[string]any{
		"ethAmount": "20", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Insufficient ETH balance. Available: 10.0 ETH, Required: 20 ETH", out["error"])
	assert.Zero(t, f.weth.Count("transact", "deposit"))

	code, out = f.do(t, http.MethodPost, "/api/weth/wrap", map[string]any{
		"ethAmount": "2", "privateKey": testKey,
	})
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "2", data["ethAmountWrapped"])
	assert.Equal(t, user.Hex(), data["userAddress"])
	balances := data["balances"].(map[string]any)
	assert.Contains(t, balances, "newETHBalance")
	assert.Contains(t, balances, "newWETHBalance")
}

func TestWETHInfo(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodGet, "/api/weth/info", nil)
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "Wrapped Ether", data["name"])
	assert.Equal(t, "50.0", data["totalSupply"])

	code, out = f.do(t, http.MethodGet, "/api/weth/info?address="+user.Hex(), nil)
	require.Equal(t, http.StatusOK, code)
	data = out["data"].(map[string]any)
	balances := data["balances"].(map[string]any)
	assert.Equal(t, "10.0", balances["eth"])
	assert.Equal(t, "0.0", balances["weth"])
}

func TestWETHInfoValidatesAddressFirst(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.weth.FailOn("totalSupply", errors.New("node down"))

	code, out := f.do(t, http.MethodGet, "/api/weth/info?address=0xnotanaddress", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid address format", out["error"])
	assert.Zero(t, f.callCount())
}

func TestAmountPrecision(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/token/mint", map[string]any{
		"to": other.Hex(), "amount": "0.0000000000000000001", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Amount 0.0000000000000000001 has more than 18 decimal places", out["error"])
	assert.Zero(t, f.token.Count("transact", "mint"))

	code, out = f.do(t, http.MethodPost, "/api/wbtc/wrap", map[string]any{
		"btcAmount": "0.000000001", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Amount 0.000000001 has more than 8 decimal places", out["error"])
	assert.Zero(t, f.wbtc.Count("transact", "deposit"))
	assert.Empty(t, f.backend.Mined())
}

func TestDepositAndMintWorkflow(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodPost, "/api/weth/deposit-and-mint", map[string]any{
		"ethAmount": "1", "dscToMint": "100", "privateKey": testKey,
	})
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "1", data["ethAmountProcessed"])
	assert.Equal(t, "100", data["dscMinted"])

	steps := data["steps"].(map[string]any)
	assert.Contains(t, steps, contracts.StepWrap)
	assert.Contains(t, steps, contracts.StepApprove)
	assert.Contains(t, steps, contracts.StepDepositAndMint)

	account := data["dscAccount"].(map[string]any)
	assert.Equal(t, "10.0", account["healthFactor"])
	assert.Equal(t, "1.0", account["wethCollateralDeposited"])
	addrs := data["contracts"].(map[string]any)
	assert.Equal(t, tokenAddr.Hex(), addrs["dscTokenAddress"])
	assert.Len(t, f.backend.Mined(), 3)
}

func TestWorkflowFailureReportsStep(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.weth.FailOn("approve", errors.New("execution reverted"))

	code, out := f.do(t, http.MethodPost, "/api/weth/deposit-as-collateral", map[string]any{
		"ethAmount": "1", "privateKey": testKey,
	})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to complete ETH to wETH collateral deposit workflow", out["error"])
	assert.Equal(t, contracts.StepApprove, out["step"])

	completed := out["completedSteps"].([]any)
	require.Len(t, completed, 1)
	assert.Equal(t, contracts.StepWrap, completed[0].(map[string]any)["step"])
	assert.Zero(t, f.engine.Count("transact", "depositCollateral"))
}

func TestRouting(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodGet, "/api/token/mint", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "Method not allowed", out["error"])

	code, _ = f.do(t, http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	// No key manager, no account routes.
	code, _ = f.do(t, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusCatalog(t *testing.T) {
	f := newFixture(t, nil, Options{})

	code, out := f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "running", data["status"])

	endpoints := data["endpoints"].(map[string]any)
	token := endpoints["token"].(map[string]any)
	assert.Contains(t, token["write"], "POST /api/token/mint")
	assert.Contains(t, token["read"], "GET /api/token/balance?address=0x...")
	wbtc := endpoints["wbtc"].(map[string]any)
	assert.Contains(t, wbtc["write"], "POST /api/wbtc/wrap")

	addrs := data["contracts"].(map[string]any)
	assert.Equal(t, tokenAddr.Hex(), addrs["dscToken"].(map[string]any)["address"])
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil, Options{Metrics: metrics.New()})

	code, out := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, float64(100), out["blockNumber"])

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dsc_gateway_http_requests_total")
}

func TestAuthProtectsWrites(t *testing.T) {
	auth := middleware.NewAuthMiddleware("key", "secret")
	f := newFixture(t, nil, Options{Auth: auth})

	code, out := f.do(t, http.MethodPost, "/api/token/burn", map[string]any{"amount": "1", "privateKey": testKey})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid API Key", out["error"])
	assert.Zero(t, f.callCount())

	code, _ = f.do(t, http.MethodGet, "/api/engine/account?user="+user.Hex(), nil)
	assert.Equal(t, http.StatusOK, code)

	body := []byte(`{"amount":"1","privateKey":"` + testKey + `"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/api/token/burn", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "key")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", middleware.Sign("secret", ts, body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestManagedAccounts(t *testing.T) {
	log, _ := test.NewNullLogger()
	km, err := signer.NewLocalKeyManager(t.TempDir(), "secret", log,
		signer.WithScrypt(keystore.LightScryptN, keystore.LightScryptP))
	require.NoError(t, err)
	f := newFixture(t, km, Options{})

	code, out := f.do(t, http.MethodPost, "/api/accounts", nil)
	require.Equal(t, http.StatusCreated, code)
	created := out["data"].(map[string]any)["address"].(string)

	code, out = f.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{created}, out["data"].(map[string]any)["accounts"])

	code, _ = f.do(t, http.MethodPost, "/api/token/burn", map[string]any{"amount": "1", "account": created})
	require.Equal(t, http.StatusOK, code)
	calls := f.token.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, common.HexToAddress(created), calls[len(calls)-1].From)

	code, out = f.do(t, http.MethodPost, "/api/token/burn", map[string]any{"amount": "1", "account": other.Hex()})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "not found")
}
