package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/metrics"
	"github.com/xueqianLu/dscgateway/internal/middleware"
	"github.com/xueqianLu/dscgateway/internal/response"
	"github.com/xueqianLu/dscgateway/internal/signer"
)

// Services is the application context shared by all requests. Every
// service is built once and bound to a signer per request.
type Services struct {
	Token   *contracts.Token
	Engine  *contracts.Engine
	WETH    *contracts.Collateral
	WBTC    *contracts.Collateral
	Backend chain.Backend
	Signer  *signer.Signer
}

// Options holds the optional cross-cutting middleware. Nil fields are
// skipped.
type Options struct {
	Auth        *middleware.AuthMiddleware
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
	CORS        *middleware.CORSMiddleware
}

type route struct {
	method string
	path   string
	query  string // example query string for the catalog
	group  string
	desc   string
	handle http.HandlerFunc
}

func (rt route) write() bool {
	return rt.method == http.MethodPost
}

func (rt route) catalogKey() string {
	return rt.method + " " + rt.path + rt.query
}

// NewRouter wires every route and middleware into one handler.
func NewRouter(svc Services, opts Options, log logrus.FieldLogger) http.Handler {
	b := base{log: log, signer: svc.Signer}
	token := &TokenHandler{base: b, token: svc.Token}
	engine := &EngineHandler{base: b, engine: svc.Engine}
	weth := newWrappedHandler(b, svc.WETH, svc.Token)
	wbtc := newWrappedHandler(b, svc.WBTC, svc.Token)

	routes := []route{
		{http.MethodGet, "/api/token/info", "", "token", "Get token information (name, symbol, total supply, owner)", token.Info},
		{http.MethodGet, "/api/token/balance", "?address=0x...", "token", "Get token balance for an address", token.Balance},
		{http.MethodGet, "/api/token/allowance", "?owner=0x...&spender=0x...", "token", "Get allowance between addresses", token.Allowance},
		{http.MethodPost, "/api/token/mint", "", "token", "Mint new tokens (owner only)", token.Mint},
		{http.MethodPost, "/api/token/burn", "", "token", "Burn tokens from signer", token.Burn},
		{http.MethodPost, "/api/token/transfer", "", "token", "Transfer tokens to another address", token.Transfer},
		{http.MethodPost, "/api/token/approve", "", "token", "Approve another address to spend tokens", token.Approve},
		{http.MethodPost, "/api/token/renounce-ownership", "", "token", "Renounce token ownership (owner only)", token.RenounceOwnership},

		{http.MethodGet, "/api/engine/account", "?user=0x...", "engine", "Get account information (DSC minted, collateral value, health factor)", engine.Account},
		{http.MethodGet, "/api/engine/collateral", "?user=0x...[&token=0x...]", "engine", "Get collateral tokens, or one token's balance and price feed", engine.Collateral},
		{http.MethodGet, "/api/engine/price", "?token=0x...&amount=|usdAmount=", "engine", "Convert between a collateral token and USD", engine.Price},
		{http.MethodPost, "/api/engine/deposit", "", "engine", "Deposit collateral", engine.Deposit},
		{http.MethodPost, "/api/engine/mint", "", "engine", "Mint DSC tokens", engine.Mint},
		{http.MethodPost, "/api/engine/deposit-and-mint", "", "engine", "Deposit collateral and mint DSC in one transaction", engine.DepositAndMint},
		{http.MethodPost, "/api/engine/redeem", "", "engine", "Redeem collateral", engine.Redeem},
		{http.MethodPost, "/api/engine/burn", "", "engine", "Burn DSC tokens", engine.Burn},
		{http.MethodPost, "/api/engine/redeem-and-burn", "", "engine", "Redeem collateral and burn DSC in one transaction", engine.RedeemAndBurn},
		{http.MethodPost, "/api/engine/liquidate", "", "engine", "Liquidate a position", engine.Liquidate},
	}
	routes = append(routes, wrappedRoutes("weth", weth)...)
	routes = append(routes, wrappedRoutes("wbtc", wbtc)...)

	status := &StatusHandler{routes: routes, svc: svc}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.WriteJSON(w, http.StatusNotFound, response.Fail("Not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.WriteJSON(w, http.StatusMethodNotAllowed, response.Fail("Method not allowed"))
	})
	r.Use(middleware.TracingMiddleware())
	if opts.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(opts.Metrics))
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.Handle("/healthz", NewHealthHandler(svc.Backend)).Methods(http.MethodGet)
	r.HandleFunc("/api/status", status.ServeHTTP).Methods(http.MethodGet)

	for _, rt := range routes {
		var h http.Handler = rt.handle
		if rt.write() {
			h = protect(opts.Auth, h)
		}
		r.Handle(rt.path, h).Methods(rt.method)
	}

	if svc.Signer.ManagedEnabled() {
		accounts := &AccountsHandler{base: b}
		r.Handle("/api/accounts", protect(opts.Auth, http.HandlerFunc(accounts.List))).Methods(http.MethodGet)
		r.Handle("/api/accounts", protect(opts.Auth, http.HandlerFunc(accounts.Create))).Methods(http.MethodPost)
	}

	// Outside the mux so preflight and unmatched requests are covered too.
	var h http.Handler = r
	if opts.RateLimiter != nil {
		h = opts.RateLimiter.Handler(h)
	}
	if opts.CORS != nil {
		h = opts.CORS.Handler(h)
	}
	return middleware.LoggingMiddleware(log)(h)
}

func wrappedRoutes(prefix string, h *WrappedHandler) []route {
	root := "/api/" + prefix
	native, wrapped := h.cfg.NativeSymbol, h.cfg.Symbol
	return []route{
		{http.MethodGet, root + "/info", "[?address=0x...]", prefix, "Get " + wrapped + " token information, or balances for an address", h.Info},
		{http.MethodPost, root + "/wrap", "", prefix, "Wrap " + native + " to " + wrapped, h.Wrap},
		{http.MethodPost, root + "/unwrap", "", prefix, "Unwrap " + wrapped + " to " + native, h.Unwrap},
		{http.MethodPost, root + "/deposit-as-collateral", "", prefix, "Wrap " + native + ", approve and deposit as collateral", h.DepositAsCollateral},
		{http.MethodPost, root + "/deposit-and-mint", "", prefix, "Wrap " + native + ", deposit as collateral and mint DSC", h.DepositAndMint},
		{http.MethodPost, root + "/approve", "", prefix, "Approve another address to spend " + wrapped, h.Approve},
		{http.MethodPost, root + "/transfer", "", prefix, "Transfer " + wrapped + " to another address", h.Transfer},
	}
}

func protect(auth *middleware.AuthMiddleware, h http.Handler) http.Handler {
	if auth == nil {
		return h
	}
	return auth.Wrap(h)
}
