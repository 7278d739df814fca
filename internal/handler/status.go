package handler

import (
	"net/http"
	"time"

	"github.com/xueqianLu/dscgateway/internal/response"
)

// StatusHandler describes the running service and its endpoints.
type StatusHandler struct {
	routes []route
	svc    Services
}

type contractInfo struct {
	Address string `json:"address"`
	Type    string `json:"type"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoints := make(map[string]map[string]map[string]string)
	for _, rt := range h.routes {
		group, ok := endpoints[rt.group]
		if !ok {
			group = map[string]map[string]string{"read": {}, "write": {}}
			endpoints[rt.group] = group
		}
		kind := "read"
		if rt.write() {
			kind = "write"
		}
		group[kind][rt.catalogKey()] = rt.desc
	}

	origin := "http://" + r.Host
	response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
		"status":    "running",
		"message":   "DSC Smart Contract Backend API is operational",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": endpoints,
		"contracts": map[string]any{
			"dscToken":  contractInfo{h.svc.Token.Address().Hex(), "ERC20 with mint/burn functionality"},
			"dscEngine": contractInfo{h.svc.Engine.Address().Hex(), "DeFi Lending Protocol with collateral management"},
			"weth":      contractInfo{h.svc.WETH.Asset().Address().Hex(), "Wrapped ETH collateral token"},
			"wbtc":      contractInfo{h.svc.WBTC.Asset().Address().Hex(), "Wrapped BTC collateral token"},
			"network":   "Configured via BLOCKCHAIN_RPC_URL environment variable",
		},
		"tech": map[string]string{
			"language":     "Go",
			"router":       "gorilla/mux",
			"blockchain":   "go-ethereum",
			"architecture": "RESTful API with per-request signing",
		},
		"examples": map[string]map[string]string{
			"token": {
				"Get token info": "curl " + origin + "/api/token/info",
				"Get balance":    `curl "` + origin + `/api/token/balance?address=0x..."`,
				"Mint tokens":    "curl -X POST " + origin + `/api/token/mint -H "Content-Type: application/json" -d '{"to":"0x...","amount":"100","privateKey":"0x..."}'`,
			},
			"engine": {
				"Get account info": `curl "` + origin + `/api/engine/account?user=0x..."`,
				"Get collateral":   `curl "` + origin + `/api/engine/collateral?user=0x..."`,
				"Mint DSC":         "curl -X POST " + origin + `/api/engine/mint -H "Content-Type: application/json" -d '{"amountDscToMint":"50","privateKey":"0x..."}'`,
			},
		},
	}))
}
