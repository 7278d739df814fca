package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xueqianLu/dscgateway/internal/middleware"
	"github.com/xueqianLu/dscgateway/internal/response"
)

func newServer(t *testing.T, auth *middleware.AuthMiddleware, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	var handler http.Handler = h
	if auth != nil {
		handler = auth.Wrap(handler)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSignedRequestAccepted(t *testing.T) {
	auth := middleware.NewAuthMiddleware("key", "secret")
	srv := newServer(t, auth, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token/burn", r.URL.Path)
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
			"amount":          "1",
			"transactionHash": "0xabc",
			"blockNumber":     101,
			"gasUsed":         "21000",
			"status":          1,
			"confirmations":   1,
		}))
	})

	res, err := NewClient(srv.URL, "key", "secret").BurnTokens(context.Background(), Credentials{PrivateKey: "0x01"}, "1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", res.TransactionHash)
	assert.Equal(t, uint64(101), res.BlockNumber)
	assert.Equal(t, "21000", res.GasUsed)
	assert.Equal(t, uint64(1), res.Status)
}

func TestWrongSecretRejected(t *testing.T) {
	auth := middleware.NewAuthMiddleware("key", "secret")
	srv := newServer(t, auth, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	_, err := NewClient(srv.URL, "key", "other").BurnTokens(context.Background(), Credentials{PrivateKey: "0x01"}, "1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid signature", apiErr.Message)
}

func TestWriteBody(t *testing.T) {
	var got map[string]any
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/wbtc/wrap", r.URL.Path)
		assert.Empty(t, r.Header.Get(signatureHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{"estimatedGas": "50000"}))
	})

	creds := Credentials{Account: "0x000000000000000000000000000000000000dEaD", EstimateOnly: true}
	res, err := NewClient(srv.URL, "", "").Wrap(context.Background(), WBTC, creds, "0.5")
	require.NoError(t, err)
	assert.Equal(t, "50000", res.EstimatedGas)
	assert.Empty(t, res.TransactionHash)

	assert.Equal(t, map[string]any{
		"btcAmount":    "0.5",
		"account":      "0x000000000000000000000000000000000000dEaD",
		"estimateOnly": true,
	}, got)
}

func TestUnwrapField(t *testing.T) {
	var got map[string]any
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{"transactionHash": "0x1"}))
	})

	_, err := NewClient(srv.URL, "", "").Unwrap(context.Background(), WETH, Credentials{PrivateKey: "0x01"}, "2")
	require.NoError(t, err)
	assert.Equal(t, "2", got["wethAmount"])
	assert.Equal(t, "0x01", got["privateKey"])
	assert.NotContains(t, got, "estimateOnly")
}

func TestWorkflowFailure(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		resp := response.New(false, nil, "Failed to deposit WETH as collateral", "execution reverted")
		resp.Step = "step2_approve"
		resp.CompletedSteps = []map[string]string{{
			"step":            "step1_wrap",
			"description":     "Wrapped ETH to WETH",
			"transactionHash": "0xaa",
			"gasUsed":         "25000",
		}}
		response.WriteJSON(w, http.StatusInternalServerError, resp)
	})

	wf, err := NewClient(srv.URL, "", "").DepositAsCollateral(context.Background(), WETH, Credentials{PrivateKey: "0x01"}, "1")
	assert.Nil(t, wf)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "step2_approve", apiErr.Step)
	assert.Equal(t, "execution reverted", apiErr.Details)
	require.Len(t, apiErr.CompletedSteps, 1)
	assert.Equal(t, "step1_wrap", apiErr.CompletedSteps[0].Step)
	assert.Equal(t, "0xaa", apiErr.CompletedSteps[0].TransactionHash)
	assert.Contains(t, err.Error(), "at step2_approve")
}

func TestDepositAndMint(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1", body["ethAmount"])
		assert.Equal(t, "100", body["dscToMint"])
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
			"workflow":    "ETH → WETH → Collateral Deposit + DSC Mint",
			"userAddress": "0x01",
			"dscMinted":   "100",
			"steps": map[string]any{
				"step1_wrap": map[string]string{"description": "wrap", "transactionHash": "0x1", "gasUsed": "1"},
			},
			"dscAccount": map[string]string{"healthFactor": "10"},
		}))
	})

	wf, err := NewClient(srv.URL, "", "").DepositAndMint(context.Background(), WETH, Credentials{PrivateKey: "0x01"}, "1", "100")
	require.NoError(t, err)
	assert.Equal(t, "100", wf.DSCMinted)
	assert.Equal(t, "0x1", wf.Steps["step1_wrap"].TransactionHash)
	assert.Equal(t, "10", wf.DSCAccount["healthFactor"])
}

func TestReadQuery(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "0xowner", r.URL.Query().Get("owner"))
		assert.Equal(t, "0xspender", r.URL.Query().Get("spender"))
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]string{
			"owner": "0xowner", "spender": "0xspender", "allowance": "5.0",
		}))
	})

	a, err := NewClient(srv.URL, "", "").TokenAllowance(context.Background(), "0xowner", "0xspender")
	require.NoError(t, err)
	assert.Equal(t, "5.0", a.Allowance)
}

func TestHealth(t *testing.T) {
	up := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		response.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "blockNumber": 7})
	})
	h, err := NewClient(up.URL, "", "").Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, uint64(7), h.BlockNumber)

	down := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": "dial tcp: refused"})
	})
	h, err = NewClient(down.URL, "", "").Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "dial tcp: refused", apiErr.Message)
	assert.Equal(t, "unavailable", h.Status)
}

func TestCreateAccount(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		response.WriteJSON(w, http.StatusCreated, response.OK(map[string]string{"address": "0xnew"}))
	})

	resp, err := NewClient(srv.URL, "", "").CreateAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xnew", resp.Address)
}

func TestNonJSONError(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := NewClient(srv.URL, "", "").TokenInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
