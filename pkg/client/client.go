// Package client is a Go client for the DSC gateway HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	apiKeyHeader    = "X-API-Key"
	signatureHeader = "X-Signature"
	timestampHeader = "X-Timestamp"
)

// Envelope is the JSON wrapper around every gateway response.
type Envelope struct {
	Success        bool            `json:"success"`
	Data           json.RawMessage `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	Details        string          `json:"details,omitempty"`
	Step           string          `json:"step,omitempty"`
	CompletedSteps []CompletedStep `json:"completedSteps,omitempty"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode     int
	Message        string
	Details        string
	Step           string
	CompletedSteps []CompletedStep
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Step != "" {
		msg += " at " + e.Step
	}
	return msg
}

// Credentials select the signing identity of a write. Exactly one of
// PrivateKey and Account should be set.
type Credentials struct {
	PrivateKey   string `json:"privateKey,omitempty"`
	Account      string `json:"account,omitempty"`
	EstimateOnly bool   `json:"estimateOnly,omitempty"`
}

// TxResult describes a mined transaction, or only EstimatedGas when the
// write was sent with EstimateOnly.
type TxResult struct {
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     uint64 `json:"blockNumber,omitempty"`
	GasUsed         string `json:"gasUsed,omitempty"`
	Status          uint64 `json:"status,omitempty"`
	Confirmations   uint64 `json:"confirmations,omitempty"`
	EstimatedGas    string `json:"estimatedGas,omitempty"`
}

type TokenInfo struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Decimals        uint8  `json:"decimals"`
	TotalSupply     string `json:"totalSupply"`
	ContractAddress string `json:"contractAddress"`
	Owner           string `json:"owner,omitempty"`
}

type Balance struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Symbol  string `json:"symbol"`
}

type Allowance struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

// Account is a user's position in the engine.
type Account struct {
	User                      string `json:"user"`
	TotalDscMinted            string `json:"totalDscMinted"`
	CollateralValueInUsd      string `json:"collateralValueInUsd"`
	HealthFactor              string `json:"healthFactor"`
	TotalCollateralValueInUsd string `json:"totalCollateralValueInUsd"`
}

type CollateralBalance struct {
	User      string `json:"user"`
	Token     string `json:"token"`
	Balance   string `json:"balance"`
	PriceFeed string `json:"priceFeed"`
}

// CompletedStep is one confirmed transaction of a workflow.
type CompletedStep struct {
	Step            string `json:"step,omitempty"`
	Description     string `json:"description"`
	TransactionHash string `json:"transactionHash"`
	GasUsed         string `json:"gasUsed"`
}

// Workflow is the result of a deposit-as-collateral or deposit-and-mint
// call. Balance and account keys depend on the asset, so they are left
// as maps.
type Workflow struct {
	Workflow    string                   `json:"workflow"`
	UserAddress string                   `json:"userAddress"`
	DSCMinted   string                   `json:"dscMinted,omitempty"`
	Steps       map[string]CompletedStep `json:"steps"`
	Balances    map[string]any           `json:"balances"`
	DSCAccount  map[string]string        `json:"dscAccount"`
	Contracts   map[string]string        `json:"contracts"`
}

// CreateAccountResponse represents the response for a new account creation.
type CreateAccountResponse struct {
	Address string `json:"address"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Asset selects one of the wrapped collateral assets.
type Asset string

const (
	WETH Asset = "weth"
	WBTC Asset = "wbtc"
)

func (a Asset) nativeField() string {
	if a == WBTC {
		return "btcAmount"
	}
	return "ethAmount"
}

func (a Asset) wrappedField() string {
	return string(a) + "Amount"
}

// Client is a client for the DSC gateway.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new gateway client. An empty apiKey sends unsigned
// requests. Writes wait for a confirmation, so the timeout is generous.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Health checks the health of the gateway and its node.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, &APIError{StatusCode: resp.StatusCode, Message: health.Error}
	}
	return &health, nil
}

// Status returns the service description and endpoint catalog.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.doRequest(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *Client) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	var out TokenInfo
	if err := c.doRequest(ctx, http.MethodGet, "/api/token/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TokenBalance(ctx context.Context, address string) (*Balance, error) {
	var out Balance
	path := "/api/token/balance?" + url.Values{"address": {address}}.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TokenAllowance(ctx context.Context, owner, spender string) (*Allowance, error) {
	var out Allowance
	path := "/api/token/allowance?" + url.Values{"owner": {owner}, "spender": {spender}}.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MintTokens(ctx context.Context, creds Credentials, to, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/token/mint", creds, map[string]any{"to": to, "amount": amount})
}

func (c *Client) BurnTokens(ctx context.Context, creds Credentials, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/token/burn", creds, map[string]any{"amount": amount})
}

func (c *Client) TransferTokens(ctx context.Context, creds Credentials, to, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/token/transfer", creds, map[string]any{"to": to, "amount": amount})
}

func (c *Client) ApproveTokens(ctx context.Context, creds Credentials, spender, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/token/approve", creds, map[string]any{"spender": spender, "amount": amount})
}

func (c *Client) RenounceOwnership(ctx context.Context, creds Credentials) (*TxResult, error) {
	return c.write(ctx, "/api/token/renounce-ownership", creds, nil)
}

// EngineAccount returns the engine position of user.
func (c *Client) EngineAccount(ctx context.Context, user string) (*Account, error) {
	var out Account
	path := "/api/engine/account?" + url.Values{"user": {user}}.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollateralTokens lists the tokens the engine accepts.
func (c *Client) CollateralTokens(ctx context.Context, user string) ([]string, error) {
	var out struct {
		CollateralTokens []string `json:"collateralTokens"`
	}
	path := "/api/engine/collateral?" + url.Values{"user": {user}}.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.CollateralTokens, nil
}

func (c *Client) CollateralBalance(ctx context.Context, user, token string) (*CollateralBalance, error) {
	var out CollateralBalance
	path := "/api/engine/collateral?" + url.Values{"user": {user}, "token": {token}}.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UsdValue returns the USD value of amount of token.
func (c *Client) UsdValue(ctx context.Context, token, amount string) (string, error) {
	var out struct {
		UsdValue string `json:"usdValue"`
	}
	path := "/api/engine/price?" + url.Values{"token": {token}, "amount": {amount}}.Encode()
	err := c.doRequest(ctx, http.MethodGet, path, nil, &out)
	return out.UsdValue, err
}

func (c *Client) DepositCollateral(ctx context.Context, creds Credentials, token, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/deposit", creds, map[string]any{
		"tokenCollateralAddress": token,
		"amountCollateral":       amount,
	})
}

func (c *Client) MintDSC(ctx context.Context, creds Credentials, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/mint", creds, map[string]any{"amountDscToMint": amount})
}

func (c *Client) DepositCollateralAndMintDSC(ctx context.Context, creds Credentials, token, collateral, dsc string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/deposit-and-mint", creds, map[string]any{
		"tokenCollateralAddress": token,
		"amountCollateral":       collateral,
		"amountDscToMint":        dsc,
	})
}

func (c *Client) RedeemCollateral(ctx context.Context, creds Credentials, token, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/redeem", creds, map[string]any{
		"tokenCollateralAddress": token,
		"amountCollateral":       amount,
	})
}

func (c *Client) BurnDSC(ctx context.Context, creds Credentials, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/burn", creds, map[string]any{"amount": amount})
}

func (c *Client) RedeemCollateralForDSC(ctx context.Context, creds Credentials, token, collateral, dsc string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/redeem-and-burn", creds, map[string]any{
		"tokenCollateralAddress": token,
		"amountCollateral":       collateral,
		"amountDscToBurn":        dsc,
	})
}

func (c *Client) Liquidate(ctx context.Context, creds Credentials, collateral, user, debtToCover string) (*TxResult, error) {
	return c.write(ctx, "/api/engine/liquidate", creds, map[string]any{
		"collateral":  collateral,
		"user":        user,
		"debtToCover": debtToCover,
	})
}

// Wrap converts amount of the native currency into the wrapped asset.
func (c *Client) Wrap(ctx context.Context, asset Asset, creds Credentials, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/"+string(asset)+"/wrap", creds, map[string]any{asset.nativeField(): amount})
}

// Unwrap converts amount of the wrapped asset back to native currency.
func (c *Client) Unwrap(ctx context.Context, asset Asset, creds Credentials, amount string) (*TxResult, error) {
	return c.write(ctx, "/api/"+string(asset)+"/unwrap", creds, map[string]any{asset.wrappedField(): amount})
}

// DepositAsCollateral wraps, approves and deposits amount in one call.
// A failure part way returns an *APIError naming the failed step.
func (c *Client) DepositAsCollateral(ctx context.Context, asset Asset, creds Credentials, amount string) (*Workflow, error) {
	var out Workflow
	err := c.doRequest(ctx, http.MethodPost, "/api/"+string(asset)+"/deposit-as-collateral",
		body(creds, map[string]any{asset.nativeField(): amount}), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DepositAndMint wraps and approves amount, then deposits it and mints
// dscToMint.
func (c *Client) DepositAndMint(ctx context.Context, asset Asset, creds Credentials, amount, dscToMint string) (*Workflow, error) {
	var out Workflow
	err := c.doRequest(ctx, http.MethodPost, "/api/"+string(asset)+"/deposit-and-mint",
		body(creds, map[string]any{asset.nativeField(): amount, "dscToMint": dscToMint}), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccounts retrieves the list of managed accounts.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	var out struct {
		Accounts []string `json:"accounts"`
	}
	err := c.doRequest(ctx, http.MethodGet, "/api/accounts", nil, &out)
	return out.Accounts, err
}

// CreateAccount requests the creation of a new managed account.
func (c *Client) CreateAccount(ctx context.Context) (*CreateAccountResponse, error) {
	var resp CreateAccountResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/accounts", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) write(ctx context.Context, path string, creds Credentials, fields map[string]any) (*TxResult, error) {
	var out TxResult
	if err := c.doRequest(ctx, http.MethodPost, path, body(creds, fields), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func body(creds Credentials, fields map[string]any) map[string]any {
	m := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		m[k] = v
	}
	if creds.PrivateKey != "" {
		m["privateKey"] = creds.PrivateKey
	}
	if creds.Account != "" {
		m["account"] = creds.Account
	}
	if creds.EstimateOnly {
		m["estimateOnly"] = true
	}
	return m
}

func (c *Client) doRequest(ctx context.Context, method, path string, data, result any) error {
	var reqBody []byte
	var err error

	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set(apiKeyHeader, c.apiKey)
		req.Header.Set(timestampHeader, timestamp)
		req.Header.Set(signatureHeader, c.calculateSignature(timestamp, reqBody))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated || !env.Success {
		return &APIError{
			StatusCode:     resp.StatusCode,
			Message:        env.Error,
			Details:        env.Details,
			Step:           env.Step,
			CompletedSteps: env.CompletedSteps,
		}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) calculateSignature(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
