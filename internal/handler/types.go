package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xueqianLu/dscgateway/internal/format"
)

// Amount is a decimal quantity sent either as a JSON string or a JSON
// number. Numbers keep their literal text so no float rounding happens.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = Amount(n.String())
	return nil
}

func (a Amount) String() string {
	return string(a)
}

// credentials are carried by every write request.
type credentials struct {
	PrivateKey string `json:"privateKey"`
	// Account selects a managed key instead of PrivateKey.
	Account string `json:"account"`
	// EstimateOnly returns a gas estimate and submits nothing.
	EstimateOnly bool `json:"estimateOnly"`
}

// CreateAccountResponse represents the response for a new account creation.
type CreateAccountResponse struct {
	Address string `json:"address"`
}

// AccountsResponse lists the managed accounts.
type AccountsResponse struct {
	Accounts []string `json:"accounts"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Error       string `json:"error,omitempty"`
}

type tokenTxData struct {
	Recipient string `json:"recipient,omitempty"`
	Spender   string `json:"spender,omitempty"`
	Amount    string `json:"amount,omitempty"`
	*format.TransactionResult
}

type engineTxData struct {
	TokenCollateralAddress string `json:"tokenCollateralAddress,omitempty"`
	AmountCollateral       string `json:"amountCollateral,omitempty"`
	AmountDscToMint        string `json:"amountDscToMint,omitempty"`
	AmountDscToBurn        string `json:"amountDscToBurn,omitempty"`
	Amount                 string `json:"amount,omitempty"`
	Collateral             string `json:"collateral,omitempty"`
	User                   string `json:"user,omitempty"`
	DebtToCover            string `json:"debtToCover,omitempty"`
	*format.TransactionResult
}
