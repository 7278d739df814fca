// Package format converts between human token amounts and on-chain
// integers, and shapes receipts for API responses.
package format

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision used for every 18-decimal token.
const Decimals = 18

// TransactionResult is the uniform record produced for a mined transaction.
// EstimatedGas is only set when the caller asked for an estimate instead of
// a submission.
type TransactionResult struct {
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     uint64 `json:"blockNumber,omitempty"`
	GasUsed         string `json:"gasUsed,omitempty"`
	Status          uint64 `json:"status,omitempty"`
	Confirmations   uint64 `json:"confirmations,omitempty"`
	EstimatedGas    string `json:"estimatedGas,omitempty"`
}

// AmountToWei converts a decimal token amount to its 18-decimal integer form.
func AmountToWei(amount string) (*big.Int, error) {
	return AmountToUnits(amount, Decimals)
}

// AmountFromWei renders an 18-decimal integer as a decimal string.
func AmountFromWei(wei *big.Int) string {
	return AmountFromUnits(wei, Decimals)
}

// PrecisionError reports an amount finer than the token's smallest unit.
// It is a caller error.
type PrecisionError struct {
	Amount   string
	Decimals int32
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("Amount %s has more than %d decimal places", e.Amount, e.Decimals)
}

// AmountToUnits scales amount by 10^decimals. Amounts carrying more
// fractional digits than decimals are rejected with a *PrecisionError
// rather than rounded.
func AmountToUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, &PrecisionError{Amount: amount, Decimals: decimals}
	}
	return scaled.BigInt(), nil
}

// AmountFromUnits divides v by 10^decimals keeping full precision. Whole
// numbers keep a trailing ".0".
func AmountFromUnits(v *big.Int, decimals int32) string {
	if v == nil {
		v = new(big.Int)
	}
	s := decimal.NewFromBigInt(v, -decimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatTransactionResult maps a mined receipt to a TransactionResult.
// head is the latest block number known to the caller; it is used to count
// confirmations.
func FormatTransactionResult(receipt *types.Receipt, head uint64) *TransactionResult {
	res := &TransactionResult{
		TransactionHash: receipt.TxHash.Hex(),
		GasUsed:         new(big.Int).SetUint64(receipt.GasUsed).String(),
		Status:          receipt.Status,
		Confirmations:   1,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
		if head >= res.BlockNumber {
			res.Confirmations = head - res.BlockNumber + 1
		}
	}
	return res
}

// SanitizePrivateKey masks a private key for log output.
func SanitizePrivateKey(k string) string {
	if len(k) < 8 {
		return "***"
	}
	return k[:6] + "..." + k[len(k)-4:]
}
