// Package validator holds the input checks shared by every route.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// ErrInvalidAddress is returned by FormatAddress for malformed input.
var ErrInvalidAddress = errors.New("invalid address format")

var privateKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateAddress reports whether s is a well-formed account address.
// Mixed-case input must carry a valid EIP-55 checksum; all-lower and
// all-upper hex are accepted as-is.
func ValidateAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == body
}

// FormatAddress returns the checksummed form of s.
func FormatAddress(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// ParseAddress validates s and converts it to a common.Address.
func ParseAddress(s string) (common.Address, error) {
	if !ValidateAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(s), nil
}

// ValidateAmount reports whether x is a finite decimal strictly greater than zero.
func ValidateAmount(x any) bool {
	d, ok := parseAmount(x)
	return ok && d.Sign() > 0
}

// ValidateNonNegativeAmount is ValidateAmount that also accepts zero.
func ValidateNonNegativeAmount(x any) bool {
	d, ok := parseAmount(x)
	return ok && d.Sign() >= 0
}

// ParseAmount parses a decimal amount given as a string or JSON number.
func ParseAmount(x any) (decimal.Decimal, error) {
	d, ok := parseAmount(x)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid amount %v", x)
	}
	return d, nil
}

func parseAmount(x any) (decimal.Decimal, bool) {
	switch v := x.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case decimal.Decimal:
		return v, true
	case fmt.Stringer:
		return parseAmount(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	default:
		return decimal.Zero, false
	}
}

// ValidatePrivateKey reports whether k is a 0x-prefixed 32-byte hex key
// that yields a usable secp256k1 key.
func ValidatePrivateKey(k string) bool {
	if !privateKeyPattern.MatchString(k) {
		return false
	}
	_, err := crypto.HexToECDSA(k[2:])
	return err == nil
}

// RequiredFields returns the message for the first field of body that is
// missing or falsy, or "" when all are present.
func RequiredFields(body map[string]any, fields ...string) string {
	for _, field := range fields {
		if !present(body[field]) {
			return field + " is required"
		}
	}
	return ""
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
