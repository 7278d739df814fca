package format

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountToWei(t *testing.T) {
	wei, err := AmountToWei("100")
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("100000000000000000000", 10)
	assert.Equal(t, 0, expected.Cmp(wei))

	wei, err = AmountToWei("0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), wei.Int64())

	// values that do not survive float64 must still be exact
	wei, err = AmountToWei("123456789.123456789123456789")
	require.NoError(t, err)
	assert.Equal(t, "123456789123456789123456789", wei.String())
}

func TestAmountToWeiRejectsExcessPrecision(t *testing.T) {
	_, err := AmountToWei("1.0000000000000000001")
	var precision *PrecisionError
	require.ErrorAs(t, err, &precision)
	assert.Equal(t, int32(18), precision.Decimals)
	assert.Equal(t, "Amount 1.0000000000000000001 has more than 18 decimal places", err.Error())

	_, err = AmountToUnits("0.000000001", 8)
	require.ErrorAs(t, err, &precision)
	assert.Equal(t, int32(8), precision.Decimals)

	_, err = AmountToWei("abc")
	assert.Error(t, err)
	assert.NotErrorAs(t, err, &precision)
}

func TestAmountFromWei(t *testing.T) {
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", AmountFromWei(v))
	assert.Equal(t, "0.0", AmountFromWei(big.NewInt(0)))
	assert.Equal(t, "0.0", AmountFromWei(nil))
	assert.Equal(t, "0.000000000000000001", AmountFromWei(big.NewInt(1)))
}

func TestWeiRoundTrip(t *testing.T) {
	cases := map[string]string{
		"100":        "100.0",
		"1":          "1.0",
		"0.5":        "0.5",
		"2.25":       "2.25",
		"1000000.01": "1000000.01",
	}
	for in, want := range cases {
		wei, err := AmountToWei(in)
		require.NoError(t, err)
		assert.Equal(t, want, AmountFromWei(wei), in)
	}
}

func TestAmountUnitsWithCustomDecimals(t *testing.T) {
	units, err := AmountToUnits("0.5", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(50000000), units.Int64())
	assert.Equal(t, "0.5", AmountFromUnits(units, 8))
}

func TestFormatTransactionResult(t *testing.T) {
	gas := uint64(1) << 62
	receipt := &types.Receipt{
		TxHash:      common.HexToHash("0xabc123"),
		BlockNumber: big.NewInt(12345),
		GasUsed:     gas,
		Status:      types.ReceiptStatusSuccessful,
	}

	res := FormatTransactionResult(receipt, 12347)
	assert.Equal(t, receipt.TxHash.Hex(), res.TransactionHash)
	assert.Equal(t, uint64(12345), res.BlockNumber)
	assert.Equal(t, "4611686018427387904", res.GasUsed)
	assert.Equal(t, uint64(1), res.Status)
	assert.Equal(t, uint64(3), res.Confirmations)

	// a stale head never yields zero confirmations
	res = FormatTransactionResult(receipt, 0)
	assert.Equal(t, uint64(1), res.Confirmations)
}

func TestSanitizePrivateKey(t *testing.T) {
	key := "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	assert.Equal(t, "0xac09...ff80", SanitizePrivateKey(key))
	assert.Equal(t, "***", SanitizePrivateKey(""))
	assert.Equal(t, "***", SanitizePrivateKey("0x1234"))
	assert.Equal(t, "0x1234...5678", SanitizePrivateKey("0x12345678"))
}
