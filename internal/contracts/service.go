// Package contracts wraps the deployed token, engine and wrapped-asset
// contracts. Services are built once and shared; WithSigner returns a
// request-scoped copy that can send transactions.
package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/xueqianLu/dscgateway/internal/cache"
	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/signer"
)

// service is the state shared by every contract wrapper. Copies are cheap;
// identity and estimate only ever change on a copy.
type service struct {
	contract chain.Contract
	backend  chain.Backend
	meta     cache.Cache
	identity *signer.Identity
	estimate bool
}

// Address returns the wrapped contract's address.
func (s *service) Address() common.Address {
	return s.contract.Address()
}

// Signer returns the bound identity, or nil.
func (s *service) Signer() *signer.Identity {
	return s.identity
}

func (s *service) call(ctx context.Context, method string, args ...any) ([]any, error) {
	out, err := s.contract.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

func (s *service) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := s.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

func (s *service) callAddress(ctx context.Context, method string, args ...any) (common.Address, error) {
	out, err := s.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

// metaString reads a string view that never changes for a deployed
// contract, going through the metadata cache.
func (s *service) metaString(ctx context.Context, method string) (string, error) {
	key := s.contract.Address().Hex() + ":" + method
	if s.meta != nil {
		if v, ok := s.meta.Get(ctx, key); ok {
			return v, nil
		}
	}
	out, err := s.call(ctx, method)
	if err != nil {
		return "", err
	}
	v, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	if s.meta != nil {
		s.meta.Set(ctx, key, v)
	}
	return v, nil
}

func (s *service) metaDecimals(ctx context.Context) (uint8, error) {
	key := s.contract.Address().Hex() + ":decimals"
	if s.meta != nil {
		if v, ok := s.meta.Get(ctx, key); ok {
			if d, err := strconv.ParseUint(v, 10, 8); err == nil {
				return uint8(d), nil
			}
		}
	}
	out, err := s.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected result type %T", out[0])
	}
	if s.meta != nil {
		s.meta.Set(ctx, key, strconv.FormatUint(uint64(d), 10))
	}
	return d, nil
}

func (s *service) requireSigner(op string) error {
	if s.identity == nil {
		return signerNotSet(op)
	}
	return nil
}

// send submits method as a transaction from the bound identity and waits
// for one confirmation. In estimate mode it only returns the gas estimate.
// value may be nil.
func (s *service) send(ctx context.Context, value *big.Int, method string, args ...any) (*format.TransactionResult, error) {
	if s.estimate {
		gas, err := s.contract.EstimateGas(ctx, s.identity.Address(), value, method, args...)
		if err != nil {
			return nil, err
		}
		return &format.TransactionResult{EstimatedGas: strconv.FormatUint(gas, 10)}, nil
	}

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	opts := s.identity.TransactOpts(ctx, chainID)
	opts.Value = value

	tx, err := s.contract.Transact(ctx, opts, method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := s.backend.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTransactionReverted, receipt.TxHash.Hex())
	}

	head, err := s.backend.BlockNumber(ctx)
	if err != nil && receipt.BlockNumber != nil {
		head = receipt.BlockNumber.Uint64()
	}
	return format.FormatTransactionResult(receipt, head), nil
}
