package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/cache"
	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"golang.org/x/sync/errgroup"
)

// AssetConfig describes one wrapped native asset.
type AssetConfig struct {
	// Symbol is the wrapped token label used in messages, e.g. "wETH".
	Symbol string
	// NativeSymbol labels the native side, e.g. "ETH".
	NativeSymbol string
	// Decimals fixes the token unit scale; zero reads decimals() on chain.
	Decimals int32
}

var (
	WETH = AssetConfig{Symbol: "wETH", NativeSymbol: "ETH", Decimals: format.Decimals}
	WBTC = AssetConfig{Symbol: "wBTC", NativeSymbol: "BTC"}
)

// WrappedAsset is a WETH9-style wrapper: deposit native value to mint the
// token 1:1, withdraw to burn it.
type WrappedAsset struct {
	erc20
	cfg AssetConfig
}

// Balances pairs the native and wrapped balances of one account.
type Balances struct {
	Native  string
	Wrapped string
}

func NewWrappedAsset(cfg AssetConfig, contract chain.Contract, backend chain.Backend, meta cache.Cache) *WrappedAsset {
	return &WrappedAsset{
		erc20: erc20{
			service:  service{contract: contract, backend: backend, meta: meta},
			decimals: cfg.Decimals,
		},
		cfg: cfg,
	}
}

// Config returns the asset description.
func (w *WrappedAsset) Config() AssetConfig {
	return w.cfg
}

// WithSigner returns a copy of w that sends transactions as id.
func (w *WrappedAsset) WithSigner(id *signer.Identity) *WrappedAsset {
	cp := *w
	cp.identity = id
	return &cp
}

// EstimateOnly returns a copy of w whose writes only estimate gas.
func (w *WrappedAsset) EstimateOnly() *WrappedAsset {
	cp := *w
	cp.estimate = true
	return &cp
}

// NativeBalance returns the account's native balance. Native balances are
// always 18-decimal.
func (w *WrappedAsset) NativeBalance(ctx context.Context, account common.Address) (string, error) {
	v, err := w.backend.BalanceAt(ctx, account)
	if err != nil {
		return "", err
	}
	return format.AmountFromWei(v), nil
}

// Balances reads the native and wrapped balances of account concurrently.
func (w *WrappedAsset) Balances(ctx context.Context, account common.Address) (*Balances, error) {
	b := &Balances{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Native, err = w.NativeBalance(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		b.Wrapped, err = w.BalanceOf(gctx, account)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// Deposit wraps amount of the native asset. The signer's native balance is
// checked first.
func (w *WrappedAsset) Deposit(ctx context.Context, amount string) (*format.TransactionResult, error) {
	if err := w.requireSigner("depositing " + w.cfg.NativeSymbol); err != nil {
		return nil, err
	}
	units, err := w.toUnits(ctx, amount)
	if err != nil {
		return nil, err
	}
	if err := w.checkNative(ctx, units, amount); err != nil {
		return nil, err
	}
	return w.depositUnits(ctx, units)
}

func (w *WrappedAsset) depositUnits(ctx context.Context, units *big.Int) (*format.TransactionResult, error) {
	return w.send(ctx, units, "deposit")
}

func (w *WrappedAsset) checkNative(ctx context.Context, units *big.Int, required string) error {
	if w.estimate {
		return nil
	}
	bal, err := w.backend.BalanceAt(ctx, w.identity.Address())
	if err != nil {
		return err
	}
	if bal.Cmp(units) < 0 {
		return &InsufficientBalanceError{
			Asset:     w.cfg.NativeSymbol,
			Available: format.AmountFromWei(bal),
			Required:  required,
		}
	}
	return nil
}

// Withdraw unwraps amount back to the native asset. The signer's wrapped
// balance is checked first.
func (w *WrappedAsset) Withdraw(ctx context.Context, amount string) (*format.TransactionResult, error) {
	if err := w.requireSigner("withdrawing " + w.cfg.NativeSymbol); err != nil {
		return nil, err
	}
	units, err := w.toUnits(ctx, amount)
	if err != nil {
		return nil, err
	}
	if !w.estimate {
		bal, err := w.balanceUnits(ctx, w.identity.Address())
		if err != nil {
			return nil, err
		}
		if bal.Cmp(units) < 0 {
			available, err := w.fromUnits(ctx, bal)
			if err != nil {
				return nil, err
			}
			return nil, &InsufficientBalanceError{Asset: w.cfg.Symbol, Available: available, Required: amount}
		}
	}
	return w.send(ctx, nil, "withdraw", units)
}
