package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"golang.org/x/sync/errgroup"
)

// Engine is the collateral engine that mints and burns DSC.
type Engine struct {
	service
}

// AccountInformation is the engine's view of a user's position.
type AccountInformation struct {
	TotalDscMinted       string `json:"totalDscMinted"`
	CollateralValueInUsd string `json:"collateralValueInUsd"`
}

// AccountData adds the health factor and total collateral value.
type AccountData struct {
	AccountInformation
	HealthFactor              string `json:"healthFactor"`
	TotalCollateralValueInUsd string `json:"totalCollateralValueInUsd"`
}

func NewEngine(contract chain.Contract, backend chain.Backend) *Engine {
	return &Engine{service{contract: contract, backend: backend}}
}

// WithSigner returns a copy of e that sends transactions as id.
func (e *Engine) WithSigner(id *signer.Identity) *Engine {
	cp := *e
	cp.identity = id
	return &cp
}

// EstimateOnly returns a copy of e whose writes only estimate gas.
func (e *Engine) EstimateOnly() *Engine {
	cp := *e
	cp.estimate = true
	return &cp
}

func (e *Engine) GetAccountInformation(ctx context.Context, user common.Address) (*AccountInformation, error) {
	out, err := e.call(ctx, "getAccountInformation", user)
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("getAccountInformation: expected 2 values, got %d", len(out))
	}
	minted, ok1 := out[0].(*big.Int)
	value, ok2 := out[1].(*big.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("getAccountInformation: unexpected result types %T, %T", out[0], out[1])
	}
	return &AccountInformation{
		TotalDscMinted:       format.AmountFromWei(minted),
		CollateralValueInUsd: format.AmountFromWei(value),
	}, nil
}

func (e *Engine) GetHealthFactor(ctx context.Context, user common.Address) (string, error) {
	v, err := e.callBig(ctx, "getHealthFactor", user)
	if err != nil {
		return "", err
	}
	return format.AmountFromWei(v), nil
}

func (e *Engine) GetAccountCollateralValue(ctx context.Context, user common.Address) (string, error) {
	v, err := e.callBig(ctx, "getAccountCollateralValued", user)
	if err != nil {
		return "", err
	}
	return format.AmountFromWei(v), nil
}

// GetCollateralBalanceOfUser returns the user's deposited balance of token
// in 18-decimal units.
func (e *Engine) GetCollateralBalanceOfUser(ctx context.Context, user, token common.Address) (string, error) {
	v, err := e.collateralUnits(ctx, user, token)
	if err != nil {
		return "", err
	}
	return format.AmountFromWei(v), nil
}

func (e *Engine) collateralUnits(ctx context.Context, user, token common.Address) (*big.Int, error) {
	return e.callBig(ctx, "getCollateralBalanceOfUser", user, token)
}

func (e *Engine) GetCollateralTokens(ctx context.Context) ([]common.Address, error) {
	out, err := e.call(ctx, "getCollateralTokens")
	if err != nil {
		return nil, err
	}
	tokens, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getCollateralTokens: unexpected result type %T", out[0])
	}
	return tokens, nil
}

func (e *Engine) GetCollateralTokenPriceFeed(ctx context.Context, token common.Address) (common.Address, error) {
	return e.callAddress(ctx, "getCollateralTokenPriceFeed", token)
}

// GetTokenAmountFromUsd converts a USD amount to an amount of token.
func (e *Engine) GetTokenAmountFromUsd(ctx context.Context, token common.Address, usdAmount string) (string, error) {
	wei, err := format.AmountToWei(usdAmount)
	if err != nil {
		return "", err
	}
	v, err := e.callBig(ctx, "getTokenAmountFromUsd", token, wei)
	if err != nil {
		return "", err
	}
	return format.AmountFromWei(v), nil
}

// GetUsdValue returns the USD value of amount of token.
func (e *Engine) GetUsdValue(ctx context.Context, token common.Address, amount string) (string, error) {
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return "", err
	}
	v, err := e.callBig(ctx, "getUsdValue", token, wei)
	if err != nil {
		return "", err
	}
	return format.AmountFromWei(v), nil
}

// AccountData reads the position, health factor and collateral value of
// user concurrently.
func (e *Engine) AccountData(ctx context.Context, user common.Address) (*AccountData, error) {
	data := &AccountData{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := e.GetAccountInformation(gctx, user)
		if err != nil {
			return err
		}
		data.AccountInformation = *info
		return nil
	})
	g.Go(func() (err error) {
		data.HealthFactor, err = e.GetHealthFactor(gctx, user)
		return err
	})
	g.Go(func() (err error) {
		data.TotalCollateralValueInUsd, err = e.GetAccountCollateralValue(gctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func (e *Engine) DepositCollateral(ctx context.Context, token common.Address, amount string) (*format.TransactionResult, error) {
	if err := e.requireSigner("depositing collateral"); err != nil {
		return nil, err
	}
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return nil, err
	}
	return e.depositCollateralUnits(ctx, token, wei)
}

func (e *Engine) depositCollateralUnits(ctx context.Context, token common.Address, units *big.Int) (*format.TransactionResult, error) {
	return e.send(ctx, nil, "depositCollateral", token, units)
}

func (e *Engine) MintDSC(ctx context.Context, amount string) (*format.TransactionResult, error) {
	if err := e.requireSigner("minting DSC"); err != nil {
		return nil, err
	}
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, nil, "mintDSC", wei)
}

func (e *Engine) DepositCollateralAndMintDSC(ctx context.Context, token common.Address, amountCollateral, amountDscToMint string) (*format.TransactionResult, error) {
	if err := e.requireSigner("depositing collateral and minting DSC"); err != nil {
		return nil, err
	}
	collateral, err := format.AmountToWei(amountCollateral)
	if err != nil {
		return nil, err
	}
	dsc, err := format.AmountToWei(amountDscToMint)
	if err != nil {
		return nil, err
	}
	return e.depositAndMintUnits(ctx, token, collateral, dsc)
}

func (e *Engine) depositAndMintUnits(ctx context.Context, token common.Address, collateral, dsc *big.Int) (*format.TransactionResult, error) {
	return e.send(ctx, nil, "depositCollateralAndMintDSC", token, collateral, dsc)
}

func (e *Engine) RedeemCollateral(ctx context.Context, token common.Address, amount string) (*format.TransactionResult, error) {
	if err := e.requireSigner("redeeming collateral"); err != nil {
		return nil, err
	}
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, nil, "redeemCollateral", token, wei)
}

func (e *Engine) BurnDSC(ctx context.Context, amount string) (*format.TransactionResult, error) {
	if err := e.requireSigner("burning DSC"); err != nil {
		return nil, err
	}
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, nil, "burnDSC", wei)
}

func (e *Engine) RedeemCollateralForDSC(ctx context.Context, token common.Address, amountCollateral, amountDscToBurn string) (*format.TransactionResult, error) {
	if err := e.requireSigner("redeeming collateral for DSC"); err != nil {
		return nil, err
	}
	collateral, err := format.AmountToWei(amountCollateral)
	if err != nil {
		return nil, err
	}
	dsc, err := format.AmountToWei(amountDscToBurn)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, nil, "redeemCollateralForDSC", token, collateral, dsc)
}

// Liquidate covers debtToCover of user's debt in exchange for their
// collateral.
func (e *Engine) Liquidate(ctx context.Context, collateral, user common.Address, debtToCover string) (*format.TransactionResult, error) {
	if err := e.requireSigner("liquidation"); err != nil {
		return nil, err
	}
	debt, err := format.AmountToWei(debtToCover)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, nil, "liquidate", collateral, user, debt)
}
