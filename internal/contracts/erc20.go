package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/format"
	"golang.org/x/sync/errgroup"
)

// TokenMetadata is the static description of an ERC20 contract.
type TokenMetadata struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Decimals        uint8  `json:"decimals"`
	TotalSupply     string `json:"totalSupply"`
	ContractAddress string `json:"contractAddress"`
}

// erc20 holds the reads and writes every token contract shares. decimals
// fixes the unit scale; zero means the contract's own decimals() is used.
type erc20 struct {
	service
	decimals int32
}

func (e *erc20) unitDecimals(ctx context.Context) (int32, error) {
	if e.decimals > 0 {
		return e.decimals, nil
	}
	d, err := e.metaDecimals(ctx)
	if err != nil {
		return 0, err
	}
	return int32(d), nil
}

func (e *erc20) toUnits(ctx context.Context, amount string) (*big.Int, error) {
	d, err := e.unitDecimals(ctx)
	if err != nil {
		return nil, err
	}
	return format.AmountToUnits(amount, d)
}

func (e *erc20) fromUnits(ctx context.Context, v *big.Int) (string, error) {
	d, err := e.unitDecimals(ctx)
	if err != nil {
		return "", err
	}
	return format.AmountFromUnits(v, d), nil
}

// Name returns the token name.
func (e *erc20) Name(ctx context.Context) (string, error) {
	return e.metaString(ctx, "name")
}

// Symbol returns the token symbol.
func (e *erc20) Symbol(ctx context.Context) (string, error) {
	return e.metaString(ctx, "symbol")
}

// Decimals returns the on-chain decimals.
func (e *erc20) Decimals(ctx context.Context) (uint8, error) {
	return e.metaDecimals(ctx)
}

// TotalSupply returns the formatted total supply.
func (e *erc20) TotalSupply(ctx context.Context) (string, error) {
	v, err := e.callBig(ctx, "totalSupply")
	if err != nil {
		return "", err
	}
	return e.fromUnits(ctx, v)
}

// BalanceOf returns the formatted token balance of account.
func (e *erc20) BalanceOf(ctx context.Context, account common.Address) (string, error) {
	v, err := e.balanceUnits(ctx, account)
	if err != nil {
		return "", err
	}
	return e.fromUnits(ctx, v)
}

func (e *erc20) balanceUnits(ctx context.Context, account common.Address) (*big.Int, error) {
	return e.callBig(ctx, "balanceOf", account)
}

// Allowance returns how much spender may still move on behalf of owner.
func (e *erc20) Allowance(ctx context.Context, owner, spender common.Address) (string, error) {
	v, err := e.callBig(ctx, "allowance", owner, spender)
	if err != nil {
		return "", err
	}
	return e.fromUnits(ctx, v)
}

// Metadata reads name, symbol, decimals and total supply concurrently.
func (e *erc20) Metadata(ctx context.Context) (*TokenMetadata, error) {
	md := &TokenMetadata{ContractAddress: e.Address().Hex()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		md.Name, err = e.Name(gctx)
		return err
	})
	g.Go(func() (err error) {
		md.Symbol, err = e.Symbol(gctx)
		return err
	})
	g.Go(func() (err error) {
		md.Decimals, err = e.Decimals(gctx)
		return err
	})
	g.Go(func() (err error) {
		md.TotalSupply, err = e.TotalSupply(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return md, nil
}

// Approve lets spender move amount of the signer's tokens.
func (e *erc20) Approve(ctx context.Context, spender common.Address, amount string) (*format.TransactionResult, error) {
	if err := e.requireSigner("approval"); err != nil {
		return nil, err
	}
	units, err := e.toUnits(ctx, amount)
	if err != nil {
		return nil, err
	}
	return e.approveUnits(ctx, spender, units)
}

func (e *erc20) approveUnits(ctx context.Context, spender common.Address, units *big.Int) (*format.TransactionResult, error) {
	return e.send(ctx, nil, "approve", spender, units)
}

// Transfer sends amount from the signer to to.
func (e *erc20) Transfer(ctx context.Context, to common.Address, amount string) (*format.TransactionResult, error) {
	if err := e.requireSigner("transfer"); err != nil {
		return nil, err
	}
	units, err := e.toUnits(ctx, amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, nil, "transfer", to, units)
}
