package contracts

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xueqianLu/dscgateway/internal/cache"
	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"golang.org/x/sync/errgroup"
)

// Token is the DSC stablecoin. Amounts always use 18 decimals.
type Token struct {
	erc20
}

// TokenInfo is TokenMetadata plus the contract owner.
type TokenInfo struct {
	TokenMetadata
	Owner string `json:"owner"`
}

func NewToken(contract chain.Contract, backend chain.Backend, meta cache.Cache) *Token {
	return &Token{erc20{
		service:  service{contract: contract, backend: backend, meta: meta},
		decimals: format.Decimals,
	}}
}

// WithSigner returns a copy of t that sends transactions as id.
func (t *Token) WithSigner(id *signer.Identity) *Token {
	cp := *t
	cp.identity = id
	return &cp
}

// EstimateOnly returns a copy of t whose writes only estimate gas.
func (t *Token) EstimateOnly() *Token {
	cp := *t
	cp.estimate = true
	return &cp
}

// Owner returns the contract owner.
func (t *Token) Owner(ctx context.Context) (common.Address, error) {
	return t.callAddress(ctx, "owner")
}

// Info returns metadata and owner in one round of concurrent reads.
func (t *Token) Info(ctx context.Context) (*TokenInfo, error) {
	info := &TokenInfo{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		md, err := t.Metadata(gctx)
		if err != nil {
			return err
		}
		info.TokenMetadata = *md
		return nil
	})
	g.Go(func() error {
		owner, err := t.Owner(gctx)
		if err != nil {
			return err
		}
		info.Owner = owner.Hex()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

// Mint creates amount new tokens for to. Only the owner may mint.
func (t *Token) Mint(ctx context.Context, to common.Address, amount string) (*format.TransactionResult, error) {
	if err := t.requireSigner("minting"); err != nil {
		return nil, err
	}
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return nil, err
	}
	return t.send(ctx, nil, "mint", to, wei)
}

// Burn destroys amount of the signer's tokens.
func (t *Token) Burn(ctx context.Context, amount string) (*format.TransactionResult, error) {
	if err := t.requireSigner("burning"); err != nil {
		return nil, err
	}
	wei, err := format.AmountToWei(amount)
	if err != nil {
		return nil, err
	}
	return t.send(ctx, nil, "burn", wei)
}

// RenounceOwnership gives up ownership of the contract for good.
func (t *Token) RenounceOwnership(ctx context.Context) (*format.TransactionResult, error) {
	if err := t.requireSigner("renouncing ownership"); err != nil {
		return nil, err
	}
	return t.send(ctx, nil, "renounceOwnership")
}
