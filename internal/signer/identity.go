package signer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

var (
	// ErrInvalidPrivateKey is returned when a private key fails validation.
	ErrInvalidPrivateKey = errors.New("Invalid private key format")

	// ErrAddressMismatch is returned when a transaction is handed to an
	// identity for an address it does not own.
	ErrAddressMismatch = errors.New("signer address mismatch")
)

// Identity is a signing credential scoped to a single request. It is never
// stored on a shared service.
type Identity struct {
	address common.Address
	signTx  func(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// FromPrivateKey derives an identity from a 0x-prefixed hex private key.
func FromPrivateKey(hexKey string) (*Identity, error) {
	if !validator.ValidatePrivateKey(hexKey) {
		return nil, ErrInvalidPrivateKey
	}
	key, err := crypto.HexToECDSA(hexKey[2:])
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return &Identity{
		address: crypto.PubkeyToAddress(key.PublicKey),
		signTx: func(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
			return types.SignTx(tx, types.NewPragueSigner(chainID), key)
		},
	}, nil
}

// Managed returns an identity backed by a key held in km.
func Managed(km KeyManager, address common.Address) (*Identity, error) {
	for _, a := range km.GetAccounts() {
		if a == address {
			return &Identity{
				address: address,
				signTx: func(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
					return km.SignTx(address, tx, chainID)
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
}

// Address returns the account the identity signs for.
func (id *Identity) Address() common.Address {
	return id.address
}

// SignTx signs tx for chainID.
func (id *Identity) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return id.signTx(tx, chainID)
}

// TransactOpts builds bind options that sign with this identity.
func (id *Identity) TransactOpts(ctx context.Context, chainID *big.Int) *bind.TransactOpts {
	return &bind.TransactOpts{
		From:    id.address,
		Context: ctx,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if from != id.address {
				return nil, ErrAddressMismatch
			}
			return id.signTx(tx, chainID)
		},
	}
}
