// Package chaintest provides in-memory chain.Contract and chain.Backend
// implementations that record every call.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Invocation is one recorded contract interaction.
type Invocation struct {
	Kind   string // "call", "transact" or "estimate"
	Method string
	Args   []any
	From   common.Address
	Value  *big.Int
}

// Contract is a scripted chain.Contract.
type Contract struct {
	Addr common.Address
	Gas  uint64

	mu      sync.Mutex
	results map[string][]any
	errs    map[string]error
	calls   []Invocation
	nonce   uint64
}

func NewContract(addr common.Address) *Contract {
	return &Contract{
		Addr:    addr,
		Gas:     50000,
		results: make(map[string][]any),
		errs:    make(map[string]error),
	}
}

// SetResult scripts the values returned by a view call of method.
func (c *Contract) SetResult(method string, values ...any) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[method] = values
	return c
}

// FailOn makes every interaction with method return err.
func (c *Contract) FailOn(method string, err error) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[method] = err
	return c
}

// Calls returns a copy of the recorded invocations.
func (c *Contract) Calls() []Invocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Invocation(nil), c.calls...)
}

// CallCount is the total number of recorded invocations.
func (c *Contract) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Count returns how often method was invoked with kind.
func (c *Contract) Count(kind, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, inv := range c.calls {
		if inv.Kind == kind && inv.Method == method {
			n++
		}
	}
	return n
}

func (c *Contract) Address() common.Address {
	return c.Addr
}

func (c *Contract) record(inv Invocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, inv)
	return c.errs[inv.Method]
}

func (c *Contract) Call(_ context.Context, method string, args ...any) ([]any, error) {
	if err := c.record(Invocation{Kind: "call", Method: method, Args: args}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.results[method]
	if !ok {
		return nil, fmt.Errorf("no scripted result for %s", method)
	}
	return out, nil
}

// Transact builds a dummy transaction and signs it through opts, so the
// caller's signer is exercised.
func (c *Contract) Transact(_ context.Context, opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error) {
	if err := c.record(Invocation{Kind: "transact", Method: method, Args: args, From: opts.From, Value: opts.Value}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.nonce++
	nonce := c.nonce
	c.mu.Unlock()

	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}
	to := c.Addr
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(1),
		Gas:      c.Gas,
		To:       &to,
		Value:    value,
		Data:     []byte(method),
	})
	return opts.Signer(opts.From, tx)
}

func (c *Contract) EstimateGas(_ context.Context, from common.Address, value *big.Int, method string, args ...any) (uint64, error) {
	if err := c.record(Invocation{Kind: "estimate", Method: method, Args: args, From: from, Value: value}); err != nil {
		return 0, err
	}
	return c.Gas, nil
}

// Backend is a scripted chain.Backend. Every transaction is mined at Head.
type Backend struct {
	ID     *big.Int
	Head   uint64
	Revert bool

	mu       sync.Mutex
	balances map[common.Address]*big.Int
	mined    []*types.Transaction
}

func NewBackend() *Backend {
	return &Backend{
		ID:       big.NewInt(31337),
		Head:     100,
		balances: make(map[common.Address]*big.Int),
	}
}

// SetBalance sets the native balance of account in wei.
func (b *Backend) SetBalance(account common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = wei
}

// Mined returns the transactions passed to WaitMined.
func (b *Backend) Mined() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.mined...)
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.ID), nil
}

func (b *Backend) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	return b.Head, nil
}

func (b *Backend) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	b.mu.Lock()
	b.mined = append(b.mined, tx)
	b.mu.Unlock()

	status := types.ReceiptStatusSuccessful
	if b.Revert {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.Head),
		GasUsed:     tx.Gas() / 2,
		Status:      status,
	}, nil
}
