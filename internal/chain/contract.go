package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/xueqianLu/dscgateway/internal/metrics"
	"github.com/xueqianLu/dscgateway/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Contract is a handle on one deployed contract. Methods are addressed by
// ABI name; results come back as decoded Go values in output order.
type Contract interface {
	Address() common.Address
	Call(ctx context.Context, method string, args ...any) ([]any, error)
	Transact(ctx context.Context, opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error)
	EstimateGas(ctx context.Context, from common.Address, value *big.Int, method string, args ...any) (uint64, error)
}

// BoundContract implements Contract over a go-ethereum bound contract.
type BoundContract struct {
	name    string
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	client  *Client
	metrics *metrics.Metrics
}

// NewContract binds abiJSON at address. name labels spans and metrics;
// m may be nil.
func NewContract(name string, address common.Address, abiJSON string, client *Client, m *metrics.Metrics) (*BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
	}
	return &BoundContract{
		name:    name,
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, client.eth, client.eth, client.eth),
		client:  client,
		metrics: m,
	}, nil
}

// Address returns the contract address.
func (c *BoundContract) Address() common.Address {
	return c.address
}

// Call performs a view call at the latest block.
func (c *BoundContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	ctx, done := c.observe(ctx, method, "call")
	var out []any
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	return out, nil
}

// Transact signs and submits a transaction calling method.
func (c *BoundContract) Transact(ctx context.Context, opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error) {
	ctx, done := c.observe(ctx, method, "transact")
	o := *opts
	o.Context = ctx
	tx, err := c.bound.Transact(&o, method, args...)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	return tx, nil
}

// EstimateGas packs method with args and asks the node for a gas estimate
// without submitting anything.
func (c *BoundContract) EstimateGas(ctx context.Context, from common.Address, value *big.Int, method string, args ...any) (uint64, error) {
	ctx, done := c.observe(ctx, method, "estimate")
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		done(err)
		return 0, fmt.Errorf("failed to pack %s.%s: %w", c.name, method, err)
	}
	to := c.address
	gas, err := c.client.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	done(err)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	return gas, nil
}

func (c *BoundContract) observe(ctx context.Context, method, kind string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, c.name+"."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("contract.name", c.name),
			attribute.String("contract.address", c.address.Hex()),
			attribute.String("contract.kind", kind),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.metrics != nil {
			c.metrics.RecordContractCall(c.name, method, kind, err, time.Since(start))
		}
	}
}
