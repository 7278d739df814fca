package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"golang.org/x/sync/errgroup"
)

// Workflow step names, in execution order.
const (
	StepWrap           = "step1_wrap"
	StepApprove        = "step2_approve"
	StepDeposit        = "step3_deposit"
	StepDepositAndMint = "step3_depositAndMint"
	StepSnapshot       = "balances_after"
)

// Collateral runs the wrap → approve → deposit workflows for one wrapped
// asset.
type Collateral struct {
	asset  *WrappedAsset
	engine *Engine
	token  *Token
}

// Snapshot is a set of balances for one account at one point in time.
type Snapshot struct {
	Native  string
	Wrapped string
	DSC     string
}

// WorkflowResult describes a completed collateral workflow.
type WorkflowResult struct {
	User              common.Address
	Steps             []CompletedStep
	Before            Snapshot
	After             Snapshot
	Account           AccountInformation
	HealthFactor      string
	CollateralBalance string
}

// NativeUsed is the drop in native balance across the workflow, gas
// included, to six decimals.
func (r *WorkflowResult) NativeUsed() string {
	return diffFixed(r.Before.Native, r.After.Native)
}

// DSCReceived is the rise in DSC balance across the workflow, to six
// decimals.
func (r *WorkflowResult) DSCReceived() string {
	return diffFixed(r.After.DSC, r.Before.DSC)
}

func diffFixed(a, b string) string {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return ""
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return ""
	}
	return da.Sub(db).StringFixed(6)
}

func NewCollateral(asset *WrappedAsset, engine *Engine, token *Token) *Collateral {
	return &Collateral{asset: asset, engine: engine, token: token}
}

// Asset returns the wrapped asset the workflow deposits.
func (c *Collateral) Asset() *WrappedAsset {
	return c.asset
}

// Engine returns the engine the workflow deposits into.
func (c *Collateral) Engine() *Engine {
	return c.engine
}

// WithSigner returns a copy whose asset and engine send as id.
func (c *Collateral) WithSigner(id *signer.Identity) *Collateral {
	return &Collateral{
		asset:  c.asset.WithSigner(id),
		engine: c.engine.WithSigner(id),
		token:  c.token,
	}
}

// DepositAsCollateral wraps amount, approves the engine and deposits the
// wrapped tokens as collateral.
func (c *Collateral) DepositAsCollateral(ctx context.Context, amount string) (*WorkflowResult, error) {
	return c.run(ctx, amount, nil)
}

// DepositAndMint wraps amount, approves the engine, then deposits and mints
// dscToMint in one engine call.
func (c *Collateral) DepositAndMint(ctx context.Context, amount, dscToMint string) (*WorkflowResult, error) {
	dsc, err := format.AmountToWei(dscToMint)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, amount, dsc)
}

func (c *Collateral) run(ctx context.Context, amount string, mint *big.Int) (*WorkflowResult, error) {
	if err := c.asset.requireSigner("deposit workflow"); err != nil {
		return nil, err
	}
	units, err := c.asset.toUnits(ctx, amount)
	if err != nil {
		return nil, err
	}
	user := c.asset.identity.Address()

	before, err := c.snapshot(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := c.asset.checkNative(ctx, units, amount); err != nil {
		return nil, err
	}
	res := &WorkflowResult{User: user, Before: *before}

	wrap, err := c.asset.depositUnits(ctx, units)
	if err != nil {
		return nil, &StepError{Step: StepWrap, Err: err}
	}
	res.Steps = append(res.Steps, newCompletedStep(StepWrap, "Wrapped "+c.asset.cfg.NativeSymbol+" to "+c.asset.cfg.Symbol, wrap))

	approve, err := c.asset.approveUnits(ctx, c.engine.Address(), units)
	if err != nil {
		return nil, &StepError{Step: StepApprove, Err: err, Completed: res.Steps}
	}
	res.Steps = append(res.Steps, newCompletedStep(StepApprove, "Approved DSC Engine to spend "+c.asset.cfg.Symbol, approve))

	if mint == nil {
		dep, err := c.engine.depositCollateralUnits(ctx, c.asset.Address(), units)
		if err != nil {
			return nil, &StepError{Step: StepDeposit, Err: err, Completed: res.Steps}
		}
		res.Steps = append(res.Steps, newCompletedStep(StepDeposit, "Deposited "+c.asset.cfg.Symbol+" as collateral", dep))
	} else {
		dep, err := c.engine.depositAndMintUnits(ctx, c.asset.Address(), units, mint)
		if err != nil {
			return nil, &StepError{Step: StepDepositAndMint, Err: err, Completed: res.Steps}
		}
		res.Steps = append(res.Steps, newCompletedStep(StepDepositAndMint, "Deposited "+c.asset.cfg.Symbol+" as collateral and minted DSC", dep))
	}

	if err := c.settle(ctx, res); err != nil {
		return nil, &StepError{Step: StepSnapshot, Err: err, Completed: res.Steps}
	}
	return res, nil
}

func (c *Collateral) snapshot(ctx context.Context, user common.Address) (*Snapshot, error) {
	s := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Native, err = c.asset.NativeBalance(gctx, user)
		return err
	})
	g.Go(func() (err error) {
		s.Wrapped, err = c.asset.BalanceOf(gctx, user)
		return err
	})
	g.Go(func() (err error) {
		s.DSC, err = c.token.BalanceOf(gctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

// settle fills the after-state of res.
func (c *Collateral) settle(ctx context.Context, res *WorkflowResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		after, err := c.snapshot(gctx, res.User)
		if err != nil {
			return err
		}
		res.After = *after
		return nil
	})
	g.Go(func() error {
		info, err := c.engine.GetAccountInformation(gctx, res.User)
		if err != nil {
			return err
		}
		res.Account = *info
		return nil
	})
	g.Go(func() (err error) {
		res.HealthFactor, err = c.engine.GetHealthFactor(gctx, res.User)
		return err
	})
	g.Go(func() error {
		units, err := c.engine.collateralUnits(gctx, res.User, c.asset.Address())
		if err != nil {
			return err
		}
		res.CollateralBalance, err = c.asset.fromUnits(gctx, units)
		return err
	})
	return g.Wait()
}
