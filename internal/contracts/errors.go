package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xueqianLu/dscgateway/internal/format"
)

var (
	// ErrSignerNotSet is returned by write operations on a service that has
	// no identity bound.
	ErrSignerNotSet = errors.New("Signer not set")

	// ErrTransactionReverted is returned when a mined receipt has status 0.
	ErrTransactionReverted = errors.New("transaction reverted")
)

func signerNotSet(op string) error {
	return fmt.Errorf("%w. Private key required for %s.", ErrSignerNotSet, op)
}

// InsufficientBalanceError reports a pre-flight balance check failure.
// It is a caller error, not a node failure.
type InsufficientBalanceError struct {
	Asset     string
	Available string
	Required  string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient %s balance. Available: %s %s, Required: %s %s",
		e.Asset, e.Available, e.Asset, e.Required, e.Asset)
}

// CompletedStep is one confirmed transaction of a workflow.
type CompletedStep struct {
	Step            string `json:"step"`
	Description     string `json:"description"`
	TransactionHash string `json:"transactionHash"`
	GasUsed         string `json:"gasUsed"`
}

func newCompletedStep(step, description string, res *format.TransactionResult) CompletedStep {
	return CompletedStep{
		Step:            step,
		Description:     description,
		TransactionHash: res.TransactionHash,
		GasUsed:         res.GasUsed,
	}
}

// StepError is returned when a multi-step workflow stops part way. Completed
// holds the steps that were confirmed before Step failed; they are not
// rolled back.
type StepError struct {
	Step      string
	Err       error
	Completed []CompletedStep
}

func (e *StepError) Error() string {
	var done []string
	for _, c := range e.Completed {
		done = append(done, c.Step)
	}
	msg := fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	if len(done) > 0 {
		msg += " (completed: " + strings.Join(done, ", ") + ")"
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
