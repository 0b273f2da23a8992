package services

import (
	"context"

	"sql-helper/internal/pkg/errors"
)

// Gate is what handlers call around an assistant invocation: Authorize
// before, Record after a successful response. Evaluate and Record are not
// one transaction, so parallel calls from one identity can overshoot the
// limit by the cost of the calls already in flight. That soft limit is
// accepted.
type Gate interface {
	Authorize(ctx context.Context, identity string) (QuotaDecision, error)
	Record(ctx context.Context, identity string, requestTokens, responseTokens int64) error
}

type gate struct {
	quota  QuotaGate
	ledger UsageLedger
}

func NewGate(quota QuotaGate, ledger UsageLedger) Gate {
	return &gate{quota: quota, ledger: ledger}
}

// Authorize returns a *errors.QuotaExceededError when the identity has used
// up its allowance, and an ErrStoreUnavailable error when the usage could not
// be read. Both deny the call.
func (g *gate) Authorize(ctx context.Context, identity string) (QuotaDecision, error) {
	decision := g.quota.Evaluate(ctx, identity)
	if decision.FailedClosed {
		return decision, &errors.Error{
			Err:     errors.ErrStoreUnavailable,
			Message: "usage check unavailable, try again later",
			Code:    errors.CodeStoreUnavailable,
		}
	}
	if !decision.CanUse {
		return decision, &errors.QuotaExceededError{
			CurrentUsage: decision.CurrentUsage,
			DailyLimit:   decision.DailyLimit,
		}
	}
	return decision, nil
}

// Record skips empty usage so no zero rows are written.
func (g *gate) Record(ctx context.Context, identity string, requestTokens, responseTokens int64) error {
	if identity == "" || requestTokens+responseTokens <= 0 {
		return nil
	}
	if requestTokens < 0 {
		requestTokens = 0
	}
	if responseTokens < 0 {
		responseTokens = 0
	}
	return g.ledger.IncrementToday(ctx, identity, requestTokens, responseTokens)
}
