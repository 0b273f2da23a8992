package services

import (
	"context"
	"time"

	"sql-helper/internal/logger"
	"sql-helper/internal/metrics"
	"sql-helper/internal/pkg/errors"

	"github.com/sirupsen/logrus"
)

// LimitSource yields a per-identity override of the daily limit. A nil
// limit means no override.
type LimitSource interface {
	GetDailyTokenLimit(ctx context.Context, email string) (*int64, error)
}

// QuotaDecision is the outcome of one evaluation. Remaining goes negative
// once usage overshoots the limit.
type QuotaDecision struct {
	CanUse       bool      `json:"canUse"`
	CurrentUsage int64     `json:"currentUsage"`
	Remaining    int64     `json:"remaining"`
	DailyLimit   int64     `json:"dailyLimit"`
	Bucket       string    `json:"bucket,omitempty"`
	ResetAt      time.Time `json:"resetAt"`
	// FailedClosed marks a denial caused by a store failure rather than by
	// usage.
	FailedClosed bool `json:"-"`
}

// RemainingOrZero clamps Remaining for display.
func (d QuotaDecision) RemainingOrZero() int64 {
	if d.Remaining < 0 {
		return 0
	}
	return d.Remaining
}

// Decide applies the quota rule to a limit and the usage already recorded.
func Decide(dailyLimit, currentUsage int64) QuotaDecision {
	return QuotaDecision{
		CanUse:       currentUsage < dailyLimit,
		CurrentUsage: currentUsage,
		Remaining:    dailyLimit - currentUsage,
		DailyLimit:   dailyLimit,
	}
}

// QuotaGate never returns an error: any failure to read the limit or the
// ledger yields CanUse=false.
type QuotaGate interface {
	Evaluate(ctx context.Context, identity string) QuotaDecision
}

type quotaGate struct {
	ledger       UsageLedger
	limits       LimitSource
	defaultLimit int64
	timeout      time.Duration
}

// NewQuotaGate builds a gate. timeout bounds each store read; zero leaves
// only the caller's context.
func NewQuotaGate(ledger UsageLedger, limits LimitSource, defaultLimit int64, timeout time.Duration) QuotaGate {
	return &quotaGate{
		ledger:       ledger,
		limits:       limits,
		defaultLimit: defaultLimit,
		timeout:      timeout,
	}
}

func (g *quotaGate) Evaluate(ctx context.Context, identity string) QuotaDecision {
	bucket := g.ledger.Today()
	resetAt := g.ledger.NextReset()
	closed := QuotaDecision{CanUse: false, DailyLimit: g.defaultLimit, Bucket: bucket, ResetAt: resetAt, FailedClosed: true}

	if identity == "" {
		metrics.QuotaDecisions.WithLabelValues("fail_closed").Inc()
		return closed
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	limit, err := g.resolveLimit(ctx, identity)
	if err != nil {
		g.failClosed("limit", identity, err)
		return closed
	}
	closed.DailyLimit = limit

	usage, err := g.ledger.Get(ctx, identity, bucket)
	if err != nil {
		g.failClosed("ledger", identity, err)
		return closed
	}

	decision := Decide(limit, usage.Total())
	decision.Bucket = bucket
	decision.ResetAt = resetAt

	outcome := "allowed"
	if !decision.CanUse {
		outcome = "denied"
	}
	metrics.QuotaDecisions.WithLabelValues(outcome).Inc()
	logger.LogEvent(logrus.DebugLevel, "quota.decision", logrus.Fields{
		"identity":      identity,
		"bucket":        bucket,
		"can_use":       decision.CanUse,
		"current_usage": decision.CurrentUsage,
		"daily_limit":   decision.DailyLimit,
	})

	return decision
}

// resolveLimit prefers a positive override. A user without a row gets the
// default, same as one without an override.
func (g *quotaGate) resolveLimit(ctx context.Context, identity string) (int64, error) {
	override, err := g.limits.GetDailyTokenLimit(ctx, identity)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return g.defaultLimit, nil
		}
		return 0, err
	}
	if override != nil && *override > 0 {
		return *override, nil
	}
	return g.defaultLimit, nil
}

func (g *quotaGate) failClosed(source, identity string, err error) {
	metrics.QuotaDecisions.WithLabelValues("fail_closed").Inc()
	metrics.StoreFailures.WithLabelValues("quota", source).Inc()
	logger.LogEvent(logrus.WarnLevel, "quota.store_failure", logrus.Fields{
		"identity": identity,
		"source":   source,
		"error":    err.Error(),
	})
}
