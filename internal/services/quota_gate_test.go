package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sql-helper/internal/models"
	"sql-helper/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		limit     int64
		usage     int64
		canUse    bool
		remaining int64
	}{
		{name: "fresh day", limit: 10000, usage: 0, canUse: true, remaining: 10000},
		{name: "one token left", limit: 10000, usage: 9999, canUse: true, remaining: 1},
		{name: "exactly at limit", limit: 10000, usage: 10000, canUse: false, remaining: 0},
		{name: "overshoot", limit: 10000, usage: 10020, canUse: false, remaining: -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.limit, tt.usage)
			assert.Equal(t, tt.canUse, d.CanUse)
			assert.Equal(t, tt.remaining, d.Remaining)
			assert.Equal(t, tt.usage, d.CurrentUsage)
			assert.Equal(t, tt.limit, d.DailyLimit)
			assert.Equal(t, d.CanUse, d.CurrentUsage < d.DailyLimit)
		})
	}

	assert.Equal(t, int64(0), Decide(10000, 10020).RemainingOrZero())
}

func TestQuotaGateOvershootScenario(t *testing.T) {
	ctx := context.Background()
	identity := "u1@example.com"

	repo := newMemTokenUsageRepository()
	ledger := NewUsageLedger(repo, WithLocation(time.UTC))
	limits := new(MockUserRepository)
	limits.On("GetDailyTokenLimit", mock.Anything, identity).Return((*int64)(nil), nil)

	quota := NewQuotaGate(ledger, limits, 10000, time.Second)
	g := NewGate(quota, ledger)

	require.NoError(t, ledger.IncrementToday(ctx, identity, 5000, 4950))

	decision := quota.Evaluate(ctx, identity)
	assert.True(t, decision.CanUse)
	assert.Equal(t, int64(9950), decision.CurrentUsage)
	assert.Equal(t, int64(50), decision.Remaining)
	assert.Equal(t, ledger.Today(), decision.Bucket)

	// The call goes through and reports more than what was left.
	_, err := g.Authorize(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, g.Record(ctx, identity, 40, 30))

	decision = quota.Evaluate(ctx, identity)
	assert.False(t, decision.CanUse)
	assert.Equal(t, int64(10020), decision.CurrentUsage)
	assert.Equal(t, int64(-20), decision.Remaining)
	assert.False(t, decision.FailedClosed)

	_, err = g.Authorize(ctx, identity)
	var qe *errors.QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, int64(10020), qe.CurrentUsage)
	assert.Equal(t, int64(10000), qe.DailyLimit)
}

func TestQuotaGateLimitResolution(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		override  *int64
		err       error
		wantLimit int64
	}{
		{name: "no override", wantLimit: 10000},
		{name: "positive override", override: int64Ptr(50000), wantLimit: 50000},
		{name: "zero override ignored", override: int64Ptr(0), wantLimit: 10000},
		{name: "negative override ignored", override: int64Ptr(-1), wantLimit: 10000},
		{name: "unknown user", err: errors.ErrNotFound, wantLimit: 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := new(MockUserRepository)
			limits.On("GetDailyTokenLimit", mock.Anything, "u1@example.com").Return(tt.override, tt.err)

			quota := NewQuotaGate(NewUsageLedger(newMemTokenUsageRepository()), limits, 10000, 0)
			decision := quota.Evaluate(ctx, "u1@example.com")

			assert.True(t, decision.CanUse)
			assert.Equal(t, tt.wantLimit, decision.DailyLimit)
			assert.Equal(t, tt.wantLimit, decision.Remaining)
		})
	}
}

func TestQuotaGateFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("empty identity", func(t *testing.T) {
		limits := new(MockUserRepository)
		quota := NewQuotaGate(NewUsageLedger(newMemTokenUsageRepository()), limits, 10000, 0)

		decision := quota.Evaluate(ctx, "")
		assert.False(t, decision.CanUse)
		assert.True(t, decision.FailedClosed)
		limits.AssertNotCalled(t, "GetDailyTokenLimit", mock.Anything, mock.Anything)
	})

	t.Run("limit lookup fails", func(t *testing.T) {
		limits := new(MockUserRepository)
		limits.On("GetDailyTokenLimit", mock.Anything, "u1@example.com").
			Return(nil, errors.Unavailable(fmt.Errorf("timeout"), "failed to read limit"))

		quota := NewQuotaGate(NewUsageLedger(newMemTokenUsageRepository()), limits, 10000, 0)
		decision := quota.Evaluate(ctx, "u1@example.com")
		assert.False(t, decision.CanUse)
		assert.True(t, decision.FailedClosed)
	})

	t.Run("ledger read fails", func(t *testing.T) {
		limits := new(MockUserRepository)
		limits.On("GetDailyTokenLimit", mock.Anything, "u1@example.com").Return((*int64)(nil), nil)
		repo := new(MockTokenUsageRepository)
		repo.On("Get", mock.Anything, "u1@example.com", mock.Anything).
			Return(models.TokenUsage{}, fmt.Errorf("connection reset"))

		g := NewGate(NewQuotaGate(NewUsageLedger(repo), limits, 10000, 0), NewUsageLedger(repo))
		decision, err := g.Authorize(ctx, "u1@example.com")

		assert.False(t, decision.CanUse)
		assert.True(t, decision.FailedClosed)
		assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
		assert.False(t, errors.Is(err, errors.ErrQuotaExceeded))
	})
}
