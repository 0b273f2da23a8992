package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGateRecord(t *testing.T) {
	ctx := context.Background()
	identity := "u1@example.com"

	tests := []struct {
		name      string
		identity  string
		req, resp int64
		wantTotal int64
	}{
		{name: "records both sides", identity: identity, req: 120, resp: 80, wantTotal: 200},
		{name: "zero usage skipped", identity: identity},
		{name: "negative clamped", identity: identity, req: 50, resp: -10, wantTotal: 50},
		{name: "negative sum skipped", identity: identity, req: -5, resp: 2},
		{name: "anonymous skipped", req: 10, resp: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemTokenUsageRepository()
			ledger := NewUsageLedger(repo, WithLocation(time.UTC))
			g := NewGate(NewQuotaGate(ledger, new(MockUserRepository), 10000, 0), ledger)

			require.NoError(t, g.Record(ctx, tt.identity, tt.req, tt.resp))

			usage, err := repo.Get(ctx, identity, ledger.Today())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, usage.Total())
		})
	}
}

func TestGateAuthorizeAllows(t *testing.T) {
	ctx := context.Background()
	limits := new(MockUserRepository)
	limits.On("GetDailyTokenLimit", mock.Anything, "u1@example.com").Return(int64Ptr(500), nil)

	ledger := NewUsageLedger(newMemTokenUsageRepository())
	g := NewGate(NewQuotaGate(ledger, limits, 10000, 0), ledger)

	decision, err := g.Authorize(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.True(t, decision.CanUse)
	assert.Equal(t, int64(500), decision.Remaining)
}
