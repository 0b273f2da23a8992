package services

import (
	"context"
	"sort"
	"sync"

	"sql-helper/internal/ai"
	"sql-helper/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTokenUsageRepository is a mock for repository.TokenUsageRepository
type MockTokenUsageRepository struct {
	mock.Mock
}

func (m *MockTokenUsageRepository) Get(ctx context.Context, userID, usageDate string) (models.TokenUsage, error) {
	args := m.Called(ctx, userID, usageDate)
	return args.Get(0).(models.TokenUsage), args.Error(1)
}

func (m *MockTokenUsageRepository) Increment(ctx context.Context, userID, usageDate string, requestTokens, responseTokens int64) error {
	args := m.Called(ctx, userID, usageDate, requestTokens, responseTokens)
	return args.Error(0)
}

func (m *MockTokenUsageRepository) ListRange(ctx context.Context, userID, fromDate, toDate string) ([]models.TokenUsage, error) {
	args := m.Called(ctx, userID, fromDate, toDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TokenUsage), args.Error(1)
}

// MockUserRepository is a mock for repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetDailyTokenLimit(ctx context.Context, email string) (*int64, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockUserRepository) SetDailyTokenLimit(ctx context.Context, email string, limit *int64) error {
	args := m.Called(ctx, email, limit)
	return args.Error(0)
}

// MockCompleter is a mock for Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Response), args.Error(1)
}

// MockSessionRegistry is a mock for SessionRegistry
type MockSessionRegistry struct {
	mock.Mock
}

func (m *MockSessionRegistry) Create(ctx context.Context, identity, token string) error {
	return m.Called(ctx, identity, token).Error(0)
}

func (m *MockSessionRegistry) Validate(ctx context.Context, identity, token string) bool {
	return m.Called(ctx, identity, token).Bool(0)
}

func (m *MockSessionRegistry) Remove(ctx context.Context, identity string) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockSessionRegistry) RemoveOne(ctx context.Context, identity, token string) error {
	return m.Called(ctx, identity, token).Error(0)
}

func (m *MockSessionRegistry) IsActive(ctx context.Context, identity string) bool {
	return m.Called(ctx, identity).Bool(0)
}

// memTokenUsageRepository keeps rows in memory with the same upsert
// semantics as the Postgres repository.
type memTokenUsageRepository struct {
	mu   sync.Mutex
	rows map[string]models.TokenUsage
}

func newMemTokenUsageRepository() *memTokenUsageRepository {
	return &memTokenUsageRepository{rows: make(map[string]models.TokenUsage)}
}

func (r *memTokenUsageRepository) Get(_ context.Context, userID, usageDate string) (models.TokenUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[userID+"|"+usageDate], nil
}

func (r *memTokenUsageRepository) Increment(_ context.Context, userID, usageDate string, requestTokens, responseTokens int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + "|" + usageDate
	row := r.rows[key]
	row.UserID = userID
	row.UsageDate = usageDate
	row.RequestTokens += requestTokens
	row.ResponseTokens += responseTokens
	r.rows[key] = row
	return nil
}

func (r *memTokenUsageRepository) ListRange(_ context.Context, userID, fromDate, toDate string) ([]models.TokenUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TokenUsage
	for _, row := range r.rows {
		if row.UserID == userID && row.UsageDate >= fromDate && row.UsageDate <= toDate {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsageDate > out[j].UsageDate })
	return out, nil
}
