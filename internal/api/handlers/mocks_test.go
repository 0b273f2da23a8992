package handlers

import (
	"context"
	"time"

	"sql-helper/internal/models"
	"sql-helper/internal/services"

	"github.com/stretchr/testify/mock"
)

type MockSQLService struct {
	mock.Mock
}

func (m *MockSQLService) Format(query, dialect string) (string, error) {
	args := m.Called(query, dialect)
	return args.String(0), args.Error(1)
}

func (m *MockSQLService) Execute(ctx context.Context, query string) (*services.QueryResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QueryResult), args.Error(1)
}

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Assist(ctx context.Context, req services.AssistRequest) (*services.AssistResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AssistResult), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *services.Claims, all bool) error {
	return m.Called(ctx, claims, all).Error(0)
}

func (m *MockAuthService) VerifyToken(token string) (*services.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Claims), args.Error(1)
}

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

type MockQuotaGate struct {
	mock.Mock
}

func (m *MockQuotaGate) Evaluate(ctx context.Context, identity string) services.QuotaDecision {
	return m.Called(ctx, identity).Get(0).(services.QuotaDecision)
}

type MockUsageLedger struct {
	mock.Mock
}

func (m *MockUsageLedger) Get(ctx context.Context, identity, bucket string) (models.TokenUsage, error) {
	args := m.Called(ctx, identity, bucket)
	return args.Get(0).(models.TokenUsage), args.Error(1)
}

func (m *MockUsageLedger) Increment(ctx context.Context, identity, bucket string, requestTokens, responseTokens int64) error {
	return m.Called(ctx, identity, bucket, requestTokens, responseTokens).Error(0)
}

func (m *MockUsageLedger) IncrementToday(ctx context.Context, identity string, requestTokens, responseTokens int64) error {
	return m.Called(ctx, identity, requestTokens, responseTokens).Error(0)
}

func (m *MockUsageLedger) History(ctx context.Context, identity string, days int) ([]models.TokenUsage, error) {
	args := m.Called(ctx, identity, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TokenUsage), args.Error(1)
}

func (m *MockUsageLedger) Today() string {
	return m.Called().String(0)
}

func (m *MockUsageLedger) BucketFor(t time.Time) string {
	return m.Called(t).String(0)
}

func (m *MockUsageLedger) NextReset() time.Time {
	return m.Called().Get(0).(time.Time)
}
