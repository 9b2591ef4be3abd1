package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/accessibility"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/decision"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/policy"
)

type MockDecisionService struct {
	mock.Mock
}

func (m *MockDecisionService) Decide(ctx context.Context, req decision.DecisionRequest) (*models.DecisionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DecisionResult), args.Error(1)
}

type MockNarrator struct {
	mock.Mock
}

func (m *MockNarrator) Synthesize(ctx context.Context, text string) ([]byte, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockAccessibilityService struct {
	mock.Mock
}

func (m *MockAccessibilityService) Get(ctx context.Context, clientID string) (*models.AccessibilitySettings, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccessibilitySettings), args.Error(1)
}

func (m *MockAccessibilityService) Set(ctx context.Context, clientID string, update accessibility.Update) (*models.AccessibilitySettings, error) {
	args := m.Called(ctx, clientID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccessibilitySettings), args.Error(1)
}

type MockPolicyAdminService struct {
	mock.Mock
}

func (m *MockPolicyAdminService) List(ctx context.Context) ([]*models.AirlinePolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AirlinePolicy), args.Error(1)
}

func (m *MockPolicyAdminService) Get(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	args := m.Called(ctx, airlineName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AirlinePolicy), args.Error(1)
}

func (m *MockPolicyAdminService) Save(ctx context.Context, airlineName string, in policy.PolicyInput) (*models.AirlinePolicy, error) {
	args := m.Called(ctx, airlineName, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AirlinePolicy), args.Error(1)
}

type MockDecisionLogRepository struct {
	mock.Mock
}

func (m *MockDecisionLogRepository) Insert(ctx context.Context, log *models.DecisionLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockDecisionLogRepository) List(ctx context.Context, limit, offset int) ([]*models.DecisionLog, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DecisionLog), args.Error(1)
}

func (m *MockDecisionLogRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDecisionLogRepository) WithTx(tx repositories.Transaction) repositories.DecisionLogRepository {
	args := m.Called(tx)
	return args.Get(0).(repositories.DecisionLogRepository)
}
