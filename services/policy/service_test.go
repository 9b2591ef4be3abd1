package policy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/observability"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
)

// MockPolicyRepository is a mock implementation of PolicyRepository
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetByAirlineName(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	args := m.Called(ctx, airlineName)
	if policy := args.Get(0); policy != nil {
		return policy.(*models.AirlinePolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyRepository) List(ctx context.Context) ([]*models.AirlinePolicy, error) {
	args := m.Called(ctx)
	if policies := args.Get(0); policies != nil {
		return policies.([]*models.AirlinePolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyRepository) Upsert(ctx context.Context, policy *models.AirlinePolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) UpdateThresholds(ctx context.Context, airlineName string, t models.Thresholds) error {
	args := m.Called(ctx, airlineName, t)
	return args.Error(0)
}

func (m *MockPolicyRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPolicyRepository) WithTx(tx repositories.Transaction) repositories.PolicyRepository {
	args := m.Called(tx)
	return args.Get(0).(repositories.PolicyRepository)
}

// countingInterpreter counts calls and optionally blocks until released
type countingInterpreter struct {
	calls   int32
	result  *models.Thresholds
	err     error
	release chan struct{}
	ctxErr  error
}

func (c *countingInterpreter) Interpret(ctx context.Context, text string) (*models.Thresholds, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.release != nil {
		<-c.release
	}
	c.ctxErr = ctx.Err()
	return c.result, c.err
}

// memoryPolicyRepository stores policies in a map and merges thresholds the
// way the Postgres repository does
type memoryPolicyRepository struct {
	repositories.PolicyRepository
	mu       sync.Mutex
	policies map[string]models.AirlinePolicy
}

func newMemoryPolicyRepository(policies ...*models.AirlinePolicy) *memoryPolicyRepository {
	r := &memoryPolicyRepository{policies: make(map[string]models.AirlinePolicy)}
	for _, p := range policies {
		r.policies[p.AirlineName] = *p
	}
	return r
}

func (r *memoryPolicyRepository) GetByAirlineName(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[airlineName]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r *memoryPolicyRepository) UpdateThresholds(ctx context.Context, airlineName string, t models.Thresholds) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[airlineName]
	if !ok {
		return repositories.ErrNotFound
	}
	p.MergeThresholds(t)
	now := time.Now()
	p.InterpretedAt = &now
	r.policies[airlineName] = p
	return nil
}

func textOnlyPolicy() *models.AirlinePolicy {
	p := models.NewAirlinePolicy("Emirates")
	p.PolicyText = models.String("Bottles at or above 70% may be reused. Discard below 25%.")
	return p
}

func TestPolicyService_Resolve_NotFound(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	interp := &countingInterpreter{}
	service := NewPolicyService(mockRepo, interp, nil, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("GetByAirlineName", ctx, "Oceanic").Return(nil, repositories.ErrNotFound)

	_, err := service.Resolve(ctx, "Oceanic")

	assert.ErrorIs(t, err, services.ErrAirlineNotFound)
	assert.True(t, services.IsNotFoundError(err))
	assert.Zero(t, atomic.LoadInt32(&interp.calls))
}

func TestPolicyService_Resolve_StoreError(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	service := NewPolicyService(mockRepo, nil, nil, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("GetByAirlineName", ctx, "Lufthansa").Return(nil, errors.New("connection reset"))

	_, err := service.Resolve(ctx, "Lufthansa")

	assert.True(t, services.IsInternalError(err))
}

func TestPolicyService_Resolve_StructuredPolicySkipsInterpretation(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	interp := &countingInterpreter{}
	service := NewPolicyService(mockRepo, interp, nil, zap.NewNop())

	ctx := context.Background()
	policy := models.NewAirlinePolicy("Lufthansa")
	policy.MinReusePercentage = models.Float(50)
	policy.DiscardBelow = models.Float(20)
	policy.CanCombine = models.Bool(false)
	policy.PolicyText = models.String("Reuse at 50% or more.")

	mockRepo.On("GetByAirlineName", ctx, "Lufthansa").Return(policy, nil)

	got, err := service.Resolve(ctx, "Lufthansa")

	require.NoError(t, err)
	assert.Equal(t, 50.0, *got.MinReusePercentage)
	assert.Zero(t, atomic.LoadInt32(&interp.calls))
	mockRepo.AssertNotCalled(t, "UpdateThresholds", mock.Anything, mock.Anything, mock.Anything)
}

func TestPolicyService_Resolve_InterpretsOnceThenUsesStoredThresholds(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	thresholds := &models.Thresholds{
		MinReusePercentage: models.Float(70),
		DiscardBelow:       models.Float(25),
		CanCombine:         models.Bool(true),
	}
	interp := &countingInterpreter{result: thresholds}
	metrics := observability.NewMetrics()
	service := NewPolicyService(mockRepo, interp, metrics, zap.NewNop())

	ctx := context.Background()
	stored := textOnlyPolicy()
	stored.MergeThresholds(*thresholds)

	mockRepo.On("GetByAirlineName", mock.Anything, "Emirates").Return(textOnlyPolicy(), nil).Once()
	mockRepo.On("UpdateThresholds", mock.Anything, "Emirates", *thresholds).Return(nil).Once()
	mockRepo.On("GetByAirlineName", mock.Anything, "Emirates").Return(stored, nil)

	first, err := service.Resolve(ctx, "Emirates")
	require.NoError(t, err)
	assert.Equal(t, 70.0, *first.MinReusePercentage)
	assert.Equal(t, 25.0, *first.DiscardBelow)
	assert.True(t, *first.CanCombine)

	second, err := service.Resolve(ctx, "Emirates")
	require.NoError(t, err)
	assert.Equal(t, 70.0, *second.MinReusePercentage)

	assert.Equal(t, int32(1), atomic.LoadInt32(&interp.calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Interpretations.WithLabelValues(observability.ResultSuccess)))
	mockRepo.AssertExpectations(t)
}

func TestPolicyService_Resolve_InterpretationFailureLeavesThresholdsUnset(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	interp := &countingInterpreter{err: errors.New("model unavailable")}
	metrics := observability.NewMetrics()
	service := NewPolicyService(mockRepo, interp, metrics, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("GetByAirlineName", ctx, "Emirates").Return(textOnlyPolicy(), nil)

	got, err := service.Resolve(ctx, "Emirates")

	require.NoError(t, err)
	assert.Nil(t, got.MinReusePercentage)
	assert.Nil(t, got.DiscardBelow)
	assert.Nil(t, got.CanCombine)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Interpretations.WithLabelValues(observability.ResultFailure)))
	mockRepo.AssertNotCalled(t, "UpdateThresholds", mock.Anything, mock.Anything, mock.Anything)
}

func TestPolicyService_Resolve_PersistFailureStillUsesInterpretation(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	thresholds := &models.Thresholds{MinReusePercentage: models.Float(60)}
	service := NewPolicyService(mockRepo, &countingInterpreter{result: thresholds}, nil, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("GetByAirlineName", ctx, "Emirates").Return(textOnlyPolicy(), nil)
	mockRepo.On("UpdateThresholds", mock.Anything, "Emirates", *thresholds).Return(errors.New("read-only replica"))

	got, err := service.Resolve(ctx, "Emirates")

	require.NoError(t, err)
	assert.Equal(t, 60.0, *got.MinReusePercentage)
	assert.Nil(t, got.DiscardBelow)
}

func TestPolicyService_Resolve_ConcurrentLookupsShareInterpretation(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	thresholds := &models.Thresholds{MinReusePercentage: models.Float(70)}
	interp := &countingInterpreter{result: thresholds, release: make(chan struct{})}
	service := NewPolicyService(mockRepo, interp, nil, zap.NewNop())

	stored := textOnlyPolicy()
	stored.MergeThresholds(*thresholds)

	mockRepo.On("GetByAirlineName", mock.Anything, "Emirates").Return(textOnlyPolicy(), nil).Times(4)
	mockRepo.On("UpdateThresholds", mock.Anything, "Emirates", *thresholds).Return(nil).Once()
	mockRepo.On("GetByAirlineName", mock.Anything, "Emirates").Return(stored, nil)

	const callers = 4
	var wg sync.WaitGroup
	results := make([]*models.AirlinePolicy, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := service.Resolve(context.Background(), "Emirates")
			if err == nil {
				results[i] = p
			}
		}(i)
	}

	// give every caller time to join the in-flight interpretation
	time.Sleep(50 * time.Millisecond)
	close(interp.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&interp.calls))
	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, 70.0, *p.MinReusePercentage)
	}
}

func TestPolicyService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts and returns stored policy", func(t *testing.T) {
		mockRepo := new(MockPolicyRepository)
		service := NewPolicyService(mockRepo, nil, nil, zap.NewNop())

		stored := models.NewAirlinePolicy("Delta Air Lines")
		stored.MinReusePercentage = models.Float(60)

		mockRepo.On("Upsert", ctx, mock.MatchedBy(func(p *models.AirlinePolicy) bool {
			return p.AirlineName == "Delta Air Lines" && *p.MinReusePercentage == 60
		})).Return(nil)
		mockRepo.On("GetByAirlineName", ctx, "Delta Air Lines").Return(stored, nil)

		got, err := service.Save(ctx, " Delta Air Lines ", PolicyInput{MinReusePercentage: models.Float(60)})

		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects out of range thresholds", func(t *testing.T) {
		mockRepo := new(MockPolicyRepository)
		service := NewPolicyService(mockRepo, nil, nil, zap.NewNop())

		_, err := service.Save(ctx, "Delta Air Lines", PolicyInput{DiscardBelow: models.Float(120)})

		assert.True(t, services.IsValidationError(err))
		assert.Equal(t, "discardBelow", services.GetErrorDetails(err)["field"])
		mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("rejects blank airline", func(t *testing.T) {
		service := NewPolicyService(new(MockPolicyRepository), nil, nil, zap.NewNop())

		_, err := service.Save(ctx, "  ", PolicyInput{})
		assert.True(t, services.IsValidationError(err))
	})
}

func TestPolicyService_List(t *testing.T) {
	mockRepo := new(MockPolicyRepository)
	service := NewPolicyService(mockRepo, nil, nil, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("List", ctx).Return([]*models.AirlinePolicy{models.NewAirlinePolicy("Aeromexico")}, nil).Once()
	mockRepo.On("List", ctx).Return(nil, errors.New("timeout"))

	policies, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 1)

	_, err = service.List(ctx)
	assert.True(t, services.IsInternalError(err))
}

func TestPolicyService_Resolve_PartialInterpretationSettlesPolicy(t *testing.T) {
	policy := models.NewAirlinePolicy("Swiss International Air Lines")
	policy.PolicyText = models.String("Discard anything below 20%. Partial bottles are never reused or combined.")

	interp := &countingInterpreter{result: &models.Thresholds{
		DiscardBelow: models.Float(20),
		CanCombine:   models.Bool(false),
	}}
	service := NewPolicyService(newMemoryPolicyRepository(policy), interp, nil, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := service.Resolve(ctx, "Swiss International Air Lines")
		require.NoError(t, err)
		assert.Nil(t, got.MinReusePercentage)
		require.NotNil(t, got.DiscardBelow)
		assert.Equal(t, 20.0, *got.DiscardBelow)
		assert.False(t, *got.CanCombine)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&interp.calls))
}

func TestPolicyService_Resolve_CancelledCallerDoesNotCancelSharedInterpretation(t *testing.T) {
	thresholds := &models.Thresholds{MinReusePercentage: models.Float(70)}
	interp := &countingInterpreter{result: thresholds, release: make(chan struct{})}
	service := NewPolicyService(newMemoryPolicyRepository(textOnlyPolicy()), interp, nil, zap.NewNop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan *models.AirlinePolicy, 1)
	go func() {
		p, _ := service.Resolve(leaderCtx, "Emirates")
		leaderDone <- p
	}()

	// wait until the interpretation is in flight
	require.Eventually(t, func() bool { return atomic.LoadInt32(&interp.calls) == 1 }, time.Second, 5*time.Millisecond)

	followerDone := make(chan *models.AirlinePolicy, 1)
	go func() {
		p, _ := service.Resolve(context.Background(), "Emirates")
		followerDone <- p
	}()

	cancel()
	select {
	case p := <-leaderDone:
		require.NotNil(t, p)
		assert.Nil(t, p.MinReusePercentage)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(interp.release)
	follower := <-followerDone
	require.NotNil(t, follower)
	require.NotNil(t, follower.MinReusePercentage)
	assert.Equal(t, 70.0, *follower.MinReusePercentage)
	assert.NoError(t, interp.ctxErr)
}
