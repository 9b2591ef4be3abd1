package policy

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/observability"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// maxInterpretationTime caps a shared interpretation that no longer has a
// caller deadline; the interpreter applies its own, shorter timeout.
const maxInterpretationTime = 2 * time.Minute

// Interpreter converts policy text into thresholds
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*models.Thresholds, error)
}

// PolicyService resolves airline policies and manages the policy catalog
type PolicyService struct {
	policyRepo  repositories.PolicyRepository
	interpreter Interpreter
	metrics     *observability.Metrics
	logger      *zap.Logger

	// interpretations de-duplicates concurrent first lookups per airline
	interpretations singleflight.Group
}

// NewPolicyService creates a new PolicyService instance.
// interpreter may be nil, in which case text-only policies stay unresolved.
func NewPolicyService(policyRepo repositories.PolicyRepository, interpreter Interpreter, metrics *observability.Metrics, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		policyRepo:  policyRepo,
		interpreter: interpreter,
		metrics:     metrics,
		logger:      logger,
	}
}

// Resolve fetches the policy for an airline. When the reuse threshold is
// missing but policy text exists, the text is interpreted once and the
// result persisted onto the policy. Interpretation failures leave the
// thresholds unset.
func (s *PolicyService) Resolve(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	policy, err := s.get(ctx, airlineName)
	if err != nil {
		return nil, err
	}

	if !policy.NeedsInterpretation() || s.interpreter == nil {
		return policy, nil
	}

	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := s.interpretations.DoChan(policy.AirlineName, func() (interface{}, error) {
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxInterpretationTime)
		defer cancel()
		return s.interpret(detached, policy)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		s.logger.Warn("stopped waiting for policy interpretation",
			zap.String("airline", policy.AirlineName),
			zap.Error(ctx.Err()))
		return policy, nil
	}

	if res.Err != nil {
		s.logger.Warn("policy interpretation failed, continuing without thresholds",
			zap.String("airline", policy.AirlineName),
			zap.Error(res.Err))
		return policy, nil
	}

	resolved := res.Val.(*models.AirlinePolicy)
	if res.Shared {
		s.logger.Debug("shared policy interpretation", zap.String("airline", policy.AirlineName))
	}

	// each caller gets its own copy
	out := *resolved
	return &out, nil
}

func (s *PolicyService) interpret(ctx context.Context, policy *models.AirlinePolicy) (*models.AirlinePolicy, error) {
	thresholds, err := s.interpreter.Interpret(ctx, policy.Text())
	if err != nil {
		s.metrics.IncInterpretation(false)
		return nil, err
	}
	s.metrics.IncInterpretation(true)

	if err := s.policyRepo.UpdateThresholds(ctx, policy.AirlineName, *thresholds); err != nil {
		// the interpretation is still valid for this request
		s.logger.Error("failed to persist interpreted thresholds",
			zap.String("airline", policy.AirlineName),
			zap.Error(err))
		merged := *policy
		merged.MergeThresholds(*thresholds)
		return &merged, nil
	}

	s.logger.Info("policy thresholds interpreted",
		zap.String("airline", policy.AirlineName),
		zap.Any("thresholds", thresholds))

	// re-read so a value stored concurrently by another writer wins
	stored, err := s.policyRepo.GetByAirlineName(ctx, policy.AirlineName)
	if err != nil {
		merged := *policy
		merged.MergeThresholds(*thresholds)
		return &merged, nil
	}
	return stored, nil
}

// Get retrieves a policy without interpreting it
func (s *PolicyService) Get(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	return s.get(ctx, airlineName)
}

// List retrieves every policy
func (s *PolicyService) List(ctx context.Context) ([]*models.AirlinePolicy, error) {
	policies, err := s.policyRepo.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list policies", err)
	}
	return policies, nil
}

// PolicyInput holds the writable fields of a policy
type PolicyInput struct {
	MinReusePercentage *float64 `json:"minReusePercentage" validate:"omitempty,percent"`
	DiscardBelow       *float64 `json:"discardBelow" validate:"omitempty,percent"`
	CanCombine         *bool    `json:"canCombine"`
	PolicyText         *string  `json:"policyText"`
}

// Save creates or replaces the policy of an airline
func (s *PolicyService) Save(ctx context.Context, airlineName string, in PolicyInput) (*models.AirlinePolicy, error) {
	airlineName = strings.TrimSpace(airlineName)
	if airlineName == "" {
		return nil, services.Invalid("airline name is required")
	}
	if err := checkRange("minReusePercentage", in.MinReusePercentage); err != nil {
		return nil, err
	}
	if err := checkRange("discardBelow", in.DiscardBelow); err != nil {
		return nil, err
	}

	policy := models.NewAirlinePolicy(airlineName)
	policy.MinReusePercentage = in.MinReusePercentage
	policy.DiscardBelow = in.DiscardBelow
	policy.CanCombine = in.CanCombine
	policy.PolicyText = in.PolicyText

	if err := s.policyRepo.Upsert(ctx, policy); err != nil {
		return nil, services.WrapInternal("failed to save policy", err)
	}

	s.logger.Info("policy saved", zap.String("airline", airlineName))
	return s.get(ctx, airlineName)
}

func (s *PolicyService) get(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	policy, err := s.policyRepo.GetByAirlineName(ctx, airlineName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAirlineNotFound
		}
		return nil, services.WrapInternal("failed to fetch policy", err)
	}
	return policy, nil
}

func checkRange(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if err := utils.ValidatePercentage(*v, field); err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, err.Error(), nil).
			WithDetail("field", field)
	}
	return nil
}
