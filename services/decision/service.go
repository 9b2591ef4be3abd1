package decision

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/observability"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/explainer"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// PolicyResolver resolves the effective policy of an airline
type PolicyResolver interface {
	Resolve(ctx context.Context, airlineName string) (*models.AirlinePolicy, error)
}

// Explainer produces a model-written explanation of a decision
type Explainer interface {
	Explain(ctx context.Context, in explainer.Input) (*explainer.Explanation, error)
}

// DecisionRequest is one bottle measurement
type DecisionRequest struct {
	AirlineName string   `json:"airlineName" validate:"required"`
	BottleType  string   `json:"bottleType" validate:"required"`
	Volume      *float64 `json:"volume" validate:"required,percent"`

	// RequestID correlates the log entry with the HTTP request
	RequestID string `json:"-"`
}

// Service computes decisions and appends them to the decision log
type Service struct {
	policies  PolicyResolver
	logs      repositories.DecisionLogRepository
	explainer Explainer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewService creates a decision service. explainer may be nil to always use
// the rule-based explanation.
func NewService(policies PolicyResolver, logs repositories.DecisionLogRepository, explainer Explainer, metrics *observability.Metrics, logger *zap.Logger) *Service {
	return &Service{
		policies:  policies,
		logs:      logs,
		explainer: explainer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Decide resolves the airline policy, applies the cascade, attaches an
// explanation and logs the decision. The log entry is written before the
// result is returned; a failed write fails the whole call.
func (s *Service) Decide(ctx context.Context, req DecisionRequest) (*models.DecisionResult, error) {
	req.AirlineName = strings.TrimSpace(req.AirlineName)
	req.BottleType = strings.TrimSpace(req.BottleType)

	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	volume := *req.Volume

	policy, err := s.policies.Resolve(ctx, req.AirlineName)
	if err != nil {
		return nil, err
	}

	action := Evaluate(policy.Thresholds(), volume)
	result := s.explain(ctx, req, policy, action)

	entry := models.NewDecisionLog(policy.AirlineName, req.BottleType, volume, result.Decision).
		WithSource(result.Source).
		WithRequest(req.RequestID)

	// a failed write leaves any lazily interpreted thresholds in place
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write decision log",
			zap.String("airline", policy.AirlineName),
			zap.String("decision", result.Decision),
			zap.Error(err))
		return nil, services.WrapInternal("Server error", err)
	}

	s.metrics.IncDecision(string(result.Action), string(result.Source))

	s.logger.Info("decision made",
		zap.String("request_id", req.RequestID),
		zap.String("airline", policy.AirlineName),
		zap.String("bottle_type", req.BottleType),
		zap.Float64("volume", volume),
		zap.String("decision", result.Decision),
		zap.String("source", string(result.Source)))

	return result, nil
}

func (s *Service) explain(ctx context.Context, req DecisionRequest, policy *models.AirlinePolicy, action models.Action) *models.DecisionResult {
	if s.explainer == nil {
		return Fallback(action)
	}

	exp, err := s.explainer.Explain(ctx, explainer.Input{
		AirlineName:    policy.AirlineName,
		BottleType:     req.BottleType,
		Volume:         *req.Volume,
		Thresholds:     policy.Thresholds(),
		PolicyText:     policy.Text(),
		Recommendation: action,
	})
	if err != nil {
		s.logger.Warn("explanation unavailable, using rule-based fallback",
			zap.String("airline", policy.AirlineName),
			zap.Error(err))
		return Fallback(action)
	}

	if exp.Action != action {
		s.logger.Warn("explanation disagrees with policy thresholds",
			zap.String("airline", policy.AirlineName),
			zap.String("rules", string(action)),
			zap.String("model", string(exp.Action)))
		result := Fallback(action)
		result.SafetyNotes = append(result.SafetyNotes, rejectedNote(exp.Action))
		return result
	}

	return &models.DecisionResult{
		Action:               action,
		Decision:             action.Label(),
		Confidence:           exp.Confidence,
		Reasoning:            exp.Reasoning,
		OperatorInstructions: exp.OperatorInstructions,
		SafetyNotes:          exp.SafetyNotes,
		NextSteps:            exp.NextSteps,
		Source:               models.DecisionSourceAI,
	}
}

func validationError(err error) error {
	domainErr := services.NewDomainError(services.ErrorTypeValidation, "Invalid decision request", err)
	for field, msg := range utils.GetValidationFields(err) {
		domainErr.WithDetail(field, msg)
	}
	return domainErr
}
