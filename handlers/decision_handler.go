package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/decision"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// DecisionService defines the interface for decision operations
type DecisionService interface {
	Decide(ctx context.Context, req decision.DecisionRequest) (*models.DecisionResult, error)
}

// DecisionHandler handles bottle decision requests
type DecisionHandler struct {
	decisions DecisionService
	logger    *zap.Logger
}

// NewDecisionHandler creates a new DecisionHandler
func NewDecisionHandler(decisions DecisionService, logger *zap.Logger) *DecisionHandler {
	return &DecisionHandler{
		decisions: decisions,
		logger:    logger,
	}
}

// HandleDecide handles POST /decision
// The result is written unwrapped so that clients can read "decision" directly.
func (h *DecisionHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req decision.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("invalid decision request body", zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}
	req.RequestID = middleware.GetRequestIDFromContext(ctx)

	result, err := h.decisions.Decide(ctx, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write decision response",
			zap.String("request_id", req.RequestID),
			zap.Error(err))
	}
}
