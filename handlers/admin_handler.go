package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/policy"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

const (
	timeFormat = time.RFC3339

	defaultPageLimit = 50
	maxPageLimit     = 500
)

// PolicyAdminService defines the interface for policy administration
type PolicyAdminService interface {
	List(ctx context.Context) ([]*models.AirlinePolicy, error)
	Get(ctx context.Context, airlineName string) (*models.AirlinePolicy, error)
	Save(ctx context.Context, airlineName string, in policy.PolicyInput) (*models.AirlinePolicy, error)
}

// PolicyResponse represents an airline policy in API responses
type PolicyResponse struct {
	AirlineName        string   `json:"airlineName"`
	MinReusePercentage *float64 `json:"minReusePercentage"`
	DiscardBelow       *float64 `json:"discardBelow"`
	CanCombine         *bool    `json:"canCombine"`
	PolicyText         *string  `json:"policyText"`
	CreatedAt          string   `json:"createdAt"`
	UpdatedAt          string   `json:"updatedAt"`
}

// DecisionLogResponse represents a decision log entry in API responses
type DecisionLogResponse struct {
	ID          string  `json:"id"`
	AirlineName string  `json:"airlineName"`
	BottleType  string  `json:"bottleType"`
	Volume      float64 `json:"volume"`
	Decision    string  `json:"decision"`
	Source      string  `json:"source"`
	RequestID   string  `json:"requestId,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// AdminHandler handles the operator administration API
type AdminHandler struct {
	policies  PolicyAdminService
	decisions repositories.DecisionLogRepository
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(policies PolicyAdminService, decisions repositories.DecisionLogRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		policies:  policies,
		decisions: decisions,
		logger:    logger,
	}
}

// HandleListPolicies handles GET /api/v1/admin/policies
func (h *AdminHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.policies.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]PolicyResponse, len(policies))
	for i, p := range policies {
		responses[i] = policyToResponse(p)
	}

	_ = utils.WriteOK(w, responses)
}

// HandleGetPolicy handles GET /api/v1/admin/policies/{airline}
func (h *AdminHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.policies.Get(r.Context(), chi.URLParam(r, "airline"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, policyToResponse(p))
}

// HandlePutPolicy handles PUT /api/v1/admin/policies/{airline}
func (h *AdminHandler) HandlePutPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	airline := chi.URLParam(r, "airline")

	var in policy.PolicyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	p, err := h.policies.Save(ctx, airline, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	var subject string
	if claims := middleware.GetClaimsFromContext(ctx); claims != nil {
		subject = claims.Sub
	}
	h.logger.Info("policy updated via admin api",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("airline", p.AirlineName),
		zap.String("subject", subject))

	_ = utils.WriteOK(w, policyToResponse(p))
}

// HandleListDecisions handles GET /api/v1/admin/decisions?limit=&offset=
func (h *AdminHandler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		_ = utils.WriteBadRequest(w, "limit must be between 1 and "+strconv.Itoa(maxPageLimit), nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		_ = utils.WriteBadRequest(w, "offset must be a non-negative integer", nil)
		return
	}

	logs, err := h.decisions.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list decision logs", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	responses := make([]DecisionLogResponse, len(logs))
	for i, l := range logs {
		responses[i] = decisionLogToResponse(l)
	}

	_ = utils.WriteOK(w, map[string]interface{}{
		"decisions": responses,
		"limit":     limit,
		"offset":    offset,
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func policyToResponse(p *models.AirlinePolicy) PolicyResponse {
	return PolicyResponse{
		AirlineName:        p.AirlineName,
		MinReusePercentage: p.MinReusePercentage,
		DiscardBelow:       p.DiscardBelow,
		CanCombine:         p.CanCombine,
		PolicyText:         p.PolicyText,
		CreatedAt:          p.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:          p.UpdatedAt.UTC().Format(timeFormat),
	}
}

func decisionLogToResponse(l *models.DecisionLog) DecisionLogResponse {
	return DecisionLogResponse{
		ID:          l.ID.String(),
		AirlineName: l.AirlineName,
		BottleType:  l.BottleType,
		Volume:      l.Volume,
		Decision:    l.Decision,
		Source:      string(l.Source),
		RequestID:   l.RequestID,
		CreatedAt:   l.CreatedAt.UTC().Format(timeFormat),
	}
}
