package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/accessibility"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// AccessibilityService defines the interface for preference operations
type AccessibilityService interface {
	Get(ctx context.Context, clientID string) (*models.AccessibilitySettings, error)
	Set(ctx context.Context, clientID string, update accessibility.Update) (*models.AccessibilitySettings, error)
}

// AccessibilityResponse represents preferences in API responses
type AccessibilityResponse struct {
	Enabled      bool   `json:"enabled"`
	KeyboardMode bool   `json:"keyboardMode"`
	Announcement string `json:"announcement"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// AccessibilityHandler handles accessibility preference requests
type AccessibilityHandler struct {
	preferences AccessibilityService
	logger      *zap.Logger
}

// NewAccessibilityHandler creates a new AccessibilityHandler
func NewAccessibilityHandler(preferences AccessibilityService, logger *zap.Logger) *AccessibilityHandler {
	return &AccessibilityHandler{
		preferences: preferences,
		logger:      logger,
	}
}

// HandleGet handles GET /preferences/accessibility
func (h *AccessibilityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.preferences.Get(ctx, middleware.GetClientIDFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, accessibilityToResponse(settings))
}

// HandleUpdate handles PUT /preferences/accessibility
func (h *AccessibilityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var update accessibility.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	settings, err := h.preferences.Set(ctx, middleware.GetClientIDFromContext(ctx), update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, accessibilityToResponse(settings))
}

func accessibilityToResponse(s *models.AccessibilitySettings) AccessibilityResponse {
	resp := AccessibilityResponse{
		Enabled:      s.Enabled,
		KeyboardMode: s.KeyboardMode,
		Announcement: s.Announcement(),
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.UTC().Format(timeFormat)
	}
	return resp
}
