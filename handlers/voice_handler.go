package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/narration"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

const voiceFailedMessage = "Voice generation failed"

// Narrator turns text into speech audio
type Narrator interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// VoiceRequest is the body of POST /voice
type VoiceRequest struct {
	Text string `json:"text"`
}

// VoiceHandler handles text-to-speech requests
type VoiceHandler struct {
	narrator Narrator
	logger   *zap.Logger
}

// NewVoiceHandler creates a new VoiceHandler
func NewVoiceHandler(narrator Narrator, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		narrator: narrator,
		logger:   logger,
	}
}

// HandleSynthesize handles POST /voice
// Upstream failures are reported as 500 with a fixed message.
func (h *VoiceHandler) HandleSynthesize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req VoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	audio, err := h.narrator.Synthesize(ctx, req.Text)
	if err != nil {
		if services.IsValidationError(err) {
			HandleServiceError(w, err, h.logger)
			return
		}
		h.logger.Error("voice generation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, voiceFailedMessage)
		return
	}

	if err := utils.WriteBinary(w, narration.ContentType, audio); err != nil {
		h.logger.Error("failed to write audio response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
