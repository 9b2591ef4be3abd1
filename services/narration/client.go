// Package narration synthesizes spoken readouts of decisions through the
// ElevenLabs text-to-speech API.
package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/config"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/observability"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	defaultMaxAudioBytes = 10 << 20

	// MaxTextLength bounds a single synthesis request, in characters
	MaxTextLength = 2500

	// ContentType is the MIME type of synthesized audio
	ContentType = "audio/mpeg"
)

// Client calls the ElevenLabs text-to-speech endpoint
type Client struct {
	config     config.VoiceConfig
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a narration client
func NewClient(cfg config.VoiceConfig, metrics *observability.Metrics, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text into MPEG audio. Blank or oversized text is a
// validation error; any upstream failure is an external error.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if err := utils.ValidateRequired(text, "text"); err != nil {
		return nil, services.ErrEmptyText
	}
	if err := utils.ValidateStringLength(text, "text", 1, MaxTextLength); err != nil {
		return nil, services.Invalid(err.Error())
	}

	audio, err := c.synthesize(ctx, text)
	c.metrics.IncNarration(err == nil)
	if err != nil {
		c.logger.Error("voice generation failed", zap.Error(err))
		return nil, services.WrapExternal("Voice generation failed", err)
	}

	return audio, nil
}

func (c *Client) synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.config.Stability,
			SimilarityBoost: c.config.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.config.BaseURL, c.config.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentType)
	httpReq.Header.Set("xi-api-key", c.config.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(httpResp.Body, c.config.MaxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(audio)) > c.config.MaxAudioBytes {
		return nil, fmt.Errorf("elevenlabs response exceeds %d bytes", c.config.MaxAudioBytes)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", httpResp.StatusCode, truncate(string(audio), 200))
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned an empty payload")
	}

	return audio, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
