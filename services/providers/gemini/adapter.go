package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-pro-latest"
)

// GeminiAdapter implements the Provider interface for the Google
// Generative Language API
type GeminiAdapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(config providers.ProviderConfig) *GeminiAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Model == "" {
		config.Model = defaultModel
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &GeminiAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return "gemini"
}

// ChatCompletion calls models/{model}:generateContent once
func (a *GeminiAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	model := req.Model
	if model == "" {
		model = a.config.Model
	}

	reqBody, err := json.Marshal(a.buildGenerateRequest(req))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, err)
	}

	url := a.config.BaseURL + "/models/" + model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "READ_ERROR", "Failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var genResp GenerateContentResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, err)
	}

	return a.convertToUnifiedResponse(&genResp, model, req, time.Since(startTime)), nil
}

// IsAvailable checks that the configured model can be described with the key
func (a *GeminiAdapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models/"+a.config.Model, nil)
	if err != nil {
		return false
	}

	req.Header.Set("x-goog-api-key", a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// buildGenerateRequest maps chat messages onto Gemini contents. System
// messages become the system instruction; assistant turns use the "model" role.
func (a *GeminiAdapter) buildGenerateRequest(req *providers.ChatRequest) *GenerateContentRequest {
	genReq := &GenerateContentRequest{}

	var system []Part
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = append(system, Part{Text: msg.Content})
		case "assistant":
			genReq.Contents = append(genReq.Contents, Content{Role: "model", Parts: []Part{{Text: msg.Content}}})
		default:
			genReq.Contents = append(genReq.Contents, Content{Role: "user", Parts: []Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		genReq.SystemInstruction = &Content{Parts: system}
	}

	if req.MaxTokens > 0 || req.Temperature > 0 || req.JSONOutput {
		cfg := &GenerationConfig{}
		if req.MaxTokens > 0 {
			cfg.MaxOutputTokens = &req.MaxTokens
		}
		if req.Temperature > 0 {
			cfg.Temperature = &req.Temperature
		}
		if req.JSONOutput {
			cfg.ResponseMimeType = "application/json"
		}
		genReq.GenerationConfig = cfg
	}

	return genReq
}

// convertToUnifiedResponse joins each candidate's parts into one message
func (a *GeminiAdapter) convertToUnifiedResponse(genResp *GenerateContentResponse, model string, req *providers.ChatRequest, latency time.Duration) *providers.ChatResponse {
	if genResp.ModelVersion != "" {
		model = genResp.ModelVersion
	}

	resp := &providers.ChatResponse{
		ID:       genResp.ResponseID,
		Model:    model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(genResp.Candidates)),
		Usage: providers.Usage{
			PromptTokens:     genResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: genResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      genResp.UsageMetadata.TotalTokenCount,
		},
		Latency:  latency,
		Created:  time.Now(),
		Metadata: req.Metadata,
	}

	for i, candidate := range genResp.Candidates {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		resp.Choices[i] = providers.Choice{
			Index:        candidate.Index,
			Message:      providers.Message{Role: "assistant", Content: text.String()},
			FinishReason: strings.ToLower(candidate.FinishReason),
		}
	}

	return resp
}

// handleErrorResponse handles Google API error envelopes
func (a *GeminiAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp GeminiErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", string(body), statusCode, err)
	}

	return providers.NewProviderError(
		a.Name(),
		errResp.Error.Status,
		errResp.Error.Message,
		statusCode,
		errors.New(errResp.Error.Message),
	)
}

// Gemini-specific request/response types

type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type GenerateContentResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
	ResponseID    string        `json:"responseId"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type GeminiErrorResponse struct {
	Error GeminiError `json:"error"`
}

type GeminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
