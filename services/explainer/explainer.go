// Package explainer asks a language model for an operator-facing
// explanation of a handling decision.
package explainer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/providers"
)

// ErrUnparseable is returned when the model output is not a usable explanation
var ErrUnparseable = errors.New("explanation is unparseable")

// Input carries everything the model sees about a decision
type Input struct {
	AirlineName    string
	BottleType     string
	Volume         float64
	Thresholds     models.Thresholds
	PolicyText     string
	Recommendation models.Action
}

// Explanation is the structured answer of the model
type Explanation struct {
	Action               models.Action
	Confidence           string
	Reasoning            string
	OperatorInstructions []string
	SafetyNotes          []string
	NextSteps            []string
}

type rawExplanation struct {
	Action               string   `json:"action"`
	Confidence           string   `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	OperatorInstructions []string `json:"operatorInstructions"`
	SafetyNotes          []string `json:"safetyNotes"`
	NextSteps            []string `json:"nextSteps"`
}

// Explainer generates explanations through a Provider
type Explainer struct {
	provider providers.Provider
	logger   *zap.Logger
	timeout  time.Duration
}

// NewExplainer creates a new explainer
func NewExplainer(provider providers.Provider, logger *zap.Logger, timeout time.Duration) *Explainer {
	return &Explainer{
		provider: provider,
		logger:   logger,
		timeout:  timeout,
	}
}

// Explain requests an explanation for the decision described by in
func (e *Explainer) Explain(ctx context.Context, in Input) (*Explanation, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(in)},
		},
		JSONOutput: true,
		Metadata:   map[string]string{"airline": in.AirlineName},
	})
	if err != nil {
		return nil, fmt.Errorf("explanation request failed: %w", err)
	}

	content, err := resp.Text()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return Parse(content)
}

// Parse validates raw model output into an Explanation
func Parse(content string) (*Explanation, error) {
	var raw rawExplanation
	if err := providers.DecodeJSON(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	action, ok := models.ParseAction(raw.Action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrUnparseable, raw.Action)
	}

	confidence := strings.ToLower(strings.TrimSpace(raw.Confidence))
	switch confidence {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		confidence = models.ConfidenceMedium
	}

	return &Explanation{
		Action:               action,
		Confidence:           confidence,
		Reasoning:            strings.TrimSpace(raw.Reasoning),
		OperatorInstructions: compact(raw.OperatorInstructions),
		SafetyNotes:          compact(raw.SafetyNotes),
		NextSteps:            compact(raw.NextSteps),
	}, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
