// Package interpreter turns free-text airline alcohol policies into
// structured reuse/discard/combine thresholds using a language model.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/prompt"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/providers"
)

var (
	// ErrUnparseable is returned when the model output cannot be trusted
	ErrUnparseable = errors.New("policy interpretation is unparseable")

	// ErrEmptyText is returned when there is no policy text to interpret
	ErrEmptyText = errors.New("policy text is empty")
)

const promptTemplate = `Convert this airline alcohol policy text into JSON with:
{
  "minReusePercentage": number,
  "discardBelow": number,
  "canCombine": boolean
}
Percentages are of the bottle's full volume (0-100). Omit a field the text does not define.
Reply with the JSON object only.
Text: """%s"""`

// Interpreter extracts thresholds from policy text
type Interpreter struct {
	provider providers.Provider
	logger   *zap.Logger
	timeout  time.Duration
}

// NewInterpreter creates a new policy interpreter
func NewInterpreter(provider providers.Provider, logger *zap.Logger, timeout time.Duration) *Interpreter {
	return &Interpreter{
		provider: provider,
		logger:   logger,
		timeout:  timeout,
	}
}

// Interpret asks the language model for thresholds and validates the answer.
// Text carrying prompt instructions is refused before any request is made,
// and contact details are redacted from what is sent. Output outside 0-100,
// malformed JSON or an empty object all fail closed.
func (i *Interpreter) Interpret(ctx context.Context, text string) (*models.Thresholds, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := prompt.Screen(text); err != nil {
		i.logger.Warn("refusing to interpret policy text", zap.Error(err))
		return nil, err
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	resp, err := i.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Messages:   providers.UserMessage(fmt.Sprintf(promptTemplate, prompt.Redact(text))),
		JSONOutput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("interpretation request failed: %w", err)
	}

	content, err := resp.Text()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	thresholds, err := Parse(content)
	if err != nil {
		i.logger.Debug("discarding interpretation",
			zap.String("provider", i.provider.Name()),
			zap.Error(err))
		return nil, err
	}

	return thresholds, nil
}

// Parse validates raw model output into thresholds
func Parse(content string) (*models.Thresholds, error) {
	var t models.Thresholds
	if err := providers.DecodeJSON(content, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	if t.IsEmpty() {
		return nil, fmt.Errorf("%w: no thresholds in output", ErrUnparseable)
	}

	if err := checkPercentage("minReusePercentage", t.MinReusePercentage); err != nil {
		return nil, err
	}
	if err := checkPercentage("discardBelow", t.DiscardBelow); err != nil {
		return nil, err
	}

	return &t, nil
}

func checkPercentage(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 {
		return fmt.Errorf("%w: %s %.2f outside 0-100", ErrUnparseable, field, *v)
	}
	return nil
}
