package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action represents the handling category computed for a bottle
type Action string

const (
	ActionReuse         Action = "REUSE"
	ActionDiscard       Action = "DISCARD"
	ActionCombine       Action = "COMBINE"
	ActionHoldForReview Action = "HOLD FOR REVIEW"
)

// Label returns the title-case form used in the decision log and the legacy
// "decision" response field.
func (a Action) Label() string {
	switch a {
	case ActionReuse:
		return "Reuse"
	case ActionDiscard:
		return "Discard"
	case ActionCombine:
		return "Combine"
	default:
		return "Hold for review"
	}
}

// ParseAction normalises free-form action text ("hold_for_review",
// "Reuse", ...) into an Action.
func ParseAction(s string) (Action, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", " ")
	norm = strings.Join(strings.Fields(norm), " ")
	switch Action(norm) {
	case ActionReuse, ActionDiscard, ActionCombine, ActionHoldForReview:
		return Action(norm), true
	case "HOLD", "REVIEW":
		return ActionHoldForReview, true
	}
	return "", false
}

// DecisionSource identifies which path produced the explanation
type DecisionSource string

const (
	DecisionSourceRules DecisionSource = "rules"
	DecisionSourceAI    DecisionSource = "ai"
)

// Confidence levels reported with a decision
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// DecisionResult is the transient result returned to callers
type DecisionResult struct {
	Action               Action         `json:"action"`
	Decision             string         `json:"decision"`
	Confidence           string         `json:"confidence,omitempty"`
	Reasoning            string         `json:"reasoning,omitempty"`
	OperatorInstructions []string       `json:"operatorInstructions,omitempty"`
	SafetyNotes          []string       `json:"safetyNotes,omitempty"`
	NextSteps            []string       `json:"nextSteps,omitempty"`
	Source               DecisionSource `json:"source"`
}

// DecisionLog represents an immutable audit record of one decision
type DecisionLog struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	AirlineName string         `json:"airline_name" db:"airline_name"`
	BottleType  string         `json:"bottle_type" db:"bottle_type"`
	Volume      float64        `json:"volume" db:"volume"`
	Decision    string         `json:"decision" db:"decision"`
	Source      DecisionSource `json:"source" db:"source"`
	RequestID   string         `json:"request_id,omitempty" db:"request_id"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the DecisionLog model
func (DecisionLog) TableName() string {
	return "decision_logs"
}

// NewDecisionLog creates a new DecisionLog instance
func NewDecisionLog(airlineName, bottleType string, volume float64, decision string) *DecisionLog {
	return &DecisionLog{
		ID:          uuid.New(),
		AirlineName: airlineName,
		BottleType:  bottleType,
		Volume:      volume,
		Decision:    decision,
		Source:      DecisionSourceRules,
		CreatedAt:   time.Now(),
	}
}

// WithSource sets the decision source
func (l *DecisionLog) WithSource(source DecisionSource) *DecisionLog {
	l.Source = source
	return l
}

// WithRequest sets the request ID
func (l *DecisionLog) WithRequest(requestID string) *DecisionLog {
	l.RequestID = requestID
	return l
}
