// Package decision computes handling decisions for partially consumed
// bottles and records them in the decision log.
package decision

import (
	"fmt"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
)

// FallbackReasoning is reported whenever the explanation comes from rules
const FallbackReasoning = "Fallback decision due to AI unavailability"

// Evaluate applies the handling cascade to a remaining-volume percentage.
// The first matching rule wins:
//
//  1. discardBelow set and volume < discardBelow: DISCARD
//  2. minReusePercentage set and volume >= minReusePercentage: REUSE
//  3. canCombine true and volume >= discardBelow (0 when unset): COMBINE
//  4. otherwise: HOLD FOR REVIEW
//
// Unset thresholds never match; a stored zero is a real threshold.
func Evaluate(t models.Thresholds, volume float64) models.Action {
	if t.DiscardBelow != nil && volume < *t.DiscardBelow {
		return models.ActionDiscard
	}

	if t.MinReusePercentage != nil && volume >= *t.MinReusePercentage {
		return models.ActionReuse
	}

	if t.CanCombine != nil && *t.CanCombine {
		floor := 0.0
		if t.DiscardBelow != nil {
			floor = *t.DiscardBelow
		}
		if volume >= floor {
			return models.ActionCombine
		}
	}

	return models.ActionHoldForReview
}

// Fallback returns the fixed explanation used when no model explanation is
// available. It has no dependencies and cannot fail.
func Fallback(action models.Action) *models.DecisionResult {
	return &models.DecisionResult{
		Action:               action,
		Decision:             action.Label(),
		Confidence:           models.ConfidenceLow,
		Reasoning:            FallbackReasoning,
		OperatorInstructions: instructions(action),
		SafetyNotes:          []string{"Verify the seal and check for contamination before handling."},
		NextSteps:            []string{"Record the outcome in the bottle handling log."},
		Source:               models.DecisionSourceRules,
	}
}

func instructions(action models.Action) []string {
	switch action {
	case models.ActionReuse:
		return []string{"Reseal the bottle and return it to flight inventory."}
	case models.ActionDiscard:
		return []string{"Dispose of the contents following the airline's waste procedure."}
	case models.ActionCombine:
		return []string{"Consolidate with bottles of the same brand and type."}
	default:
		return []string{"Set the bottle aside for supervisor review."}
	}
}

// rejectedNote is added when a model recommendation disagrees with the rules
func rejectedNote(rejected models.Action) string {
	return fmt.Sprintf("AI recommendation %s was rejected because it conflicts with the airline policy thresholds.", rejected)
}
