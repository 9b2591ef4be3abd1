package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AirlinePolicy represents an airline's partial-bottle handling policy.
// Numeric fields are nil when the policy does not define them; nil means
// "no constraint available", never zero.
type AirlinePolicy struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	AirlineName        string     `json:"airline_name" db:"airline_name"`
	MinReusePercentage *float64   `json:"min_reuse_percentage,omitempty" db:"min_reuse_percentage"`
	DiscardBelow       *float64   `json:"discard_below,omitempty" db:"discard_below"`
	CanCombine         *bool      `json:"can_combine,omitempty" db:"can_combine"`
	PolicyText         *string    `json:"policy_text,omitempty" db:"policy_text"`
	InterpretedAt      *time.Time `json:"interpreted_at,omitempty" db:"interpreted_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the AirlinePolicy model
func (AirlinePolicy) TableName() string {
	return "airline_policies"
}

// NewAirlinePolicy creates a new AirlinePolicy instance
func NewAirlinePolicy(airlineName string) *AirlinePolicy {
	now := time.Now()
	return &AirlinePolicy{
		ID:          uuid.New(),
		AirlineName: airlineName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Thresholds returns the structured part of the policy
func (p *AirlinePolicy) Thresholds() Thresholds {
	return Thresholds{
		MinReusePercentage: p.MinReusePercentage,
		DiscardBelow:       p.DiscardBelow,
		CanCombine:         p.CanCombine,
	}
}

// Text returns the policy text, or "" when none is stored
func (p *AirlinePolicy) Text() string {
	if p.PolicyText == nil {
		return ""
	}
	return *p.PolicyText
}

// NeedsInterpretation reports whether the reuse threshold is missing while
// policy text is available to derive it from. A policy whose text has been
// interpreted once is never interpreted again, even if the text did not
// define a reuse threshold.
func (p *AirlinePolicy) NeedsInterpretation() bool {
	return p.MinReusePercentage == nil && p.InterpretedAt == nil && strings.TrimSpace(p.Text()) != ""
}

// MergeThresholds fills unset fields from t. Fields already present are kept.
// Returns true if any field changed.
func (p *AirlinePolicy) MergeThresholds(t Thresholds) bool {
	changed := false
	if p.MinReusePercentage == nil && t.MinReusePercentage != nil {
		p.MinReusePercentage = t.MinReusePercentage
		changed = true
	}
	if p.DiscardBelow == nil && t.DiscardBelow != nil {
		p.DiscardBelow = t.DiscardBelow
		changed = true
	}
	if p.CanCombine == nil && t.CanCombine != nil {
		p.CanCombine = t.CanCombine
		changed = true
	}
	return changed
}

// Thresholds holds the structured reuse/discard/combine values of a policy
type Thresholds struct {
	MinReusePercentage *float64 `json:"minReusePercentage,omitempty"`
	DiscardBelow       *float64 `json:"discardBelow,omitempty"`
	CanCombine         *bool    `json:"canCombine,omitempty"`
}

// IsEmpty reports whether no threshold is defined
func (t Thresholds) IsEmpty() bool {
	return t.MinReusePercentage == nil && t.DiscardBelow == nil && t.CanCombine == nil
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }
