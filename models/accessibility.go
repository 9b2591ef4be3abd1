package models

import "time"

// AccessibilitySettings holds a client's voice-guided accessibility preferences
type AccessibilitySettings struct {
	ClientID     string    `json:"client_id" db:"client_id"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	KeyboardMode bool      `json:"keyboard_mode" db:"keyboard_mode"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the AccessibilitySettings model
func (AccessibilitySettings) TableName() string {
	return "accessibility_preferences"
}

// Announcement returns the text spoken when the mode is toggled
func (s AccessibilitySettings) Announcement() string {
	if s.Enabled {
		return "Accessibility mode enabled"
	}
	return "Accessibility mode disabled"
}
