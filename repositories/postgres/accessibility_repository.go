package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"go.uber.org/zap"
)

// AccessibilityRepository implements the repositories.AccessibilityRepository interface
type AccessibilityRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccessibilityRepository creates a new accessibility preferences repository
func NewAccessibilityRepository(db *DB, logger *zap.Logger) repositories.AccessibilityRepository {
	return &AccessibilityRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the settings for a client
func (r *AccessibilityRepository) Get(ctx context.Context, clientID string) (*models.AccessibilitySettings, error) {
	query := `
		SELECT client_id, enabled, keyboard_mode, updated_at
		FROM accessibility_preferences
		WHERE client_id = $1
	`

	settings := &models.AccessibilitySettings{}
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, clientID).Scan(
		&settings.ClientID,
		&settings.Enabled,
		&settings.KeyboardMode,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get accessibility settings: %w", err)
	}

	return settings, nil
}

// Upsert stores the settings for a client
func (r *AccessibilityRepository) Upsert(ctx context.Context, settings *models.AccessibilitySettings) error {
	query := `
		INSERT INTO accessibility_preferences (client_id, enabled, keyboard_mode, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    keyboard_mode = EXCLUDED.keyboard_mode,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		settings.ClientID,
		settings.Enabled,
		settings.KeyboardMode,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert accessibility settings: %w", err)
	}

	r.logger.Debug("accessibility settings stored",
		zap.String("client_id", settings.ClientID),
		zap.Bool("enabled", settings.Enabled))
	return nil
}
