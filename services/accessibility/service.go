// Package accessibility manages per-client voice-guided mode preferences.
package accessibility

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

const maxClientIDLength = 128

// Update holds the writable preference fields. Nil fields keep their value.
type Update struct {
	Enabled      *bool `json:"enabled"`
	KeyboardMode *bool `json:"keyboardMode"`
}

// Service reads and writes accessibility preferences
type Service struct {
	repo           repositories.AccessibilityRepository
	defaultEnabled bool
	logger         *zap.Logger
}

// NewService creates an accessibility service
func NewService(repo repositories.AccessibilityRepository, defaultEnabled bool, logger *zap.Logger) *Service {
	return &Service{
		repo:           repo,
		defaultEnabled: defaultEnabled,
		logger:         logger,
	}
}

// Get returns the client's settings, or the defaults when none are stored
func (s *Service) Get(ctx context.Context, clientID string) (*models.AccessibilitySettings, error) {
	clientID, err := checkClientID(clientID)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.AccessibilitySettings{ClientID: clientID, Enabled: s.defaultEnabled}, nil
		}
		return nil, services.WrapInternal("failed to load accessibility settings", err)
	}
	return settings, nil
}

// Set applies an update and returns the stored settings
func (s *Service) Set(ctx context.Context, clientID string, update Update) (*models.AccessibilitySettings, error) {
	settings, err := s.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if update.Enabled != nil {
		settings.Enabled = *update.Enabled
	}
	if update.KeyboardMode != nil {
		settings.KeyboardMode = *update.KeyboardMode
	}
	settings.UpdatedAt = time.Now()

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, services.WrapInternal("failed to save accessibility settings", err)
	}

	s.logger.Info("accessibility settings updated",
		zap.String("client_id", settings.ClientID),
		zap.Bool("enabled", settings.Enabled),
		zap.Bool("keyboard_mode", settings.KeyboardMode))

	return settings, nil
}

func checkClientID(clientID string) (string, error) {
	clientID = strings.TrimSpace(clientID)
	if err := utils.ValidateRequired(clientID, "client id"); err != nil {
		return "", services.Invalid(err.Error())
	}
	if err := utils.ValidateStringLength(clientID, "client id", 1, maxClientIDLength); err != nil {
		return "", services.Invalid(err.Error())
	}
	return clientID, nil
}
