package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/auth"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/config"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/observability"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories/postgres"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/accessibility"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/decision"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/explainer"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/interpreter"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/narration"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/policy"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/providers"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/providers/gemini"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services/providers/openai"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Policies      repositories.PolicyRepository
	DecisionLogs  repositories.DecisionLogRepository
	Accessibility repositories.AccessibilityRepository
	TxManager     repositories.TransactionManager

	// Provider Registry
	ProviderRegistry *providers.Registry

	// Services
	PolicyService        *policy.PolicyService
	DecisionService      *decision.Service
	Narrator             *narration.Client
	AccessibilityService *accessibility.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initServices(cfg)

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Policies = repos.Policies
	d.DecisionLogs = repos.DecisionLogs
	d.Accessibility = repos.Accessibility
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initProviders registers every provider with a key and selects the
// configured one as default. No key at all is allowed: decisions then run on
// the rule-based path only.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	d.ProviderRegistry = NewProviderRegistry(cfg.LLM, d.Logger)

	if d.ProviderRegistry.GetProviderCount() == 0 {
		d.Logger.Warn("no LLM providers configured, policy interpretation and explanations disabled")
		return nil
	}

	if err := d.ProviderRegistry.SetDefault(cfg.LLM.Provider); err != nil {
		if errors.Is(err, providers.ErrProviderNotFound) {
			d.Logger.Warn("selected LLM provider has no API key",
				zap.String("provider", cfg.LLM.Provider),
				zap.Strings("available", d.ProviderRegistry.ListProviders()))
			return nil
		}
		return err
	}

	d.Logger.Info("default LLM provider selected", zap.String("provider", cfg.LLM.Provider))
	return nil
}

// NewProviderRegistry builds a registry holding every provider whose API key
// is configured
func NewProviderRegistry(cfg config.LLMConfig, logger *zap.Logger) *providers.Registry {
	registry := providers.NewRegistry()

	if cfg.Gemini.APIKey != "" {
		adapter := gemini.NewGeminiAdapter(providers.ProviderConfig{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Gemini.Timeout,
		})
		if err := registry.RegisterProvider(adapter); err == nil {
			logger.Info("provider registered", zap.String("provider", adapter.Name()))
		}
	}

	if cfg.OpenAI.APIKey != "" {
		adapter := openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		})
		if err := registry.RegisterProvider(adapter); err == nil {
			logger.Info("provider registered", zap.String("provider", adapter.Name()))
		}
	}

	return registry
}

func (d *Dependencies) initServices(cfg *config.Config) {
	// interfaces stay nil (not typed-nil pointers) when no model is available
	var interp policy.Interpreter
	var exp decision.Explainer

	if provider, err := d.ProviderRegistry.Default(); err == nil {
		interp = interpreter.NewInterpreter(provider, d.Logger, cfg.Decision.InterpretTimeout)
		if cfg.Decision.ExplainerEnabled {
			exp = explainer.NewExplainer(provider, d.Logger, cfg.Decision.ExplainerTimeout)
		}
	}

	d.PolicyService = policy.NewPolicyService(d.Policies, interp, d.Metrics, d.Logger)
	d.DecisionService = decision.NewService(d.PolicyService, d.DecisionLogs, exp, d.Metrics, d.Logger)
	d.Narrator = narration.NewClient(cfg.Voice, d.Metrics, d.Logger)
	d.AccessibilityService = accessibility.NewService(d.Accessibility, cfg.Accessibility.DefaultEnabled, d.Logger)

	d.Logger.Info("services initialized",
		zap.Bool("interpreter", interp != nil),
		zap.Bool("explainer", exp != nil))
}

// initAuth wires the admin token validator. Without a secret the admin API
// stays mounted and answers 401.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	if cfg.Auth.AdminJWTSecret == "" {
		d.Logger.Warn("ADMIN_JWT_SECRET not set, admin API disabled")
		d.AuthMiddleware = middleware.NewAuthMiddleware(nil, d.Logger)
		return nil
	}

	validator, err := auth.NewHS256Validator(cfg.Auth.AdminJWTSecret)
	if err != nil {
		return err
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("admin auth initialized")
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
