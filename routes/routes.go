package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/app"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/handlers"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories/postgres"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// Version is reported by the health endpoints; set at build time
var Version = "dev"

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}
	r.Use(deps.Metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.ClientIDHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}

	health := handlers.NewHealthHandler(db, Version, deps.Logger).
		WithComponent("language_model", languageModelConfigured(deps)).
		WithComponent("voice", cfg.Voice.APIKey != "")
	if db != nil {
		health.WithSchemaVersion(postgres.SchemaVersion)
	}
	decisions := handlers.NewDecisionHandler(deps.DecisionService, deps.Logger)
	voice := handlers.NewVoiceHandler(deps.Narrator, deps.Logger)
	prefs := handlers.NewAccessibilityHandler(deps.AccessibilityService, deps.Logger)
	admin := handlers.NewAdminHandler(deps.PolicyService, deps.DecisionLogs, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// Operator endpoints; the /api aliases keep older kiosk builds working
	for _, prefix := range []string{"", "/api"} {
		r.Post(prefix+"/decision", decisions.HandleDecide)
		r.Post(prefix+"/voice", voice.HandleSynthesize)
	}

	r.With(middleware.RequireClientID).Get("/preferences/accessibility", prefs.HandleGet)
	r.With(middleware.RequireClientID).Put("/preferences/accessibility", prefs.HandleUpdate)

	// Admin API (require admin role)
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Use(deps.AuthMiddleware.RequireRole(cfg.Auth.AdminRole))

		r.Get("/policies", admin.HandleListPolicies)
		r.Get("/policies/{airline}", admin.HandleGetPolicy)
		r.Put("/policies/{airline}", admin.HandlePutPolicy)
		r.Get("/decisions", admin.HandleListDecisions)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func languageModelConfigured(deps *app.Dependencies) bool {
	if deps.ProviderRegistry == nil {
		return false
	}
	_, err := deps.ProviderRegistry.Default()
	return err == nil
}
