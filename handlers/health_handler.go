package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// Readiness states reported per check
const (
	checkHealthy       = "healthy"
	checkUnhealthy     = "unhealthy"
	checkOutdated      = "outdated"
	checkConfigured    = "configured"
	checkNotConfigured = "not_configured"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Degraded  []string          `json:"degraded,omitempty"`
}

// HealthHandler serves liveness and readiness. Readiness fails on the
// database and its schema version. Upstream components that only degrade
// answers, such as the language model behind policy interpretation and
// explanations, are reported without failing readiness.
type HealthHandler struct {
	db            *sql.DB
	schemaVersion int
	components    map[string]bool
	version       string
	logger        *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		components: make(map[string]bool),
		version:    version,
		logger:     logger,
	}
}

// WithSchemaVersion makes readiness require schema_migrations to hold at
// least version
func (h *HealthHandler) WithSchemaVersion(version int) *HealthHandler {
	h.schemaVersion = version
	return h
}

// WithComponent reports an optional upstream as configured or not
func (h *HealthHandler) WithComponent(name string, configured bool) *HealthHandler {
	h.components[name] = configured
	return h
}

// HandleHealth handles GET /healthz
// Liveness only: returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// 503 when the database is unreachable or behind the expected schema,
// 200 with status "degraded" when an optional upstream is missing
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = checkUnhealthy
		ready = false
	} else {
		checks["database"] = checkHealthy
	}

	if ready && h.db != nil && h.schemaVersion > 0 {
		applied, err := h.appliedSchemaVersion(ctx)
		switch {
		case err != nil:
			h.logger.Warn("schema version check failed", zap.Error(err))
			checks["schema"] = checkUnhealthy
			ready = false
		case applied < h.schemaVersion:
			h.logger.Warn("database schema is behind",
				zap.Int("applied", applied),
				zap.Int("required", h.schemaVersion))
			checks["schema"] = checkOutdated
			ready = false
		default:
			checks["schema"] = checkHealthy
		}
	}

	var degraded []string
	for name, configured := range h.components {
		if configured {
			checks[name] = checkConfigured
			continue
		}
		checks[name] = checkNotConfigured
		degraded = append(degraded, name)
	}
	sort.Strings(degraded)

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case !ready:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(degraded) > 0:
		status = "degraded"
	}

	response := HealthResponse{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Degraded:  degraded,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}

func (h *HealthHandler) appliedSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := h.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
