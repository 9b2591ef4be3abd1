package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/app"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/auth"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/config"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/middleware"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/routes"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "seed", "token", "version"})
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "WiseSpirit "+Version)
	assert.Contains(t, out.String(), "Commit:")
}

func TestIssueToken(t *testing.T) {
	t.Run("token validates with the same secret", func(t *testing.T) {
		secret := "cli-test-secret-with-enough-bytes"
		token, err := issueToken(secret, "ops-lead", []string{"admin"}, time.Minute)
		require.NoError(t, err)

		validator, err := auth.NewHS256Validator(secret)
		require.NoError(t, err)
		claims, err := validator.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "ops-lead", claims.Sub)
		assert.True(t, claims.HasRole("admin"))
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := issueToken("", "ops-lead", []string{"admin"}, time.Minute)
		assert.ErrorIs(t, err, auth.ErrMissingSecret)
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Run("bundled catalog", func(t *testing.T) {
		catalog, err := loadCatalog("")
		require.NoError(t, err)
		assert.Len(t, catalog.Airlines, 8)
	})

	t.Run("catalog file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("airlines:\n  - name: Test Air\n    minReusePercentage: 45\n"), 0o600))

		catalog, err := loadCatalog(path)
		require.NoError(t, err)
		require.Len(t, catalog.Airlines, 1)
		assert.Equal(t, "Test Air", catalog.Airlines[0].Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestNewServer(t *testing.T) {
	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
	}

	srv := newServer(cfg, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 40*time.Second, srv.WriteTimeout)
	assert.Equal(t, 20*time.Second, srv.IdleTimeout)
}

func TestHealthEndpoints(t *testing.T) {
	deps := testDeps(t)
	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["data"]["status"])
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	deps := testDeps(t)
	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"list policies", http.MethodGet, "/api/v1/admin/policies", http.StatusUnauthorized},
		{"get policy", http.MethodGet, "/api/v1/admin/policies/Lufthansa", http.StatusUnauthorized},
		{"put policy", http.MethodPut, "/api/v1/admin/policies/Lufthansa", http.StatusUnauthorized},
		{"list decisions", http.MethodGet, "/api/v1/admin/decisions", http.StatusUnauthorized},
		{"not found", http.MethodGet, "/api/v1/nonexistent", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	deps := testDeps(t)
	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/decision", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestIntegrationWithRealDependencies(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
		return
	}
	defer deps.Close(ctx)
	require.NoError(t, deps.DB.Migrate(ctx))

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, []interface{}{"healthy", "degraded"}, body["data"]["status"])
	checks := body["data"]["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["schema"])
}

// Test helpers

func testDeps(t *testing.T) *app.Dependencies {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return &app.Dependencies{
		Config:         testConfig(t),
		Logger:         logger,
		AuthMiddleware: middleware.NewAuthMiddleware(nil, logger),
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"http://localhost:*"},
		},
		Database: config.DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            5432,
			User:            getEnvOrDefault("DB_USER", "wisespirit"),
			Password:        getEnvOrDefault("DB_PASSWORD", "wisespirit"),
			Database:        getEnvOrDefault("DB_NAME", "wisespirit_test"),
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		LLM:  config.LLMConfig{Provider: "gemini"},
		Auth: config.AuthConfig{AdminRole: "admin"},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
