package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// Migrate creates the schema and records the applied version
func (db *DB) Migrate(ctx context.Context) error {
	db.logger.Info("running database migrations", zap.Int("version", SchemaVersion))

	createMigrationsTable := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		SchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	db.logger.Info("migrations completed successfully")
	return nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// SchemaVersion is the version Migrate records in schema_migrations
const SchemaVersion = 2

const schema = `
	-- Airline policies
	CREATE TABLE IF NOT EXISTS airline_policies (
		id UUID PRIMARY KEY,
		airline_name VARCHAR(255) NOT NULL UNIQUE,
		min_reuse_percentage DOUBLE PRECISION,
		discard_below DOUBLE PRECISION,
		can_combine BOOLEAN,
		policy_text TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		interpreted_at TIMESTAMP
	);

	-- v2: set once the policy text has been interpreted
	ALTER TABLE airline_policies ADD COLUMN IF NOT EXISTS interpreted_at TIMESTAMP;

	-- Decision audit trail
	CREATE TABLE IF NOT EXISTS decision_logs (
		id UUID PRIMARY KEY,
		airline_name VARCHAR(255) NOT NULL,
		bottle_type VARCHAR(255) NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		decision VARCHAR(50) NOT NULL,
		source VARCHAR(20) NOT NULL DEFAULT 'rules',
		request_id VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Accessibility preferences per client
	CREATE TABLE IF NOT EXISTS accessibility_preferences (
		client_id VARCHAR(255) PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT false,
		keyboard_mode BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_decision_logs_airline_name ON decision_logs(airline_name);
	CREATE INDEX IF NOT EXISTS idx_decision_logs_created_at ON decision_logs(created_at);
	CREATE INDEX IF NOT EXISTS idx_decision_logs_request_id ON decision_logs(request_id);
`
