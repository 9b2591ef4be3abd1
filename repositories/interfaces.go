package repositories

import (
	"context"
	"errors"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
)

// ErrNotFound is returned by repositories when no row matches the lookup
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if function succeeds, rolls back on error.
	// Repositories called with the ctx passed to fn run inside the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// PolicyRepository handles airline policy data operations
type PolicyRepository interface {
	// GetByAirlineName retrieves the policy for an airline by exact name.
	// Returns ErrNotFound when no policy exists.
	GetByAirlineName(ctx context.Context, airlineName string) (*models.AirlinePolicy, error)

	// List retrieves all policies ordered by airline name
	List(ctx context.Context) ([]*models.AirlinePolicy, error)

	// Upsert creates the policy or replaces every field of an existing one
	Upsert(ctx context.Context, policy *models.AirlinePolicy) error

	// UpdateThresholds fills threshold columns that are still NULL and
	// records that the policy text has been interpreted.
	// Columns that already hold a value are left untouched.
	UpdateThresholds(ctx context.Context, airlineName string, t models.Thresholds) error

	// DeleteAll removes every policy
	DeleteAll(ctx context.Context) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) PolicyRepository
}

// DecisionLogRepository handles the append-only decision audit trail
type DecisionLogRepository interface {
	// Insert appends a decision log entry
	Insert(ctx context.Context, log *models.DecisionLog) error

	// List retrieves decision logs, newest first, with pagination
	List(ctx context.Context, limit, offset int) ([]*models.DecisionLog, error)

	// DeleteAll removes every decision log
	DeleteAll(ctx context.Context) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) DecisionLogRepository
}

// AccessibilityRepository stores per-client accessibility preferences
type AccessibilityRepository interface {
	// Get retrieves the settings for a client. Returns ErrNotFound when unset.
	Get(ctx context.Context, clientID string) (*models.AccessibilitySettings, error)

	// Upsert stores the settings for a client
	Upsert(ctx context.Context, settings *models.AccessibilitySettings) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Policies      PolicyRepository
	DecisionLogs  DecisionLogRepository
	Accessibility AccessibilityRepository
}
