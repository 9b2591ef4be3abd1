package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"go.uber.org/zap"
)

const policyColumns = `id, airline_name, min_reuse_percentage, discard_below, can_combine, policy_text, created_at, updated_at, interpreted_at`

// PolicyRepository implements the repositories.PolicyRepository interface
type PolicyRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *DB, logger *zap.Logger) repositories.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// GetByAirlineName retrieves the policy for an airline by exact name
func (r *PolicyRepository) GetByAirlineName(ctx context.Context, airlineName string) (*models.AirlinePolicy, error) {
	query := `SELECT ` + policyColumns + `
		FROM airline_policies
		WHERE airline_name = $1
	`

	policy, err := scanPolicy(r.executor(ctx).QueryRowContext(ctx, query, airlineName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return policy, nil
}

// List retrieves all policies ordered by airline name
func (r *PolicyRepository) List(ctx context.Context) ([]*models.AirlinePolicy, error) {
	query := `SELECT ` + policyColumns + `
		FROM airline_policies
		ORDER BY airline_name
	`

	rows, err := r.executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.AirlinePolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, policy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", err)
	}

	return policies, nil
}

// Upsert creates the policy or replaces every field of an existing one
func (r *PolicyRepository) Upsert(ctx context.Context, policy *models.AirlinePolicy) error {
	query := `
		INSERT INTO airline_policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (airline_name) DO UPDATE
		SET min_reuse_percentage = EXCLUDED.min_reuse_percentage,
		    discard_below = EXCLUDED.discard_below,
		    can_combine = EXCLUDED.can_combine,
		    policy_text = EXCLUDED.policy_text,
		    updated_at = EXCLUDED.updated_at,
		    interpreted_at = EXCLUDED.interpreted_at
	`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		policy.ID,
		policy.AirlineName,
		policy.MinReusePercentage,
		policy.DiscardBelow,
		policy.CanCombine,
		policy.PolicyText,
		policy.CreatedAt,
		policy.UpdatedAt,
		policy.InterpretedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert policy: %w", err)
	}

	r.logger.Debug("policy upserted", zap.String("airline", policy.AirlineName))
	return nil
}

// UpdateThresholds fills threshold columns that are still NULL and marks
// the policy text as interpreted
func (r *PolicyRepository) UpdateThresholds(ctx context.Context, airlineName string, t models.Thresholds) error {
	query := `
		UPDATE airline_policies
		SET min_reuse_percentage = COALESCE(min_reuse_percentage, $2),
		    discard_below = COALESCE(discard_below, $3),
		    can_combine = COALESCE(can_combine, $4),
		    updated_at = $5,
		    interpreted_at = $5
		WHERE airline_name = $1
	`

	result, err := r.executor(ctx).ExecContext(ctx, query,
		airlineName,
		t.MinReusePercentage,
		t.DiscardBelow,
		t.CanCombine,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update policy thresholds: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("policy thresholds updated", zap.String("airline", airlineName))
	return nil
}

// DeleteAll removes every policy
func (r *PolicyRepository) DeleteAll(ctx context.Context) error {
	result, err := r.executor(ctx).ExecContext(ctx, `DELETE FROM airline_policies`)
	if err != nil {
		return fmt.Errorf("failed to delete policies: %w", err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.Debug("policies deleted", zap.Int64("count", deleted))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *PolicyRepository) WithTx(tx repositories.Transaction) repositories.PolicyRepository {
	pgTx, _ := tx.(*Transaction)
	return &PolicyRepository{
		db:     r.db,
		tx:     pgTx,
		logger: r.logger,
	}
}

func (r *PolicyRepository) executor(ctx context.Context) Executor {
	if r.tx != nil {
		return r.tx.tx
	}
	return executorFor(ctx, r.db)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (*models.AirlinePolicy, error) {
	policy := &models.AirlinePolicy{}
	err := row.Scan(
		&policy.ID,
		&policy.AirlineName,
		&policy.MinReusePercentage,
		&policy.DiscardBelow,
		&policy.CanCombine,
		&policy.PolicyText,
		&policy.CreatedAt,
		&policy.UpdatedAt,
		&policy.InterpretedAt,
	)
	if err != nil {
		return nil, err
	}
	return policy, nil
}
