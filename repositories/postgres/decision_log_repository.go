package postgres

import (
	"context"
	"fmt"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"go.uber.org/zap"
)

// DecisionLogRepository implements the repositories.DecisionLogRepository interface
type DecisionLogRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewDecisionLogRepository creates a new decision log repository
func NewDecisionLogRepository(db *DB, logger *zap.Logger) repositories.DecisionLogRepository {
	return &DecisionLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a decision log entry
func (r *DecisionLogRepository) Insert(ctx context.Context, log *models.DecisionLog) error {
	query := `
		INSERT INTO decision_logs (
			id, airline_name, bottle_type, volume, decision, source, request_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		log.ID,
		log.AirlineName,
		log.BottleType,
		log.Volume,
		log.Decision,
		log.Source,
		log.RequestID,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision log: %w", err)
	}

	r.logger.Debug("decision log inserted",
		zap.String("id", log.ID.String()),
		zap.String("decision", log.Decision))
	return nil
}

// List retrieves decision logs, newest first, with pagination
func (r *DecisionLogRepository) List(ctx context.Context, limit, offset int) ([]*models.DecisionLog, error) {
	query := `
		SELECT id, airline_name, bottle_type, volume, decision, source, COALESCE(request_id, ''), created_at
		FROM decision_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.executor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.DecisionLog
	for rows.Next() {
		log := &models.DecisionLog{}
		err := rows.Scan(
			&log.ID,
			&log.AirlineName,
			&log.BottleType,
			&log.Volume,
			&log.Decision,
			&log.Source,
			&log.RequestID,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision log rows: %w", err)
	}

	return logs, nil
}

// DeleteAll removes every decision log
func (r *DecisionLogRepository) DeleteAll(ctx context.Context) error {
	result, err := r.executor(ctx).ExecContext(ctx, `DELETE FROM decision_logs`)
	if err != nil {
		return fmt.Errorf("failed to delete decision logs: %w", err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.Debug("decision logs deleted", zap.Int64("count", deleted))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *DecisionLogRepository) WithTx(tx repositories.Transaction) repositories.DecisionLogRepository {
	pgTx, _ := tx.(*Transaction)
	return &DecisionLogRepository{
		db:     r.db,
		tx:     pgTx,
		logger: r.logger,
	}
}

func (r *DecisionLogRepository) executor(ctx context.Context) Executor {
	if r.tx != nil {
		return r.tx.tx
	}
	return executorFor(ctx, r.db)
}
