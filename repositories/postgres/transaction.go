package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// Executor runs queries against either the pool or an open transaction
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxManager opens transactions on the pool. Repositories invoked with the
// context handed to InTransaction callbacks join the transaction.
type TxManager struct {
	db        *DB
	isolation sql.IsolationLevel
	logger    *zap.Logger
}

// NewTransactionManager creates a manager using the driver's default
// isolation level
func NewTransactionManager(db *DB, logger *zap.Logger) *TxManager {
	return &TxManager{db: db, isolation: sql.LevelDefault, logger: logger}
}

// WithIsolation returns a copy of the manager that opens transactions at
// the given isolation level
func (m *TxManager) WithIsolation(level sql.IsolationLevel) *TxManager {
	cp := *m
	cp.isolation = level
	return &cp
}

// Begin opens a transaction
func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: m.isolation})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Transaction{tx: sqlTx, started: time.Now(), logger: m.logger}
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	return tx, nil
}

// InTransaction runs fn inside a transaction. The transaction commits when
// fn returns nil and rolls back when it returns an error or panics.
func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("rollback failed", zap.Error(rbErr), zap.NamedError("cause", err))
		}
		return err
	}

	return tx.Commit()
}

// Transaction wraps a *sql.Tx. Commit and Rollback are safe to call after
// the transaction has finished.
type Transaction struct {
	tx      *sql.Tx
	ctx     context.Context
	started time.Time
	done    bool
	logger  *zap.Logger
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed", zap.Duration("elapsed", time.Since(t.started)))
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back", zap.Duration("elapsed", time.Since(t.started)))
	return nil
}

// Context returns a context carrying the transaction
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// executorFor returns the transaction carried by ctx, or the pool
func executorFor(ctx context.Context, db *DB) Executor {
	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok && !tx.done {
		return tx.tx
	}
	return db.DB
}
