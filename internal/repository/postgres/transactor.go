package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Transactor runs a function inside a database transaction. Repository calls
// made with the returned context join that transaction; nesting reuses the
// outer one.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var ErrTxNotFound = errors.New("tx not found in context")

type txKey struct{}

type transactorImpl struct {
	db     *DB
	logger *zap.Logger
}

var _ Transactor = (*transactorImpl)(nil)

func NewTransactor(db *DB, logger *zap.Logger) *transactorImpl {
	return &transactorImpl{db: db, logger: logger}
}

func (t *transactorImpl) WithTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	txCtx, tx, err := t.beginOrJoin(ctx)
	if err != nil {
		return fmt.Errorf("can not inject transaction, error: %w", err)
	}

	defer func() {
		if txErr != nil {
			if err := tx.Rollback(txCtx); err != nil {
				t.logger.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := tx.Commit(txCtx); err != nil {
			t.logger.Error("commit", zap.Error(err))
		}
	}()

	if err := fn(txCtx); err != nil {
		return fmt.Errorf("function execution error: %w", err)
	}
	return nil
}

func (t *transactorImpl) beginOrJoin(ctx context.Context) (context.Context, pgx.Tx, error) {
	if tx, err := extractTx(ctx); err == nil {
		return ctx, tx, nil
	}
	tx, err := t.db.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

func extractTx(ctx context.Context) (pgx.Tx, error) {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx, nil
	}
	return nil, ErrTxNotFound
}

// execQueryer is the subset of pgx shared by pool and transaction handles.
type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// execQueryer returns the ambient transaction when the context carries one,
// otherwise the pool itself.
func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, err := extractTx(ctx); err == nil && tx != nil {
		return tx
	}
	return db.Pool
}
