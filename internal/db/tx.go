package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"travelog/internal/logging"
)

// ErrSavepointAborted means a savepoint could not be rolled back and the
// enclosing transaction is no longer usable.
var ErrSavepointAborted = errors.New("savepoint rollback failed")

// Tx is a transaction bound to the connection's dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) Dialect() Dialect { return t.dialect }

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
// back otherwise, returning fn's error unchanged.
func (c *Conn) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return c.withTx(ctx, nil, fn)
}

// WithSnapshotTx is WithTx where every statement reads one snapshot. On
// Postgres it runs at REPEATABLE READ, so writing a row another transaction
// changed after the snapshot fails with a serialization error (see
// IsTransient). SQLite transactions are already serialized.
func (c *Conn) WithSnapshotTx(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if c.dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	return c.withTx(ctx, opts, fn)
}

func (c *Conn) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Tx) error) error {
	sqlTx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: sqlTx, dialect: c.dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Ctx(ctx).Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Savepoint runs fn inside a named savepoint. When fn fails the savepoint is
// rolled back, the transaction stays usable, and fn's error is returned. If
// the rollback itself fails the error wraps ErrSavepointAborted.
func (t *Tx) Savepoint(ctx context.Context, name string, fn func() error) error {
	if _, err := t.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w: %w", name, ErrSavepointAborted, err)
	}
	if fnErr := fn(); fnErr != nil {
		if _, err := t.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return fmt.Errorf("rollback to savepoint %s: %w: %w", name, ErrSavepointAborted, err)
		}
		if _, err := t.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
			return fmt.Errorf("release savepoint %s: %w: %w", name, ErrSavepointAborted, err)
		}
		return fnErr
	}
	if _, err := t.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w: %w", name, ErrSavepointAborted, err)
	}
	return nil
}
