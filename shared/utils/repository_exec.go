package utils

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type ExecType int

const (
	ExecInsert ExecType = iota
	ExecUpdate
	ExecDelete
)

// ErrNoRowsAffected is returned by ExecWithCheck when an update or delete
// matched nothing. Compare-and-swap updates rely on it to detect lost races.
var ErrNoRowsAffected = errors.New("no rows affected")

// ExecWithCheck runs a statement written with '?' placeholders against a DB
// or Tx and, for updates and deletes, requires at least one affected row.
func ExecWithCheck(ctx context.Context, db sqlx.ExtContext, query string, execType ExecType, args ...any) error {
	result, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	// inserts fail loudly on their own
	if execType == ExecInsert {
		return nil
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

// ExecAffected runs a statement and reports how many rows it touched.
func ExecAffected(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (int64, error) {
	result, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}
