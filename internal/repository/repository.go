package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the slice of the connection pool the repositories use;
// *pgxpool.Pool satisfies it. Tests substitute it to drive transaction
// failure paths without a live server.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
