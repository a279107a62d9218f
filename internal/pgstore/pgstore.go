// Package pgstore implements the quota, pricing, stock, tenant and billing
// stores on PostgreSQL through a pgx pool. Queries are built with
// go-sqlbuilder in the PostgreSQL flavor; the schema lives in
// internal/db/migrations.
package pgstore

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is satisfied by both DB and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var flavor = sqlbuilder.PostgreSQL

type builder interface {
	Build() (string, []any)
}

func exec(ctx context.Context, q querier, b builder) (pgconn.CommandTag, error) {
	sql, args := b.Build()
	return q.Exec(ctx, sql, args...)
}

func queryRow(ctx context.Context, q querier, b builder) pgx.Row {
	sql, args := b.Build()
	return q.QueryRow(ctx, sql, args...)
}

func query(ctx context.Context, db DB, b builder) (pgx.Rows, error) {
	sql, args := b.Build()
	return db.Query(ctx, sql, args...)
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
