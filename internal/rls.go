package internal

import (
	"context"
	"database/sql"
)

type ctxKey string

const dbConnKey ctxKey = "dbconn"

// withDBConn pins a connection for the request and sets the account used by
// the row level security policies. When RLS is off it returns a nil conn.
func withDBConn(ctx context.Context, db *sql.DB, enabled bool, accountID string) (*sql.Conn, context.Context, error) {
	if !enabled {
		return nil, ctx, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, ctx, err
	}
	if _, err := conn.ExecContext(ctx, "SELECT set_config('app.current_account_id', $1, false)", accountID); err != nil {
		conn.Close()
		return nil, ctx, err
	}
	return conn, context.WithValue(ctx, dbConnKey, conn), nil
}

// releaseDBConn clears the session setting before the conn goes back to the pool.
func releaseDBConn(conn *sql.Conn) {
	_, _ = conn.ExecContext(context.Background(), "RESET app.current_account_id")
	conn.Close()
}

// Prefer DB from context when RLS on; else use pool directly.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// beginner is satisfied by both *sql.DB and *sql.Conn.
type beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func dbFrom(ctx context.Context, db *sql.DB) querier {
	if c, ok := ctx.Value(dbConnKey).(*sql.Conn); ok {
		return c
	}
	return db
}

func txFrom(ctx context.Context, db *sql.DB) beginner {
	if c, ok := ctx.Value(dbConnKey).(*sql.Conn); ok {
		return c
	}
	return db
}
