// Package pgsql implements the SQL engine port on a PostgreSQL pool. It is
// the execution backend for SQL analysis tasks and is kept separate from the
// session store so analysis queries run against the target database, not the
// hub's own.
package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rahulnsecc/AI-4-all/internal/port/sqlengine"
)

// Engine implements sqlengine.Engine using pgx.
type Engine struct {
	pool *pgxpool.Pool
}

// NewEngine creates an engine on the given connection pool.
func NewEngine(pool *pgxpool.Pool) *Engine {
	return &Engine{pool: pool}
}

// Execute runs the query and collects all rows as strings.
func (e *Engine) Execute(ctx context.Context, query string) (*sqlengine.ResultSet, error) {
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	rs := &sqlengine.ResultSet{
		Columns: make([]string, len(fields)),
	}
	for i, f := range fields {
		rs.Columns[i] = f.Name
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, mapError(err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			if v == nil {
				row[i] = "NULL"
				continue
			}
			row[i] = fmt.Sprintf("%v", v)
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rs, nil
}

// Explain returns the execution plan without running the query.
func (e *Engine) Explain(ctx context.Context, query string) (*sqlengine.ResultSet, error) {
	return e.Execute(ctx, "EXPLAIN "+query)
}

// mapError converts a pgx failure into a typed sqlengine.Error carrying the
// SQLSTATE so the error analyzer can classify it.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &sqlengine.Error{Code: pgErr.Code, Message: pgErr.Message}
	}
	return &sqlengine.Error{Code: "unknown", Message: err.Error()}
}
