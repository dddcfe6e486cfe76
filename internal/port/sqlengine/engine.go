// Package sqlengine defines the port interface for the external SQL engine.
package sqlengine

import (
	"context"
	"fmt"
)

// ResultSet is a tabular query result.
type ResultSet struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Engine executes queries and produces execution plans.
type Engine interface {
	// Execute runs the query and returns its rows.
	Execute(ctx context.Context, query string) (*ResultSet, error)

	// Explain returns the engine's execution plan without running the query.
	Explain(ctx context.Context, query string) (*ResultSet, error)
}

// Error is the typed failure of an engine call. Code carries the engine's
// error class (for Postgres, the SQLSTATE).
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sql %s: %s", e.Code, e.Message)
}
