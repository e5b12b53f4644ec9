// Package backend defines the narrow SQL-execution boundary the engine and
// the built-in actions talk to, plus a SQLite implementation of it.
//
// The execution engine never interprets backend failures; they are wrapped
// as *Error and surfaced as-is.
package backend

import (
	"context"
	"database/sql"
	"fmt"
)

// Backend is the SQL execution collaborator.
type Backend interface {
	// ExecScript runs the statements of a SQL script file in order.
	ExecScript(ctx context.Context, path string) error

	// ExecStatement runs a single statement and returns all result rows
	// with every column rendered as a string. Statements without result
	// sets return nil rows.
	ExecStatement(ctx context.Context, stmt string, args ...any) ([][]string, error)

	// ObjectExists reports whether a schema object of the given kind
	// (table, view, index, trigger) exists.
	ObjectExists(ctx context.Context, schema, name, kind string) (bool, error)
}

// Querier is the subset of database/sql used by backends. It is satisfied
// by *sql.DB, *sql.Tx, and the execution context, which routes through its
// open transaction when one is held.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Error wraps a failure from the underlying database. The engine treats it
// as opaque and halts the plan at the failing step.
type Error struct {
	// Op names the backend operation that failed.
	Op string

	// Detail carries the script path or statement involved.
	Detail string

	// Err is the underlying driver error.
	Err error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
