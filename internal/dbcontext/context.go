// Package dbcontext holds the per-invocation execution state handed to
// actions: the resolved configuration, the target database connection and
// its optional transaction, command-line argument overrides, and the
// confirmation memo. A Context is owned by exactly one invocation of the
// execution engine and is torn down on every exit path.
package dbcontext

import (
	"context"
	"database/sql"
	"fmt"

	"almpartners/dbdeploy/internal/backend"
	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/database"
	"almpartners/dbdeploy/internal/migration"
)

// Context is the process state threaded through a single top-level command.
type Context struct {
	cfg  *config.Config
	args map[string][]string

	db *sql.DB
	tx *sql.Tx

	confirmed bool
}

// New returns a Context over the given configuration and command-line
// argument overrides. The database connection is opened lazily on first
// use.
func New(cfg *config.Config, args map[string][]string) *Context {
	if args == nil {
		args = map[string][]string{}
	}
	return &Context{cfg: cfg, args: args}
}

// Config returns the resolved configuration. It must not be mutated.
func (c *Context) Config() *config.Config { return c.cfg }

// Args returns the values of a custom command-line argument, or nil when
// the argument was not given.
func (c *Context) Args(name string) []string { return c.args[name] }

// Arg returns the first value of a custom command-line argument, or def.
func (c *Context) Arg(name, def string) string {
	if v := c.args[name]; len(v) > 0 {
		return v[0]
	}
	return def
}

// Confirmed reports whether a destructive-operation confirmation has
// already been granted during this invocation.
func (c *Context) Confirmed() bool { return c.confirmed }

// SetConfirmed records that confirmation has been granted; it is asked at
// most once per invocation.
func (c *Context) SetConfirmed() { c.confirmed = true }

// DB returns the open connection to the target database, opening it on
// first use.
func (c *Context) DB() (*sql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := database.Open(c.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("dbcontext: %w", err)
	}
	c.db = db
	return c.db, nil
}

// Begin opens the invocation-scoped transaction. It is an error to begin
// twice without resolving the first transaction.
func (c *Context) Begin(ctx context.Context) error {
	if c.tx != nil {
		return fmt.Errorf("dbcontext: transaction already open")
	}
	db, err := c.DB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbcontext: failed to begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// InTransaction reports whether a transaction is currently held.
func (c *Context) InTransaction() bool { return c.tx != nil }

// Commit commits and releases the open transaction.
func (c *Context) Commit() error {
	if c.tx == nil {
		return fmt.Errorf("dbcontext: no open transaction")
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("dbcontext: commit failed: %w", err)
	}
	return nil
}

// Rollback rolls back and releases the open transaction. Calling it with
// no open transaction is a no-op so teardown paths can call it blindly.
func (c *Context) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("dbcontext: rollback failed: %w", err)
	}
	return nil
}

// ExecContext routes a statement through the open transaction when one is
// held, and directly through the connection otherwise. Together with
// QueryContext this makes Context satisfy backend.Querier.
func (c *Context) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

// QueryContext routes a query through the open transaction when one is
// held, and directly through the connection otherwise.
func (c *Context) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.tx != nil {
		return c.tx.QueryContext(ctx, query, args...)
	}
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

// Backend returns the SQL execution collaborator bound to this context.
// Operations participate in the context's transaction when one is open.
func (c *Context) Backend() backend.Backend {
	return backend.NewSQLite(c)
}

// Migrator returns the schema-migration collaborator bound to this
// context's migrations directory.
func (c *Context) Migrator() migration.Engine {
	return migration.NewFileEngine(c, c.cfg.MigrationsPath)
}

// Close tears the context down: any open transaction is rolled back and
// the connection is released. Safe to call on every exit path.
func (c *Context) Close() error {
	var firstErr error
	if err := c.Rollback(); err != nil {
		firstErr = err
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dbcontext: failed to close connection: %w", err)
		}
		c.db = nil
	}
	return firstErr
}
