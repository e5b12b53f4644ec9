package dbcontext

import (
	"context"
	"path/filepath"
	"testing"

	"almpartners/dbdeploy/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TargetDatabaseName: "store",
		DatabasePath:       filepath.Join(t.TempDir(), "store.db"),
		AllowedActions:     config.StringOrList{config.AllowAll},
		TransactionMode:    config.TxBeginOnce,
	}
}

func TestArgs(t *testing.T) {
	c := New(testConfig(t), map[string][]string{
		"files": {"a.sql", "b.sql"},
	})
	defer c.Close()

	if got := c.Args("files"); len(got) != 2 {
		t.Errorf("Args(files) = %v, want two values", got)
	}
	if got := c.Arg("files", ""); got != "a.sql" {
		t.Errorf("Arg(files) = %q, want first value", got)
	}
	if got := c.Arg("missing", "fallback"); got != "fallback" {
		t.Errorf("Arg(missing) = %q, want fallback", got)
	}
}

func TestTransaction_CommitPersists(t *testing.T) {
	c := New(testConfig(t), nil)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.ExecContext(ctx, `CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := c.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !c.InTransaction() {
		t.Fatal("expected InTransaction after Begin")
	}
	if _, err := c.ExecContext(ctx, `INSERT INTO t (x) VALUES (1)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	rows, err := c.Backend().ExecStatement(ctx, `SELECT COUNT(*) FROM t`)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if rows[0][0] != "1" {
		t.Errorf("count = %s, want 1", rows[0][0])
	}
}

func TestTransaction_RollbackDiscards(t *testing.T) {
	c := New(testConfig(t), nil)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.ExecContext(ctx, `CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := c.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := c.ExecContext(ctx, `INSERT INTO t (x) VALUES (1)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := c.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	rows, err := c.Backend().ExecStatement(ctx, `SELECT COUNT(*) FROM t`)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if rows[0][0] != "0" {
		t.Errorf("count = %s, want 0 after rollback", rows[0][0])
	}
}

func TestBegin_Twice(t *testing.T) {
	c := New(testConfig(t), nil)
	defer c.Close()
	ctx := context.Background()

	if err := c.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := c.Begin(ctx); err == nil {
		t.Fatal("expected error on second Begin")
	}
}

func TestClose_ResolvesOpenTransaction(t *testing.T) {
	c := New(testConfig(t), nil)
	ctx := context.Background()

	if err := c.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.InTransaction() {
		t.Error("expected Close to resolve the open transaction")
	}
	// Close is idempotent.
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestConfirmationMemo(t *testing.T) {
	c := New(testConfig(t), nil)
	defer c.Close()

	if c.Confirmed() {
		t.Error("new context should not be confirmed")
	}
	c.SetConfirmed()
	if !c.Confirmed() {
		t.Error("expected Confirmed after SetConfirmed")
	}
}
