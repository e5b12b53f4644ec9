package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"almpartners/dbdeploy/internal/database"
)

func openTestBackend(t *testing.T) *SQLite {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLite(db)
}

func TestExecScript(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	script := `
-- schema for the test
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);

INSERT INTO users (name) VALUES ('alice');
INSERT INTO users (name) VALUES ('bob');
`
	path := filepath.Join(t.TempDir(), "users.sql")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	if err := b.ExecScript(ctx, path); err != nil {
		t.Fatalf("ExecScript failed: %v", err)
	}

	rows, err := b.ExecStatement(ctx, `SELECT name FROM users ORDER BY name`)
	if err != nil {
		t.Fatalf("ExecStatement failed: %v", err)
	}
	want := [][]string{{"alice"}, {"bob"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestExecScript_MissingFile(t *testing.T) {
	b := openTestBackend(t)

	err := b.ExecScript(context.Background(), filepath.Join(t.TempDir(), "nope.sql"))
	var backendErr *Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestExecScript_BadSQL(t *testing.T) {
	b := openTestBackend(t)

	path := filepath.Join(t.TempDir(), "bad.sql")
	if err := os.WriteFile(path, []byte("CREATE GIBBERISH;"), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	err := b.ExecScript(context.Background(), path)
	var backendErr *Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if backendErr.Detail != path {
		t.Errorf("Detail = %q, want script path", backendErr.Detail)
	}
}

func TestObjectExists(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	if _, err := b.ExecStatement(ctx, `CREATE TABLE things (id INTEGER)`); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	exists, err := b.ObjectExists(ctx, "", "things", "table")
	if err != nil {
		t.Fatalf("ObjectExists failed: %v", err)
	}
	if !exists {
		t.Error("expected table to exist")
	}

	exists, err = b.ObjectExists(ctx, "", "nothing", "table")
	if err != nil {
		t.Fatalf("ObjectExists failed: %v", err)
	}
	if exists {
		t.Error("expected table to not exist")
	}

	if _, err := b.ObjectExists(ctx, "", "things", "spaceship"); err == nil {
		t.Error("expected error for unsupported object kind")
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "two statements",
			script: "CREATE TABLE a (x INT);\nCREATE TABLE b (y INT);",
			want:   []string{"CREATE TABLE a (x INT);", "CREATE TABLE b (y INT);"},
		},
		{
			name:   "go separator",
			script: "CREATE TABLE a (x INT)\nGO\nCREATE TABLE b (y INT)\ngo\n",
			want:   []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"},
		},
		{
			name:   "semicolon inside string literal",
			script: "INSERT INTO t VALUES ('a;b');\nINSERT INTO t VALUES ('c');",
			want:   []string{"INSERT INTO t VALUES ('a;b');", "INSERT INTO t VALUES ('c');"},
		},
		{
			name:   "semicolon inside comment",
			script: "CREATE TABLE a ( -- not the end;\n x INT);",
			want:   []string{"CREATE TABLE a ( -- not the end;\n x INT);"},
		},
		{
			name:   "comment-only script yields nothing",
			script: "\n\n-- only a comment\n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.script)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitStatements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
