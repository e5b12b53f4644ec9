package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "conf.json", `{
        "target_database_name": "store",
        "database_path": "store.db",
        "allowed_actions": "ALL",
        "transaction_mode": "commit_as_you_go"
    }`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TargetDatabaseName != "store" {
		t.Errorf("TargetDatabaseName = %q, want %q", cfg.TargetDatabaseName, "store")
	}
	if cfg.TransactionMode != TxCommitAsYouGo {
		t.Errorf("TransactionMode = %q, want %q", cfg.TransactionMode, TxCommitAsYouGo)
	}
	if diff := cmp.Diff(StringOrList{"ALL"}, cfg.AllowedActions); diff != "" {
		t.Errorf("AllowedActions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_JSONCWithComments(t *testing.T) {
	path := writeFile(t, "conf.jsonc", `{
        // target of the deployment
        "database_path": "store.db",
        /* explicit allow list */
        "allowed_actions": ["deploy", "data"],
        "skipped_actions": ["data"]
    }`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(StringOrList{"deploy", "data"}, cfg.AllowedActions); diff != "" {
		t.Errorf("AllowedActions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"data"}, cfg.SkippedActions); diff != "" {
		t.Errorf("SkippedActions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLWithBackendKey(t *testing.T) {
	path := writeFile(t, "conf.yaml", `
BACKEND:
  database_path: store.db
  allowed_actions:
    - deploy
  git_table: deployed_version
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GitTable != "deployed_version" {
		t.Errorf("GitTable = %q, want %q", cfg.GitTable, "deployed_version")
	}
	// Defaults are applied to the unwrapped block.
	if cfg.TransactionMode != TxBeginOnce {
		t.Errorf("TransactionMode = %q, want default %q", cfg.TransactionMode, TxBeginOnce)
	}
}

func TestLoad_InvalidTransactionMode(t *testing.T) {
	path := writeFile(t, "conf.json", `{
        "database_path": "store.db",
        "allowed_actions": "ALL",
        "transaction_mode": "sometimes"
    }`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "transaction_mode") {
		t.Fatalf("expected transaction_mode error, got %v", err)
	}
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	path := writeFile(t, "conf.json", `{"allowed_actions": "ALL"}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing database_path, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "conf.toml", `database_path = "x"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported format, got nil")
	}
}

func TestPath_Resolution(t *testing.T) {
	if got := Path("explicit.json"); got != "explicit.json" {
		t.Errorf("Path = %q, want explicit flag value", got)
	}

	t.Setenv(EnvConfigPath, "from-env.yaml")
	if got := Path(""); got != "from-env.yaml" {
		t.Errorf("Path = %q, want env value", got)
	}

	t.Setenv(EnvConfigPath, "")
	if got := Path(""); got != DefaultFileName {
		t.Errorf("Path = %q, want default %q", got, DefaultFileName)
	}
}

func TestStripComments_PreservesStrings(t *testing.T) {
	in := []byte(`{"url": "http://example.com/x", "note": "a /* not comment */ b"} // tail`)
	out := StripComments(in)
	if !strings.Contains(string(out), "http://example.com/x") {
		t.Errorf("string literal mangled: %s", out)
	}
	if !strings.Contains(string(out), "a /* not comment */ b") {
		t.Errorf("quoted comment-lookalike mangled: %s", out)
	}
	if strings.Contains(string(out), "tail") {
		t.Errorf("line comment not removed: %s", out)
	}
}
