package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/credentials"
)

// useMockStore swaps the keychain for an in-memory store for the test.
func useMockStore(t *testing.T) *credentials.MockStore {
	t.Helper()
	mock := credentials.NewMockStore()
	prev := store
	store = mock
	t.Cleanup(func() { store = prev })
	return mock
}

// useProjectConfig points config resolution at a project that names a
// credential key.
func useProjectConfig(t *testing.T, credentialKey string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbdeploy.jsonc")
	body := `{
		"target_database_name": "store",
		"database_path": "store.db",
		"allowed_actions": "ALL",
		"credential_key": "` + credentialKey + `"
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigPath, path)
}

func TestSetUsesConfiguredKeyWhenOmitted(t *testing.T) {
	mock := useMockStore(t)
	useProjectConfig(t, "store-db")

	var out bytes.Buffer
	cmd := SetCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--secret", "hunter2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("auth set: %v", err)
	}
	if !strings.Contains(out.String(), "Saved credential for store-db") {
		t.Errorf("output = %q, want saved message for store-db", out.String())
	}

	got, err := mock.GetSecret("store-db")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hunter2" {
		t.Errorf("stored secret = %q, want hunter2", got)
	}
}

func TestStatusAndRemoveUseConfiguredKey(t *testing.T) {
	mock := useMockStore(t)
	useProjectConfig(t, "store-db")
	if err := mock.SetSecret("store-db", "hunter2"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := StatusCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("auth status: %v", err)
	}
	if !strings.Contains(out.String(), "store-db: stored") {
		t.Errorf("status output = %q, want stored", out.String())
	}

	out.Reset()
	cmd = RemoveCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("auth remove: %v", err)
	}
	if !strings.Contains(out.String(), "Removed credential for store-db") {
		t.Errorf("remove output = %q, want removed message", out.String())
	}
	if _, err := mock.GetSecret("store-db"); err == nil {
		t.Error("secret should be gone after remove")
	}
}

func TestExplicitKeyArgumentWins(t *testing.T) {
	mock := useMockStore(t)
	useProjectConfig(t, "store-db")

	cmd := SetCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"billing-db", "--secret", "s3cret"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("auth set: %v", err)
	}
	if _, err := mock.GetSecret("billing-db"); err != nil {
		t.Errorf("secret not stored under explicit key: %v", err)
	}
}

func TestKeyRequiredWithoutConfiguration(t *testing.T) {
	useMockStore(t)
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "absent.jsonc"))

	cmd := StatusCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "key is required") {
		t.Fatalf("error = %v, want key-required error", err)
	}
}
