package upgrade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/dbcontext"
)

func mapOf(t *testing.T, tags ...string) *Map {
	t.Helper()
	m := &Map{}
	for _, tag := range tags {
		canonical, err := canonicalTag(tag)
		if err != nil {
			t.Fatalf("bad test tag %q: %v", tag, err)
		}
		m.entries = append(m.entries, Entry{
			Tag:     canonical,
			Actions: []Invocation{{Name: "deploy"}},
		})
	}
	sortEntries(m.entries)
	return m
}

func tags(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Tag
	}
	return out
}

func TestResolve_HalfOpenInterval(t *testing.T) {
	m := mapOf(t, "v3.0.0", "v3.1.0", "v3.1.1")

	selected, err := Resolve(m, "v3.0.0", "v3.1.1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if diff := cmp.Diff([]string{"v3.1.0", "v3.1.1"}, tags(selected)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SemanticNotLexicalOrder(t *testing.T) {
	// v3.10.0 sorts after v3.9.0 numerically even though it precedes it
	// lexically.
	m := mapOf(t, "v3.10.0", "v3.2.0", "v3.9.0")

	selected, err := Resolve(m, "v3.2.0", "v3.10.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if diff := cmp.Diff([]string{"v3.9.0", "v3.10.0"}, tags(selected)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_AbsentInstalledVersionSelectsAll(t *testing.T) {
	m := mapOf(t, "v1.0.0", "v2.0.0")

	selected, err := Resolve(m, "", "v2.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if diff := cmp.Diff([]string{"v1.0.0", "v2.0.0"}, tags(selected)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_EmptyTargetMeansHead(t *testing.T) {
	m := mapOf(t, "v1.0.0", "v1.1.0", "v2.0.0")

	selected, err := Resolve(m, "v1.0.0", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if diff := cmp.Diff([]string{"v1.1.0", "v2.0.0"}, tags(selected)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_DowngradeFails(t *testing.T) {
	m := mapOf(t, "v1.0.0", "v2.0.0")

	_, err := Resolve(m, "v2.0.0", "v1.0.0")
	var noPath *NoUpgradePathError
	if !errors.As(err, &noPath) {
		t.Fatalf("expected NoUpgradePathError, got %v", err)
	}
}

func TestResolve_TargetNotInMap(t *testing.T) {
	m := mapOf(t, "v1.0.0", "v2.0.0")

	_, err := Resolve(m, "", "v1.5.0")
	var noPath *NoUpgradePathError
	if !errors.As(err, &noPath) {
		t.Fatalf("expected NoUpgradePathError, got %v", err)
	}
}

func TestResolve_AlreadyUpToDate(t *testing.T) {
	m := mapOf(t, "v1.0.0", "v2.0.0")

	_, err := Resolve(m, "v2.0.0", "v2.0.0")
	var noPath *NoUpgradePathError
	if !errors.As(err, &noPath) {
		t.Fatalf("expected NoUpgradePathError, got %v", err)
	}
}

func TestLoadMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upgrade_actions.jsonc")
	content := `{
        // first release wave
        "v2.0.0": ["data"],
        "v1.0.0": ["deploy", ["data", {"files": ["seed.sql"]}]]
    }`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write map: %v", err)
	}

	m, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	entries := m.Entries()
	if diff := cmp.Diff([]string{"v1.0.0", "v2.0.0"}, tags(entries)); diff != "" {
		t.Errorf("tag order mismatch (-want +got):\n%s", diff)
	}

	v1 := entries[0]
	if len(v1.Actions) != 2 {
		t.Fatalf("v1.0.0 has %d actions, want 2", len(v1.Actions))
	}
	if v1.Actions[1].Name != "data" {
		t.Errorf("second action = %q, want %q", v1.Actions[1].Name, "data")
	}
	files := v1.Actions[1].Params.StringSlice("files")
	if diff := cmp.Diff([]string{"seed.sql"}, files); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMap_MalformedTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"not-a-version": ["deploy"]}`), 0o644); err != nil {
		t.Fatalf("failed to write map: %v", err)
	}

	if _, err := LoadMap(path); err == nil {
		t.Fatal("expected error for malformed tag, got nil")
	}
}

func TestLoadMap_EmptyActionList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"v1.0.0": []}`), 0o644); err != nil {
		t.Fatalf("failed to write map: %v", err)
	}

	if _, err := LoadMap(path); err == nil {
		t.Fatal("expected error for empty action list, got nil")
	}
}

func TestPlan_ExpandsThroughRegistry(t *testing.T) {
	reg := action.New()
	noop := func(ctx context.Context, exec *dbcontext.Context, params action.Params) error { return nil }
	reg.Register(&action.Action{Name: "deploy", AffectsDatabase: true, Run: noop})
	reg.Register(&action.Action{Name: "data", AffectsDatabase: true, Options: []string{"files"}, Run: noop})
	reg.RegisterMulti("release", "", []action.Step{{Name: "deploy"}, {Name: "data"}})

	entries := []Entry{
		{Tag: "v1.0.0", Actions: []Invocation{{Name: "release"}}},
		{Tag: "v2.0.0", Actions: []Invocation{{Name: "data", Params: action.Params{"files": "fix.sql"}}}},
	}

	plan, err := Plan(entries, reg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	want := []string{"deploy", "data", "data"}
	if diff := cmp.Diff(want, plan.Names()); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if got := plan[2].Params.String("files", ""); got != "fix.sql" {
		t.Errorf("upgrade params not applied, files = %q", got)
	}
}

func TestPlan_UnknownActionFails(t *testing.T) {
	reg := action.New()
	entries := []Entry{{Tag: "v1.0.0", Actions: []Invocation{{Name: "ghost"}}}}

	_, err := Plan(entries, reg)
	var unknown *action.UnknownActionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownActionError, got %v", err)
	}
}
