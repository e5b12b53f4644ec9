package deploylog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenAt(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndList(t *testing.T) {
	repo := openTestRepo(t)

	entry := &Entry{
		Action:     "deploy",
		Database:   "store",
		Outcome:    OutcomeSuccess,
		DurationMs: 120,
	}
	if err := repo.Save(entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("expected Save to assign an ID")
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected Save to assign a timestamp")
	}

	entries, err := repo.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(entries))
	}
	if entries[0].Action != "deploy" {
		t.Errorf("Action = %q, want %q", entries[0].Action, "deploy")
	}
}

func TestListByAction(t *testing.T) {
	repo := openTestRepo(t)

	for _, action := range []string{"deploy", "data", "deploy"} {
		if err := repo.Save(&Entry{Action: action, Outcome: OutcomeSuccess}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := repo.ListByAction("deploy", 10)
	if err != nil {
		t.Fatalf("ListByAction failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("ListByAction returned %d entries, want 2", len(entries))
	}
}

func TestPrune(t *testing.T) {
	repo := openTestRepo(t)

	old := &Entry{
		Action:    "deploy",
		Outcome:   OutcomeSuccess,
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
	}
	recent := &Entry{Action: "data", Outcome: OutcomeSuccess}
	if err := repo.Save(old); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Save(recent); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	pruned, err := repo.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune removed %d entries, want 1", pruned)
	}

	entries, err := repo.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "data" {
		t.Errorf("expected only the recent entry to remain, got %+v", entries)
	}
}
