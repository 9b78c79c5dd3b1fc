package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run := Run{
		UUID:      "run-1",
		Requested: []string{"wget", "curl"},
		StartTime: time.Now(),
	}
	if err := s.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.UUID != "run-1" || len(got.Requested) != 2 {
		t.Errorf("got = %+v", got)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun("does-not-exist"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestRecordAndListOutcomes(t *testing.T) {
	s := openTestStore(t)

	if err := s.RecordOutcome(PackageOutcome{RunUUID: "run-1", Name: "wget", Status: "installed", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordOutcome(PackageOutcome{RunUUID: "run-1", Name: "curl", Status: "failed", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordOutcome(PackageOutcome{RunUUID: "run-2", Name: "zlib", Status: "installed", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}

	outcomes, err := s.OutcomesForRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %+v, want 2 entries for run-1", outcomes)
	}
}

func TestOutcomesForUnknownRunIsEmpty(t *testing.T) {
	s := openTestStore(t)
	outcomes, err := s.OutcomesForRun("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %v, want empty", outcomes)
	}
}
