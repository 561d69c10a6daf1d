package sprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendSprintHistoryCreatesFileOnFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprint-history.json")

	if err := appendSprintHistory(path, sprintHistoryEntry{Sprint: 1, RunHash: "abc123", Completed: 2, Failed: 0}); err != nil {
		t.Fatalf("appendSprintHistory: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading history file: %v", err)
	}
	var history []sprintHistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("unmarshaling history: %v", err)
	}
	if len(history) != 1 || history[0].Sprint != 1 || history[0].Completed != 2 {
		t.Errorf("unexpected history contents: %+v", history)
	}
}

func TestAppendSprintHistoryAppendsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprint-history.json")

	if err := appendSprintHistory(path, sprintHistoryEntry{Sprint: 1, RunHash: "a", Completed: 1}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := appendSprintHistory(path, sprintHistoryEntry{Sprint: 2, RunHash: "b", Completed: 3, Failed: 1}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var history []sprintHistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[1].Sprint != 2 || history[1].Failed != 1 {
		t.Errorf("unexpected second entry: %+v", history[1])
	}
}

func TestAppendSprintHistoryRejectsCorruptExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprint-history.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := appendSprintHistory(path, sprintHistoryEntry{Sprint: 1}); err == nil {
		t.Fatal("expected an error for a corrupt history file")
	}
}

func TestWriteTeamState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team-state.json")
	snapshot := teamStateSnapshot{Project: "alpha", TargetBranch: "main", LastSprint: 4}

	if err := writeTeamState(path, snapshot); err != nil {
		t.Fatalf("writeTeamState: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got teamStateSnapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != snapshot {
		t.Errorf("writeTeamState round-trip = %+v, want %+v", got, snapshot)
	}
}

func TestWriteTeamStateOverwritesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team-state.json")
	if err := writeTeamState(path, teamStateSnapshot{Project: "alpha", TargetBranch: "main", LastSprint: 1}); err != nil {
		t.Fatal(err)
	}
	if err := writeTeamState(path, teamStateSnapshot{Project: "alpha", TargetBranch: "main", LastSprint: 2}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got teamStateSnapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.LastSprint != 2 {
		t.Errorf("LastSprint = %d, want 2 (overwritten, not appended)", got.LastSprint)
	}
}
