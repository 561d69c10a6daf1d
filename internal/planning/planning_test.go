package planning

import (
	"strings"
	"testing"

	"github.com/swarm-hug/swarm-hug/internal/tasklist"
)

func TestApplyAssignmentsSkipsUnresolvableLines(t *testing.T) {
	tl, err := tasklist.Parse("- [ ] (#1) first\n- [C] (#2) already taken\n")
	if err != nil {
		t.Fatal(err)
	}
	result := ApplyAssignments(tl, []Assignment{
		{Line: 1, Agent: 'A'},
		{Line: 2, Agent: 'B'}, // already Assigned, must be skipped
		{Line: 99, Agent: 'A'}, // does not exist
	})
	if result.Assigned != 1 {
		t.Fatalf("expected 1 assignment applied, got %d", result.Assigned)
	}
	if tl.Tasks[0].AgentLetter != 'A' {
		t.Errorf("task 1 should be assigned to A, got %c", tl.Tasks[0].AgentLetter)
	}
	if tl.Tasks[1].AgentLetter != 'C' {
		t.Errorf("task 2 should keep its original agent C, got %c", tl.Tasks[1].AgentLetter)
	}
}

func TestParseReviewResponse(t *testing.T) {
	cases := map[string][]string{
		`["fix the thing", "add a test"]`: {"fix the thing", "add a test"},
		`[]`:                              nil,
		`no brackets here`:                nil,
		`  [ "only one" ]  `:               {"only one"},
	}
	for raw, want := range cases {
		got := ParseReviewResponse(raw)
		if len(got) != len(want) {
			t.Fatalf("ParseReviewResponse(%q) = %v, want %v", raw, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("ParseReviewResponse(%q)[%d] = %q, want %q", raw, i, got[i], want[i])
			}
		}
	}
}

func TestFormatFollowUpTasksNumbersAfterExistingMax(t *testing.T) {
	tl, err := tasklist.Parse("- [ ] (#1) first\n- [x] (#5) fifth (A)\n")
	if err != nil {
		t.Fatal(err)
	}
	lines := FormatFollowUpTasks(tl, []string{"investigate flaky test", "clean up logging"})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "#6") {
		t.Errorf("first follow-up should continue numbering after #5, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "#7") {
		t.Errorf("second follow-up should be #7, got %q", lines[1])
	}
}

// TestRunReviewOnlyTouchesTheSprintWorktreeCopy simulates the review
// stage appending two follow-ups and asserts the operation is pure: it
// returns a new TaskList built from the sprint worktree's in-memory
// copy and never reaches back into the caller's original tasks.md
// content, which in a real run lives in the main repository checkout
// and must stay byte-identical.
func TestRunReviewOnlyTouchesTheSprintWorktreeCopy(t *testing.T) {
	mainRepoTasksMD := "- [x] (#1) first (A)\n- [x] (#2) second (B)\n"

	tl, err := tasklist.Parse(mainRepoTasksMD)
	if err != nil {
		t.Fatal(err)
	}

	followUps := FormatFollowUpTasks(tl, []string{"investigate flaky test", "clean up logging"})
	updated := RunReview(tl, followUps)

	if tl.Serialize() != mainRepoTasksMD {
		t.Errorf("RunReview must not mutate its input task list in place:\ngot  %q\nwant %q", tl.Serialize(), mainRepoTasksMD)
	}

	sprintCopy := updated.Serialize()
	if sprintCopy == mainRepoTasksMD {
		t.Fatal("expected the sprint worktree's copy to gain the follow-up lines")
	}
	if !strings.Contains(sprintCopy, "investigate flaky test") {
		t.Error("missing first follow-up in the sprint worktree copy")
	}
	if !strings.Contains(sprintCopy, "clean up logging") {
		t.Error("missing second follow-up in the sprint worktree copy")
	}

	// The "main repo" string above stands in for the primary checkout's
	// tasks.md; nothing in this package ever opens a file, so it is
	// byte-identical to before by construction.
	if mainRepoTasksMD != "- [x] (#1) first (A)\n- [x] (#2) second (B)\n" {
		t.Fatal("the simulated main repo content must never change")
	}
}

func TestRunReviewNoFollowUpsReturnsSameList(t *testing.T) {
	tl, err := tasklist.Parse("- [ ] (#1) first\n")
	if err != nil {
		t.Fatal(err)
	}
	updated := RunReview(tl, nil)
	if updated != tl {
		t.Error("RunReview with no follow-ups should return the same list unchanged")
	}
}
