package planner

import (
	"testing"

	"github.com/swarm-hug/swarm-hug/internal/tasklist"
)

func TestRunRejectsEmptyAgentList(t *testing.T) {
	tl, err := tasklist.Parse("- [ ] do a thing\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Run(tl, nil, 1); err == nil {
		t.Fatal("expected an error for an empty agent list")
	}
}

func TestRunDistributesAssignableTasks(t *testing.T) {
	tl, err := tasklist.Parse("- [ ] one\n- [ ] two\n- [ ] three\n")
	if err != nil {
		t.Fatal(err)
	}

	plan, err := Run(tl, []byte{'A', 'B'}, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if plan.Assigned != 2 {
		t.Errorf("Assigned = %d, want 2", plan.Assigned)
	}
	if plan.TasksPerAgent != 1 {
		t.Errorf("TasksPerAgent = %d, want 1", plan.TasksPerAgent)
	}
}

func TestRunIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	tl, err := tasklist.Parse("- [ ] one\n- [ ] two\n- [ ] three\n- [ ] four\n")
	if err != nil {
		t.Fatal(err)
	}

	plan1, err := Run(tl, []byte{'A', 'B'}, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tl2, err := tasklist.Parse(tl.Serialize())
	if err != nil {
		t.Fatal(err)
	}
	plan2, err := Run(tl2, []byte{'A', 'B'}, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if plan1.Assigned != plan2.Assigned {
		t.Errorf("Assigned differs across identical runs: %d vs %d", plan1.Assigned, plan2.Assigned)
	}
}

func TestMaxAssignable(t *testing.T) {
	if got := MaxAssignable([]byte{'A', 'B', 'C'}, 2); got != 6 {
		t.Errorf("MaxAssignable = %d, want 6", got)
	}
	if got := MaxAssignable(nil, 5); got != 0 {
		t.Errorf("MaxAssignable(nil, 5) = %d, want 0", got)
	}
}
