package tasklist

import "fmt"

// Assign moves a task from Unassigned to Assigned(initial).
func (t *Task) Assign(initial byte) {
	t.Status = Assigned
	t.AgentLetter = initial
}

// Unassign moves a task from Assigned back to Unassigned. No-op on tasks
// already Unassigned or Completed.
func (t *Task) Unassign() {
	if t.Status == Assigned {
		t.Status = Unassigned
		t.AgentLetter = 0
	}
}

// Complete moves a task to Completed(initial).
func (t *Task) Complete(initial byte) {
	t.Status = Completed
	t.AgentLetter = initial
}

// isTaskNumberCompleted reports whether some task in the list carries a
// "(#n)" token and is Completed. A missing task number is conservatively
// treated as not completed — it cannot be ruled a satisfied blocker.
func (tl *TaskList) isTaskNumberCompleted(n int) bool {
	for _, t := range tl.Tasks {
		if num, ok := t.TaskNumber(); ok && num == n && t.Status == Completed {
			return true
		}
	}
	return false
}

// IsTaskBlocked reports whether the task at index i has any blocker
// number referring to a task that is not Completed. A blocker number with
// no matching task is conservatively treated as unsatisfied — still
// blocking — rather than assumed resolved.
func (tl *TaskList) IsTaskBlocked(i int) bool {
	t := tl.Tasks[i]
	for _, n := range t.BlockingTaskNumbers() {
		if !tl.isTaskNumberCompleted(n) {
			return true
		}
	}
	return false
}

// IsTaskAssignable reports whether the task at index i is Unassigned and
// not blocked.
func (tl *TaskList) IsTaskAssignable(i int) bool {
	return tl.Tasks[i].Status == Unassigned && !tl.IsTaskBlocked(i)
}

// MaxTaskNumber returns the largest "(#N)" value observed across the
// list, or 0 if none carry a task number.
func (tl *TaskList) MaxTaskNumber() int {
	max := 0
	for _, t := range tl.Tasks {
		if n, ok := t.TaskNumber(); ok && n > max {
			max = n
		}
	}
	return max
}

// UnassignAll resets every Assigned task to Unassigned, leaving Completed
// tasks untouched. It mutates the in-memory list only; nothing is written
// to disk until the caller serializes and saves it. Idempotent — calling
// it twice in a row returns 0 the second time. Returns the count changed.
func (tl *TaskList) UnassignAll() int {
	n := 0
	for _, t := range tl.Tasks {
		if t.Status == Assigned {
			t.Unassign()
			n++
		}
	}
	return n
}

// AssignableCount returns the number of tasks for which IsTaskAssignable
// is true.
func (tl *TaskList) AssignableCount() int {
	n := 0
	for i := range tl.Tasks {
		if tl.IsTaskAssignable(i) {
			n++
		}
	}
	return n
}

// TasksForAgent returns the tasks currently Assigned to a given letter, in
// document order.
func (tl *TaskList) TasksForAgent(letter byte) []*Task {
	var out []*Task
	for _, t := range tl.Tasks {
		if t.Status == Assigned && t.AgentLetter == letter {
			out = append(out, t)
		}
	}
	return out
}

// AssignSprint runs the deterministic greedy assignment algorithm:
// walk the task list in document order; for each assignable task, walk
// agentLetters in order and assign to the first agent with fewer than
// tasksPerAgent tasks so far this sprint; if none has capacity, stop
// entirely (a later assignable task is never given to an agent ahead of
// an earlier one it was skipped for). Blocked and already-assigned tasks
// are skipped without consuming capacity. Returns the number of tasks
// assigned.
func (tl *TaskList) AssignSprint(agentLetters []byte, tasksPerAgent int) (int, error) {
	if tasksPerAgent < 1 {
		return 0, fmt.Errorf("tasksPerAgent must be >= 1, got %d", tasksPerAgent)
	}
	counts := make(map[byte]int, len(agentLetters))

	assigned := 0
	for i := range tl.Tasks {
		if !tl.IsTaskAssignable(i) {
			continue
		}
		placed := false
		for _, letter := range agentLetters {
			if counts[letter] < tasksPerAgent {
				tl.Tasks[i].Assign(letter)
				counts[letter]++
				assigned++
				placed = true
				break
			}
		}
		if !placed {
			break
		}
	}
	return assigned, nil
}
