package agentloop

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/martinemde/agentcore/taskplan"
)

func newPlanRegistry() (*ToolRegistry, *taskplan.Scheduler) {
	reg := NewToolRegistry()
	sched := taskplan.NewScheduler()
	RegisterPlanTools(reg, sched)
	return reg, sched
}

func call(t *testing.T, reg *ToolRegistry, name, args string) string {
	t.Helper()
	tool := reg.Get(name)
	if tool == nil {
		t.Fatalf("tool %q not registered", name)
	}
	out, err := tool.Executor(json.RawMessage(args), nil)
	if err != nil {
		t.Fatalf("%s(%s) error: %v", name, args, err)
	}
	return out
}

func TestPlanToolsEndToEnd(t *testing.T) {
	reg, sched := newPlanRegistry()

	out := call(t, reg, "create_plan", `{"summary": "ship the feature"}`)
	if !strings.Contains(out, "ship the feature") {
		t.Errorf("create_plan output = %q", out)
	}

	call(t, reg, "add_todo", `{"title": "write code", "priority": "high", "estimated_effort": 4}`)
	call(t, reg, "add_todo", `{"title": "write tests", "dependencies": [1]}`)

	out = call(t, reg, "next_todo", `{}`)
	if !strings.Contains(out, "write code") {
		t.Errorf("next_todo = %q, want the unblocked todo", out)
	}

	out = call(t, reg, "update_todo_status", `{"id": 1, "status": "completed"}`)
	if !strings.Contains(out, "completed") {
		t.Errorf("update_todo_status = %q", out)
	}

	out = call(t, reg, "next_todo", `{}`)
	if !strings.Contains(out, "write tests") {
		t.Errorf("next_todo = %q, want the dependent now ready", out)
	}

	out = call(t, reg, "list_todos", `{}`)
	if !strings.Contains(out, "write code") || !strings.Contains(out, "write tests") {
		t.Errorf("list_todos = %q, want both todos", out)
	}
	if !strings.Contains(out, "Progress: 1 of 2") {
		t.Errorf("list_todos = %q, want a progress line", out)
	}

	if sched.Len() != 2 {
		t.Errorf("scheduler Len = %d, want 2", sched.Len())
	}
}

func TestPlanToolsValidationErrors(t *testing.T) {
	reg, _ := newPlanRegistry()

	tool := reg.Get("add_todo")
	if _, err := tool.Executor(json.RawMessage(`{"title": ""}`), nil); err == nil {
		t.Error("add_todo accepted an empty title")
	}

	tool = reg.Get("update_todo_status")
	if _, err := tool.Executor(json.RawMessage(`{"id": 99, "status": "completed"}`), nil); err == nil {
		t.Error("update_todo_status accepted an unknown id")
	}

	tool = reg.Get("create_plan")
	if _, err := tool.Executor(json.RawMessage(`{}`), nil); err == nil {
		t.Error("create_plan accepted a missing summary")
	}
}

func TestNextTodoWithoutPlan(t *testing.T) {
	reg, _ := newPlanRegistry()

	out := call(t, reg, "next_todo", `{}`)
	if !strings.Contains(out, "No plan") {
		t.Errorf("next_todo = %q, want a no-plan message", out)
	}
}
