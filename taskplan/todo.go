// Package taskplan maintains the agent's explicit work breakdown: a plan
// of todo items with dependency edges, statuses, and a scheduler that
// picks the next executable item.
//
// One Scheduler belongs to one session. There is no shared or global
// state; concurrent sessions each own an independent Scheduler.
package taskplan

import "time"

// Status is the lifecycle state of a todo item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusSkipped    Status = "skipped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked, StatusSkipped:
		return true
	}
	return false
}

// listRank orders statuses for List: active work first, finished last.
func (s Status) listRank() int {
	switch s {
	case StatusInProgress:
		return 0
	case StatusPending:
		return 1
	case StatusBlocked:
		return 2
	case StatusCompleted:
		return 3
	case StatusSkipped:
		return 4
	default:
		return 5
	}
}

// Priority weights scheduling.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// baseScore is the priority contribution to the scheduling score.
func (p Priority) baseScore() int {
	switch p {
	case PriorityHigh:
		return 10
	case PriorityMedium:
		return 5
	default:
		return 0
	}
}

// Todo is one unit of planned work. IDs are unique and monotonically
// assigned by the owning Scheduler.
type Todo struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	EstimatedEffort int        `json:"estimated_effort"` // 1..10
	Dependencies    []int64    `json:"dependencies,omitempty"`
	Context         string     `json:"context,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// DependsOn reports whether the todo lists id as a dependency.
func (t *Todo) DependsOn(id int64) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// clone returns a copy safe to hand to callers.
func (t *Todo) clone() *Todo {
	c := *t
	c.Dependencies = append([]int64(nil), t.Dependencies...)
	return &c
}
