package taskplan

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Plan is an ordered collection of todos under one summary.
type Plan struct {
	ID                 string    `json:"id"`
	Summary            string    `json:"summary"`
	TotalEstimatedTime int       `json:"total_estimated_time"` // sum of member efforts
	CreatedAt          time.Time `json:"created_at"`
}

// NextState classifies the scheduler's answer to "what should run next".
type NextState string

const (
	// NextReady means an executable todo was selected.
	NextReady NextState = "ready"
	// NextWorking means nothing new is executable but in-progress work
	// exists, so the caller should keep going rather than stop.
	NextWorking NextState = "working"
	// NextPlanComplete means every todo has finished.
	NextPlanComplete NextState = "plan_complete"
	// NextBlocked means no todo is actionable; dependencies are
	// unsatisfied or everything is blocked.
	NextBlocked NextState = "blocked"
	// NextNoPlan means no plan has been created yet.
	NextNoPlan NextState = "no_plan"
)

// NextResult is the full answer from Next.
type NextResult struct {
	State      NextState
	Todo       *Todo   // set when State == NextReady
	InProgress []int64 // set when State == NextWorking
}

// Progress summarizes plan completion.
type Progress struct {
	Counts  map[Status]int `json:"counts"`
	Total   int            `json:"total"`
	Percent int            `json:"percent"` // rounded completion percentage
}

// Scheduler owns the todo arena for one session. It is not safe for
// concurrent use; the execution loop accesses it strictly sequentially.
type Scheduler struct {
	plan   *Plan
	todos  map[int64]*Todo
	order  []int64 // insertion order
	nextID int64
	now    func() time.Time
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		todos: make(map[int64]*Todo),
		now:   time.Now,
	}
}

// CreatePlan starts a fresh plan, replacing any existing plan and its
// todos. A session has at most one live plan.
func (s *Scheduler) CreatePlan(summary string) *Plan {
	s.plan = &Plan{
		ID:        uuid.New().String(),
		Summary:   summary,
		CreatedAt: s.now(),
	}
	s.todos = make(map[int64]*Todo)
	s.order = s.order[:0]
	s.nextID = 0
	return &Plan{
		ID:        s.plan.ID,
		Summary:   s.plan.Summary,
		CreatedAt: s.plan.CreatedAt,
	}
}

// Plan returns a copy of the active plan, or nil if none exists.
func (s *Scheduler) Plan() *Plan {
	if s.plan == nil {
		return nil
	}
	p := *s.plan
	return &p
}

// AddTodo appends a todo to the plan. Dependencies must reference
// existing todos; an edge that would close a cycle is rejected rather
// than silently deadlocking the plan.
func (s *Scheduler) AddTodo(title, description string, priority Priority, effort int, deps []int64, contextNote string) (int64, error) {
	if s.plan == nil {
		s.CreatePlan("")
	}
	if title == "" {
		return 0, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !priority.Valid() {
		return 0, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", priority)}
	}
	if effort < 1 || effort > 10 {
		return 0, &ValidationError{Field: "estimated_effort", Reason: fmt.Sprintf("must be in 1..10, got %d", effort)}
	}
	seen := make(map[int64]bool, len(deps))
	for _, dep := range deps {
		if _, ok := s.todos[dep]; !ok {
			return 0, &ValidationError{Field: "dependencies", Reason: fmt.Sprintf("unknown todo id %d", dep)}
		}
		if seen[dep] {
			return 0, &ValidationError{Field: "dependencies", Reason: fmt.Sprintf("duplicate todo id %d", dep)}
		}
		seen[dep] = true
	}

	s.nextID++
	todo := &Todo{
		ID:              s.nextID,
		Title:           title,
		Description:     description,
		Status:          StatusPending,
		Priority:        priority,
		EstimatedEffort: effort,
		Dependencies:    append([]int64(nil), deps...),
		Context:         contextNote,
		CreatedAt:       s.now(),
	}
	s.todos[todo.ID] = todo
	s.order = append(s.order, todo.ID)

	// Deps can only point at already-inserted todos, so a new edge can
	// never close a cycle. The check guards future mutation paths.
	if s.hasCycle() {
		delete(s.todos, todo.ID)
		s.order = s.order[:len(s.order)-1]
		s.nextID--
		return 0, &ValidationError{Field: "dependencies", Reason: "dependency cycle detected"}
	}

	s.plan.TotalEstimatedTime += effort
	return todo.ID, nil
}

// hasCycle runs Kahn's algorithm over the arena.
func (s *Scheduler) hasCycle() bool {
	inDegree := make(map[int64]int, len(s.todos))
	dependents := make(map[int64][]int64, len(s.todos))
	for id, todo := range s.todos {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, dep := range todo.Dependencies {
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []int64
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return visited != len(s.todos)
}

// UpdateStatus transitions a todo. StartedAt is set on the first
// transition into in_progress and CompletedAt on the first transition
// into completed; neither timestamp is ever overwritten.
func (s *Scheduler) UpdateStatus(id int64, status Status) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	todo, ok := s.todos[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	todo.Status = status
	now := s.now()
	if status == StatusInProgress && todo.StartedAt == nil {
		todo.StartedAt = &now
	}
	if status == StatusCompleted && todo.CompletedAt == nil {
		todo.CompletedAt = &now
	}
	return nil
}

// Get returns a copy of the todo with the given id.
func (s *Scheduler) Get(id int64) (*Todo, error) {
	todo, ok := s.todos[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return todo.clone(), nil
}

// executable reports whether the todo is pending with every dependency
// completed.
func (s *Scheduler) executable(todo *Todo) bool {
	if todo.Status != StatusPending {
		return false
	}
	for _, dep := range todo.Dependencies {
		d, ok := s.todos[dep]
		if !ok || d.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// score computes the scheduling score: priority base plus twice the
// number of pending todos this one unblocks. Rewarding unblockers
// approximates a critical-path heuristic without a full topological
// cost analysis.
func (s *Scheduler) score(todo *Todo) int {
	score := todo.Priority.baseScore()
	for _, id := range s.order {
		other := s.todos[id]
		if other.Status == StatusPending && other.DependsOn(todo.ID) {
			score += 2
		}
	}
	return score
}

// Next selects the highest-scoring executable todo. Ties break on
// earliest creation. When nothing is executable the state distinguishes
// "work continues", "plan complete", and "nothing actionable".
func (s *Scheduler) Next() NextResult {
	if s.plan == nil || len(s.order) == 0 {
		return NextResult{State: NextNoPlan}
	}

	var best *Todo
	bestScore := math.MinInt
	for _, id := range s.order {
		todo := s.todos[id]
		if !s.executable(todo) {
			continue
		}
		sc := s.score(todo)
		if sc > bestScore || (sc == bestScore && best != nil && todo.CreatedAt.Before(best.CreatedAt)) {
			best = todo
			bestScore = sc
		}
	}
	if best != nil {
		return NextResult{State: NextReady, Todo: best.clone()}
	}

	var inProgress []int64
	finished := 0
	completed := 0
	for _, id := range s.order {
		switch s.todos[id].Status {
		case StatusInProgress:
			inProgress = append(inProgress, id)
		case StatusCompleted:
			finished++
			completed++
		case StatusSkipped:
			finished++
		}
	}
	if len(inProgress) > 0 {
		return NextResult{State: NextWorking, InProgress: inProgress}
	}
	if finished == len(s.order) && completed > 0 {
		return NextResult{State: NextPlanComplete}
	}
	return NextResult{State: NextBlocked}
}

// GetProgress returns counts by status and the rounded completion
// percentage.
func (s *Scheduler) GetProgress() Progress {
	p := Progress{Counts: make(map[Status]int)}
	for _, id := range s.order {
		p.Counts[s.todos[id].Status]++
		p.Total++
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Counts[StatusCompleted]) / float64(p.Total) * 100))
	}
	return p
}

// List returns all todos sorted by status (in_progress, pending,
// blocked, completed, skipped) then creation time.
func (s *Scheduler) List() []*Todo {
	out := make([]*Todo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.todos[id].clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Status.listRank(), out[j].Status.listRank()
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of todos in the plan.
func (s *Scheduler) Len() int { return len(s.order) }
