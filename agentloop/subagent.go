package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/martinemde/agentcore/reasoner"
)

// SubSessionStatus represents the lifecycle state of a sub-session.
type SubSessionStatus string

const (
	SubSessionRunning   SubSessionStatus = "running"
	SubSessionCompleted SubSessionStatus = "completed"
	SubSessionFailed    SubSessionStatus = "failed"
	SubSessionCancelled SubSessionStatus = "cancelled"
)

// SubSessionHandle tracks a child session spawned for a scoped task.
type SubSessionHandle struct {
	ID      string
	Session *Session
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	status SubSessionStatus
	result *RunResult
}

// Status returns the current lifecycle state.
func (h *SubSessionHandle) Status() SubSessionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Result returns the run result, or nil while the sub-session runs.
func (h *SubSessionHandle) Result() *RunResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Wait blocks until the sub-session finishes or ctx expires.
func (h *SubSessionHandle) Wait(ctx context.Context) (*RunResult, error) {
	select {
	case <-h.done:
		return h.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubSessionManager manages child sessions for a parent. Each child
// gets its own plan, detector, and history; only the execution
// environment is shared.
type SubSessionManager struct {
	sessions map[string]*SubSessionHandle
	mu       sync.RWMutex
	maxDepth int
	depth    int
}

// NewSubSessionManager creates a manager at the given nesting depth.
func NewSubSessionManager(maxDepth, currentDepth int) *SubSessionManager {
	return &SubSessionManager{
		sessions: make(map[string]*SubSessionHandle),
		maxDepth: maxDepth,
		depth:    currentDepth,
	}
}

// CanSpawn returns true if nesting depth allows spawning.
func (m *SubSessionManager) CanSpawn() bool {
	return m.depth < m.maxDepth
}

// Spawn creates a child session and runs it in the background.
func (m *SubSessionManager) Spawn(ctx context.Context, oracle reasoner.Reasoner, env ExecutionEnvironment, task string, config *SessionConfig) (*SubSessionHandle, error) {
	if !m.CanSpawn() {
		return nil, fmt.Errorf("maximum sub-session depth (%d) reached", m.maxDepth)
	}

	subCtx, cancel := context.WithCancel(ctx)

	subConfig := DefaultSessionConfig()
	if config != nil {
		subConfig = *config
	}
	subConfig.MaxSubSessionDepth = m.maxDepth
	subConfig.subSessionDepth = m.depth + 1

	child := NewSession(oracle, env, &subConfig)

	handle := &SubSessionHandle{
		ID:      uuid.New().String(),
		Session: child,
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  SubSessionRunning,
	}

	m.mu.Lock()
	m.sessions[handle.ID] = handle
	m.mu.Unlock()

	go func() {
		defer close(handle.done)
		defer child.Close()

		result := child.Run(subCtx, task)

		handle.mu.Lock()
		defer handle.mu.Unlock()
		handle.result = &result
		switch result.Reason {
		case TerminationFinished:
			handle.status = SubSessionCompleted
		case TerminationInterrupted:
			handle.status = SubSessionCancelled
		default:
			handle.status = SubSessionFailed
		}
	}()

	return handle, nil
}

// Get returns a sub-session handle by ID.
func (m *SubSessionManager) Get(id string) *SubSessionHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Cancel interrupts a sub-session.
func (m *SubSessionManager) Cancel(id string) error {
	handle := m.Get(id)
	if handle == nil {
		return fmt.Errorf("sub-session %s not found", id)
	}
	handle.Session.Interrupt()
	handle.cancel()
	return nil
}

// CancelAll interrupts every active sub-session.
func (m *SubSessionManager) CancelAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, handle := range m.sessions {
		handle.Session.Interrupt()
		handle.cancel()
	}
}

// RegisterSubSessionTools registers spawn_task, wait_task, and
// cancel_task on the registry.
func RegisterSubSessionTools(reg *ToolRegistry, manager *SubSessionManager, oracle reasoner.Reasoner, env ExecutionEnvironment) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "spawn_task",
			Description: "Spawn a child session to handle a scoped task autonomously. Returns a task ID to wait on.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task": map[string]interface{}{
						"type":        "string",
						"description": "Natural language description of the scoped task.",
					},
					"max_iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Iteration limit for the child session. Default: 40.",
					},
				},
				"required": []string{"task"},
			},
		},
		Executor: func(arguments json.RawMessage, execEnv ExecutionEnvironment) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			task, ok := GetStringArg(args, "task")
			if !ok || task == "" {
				return "", fmt.Errorf("task is required")
			}

			config := DefaultSessionConfig()
			if maxIter, ok := GetIntArg(args, "max_iterations"); ok && maxIter > 0 {
				config.MaxIterations = maxIter
			}

			handle, err := manager.Spawn(context.Background(), oracle, execEnv, task, &config)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Task spawned with ID: %s", handle.ID), nil
		},
	})

	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "wait_task",
			Description: "Wait for a spawned task to complete and return its outcome.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_id": map[string]interface{}{
						"type":        "string",
						"description": "The task ID returned by spawn_task.",
					},
				},
				"required": []string{"task_id"},
			},
		},
		Executor: func(arguments json.RawMessage, execEnv ExecutionEnvironment) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			taskID, _ := GetStringArg(args, "task_id")

			handle := manager.Get(taskID)
			if handle == nil {
				return "", fmt.Errorf("sub-session %s not found", taskID)
			}

			result, err := handle.Wait(context.Background())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Status: %s\nReason: %s\nIterations: %d\nDetail: %s",
				handle.Status(), result.Reason, result.Iterations, result.Detail), nil
		},
	})

	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "cancel_task",
			Description: "Cancel a spawned task.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_id": map[string]interface{}{
						"type":        "string",
						"description": "The task ID to cancel.",
					},
				},
				"required": []string{"task_id"},
			},
		},
		Executor: func(arguments json.RawMessage, execEnv ExecutionEnvironment) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			taskID, _ := GetStringArg(args, "task_id")

			if err := manager.Cancel(taskID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Task %s cancelled", taskID), nil
		},
	})
}
