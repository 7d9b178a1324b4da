package agentloop

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/martinemde/agentcore/loopdetect"
	"github.com/martinemde/agentcore/reasoner"
	"github.com/martinemde/agentcore/taskplan"
)

// TerminationReason explains why a session run ended. Every run ends
// with exactly one reason.
type TerminationReason string

const (
	// TerminationNone is the in-flight value; Run never returns it.
	TerminationNone TerminationReason = "none"
	// TerminationFinished means the reasoner declared the goal complete.
	TerminationFinished TerminationReason = "finished"
	// TerminationInterrupted means the host triggered the interrupt.
	TerminationInterrupted TerminationReason = "interrupted"
	// TerminationError means a fatal reasoner failure, a detected loop,
	// or repeated action errors stopped the run.
	TerminationError TerminationReason = "error"
	// TerminationTimeout means the iteration cap was reached.
	TerminationTimeout TerminationReason = "timeout"
	// TerminationWaitingForUser means the governor judged the session
	// should stop and wait for input.
	TerminationWaitingForUser TerminationReason = "waiting_for_user"
)

// RunResult is the final outcome of a session run.
type RunResult struct {
	Reason     TerminationReason
	Detail     string
	History    []Turn
	Iterations int
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	MaxIterations           int               `json:"max_iterations"`
	DetectorCadence         int               `json:"detector_cadence"` // run loop detection every N iterations
	ErrorWindow             int               `json:"error_window"`
	ErrorThreshold          int               `json:"error_threshold"`
	DefaultCommandTimeoutMs int               `json:"default_command_timeout_ms"`
	MaxCommandTimeoutMs     int               `json:"max_command_timeout_ms"`
	SystemPrompt            string            `json:"system_prompt,omitempty"` // overrides the built-in prompt
	Detector                loopdetect.Config `json:"detector"`
	ToolOutputLimits        map[string]int    `json:"tool_output_limits,omitempty"`
	ToolLineLimits          map[string]int    `json:"tool_line_limits,omitempty"`
	MaxSubSessionDepth      int               `json:"max_sub_session_depth"`
	subSessionDepth         int               // internal: current nesting depth
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxIterations:           40,
		DetectorCadence:         5,
		ErrorWindow:             3,
		ErrorThreshold:          2,
		DefaultCommandTimeoutMs: 10000,  // 10 seconds
		MaxCommandTimeoutMs:     600000, // 10 minutes
		Detector:                loopdetect.DefaultConfig(),
		MaxSubSessionDepth:      1,
	}
}

// Session is the central orchestrator for the execution loop. It owns
// the history, the task plan, the loop detector, and the tool registry
// for one goal-directed run.
type Session struct {
	id        string
	config    SessionConfig
	oracle    reasoner.Reasoner
	registry  *ToolRegistry
	env       ExecutionEnvironment
	planner   *taskplan.Scheduler
	detector  *loopdetect.Detector
	governor  *Governor
	emitter   *EventEmitter
	interrupt *Interrupt
	history   []Turn
	subs      *SubSessionManager
	closed    bool
	mu        sync.Mutex
}

// NewSession creates a session with the given reasoner, execution
// environment, and optional configuration.
func NewSession(oracle reasoner.Reasoner, env ExecutionEnvironment, config *SessionConfig) *Session {
	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}
	def := DefaultSessionConfig()
	if cfg.DetectorCadence <= 0 {
		cfg.DetectorCadence = def.DetectorCadence
	}
	if cfg.ErrorWindow <= 0 {
		cfg.ErrorWindow = def.ErrorWindow
	}
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = def.ErrorThreshold
	}
	if cfg.DefaultCommandTimeoutMs <= 0 {
		cfg.DefaultCommandTimeoutMs = def.DefaultCommandTimeoutMs
	}
	if cfg.MaxCommandTimeoutMs <= 0 {
		cfg.MaxCommandTimeoutMs = def.MaxCommandTimeoutMs
	}

	sessionID := uuid.New().String()
	s := &Session{
		id:        sessionID,
		config:    cfg,
		oracle:    oracle,
		registry:  NewToolRegistry(),
		env:       env,
		planner:   taskplan.NewScheduler(),
		detector:  loopdetect.NewDetector(cfg.Detector),
		governor:  NewGovernor(oracle),
		emitter:   NewEventEmitter(sessionID, 256),
		interrupt: NewInterrupt(),
		history:   make([]Turn, 0),
	}
	s.subs = NewSubSessionManager(cfg.MaxSubSessionDepth, cfg.subSessionDepth)

	RegisterCoreTools(s.registry, cfg.DefaultCommandTimeoutMs, cfg.MaxCommandTimeoutMs)
	RegisterPlanTools(s.registry, s.planner)
	if s.subs.CanSpawn() {
		RegisterSubSessionTools(s.registry, s.subs, oracle, env)
	}

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Registry returns the session's tool registry, for hosts that add
// their own tools before Run.
func (s *Session) Registry() *ToolRegistry { return s.registry }

// Planner returns the session's task scheduler.
func (s *Session) Planner() *taskplan.Scheduler { return s.planner }

// Events returns the event channel for the host application.
func (s *Session) Events() <-chan SessionEvent { return s.emitter.Events() }

// Interrupt signals the session to stop at the next suspension point.
func (s *Session) Interrupt() { s.interrupt.Trigger() }

// History returns a copy of the conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Turn, len(s.history))
	copy(h, s.history)
	return h
}

// Close releases the session's resources. A closed session cannot run.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.subs.CancelAll()
	s.emitter.Emit(EventSessionEnd, nil)
	s.emitter.Close()
}

// Run executes the loop until a termination condition fires. The goal
// is appended to the history as the first observation; prior turns (for
// resumed sessions) may be supplied ahead of it. Run always returns a
// result with a definite reason, never an error.
func (s *Session) Run(ctx context.Context, goal string, prior ...Turn) RunResult {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return RunResult{Reason: TerminationError, Detail: "session is closed"}
	}
	s.interrupt.Reset()
	s.history = append(s.history, prior...)
	s.history = append(s.history, NewObservationTurn(goal))
	s.mu.Unlock()

	s.emitter.Emit(EventSessionStart, map[string]interface{}{
		"goal": goal,
	})

	iterations := 0
	reason := TerminationNone
	detail := ""
	// Rolling window of per-iteration error flags for the breaker.
	var errorWindow []bool

	for reason == TerminationNone {
		if s.interrupt.Interrupted() {
			reason = TerminationInterrupted
			detail = "interrupted before iteration"
			break
		}
		if ctx.Err() != nil {
			reason = TerminationInterrupted
			detail = "context cancelled"
			break
		}

		iterations++
		timedOut := s.config.MaxIterations > 0 && iterations > s.config.MaxIterations
		s.emitter.Emit(EventIterationStart, map[string]interface{}{
			"iteration": iterations,
		})

		decision, err := s.oracle.Generate(ctx, s.promptMessages())
		if err != nil {
			// Record the failure as a turn so resumed sessions see it.
			synthetic := &reasoner.Decision{
				Reasoning: "error occurred",
				Actions:   []reasoner.Action{{Tool: "error"}},
				Finished:  true,
			}
			s.appendTurn(NewDecisionTurn(synthetic))
			s.emitter.Emit(EventError, map[string]interface{}{
				"error": err.Error(),
			})
			reason = TerminationError
			detail = fmt.Sprintf("reasoner failure: %v", err)
			break
		}

		s.appendTurn(NewDecisionTurn(decision))
		s.emitter.Emit(EventDecision, map[string]interface{}{
			"reasoning": decision.Reasoning,
			"actions":   len(decision.Actions),
			"finished":  decision.Finished,
		})

		if decision.Finished {
			reason = TerminationFinished
			detail = decision.Reasoning
			break
		}

		results, interrupted, hadError := s.executeActions(ctx, decision.Actions)
		observation := BuildObservation(results)
		if observation == "" {
			observation = "No actions were taken."
		}
		s.appendTurn(NewObservationTurn(observation))
		s.emitter.Emit(EventObservation, map[string]interface{}{
			"content": observation,
		})

		if interrupted {
			reason = TerminationInterrupted
			detail = "interrupted during action execution"
			break
		}

		errorWindow = append(errorWindow, hadError)
		if len(errorWindow) > s.config.ErrorWindow {
			errorWindow = errorWindow[len(errorWindow)-s.config.ErrorWindow:]
		}

		// Loop detection runs on a cadence; a positive verdict ends the
		// run before the continuation check can override it.
		looping := false
		if iterations%s.config.DetectorCadence == 0 {
			result := s.detector.Check()
			if result.IsLoop {
				s.emitter.Emit(EventLoopDetection, map[string]interface{}{
					"description": result.Description,
					"confidence":  result.Confidence,
				})
				looping = true
				reason = TerminationError
				detail = fmt.Sprintf("loop detected: %s %s", result.Description, result.Suggestion)
			}
		}

		if !looping {
			verdict := s.governor.ShouldContinue(ctx, decision.Reasoning, observation)
			s.emitter.Emit(EventContinuationCheck, map[string]interface{}{
				"continue":   verdict.ShouldContinue,
				"reason":     verdict.Reason,
				"confidence": verdict.Confidence,
			})
			if !verdict.ShouldContinue {
				// The reason travels on the continuation_check event, not
				// the result detail.
				reason = TerminationWaitingForUser
			}
		}

		// The breaker outranks the governor but not the detector: a
		// session waiting on the user while its actions keep failing
		// is still broken.
		if !looping && countErrors(errorWindow) >= s.config.ErrorThreshold {
			reason = TerminationError
			detail = fmt.Sprintf("%d of the last %d iterations had failing actions", countErrors(errorWindow), len(errorWindow))
		}

		if reason == TerminationNone && timedOut {
			reason = TerminationTimeout
			detail = fmt.Sprintf("reached iteration cap (%d)", s.config.MaxIterations)
		}
	}

	s.emitter.Emit(EventTermination, map[string]interface{}{
		"reason":     string(reason),
		"detail":     detail,
		"iterations": iterations,
	})

	return RunResult{
		Reason:     reason,
		Detail:     detail,
		History:    s.History(),
		Iterations: iterations,
	}
}

// executeActions runs the decision's actions in order. It returns the
// results of the actions that ran, whether an interrupt abandoned the
// remainder, and whether any action failed.
func (s *Session) executeActions(ctx context.Context, actions []reasoner.Action) ([]ActionResult, bool, bool) {
	var results []ActionResult
	hadError := false

	for _, action := range actions {
		if s.interrupt.Interrupted() || ctx.Err() != nil {
			return results, true, hadError
		}

		result := s.executeAction(action)
		if result.Err != "" {
			hadError = true
		}
		results = append(results, result)
		s.detector.Record(action.Tool, action.Args)
	}

	return results, false, hadError
}

// executeAction handles the full pipeline for one action:
// lookup, execute, truncate, emit.
func (s *Session) executeAction(action reasoner.Action) ActionResult {
	s.emitter.Emit(EventActionStart, map[string]interface{}{
		"tool": action.Tool,
	})

	registered := s.registry.Get(action.Tool)
	if registered == nil {
		err := fmt.Errorf("unknown tool: %s", action.Tool)
		s.emitter.Emit(EventActionEnd, map[string]interface{}{
			"tool":  action.Tool,
			"error": err.Error(),
		})
		return ActionResult{Tool: action.Tool, Err: err.Error()}
	}

	raw, err := marshalArgs(action.Args)
	if err != nil {
		s.emitter.Emit(EventActionEnd, map[string]interface{}{
			"tool":  action.Tool,
			"error": err.Error(),
		})
		return ActionResult{Tool: action.Tool, Err: err.Error()}
	}

	output, err := registered.Executor(raw, s.env)
	if err != nil {
		s.emitter.Emit(EventActionEnd, map[string]interface{}{
			"tool":  action.Tool,
			"error": err.Error(),
		})
		return ActionResult{Tool: action.Tool, Err: err.Error()}
	}

	// The event stream carries the full output; the history gets the
	// truncated version.
	s.emitter.Emit(EventActionEnd, map[string]interface{}{
		"tool":   action.Tool,
		"output": output,
	})

	truncated := TruncateToolOutput(output, action.Tool, s.config.ToolOutputLimits, s.config.ToolLineLimits)
	return ActionResult{Tool: action.Tool, Result: truncated}
}

// promptMessages builds the full transcript for the reasoner: system
// prompt first, then the converted history.
func (s *Session) promptMessages() []reasoner.Message {
	system := s.config.SystemPrompt
	if system == "" {
		system = s.buildSystemPrompt()
	}
	return append([]reasoner.Message{reasoner.SystemMessage(system)}, ConvertHistory(s.History())...)
}

func (s *Session) buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an autonomous coding assistant. Work toward the stated goal by choosing tools to run each iteration.\n\n")
	sb.WriteString("Break nontrivial goals into a plan with create_plan and add_todo, then work the todos in order. ")
	sb.WriteString("Mark todos completed as you finish them. Set finished=true only when the goal is done or you genuinely need user input.\n\n")

	sb.WriteString("Environment: ")
	sb.WriteString(s.env.Platform())
	sb.WriteString(", working directory ")
	sb.WriteString(s.env.WorkingDirectory())
	sb.WriteString("\n\nAvailable tools:\n")
	for _, def := range s.registry.Definitions() {
		fmt.Fprintf(&sb, "- %s: %s\n", def.Name, def.Description)
	}

	if s.planner.Len() > 0 {
		progress := s.planner.GetProgress()
		fmt.Fprintf(&sb, "\nPlan progress: %d of %d todos completed (%d%%)\n",
			progress.Counts[taskplan.StatusCompleted], progress.Total, progress.Percent)
	}

	return sb.String()
}

func (s *Session) appendTurn(turn Turn) {
	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()
}

func countErrors(window []bool) int {
	n := 0
	for _, e := range window {
		if e {
			n++
		}
	}
	return n
}
