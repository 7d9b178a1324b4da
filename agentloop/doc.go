// Package agentloop implements the execution core of an autonomous
// coding assistant: a bounded decide-act-observe loop that lets an
// external reasoning oracle accomplish a multi-step goal by invoking
// tools, while guarding against unproductive repetition and maintaining
// an explicit, dependency-ordered task plan.
//
// The loop is strictly sequential: one iteration at a time, one action
// at a time, with cooperative cancellation polled at the top of each
// iteration and before each action. Reasoner and tool failures are
// absorbed as data; Run always returns a termination reason and the
// accumulated history, never an error.
//
// # Architecture
//
//   - Session: the loop state machine, driving iterations to one of the
//     terminal outcomes (finished, interrupted, error, timeout,
//     waiting_for_user).
//   - Governor: decides whether the agent should act again without
//     waiting for a human, via a narrow reasoner consultation.
//   - ToolRegistry / ExecutionEnvironment: tool registration and the
//     backend tools run against (local filesystem and shell by default).
//   - EventEmitter: typed event stream for host applications; the core
//     never prints.
//
// Plan state lives in a taskplan.Scheduler and repetition analysis in a
// loopdetect.Detector, one of each per session.
//
// # Quick Start
//
//	oracle, _ := reasoner.NewGollmReasoner("anthropic")
//	env := agentloop.NewLocalEnvironment("/path/to/project")
//	session := agentloop.NewSession(oracle, env, nil)
//	defer session.Close()
//
//	result := session.Run(ctx, "Fix the failing test in pkg/parser")
//	fmt.Println(result.Reason, result.Detail)
package agentloop
