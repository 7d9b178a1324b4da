// Package reasoner defines the decision oracle behind the agent loop.
//
// The loop treats the language model as an external collaborator: given
// the conversation so far, it must return a structured Decision (free-form
// reasoning, zero or more tool actions, and a finished flag). This package
// holds that contract plus a concrete gollm-backed implementation.
//
// The Reasoner interface is deliberately narrow so the loop can be tested
// against a scripted stub. GollmReasoner is the production implementation:
// it builds a single prompt from the message transcript, asks for strict
// JSON output, and parses the first JSON object out of the model text.
//
// Failures are classified into a small error hierarchy; IsRetryable
// reports whether a call is safe to repeat, and Retry applies exponential
// backoff with jitter for the retryable class.
package reasoner
