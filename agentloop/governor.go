package agentloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/agentcore/reasoner"
)

// ContinuationDecision is the governor's verdict on whether the loop
// should keep going without user input.
type ContinuationDecision struct {
	ShouldContinue bool
	Reason         string
	Confidence     int
}

const continuationSystem = `You decide whether an autonomous coding assistant should keep working without user input.

Answer true (continue) when the assistant's last message names a concrete next step it has not done yet, or was clearly cut off mid-work.
Answer false (stop) when the assistant asked the user a direct question, requested a decision or permission, or reported the work as done.
When neither clearly applies, answer false. Stopping to ask is recoverable; acting on an unasked question is not.`

const stuckSystem = `You review the recent actions of an autonomous coding assistant and judge whether it is stuck repeating itself without making progress.

Answer true only when the recent actions show the same operations recurring with no new information or state change between them. Retries with varied parameters or tools are progress, not repetition.`

// Governor decides whether a session continues past each iteration. It
// consults a reasoner with a narrow judgment prompt rather than trusting
// the session's own sense of completion.
type Governor struct {
	oracle reasoner.Reasoner
}

// NewGovernor creates a Governor backed by the given reasoner.
func NewGovernor(oracle reasoner.Reasoner) *Governor {
	return &Governor{oracle: oracle}
}

// ShouldContinue judges whether the loop should run another iteration.
// Any reasoner failure yields a stop verdict; an idle session is
// recoverable, a runaway one is not.
func (g *Governor) ShouldContinue(ctx context.Context, lastReasoning, observation string) ContinuationDecision {
	var sb strings.Builder
	sb.WriteString("Assistant's last reasoning:\n")
	sb.WriteString(lastReasoning)
	if observation != "" {
		sb.WriteString("\n\nResults of its last actions:\n")
		sb.WriteString(observation)
	}
	sb.WriteString("\n\nShould the assistant keep working without user input?")

	judgment, err := g.oracle.Judge(ctx, []reasoner.Message{
		reasoner.SystemMessage(continuationSystem),
		reasoner.UserMessage(sb.String()),
	})
	if err != nil {
		return ContinuationDecision{
			ShouldContinue: false,
			Reason:         fmt.Sprintf("continuation check failed: %v", err),
			Confidence:     0,
		}
	}

	return ContinuationDecision{
		ShouldContinue: judgment.Answer,
		Reason:         judgment.Reason,
		Confidence:     judgment.Confidence,
	}
}

// IsStuck combines the mechanical loop detector's verdict with a soft
// judgment over recent turns. The detector alone is decisive; the soft
// check only ever adds a positive, never clears one.
func (g *Governor) IsStuck(ctx context.Context, detected bool, description string, recent []Turn) (bool, string) {
	if detected {
		return true, description
	}
	if len(recent) == 0 {
		return false, ""
	}

	var sb strings.Builder
	sb.WriteString("Recent activity:\n")
	for _, turn := range recent {
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nIs the assistant stuck repeating itself?")

	judgment, err := g.oracle.Judge(ctx, []reasoner.Message{
		reasoner.SystemMessage(stuckSystem),
		reasoner.UserMessage(sb.String()),
	})
	if err != nil {
		// A failed soft check never flags progress as a loop.
		return false, ""
	}
	if judgment.Answer {
		return true, judgment.Reason
	}
	return false, ""
}
