package agentloop

import (
	"fmt"
	"strings"
	"time"

	"github.com/martinemde/agentcore/reasoner"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	// TurnObservation carries input from the environment: the user goal
	// or the combined results of an iteration's actions.
	TurnObservation TurnKind = "observation"
	// TurnDecision carries one reasoner decision.
	TurnDecision TurnKind = "decision"
)

// Turn is a single entry in the session history. The history alternates
// observation and decision turns and is append-only for the session's
// lifetime; it serves both as reasoner context and as an audit trail.
type Turn struct {
	Kind      TurnKind           `json:"kind"`
	Timestamp time.Time          `json:"timestamp"`
	Content   string             `json:"content"`
	Decision  *reasoner.Decision `json:"decision,omitempty"`
}

// NewObservationTurn creates a Turn wrapping environment input.
func NewObservationTurn(content string) Turn {
	return Turn{
		Kind:      TurnObservation,
		Timestamp: time.Now(),
		Content:   content,
	}
}

// NewDecisionTurn creates a Turn wrapping a reasoner decision.
func NewDecisionTurn(d *reasoner.Decision) Turn {
	return Turn{
		Kind:      TurnDecision,
		Timestamp: time.Now(),
		Content:   d.Reasoning,
		Decision:  d,
	}
}

// ActionResult is the outcome of executing one action. Exactly one of
// Result and Err is set after execution; errors are data at this layer,
// not control flow.
type ActionResult struct {
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Text renders the result the way it appears in an observation.
func (r ActionResult) Text() string {
	if r.Err != "" {
		return fmt.Sprintf("%s: %s", r.Tool, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Tool, r.Result)
}

// BuildObservation concatenates action results into the next
// observation, joined by "; ".
func BuildObservation(results []ActionResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Text()
	}
	return strings.Join(parts, "; ")
}

// formatDecision renders a decision turn for reasoner context, so the
// model sees its own prior actions alongside its reasoning.
func formatDecision(d *reasoner.Decision) string {
	var sb strings.Builder
	sb.WriteString(d.Reasoning)
	for _, a := range d.Actions {
		sb.WriteString(fmt.Sprintf("\n[action] %s(%s)", a.Tool, compactArgs(a.Args)))
	}
	if d.Finished {
		sb.WriteString("\n[finished]")
	}
	return sb.String()
}

func compactArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		s := fmt.Sprintf("%v", v)
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, s))
	}
	return strings.Join(parts, ", ")
}

// ConvertHistory converts the turn history into reasoner messages:
// observations become user messages, decisions assistant messages.
func ConvertHistory(history []Turn) []reasoner.Message {
	messages := make([]reasoner.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Kind {
		case TurnObservation:
			messages = append(messages, reasoner.UserMessage(turn.Content))
		case TurnDecision:
			if turn.Decision != nil {
				messages = append(messages, reasoner.AssistantMessage(formatDecision(turn.Decision)))
			} else {
				messages = append(messages, reasoner.AssistantMessage(turn.Content))
			}
		}
	}
	return messages
}
