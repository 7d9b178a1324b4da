package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a single tool invocation requested by the Reasoner.
type Action struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Decision is the structured output of one Reasoner call. It is immutable
// once produced: the loop records it verbatim in the session history.
// If Finished is true the loop does not execute Actions even when present.
type Decision struct {
	Reasoning string   `json:"reasoning"`
	Actions   []Action `json:"actions,omitempty"`
	Finished  bool     `json:"finished"`
}

// Judgment is the output of a narrow yes/no consultation, used by the
// continuation governor.
type Judgment struct {
	Answer     bool   `json:"answer"`
	Reason     string `json:"reason"`
	Confidence int    `json:"confidence"`
}

// Reasoner is the external decision oracle. Implementations must be
// deterministic in shape: every successful Generate returns a Decision
// with all fields populated (Actions may be empty), and every successful
// Judge returns a Judgment with confidence clamped to 0..100.
type Reasoner interface {
	Generate(ctx context.Context, messages []Message) (*Decision, error)
	Judge(ctx context.Context, messages []Message) (*Judgment, error)
}

// extractJSONObject returns the first balanced top-level JSON object in
// text, honoring strings and escapes. Models frequently wrap JSON in
// prose or code fences.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// ParseDecision extracts a Decision from raw model text.
func ParseDecision(text string) (*Decision, error) {
	obj, ok := extractJSONObject(text)
	if !ok {
		return nil, &MalformedOutputError{ReasonerError: ReasonerError{
			Message: "no JSON object found in model output",
		}}
	}
	var d Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return nil, &MalformedOutputError{ReasonerError: ReasonerError{
			Message: fmt.Sprintf("decision does not match expected shape: %v", err),
			Cause:   err,
		}}
	}
	for i, a := range d.Actions {
		if a.Tool == "" {
			return nil, &MalformedOutputError{ReasonerError: ReasonerError{
				Message: fmt.Sprintf("action %d is missing a tool name", i),
			}}
		}
	}
	return &d, nil
}

// ParseJudgment extracts a Judgment from raw model text.
func ParseJudgment(text string) (*Judgment, error) {
	obj, ok := extractJSONObject(text)
	if !ok {
		return nil, &MalformedOutputError{ReasonerError: ReasonerError{
			Message: "no JSON object found in model output",
		}}
	}
	var j Judgment
	if err := json.Unmarshal([]byte(obj), &j); err != nil {
		return nil, &MalformedOutputError{ReasonerError: ReasonerError{
			Message: fmt.Sprintf("judgment does not match expected shape: %v", err),
			Cause:   err,
		}}
	}
	if j.Confidence < 0 {
		j.Confidence = 0
	}
	if j.Confidence > 100 {
		j.Confidence = 100
	}
	return &j, nil
}
