package agentloop

import (
	"strings"
	"testing"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	out := TruncateOutput("short", 100, TruncateHeadTail)
	if out != "short" {
		t.Errorf("got %q, want unchanged output", out)
	}
}

func TestTruncateOutputHeadTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	out := TruncateOutput(input, 200, TruncateHeadTail)

	if !strings.HasPrefix(out, strings.Repeat("a", 100)) {
		t.Error("head of output not preserved")
	}
	if !strings.HasSuffix(out, strings.Repeat("z", 100)) {
		t.Error("tail of output not preserved")
	}
	if !strings.Contains(out, "800 characters were removed") {
		t.Errorf("output = %q, want the removed count", out)
	}
}

func TestTruncateOutputTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 100)
	out := TruncateOutput(input, 100, TruncateTail)

	if !strings.HasSuffix(out, strings.Repeat("z", 100)) {
		t.Error("tail of output not preserved")
	}
	if strings.Contains(out[len(out)-100:], "a") {
		t.Error("head of output survived tail truncation")
	}
	if !strings.Contains(out, "First 500 characters were removed") {
		t.Errorf("output = %q, want the removed count", out)
	}
}

func TestTruncateLines(t *testing.T) {
	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, "line")
	}
	out := TruncateLines(strings.Join(lines, "\n"), 10)

	if !strings.Contains(out, "[... 90 lines omitted ...]") {
		t.Errorf("output = %q, want an omission marker", out)
	}
	if got := len(strings.Split(out, "\n")); got != 11 {
		t.Errorf("output has %d lines, want 11 (10 kept + marker)", got)
	}
}

func TestTruncateToolOutputUsesPerToolLimits(t *testing.T) {
	input := strings.Repeat("x", 2000)
	out := TruncateToolOutput(input, "write_file", nil, nil)

	// write_file is capped at 1000 characters by default.
	if len(out) >= 2000 {
		t.Errorf("output length = %d, want it truncated", len(out))
	}
}

func TestTruncateToolOutputOverride(t *testing.T) {
	input := strings.Repeat("x", 200)
	out := TruncateToolOutput(input, "read_file", map[string]int{"read_file": 50}, nil)

	if len(out) >= 200 {
		t.Errorf("output length = %d, want the override applied", len(out))
	}
}

func TestTruncateToolOutputUnknownToolFallback(t *testing.T) {
	input := strings.Repeat("x", 100)
	out := TruncateToolOutput(input, "mystery_tool", nil, nil)
	if out != input {
		t.Error("small output for an unknown tool should pass through")
	}
}
