package agentloop

import (
	"fmt"
	"strings"
)

// TruncationMode specifies which part of an oversized output survives.
type TruncationMode string

const (
	// TruncateHeadTail keeps the beginning and end, dropping the middle.
	TruncateHeadTail TruncationMode = "head_tail"
	// TruncateTail keeps only the end.
	TruncateTail TruncationMode = "tail"
)

// DefaultToolCharLimits caps the characters a single tool result may
// contribute to the transcript.
var DefaultToolCharLimits = map[string]int{
	"read_file":      50000,
	"shell":          30000,
	"grep":           20000,
	"glob":           20000,
	"list_directory": 20000,
	"edit_file":      10000,
	"write_file":     1000,
	"spawn_task":     20000,
	"wait_task":      20000,
}

// DefaultTruncationModes selects the truncation mode per tool. Head/tail
// for outputs where both ends matter, tail for listings where the most
// recent entries do.
var DefaultTruncationModes = map[string]TruncationMode{
	"read_file":      TruncateHeadTail,
	"shell":          TruncateHeadTail,
	"grep":           TruncateTail,
	"glob":           TruncateTail,
	"list_directory": TruncateTail,
	"edit_file":      TruncateTail,
	"write_file":     TruncateTail,
	"spawn_task":     TruncateHeadTail,
	"wait_task":      TruncateHeadTail,
}

// DefaultToolLineLimits caps line counts after character truncation.
var DefaultToolLineLimits = map[string]int{
	"shell":          256,
	"grep":           200,
	"glob":           500,
	"list_directory": 500,
}

// TruncateOutput applies character-based truncation to output.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars

	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n",
			removed) +
			output[len(output)-maxChars:]

	default:
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
				"Re-run the tool with more targeted parameters if you need the missing parts.]\n\n",
				removed) +
			output[len(output)-half:]
	}
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateToolOutput runs the truncation pipeline for a tool result:
// character-based truncation first, then line-based truncation for
// readability. The maps override the package defaults per tool.
func TruncateToolOutput(output string, toolName string, charLimits map[string]int, lineLimits map[string]int) string {
	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars, ok = DefaultToolCharLimits[toolName]
		if !ok {
			maxChars = 30000
		}
	}

	mode, ok := DefaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	result := TruncateOutput(output, maxChars, mode)

	maxLines := 0
	if lineLimits != nil {
		if ml, ok := lineLimits[toolName]; ok {
			maxLines = ml
		}
	}
	if maxLines == 0 {
		if ml, ok := DefaultToolLineLimits[toolName]; ok {
			maxLines = ml
		}
	}
	if maxLines > 0 {
		result = TruncateLines(result, maxLines)
	}

	return result
}
