package loopdetect

import (
	"fmt"
	"time"
)

// Config holds the detector thresholds. All bounds apply to the tail of
// the surviving buffer window.
type Config struct {
	MaxHistorySize          int           // invocation records kept
	ExactRepeatThreshold    int           // identical consecutive calls
	AlternatingThreshold    int           // length of an A,B,A,B tail
	ParameterCycleThreshold int           // same-tool calls cycling params
	TimeWindow              time.Duration // age bound on records
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize:          50,
		ExactRepeatThreshold:    3,
		AlternatingThreshold:    6,
		ParameterCycleThreshold: 5,
		TimeWindow:              5 * time.Minute,
	}
}

// Validate reports whether the thresholds are usable.
func (c Config) Validate() error {
	if c.MaxHistorySize < 1 {
		return fmt.Errorf("max history size must be at least 1, got %d", c.MaxHistorySize)
	}
	if c.ExactRepeatThreshold < 2 {
		return fmt.Errorf("exact repeat threshold must be at least 2, got %d", c.ExactRepeatThreshold)
	}
	if c.AlternatingThreshold < 4 {
		return fmt.Errorf("alternating threshold must be at least 4, got %d", c.AlternatingThreshold)
	}
	if c.ParameterCycleThreshold < 3 {
		return fmt.Errorf("parameter cycle threshold must be at least 3, got %d", c.ParameterCycleThreshold)
	}
	return nil
}

// Result is the verdict of one detection pass. It is recomputed fresh on
// every check and never persisted.
type Result struct {
	IsLoop      bool
	Confidence  int // 0..100
	Description string
	Suggestion  string
}

// Detector runs the pattern checks over a bounded invocation buffer.
type Detector struct {
	config Config
	buffer *Buffer
}

// NewDetector creates a Detector. Zero-valued config fields fall back to
// defaults.
func NewDetector(config Config) *Detector {
	def := DefaultConfig()
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = def.MaxHistorySize
	}
	if config.ExactRepeatThreshold <= 0 {
		config.ExactRepeatThreshold = def.ExactRepeatThreshold
	}
	if config.AlternatingThreshold <= 0 {
		config.AlternatingThreshold = def.AlternatingThreshold
	}
	if config.ParameterCycleThreshold <= 0 {
		config.ParameterCycleThreshold = def.ParameterCycleThreshold
	}
	if config.TimeWindow <= 0 {
		config.TimeWindow = def.TimeWindow
	}
	return &Detector{
		config: config,
		buffer: NewBuffer(config.MaxHistorySize, config.TimeWindow),
	}
}

// Record appends one invocation without running the checks.
func (d *Detector) Record(tool string, params map[string]interface{}) {
	d.buffer.Add(tool, params)
}

// AddAndCheck records an invocation and runs the pattern checks.
func (d *Detector) AddAndCheck(tool string, params map[string]interface{}) Result {
	d.buffer.Add(tool, params)
	return d.Check()
}

// Check runs the three pattern checks in order, short-circuiting on the
// first positive: exact repeat, alternating, parameter cycling.
func (d *Detector) Check() Result {
	records := d.buffer.Records()

	if r, ok := d.checkExactRepeat(records); ok {
		return r
	}
	if r, ok := d.checkAlternating(records); ok {
		return r
	}
	if r, ok := d.checkParameterCycle(records); ok {
		return r
	}
	return Result{}
}

// Reset clears the underlying buffer.
func (d *Detector) Reset() { d.buffer.Reset() }

// BufferLen returns the number of surviving invocation records.
func (d *Detector) BufferLen() int { return d.buffer.Len() }

// checkExactRepeat fires when the same (tool, params) pair occupies the
// entire tail of the window at least ExactRepeatThreshold times.
func (d *Detector) checkExactRepeat(records []Record) (Result, bool) {
	n := d.config.ExactRepeatThreshold
	if len(records) < n {
		return Result{}, false
	}
	tail := records[len(records)-n:]
	sig := tail[0].Signature
	for _, rec := range tail[1:] {
		if rec.Signature != sig {
			return Result{}, false
		}
	}
	return Result{
		IsLoop:      true,
		Confidence:  95,
		Description: fmt.Sprintf("the last %d calls to %s were identical", n, tail[0].Tool),
		Suggestion:  "try a different tool or different parameters",
	}, true
}

// checkAlternating fires on a strict period-2 cycle A,B,A,B at the tail
// of length at least AlternatingThreshold, with A different from B.
func (d *Detector) checkAlternating(records []Record) (Result, bool) {
	n := d.config.AlternatingThreshold
	if len(records) < n {
		return Result{}, false
	}
	tail := records[len(records)-n:]
	a := tail[0].Signature
	b := tail[1].Signature
	if a == b {
		return Result{}, false
	}
	for i, rec := range tail {
		want := a
		if i%2 == 1 {
			want = b
		}
		if rec.Signature != want {
			return Result{}, false
		}
	}
	return Result{
		IsLoop:      true,
		Confidence:  85,
		Description: fmt.Sprintf("the last %d calls alternate between %s and %s", n, tail[0].Tool, tail[1].Tool),
		Suggestion:  "the two calls are not making progress together; step back and re-plan",
	}, true
}

// checkParameterCycle fires when the same tool dominates the tail with a
// bounded, repeating set of parameter values: more than one distinct
// value, but each value recurring, meaning the set has stopped growing.
// A run of distinct single-use values is exploration, not a loop.
func (d *Detector) checkParameterCycle(records []Record) (Result, bool) {
	n := d.config.ParameterCycleThreshold
	if len(records) < n {
		return Result{}, false
	}

	// Longest same-tool suffix.
	tool := records[len(records)-1].Tool
	start := len(records)
	for start > 0 && records[start-1].Tool == tool {
		start--
	}
	tail := records[start:]
	if len(tail) < n {
		return Result{}, false
	}

	counts := make(map[string]int)
	for _, rec := range tail {
		counts[rec.Params]++
	}
	if len(counts) < 2 {
		return Result{}, false
	}
	for _, c := range counts {
		if c < 2 {
			return Result{}, false
		}
	}
	return Result{
		IsLoop:      true,
		Confidence:  70,
		Description: fmt.Sprintf("%s was called %d times cycling through %d parameter sets", tool, len(tail), len(counts)),
		Suggestion:  "the same inputs keep recurring; try a different tool or parameters",
	}, true
}
