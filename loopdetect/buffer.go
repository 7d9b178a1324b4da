// Package loopdetect flags stalled or looping tool usage.
//
// It keeps a bounded, time-windowed buffer of tool invocations and runs
// three deterministic pattern checks over the tail: exact repetition,
// period-2 alternation, and parameter cycling. The detector holds no
// state beyond the buffer and every check is recomputed from scratch.
package loopdetect

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// Record is one tool invocation in the buffer.
type Record struct {
	Tool      string
	Params    string // canonical JSON with stable key ordering
	Signature string // tool + short hash of Params, cheap to compare
	At        time.Time
}

// Buffer is an append-only invocation log with a count bound and an age
// bound, both enforced on insert. Oldest entries are evicted first.
type Buffer struct {
	records []Record
	maxSize int
	window  time.Duration
	now     func() time.Time
}

// NewBuffer creates a Buffer. maxSize <= 0 means size-unbounded and
// window <= 0 means age-unbounded.
func NewBuffer(maxSize int, window time.Duration) *Buffer {
	return &Buffer{maxSize: maxSize, window: window, now: time.Now}
}

// Add normalizes params and appends a record, evicting entries that fall
// outside the size or time bounds.
func (b *Buffer) Add(tool string, params map[string]interface{}) Record {
	now := b.now()
	canonical := canonicalParams(params)
	rec := Record{
		Tool:      tool,
		Params:    canonical,
		Signature: signature(tool, canonical),
		At:        now,
	}
	b.records = append(b.records, rec)
	b.evict(now)
	return rec
}

func (b *Buffer) evict(now time.Time) {
	if b.window > 0 {
		cutoff := now.Add(-b.window)
		i := 0
		for i < len(b.records) && b.records[i].At.Before(cutoff) {
			i++
		}
		b.records = b.records[i:]
	}
	if b.maxSize > 0 && len(b.records) > b.maxSize {
		b.records = b.records[len(b.records)-b.maxSize:]
	}
}

// Records returns the surviving window in chronological order.
func (b *Buffer) Records() []Record {
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out
}

// Len returns the number of surviving records.
func (b *Buffer) Len() int { return len(b.records) }

// Reset clears the buffer.
func (b *Buffer) Reset() { b.records = b.records[:0] }

// canonicalParams serializes params with stable key ordering so equal
// maps always compare equal. encoding/json sorts map keys.
func canonicalParams(params map[string]interface{}) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(data)
}

// signature computes a short comparable signature for a tool call.
func signature(tool, canonical string) string {
	h := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%s:%x", tool, h[:8])
}
