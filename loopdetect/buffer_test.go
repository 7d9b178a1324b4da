package loopdetect

import (
	"testing"
	"time"
)

func TestBufferEvictsOldestBeyondMaxSize(t *testing.T) {
	b := NewBuffer(3, 0)
	for i := 0; i < 4; i++ {
		b.Add("shell", map[string]interface{}{"command": string(rune('a' + i))})
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 records after inserting 4 with max 3, got %d", b.Len())
	}
	recs := b.Records()
	if recs[0].Params != `{"command":"b"}` {
		t.Errorf("expected oldest record evicted first, head is %s", recs[0].Params)
	}
}

func TestBufferEvictsByAge(t *testing.T) {
	b := NewBuffer(10, time.Minute)
	base := time.Now()
	tick := 0
	b.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 30 * time.Second)
	}

	b.Add("grep", nil) // at +30s
	b.Add("grep", nil) // at +60s
	b.Add("grep", nil) // at +90s, cutoff +30s: first record is exactly at cutoff

	b.Add("grep", nil) // at +120s, cutoff +60s: evicts the +30s record
	if b.Len() != 3 {
		t.Errorf("expected 3 records inside the window, got %d", b.Len())
	}
}

func TestCanonicalParamsStableOrdering(t *testing.T) {
	a := canonicalParams(map[string]interface{}{"b": 2, "a": 1})
	want := `{"a":1,"b":2}`
	if a != want {
		t.Errorf("expected %s, got %s", want, a)
	}
}

func TestCanonicalParamsEmpty(t *testing.T) {
	if got := canonicalParams(nil); got != "{}" {
		t.Errorf("expected {}, got %s", got)
	}
}

func TestSignatureDistinguishesParams(t *testing.T) {
	s1 := signature("read_file", `{"file_path":"a.go"}`)
	s2 := signature("read_file", `{"file_path":"b.go"}`)
	if s1 == s2 {
		t.Error("different params should yield different signatures")
	}
	if s1 != signature("read_file", `{"file_path":"a.go"}`) {
		t.Error("signature must be deterministic")
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer(5, 0)
	b.Add("shell", nil)
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("expected empty buffer after reset, got %d", b.Len())
	}
}
