package agentloop

import (
	"context"
	"testing"
	"time"

	"github.com/martinemde/agentcore/reasoner"
)

func TestSubSessionSpawnAndWait(t *testing.T) {
	manager := NewSubSessionManager(1, 0)
	oracle := &scriptedReasoner{
		decisions: []*reasoner.Decision{
			{Reasoning: "trivial task done", Finished: true},
		},
	}

	handle, err := manager.Spawn(context.Background(), oracle, NewLocalEnvironment(t.TempDir()), "do the thing", nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := handle.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if handle.Status() != SubSessionCompleted {
		t.Errorf("Status = %q, want %q", handle.Status(), SubSessionCompleted)
	}
	if result.Reason != TerminationFinished {
		t.Errorf("Reason = %q, want %q", result.Reason, TerminationFinished)
	}
}

func TestSubSessionDepthLimit(t *testing.T) {
	manager := NewSubSessionManager(1, 1)
	if manager.CanSpawn() {
		t.Fatal("CanSpawn = true at max depth")
	}
	if _, err := manager.Spawn(context.Background(), &scriptedReasoner{}, NewLocalEnvironment(t.TempDir()), "too deep", nil); err == nil {
		t.Error("Spawn succeeded past the depth limit")
	}
}

func TestSubSessionCancel(t *testing.T) {
	manager := NewSubSessionManager(1, 0)

	// A reasoner that never finishes on its own; the interrupt has to
	// stop it.
	slow := &reasoner.Decision{
		Reasoning: "keep going",
		Actions:   []reasoner.Action{{Tool: "echo", Args: map[string]interface{}{"text": "x"}}},
	}
	oracle := &scriptedReasoner{
		decisions: []*reasoner.Decision{slow, slow, slow, slow, slow, slow, slow, slow},
	}

	handle, err := manager.Spawn(context.Background(), oracle, NewLocalEnvironment(t.TempDir()), "run forever", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.Cancel(handle.ID); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := handle.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if status := handle.Status(); status == SubSessionRunning {
		t.Errorf("Status = %q after cancel, want a terminal state", status)
	}

	if err := manager.Cancel("missing"); err == nil {
		t.Error("Cancel(missing) succeeded, want an error")
	}
}
