package transcript

import (
	"sync"
	"testing"

	"github.com/koscakluka/ema-live/core/wire"
)

func TestFlushOrdersUserBeforeAssistant(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.AppendFragment(wire.RoleUser, "a")
	aggregator.AppendFragment(wire.RoleAssistant, "b")
	aggregator.AppendFragment(wire.RoleUser, "c")

	turns := aggregator.Flush()

	expected := []Turn{{Role: wire.RoleUser, Text: "ac"}, {Role: wire.RoleAssistant, Text: "b"}}
	if len(turns) != len(expected) {
		t.Fatalf("expected %d turns, got %d: %+v", len(expected), len(turns), turns)
	}
	for i := range expected {
		if turns[i] != expected[i] {
			t.Fatalf("turn %d: expected %+v, got %+v", i, expected[i], turns[i])
		}
	}
}

func TestFlushTrimsAndSkipsBlankBuffers(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.AppendFragment(wire.RoleUser, "   ")
	aggregator.AppendFragment(wire.RoleAssistant, "  hello ")
	aggregator.AppendFragment(wire.RoleAssistant, "world  ")

	turns := aggregator.Flush()
	if len(turns) != 1 {
		t.Fatalf("expected only the assistant turn, got %+v", turns)
	}
	if turns[0].Role != wire.RoleAssistant || turns[0].Text != "hello world" {
		t.Fatalf("expected trimmed assistant turn, got %+v", turns[0])
	}
}

func TestFlushClearsBuffers(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.AppendFragment(wire.RoleUser, "first")
	aggregator.Flush()

	if turns := aggregator.Flush(); len(turns) != 0 {
		t.Fatalf("expected second flush to be empty, got %+v", turns)
	}

	aggregator.AppendFragment(wire.RoleUser, "second")
	turns := aggregator.Flush()
	if len(turns) != 1 || turns[0].Text != "second" {
		t.Fatalf("expected only new text after flush, got %+v", turns)
	}
}

func TestUnknownRoleIsIgnored(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.AppendFragment(wire.Role("narrator"), "ignored")
	aggregator.AppendFragment(wire.Role(""), "ignored")

	if turns := aggregator.Flush(); len(turns) != 0 {
		t.Fatalf("expected no turns for unknown role, got %+v", turns)
	}
}

func TestResetDropsPendingFragments(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.AppendFragment(wire.RoleUser, "stale")
	aggregator.AppendFragment(wire.RoleAssistant, "stale")
	aggregator.Reset()

	if pending := aggregator.Pending(wire.RoleUser); pending != "" {
		t.Fatalf("expected empty pending user text, got %q", pending)
	}
	if turns := aggregator.Flush(); len(turns) != 0 {
		t.Fatalf("expected no turns after reset, got %+v", turns)
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	aggregator := NewAggregator()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() { defer wg.Done(); aggregator.AppendFragment(wire.RoleUser, "u") }()
		go func() { defer wg.Done(); aggregator.AppendFragment(wire.RoleAssistant, "a") }()
	}
	wg.Wait()

	turns := aggregator.Flush()
	if len(turns) != 2 || len(turns[0].Text) != 50 || len(turns[1].Text) != 50 {
		t.Fatalf("expected 50 characters per role, got %+v", turns)
	}
}
