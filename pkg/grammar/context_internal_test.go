package grammar

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnterPopsOnlyOnSuccess(t *testing.T) {
	ctx := NewContext()

	done, err := ctx.Enter("first", 1)
	if err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if _, err := ctx.Enter("second", 2); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	// The inner frame is never popped, as on a failure path.
	want := []string{"first", "second"}
	if diff := cmp.Diff(want, ctx.Trace()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}

	// Popping the outer frame still works independently.
	done()
	if got := ctx.Depth(); got != 1 {
		t.Fatalf("depth after pop = %d, want 1", got)
	}
}

func TestEnterDepthLimit(t *testing.T) {
	ctx := NewContext(WithMaxDepth(3))
	for i := 0; i < 3; i++ {
		if _, err := ctx.Enter("level", i); err != nil {
			t.Fatalf("Enter %d failed: %v", i, err)
		}
	}
	_, err := ctx.Enter("too deep", nil)
	if err == nil {
		t.Fatal("expected the depth limit to reject the fourth frame")
	}
	if !IsInvalidInput(err) {
		t.Fatalf("depth limit error should blame the input, got %v", err)
	}
}

func TestCloneIsolatesSlots(t *testing.T) {
	ctx := NewContext(WithSlot("seen", map[string]any{"a": 1}))
	branch := ctx.clone()

	branch.slots["seen"].(map[string]any)["b"] = 2

	original := ctx.slots["seen"].(map[string]any)
	if _, leaked := original["b"]; leaked {
		t.Fatal("mutating a cloned slot leaked into the original context")
	}
}

func TestCloneAliasesSharedSlots(t *testing.T) {
	shared := map[string]any{}
	ctx := NewContext(WithSlot("sink", shared), WithSharedSlot("sink"))
	branch := ctx.clone()

	branch.slots["sink"].(map[string]any)["written"] = true

	if _, ok := shared["written"]; !ok {
		t.Fatal("a shared slot should stay aliased across clones")
	}
}

func TestAdoptReplacesContents(t *testing.T) {
	ctx := NewContext()
	branch := ctx.clone()
	branch.SetSlot("winner", true)
	if _, err := branch.Enter("branch frame", nil); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	ctx.adopt(branch)

	if _, ok := ctx.Slot("winner"); !ok {
		t.Fatal("adopt should carry over the branch's slots")
	}
	if diff := cmp.Diff([]string{"branch frame"}, ctx.Trace()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}
