package bufferbus

import (
	"errors"
	"testing"
)

func TestOnDescendingPriorityTiesByRegistration(t *testing.T) {
	b := New()
	var order []string

	record := func(name string) Handler {
		return func(any) error {
			order = append(order, name)
			return nil
		}
	}

	if err := b.On(TextChanged, "p1", record("low-a"), 0); err != nil {
		t.Fatal(err)
	}
	if err := b.On(TextChanged, "p2", record("high"), 10); err != nil {
		t.Fatal(err)
	}
	if err := b.On(TextChanged, "p3", record("low-b"), 0); err != nil {
		t.Fatal(err)
	}

	b.Emit(TextChanged, nil)

	want := []string{"high", "low-a", "low-b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestOnceFiresAtMostOnce(t *testing.T) {
	b := New()
	count := 0
	if err := b.Once(CursorMoved, "p1", func(any) error {
		count++
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	b.Emit(CursorMoved, nil)
	b.Emit(CursorMoved, nil)
	b.Emit(CursorMoved, nil)

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if b.ListenerCount(CursorMoved) != 0 {
		t.Fatalf("listener not pruned after once-fire")
	}
}

func TestHandlerErrorDoesNotAbortDispatch(t *testing.T) {
	b := New()
	var hooked error
	b.SetErrorHook(func(_ EventType, _ string, err error) {
		hooked = err
	})

	second := false
	if err := b.On(TextChanged, "p1", func(any) error {
		return errors.New("boom")
	}, 10); err != nil {
		t.Fatal(err)
	}
	if err := b.On(TextChanged, "p2", func(any) error {
		second = true
		return nil
	}, 0); err != nil {
		t.Fatal(err)
	}

	b.Emit(TextChanged, nil)

	if !second {
		t.Fatal("second handler did not run after first errored")
	}
	if hooked == nil {
		t.Fatal("error hook was not invoked")
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	b := New()
	var hooked error
	b.SetErrorHook(func(_ EventType, _ string, err error) {
		hooked = err
	})
	ran := false
	b.On(TextChanged, "p1", func(any) error {
		panic("kaboom")
	}, 10)
	b.On(TextChanged, "p2", func(any) error {
		ran = true
		return nil
	}, 0)

	b.Emit(TextChanged, nil)

	if !ran {
		t.Fatal("handler after panicking one did not run")
	}
	var pe *PanicError
	if !errors.As(hooked, &pe) {
		t.Fatalf("expected PanicError, got %v", hooked)
	}
}

func TestOffRemovesOnlyMatchingPlugin(t *testing.T) {
	b := New()
	b.On(TextChanged, "p1", func(any) error { return nil }, 0)
	b.On(TextChanged, "p2", func(any) error { return nil }, 0)

	removed := b.Off(TextChanged, "p1")
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if b.ListenerCount(TextChanged) != 1 {
		t.Fatalf("listener count = %d, want 1", b.ListenerCount(TextChanged))
	}
}

func TestRemovePluginSpansAllEventTypes(t *testing.T) {
	b := New()
	b.On(TextChanged, "p1", func(any) error { return nil }, 0)
	b.On(CursorMoved, "p1", func(any) error { return nil }, 0)
	b.On(BufEnter, "p2", func(any) error { return nil }, 0)

	removed := b.RemovePlugin("p1")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if b.ListenerCount(TextChanged) != 0 || b.ListenerCount(CursorMoved) != 0 {
		t.Fatal("p1 listeners not fully removed")
	}
	if b.ListenerCount(BufEnter) != 1 {
		t.Fatal("unrelated plugin's listener was removed")
	}
}

func TestBatchFlushesInInsertionOrderOnOutermostEnd(t *testing.T) {
	b := New()
	var got []string
	b.On(TextChanged, "p1", func(payload any) error {
		got = append(got, payload.(string))
		return nil
	}, 0)

	b.BeginBatch()
	b.BeginBatch() // nested reentrancy
	b.Emit(TextChanged, "A")
	b.Emit(TextChanged, "B")
	if got != nil {
		t.Fatal("emit delivered before outermost EndBatch")
	}
	b.EndBatch() // inner end: still batching
	b.Emit(TextChanged, "C")
	if got != nil {
		t.Fatal("emit delivered while still nested in a batch")
	}
	b.EndBatch() // outer end: flush

	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("got = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got = %v, want %v", got, want)
		}
	}
}

func TestEmitWithNoListenersIsNoOp(t *testing.T) {
	b := New()
	b.Emit(TextChanged, "whatever") // must not panic
}
