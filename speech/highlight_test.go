package speech

import (
	"sync"
	"testing"
	"time"
)

// eventRecorder collects highlight events across goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events []HighlightEvent
}

func (r *eventRecorder) record(ev HighlightEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) snapshot() []HighlightEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HighlightEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) waitFor(t *testing.T, timeout time.Duration, ok func([]HighlightEvent) bool) []HighlightEvent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		evs := r.snapshot()
		if ok(evs) {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %s; events: %+v", timeout, r.snapshot())
	return nil
}

func fastHighlighterConfig() HighlighterConfig {
	return HighlighterConfig{
		WordsPerMinute: 6000, // 10ms per word before clamping
		MinTick:        5 * time.Millisecond,
		TrailWindow:    3,
	}
}

// TestHighlighterActivatesInOrder tests that tokens activate sequentially
// from the first token onward.
func TestHighlighterActivatesInOrder(t *testing.T) {
	rec := &eventRecorder{}
	h := NewHighlighter(fastHighlighterConfig(), rec.record, nil)
	defer h.Stop()

	tokens := Words("one two three four")
	h.Start(tokens, 1.0)

	evs := rec.waitFor(t, 2*time.Second, func(evs []HighlightEvent) bool {
		n := 0
		for _, ev := range evs {
			if ev.Kind == TokenActivated {
				n++
			}
		}
		return n >= len(tokens)
	})

	next := 0
	for _, ev := range evs {
		if ev.Kind != TokenActivated {
			continue
		}
		if ev.Index != next {
			t.Fatalf("activation order broken: got index %d, want %d", ev.Index, next)
		}
		next++
	}
}

// TestHighlighterTrailingWindow tests that tokens deactivate once they
// fall out of the trailing window.
func TestHighlighterTrailingWindow(t *testing.T) {
	rec := &eventRecorder{}
	h := NewHighlighter(fastHighlighterConfig(), rec.record, nil)
	defer h.Stop()

	tokens := Words("a b c d e f g h")
	h.Start(tokens, 1.0)

	evs := rec.waitFor(t, 2*time.Second, func(evs []HighlightEvent) bool {
		for _, ev := range evs {
			// The last deactivation trails the last activation.
			if ev.Kind == TokenDeactivated && ev.Index == len(tokens)-4 {
				return true
			}
		}
		return false
	})

	active := map[int]bool{}
	cursor := -1
	for _, ev := range evs {
		switch ev.Kind {
		case TokenActivated:
			active[ev.Index] = true
			cursor = ev.Index
		case TokenDeactivated:
			if want := cursor - 3; ev.Index != want {
				t.Fatalf("deactivated index %d while cursor at %d, want %d", ev.Index, cursor, want)
			}
			delete(active, ev.Index)
		}
	}
	want := map[int]bool{len(tokens) - 3: true, len(tokens) - 2: true, len(tokens) - 1: true}
	for i := range want {
		if !active[i] {
			t.Errorf("token %d should stay marked until Stop; active: %v", i, active)
		}
	}
	if len(active) != len(want) {
		t.Errorf("active set = %v, want the final window %v", active, want)
	}
}

// TestHighlighterStopClears tests that Stop emits a clear event and halts
// the cursor.
func TestHighlighterStopClears(t *testing.T) {
	rec := &eventRecorder{}
	h := NewHighlighter(fastHighlighterConfig(), rec.record, nil)

	h.Start(Words("one two three four five six seven eight nine ten"), 1.0)
	rec.waitFor(t, 2*time.Second, func(evs []HighlightEvent) bool {
		return len(evs) > 0
	})

	h.Stop()
	if h.Active() {
		t.Fatal("highlighter still active after Stop")
	}

	evs := rec.waitFor(t, time.Second, func(evs []HighlightEvent) bool {
		return len(evs) > 0 && evs[len(evs)-1].Kind == HighlightCleared
	})

	// No activity after the clear.
	n := len(evs)
	time.Sleep(50 * time.Millisecond)
	if got := len(rec.snapshot()); got != n {
		t.Errorf("events kept arriving after Stop: %d -> %d", n, got)
	}
}

// TestHighlighterStopIdempotent tests that repeated Stop calls emit at
// most one clear.
func TestHighlighterStopIdempotent(t *testing.T) {
	rec := &eventRecorder{}
	h := NewHighlighter(fastHighlighterConfig(), rec.record, nil)

	h.Start(Words("one two"), 1.0)
	h.Stop()
	h.Stop()
	h.Stop()

	clears := 0
	for _, ev := range rec.snapshot() {
		if ev.Kind == HighlightCleared {
			clears++
		}
	}
	if clears != 1 {
		t.Errorf("clears = %d, want 1", clears)
	}
}

// TestHighlighterPauseFreezesCursor tests that no activations arrive while
// paused and that the cursor continues, not restarts, on resume.
func TestHighlighterPauseFreezesCursor(t *testing.T) {
	rec := &eventRecorder{}
	h := NewHighlighter(fastHighlighterConfig(), rec.record, nil)
	defer h.Stop()

	h.Start(Words("a b c d e f g h i j k l m n o p"), 1.0)
	rec.waitFor(t, 2*time.Second, func(evs []HighlightEvent) bool {
		return len(evs) >= 2
	})

	h.Pause()
	// Drain in-flight notifications, then measure.
	time.Sleep(30 * time.Millisecond)
	frozen := len(rec.snapshot())
	before := h.Index()
	time.Sleep(60 * time.Millisecond)
	if got := len(rec.snapshot()); got != frozen {
		t.Fatalf("events arrived while paused: %d -> %d", frozen, got)
	}

	h.Resume()
	evs := rec.waitFor(t, 2*time.Second, func(evs []HighlightEvent) bool {
		return len(evs) > frozen
	})

	for _, ev := range evs[frozen:] {
		if ev.Kind == TokenActivated && ev.Index <= before {
			t.Fatalf("cursor restarted: activated index %d after pausing at %d", ev.Index, before)
		}
	}
}

// TestHighlighterEmptyTokens tests that starting with no tokens is a
// no-op.
func TestHighlighterEmptyTokens(t *testing.T) {
	rec := &eventRecorder{}
	h := NewHighlighter(fastHighlighterConfig(), rec.record, nil)
	h.Start(nil, 1.0)

	if h.Active() {
		t.Fatal("highlighter active with no tokens")
	}
}

// TestHighlighterIntervalClamped tests that extreme rates cannot push the
// tick interval below the configured floor.
func TestHighlighterIntervalClamped(t *testing.T) {
	cfg := HighlighterConfig{WordsPerMinute: 100000, MinTick: 80 * time.Millisecond, TrailWindow: 3}
	h := NewHighlighter(cfg, nil, nil)
	defer h.Stop()

	h.Start(Words("one two three"), 2.0)

	h.mu.Lock()
	interval := h.interval
	h.mu.Unlock()
	if interval < cfg.MinTick {
		t.Errorf("interval %s below floor %s", interval, cfg.MinTick)
	}
}
