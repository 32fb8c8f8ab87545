package speech

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a minimal backend for catalog tests; playback methods are
// never exercised here.
type fakeBackend struct {
	mu            sync.Mutex
	voices        []Voice
	err           error
	calls         int
	voicesChanged func()
}

func (f *fakeBackend) Name() string     { return "fake" }
func (f *fakeBackend) Available() bool  { return true }
func (f *fakeBackend) Cancel()          {}
func (f *fakeBackend) Pause() error     { return nil }
func (f *fakeBackend) Resume() error    { return nil }

func (f *fakeBackend) Voices() ([]Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.voices, nil
}

func (f *fakeBackend) Speak(utt Utterance, notify func(Event)) error { return nil }

func (f *fakeBackend) OnVoicesChanged(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voicesChanged = fn
}

func (f *fakeBackend) set(voices []Voice, err error) {
	f.mu.Lock()
	f.voices = voices
	f.err = err
	f.mu.Unlock()
}

func (f *fakeBackend) fireVoicesChanged() {
	f.mu.Lock()
	fn := f.voicesChanged
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// TestCatalogLoadPopulates tests that a successful enumeration replaces
// the snapshot and bumps the sequence number.
func TestCatalogLoadPopulates(t *testing.T) {
	fb := &fakeBackend{voices: []Voice{{Name: "A", Locale: "en-US"}}}
	c := NewCatalog(fb, nil)
	defer c.Close()

	c.Load()

	snap := c.Snapshot()
	if snap.Empty() {
		t.Fatal("snapshot empty after successful load")
	}
	if snap.Seq != 1 {
		t.Errorf("Seq = %d, want 1", snap.Seq)
	}
	if snap.Voices[0].Name != "A" {
		t.Errorf("voice = %q, want A", snap.Voices[0].Name)
	}
}

// TestCatalogEmptyNeverOverwrites tests that an empty or failed
// enumeration keeps the previous non-empty snapshot.
func TestCatalogEmptyNeverOverwrites(t *testing.T) {
	fb := &fakeBackend{voices: []Voice{{Name: "A", Locale: "en-US"}}}
	c := NewCatalog(fb, nil)
	defer c.Close()
	c.Load()

	fb.set(nil, nil)
	c.Reload()
	if c.Snapshot().Empty() {
		t.Fatal("empty enumeration overwrote a populated snapshot")
	}

	fb.set(nil, errors.New("enumeration exploded"))
	c.Reload()
	if c.Snapshot().Empty() {
		t.Fatal("failed enumeration overwrote a populated snapshot")
	}
	if c.Snapshot().Seq != 1 {
		t.Errorf("Seq = %d, want 1 after no-op reloads", c.Snapshot().Seq)
	}
}

// TestCatalogEmptySnapshotIsNotAnError tests that a backend that never
// yields voices leaves a usable, empty catalog.
func TestCatalogEmptySnapshotIsNotAnError(t *testing.T) {
	fb := &fakeBackend{}
	c := NewCatalog(fb, nil)
	defer c.Close()

	c.Load()
	if !c.Snapshot().Empty() {
		t.Fatal("expected empty snapshot")
	}
	if c.Snapshot().Seq != 0 {
		t.Errorf("Seq = %d, want 0", c.Snapshot().Seq)
	}
}

// TestCatalogOnChange tests that change callbacks fire on replacement with
// the new snapshot.
func TestCatalogOnChange(t *testing.T) {
	fb := &fakeBackend{}
	c := NewCatalog(fb, nil)
	defer c.Close()

	var mu sync.Mutex
	var got []Snapshot
	c.OnChange(func(s Snapshot) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	c.Load()
	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 0 {
		t.Fatalf("callback fired %d times for empty enumeration", n)
	}

	fb.set([]Voice{{Name: "A", Locale: "en-US"}}, nil)
	c.Reload()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("callback fired %d times, want 1", len(got))
	}
	if got[0].Seq != 1 || len(got[0].Voices) != 1 {
		t.Errorf("callback snapshot = %+v", got[0])
	}
}

// TestCatalogVoicesChangedSignal tests that the backend's voices-changed
// signal triggers re-enumeration.
func TestCatalogVoicesChangedSignal(t *testing.T) {
	fb := &fakeBackend{}
	c := NewCatalog(fb, nil)
	defer c.Close()
	c.Load()

	fb.set([]Voice{{Name: "Late", Locale: "en-US"}}, nil)
	fb.fireVoicesChanged()

	snap := c.Snapshot()
	if snap.Empty() || snap.Voices[0].Name != "Late" {
		t.Fatalf("snapshot after voices-changed = %+v", snap)
	}
}

// TestCatalogRetrySchedule tests that scheduled retries eventually pick up
// a late-populating voice list without an explicit signal.
func TestCatalogRetrySchedule(t *testing.T) {
	fb := &fakeBackend{}
	c := NewCatalog(fb, nil)
	defer c.Close()
	c.Load()

	fb.set([]Voice{{Name: "Eventually", Locale: "en-US"}}, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !c.Snapshot().Empty() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("retry schedule never picked up the late voice list")
}

// TestCatalogLoadIdempotent tests that repeated Load calls do not schedule
// duplicate retry series.
func TestCatalogLoadIdempotent(t *testing.T) {
	fb := &fakeBackend{voices: []Voice{{Name: "A", Locale: "en-US"}}}
	c := NewCatalog(fb, nil)
	defer c.Close()

	c.Load()
	c.Load()
	c.Load()

	if seq := c.Snapshot().Seq; seq != 1 {
		t.Errorf("Seq = %d, want 1 after repeated Load", seq)
	}
}
