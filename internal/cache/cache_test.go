package cache

import (
	"bytes"
	"testing"
)

// TestKeyStability tests that keys depend on every part.
func TestKeyStability(t *testing.T) {
	a := Key("model", "1.00", "hello")
	b := Key("model", "1.00", "hello")
	if a != b {
		t.Error("identical parts should produce identical keys")
	}
	if Key("model", "1.00", "hello") == Key("model", "1.25", "hello") {
		t.Error("changing a part should change the key")
	}
	// The separator prevents adjacent parts from bleeding together.
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("part boundaries should be significant")
	}
}

// TestMemoryTier tests basic put/get and the miss path.
func TestMemoryTier(t *testing.T) {
	c, err := New("", 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("absent"); ok {
		t.Fatal("hit on an empty cache")
	}

	data := []byte("pcm data")
	if err := c.Put("k", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || !bytes.Equal(got, data) {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestLRUEviction tests that the oldest entry leaves first.
func TestLRUEviction(t *testing.T) {
	c, err := New("", 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Get("a") // refresh a; b is now oldest
	c.Put("c", []byte("3"))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", c.Stats().Evictions)
	}
}

// TestDiskTierRoundTrip tests compression, persistence and promotion back
// into memory.
func TestDiskTierRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("audio frame "), 500)

	c, err := New(dir, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Put("utt", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Close()

	// A fresh cache over the same directory reads the entry from disk.
	c2, err := New(dir, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c2.Close()

	got, ok := c2.Get("utt")
	if !ok || !bytes.Equal(got, data) {
		t.Fatalf("disk round trip failed: ok=%v len=%d", ok, len(got))
	}

	// Promoted entries hit memory on the second read.
	if _, ok := c2.Get("utt"); !ok {
		t.Fatal("promoted entry missing from memory tier")
	}
}

// TestEvictedEntryStillOnDisk tests that memory eviction does not drop the
// disk copy.
func TestEvictedEntryStillOnDisk(t *testing.T) {
	c, err := New(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Put("a", []byte("first"))
	c.Put("b", []byte("second")) // evicts a from memory

	got, ok := c.Get("a")
	if !ok || !bytes.Equal(got, []byte("first")) {
		t.Fatalf("evicted entry lost: ok=%v got=%q", ok, got)
	}
}
