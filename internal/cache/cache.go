// Package cache stores synthesized audio so repeated utterances skip the
// synthesis subprocess. Entries live in a small in-memory LRU backed by a
// zstd-compressed disk tier that survives restarts.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const diskExtension = ".pcm.zst"

// Stats holds cache performance counters.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a two-tier audio cache. The memory tier holds up to maxEntries
// uncompressed buffers with LRU eviction; the disk tier, when a directory
// is configured, holds every entry ever written, compressed.
type Cache struct {
	dir        string
	maxEntries int

	mu    sync.Mutex
	items map[string]*list.Element
	lru   *list.List
	stats Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type entry struct {
	key  string
	data []byte
}

// New creates a cache. An empty dir disables the disk tier.
func New(dir string, maxEntries int) (*Cache, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		dir:        dir,
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		var err error
		c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		c.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
	}
	return c, nil
}

// Key derives a stable cache key from the synthesis parameters. Any
// parameter that changes the audio must be part of the key.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

// Get returns the cached audio for key, consulting memory first, then
// disk. A disk hit is promoted back into the memory tier.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		data := elem.Value.(*entry).data
		c.stats.Hits++
		c.mu.Unlock()
		return data, true
	}
	c.mu.Unlock()

	data, ok := c.readDisk(key)
	if !ok {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.insertLocked(key, data)
	c.stats.Hits++
	c.mu.Unlock()
	return data, true
}

// Put stores audio under key in both tiers. Disk write failures are
// returned but leave the memory tier populated.
func (c *Cache) Put(key string, data []byte) error {
	c.mu.Lock()
	c.insertLocked(key, data)
	c.mu.Unlock()

	return c.writeDisk(key, data)
}

// Stats returns a copy of the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.items)
	return s
}

func (c *Cache) insertLocked(key string, data []byte) {
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*entry).data = data
		return
	}
	c.items[key] = c.lru.PushFront(&entry{key: key, data: data})
	for len(c.items) > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
		c.stats.Evictions++
	}
}

func (c *Cache) readDisk(key string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	compressed, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		// Corrupt entry; drop it so the next Put rewrites it.
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return data, true
}

func (c *Cache) writeDisk(key string, data []byte) error {
	if c.dir == "" {
		return nil
	}
	compressed := c.encoder.EncodeAll(data, nil)
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+diskExtension)
}

// Close releases the compressor resources.
func (c *Cache) Close() {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
