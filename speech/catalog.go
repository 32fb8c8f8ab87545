package speech

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// DefaultRetrySchedule is the bounded series of re-enumeration delays used
// when the backend's voice list has not populated yet. The first attempt is
// immediate; later attempts cover slow voice daemons.
var DefaultRetrySchedule = []time.Duration{
	0,
	250 * time.Millisecond,
	time.Second,
	4 * time.Second,
}

// Catalog owns the asynchronous acquisition of the speakable voice list
// from a backend. Voice lists can populate late and offer no reliable
// "ready" signal, so the catalog retries enumeration on a bounded schedule
// and again whenever the backend reports a voices-changed event.
//
// An enumeration yielding an empty list means "not ready yet" and never
// overwrites a previously non-empty snapshot. Never obtaining a non-empty
// list is not an error; dependents must tolerate an empty snapshot
// indefinitely.
type Catalog struct {
	mu       sync.Mutex
	backend  Backend
	snapshot Snapshot
	onChange []func(Snapshot)
	timers   []*time.Timer
	loaded   bool
	closed   bool

	// limiter bounds re-enumeration when a backend fires voices-changed in
	// bursts during startup.
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewCatalog creates a catalog over the given backend. Call Load to begin
// enumeration.
func NewCatalog(backend Backend, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	c := &Catalog{
		backend: backend,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		logger:  logger,
	}
	backend.OnVoicesChanged(c.voicesChanged)
	return c
}

// Load starts the enumeration cycle. It is idempotent and safe to call
// repeatedly; only the first call schedules the retry series.
func (c *Catalog) Load() {
	c.mu.Lock()
	if c.loaded || c.closed {
		c.mu.Unlock()
		return
	}
	c.loaded = true

	for _, delay := range DefaultRetrySchedule[1:] {
		t := time.AfterFunc(delay, func() { c.Reload() })
		c.timers = append(c.timers, t)
	}
	c.mu.Unlock()

	c.Reload()
}

// Reload performs one synchronous enumeration attempt. A non-empty result
// replaces the snapshot wholesale and fires the change callbacks; pending
// retry timers are then cancelled since the catalog has been acquired.
func (c *Catalog) Reload() {
	voices, err := c.backend.Voices()
	if err != nil {
		c.logger.Debug("voice enumeration failed", "backend", c.backend.Name(), "error", err)
		return
	}
	if len(voices) == 0 {
		c.logger.Debug("voice enumeration empty, keeping previous snapshot", "backend", c.backend.Name())
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fresh := make([]Voice, len(voices))
	copy(fresh, voices)
	c.snapshot = Snapshot{Voices: fresh, Seq: c.snapshot.Seq + 1}
	c.cancelTimersLocked()
	snap := c.snapshot
	callbacks := make([]func(Snapshot), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.Unlock()

	c.logger.Debug("voice catalog replaced", "backend", c.backend.Name(), "voices", len(snap.Voices), "seq", snap.Seq)
	for _, fn := range callbacks {
		fn(snap)
	}
}

// Snapshot returns the current catalog snapshot. Consumers must re-fetch
// after change notifications rather than caching voice lists.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// OnChange registers a callback fired after every snapshot replacement.
func (c *Catalog) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Close cancels pending retry timers. Further Load calls are no-ops.
func (c *Catalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelTimersLocked()
}

func (c *Catalog) cancelTimersLocked() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
}

// voicesChanged handles the backend's voices-changed signal.
func (c *Catalog) voicesChanged() {
	if !c.limiter.Allow() {
		c.logger.Debug("voices-changed burst throttled", "backend", c.backend.Name())
		return
	}
	c.Reload()
}
