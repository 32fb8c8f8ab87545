package speech

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// HighlightEventKind classifies highlight cursor transitions.
type HighlightEventKind int

const (
	// TokenActivated marks a token as the current spoken word.
	TokenActivated HighlightEventKind = iota
	// TokenDeactivated removes a token that left the trailing window.
	TokenDeactivated
	// HighlightCleared removes every active mark at once.
	HighlightCleared
)

// HighlightEvent is one cursor transition. The core only emits token-index
// transitions; mapping them onto rendered output is the job of a UI
// adapter.
type HighlightEvent struct {
	Kind  HighlightEventKind
	Index int
	Token Token
}

// HighlighterConfig tunes the timing-estimated cursor.
type HighlighterConfig struct {
	// WordsPerMinute is the assumed speaking pace at 1.0x rate.
	WordsPerMinute float64
	// MinTick clamps the per-word interval so high rates cannot produce
	// runaway timer frequency.
	MinTick time.Duration
	// TrailWindow is how many tokens behind the cursor stay marked, kept
	// visible for reading continuity instead of vanishing immediately.
	TrailWindow int
}

// DefaultHighlighterConfig returns the default cursor tuning.
func DefaultHighlighterConfig() HighlighterConfig {
	return HighlighterConfig{
		WordsPerMinute: 180,
		MinTick:        80 * time.Millisecond,
		TrailWindow:    3,
	}
}

// Highlighter advances a visual cursor through word tokens while playback
// is active. Neither backend reports per-word progress, so the cursor is a
// wall-clock estimate: the per-word interval is 60/(wordsPerMinute*rate)
// seconds, and the cursor position is recomputed from elapsed speaking
// time on every tick rather than incremented blindly. Drift against the
// real audio is an accepted, bounded inaccuracy.
type Highlighter struct {
	mu     sync.Mutex
	cfg    HighlighterConfig
	notify func(HighlightEvent)
	logger *log.Logger

	tokens      []Token
	interval    time.Duration
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	paused      bool
	index       int // last activated token, -1 before the first tick
	active      bool
	stopCh      chan struct{}
}

// NewHighlighter creates a highlighter that reports cursor transitions to
// notify. A nil notify discards events.
func NewHighlighter(cfg HighlighterConfig, notify func(HighlightEvent), logger *log.Logger) *Highlighter {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = DefaultHighlighterConfig().WordsPerMinute
	}
	if cfg.MinTick <= 0 {
		cfg.MinTick = DefaultHighlighterConfig().MinTick
	}
	if cfg.TrailWindow < 1 {
		cfg.TrailWindow = DefaultHighlighterConfig().TrailWindow
	}
	if notify == nil {
		notify = func(HighlightEvent) {}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Highlighter{cfg: cfg, notify: notify, logger: logger, index: -1}
}

// Start begins advancing the cursor through tokens at the given rate. Any
// previous cursor is cleared first, so no stale marks survive across
// sessions.
func (h *Highlighter) Start(tokens []Token, rate float64) {
	h.Stop()

	if len(tokens) == 0 {
		return
	}
	if rate <= 0 {
		rate = 1.0
	}

	interval := time.Duration(60 / (h.cfg.WordsPerMinute * rate) * float64(time.Second))
	if interval < h.cfg.MinTick {
		interval = h.cfg.MinTick
	}

	h.mu.Lock()
	h.tokens = tokens
	h.interval = interval
	h.startedAt = time.Now()
	h.pausedTotal = 0
	h.paused = false
	h.index = -1
	h.active = true
	h.stopCh = make(chan struct{})
	stopCh := h.stopCh
	h.mu.Unlock()

	h.logger.Debug("highlight cursor started", "tokens", len(tokens), "interval", interval)
	go h.run(stopCh, interval)
}

// Stop halts the cursor and clears all active marks. It is idempotent and
// is called when the owning session ends, errors, is stopped, or is
// superseded.
func (h *Highlighter) Stop() {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	h.active = false
	close(h.stopCh)
	h.tokens = nil
	h.index = -1
	h.mu.Unlock()

	h.notify(HighlightEvent{Kind: HighlightCleared, Index: -1})
}

// Pause freezes the cursor without clearing marks.
func (h *Highlighter) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active || h.paused {
		return
	}
	h.paused = true
	h.pausedAt = time.Now()
}

// Resume continues the cursor from where it froze, not from the start.
func (h *Highlighter) Resume() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active || !h.paused {
		return
	}
	h.paused = false
	h.pausedTotal += time.Since(h.pausedAt)
}

// Active reports whether the cursor is currently running.
func (h *Highlighter) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Index returns the last activated token index, or -1.
func (h *Highlighter) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index
}

func (h *Highlighter) run(stopCh chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if done := h.tick(stopCh); done {
				return
			}
		}
	}
}

// tick recomputes the cursor from elapsed speaking time and emits the
// activations and trailing deactivations it implies. Returns true once the
// token sequence is exhausted; the final window stays marked until Stop
// clears it alongside the session.
func (h *Highlighter) tick(stopCh chan struct{}) bool {
	h.mu.Lock()
	if !h.active || h.stopCh != stopCh {
		h.mu.Unlock()
		return true
	}
	if h.paused {
		h.mu.Unlock()
		return false
	}

	elapsed := time.Since(h.startedAt) - h.pausedTotal
	target := int(elapsed / h.interval)
	if target >= len(h.tokens) {
		target = len(h.tokens) - 1
	}

	var events []HighlightEvent
	for h.index < target {
		h.index++
		events = append(events, HighlightEvent{Kind: TokenActivated, Index: h.index, Token: h.tokens[h.index]})
		if old := h.index - h.cfg.TrailWindow; old >= 0 {
			events = append(events, HighlightEvent{Kind: TokenDeactivated, Index: old, Token: h.tokens[old]})
		}
	}
	exhausted := h.index >= len(h.tokens)-1
	// Emitted under the lock: once Stop has cleared the cursor, no tick
	// can deliver activations computed before the clear.
	for _, ev := range events {
		h.notify(ev)
	}
	h.mu.Unlock()
	return exhausted
}
