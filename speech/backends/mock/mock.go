// Package mock provides a scriptable in-memory backend for tests and for
// running the reader on machines with no synthesizer installed.
package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/lectorapp/lector/speech"
)

// ErrScriptedFailure is the error injected by the failure knobs.
var ErrScriptedFailure = errors.New("scripted failure")

// Config scripts the backend's behavior.
type Config struct {
	// Voices is the enumeration result. Nil means an empty catalog.
	Voices []speech.Voice

	// VoicesErr, when set, makes enumeration fail.
	VoicesErr error

	// StartDelay is how long after Speak the Started event fires.
	StartDelay time.Duration

	// Duration is how long after Started the Ended event fires.
	Duration time.Duration

	// FailSpeak makes Speak return an error synchronously.
	FailSpeak bool

	// FailBeforeStart emits an Error event instead of Started.
	FailBeforeStart bool

	// FailAfterStart emits Started and then an Error instead of Ended.
	FailAfterStart bool

	// Unavailable makes the backend report unavailable.
	Unavailable bool
}

// Backend is a fake speech backend driven entirely by timers.
type Backend struct {
	name string

	mu            sync.Mutex
	cfg           Config
	gen           uint64
	paused        bool
	spoken        []speech.Utterance
	cancels       int
	voicesChanged func()
}

// New creates a mock backend with the given name and script.
func New(name string, cfg Config) *Backend {
	if cfg.StartDelay == 0 {
		cfg.StartDelay = time.Millisecond
	}
	if cfg.Duration == 0 {
		cfg.Duration = 10 * time.Millisecond
	}
	return &Backend{name: name, cfg: cfg}
}

// Name returns the configured backend name.
func (b *Backend) Name() string { return b.name }

// Available reports the scripted availability.
func (b *Backend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.cfg.Unavailable
}

// Voices returns the scripted voice list.
func (b *Backend) Voices() ([]speech.Voice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.VoicesErr != nil {
		return nil, b.cfg.VoicesErr
	}
	out := make([]speech.Voice, len(b.cfg.Voices))
	copy(out, b.cfg.Voices)
	return out, nil
}

// Speak plays the scripted event sequence against notify.
func (b *Backend) Speak(utt speech.Utterance, notify func(speech.Event)) error {
	b.mu.Lock()
	if b.cfg.FailSpeak {
		b.mu.Unlock()
		return ErrScriptedFailure
	}
	b.gen++
	gen := b.gen
	b.paused = false
	b.spoken = append(b.spoken, utt)
	cfg := b.cfg
	b.mu.Unlock()

	go func() {
		time.Sleep(cfg.StartDelay)
		if b.stale(gen) {
			return
		}
		if cfg.FailBeforeStart {
			notify(speech.Event{Kind: speech.EventError, Utterance: utt.ID, Err: ErrScriptedFailure})
			return
		}
		notify(speech.Event{Kind: speech.EventStarted, Utterance: utt.ID})

		time.Sleep(cfg.Duration)
		if b.stale(gen) {
			return
		}
		if cfg.FailAfterStart {
			notify(speech.Event{Kind: speech.EventError, Utterance: utt.ID, Err: ErrScriptedFailure})
			return
		}
		notify(speech.Event{Kind: speech.EventEnded, Utterance: utt.ID})
	}()
	return nil
}

func (b *Backend) stale(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen != gen
}

// Cancel invalidates the in-flight utterance; its remaining events never
// fire.
func (b *Backend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.cancels++
}

// Pause records the pause.
func (b *Backend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = true
	return nil
}

// Resume records the resume.
func (b *Backend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
	return nil
}

// OnVoicesChanged registers the voices-changed callback.
func (b *Backend) OnVoicesChanged(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voicesChanged = fn
}

// SetVoices replaces the scripted voice list and fires the voices-changed
// callback, emulating a late-populating catalog.
func (b *Backend) SetVoices(voices []speech.Voice) {
	b.mu.Lock()
	b.cfg.Voices = voices
	b.cfg.VoicesErr = nil
	fn := b.voicesChanged
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetUnavailable flips the scripted availability.
func (b *Backend) SetUnavailable(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Unavailable = v
}

// Spoken returns every utterance Speak accepted, in order.
func (b *Backend) Spoken() []speech.Utterance {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]speech.Utterance, len(b.spoken))
	copy(out, b.spoken)
	return out
}

// Cancels returns how many times Cancel was called.
func (b *Backend) Cancels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancels
}

// Paused reports whether the backend is currently paused.
func (b *Backend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}
