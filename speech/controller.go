package speech

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// SessionEvent notifies consumers of playback lifecycle transitions.
// Callers always receive a completion, an explicit rejection from Speak, or
// an error event distinguishable from completion; never silent failure.
type SessionEvent struct {
	Session  uint64
	State    SessionState
	Backend  BackendRole
	Language string
	Voice    string // resolved voice name, if any
	Err      error
}

// session is the single in-flight unit of playback work. At most one
// session exists at a time; starting a new one terminates any prior one.
type session struct {
	id       uint64
	request  Request
	language string
	voice    *Voice
	role     BackendRole
	machine  *Machine
	started  bool // the active backend acknowledged the start
	fellBack bool // the one permitted fallback attempt has been spent
}

// backendEvent pairs a backend notification with the session identity it
// was issued under.
type backendEvent struct {
	session uint64
	role    BackendRole
	event   Event
}

// Controller orchestrates one logical utterance at a time across the
// primary (language-aware manager) and fallback (direct synthesis)
// backends. Backend callbacks are the only suspension points; no operation
// blocks the caller. Ordering races between "stop requested" and late
// backend events are resolved by session identity: an event is honored
// only if it references the still-current session and backend role.
type Controller struct {
	mu        sync.Mutex
	primary   Backend
	fallback  Backend
	catalog   *Catalog
	detector  *Detector
	resolver  *Resolver
	highlight *Highlighter
	profiles  []LanguageProfile
	logger    *log.Logger

	highlightOn bool
	events      chan backendEvent

	session *session
	lastID  uint64
	onEvent func(SessionEvent)
}

// NewController wires the playback controller. Either backend may be nil
// when probing found no such capability; Speak reports
// ErrBackendUnavailable only when both are missing or unavailable.
func NewController(primary, fallback Backend, catalog *Catalog, cfg Config, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	profiles := DefaultProfiles()
	c := &Controller{
		primary:     primary,
		fallback:    fallback,
		catalog:     catalog,
		detector:    NewDetector(cfg.DefaultLanguage),
		resolver:    NewResolver(profiles, logger),
		profiles:    profiles,
		logger:      logger,
		highlightOn: cfg.HighlightEnabled,
		events:      make(chan backendEvent, 64),
	}
	c.highlight = NewHighlighter(cfg.Highlighter(), nil, logger)
	go c.dispatch()
	return c
}

// dispatch serializes backend notifications onto a single goroutine.
// Backends may invoke notify from any stack, including the caller's own
// inside Speak; routing events through the channel keeps handleBackendEvent
// off stacks that already hold the controller lock.
func (c *Controller) dispatch() {
	for be := range c.events {
		c.handleBackendEvent(be.session, be.role, be.event)
	}
}

// OnEvent registers the lifecycle event callback. The callback may be
// invoked from backend goroutines and must not call back into the
// controller synchronously.
func (c *Controller) OnEvent(fn func(SessionEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// OnHighlight registers the word highlight callback, receiving token index
// transitions while playback is active.
func (c *Controller) OnHighlight(fn func(HighlightEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highlight.notify = fn
}

// Speak starts playback of one request, superseding any active session.
// Rejections (no text, no backend) are returned synchronously; everything
// after a successful start arrives through the event callback.
func (c *Controller) Speak(req Request) error {
	req = req.Normalized()
	if strings.TrimSpace(req.Text) == "" {
		return ErrNoText
	}

	c.mu.Lock()
	if !c.backendPresent() {
		c.mu.Unlock()
		return ErrBackendUnavailable
	}

	var events []SessionEvent
	events = append(events, c.supersedeLocked()...)

	c.lastID++
	s := &session{id: c.lastID, request: req, machine: NewMachine(), role: RoleNone}
	c.session = s
	s.machine.Transition(StateResolving)
	events = append(events, c.sessionEventLocked(s, nil))

	s.language = req.Language
	if s.language == "" {
		s.language = c.detector.Detect(req.Text)
	}

	snap := c.catalog.Snapshot()
	if snap.Empty() {
		// The voice list may have populated since the last retry; give it
		// one synchronous chance before resolving without a voice.
		c.catalog.Reload()
		snap = c.catalog.Snapshot()
	}
	s.voice = c.resolver.Resolve(s.language, snap, req.VoiceName)

	utt := Utterance{
		ID:     s.id,
		Text:   req.Text,
		Voice:  s.voice,
		Locale: c.localeFor(s),
		Rate:   req.Rate,
		Pitch:  req.Pitch,
		Volume: req.Volume,
	}

	first, role := c.primary, RolePrimary
	if first == nil || !first.Available() {
		first, role = c.fallback, RoleFallback
		s.fellBack = true
	}

	err := c.startLocked(s, first, role, utt)
	if err != nil && role == RolePrimary {
		c.logger.Warn("primary backend refused utterance, trying fallback",
			"session", s.id, "error", err)
		s.fellBack = true
		if c.fallback != nil && c.fallback.Available() {
			err = c.startLocked(s, c.fallback, RoleFallback, utt)
		}
	}
	if err != nil {
		s.machine.Transition(StateErrored)
		events = append(events, c.sessionEventLocked(s, err))
		c.mu.Unlock()
		c.fire(events)
		return fmt.Errorf("%w: %v", ErrUtteranceFailed, err)
	}

	events = append(events, c.sessionEventLocked(s, nil))
	if c.highlightOn {
		// Started under the lock so a terminal backend event cannot land
		// between the start of playback and the start of the cursor.
		c.highlight.Start(Words(req.Text), req.Rate)
	}
	c.mu.Unlock()

	c.fire(events)
	return nil
}

// Stop cancels the active session, whichever backend it is on, and tears
// down the highlight immediately. Calling it with no active session is a
// no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.session
	if s == nil || s.machine.Current().Terminal() {
		c.mu.Unlock()
		return
	}
	s.machine.Transition(StateStopped)
	if b := c.backendFor(s.role); b != nil {
		b.Cancel()
	}
	c.highlight.Stop()
	ev := c.sessionEventLocked(s, nil)
	c.mu.Unlock()

	c.fire([]SessionEvent{ev})
}

// Pause suspends the active session. Valid only while speaking; the word
// highlight freezes rather than clearing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	s := c.session
	if s == nil || s.machine.Current() != StateSpeaking {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	b := c.backendFor(s.role)
	if b == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if err := b.Pause(); err != nil {
		c.mu.Unlock()
		return err
	}
	s.machine.Transition(StatePaused)
	c.highlight.Pause()
	ev := c.sessionEventLocked(s, nil)
	c.mu.Unlock()

	c.fire([]SessionEvent{ev})
	return nil
}

// Resume continues a paused session; the highlight cursor picks up where
// it froze instead of restarting.
func (c *Controller) Resume() error {
	c.mu.Lock()
	s := c.session
	if s == nil || s.machine.Current() != StatePaused {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	s.machine.Transition(StateResuming)
	b := c.backendFor(s.role)
	err := ErrNoSession
	if b != nil {
		err = b.Resume()
	}
	var ev SessionEvent
	if err != nil {
		s.machine.Transition(StateErrored)
		c.highlight.Stop()
		ev = c.sessionEventLocked(s, err)
		c.mu.Unlock()
		c.fire([]SessionEvent{ev})
		return err
	}
	s.machine.Transition(StateSpeaking)
	c.highlight.Resume()
	ev = c.sessionEventLocked(s, nil)
	c.mu.Unlock()

	c.fire([]SessionEvent{ev})
	return nil
}

// IsSpeaking reports whether a session is actively producing audio.
func (c *Controller) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return false
	}
	st := c.session.machine.Current()
	return st == StateSpeaking || st == StateResuming
}

// State returns the state of the current session, or StateIdle when no
// session has ever been started.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateIdle
	}
	return c.session.machine.Current()
}

// CurrentLanguage returns the resolved language of the current session, or
// the default detection language when idle.
func (c *Controller) CurrentLanguage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.language != "" {
		return c.session.language
	}
	return c.detector.Default()
}

// AvailableLanguages returns the codes of all configured language
// profiles, in detection priority order.
func (c *Controller) AvailableLanguages() []string {
	codes := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		codes[i] = p.Code
	}
	return codes
}

// AvailableVoicesForLanguage returns the catalog voices whose locale
// matches the given language code's 2-letter prefix.
func (c *Controller) AvailableVoicesForLanguage(code string) []Voice {
	snap := c.catalog.Snapshot()
	prefix := primarySubtag(code)
	var voices []Voice
	for _, v := range snap.Voices {
		if v.Locale != "" && primarySubtag(v.Locale) == prefix {
			voices = append(voices, v)
		}
	}
	return voices
}

// Catalog exposes the voice catalog for consumers that list all voices.
func (c *Controller) Catalog() *Catalog { return c.catalog }

// supersedeLocked cancels the current session, if it is still live, so a
// new one can start. Returns the events to fire after unlock.
func (c *Controller) supersedeLocked() []SessionEvent {
	s := c.session
	if s == nil || s.machine.Current().Terminal() {
		return nil
	}
	s.machine.Transition(StateStopped)
	if b := c.backendFor(s.role); b != nil {
		b.Cancel()
	}
	c.highlight.Stop()
	c.logger.Debug("session superseded", "session", s.id)
	return []SessionEvent{c.sessionEventLocked(s, nil)}
}

// startLocked issues the speak call on one backend. On success the session
// is in StateSpeaking with its role recorded.
func (c *Controller) startLocked(s *session, b Backend, role BackendRole, utt Utterance) error {
	if b == nil {
		return ErrBackendUnavailable
	}
	sid := s.id
	notify := func(ev Event) { c.events <- backendEvent{session: sid, role: role, event: ev} }
	if err := b.Speak(utt, notify); err != nil {
		return err
	}
	s.role = role
	if s.machine.Current() != StateSpeaking {
		s.machine.Transition(StateSpeaking)
	}
	c.logger.Debug("utterance started", "session", s.id, "backend", b.Name(),
		"language", s.language, "voice", utt.VoiceName())
	return nil
}

// handleBackendEvent routes asynchronous backend notifications. Events for
// superseded sessions or stale backend roles are dropped: a late "ended"
// from an already-cancelled backend must not restart state.
func (c *Controller) handleBackendEvent(sid uint64, role BackendRole, ev Event) {
	c.mu.Lock()
	s := c.session
	if s == nil || s.id != sid || s.role != role {
		c.mu.Unlock()
		c.logger.Debug("dropping stale backend event", "session", sid, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case EventStarted:
		s.started = true
		c.mu.Unlock()

	case EventEnded:
		if !s.machine.Transition(StateEnded) {
			c.mu.Unlock()
			return
		}
		c.highlight.Stop()
		sev := c.sessionEventLocked(s, nil)
		c.mu.Unlock()
		c.fire([]SessionEvent{sev})

	case EventError:
		if !s.started && role == RolePrimary && !s.fellBack {
			// The primary never actually began speaking: one fallback
			// attempt with the same resolved voice and language.
			s.fellBack = true
			if c.fallback != nil && c.fallback.Available() {
				utt := c.utteranceLocked(s)
				if err := c.startLocked(s, c.fallback, RoleFallback, utt); err == nil {
					c.logger.Warn("primary start failed, fallback engaged",
						"session", s.id, "error", ev.Err)
					if c.highlightOn {
						// The fallback restarts the audio, so the
						// highlight estimate restarts with it.
						c.highlight.Start(Words(s.request.Text), s.request.Rate)
					}
					c.mu.Unlock()
					return
				}
			}
		}
		if !s.machine.Transition(StateErrored) {
			c.mu.Unlock()
			return
		}
		c.highlight.Stop()
		sev := c.sessionEventLocked(s, ev.Err)
		c.mu.Unlock()
		c.fire([]SessionEvent{sev})
	}
}

func (c *Controller) utteranceLocked(s *session) Utterance {
	return Utterance{
		ID:     s.id,
		Text:   s.request.Text,
		Voice:  s.voice,
		Locale: c.localeFor(s),
		Rate:   s.request.Rate,
		Pitch:  s.request.Pitch,
		Volume: s.request.Volume,
	}
}

// localeFor derives the utterance locale: the resolved voice's own locale
// when it has one, else the profile's canonical tag for the session
// language, else the bare language code.
func (c *Controller) localeFor(s *session) string {
	if s.voice != nil && s.voice.Locale != "" {
		return s.voice.Locale
	}
	for _, p := range c.profiles {
		if p.Code == s.language {
			return p.Canonical
		}
	}
	return s.language
}

func (c *Controller) backendPresent() bool {
	if c.primary != nil && c.primary.Available() {
		return true
	}
	return c.fallback != nil && c.fallback.Available()
}

func (c *Controller) backendFor(role BackendRole) Backend {
	switch role {
	case RolePrimary:
		return c.primary
	case RoleFallback:
		return c.fallback
	default:
		return nil
	}
}

func (c *Controller) sessionEventLocked(s *session, err error) SessionEvent {
	voice := ""
	if s.voice != nil {
		voice = s.voice.Name
	}
	return SessionEvent{
		Session:  s.id,
		State:    s.machine.Current(),
		Backend:  s.role,
		Language: s.language,
		Voice:    voice,
		Err:      err,
	}
}

func (c *Controller) fire(events []SessionEvent) {
	c.mu.Lock()
	fn := c.onEvent
	c.mu.Unlock()
	if fn == nil {
		return
	}
	for _, ev := range events {
		fn(ev)
	}
}
