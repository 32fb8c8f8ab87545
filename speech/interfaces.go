// Package speech converts document text into spoken audio across multiple
// backends and drives a best-effort word highlight while audio plays.
package speech

// Voice identifies a single speakable voice offered by a backend.
//
// Handle is a backend-opaque identifier (a file name for espeak, a model
// path for piper). Consumers hold references to Voice values inside a
// Snapshot; they must not copy them across snapshot replacements.
type Voice struct {
	Name   string // unique within one backend instance
	Locale string // BCP 47-ish tag, e.g. "en-US"; may be empty
	Handle string // backend-opaque handle
}

// Snapshot is an immutable ordered view of the voice catalog. It is
// replaced wholesale on each successful enumeration; the Voices slice must
// never be mutated in place.
type Snapshot struct {
	Voices []Voice
	Seq    uint64 // increments with every replacement
}

// Empty reports whether the snapshot contains no voices.
func (s Snapshot) Empty() bool { return len(s.Voices) == 0 }

// EventKind classifies asynchronous backend notifications.
type EventKind int

const (
	// EventStarted means the backend has actually begun producing audio.
	EventStarted EventKind = iota
	// EventEnded means the utterance completed naturally.
	EventEnded
	// EventError means the utterance failed, before or after starting.
	EventError
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is an asynchronous notification from a backend, keyed to the
// utterance it refers to. Late events for superseded utterances are
// discarded by the controller.
type Event struct {
	Kind      EventKind
	Utterance uint64
	Err       error
}

// Utterance is one speech-synthesis request handed to a backend with fixed
// voice, rate, pitch and volume.
type Utterance struct {
	ID     uint64
	Text   string
	Voice  *Voice // nil means "let the backend pick its default"
	Locale string // resolved locale tag; may be empty
	Rate   float64
	Pitch  float64
	Volume float64
}

// VoiceName returns the resolved voice name, or "" when the backend's
// default voice applies.
func (u Utterance) VoiceName() string {
	if u.Voice == nil {
		return ""
	}
	return u.Voice.Name
}

// Backend is the capability interface over an underlying speech provider.
// Implementations are selected once at startup via capability probing and
// injected into the Controller.
//
// Speak must be non-blocking: it either returns an error immediately (the
// utterance never started) or arranges for notify to receive Started and
// then exactly one of Ended or Error. Cancel is cooperative; a backend that
// has been cancelled must not emit an Error for the killed utterance.
type Backend interface {
	// Name returns a short identifier for logging.
	Name() string

	// Available reports whether the backend can speak right now.
	Available() bool

	// Voices enumerates the backend's voices. An empty list is a valid
	// answer meaning "not ready yet", not an error.
	Voices() ([]Voice, error)

	// Speak starts synthesis of one utterance.
	Speak(utt Utterance, notify func(Event)) error

	// Cancel stops the in-flight utterance, if any.
	Cancel()

	// Pause suspends the in-flight utterance.
	Pause() error

	// Resume continues a paused utterance.
	Resume() error

	// OnVoicesChanged registers a callback for backends that can signal
	// voice list changes. Backends without such a signal ignore it.
	OnVoicesChanged(fn func())
}

// BackendRole names which backend a session is using.
type BackendRole int

const (
	// RoleNone means no backend has been engaged yet.
	RoleNone BackendRole = iota
	// RolePrimary is the richer, language-aware manager backend.
	RolePrimary
	// RoleFallback is the direct low-level synthesis backend.
	RoleFallback
)

// String returns the string representation of the backend role.
func (r BackendRole) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleFallback:
		return "fallback"
	default:
		return "none"
	}
}
