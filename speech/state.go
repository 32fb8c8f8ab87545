package speech

// SessionState represents the lifecycle state of a playback session.
type SessionState int

const (
	// StateIdle is the initial state before resolution begins.
	StateIdle SessionState = iota
	// StateResolving means language and voice are being resolved.
	StateResolving
	// StateSpeaking means a backend is producing audio.
	StateSpeaking
	// StatePaused means playback is suspended; the highlight is frozen.
	StatePaused
	// StateResuming means a resume has been requested but not yet
	// acknowledged by the active backend.
	StateResuming
	// StateStopped means the session was cancelled explicitly.
	StateStopped
	// StateEnded means the utterance completed naturally.
	StateEnded
	// StateErrored means the session failed after fallback was exhausted.
	StateErrored
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateResuming:
		return "resuming"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the session. A new Speak call
// may begin immediately from any terminal state without cancellation.
func (s SessionState) Terminal() bool {
	return s == StateStopped || s == StateEnded || s == StateErrored
}

// Machine validates playback session state transitions. Each transition is
// a pure function of (current state, requested state); event routing by
// session identity happens in the Controller.
type Machine struct {
	current     SessionState
	transitions map[SessionState][]SessionState
}

// NewMachine creates a state machine in StateIdle with the valid playback
// transition table.
func NewMachine() *Machine {
	return &Machine{
		current: StateIdle,
		transitions: map[SessionState][]SessionState{
			StateIdle:      {StateResolving, StateStopped},
			StateResolving: {StateSpeaking, StateStopped, StateErrored},
			StateSpeaking:  {StatePaused, StateStopped, StateEnded, StateErrored},
			StatePaused:    {StateResuming, StateStopped},
			StateResuming:  {StateSpeaking, StateStopped, StateErrored},
			// Terminal states have no outgoing transitions.
			StateStopped: {},
			StateEnded:   {},
			StateErrored: {},
		},
	}
}

// Current returns the current state.
func (m *Machine) Current() SessionState { return m.current }

// Transition attempts to move to the given state, reporting whether the
// transition was valid.
func (m *Machine) Transition(to SessionState) bool {
	for _, s := range m.transitions[m.current] {
		if s == to {
			m.current = to
			return true
		}
	}
	return false
}
