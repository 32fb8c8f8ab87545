package speech

import "errors"

// Common errors for the speech subsystem.
var (
	// ErrBackendUnavailable means no speech capability exists at all. It is
	// returned from Speak rather than swallowed so callers can tell the user.
	ErrBackendUnavailable = errors.New("no speech backend available")

	// ErrNoText means the request contained no speakable text.
	ErrNoText = errors.New("no text provided")

	// ErrNoSession means an operation needed an active playback session.
	ErrNoSession = errors.New("no active playback session")

	// ErrInvalidTransition means a lifecycle operation was requested from a
	// state that does not allow it.
	ErrInvalidTransition = errors.New("invalid playback state transition")

	// ErrUtteranceFailed means both backends refused to start the utterance.
	ErrUtteranceFailed = errors.New("utterance failed on all backends")

	// ErrPauseUnsupported means the active backend cannot pause.
	ErrPauseUnsupported = errors.New("pause not supported by active backend")
)
