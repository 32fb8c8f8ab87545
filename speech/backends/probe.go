// Package backends assembles the speech backend set. Capability probing
// happens once at startup; the reader never re-probes mid-session.
package backends

import (
	"github.com/charmbracelet/log"

	"github.com/lectorapp/lector/speech"
	"github.com/lectorapp/lector/speech/backends/espeak"
	"github.com/lectorapp/lector/speech/backends/piper"
)

// Setup is the probed backend set handed to the controller. Primary or
// Fallback may be unavailable; the controller tolerates either as long as
// one can speak.
type Setup struct {
	Primary  *espeak.Backend
	Fallback *piper.Backend
	Catalog  *speech.Catalog
}

// Probe detects which synthesizers this machine has and builds the voice
// catalog over the best one. Call Catalog.Load afterwards to begin voice
// enumeration.
func Probe(cfg speech.Config, logger *log.Logger) *Setup {
	if logger == nil {
		logger = log.Default()
	}

	s := &Setup{
		Primary:  espeak.New(cfg.Espeak, logger),
		Fallback: piper.New(cfg.Piper, logger),
	}

	// The catalog enumerates from the backend that will actually speak
	// first, so resolved voices match what playback uses.
	var enumerate speech.Backend = s.Primary
	if !s.Primary.Available() && s.Fallback.Available() {
		enumerate = s.Fallback
	}
	s.Catalog = speech.NewCatalog(enumerate, logger)

	logger.Info("speech backends probed",
		"espeak", s.Primary.Available(),
		"piper", s.Fallback.Available())
	return s
}

// Speakable reports whether at least one backend can produce audio.
func (s *Setup) Speakable() bool {
	return s.Primary.Available() || s.Fallback.Available()
}

// Close tears down the backend resources.
func (s *Setup) Close() {
	s.Catalog.Close()
	s.Primary.Cancel()
	s.Fallback.Close()
}
