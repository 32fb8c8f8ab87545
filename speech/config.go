package speech

import (
	"fmt"
	"time"
)

// Config contains all speech subsystem configuration options.
type Config struct {
	// Global settings
	Enabled         bool   `yaml:"enabled" env:"LECTOR_SPEECH_ENABLED" envDefault:"true"`
	DefaultLanguage string `yaml:"default_language" env:"LECTOR_SPEECH_DEFAULT_LANGUAGE" envDefault:"en"`
	VoiceName       string `yaml:"voice" env:"LECTOR_SPEECH_VOICE"`

	// Delivery settings
	Rate   float64 `yaml:"rate" env:"LECTOR_SPEECH_RATE" envDefault:"1.0"`
	Pitch  float64 `yaml:"pitch" env:"LECTOR_SPEECH_PITCH" envDefault:"1.0"`
	Volume float64 `yaml:"volume" env:"LECTOR_SPEECH_VOLUME" envDefault:"1.0"`

	// Highlight settings
	HighlightEnabled bool          `yaml:"highlight_enabled" env:"LECTOR_SPEECH_HIGHLIGHT_ENABLED" envDefault:"true"`
	WordsPerMinute   float64       `yaml:"words_per_minute" env:"LECTOR_SPEECH_WORDS_PER_MINUTE" envDefault:"180"`
	MinTick          time.Duration `yaml:"min_tick" env:"LECTOR_SPEECH_MIN_TICK" envDefault:"80ms"`
	TrailWindow      int           `yaml:"trail_window" env:"LECTOR_SPEECH_TRAIL_WINDOW" envDefault:"3"`

	// Backend-specific configurations
	Espeak EspeakConfig `yaml:"espeak"`
	Piper  PiperConfig  `yaml:"piper"`
}

// EspeakConfig contains espeak backend specific settings.
type EspeakConfig struct {
	Binary  string        `yaml:"binary" env:"LECTOR_SPEECH_ESPEAK_BINARY"`
	Timeout time.Duration `yaml:"timeout" env:"LECTOR_SPEECH_ESPEAK_TIMEOUT" envDefault:"5m"`
}

// PiperConfig contains piper backend specific settings.
type PiperConfig struct {
	Binary     string        `yaml:"binary" env:"LECTOR_SPEECH_PIPER_BINARY" envDefault:"piper"`
	Model      string        `yaml:"model" env:"LECTOR_SPEECH_PIPER_MODEL" envDefault:"en_US-lessac-medium"`
	ModelPath  string        `yaml:"model_path" env:"LECTOR_SPEECH_PIPER_MODEL_PATH"`
	DataDir    string        `yaml:"data_dir" env:"LECTOR_SPEECH_PIPER_DATA_DIR"`
	SampleRate int           `yaml:"sample_rate" env:"LECTOR_SPEECH_PIPER_SAMPLE_RATE" envDefault:"22050"`
	Timeout    time.Duration `yaml:"timeout" env:"LECTOR_SPEECH_PIPER_TIMEOUT" envDefault:"30s"`
	CacheDir   string        `yaml:"cache_dir" env:"LECTOR_SPEECH_PIPER_CACHE_DIR"`
	CacheSize  int           `yaml:"cache_size" env:"LECTOR_SPEECH_PIPER_CACHE_SIZE" envDefault:"64"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLanguage: "en",

		Rate:   1.0,
		Pitch:  1.0,
		Volume: 1.0,

		HighlightEnabled: true,
		WordsPerMinute:   180,
		MinTick:          80 * time.Millisecond,
		TrailWindow:      3,

		Espeak: DefaultEspeakConfig(),
		Piper:  DefaultPiperConfig(),
	}
}

// DefaultEspeakConfig returns default espeak configuration. An empty Binary
// means "probe for espeak-ng, then espeak, on PATH".
func DefaultEspeakConfig() EspeakConfig {
	return EspeakConfig{
		Timeout: 5 * time.Minute,
	}
}

// DefaultPiperConfig returns default piper configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:     "piper",
		Model:      "en_US-lessac-medium",
		SampleRate: 22050,
		Timeout:    30 * time.Second,
		CacheSize:  64,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("rate must be between %.1f and %.1f, got %.2f", MinRate, MaxRate, c.Rate)
	}
	if c.Pitch < MinPitch || c.Pitch > MaxPitch {
		return fmt.Errorf("pitch must be between %.1f and %.1f, got %.2f", MinPitch, MaxPitch, c.Pitch)
	}
	if c.Volume < MinVolume || c.Volume > MaxVolume {
		return fmt.Errorf("volume must be between %.1f and %.1f, got %.2f", MinVolume, MaxVolume, c.Volume)
	}
	if c.WordsPerMinute <= 0 {
		return fmt.Errorf("words per minute must be positive, got %.1f", c.WordsPerMinute)
	}
	if c.MinTick <= 0 {
		return fmt.Errorf("minimum tick must be positive, got %s", c.MinTick)
	}
	if c.TrailWindow < 1 {
		return fmt.Errorf("trail window must be at least 1, got %d", c.TrailWindow)
	}
	if c.Piper.SampleRate != 16000 && c.Piper.SampleRate != 22050 && c.Piper.SampleRate != 44100 {
		return fmt.Errorf("invalid piper sample rate %d (expected 16000, 22050 or 44100)", c.Piper.SampleRate)
	}
	if c.Piper.CacheSize < 1 {
		return fmt.Errorf("piper cache size must be at least 1, got %d", c.Piper.CacheSize)
	}
	return nil
}

// Highlighter derives the highlight cursor tuning from the config.
func (c Config) Highlighter() HighlighterConfig {
	return HighlighterConfig{
		WordsPerMinute: c.WordsPerMinute,
		MinTick:        c.MinTick,
		TrailWindow:    c.TrailWindow,
	}
}

// NewRequest builds a playback request for the given text with the
// configured delivery settings copied in. The request does not observe
// later config changes.
func (c Config) NewRequest(text string) Request {
	return Request{
		Text:      text,
		VoiceName: c.VoiceName,
		Rate:      c.Rate,
		Pitch:     c.Pitch,
		Volume:    c.Volume,
	}.Normalized()
}
