package speech

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from Viper, layering set
// keys over the defaults.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("speech.enabled") {
		cfg.Enabled = viper.GetBool("speech.enabled")
	}
	if viper.IsSet("speech.default_language") {
		cfg.DefaultLanguage = viper.GetString("speech.default_language")
	}
	if viper.IsSet("speech.voice") {
		cfg.VoiceName = viper.GetString("speech.voice")
	}

	if viper.IsSet("speech.rate") {
		cfg.Rate = viper.GetFloat64("speech.rate")
	}
	if viper.IsSet("speech.pitch") {
		cfg.Pitch = viper.GetFloat64("speech.pitch")
	}
	if viper.IsSet("speech.volume") {
		cfg.Volume = viper.GetFloat64("speech.volume")
	}

	if viper.IsSet("speech.highlight_enabled") {
		cfg.HighlightEnabled = viper.GetBool("speech.highlight_enabled")
	}
	if viper.IsSet("speech.words_per_minute") {
		cfg.WordsPerMinute = viper.GetFloat64("speech.words_per_minute")
	}
	if viper.IsSet("speech.min_tick") {
		if d, err := time.ParseDuration(viper.GetString("speech.min_tick")); err == nil {
			cfg.MinTick = d
		}
	}
	if viper.IsSet("speech.trail_window") {
		cfg.TrailWindow = viper.GetInt("speech.trail_window")
	}

	cfg.Espeak = loadEspeakConfig()
	cfg.Piper = loadPiperConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid speech configuration: %w", err)
	}
	return cfg, nil
}

func loadEspeakConfig() EspeakConfig {
	cfg := DefaultEspeakConfig()

	if viper.IsSet("speech.espeak.binary") {
		cfg.Binary = viper.GetString("speech.espeak.binary")
	}
	if viper.IsSet("speech.espeak.timeout") {
		if d, err := time.ParseDuration(viper.GetString("speech.espeak.timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

func loadPiperConfig() PiperConfig {
	cfg := DefaultPiperConfig()

	if viper.IsSet("speech.piper.binary") {
		cfg.Binary = viper.GetString("speech.piper.binary")
	}
	if viper.IsSet("speech.piper.model") {
		cfg.Model = viper.GetString("speech.piper.model")
	}
	if viper.IsSet("speech.piper.model_path") {
		cfg.ModelPath = viper.GetString("speech.piper.model_path")
	}
	if viper.IsSet("speech.piper.data_dir") {
		cfg.DataDir = viper.GetString("speech.piper.data_dir")
	}
	if viper.IsSet("speech.piper.sample_rate") {
		cfg.SampleRate = viper.GetInt("speech.piper.sample_rate")
	}
	if viper.IsSet("speech.piper.timeout") {
		if d, err := time.ParseDuration(viper.GetString("speech.piper.timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	if viper.IsSet("speech.piper.cache_dir") {
		cfg.CacheDir = viper.GetString("speech.piper.cache_dir")
	}
	if viper.IsSet("speech.piper.cache_size") {
		cfg.CacheSize = viper.GetInt("speech.piper.cache_size")
	}
	return cfg
}
