package speech

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that the default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if !cfg.Enabled {
		t.Error("speech should be enabled by default")
	}
	if cfg.DefaultLanguage != "en" {
		t.Errorf("default language = %q, want en", cfg.DefaultLanguage)
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "rate too high",
			modify:  func(c *Config) { c.Rate = 3.0 },
			wantErr: true,
			errMsg:  "rate must be between",
		},
		{
			name:    "rate too low",
			modify:  func(c *Config) { c.Rate = 0.1 },
			wantErr: true,
			errMsg:  "rate must be between",
		},
		{
			name:    "negative volume",
			modify:  func(c *Config) { c.Volume = -0.5 },
			wantErr: true,
			errMsg:  "volume must be between",
		},
		{
			name:    "zero words per minute",
			modify:  func(c *Config) { c.WordsPerMinute = 0 },
			wantErr: true,
			errMsg:  "words per minute",
		},
		{
			name:    "zero trail window",
			modify:  func(c *Config) { c.TrailWindow = 0 },
			wantErr: true,
			errMsg:  "trail window",
		},
		{
			name:    "odd piper sample rate",
			modify:  func(c *Config) { c.Piper.SampleRate = 12345 },
			wantErr: true,
			errMsg:  "sample rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q does not mention %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

// TestLoadConfigFromViper tests layering viper keys over the defaults.
func TestLoadConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("speech.default_language", "fr")
	viper.Set("speech.rate", 1.5)
	viper.Set("speech.voice", "Thomas")
	viper.Set("speech.min_tick", "120ms")
	viper.Set("speech.piper.model", "fr_FR-siwis-medium")

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper: %v", err)
	}

	if cfg.DefaultLanguage != "fr" {
		t.Errorf("DefaultLanguage = %q, want fr", cfg.DefaultLanguage)
	}
	if cfg.Rate != 1.5 {
		t.Errorf("Rate = %v, want 1.5", cfg.Rate)
	}
	if cfg.VoiceName != "Thomas" {
		t.Errorf("VoiceName = %q, want Thomas", cfg.VoiceName)
	}
	if cfg.MinTick != 120*time.Millisecond {
		t.Errorf("MinTick = %s, want 120ms", cfg.MinTick)
	}
	if cfg.Piper.Model != "fr_FR-siwis-medium" {
		t.Errorf("Piper.Model = %q, want fr_FR-siwis-medium", cfg.Piper.Model)
	}
	// Untouched keys keep their defaults.
	if cfg.Pitch != 1.0 {
		t.Errorf("Pitch = %v, want default 1.0", cfg.Pitch)
	}
}

// TestLoadConfigFromViperRejectsInvalid tests that invalid values fail the
// load rather than propagating.
func TestLoadConfigFromViperRejectsInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("speech.rate", 9.0)
	if _, err := LoadConfigFromViper(); err == nil {
		t.Fatal("expected error for out-of-range rate")
	}
}

// TestNewRequest tests that requests copy settings and normalize them.
func TestNewRequest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VoiceName = "Alloy"
	cfg.Rate = 1.25

	req := cfg.NewRequest("hello")
	if req.Text != "hello" || req.VoiceName != "Alloy" || req.Rate != 1.25 {
		t.Errorf("NewRequest = %+v", req)
	}

	// Later config edits must not affect an existing request.
	cfg.Rate = 2.0
	if req.Rate != 1.25 {
		t.Error("request observed a config change after construction")
	}
}

// TestRequestNormalized tests clamping and default substitution.
func TestRequestNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   Request
		want Request
	}{
		{
			name: "zero values become neutral",
			in:   Request{Text: "x"},
			want: Request{Text: "x", Rate: 1.0, Pitch: 1.0, Volume: 1.0},
		},
		{
			name: "out of range values clamp",
			in:   Request{Text: "x", Rate: 5, Pitch: -1, Volume: 2},
			want: Request{Text: "x", Rate: MaxRate, Pitch: MinPitch, Volume: MaxVolume},
		},
		{
			name: "in range values pass through",
			in:   Request{Text: "x", Rate: 0.75, Pitch: 1.5, Volume: 0.5},
			want: Request{Text: "x", Rate: 0.75, Pitch: 1.5, Volume: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalized(); got != tt.want {
				t.Errorf("Normalized() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
