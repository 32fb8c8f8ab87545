// Package audio plays raw PCM through the platform audio device via oto.
// It exists for backends that synthesize audio themselves instead of
// speaking through an external player.
package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Config describes the PCM format the player accepts: signed 16-bit
// little endian at the given sample rate and channel count.
type Config struct {
	SampleRate int
	Channels   int
}

// DefaultConfig returns the format piper emits by default.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		Channels:   1,
	}
}

// Validate checks the format against what oto supports.
func (c Config) Validate() error {
	switch c.SampleRate {
	case 16000, 22050, 44100, 48000:
	default:
		return fmt.Errorf("unsupported sample rate %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("unsupported channel count %d", c.Channels)
	}
	return nil
}

// Duration returns the playback duration of a PCM buffer in this format.
func (c Config) Duration(pcm []byte) time.Duration {
	bytesPerSecond := c.SampleRate * c.Channels * 2
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(len(pcm)) * time.Second / time.Duration(bytesPerSecond)
}

// Player owns one oto context and plays at most one PCM buffer at a time.
// Starting a new buffer stops the previous one.
type Player struct {
	cfg Config
	ctx *oto.Context

	mu      sync.Mutex
	current *oto.Player
	// pcm keeps the buffer alive while oto reads from it.
	pcm     []byte
	stopped bool
	gen     uint64
}

// NewPlayer initializes the audio device. It blocks until the device is
// ready, which on some platforms takes a moment.
func NewPlayer(cfg Config) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio config: %w", err)
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready
	return &Player{cfg: cfg, ctx: ctx}, nil
}

// Play starts the given PCM buffer and calls done when it finishes
// naturally. A buffer interrupted by Stop or a subsequent Play does not
// call done.
func (p *Player) Play(pcm []byte, volume float64, done func()) error {
	if len(pcm) == 0 {
		return fmt.Errorf("empty audio buffer")
	}

	p.mu.Lock()
	p.stopCurrentLocked()
	p.gen++
	gen := p.gen
	p.pcm = pcm
	p.stopped = false

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	if volume >= 0 && volume <= 1 {
		player.SetVolume(volume)
	}
	p.current = player
	p.mu.Unlock()

	player.Play()
	go p.watch(player, gen, done)
	return nil
}

// watch polls the oto player until the buffer drains. oto offers no
// completion callback.
func (p *Player) watch(player *oto.Player, gen uint64, done func()) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.gen != gen || p.stopped {
			p.mu.Unlock()
			return
		}
		finished := !player.IsPlaying() && player.BufferedSize() == 0
		if finished {
			p.current = nil
			p.pcm = nil
		}
		p.mu.Unlock()

		if finished {
			if done != nil {
				done()
			}
			return
		}
	}
}

// Stop halts playback immediately. The interrupted buffer's done callback
// never fires.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCurrentLocked()
}

func (p *Player) stopCurrentLocked() {
	if p.current == nil {
		return
	}
	p.stopped = true
	p.current.Pause()
	_ = p.current.Close()
	p.current = nil
	p.pcm = nil
}

// Pause suspends playback without losing position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Pause()
	}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Play()
	}
}

// Playing reports whether a buffer is actively draining.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.current.IsPlaying()
}

// Close releases the audio device.
func (p *Player) Close() error {
	p.Stop()
	return p.ctx.Suspend()
}
