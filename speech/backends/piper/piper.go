// Package piper synthesizes speech with the piper neural TTS binary and
// plays the resulting PCM locally. It is the fallback backend: higher
// quality than espeak but dependent on downloaded voice models.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/lectorapp/lector/internal/audio"
	"github.com/lectorapp/lector/internal/cache"
	"github.com/lectorapp/lector/speech"
)

const modelExtension = ".onnx"

// Backend synthesizes one utterance at a time: text goes to a piper
// subprocess, raw PCM comes back, gets cached, and plays through the
// shared audio device. Each voice is a model file on disk; a filesystem
// watcher on the model directory reports newly downloaded models.
type Backend struct {
	binary string
	cfg    speech.PiperConfig
	player *audio.Player
	cache  *cache.Cache
	logger *log.Logger

	mu        sync.Mutex
	synth     *exec.Cmd
	synthStop context.CancelFunc
	gen       uint64

	watcher       *fsnotify.Watcher
	voicesChanged func()
}

// New probes for the piper binary and the audio device. A backend is
// always returned; if either is missing it reports unavailable.
func New(cfg speech.PiperConfig, logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.Default()
	}
	b := &Backend{cfg: cfg, logger: logger}

	path, err := exec.LookPath(cfg.Binary)
	if err != nil {
		logger.Debug("piper binary not found", "binary", cfg.Binary)
		return b
	}
	b.binary = path

	b.player, err = audio.NewPlayer(audio.Config{SampleRate: cfg.SampleRate, Channels: 1})
	if err != nil {
		logger.Warn("audio device unavailable, piper backend disabled", "error", err)
		b.binary = ""
		return b
	}

	b.cache, err = cache.New(cfg.CacheDir, cfg.CacheSize)
	if err != nil {
		logger.Warn("audio cache disabled", "error", err)
	}

	b.watchModels()
	return b
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "piper" }

// Available reports whether both the piper binary and the audio device
// were found at startup.
func (b *Backend) Available() bool { return b.binary != "" }

// Voices enumerates the model files in the configured model directory.
// Piper has no voice daemon; an empty directory simply means no models
// have been downloaded yet.
func (b *Backend) Voices() ([]speech.Voice, error) {
	dir := b.modelDir()
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing piper models: %w", err)
	}

	var voices []speech.Voice
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), modelExtension) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), modelExtension)
		voices = append(voices, speech.Voice{
			Name:   name,
			Locale: localeFromModel(name),
			Handle: filepath.Join(dir, e.Name()),
		})
	}
	return voices, nil
}

// localeFromModel extracts the locale from a piper model name such as
// "en_US-lessac-medium".
func localeFromModel(name string) string {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return ""
	}
	return strings.ReplaceAll(prefix, "_", "-")
}

// Speak synthesizes and plays one utterance. Synthesis happens off the
// caller's goroutine; Started fires when audio begins, not when synthesis
// begins.
func (b *Backend) Speak(utt speech.Utterance, notify func(speech.Event)) error {
	if b.binary == "" {
		return speech.ErrBackendUnavailable
	}
	model := b.modelFor(utt)
	if model == "" {
		return fmt.Errorf("no piper model available for %q", utt.Locale)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)

	b.mu.Lock()
	b.stopSynthLocked()
	b.player.Stop()
	b.gen++
	gen := b.gen
	b.synthStop = cancel
	b.mu.Unlock()

	go b.synthesizeAndPlay(ctx, cancel, gen, model, utt, notify)
	return nil
}

func (b *Backend) synthesizeAndPlay(ctx context.Context, cancel context.CancelFunc, gen uint64, model string, utt speech.Utterance, notify func(speech.Event)) {
	defer cancel()

	pcm, err := b.synthesize(ctx, gen, model, utt)

	b.mu.Lock()
	stale := b.gen != gen
	b.synth = nil
	b.synthStop = nil
	b.mu.Unlock()

	if stale {
		return
	}
	if err != nil {
		notify(speech.Event{Kind: speech.EventError, Utterance: utt.ID,
			Err: fmt.Errorf("piper synthesis: %w", err)})
		return
	}

	err = b.player.Play(pcm, utt.Volume, func() {
		b.mu.Lock()
		stale := b.gen != gen
		b.mu.Unlock()
		if !stale {
			notify(speech.Event{Kind: speech.EventEnded, Utterance: utt.ID})
		}
	})
	if err != nil {
		notify(speech.Event{Kind: speech.EventError, Utterance: utt.ID, Err: err})
		return
	}
	notify(speech.Event{Kind: speech.EventStarted, Utterance: utt.ID})
}

// synthesize produces PCM for the utterance, via the cache when possible.
func (b *Backend) synthesize(ctx context.Context, gen uint64, model string, utt speech.Utterance) ([]byte, error) {
	key := cache.Key(model, fmt.Sprintf("%.2f", utt.Rate), fmt.Sprintf("%.2f", utt.Pitch), utt.Text)
	if b.cache != nil {
		if pcm, ok := b.cache.Get(key); ok {
			b.logger.Debug("piper cache hit", "utterance", utt.ID)
			return pcm, nil
		}
	}

	// Piper's length_scale is the inverse of speaking rate.
	args := []string{
		"--model", model,
		"--output-raw",
		"--length_scale", fmt.Sprintf("%.3f", 1.0/utt.Rate),
	}
	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Stdin = strings.NewReader(utt.Text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return nil, context.Canceled
	}
	b.synth = cmd
	b.mu.Unlock()

	b.logger.Debug("piper synthesizing", "model", filepath.Base(model), "utterance", utt.ID)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("piper produced no audio")
	}
	if b.cache != nil {
		if err := b.cache.Put(key, pcm); err != nil {
			b.logger.Debug("audio cache write failed", "error", err)
		}
	}
	return pcm, nil
}

// modelFor picks the model file: the resolved voice's handle when it is a
// model path, else the configured default.
func (b *Backend) modelFor(utt speech.Utterance) string {
	if utt.Voice != nil && strings.HasSuffix(utt.Voice.Handle, modelExtension) {
		return utt.Voice.Handle
	}
	if b.cfg.ModelPath != "" {
		return b.cfg.ModelPath
	}
	if dir := b.modelDir(); dir != "" {
		return filepath.Join(dir, b.cfg.Model+modelExtension)
	}
	return ""
}

func (b *Backend) modelDir() string {
	if b.cfg.ModelPath != "" {
		return filepath.Dir(b.cfg.ModelPath)
	}
	return b.cfg.DataDir
}

// Cancel aborts synthesis and playback. Aborted utterances emit no
// events.
func (b *Backend) Cancel() {
	b.mu.Lock()
	b.gen++
	b.stopSynthLocked()
	b.mu.Unlock()

	if b.player != nil {
		b.player.Stop()
	}
}

func (b *Backend) stopSynthLocked() {
	if b.synthStop != nil {
		b.synthStop()
		b.synthStop = nil
	}
	b.synth = nil
}

// Pause suspends playback. Synthesis in flight keeps running; only the
// audio is held.
func (b *Backend) Pause() error {
	if b.player == nil {
		return speech.ErrNoSession
	}
	b.player.Pause()
	return nil
}

// Resume continues paused playback.
func (b *Backend) Resume() error {
	if b.player == nil {
		return speech.ErrNoSession
	}
	b.player.Resume()
	return nil
}

// OnVoicesChanged registers the callback fired when model files appear in
// or vanish from the model directory.
func (b *Backend) OnVoicesChanged(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voicesChanged = fn
}

// watchModels sets up the filesystem watcher on the model directory so a
// model downloaded mid-session becomes speakable without a restart.
func (b *Backend) watchModels() {
	dir := b.modelDir()
	if dir == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		b.logger.Debug("model directory watch unavailable", "error", err)
		return
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		b.logger.Debug("model directory watch failed", "dir", dir, "error", err)
		return
	}
	b.watcher = watcher

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, modelExtension) {
					continue
				}
				b.mu.Lock()
				fn := b.voicesChanged
				b.mu.Unlock()
				if fn != nil {
					fn()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Close releases the watcher, audio device and cache.
func (b *Backend) Close() {
	b.Cancel()
	if b.watcher != nil {
		_ = b.watcher.Close()
	}
	if b.player != nil {
		_ = b.player.Close()
	}
	if b.cache != nil {
		b.cache.Close()
	}
}
