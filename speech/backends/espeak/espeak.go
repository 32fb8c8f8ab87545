// Package espeak drives the espeak-ng command line synthesizer. It is the
// primary backend: broad language coverage, instant startup, no model
// downloads.
package espeak

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lectorapp/lector/speech"
)

// Candidate binaries, probed in order. espeak-ng is the maintained fork;
// plain espeak still ships on older distributions.
var candidates = []string{"espeak-ng", "espeak"}

// Backend speaks by spawning one espeak process per utterance. Pause and
// resume are implemented with job control signals on platforms that have
// them.
type Backend struct {
	binary string
	cfg    speech.EspeakConfig
	logger *log.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	gen    uint64
	paused bool
}

// New probes for an espeak binary and returns the backend. A backend is
// always returned; if no binary was found it reports unavailable.
func New(cfg speech.EspeakConfig, logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.Default()
	}
	b := &Backend{cfg: cfg, logger: logger}

	probe := candidates
	if cfg.Binary != "" {
		probe = []string{cfg.Binary}
	}
	for _, name := range probe {
		if path, err := exec.LookPath(name); err == nil {
			b.binary = path
			break
		}
	}
	if b.binary == "" {
		logger.Debug("no espeak binary found", "candidates", strings.Join(probe, ", "))
	}
	return b
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "espeak" }

// Available reports whether an espeak binary was found at startup.
func (b *Backend) Available() bool { return b.binary != "" }

// Voices enumerates espeak's voice table via `--voices`. Output columns:
//
//	Pty Language Age/Gender VoiceName File Other Languages
//
// The language column becomes the locale, the voice name column the name,
// and the file column the backend handle.
func (b *Backend) Voices() ([]speech.Voice, error) {
	if b.binary == "" {
		return nil, speech.ErrBackendUnavailable
	}
	out, err := exec.Command(b.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("espeak voice enumeration: %w", err)
	}
	return parseVoices(out), nil
}

func parseVoices(out []byte) []speech.Voice {
	var voices []speech.Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			// Header row.
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		voices = append(voices, speech.Voice{
			Name:   fields[3],
			Locale: fields[1],
			Handle: fields[4],
		})
	}
	return voices
}

// Speak spawns espeak for one utterance. All events are delivered off the
// caller's stack, after Speak has returned: Started once the process is
// running, then Ended or Error when it exits, unless the utterance was
// cancelled first. The configured timeout bounds how long a wedged process
// may hold the utterance.
func (b *Backend) Speak(utt speech.Utterance, notify func(speech.Event)) error {
	if b.binary == "" {
		return speech.ErrBackendUnavailable
	}

	args := buildArgs(utt)

	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if b.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := exec.CommandContext(ctx, b.binary, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("starting espeak: %w", err)
	}
	b.gen++
	gen := b.gen
	b.cmd = cmd
	b.paused = false
	b.logger.Debug("espeak spawned", "pid", cmd.Process.Pid, "utterance", utt.ID)

	go func() {
		defer cancel()

		b.mu.Lock()
		stale := b.gen != gen
		b.mu.Unlock()
		if !stale {
			notify(speech.Event{Kind: speech.EventStarted, Utterance: utt.ID})
		}

		err := cmd.Wait()

		b.mu.Lock()
		stale = b.gen != gen
		if b.cmd == cmd {
			b.cmd = nil
		}
		b.mu.Unlock()

		if stale {
			// A killed process exits nonzero; that is not a failure.
			return
		}
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				err = fmt.Errorf("espeak timed out after %s", b.cfg.Timeout)
			} else {
				err = fmt.Errorf("espeak exited: %w", err)
			}
			notify(speech.Event{Kind: speech.EventError, Utterance: utt.ID, Err: err})
			return
		}
		notify(speech.Event{Kind: speech.EventEnded, Utterance: utt.ID})
	}()
	return nil
}

// buildArgs maps the utterance onto espeak flags. espeak's base speed is
// 175 words per minute, amplitude runs 0-200 with 100 as unity, and pitch
// runs 0-99 with 50 in the middle.
func buildArgs(utt speech.Utterance) []string {
	var args []string

	voice := utt.Locale
	if utt.Voice != nil && utt.Voice.Handle != "" {
		voice = utt.Voice.Handle
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}

	speed := int(175 * utt.Rate)
	if speed < 80 {
		speed = 80
	}
	args = append(args, "-s", fmt.Sprintf("%d", speed))

	amplitude := int(100 * utt.Volume)
	if amplitude > 200 {
		amplitude = 200
	}
	args = append(args, "-a", fmt.Sprintf("%d", amplitude))

	pitch := int(50 * utt.Pitch)
	if pitch > 99 {
		pitch = 99
	}
	args = append(args, "-p", fmt.Sprintf("%d", pitch))

	return append(args, "--", utt.Text)
}

// Cancel kills the in-flight espeak process, if any. A cancelled
// utterance produces no further events.
func (b *Backend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil {
		return
	}
	b.gen++
	if b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
	b.logger.Debug("espeak cancelled", "pid", b.cmd.Process.Pid)
}

// Pause suspends the espeak process with SIGSTOP where supported.
func (b *Backend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil || b.cmd.Process == nil {
		return speech.ErrNoSession
	}
	if b.paused {
		return nil
	}
	if err := suspend(b.cmd.Process.Pid); err != nil {
		return err
	}
	b.paused = true
	return nil
}

// Resume continues a suspended espeak process with SIGCONT.
func (b *Backend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil || b.cmd.Process == nil {
		return speech.ErrNoSession
	}
	if !b.paused {
		return nil
	}
	if err := resume(b.cmd.Process.Pid); err != nil {
		return err
	}
	b.paused = false
	return nil
}

// OnVoicesChanged is a no-op: espeak's voice table is static for the life
// of the process.
func (b *Backend) OnVoicesChanged(fn func()) {}
