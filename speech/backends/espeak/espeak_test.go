package espeak

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lectorapp/lector/speech"
)

const voicesOutput = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  am              --/M      Amharic            sem/am
 2  en-gb           --/M      English_(Great_Britain) gmw/en               (en 2)
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 5  fr-fr           --/M      French_(France)    roa/fr               (fr 5)
 5  ja              --/F      Japanese           jpx/ja
`

// TestParseVoices tests the --voices column parsing.
func TestParseVoices(t *testing.T) {
	voices := parseVoices([]byte(voicesOutput))

	if len(voices) != 6 {
		t.Fatalf("parsed %d voices, want 6", len(voices))
	}

	want := speech.Voice{Name: "English_(America)", Locale: "en-us", Handle: "gmw/en-US"}
	if voices[3] != want {
		t.Errorf("voice[3] = %+v, want %+v", voices[3], want)
	}
	if voices[5].Locale != "ja" || voices[5].Handle != "jpx/ja" {
		t.Errorf("voice[5] = %+v", voices[5])
	}
}

// TestParseVoicesSkipsMalformedLines tests that short lines and the
// header do not produce voices.
func TestParseVoicesSkipsMalformedLines(t *testing.T) {
	out := "Pty Language Age/Gender VoiceName File\n\nbroken line\n"
	if voices := parseVoices([]byte(out)); len(voices) != 0 {
		t.Errorf("parsed %d voices from malformed output, want 0", len(voices))
	}
}

// TestBuildArgs tests the utterance to flag mapping.
func TestBuildArgs(t *testing.T) {
	utt := speech.Utterance{
		ID:     1,
		Text:   "hello",
		Voice:  &speech.Voice{Name: "English_(America)", Locale: "en-us", Handle: "gmw/en-US"},
		Locale: "en-us",
		Rate:   1.0,
		Pitch:  1.0,
		Volume: 1.0,
	}

	args := buildArgs(utt)
	want := []string{"-v", "gmw/en-US", "-s", "175", "-a", "100", "-p", "50", "--", "hello"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args = %v, want %v", args, want)
		}
	}
}

// fakeBinary writes an executable shell script standing in for espeak.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "espeak")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func collectEvents(t *testing.T, b *Backend, utt speech.Utterance, n int) []speech.Event {
	t.Helper()
	ch := make(chan speech.Event, 8)
	if err := b.Speak(utt, func(ev speech.Event) { ch <- ev }); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	var events []speech.Event
	for len(events) < n {
		select {
		case ev := <-ch:
			events = append(events, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d events, want %d: %+v", len(events), n, events)
		}
	}
	return events
}

// TestSpeakLifecycleEvents tests that a clean exit produces Started then
// Ended, delivered after Speak has returned.
func TestSpeakLifecycleEvents(t *testing.T) {
	b := &Backend{
		binary: fakeBinary(t, "exit 0\n"),
		cfg:    speech.DefaultEspeakConfig(),
		logger: log.New(io.Discard),
	}

	events := collectEvents(t, b, speech.Utterance{ID: 7, Text: "hello"}, 2)
	if events[0].Kind != speech.EventStarted || events[0].Utterance != 7 {
		t.Fatalf("first event = %+v, want Started for utterance 7", events[0])
	}
	if events[1].Kind != speech.EventEnded {
		t.Fatalf("second event = %+v, want Ended", events[1])
	}
}

// TestSpeakKillsWedgedProcess tests that the configured timeout bounds a
// process that never exits, surfacing an error event.
func TestSpeakKillsWedgedProcess(t *testing.T) {
	b := &Backend{
		binary: fakeBinary(t, "sleep 5\n"),
		cfg:    speech.EspeakConfig{Timeout: 100 * time.Millisecond},
		logger: log.New(io.Discard),
	}

	events := collectEvents(t, b, speech.Utterance{ID: 3, Text: "hello"}, 2)
	if events[0].Kind != speech.EventStarted {
		t.Fatalf("first event = %+v, want Started", events[0])
	}
	if events[1].Kind != speech.EventError {
		t.Fatalf("second event = %+v, want Error", events[1])
	}
	if events[1].Err == nil || !strings.Contains(events[1].Err.Error(), "timed out") {
		t.Errorf("error = %v, want a timeout", events[1].Err)
	}
}

// TestBuildArgsClampsExtremes tests speed floor and pitch/amplitude caps.
func TestBuildArgsClampsExtremes(t *testing.T) {
	utt := speech.Utterance{Text: "x", Rate: 0.1, Pitch: 2.0, Volume: 2.5}
	args := buildArgs(utt)

	flags := map[string]string{}
	for i := 0; i+1 < len(args); i += 2 {
		flags[args[i]] = args[i+1]
	}
	if flags["-s"] != "80" {
		t.Errorf("speed = %s, want floor 80", flags["-s"])
	}
	if flags["-p"] != "99" {
		t.Errorf("pitch = %s, want cap 99", flags["-p"])
	}
	if flags["-a"] != "200" {
		t.Errorf("amplitude = %s, want cap 200", flags["-a"])
	}
}
