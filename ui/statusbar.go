package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize/english"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/lectorapp/lector/speech"
)

const ellipsis = "…"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarSpeechStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarScrollPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render
)

func (m *model) statusBarView() string {
	// Scroll percentage.
	percent := math.Max(0.0, math.Min(1.0, m.viewport.ScrollPercent()))
	scrollPercent := statusBarScrollPosStyle(fmt.Sprintf(" %3.f%% ", percent*100))

	speechNote := m.speechNote()

	// Note column: a transient status message wins over the title.
	var note string
	if m.statusMessage != "" {
		note = m.statusMessage
	} else {
		note = m.doc.Title() + " · " + m.readingTime()
	}
	noteWidth := m.width -
		ansi.PrintableRuneWidth(speechNote) -
		ansi.PrintableRuneWidth(scrollPercent)
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, noteWidth)), ellipsis) //nolint:gosec
	if pad := noteWidth - ansi.PrintableRuneWidth(note); pad > 0 {
		note += strings.Repeat(" ", pad)
	}
	if m.statusMessage != "" {
		note = statusBarMessageStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	return speechNote + note + scrollPercent
}

// speechNote is the left status cell: speech state, language and block
// position.
func (m *model) speechNote() string {
	if m.controller == nil {
		return statusBarNoteStyle(" no speech ")
	}

	var s string
	switch m.speechState {
	case speech.StateSpeaking, speech.StateResuming:
		s = "speaking"
	case speech.StatePaused:
		s = "paused"
	case speech.StateResolving:
		s = m.spinner.View() + "resolving"
	case speech.StateErrored:
		s = "error"
	default:
		s = "ready"
	}

	cell := fmt.Sprintf(" %s · %s · %d/%d ", s, m.language, m.blockIndex+1, len(m.blocks))
	if m.speechState == speech.StateErrored && m.speechErr != "" {
		cell = fmt.Sprintf(" error: %s ", truncate.StringWithTail(m.speechErr, 24, ellipsis))
	}
	if m.speechState == speech.StateSpeaking || m.speechState == speech.StateResuming {
		return statusBarSpeechStyle(cell)
	}
	return statusBarNoteStyle(cell)
}

// readingTime estimates how long the document takes to read aloud at the
// configured pace.
func (m *model) readingTime() string {
	words := 0
	for _, b := range m.blocks {
		words += len(speech.Words(b.Text))
	}
	wpm := m.cfg.Speech.WordsPerMinute
	if wpm <= 0 {
		wpm = 180
	}
	minutes := int(math.Ceil(float64(words) / wpm))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("about %s to read aloud", humanize.Plural(minutes, "minute", ""))
}

const helpHeight = 7

var helpColumn = []string{
	"space   speak block / pause / resume",
	"s/esc   stop speaking",
	"n/N     speak next/previous block",
	"v       choose a voice",
	"c       copy block · r reload",
	"q       quit",
}

func (m *model) helpView() string {
	var b strings.Builder
	b.WriteByte('\n')
	for i, line := range helpColumn {
		padded := "  " + line
		if w := m.width - runewidth.StringWidth(padded); w > 0 {
			padded += strings.Repeat(" ", w)
		}
		b.WriteString(helpViewStyle(padded))
		if i < len(helpColumn)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
