package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/lectorapp/lector/speech"
)

// The band shows the block being spoken with the estimated current words
// marked. It sits between the pager and the status bar and is only present
// while a session is live.
const maxBandLines = 4

var (
	bandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#4A4A4A", Dark: "#C1C1C1"}).
			Background(lipgloss.AdaptiveColor{Light: "#F2F2F2", Dark: "#1B1B1B"})

	bandMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}).
			Background(lipgloss.AdaptiveColor{Light: "#F2F2F2", Dark: "#1B1B1B"}).
			Bold(true)

	bandPausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}).
			Background(lipgloss.AdaptiveColor{Light: "#F2F2F2", Dark: "#1B1B1B"})
)

func (m *model) bandActive() bool {
	return len(m.tokens) > 0 && !m.speechState.Terminal()
}

func (m *model) bandHeight() int {
	if !m.bandActive() {
		return 0
	}
	return len(m.bandLines())
}

func (m *model) bandView() string {
	if !m.bandActive() {
		return ""
	}
	lines := m.bandLines()
	for i, line := range lines {
		pad := m.width - lipgloss.Width(line)
		if pad > 0 {
			lines[i] = line + bandStyle.Render(strings.Repeat(" ", pad))
		}
	}
	return strings.Join(lines, "\n")
}

// bandLines styles each token by its highlight mark and wraps the result
// to the viewport width, keeping at most the last lines that fit.
func (m *model) bandLines() []string {
	wordStyle := bandStyle
	markStyle := bandMarkStyle
	if m.speechState == speech.StatePaused {
		wordStyle = bandPausedStyle
		markStyle = bandPausedStyle
	}

	words := make([]string, 0, len(m.tokens))
	for i, tok := range m.tokens {
		if m.marks[i] {
			words = append(words, markStyle.Render(tok.Text))
		} else {
			words = append(words, wordStyle.Render(tok.Text))
		}
	}

	width := m.width
	if width < 10 {
		width = 10
	}
	wrapped := wordwrap.String(strings.Join(words, bandStyle.Render(" ")), width-2)
	lines := strings.Split(wrapped, "\n")
	for i := range lines {
		lines[i] = bandStyle.Render(" ") + lines[i]
	}
	if len(lines) > maxBandLines {
		// Keep the tail so the marked words stay visible.
		lines = lines[len(lines)-maxBandLines:]
	}
	return lines
}
