package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/lectorapp/lector/speech"
)

const pickerVisibleRows = 10

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}).
				Bold(true)

	pickerItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#4A4A4A", Dark: "#C1C1C1"})

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}).
				Bold(true)

	pickerLocaleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
)

// pickerModel is the fuzzy voice chooser overlay.
type pickerModel struct {
	input    textinput.Model
	voices   []speech.Voice
	filtered []int // indexes into voices, in match order
	cursor   int
}

func newPickerModel() pickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter voices"
	ti.Prompt = "> "
	ti.CharLimit = 64
	return pickerModel{input: ti}
}

// setVoices replaces the candidate list, e.g. after a catalog change.
func (p *pickerModel) setVoices(voices []speech.Voice) {
	p.voices = voices
	p.refilter()
}

func (p *pickerModel) open(voices []speech.Voice) {
	p.voices = voices
	p.input.SetValue("")
	p.input.Focus()
	p.cursor = 0
	p.refilter()
}

// update handles one key. done reports that the overlay closed; choice is
// the picked voice, nil on cancel.
func (p *pickerModel) update(msg tea.KeyMsg) (done bool, choice *speech.Voice, cmd tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		return true, nil, nil

	case "enter":
		if len(p.filtered) == 0 {
			return true, nil, nil
		}
		v := p.voices[p.filtered[p.cursor]]
		return true, &v, nil

	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
		}
		return false, nil, nil

	case "down", "ctrl+n":
		if p.cursor < len(p.filtered)-1 {
			p.cursor++
		}
		return false, nil, nil
	}

	p.input, cmd = p.input.Update(msg)
	p.refilter()
	return false, nil, cmd
}

func (p *pickerModel) refilter() {
	query := strings.TrimSpace(p.input.Value())
	if query == "" {
		p.filtered = make([]int, len(p.voices))
		for i := range p.voices {
			p.filtered[i] = i
		}
	} else {
		names := make([]string, len(p.voices))
		for i, v := range p.voices {
			names[i] = v.Name + " " + v.Locale
		}
		matches := fuzzy.Find(query, names)
		p.filtered = make([]int, len(matches))
		for i, match := range matches {
			p.filtered[i] = match.Index
		}
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = 0
	}
}

func (m *model) pickerView() string {
	p := &m.picker

	var b strings.Builder
	b.WriteString("\n  " + pickerTitleStyle.Render("Choose a voice") +
		pickerLocaleStyle.Render(fmt.Sprintf("  %d available", len(p.voices))))
	b.WriteString("\n\n  " + p.input.View() + "\n\n")

	if len(p.filtered) == 0 {
		b.WriteString("  " + pickerLocaleStyle.Render("no matching voices") + "\n")
	}

	start := 0
	if p.cursor >= pickerVisibleRows {
		start = p.cursor - pickerVisibleRows + 1
	}
	end := start + pickerVisibleRows
	if end > len(p.filtered) {
		end = len(p.filtered)
	}

	for i := start; i < end; i++ {
		v := p.voices[p.filtered[i]]
		label := v.Name
		if v.Locale != "" {
			label += "  (" + v.Locale + ")"
		}
		if i == p.cursor {
			b.WriteString("  " + pickerSelectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString("    " + pickerItemStyle.Render(label) + "\n")
		}
	}

	b.WriteString("\n  " + pickerLocaleStyle.Render("enter: select · esc: cancel"))
	return b.String()
}
