package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lectorapp/lector/document"
	"github.com/lectorapp/lector/speech"
)

func testDoc() *document.Document {
	return &document.Document{
		Path: "/tmp/doc.md",
		Body: "# Title\n\nFirst paragraph here.\n\nSecond paragraph here.\n",
	}
}

func testModel() *model {
	cfg := Config{GlamourMaxWidth: 120, SkipCodeBlocks: true}
	cfg.Speech = speech.DefaultConfig()
	m := newModel(cfg, testDoc(), nil)
	m.width = 80
	m.height = 24
	m.ready = true
	m.setViewportSize()
	return m
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// TestBlocksExtractedOnConstruction tests that the reading cursor has
// blocks to walk.
func TestBlocksExtractedOnConstruction(t *testing.T) {
	m := testModel()
	if len(m.blocks) != 3 {
		t.Fatalf("blocks = %d, want 3 (title + two paragraphs)", len(m.blocks))
	}
	if m.blocks[0].Kind != document.KindHeading {
		t.Errorf("first block kind = %s, want heading", m.blocks[0].Kind)
	}
}

// TestSpeechKeysWithoutController tests that speech keys degrade to status
// messages when speech is disabled.
func TestSpeechKeysWithoutController(t *testing.T) {
	m := testModel()

	for _, key := range []string{" ", "v"} {
		m.statusMessage = ""
		_, _ = m.Update(keyMsg(key))
		if m.statusMessage != "speech is disabled" {
			t.Errorf("key %q: status = %q, want the disabled notice", key, m.statusMessage)
		}
	}
}

// TestBlockNavigationBounds tests the reading cursor limits.
func TestBlockNavigationBounds(t *testing.T) {
	m := testModel()

	if cmd := m.speakRelative(-1); cmd == nil {
		t.Error("moving before the first block should report a status message")
	}
	if m.blockIndex != 0 {
		t.Errorf("blockIndex = %d, want 0", m.blockIndex)
	}

	m.blockIndex = len(m.blocks) - 1
	if cmd := m.speakRelative(1); cmd == nil {
		t.Error("moving past the last block should report a status message")
	}
	if m.blockIndex != len(m.blocks)-1 {
		t.Errorf("blockIndex = %d, want %d", m.blockIndex, len(m.blocks)-1)
	}
}

// TestApplyHighlight tests highlight mark bookkeeping.
func TestApplyHighlight(t *testing.T) {
	m := testModel()
	m.tokens = speech.Words("one two three")

	m.applyHighlight(speech.HighlightEvent{Kind: speech.TokenActivated, Index: 0})
	m.applyHighlight(speech.HighlightEvent{Kind: speech.TokenActivated, Index: 1})
	if !m.marks[0] || !m.marks[1] {
		t.Fatalf("marks = %v, want 0 and 1 set", m.marks)
	}

	m.applyHighlight(speech.HighlightEvent{Kind: speech.TokenDeactivated, Index: 0})
	if m.marks[0] {
		t.Error("mark 0 should be cleared")
	}

	m.applyHighlight(speech.HighlightEvent{Kind: speech.HighlightCleared})
	if len(m.marks) != 0 {
		t.Errorf("marks = %v, want empty after clear", m.marks)
	}
}

// TestApplySpeechEventTerminalClearsBand tests that terminal session
// states drop the band.
func TestApplySpeechEventTerminalClearsBand(t *testing.T) {
	m := testModel()
	m.tokens = speech.Words("one two three")
	m.marks[1] = true
	m.speechState = speech.StateSpeaking

	if !m.bandActive() {
		t.Fatal("band should be active while speaking with tokens")
	}

	m.applySpeechEvent(speech.SessionEvent{State: speech.StateEnded})
	if m.bandActive() {
		t.Error("band should clear on a terminal state")
	}
	if len(m.tokens) != 0 || len(m.marks) != 0 {
		t.Errorf("tokens/marks survived: %v %v", m.tokens, m.marks)
	}
}

// TestStatusBarShowsSpeechState tests the left status cell.
func TestStatusBarShowsSpeechState(t *testing.T) {
	m := testModel()
	bar := m.statusBarView()
	if !strings.Contains(bar, "no speech") {
		t.Errorf("status bar %q should mention that speech is off", bar)
	}
	if !strings.Contains(bar, "Title") {
		t.Errorf("status bar %q should show the document title", bar)
	}
}

// TestHelpToggle tests the help overlay key.
func TestHelpToggle(t *testing.T) {
	m := testModel()
	before := m.viewport.Height

	_, _ = m.Update(keyMsg("?"))
	if !m.showHelp {
		t.Fatal("help should be visible after ?")
	}
	if m.viewport.Height >= before {
		t.Error("viewport should shrink when help is shown")
	}

	_, _ = m.Update(keyMsg("?"))
	if m.showHelp {
		t.Fatal("help should hide after second ?")
	}
}

// TestDocumentReloadResetsState tests the reload message path.
func TestDocumentReloadResetsState(t *testing.T) {
	m := testModel()
	m.blockIndex = 2

	fresh := &document.Document{Path: "/tmp/doc.md", Body: "# Only Title\n"}
	_, _ = m.Update(documentReloadMsg(fresh))

	if len(m.blocks) != 1 {
		t.Fatalf("blocks = %d, want 1 after reload", len(m.blocks))
	}
	if m.blockIndex != 0 {
		t.Errorf("blockIndex = %d, want reset to 0", m.blockIndex)
	}
}

// TestPickerFiltering tests the fuzzy voice filter.
func TestPickerFiltering(t *testing.T) {
	p := newPickerModel()
	p.open([]speech.Voice{
		{Name: "Alloy", Locale: "en-US"},
		{Name: "Serena", Locale: "en-GB"},
		{Name: "Thomas", Locale: "fr-FR"},
	})

	if len(p.filtered) != 3 {
		t.Fatalf("empty query should match all voices, got %d", len(p.filtered))
	}

	p.input.SetValue("tho")
	p.refilter()
	if len(p.filtered) != 1 || p.voices[p.filtered[0]].Name != "Thomas" {
		t.Fatalf("filter 'tho' = %v", p.filtered)
	}

	p.input.SetValue("zzzzz")
	p.refilter()
	if len(p.filtered) != 0 {
		t.Errorf("filter 'zzzzz' should match nothing, got %v", p.filtered)
	}
}

// TestPickerSelection tests key handling in the overlay.
func TestPickerSelection(t *testing.T) {
	p := newPickerModel()
	p.open([]speech.Voice{
		{Name: "Alloy", Locale: "en-US"},
		{Name: "Serena", Locale: "en-GB"},
	})

	done, choice, _ := p.update(tea.KeyMsg{Type: tea.KeyDown})
	if done || choice != nil {
		t.Fatal("down should not close the picker")
	}
	done, choice, _ = p.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !done || choice == nil || choice.Name != "Serena" {
		t.Fatalf("enter = done %v choice %+v, want Serena", done, choice)
	}

	p.open(nil)
	done, choice, _ = p.update(tea.KeyMsg{Type: tea.KeyEscape})
	if !done || choice != nil {
		t.Fatal("escape should close without a choice")
	}
}
