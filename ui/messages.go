package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lectorapp/lector/document"
	"github.com/lectorapp/lector/speech"
)

// ConfigReloadedMsg carries a fresh speech configuration after the config
// file changed on disk. Delivery settings apply from the next utterance.
type ConfigReloadedMsg speech.Config

// Messages crossing from the speech subsystem and the filesystem into the
// Bubble Tea event loop.
type (
	speechEventMsg   speech.SessionEvent
	highlightMsg     speech.HighlightEvent
	voicesChangedMsg speech.Snapshot

	contentRenderedMsg string
	documentReloadMsg  *document.Document
	reloadRequestMsg   struct{}

	statusMessageTimeoutMsg struct{}
	errMsg                  struct{ err error }
)

func (e errMsg) Error() string { return e.err.Error() }

// waitForSpeechMsg blocks on the bridge channel and feeds the next speech
// message into the program. The returned command re-arms itself via Update.
func waitForSpeechMsg(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func hideStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}
