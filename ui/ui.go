// Package ui provides the terminal reader: a pager over the rendered
// document with a speech band and voice picker layered on top.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"github.com/lectorapp/lector/document"
	"github.com/lectorapp/lector/speech"
	"github.com/lectorapp/lector/speech/backends"
)

const (
	statusBarHeight      = 1
	statusMessageTimeout = 3 * time.Second
)

// NewProgram returns the reader program for one loaded document. setup may
// be nil when speech is disabled entirely.
func NewProgram(cfg Config, doc *document.Document, setup *backends.Setup) *tea.Program {
	log.Debug("starting reader", "path", cfg.Path, "speech", setup != nil)

	m := newModel(cfg, doc, setup)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(m, opts...)
}

// uiState is which surface owns the keyboard.
type uiState int

const (
	stateBrowse uiState = iota
	statePicker
)

type model struct {
	cfg    Config
	doc    *document.Document
	blocks []document.Block
	// blockIndex is the reading cursor over the speakable blocks.
	blockIndex int

	width  int
	height int
	ready  bool

	viewport viewport.Model
	spinner  spinner.Model
	showHelp bool

	// Speech wiring. controller is nil when speech is off.
	controller *speech.Controller
	msgCh      chan tea.Msg

	speechState speech.SessionState
	speechErr   string
	language    string
	activeVoice string
	chosenVoice string // picker selection, carried across utterances

	// Highlight state for the band: the spoken block's tokens and the
	// currently marked indexes.
	tokens []speech.Token
	marks  map[int]bool

	state  uiState
	picker pickerModel

	statusMessage string
	fatalErr      error
}

func newModel(cfg Config, doc *document.Document, setup *backends.Setup) *model {
	m := &model{
		cfg:         cfg,
		doc:         doc,
		blocks:      doc.Blocks(document.ExtractOptions{SkipCode: cfg.SkipCodeBlocks}),
		msgCh:       make(chan tea.Msg, 64),
		marks:       map[int]bool{},
		speechState: speech.StateIdle,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		picker:      newPickerModel(),
	}

	if setup != nil && cfg.Speech.Enabled {
		m.controller = speech.NewController(setup.Primary, setup.Fallback, setup.Catalog, cfg.Speech, log.Default())
		m.controller.OnEvent(func(ev speech.SessionEvent) { m.post(speechEventMsg(ev)) })
		m.controller.OnHighlight(func(ev speech.HighlightEvent) { m.post(highlightMsg(ev)) })
		setup.Catalog.OnChange(func(snap speech.Snapshot) { m.post(voicesChangedMsg(snap)) })
		m.language = m.controller.CurrentLanguage()
		m.chosenVoice = cfg.Speech.VoiceName
	}
	return m
}

// post feeds a message into the program without ever blocking a backend
// goroutine; under backpressure the oldest pending message is dropped.
func (m *model) post(msg tea.Msg) {
	for {
		select {
		case m.msgCh <- msg:
			return
		default:
			select {
			case <-m.msgCh:
			default:
			}
		}
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForSpeechMsg(m.msgCh)}
	if m.cfg.Path != "" {
		cmds = append(cmds, watchFile(m.cfg.Path, m.post))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == statePicker {
			return m.updatePicker(msg)
		}
		newModel, cmd := m.handleBrowseKey(msg)
		if cmd != nil || newModel != nil {
			if newModel == nil {
				newModel = m
			}
			return newModel, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.setViewportSize()
		if !m.ready {
			m.ready = true
		}
		return m, m.renderContent()

	case contentRenderedMsg:
		m.viewport.SetContent(string(msg))
		return m, nil

	case speechEventMsg:
		m.applySpeechEvent(speech.SessionEvent(msg))
		cmds = append(cmds, waitForSpeechMsg(m.msgCh))
		if m.speechState == speech.StateResolving {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.speechState != speech.StateResolving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case highlightMsg:
		m.applyHighlight(speech.HighlightEvent(msg))
		return m, waitForSpeechMsg(m.msgCh)

	case voicesChangedMsg:
		snap := speech.Snapshot(msg)
		m.picker.setVoices(snap.Voices)
		cmds = append(cmds, waitForSpeechMsg(m.msgCh))
		cmds = append(cmds, m.setStatusMessage(fmt.Sprintf("%d voices available", len(snap.Voices))))
		return m, tea.Batch(cmds...)

	case ConfigReloadedMsg:
		m.cfg.Speech = speech.Config(msg)
		return m, m.setStatusMessage("configuration reloaded")

	case reloadRequestMsg:
		cmds = append(cmds, waitForSpeechMsg(m.msgCh), m.reloadDocument())
		return m, tea.Batch(cmds...)

	case documentReloadMsg:
		m.stopSpeech()
		m.doc = msg
		m.blocks = m.doc.Blocks(document.ExtractOptions{SkipCode: m.cfg.SkipCodeBlocks})
		if m.blockIndex >= len(m.blocks) {
			m.blockIndex = 0
		}
		cmds = append(cmds, m.renderContent(), m.setStatusMessage("document reloaded"))
		return m, tea.Batch(cmds...)

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		return m, nil

	case errMsg:
		m.statusMessage = msg.Error()
		return m, hideStatusAfter(statusMessageTimeout)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleBrowseKey handles keys while the pager owns the keyboard. A nil
// model and nil command means the key falls through to the viewport.
func (m *model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.shutdown()
		return m, tea.Quit

	case " ":
		return m, m.toggleSpeech()

	case "s", "esc":
		m.stopSpeech()
		return m, nil

	case "n", "right":
		return m, m.speakRelative(1)

	case "N", "left":
		return m, m.speakRelative(-1)

	case "v":
		if m.controller == nil {
			return m, m.setStatusMessage("speech is disabled")
		}
		m.openPicker()
		return m, nil

	case "c":
		if block := m.currentBlock(); block != nil {
			if err := clipboard.WriteAll(block.Text); err != nil {
				return m, m.setStatusMessage("copy failed: " + err.Error())
			}
			return m, m.setStatusMessage("copied block")
		}
		return m, nil

	case "r":
		if m.cfg.Path == "" {
			return m, m.setStatusMessage("nothing to reload")
		}
		return m, m.reloadDocument()

	case "?":
		m.showHelp = !m.showHelp
		m.setViewportSize()
		return m, nil
	}
	return nil, nil
}

// toggleSpeech implements the space bar: speak when idle, pause when
// speaking, resume when paused.
func (m *model) toggleSpeech() tea.Cmd {
	if m.controller == nil {
		return m.setStatusMessage("speech is disabled")
	}
	switch m.speechState {
	case speech.StateSpeaking, speech.StateResuming:
		if err := m.controller.Pause(); err != nil {
			return m.setStatusMessage("cannot pause: " + err.Error())
		}
		m.speechState = speech.StatePaused
		return nil
	case speech.StatePaused:
		if err := m.controller.Resume(); err != nil {
			return m.setStatusMessage("cannot resume: " + err.Error())
		}
		m.speechState = speech.StateSpeaking
		return nil
	default:
		return m.speakBlock(m.blockIndex)
	}
}

// speakRelative moves the reading cursor and speaks the block there.
func (m *model) speakRelative(delta int) tea.Cmd {
	if len(m.blocks) == 0 {
		return nil
	}
	next := m.blockIndex + delta
	if next < 0 || next >= len(m.blocks) {
		return m.setStatusMessage("no more blocks")
	}
	m.blockIndex = next
	return m.speakBlock(next)
}

func (m *model) speakBlock(i int) tea.Cmd {
	if m.controller == nil {
		return m.setStatusMessage("speech is disabled")
	}
	if i < 0 || i >= len(m.blocks) {
		return nil
	}
	block := m.blocks[i]

	req := m.cfg.Speech.NewRequest(block.Text)
	if m.chosenVoice != "" {
		req.VoiceName = m.chosenVoice
	}

	m.tokens = nil
	m.marks = map[int]bool{}
	if m.cfg.Speech.HighlightEnabled {
		m.tokens = speech.Words(block.Text)
	}

	if err := m.controller.Speak(req); err != nil {
		m.tokens = nil
		return m.setStatusMessage("cannot speak: " + err.Error())
	}
	m.language = m.controller.CurrentLanguage()
	return nil
}

func (m *model) stopSpeech() {
	if m.controller == nil {
		return
	}
	m.controller.Stop()
	m.tokens = nil
	m.marks = map[int]bool{}
}

func (m *model) applySpeechEvent(ev speech.SessionEvent) {
	m.speechState = ev.State
	m.language = ev.Language
	m.activeVoice = ev.Voice
	m.speechErr = ""
	if ev.Err != nil {
		m.speechErr = ev.Err.Error()
	}
	if ev.State.Terminal() {
		m.tokens = nil
		m.marks = map[int]bool{}
	}
	log.Debug("speech event", "session", ev.Session, "state", ev.State, "backend", ev.Backend)
}

func (m *model) applyHighlight(ev speech.HighlightEvent) {
	switch ev.Kind {
	case speech.TokenActivated:
		m.marks[ev.Index] = true
	case speech.TokenDeactivated:
		delete(m.marks, ev.Index)
	case speech.HighlightCleared:
		m.marks = map[int]bool{}
	}
}

func (m *model) currentBlock() *document.Block {
	if m.blockIndex < 0 || m.blockIndex >= len(m.blocks) {
		return nil
	}
	return &m.blocks[m.blockIndex]
}

func (m *model) openPicker() {
	voices := m.controller.AvailableVoicesForLanguage(m.language)
	if len(voices) == 0 {
		voices = m.controller.Catalog().Snapshot().Voices
	}
	m.picker.open(voices)
	m.state = statePicker
}

func (m *model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	done, choice, cmd := m.picker.update(msg)
	if !done {
		return m, cmd
	}
	m.state = stateBrowse
	if choice == nil {
		return m, nil
	}
	m.chosenVoice = choice.Name
	cmds := []tea.Cmd{m.setStatusMessage("voice: " + choice.Name)}
	// Changing voice mid-utterance restarts the current block with the
	// new voice.
	if m.speechState == speech.StateSpeaking || m.speechState == speech.StatePaused {
		cmds = append(cmds, m.speakBlock(m.blockIndex))
	}
	return m, tea.Batch(cmds...)
}

func (m *model) setStatusMessage(s string) tea.Cmd {
	m.statusMessage = s
	return hideStatusAfter(statusMessageTimeout)
}

func (m *model) setViewportSize() {
	h := m.height - statusBarHeight - m.bandHeight()
	if m.showHelp {
		h -= helpHeight
	}
	if h < 1 {
		h = 1
	}
	if m.viewport.Width == 0 && m.viewport.Height == 0 {
		m.viewport = viewport.New(m.width, h)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
}

// renderContent renders the document through glamour off the event loop.
func (m *model) renderContent() tea.Cmd {
	doc := m.doc
	width := m.width
	if max := int(m.cfg.GlamourMaxWidth); max > 0 && width > max {
		width = max
	}
	style := m.cfg.GlamourStyle
	enabled := m.cfg.GlamourEnabled

	return func() tea.Msg {
		if !enabled {
			return contentRenderedMsg(doc.Body)
		}
		r, err := glamour.NewTermRenderer(
			glamourStyle(style),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			return errMsg{fmt.Errorf("unable to create renderer: %w", err)}
		}
		out, err := r.Render(doc.Body)
		if err != nil {
			return errMsg{fmt.Errorf("unable to render markdown: %w", err)}
		}
		return contentRenderedMsg(out)
	}
}

func glamourStyle(style string) glamour.TermRendererOption {
	if style == "auto" || style == "" {
		return glamour.WithAutoStyle()
	}
	return glamour.WithStylePath(style)
}

func (m *model) reloadDocument() tea.Cmd {
	path := m.cfg.Path
	return func() tea.Msg {
		doc, err := document.Load(path)
		if err != nil {
			return errMsg{fmt.Errorf("reload failed: %w", err)}
		}
		return documentReloadMsg(doc)
	}
}

func (m *model) shutdown() {
	if m.controller != nil {
		m.controller.Stop()
	}
}

func (m *model) View() string {
	if m.fatalErr != nil {
		return m.fatalErr.Error()
	}
	if !m.ready {
		return "\n  loading..."
	}
	if m.state == statePicker {
		return m.pickerView()
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	if band := m.bandView(); band != "" {
		b.WriteString(band)
		b.WriteByte('\n')
	}
	b.WriteString(m.statusBarView())
	if m.showHelp {
		b.WriteByte('\n')
		b.WriteString(m.helpView())
	}
	return b.String()
}
