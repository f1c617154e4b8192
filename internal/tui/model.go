// Package tui is the terminal front end of the recorder.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/readaloud/internal/service"
	"github.com/audiolibrelab/readaloud/internal/session"
	"github.com/audiolibrelab/readaloud/internal/view"
)

const defaultWidth = 48

// Model is the top-level bubbletea model.
type Model struct {
	svc         service.Service
	updates     <-chan session.Session
	unsubscribe func()

	keys KeyMap
	help help.Model

	props        view.Props
	errorMessage string
	closed       bool

	width  int
	height int
}

// New creates a model subscribed to svc.
func New(svc service.Service) Model {
	updates, unsubscribe := svc.Subscribe()

	h := help.New()
	h.Styles.ShortKey = FooterKeyStyle
	h.Styles.ShortDesc = FooterDescStyle
	h.Styles.ShortSeparator = DimStyle

	return Model{
		svc:          svc,
		updates:      updates,
		unsubscribe:  unsubscribe,
		keys:         DefaultKeyMap(),
		help:         h,
		props:        svc.Props(),
		errorMessage: svc.GetLastError(),
	}
}

// Init starts listening for session updates.
func (m Model) Init() tea.Cmd {
	return waitForSession(m.updates)
}

// waitForSession blocks until the store publishes the next session.
func waitForSession(updates <-chan session.Session) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return SubscriptionClosedMsg{}
		}
		return SessionMsg{Session: s}
	}
}

// actionCmd runs a service action off the update loop.
func actionCmd(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Action: name, Err: fn()}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case SessionMsg:
		m.props = m.svc.Props()
		return m, waitForSession(m.updates)

	case SubscriptionClosedMsg:
		m.closed = true
		return m, nil

	case ActionDoneMsg:
		if msg.Err != nil {
			m.errorMessage = msg.Action + ": " + msg.Err.Error()
		} else {
			m.errorMessage = m.svc.GetLastError()
		}
		m.props = m.svc.Props()
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Record):
		if m.controlDisabled(view.ControlRecord) {
			return m, nil
		}
		return m, actionCmd(view.ControlRecord, m.svc.Record)

	case key.Matches(msg, m.keys.Play):
		if m.controlDisabled(view.ControlPlay) {
			return m, nil
		}
		return m, actionCmd(view.ControlPlay, m.svc.Play)
	}

	return m, nil
}

func (m Model) controlDisabled(name string) bool {
	if m.closed || m.props.Disabled {
		return true
	}
	c, ok := m.props.Control(name)
	return !ok || c.Disabled
}

// View renders the model.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = defaultWidth
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))
	sections = append(sections, m.renderTitle())
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))

	if m.props.Error != "" {
		sections = append(sections, ErrorTextStyle.Render(m.props.Error))
	} else if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("READALOUD")

	var dot string
	switch {
	case m.props.HasClass("recording"):
		dot = RecordingDotStyle.Render("● REC")
	case m.props.HasClass("playing"):
		dot = PlayingDotStyle.Render("▶ PLAY")
	case m.props.HasClass("recorded"):
		dot = IdleDotStyle.Render("■ READY")
	default:
		dot = IdleDotStyle.Render("○ IDLE")
	}

	return title + "  " + dot
}

func (m Model) renderTitle() string {
	if m.props.HasCounter {
		return CounterStyle.Render(m.props.Title)
	}
	return PromptStyle.Render(m.props.Title)
}

func (m Model) renderErrorBar() string {
	return ErrorStyle.Render("Error: ") + ErrorTextStyle.Render(m.errorMessage)
}

// renderFooter shows the bindings usable in the current state
func (m Model) renderFooter() string {
	keys := m.keys

	recordDesc := "record"
	if m.props.HasClass("recording") {
		recordDesc = "stop"
	}
	keys.Record.SetHelp("space", recordDesc)
	keys.Record.SetEnabled(!m.controlDisabled(view.ControlRecord))

	playDesc := "play"
	if m.props.HasClass("playing") {
		playDesc = "pause"
	}
	keys.Play.SetHelp("p", playDesc)
	keys.Play.SetEnabled(!m.controlDisabled(view.ControlPlay))

	return m.help.View(keys)
}
