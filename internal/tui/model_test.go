package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/readaloud/internal/config"
	"github.com/audiolibrelab/readaloud/internal/play"
	"github.com/audiolibrelab/readaloud/internal/session"
	"github.com/audiolibrelab/readaloud/internal/view"
)

type fakeService struct {
	session   session.Session
	failure   string
	lastError string
	updates   chan session.Session

	records int
	plays   int
	playErr error
}

func newFakeService() *fakeService {
	return &fakeService{
		session: session.Initial(),
		updates: make(chan session.Session, 1),
	}
}

func (f *fakeService) Record() error { f.records++; return nil }
func (f *fakeService) Play() error   { f.plays++; return f.playErr }
func (f *fakeService) Ended()        {}
func (f *fakeService) Props() view.Props {
	return view.Project(f.session, view.Failure(f.failure))
}
func (f *fakeService) Snapshot() session.Session { return f.session }
func (f *fakeService) Subscribe() (<-chan session.Session, func()) {
	return f.updates, func() {}
}
func (f *fakeService) Source(id session.ID) (play.Source, bool) { return play.Source{}, false }
func (f *fakeService) GetConfig() *config.Config                { return config.Default() }
func (f *fakeService) GetLastError() string                     { return f.lastError }
func (f *fakeService) Close() error                             { return nil }

func keyPress(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func recorded(t *testing.T) session.Session {
	t.Helper()
	s := session.StartRecording(session.Initial(), "take-1", nil)
	s = session.AppendChunk(s, []byte{1}, "")
	s = session.AppendChunk(s, []byte{2}, "")
	return session.StopRecording(s)
}

func TestNewModel(t *testing.T) {
	svc := newFakeService()
	m := New(svc)

	if m.props.Title != view.Prompt {
		t.Errorf("title = %q, want prompt", m.props.Title)
	}
	if m.closed {
		t.Error("new model should not be closed")
	}
	if !strings.Contains(m.View(), view.Prompt) {
		t.Error("view should show the prompt")
	}
}

func TestRecordKey(t *testing.T) {
	svc := newFakeService()
	m := New(svc)

	for _, k := range []string{" ", "r"} {
		_, cmd := m.Update(keyPress(k))
		if cmd == nil {
			t.Fatalf("key %q should produce a command", k)
		}
		msg := cmd()
		done, ok := msg.(ActionDoneMsg)
		if !ok {
			t.Fatalf("expected ActionDoneMsg, got %T", msg)
		}
		if done.Action != view.ControlRecord || done.Err != nil {
			t.Errorf("unexpected result %+v", done)
		}
	}
	if svc.records != 2 {
		t.Errorf("records = %d, want 2", svc.records)
	}
}

func TestPlayKeyIgnoredWhenEmpty(t *testing.T) {
	svc := newFakeService()
	m := New(svc)

	_, cmd := m.Update(keyPress("p"))
	if cmd != nil {
		t.Error("play should be ignored before anything is recorded")
	}
	if svc.plays != 0 {
		t.Errorf("plays = %d, want 0", svc.plays)
	}
}

func TestPlayKeyAfterRecording(t *testing.T) {
	svc := newFakeService()
	svc.session = recorded(t)
	m := New(svc)

	_, cmd := m.Update(keyPress("enter"))
	if cmd == nil {
		t.Fatal("enter should start playback")
	}
	cmd()
	if svc.plays != 1 {
		t.Errorf("plays = %d, want 1", svc.plays)
	}
}

func TestSessionMsgRefreshesProps(t *testing.T) {
	svc := newFakeService()
	m := New(svc)

	svc.session = recorded(t)
	updated, cmd := m.Update(SessionMsg{Session: svc.session})
	model := updated.(Model)

	if model.props.Title != "00:02" {
		t.Errorf("title = %q, want 00:02", model.props.Title)
	}
	if !model.props.HasClass("recorded") {
		t.Error("recorded class should be set")
	}
	if cmd == nil {
		t.Error("should keep listening for updates")
	}
	if !strings.Contains(model.View(), "00:02") {
		t.Error("view should show the counter")
	}
}

func TestWaitForSession(t *testing.T) {
	svc := newFakeService()
	m := New(svc)

	svc.updates <- recorded(t)
	msg := m.Init()()
	if _, ok := msg.(SessionMsg); !ok {
		t.Fatalf("expected SessionMsg, got %T", msg)
	}

	close(svc.updates)
	msg = m.Init()()
	if _, ok := msg.(SubscriptionClosedMsg); !ok {
		t.Fatalf("expected SubscriptionClosedMsg, got %T", msg)
	}

	updated, _ := m.Update(msg)
	_, cmd := updated.(Model).Update(keyPress("r"))
	if cmd != nil {
		t.Error("actions should be ignored once the subscription is closed")
	}
}

func TestActionError(t *testing.T) {
	svc := newFakeService()
	svc.session = recorded(t)
	m := New(svc)

	updated, _ := m.Update(ActionDoneMsg{Action: "play", Err: errors.New("no player")})
	model := updated.(Model)

	if model.errorMessage != "play: no player" {
		t.Errorf("errorMessage = %q", model.errorMessage)
	}
	if !strings.Contains(model.View(), "no player") {
		t.Error("view should show the error")
	}

	updated, _ = model.Update(ActionDoneMsg{Action: "play"})
	if updated.(Model).errorMessage != "" {
		t.Error("error should clear after a successful action")
	}
}

func TestDisabledService(t *testing.T) {
	svc := newFakeService()
	svc.failure = "device unavailable"
	m := New(svc)

	for _, k := range []string{" ", "p"} {
		if _, cmd := m.Update(keyPress(k)); cmd != nil {
			t.Errorf("key %q should be ignored in disabled mode", k)
		}
	}
	out := m.View()
	if !strings.Contains(out, "Error: device unavailable") {
		t.Error("view should show the failure")
	}
	if strings.Contains(out, "space") {
		t.Error("footer should hide the record binding in disabled mode")
	}
}

func TestQuit(t *testing.T) {
	m := New(newFakeService())

	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := m.Update(keyPress(k))
		if cmd == nil {
			t.Fatalf("key %q should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q should produce QuitMsg", k)
		}
	}
}

func TestWindowSize(t *testing.T) {
	m := New(newFakeService())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model := updated.(Model)
	if model.width != 100 || model.height != 30 {
		t.Errorf("size = %dx%d, want 100x30", model.width, model.height)
	}
}

func TestFooterLabels(t *testing.T) {
	svc := newFakeService()
	m := New(svc)

	out := m.renderFooter()
	if !strings.Contains(out, "record") || !strings.Contains(out, "quit") {
		t.Errorf("footer = %q, want record and quit", out)
	}
	if strings.Contains(out, "play") {
		t.Errorf("footer = %q, play should be hidden before a take exists", out)
	}

	svc.session = session.StartRecording(session.Initial(), "take-1", nil)
	updated, _ := m.Update(SessionMsg{Session: svc.session})
	if out := updated.(Model).renderFooter(); !strings.Contains(out, "stop") {
		t.Errorf("footer = %q, want stop while recording", out)
	}
}
