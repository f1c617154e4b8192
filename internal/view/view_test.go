package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/readaloud/internal/scheduler"
	"github.com/audiolibrelab/readaloud/internal/session"
	"github.com/audiolibrelab/readaloud/internal/store"
)

type nopCapture struct{}

func (nopCapture) Start() error { return nil }
func (nopCapture) Stop() error  { return nil }

func recorded(chunks int) session.Session {
	s := session.StartRecording(session.Initial(), "take", nopCapture{})
	for i := 0; i < chunks; i++ {
		s = session.AppendChunk(s, []byte{byte(i)}, "")
	}
	return session.StopRecording(s)
}

func TestProject_Initial(t *testing.T) {
	p := Project(session.Initial())

	assert.False(t, p.Recorded)
	assert.False(t, p.HasCounter)
	assert.Equal(t, Prompt, p.Title)
	assert.True(t, p.PlayDisabled)
	assert.Equal(t, []string{"empty"}, p.Classes)

	play, ok := p.Control(ControlPlay)
	require.True(t, ok)
	assert.True(t, play.Disabled)
	assert.Equal(t, "Play!", play.Label)

	record, ok := p.Control(ControlRecord)
	require.True(t, ok)
	assert.False(t, record.Disabled)
	assert.Equal(t, "Record!", record.Label)
}

func TestCounter(t *testing.T) {
	timer := scheduler.NewManual().Every(0, func(*scheduler.Handle) {})

	recording := session.StartRecording(session.Initial(), "a", nopCapture{})
	recording = session.AppendChunk(session.AppendChunk(recording, nil, ""), nil, "")

	paused := session.PausePlaying(session.IncreaseProgress(session.StartPlaying(recorded(5), timer)))

	playingAtZero := session.StartPlaying(recorded(5), timer)

	tests := []struct {
		name  string
		s     session.Session
		shown bool
		text  string
	}{
		{"initial", session.Initial(), false, ""},
		{"recording", recording, true, "00:02"},
		{"recording first take at zero", session.StartRecording(session.Initial(), "a", nopCapture{}), true, "00:00"},
		{"recorded", recorded(65), true, "01:05"},
		{"playing from zero", playingAtZero, true, "00:00"},
		{"paused mid take", paused, true, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Counter(tt.s, Props{})
			assert.Equal(t, tt.shown, p.HasCounter)
			assert.Equal(t, tt.text, p.CounterText)
		})
	}
}

func TestCounter_ProgressWinsOverDuration(t *testing.T) {
	s := recorded(30)
	for i := 0; i < 25; i++ {
		s = session.IncreaseProgress(s)
	}

	p := Project(s)
	assert.Equal(t, "00:02", p.CounterText)
	assert.Equal(t, "00:02", p.Title)
}

func TestStates(t *testing.T) {
	timer := scheduler.NewManual().Every(0, func(*scheduler.Handle) {})

	tests := []struct {
		name string
		s    session.Session
		want []string
	}{
		{"empty", session.Initial(), []string{"empty"}},
		{"first take", session.StartRecording(session.Initial(), "a", nopCapture{}), []string{"recorded", "recording", "empty"}},
		{"recorded", recorded(1), []string{"recorded"}},
		{"playing", session.StartPlaying(recorded(1), timer), []string{"recorded", "playing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.s).Classes)
		})
	}
}

func TestFailure(t *testing.T) {
	p := Project(recorded(3), Failure("Permission denied"))

	assert.Equal(t, "Error: Permission denied", p.Error)
	assert.True(t, p.Disabled)
	assert.True(t, p.PlayDisabled)
	assert.True(t, p.HasClass("disabled"))
	for _, c := range p.Controls {
		assert.True(t, c.Disabled, c.Name)
	}

	clean := Project(recorded(3), Failure(""))
	assert.Empty(t, clean.Error)
	assert.False(t, clean.Disabled)
}

func TestSource_Cached(t *testing.T) {
	calls := 0
	r := Cached(ResolverFunc(func(id session.ID, rec session.Recording) string {
		calls++
		return fmt.Sprintf("/api/recording/%s?chunks=%d", id, len(rec.Chunks))
	}))
	project := Source(r)

	s := session.StartRecording(session.Initial(), "take", nopCapture{})
	p := project(s, Props{})
	assert.Equal(t, "/api/recording/take?chunks=0", p.Source)

	project(s, Props{})
	assert.Equal(t, 1, calls, "unchanged take must hit the cache")

	s = session.AppendChunk(s, []byte("a"), "")
	p = project(s, Props{})
	assert.Equal(t, "/api/recording/take?chunks=1", p.Source)
	assert.Equal(t, 2, calls)

	assert.Empty(t, project(session.Initial(), Props{}).Source)
}

func TestScenario_RecordPlayEnd(t *testing.T) {
	sched := scheduler.NewManual()
	st := store.New(store.WithScheduler(sched))

	assert.Equal(t, Prompt, Project(st.Snapshot()).Title)

	id := st.StartRecording("", nopCapture{})
	for i := 0; i < 3; i++ {
		st.AppendChunk(id, []byte{byte(i)})
	}
	st.StopRecording()

	p := Project(st.Snapshot())
	assert.Equal(t, "00:03", p.CounterText)
	assert.False(t, p.PlayDisabled)

	require.True(t, st.StartPlaying(session.IncreaseProgress))
	sched.Tick(10)
	p = Project(st.Snapshot())
	assert.Equal(t, "00:01", p.CounterText)
	assert.True(t, p.HasClass("playing"))

	// End of media.
	st.StopPlaying()
	p = Project(st.Snapshot())
	assert.Equal(t, "00:03", p.CounterText)
	assert.False(t, p.PlayDisabled)
	assert.Equal(t, []string{"recorded"}, p.Classes)
}
