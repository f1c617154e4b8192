// Package view derives what the user interface shows from a session.
//
// Props are computed by a pipeline of small pure projectors. Each one reads
// the session and the props built so far and fills in its own fields.
package view

import (
	"github.com/audiolibrelab/readaloud/internal/session"
	"github.com/audiolibrelab/readaloud/internal/timefmt"
)

// Prompt is the title shown before anything has been recorded.
const Prompt = "Click to record & read the text"

// Control names
const (
	ControlRecord = "record"
	ControlPlay   = "play"
)

// Control is one user action button.
type Control struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// Props is everything a view needs to render the recorder.
type Props struct {
	Recorded bool `json:"recorded"`
	// CounterText is only meaningful when HasCounter is set.
	CounterText  string    `json:"counter,omitempty"`
	HasCounter   bool      `json:"has_counter"`
	Title        string    `json:"title"`
	PlayDisabled bool      `json:"play_disabled"`
	Source       string    `json:"source,omitempty"`
	Classes      []string  `json:"classes"`
	Controls     []Control `json:"controls"`
	Error        string    `json:"error,omitempty"`
	Disabled     bool      `json:"disabled"`

	Record func() error `json:"-"`
	Play   func() error `json:"-"`
}

// Projector computes part of the props.
type Projector func(s session.Session, p Props) Props

// Compose chains projectors left to right.
func Compose(projectors ...Projector) Projector {
	return func(s session.Session, p Props) Props {
		for _, project := range projectors {
			p = project(s, p)
		}
		return p
	}
}

// Project runs the standard pipeline followed by extra projectors.
func Project(s session.Session, extra ...Projector) Props {
	pipeline := append([]Projector{
		Recorded,
		Counter,
		PlayAvailability,
		Title,
		States,
		Controls,
	}, extra...)
	return Compose(pipeline...)(s, Props{})
}

// Recorded reports whether any take exists.
func Recorded(s session.Session, p Props) Props {
	p.Recorded = s.HasRecordings()
	return p
}

// Counter shows the playback position while playing or paused mid-take,
// otherwise the length of the active take once there is one.
func Counter(s session.Session, p Props) Props {
	p.HasCounter = false
	p.CounterText = ""

	switch {
	case s.IsPlaying || s.Progress != 0:
		p.CounterText = timefmt.Format(s.Progress)
		p.HasCounter = true
	case s.IsRecording || (!s.IsEmpty && !s.IsPlaying):
		duration := 0
		if r, ok := s.Current(); ok {
			duration = r.Duration
		}
		p.CounterText = timefmt.Format(float64(duration))
		p.HasCounter = true
	}
	return p
}

// PlayAvailability disables playback until the first take is committed.
func PlayAvailability(s session.Session, p Props) Props {
	p.PlayDisabled = s.IsEmpty
	return p
}

// Title is the counter when there is one, otherwise the prompt.
func Title(s session.Session, p Props) Props {
	if p.HasCounter {
		p.Title = p.CounterText
	} else {
		p.Title = Prompt
	}
	return p
}

// States lists the state flags that are set, in a fixed order.
func States(s session.Session, p Props) Props {
	p.Classes = p.Classes[:0:0]
	if p.Recorded {
		p.Classes = append(p.Classes, "recorded")
	}
	if s.IsRecording {
		p.Classes = append(p.Classes, "recording")
	}
	if s.IsPlaying {
		p.Classes = append(p.Classes, "playing")
	}
	if s.IsEmpty {
		p.Classes = append(p.Classes, "empty")
	}
	return p
}

// Controls builds the record and play buttons.
func Controls(s session.Session, p Props) Props {
	p.Controls = []Control{
		{Name: ControlRecord, Label: "Record!"},
		{Name: ControlPlay, Label: "Play!", Disabled: p.PlayDisabled},
	}
	return p
}

// Source resolves the active take through r.
func Source(r Resolver) Projector {
	return func(s session.Session, p Props) Props {
		p.Source = ""
		if rec, ok := s.Current(); ok && r != nil {
			p.Source = r.Resolve(s.Active, rec)
		}
		return p
	}
}

// Failure puts the view in disabled mode showing message. An empty message
// leaves the props untouched.
func Failure(message string) Projector {
	return func(s session.Session, p Props) Props {
		if message == "" {
			return p
		}
		p.Error = "Error: " + message
		p.Disabled = true
		p.PlayDisabled = true
		p.Classes = append(p.Classes, "disabled")

		controls := make([]Control, len(p.Controls))
		for i, c := range p.Controls {
			c.Disabled = true
			controls[i] = c
		}
		p.Controls = controls
		return p
	}
}

// HasClass reports whether the named state flag is set.
func (p Props) HasClass(name string) bool {
	for _, c := range p.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// Control returns the named control.
func (p Props) Control(name string) (Control, bool) {
	for _, c := range p.Controls {
		if c.Name == name {
			return c, true
		}
	}
	return Control{}, false
}
