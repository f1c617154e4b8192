package tui

import "github.com/audiolibrelab/readaloud/internal/session"

// SessionMsg carries a session published by the store.
type SessionMsg struct {
	Session session.Session
}

// SubscriptionClosedMsg is sent when the store stops publishing.
type SubscriptionClosedMsg struct{}

// ActionDoneMsg reports the outcome of a record or play action.
type ActionDoneMsg struct {
	Action string
	Err    error
}
