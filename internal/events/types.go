// Package events defines the event types published by the backend.
package events

// Terminal session lifecycle events.
const (
	SessionStarted = "terminal.session.started"
	SessionEnded   = "terminal.session.ended"
)

// Subject patterns for subscribers.
const (
	AllSessionEvents = "terminal.session.*"
)
