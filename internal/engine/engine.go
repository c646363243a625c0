// Package engine defines the capability interface the call session
// controller drives the voice engine through. The controller never depends
// on a concrete engine, only on this fixed event vocabulary.
package engine

import "context"

// EventType is one of the four events a voice engine can emit.
type EventType string

const (
	EventCallStart  EventType = "call-start"
	EventCallEnd    EventType = "call-end"
	EventTranscript EventType = "transcript"
	EventError      EventType = "error"
)

// Event is a single engine callback. Role, Text, and Final are only
// meaningful for transcript events; Err only for error events.
type Event struct {
	Type  EventType
	Role  string
	Text  string
	Final bool
	Err   error
}

// Handler receives engine events. A given engine delivers events one at a
// time; handlers never run concurrently with each other.
type Handler func(Event)

// Engine is the voice engine capability surface.
type Engine interface {
	// OnEvent registers the event handler. Must be called before Start.
	OnEvent(h Handler)
	// Start asks the engine to establish a call with the given assistant.
	Start(ctx context.Context, assistantID string) error
	// Stop tears the call down. The engine confirms with a call-end (or
	// error) event; callers must not assume the call is over on return.
	Stop() error
	// SetMuted toggles the local microphone.
	SetMuted(muted bool) error
}
