package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/parley/internal/bus"
)

// Subjects bridging the browser-side voice SDK through the swarm bus.
const (
	SubjectVoiceEvents  = "swarm.voice.events"
	SubjectVoiceControl = "swarm.voice.control"
)

// wireEvent is the JSON shape the voice gateway publishes. Transcript type
// defaults to final when absent, matching the upstream SDK.
type wireEvent struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Error          string `json:"error,omitempty"`
}

type controlMessage struct {
	Action      string `json:"action"`
	AssistantID string `json:"assistantId,omitempty"`
	Muted       bool   `json:"muted,omitempty"`
}

// NATS adapts the swarm bus to the Engine interface: control messages out,
// engine events in.
type NATS struct {
	bus     *bus.Client
	handler Handler
	logger  *slog.Logger
}

func NewNATS(c *bus.Client, logger *slog.Logger) (*NATS, error) {
	e := &NATS{bus: c, logger: logger}
	if err := c.Subscribe(SubjectVoiceEvents, e.receive); err != nil {
		return nil, fmt.Errorf("subscribe voice events: %w", err)
	}
	return e, nil
}

func (e *NATS) OnEvent(h Handler) {
	e.handler = h
}

func (e *NATS) Start(ctx context.Context, assistantID string) error {
	return e.bus.Publish(SubjectVoiceControl, controlMessage{Action: "start", AssistantID: assistantID})
}

func (e *NATS) Stop() error {
	return e.bus.Publish(SubjectVoiceControl, controlMessage{Action: "stop"})
}

func (e *NATS) SetMuted(muted bool) error {
	return e.bus.Publish(SubjectVoiceControl, controlMessage{Action: "mute", Muted: muted})
}

func (e *NATS) receive(subject string, data []byte) {
	if e.handler == nil {
		return
	}
	evt, ok := DecodeEvent(data)
	if !ok {
		e.logger.Warn("undecodable voice event", "subject", subject)
		return
	}
	e.handler(evt)
}

// DecodeEvent parses a wire event. Unknown event types are rejected rather
// than guessed at.
func DecodeEvent(data []byte) (Event, bool) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return Event{}, false
	}

	switch EventType(we.Type) {
	case EventCallStart, EventCallEnd:
		return Event{Type: EventType(we.Type)}, true
	case EventTranscript:
		role := we.Role
		if role == "" {
			role = "assistant"
		}
		return Event{
			Type:  EventTranscript,
			Role:  role,
			Text:  we.Transcript,
			Final: we.TranscriptType != "partial",
		}, true
	case EventError:
		msg := we.Error
		if msg == "" {
			msg = "unknown engine error"
		}
		return Event{Type: EventError, Err: errors.New(msg)}, true
	default:
		return Event{}, false
	}
}
