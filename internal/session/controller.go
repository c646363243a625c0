// Package session drives the client-side call lifecycle: the state machine,
// the interim/final transcript merge, and export formatting.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/engine"
)

// State is the call lifecycle position.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConversation State = "conversation"
	StateEnded        State = "ended"
)

// Message is one finalized utterance in the live log. Interim fragments
// never become messages.
type Message struct {
	ID    string
	Role  string
	Text  string
	Final bool
}

// Controller owns the in-memory state of one call at a time. Engine
// callbacks and user actions are serialized through the controller mutex;
// the message log has no other writers.
//
// The merge invariant: interim transcript events only move the transient
// speaking indicator, final events append immutable log entries. The
// exported transcript is exactly the final entries in arrival order.
type Controller struct {
	engine  engine.Engine
	counter Counter
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	sessionID string
	messages  []Message
	speaking  string
	duration  int
	muted     bool
	startedAt time.Time
	stopTick  chan struct{}
}

func NewController(eng engine.Engine, counter Counter, logger *slog.Logger) *Controller {
	c := &Controller{
		engine:  eng,
		counter: counter,
		logger:  logger,
		now:     time.Now,
		state:   StateIdle,
	}
	eng.OnEvent(c.handleEvent)
	return c
}

// WithClock overrides the controller clock. Tests only.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Start generates a fresh provisional identifier and asks the engine to
// connect. Only legal from idle; the conversation state is entered when the
// engine confirms with its call-start event.
func (c *Controller) Start(ctx context.Context, assistantID string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("start session: not idle (state %s)", c.state)
	}

	id, err := ProvisionalID(c.counter, c.now())
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("generate provisional id: %w", err)
	}
	c.sessionID = id
	c.state = StateConnecting
	c.mu.Unlock()

	c.logger.Info("starting session", "session_id", id)

	if err := c.engine.Start(ctx, assistantID); err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		return fmt.Errorf("start call: %w", err)
	}
	return nil
}

// End forwards the stop request to the engine. The engine owns teardown: the
// controller leaves its state alone until the call-end (or error) event
// arrives, so an End during connecting simply rides on the engine's
// confirmation.
func (c *Controller) End() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state != StateConnecting && state != StateConversation {
		return nil
	}
	if err := c.engine.Stop(); err != nil {
		return fmt.Errorf("stop call: %w", err)
	}
	return nil
}

// ToggleMute flips the microphone state and returns the new value.
func (c *Controller) ToggleMute() (bool, error) {
	c.mu.Lock()
	muted := !c.muted
	c.muted = muted
	c.mu.Unlock()

	if err := c.engine.SetMuted(muted); err != nil {
		return muted, fmt.Errorf("set muted: %w", err)
	}
	return muted, nil
}

// NewSession resets to idle, discarding the finished call. The next Start
// generates a fresh provisional identifier.
func (c *Controller) NewSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickerLocked()
	c.state = StateIdle
	c.sessionID = ""
	c.messages = nil
	c.duration = 0
	c.speaking = ""
}

func (c *Controller) handleEvent(evt engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Type {
	case engine.EventCallStart:
		c.state = StateConversation
		c.messages = nil
		c.duration = 0
		c.speaking = ""
		c.startedAt = c.now()
		c.startTickerLocked()
		c.logger.Info("call started", "session_id", c.sessionID)

	case engine.EventCallEnd:
		c.stopTickerLocked()
		c.state = StateEnded
		c.speaking = ""
		c.logger.Info("call ended", "session_id", c.sessionID, "messages", len(c.messages))

	case engine.EventTranscript:
		c.mergeTranscriptLocked(evt)

	case engine.EventError:
		// Abort path: discard in-progress state. The authoritative
		// transcript still arrives via the end-of-call webhook.
		c.stopTickerLocked()
		c.state = StateIdle
		c.speaking = ""
		c.messages = nil
		c.logger.Error("engine error, session aborted", "session_id", c.sessionID, "error", evt.Err)
	}
}

func (c *Controller) mergeTranscriptLocked(evt engine.Event) {
	text := strings.TrimSpace(evt.Text)
	if text == "" {
		return
	}

	if !evt.Final {
		c.speaking = evt.Role
		return
	}

	c.speaking = ""
	c.messages = append(c.messages, Message{
		ID:    uuid.NewString(),
		Role:  evt.Role,
		Text:  text,
		Final: true,
	})
}

func (c *Controller) startTickerLocked() {
	c.stopTickerLocked()
	stop := make(chan struct{})
	c.stopTick = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				c.duration++
				c.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// State returns the current lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the provisional identifier for the current session, or
// "" when idle after a reset.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the finalized message log.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Speaking returns the role currently producing interim speech, or "".
func (c *Controller) Speaking() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Duration returns elapsed conversation seconds.
func (c *Controller) Duration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Muted reports the microphone state.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}
