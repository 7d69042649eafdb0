package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the observable units on a session's progress stream.
type EventKind string

const (
	// EventStageStarted marks the dispatch of one agent stage.
	EventStageStarted EventKind = "stage_started"
	// EventStageCompleted marks a stage whose contribution was merged.
	EventStageCompleted EventKind = "stage_completed"
	// EventStageFailed marks a stage that could not produce a contribution.
	EventStageFailed EventKind = "stage_failed"
	// EventRetrievalPerformed summarizes a retrieval query issued while
	// building an agent's context.
	EventRetrievalPerformed EventKind = "retrieval_performed"
	// EventArtifactReady carries the assembled final page definition.
	EventArtifactReady EventKind = "artifact_ready"
	// EventError carries the failure detail of a session-level failure.
	EventError EventKind = "error"
	// EventCancelled marks cooperative cancellation of the session.
	EventCancelled EventKind = "cancelled"
	// EventDone closes the stream. It is always the last event, regardless
	// of how the session terminated.
	EventDone EventKind = "done"
)

// Event is one unit on a session's progress stream. Events are immutable
// after creation; Seq is assigned by the EventLog on append and is strictly
// increasing per session starting at 0, so consumers can detect gaps and
// replay from any position.
type Event struct {
	Seq       int64          `json:"seq"`
	Kind      EventKind      `json:"kind"`
	Agent     string         `json:"agent,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// IsTerminal reports whether this event closes the stream.
func (e Event) IsTerminal() bool { return e.Kind == EventDone }

// NewEvent creates an unsequenced event; the EventLog assigns Seq on append.
func NewEvent(kind EventKind, agent string, payload map[string]any) Event {
	return Event{Kind: kind, Agent: agent, Payload: payload, Timestamp: time.Now().UTC()}
}

// NewID generates a unique identifier for sessions.
func NewID() string { return uuid.NewString() }
