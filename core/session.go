package core

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Mode selects how the pipeline treats an existing page definition.
type Mode string

const (
	// ModeCreate generates a new page from scratch.
	ModeCreate Mode = "create"
	// ModeModify changes specific aspects of an existing page.
	ModeModify Mode = "modify"
	// ModeEnhance adds features to an existing page without restructuring it.
	ModeEnhance Mode = "enhance"
)

// ParseMode validates a mode string, defaulting empty input to ModeCreate.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.TrimSpace(s)) {
	case "":
		return ModeCreate, nil
	case ModeCreate:
		return ModeCreate, nil
	case ModeModify:
		return ModeModify, nil
	case ModeEnhance:
		return ModeEnhance, nil
	default:
		return "", NewValidationError("mode", fmt.Sprintf("unrecognized mode %q", s))
	}
}

// Status is the session lifecycle state.
type Status string

const (
	// StatusPending means the session is accepted but no stage has run.
	StatusPending Status = "pending"
	// StatusRunning means at least one stage has been dispatched.
	StatusRunning Status = "running"
	// StatusSucceeded is terminal: the final artifact was assembled.
	StatusSucceeded Status = "succeeded"
	// StatusFailed is terminal: a hard dependency stage failed.
	StatusFailed Status = "failed"
	// StatusCancelled is terminal: cancellation was requested and honored.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// TokenUsage accumulates model token counters across one or more calls.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add folds another usage sample into the receiver.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
}

// Contribution is the validated output of one agent run. The payload is
// opaque to the coordinator; only the owning agent interprets it. A
// contribution is immutable once merged and is superseded only when the
// same agent is deliberately re-run during a revision pass.
type Contribution struct {
	Agent     string         `json:"agent"`
	Payload   map[string]any `json:"payload"`
	Reasoning string         `json:"reasoning,omitempty"`
	Model     string         `json:"model,omitempty"`
	Usage     TokenUsage     `json:"usage"`
	Duration  time.Duration  `json:"duration"`
	Valid     bool           `json:"valid"`
}

// Session is the unit of work for one generation request. Contributions are
// merged exactly once per completed stage by the coordinator; the event log
// is the externally observable record. All methods are safe for concurrent
// use, but writes are expected from the single coordinator goroutine that
// owns the session run.
type Session struct {
	ID          string
	Instruction string
	Mode        Mode
	Existing    map[string]any
	Created     time.Time

	mu            sync.RWMutex
	status        Status
	contributions map[string]Contribution
	reruns        map[string]int
	artifact      map[string]any
	failure       error
	log           *EventLog
}

// NewSession creates a pending session with an empty event log.
func NewSession(instruction string, mode Mode, existing map[string]any) *Session {
	return &Session{
		ID:            NewID(),
		Instruction:   instruction,
		Mode:          mode,
		Existing:      existing,
		Created:       time.Now().UTC(),
		status:        StatusPending,
		contributions: map[string]Contribution{},
		reruns:        map[string]int{},
		log:           NewEventLog(),
	}
}

// Log exposes the append-only event log for subscription and emission.
func (s *Session) Log() *EventLog { return s.log }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetRunning transitions pending → running. The transition emits no event of
// its own; it is implicit in the first stage_started.
func (s *Session) SetRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusPending {
		s.status = StatusRunning
	}
}

// MergeContribution records a completed agent stage. The entry is keyed by
// the contributing agent's name, so no agent can overwrite another's work.
// Merging into a terminal session is rejected.
func (s *Session) MergeContribution(c Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return fmt.Errorf("cannot merge contribution %q: session %s is %s", c.Agent, s.ID, s.status)
	}
	if _, seen := s.contributions[c.Agent]; seen {
		s.reruns[c.Agent]++
	}
	s.contributions[c.Agent] = c
	return nil
}

// Contribution returns the latest merged contribution for an agent.
func (s *Session) Contribution(agent string) (Contribution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contributions[agent]
	return c, ok
}

// Contributions returns a copy of the accumulated state map.
func (s *Session) Contributions() map[string]Contribution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Contribution, len(s.contributions))
	for k, v := range s.contributions {
		out[k] = v
	}
	return out
}

// Reruns returns how many times an agent's contribution has been superseded.
func (s *Session) Reruns(agent string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reruns[agent]
}

// Usage sums token usage across all merged contributions.
func (s *Session) Usage() TokenUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total TokenUsage
	for _, c := range s.contributions {
		total.Add(c.Usage)
	}
	return total
}

// Finalize moves the session to a terminal status exactly once, recording
// the artifact on success or the failure otherwise. Later calls are no-ops
// returning an error, which keeps terminal states absorbing.
func (s *Session) Finalize(status Status, artifact map[string]any, failure error) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize requires a terminal status, got %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return fmt.Errorf("session %s already finalized as %s", s.ID, s.status)
	}
	s.status = status
	s.artifact = artifact
	s.failure = failure
	return nil
}

// Artifact returns the assembled final payload. Before the terminal state it
// returns ErrNotReady; for failed sessions the recorded failure; for
// cancelled sessions ErrCancelled.
func (s *Session) Artifact() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.status {
	case StatusSucceeded:
		return s.artifact, nil
	case StatusFailed:
		return nil, s.failure
	case StatusCancelled:
		return nil, ErrCancelled
	default:
		return nil, ErrNotReady
	}
}
