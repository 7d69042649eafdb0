package core

import (
	"context"
	"sync"
)

// EventLog is the append-only, single-writer record of everything a session
// has communicated to its callers. It is the sole source of truth for the
// stream: subscribers replay the backlog from any sequence number and then
// follow live appends, receiving every event exactly once in order.
//
// The log is closed by appending a terminal event (EventDone); no appends
// are accepted afterwards.
type EventLog struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

// NewEventLog creates an empty open log.
func NewEventLog() *EventLog {
	l := &EventLog{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Append assigns the next sequence number to ev, stores it and wakes
// subscribers. Appending to a closed log is a silent no-op so that late
// bookkeeping after a terminal event cannot corrupt the stream contract.
// It returns the event as stored (with Seq assigned).
func (l *EventLog) Append(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ev
	}
	ev.Seq = int64(len(l.events))
	l.events = append(l.events, ev)
	if ev.IsTerminal() {
		l.closed = true
	}
	l.cond.Broadcast()
	return ev
}

// Events returns a defensive copy of the full log.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of appended events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Closed reports whether a terminal event has been appended.
func (l *EventLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Subscribe returns a channel that first replays the backlog starting at
// fromSeq and then delivers live events. The channel is closed after the
// terminal event has been delivered, or when ctx is cancelled. Multiple
// subscribers are independent; none shares iteration state.
func (l *EventLog) Subscribe(ctx context.Context, fromSeq int64) <-chan Event {
	out := make(chan Event, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		defer close(done)
		cursor := fromSeq
		if cursor < 0 {
			cursor = 0
		}
		for {
			l.mu.Lock()
			for int(cursor) >= len(l.events) && !l.closed {
				if ctx.Err() != nil {
					l.mu.Unlock()
					return
				}
				l.cond.Wait()
			}
			// A stale cursor past the end of a closed log has nothing to
			// replay; clamp rather than slice out of range.
			if int(cursor) > len(l.events) {
				cursor = int64(len(l.events))
			}
			batch := make([]Event, len(l.events)-int(cursor))
			copy(batch, l.events[cursor:])
			closed := l.closed
			l.mu.Unlock()

			for _, ev := range batch {
				select {
				case <-ctx.Done():
					return
				case out <- ev:
					cursor++
				}
			}
			if closed && int(cursor) >= l.Len() {
				return
			}
		}
	}()

	// Wake waiting subscribers when the context dies so they can exit.
	go func() {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.cond.Broadcast()
			l.mu.Unlock()
		case <-done:
		}
	}()

	return out
}
