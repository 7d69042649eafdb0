package testutil

import (
	"github.com/pageforge-dev/pageforge/core"
)

// Drain collects everything from an event channel until it closes.
func Drain(ch <-chan core.Event) []core.Event {
	var out []core.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

// Kinds projects the event kinds in stream order.
func Kinds(events []core.Event) []core.EventKind {
	out := make([]core.EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

// ByKind filters events of one kind, preserving order.
func ByKind(events []core.Event, kind core.EventKind) []core.Event {
	var out []core.Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Find returns the first event matching kind and agent ("" matches any
// agent).
func Find(events []core.Event, kind core.EventKind, agent string) (core.Event, bool) {
	for _, ev := range events {
		if ev.Kind != kind {
			continue
		}
		if agent != "" && ev.Agent != agent {
			continue
		}
		return ev, true
	}
	return core.Event{}, false
}
