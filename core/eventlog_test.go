package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogSequencing(t *testing.T) {
	log := NewEventLog()

	first := log.Append(NewEvent(EventStageStarted, "layout", nil))
	second := log.Append(NewEvent(EventStageCompleted, "layout", nil))

	assert.Equal(t, int64(0), first.Seq)
	assert.Equal(t, int64(1), second.Seq)
	assert.Equal(t, 2, log.Len())
	assert.False(t, log.Closed())
}

func TestEventLogClosesOnTerminal(t *testing.T) {
	log := NewEventLog()
	log.Append(NewEvent(EventStageStarted, "layout", nil))
	log.Append(NewEvent(EventDone, "", nil))
	require.True(t, log.Closed())

	// Late appends never reach the stream.
	log.Append(NewEvent(EventError, "", nil))
	assert.Equal(t, 2, log.Len())
}

func TestEventLogSubscribeReplayAndLive(t *testing.T) {
	log := NewEventLog()
	log.Append(NewEvent(EventStageStarted, "layout", nil))
	log.Append(NewEvent(EventStageCompleted, "layout", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch := log.Subscribe(ctx, 0)

	// Backlog replays in order.
	ev := <-ch
	assert.Equal(t, int64(0), ev.Seq)
	ev = <-ch
	assert.Equal(t, int64(1), ev.Seq)

	// Live events follow.
	go func() {
		log.Append(NewEvent(EventArtifactReady, "", nil))
		log.Append(NewEvent(EventDone, "", nil))
	}()

	var tail []Event
	for ev := range ch {
		tail = append(tail, ev)
	}
	require.Len(t, tail, 2)
	assert.Equal(t, EventArtifactReady, tail[0].Kind)
	assert.Equal(t, EventDone, tail[1].Kind)
}

func TestEventLogSubscribeFromOffset(t *testing.T) {
	log := NewEventLog()
	for i := 0; i < 5; i++ {
		log.Append(NewEvent(EventStageStarted, "layout", nil))
	}
	log.Append(NewEvent(EventDone, "", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []Event
	for ev := range log.Subscribe(ctx, 3) {
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Seq)
	assert.Equal(t, int64(5), got[2].Seq)
}

func TestEventLogSubscribeStaleCursorOnClosedLog(t *testing.T) {
	log := NewEventLog()
	log.Append(NewEvent(EventStageStarted, "layout", nil))
	log.Append(NewEvent(EventDone, "", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A reconnecting consumer may hold a cursor past the end of the log;
	// the stream closes empty instead of failing.
	var got []Event
	for ev := range log.Subscribe(ctx, 99) {
		got = append(got, ev)
	}
	assert.Empty(t, got)
}

func TestEventLogSubscriberCancellation(t *testing.T) {
	log := NewEventLog()
	ctx, cancel := context.WithCancel(context.Background())
	ch := log.Subscribe(ctx, 0)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close without delivering")
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not exit after context cancellation")
	}
}

func TestEventLogIndependentSubscribers(t *testing.T) {
	log := NewEventLog()
	log.Append(NewEvent(EventStageStarted, "layout", nil))
	log.Append(NewEvent(EventDone, "", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		var seqs []int64
		for ev := range log.Subscribe(ctx, 0) {
			seqs = append(seqs, ev.Seq)
		}
		assert.Equal(t, []int64{0, 1}, seqs)
	}
}
