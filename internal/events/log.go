// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events implements the append-only event log of an
// investigation. The orchestrator is the only writer; readers consume
// forward from the last sequence number they have seen.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Log is an append-only, strictly ordered event sequence. It is safe for
// concurrent use.
type Log struct {
	mu              sync.Mutex
	investigationID string
	events          []Event
	notify          chan struct{}
	closed          bool
	now             func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog returns an empty log for the investigation.
func NewLog(investigationID string, opts ...Option) *Log {
	l := &Log{
		investigationID: investigationID,
		notify:          make(chan struct{}),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records an event with data marshaled as its payload and wakes
// every waiting reader. Appends after Close are dropped and return an
// event with Seq 0.
func (l *Log) Append(t Type, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			b, _ = json.Marshal(Message{Text: err.Error()})
		}
		raw = b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Event{}
	}
	ev := Event{
		Seq:             int64(len(l.events)) + 1,
		ID:              uuid.NewString(),
		InvestigationID: l.investigationID,
		Type:            t,
		Timestamp:       l.now().UTC(),
		Data:            raw,
	}
	l.events = append(l.events, ev)
	close(l.notify)
	l.notify = make(chan struct{})
	return ev
}

// Since returns the events with Seq greater than pos and a channel that is
// closed on the next append or on Close.
func (l *Log) Since(pos int64) ([]Event, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	var out []Event
	if pos < int64(len(l.events)) {
		out = append(out, l.events[pos:]...)
	}
	return out, l.notify
}

// Len returns the number of events appended.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Close marks the log complete. Streams drain what remains and end.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.notify)
}

// Closed reports whether Close has been called.
func (l *Log) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Stream delivers every event after pos exactly once and in order. The
// channel is closed after the log is closed and drained, or when ctx is
// done.
func (l *Log) Stream(ctx context.Context, pos int64) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			evs, wait := l.Since(pos)
			for _, ev := range evs {
				select {
				case out <- ev:
					pos = ev.Seq
				case <-ctx.Done():
					return
				}
			}
			if len(evs) == 0 && l.Closed() {
				return
			}
			if len(evs) > 0 {
				continue
			}
			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
