package engine

import (
	"context"
	"errors"
	"sync"
)

// EventSink delivers events to a caller. Send is only called from the
// engine's worker goroutine, one event at a time.
type EventSink interface {
	Send(ev Event) error
}

// ErrSinkClosed is returned by Send once the consumer has gone away.
var ErrSinkClosed = errors.New("engine: event sink closed")

// FuncSink dispatches each event to a callback, e.g. a UI event loop.
type FuncSink func(Event) error

func (f FuncSink) Send(ev Event) error { return f(ev) }

// ChannelSink queues events for a blocking reader. The queue is unbounded so
// that a slow reader never stalls the engine.
type ChannelSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
	notify chan struct{}
}

// NewChannelSink returns an empty, open sink.
func NewChannelSink() *ChannelSink {
	return &ChannelSink{notify: make(chan struct{}, 1)}
}

func (s *ChannelSink) Send(ev Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.events = append(s.events, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until an event is available, ctx is done or the sink is
// closed.
func (s *ChannelSink) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.events) > 0 {
			ev := s.events[0]
			s.events[0] = nil
			s.events = s.events[1:]
			s.mu.Unlock()
			return ev, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, ErrSinkClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Await returns the event produced by command seq, discarding events of
// other commands. An ErrorEvent is returned as its *Error.
func (s *ChannelSink) Await(ctx context.Context, seq uint64) (Event, error) {
	for {
		ev, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if ev.Seq() != seq {
			continue
		}
		if e, ok := ev.(ErrorEvent); ok {
			return nil, e.Err
		}
		return ev, nil
	}
}

// Close detaches the consumer. Pending events are dropped and further
// sends fail with ErrSinkClosed.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.events = nil
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}
