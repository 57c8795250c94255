// Package eventloop delivers timer ticks and operator commands to their
// handlers from exactly one goroutine. The controller is not internally
// locked; this serialization is what makes that safe.
package eventloop

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeTick    EventType = "tick"
	EventTypeCommand EventType = "command"
)

// DefaultQueueSize bounds the pending event queue.
const DefaultQueueSize = 16

// Event represents an event in the system
type Event struct {
	ID   string
	Type EventType
	Data any
}

// Handler is a function that handles events
type Handler func(ctx context.Context, ev Event)

// Loop routes events to handlers. Unlike a worker pool there is a single
// consumer goroutine, so handlers never run concurrently with each other.
type Loop struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	queue chan Event

	// Closing this channel signals publishers to stop. Using a channel in
	// select is race-free (unlike mutex + bool).
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a loop with the given queue size (DefaultQueueSize if <= 0).
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		handlers: make(map[EventType][]Handler),
		queue:    make(chan Event, queueSize),
		closing:  make(chan struct{}),
	}
}

// Subscribe registers a handler for an event type. Call before Run.
func (l *Loop) Subscribe(t EventType, h Handler) {
	l.mu.Lock()
	l.handlers[t] = append(l.handlers[t], h)
	l.mu.Unlock()
}

// Publish enqueues an event. Events are dropped with a warning when the
// queue is full or the loop is shutting down; a dropped tick is recovered
// by the next one.
func (l *Loop) Publish(ev Event) {
	select {
	case <-l.closing:
		log.Debug().Str("type", string(ev.Type)).Msg("Loop closing, dropping event")
		return
	default:
	}

	select {
	case l.queue <- ev:
	default:
		log.Warn().Str("type", string(ev.Type)).Msg("Event queue full, dropping event")
	}
}

// Run processes events until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	log.Info().Msg("Event loop started")
	for {
		select {
		case <-ctx.Done():
			l.closeOnce.Do(func() { close(l.closing) })
			log.Info().Msg("Event loop stopping")
			return
		case ev := <-l.queue:
			l.dispatch(ctx, ev)
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, ev Event) {
	l.mu.RLock()
	handlers := l.handlers[ev.Type]
	l.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug().Str("type", string(ev.Type)).Msg("No handlers for event")
		return
	}
	for _, h := range handlers {
		h(ctx, ev)
	}
}
