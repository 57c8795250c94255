package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/autolight/internal/eventloop"
)

// TickerService publishes tick events on the loop at the configured
// interval. It always re-arms, even while automatic control is disabled:
// disabled ticks are no-ops in the controller, and re-enabling must
// resume control without a restart.
type TickerService struct {
	loop     *eventloop.Loop
	interval time.Duration
}

// NewTickerService creates the periodic check timer.
func NewTickerService(loop *eventloop.Loop, interval time.Duration) *TickerService {
	return &TickerService{loop: loop, interval: interval}
}

// Start launches the timer goroutine. The first tick fires immediately.
func (t *TickerService) Start(ctx context.Context) {
	go t.run(ctx)
}

func (t *TickerService) run(ctx context.Context) {
	log.Info().Dur("interval", t.interval).Msg("Brightness check timer started")

	t.publish()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Brightness check timer stopped")
			return
		case <-ticker.C:
			t.publish()
		}
	}
}

func (t *TickerService) publish() {
	t.loop.Publish(eventloop.Event{
		ID:   uuid.NewString(),
		Type: eventloop.EventTypeTick,
	})
}
