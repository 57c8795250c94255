package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/autolight/internal/eventloop"
)

// ConsoleService reads operator command lines from its input and writes
// responses to its output. It is the daemon's command channel; remote
// integrations are expected to drive it (or the dispatcher directly)
// rather than a network protocol of their own.
type ConsoleService struct {
	loop *eventloop.Loop
	in   io.Reader

	mu  sync.Mutex
	out io.Writer
}

// NewConsoleService creates a console bound to the given streams.
func NewConsoleService(loop *eventloop.Loop, in io.Reader, out io.Writer) *ConsoleService {
	return &ConsoleService{loop: loop, in: in, out: out}
}

// Start launches the reader goroutine. stop is called when the operator
// types "quit" or the input closes.
func (c *ConsoleService) Start(ctx context.Context, stop func()) {
	go c.run(ctx, stop)
}

func (c *ConsoleService) run(ctx context.Context, stop func()) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			log.Info().Msg("Console quit requested")
			if stop != nil {
				stop()
			}
			return
		}

		c.loop.Publish(eventloop.Event{
			ID:   uuid.NewString(),
			Type: eventloop.EventTypeCommand,
			Data: line,
		})
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("Console input error")
	}
}

// Respond writes one message to the console output.
func (c *ConsoleService) Respond(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, msg)
}
