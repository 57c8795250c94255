package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/autolight/internal/command"
	"github.com/dokzlo13/autolight/internal/config"
	"github.com/dokzlo13/autolight/internal/controller"
	"github.com/dokzlo13/autolight/internal/db"
	"github.com/dokzlo13/autolight/internal/eventloop"
	"github.com/dokzlo13/autolight/internal/ledger"
	"github.com/dokzlo13/autolight/internal/output"
	"github.com/dokzlo13/autolight/internal/schedule"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger

	// Domain
	Output     output.Output
	Schedules  *schedule.Set
	Controller *controller.Controller
	Dispatcher *command.Dispatcher

	// Host glue
	Loop    *eventloop.Loop
	Ticker  *TickerService
	Console *ConsoleService
}

// NewServices creates all services with explicit dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// History ledger (optional)
	if cfg.Database.Path != "" {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
	}

	// Schedule set. Config validation already ran; errors here mean a bug
	// upstream, not bad operator input.
	entries, err := cfg.Light.ScheduleEntries()
	if err != nil {
		s.Close()
		return nil, err
	}
	set, err := schedule.NewSet(entries)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Schedules = set
	for _, e := range set.Entries() {
		log.Info().
			Int("schedule", e.ID).
			Str("window", e.Window()).
			Float64("level", e.Brightness).
			Msg("Loaded schedule")
	}

	// Output backend
	switch cfg.Output.Type {
	case "hue":
		s.Output = output.NewHue(cfg.Output.Bridge, cfg.Output.Token, cfg.Light.Pin, cfg.Output.RateLimitRPS)
	case "log":
		s.Output = output.NewLog(cfg.Light.Pin)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown output type %q", cfg.Output.Type)
	}

	// Controller and command surface
	var rec controller.Recorder
	if s.Ledger != nil {
		rec = s.Ledger
	}
	s.Controller = controller.New(set, s.Output, cfg.Light.Enabled, rec)
	s.Dispatcher = command.NewDispatcher(s.Controller, s.Ledger)

	// Event delivery
	s.Loop = eventloop.New(0)
	s.Ticker = NewTickerService(s.Loop, cfg.Light.CheckInterval.Duration())
	s.Console = NewConsoleService(s.Loop, os.Stdin, os.Stdout)

	return s, nil
}

// Start wires event handlers and starts the background services. stop is
// invoked when the operator quits the console.
func (s *Services) Start(ctx context.Context, stop func()) error {
	if s.Ledger != nil {
		retention := time.Duration(s.cfg.Database.RetentionDays) * 24 * time.Hour
		if n, err := s.Ledger.Cleanup(retention); err != nil {
			log.Warn().Err(err).Msg("History cleanup failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("Pruned old history rows")
		}
	}

	s.Loop.Subscribe(eventloop.EventTypeTick, s.handleTick)
	s.Loop.Subscribe(eventloop.EventTypeCommand, s.handleCommand)

	go s.Loop.Run(ctx)
	s.Ticker.Start(ctx)
	s.Console.Start(ctx, stop)

	return nil
}

// Stop releases resources. The background goroutines stop with the
// application context.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases any resources acquired during construction.
func (s *Services) Close() {
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
		s.DB = nil
	}
}

func (s *Services) handleTick(ctx context.Context, _ eventloop.Event) {
	s.Controller.OnTick(ctx, schedule.MinutesOf(time.Now()))
}

func (s *Services) handleCommand(ctx context.Context, ev eventloop.Event) {
	line, ok := ev.Data.(string)
	if !ok {
		log.Error().Str("event", ev.ID).Msg("Command event without line payload")
		return
	}

	cmd, err := command.Parse(line)
	if err != nil {
		s.Console.Respond("error: " + err.Error())
		return
	}

	res := s.Dispatcher.Dispatch(ctx, cmd, schedule.MinutesOf(time.Now()))
	if res.Err != nil {
		s.Console.Respond("error: " + res.Err.Error())
		return
	}
	s.Console.Respond(res.Message)
}
