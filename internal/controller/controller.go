// Package controller owns the master enable switch, the last-applied
// brightness cache and the periodic re-evaluation behavior. It translates
// "active schedule changed" into a single output write.
package controller

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/autolight/internal/output"
	"github.com/dokzlo13/autolight/internal/schedule"
)

// Recorder receives a notification for every applied brightness change.
// Implemented by the history ledger; nil disables recording.
type Recorder interface {
	RecordApplied(scheduleID int, level float64, source string) error
}

// Controller drives one output from one schedule set.
//
// It is not safe for concurrent use: the host event loop must serialize
// all calls (see internal/eventloop).
type Controller struct {
	set      *schedule.Set
	out      output.Output
	recorder Recorder

	masterEnabled bool
	lastApplied   float64
	haveApplied   bool
}

// New creates a controller. The brightness cache starts unset, so the
// first evaluation always writes.
func New(set *schedule.Set, out output.Output, enabled bool, rec Recorder) *Controller {
	return &Controller{set: set, out: out, recorder: rec, masterEnabled: enabled}
}

// Enabled reports the master switch state.
func (c *Controller) Enabled() bool {
	return c.masterEnabled
}

// LastApplied returns the cached brightness and whether one has ever been
// applied.
func (c *Controller) LastApplied() (float64, bool) {
	return c.lastApplied, c.haveApplied
}

// OnTick runs one periodic evaluation. When the master switch is off this
// is a no-op; the timer keeps re-arming regardless, so re-enabling resumes
// automatic control without a restart. A write failure is logged and the
// tick completes normally: the periodic mechanism must never die.
func (c *Controller) OnTick(ctx context.Context, now schedule.Minutes) {
	if !c.masterEnabled {
		return
	}
	if _, _, err := c.apply(ctx, now, false, "tick"); err != nil {
		log.Error().Err(err).Str("pin", c.out.Name()).Msg("Output write failed")
	}
}

// ForceCheck evaluates and writes unconditionally, bypassing the
// unchanged-skip. Used by the manual check command and on re-enable. It
// works even while the master switch is off. Returns the matched entry
// and whether any enabled entry covered the instant.
func (c *Controller) ForceCheck(ctx context.Context, now schedule.Minutes) (schedule.Entry, bool, error) {
	return c.apply(ctx, now, true, "force")
}

func (c *Controller) apply(ctx context.Context, now schedule.Minutes, force bool, source string) (schedule.Entry, bool, error) {
	entry, ok := c.set.FindActive(now)
	if !ok {
		// Hold-last-value: a gap in schedule coverage is a no-op, not a
		// blackout.
		log.Debug().Str("time", now.String()).Msg("No active schedule, holding last value")
		return schedule.Entry{}, false, nil
	}

	if !force && c.haveApplied && entry.Brightness == c.lastApplied {
		log.Debug().
			Int("schedule", entry.ID).
			Float64("level", entry.Brightness).
			Msg("Brightness unchanged, skipping write")
		return entry, true, nil
	}

	if err := c.out.Set(ctx, entry.Brightness); err != nil {
		// Cache stays untouched so the next tick retries the same write.
		return entry, true, err
	}
	c.lastApplied = entry.Brightness
	c.haveApplied = true

	log.Info().
		Int("schedule", entry.ID).
		Str("window", entry.Window()).
		Float64("level", entry.Brightness).
		Str("time", now.String()).
		Str("source", source).
		Msg("Brightness applied")

	if c.recorder != nil {
		if err := c.recorder.RecordApplied(entry.ID, entry.Brightness, source); err != nil {
			log.Warn().Err(err).Msg("Failed to record brightness change")
		}
	}
	return entry, true, nil
}

// ResetCache clears the cached brightness, forcing the next tick or force
// check to write unconditionally. No output write happens here.
func (c *Controller) ResetCache() {
	c.haveApplied = false
	log.Info().Msg("Brightness cache cleared")
}

// Enable turns automatic control on and applies the current schedule
// immediately rather than waiting for the next tick boundary.
func (c *Controller) Enable(ctx context.Context, now schedule.Minutes) {
	c.masterEnabled = true
	log.Info().Msg("Automatic control enabled")
	if _, _, err := c.ForceCheck(ctx, now); err != nil {
		log.Error().Err(err).Msg("Brightness check after enable failed")
	}
}

// Disable turns automatic control off. The periodic timer keeps running;
// its ticks become no-ops until Enable.
func (c *Controller) Disable() {
	c.masterEnabled = false
	log.Info().Msg("Automatic control disabled")
}

// SetScheduleEnabled toggles one schedule entry, subject to the
// last-schedule guard.
func (c *Controller) SetScheduleEnabled(id int, enabled bool) error {
	return c.set.SetEnabled(id, enabled)
}

// EntryStatus is one row of the schedule listing.
type EntryStatus struct {
	schedule.Entry
	Active bool
}

// Describe lists all entries in ascending id order, marking the one
// active at the given instant. Read-only.
func (c *Controller) Describe(now schedule.Minutes) []EntryStatus {
	active, ok := c.set.FindActive(now)
	entries := c.set.Entries()
	out := make([]EntryStatus, len(entries))
	for i, e := range entries {
		out[i] = EntryStatus{Entry: e, Active: ok && e.ID == active.ID}
	}
	return out
}
