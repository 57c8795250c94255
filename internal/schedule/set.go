package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// MaxEntries is the maximum number of schedule entries in a set.
const MaxEntries = 5

var (
	// ErrNotFound is returned when a schedule id does not exist in the set.
	ErrNotFound = errors.New("schedule not found")

	// ErrLastScheduleGuard is returned when disabling an entry would leave
	// the set with no enabled entries.
	ErrLastScheduleGuard = errors.New("at least one schedule must remain enabled")
)

// Set owns an ordered collection of schedule entries, sorted by start time
// once at construction. After initialization at least one entry is always
// enabled: the guard in SetEnabled refuses to disable the last one, and
// construction re-enables the lowest-id entry when everything arrives
// disabled.
type Set struct {
	entries []*Entry
	healed  bool
}

// NewSet builds a set from 1 to MaxEntries entries. The entries are sorted
// by ascending start time; the sort happens once here, never on toggle.
func NewSet(entries []Entry) (*Set, error) {
	if len(entries) == 0 {
		return nil, errors.New("at least one schedule required")
	}
	if len(entries) > MaxEntries {
		return nil, fmt.Errorf("too many schedules: %d, maximum is %d", len(entries), MaxEntries)
	}

	s := &Set{entries: make([]*Entry, len(entries))}
	for i := range entries {
		e := entries[i]
		s.entries[i] = &e
	}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Start < s.entries[j].Start
	})

	s.healed = s.heal()
	return s, nil
}

// heal re-enables the lowest-id entry when no entry is enabled. The
// correction is always logged, never silent.
func (s *Set) heal() bool {
	if s.enabledCount() > 0 {
		return false
	}
	lowest := s.entries[0]
	for _, e := range s.entries[1:] {
		if e.ID < lowest.ID {
			lowest = e
		}
	}
	lowest.Enabled = true
	log.Warn().Int("schedule", lowest.ID).Msg("No enabled schedules, re-enabling")
	return true
}

// Healed reports whether construction had to re-enable an entry.
func (s *Set) Healed() bool {
	return s.healed
}

// FindActive returns the entry covering the given minute of day, or false
// when no enabled entry matches (a gap in coverage; the caller decides the
// fallback). When several enabled entries overlap the instant, the one
// with the lowest id wins. All candidates are scanned: after the
// start-time sort, lowest-id is not necessarily first in sequence.
func (s *Set) FindActive(now Minutes) (Entry, bool) {
	var winner *Entry
	for _, e := range s.entries {
		if !e.Enabled || !e.Matches(now) {
			continue
		}
		if winner == nil || e.ID < winner.ID {
			winner = e
		}
	}
	if winner == nil {
		return Entry{}, false
	}
	return *winner, true
}

// SetEnabled toggles one entry. Disabling the last enabled entry is
// refused with ErrLastScheduleGuard and leaves the set unchanged.
func (s *Set) SetEnabled(id int, enabled bool) error {
	var target *Entry
	for _, e := range s.entries {
		if e.ID == id {
			target = e
			break
		}
	}
	if target == nil {
		return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	if !enabled && target.Enabled && s.enabledCount() == 1 {
		return ErrLastScheduleGuard
	}
	target.Enabled = enabled
	return nil
}

func (s *Set) enabledCount() int {
	n := 0
	for _, e := range s.entries {
		if e.Enabled {
			n++
		}
	}
	return n
}

// EnabledCount returns the number of currently enabled entries.
func (s *Set) EnabledCount() int {
	return s.enabledCount()
}

// Len returns the number of entries in the set.
func (s *Set) Len() int {
	return len(s.entries)
}

// Entries returns copies of all entries in ascending id order. Listing
// order is stable identity order for operator readability, not the
// internal start-time order.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
