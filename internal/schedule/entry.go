// Package schedule implements the brightness schedule model: labeled
// time-of-day windows with independent enable flags and deterministic
// resolution of the single active window.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Minutes is a time of day expressed as minutes since midnight, 0..1439.
type Minutes int

// MinutesPerDay is the number of minutes on a clock face.
const MinutesPerDay = 24 * 60

// MinutesOf converts a wall-clock time to its minute of day.
func MinutesOf(t time.Time) Minutes {
	return Minutes(t.Hour()*60 + t.Minute())
}

func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Entry is one schedule window. Entries are created once at configuration
// load time and never removed; only the Enabled flag changes afterwards.
type Entry struct {
	ID         int
	Start      Minutes
	End        Minutes
	Brightness float64
	Enabled    bool
}

// Matches reports whether the entry covers the given minute of day.
// A window with Start > End wraps past midnight. A zero-width window
// (Start == End) never matches.
func (e Entry) Matches(now Minutes) bool {
	switch {
	case e.Start == e.End:
		return false
	case e.Start > e.End: // crosses midnight, e.g. 23:00-07:00
		return now >= e.Start || now < e.End
	default:
		return e.Start <= now && now < e.End
	}
}

// Window returns the entry's time window as "HH:MM-HH:MM".
func (e Entry) Window() string {
	return e.Start.String() + "-" + e.End.String()
}

// ParseEntry parses a schedule definition of the form "HH:MM-HH:MM=B",
// where B is a decimal brightness in [0,1].
func ParseEntry(id int, s string) (Entry, error) {
	timePart, briPart, ok := strings.Cut(s, "=")
	if !ok {
		return Entry{}, fmt.Errorf("missing '=' in %q", s)
	}
	startStr, endStr, ok := strings.Cut(timePart, "-")
	if !ok {
		return Entry{}, fmt.Errorf("missing '-' in %q", s)
	}
	start, err := parseClock(strings.TrimSpace(startStr))
	if err != nil {
		return Entry{}, err
	}
	end, err := parseClock(strings.TrimSpace(endStr))
	if err != nil {
		return Entry{}, err
	}
	bri, err := strconv.ParseFloat(strings.TrimSpace(briPart), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid brightness %q", briPart)
	}
	if bri < 0 || bri > 1 {
		return Entry{}, fmt.Errorf("brightness %v out of range [0,1]", bri)
	}
	return Entry{ID: id, Start: start, End: end, Brightness: bri, Enabled: true}, nil
}

func parseClock(s string) (Minutes, error) {
	hhStr, mmStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hh, err := strconv.Atoi(hhStr)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	mm, err := strconv.Atoi(mmStr)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return Minutes(hh*60 + mm), nil
}
