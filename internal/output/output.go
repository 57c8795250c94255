// Package output abstracts the settable analog output the controller
// writes brightness levels to.
package output

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrWriteFailed wraps backend errors so callers can classify failed
// writes without knowing the backend.
var ErrWriteFailed = errors.New("output write failed")

// Output is a settable analog output accepting a normalized power level
// in [0,1]. Writes are fire-and-forget: no acknowledgement, no retry.
type Output interface {
	Name() string
	Set(ctx context.Context, level float64) error
}

// Log is a backend that only logs writes. Dry-run target.
type Log struct {
	name string
}

// NewLog creates a log-only output with the given pin name.
func NewLog(name string) *Log {
	return &Log{name: name}
}

func (o *Log) Name() string {
	return o.name
}

func (o *Log) Set(_ context.Context, level float64) error {
	log.Info().Str("pin", o.name).Float64("level", level).Msg("Output write")
	return nil
}
