package output

import (
	"context"
	"fmt"
	"math"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Hue drives a single Hue light as the output. Level 0 turns the light
// off; anything above maps to on with brightness scaled to 1..254.
//
// The light is resolved by name on first use, so the daemon starts even
// when the bridge is temporarily unreachable.
type Hue struct {
	bridge  *huego.Bridge
	name    string
	limiter *rate.Limiter

	lightID int // 0 until resolved
}

// NewHue creates a Hue output for the named light. Writes are rate
// limited to protect the bridge.
func NewHue(bridgeAddr, token, lightName string, rps float64) *Hue {
	if rps <= 0 {
		rps = 2
	}
	return &Hue{
		bridge:  huego.New(bridgeAddr, token),
		name:    lightName,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (o *Hue) Name() string {
	return o.name
}

func (o *Hue) Set(ctx context.Context, level float64) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	id, err := o.resolve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if level <= 0 {
		if _, err := o.bridge.SetLightStateContext(ctx, id, huego.State{On: false}); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		return nil
	}

	// Scale (0,1] to the bridge's 1..254 range.
	bri := uint8(math.Round(level*253)) + 1
	if _, err := o.bridge.SetLightStateContext(ctx, id, huego.State{On: true, Bri: bri}); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (o *Hue) resolve(ctx context.Context) (int, error) {
	if o.lightID != 0 {
		return o.lightID, nil
	}
	lights, err := o.bridge.GetLightsContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list lights: %v", err)
	}
	for _, l := range lights {
		if l.Name == o.name {
			o.lightID = l.ID
			log.Info().Str("light", o.name).Int("id", l.ID).Msg("Resolved Hue light")
			return l.ID, nil
		}
	}
	return 0, fmt.Errorf("light %q not found on bridge", o.name)
}
