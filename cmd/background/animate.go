package main

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// parentPollInterval is how often the companion checks for its parent.
const parentPollInterval = 500 * time.Millisecond

type runOptions struct {
	FPS         int
	Heartbeat   time.Duration
	ParentAlive func() bool
	Geometry    Geometry
	Logger      zerolog.Logger
}

// clock advances the animation. Phase runs from 0 to 1 over one cycle.
type clock struct {
	frames uint64
	cycle  time.Duration
	start  time.Time
}

func newClock(start time.Time, cycle time.Duration) *clock {
	return &clock{start: start, cycle: cycle}
}

func (c *clock) tick(now time.Time) float64 {
	c.frames++
	return c.phase(now)
}

func (c *clock) phase(now time.Time) float64 {
	if c.cycle <= 0 {
		return 0
	}
	elapsed := now.Sub(c.start) % c.cycle
	return float64(elapsed) / float64(c.cycle)
}

// brightness is a smooth 0..1 pulse over the cycle.
func brightness(phase float64) float64 {
	return 0.5 - 0.5*math.Cos(2*math.Pi*phase)
}

// run animates until ctx is cancelled or the parent disappears, and returns
// the reason it stopped.
func run(ctx context.Context, opts runOptions) string {
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	frame := time.NewTicker(time.Second / time.Duration(fps))
	defer frame.Stop()
	parent := time.NewTicker(parentPollInterval)
	defer parent.Stop()

	var heartbeat <-chan time.Time
	if opts.Heartbeat > 0 {
		hb := time.NewTicker(opts.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	c := newClock(time.Now(), 8*time.Second)
	for {
		select {
		case <-ctx.Done():
			return "signal"
		case now := <-frame.C:
			c.tick(now)
		case now := <-heartbeat:
			opts.Logger.Info().
				Uint64("frames", c.frames).
				Float64("brightness", brightness(c.phase(now))).
				Msg("heartbeat")
		case <-parent.C:
			if opts.ParentAlive != nil && !opts.ParentAlive() {
				return "parent gone"
			}
		}
	}
}
