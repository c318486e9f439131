package sim

import (
	"context"
	"time"

	"github.com/Mu-L/permafrost-engine/config"
	"github.com/Mu-L/permafrost-engine/movement"
)

// RenderHz is the fixed render-subtick rate §4.8 interpolates against
// ("step fraction 1/(20/tick_hz) per render subtick"), independent of the
// configurable simulation tick rate.
const RenderHz = 20

// Loop drives movement.Core.Tick at the configured rate and tracks the
// render-subtick fraction between ticks, generalizing the teacher's
// main.go Update loop (_examples/pthm-soup/main.go's fixed
// stepsPerFrame walk) from a render-coupled variable-rate frame loop to
// §4.8's fixed tick-rate menu plus a decoupled render-subtick counter.
type Loop struct {
	Core *movement.Core

	subticksPerTick int
	subtick         int
}

// NewLoop derives the render-subticks-per-tick ratio from cfg.Tick.RateHz
// (e.g. 4 subticks per tick at 5Hz, 1 at 20Hz) per §4.8.
func NewLoop(core *movement.Core, cfg *config.Config) *Loop {
	spt := RenderHz / cfg.Tick.RateHz
	if spt < 1 {
		spt = 1
	}
	return &Loop{Core: core, subticksPerTick: spt}
}

// Run ticks Core at cfg.Tick.RateHz until ctx is cancelled. onTick, if
// non-nil, runs on the tick goroutine after each completed tick — the
// owning-thread context §5 requires for any canonical-state read (e.g. a
// headless CLI's periodic log line or -max-ticks accounting). Run blocks;
// callers that need concurrent render-subtick stepping should call it
// from its own goroutine.
func (l *Loop) Run(ctx context.Context, rateHz int, onTick func(tick int32)) {
	if rateHz < 1 {
		rateHz = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(rateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := l.Core.Tick()
			l.subtick = 0
			if onTick != nil {
				onTick(n)
			}
		}
	}
}

// Subtick advances the render-subtick counter by one render frame and
// returns the interpolation fraction in [0,1] to pass to
// movement.Core.Interpolate for this frame's blend, per §4.8. It
// saturates at 1 if called more than subticksPerTick times between ticks
// (a slow consumer falling behind the simulation), rather than
// overshooting NextPos.
func (l *Loop) Subtick() float32 {
	if l.subtick < l.subticksPerTick {
		l.subtick++
	}
	return float32(l.subtick) / float32(l.subticksPerTick)
}

// SubticksPerTick reports the current render-subticks-per-simulation-tick
// ratio, for callers that want to drive their own fixed-rate render loop
// in lockstep rather than use Subtick's internal counter.
func (l *Loop) SubticksPerTick() int {
	return l.subticksPerTick
}
