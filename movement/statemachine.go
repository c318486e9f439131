package movement

import (
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/config"
)

// ArrivalRadius implements §4.9's arrival test: an agent is considered to
// have reached a point target once within 1.5x its own selection radius.
func ArrivalRadius(bodyRadius float32) float32 { return 1.5 * bodyRadius }

// Reached reports whether pos is within target's arrival radius.
func Reached(pos, target components.Position, bodyRadius float32) bool {
	dx, dz := pos.X-target.X, pos.Z-target.Z
	r := ArrivalRadius(bodyRadius)
	return dx*dx+dz*dz <= r*r
}

// DesiredVelocity is what the state machine asks steering to seek this
// tick: a direction (already normalized) scaled by the agent's own base
// speed by the caller, or nothing when the state calls for standing
// still.
type DesiredVelocity struct {
	Dir    components.Velocity
	HasDir bool
}

// StepContext is everything the state machine needs to decide a
// transition and a desired velocity for one agent this tick, pre-resolved
// by the owning Core (field-cache lookups, entity-range distance,
// neighbour-arrived flag) so this file stays pure per-agent logic with no
// field/navgrid dependency of its own.
type StepContext struct {
	Pos        components.Position
	BodyRadius float32
	Heading    float32
	Move       *components.Movestate

	// FlowDir is the unit world-space direction the cached flow field (or
	// direct seek, for SurroundEntity while outside its surround band) recommends
	// at the agent's current position this tick.
	FlowDir components.Velocity
	HasFlow bool

	// AtFinalTarget is true once Pos is within arrival radius of
	// Movestate.FlockDst for Moving/MovingInFormation/ArrivingToCell, or
	// within TargetRange of the live target position for EnterEntityRange.
	// It is never set for SeekEnemies.
	AtFinalTarget bool

	// NeighbourArrived lets a crowded agent stop short of its own exact
	// target once an adjacent same-flock agent has already arrived
	// (§4.9's Moving-state congestion note).
	NeighbourArrived bool

	// EntityDist applies to SurroundEntity: live distance to
	// SurroundTargetUID's current position.
	EntityDist float32
}

// Step runs one tick of the per-agent state machine (§4.9): given the
// current Movestate and this tick's resolved path/arrival info, it
// returns the desired velocity to steer toward and mutates Move's state
// (and Wait/Surround bookkeeping) in place.
func Step(ctx StepContext, cfg *config.MovementConfig) DesiredVelocity {
	m := ctx.Move
	switch m.State {
	case components.StateWaiting:
		return stepWaiting(ctx, cfg)
	case components.StateTurning:
		return stepTurning(ctx, cfg)
	case components.StateArrived:
		return DesiredVelocity{}
	case components.StateSurroundEntity:
		return stepSurround(ctx, cfg)
	default:
		return stepSeeking(ctx, cfg)
	}
}

// stepSeeking handles every state whose job is "follow a flow field until
// AtFinalTarget": Moving, MovingInFormation, ArrivingToCell, SeekEnemies,
// and EnterEntityRange.
func stepSeeking(ctx StepContext, cfg *config.MovementConfig) DesiredVelocity {
	m := ctx.Move

	if ctx.AtFinalTarget || ctx.NeighbourArrived {
		switch m.State {
		case components.StateMovingInFormation, components.StateArrivingToCell:
			enterTurning(m, m.TargetDir)
		default:
			m.State = components.StateArrived
			m.Blocking = true
		}
		return DesiredVelocity{}
	}

	if !ctx.HasFlow {
		enterWaiting(m, cfg)
		return DesiredVelocity{}
	}
	return DesiredVelocity{Dir: ctx.FlowDir, HasDir: true}
}

// stepWaiting counts down WAIT_TICKS (§7's soft-navigation-failure
// recovery path): a retry that finds flow again resumes the previous
// state this same tick; one that still finds nothing gives up and settles
// into Arrived rather than retrying forever.
func stepWaiting(ctx StepContext, cfg *config.MovementConfig) DesiredVelocity {
	m := ctx.Move
	if m.WaitTicksLeft > 0 {
		m.WaitTicksLeft--
		return DesiredVelocity{}
	}
	if ctx.HasFlow {
		m.State = m.WaitPrevState
		m.Blocking = false
		return stepSeeking(ctx, cfg)
	}
	m.State = components.StateArrived
	m.Blocking = true
	return DesiredVelocity{}
}

func enterWaiting(m *components.Movestate, cfg *config.MovementConfig) {
	if m.State == components.StateWaiting {
		return
	}
	m.WaitPrevState = m.State
	m.State = components.StateWaiting
	m.WaitTicksLeft = int32(cfg.WaitTicks)
	m.Blocking = true
}

// enterTurning starts an in-place rotation. Turning is not in §8's blocking
// set ({Arrived, Waiting}), so it never claims a navgrid disk on its own;
// callers that enter Turning from an already-blocking state (KindChangeDirection)
// are responsible for releasing that disk themselves.
func enterTurning(m *components.Movestate, targetHeading float32) {
	m.TargetDir = targetHeading
	m.State = components.StateTurning
	m.Blocking = false
}

// stepTurning rotates heading toward Move.TargetDir at MAX_TURN_RATE
// degrees per tick, transitioning to Arrived once aligned.
func stepTurning(ctx StepContext, cfg *config.MovementConfig) DesiredVelocity {
	m := ctx.Move
	heading, reached := StepTurn(ctx.Heading, m.TargetDir, float32(cfg.MaxTurnRateDg))
	m.NextRot = heading
	if reached {
		m.State = components.StateArrived
		m.Blocking = true
	}
	return DesiredVelocity{}
}

// stepSurround implements §4.9's SurroundEntity hysteresis: LowWater/
// HighWater (fractions of SurroundEngageRadius) bound a band so an agent
// doesn't oscillate between the orbit flow field and a direct seek right
// at the engagement boundary. Below LowWater it commits to the (caller-
// supplied) orbit flow; above HighWater it falls back to seeking the
// target directly; inside the band it keeps whatever it was already
// doing.
func stepSurround(ctx StepContext, cfg *config.MovementConfig) DesiredVelocity {
	m := ctx.Move
	ratio := ctx.EntityDist / float32(cfg.SurroundEngageRadius)

	if ratio <= float32(cfg.LowWater) {
		m.UsingSurroundField = true
	} else if ratio >= float32(cfg.HighWater) {
		m.UsingSurroundField = false
	}

	if !ctx.HasFlow {
		enterWaiting(m, cfg)
		return DesiredVelocity{}
	}
	return DesiredVelocity{Dir: ctx.FlowDir, HasDir: true}
}
