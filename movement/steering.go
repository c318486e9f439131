package movement

import (
	"math"

	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/config"
)

// Neighbour is one flockmate sampled for cohesion/alignment/separation
// (§4.9), distinct from ClearPath's avoidance neighbours (§4.10): flocking
// forces look at same-flock agents within a social radius, ClearPath looks
// at every nearby disk regardless of flock.
type Neighbour struct {
	Pos components.Position
	Vel components.Velocity
}

func arriveForce(vel components.Velocity, desired components.Velocity) Force {
	return Force{desired.X - vel.X, desired.Z - vel.Z}
}

// separationForce sums inverse-square repulsion from every neighbour
// within radius, the classic boids separation term.
func separationForce(pos components.Position, radius float32, neighbours []Neighbour) Force {
	var f Force
	r2 := radius * radius
	for _, n := range neighbours {
		dx := pos.X - n.Pos.X
		dz := pos.Z - n.Pos.Z
		d2 := dx*dx + dz*dz
		if d2 < 1e-6 || d2 > r2 {
			continue
		}
		inv := 1 / d2
		f.X += dx * inv
		f.Z += dz * inv
	}
	return f
}

func cohesionForce(pos components.Position, neighbours []Neighbour) Force {
	if len(neighbours) == 0 {
		return Force{}
	}
	var cx, cz float32
	for _, n := range neighbours {
		cx += n.Pos.X
		cz += n.Pos.Z
	}
	count := float32(len(neighbours))
	return Force{cx/count - pos.X, cz/count - pos.Z}
}

func alignmentForce(vel components.Velocity, neighbours []Neighbour) Force {
	if len(neighbours) == 0 {
		return Force{}
	}
	var vx, vz float32
	for _, n := range neighbours {
		vx += n.Vel.X
		vz += n.Vel.Z
	}
	count := float32(len(neighbours))
	return Force{vx/count - vel.X, vz/count - vel.Z}
}

// formationDragForce pulls velocity toward zero, the per-agent damping
// term §4.9 layers on top of the base weights while in a formation state,
// keeping formation motion from accelerating without bound under
// repeated arrive pulses from many cohesion sources at once.
func formationDragForce(vel components.Velocity) Force {
	return Force{-vel.X, -vel.Z}
}

const forceEpsilon = 1e-4

// MaxForcePerTick derives §4.9's per-tick force cap: MAX_FORCE is tuned
// against a 20Hz baseline tick rate, so a slower configured rate scales
// it up to keep the same force-per-second budget.
func MaxForcePerTick(cfg *config.Config) float32 {
	rate := float32(cfg.Tick.RateHz)
	if rate <= 0 {
		rate = 20
	}
	return float32(cfg.Movement.MaxForce) * 20 / rate
}

// SteeringInputs bundles everything ComposeForce needs for one agent's
// tick (§4.9's force composition step).
type SteeringInputs struct {
	State   components.AgentState
	Pos     components.Position
	Vel     components.Velocity
	Desired components.Velocity // v_desired, from the selected flow/LOS direction

	Neighbours []Neighbour // same-flock neighbours for cohesion/alignment/separation

	// FormationIdeal is the agent's assigned formation cell position, the
	// formation-cohesion pull target while MovingInFormation/ArrivingToCell.
	FormationIdeal    components.Position
	HasFormationIdeal bool
}

// ComposeForce implements §4.9's force composition: a weighted sum of
// arrive/separation/cohesion/alignment (plus formation cohesion/alignment/
// drag while in a formation state), truncated to the tick's force cap,
// falling back to separation-only and then arrive-only when the weighted
// sum nets to (near) zero so an agent never simply stalls mid-tick.
func ComposeForce(cfg *config.MovementConfig, in SteeringInputs, neighbourRadius, maxForce float32) Force {
	arrive := arriveForce(in.Vel, in.Desired)
	separation := separationForce(in.Pos, neighbourRadius, in.Neighbours)
	cohesion := cohesionForce(in.Pos, in.Neighbours)
	alignment := alignmentForce(in.Vel, in.Neighbours)

	total := scaleF(arrive, float32(cfg.ArriveWeight))
	total = addF(total, scaleF(separation, float32(cfg.SeparationWeight)))
	total = addF(total, scaleF(cohesion, float32(cfg.CohesionWeight)))
	total = addF(total, scaleF(alignment, float32(cfg.AlignmentWeight)))

	if in.HasFormationIdeal && (in.State == components.StateMovingInFormation || in.State == components.StateArrivingToCell) {
		formationCohesion := Force{in.FormationIdeal.X - in.Pos.X, in.FormationIdeal.Z - in.Pos.Z}
		drag := formationDragForce(in.Vel)
		total = addF(total, scaleF(formationCohesion, float32(cfg.FormationCohesionWeight)))
		total = addF(total, scaleF(alignment, float32(cfg.FormationAlignmentWeight)))
		total = addF(total, scaleF(drag, float32(cfg.FormationDragWeight)))
	}

	total = truncateF(total, maxForce)
	if lengthF(total) < forceEpsilon {
		total = truncateF(separation, maxForce)
	}
	if lengthF(total) < forceEpsilon {
		total = truncateF(arrive, maxForce)
	}
	return total
}

// ZeroIntoImpassable zeros the component of force pointing into an
// impassable adjacent tile (§4.9), so an agent hugging a wall doesn't
// keep accumulating velocity it can never use. lookahead is a short
// world-space distance (fractions of a tile) probed ahead of pos along
// each axis.
func ZeroIntoImpassable(force Force, pos components.Position, lookahead float32, passable func(x, z float32) bool) Force {
	out := force
	if force.X > 1e-6 && !passable(pos.X+lookahead, pos.Z) {
		out.X = 0
	} else if force.X < -1e-6 && !passable(pos.X-lookahead, pos.Z) {
		out.X = 0
	}
	if force.Z > 1e-6 && !passable(pos.X, pos.Z+lookahead) {
		out.Z = 0
	} else if force.Z < -1e-6 && !passable(pos.X, pos.Z-lookahead) {
		out.Z = 0
	}
	return out
}

// Integrate implements §4.9's velocity integration: v_new = truncate(v +
// F/m, max_speed / ticks_per_second). Agent mass is a constant 1 — no
// component in this module models per-agent mass, so F/m degenerates to
// F.
func Integrate(vel components.Velocity, force Force, maxSpeed float32, tickRateHz int) components.Velocity {
	rate := float32(tickRateHz)
	if rate <= 0 {
		rate = 20
	}
	nv := Force{vel.X + force.X, vel.Z + force.Z}
	nv = truncateF(nv, maxSpeed/rate)
	return components.Velocity{X: nv.X, Z: nv.Z}
}

// UpdateOrientation implements §4.9's weighted-moving-average heading
// smoothing: push the new velocity into Move's ring buffer, then derive a
// heading from its weighted average, holding the previous heading steady
// while the agent is essentially stationary so Arrived/Waiting agents
// don't jitter their facing.
func UpdateOrientation(m *components.Movestate, newVel components.Velocity) float32 {
	m.VelHistPush(newVel)
	avg := m.VelHistAverage()
	if lengthF(Force(avg)) < 1e-3 {
		return m.NextRot
	}
	return float32(math.Atan2(float64(avg.Z), float64(avg.X)))
}

// StepTurn rotates current heading toward target by at most
// maxDegreesPerTick, for the Turning state (§4.9). Reports true once
// within 5 degrees of the target, at which point the caller should snap
// to target exactly and leave Turning.
func StepTurn(current, target, maxDegreesPerTick float32) (heading float32, reached bool) {
	diff := normalizeAngle(target - current)
	const snapRad = 5 * math.Pi / 180
	if float32(math.Abs(float64(diff))) <= snapRad {
		return target, true
	}
	maxRad := maxDegreesPerTick * math.Pi / 180
	if diff > maxRad {
		diff = maxRad
	} else if diff < -maxRad {
		diff = -maxRad
	}
	return normalizeAngle(current + diff), false
}

func normalizeAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
