package movement

import (
	"math"

	"github.com/Mu-L/permafrost-engine/components"
)

// AvoidNeighbour is one nearby disk ClearPath/HRVO must avoid: a moving
// agent (Static=false, half avoidance responsibility per §4.10's
// reciprocal term) or a stationary agent/obstacle (Static=true, full
// responsibility falls on the querying agent).
type AvoidNeighbour struct {
	Pos    components.Position
	Vel    components.Velocity
	Radius float32
	Static bool
}

// clearPathSpeedSteps/clearPathAngleSteps size the admissible-velocity
// sample grid ResolveClearPath searches. This module approximates
// ClearPath/HRVO with a sampling search over candidate velocities rather
// than an exact analytic half-plane construction of the HRVO boundary
// (see DESIGN.md): the velocity-obstacle cone-membership test applied to
// each candidate below is exact for a given apex, so the approximation's
// only error is the discretization of the search, not the admissibility
// test itself.
const (
	clearPathSpeedSteps = 6
	clearPathAngleSteps = 24
)

// ResolveClearPath selects the admissible velocity closest to vPref among
// a sampled candidate set, per §4.10: a velocity is admissible if it
// places (pos, candidate) outside every neighbour's velocity obstacle,
// using half responsibility for moving neighbours (apex at the midpoint
// of both agents' current velocities, the RVO reciprocal term) and full
// responsibility for static ones (apex at the neighbour's own velocity).
// selfVel is the agent's current velocity (used only for the reciprocal
// apex, not as a candidate). When no sampled candidate is admissible, it
// falls back to the candidate whose penetration summed over every cone it
// enters is least (ties broken by closeness to vPref); no single dominant
// cone is singled out.
func ResolveClearPath(pos components.Position, radius float32, selfVel, vPref components.Velocity, maxSpeed float32, neighbours []AvoidNeighbour) components.Velocity {
	if len(neighbours) == 0 {
		return vPref
	}

	candidates := clearPathCandidates(vPref, maxSpeed)

	bestIdx := -1
	var bestDist float32
	for i, cand := range candidates {
		if admissible(pos, radius, selfVel, cand, neighbours) {
			d := sqDist(cand, vPref)
			if bestIdx == -1 || d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
	}
	if bestIdx >= 0 {
		return candidates[bestIdx]
	}

	bestIdx = 0
	bestPenetration := float32(math.MaxFloat32)
	bestDist = sqDist(candidates[0], vPref)
	for i, cand := range candidates {
		pen := penetration(pos, radius, selfVel, cand, neighbours)
		d := sqDist(cand, vPref)
		if pen < bestPenetration || (pen == bestPenetration && d < bestDist) {
			bestIdx, bestPenetration, bestDist = i, pen, d
		}
	}
	return candidates[bestIdx]
}

func sqDist(a, b components.Velocity) float32 {
	dx, dz := a.X-b.X, a.Z-b.Z
	return dx*dx + dz*dz
}

func clearPathCandidates(vPref components.Velocity, maxSpeed float32) []components.Velocity {
	out := make([]components.Velocity, 0, clearPathSpeedSteps*clearPathAngleSteps+2)
	out = append(out, vPref, components.Velocity{})
	for s := 1; s <= clearPathSpeedSteps; s++ {
		speed := maxSpeed * float32(s) / float32(clearPathSpeedSteps)
		for a := 0; a < clearPathAngleSteps; a++ {
			theta := 2 * math.Pi * float64(a) / float64(clearPathAngleSteps)
			out = append(out, components.Velocity{
				X: speed * float32(math.Cos(theta)),
				Z: speed * float32(math.Sin(theta)),
			})
		}
	}
	return out
}

func admissible(pos components.Position, radius float32, selfVel, cand components.Velocity, neighbours []AvoidNeighbour) bool {
	for _, n := range neighbours {
		if _, inside := vOPenetration(pos, radius, selfVel, cand, n); inside {
			return false
		}
	}
	return true
}

// penetration sums, over every neighbour whose VO cand falls inside, how
// far past the cone boundary cand sits (in radians); used only to rank
// the fallback when no candidate is admissible.
func penetration(pos components.Position, radius float32, selfVel, cand components.Velocity, neighbours []AvoidNeighbour) float32 {
	var total float32
	for _, n := range neighbours {
		if p, inside := vOPenetration(pos, radius, selfVel, cand, n); inside {
			total += p
		}
	}
	return total
}

// vOPenetration implements the standard velocity-obstacle cone test: cand
// is inside neighbour n's VO if, relative to the cone's apex, it falls
// within the cone's half-angle asin(combinedRadius/dist) of the
// direction from pos to n. Returns how far inside the cone cand sits (0
// at the boundary, up to the cone's half-angle on its axis, pi/2 at the
// apex, pi when the two disks already overlap) and whether it's inside at
// all.
func vOPenetration(pos components.Position, radius float32, selfVel, cand components.Velocity, n AvoidNeighbour) (float32, bool) {
	dx := n.Pos.X - pos.X
	dz := n.Pos.Z - pos.Z
	dist := float32(math.Hypot(float64(dx), float64(dz)))
	combined := radius + n.Radius
	if dist <= combined {
		return float32(math.Pi), true
	}

	var apexX, apexZ float32
	if n.Static {
		apexX, apexZ = n.Vel.X, n.Vel.Z
	} else {
		apexX, apexZ = (selfVel.X+n.Vel.X)/2, (selfVel.Z+n.Vel.Z)/2
	}

	relX, relZ := cand.X-apexX, cand.Z-apexZ
	relDist := float32(math.Hypot(float64(relX), float64(relZ)))
	if relDist < 1e-6 {
		return float32(math.Pi / 2), true
	}

	cosAngle := (relX*dx + relZ*dz) / (relDist * dist)
	if cosAngle <= 0 {
		return 0, false
	}
	if cosAngle > 1 {
		cosAngle = 1
	}
	angle := float32(math.Acos(float64(cosAngle)))

	ratio := combined / dist
	if ratio > 1 {
		ratio = 1
	}
	halfAngle := float32(math.Asin(float64(ratio)))

	if angle <= halfAngle {
		return halfAngle - angle, true
	}
	return 0, false
}
