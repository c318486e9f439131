package movement

import (
	"math"

	"github.com/Mu-L/permafrost-engine/command"
	"github.com/Mu-L/permafrost-engine/components"
)

// Dest is the query result for GetDest: the flock's target and whether
// the flock was created with attack=true (§6).
type Dest struct {
	Pos    components.Position
	Attack bool
}

// snoopLatest walks the pending command ring most-recent-first (§4.7) and
// returns the first command matching uid and any of kinds, so a
// synchronous query sees an enqueued-but-undrained mutation before the
// next tick applies it.
func (c *Core) snoopLatest(uid uint32, kinds ...command.Kind) (command.Command, bool) {
	matches := func(k command.Kind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
	for _, cmd := range c.Cmds.Snoop() {
		if cmd.UID == uid && matches(cmd.Kind) {
			return cmd, true
		}
	}
	return command.Command{}, false
}

// Still reports whether uid is currently motionless, per §8's invariant
// `state ∈ {Arrived, Waiting} ⇔ velocity ≈ 0 ⇔ blocking = true`. Unknown
// UIDs report still (no agent to move).
func (c *Core) Still(uid uint32) bool {
	if _, removed := c.snoopLatest(uid, command.KindRemove); removed {
		return true
	}
	if _, stopped := c.snoopLatest(uid, command.KindStop); stopped {
		return true
	}
	m := c.Agents.Movestate(uid)
	if m == nil {
		return true
	}
	return m.IsStill()
}

// GetDest returns the agent's current flock destination and attack flag,
// per §6. It snoops for a pending SetDest first so scripts observe their
// own just-issued command before the next tick executes it (§4.7); absent
// a pending SetDest it falls back to the bound flock's live target.
func (c *Core) GetDest(uid uint32) (Dest, bool) {
	if cmd, ok := c.snoopLatest(uid, command.KindSetDest); ok {
		return Dest{Pos: cmd.Pos, Attack: cmd.Attack}, true
	}
	m := c.Agents.Movestate(uid)
	if m == nil || m.DestID == 0 {
		return Dest{}, false
	}
	f, ok := c.Flocks.Get(m.DestID)
	if !ok {
		return Dest{}, false
	}
	return Dest{Pos: f.Target, Attack: f.Attack}, true
}

// GetSurrounding returns the uid of the entity uid is currently
// surrounding, per §6.
func (c *Core) GetSurrounding(uid uint32) (uint32, bool) {
	if cmd, ok := c.snoopLatest(uid, command.KindSetSurroundEntity); ok {
		return cmd.Target, true
	}
	m := c.Agents.Movestate(uid)
	if m == nil || m.State != components.StateSurroundEntity {
		return 0, false
	}
	return m.SurroundTargetUID, true
}

// GetMaxSpeed returns the agent's current max speed, per §6, snooping a
// pending SetMaxSpeed so scripts see their own update immediately.
func (c *Core) GetMaxSpeed(uid uint32) (float32, bool) {
	if cmd, ok := c.snoopLatest(uid, command.KindSetMaxSpeed); ok {
		return cmd.MaxSpeed, true
	}
	m := c.Agents.Movestate(uid)
	if m == nil {
		return 0, false
	}
	return m.MaxSpeed, true
}

// InTargetMode reports whether at least one agent is currently mid-journey
// (not Arrived), per §6 — used by click-move UI collaborators to decide
// whether a click issues a fresh SetDest or a formation command.
func (c *Core) InTargetMode() bool {
	inTarget := false
	c.Agents.ForEach(func(_ uint32, _ *components.Position, _ *components.Velocity, _ *components.Rotation, _ *components.Body, _ *components.Faction, m *components.Movestate) {
		if m.State != components.StateArrived {
			inTarget = true
		}
	})
	return inTarget
}

// AssignedCell returns the formation cell id uid is bound to, and whether
// it is bound at all (§6's "assigned-to-cell" query, §3's Formation data
// model).
func (c *Core) AssignedCell(uid uint32) (uint32, bool) {
	m := c.Agents.Movestate(uid)
	if m == nil || m.CellID == 0 {
		return 0, false
	}
	return m.CellID, true
}

// DesiredVelocity returns the agent's most recently computed velocity,
// satisfying §6's "desired velocity" query (the tick writes the realized
// velocity into Movestate/components.Velocity each tick; by the invariants
// of §8 this equals v_desired except where ClearPath clipped it for
// collision avoidance).
func (c *Core) DesiredVelocity(uid uint32) (components.Velocity, bool) {
	v := c.Agents.Velocity(uid)
	if v == nil {
		return components.Velocity{}, false
	}
	return *v, true
}

// CurrentPosition returns the agent's interpolation-target position
// (§6's "current position" query); callers needing the render-interpolated
// position should blend PrevPos->NextPos by Movestate.StepFraction instead.
func (c *Core) CurrentPosition(uid uint32) (components.Position, bool) {
	p := c.Agents.Position(uid)
	if p == nil {
		return components.Position{}, false
	}
	return *p, true
}

// Interpolate blends uid's pose between the previous and next simulation
// tick by fraction ∈ [0,1], per §4.8's "positions are linearly
// interpolated from prev_pos to next_pos with step fraction 1/(20/tick_hz)
// per render subtick." Callers that advance fraction themselves (e.g. a
// fixed 20Hz render loop driving sim.Loop) should pass
// Movestate.StepFraction rather than recompute it here; this method only
// performs the blend, not the subtick bookkeeping.
func (c *Core) Interpolate(uid uint32, fraction float32) (pos components.Position, heading float32, ok bool) {
	m := c.Agents.Movestate(uid)
	if m == nil {
		return components.Position{}, 0, false
	}
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	pos = components.Position{
		X: m.PrevPos.X + (m.NextPos.X-m.PrevPos.X)*fraction,
		Z: m.PrevPos.Z + (m.NextPos.Z-m.PrevPos.Z)*fraction,
	}
	heading = lerpAngle(m.PrevRot, m.NextRot, fraction)
	return pos, heading, true
}

// lerpAngle interpolates two radian headings along the shorter arc.
func lerpAngle(a, b, t float32) float32 {
	const tau = 2 * math.Pi
	d := float32(math.Mod(float64(b-a)+math.Pi, tau))
	if d < 0 {
		d += tau
	}
	d -= math.Pi
	return a + d*t
}
