// Package persist implements the savefile attribute sequence of §6 and
// the round-trip law of §8: serialize -> clear -> load -> serialize must
// produce byte-identical output.
package persist

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Mu-L/permafrost-engine/components"
)

// FlockRecord is one flock's persisted state (§6).
type FlockRecord struct {
	NumEntities int        `yaml:"num_entities"`
	EntityUIDs  []uint32   `yaml:"entity_uids"`
	TargetXZ    components.Position `yaml:"target_xz"`
	DestID      uint32     `yaml:"dest_id"`
}

// AgentRecord is one agent's persisted Movestate, per §6's attribute list.
// LastStopPos/LastStopRadius are deliberately absent: §6 excludes them
// from the encoded form entirely and reconstructs them from Position on
// load, which ApplyTo does below.
type AgentRecord struct {
	UID      uint32              `yaml:"uid"`
	State    components.AgentState `yaml:"state"`
	MaxSpeed float32             `yaml:"max_speed"`
	Velocity components.Velocity `yaml:"velocity"`

	NextPos components.Position `yaml:"next_pos"`
	PrevPos components.Position `yaml:"prev_pos"`
	NextRot float32             `yaml:"next_rot"`
	PrevRot float32             `yaml:"prev_rot"`
	Step    float32             `yaml:"step"`
	Left    int32               `yaml:"left"`

	Blocking      bool                  `yaml:"blocking"`
	WaitPrev      components.AgentState `yaml:"wait_prev"`
	WaitTicksLeft int32                 `yaml:"wait_ticks_left"`

	VelHist    [components.VelHistLen]components.Velocity `yaml:"vel_hist"`
	VelHistIdx int                                         `yaml:"vel_hist_idx"`

	SurroundTargetUID   uint32              `yaml:"surround_target_uid"`
	SurroundTargetPrev  components.Position `yaml:"surround_target_prev"`
	SurroundNearestPrev components.Position `yaml:"surround_nearest_prev"`
	UsingSurroundField  bool                `yaml:"using_surround_field"`

	TargetPrevPos components.Position `yaml:"target_prev_pos"`
	TargetRange   float32             `yaml:"target_range"`
	TargetDir     float32             `yaml:"target_dir"`
}

// PersistedState is the full savefile, ordered exactly as §6 describes:
// click_move_enabled, then flocks, then agents.
type PersistedState struct {
	ClickMoveEnabled bool          `yaml:"click_move_enabled"`
	Flocks           []FlockRecord `yaml:"flocks"`
	Agents           []AgentRecord `yaml:"agents"`
}

// FromMovestate captures everything persist needs from a live
// components.Movestate plus its sibling Velocity component (stored
// separately in the ECS, per agentdb's wiring), excluding LastStopPos per
// §6.
func FromMovestate(uid uint32, maxSpeed float32, velocity components.Velocity, m *components.Movestate) AgentRecord {
	return AgentRecord{
		UID:      uid,
		State:    m.State,
		MaxSpeed: maxSpeed,
		Velocity: velocity,

		NextPos: m.NextPos,
		PrevPos: m.PrevPos,
		NextRot: m.NextRot,
		PrevRot: m.PrevRot,
		Step:    m.StepFraction,
		Left:    m.StepsLeft,

		Blocking:      m.Blocking,
		WaitPrev:      m.WaitPrevState,
		WaitTicksLeft: m.WaitTicksLeft,

		VelHist:    m.VelHistory,
		VelHistIdx: m.VelHistIdx,

		SurroundTargetUID:   m.SurroundTargetUID,
		SurroundTargetPrev:  m.SurroundTargetPrev,
		SurroundNearestPrev: m.SurroundNearestPrev,
		UsingSurroundField:  m.UsingSurroundField,

		TargetPrevPos: m.TargetPrevPos,
		TargetRange:   m.TargetRange,
		TargetDir:     m.TargetDir,
	}
}

// ApplyTo writes a persisted record back onto a live Movestate. pos is the
// agent's current components.Position (already restored by the caller via
// UpdatePos), from which LastStopPos is reconstructed per §6. The
// caller is responsible for writing r.Velocity onto the agent's sibling
// Velocity component.
func (r AgentRecord) ApplyTo(m *components.Movestate, pos components.Position) {
	m.State = r.State
	m.NextPos = r.NextPos
	m.PrevPos = r.PrevPos
	m.NextRot = r.NextRot
	m.PrevRot = r.PrevRot
	m.StepFraction = r.Step
	m.StepsLeft = r.Left

	m.Blocking = r.Blocking
	m.WaitPrevState = r.WaitPrev
	m.WaitTicksLeft = r.WaitTicksLeft

	m.VelHistory = r.VelHist
	m.VelHistIdx = r.VelHistIdx

	m.SurroundTargetUID = r.SurroundTargetUID
	m.SurroundTargetPrev = r.SurroundTargetPrev
	m.SurroundNearestPrev = r.SurroundNearestPrev
	m.UsingSurroundField = r.UsingSurroundField

	m.TargetPrevPos = r.TargetPrevPos
	m.TargetRange = r.TargetRange
	m.TargetDir = r.TargetDir

	m.LastStopPos = pos
}

// Save encodes state to w as YAML, matching the sibling config package's
// serialization format (gopkg.in/yaml.v3) rather than introducing JSON as
// a second on-disk format.
func Save(w io.Writer, state *PersistedState) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("encoding persisted state: %w", err)
	}
	return nil
}

// Load decodes a PersistedState previously written by Save. Per §6, the
// loader's caller must first apply all pending commands to bring the
// simulation into a known state before calling ApplyTo on each record.
func Load(r io.Reader) (*PersistedState, error) {
	var state PersistedState
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("decoding persisted state: %w", err)
	}
	return &state, nil
}
