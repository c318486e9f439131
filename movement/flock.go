package movement

import (
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/navgrid"
)

// Flock groups agents moving toward a shared destination, the runtime
// counterpart of a command.MakeFlocks request (§4.7, §6's
// ArrangeInFormation/AttackInFormation). DestID is the stable identifier
// Movestate.DestID binds an agent to; 0 means "no flock."
type Flock struct {
	ID          uint32
	Target      components.Position
	Orientation float32
	Attack      bool
	Members     map[uint32]struct{}

	// CellPos holds the per-agent assigned formation-cell world position,
	// populated when the flock was created with a formation type (§4.6).
	// Agents not bound to a formation cell (plain MakeFlocks with
	// FormationNone) are absent from this map.
	CellPos map[uint32]components.Position

	// CellTile holds the same per-agent assignment as CellPos, as a tile
	// descriptor instead of a world position, so the cell-arrival field
	// (§4.4, §4.9's ArrivingToCell state) can target the exact tile
	// without re-deriving it from CellPos every tick.
	CellTile map[uint32]navgrid.TileDesc
}

// Table owns every live flock, keyed by DestID. DestID generation is an
// Open Question spec.md §9 leaves unresolved ("s_last_cmd_dest" names the
// bookkeeping without specifying the id scheme); this module resolves it
// as a monotonically increasing counter starting at 1, matching the
// existing "0 = no flock" sentinel Movestate.DestID already reserves.
type Table struct {
	flocks map[uint32]*Flock
	nextID uint32
}

// NewTable creates an empty flock table.
func NewTable() *Table {
	return &Table{flocks: make(map[uint32]*Flock), nextID: 1}
}

// Create allocates a new flock for the given member set, per §4.7's
// MakeFlocks.
func (t *Table) Create(members []uint32, target components.Position, orientation float32, attack bool) *Flock {
	f := &Flock{
		ID:          t.nextID,
		Target:      target,
		Orientation: orientation,
		Attack:      attack,
		Members:     make(map[uint32]struct{}, len(members)),
	}
	t.nextID++
	for _, uid := range members {
		f.Members[uid] = struct{}{}
	}
	t.flocks[f.ID] = f
	return f
}

// Get returns the flock with the given id, if any.
func (t *Table) Get(id uint32) (*Flock, bool) {
	f, ok := t.flocks[id]
	return f, ok
}

// Leave removes uid from its flock, disbanding the flock once it has no
// members left (§3's Formation/Flock Lifecycle: "RefCount reaching
// zero").
func (t *Table) Leave(id, uid uint32) {
	f, ok := t.flocks[id]
	if !ok {
		return
	}
	delete(f.Members, uid)
	if len(f.Members) == 0 {
		delete(t.flocks, id)
	}
}

// Len reports the number of live flocks, for telemetry's FormationsActive.
func (t *Table) Len() int { return len(t.flocks) }

// IDs returns every live flock's id, for the tick's end-of-tick disband
// scan (§4.8).
func (t *Table) IDs() []uint32 {
	ids := make([]uint32, 0, len(t.flocks))
	for id := range t.flocks {
		ids = append(ids, id)
	}
	return ids
}

// Members returns the live member uids of flock id, or nil if id is not a
// live flock.
func (t *Table) Members(id uint32) []uint32 {
	f, ok := t.flocks[id]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(f.Members))
	for uid := range f.Members {
		out = append(out, uid)
	}
	return out
}

// Disband removes a flock outright, regardless of remaining members, used
// once every member has reached StateArrived (§4.8, §3's Lifecycle
// "RefCount reaching zero").
func (t *Table) Disband(id uint32) {
	delete(t.flocks, id)
}

// CellsOccupied sums the number of bound formation-cell assignments
// across every live flock, for telemetry's FormationCellsOccupied.
func (t *Table) CellsOccupied() int {
	n := 0
	for _, f := range t.flocks {
		n += len(f.CellPos)
	}
	return n
}
