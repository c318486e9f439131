// Package snapshot implements the per-tick Gamestate Snapshot of §3/§4.8:
// a deep copy of the state the movement tick reads, taken once per tick so
// computation proceeds concurrently with foreground (command-issuing)
// mutation, and released the next tick.
package snapshot

import "github.com/Mu-L/permafrost-engine/components"

// AgentView is one agent's snapshot-consistent view: position, facing,
// faction, selection radius, and the flags other subsystems query against
// (fog/visibility, blocking).
type AgentView struct {
	UID      uint32
	Pos      components.Position
	Vel      components.Velocity
	Heading  float32
	Faction  uint8
	Radius   float32
	Blocking bool
	Visible  bool // fog-of-war visibility for the querying faction, if any

	// DestID is the flock the agent was bound to at snapshot time (0 = no
	// flock), used by the tick's neighbour queries to restrict flocking
	// forces to same-flock agents without a second live lookup.
	DestID uint32
}

// DiplomacyTable answers faction-pair hostility queries. Copied by value
// (small, dense) so the tick never takes a lock on live diplomacy state.
type DiplomacyTable struct {
	// Hostile[a][b] is true when faction a treats faction b as an enemy.
	Hostile [16][16]bool
}

// IsEnemy reports whether b is hostile to a.
func (d *DiplomacyTable) IsEnemy(a, b uint8) bool {
	if int(a) >= len(d.Hostile) || int(b) >= len(d.Hostile[0]) {
		return false
	}
	return d.Hostile[a][b]
}

// Source is the narrow read surface the snapshot builder needs from
// whatever owns the live agent table (agentdb.DB in this module).
// Keeping it an interface, rather than depending on agentdb directly,
// matches §9's "quadtree of positions... the core requires only an
// ents_in_rect capability" design note generalized to snapshot
// construction as a whole.
type Source interface {
	// ForEachAgent calls fn once per live agent; fn must not retain uid's
	// backing storage beyond the call.
	ForEachAgent(fn func(AgentView))
	Diplomacy() DiplomacyTable
}

// GamestateSnapshot holds the deep copies named in §3's Ownership
// paragraph: flags, positions, faction ids, AABBs, fog state, and the
// diplomacy table. It is immutable for the duration of the tick (§5) —
// read by all workers without locks.
type GamestateSnapshot struct {
	Tick int32

	agents map[uint32]AgentView
	index  *GridIndex

	diplomacy DiplomacyTable
}

// Build deep-copies every live agent out of src into a fresh snapshot and
// indexes their positions for rect queries, per §4.8 step 4.
func Build(src Source, tick int32, cellSize float32, worldW, worldH float32) *GamestateSnapshot {
	snap := &GamestateSnapshot{
		Tick:      tick,
		agents:    make(map[uint32]AgentView),
		diplomacy: src.Diplomacy(),
	}

	index := NewGridIndex(worldW, worldH, cellSize)
	src.ForEachAgent(func(v AgentView) {
		snap.agents[v.UID] = v
		index.Insert(v.UID, v.Pos.X, v.Pos.Z)
	})
	snap.index = index

	return snap
}

// Agent returns the snapshot-consistent view of uid, if present.
func (s *GamestateSnapshot) Agent(uid uint32) (AgentView, bool) {
	v, ok := s.agents[uid]
	return v, ok
}

// Len returns the number of agents captured in this snapshot.
func (s *GamestateSnapshot) Len() int {
	return len(s.agents)
}

// Diplomacy returns the snapshot's copy of the diplomacy table.
func (s *GamestateSnapshot) Diplomacy() DiplomacyTable {
	return s.diplomacy
}

// SpatialIndex is the narrow rect-query capability §9 calls out: "the core
// requires only an ents_in_rect(bounds) -> iterator capability." The
// quadtree itself is treated as an external collaborator in a full
// engine; this module supplies only the grid-based EntsInRect
// implementation in gridindex.go for tests and standalone use.
type SpatialIndex interface {
	EntsInRect(xMin, zMin, xMax, zMax float32) []uint32
}

// Index returns the snapshot's spatial index for ents_in_rect queries.
func (s *GamestateSnapshot) Index() SpatialIndex {
	return s.index
}
