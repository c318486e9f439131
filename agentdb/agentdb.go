// Package agentdb is the ECS-backed agent table the movement core reads
// and writes every tick. It wires github.com/mlange-42/ark the same way
// the teacher's game package does: one Map7/Filter7 pair over the full
// agent component set, plus individual Map1 mappers for targeted lookups,
// generalized from the teacher's biology components to the navigation
// domain's Position/Velocity/Rotation/Body/UID/Faction/Movestate.
package agentdb

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/snapshot"
)

// DB owns every live agent entity and its components. UIDs are the stable,
// externally-visible identifier (§3's Ownership note: ecs.Entity handles
// are not stable across a save/load, so a UID->Entity index is kept
// alongside the ECS world).
type DB struct {
	world *ecs.World

	mapper *ecs.Map7[
		components.UID,
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Faction,
		components.Movestate,
	]
	filter *ecs.Filter7[
		components.UID,
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Faction,
		components.Movestate,
	]

	uidMap  *ecs.Map1[components.UID]
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	rotMap  *ecs.Map1[components.Rotation]
	bodyMap *ecs.Map1[components.Body]
	facMap  *ecs.Map1[components.Faction]
	moveMap *ecs.Map1[components.Movestate]

	index      map[uint32]ecs.Entity
	diplomacy  snapshot.DiplomacyTable
}

// NewDB creates an empty agent table.
func NewDB() *DB {
	world := ecs.NewWorld()
	return &DB{
		world: world,
		mapper: ecs.NewMap7[
			components.UID,
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Faction,
			components.Movestate,
		](world),
		filter: ecs.NewFilter7[
			components.UID,
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Faction,
			components.Movestate,
		](world),
		uidMap:  ecs.NewMap1[components.UID](world),
		posMap:  ecs.NewMap1[components.Position](world),
		velMap:  ecs.NewMap1[components.Velocity](world),
		rotMap:  ecs.NewMap1[components.Rotation](world),
		bodyMap: ecs.NewMap1[components.Body](world),
		facMap:  ecs.NewMap1[components.Faction](world),
		moveMap: ecs.NewMap1[components.Movestate](world),
		index:   make(map[uint32]ecs.Entity),
	}
}

// Add registers a new agent in Arrived state, per §3's Lifecycle. The
// caller (sim's orchestrator) is responsible for registering the matching
// blocker disk on the navgrid.Grid; agentdb only owns ECS storage.
func (db *DB) Add(uid uint32, pos components.Position, radius float32, faction uint8) {
	if _, exists := db.index[uid]; exists {
		return
	}

	u := components.UID{Value: uid}
	vel := components.Velocity{}
	rot := components.Rotation{}
	body := components.Body{Radius: radius}
	fac := components.Faction{ID: faction}
	move := components.Movestate{
		State:       components.StateArrived,
		LastStopPos: pos,
		PrevPos:     pos,
		NextPos:     pos,
		Blocking:    true,
	}

	entity := db.mapper.NewEntity(&u, &pos, &vel, &rot, &body, &fac, &move)
	db.index[uid] = entity
}

// Remove stops motion and drops the agent's Movestate and every other
// component, per §3's Lifecycle. The caller is responsible for
// decrementing the matching navgrid blocker.
func (db *DB) Remove(uid uint32) bool {
	entity, ok := db.index[uid]
	if !ok {
		return false
	}
	db.mapper.Remove(entity)
	delete(db.index, uid)
	return true
}

// Entity returns the live ecs.Entity for a UID.
func (db *DB) Entity(uid uint32) (ecs.Entity, bool) {
	e, ok := db.index[uid]
	return e, ok
}

// Len returns the number of live agents.
func (db *DB) Len() int {
	return len(db.index)
}

// Position returns a pointer to the agent's live Position component, or
// nil if the agent does not exist.
func (db *DB) Position(uid uint32) *components.Position {
	e, ok := db.index[uid]
	if !ok {
		return nil
	}
	return db.posMap.Get(e)
}

// Velocity returns a pointer to the agent's live Velocity component.
func (db *DB) Velocity(uid uint32) *components.Velocity {
	e, ok := db.index[uid]
	if !ok {
		return nil
	}
	return db.velMap.Get(e)
}

// Rotation returns a pointer to the agent's live Rotation component.
func (db *DB) Rotation(uid uint32) *components.Rotation {
	e, ok := db.index[uid]
	if !ok {
		return nil
	}
	return db.rotMap.Get(e)
}

// Body returns a pointer to the agent's live Body component.
func (db *DB) Body(uid uint32) *components.Body {
	e, ok := db.index[uid]
	if !ok {
		return nil
	}
	return db.bodyMap.Get(e)
}

// Faction returns a pointer to the agent's live Faction component.
func (db *DB) Faction(uid uint32) *components.Faction {
	e, ok := db.index[uid]
	if !ok {
		return nil
	}
	return db.facMap.Get(e)
}

// Movestate returns a pointer to the agent's live Movestate component.
func (db *DB) Movestate(uid uint32) *components.Movestate {
	e, ok := db.index[uid]
	if !ok {
		return nil
	}
	return db.moveMap.Get(e)
}

// SetDiplomacy installs the hostility matrix used by Diplomacy().
func (db *DB) SetDiplomacy(d snapshot.DiplomacyTable) {
	db.diplomacy = d
}

// Diplomacy implements snapshot.Source.
func (db *DB) Diplomacy() snapshot.DiplomacyTable {
	return db.diplomacy
}

// ForEachAgent implements snapshot.Source, walking every live agent in
// ECS storage order. This is the only place outside movement's tick body
// that runs a full ECS query, matching the teacher's single-query-per-
// concern style (see game.go's updateSpatialGrid/updateBehaviorAndPhysics).
func (db *DB) ForEachAgent(fn func(snapshot.AgentView)) {
	query := db.filter.Query()
	for query.Next() {
		uid, pos, vel, rot, body, fac, move := query.Get()
		fn(snapshot.AgentView{
			UID:      uid.Value,
			Pos:      *pos,
			Vel:      *vel,
			Heading:  rot.Heading,
			Faction:  fac.ID,
			Radius:   body.Radius,
			Blocking: move.Blocking,
			Visible:  true,
			DestID:   move.DestID,
		})
	}
}

// ForEach runs fn for every live agent with direct access to its
// components, for use by the movement tick's per-agent work-item
// collection (§4.8), which needs to mutate Velocity/Rotation/Movestate
// in place rather than work from a deep-copied snapshot.
func (db *DB) ForEach(fn func(uid uint32, pos *components.Position, vel *components.Velocity, rot *components.Rotation, body *components.Body, fac *components.Faction, move *components.Movestate)) {
	query := db.filter.Query()
	for query.Next() {
		u, pos, vel, rot, body, fac, move := query.Get()
		fn(u.Value, pos, vel, rot, body, fac, move)
	}
}
