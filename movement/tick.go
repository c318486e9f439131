package movement

import (
	"math"

	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/navgrid"
	"github.com/Mu-L/permafrost-engine/portal"
	"github.com/Mu-L/permafrost-engine/snapshot"
	"github.com/Mu-L/permafrost-engine/telemetry"
)

// agentWork is one live agent's direct-pointer handle, collected once per
// tick from agentdb.DB.ForEach so the parallel steering phase can mutate
// Velocity/Rotation/Movestate in place without a second map lookup per
// agent (§4.8 step 5, §5's per-index ownership rule RunTasks documents).
type agentWork struct {
	uid  uint32
	pos  *components.Position
	vel  *components.Velocity
	rot  *components.Rotation
	body *components.Body
	fac  *components.Faction
	move *components.Movestate
}

// Tick runs one full simulation tick per §4.8's sequence: drain commands,
// disband flocks that have fully arrived, amortize island relabelling and
// the field-cache/portal-reachability invalidation it triggers,
// snapshot the gamestate, then fan the per-agent state-machine/steering/
// avoidance/integration pipeline out across the worker pool before
// advancing the tick counter and (periodically) flushing telemetry.
func (c *Core) Tick() int32 {
	c.Perf.StartTick()
	defer c.Perf.EndTick()

	c.Perf.StartPhase(telemetry.PhaseCommands)
	c.applyCommands()
	c.disbandArrivedFlocks()
	c.relabelAndRefresh()

	c.Perf.StartPhase(telemetry.PhaseSnapshot)
	worldW, worldH, cellSize := c.worldDims()
	c.snap = snapshot.Build(c.Agents, c.tick, cellSize, worldW, worldH)

	maxForce := MaxForcePerTick(c.Cfg)
	neighbourRadius := float32(c.Cfg.Avoidance.NeighbourRadius)

	var items []agentWork
	c.Agents.ForEach(func(uid uint32, pos *components.Position, vel *components.Velocity, rot *components.Rotation, body *components.Body, fac *components.Faction, move *components.Movestate) {
		items = append(items, agentWork{uid, pos, vel, rot, body, fac, move})
	})

	// §4.8's per-agent phase fuses field lookup/build, force composition,
	// ClearPath avoidance, velocity integration, and state-machine stepping
	// into one pass per agent index so a single worker never revisits the
	// field cache or gamestate snapshot twice for the same agent. The
	// perf collector's phase markers are only meaningful on the calling
	// goroutine, so every one of those named phases (field_request,
	// steering, avoidance, integration) is accounted for under the single
	// PhaseSteering bracket below rather than split per-goroutine.
	c.Perf.StartPhase(telemetry.PhaseSteering)
	speeds := make([]float64, len(items))
	counts := make([]float64, len(items))
	RunTasks(len(items), c.Cfg.Derived.MaxMoveTasks, func(i int) {
		w := items[i]
		n := c.stepAgent(w, maxForce, neighbourRadius)
		counts[i] = float64(n)
		speeds[i] = float64(lengthF(Force{X: w.vel.X, Z: w.vel.Z}))
	})
	c.lastSpeeds = speeds
	c.lastNeighbourCounts = counts

	c.Perf.StartPhase(telemetry.PhaseInterpolate)
	// Interpolation bookkeeping (PrevPos/NextPos/StepFraction/StepsLeft) is
	// written inline by stepAgent/carryInterpolation above; this phase
	// exists to name the cost of that bookkeeping separately in the
	// teacher's own perf-phase vocabulary even though it isn't a distinct
	// pass here.

	c.Perf.StartPhase(telemetry.PhaseTelemetry)
	c.tick++
	if c.Stats.ShouldFlush(c.tick) {
		pop := c.computePopulationSample()
		stats := c.Stats.Flush(c.tick, pop)
		stats.LogStats()
	}

	return c.tick
}

// relabelAndRefresh runs the amortized island-relabel pass for every
// in-use layer (§4.2), invalidating field-cache entries for every chunk
// whose passability changed this tick and, once a layer's global island
// ids have actually been recomputed (the dirty->clean transition on
// LocalIslandsDirty), flushing that layer's entire field cache and
// refreshing the portal graph's reachability table — the two operations
// §4.5 and §4.3 require after any global relabel, not after every partial
// per-chunk repaint.
func (c *Core) relabelAndRefresh() {
	for i, ld := range c.Layers {
		if ld == nil {
			continue
		}
		layer := navgrid.Layer(i)

		dirty := ld.Grid.DirtySet()
		if len(dirty) > 0 {
			for coord := range dirty {
				ld.Cache.Invalidate(layer, coord)
			}
		}

		wasDirty := ld.Grid.LocalIslandsDirty()
		repainted := navgrid.RelabelPass(ld.Grid, 0, c.Cfg.FieldCache.MaxIslandRepaintChunksPerTick)
		if len(repainted) > 0 {
			c.Stats.RecordIslandRepaint(len(repainted))
		}

		if wasDirty && !ld.Grid.LocalIslandsDirty() {
			ld.Cache.FlushLayer(layer)
			portal.RefreshReachability(ld.Grid)
		}
	}
}

// disbandArrivedFlocks implements §3's Formation/Flock Lifecycle note that
// a flock disbands once every member has arrived: a vacuously-empty
// member set (every agent already removed from the table) counts as
// "all arrived" too.
func (c *Core) disbandArrivedFlocks() {
	for _, id := range c.Flocks.IDs() {
		allArrived := true
		for _, uid := range c.Flocks.Members(id) {
			m := c.Agents.Movestate(uid)
			if m != nil && m.State != components.StateArrived {
				allArrived = false
				break
			}
		}
		if allArrived {
			c.Flocks.Disband(id)
			telemetry.Event{Type: telemetry.EventFormationDisbanded, Tick: c.tick, UID: id}.Log(c.Log)
		}
	}
}

// worldDims derives the world-space extent snapshot.Build's spatial index
// needs from whichever in-use layer's resolution is available (every
// layer shares the same map resolution, §3), along with a grid-index cell
// size sized to the avoidance neighbour radius so a single rect query
// typically touches only a handful of cells.
func (c *Core) worldDims() (width, height, cellSize float32) {
	for _, ld := range c.Layers {
		if ld == nil {
			continue
		}
		res := ld.Grid.Res
		width = float32(res.TilesWide()) * res.TileSize
		height = float32(res.TilesHigh()) * res.TileSize
		cellSize = float32(c.Cfg.Avoidance.NeighbourRadius) * 2
		if cellSize <= 0 {
			cellSize = res.TileSize * 4
		}
		return
	}
	return 1, 1, 1
}

// stepAgent runs the fused per-agent tick body (§4.8 step 5, §4.9, §4.10)
// for one agent: resolve a desired direction from the state machine,
// compose steering forces, resolve ClearPath avoidance, integrate
// velocity, update orientation, and write the tick's interpolation
// targets. Returns the avoidance-neighbour count sampled this tick, for
// telemetry's neighbour-count distribution.
func (c *Core) stepAgent(w agentWork, maxForce, neighbourRadius float32) int {
	ld := c.layerFor(w.body.Layer)
	if ld == nil {
		return 0
	}
	enemyMask := enemyMaskFor(c.snap.Diplomacy(), w.fac.ID)

	if w.move.State == components.StateMovingInFormation {
		c.maybeEnterArrivingToCell(ld, w)
	}

	desired, hasFlow, atFinal, neighbourArrived, entityDist := c.resolveDesired(ld, w, enemyMask)
	if !hasFlow && requiresFlow(w.move.State) {
		if d, ok := c.tryRecover(ld, w, enemyMask); ok {
			desired, hasFlow = d, true
		}
	}

	prevBlocking := w.move.Blocking
	prevState := w.move.State
	ctx := StepContext{
		Pos:              *w.pos,
		BodyRadius:       w.body.Radius,
		Heading:          w.rot.Heading,
		Move:             w.move,
		FlowDir:          desired,
		HasFlow:          hasFlow,
		AtFinalTarget:    atFinal,
		NeighbourArrived: neighbourArrived,
		EntityDist:       entityDist,
	}
	dv := Step(ctx, &c.Cfg.Movement)
	c.logStateChange(w.uid, prevState, w.move.State)

	if !prevBlocking && w.move.Blocking {
		c.blockAgent(w.uid)
	} else if prevBlocking && !w.move.Blocking {
		c.unblockAgent(w.uid)
	}

	if w.move.IsStill() {
		*w.vel = components.Velocity{}
		c.carryInterpolation(w.move, *w.pos, w.rot.Heading)
		return 0
	}

	if w.move.State == components.StateTurning {
		// Turning rotates in place (stepTurning already wrote the new
		// heading into Move.NextRot); it never enters the steering/
		// avoidance pipeline below, which is for translating motion only.
		*w.vel = components.Velocity{}
		w.move.PrevRot = w.rot.Heading
		w.rot.Heading = w.move.NextRot
		w.move.PrevPos = *w.pos
		w.move.NextPos = *w.pos
		w.move.StepFraction = 0
		w.move.StepsLeft = 1
		return 0
	}

	speed := w.move.MaxSpeed
	desiredVel := components.Velocity{}
	if dv.HasDir {
		desiredVel = components.Velocity{X: dv.Dir.X * speed, Z: dv.Dir.Z * speed}
	}

	var formationIdeal components.Position
	hasFormationIdeal := false
	if f, ok := c.Flocks.Get(w.move.DestID); ok {
		if p, ok2 := f.CellPos[w.uid]; ok2 {
			formationIdeal, hasFormationIdeal = p, true
		}
	}

	neighbours := c.gatherFlockNeighbours(w, neighbourRadius)
	in := SteeringInputs{
		State:             w.move.State,
		Pos:               *w.pos,
		Vel:               *w.vel,
		Desired:           desiredVel,
		Neighbours:        neighbours,
		FormationIdeal:    formationIdeal,
		HasFormationIdeal: hasFormationIdeal,
	}
	force := ComposeForce(&c.Cfg.Movement, in, neighbourRadius, maxForce)
	force = ZeroIntoImpassable(force, *w.pos, ld.Grid.Res.TileSize*0.5, func(x, z float32) bool {
		return c.passableAt(ld, enemyMask, x, z)
	})

	vPref := Integrate(*w.vel, force, w.move.MaxSpeed, c.Cfg.Tick.RateHz)

	avoid := c.gatherAvoidNeighbours(w, neighbourRadius)
	finalVel := ResolveClearPath(*w.pos, w.body.Radius, *w.vel, vPref, w.move.MaxSpeed, avoid)

	*w.vel = finalVel
	heading := UpdateOrientation(w.move, finalVel)

	dt := c.Cfg.Derived.DT32
	next := components.Position{X: w.pos.X + finalVel.X*dt, Z: w.pos.Z + finalVel.Z*dt}

	w.move.PrevPos = w.move.NextPos
	w.move.NextPos = next
	w.move.PrevRot = w.move.NextRot
	w.move.NextRot = heading
	w.move.StepFraction = 0
	w.move.StepsLeft = 1

	*w.pos = next
	w.rot.Heading = heading

	return len(avoid)
}

// maybeEnterArrivingToCell implements §4.9's MovingInFormation ->
// ArrivingToCell transition: once a formation-bound agent's own tile
// falls inside the cell-arrival field's built region around the
// formation's center, it switches from plain point-seek of its cell's
// world position onto that per-cell arrival field for its final approach
// (§4.4's cell-arrival field, §4.6 step 9's per-cell dispatch).
func (c *Core) maybeEnterArrivingToCell(ld *LayerData, w agentWork) {
	f, found := c.Flocks.Get(w.move.DestID)
	if !found {
		return
	}
	if _, bound := f.CellTile[w.uid]; !bound {
		return
	}
	if !withinCellArrivalRegion(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, f.Target, *w.pos, c.cellArrivalRegionTiles()) {
		return
	}
	c.logStateChange(w.uid, w.move.State, components.StateArrivingToCell)
	w.move.State = components.StateArrivingToCell
}

// logStateChange emits §4.9's per-agent state-transition narration: an
// EventStateChange for every transition, plus a dedicated EventArrived the
// instant a transition lands on StateArrived, matching the event taxonomy
// events.go defines.
func (c *Core) logStateChange(uid uint32, from, to components.AgentState) {
	if from == to {
		return
	}
	telemetry.Event{Type: telemetry.EventStateChange, Tick: c.tick, UID: uid,
		FromState: uint8(from), ToState: uint8(to)}.Log(c.Log)
	if to == components.StateArrived {
		telemetry.Event{Type: telemetry.EventArrived, Tick: c.tick, UID: uid}.Log(c.Log)
	}
}

// requiresFlow reports whether a state's seeking path depends on a flow
// field lookup succeeding, as opposed to states (Turning, Arrived,
// Waiting) that don't query the field cache at all this tick.
func requiresFlow(s components.AgentState) bool {
	switch s {
	case components.StateMoving, components.StateMovingInFormation,
		components.StateArrivingToCell, components.StateSeekEnemies,
		components.StateSurroundEntity, components.StateEnterEntityRange:
		return true
	default:
		return false
	}
}

// tryRecover implements §7's update_to_nearest_pathable recovery path: an
// agent whose own tile sits inside an impassable component (e.g. pushed
// there by a neighbour, or the destination field's cache came back empty
// because the tile has no integration cost at all) gets one shot at a
// flow back toward the nearest passable terrain before falling back to
// the state machine's own Waiting/Arrived give-up path.
func (c *Core) tryRecover(ld *LayerData, w agentWork, enemyMask uint16) (components.Velocity, bool) {
	td, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, w.pos.X, w.pos.Z)
	if !ok {
		return components.Velocity{}, false
	}
	chunk := ld.Grid.Chunk(navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC})
	if chunk == nil || chunk.Passable(td.TileR, td.TileC, enemyMask) {
		return components.Velocity{}, false
	}
	d, ok := ld.recoveryFlow(navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC}, enemyMask, td.TileR, td.TileC, nil)
	if !ok {
		return components.Velocity{}, false
	}
	return dirToVelocity(d, 1)
}

// carryInterpolation collapses an agent's interpolation window onto its
// current pose once it has gone still this tick (§4.9's Arrived/Waiting
// invariant), so a render subtick never blends motion the agent didn't
// actually take.
func (c *Core) carryInterpolation(m *components.Movestate, pos components.Position, heading float32) {
	m.PrevPos = pos
	m.NextPos = pos
	m.PrevRot = heading
	m.NextRot = heading
	m.StepFraction = 0
	m.StepsLeft = 0
}

// resolveDesired dispatches per-state desired-direction resolution (§4.9):
// Moving/MovingInFormation follow the cached destination flow (or a
// direct heading once in LOS of the final target); ArrivingToCell follows
// its own per-cell arrival field instead; SeekEnemies/SurroundEntity/
// EnterEntityRange resolve against the relevant padded seek field, except
// that SurroundEntity falls back to a direct seek of its target while it
// is outside the surround band (stepSurround's LowWater/HighWater
// hysteresis).
func (c *Core) resolveDesired(ld *LayerData, w agentWork, enemyMask uint16) (dir components.Velocity, hasFlow, atFinal, neighbourArrived bool, entityDist float32) {
	m := w.move
	pos := *w.pos

	switch m.State {
	case components.StateMoving, components.StateMovingInFormation:
		atFinal = Reached(pos, m.FlockDst, w.body.Radius)
		if atFinal {
			return
		}
		neighbourArrived = c.anyFlockNeighbourArrived(w)
		dir, hasFlow = c.seekFlow(ld, w.uid, pos, m.FlockDst, enemyMask)
		return

	case components.StateArrivingToCell:
		atFinal = Reached(pos, m.FlockDst, w.body.Radius)
		if atFinal {
			return
		}
		neighbourArrived = c.anyFlockNeighbourArrived(w)
		dir, hasFlow = c.cellArrivalDesired(ld, w, enemyMask)
		return

	case components.StateSeekEnemies:
		td, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, pos.X, pos.Z)
		if !ok {
			return
		}
		chunk := navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC}
		tiles := c.nearbyEnemyTiles(ld, chunk, pos, w.fac.ID)
		d, ok2 := ld.enemySeekFlow(chunk, w.fac.ID, enemyMask, td.TileR, td.TileC, tiles, nil)
		if !ok2 {
			return
		}
		dir, hasFlow = dirToVelocity(d, 1)
		return

	case components.StateSurroundEntity:
		av, found := c.snap.Agent(m.SurroundTargetUID)
		if !found {
			return
		}
		entityDist = distanceOf(pos, av.Pos)
		if m.UsingSurroundField {
			dir, hasFlow = c.seekEntityFlow(ld, pos, av.Pos, m.SurroundTargetUID, enemyMask)
		} else {
			dir, hasFlow = directSeek(pos, av.Pos)
		}
		return

	case components.StateEnterEntityRange:
		av, found := c.snap.Agent(m.SurroundTargetUID)
		if !found {
			return
		}
		entityDist = distanceOf(pos, av.Pos)
		atFinal = entityDist <= m.TargetRange
		if atFinal {
			return
		}
		dir, hasFlow = c.seekEntityFlow(ld, pos, av.Pos, m.SurroundTargetUID, enemyMask)
		return
	}
	return
}

// seekFlow resolves a point-target direction (§4.9/§4.4): a direct
// heading when the agent already has line of sight to target within its
// own chunk, otherwise the chunk's cached destination flow field, or (for
// a cross-chunk destination) the flow toward the next routed portal hop.
func (c *Core) seekFlow(ld *LayerData, uid uint32, pos, target components.Position, enemyMask uint16) (components.Velocity, bool) {
	fromTD, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, pos.X, pos.Z)
	if !ok {
		return components.Velocity{}, false
	}
	destTD, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, target.X, target.Z)
	if !ok {
		return components.Velocity{}, false
	}

	fromChunk := navgrid.ChunkCoord{R: fromTD.ChunkR, C: fromTD.ChunkC}
	destChunk := navgrid.ChunkCoord{R: destTD.ChunkR, C: destTD.ChunkC}

	if fromChunk == destChunk {
		if ld.destinationLOS(fromChunk, destTD, enemyMask, fromTD.TileR, fromTD.TileC, nil) {
			return directSeek(pos, target)
		}
		d, ok := ld.destinationFlow(fromChunk, destTD, enemyMask, fromTD.TileR, fromTD.TileC, nil)
		if !ok {
			return components.Velocity{}, false
		}
		return dirToVelocity(d, 1)
	}

	fromC := ld.Grid.Chunk(fromChunk)
	var destIsland uint16
	if dc := ld.Grid.Chunk(destChunk); dc != nil {
		destIsland = uint16(dc.LocalIsland(destTD.TileR, destTD.TileC))
	}
	hop, ok := routeToward(ld.Routes, fromTD, fromC, destChunk, destIsland, enemyMask)
	c.Stats.RecordRoute(!ok)
	if !ok {
		telemetry.Event{Type: telemetry.EventRouteFailed, Tick: c.tick, UID: uid}.Log(c.Log)
		return components.Velocity{}, false
	}
	d, ok := ld.portalHopFlow(fromChunk, hop, enemyMask, fromTD.TileR, fromTD.TileC, nil)
	if !ok {
		return components.Velocity{}, false
	}
	return dirToVelocity(d, 1)
}

// cellArrivalDesired resolves an ArrivingToCell agent's desired direction
// from its assigned formation cell's arrival field (§4.4, §4.9's "Cell-
// arrival reads the agent's per-cell arrival field").
func (c *Core) cellArrivalDesired(ld *LayerData, w agentWork, enemyMask uint16) (components.Velocity, bool) {
	f, found := c.Flocks.Get(w.move.DestID)
	if !found {
		return components.Velocity{}, false
	}
	cellTD, found2 := f.CellTile[w.uid]
	if !found2 {
		return components.Velocity{}, false
	}
	d, ok := ld.cellArrivalFlow(f.ID, c.MapOriginX, c.MapOriginZ, f.Target, c.cellArrivalRegionTiles(), cellTD, enemyMask, *w.pos, nil)
	if !ok {
		return components.Velocity{}, false
	}
	return dirToVelocity(d, 1)
}

// seekEntityFlow resolves the flow direction toward a moving entity's
// current tile, over the padded seek region centered on the querying
// agent's own chunk (§4.4).
func (c *Core) seekEntityFlow(ld *LayerData, pos, targetPos components.Position, uid uint32, enemyMask uint16) (components.Velocity, bool) {
	fromTD, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, pos.X, pos.Z)
	if !ok {
		return components.Velocity{}, false
	}
	chunk := navgrid.ChunkCoord{R: fromTD.ChunkR, C: fromTD.ChunkC}
	entR, entC := localTile(ld.Grid.Res, chunk, c.MapOriginX, c.MapOriginZ, targetPos.X, targetPos.Z)
	d, ok2 := ld.entitySeekFlow(chunk, uid, enemyMask, fromTD.TileR, fromTD.TileC, entR, entC, nil)
	if !ok2 {
		return components.Velocity{}, false
	}
	return dirToVelocity(d, 1)
}

// maxSeekTargets bounds how many nearby enemy tiles feed one enemy-seek
// field build; well beyond this the nearest handful already dominate the
// resulting flow, so the cap keeps a crowded battle from enumerating
// hundreds of targets per build.
const maxSeekTargets = 16

// nearbyEnemyTiles gathers chunk-relative tile coordinates of every enemy
// agent within the padded seek region around pos, read from the current
// snapshot's spatial index (§4.4's "Enemy-seek" target list, §5's
// snapshot-only read rule for concurrent tick work).
func (c *Core) nearbyEnemyTiles(ld *LayerData, chunk navgrid.ChunkCoord, pos components.Position, faction uint8) []struct{ R, C int32 } {
	idx := c.snap.Index()
	if idx == nil {
		return nil
	}
	half := float32(ld.Grid.Res.TileW) * ld.Grid.Res.TileSize
	uids := idx.EntsInRect(pos.X-half, pos.Z-half, pos.X+half, pos.Z+half)

	diplo := c.snap.Diplomacy()
	var out []struct{ R, C int32 }
	for _, uid := range uids {
		av, ok := c.snap.Agent(uid)
		if !ok || !diplo.IsEnemy(faction, av.Faction) {
			continue
		}
		r, col := localTile(ld.Grid.Res, chunk, c.MapOriginX, c.MapOriginZ, av.Pos.X, av.Pos.Z)
		out = append(out, struct{ R, C int32 }{r, col})
		if len(out) >= maxSeekTargets {
			break
		}
	}
	return out
}

// anyFlockNeighbourArrived reports whether a same-flock agent within
// double the querying agent's arrival radius has already reached
// StateArrived, per §4.9's Moving-state congestion relief note: a
// crowded agent stops short of its own exact target once a flockmate
// next to it has already settled.
func (c *Core) anyFlockNeighbourArrived(w agentWork) bool {
	if w.move.DestID == 0 {
		return false
	}
	idx := c.snap.Index()
	if idx == nil {
		return false
	}
	r := ArrivalRadius(w.body.Radius) * 2
	uids := idx.EntsInRect(w.pos.X-r, w.pos.Z-r, w.pos.X+r, w.pos.Z+r)
	for _, uid := range uids {
		if uid == w.uid {
			continue
		}
		av, ok := c.snap.Agent(uid)
		if !ok || av.DestID != w.move.DestID {
			continue
		}
		if av.Blocking {
			return true
		}
	}
	return false
}

// gatherFlockNeighbours collects same-flock agents within neighbourRadius
// for the cohesion/alignment/separation terms (§4.9), reading only the
// tick's immutable snapshot per §5.
func (c *Core) gatherFlockNeighbours(w agentWork, radius float32) []Neighbour {
	if w.move.DestID == 0 {
		return nil
	}
	idx := c.snap.Index()
	if idx == nil {
		return nil
	}
	uids := idx.EntsInRect(w.pos.X-radius, w.pos.Z-radius, w.pos.X+radius, w.pos.Z+radius)
	var out []Neighbour
	for _, uid := range uids {
		if uid == w.uid {
			continue
		}
		av, ok := c.snap.Agent(uid)
		if !ok || av.DestID != w.move.DestID {
			continue
		}
		out = append(out, Neighbour{Pos: av.Pos, Vel: av.Vel})
	}
	return out
}

// gatherAvoidNeighbours collects every nearby disk (any flock, or none)
// for ClearPath (§4.10), capped at the configured MaxNeighbours the same
// way the teacher's spatial queries cap candidate sets for a fixed
// per-tick cost bound.
func (c *Core) gatherAvoidNeighbours(w agentWork, radius float32) []AvoidNeighbour {
	idx := c.snap.Index()
	if idx == nil {
		return nil
	}
	max := c.Cfg.Avoidance.MaxNeighbours
	if max <= 0 {
		max = 8
	}
	uids := idx.EntsInRect(w.pos.X-radius, w.pos.Z-radius, w.pos.X+radius, w.pos.Z+radius)
	out := make([]AvoidNeighbour, 0, len(uids))
	for _, uid := range uids {
		if uid == w.uid {
			continue
		}
		av, ok := c.snap.Agent(uid)
		if !ok {
			continue
		}
		out = append(out, AvoidNeighbour{Pos: av.Pos, Vel: av.Vel, Radius: av.Radius, Static: av.Blocking})
		if len(out) >= max {
			break
		}
	}
	return out
}

// passableAt resolves world-space passability for ZeroIntoImpassable's
// lookahead probe (§4.9), off the live (not snapshot) grid since
// passability is tick-boundary state, not per-tick agent state.
func (c *Core) passableAt(ld *LayerData, enemyMask uint16, x, z float32) bool {
	td, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, x, z)
	if !ok {
		return false
	}
	chunk := ld.Grid.Chunk(navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC})
	if chunk == nil {
		return false
	}
	return chunk.Passable(td.TileR, td.TileC, enemyMask)
}

// directSeek returns the unit direction from pos to target, or false if
// they effectively coincide.
func directSeek(pos, target components.Position) (components.Velocity, bool) {
	dx, dz := target.X-pos.X, target.Z-pos.Z
	l := float32(math.Hypot(float64(dx), float64(dz)))
	if l < 1e-6 {
		return components.Velocity{}, false
	}
	return components.Velocity{X: dx / l, Z: dz / l}, true
}

func distanceOf(a, b components.Position) float32 {
	dx, dz := a.X-b.X, a.Z-b.Z
	return float32(math.Hypot(float64(dx), float64(dz)))
}

// computePopulationSample gathers the §4.9/§4.10 flush-time population
// snapshot: per-agent speeds/neighbour-counts sampled during this tick's
// steering phase, plus a fresh state tally (cheap relative to the flush
// cadence, unlike the per-tick steering pass).
func (c *Core) computePopulationSample() telemetry.PopulationSample {
	pop := telemetry.PopulationSample{
		Speeds:          c.lastSpeeds,
		NeighbourCounts: c.lastNeighbourCounts,
	}
	c.Agents.ForEach(func(uid uint32, pos *components.Position, vel *components.Velocity, rot *components.Rotation, body *components.Body, fac *components.Faction, move *components.Movestate) {
		pop.ActiveAgents++
		switch move.State {
		case components.StateArrived:
			pop.Arrived++
		case components.StateWaiting:
			pop.Waiting++
		default:
			pop.Moving++
		}
	})
	pop.FormationsActive = c.Flocks.Len()
	pop.FormationCellsOccupied = c.Flocks.CellsOccupied()
	return pop
}
