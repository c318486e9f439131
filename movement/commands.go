package movement

import (
	"github.com/Mu-L/permafrost-engine/command"
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/field"
	"github.com/Mu-L/permafrost-engine/formation"
	"github.com/Mu-L/permafrost-engine/navgrid"
	"github.com/Mu-L/permafrost-engine/telemetry"
)

// applyCommands drains the command queue and applies every command to
// Core's live state, per §4.7. Drain order is FIFO arrival order, and
// §5 guarantees this runs single-threaded on the owning thread before any
// per-agent work this tick reads the result. Drops since the last call
// are also recorded, so telemetry's CommandsDropped reflects ring
// overflow even though dropped commands never reach Drain.
func (c *Core) applyCommands() {
	dropped := c.Cmds.Dropped()
	for i := 0; i < dropped-c.lastDropped; i++ {
		c.Stats.RecordCommand(true)
		telemetry.Event{Type: telemetry.EventCommandDropped, Tick: c.tick}.Log(c.Log)
	}
	c.lastDropped = dropped

	for _, cmd := range c.Cmds.Drain() {
		c.Stats.RecordCommand(false)
		c.applyCommand(cmd)
	}
}

func (c *Core) applyCommand(cmd command.Command) {
	switch cmd.Kind {
	case command.KindAdd:
		// Add's constructor carries no Layer field (command stays
		// independent of navgrid); every new agent starts on LayerFoot and
		// a follow-up UpdateFactionID/body edit can reassign later if a
		// larger-footprint unit type is introduced.
		c.Agents.Add(cmd.UID, cmd.Pos, cmd.Radius, cmd.NewFaction)
		if body := c.Agents.Body(cmd.UID); body != nil {
			body.Layer = uint8(navgrid.LayerFoot)
		}
		c.blockAgent(cmd.UID)

	case command.KindRemove:
		c.unblockAgent(cmd.UID)
		c.Agents.Remove(cmd.UID)

	case command.KindStop:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			wasBlocking := m.Blocking
			m.State = components.StateArrived
			m.Blocking = true
			if pos := c.Agents.Position(cmd.UID); pos != nil {
				if !wasBlocking {
					c.blockAgent(cmd.UID)
				}
				m.LastStopPos = *pos
			}
		}

	case command.KindSetDest:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			c.unblockAgent(cmd.UID)
			m.State = components.StateMoving
			m.FlockDst = cmd.Pos
			m.Attack = cmd.Attack
			m.DestID = 0
			m.CellID = 0
			m.Blocking = false
		}

	case command.KindChangeDirection:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			if m.Blocking {
				c.unblockAgent(cmd.UID)
			}
			enterTurning(m, cmd.Heading)
		}

	case command.KindSetEnterRange:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			c.unblockAgent(cmd.UID)
			m.State = components.StateEnterEntityRange
			m.SurroundTargetUID = cmd.Target
			m.TargetRange = cmd.Range
			m.Blocking = false
		}

	case command.KindSetSeekEnemies:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			c.unblockAgent(cmd.UID)
			m.State = components.StateSeekEnemies
			m.Blocking = false
		}

	case command.KindSetSurroundEntity:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			c.unblockAgent(cmd.UID)
			m.State = components.StateSurroundEntity
			m.SurroundTargetUID = cmd.Target
			m.UsingSurroundField = true
			m.Blocking = false
		}

	case command.KindUpdatePos:
		if pos := c.Agents.Position(cmd.UID); pos != nil {
			m := c.Agents.Movestate(cmd.UID)
			blocked := m != nil && m.Blocking
			if blocked {
				c.unblockAgent(cmd.UID)
			}
			*pos = cmd.Pos
			if blocked {
				c.blockAgent(cmd.UID)
			}
		}

	case command.KindUpdateFactionID:
		if fac := c.Agents.Faction(cmd.UID); fac != nil {
			c.unblockAgent(cmd.UID)
			fac.ID = cmd.NewFaction
			c.blockAgent(cmd.UID)
		}

	case command.KindUpdateSelectionRadius:
		if body := c.Agents.Body(cmd.UID); body != nil {
			c.unblockAgent(cmd.UID)
			body.Radius = cmd.Radius
			c.blockAgent(cmd.UID)
		}

	case command.KindSetMaxSpeed:
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			m.MaxSpeed = cmd.MaxSpeed
		}

	case command.KindMakeFlocks:
		c.applyMakeFlocks(cmd)

	case command.KindUnblock:
		c.unblockAgent(cmd.UID)
		if m := c.Agents.Movestate(cmd.UID); m != nil {
			m.Blocking = false
		}

	case command.KindBlockAt:
		if pos := c.Agents.Position(cmd.UID); pos != nil {
			c.unblockAgent(cmd.UID)
			*pos = cmd.Pos
			c.blockAgent(cmd.UID)
			if m := c.Agents.Movestate(cmd.UID); m != nil {
				m.Blocking = true
				m.LastStopPos = cmd.Pos
			}
		}
	}
}

// blockAgent/unblockAgent toggle an agent's navgrid blocker disk on the
// layer its Body currently names (§4.2's "stationary agents block every
// tile under their disk"). Faction occupancy is recorded alongside the
// blocker so enemy-seek fields can still route through an enemy-occupied
// tile per §3's Passable invariant.
func (c *Core) blockAgent(uid uint32) {
	pos := c.Agents.Position(uid)
	body := c.Agents.Body(uid)
	fac := c.Agents.Faction(uid)
	if pos == nil || body == nil || fac == nil {
		return
	}
	ld := c.layerFor(body.Layer)
	if ld == nil {
		return
	}
	ld.Grid.BlockDisk(c.MapOriginX, c.MapOriginZ, pos.X, pos.Z, body.Radius, fac.ID, true)
}

func (c *Core) unblockAgent(uid uint32) {
	pos := c.Agents.Position(uid)
	body := c.Agents.Body(uid)
	fac := c.Agents.Faction(uid)
	if pos == nil || body == nil || fac == nil {
		return
	}
	ld := c.layerFor(body.Layer)
	if ld == nil {
		return
	}
	ld.Grid.UnblockDisk(c.MapOriginX, c.MapOriginZ, pos.X, pos.Z, body.Radius, fac.ID, true)
}

// applyMakeFlocks implements §4.7's MakeFlocks / §6's
// ArrangeInFormation/AttackInFormation: a plain (FormationNone) flock
// just binds members to a shared destination; a ranked/columned flock
// additionally runs the formation planner (§4.6) to assign each member a
// cell and dispatches per-cell arrival fields across the worker pool.
func (c *Core) applyMakeFlocks(cmd command.Command) {
	if len(cmd.Selection) == 0 {
		return
	}
	f := c.Flocks.Create(cmd.Selection, cmd.Pos, cmd.Orientation, cmd.Attack)

	if cmd.FormType == command.FormationNone {
		for _, uid := range cmd.Selection {
			c.bindToFlock(uid, f, components.StateMoving)
		}
		return
	}

	ft := formation.TypeRank
	if cmd.FormType == command.FormationColumn {
		ft = formation.TypeColumn
	}

	agents := make([]formation.Agent, 0, len(cmd.Selection))
	for _, uid := range cmd.Selection {
		pos := c.Agents.Position(uid)
		if pos == nil {
			continue
		}
		agents = append(agents, formation.Agent{UID: uid, X: pos.X, Z: pos.Z})
	}
	if len(agents) == 0 {
		return
	}

	ncols, nrows := formation.Dims(len(agents), ft)
	sf := &formation.Subformation{TypeID: 0, NCols: ncols, NRows: nrows}

	body := c.Agents.Body(cmd.Selection[0])
	layerIdx := navgrid.LayerFoot
	if body != nil {
		layerIdx = navgrid.Layer(body.Layer)
	}
	ld := c.layerFor(uint8(layerIdx))
	if ld == nil {
		return
	}

	tileSize := ld.Grid.Res.TileSize
	desiredTile, ok := navgrid.DescForPoint(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, cmd.Pos.X, cmd.Pos.Z)
	var desiredIsland uint32
	if ok {
		if chunk := ld.Grid.Chunk(navgrid.ChunkCoord{R: desiredTile.ChunkR, C: desiredTile.ChunkC}); chunk != nil {
			desiredIsland = chunk.Island(desiredTile.TileR, desiredTile.TileC)
		}
	}

	c.formScratch.Reset()
	query := func(r, col int) (uint32, bool) {
		gr := int64(desiredTile.ChunkR)*int64(ld.Grid.Res.TileH) + int64(desiredTile.TileR) + int64(r-formation.GridRadius/2)
		gc := int64(desiredTile.ChunkC)*int64(ld.Grid.Res.TileW) + int64(desiredTile.TileC) + int64(col-formation.GridRadius/2)
		td, ok := navgrid.DescForGlobal(ld.Grid.Res, gr, gc)
		if !ok {
			return 0, false
		}
		chunk := ld.Grid.Chunk(navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC})
		if chunk == nil || !chunk.Passable(td.TileR, td.TileC, 0) {
			return 0, false
		}
		return chunk.Island(td.TileR, td.TileC), true
	}
	formation.Place(sf, &c.formScratch, query, desiredIsland, tileSize, len(agents))
	formation.Assign(agents, sf.Cells)

	if f.CellPos == nil {
		f.CellPos = make(map[uint32]components.Position, len(agents))
	}
	if f.CellTile == nil {
		f.CellTile = make(map[uint32]navgrid.TileDesc, len(agents))
	}
	enemyMask := enemyMaskFor(c.Agents.Diplomacy(), bodyFaction(c, cmd.Selection[0]))
	regionTiles := c.cellArrivalRegionTiles()
	originGR, originGC, centerOK := field.RegionOriginForWorldCenter(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, f.Target.X, f.Target.Z, regionTiles, regionTiles)
	build := func(cell *formation.Cell) {
		if cell.AssignedUID == 0 {
			return
		}
		cellTD, ok := navgrid.DescForGlobal(ld.Grid.Res,
			int64(desiredTile.ChunkR)*int64(ld.Grid.Res.TileH)+int64(desiredTile.TileR)+int64(cell.SnappedR-formation.GridRadius/2),
			int64(desiredTile.ChunkC)*int64(ld.Grid.Res.TileW)+int64(desiredTile.TileC)+int64(cell.SnappedC-formation.GridRadius/2))
		if !ok {
			return
		}
		worldX, worldZ := navgrid.Center(ld.Grid.Res, c.MapOriginX, c.MapOriginZ, cellTD)
		f.CellPos[cell.AssignedUID] = components.Position{X: worldX, Z: worldZ}
		f.CellTile[cell.AssignedUID] = cellTD
		// Dispatch the per-cell arrival field build now (§4.6 step 9), so
		// the agent's first ArrivingToCell tick finds it already cached
		// rather than paying the build cost on the simulation thread.
		if centerOK {
			ld.cellArrivalBuilt(f.ID, originGR, originGC, regionTiles, cellTD, enemyMask, nil)
		}
	}
	formation.DispatchArrivalFields(sf.Cells, build, c.Cfg.Derived.MaxMoveTasks)

	for _, uid := range cmd.Selection {
		if _, ok := f.CellPos[uid]; !ok {
			continue
		}
		c.bindToFlock(uid, f, components.StateMovingInFormation)
	}
}

func bodyFaction(c *Core, uid uint32) uint8 {
	if fac := c.Agents.Faction(uid); fac != nil {
		return fac.ID
	}
	return 0
}

func (c *Core) bindToFlock(uid uint32, f *Flock, state components.AgentState) {
	m := c.Agents.Movestate(uid)
	if m == nil {
		return
	}
	c.unblockAgent(uid)
	m.DestID = f.ID
	m.FlockDst = f.Target
	if cell, ok := f.CellPos[uid]; ok {
		m.FlockDst = cell
		m.CellID = f.ID
	}
	m.State = state
	m.Attack = f.Attack
	m.Blocking = false
}
