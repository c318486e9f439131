package movement

import (
	"github.com/Mu-L/permafrost-engine/agentdb"
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/field"
	"github.com/Mu-L/permafrost-engine/navgrid"
	"github.com/Mu-L/permafrost-engine/portal"
	"github.com/Mu-L/permafrost-engine/snapshot"
	"github.com/Mu-L/permafrost-engine/telemetry"
)

// LayerData bundles the per-layer navgrid, its field cache, and its
// portal graph (§4.2-§4.5): one full set of these per navgrid.Layer, the
// hierarchy §3 describes as "a nav grid per layer."
type LayerData struct {
	Layer  navgrid.Layer
	Grid   *navgrid.Grid
	Cache  *field.Cache
	Routes *portal.Graph
	Stats  *telemetry.Collector
}

// buildTracked wraps Cache.GetOrBuild with §4.5's cache-hit/miss and
// fields-built telemetry: a plain Get hit records a hit without ever
// entering the dedup path; a miss records one miss per caller even when
// singleflight collapses several callers into a single build, and the
// single caller whose build function actually runs records the build.
func (ld *LayerData) buildTracked(id field.FieldID, build func() (*field.Built, error)) (*field.Built, error) {
	if b, ok := ld.Cache.Get(id); ok {
		ld.Stats.RecordFieldCacheLookup(true)
		return b, nil
	}
	ld.Stats.RecordFieldCacheLookup(false)
	return ld.Cache.GetOrBuild(id, func() (*field.Built, error) {
		b, err := build()
		if err == nil {
			ld.Stats.RecordFieldBuilt()
		}
		return b, err
	})
}

// dirToVelocity converts a packed flow direction into a unit world-space
// velocity, using the exact tile-step offsets ExtractFlow assigned each
// direction (field.Dir4.Vector) so a direction read off a flow field
// always points the way the field actually steps.
func dirToVelocity(d field.Dir4, speed float32) (components.Velocity, bool) {
	if d == field.DirNone {
		return components.Velocity{}, false
	}
	dr, dc := d.Vector()
	f := normalizeF(Force{X: float32(dc), Z: float32(dr)})
	return components.Velocity{X: f.X * speed, Z: f.Z * speed}, true
}

// findPortalByID looks up a chunk's portal record by id; portal.Graph
// keeps this unexported since its own A* only ever needs it internally,
// but movement's one-hop field dispatch needs the full record (tile
// bounds) to build a PortalTarget.
func findPortalByID(c *navgrid.Chunk, id uint32) *navgrid.Portal {
	for _, p := range c.Portals {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// enemyMaskFor returns the bitmask of faction ids hostile to faction,
// per §4.4's enemy-seek fields and §3's Passable faction-mask invariant.
func enemyMaskFor(diplo snapshot.DiplomacyTable, faction uint8) uint16 {
	var mask uint16
	for f := 0; f < navgrid.MaxFactions; f++ {
		if diplo.IsEnemy(faction, uint8(f)) {
			mask |= 1 << uint(f)
		}
	}
	return mask
}

// destinationBuilt resolves chunk's own-chunk field toward dest, building
// and caching the Integration/Flow/LOS triple together under one cache
// entry on demand (§4.4 "Destination field" and "LOS field", §4.5's
// cache contract): a single FieldID covers all three products of the
// same target, so a destination lookup and an LOS lookup for the same
// tile never race each other into building it twice.
func (ld *LayerData) destinationBuilt(chunk navgrid.ChunkCoord, dest navgrid.TileDesc, enemyMask uint16, yield func()) *field.Built {
	target := field.TileTarget{Tile: dest}
	id := target.FieldID(ld.layerOf(), chunk)
	built, err := ld.buildTracked(id, func() (*field.Built, error) {
		ctx := field.ChunkContext(ld.Grid, chunk, enemyMask, yield)
		targets := []struct{ R, C int32 }{{dest.TileR, dest.TileC}}
		integ := field.BuildIntegration(ctx, targets)
		los := field.BuildLOS(ctx, dest.TileR, dest.TileC)
		return &field.Built{Integration: integ, Flow: field.ExtractFlow(integ), LOS: los}, nil
	})
	if err != nil {
		return nil
	}
	return built
}

// destinationFlow resolves the flow direction at (tileR, tileC) of
// chunk's own-chunk integration field toward dest, building and caching
// it on demand (§4.4 "Destination field", §4.5's cache contract).
func (ld *LayerData) destinationFlow(chunk navgrid.ChunkCoord, dest navgrid.TileDesc, enemyMask uint16, tileR, tileC int32, yield func()) (field.Dir4, bool) {
	built := ld.destinationBuilt(chunk, dest, enemyMask, yield)
	if built == nil || built.Flow == nil {
		return field.DirNone, false
	}
	d := built.Flow.At(tileR, tileC)
	return d, d != field.DirNone
}

// destinationLOS reports whether (tileR, tileC) has unobstructed line of
// sight to dest within chunk, per §4.9's "agent has LOS to its final
// target" direct-seek rule.
func (ld *LayerData) destinationLOS(chunk navgrid.ChunkCoord, dest navgrid.TileDesc, enemyMask uint16, tileR, tileC int32, yield func()) bool {
	built := ld.destinationBuilt(chunk, dest, enemyMask, yield)
	if built == nil || built.LOS == nil {
		return false
	}
	return built.LOS.Visible(tileR, tileC) && !built.LOS.WavefrontBlocked(tileR, tileC)
}

func (ld *LayerData) layerOf() navgrid.Layer { return ld.Layer }

// enemySeekFlow resolves the flow direction toward the nearest enemy of
// `faction`, over a padded region twice chunk size (§4.4 "Enemy-seek /
// entity-seek fields"). enemyTiles arrive in own-chunk-local coordinates
// (nearbyEnemyTiles/localTile), so each must be shifted onto the padded
// region's coordinate system before it can seed BuildIntegration there,
// the same shift entitySeekFlow applies to its single target.
func (ld *LayerData) enemySeekFlow(chunk navgrid.ChunkCoord, faction uint8, enemyMask uint16, tileR, tileC int32, enemyTiles []struct{ R, C int32 }, yield func()) (field.Dir4, bool) {
	target := field.EnemiesTarget{Faction: faction}
	id := target.FieldID(ld.layerOf(), chunk)
	built, err := ld.buildTracked(id, func() (*field.Built, error) {
		w, h := int32(ld.Grid.Res.TileW), int32(ld.Grid.Res.TileH)
		padCtx := field.PaddedChunkContext(ld.Grid, chunk, w/2, h/2, enemyMask, yield)
		offR, offC := h/2, w/2
		padded := make([]struct{ R, C int32 }, len(enemyTiles))
		for i, t := range enemyTiles {
			padded[i] = struct{ R, C int32 }{t.R + offR, t.C + offC}
		}
		flow := field.BuildPaddedSeek(padCtx, w, h, padded)
		return &field.Built{Flow: flow}, nil
	})
	if err != nil || built == nil || built.Flow == nil {
		return field.DirNone, false
	}
	d := built.Flow.At(tileR, tileC)
	return d, d != field.DirNone
}

// entitySeekFlow resolves the flow direction toward a single moving
// entity's current tile, over the same padded region shape as
// enemySeekFlow (§4.4).
func (ld *LayerData) entitySeekFlow(chunk navgrid.ChunkCoord, uid uint32, enemyMask uint16, tileR, tileC, entTileR, entTileC int32, yield func()) (field.Dir4, bool) {
	target := field.EntityTarget{UID: uid}
	id := target.FieldID(ld.layerOf(), chunk)
	built, err := ld.buildTracked(id, func() (*field.Built, error) {
		w, h := int32(ld.Grid.Res.TileW), int32(ld.Grid.Res.TileH)
		padCtx := field.PaddedChunkContext(ld.Grid, chunk, w/2, h/2, enemyMask, yield)
		offR, offC := h/2, w/2
		targets := []struct{ R, C int32 }{{entTileR + offR, entTileC + offC}}
		flow := field.BuildPaddedSeek(padCtx, w, h, targets)
		return &field.Built{Flow: flow}, nil
	})
	if err != nil || built == nil || built.Flow == nil {
		return field.DirNone, false
	}
	d := built.Flow.At(tileR, tileC)
	return d, d != field.DirNone
}

// portalHopFlow resolves the flow direction toward the boundary run of a
// single routed portal hop, for agents whose destination lies in a
// different chunk (§4.3's "field builder consumes `(portal_desc,
// port_iid, next_iid)`"). Building per-tick rather than caching the
// agent's route across ticks is a deliberate simplification (see
// DESIGN.md): correctness only needs the current hop recomputed, and the
// portal graph itself is cheap relative to a full field rebuild, which
// the field cache still dedups across every agent sharing the hop.
func (ld *LayerData) portalHopFlow(chunk navgrid.ChunkCoord, hop portal.RouteHop, enemyMask uint16, tileR, tileC int32, yield func()) (field.Dir4, bool) {
	c := ld.Grid.Chunk(chunk)
	if c == nil {
		return field.DirNone, false
	}
	p := findPortalByID(c, hop.PortalID)
	if p == nil {
		return field.DirNone, false
	}
	target := field.PortalTarget{Portal: p, PrevIID: hop.PortIID, NextIID: hop.NextIID}
	id := target.FieldID(ld.layerOf(), chunk)
	built, err := ld.buildTracked(id, func() (*field.Built, error) {
		ctx := field.ChunkContext(ld.Grid, chunk, enemyMask, yield)
		targets := make([]struct{ R, C int32 }, 0, 4)
		lo, hi := p.TileR0, p.TileR1
		if p.TileC0 != p.TileC1 {
			lo, hi = p.TileC0, p.TileC1
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		for v := lo; v <= hi; v++ {
			if p.TileR0 == p.TileR1 {
				targets = append(targets, struct{ R, C int32 }{p.TileR0, v})
			} else {
				targets = append(targets, struct{ R, C int32 }{v, p.TileC0})
			}
		}
		integ := field.BuildIntegration(ctx, targets)
		return &field.Built{Integration: integ, Flow: field.ExtractFlow(integ)}, nil
	})
	if err != nil || built == nil || built.Flow == nil {
		return field.DirNone, false
	}
	d := built.Flow.At(tileR, tileC)
	return d, d != field.DirNone
}

// routeToward finds the next portal hop an agent at `from` should cross
// to reach dest's chunk, using the chunk's own current local island at
// the agent's tile as the routing endpoint's starting island (§4.3).
func routeToward(routes *portal.Graph, from navgrid.TileDesc, fromChunk *navgrid.Chunk, destChunk navgrid.ChunkCoord, destIsland uint16, enemyMask uint16) (portal.RouteHop, bool) {
	if fromChunk == nil {
		return portal.RouteHop{}, false
	}
	localIsland := uint16(fromChunk.LocalIsland(from.TileR, from.TileC))
	// Find a portal of fromChunk reachable from localIsland to route from;
	// Endpoint requires one, so probe the chunk's own portals for a
	// matching near-side entry.
	var start portal.Endpoint
	found := false
	for _, p := range fromChunk.Portals {
		for k := range p.Reach {
			if k[0] == localIsland {
				start = portal.Endpoint{Chunk: fromChunk.Coord, PortalID: p.ID, LocalIsland: localIsland}
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return portal.RouteHop{}, false
	}
	hops, ok := routes.Route(start, destChunk, destIsland, enemyMask)
	if !ok || len(hops) == 0 {
		return portal.RouteHop{}, false
	}
	return hops[0], true
}

// localTile converts a world-space point into tile coordinates relative
// to chunk's own top-left corner. Unlike navgrid.DescForPoint, the result
// is not clamped to chunk bounds and may be negative or exceed the
// chunk's own W/H: callers building a padded-region seek target (§4.4)
// need exactly this, since an enemy or entity target frequently sits in
// a neighbouring chunk while still falling inside the queried chunk's
// padded search window.
func localTile(res navgrid.Resolution, chunk navgrid.ChunkCoord, mapOriginX, mapOriginZ, x, z float32) (r, c int32) {
	gc := int64((x - mapOriginX) / res.TileSize)
	gr := int64((z - mapOriginZ) / res.TileSize)
	return int32(gr - int64(chunk.R)*int64(res.TileH)), int32(gc - int64(chunk.C)*int64(res.TileW))
}

// recoveryFlow resolves §7's update_to_nearest_pathable fallback: when an
// agent's own tile is stuck inside an impassable component (e.g. pushed
// there by a neighbour), this builds a flow field pulling it back toward
// the nearest bordering passable terrain instead of leaving it with no
// direction at all.
func (ld *LayerData) recoveryFlow(chunk navgrid.ChunkCoord, enemyMask uint16, tileR, tileC int32, yield func()) (field.Dir4, bool) {
	target := field.RecoveryTarget{Tile: navgrid.TileDesc{ChunkR: chunk.R, ChunkC: chunk.C, TileR: tileR, TileC: tileC}}
	// RecoveryTarget's own Kind keeps this cache entry distinct from the
	// plain destination-flow TileTarget entry for the same stuck tile, so
	// every stuck agent on that tile still shares one build.
	id := target.FieldID(ld.layerOf(), chunk)
	built, err := ld.buildTracked(id, func() (*field.Built, error) {
		ctx := field.ChunkContext(ld.Grid, chunk, enemyMask, yield)
		flow := field.BuildToNearestPathable(ctx, tileR, tileC)
		return &field.Built{Flow: flow}, nil
	})
	if err != nil || built == nil || built.Flow == nil {
		return field.DirNone, false
	}
	d := built.Flow.At(tileR, tileC)
	return d, d != field.DirNone
}

// defaultCellArrivalRegionTiles is the §4.4 "typical 96x96" cell-arrival
// region extent, used when config.FormationConfig.CellArrivalRegionTiles
// is unset.
const defaultCellArrivalRegionTiles int32 = 96

// cellArrivalOrigin resolves the global tile-space top-left corner of the
// regionTiles x regionTiles square centered on centerWorld (§4.4's "Cell-
// arrival field": "a rectangular region ... centered on the formation's
// center").
func cellArrivalOrigin(res navgrid.Resolution, mapOriginX, mapOriginZ float32, centerWorld components.Position, regionTiles int32) (originGR, originGC int64, ok bool) {
	return field.RegionOriginForWorldCenter(res, mapOriginX, mapOriginZ, centerWorld.X, centerWorld.Z, regionTiles, regionTiles)
}

// withinCellArrivalRegion reports whether pos falls inside the cell-
// arrival region built around centerWorld, the §4.9 "final approach" test
// gating the MovingInFormation -> ArrivingToCell transition: an agent's
// own tile has to lie inside the region before the field built there can
// answer a flow lookup for it.
func withinCellArrivalRegion(res navgrid.Resolution, mapOriginX, mapOriginZ float32, centerWorld, pos components.Position, regionTiles int32) bool {
	originGR, originGC, ok := cellArrivalOrigin(res, mapOriginX, mapOriginZ, centerWorld, regionTiles)
	if !ok {
		return false
	}
	posTD, ok2 := navgrid.DescForPoint(res, mapOriginX, mapOriginZ, pos.X, pos.Z)
	if !ok2 {
		return false
	}
	posGR := int64(posTD.ChunkR)*int64(res.TileH) + int64(posTD.TileR)
	posGC := int64(posTD.ChunkC)*int64(res.TileW) + int64(posTD.TileC)
	return posGR >= originGR && posGR < originGR+int64(regionTiles) &&
		posGC >= originGC && posGC < originGC+int64(regionTiles)
}

// cellArrivalBuilt builds (or fetches from cache) the region-form
// integration/flow field for one formation cell (§4.4's "Cell-arrival
// field", §4.6 step 9's per-agent dispatch): a regionTiles x regionTiles
// region anchored at (originGR, originGC), targeting cellTD.
func (ld *LayerData) cellArrivalBuilt(flockID uint32, originGR, originGC int64, regionTiles int32, cellTD navgrid.TileDesc, enemyMask uint16, yield func()) *field.Built {
	target := field.CellArrivalTarget{FlockID: flockID, Tile: cellTD}
	chunk := navgrid.ChunkCoord{R: cellTD.ChunkR, C: cellTD.ChunkC}
	id := target.FieldID(ld.layerOf(), chunk)
	built, err := ld.buildTracked(id, func() (*field.Built, error) {
		cellGR := int64(cellTD.ChunkR)*int64(ld.Grid.Res.TileH) + int64(cellTD.TileR)
		cellGC := int64(cellTD.ChunkC)*int64(ld.Grid.Res.TileW) + int64(cellTD.TileC)
		ctx := field.RegionContext(ld.Grid, originGR, originGC, regionTiles, regionTiles, enemyMask, yield)
		integ, flow := field.BuildCellArrival(ctx, int32(cellGR-originGR), int32(cellGC-originGC))
		return &field.Built{Integration: integ, Flow: flow}, nil
	})
	if err != nil {
		return nil
	}
	return built
}

// cellArrivalFlow resolves the flow direction at world position pos
// within the cell-arrival field built for uid's assigned cell (§4.9's
// ArrivingToCell state: "Cell-arrival reads the agent's per-cell arrival
// field").
func (ld *LayerData) cellArrivalFlow(flockID uint32, mapOriginX, mapOriginZ float32, centerWorld components.Position, regionTiles int32, cellTD navgrid.TileDesc, enemyMask uint16, pos components.Position, yield func()) (field.Dir4, bool) {
	originGR, originGC, ok := cellArrivalOrigin(ld.Grid.Res, mapOriginX, mapOriginZ, centerWorld, regionTiles)
	if !ok {
		return field.DirNone, false
	}
	built := ld.cellArrivalBuilt(flockID, originGR, originGC, regionTiles, cellTD, enemyMask, yield)
	if built == nil || built.Flow == nil {
		return field.DirNone, false
	}
	posTD, ok2 := navgrid.DescForPoint(ld.Grid.Res, mapOriginX, mapOriginZ, pos.X, pos.Z)
	if !ok2 {
		return field.DirNone, false
	}
	posGR := int64(posTD.ChunkR)*int64(ld.Grid.Res.TileH) + int64(posTD.TileR)
	posGC := int64(posTD.ChunkC)*int64(ld.Grid.Res.TileW) + int64(posTD.TileC)
	localR := int32(posGR - originGR)
	localC := int32(posGC - originGC)
	if localR < 0 || localR >= regionTiles || localC < 0 || localC >= regionTiles {
		return field.DirNone, false
	}
	d := built.Flow.At(localR, localC)
	return d, d != field.DirNone
}

// agentDiplomacy adapts an agentdb.DB's diplomacy table to the
// snapshot.DiplomacyTable shape enemyMaskFor needs, avoiding a second
// copy of the hostility matrix.
func agentDiplomacy(db *agentdb.DB) snapshot.DiplomacyTable {
	return db.Diplomacy()
}
