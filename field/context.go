package field

import "github.com/Mu-L/permafrost-engine/navgrid"

// passableCost folds navgrid's invariant (§3: a tile is passable iff
// cost_base != Impassable and either unblocked or every occupying
// faction is in enemyMask) into the single uint8 the integration builder
// reads, so BuildIntegration never has to know about blockers/factions.
func passableCost(c *navgrid.Chunk, r, col int32, enemyMask uint16) uint8 {
	if !c.Passable(r, col, enemyMask) {
		return navgrid.Impassable
	}
	return c.Cost(r, col)
}

// ChunkContext builds a BuildContext scoped to exactly one chunk's tiles,
// the common case for a destination's own-chunk integration/flow field
// and for LOS fields (§4.4).
func ChunkContext(grid *navgrid.Grid, coord navgrid.ChunkCoord, enemyMask uint16, yield func()) *BuildContext {
	chunk := grid.Chunk(coord)
	w, h := int32(grid.Res.TileW), int32(grid.Res.TileH)
	return &BuildContext{
		W: w, H: h,
		Cost: func(r, c int32) uint8 {
			if chunk == nil {
				return impassableCost
			}
			return passableCost(chunk, r, c, enemyMask)
		},
		Yield: yield,
	}
}

// PaddedChunkContext builds a BuildContext covering coord's chunk plus
// padW/padH tiles of padding on every side, addressed so that
// (padW, padH) is the chunk's own top-left corner — the region shape
// §4.4's "Enemy-seek / entity-seek fields" needs (padding = half the
// chunk size on each side, so the built region is twice the chunk size).
func PaddedChunkContext(grid *navgrid.Grid, coord navgrid.ChunkCoord, padW, padH int32, enemyMask uint16, yield func()) *BuildContext {
	chunkGR := int64(coord.R) * int64(grid.Res.TileH)
	chunkGC := int64(coord.C) * int64(grid.Res.TileW)
	return RegionContext(grid, chunkGR-int64(padH), chunkGC-int64(padW),
		int32(grid.Res.TileW)+2*padW, int32(grid.Res.TileH)+2*padH, enemyMask, yield)
}

// RegionContext builds a BuildContext over an arbitrary rectangular
// region of absolute tile coordinates, (originGR, originGC) being the
// region's top-left corner — the general form §4.4's cell-arrival field
// needs (a rectangle, typically 96x96, centered on the formation's field
// center, which can straddle chunk boundaries arbitrarily). Tiles
// resolving outside the map report Impassable.
func RegionContext(grid *navgrid.Grid, originGR, originGC int64, w, h int32, enemyMask uint16, yield func()) *BuildContext {
	return &BuildContext{
		W: w, H: h,
		Cost: func(r, c int32) uint8 {
			td, ok := navgrid.DescForGlobal(grid.Res, originGR+int64(r), originGC+int64(c))
			if !ok {
				return impassableCost
			}
			chunk := grid.Chunk(navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC})
			if chunk == nil {
				return impassableCost
			}
			return passableCost(chunk, td.TileR, td.TileC, enemyMask)
		},
		Yield: yield,
	}
}

// RegionOriginForWorldCenter converts a world-space center point plus a
// region size into the absolute tile-coordinate origin RegionContext
// expects, centering the region on that point (§4.4's cell-arrival
// field: "a rectangular region centered on the formation's center").
func RegionOriginForWorldCenter(res navgrid.Resolution, mapOriginX, mapOriginZ, centerX, centerZ float32, w, h int32) (originGR, originGC int64, ok bool) {
	center, ok := navgrid.DescForPoint(res, mapOriginX, mapOriginZ, centerX, centerZ)
	if !ok {
		return 0, 0, false
	}
	gr := int64(center.ChunkR)*int64(res.TileH) + int64(center.TileR) - int64(h)/2
	gc := int64(center.ChunkC)*int64(res.TileW) + int64(center.TileC) - int64(w)/2
	return gr, gc, true
}
