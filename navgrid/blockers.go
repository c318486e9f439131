package navgrid

// BlockDisk increments the blocker refcount (and faction occupancy, when
// fid is given) under every tile covered by a disk of the given radius,
// marking each touched chunk dirty (§4.2: "when an agent becomes
// stationary it blocks every tile covered by a disk of its selection
// radius").
func (g *Grid) BlockDisk(mapOriginX, mapOriginZ, x, z, radius float32, fid uint8, hasFaction bool) {
	AllUnderCircle(g.Res, mapOriginX, mapOriginZ, x, z, radius, func(td TileDesc) {
		c := g.Chunks[ChunkCoord{R: td.ChunkR, C: td.ChunkC}]
		if c == nil {
			return
		}
		c.Block(td.TileR, td.TileC)
		if hasFaction {
			c.SetFactionOccupied(td.TileR, td.TileC, fid, true)
		}
		g.MarkDirty(c.Coord)
	})
}

// UnblockDisk is the inverse of BlockDisk.
func (g *Grid) UnblockDisk(mapOriginX, mapOriginZ, x, z, radius float32, fid uint8, hasFaction bool) {
	AllUnderCircle(g.Res, mapOriginX, mapOriginZ, x, z, radius, func(td TileDesc) {
		c := g.Chunks[ChunkCoord{R: td.ChunkR, C: td.ChunkC}]
		if c == nil {
			return
		}
		c.Unblock(td.TileR, td.TileC)
		if hasFaction {
			c.SetFactionOccupied(td.TileR, td.TileC, fid, false)
		}
		g.MarkDirty(c.Coord)
	})
}

// SetCostDisk overwrites the static terrain cost under a disk, used by
// map-edit or terrain-deformation callers before a relabel pass. Passing
// Impassable carves a static obstacle; any other value restores terrain.
func (g *Grid) SetCostDisk(mapOriginX, mapOriginZ, x, z, radius float32, cost uint8) {
	AllUnderCircle(g.Res, mapOriginX, mapOriginZ, x, z, radius, func(td TileDesc) {
		c := g.Chunks[ChunkCoord{R: td.ChunkR, C: td.ChunkC}]
		if c == nil {
			return
		}
		c.CostBase[c.idx(td.TileR, td.TileC)] = cost
		g.MarkDirty(c.Coord)
	})
}
