// Package portal builds the chunk-adjacency portal graph and routes
// across it with A* (§4.3).
package portal

import "github.com/Mu-L/permafrost-engine/navgrid"

// BuildPortals scans every shared edge of grid's chunks for maximal
// passable runs and emits one bidirectional portal per run (§4.3). It
// clears any previously built portals first, so it's safe to call again
// after terrain changes followed by a relabel pass.
func BuildPortals(grid *navgrid.Grid, enemyMask uint16) {
	for _, c := range grid.Chunks {
		c.Portals = c.Portals[:0]
	}
	var nextID uint32
	for coord, c := range grid.Chunks {
		east := navgrid.ChunkCoord{R: coord.R, C: coord.C + 1}
		south := navgrid.ChunkCoord{R: coord.R + 1, C: coord.C}
		if ec := grid.Chunks[east]; ec != nil {
			nextID = scanEdge(grid, c, ec, navgrid.DirEast, enemyMask, nextID)
		}
		if sc := grid.Chunks[south]; sc != nil {
			nextID = scanEdge(grid, c, sc, navgrid.DirSouth, enemyMask, nextID)
		}
	}
}

// scanEdge runs a run-length scan along the shared boundary between c
// (west/north side) and peer (east/south side), emitting a Portal pair
// for every maximal run where both sides are passable. This generalizes
// the teacher's run-length inflation scan (systems/navgrid.go) from a
// single boolean blocked/open test to per-layer passability.
func scanEdge(grid *navgrid.Grid, c, peer *navgrid.Chunk, dir navgrid.Direction, enemyMask uint16, nextID uint32) uint32 {
	n := c.H
	if dir == navgrid.DirSouth {
		n = c.W
	}

	inRun := false
	var runStart int32
	flush := func(end int32) {
		if !inRun {
			return
		}
		addPortalPair(c, peer, dir, runStart, end-1, nextID)
		nextID++
		inRun = false
	}

	for i := int32(0); i < n; i++ {
		var ok bool
		switch dir {
		case navgrid.DirEast:
			ok = c.Passable(i, c.W-1, enemyMask) && peer.Passable(i, 0, enemyMask)
		case navgrid.DirSouth:
			ok = c.Passable(c.H-1, i, enemyMask) && peer.Passable(0, i, enemyMask)
		}
		if ok && !inRun {
			inRun = true
			runStart = i
		} else if !ok && inRun {
			flush(i)
		}
	}
	flush(n)
	return nextID
}

func addPortalPair(c, peer *navgrid.Chunk, dir navgrid.Direction, r0, r1 int32, id uint32) {
	var nearR0, nearC0, peerR0, peerC0 int32
	var peerDir navgrid.Direction
	switch dir {
	case navgrid.DirEast:
		nearR0, nearC0 = r0, c.W-1
		peerR0, peerC0 = r0, 0
		peerDir = navgrid.DirWest
	case navgrid.DirSouth:
		nearR0, nearC0 = c.H-1, r0
		peerR0, peerC0 = 0, r0
		peerDir = navgrid.DirNorth
	}

	near := &navgrid.Portal{
		ID:     id,
		Dir:    dir,
		TileR0: nearR0, TileC0: nearC0,
		TileR1: r1InSameAxis(dir, c, r1, nearR0, nearC0),
		TileC1: c1InSameAxis(dir, c, r1, nearR0, nearC0),
		Peer:   peer.Coord,
		PeerID: id,
		PeerR0: peerR0,
		PeerC0: peerC0,
	}
	far := &navgrid.Portal{
		ID:     id,
		Dir:    peerDir,
		TileR0: peerR0, TileC0: peerC0,
		TileR1: r1InSameAxis(peerDir, peer, r1, peerR0, peerC0),
		TileC1: c1InSameAxis(peerDir, peer, r1, peerR0, peerC0),
		Peer:   c.Coord,
		PeerID: id,
		PeerR0: nearR0,
		PeerC0: nearC0,
	}
	c.Portals = append(c.Portals, near)
	peer.Portals = append(peer.Portals, far)
}

// r1InSameAxis/c1InSameAxis extend the run's starting tile along the
// boundary axis (rows for E/W portals, columns for N/S portals) to its
// end tile, keeping the perpendicular coordinate fixed.
func r1InSameAxis(dir navgrid.Direction, c *navgrid.Chunk, runEnd, r0, c0 int32) int32 {
	if dir == navgrid.DirEast || dir == navgrid.DirWest {
		return runEnd
	}
	return r0
}

func c1InSameAxis(dir navgrid.Direction, c *navgrid.Chunk, runEnd, r0, c0 int32) int32 {
	if dir == navgrid.DirNorth || dir == navgrid.DirSouth {
		return runEnd
	}
	return c0
}

// RefreshReachability recomputes, for every portal in grid, the
// (local_island_near, local_island_far) reachability bits from the
// chunks' current LocalIslands arrays. Call this after a local-island
// recompute for any touched chunk (§4.2, §4.3).
func RefreshReachability(grid *navgrid.Grid) {
	for _, c := range grid.Chunks {
		for _, p := range c.Portals {
			peerChunk := grid.Chunks[p.Peer]
			if peerChunk == nil {
				continue
			}
			nearLI := c.LocalIsland(p.TileR0, p.TileC0)
			farLI := peerChunk.LocalIsland(p.PeerR0, p.PeerC0)
			if p.Reach != nil {
				for k := range p.Reach {
					delete(p.Reach, k)
				}
			}
			if nearLI != 0 && farLI != 0 {
				p.SetUsable(uint16(nearLI), uint16(farLI), true)
			}
		}
	}
}
