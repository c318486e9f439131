package navgrid

import "golang.org/x/exp/maps"

// RelabelPass processes up to maxChunks dirty chunks: recomputes their
// local islands and drains them from the dirty set; once the dirty set is
// empty it merges local islands into global island ids across every
// chunk boundary in the grid via union-find, writing the result into each
// chunk's Islands array. Returns the coordinates of the chunks processed
// by this call (§4.2's amortized relabelling).
//
// This only walks the grid's own chunks (a single layer); callers loop
// this once per layer needing repaint.
func RelabelPass(g *Grid, enemyMask uint16, maxChunks int) (repainted []ChunkCoord) {
	if !g.LocalIslandsDirty() && len(g.dirty) == 0 {
		return nil
	}

	dirtyCoords := maps.Keys(g.dirty)
	n := len(dirtyCoords)
	if maxChunks > 0 && n > maxChunks {
		dirtyCoords = dirtyCoords[:maxChunks]
	}
	for _, coord := range dirtyCoords {
		if c := g.Chunks[coord]; c != nil {
			RecomputeLocalIslands(c, enemyMask)
		}
		g.ClearDirty(coord)
	}
	repainted = dirtyCoords

	if len(g.dirty) == 0 {
		g.globalRelabel(enemyMask)
		g.ClearLocalIslandsDirty()
	}
	return repainted
}

// globalRelabel rebuilds every chunk's Islands array from the current
// LocalIslands by unioning across chunk-adjacent shared edges wherever
// both sides are passable.
func (g *Grid) globalRelabel(enemyMask uint16) {
	type key struct {
		coord ChunkCoord
		local uint32
	}
	index := make(map[key]uint32)
	var nextID uint32
	idFor := func(coord ChunkCoord, local uint32) uint32 {
		if local == 0 {
			return 0
		}
		k := key{coord, local}
		if id, ok := index[k]; ok {
			return id
		}
		index[k] = nextID
		nextID++
		return index[k]
	}

	for coord, c := range g.Chunks {
		for r := int32(0); r < c.H; r++ {
			for col := int32(0); col < c.W; col++ {
				li := c.LocalIsland(r, col)
				if li != 0 {
					idFor(coord, li)
				}
			}
		}
	}
	if nextID == 0 {
		return
	}
	uf := NewUnionFind(int(nextID))

	for coord, c := range g.Chunks {
		// East and south neighbours cover every shared edge exactly once.
		east := ChunkCoord{R: coord.R, C: coord.C + 1}
		south := ChunkCoord{R: coord.R + 1, C: coord.C}
		if ec := g.Chunks[east]; ec != nil {
			for r := int32(0); r < c.H; r++ {
				if c.Passable(r, c.W-1, enemyMask) && ec.Passable(r, 0, enemyMask) {
					uf.Union(idFor(coord, c.LocalIsland(r, c.W-1)), idFor(east, ec.LocalIsland(r, 0)))
				}
			}
		}
		if sc := g.Chunks[south]; sc != nil {
			for col := int32(0); col < c.W; col++ {
				if c.Passable(c.H-1, col, enemyMask) && sc.Passable(0, col, enemyMask) {
					uf.Union(idFor(coord, c.LocalIsland(c.H-1, col)), idFor(south, sc.LocalIsland(0, col)))
				}
			}
		}
	}

	globalOf := make(map[uint32]uint32)
	var nextGlobal uint32 = 1
	for coord, c := range g.Chunks {
		for r := int32(0); r < c.H; r++ {
			for col := int32(0); col < c.W; col++ {
				li := c.LocalIsland(r, col)
				if li == 0 {
					c.Islands[c.idx(r, col)] = 0
					continue
				}
				root := uf.Find(idFor(coord, li))
				gid, ok := globalOf[root]
				if !ok {
					gid = nextGlobal
					nextGlobal++
					globalOf[root] = gid
				}
				c.Islands[c.idx(r, col)] = gid
			}
		}
	}
}
