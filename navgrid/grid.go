package navgrid

// Grid holds one navigation layer's chunks for an entire map plus the
// per-layer dirty-chunk bookkeeping needed for amortized island
// relabelling and field-cache invalidation (§4.2).
type Grid struct {
	Res    Resolution
	Layer  Layer
	Chunks map[ChunkCoord]*Chunk

	dirty             map[ChunkCoord]struct{}
	localIslandsDirty bool
}

// NewGrid allocates an empty grid of fully-open chunks for the layer.
func NewGrid(res Resolution, layer Layer) *Grid {
	g := &Grid{
		Res:    res,
		Layer:  layer,
		Chunks: make(map[ChunkCoord]*Chunk, res.ChunksWide*res.ChunksHigh),
		dirty:  make(map[ChunkCoord]struct{}),
	}
	for r := 0; r < res.ChunksHigh; r++ {
		for c := 0; c < res.ChunksWide; c++ {
			coord := ChunkCoord{R: int32(r), C: int32(c)}
			g.Chunks[coord] = NewChunk(coord, int32(res.TileW), int32(res.TileH))
		}
	}
	return g
}

// Chunk returns the chunk at coord, or nil if coord is out of range.
func (g *Grid) Chunk(coord ChunkCoord) *Chunk {
	return g.Chunks[coord]
}

// MarkDirty flags a chunk as needing island relabelling; the field cache
// later consumes this set to invalidate affected field entries (§4.2,
// §4.8 step 4).
func (g *Grid) MarkDirty(coord ChunkCoord) {
	g.dirty[coord] = struct{}{}
	g.localIslandsDirty = true
}

// DirtySet returns the current set of dirty chunk coordinates. The
// returned map is the grid's own dirty set, not a copy; mutating it
// mutates the grid.
func (g *Grid) DirtySet() map[ChunkCoord]struct{} {
	return g.dirty
}

// ClearDirty removes coord from the dirty set once it has been repainted.
func (g *Grid) ClearDirty(coord ChunkCoord) {
	delete(g.dirty, coord)
}

// LocalIslandsDirty reports whether any chunk's local islands need
// recomputation since the last ClearLocalIslandsDirty.
func (g *Grid) LocalIslandsDirty() bool { return g.localIslandsDirty }

// ClearLocalIslandsDirty resets the flag after a relabelling pass
// completes for this layer.
func (g *Grid) ClearLocalIslandsDirty() { g.localIslandsDirty = false }

// Neighbours4 invokes fn for each of the 4-connected neighbour tile
// descriptors of td that lie within the map (used by integration field
// relaxation, §4.4).
func Neighbours4(res Resolution, td TileDesc, fn func(TileDesc)) {
	deltas := [4][2]int32{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	for _, d := range deltas {
		n := td
		RelativeDesc(res, &n, d[0], d[1])
		if n != td {
			fn(n)
		}
	}
}

// neighbourDelta8 lists the 8-connected offsets in the flow-field
// tie-break order required by §4.4: N, S, E, W, NW, NE, SW, SE.
var neighbourDelta8 = [8][2]int32{
	{0, -1}, // N  (dc=0, dr=-1)
	{0, 1},  // S
	{1, 0},  // E
	{-1, 0}, // W
	{-1, -1}, // NW
	{1, -1},  // NE
	{-1, 1},  // SW
	{1, 1},   // SE
}

// Neighbours8 invokes fn(td, dirIndex) for each of the 8-connected
// neighbours of td present on the map, dirIndex indexing neighbourDelta8.
func Neighbours8(res Resolution, td TileDesc, fn func(n TileDesc, dirIndex int, clipped bool)) {
	for i, d := range neighbourDelta8 {
		n := td
		ok := RelativeDesc(res, &n, d[0], d[1])
		if n == td {
			continue
		}
		fn(n, i, !ok)
	}
}

// AllUnderCircle enumerates every tile descriptor whose bounds intersect
// a disk of the given world-space radius centered at (x, z), invoking fn
// once per tile (§4.1, used for blocker-disk dilation per layer).
func AllUnderCircle(res Resolution, mapOriginX, mapOriginZ, x, z, radius float32, fn func(TileDesc)) {
	center, ok := DescForPoint(res, mapOriginX, mapOriginZ, x, z)
	if !ok {
		return
	}
	tileRadius := int32(radius/res.TileSize) + 1
	seen := make(map[TileDesc]struct{})
	for dr := -tileRadius; dr <= tileRadius; dr++ {
		for dc := -tileRadius; dc <= tileRadius; dc++ {
			td := center
			RelativeDesc(res, &td, dc, dr)
			if _, ok := seen[td]; ok {
				continue
			}
			b := Bounds(res, mapOriginX, mapOriginZ, td)
			cx := clampf(x, b.XMin, b.XMax)
			cz := clampf(z, b.ZMin, b.ZMax)
			ddx, ddz := cx-x, cz-z
			if ddx*ddx+ddz*ddz <= radius*radius {
				seen[td] = struct{}{}
				fn(td)
			}
		}
	}
}

// AllUnderObj enumerates every tile descriptor covered by an axis-aligned
// world-space box, invoking fn once per tile (§4.1).
func AllUnderObj(res Resolution, mapOriginX, mapOriginZ float32, box Box, fn func(TileDesc)) {
	topLeft, ok1 := DescForPoint(res, mapOriginX, mapOriginZ, box.XMin, box.ZMin)
	botRight, ok2 := DescForPoint(res, mapOriginX, mapOriginZ, box.XMax, box.ZMax)
	if !ok1 {
		topLeft = TileDesc{}
	}
	if !ok2 {
		botRight, _ = res.descFromGlobal(int64(res.TilesHigh()-1), int64(res.TilesWide()-1))
	}
	var dr, dc int32
	Distance(res, topLeft, botRight, &dr, &dc)
	for r := int32(0); r <= dr; r++ {
		for c := int32(0); c <= dc; c++ {
			td := topLeft
			RelativeDesc(res, &td, c, r)
			fn(td)
		}
	}
}

// Contour enumerates the one-tile contour (4-connected outer boundary)
// of a covered set, used for footprint dilation per layer (§4.1). covered
// must report true for tiles inside the set.
func Contour(res Resolution, covered map[TileDesc]struct{}, fn func(TileDesc)) {
	seen := make(map[TileDesc]struct{})
	for td := range covered {
		Neighbours4(res, td, func(n TileDesc) {
			if _, in := covered[n]; in {
				return
			}
			if _, already := seen[n]; already {
				return
			}
			seen[n] = struct{}{}
			fn(n)
		})
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
