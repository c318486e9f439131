// Package navgrid implements the hierarchical navigation grid: chunked
// tile space, coordinate math, per-layer cost/blocker/island arrays, and
// portal endpoints between chunks (§3, §4.1, §4.2 of the design spec).
package navgrid

// Resolution describes the shape of a map: how many chunks wide/high it
// is, and how many tiles each chunk holds along each axis. A Resolution
// is a small value type passed by value, mirroring the teacher's Bounds
// value type (systems/spatial.go in the reference pack).
type Resolution struct {
	ChunksWide int
	ChunksHigh int
	TileW      int
	TileH      int
	// TileSize is the world-space edge length of one tile (square tiles).
	TileSize float32
}

// TilesWide is the total tile-width of the map.
func (r Resolution) TilesWide() int { return r.ChunksWide * r.TileW }

// TilesHigh is the total tile-height of the map.
func (r Resolution) TilesHigh() int { return r.ChunksHigh * r.TileH }

// TileDesc identifies a single tile by chunk coordinate plus the tile's
// row/column within that chunk (§3).
type TileDesc struct {
	ChunkR, ChunkC int32
	TileR, TileC   int32
}

// Box is an axis-aligned world-space XZ rectangle.
type Box struct {
	XMin, ZMin, XMax, ZMax float32
}

func (b Box) Contains(x, z float32) bool {
	return x >= b.XMin && x <= b.XMax && z >= b.ZMin && z <= b.ZMax
}

// globalRow/globalCol convert a TileDesc to absolute tile coordinates.
func (r Resolution) globalRow(td TileDesc) int64 {
	return int64(td.ChunkR)*int64(r.TileH) + int64(td.TileR)
}

func (r Resolution) globalCol(td TileDesc) int64 {
	return int64(td.ChunkC)*int64(r.TileW) + int64(td.TileC)
}

func (r Resolution) descFromGlobal(gr, gc int64) (TileDesc, bool) {
	if gr < 0 || gc < 0 || gr >= int64(r.TilesHigh()) || gc >= int64(r.TilesWide()) {
		return TileDesc{}, false
	}
	return TileDesc{
		ChunkR: int32(gr / int64(r.TileH)),
		ChunkC: int32(gc / int64(r.TileW)),
		TileR:  int32(gr % int64(r.TileH)),
		TileC:  int32(gc % int64(r.TileW)),
	}, true
}

// DescForPoint returns the tile descriptor containing world-space xz,
// given the map's origin (map_pos) in world space. Returns false when xz
// lies outside the map (§4.1).
func DescForPoint(res Resolution, mapOriginX, mapOriginZ, x, z float32) (TileDesc, bool) {
	lx := x - mapOriginX
	lz := z - mapOriginZ
	if lx < 0 || lz < 0 {
		return TileDesc{}, false
	}
	gc := int64(lx / res.TileSize)
	gr := int64(lz / res.TileSize)
	return res.descFromGlobal(gr, gc)
}

// RelativeDesc shifts td by (dc, dr) tile units, clamping to map bounds.
// Returns whether the shift was fully absorbed without clipping (§4.1).
func RelativeDesc(res Resolution, td *TileDesc, dc, dr int32) bool {
	gr := res.globalRow(*td) + int64(dr)
	gc := res.globalCol(*td) + int64(dc)

	clipped := false
	maxR := int64(res.TilesHigh() - 1)
	maxC := int64(res.TilesWide() - 1)
	if gr < 0 {
		gr = 0
		clipped = true
	} else if gr > maxR {
		gr = maxR
		clipped = true
	}
	if gc < 0 {
		gc = 0
		clipped = true
	} else if gc > maxC {
		gc = maxC
		clipped = true
	}

	nd, ok := res.descFromGlobal(gr, gc)
	if !ok {
		return false
	}
	*td = nd
	return !clipped
}

// Distance computes the signed row/column delta in tile units between two
// descriptors, accounting for chunk-boundary crossing (§4.1).
func Distance(res Resolution, a, b TileDesc, dr, dc *int32) {
	*dr = int32(res.globalRow(b) - res.globalRow(a))
	*dc = int32(res.globalCol(b) - res.globalCol(a))
}

// Bounds computes the world-space XZ box for a tile, given the map
// origin (§4.1).
func Bounds(res Resolution, mapOriginX, mapOriginZ float32, td TileDesc) Box {
	gr := res.globalRow(td)
	gc := res.globalCol(td)
	xmin := mapOriginX + float32(gc)*res.TileSize
	zmin := mapOriginZ + float32(gr)*res.TileSize
	return Box{
		XMin: xmin,
		ZMin: zmin,
		XMax: xmin + res.TileSize,
		ZMax: zmin + res.TileSize,
	}
}

// DescForGlobal converts absolute (row, col) tile coordinates into a
// TileDesc, or false if they fall outside the map. Exported so packages
// outside navgrid (e.g. field's padded-region builders, which walk tile
// coordinates relative to a chunk and must resolve back across chunk
// boundaries) can do the same conversion RelativeDesc and DescForPoint
// use internally.
func DescForGlobal(res Resolution, gr, gc int64) (TileDesc, bool) {
	return res.descFromGlobal(gr, gc)
}

// Center returns the world-space center point of a tile.
func Center(res Resolution, mapOriginX, mapOriginZ float32, td TileDesc) (x, z float32) {
	b := Bounds(res, mapOriginX, mapOriginZ, td)
	return (b.XMin + b.XMax) / 2, (b.ZMin + b.ZMax) / 2
}
