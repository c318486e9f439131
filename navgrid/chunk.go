package navgrid

// ChunkCoord addresses a chunk within a map's chunk grid.
type ChunkCoord struct {
	R, C int32
}

// Direction identifies which edge of a chunk a portal sits on.
type Direction uint8

const (
	DirNorth Direction = iota
	DirSouth
	DirEast
	DirWest
)

// Portal is a maximal passable run along a shared chunk edge, linking two
// adjacent chunks (§3, §4.3). The reachability table records, for every
// pair of local island ids (the near-side island the portal opens onto,
// and the local island on the far side of the neighbour), whether a
// passable path currently connects them through this portal.
type Portal struct {
	ID uint32

	Dir Direction
	// TileR0/TileC0..TileR1/TileC1 bound the run of boundary tiles this
	// portal covers, in the owning chunk's local tile coordinates.
	TileR0, TileC0 int32
	TileR1, TileC1 int32

	Peer      ChunkCoord
	PeerID    uint32 // ID of the matching Portal record in the peer chunk
	PeerR0    int32
	PeerC0    int32

	// Reach[localIslandNear][localIslandFar] is true when that transition
	// is currently usable. Indexed by local_island id, 0 meaning unset/blocked.
	Reach map[[2]uint16]bool
}

// Usable reports whether the portal currently permits travel from a tile
// with local island id `near` into the neighbour chunk's local island `far`.
func (p *Portal) Usable(near, far uint16) bool {
	if p.Reach == nil {
		return false
	}
	return p.Reach[[2]uint16{near, far}]
}

// SetUsable records the reachability bit for a (near, far) local-island pair.
func (p *Portal) SetUsable(near, far uint16, usable bool) {
	if p.Reach == nil {
		p.Reach = make(map[[2]uint16]bool)
	}
	if usable {
		p.Reach[[2]uint16{near, far}] = true
	} else {
		delete(p.Reach, [2]uint16{near, far})
	}
}

// Chunk holds one layer's worth of per-tile arrays for a single chunk
// (§3 "Nav chunk (per layer)").
type Chunk struct {
	Coord ChunkCoord
	W, H  int32 // tile width/height, mirrors Resolution.TileW/TileH

	CostBase []uint8 // row-major, len W*H
	Blockers []int32 // refcount of dynamic blockers
	Factions []uint16 // packed bitmask of occupying factions, len W*H

	Islands      []uint32 // global connected-component id
	LocalIslands []uint32 // connected-component id within this chunk

	Portals []*Portal
}

// NewChunk allocates a zeroed chunk of the given tile dimensions.
func NewChunk(coord ChunkCoord, w, h int32) *Chunk {
	n := int(w) * int(h)
	return &Chunk{
		Coord:        coord,
		W:            w,
		H:            h,
		CostBase:     make([]uint8, n),
		Blockers:     make([]int32, n),
		Factions:     make([]uint16, n),
		Islands:      make([]uint32, n),
		LocalIslands: make([]uint32, n),
	}
}

func (c *Chunk) idx(r, col int32) int { return int(r)*int(c.W) + int(col) }

func (c *Chunk) inBounds(r, col int32) bool {
	return r >= 0 && r < c.H && col >= 0 && col < c.W
}

// Cost returns the static terrain cost at a local tile, or Impassable if
// out of range.
func (c *Chunk) Cost(r, col int32) uint8 {
	if !c.inBounds(r, col) {
		return Impassable
	}
	return c.CostBase[c.idx(r, col)]
}

// FactionMask returns the occupying-faction bitmask at a local tile.
func (c *Chunk) FactionMask(r, col int32) uint16 {
	if !c.inBounds(r, col) {
		return 0
	}
	return c.Factions[c.idx(r, col)]
}

// SetFactionOccupied sets or clears faction `fid`'s bit at a local tile.
func (c *Chunk) SetFactionOccupied(r, col int32, fid uint8, occupied bool) {
	if !c.inBounds(r, col) || fid >= MaxFactions {
		return
	}
	i := c.idx(r, col)
	bit := uint16(1) << fid
	if occupied {
		c.Factions[i] |= bit
	} else {
		c.Factions[i] &^= bit
	}
}

// Block increments the dynamic blocker refcount at a local tile.
func (c *Chunk) Block(r, col int32) {
	if !c.inBounds(r, col) {
		return
	}
	c.Blockers[c.idx(r, col)]++
}

// Unblock decrements the dynamic blocker refcount at a local tile, never
// going negative.
func (c *Chunk) Unblock(r, col int32) {
	if !c.inBounds(r, col) {
		return
	}
	i := c.idx(r, col)
	if c.Blockers[i] > 0 {
		c.Blockers[i]--
	}
}

// Passable reports whether a tile is passable for `enemyMask` per the §3
// invariant: cost_base != Impassable, and either no blockers or every
// occupying faction is in the enemy mask (enemy-only tiles are passable
// for enemy-seek purposes, impassable otherwise).
func (c *Chunk) Passable(r, col int32, enemyMask uint16) bool {
	if !c.inBounds(r, col) {
		return false
	}
	i := c.idx(r, col)
	if c.CostBase[i] == Impassable {
		return false
	}
	if c.Blockers[i] == 0 {
		return true
	}
	mask := c.Factions[i]
	return mask != 0 && mask&^enemyMask == 0
}

// Island returns the global island id at a local tile.
func (c *Chunk) Island(r, col int32) uint32 {
	if !c.inBounds(r, col) {
		return 0
	}
	return c.Islands[c.idx(r, col)]
}

// LocalIsland returns the chunk-local island id at a local tile.
func (c *Chunk) LocalIsland(r, col int32) uint32 {
	if !c.inBounds(r, col) {
		return 0
	}
	return c.LocalIslands[c.idx(r, col)]
}
