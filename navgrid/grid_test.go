package navgrid

import "testing"

func TestPassableInvariant(t *testing.T) {
	c := NewChunk(ChunkCoord{}, 4, 4)
	if !c.Passable(1, 1, 0) {
		t.Fatal("expected open tile to be passable")
	}
	c.CostBase[c.idx(1, 1)] = Impassable
	if c.Passable(1, 1, 0) {
		t.Fatal("expected Impassable cost to block")
	}
	c.CostBase[c.idx(1, 1)] = 1
	c.Block(1, 1)
	c.SetFactionOccupied(1, 1, 2, true)
	if c.Passable(1, 1, 0) {
		t.Fatal("expected blocker with non-enemy faction to block")
	}
	if !c.Passable(1, 1, 1<<2) {
		t.Fatal("expected blocker to be passable when its faction is in the enemy mask")
	}
}

func TestRecomputeLocalIslands(t *testing.T) {
	c := NewChunk(ChunkCoord{}, 4, 1)
	c.CostBase[2] = Impassable // wall splits row into two islands
	RecomputeLocalIslands(c, 0)

	if c.LocalIsland(0, 0) == 0 || c.LocalIsland(0, 1) == 0 {
		t.Fatal("expected left segment to have a nonzero island id")
	}
	if c.LocalIsland(0, 0) != c.LocalIsland(0, 1) {
		t.Error("expected tiles 0 and 1 to share an island")
	}
	if c.LocalIsland(0, 2) != 0 {
		t.Error("expected impassable tile to have island id 0")
	}
	if c.LocalIsland(0, 3) == c.LocalIsland(0, 0) {
		t.Error("expected wall to separate islands")
	}
}

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)
	uf.Union(0, 1)
	uf.Union(1, 2)
	if uf.Find(0) != uf.Find(2) {
		t.Error("expected transitive union")
	}
	if uf.Find(3) == uf.Find(0) {
		t.Error("expected disjoint set to remain separate")
	}
}

func TestGlobalRelabelAcrossChunks(t *testing.T) {
	res := Resolution{ChunksWide: 2, ChunksHigh: 1, TileW: 2, TileH: 2, TileSize: 1}
	g := NewGrid(res, LayerFoot)

	left := g.Chunks[ChunkCoord{0, 0}]
	right := g.Chunks[ChunkCoord{0, 1}]
	RecomputeLocalIslands(left, 0)
	RecomputeLocalIslands(right, 0)
	g.MarkDirty(left.Coord)
	g.MarkDirty(right.Coord)

	RelabelPass(g, 0, 0)

	leftGid := left.Island(0, left.W-1)
	rightGid := right.Island(0, 0)
	if leftGid == 0 || rightGid == 0 {
		t.Fatal("expected nonzero global island ids")
	}
	if leftGid != rightGid {
		t.Errorf("expected adjacent open chunks to share a global island, got %d vs %d", leftGid, rightGid)
	}
}

func TestAllUnderCircleCoversCenter(t *testing.T) {
	res := testRes()
	found := make(map[TileDesc]struct{})
	AllUnderCircle(res, 0, 0, 4.5, 4.5, 1.0, func(td TileDesc) { found[td] = struct{}{} })
	center, _ := DescForPoint(res, 0, 0, 4.5, 4.5)
	if _, ok := found[center]; !ok {
		t.Error("expected circle to cover its own center tile")
	}
}

func TestContourExcludesInterior(t *testing.T) {
	res := testRes()
	covered := map[TileDesc]struct{}{
		{ChunkR: 0, ChunkC: 0, TileR: 1, TileC: 1}: {},
		{ChunkR: 0, ChunkC: 0, TileR: 1, TileC: 2}: {},
	}
	contour := make(map[TileDesc]struct{})
	Contour(res, covered, func(td TileDesc) { contour[td] = struct{}{} })
	if _, in := contour[TileDesc{ChunkR: 0, ChunkC: 0, TileR: 1, TileC: 1}]; in {
		t.Error("contour must not include interior covered tiles")
	}
	if len(contour) == 0 {
		t.Error("expected nonempty contour around a covered blob")
	}
}
