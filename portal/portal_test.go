package portal

import (
	"testing"

	"github.com/Mu-L/permafrost-engine/navgrid"
)

func smallGrid() *navgrid.Grid {
	res := navgrid.Resolution{ChunksWide: 2, ChunksHigh: 1, TileW: 4, TileH: 4, TileSize: 1}
	return navgrid.NewGrid(res, navgrid.LayerFoot)
}

func TestBuildPortalsOpenMap(t *testing.T) {
	g := smallGrid()
	for _, c := range g.Chunks {
		navgrid.RecomputeLocalIslands(c, 0)
	}
	BuildPortals(g, 0)
	RefreshReachability(g)

	left := g.Chunks[navgrid.ChunkCoord{0, 0}]
	right := g.Chunks[navgrid.ChunkCoord{0, 1}]
	if len(left.Portals) == 0 {
		t.Fatal("expected at least one portal on the shared edge")
	}
	if len(left.Portals) != len(right.Portals) {
		t.Fatalf("expected symmetric portal counts, got %d vs %d", len(left.Portals), len(right.Portals))
	}
	p := left.Portals[0]
	if !p.Usable(1, 1) {
		t.Error("expected an open map's single island pair to be usable")
	}
}

func TestRouteAcrossOneChunk(t *testing.T) {
	g := smallGrid()
	for _, c := range g.Chunks {
		navgrid.RecomputeLocalIslands(c, 0)
	}
	BuildPortals(g, 0)
	RefreshReachability(g)

	graph := &Graph{Grid: g}
	from := Endpoint{Chunk: navgrid.ChunkCoord{0, 0}, LocalIsland: 1}
	hops, ok := graph.Route(from, navgrid.ChunkCoord{0, 1}, 1, 0)
	if !ok {
		t.Fatal("expected a route to exist between adjacent open chunks")
	}
	if len(hops) != 1 {
		t.Fatalf("expected exactly one portal hop, got %d", len(hops))
	}
	if hops[0].Chunk != (navgrid.ChunkCoord{0, 0}) {
		t.Errorf("expected hop to originate at source chunk, got %+v", hops[0].Chunk)
	}
}

func TestRouteBlockedWall(t *testing.T) {
	g := smallGrid()
	left := g.Chunks[navgrid.ChunkCoord{0, 0}]
	for r := int32(0); r < left.H; r++ {
		left.CostBase[left.W-1+r*left.W] = navgrid.Impassable
	}
	for _, c := range g.Chunks {
		navgrid.RecomputeLocalIslands(c, 0)
	}
	BuildPortals(g, 0)
	RefreshReachability(g)

	if len(left.Portals) != 0 {
		t.Fatalf("expected wall to eliminate the shared-edge portal, got %d", len(left.Portals))
	}
}
