package field

import (
	"testing"

	"github.com/Mu-L/permafrost-engine/navgrid"
)

func chunkCoord(r, c int32) navgrid.ChunkCoord {
	return navgrid.ChunkCoord{R: r, C: c}
}

func openCost(w int32) func(r, c int32) uint8 {
	return func(r, c int32) uint8 {
		if r < 0 || c < 0 {
			return impassableCost
		}
		return 1
	}
}

func TestBuildIntegrationFrontierIsZero(t *testing.T) {
	ctx := &BuildContext{W: 5, H: 5, Cost: openCost(5)}
	integ := BuildIntegration(ctx, []struct{ R, C int32 }{{2, 2}})
	if integ.At(2, 2) != 0 {
		t.Fatalf("expected target cell cost 0, got %v", integ.At(2, 2))
	}
	if integ.At(2, 3) <= integ.At(2, 2) {
		t.Error("expected neighbour cost to exceed target cost")
	}
}

func TestIntegrationMonotonicAlongFlow(t *testing.T) {
	ctx := &BuildContext{W: 6, H: 6, Cost: openCost(6)}
	integ := BuildIntegration(ctx, []struct{ R, C int32 }{{0, 0}})
	flow := ExtractFlow(integ)

	r, c := int32(5), int32(5)
	steps := 0
	for r != 0 || c != 0 {
		d := flow.At(r, c)
		if d == DirNone {
			t.Fatalf("flow terminated before reaching target at (%d,%d)", r, c)
		}
		prev := integ.At(r, c)
		r, c = step(r, c, d)
		if integ.At(r, c) >= prev {
			t.Fatalf("expected strictly decreasing cost stepping from previous cell")
		}
		steps++
		if steps > 100 {
			t.Fatal("flow did not converge")
		}
	}
}

func step(r, c int32, d Dir4) (int32, int32) {
	switch d {
	case DirN:
		return r - 1, c
	case DirS:
		return r + 1, c
	case DirE:
		return r, c + 1
	case DirW:
		return r, c - 1
	case DirNW:
		return r - 1, c - 1
	case DirNE:
		return r - 1, c + 1
	case DirSW:
		return r + 1, c - 1
	case DirSE:
		return r + 1, c + 1
	}
	return r, c
}

func TestDiagonalForbiddenAtCorner(t *testing.T) {
	// Wall at (0,1) and (1,0) makes the diagonal (0,0)->(1,1) corner-cutting.
	cost := func(r, c int32) uint8 {
		if r == 0 && c == 1 {
			return impassableCost
		}
		if r == 1 && c == 0 {
			return impassableCost
		}
		if r < 0 || c < 0 || r > 2 || c > 2 {
			return impassableCost
		}
		return 1
	}
	ctx := &BuildContext{W: 3, H: 3, Cost: cost}
	integ := BuildIntegration(ctx, []struct{ R, C int32 }{{1, 1}})
	flow := ExtractFlow(integ)
	if d := flow.At(0, 0); d == DirSE {
		t.Error("expected diagonal step through blocked corner to be forbidden")
	}
}

func TestExtractFlowPointsTowardCloserRowNotColumn(t *testing.T) {
	// Asymmetric under row/column swap: target at (0,0), but a wall blocks
	// every tile in row 1 except column 0, forcing the cheapest path from
	// (2,0) to go straight north through (1,0), never sideways. A
	// transposed (row/column swapped) direction table would send this cell
	// into the wall and assert DirNone or a wrong heading.
	cost := func(r, c int32) uint8 {
		if r == 1 && c != 0 {
			return impassableCost
		}
		if r < 0 || c < 0 || r > 2 || c > 2 {
			return impassableCost
		}
		return 1
	}
	ctx := &BuildContext{W: 3, H: 3, Cost: cost}
	integ := BuildIntegration(ctx, []struct{ R, C int32 }{{0, 0}})
	flow := ExtractFlow(integ)
	if d := flow.At(2, 0); d != DirN {
		t.Fatalf("expected DirN stepping toward the only open corridor, got %v", d)
	}
	dr, dc := DirN.Vector()
	if dr != -1 || dc != 0 {
		t.Fatalf("expected Vector() (-1, 0) for DirN, got (%d, %d)", dr, dc)
	}
}

func TestFieldIDRoundTripTile(t *testing.T) {
	id := PackTile(2, chunkCoord(3, 7), 10, 20)
	if id.Layer() != 2 {
		t.Errorf("expected layer 2, got %v", id.Layer())
	}
	gotChunk := id.Chunk()
	if gotChunk.R != 3 || gotChunk.C != 7 {
		t.Errorf("expected chunk (3,7), got %+v", gotChunk)
	}
	r, c := id.TileOf()
	if r != 10 || c != 20 {
		t.Errorf("expected tile (10,20), got (%d,%d)", r, c)
	}
}

func TestCacheBuildOnce(t *testing.T) {
	c := NewCache(4)
	id := PackTile(0, chunkCoord(0, 0), 1, 1)
	calls := 0
	build := func() (*Built, error) {
		calls++
		return &Built{}, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := c.GetOrBuild(id, build); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("expected build to run exactly once, ran %d times", calls)
	}
}

func TestCacheEvictsLRU(t *testing.T) {
	c := NewCache(2)
	build := func() (*Built, error) { return &Built{}, nil }
	a := PackTile(0, chunkCoord(0, 0), 0, 0)
	b := PackTile(0, chunkCoord(0, 1), 0, 0)
	d := PackTile(0, chunkCoord(0, 2), 0, 0)
	c.GetOrBuild(a, build)
	c.GetOrBuild(b, build)
	c.GetOrBuild(d, build) // evicts a, the least recently used
	if _, ok := c.Get(a); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get(b); !ok {
		t.Error("expected b to remain cached")
	}
}
