package navgrid

import "testing"

func testRes() Resolution {
	return Resolution{ChunksWide: 4, ChunksHigh: 4, TileW: 8, TileH: 8, TileSize: 1.0}
}

func TestDescForPoint(t *testing.T) {
	res := testRes()
	td, ok := DescForPoint(res, 0, 0, 5.5, 5.5)
	if !ok {
		t.Fatal("expected point inside map")
	}
	if td.ChunkR != 0 || td.ChunkC != 0 || td.TileR != 5 || td.TileC != 5 {
		t.Errorf("got %+v", td)
	}

	if _, ok := DescForPoint(res, 0, 0, -1, 0); ok {
		t.Error("expected out-of-map point to fail")
	}
}

func TestDescForPointCrossesChunk(t *testing.T) {
	res := testRes()
	td, ok := DescForPoint(res, 0, 0, 9.0, 0.5)
	if !ok {
		t.Fatal("expected point inside map")
	}
	if td.ChunkC != 1 || td.TileC != 1 {
		t.Errorf("expected chunk 1 tile 1, got %+v", td)
	}
}

func TestRelativeDescClips(t *testing.T) {
	res := testRes()
	td := TileDesc{ChunkR: 0, ChunkC: 0, TileR: 0, TileC: 0}
	if ok := RelativeDesc(res, &td, -1, 0); ok {
		t.Error("expected clip at map edge to report false")
	}
	if td.ChunkC != 0 || td.TileC != 0 {
		t.Errorf("expected clamp to stay at origin, got %+v", td)
	}
}

func TestRelativeDescCrossesChunkBoundary(t *testing.T) {
	res := testRes()
	td := TileDesc{ChunkR: 0, ChunkC: 0, TileR: 0, TileC: 7}
	if ok := RelativeDesc(res, &td, 1, 0); !ok {
		t.Error("expected unclipped shift")
	}
	if td.ChunkC != 1 || td.TileC != 0 {
		t.Errorf("expected to land in chunk 1 tile 0, got %+v", td)
	}
}

func TestDistance(t *testing.T) {
	res := testRes()
	a := TileDesc{ChunkR: 0, ChunkC: 0, TileR: 7, TileC: 7}
	b := TileDesc{ChunkR: 0, ChunkC: 1, TileR: 0, TileC: 0}
	var dr, dc int32
	Distance(res, a, b, &dr, &dc)
	if dr != -7 || dc != 1 {
		t.Errorf("expected dr=-7 dc=1, got dr=%d dc=%d", dr, dc)
	}
}

func TestBoundsAndCenter(t *testing.T) {
	res := testRes()
	td := TileDesc{ChunkR: 0, ChunkC: 0, TileR: 2, TileC: 3}
	b := Bounds(res, 0, 0, td)
	if b.XMin != 3 || b.ZMin != 2 || b.XMax != 4 || b.ZMax != 3 {
		t.Errorf("got %+v", b)
	}
	cx, cz := Center(res, 0, 0, td)
	if cx != 3.5 || cz != 2.5 {
		t.Errorf("got center %v,%v", cx, cz)
	}
}
