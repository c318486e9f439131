package formation

import "testing"

func TestDimsRank25(t *testing.T) {
	ncols, nrows := Dims(25, TypeRank)
	if ncols != 10 {
		t.Errorf("expected ncols=10 (capped at n), got %d", ncols)
	}
	if nrows != 3 {
		t.Errorf("expected nrows=3, got %d", nrows)
	}
}

func TestDimsSingleUnit(t *testing.T) {
	ncols, nrows := Dims(1, TypeRank)
	if ncols != 1 || nrows != 1 {
		t.Errorf("expected degenerate 1x1 grid, got %dx%d", ncols, nrows)
	}
}

func openTerrain(r, c int) (uint32, bool) {
	if r < 0 || r >= GridRadius || c < 0 || c >= GridRadius {
		return 0, false
	}
	return 1, true
}

func TestPlaceNoOverlap(t *testing.T) {
	ncols, nrows := Dims(9, TypeRank)
	sf := &Subformation{NCols: ncols, NRows: nrows}
	scratch := &Scratch{}
	scratch.Reset()
	Place(sf, scratch, openTerrain, 1, 1.0, 9)

	seen := make(map[[2]int32]struct{})
	for _, cell := range sf.Cells {
		if cell.State != CellOccupied && cell.State != CellNotUsed {
			continue
		}
		key := [2]int32{cell.SnappedR, cell.SnappedC}
		if _, dup := seen[key]; dup {
			t.Fatalf("tile %v allocated to more than one cell", key)
		}
		seen[key] = struct{}{}
	}
}

func TestMarkUnusedTrimsSurplus(t *testing.T) {
	ncols, nrows := Dims(9, TypeRank)
	sf := &Subformation{NCols: ncols, NRows: nrows}
	scratch := &Scratch{}
	scratch.Reset()
	Place(sf, scratch, openTerrain, 1, 1.0, 5)

	occupied := 0
	for _, cell := range sf.Cells {
		if cell.State == CellOccupied {
			occupied++
		}
	}
	if occupied != 5 {
		t.Errorf("expected exactly 5 occupied cells after trimming surplus, got %d", occupied)
	}
}

func TestHungarianAssignsBijection(t *testing.T) {
	cells := []Cell{
		{State: CellOccupied, FinalX: 0, FinalZ: 0},
		{State: CellOccupied, FinalX: 10, FinalZ: 0},
		{State: CellOccupied, FinalX: 0, FinalZ: 10},
	}
	agents := []Agent{
		{UID: 1, X: 10, Z: 0.1},
		{UID: 2, X: 0.1, Z: 0.1},
		{UID: 3, X: 0.1, Z: 10},
	}
	Assign(agents, cells)

	assigned := make(map[uint32]struct{})
	for _, c := range cells {
		if c.AssignedUID == 0 {
			t.Fatal("expected every cell to receive an agent")
		}
		if _, dup := assigned[c.AssignedUID]; dup {
			t.Fatalf("agent %d assigned to more than one cell", c.AssignedUID)
		}
		assigned[c.AssignedUID] = struct{}{}
	}
	if cells[0].AssignedUID != 2 {
		t.Errorf("expected nearest agent 2 assigned to cell 0, got %d", cells[0].AssignedUID)
	}
}
