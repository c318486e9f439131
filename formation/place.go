package formation

// Scratch holds the reusable R×R occupied/island grids from §4.6 step 3,
// a single pair (not one per navigation layer), the way the teacher reuses
// `workerScratch` buffers across calls (game/parallel.go) rather than
// allocating per formation.
type Scratch struct {
	Occupied [GridRadius * GridRadius]CellState
	Island   [GridRadius * GridRadius]uint32
}

func (s *Scratch) idx(r, c int) int { return r*GridRadius + c }

// Reset clears the scratch grids to NotPlaced/0 before a new placement.
func (s *Scratch) Reset() {
	for i := range s.Occupied {
		s.Occupied[i] = CellNotPlaced
		s.Island[i] = 0
	}
}

// TerrainQuery answers, for a grid cell relative to the formation's field
// center, whether it's on-map/passable and which island it belongs to.
// Off-map or impassable cells report ok=false (§4.6 step 3: "cells
// off-map or on impassable terrain are Blocked").
type TerrainQuery func(r, c int) (island uint32, ok bool)

// anchorPos is a placed cell's position, used to average offsets for
// not-yet-placed neighbours (§4.6 step 6).
type anchorPos struct {
	x, z float32
}

// gridPos addresses a subformation grid cell during BFS placement.
type gridPos struct{ r, c int }

// Place runs the breadth-first cell placement of §4.6 step 6: starting
// at the center-front cell, place outward to front/back/left/right
// neighbours, snapping each candidate's averaged-offset target position
// to the nearest passable unallocated tile on the desired island.
// tileSize converts grid-relative cell coordinates to world offsets.
func Place(sf *Subformation, scratch *Scratch, query TerrainQuery, desiredIsland uint32, tileSize float32, countAgents int) {
	sf.Cells = make([]Cell, sf.NRows*sf.NCols)
	for r := 0; r < sf.NRows; r++ {
		for c := 0; c < sf.NCols; c++ {
			sf.Cells[r*sf.NCols+c] = Cell{Row: r, Col: c, State: CellNotPlaced}
		}
	}

	centerRow := (sf.NRows - 1) / 2
	centerCol := (sf.NCols - 1) / 2

	visited := make(map[gridPos]struct{})
	queue := []gridPos{{0, centerCol}}
	visited[queue[0]] = struct{}{}

	anchors := make(map[gridPos]anchorPos)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		cell := sf.At(cur.r, cur.c)
		if cell == nil {
			continue
		}

		idealX, idealZ := idealOffset(cur.r, cur.c, centerRow, centerCol, anchors, tileSize)
		cell.IdealX, cell.IdealZ = idealX, idealZ

		gr := int(idealZ/tileSize) + GridRadius/2
		gc := int(idealX/tileSize) + GridRadius/2
		placedR, placedC, ok := nearestFree(scratch, query, gr, gc, desiredIsland)
		if ok {
			cell.State = CellOccupied
			cell.SnappedR, cell.SnappedC = int32(placedR), int32(placedC)
			cell.FinalX = float32(placedC-GridRadius/2) * tileSize
			cell.FinalZ = float32(placedR-GridRadius/2) * tileSize
			scratch.Occupied[scratch.idx(placedR, placedC)] = CellOccupied
			anchors[cur] = anchorPos{x: cell.FinalX, z: cell.FinalZ}
		} else {
			cell.State = CellNotPlaced
		}

		for _, d := range [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			n := gridPos{cur.r + d[0], cur.c + d[1]}
			if n.r < 0 || n.r >= sf.NRows || n.c < 0 || n.c >= sf.NCols {
				continue
			}
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			queue = append(queue, n)
		}
	}

	markUnused(sf, countAgents)
}

// idealOffset averages the final positions of already-placed
// 4-neighbours to estimate where (r, c) should ideally sit, falling back
// to a pure grid offset from the center cell when no neighbour is placed
// yet (§4.6 step 6: "average offsets from already-placed anchors").
func idealOffset(r, c, centerR, centerC int, anchors map[gridPos]anchorPos, tileSize float32) (float32, float32) {
	var sx, sz float32
	var n int
	for _, d := range [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
		key := gridPos{r + d[0], c + d[1]}
		if a, ok := anchors[key]; ok {
			sx += a.x - float32(d[1])*tileSize
			sz += a.z - float32(d[0])*tileSize
			n++
		}
	}
	if n > 0 {
		return sx / float32(n), sz / float32(n)
	}
	return float32(c-centerC) * tileSize, float32(r-centerR) * tileSize
}

// nearestFree searches outward in rings from (gr, gc) for the nearest
// unallocated, passable grid cell on the desired island.
func nearestFree(scratch *Scratch, query TerrainQuery, gr, gc int, desiredIsland uint32) (r, c int, ok bool) {
	maxRing := GridRadius
	for ring := 0; ring <= maxRing; ring++ {
		for dr := -ring; dr <= ring; dr++ {
			for dc := -ring; dc <= ring; dc++ {
				if maxAbs(dr, dc) != ring {
					continue
				}
				rr, cc := gr+dr, gc+dc
				if rr < 0 || rr >= GridRadius || cc < 0 || cc >= GridRadius {
					continue
				}
				if scratch.Occupied[scratch.idx(rr, cc)] != CellNotPlaced {
					continue
				}
				island, onMap := query(rr, cc)
				if !onMap || island != desiredIsland {
					continue
				}
				return rr, cc, true
			}
		}
	}
	return 0, 0, false
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

// markUnused marks placed-but-surplus cells NotUsed when the placed
// count exceeds the agent count, preferring the leftmost and rightmost
// back-row cells first (§4.6 step 7). n is the number of agents actually
// needing a cell.
func markUnused(sf *Subformation, n int) {
	placed := 0
	for i := range sf.Cells {
		if sf.Cells[i].State == CellOccupied {
			placed++
		}
	}
	surplus := placed - n
	if surplus <= 0 {
		return
	}

	for row := sf.NRows - 1; row >= 0 && surplus > 0; row-- {
		left, right := 0, sf.NCols-1
		fromLeft := true
		for left <= right && surplus > 0 {
			col := left
			if !fromLeft {
				col = right
			}
			cell := sf.At(row, col)
			if cell != nil && cell.State == CellOccupied {
				cell.State = CellNotUsed
				surplus--
			}
			if fromLeft {
				left++
			} else {
				right--
			}
			fromLeft = !fromLeft
		}
	}
}
