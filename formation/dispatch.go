package formation

import (
	"runtime"
	"sync"
)

// ArrivalBuilder computes the cell-arrival field for one occupied cell;
// supplied by the movement core since it closes over the navgrid/field
// packages this package doesn't depend on.
type ArrivalBuilder func(cell *Cell)

// DispatchArrivalFields fans cell-arrival field construction out across
// a worker pool, one task per occupied cell, capped the same way the
// teacher's updateBehaviorAndPhysicsParallel divides a fixed entity slice
// across numWorkers goroutines (game/parallel.go), generalized here from
// "fixed worker count dividing an entity slice" to "one task per
// formation cell" (§4.6 step 9, §5's MAX_MOVE_TASKS cap).
func DispatchArrivalFields(cells []Cell, build ArrivalBuilder, maxTasks int) {
	occupied := make([]int, 0, len(cells))
	for i, c := range cells {
		if c.State == CellOccupied {
			occupied = append(occupied, i)
		}
	}
	if len(occupied) == 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > maxTasks {
		workers = maxTasks
	}
	if workers > len(occupied) {
		workers = len(occupied)
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (len(occupied) + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(occupied) {
			end = len(occupied)
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for _, idx := range occupied[lo:hi] {
				build(&cells[idx])
			}
		}(start, end)
	}
	wg.Wait()
}
