package field

import "container/heap"

// BuildContext supplies a builder with everything it needs to read
// passability for one layer, independent of how chunks are stored
// (§4.4). Region coordinates are local to the built field, (0,0) being
// its top-left cell.
type BuildContext struct {
	W, H int32
	// Cost returns the tile cost at a region-local (r, c), or
	// navgrid.Impassable if impassable/out of range.
	Cost func(r, c int32) uint8
	// Yield is invoked every 16 processed cells so a cooperative
	// scheduler can interleave other work (§5's suspension-point
	// contract, modeled as an injected callback since Go has no
	// stackful coroutines library code can drive).
	Yield func()
}

func (ctx *BuildContext) yieldEvery(n int) {
	if ctx.Yield != nil && n%16 == 0 {
		ctx.Yield()
	}
}

const impassableCost = 255

type pqItem struct {
	r, c  int32
	cost  float32
	index int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index = i; pq[j].index = j }
func (pq *priorityQueue) Push(x any)         { it := x.(*pqItem); it.index = len(*pq); *pq = append(*pq, it) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[:n-1]
	return it
}

// BuildIntegration runs a 4-connected Dijkstra frontier seeded at every
// tile in targets, producing a scalar cost-to-goal field (§4.4
// "Integration field (Dijkstra)"). Diagonal neighbours are never relaxed,
// keeping motion quantization clean per the spec.
func BuildIntegration(ctx *BuildContext, targets []struct{ R, C int32 }) *IntegrationField {
	f := NewIntegrationField(ctx.W, ctx.H)
	pq := &priorityQueue{}
	heap.Init(pq)

	for _, t := range targets {
		if t.R < 0 || t.R >= ctx.H || t.C < 0 || t.C >= ctx.W {
			continue
		}
		i := f.idx(t.R, t.C)
		if f.Cost[i] == 0 {
			continue
		}
		f.Cost[i] = 0
		heap.Push(pq, &pqItem{r: t.R, c: t.C, cost: 0})
	}

	processed := 0
	deltas := [4][2]int32{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		processed++
		ctx.yieldEvery(processed)

		curCost := f.Cost[f.idx(cur.r, cur.c)]
		if cur.cost > curCost {
			continue // stale entry, a cheaper path already relaxed this cell
		}

		for _, d := range deltas {
			nr, nc := cur.r+d[1], cur.c+d[0]
			if nr < 0 || nr >= ctx.H || nc < 0 || nc >= ctx.W {
				continue
			}
			tileCost := ctx.Cost(nr, nc)
			if tileCost == impassableCost {
				continue
			}
			cand := curCost + float32(tileCost)
			ni := f.idx(nr, nc)
			if cand < f.Cost[ni] {
				f.Cost[ni] = cand
				heap.Push(pq, &pqItem{r: nr, c: nc, cost: cand})
			}
		}
	}
	return f
}
