package field

// BuildLOS constructs a line-of-sight field for a destination chunk
// (§4.4 "LOS field"). Visibility starts at the target tile and
// propagates along 4-connected neighbours whose base cost is 1; at every
// "LOS corner" (a neighbour whose base cost is >1 where the left/right or
// top/bottom neighbours differ in passability) a Bresenham line is drawn
// from the corner directly away from the target, out to the edge of the
// field, and every traversed cell is marked wavefront-blocked. The wavefront is then padded by one tile of
// invisibility so agents standing on the edge of visibility can actually
// raycast the target without clipping impassable terrain.
func BuildLOS(ctx *BuildContext, targetR, targetC int32) *LOSField {
	los := NewLOSField(ctx.W, ctx.H)
	if targetR < 0 || targetR >= ctx.H || targetC < 0 || targetC >= ctx.W {
		return los
	}

	visited := make([]bool, ctx.W*ctx.H)
	idx := func(r, c int32) int { return int(r)*int(ctx.W) + int(c) }

	type cell struct{ r, c int32 }
	queue := []cell{{targetR, targetC}}
	visited[idx(targetR, targetC)] = true
	los.visible[idx(targetR, targetC)] = true

	processed := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		processed++
		ctx.yieldEvery(processed)

		for _, d := range [4][2]int32{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			nr, nc := cur.r+d[1], cur.c+d[0]
			if nr < 0 || nr >= ctx.H || nc < 0 || nc >= ctx.W || visited[idx(nr, nc)] {
				continue
			}
			visited[idx(nr, nc)] = true

			cost := ctx.Cost(nr, nc)
			if cost == impassableCost {
				continue
			}
			if cost == 1 {
				los.visible[idx(nr, nc)] = true
				queue = append(queue, cell{nr, nc})
				continue
			}

			if isLOSCorner(ctx, nr, nc) {
				bresenhamMark(ctx, nr, nc, targetR, targetC, los)
			}
		}
	}

	padWavefront(ctx, los)
	return los
}

// isLOSCorner tests whether (r, c)'s passability differs between its
// left/right neighbours or its top/bottom neighbours, the signature of a
// terrain corner that can occlude line-of-sight.
func isLOSCorner(ctx *BuildContext, r, c int32) bool {
	left := cellCost(ctx, r, c-1)
	right := cellCost(ctx, r, c+1)
	top := cellCost(ctx, r-1, c)
	bottom := cellCost(ctx, r+1, c)
	lrDiffer := (left == impassableCost) != (right == impassableCost)
	tbDiffer := (top == impassableCost) != (bottom == impassableCost)
	return lrDiffer || tbDiffer
}

func cellCost(ctx *BuildContext, r, c int32) uint8 {
	if r < 0 || r >= ctx.H || c < 0 || c >= ctx.W {
		return impassableCost
	}
	return ctx.Cost(r, c)
}

// bresenhamMark draws an integer Bresenham line that starts at the corner
// (r0, c0) and runs directly away from the target (tr, tc) until it leaves
// the field, marking every traversed cell wavefront-blocked.
func bresenhamMark(ctx *BuildContext, r0, c0, tr, tc int32, los *LOSField) {
	k := ctx.W + ctx.H
	r1, c1 := r0+(r0-tr)*k, c0+(c0-tc)*k
	dr := abs32(r1 - r0)
	dc := abs32(c1 - c0)
	sr := int32(1)
	if r0 > r1 {
		sr = -1
	}
	sc := int32(1)
	if c0 > c1 {
		sc = -1
	}
	err := dc - dr

	r, c := r0, c0
	for {
		if r < 0 || r >= ctx.H || c < 0 || c >= ctx.W {
			break
		}
		los.wavefrontBlocked[los.idx(r, c)] = true
		if r == r1 && c == c1 {
			break
		}
		e2 := 2 * err
		if e2 > -dr {
			err -= dr
			c += sc
		}
		if e2 < dc {
			err += dc
			r += sr
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// padWavefront marks every neighbour of a wavefront-blocked cell as also
// blocked, and clears visibility there, so an agent on the last visible
// tile cannot still raycast past a corner (§4.4's "pad the wavefront by
// one tile of invisibility").
func padWavefront(ctx *BuildContext, los *LOSField) {
	toBlock := make([]bool, len(los.wavefrontBlocked))
	for r := int32(0); r < ctx.H; r++ {
		for c := int32(0); c < ctx.W; c++ {
			if !los.wavefrontBlocked[los.idx(r, c)] {
				continue
			}
			for _, d := range [4][2]int32{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
				nr, nc := r+d[1], c+d[0]
				if nr < 0 || nr >= ctx.H || nc < 0 || nc >= ctx.W {
					continue
				}
				toBlock[los.idx(nr, nc)] = true
			}
		}
	}
	for i, block := range toBlock {
		if block {
			los.wavefrontBlocked[i] = true
			los.visible[i] = false
		}
	}
}

// InheritEdge copies LOS flags from the shared edge of a previously built
// neighbour chunk's field into dst, along the given shared side (§4.4's
// "Adjacent-chunk LOS fields inherit flags from the shared edge of the
// previously built neighbour's field"). dstEdgeIsEast selects the shared
// side: true copies neighbour's west column onto dst's east column, false
// copies neighbour's east column onto dst's west column.
func InheritEdge(dst, neighbour *LOSField, dstEdgeIsEast bool) {
	if dst.H != neighbour.H {
		return
	}
	for r := int32(0); r < dst.H; r++ {
		var dstC, srcC int32
		if dstEdgeIsEast {
			dstC, srcC = dst.W-1, 0
		} else {
			dstC, srcC = 0, neighbour.W-1
		}
		i := dst.idx(r, dstC)
		j := neighbour.idx(r, srcC)
		dst.visible[i] = dst.visible[i] || neighbour.visible[j]
		dst.wavefrontBlocked[i] = dst.wavefrontBlocked[i] || neighbour.wavefrontBlocked[j]
	}
}
