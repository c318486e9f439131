package field

// BuildCellArrival builds a cell-arrival field over a rectangular region
// (typical 96x96) centered on the formation's center, targeting the given
// cell tile; the region form can straddle chunk boundaries, so the caller
// supplies a BuildContext whose Cost function reads across chunks (§4.4
// "Cell-arrival field").
func BuildCellArrival(regionCtx *BuildContext, cellR, cellC int32) (*IntegrationField, *FlowField) {
	integ := BuildIntegration(regionCtx, []struct{ R, C int32 }{{cellR, cellC}})
	return integ, ExtractFlow(integ)
}

// BuildToNearestPathable builds the "recovery" field used when an agent
// is standing on an impassable tile (e.g. pushed there by a neighbour):
// the initial frontier is every passable tile bordering the impassable
// component containing (stuckR, stuckC), so following the resulting flow
// moves the agent to the nearest reachable terrain (§4.4, §7's
// `update_to_nearest_pathable` recovery path).
func BuildToNearestPathable(ctx *BuildContext, stuckR, stuckC int32) *FlowField {
	component := impassableComponent(ctx, stuckR, stuckC)
	frontier := make([]struct{ R, C int32 }, 0, len(component))
	seen := make(map[[2]int32]struct{})
	for cell := range component {
		for _, d := range [4][2]int32{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			nr, nc := cell[0]+d[1], cell[1]+d[0]
			if nr < 0 || nr >= ctx.H || nc < 0 || nc >= ctx.W {
				continue
			}
			if _, stuck := component[[2]int32{nr, nc}]; stuck {
				continue
			}
			if ctx.Cost(nr, nc) == impassableCost {
				continue
			}
			key := [2]int32{nr, nc}
			if _, already := seen[key]; already {
				continue
			}
			seen[key] = struct{}{}
			frontier = append(frontier, struct{ R, C int32 }{nr, nc})
		}
	}
	// The "target" cells for this Dijkstra are the passable tiles bordering
	// the impassable island; cost accumulates outward from there, so the
	// resulting flow pulls a stuck agent toward the nearest one.
	built := BuildIntegration(ctx, frontier)
	return ExtractFlow(built)
}

func impassableComponent(ctx *BuildContext, r, c int32) map[[2]int32]struct{} {
	seen := map[[2]int32]struct{}{{r, c}: {}}
	stack := [][2]int32{{r, c}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range [4][2]int32{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			nr, nc := cur[0]+d[1], cur[1]+d[0]
			if nr < 0 || nr >= ctx.H || nc < 0 || nc >= ctx.W {
				continue
			}
			if ctx.Cost(nr, nc) != impassableCost {
				continue
			}
			key := [2]int32{nr, nc}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			stack = append(stack, key)
		}
	}
	return seen
}

