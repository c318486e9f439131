package field

// ExtractFlow derives a flow field from a built integration field: each
// non-target, finite-cost cell picks the direction minimizing neighbour
// integration cost among its 8 neighbours, forbidding a diagonal step
// unless both side (cardinal) neighbours are finite-cost, and breaking
// ties in the order N, S, E, W, NW, NE, SW, SE (§4.4 "Flow field").
func ExtractFlow(integ *IntegrationField) *FlowField {
	flow := NewFlowField(integ.W, integ.H)
	for r := int32(0); r < integ.H; r++ {
		for c := int32(0); c < integ.W; c++ {
			own := integ.At(r, c)
			if own == 0 || isInf(own) {
				continue
			}
			flow.Set(r, c, bestDirection(integ, r, c))
		}
	}
	return flow
}

// neighbourOffsets8 matches the N,S,E,W,NW,NE,SW,SE order required by
// §4.4, shared with navgrid's tie-break order for consistency.
var neighbourOffsets8 = [8][2]int32{
	{0, -1}, // N  (dc, dr)
	{0, 1},  // S
	{1, 0},  // E
	{-1, 0}, // W
	{-1, -1}, // NW
	{1, -1},  // NE
	{-1, 1},  // SW
	{1, 1},   // SE
}

func bestDirection(integ *IntegrationField, r, c int32) Dir4 {
	cardinal := [4]float32{
		integ.At(r-1, c), // N
		integ.At(r+1, c), // S
		integ.At(r, c+1), // E
		integ.At(r, c-1), // W
	}

	best := Dir4(DirNone)
	bestCost := integ.At(r, c)
	for i, off := range neighbourOffsets8 {
		// off is (dc, dr), matching navgrid's RelativeDesc(dc, dr) convention.
		nr, nc := r+off[1], c+off[0]
		cost := integ.At(nr, nc)
		if isInf(cost) {
			continue
		}
		if i >= 4 {
			// Diagonal: forbidden unless both flanking cardinals are finite,
			// preventing the flow from cutting an impassable corner.
			var side1, side2 float32
			switch dirFromIndex[i] {
			case DirNW:
				side1, side2 = cardinal[0], cardinal[3] // N, W
			case DirNE:
				side1, side2 = cardinal[0], cardinal[2] // N, E
			case DirSW:
				side1, side2 = cardinal[1], cardinal[3] // S, W
			case DirSE:
				side1, side2 = cardinal[1], cardinal[2] // S, E
			}
			if isInf(side1) || isInf(side2) {
				continue
			}
		}
		if cost < bestCost {
			bestCost = cost
			best = dirFromIndex[i]
		}
	}
	return best
}

func isInf(v float32) bool { return v > 3.0e38 }
