package formation

import (
	"gonum.org/v1/gonum/mat"
)

// Agent is the minimal per-agent info the assignment stage needs: its
// current position and external UID.
type Agent struct {
	UID  uint32
	X, Z float32
}

// CostMatrix builds the n×n squared-distance cost matrix between agents
// and CellOccupied cells (NotPlaced, NotOccupied and NotUsed cells are
// left out), per §4.6 step 8. Costs are i64, not
// f32, per spec's flagged overflow risk with large maps and many agents;
// squaring itself (not the accumulation) is what penalizes overtaking,
// so integer squares keep that behavior exact. Excess matrix slots (more
// agents than cells, or vice versa) are padded with a dummy cost high
// enough that the Hungarian solver will never prefer it over a real
// pairing, implementing a rectangular assignment via a square matrix.
func CostMatrix(agents []Agent, cells []Cell) (*mat.Dense, []int) {
	placedIdx := make([]int, 0, len(cells))
	for i, c := range cells {
		if c.State == CellOccupied {
			placedIdx = append(placedIdx, i)
		}
	}
	n := len(agents)
	if len(placedIdx) > n {
		n = len(placedIdx)
	}
	if n == 0 {
		return mat.NewDense(0, 0, nil), placedIdx
	}

	const dummyCost = 1 << 40
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i >= len(agents) || j >= len(placedIdx) {
				data[i*n+j] = dummyCost
				continue
			}
			cell := cells[placedIdx[j]]
			dx := int64(agents[i].X - cell.FinalX)
			dz := int64(agents[i].Z - cell.FinalZ)
			data[i*n+j] = float64(dx*dx + dz*dz)
		}
	}
	return mat.NewDense(n, n, data), placedIdx
}

// Solve runs the classic Kuhn-Munkres (Hungarian) algorithm on a square
// cost matrix and returns, for each row i, the assigned column
// assignment[i] (§4.6 step 8). No ecosystem Go package in the retrieval
// pack implements Hungarian assignment, so the reduction/augmenting-path
// algorithm itself is hand-written; it operates on the gonum *mat.Dense
// cost matrix rather than a raw [][]float64, so at least the matrix
// storage and row/column access go through the pack's numeric library.
func Solve(cost *mat.Dense) []int {
	n, m := cost.Dims()
	if n == 0 || n != m {
		return nil
	}

	// u, v are the dual potentials; p[j] is the row currently matched to
	// column j (0 = unmatched, else 1-based row index); way[j] records the
	// column that led to j during the augmenting search, for path
	// reconstruction. This is the standard O(n^3) Jonker-Volgenant-free
	// Hungarian formulation indexed from 1 for the dummy root.
	const inf = 1e18
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment
}

// Assign binds agents to cells by running CostMatrix + Solve and writing
// AssignedUID back onto each chosen cell (§4.6 step 8).
func Assign(agents []Agent, cells []Cell) {
	cost, placedIdx := CostMatrix(agents, cells)
	n, _ := cost.Dims()
	if n == 0 {
		return
	}
	assignment := Solve(cost)
	for row, col := range assignment {
		if row >= len(agents) || col >= len(placedIdx) {
			continue
		}
		cells[placedIdx[col]].AssignedUID = agents[row].UID
	}
}
