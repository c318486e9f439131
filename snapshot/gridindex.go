package snapshot

// GridIndex is a cell-bucketed spatial index supplying ents_in_rect (§9),
// adapted from the teacher's systems/spatial.go SpatialGrid: same
// cell-bucket-list structure, but axis-aligned rect queries instead of a
// toroidal radius query, since the navigation map has fixed bounds rather
// than wrapping.
type GridIndex struct {
	cellSize   float32
	cols, rows int
	width, height float32
	cells      [][]entry
}

type entry struct {
	uid  uint32
	x, z float32
}

// NewGridIndex creates a grid index covering [0,width] x [0,height].
func NewGridIndex(width, height, cellSize float32) *GridIndex {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]entry, cols*rows)
	return &GridIndex{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Insert adds an agent at the given world position.
func (g *GridIndex) Insert(uid uint32, x, z float32) {
	idx := g.cellIndex(x, z)
	g.cells[idx] = append(g.cells[idx], entry{uid: uid, x: x, z: z})
}

// EntsInRect returns every inserted uid whose position falls within the
// given axis-aligned rect, satisfying §9's ents_in_rect(bounds) contract.
func (g *GridIndex) EntsInRect(xMin, zMin, xMax, zMax float32) []uint32 {
	colLo := g.clampCol(int(xMin / g.cellSize))
	colHi := g.clampCol(int(xMax / g.cellSize))
	rowLo := g.clampRow(int(zMin / g.cellSize))
	rowHi := g.clampRow(int(zMax / g.cellSize))

	var out []uint32
	for row := rowLo; row <= rowHi; row++ {
		for col := colLo; col <= colHi; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				if e.x >= xMin && e.x <= xMax && e.z >= zMin && e.z <= zMax {
					out = append(out, e.uid)
				}
			}
		}
	}
	return out
}

func (g *GridIndex) cellIndex(x, z float32) int {
	col := g.clampCol(int(x / g.cellSize))
	row := g.clampRow(int(z / g.cellSize))
	return row*g.cols + col
}

func (g *GridIndex) clampCol(col int) int {
	if col < 0 {
		return 0
	}
	if col >= g.cols {
		return g.cols - 1
	}
	return col
}

func (g *GridIndex) clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= g.rows {
		return g.rows - 1
	}
	return row
}
