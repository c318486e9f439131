// Package sim wires the leaf packages (navgrid, portal, field, formation,
// movement) into a runnable simulation: building a map's per-layer grids,
// driving movement.Core.Tick at a fixed rate, and exposing render-subtick
// interpolation, generalizing the teacher's main.go Game/Update loop
// (_examples/pthm-soup/main.go) from a render-coupled frame loop to the
// navigation core's fixed-rate tick menu (§4.8, §6).
package sim

import (
	"github.com/Mu-L/permafrost-engine/navgrid"
)

// NewOpenMap allocates a fully-open (no terrain authoring) grid for the
// given layer and marks every chunk dirty so the first RelabelPass call
// computes islands over the whole map (portals are built separately, by
// movement.Core.RefreshPortals), rather than lazily
// per-access (§4.2's amortized repaint assumes an already-labelled grid
// as its steady state; a freshly created grid must seed that state once).
// Map/terrain authoring itself is out of scope (§1's Non-goals list map
// editing); this is the minimal bootstrap a headless harness or test
// needs to get a labelled, routable grid before the first Tick.
func NewOpenMap(res navgrid.Resolution, layer navgrid.Layer) *navgrid.Grid {
	g := navgrid.NewGrid(res, layer)
	for coord := range g.Chunks {
		g.MarkDirty(coord)
	}
	navgrid.RelabelPass(g, 0, 0)
	return g
}

// ApplyImpassableTiles sets cost_base=Impassable for every tile descriptor
// in tds (static terrain authoring input from an external map source,
// §3's cost_base field) and marks the owning chunks dirty, then forces an
// immediate full relabel so the grid is consistent before Tick runs. Used
// by tests to carve obstacles into an otherwise open
// map; a live game's terrain edits instead flow through the incremental
// per-tick RelabelPass path in movement.Core.
func ApplyImpassableTiles(g *navgrid.Grid, tds []navgrid.TileDesc) {
	touched := map[navgrid.ChunkCoord]struct{}{}
	for _, td := range tds {
		c := g.Chunk(navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC})
		if c == nil {
			continue
		}
		c.CostBase[int(td.TileR)*int(c.W)+int(td.TileC)] = navgrid.Impassable
		touched[navgrid.ChunkCoord{R: td.ChunkR, C: td.ChunkC}] = struct{}{}
	}
	for coord := range touched {
		g.MarkDirty(coord)
	}
	navgrid.RelabelPass(g, 0, 0)
}
