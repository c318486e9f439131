package sim

import (
	"context"
	"testing"
	"time"

	"github.com/Mu-L/permafrost-engine/command"
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/config"
	"github.com/Mu-L/permafrost-engine/movement"
	"github.com/Mu-L/permafrost-engine/navgrid"
)

func newTestLoop(t *testing.T) (*movement.Core, *Loop) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	res := navgrid.Resolution{ChunksWide: 2, ChunksHigh: 2, TileW: 16, TileH: 16, TileSize: 1}
	grid := NewOpenMap(res, navgrid.LayerFoot)

	var grids [navgrid.NumLayers]*navgrid.Grid
	grids[navgrid.LayerFoot] = grid

	core := movement.NewCore(cfg, grids, 0, 0, nil)
	core.RefreshPortals(0)
	return core, NewLoop(core, cfg)
}

func TestNewOpenMapLabelsIslands(t *testing.T) {
	res := navgrid.Resolution{ChunksWide: 2, ChunksHigh: 2, TileW: 8, TileH: 8, TileSize: 1}
	grid := NewOpenMap(res, navgrid.LayerFoot)

	c := grid.Chunk(navgrid.ChunkCoord{R: 0, C: 0})
	if c.Island(0, 0) == 0 {
		t.Error("expected an open map's tiles to already carry a nonzero global island id")
	}
	other := grid.Chunk(navgrid.ChunkCoord{R: 1, C: 1})
	if other.Island(0, 0) != c.Island(0, 0) {
		t.Error("expected a fully-open map to form a single connected global island")
	}
}

func TestApplyImpassableTilesSplitsIslands(t *testing.T) {
	res := navgrid.Resolution{ChunksWide: 1, ChunksHigh: 1, TileW: 8, TileH: 1, TileSize: 1}
	grid := NewOpenMap(res, navgrid.LayerFoot)

	ApplyImpassableTiles(grid, []navgrid.TileDesc{{TileR: 0, TileC: 4}})

	c := grid.Chunk(navgrid.ChunkCoord{})
	if c.Island(0, 0) == c.Island(0, 7) {
		t.Error("expected the wall to split the row into two global islands")
	}
}

func TestLoopSubticksAdvanceInRange(t *testing.T) {
	_, loop := newTestLoop(t)
	if loop.SubticksPerTick() != RenderHz/loop.Core.Cfg.Tick.RateHz {
		t.Fatalf("unexpected subticks-per-tick ratio: %d", loop.SubticksPerTick())
	}
	var last float32
	for i := 0; i < loop.SubticksPerTick()+2; i++ {
		f := loop.Subtick()
		if f < 0 || f > 1 {
			t.Fatalf("subtick fraction out of range: %v", f)
		}
		if f < last {
			t.Fatalf("subtick fraction went backward: %v -> %v", last, f)
		}
		last = f
	}
	if last != 1 {
		t.Errorf("expected fraction to saturate at 1, got %v", last)
	}
}

func TestLoopRunTicksAndStops(t *testing.T) {
	core, loop := newTestLoop(t)
	core.Cmds.Push(command.Add(1, components.Position{X: 1, Z: 1}, 0.5, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var ticks int32
	loop.Run(ctx, 50, func(n int32) { ticks = n })

	if ticks == 0 {
		t.Fatal("expected Run to execute at least one tick before its context expired")
	}
	if core.Agents.Movestate(1) == nil {
		t.Fatal("expected the seeded agent to still exist after Run returns")
	}
}
