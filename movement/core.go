package movement

import (
	"log/slog"

	"github.com/Mu-L/permafrost-engine/agentdb"
	"github.com/Mu-L/permafrost-engine/command"
	"github.com/Mu-L/permafrost-engine/config"
	"github.com/Mu-L/permafrost-engine/field"
	"github.com/Mu-L/permafrost-engine/formation"
	"github.com/Mu-L/permafrost-engine/navgrid"
	"github.com/Mu-L/permafrost-engine/portal"
	"github.com/Mu-L/permafrost-engine/snapshot"
	"github.com/Mu-L/permafrost-engine/telemetry"
)

// Core owns every piece of state the movement tick needs, one per
// simulation instance: the per-layer nav grids/field caches/portal
// graphs, the agent table, the deferred command queue, live flocks, and
// the telemetry collectors (§3's Ownership paragraph, §4.8's tick
// sequence). It is the module's counterpart to the teacher's top-level
// Game struct (game/game.go) generalized from render/biology state to
// navigation state.
type Core struct {
	Cfg *config.Config

	Layers [navgrid.NumLayers]*LayerData

	Agents *agentdb.DB
	Cmds   *command.Queue
	Flocks *Table

	MapOriginX, MapOriginZ float32

	Stats *telemetry.Collector
	Perf  *telemetry.PerfCollector
	Log   *slog.Logger

	tick        int32
	snap        *snapshot.GamestateSnapshot
	lastDropped int

	formScratch formation.Scratch

	// lastSpeeds/lastNeighbourCounts hold this tick's per-agent samples,
	// gathered during the parallel steering phase and consumed the next
	// time Stats.ShouldFlush fires (§4.9/§4.10's "sampled at window end").
	lastSpeeds          []float64
	lastNeighbourCounts []float64
}

// NewCore wires a Core over pre-built per-layer grids, one per
// navgrid.Layer (§3's "Map resolution... a nav grid per layer"). grids
// may contain nil entries for layers the map doesn't use (e.g. no water
// layer on a landlocked map); Core skips nil layers everywhere.
func NewCore(cfg *config.Config, grids [navgrid.NumLayers]*navgrid.Grid, mapOriginX, mapOriginZ float32, logger *slog.Logger) *Core {
	c := &Core{
		Cfg:        cfg,
		Agents:     agentdb.NewDB(),
		Cmds:       command.NewQueue(cfg.Commands.RingCapacity),
		Flocks:     NewTable(),
		MapOriginX: mapOriginX,
		MapOriginZ: mapOriginZ,
		Stats:      telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Derived.DT32),
		Perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		Log:        logger,
	}
	for i, g := range grids {
		if g == nil {
			continue
		}
		c.Layers[i] = &LayerData{
			Layer:  navgrid.Layer(i),
			Grid:   g,
			Cache:  field.NewCache(cfg.FieldCache.Capacity),
			Routes: &portal.Graph{Grid: g, MapOriginX: mapOriginX, MapOriginZ: mapOriginZ},
			Stats:  c.Stats,
		}
	}
	return c
}

// layerFor returns the LayerData for an agent's body layer, or nil if
// that layer isn't in use on this map.
func (c *Core) layerFor(l uint8) *LayerData {
	if int(l) >= len(c.Layers) {
		return nil
	}
	return c.Layers[l]
}

// cellArrivalRegionTiles resolves the configured §4.4 cell-arrival region
// extent, falling back to the spec's typical 96x96 when unset.
func (c *Core) cellArrivalRegionTiles() int32 {
	if c.Cfg.Formation.CellArrivalRegionTiles > 0 {
		return int32(c.Cfg.Formation.CellArrivalRegionTiles)
	}
	return defaultCellArrivalRegionTiles
}

// RefreshPortals rebuilds the portal graph for every in-use layer. Sim
// calls this once after loading initial terrain, before the first Tick;
// tick.go's own amortized relabel pass keeps each portal's reachability
// bits current afterward as blockers/terrain change incrementally; the
// portals themselves are rebuilt only by calling this again.
func (c *Core) RefreshPortals(enemyMask uint16) {
	for _, ld := range c.Layers {
		if ld == nil {
			continue
		}
		portal.BuildPortals(ld.Grid, enemyMask)
		portal.RefreshReachability(ld.Grid)
	}
}
