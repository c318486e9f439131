package telemetry

// Collector accumulates events within a tick window and produces TickStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	windowStartTick int32

	commandsProcessed   int
	commandsDropped     int
	fieldCacheHits      int
	fieldCacheMisses    int
	fieldsBuilt         int
	routeRequests       int
	routeFailures       int
	islandRepaintChunks int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// RecordCommand records a drained command, per §4.7.
func (c *Collector) RecordCommand(dropped bool) {
	if dropped {
		c.commandsDropped++
	} else {
		c.commandsProcessed++
	}
}

// RecordFieldCacheLookup records a field-cache Get/GetOrBuild outcome,
// per §4.5.
func (c *Collector) RecordFieldCacheLookup(hit bool) {
	if hit {
		c.fieldCacheHits++
	} else {
		c.fieldCacheMisses++
	}
}

// RecordFieldBuilt records a field construction completing.
func (c *Collector) RecordFieldBuilt() {
	c.fieldsBuilt++
}

// RecordRoute records a portal-graph route request and whether it failed
// to find a path, per §4.3.
func (c *Collector) RecordRoute(failed bool) {
	c.routeRequests++
	if failed {
		c.routeFailures++
	}
}

// RecordIslandRepaint records chunks repainted during the amortized
// relabel pass, per §4.2.
func (c *Collector) RecordIslandRepaint(chunks int) {
	c.islandRepaintChunks += chunks
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// PopulationSample holds the agent-state-machine occupancy and speed/
// neighbour-count samples the caller gathers from the live agent set for
// one flush (§4.9, §4.10).
type PopulationSample struct {
	ActiveAgents  int
	Moving        int
	Waiting       int
	Arrived       int
	Speeds        []float64
	NeighbourCounts []float64

	FormationsActive       int
	FormationCellsOccupied int
}

// Flush produces a TickStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, pop PopulationSample) TickStats {
	var hitRate float64
	total := c.fieldCacheHits + c.fieldCacheMisses
	if total > 0 {
		hitRate = float64(c.fieldCacheHits) / float64(total)
	}

	speedMean, speedP10, speedP50, speedP90 := ComputeSpeedStats(pop.Speeds)
	nMean, nStd, nP10, nP50, nP90 := ComputeNeighbourStats(pop.NeighbourCounts)

	stats := TickStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		ActiveAgents:  pop.ActiveAgents,
		AgentsMoving:  pop.Moving,
		AgentsWaiting: pop.Waiting,
		AgentsArrived: pop.Arrived,

		CommandsProcessed: c.commandsProcessed,
		CommandsDropped:   c.commandsDropped,

		FieldCacheHits:    c.fieldCacheHits,
		FieldCacheMisses:  c.fieldCacheMisses,
		FieldCacheHitRate: hitRate,
		FieldsBuilt:       c.fieldsBuilt,

		RouteRequests: c.routeRequests,
		RouteFailures: c.routeFailures,

		IslandRepaintChunks: c.islandRepaintChunks,

		SpeedMean: speedMean,
		SpeedP10:  speedP10,
		SpeedP50:  speedP50,
		SpeedP90:  speedP90,

		NeighbourMean: nMean,
		NeighbourStd:  nStd,
		NeighbourP10:  nP10,
		NeighbourP50:  nP50,
		NeighbourP90:  nP90,

		FormationsActive:       pop.FormationsActive,
		FormationCellsOccupied: pop.FormationCellsOccupied,
	}

	c.windowStartTick = currentTick
	c.commandsProcessed = 0
	c.commandsDropped = 0
	c.fieldCacheHits = 0
	c.fieldCacheMisses = 0
	c.fieldsBuilt = 0
	c.routeRequests = 0
	c.routeFailures = 0
	c.islandRepaintChunks = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
