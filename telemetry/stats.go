package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// TickStats holds aggregated statistics for a rolling window of ticks.
type TickStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	ActiveAgents int `csv:"active_agents"`

	// State-machine occupancy at window end (§4.9)
	AgentsMoving  int `csv:"agents_moving"`
	AgentsWaiting int `csv:"agents_waiting"`
	AgentsArrived int `csv:"agents_arrived"`

	// Commands drained during window (§4.7)
	CommandsProcessed int `csv:"commands_processed"`
	CommandsDropped   int `csv:"commands_dropped"`

	// Field cache (§4.5)
	FieldCacheHits   int     `csv:"field_cache_hits"`
	FieldCacheMisses int     `csv:"field_cache_misses"`
	FieldCacheHitRate float64 `csv:"field_cache_hit_rate"`
	FieldsBuilt      int     `csv:"fields_built"`

	// Portal routing (§4.3)
	RouteRequests int `csv:"route_requests"`
	RouteFailures int `csv:"route_failures"`

	// Island relabelling (§4.2)
	IslandRepaintChunks int `csv:"island_repaint_chunks"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Avoidance neighbour-count distribution (§4.10)
	NeighbourMean float64 `csv:"neighbour_mean"`
	NeighbourStd  float64 `csv:"neighbour_std"`
	NeighbourP10  float64 `csv:"neighbour_p10"`
	NeighbourP50  float64 `csv:"neighbour_p50"`
	NeighbourP90  float64 `csv:"neighbour_p90"`

	// Formations (§4.6)
	FormationsActive       int `csv:"formations_active"`
	FormationCellsOccupied int `csv:"formation_cells_occupied"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean and percentiles from per-agent speed
// samples (the movement tick passes each agent's velocity magnitude after
// its step).
func ComputeSpeedStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// ComputeNeighbourStats calculates mean, std, and percentiles from
// per-agent avoidance neighbour counts (§4.10's MAX_NEIGHBOURS cap).
func ComputeNeighbourStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	std = math.Sqrt(sqDiffSum / float64(n))

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("active_agents", s.ActiveAgents),
		slog.Int("agents_moving", s.AgentsMoving),
		slog.Int("agents_waiting", s.AgentsWaiting),
		slog.Int("agents_arrived", s.AgentsArrived),
		slog.Int("commands_processed", s.CommandsProcessed),
		slog.Int("commands_dropped", s.CommandsDropped),
		slog.Int("field_cache_hits", s.FieldCacheHits),
		slog.Int("field_cache_misses", s.FieldCacheMisses),
		slog.Float64("field_cache_hit_rate", s.FieldCacheHitRate),
		slog.Int("fields_built", s.FieldsBuilt),
		slog.Int("route_requests", s.RouteRequests),
		slog.Int("route_failures", s.RouteFailures),
		slog.Int("island_repaint_chunks", s.IslandRepaintChunks),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("neighbour_mean", s.NeighbourMean),
		slog.Float64("neighbour_std", s.NeighbourStd),
		slog.Float64("neighbour_p10", s.NeighbourP10),
		slog.Float64("neighbour_p50", s.NeighbourP50),
		slog.Float64("neighbour_p90", s.NeighbourP90),
		slog.Int("formations_active", s.FormationsActive),
		slog.Int("formation_cells_occupied", s.FormationCellsOccupied),
	)
}

// LogStats logs the window stats using slog.
func (s TickStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"active_agents", s.ActiveAgents,
		"agents_moving", s.AgentsMoving,
		"agents_waiting", s.AgentsWaiting,
		"agents_arrived", s.AgentsArrived,
		"commands_processed", s.CommandsProcessed,
		"commands_dropped", s.CommandsDropped,
		"field_cache_hit_rate", s.FieldCacheHitRate,
		"fields_built", s.FieldsBuilt,
		"route_failures", s.RouteFailures,
		"island_repaint_chunks", s.IslandRepaintChunks,
		"speed_mean", s.SpeedMean,
		"neighbour_mean", s.NeighbourMean,
		"formations_active", s.FormationsActive,
	)
}
