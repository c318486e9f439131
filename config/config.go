// Package config provides configuration loading and access for the
// navigation and movement core.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Tick       TickConfig       `yaml:"tick"`
	Map        MapConfig        `yaml:"map"`
	Movement   MovementConfig   `yaml:"movement"`
	Avoidance  AvoidanceConfig  `yaml:"avoidance"`
	Formation  FormationConfig  `yaml:"formation"`
	FieldCache FieldCacheConfig `yaml:"field_cache"`
	Commands   CommandsConfig   `yaml:"commands"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading.
	Derived DerivedConfig `yaml:"-"`
}

// TickConfig holds the fixed simulation tick rate (§4.8, §6).
type TickConfig struct {
	RateHz     int  `yaml:"rate_hz"` // one of 20, 10, 5, 1
	GPUBackend bool `yaml:"gpu_backend"`
}

// MapConfig holds the navigation grid's shape (§3 "Map resolution").
type MapConfig struct {
	ChunksWide int     `yaml:"chunks_wide"`
	ChunksHigh int     `yaml:"chunks_high"`
	TileW      int     `yaml:"tile_w"`
	TileH      int     `yaml:"tile_h"`
	TileSize   float64 `yaml:"tile_size"`
}

// MovementConfig holds the per-agent steering/integration constants of
// §4.9.
type MovementConfig struct {
	MaxForce      float64 `yaml:"max_force"`
	MaxTurnRateDg float64 `yaml:"max_turn_rate_degrees"`
	VelHistLen    int     `yaml:"vel_hist_len"`
	WaitTicks     int     `yaml:"wait_ticks"`
	LowWater      float64 `yaml:"low_water"`
	HighWater     float64 `yaml:"high_water"`

	ArriveWeight     float64 `yaml:"arrive_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight"`
	AlignmentWeight  float64 `yaml:"alignment_weight"`
	SeparationWeight float64 `yaml:"separation_weight"`

	// Formation* weights only apply in StateMovingInFormation and
	// StateArrivingToCell (§4.9), on top of the weights above.
	FormationCohesionWeight  float64 `yaml:"formation_cohesion_weight"`
	FormationAlignmentWeight float64 `yaml:"formation_alignment_weight"`
	FormationDragWeight      float64 `yaml:"formation_drag_weight"`

	// SurroundEngageRadius is the reference distance LowWater/HighWater
	// are fractions of, for the SurroundEntity hysteresis band (§4.9).
	SurroundEngageRadius float64 `yaml:"surround_engage_radius"`

	ClickMoveEnabled     bool `yaml:"click_move_enabled"`
	AttackOnClickEnabled bool `yaml:"attack_on_click_enabled"`
}

// AvoidanceConfig holds the ClearPath/HRVO parameters of §4.10.
type AvoidanceConfig struct {
	NeighbourRadius float64 `yaml:"clearpath_neighbour_radius"`
	MaxNeighbours   int     `yaml:"max_neighbours"`
}

// FormationConfig holds the §4.6 ratio constants.
type FormationConfig struct {
	RankRatio   float64 `yaml:"rank_ratio"`
	ColumnRatio float64 `yaml:"column_ratio"`

	// CellArrivalRegionTiles sizes the §4.4 cell-arrival field's region
	// (typical 96x96) and, via withinCellArrivalRegion, the distance at
	// which a formation-bound agent switches from MovingInFormation onto
	// its own per-cell arrival field (§4.9's ArrivingToCell state).
	CellArrivalRegionTiles int `yaml:"cell_arrival_region_tiles"`
}

// FieldCacheConfig sizes the LRU field cache of §4.5.
type FieldCacheConfig struct {
	Capacity                      int `yaml:"capacity"`
	MaxIslandRepaintChunksPerTick int `yaml:"max_island_repaint_chunks_per_tick"`
}

// CommandsConfig sizes the command queue of §4.7.
type CommandsConfig struct {
	RingCapacity int `yaml:"ring_capacity"`
}

// TelemetryConfig holds telemetry window/export parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	CSVOutputPath       string  `yaml:"csv_output_path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32         float32 // 1 / Tick.RateHz, as float32
	MaxMoveTasks int     // runtime worker cap for fork-join phases (§5)
}

// MaxMoveTasksCeiling is the hard cap on concurrent movement workers
// named in §5, regardless of CPU count.
const MaxMoveTasksCeiling = 64

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// WriteYAML serializes the config (excluding Derived) to a YAML file, for
// archiving the configuration an output directory was produced under.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	rate := c.Tick.RateHz
	if rate <= 0 {
		rate = 20
	}
	c.Derived.DT32 = 1.0 / float32(rate)

	c.Derived.MaxMoveTasks = MaxMoveTasksCeiling
}
