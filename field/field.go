// Package field builds and caches integration, flow, line-of-sight, and
// seek fields over a navgrid (§4.4, §4.5).
package field

import (
	"math"

	"github.com/Mu-L/permafrost-engine/navgrid"
)

// Dir4 is a packed 4-bit flow direction, matching §3's "4-bit direction
// (N, S, E, W, NE, NW, SE, SW, NONE)" packed two per byte.
type Dir4 uint8

const (
	DirNone Dir4 = iota
	DirN
	DirS
	DirE
	DirW
	DirNE
	DirNW
	DirSE
	DirSW
)

// dirFromIndex maps the neighbourDelta8 tie-break index (N,S,E,W,NW,NE,SW,SE)
// used throughout navgrid.Neighbours8 to the packed Dir4 value.
var dirFromIndex = [8]Dir4{DirN, DirS, DirE, DirW, DirNW, DirNE, DirSW, DirSE}

// Vector returns the (dr, dc) tile-space step a packed direction encodes,
// using the exact offsets ExtractFlow assigned that direction (flow.go's
// neighbourOffsets8), so a caller converting a flow direction into a
// world-space heading (movement's per-agent desired-velocity lookup)
// always steps the same way the field that produced it was built.
func (d Dir4) Vector() (dr, dc int32) {
	for i, dd := range dirFromIndex {
		if dd == d {
			off := neighbourOffsets8[i]
			// off is (dc, dr); Vector returns (dr, dc).
			return off[1], off[0]
		}
	}
	return 0, 0
}

// IntegrationField holds scalar cost-to-goal per tile for one chunk-sized
// (or region-sized, for padded builds) grid. Cost is +Inf for tiles never
// reached by the Dijkstra frontier (§3 "Integration field").
type IntegrationField struct {
	W, H int32
	Cost []float32
}

// NewIntegrationField allocates a field of w*h cells, all initialized to
// +Inf.
func NewIntegrationField(w, h int32) *IntegrationField {
	f := &IntegrationField{W: w, H: h, Cost: make([]float32, w*h)}
	for i := range f.Cost {
		f.Cost[i] = posInf
	}
	return f
}

func (f *IntegrationField) idx(r, c int32) int { return int(r)*int(f.W) + int(c) }

func (f *IntegrationField) inBounds(r, c int32) bool {
	return r >= 0 && r < f.H && c >= 0 && c < f.W
}

// At returns the integration cost at (r, c), or +Inf if out of bounds.
func (f *IntegrationField) At(r, c int32) float32 {
	if !f.inBounds(r, c) {
		return posInf
	}
	return f.Cost[f.idx(r, c)]
}

var posInf = float32(math.Inf(1))

// FlowField holds a packed 4-bit direction per tile, two per byte, per §3.
type FlowField struct {
	W, H int32
	dirs []byte
}

// NewFlowField allocates a direction field of w*h cells, all DirNone.
func NewFlowField(w, h int32) *FlowField {
	n := (int(w)*int(h) + 1) / 2
	return &FlowField{W: w, H: h, dirs: make([]byte, n)}
}

func (f *FlowField) flatIdx(r, c int32) int { return int(r)*int(f.W) + int(c) }

// At returns the packed direction at (r, c).
func (f *FlowField) At(r, c int32) Dir4 {
	i := f.flatIdx(r, c)
	b := f.dirs[i/2]
	if i%2 == 0 {
		return Dir4(b & 0x0F)
	}
	return Dir4(b >> 4)
}

// Set stores the packed direction at (r, c).
func (f *FlowField) Set(r, c int32, d Dir4) {
	i := f.flatIdx(r, c)
	bi := i / 2
	if i%2 == 0 {
		f.dirs[bi] = (f.dirs[bi] &^ 0x0F) | byte(d)
	} else {
		f.dirs[bi] = (f.dirs[bi] &^ 0xF0) | (byte(d) << 4)
	}
}

// LOSField holds per-cell visibility and wavefront-blocked bits (§3 "LOS
// field").
type LOSField struct {
	W, H            int32
	visible         []bool
	wavefrontBlocked []bool
}

// NewLOSField allocates an all-invisible LOS field of w*h cells.
func NewLOSField(w, h int32) *LOSField {
	n := int(w) * int(h)
	return &LOSField{W: w, H: h, visible: make([]bool, n), wavefrontBlocked: make([]bool, n)}
}

func (f *LOSField) idx(r, c int32) int { return int(r)*int(f.W) + int(c) }

func (f *LOSField) Visible(r, c int32) bool {
	if r < 0 || r >= f.H || c < 0 || c >= f.W {
		return false
	}
	return f.visible[f.idx(r, c)]
}

func (f *LOSField) WavefrontBlocked(r, c int32) bool {
	if r < 0 || r >= f.H || c < 0 || c >= f.W {
		return false
	}
	return f.wavefrontBlocked[f.idx(r, c)]
}

// TargetKind tags the closed Target sum type (§3 "Field target").
type TargetKind uint8

const (
	KindTile TargetKind = iota
	KindPortal
	KindPortalMask
	KindEnemies
	KindEntity
	KindCellArrival
	KindRecovery
)

// Target is a tagged variant over the kinds of field goal listed under
// TargetKind. Each kind supplies its Kind tag and its FieldID cache key;
// the construction algorithms themselves are separate builder functions
// (BuildIntegration, BuildPaddedSeek, BuildLOS, BuildCellArrival,
// BuildToNearestPathable), not methods of Target.
type Target interface {
	Kind() TargetKind
	// FieldID returns the 64-bit cache key this target maps to when
	// built against the given chunk and layer (§6).
	FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID
}

// TileTarget seeks a single tile, e.g. an agent's final destination.
type TileTarget struct {
	Tile navgrid.TileDesc
}

func (TileTarget) Kind() TargetKind { return KindTile }

func (t TileTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackTile(layer, chunk, t.Tile.TileR, t.Tile.TileC)
}

// PortalTarget seeks a specific portal, used when routing hop-by-hop
// along a portal-graph route.
type PortalTarget struct {
	Portal    *navgrid.Portal
	PrevIID   uint16
	NextIID   uint16
}

func (PortalTarget) Kind() TargetKind { return KindPortal }

func (t PortalTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackPortal(layer, chunk, uint8(t.NextIID), uint8(t.PrevIID), t.Portal.TileR0, t.Portal.TileC0, t.Portal.TileR1, t.Portal.TileC1)
}

// PortalMaskTarget seeks any portal whose bit is set in Mask, used when
// several portals of a route hop are simultaneously acceptable.
type PortalMaskTarget struct {
	Mask uint64
}

func (PortalMaskTarget) Kind() TargetKind { return KindPortalMask }

func (t PortalMaskTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackPortalMask(layer, chunk, t.Mask)
}

// EnemiesTarget seeks the nearest enemy of Faction, built over a padded
// region (§4.4 "Enemy-seek / entity-seek fields").
type EnemiesTarget struct {
	Faction uint8
}

func (EnemiesTarget) Kind() TargetKind { return KindEnemies }

func (t EnemiesTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackEnemies(layer, chunk, t.Faction)
}

// EntityTarget seeks a specific moving entity by UID, built over a padded
// region the same way as EnemiesTarget.
type EntityTarget struct {
	UID uint32
}

func (EntityTarget) Kind() TargetKind { return KindEntity }

func (t EntityTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackEntity(layer, chunk, t.UID)
}

// CellArrivalTarget seeks a single formation cell's tile, built over the
// region form §4.4's "Cell-arrival field" describes (a rectangle centered
// on the formation's field center, can straddle chunks). FlockID
// distinguishes two formations whose cells happen to land on the same
// tile, which would otherwise collide with each other under a bare
// TileTarget-style key.
type CellArrivalTarget struct {
	FlockID uint32
	Tile    navgrid.TileDesc
}

func (CellArrivalTarget) Kind() TargetKind { return KindCellArrival }

func (t CellArrivalTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackCellArrival(layer, chunk, t.FlockID, t.Tile.TileR, t.Tile.TileC)
}

// RecoveryTarget seeks the nearest passable terrain from a tile stuck
// inside an impassable component (§7's update_to_nearest_pathable). It
// packs the same (tile_r, tile_c) specific bits as TileTarget but under a
// distinct Kind, so a recovery field never aliases the plain destination
// field already cached for the same stuck tile.
type RecoveryTarget struct {
	Tile navgrid.TileDesc
}

func (RecoveryTarget) Kind() TargetKind { return KindRecovery }

func (t RecoveryTarget) FieldID(layer navgrid.Layer, chunk navgrid.ChunkCoord) FieldID {
	return PackRecovery(layer, chunk, t.Tile.TileR, t.Tile.TileC)
}
