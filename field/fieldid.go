package field

import (
	"strconv"

	"github.com/Mu-L/permafrost-engine/navgrid"
)

// FieldID is the 64-bit cache key packing defined in §6:
// [layer:4][target_type:4][target_specific:40][chunk_r:8][chunk_c:8].
type FieldID uint64

const (
	chunkBits  = 8
	targetBits = 40
	typeBits   = 4
	layerBits  = 4

	chunkMask  = uint64(1)<<chunkBits - 1
	targetMask = uint64(1)<<targetBits - 1
	typeMask   = uint64(1)<<typeBits - 1
	layerMask  = uint64(1)<<layerBits - 1
)

func pack(layer navgrid.Layer, kind TargetKind, specific uint64, chunk navgrid.ChunkCoord) FieldID {
	var id uint64
	id |= uint64(chunk.C) & chunkMask
	id |= (uint64(chunk.R) & chunkMask) << chunkBits
	id |= (specific & targetMask) << (2 * chunkBits)
	id |= (uint64(kind) & typeMask) << (2*chunkBits + targetBits)
	id |= (uint64(layer) & layerMask) << (2*chunkBits + targetBits + typeBits)
	return FieldID(id)
}

// Layer extracts the navigation layer this field id was built for.
func (id FieldID) Layer() navgrid.Layer {
	return navgrid.Layer((uint64(id) >> (2*chunkBits + targetBits + typeBits)) & layerMask)
}

// Kind extracts the target-type tag.
func (id FieldID) Kind() TargetKind {
	return TargetKind((uint64(id) >> (2*chunkBits + targetBits)) & typeMask)
}

// Chunk extracts the chunk coordinate the field was built for.
func (id FieldID) Chunk() navgrid.ChunkCoord {
	raw := uint64(id)
	return navgrid.ChunkCoord{
		C: int32(raw & chunkMask),
		R: int32((raw >> chunkBits) & chunkMask),
	}
}

func (id FieldID) specific() uint64 {
	return (uint64(id) >> (2 * chunkBits)) & targetMask
}

// String renders the id as a hex string, suitable as a singleflight key.
func (id FieldID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// PackTile builds the field id for a Tile(td) target: target-specific
// bits hold (tile_r, tile_c), per §6.
func PackTile(layer navgrid.Layer, chunk navgrid.ChunkCoord, tileR, tileC int32) FieldID {
	specific := (uint64(uint32(tileR)) << 20) | uint64(uint32(tileC))&0xFFFFF
	return pack(layer, KindTile, specific, chunk)
}

// TileOf recovers the (tile_r, tile_c) target-specific bits from a tile
// field id.
func (id FieldID) TileOf() (r, c int32) {
	s := id.specific()
	return int32(s >> 20), int32(s & 0xFFFFF)
}

// PackPortal builds the field id for a Portal target: target-specific
// bits hold (next_iid:4, port_iid:4, r0:6, c0:6, r1:6, c1:6), per §6.
func PackPortal(layer navgrid.Layer, chunk navgrid.ChunkCoord, nextIID, portIID uint8, r0, c0, r1, c1 int32) FieldID {
	specific := uint64(nextIID&0xF)<<36 |
		uint64(portIID&0xF)<<32 |
		uint64(uint32(r0)&0x3F)<<26 |
		uint64(uint32(c0)&0x3F)<<20 |
		uint64(uint32(r1)&0x3F)<<14 |
		uint64(uint32(c1)&0x3F)<<8
	return pack(layer, KindPortal, specific, chunk)
}

// PackPortalMask builds the field id for a PortalMask target.
func PackPortalMask(layer navgrid.Layer, chunk navgrid.ChunkCoord, mask uint64) FieldID {
	return pack(layer, KindPortalMask, mask, chunk)
}

// PackEnemies builds the field id for an Enemies(faction) target.
func PackEnemies(layer navgrid.Layer, chunk navgrid.ChunkCoord, faction uint8) FieldID {
	return pack(layer, KindEnemies, uint64(faction), chunk)
}

// EnemiesFactionOf recovers the faction id from an Enemies field id.
func (id FieldID) EnemiesFactionOf() uint8 {
	return uint8(id.specific())
}

// PackEntity builds the field id for an Entity(uid) target.
func PackEntity(layer navgrid.Layer, chunk navgrid.ChunkCoord, uid uint32) FieldID {
	return pack(layer, KindEntity, uint64(uid), chunk)
}

// EntityUIDOf recovers the target uid from an Entity field id.
func (id FieldID) EntityUIDOf() uint32 {
	return uint32(id.specific())
}

// PackCellArrival builds the field id for a CellArrival(flockID, tile)
// target: target-specific bits hold flockID truncated to 24 bits plus
// (tile_r, tile_c), each 8 bits — ample for the cell-arrival region's
// typical 96x96 extent.
func PackCellArrival(layer navgrid.Layer, chunk navgrid.ChunkCoord, flockID uint32, tileR, tileC int32) FieldID {
	specific := (uint64(flockID)&0xFFFFFF)<<16 | (uint64(uint32(tileR))&0xFF)<<8 | uint64(uint32(tileC))&0xFF
	return pack(layer, KindCellArrival, specific, chunk)
}

// PackRecovery builds the field id for a Recovery(tile) target: the same
// (tile_r, tile_c) specific-bit layout as PackTile, distinguished from a
// plain TileTarget only by Kind so the two never alias the same cache
// slot for the same stuck tile.
func PackRecovery(layer navgrid.Layer, chunk navgrid.ChunkCoord, tileR, tileC int32) FieldID {
	specific := (uint64(uint32(tileR)) << 20) | uint64(uint32(tileC))&0xFFFFF
	return pack(layer, KindRecovery, specific, chunk)
}
