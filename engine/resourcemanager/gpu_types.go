package resourcemanager

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULodData is the GPU-aligned representation of one mesh's LOD table.
// Size: 32 bytes (std430 aligned).
type GPULodData struct {
	LodCount         uint32     // offset 0
	ScreenHeights    [5]float32 // offset 4
	ShadowLodIndices uint32     // offset 24: packed 3 bits per primary LOD
	_pad             uint32     // offset 28: pad to 32 bytes
}

// Size returns the size of the GPULodData struct in bytes.
func (g *GPULodData) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPULodData struct into a byte buffer suitable for GPU upload.
func (g *GPULodData) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], g.LodCount)
	for i := range g.ScreenHeights {
		binary.LittleEndian.PutUint32(buf[4+i*4:8+i*4], math.Float32bits(g.ScreenHeights[i]))
	}
	binary.LittleEndian.PutUint32(buf[24:28], g.ShadowLodIndices)
	binary.LittleEndian.PutUint32(buf[28:32], 0) // _pad
	return buf
}

// GPUAnimationData is the GPU-aligned representation of one animation clip's
// bounds and atlas region. Size: 48 bytes (std430 aligned).
type GPUAnimationData struct {
	BoundsCenter  [3]float32 // offset 0
	_pad0         float32    // offset 12
	BoundsExtents [3]float32 // offset 16
	_pad1         float32    // offset 28
	TexRegionMin  [2]float32 // offset 32
	TexRegionMax  [2]float32 // offset 40
}

// Size returns the size of the GPUAnimationData struct in bytes.
func (g *GPUAnimationData) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPUAnimationData struct into a byte buffer suitable for GPU upload.
func (g *GPUAnimationData) Marshal() []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.BoundsCenter[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.BoundsCenter[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.BoundsCenter[2]))
	binary.LittleEndian.PutUint32(buf[12:16], 0) // _pad0
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.BoundsExtents[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.BoundsExtents[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.BoundsExtents[2]))
	binary.LittleEndian.PutUint32(buf[28:32], 0) // _pad1
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.TexRegionMin[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.TexRegionMin[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.TexRegionMax[0]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.TexRegionMax[1]))
	return buf
}

// GPUInstanceTypeData is one packed u32 per instance-type: the high 16 bits
// hold the draw-call count owned by this type, the low 16 bits hold the base
// index into DrawArgs where its slots begin.
type GPUInstanceTypeData uint32

// PackInstanceTypeData packs a draw-call count and draw-args base index into
// a GPUInstanceTypeData word.
func PackInstanceTypeData(drawCallCount, drawArgsBase uint32) GPUInstanceTypeData {
	return GPUInstanceTypeData(drawCallCount<<16 | (drawArgsBase & 0xFFFF))
}

// DrawCallCount unpacks the draw-call count.
func (d GPUInstanceTypeData) DrawCallCount() uint32 { return uint32(d) >> 16 }

// DrawArgsBase unpacks the base index into DrawArgs.
func (d GPUInstanceTypeData) DrawArgsBase() uint32 { return uint32(d) & 0xFFFF }

// Size returns the size of one GPUInstanceTypeData element in bytes.
func (d GPUInstanceTypeData) Size() int { return 4 }

// Marshal serializes the GPUInstanceTypeData word into a 4-byte buffer.
func (d GPUInstanceTypeData) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(d))
	return buf
}

// GPUInstanceData is the GPU-aligned per-instance record the culling pass
// consumes: a compressed transform plus the indices that route the instance
// into its instance-type's bins. Size: 48 bytes (std430 aligned).
type GPUInstanceData struct {
	Position           [3]float32 // offset 0: CompressedTransform.position
	RotationPacked     uint32     // offset 12: CompressedTransform.rotation_packed (smallest-three)
	Scale              float32    // offset 16: CompressedTransform.scale
	LodIndexIntoType   uint32     // offset 20: row index into this instance's mesh's LodData entry, read by the culling kernel to select the LOD itself
	CountBaseIndex     uint32     // offset 24: base bin index for this instance's type
	AnimationBaseIndex uint32     // offset 28: base row into the animation texture atlas
	AnimationIndex     uint32     // offset 32: clip index within the instance's animation set
	AnimationTime      float32    // offset 36: normalized phase in [0, 1)
	_pad               [2]uint32  // offset 40: pad to 48 bytes
}

// Size returns the size of the GPUInstanceData struct in bytes.
func (g *GPUInstanceData) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPUInstanceData struct into a byte buffer suitable for GPU upload.
func (g *GPUInstanceData) Marshal() []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], g.RotationPacked)
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Scale))
	binary.LittleEndian.PutUint32(buf[20:24], g.LodIndexIntoType)
	binary.LittleEndian.PutUint32(buf[24:28], g.CountBaseIndex)
	binary.LittleEndian.PutUint32(buf[28:32], g.AnimationBaseIndex)
	binary.LittleEndian.PutUint32(buf[32:36], g.AnimationIndex)
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.AnimationTime))
	binary.LittleEndian.PutUint32(buf[40:44], 0) // _pad[0]
	binary.LittleEndian.PutUint32(buf[44:48], 0) // _pad[1]
	return buf
}

// GPUInstanceProperties is the dense, post-compaction per-instance record:
// a 3x4 model matrix, its 3x4 inverse, and the instance's animation phase.
// Size: 112 bytes (std430 aligned).
type GPUInstanceProperties struct {
	Model         [12]float32 // offset 0: 3x4 row-major, no projective row
	ModelInverse  [12]float32 // offset 48: 3x4 row-major
	AnimationIndex uint32     // offset 96
	AnimationTime  float32    // offset 100
	_pad           [2]uint32  // offset 104: pad to 112 bytes
}

// Size returns the size of the GPUInstanceProperties struct in bytes.
func (g *GPUInstanceProperties) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPUInstanceProperties struct into a byte buffer suitable for GPU upload.
func (g *GPUInstanceProperties) Marshal() []byte {
	buf := make([]byte, 112)
	off := 0
	for i := range g.Model {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(g.Model[i]))
		off += 4
	}
	for i := range g.ModelInverse {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(g.ModelInverse[i]))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[96:100], g.AnimationIndex)
	binary.LittleEndian.PutUint32(buf[100:104], math.Float32bits(g.AnimationTime))
	binary.LittleEndian.PutUint32(buf[104:108], 0) // _pad[0]
	binary.LittleEndian.PutUint32(buf[108:112], 0) // _pad[1]
	return buf
}

// GPUDrawArgs is one DrawIndexedIndirect argument block. Size: 20 bytes,
// matching the indirect-draw layout exactly (no padding).
type GPUDrawArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	IndexStart    uint32
	BaseVertex    uint32
	InstanceStart uint32
}

// Size returns the size of the GPUDrawArgs struct in bytes.
func (g *GPUDrawArgs) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPUDrawArgs struct into a byte buffer suitable for GPU upload.
func (g *GPUDrawArgs) Marshal() []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], g.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.IndexStart)
	binary.LittleEndian.PutUint32(buf[12:16], g.BaseVertex)
	binary.LittleEndian.PutUint32(buf[16:20], g.InstanceStart)
	return buf
}
