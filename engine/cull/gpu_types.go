package cull

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// SourceCull is the WGSL compute kernel for the culling pass: frustum test,
// LOD selection, and atomic bin increment, matched bit-exactly against
// GPUGlobalData and the resourcemanager buffer layouts.
//
//go:embed assets/cull.wgsl
var SourceCull string

// GPUGlobalData is the per-frame uniform the culling pass reads: camera
// transform, LOD parameters, and the shadow-pass toggle. Size: 112 bytes
// (std430 aligned).
type GPUGlobalData struct {
	ViewProj        [16]float32 // offset 0, size 64
	CameraPosition  [3]float32  // offset 64
	LodScale        float32     // offset 76
	LodBias         float32     // offset 80
	ShadowDistance  float32     // offset 84
	InstanceCount   uint32      // offset 88
	ShadowsEnabled  uint32      // offset 92: 0 or 1
	CullingDisabled uint32      // offset 96: 0 or 1 — force every instance visible at LOD 0
	_pad            [3]uint32   // offset 100: pad to 112 bytes
}

// Size returns the size of the GPUGlobalData struct in bytes.
func (g *GPUGlobalData) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPUGlobalData struct into a byte buffer suitable for GPU upload.
func (g *GPUGlobalData) Marshal() []byte {
	buf := make([]byte, 112)
	off := 0
	for i := range g.ViewProj {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(g.ViewProj[i]))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(g.CameraPosition[0]))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(g.CameraPosition[1]))
	binary.LittleEndian.PutUint32(buf[72:76], math.Float32bits(g.CameraPosition[2]))
	binary.LittleEndian.PutUint32(buf[76:80], math.Float32bits(g.LodScale))
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(g.LodBias))
	binary.LittleEndian.PutUint32(buf[84:88], math.Float32bits(g.ShadowDistance))
	binary.LittleEndian.PutUint32(buf[88:92], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[92:96], g.ShadowsEnabled)
	binary.LittleEndian.PutUint32(buf[96:100], g.CullingDisabled)
	for i := range g._pad {
		binary.LittleEndian.PutUint32(buf[100+i*4:104+i*4], 0)
	}
	return buf
}

// ThreadGroupSize is the culling kernel's thread-group width; one group
// handles 64 instances.
const ThreadGroupSize = 64

// WorkGroupCount returns the dispatch size for instanceCount instances.
func WorkGroupCount(instanceCount uint32) [3]uint32 {
	groups := (instanceCount + ThreadGroupSize - 1) / ThreadGroupSize
	if groups == 0 {
		groups = 1
	}
	return [3]uint32{groups, 1, 1}
}
