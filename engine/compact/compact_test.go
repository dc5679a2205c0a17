package compact

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-render/crowdgpu/internal/compress"
)

func TestCompactSkipsSentinelsAndPreservesOrder(t *testing.T) {
	entries := map[uint32]Entry{
		0: {Transform: compress.CompressTransform(mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent(), 1), AnimationIndex: 1, AnimationTime: 0.1},
		2: {Transform: compress.CompressTransform(mgl32.Vec3{0, 2, 0}, mgl32.QuatIdent(), 1), AnimationIndex: 2, AnimationTime: 0.2},
		5: {Transform: compress.CompressTransform(mgl32.Vec3{0, 0, 3}, mgl32.QuatIdent(), 1), AnimationIndex: 3, AnimationTime: 0.3},
	}

	keys := []uint32{
		(0 << 12) | 1,
		SentinelKey,
		(2 << 12) | 1,
		(5 << 12) | 2,
	}

	out := Compact(keys, func(idx uint32) Entry { return entries[idx] })

	require.Len(t, out, 3, "the sentinel must not produce an output slot")
	assert.Equal(t, uint32(1), out[0].AnimationIndex)
	assert.InDelta(t, 0.1, out[0].AnimationTime, 1e-6)
	assert.InDelta(t, 0.2, out[1].AnimationTime, 1e-6)
	assert.InDelta(t, 0.3, out[2].AnimationTime, 1e-6)
}

func TestCompactInvertsModelMatrix(t *testing.T) {
	entries := map[uint32]Entry{
		0: {Transform: compress.CompressTransform(mgl32.Vec3{3, -1, 2}, mgl32.QuatIdent(), 2)},
	}
	keys := []uint32{0 << 12}

	out := Compact(keys, func(idx uint32) Entry { return entries[idx] })
	require.Len(t, out, 1)

	model := expand4x3(out[0].Model)
	inv := expand4x3(out[0].ModelInverse)

	product := model.Mul4(inv)
	identity := mgl32.Ident4()
	for i := range product {
		assert.InDelta(t, identity[i], product[i], 1e-3, "model * model_inverse must be ~identity at index %d", i)
	}
}

func expand4x3(m [12]float32) mgl32.Mat4 {
	var out mgl32.Mat4
	for col := 0; col < 4; col++ {
		out[col*4+0] = m[col*3+0]
		out[col*4+1] = m[col*3+1]
		out[col*4+2] = m[col*3+2]
		out[col*4+3] = 0
	}
	out[15] = 1
	return out
}

func TestWorkGroupCountRoundsUp(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 1, 1}, WorkGroupCount(1))
	assert.Equal(t, [3]uint32{1, 1, 1}, WorkGroupCount(64))
	assert.Equal(t, [3]uint32{2, 1, 1}, WorkGroupCount(65))
}
