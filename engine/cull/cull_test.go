package cull

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSelectLODPicksNearestBand(t *testing.T) {
	screenHeights := []float32{0.5, 0.25, 0.1}

	lod, culled := SelectLOD(1, 1, 1, 1, screenHeights, 3)
	assert.False(t, culled)
	assert.Equal(t, 0, lod, "close enough that no screen-height threshold is crossed")

	lod, culled = SelectLOD(6, 1, 1, 1, screenHeights, 3)
	assert.False(t, culled)
	assert.Equal(t, 2, lod)

	_, culled = SelectLOD(1000, 1, 1, 1, screenHeights, 3)
	assert.True(t, culled, "distance far beyond the last LOD's threshold must cull")
}

func TestSelectLODMonotoneBoundary(t *testing.T) {
	// Property 2: boundaries are inclusive-low. lod_factor/screen_heights[k] is
	// the exact transition distance between LOD k and k+1.
	screenHeights := []float32{0.5, 0.25}
	lodFactor := float32(1) // lodScale * maxExtent, both 1 here

	boundary := lodFactor / screenHeights[0]
	lod, culled := SelectLOD(boundary, 1, 1, 1, screenHeights, 2)
	assert.False(t, culled)
	assert.Equal(t, 1, lod, "exactly at the boundary must select the further LOD")

	justBelow, culled := SelectLOD(boundary-0.001, 1, 1, 1, screenHeights, 2)
	assert.False(t, culled)
	assert.Equal(t, 0, justBelow)
}

func TestFrustumVisibleInsideView(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	mvp := proj.Mul4(view)

	assert.True(t, FrustumVisible(mvp, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0.5, 0.5, 0.5}))
}

func TestFrustumVisibleOutsideView(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	mvp := proj.Mul4(view)

	assert.False(t, FrustumVisible(mvp, mgl32.Vec3{1000, 0, 0}, mgl32.Vec3{0.5, 0.5, 0.5}))
}

func TestInsideBoundsForcesVisible(t *testing.T) {
	center := mgl32.Vec3{0, 0, 0}
	extents := mgl32.Vec3{1, 1, 1}

	assert.True(t, InsideBounds(mgl32.Vec3{0.5, 0, 0}, center, extents, 1))
	assert.False(t, InsideBounds(mgl32.Vec3{5, 0, 0}, center, extents, 1))
}

func TestInsideBoundsDegenerateExtentsAlwaysVisible(t *testing.T) {
	center := mgl32.Vec3{3, 3, 3}
	extents := mgl32.Vec3{0, 0, 0}

	assert.True(t, InsideBounds(mgl32.Vec3{0, 0, 0}, center, extents, 1), "zero-extent bounds are always-visible per edge policy")
}

func TestWorkGroupCountRoundsUp(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 1, 1}, WorkGroupCount(1))
	assert.Equal(t, [3]uint32{1, 1, 1}, WorkGroupCount(64))
	assert.Equal(t, [3]uint32{2, 1, 1}, WorkGroupCount(65))
	assert.Equal(t, [3]uint32{1, 1, 1}, WorkGroupCount(0))
}
