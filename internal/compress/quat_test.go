package compress

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxPerAxisError computes the largest per-component difference between two
// quaternions, accounting for the double-cover ambiguity (q and -q represent
// the same rotation).
func maxPerAxisError(a, b mgl32.Quat) float32 {
	direct := axisError(a, b)
	negated := axisError(a, mgl32.Quat{W: -b.W, V: mgl32.Vec3{-b.V[0], -b.V[1], -b.V[2]}})
	if negated < direct {
		return negated
	}
	return direct
}

func axisError(a, b mgl32.Quat) float32 {
	d := []float32{a.W - b.W, a.V[0] - b.V[0], a.V[1] - b.V[1], a.V[2] - b.V[2]}
	max := float32(0)
	for _, v := range d {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

func TestCompressQuatRoundTrip(t *testing.T) {
	cases := []mgl32.Quat{
		mgl32.QuatIdent(),
		mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 1, 0}),
		mgl32.QuatRotate(math.Pi/3, mgl32.Vec3{1, 0, 0}),
		mgl32.QuatRotate(2.3, mgl32.Vec3{1, 1, 1}.Normalize()),
	}

	for _, q := range cases {
		q = q.Normalize()
		packed := CompressQuat(q)
		got := DecompressQuat(packed)

		require.InDelta(t, float64(1), float64(got.Dot(got)), 1e-3, "decompressed quaternion must stay unit length")

		errRad := maxPerAxisError(q, got)
		assert.LessOrEqual(t, errRad, float32(2*math.Pi*math.Pow(2, -10)), "per-component error must stay within the smallest-three budget")
	}
}

func TestCompressQuatRandomSweep(t *testing.T) {
	// S6: 10^4 random unit quaternions through compress -> decompress; max
	// per-axis error must stay below 2^-9.
	seed := uint64(88172645463325252)
	next := func() float32 {
		// xorshift64 — deterministic, no math/rand dependency needed for a
		// reproducible sweep.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		return float32(seed%2000001)/1000000 - 1
	}

	var maxErr float32
	for i := 0; i < 10000; i++ {
		v := mgl32.Vec4{next(), next(), next(), next()}
		if v.Len() == 0 {
			continue
		}
		v = v.Normalize()
		q := mgl32.Quat{W: v[0], V: mgl32.Vec3{v[1], v[2], v[3]}}

		packed := CompressQuat(q)
		got := DecompressQuat(packed)
		if e := maxPerAxisError(q, got); e > maxErr {
			maxErr = e
		}
	}

	assert.Less(t, maxErr, float32(math.Pow(2, -9)))
}

func TestCompressedTransformModelMatrix(t *testing.T) {
	pos := mgl32.Vec3{1, 2, 3}
	rot := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0}).Normalize()
	scale := float32(2)

	ct := CompressTransform(pos, rot, scale)
	m := ct.ModelMatrix()

	assert.InDelta(t, float64(pos[0]), float64(m[12]), 1e-5)
	assert.InDelta(t, float64(pos[1]), float64(m[13]), 1e-5)
	assert.InDelta(t, float64(pos[2]), float64(m[14]), 1e-5)
}
