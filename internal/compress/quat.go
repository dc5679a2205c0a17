// Package compress implements the smallest-three quaternion compression used
// to pack a per-instance rotation into a single u32, and the CompressedTransform
// envelope (position + packed rotation + uniform scale) that is the on-GPU
// representation of an instance's transform.
//
// Smallest-three: two bits record which of the four quaternion components was
// dropped (the one with the largest magnitude, so the remaining three are all
// bounded in [-1/sqrt2, 1/sqrt2] and the dropped one can be reconstructed as
// sqrt(1 - dot(xyz, xyz)) with a positive sign). The remaining three components
// are quantized to 10 bits each, mapped linearly from [-1, 1] to [0, 1023].
package compress

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const quatComponentBits = 10
const quatComponentMax = (1 << quatComponentBits) - 1 // 1023

// CompressedTransform is the GPU-packed representation of an instance's
// rigid transform: world position, a smallest-three-compressed rotation, and
// a uniform scale factor.
type CompressedTransform struct {
	Position       [3]float32
	RotationPacked uint32
	Scale          float32
}

// CompressQuat packs a unit quaternion into a u32 using the smallest-three
// scheme: 2 bits for the dropped-component index, 10 bits each for the three
// remaining components.
//
// Parameters:
//   - q: a unit quaternion (W, X, Y, Z)
//
// Returns:
//   - uint32: the packed rotation
func CompressQuat(q mgl32.Quat) uint32 {
	comps := [4]float32{q.W, q.V[0], q.V[1], q.V[2]}

	// Find the largest-magnitude component; it is dropped and recovered on
	// decode via sqrt(1 - dot(xyz, xyz)). Negate the whole quaternion if that
	// component is negative so the dropped component's sign is always positive
	// (a quaternion and its negation represent the same rotation).
	largest := 0
	for i := 1; i < 4; i++ {
		if math.Abs(float64(comps[i])) > math.Abs(float64(comps[largest])) {
			largest = i
		}
	}
	if comps[largest] < 0 {
		for i := range comps {
			comps[i] = -comps[i]
		}
	}

	var remaining [3]float32
	j := 0
	for i, c := range comps {
		if i == largest {
			continue
		}
		remaining[j] = c
		j++
	}

	var packed uint32
	packed |= uint32(largest) << 30
	for i, c := range remaining {
		q := quantize(c)
		shift := uint32(20 - i*10)
		packed |= uint32(q) << shift
	}
	return packed
}

// DecompressQuat unpacks a u32 produced by CompressQuat back into a unit
// quaternion.
//
// Parameters:
//   - packed: the packed rotation produced by CompressQuat
//
// Returns:
//   - mgl32.Quat: the reconstructed unit quaternion
func DecompressQuat(packed uint32) mgl32.Quat {
	dropped := int((packed >> 30) & 0x3)

	var remaining [3]float32
	for i := range remaining {
		shift := uint32(20 - i*10)
		q := uint16((packed >> shift) & quatComponentMax)
		remaining[i] = dequantize(q)
	}

	sumSq := float64(remaining[0])*float64(remaining[0]) +
		float64(remaining[1])*float64(remaining[1]) +
		float64(remaining[2])*float64(remaining[2])
	droppedVal := float32(0)
	if sumSq < 1 {
		droppedVal = float32(math.Sqrt(1 - sumSq))
	}

	var comps [4]float32
	j := 0
	for i := range comps {
		if i == dropped {
			comps[i] = droppedVal
			continue
		}
		comps[i] = remaining[j]
		j++
	}

	return mgl32.Quat{W: comps[0], V: mgl32.Vec3{comps[1], comps[2], comps[3]}}
}

// quantize maps a component in [-1, 1] to a 10-bit unsigned value in
// [0, 1023].
func quantize(v float32) uint16 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return uint16(math.Round(float64((v + 1) / 2 * quatComponentMax)))
}

// dequantize maps a 10-bit unsigned value in [0, 1023] back to [-1, 1].
func dequantize(q uint16) float32 {
	return float32(q)/quatComponentMax*2 - 1
}

// CompressTransform packs a world position, unit rotation, and uniform scale
// into a CompressedTransform.
//
// Parameters:
//   - pos: world-space position
//   - rot: unit rotation quaternion
//   - scale: uniform scale factor
//
// Returns:
//   - CompressedTransform: the packed transform
func CompressTransform(pos mgl32.Vec3, rot mgl32.Quat, scale float32) CompressedTransform {
	return CompressedTransform{
		Position:       [3]float32{pos[0], pos[1], pos[2]},
		RotationPacked: CompressQuat(rot),
		Scale:          scale,
	}
}

// Decompress unpacks a CompressedTransform back into a position, rotation,
// and scale.
//
// Returns:
//   - mgl32.Vec3: world-space position
//   - mgl32.Quat: unit rotation quaternion
//   - float32: uniform scale factor
func (c CompressedTransform) Decompress() (mgl32.Vec3, mgl32.Quat, float32) {
	pos := mgl32.Vec3{c.Position[0], c.Position[1], c.Position[2]}
	return pos, DecompressQuat(c.RotationPacked), c.Scale
}

// ModelMatrix builds the 4x4 world model matrix for this compressed
// transform (rotation, then uniform scale, then translation).
//
// Returns:
//   - mgl32.Mat4: the model matrix
func (c CompressedTransform) ModelMatrix() mgl32.Mat4 {
	pos, rot, scale := c.Decompress()
	m := rot.Mat4()
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] *= scale
		}
	}
	m[12], m[13], m[14] = pos[0], pos[1], pos[2]
	return m
}
