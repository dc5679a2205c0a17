package renderer

// VertexCompression selects which of the three bake-time vertex layouts a
// mesh was baked with. The runtime vertex-skinning kernel is agnostic to the
// choice — it only needs to know the stride and attribute formats to read.
type VertexCompression int

const (
	// VertexCompressionHigh is the 32-byte layout: SNorm8 normal/tangent,
	// Float16 position, UNorm16 UV, UNorm16 bone coordinates.
	VertexCompressionHigh VertexCompression = iota
	// VertexCompressionLow is the 64-byte layout: SNorm16 normal/tangent,
	// Float32 position, UNorm16 bone coordinates.
	VertexCompressionLow
	// VertexCompressionNone is the 80-byte layout: Float32 everything,
	// including bone coordinates.
	VertexCompressionNone
)

// Stride returns the per-vertex byte size of the layout.
func (v VertexCompression) Stride() int {
	switch v {
	case VertexCompressionHigh:
		return 32
	case VertexCompressionLow:
		return 64
	default:
		return 80
	}
}

// ShadowMapConfig bundles the directional-light orthographic shadow-map
// constants a consumer standing up the shadow *pass* itself needs (texture
// resolution, frustum half-extent/near/far, depth and normal bias). The
// instancing core only reads Config.ShadowDistance/ShadowLodOffset above —
// these are companion knobs, not read by Cull/Sort/Compact/SetDrawArgs.
type ShadowMapConfig struct {
	Resolution      int
	HalfExtent      float32
	Near            float32
	Far             float32
	Bias            float32
	NormalBiasScale float32
}

// Default shadow-map constants, applied by NewConfig before opts run.
const (
	DefaultShadowMapResolution       = 2048
	DefaultShadowHalfExtent  float32 = 40.0
	DefaultShadowNear        float32 = 0.1
	DefaultShadowFar         float32 = 200.0
	DefaultShadowBias        float32 = 0.001
	DefaultShadowNormalBias  float32 = 3.0
)

// Config holds the renderer-wide, scene-independent knobs the frame pipeline
// reads every frame: whether the shadow pass runs at all, how far it reaches,
// the LOD bias applied to every instance's screen-height test, and which
// vertex layout the active bake artifacts use. Assembled via the functional-
// option builder idiom (With*), matching renderer_builder.go/camera_builder.go.
type Config struct {
	ShadowsEnabled    bool
	ShadowDistance    float32
	LodBias           float32
	VertexCompression VertexCompression
	// ShadowLodOffset is added to an instance's camera-pass LOD index to pick
	// its shadow-pass LOD, clamped to the mesh's LodCount-1. A positive offset
	// renders coarser LODs into the shadow map than into the camera view.
	ShadowLodOffset int
	// ShadowMap carries the shadow-pass's own texture/frustum/bias constants,
	// independent of whether the instancing core's culling reads them.
	ShadowMap ShadowMapConfig
}

// DefaultShadowDistance is the distance beyond which the shadow pass stops
// considering an instance, when shadows are enabled.
const DefaultShadowDistance float32 = 100.0

// DefaultLodBias is the neutral LOD bias: no distance stretching or
// compression applied to the screen-height test.
const DefaultLodBias float32 = 1.0

// NewConfig returns a Config with shadows disabled, the default LOD bias, and
// the highest-fidelity (80-byte, uncompressed) vertex layout, then applies opts.
func NewConfig(opts ...ConfigOption) Config {
	c := Config{
		ShadowsEnabled:    false,
		ShadowDistance:    DefaultShadowDistance,
		LodBias:           DefaultLodBias,
		VertexCompression: VertexCompressionNone,
		ShadowLodOffset:   0,
		ShadowMap: ShadowMapConfig{
			Resolution:      DefaultShadowMapResolution,
			HalfExtent:      DefaultShadowHalfExtent,
			Near:            DefaultShadowNear,
			Far:             DefaultShadowFar,
			Bias:            DefaultShadowBias,
			NormalBiasScale: DefaultShadowNormalBias,
		},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ConfigOption is a functional option applied to a Config during construction via NewConfig.
type ConfigOption func(*Config)

// WithShadows enables the shadow pass and sets its reach in world units.
//
// Parameters:
//   - distance: the shadow distance gate, in world units
//
// Returns:
//   - ConfigOption: a function that applies the shadow option to a Config
func WithShadows(distance float32) ConfigOption {
	return func(c *Config) {
		c.ShadowsEnabled = true
		c.ShadowDistance = distance
	}
}

// WithLodBias sets the multiplier applied to every instance's camera distance
// before the LOD screen-height test; values above 1.0 push coarser LODs
// closer to the camera, values below 1.0 hold finer LODs further out.
//
// Parameters:
//   - bias: the LOD bias multiplier
//
// Returns:
//   - ConfigOption: a function that applies the LOD bias option to a Config
func WithLodBias(bias float32) ConfigOption {
	return func(c *Config) {
		c.LodBias = bias
	}
}

// WithVertexCompression sets which bake-time vertex layout the active
// artifacts use.
//
// Parameters:
//   - compression: the vertex layout the bake artifacts were produced with
//
// Returns:
//   - ConfigOption: a function that applies the vertex compression option to a Config
func WithVertexCompression(compression VertexCompression) ConfigOption {
	return func(c *Config) {
		c.VertexCompression = compression
	}
}

// WithShadowLodOffset sets how many LOD steps coarser the shadow pass renders
// relative to the camera pass.
//
// Parameters:
//   - offset: additional LOD steps for the shadow pass
//
// Returns:
//   - ConfigOption: a function that applies the shadow LOD offset option to a Config
func WithShadowLodOffset(offset int) ConfigOption {
	return func(c *Config) {
		c.ShadowLodOffset = offset
	}
}

// WithShadowMap overrides the shadow pass's own texture/frustum/bias
// constants. A consumer standing up the directional-light shadow pass itself
// uses these; the instancing core never reads them.
//
// Parameters:
//   - shadowMap: the shadow-map configuration to apply
//
// Returns:
//   - ConfigOption: a function that applies the shadow map option to a Config
func WithShadowMap(shadowMap ShadowMapConfig) ConfigOption {
	return func(c *Config) {
		c.ShadowMap = shadowMap
	}
}
