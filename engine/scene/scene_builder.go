package scene

import (
	"github.com/vantage-render/crowdgpu/engine/registry"
	"github.com/vantage-render/crowdgpu/engine/renderer"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithComputeWorkers sets the number of worker goroutines used during the
// parallel CPU prep phase of PrepareCompute. Defaults to runtime.NumCPU()-1.
// Higher values may improve throughput with many providers; lower values
// reduce scheduling overhead for simple scenes.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithCullingDisabled disables the culling kernel's frustum/distance tests for the scene.
// When set to true, every live instance is treated as visible at LOD 0
// regardless of camera distance or frustum containment. By default culling
// is enabled (disabled = false).
//
// Parameters:
//   - disabled: true to disable culling, false to enable it (default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithConfig sets the scene's renderer-wide frame pipeline configuration
// (shadow pass toggle/distance, LOD bias, vertex layout). Defaults to
// renderer.NewConfig() with no options applied.
//
// Parameters:
//   - cfg: the configuration to apply
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg renderer.Config) SceneBuilderOption {
	return func(s *scene) {
		s.config = cfg
	}
}

// WithPipelineKeyFunc sets the function DrawCalls uses to resolve each
// submesh's render pipeline from its mesh and material handles. Equivalent
// to calling SetPipelineKeyFunc after construction.
//
// Parameters:
//   - f: resolves a pipeline key from a mesh/material handle pair
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPipelineKeyFunc(f func(mesh registry.MeshHandle, material registry.MaterialHandle) string) SceneBuilderOption {
	return func(s *scene) {
		s.pipelineKeyFor = f
	}
}
