// Package rendererr defines the sentinel errors the renderer core returns.
// A failure that falls into one of these categories is wrapped with
// fmt.Errorf("...: %w", err) so callers can classify it with errors.Is
// without parsing a message string. Errors outside these categories (for
// example an unregistered mesh handle) carry no sentinel.
package rendererr

import "errors"

var (
	// ErrCapacityExceeded is returned when a registration would push a count
	// past its fixed limit: a mesh with lod_count outside [1,5] or
	// submesh_count > 5, or a provider whose bin reservation (2*lod_count
	// bins) would pass the scene's 2^11-bin limit, which also bounds the
	// number of instance types. The offending registration is rejected; the
	// renderer keeps its prior state. The total instance count is not
	// checked against a limit.
	ErrCapacityExceeded = errors.New("rendererr: capacity exceeded")

	// ErrPlatformUnsupported classifies a GPU backend that lacks a capability
	// the renderer uses (compute, indirect draw, instancing). No function in
	// this module returns it.
	ErrPlatformUnsupported = errors.New("rendererr: platform unsupported")

	// ErrMalformedBakeArtifact is returned when a bake artifact fails
	// validation (non-positive animation length, texture region out of
	// bounds, non-triangle-list topology, non-16-bit indices).
	ErrMalformedBakeArtifact = errors.New("rendererr: malformed bake artifact")

	// ErrResourceExhausted classifies a failed GPU buffer allocation. No
	// function in this module returns it.
	ErrResourceExhausted = errors.New("rendererr: resource exhausted")
)
