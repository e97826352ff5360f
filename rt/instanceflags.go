// Package rt holds the ray-tracing acceleration-structure policy: one
// BLAS per render primitive, refit in place for
// skinned/morphed geometry and rebuilt for everything else, and one TLAS
// over the scene's render-node instances, refit when only transforms
// moved and rebuilt when the visible-instance count changed. The
// pure/testable policy (instance-flag derivation, scratch-memory
// batching, rebuild-vs-refit decisions) lives in this package's non-cgo
// files; vulkan/raytracing.go does the actual device work.
package rt

import "vkgltfscene/asset"

// InstanceFlags is the derived VkGeometryInstanceFlagsKHR-equivalent
// for one TLAS instance.
type InstanceFlags struct {
	ForceOpaque bool // VK_GEOMETRY_INSTANCE_FORCE_OPAQUE_BIT_KHR
	CullDisable bool // VK_GEOMETRY_INSTANCE_TRIANGLE_FACING_CULL_DISABLE_BIT_KHR
}

// DeriveInstanceFlags derives a material's TLAS instance flags:
// force-opaque iff the material is fully opaque with no transmission of
// any kind, and cull-disable iff the surface can be seen from either side
// (double-sided, or refraction-relevant: non-zero volume thickness or
// transmission).
func DeriveInstanceFlags(m asset.Material) InstanceFlags {
	forceOpaque := m.AlphaMode == asset.AlphaOpaque &&
		m.TransmissionFactor == 0 &&
		m.DiffuseTransmission.Factor == 0
	cullDisable := m.DoubleSided ||
		m.ThicknessFactor > 0 ||
		m.TransmissionFactor > 0
	return InstanceFlags{ForceOpaque: forceOpaque, CullDisable: cullDisable}
}

// InstanceMask is the per-instance ray visibility mask:
// 0x01 when visible, 0x00 (never hit by any ray) when the render node is
// currently invisible — cheaper than removing and re-adding the instance
// on every visibility toggle.
func InstanceMask(visible bool) uint8 {
	if visible {
		return 0x01
	}
	return 0x00
}

// AccelerationStructureReference returns 0 for an invisible instance (a
// zero reference is defined by the ray tracing extension to never
// intersect), otherwise blasAddress unchanged. Zeroing the reference
// rather than dropping the row keeps the instance array's size and
// custom indices stable across visibility toggles.
func AccelerationStructureReference(visible bool, blasAddress uint64) uint64 {
	if !visible {
		return 0
	}
	return blasAddress
}
