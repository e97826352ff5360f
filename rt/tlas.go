package rt

import (
	"vkgltfscene/math"
	"vkgltfscene/scene"
)

// ShouldRebuildTLAS decides the TLAS update mode: a refit
// (VK_BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR) is valid only when the
// instance count is unchanged; any change in how many instances are
// visible forces a full rebuild, since a refit cannot add or remove
// instance rows.
func ShouldRebuildTLAS(previousVisibleCount, currentVisibleCount int) bool {
	return previousVisibleCount != currentVisibleCount
}

// CountVisible reports how many render nodes are currently visible, the
// number ShouldRebuildTLAS compares frame to frame.
func CountVisible(nodes []scene.RenderNode) int {
	n := 0
	for _, rn := range nodes {
		if rn.Visible {
			n++
		}
	}
	return n
}

// BuildInstanceRow packs one render node into the TLAS instance wire
// layout's logical fields (the vulkan package's InstanceData handles the
// final byte packing); blasAddresses is indexed by RenderPrimID.
func BuildInstanceRow(rn scene.RenderNode, material InstanceFlags, blasAddresses []uint64) (transform [12]float32, mask uint8, flags InstanceFlags, asRef uint64) {
	transform = rowMajor3x4(rn.WorldMatrix)
	mask = InstanceMask(rn.Visible)
	flags = material
	var blas uint64
	if rn.RenderPrimID >= 0 && rn.RenderPrimID < len(blasAddresses) {
		blas = blasAddresses[rn.RenderPrimID]
	}
	asRef = AccelerationStructureReference(rn.Visible, blas)
	return
}

// rowMajor3x4 drops m's bottom row (always [0,0,0,1] for an affine
// transform) into the 3x4 layout VkTransformMatrixKHR expects.
func rowMajor3x4(m math.Mat4) [12]float32 {
	var out [12]float32
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m[c][r]
		}
	}
	return out
}
