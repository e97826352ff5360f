// Package vulkan is the cgo device layer of the scene engine: buffers
// with device addresses, single-time command buffers, the
// VK_KHR_acceleration_structure build/refit path, and the SceneDevice
// wrapper that uploads a gpu.Mirror and keeps its acceleration
// structures current. Rasterization and presentation are out of scope;
// the layer runs headless.
package vulkan

// #cgo windows LDFLAGS: -lvulkan-1
// #cgo linux LDFLAGS: -lvulkan
// #cgo darwin LDFLAGS: -framework MoltenVK
// #include <vulkan/vulkan.h>
import "C"

// VulkanVersion12 is the minimum instance API version: buffer device
// addresses are core in 1.2, and the acceleration-structure extension
// requires them.
const VulkanVersion12 = C.VK_API_VERSION_1_2

// RequiredDeviceExtensions lists the device extensions the engine needs:
// the ray-tracing pair, its deferred-host-operations dependency, and
// buffer device addresses for the table/geometry pointers the scene
// descriptor publishes.
func RequiredDeviceExtensions() []string {
	return []string{
		C.VK_KHR_ACCELERATION_STRUCTURE_EXTENSION_NAME,
		C.VK_KHR_RAY_TRACING_PIPELINE_EXTENSION_NAME,
		C.VK_KHR_DEFERRED_HOST_OPERATIONS_EXTENSION_NAME,
		C.VK_KHR_BUFFER_DEVICE_ADDRESS_EXTENSION_NAME,
	}
}
