package vulkan

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>

typedef VkResult (*PFN_vkCreateAccelerationStructureKHR_t)(VkDevice, const VkAccelerationStructureCreateInfoKHR*, const VkAllocationCallbacks*, VkAccelerationStructureKHR*);
typedef void (*PFN_vkDestroyAccelerationStructureKHR_t)(VkDevice, VkAccelerationStructureKHR, const VkAllocationCallbacks*);
typedef void (*PFN_vkGetAccelerationStructureBuildSizesKHR_t)(VkDevice, VkAccelerationStructureBuildTypeKHR, const VkAccelerationStructureBuildGeometryInfoKHR*, const uint32_t*, VkAccelerationStructureBuildSizesInfoKHR*);
typedef void (*PFN_vkCmdBuildAccelerationStructuresKHR_t)(VkCommandBuffer, uint32_t, const VkAccelerationStructureBuildGeometryInfoKHR*, const VkAccelerationStructureBuildRangeInfoKHR* const*);
typedef void (*PFN_vkCmdCopyAccelerationStructureKHR_t)(VkCommandBuffer, const VkCopyAccelerationStructureInfoKHR*);
typedef VkDeviceAddress (*PFN_vkGetAccelerationStructureDeviceAddressKHR_t)(VkDevice, const VkAccelerationStructureDeviceAddressInfoKHR*);
typedef void (*PFN_vkCmdWriteAccelerationStructuresPropertiesKHR_t)(VkCommandBuffer, uint32_t, const VkAccelerationStructureKHR*, VkQueryType, VkQueryPool, uint32_t);

static PFN_vkCreateAccelerationStructureKHR_t pfn_vkCreateAccelerationStructureKHR;
static PFN_vkDestroyAccelerationStructureKHR_t pfn_vkDestroyAccelerationStructureKHR;
static PFN_vkGetAccelerationStructureBuildSizesKHR_t pfn_vkGetAccelerationStructureBuildSizesKHR;
static PFN_vkCmdBuildAccelerationStructuresKHR_t pfn_vkCmdBuildAccelerationStructuresKHR;
static PFN_vkCmdCopyAccelerationStructureKHR_t pfn_vkCmdCopyAccelerationStructureKHR;
static PFN_vkGetAccelerationStructureDeviceAddressKHR_t pfn_vkGetAccelerationStructureDeviceAddressKHR;
static PFN_vkCmdWriteAccelerationStructuresPropertiesKHR_t pfn_vkCmdWriteAccelerationStructuresPropertiesKHR;

static void loadASFunctions(VkDevice device) {
    pfn_vkCreateAccelerationStructureKHR = (PFN_vkCreateAccelerationStructureKHR_t)vkGetDeviceProcAddr(device, "vkCreateAccelerationStructureKHR");
    pfn_vkDestroyAccelerationStructureKHR = (PFN_vkDestroyAccelerationStructureKHR_t)vkGetDeviceProcAddr(device, "vkDestroyAccelerationStructureKHR");
    pfn_vkGetAccelerationStructureBuildSizesKHR = (PFN_vkGetAccelerationStructureBuildSizesKHR_t)vkGetDeviceProcAddr(device, "vkGetAccelerationStructureBuildSizesKHR");
    pfn_vkCmdBuildAccelerationStructuresKHR = (PFN_vkCmdBuildAccelerationStructuresKHR_t)vkGetDeviceProcAddr(device, "vkCmdBuildAccelerationStructuresKHR");
    pfn_vkCmdCopyAccelerationStructureKHR = (PFN_vkCmdCopyAccelerationStructureKHR_t)vkGetDeviceProcAddr(device, "vkCmdCopyAccelerationStructureKHR");
    pfn_vkGetAccelerationStructureDeviceAddressKHR = (PFN_vkGetAccelerationStructureDeviceAddressKHR_t)vkGetDeviceProcAddr(device, "vkGetAccelerationStructureDeviceAddressKHR");
    pfn_vkCmdWriteAccelerationStructuresPropertiesKHR = (PFN_vkCmdWriteAccelerationStructuresPropertiesKHR_t)vkGetDeviceProcAddr(device, "vkCmdWriteAccelerationStructuresPropertiesKHR");
}

static VkResult call_vkCreateAccelerationStructureKHR(VkDevice device, const VkAccelerationStructureCreateInfoKHR* info, VkAccelerationStructureKHR* out) {
    return pfn_vkCreateAccelerationStructureKHR(device, info, NULL, out);
}
static void call_vkDestroyAccelerationStructureKHR(VkDevice device, VkAccelerationStructureKHR as) {
    pfn_vkDestroyAccelerationStructureKHR(device, as, NULL);
}
static void call_vkGetAccelerationStructureBuildSizesKHR(VkDevice device, const VkAccelerationStructureBuildGeometryInfoKHR* info, const uint32_t* maxPrimitiveCounts, VkAccelerationStructureBuildSizesInfoKHR* out) {
    pfn_vkGetAccelerationStructureBuildSizesKHR(device, VK_ACCELERATION_STRUCTURE_BUILD_TYPE_DEVICE_KHR, info, maxPrimitiveCounts, out);
}
static void call_vkCmdBuildAccelerationStructuresKHR(VkCommandBuffer cmd, const VkAccelerationStructureBuildGeometryInfoKHR* info, const VkAccelerationStructureBuildRangeInfoKHR* const* ranges) {
    pfn_vkCmdBuildAccelerationStructuresKHR(cmd, 1, info, ranges);
}
static void call_vkCmdCopyAccelerationStructureKHR(VkCommandBuffer cmd, const VkCopyAccelerationStructureInfoKHR* info) {
    pfn_vkCmdCopyAccelerationStructureKHR(cmd, info);
}
static VkDeviceAddress call_vkGetAccelerationStructureDeviceAddressKHR(VkDevice device, const VkAccelerationStructureDeviceAddressInfoKHR* info) {
    return pfn_vkGetAccelerationStructureDeviceAddressKHR(device, info);
}
static void call_vkCmdWriteAccelerationStructuresPropertiesKHR(VkCommandBuffer cmd, VkAccelerationStructureKHR as, VkQueryPool pool, uint32_t query) {
    pfn_vkCmdWriteAccelerationStructuresPropertiesKHR(cmd, 1, &as, VK_QUERY_TYPE_ACCELERATION_STRUCTURE_COMPACTED_SIZE_KHR, pool, query);
}
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// LoadRayTracingFunctions resolves the VK_KHR_acceleration_structure
// function pointers against device via vkGetDeviceProcAddr; extension
// entry points are not in the core dispatch table. Must be called once
// after CreateLogicalDevice and before any other function in this file.
func LoadRayTracingFunctions(device *Device) {
	C.loadASFunctions(device.Device)
}

// AccelerationStructureType selects BLAS vs. TLAS at CreateAccelerationStructure time.
type AccelerationStructureType int

const (
	ASTypeBottomLevel AccelerationStructureType = iota
	ASTypeTopLevel
)

// AccelerationStructure wraps one VkAccelerationStructureKHR and the
// buffer backing its serialized form.
type AccelerationStructure struct {
	Handle        C.VkAccelerationStructureKHR
	Buffer        *Buffer
	DeviceAddress uint64
}

// GeometryTriangles describes one BLAS geometry: an R32G32B32_SFLOAT
// vertex buffer with a 12-byte stride and a uint32 index buffer.
type GeometryTriangles struct {
	VertexAddress uint64
	VertexStride  uint64
	VertexCount   uint32
	IndexAddress  uint64
	TriangleCount uint32
	Opaque        bool // sets VK_GEOMETRY_OPAQUE_BIT_KHR
}

func (g GeometryTriangles) toVkGeometry() C.VkAccelerationStructureGeometryKHR {
	triangles := C.VkAccelerationStructureGeometryTrianglesDataKHR{
		sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_TRIANGLES_DATA_KHR,
		vertexFormat: C.VK_FORMAT_R32G32B32_SFLOAT,
		vertexStride: C.VkDeviceSize(g.VertexStride),
		maxVertex:    C.uint32_t(g.VertexCount - 1),
		indexType:    C.VK_INDEX_TYPE_UINT32,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&triangles.vertexData)) = C.VkDeviceAddress(g.VertexAddress)
	*(*C.VkDeviceAddress)(unsafe.Pointer(&triangles.indexData)) = C.VkDeviceAddress(g.IndexAddress)

	geom := C.VkAccelerationStructureGeometryKHR{
		sType:       C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR,
		geometryType: C.VK_GEOMETRY_TYPE_TRIANGLES_KHR,
	}
	if g.Opaque {
		geom.flags = C.VK_GEOMETRY_OPAQUE_BIT_KHR | C.VK_GEOMETRY_NO_DUPLICATE_ANY_HIT_INVOCATION_BIT_KHR
	} else {
		geom.flags = C.VK_GEOMETRY_NO_DUPLICATE_ANY_HIT_INVOCATION_BIT_KHR
	}
	*(*C.VkAccelerationStructureGeometryTrianglesDataKHR)(unsafe.Pointer(&geom.geometry)) = triangles
	return geom
}

// BuildSizes reports the scratch and acceleration-structure buffer sizes
// Vulkan requires for a geometry set, queried before allocating either —
// the scratch-budget batching in the rt package's scratch.go plans around
// exactly these numbers.
type BuildSizes struct {
	AccelerationStructureSize uint64
	BuildScratchSize          uint64
	UpdateScratchSize         uint64
}

// QueryBLASBuildSizes asks the driver how large the BLAS and its scratch
// buffer must be for one triangle geometry, without yet building it.
func QueryBLASBuildSizes(device *Device, geom GeometryTriangles, allowUpdate bool) BuildSizes {
	vkGeom := geom.toVkGeometry()
	flags := C.VkBuildAccelerationStructureFlagsKHR(C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR)
	if allowUpdate {
		flags |= C.VK_BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR
	}
	buildInfo := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:         C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:         C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR,
		flags:         flags,
		geometryCount: 1,
		pGeometries:   &vkGeom,
	}
	maxPrimitives := C.uint32_t(geom.TriangleCount)
	var sizes C.VkAccelerationStructureBuildSizesInfoKHR
	sizes.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR
	C.call_vkGetAccelerationStructureBuildSizesKHR(device.Device, &buildInfo, &maxPrimitives, &sizes)
	return BuildSizes{
		AccelerationStructureSize: uint64(sizes.accelerationStructureSize),
		BuildScratchSize:          uint64(sizes.buildScratchSize),
		UpdateScratchSize:         uint64(sizes.updateScratchSize),
	}
}

// QueryTLASBuildSizes reports the TLAS and scratch sizes for an
// instance-geometry build over instanceCount instances.
func QueryTLASBuildSizes(device *Device, instanceCount uint32) BuildSizes {
	instances := C.VkAccelerationStructureGeometryInstancesDataKHR{
		sType: C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR,
	}
	geom := C.VkAccelerationStructureGeometryKHR{
		sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR,
		geometryType: C.VK_GEOMETRY_TYPE_INSTANCES_KHR,
	}
	*(*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&geom.geometry)) = instances

	buildInfo := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:         C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:         C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR,
		flags:         C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR | C.VK_BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR,
		geometryCount: 1,
		pGeometries:   &geom,
	}
	maxInstances := C.uint32_t(instanceCount)
	var sizes C.VkAccelerationStructureBuildSizesInfoKHR
	sizes.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR
	C.call_vkGetAccelerationStructureBuildSizesKHR(device.Device, &buildInfo, &maxInstances, &sizes)
	return BuildSizes{
		AccelerationStructureSize: uint64(sizes.accelerationStructureSize),
		BuildScratchSize:          uint64(sizes.buildScratchSize),
		UpdateScratchSize:         uint64(sizes.updateScratchSize),
	}
}

// CreateQueryPool creates a query pool for reading back compacted BLAS
// sizes after a build submission completes.
func CreateQueryPool(device *Device, count uint32) (C.VkQueryPool, error) {
	info := C.VkQueryPoolCreateInfo{
		sType:      C.VK_STRUCTURE_TYPE_QUERY_POOL_CREATE_INFO,
		queryType:  C.VK_QUERY_TYPE_ACCELERATION_STRUCTURE_COMPACTED_SIZE_KHR,
		queryCount: C.uint32_t(count),
	}
	var pool C.VkQueryPool
	if res := C.vkCreateQueryPool(device.Device, &info, nil, &pool); res != C.VK_SUCCESS {
		return nil, fmt.Errorf("vkCreateQueryPool failed: %d", res)
	}
	return pool, nil
}

// GetQueryPoolResults reads count compacted-size results, waiting for
// them to land.
func GetQueryPoolResults(device *Device, pool C.VkQueryPool, count uint32) ([]uint64, error) {
	results := make([]uint64, count)
	res := C.vkGetQueryPoolResults(device.Device, pool, 0, C.uint32_t(count),
		C.size_t(count*8), unsafe.Pointer(&results[0]), 8,
		C.VK_QUERY_RESULT_64_BIT|C.VK_QUERY_RESULT_WAIT_BIT)
	if res != C.VK_SUCCESS {
		return nil, fmt.Errorf("vkGetQueryPoolResults failed: %d", res)
	}
	return results, nil
}

// DestroyQueryPool releases a pool created by CreateQueryPool.
func DestroyQueryPool(device *Device, pool C.VkQueryPool) {
	C.vkDestroyQueryPool(device.Device, pool, nil)
}

// CreateAccelerationStructure allocates the backing buffer and creates the
// VkAccelerationStructureKHR object sized for size bytes; the actual
// geometry is written by a subsequent BuildBLAS/BuildTLAS command.
func CreateAccelerationStructure(device *Device, size uint64, asType AccelerationStructureType) (*AccelerationStructure, error) {
	buf, err := CreateBufferWithAddress(device, size,
		C.VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_STORAGE_BIT_KHR,
		C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT)
	if err != nil {
		return nil, fmt.Errorf("acceleration structure buffer: %w", err)
	}

	vkType := C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR
	if asType == ASTypeTopLevel {
		vkType = C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR
	}
	createInfo := C.VkAccelerationStructureCreateInfoKHR{
		sType:  C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR,
		buffer: buf.Handle,
		size:   C.VkDeviceSize(size),
		_type:  C.VkAccelerationStructureTypeKHR(vkType),
	}

	as := &AccelerationStructure{Buffer: buf}
	result := C.call_vkCreateAccelerationStructureKHR(device.Device, &createInfo, &as.Handle)
	if result != C.VK_SUCCESS {
		buf.Destroy(device)
		return nil, fmt.Errorf("vkCreateAccelerationStructureKHR failed: %d", result)
	}

	addrInfo := C.VkAccelerationStructureDeviceAddressInfoKHR{
		sType:                 C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_DEVICE_ADDRESS_INFO_KHR,
		accelerationStructure: as.Handle,
	}
	as.DeviceAddress = uint64(C.call_vkGetAccelerationStructureDeviceAddressKHR(device.Device, &addrInfo))
	return as, nil
}

// CmdBuildBLAS records a BLAS build (or, if update is true and the
// structure was created with allow-update, a refit in place) into cmd.
// scratchAddress must point at a buffer at least as large as the relevant
// BuildSizes field.
func CmdBuildBLAS(cmd CommandBuffer, as *AccelerationStructure, geom GeometryTriangles, scratchAddress uint64, update bool) {
	vkGeom := geom.toVkGeometry()
	mode := C.VkBuildAccelerationStructureModeKHR(C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR)
	src := C.VkAccelerationStructureKHR(nil)
	if update {
		mode = C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR
		src = as.Handle
	}
	buildInfo := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:                     C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:                     C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR,
		flags:                     C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR | C.VK_BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR,
		mode:                      mode,
		srcAccelerationStructure:  src,
		dstAccelerationStructure:  as.Handle,
		geometryCount:             1,
		pGeometries:               &vkGeom,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&buildInfo.scratchData)) = C.VkDeviceAddress(scratchAddress)

	rangeInfo := C.VkAccelerationStructureBuildRangeInfoKHR{primitiveCount: geom.TriangleCount}
	rangePtr := &rangeInfo
	C.call_vkCmdBuildAccelerationStructuresKHR(cmd.Handle, &buildInfo, &rangePtr)
}

// InstanceData is one TLAS instance row, matching
// VkAccelerationStructureInstanceKHR's layout.
type InstanceData struct {
	Transform                   [12]float32 // row-major 3x4
	CustomIndexAndMask          uint32       // low 24 bits index, high 8 bits mask
	InstanceOffsetAndFlags      uint32       // low 24 bits SBT offset, high 8 bits flags
	AccelerationStructureRef    uint64
}

// CmdBuildTLAS records a TLAS build (or update, mirroring CmdBuildBLAS)
// over an instance buffer already written with InstanceData rows.
func CmdBuildTLAS(cmd CommandBuffer, as *AccelerationStructure, instanceBufferAddress uint64, instanceCount uint32, scratchAddress uint64, update bool) {
	instances := C.VkAccelerationStructureGeometryInstancesDataKHR{
		sType: C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&instances.data)) = C.VkDeviceAddress(instanceBufferAddress)

	geom := C.VkAccelerationStructureGeometryKHR{
		sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR,
		geometryType: C.VK_GEOMETRY_TYPE_INSTANCES_KHR,
	}
	*(*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&geom.geometry)) = instances

	mode := C.VkBuildAccelerationStructureModeKHR(C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR)
	src := C.VkAccelerationStructureKHR(nil)
	if update {
		mode = C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR
		src = as.Handle
	}
	buildInfo := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:                    C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:                    C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR,
		flags:                    C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR | C.VK_BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR,
		mode:                     mode,
		srcAccelerationStructure: src,
		dstAccelerationStructure: as.Handle,
		geometryCount:            1,
		pGeometries:              &geom,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&buildInfo.scratchData)) = C.VkDeviceAddress(scratchAddress)

	rangeInfo := C.VkAccelerationStructureBuildRangeInfoKHR{primitiveCount: instanceCount}
	rangePtr := &rangeInfo
	C.call_vkCmdBuildAccelerationStructuresKHR(cmd.Handle, &buildInfo, &rangePtr)
}

// CmdCopyCompact records a compacting copy from src into dst, dst having
// been allocated at the compacted size read back from a
// VK_QUERY_TYPE_ACCELERATION_STRUCTURE_COMPACTED_SIZE_KHR query pool
//.
func CmdCopyCompact(cmd CommandBuffer, src, dst *AccelerationStructure) {
	info := C.VkCopyAccelerationStructureInfoKHR{
		sType: C.VK_STRUCTURE_TYPE_COPY_ACCELERATION_STRUCTURE_INFO_KHR,
		src:   src.Handle,
		dst:   dst.Handle,
		mode:  C.VK_COPY_ACCELERATION_STRUCTURE_MODE_COMPACT_KHR,
	}
	C.call_vkCmdCopyAccelerationStructureKHR(cmd.Handle, &info)
}

// CmdWriteCompactedSize records a query for as's compacted size into pool
// at query, read back once the command buffer submission completes.
func CmdWriteCompactedSize(cmd CommandBuffer, as *AccelerationStructure, pool C.VkQueryPool, query uint32) {
	C.call_vkCmdWriteAccelerationStructuresPropertiesKHR(cmd.Handle, as.Handle, pool, C.uint32_t(query))
}

func (as *AccelerationStructure) Destroy(device *Device) {
	if as.Handle != nil {
		C.call_vkDestroyAccelerationStructureKHR(device.Device, as.Handle)
	}
	if as.Buffer != nil {
		as.Buffer.Destroy(device)
	}
}
