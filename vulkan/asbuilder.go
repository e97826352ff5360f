package vulkan

// #include <vulkan/vulkan.h>
import "C"
import (
	"fmt"
	"unsafe"

	"vkgltfscene/gpu"
	"vkgltfscene/rt"
	"vkgltfscene/scene"
)

// BuildConfig tunes the acceleration-structure build pass.
type BuildConfig struct {
	// ScratchBudget caps how much BLAS scratch memory one build batch
	// may use; builds are split into as many batches as the budget
	// demands. A single oversized primitive still builds alone.
	ScratchBudget uint64

	// AllowBLASUpdate adds the allow-update build flag to every BLAS so
	// skinned/morphed primitives can be refit in place. Set when the
	// scene has any animation.
	AllowBLASUpdate bool
}

// DefaultBuildConfig returns a 512 MB scratch budget with updates off.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{ScratchBudget: 512 << 20}
}

// ASBuilder owns the scene's acceleration structures: one BLAS per
// render primitive (index-aligned), the TLAS over all render nodes, the
// shared scratch buffers, and the mapped instance buffer the TLAS is
// (re)built from. Build commands are recorded into single-time command
// buffers and pushed onto the work queue; the frame loop drains them.
type ASBuilder struct {
	device  *Device
	queue   *CommandWorkQueue
	cfg     BuildConfig
	tracker *gpu.MemoryTracker

	BLAS  []*AccelerationStructure
	geoms []GeometryTriangles
	sizes []BuildSizes

	TLAS         *AccelerationStructure
	instanceBuf  *Buffer
	instanceRows []InstanceData
	tlasScratch  *Buffer
	blasScratch  *Buffer
	updScratch   *Buffer

	queryPool C.VkQueryPool

	// VisibleCount tracks how many instances currently carry a non-zero
	// acceleration-structure reference; a change forces a TLAS rebuild
	// instead of a refit.
	VisibleCount int
}

// NewASBuilder wires a builder against the device and work queue.
// tracker may be nil.
func NewASBuilder(device *Device, queue *CommandWorkQueue, cfg BuildConfig, tracker *gpu.MemoryTracker) *ASBuilder {
	if tracker == nil {
		tracker = gpu.NewMemoryTracker()
	}
	return &ASBuilder{device: device, queue: queue, cfg: cfg, tracker: tracker}
}

func (b *ASBuilder) newCommandBuffer() (CommandBuffer, error) {
	cmds, err := AllocateCommandBuffers(b.device, b.device.CommandPool, 1)
	if err != nil {
		return CommandBuffer{}, err
	}
	cmd := cmds[0]
	if err := cmd.Begin(true); err != nil {
		return CommandBuffer{}, err
	}
	return cmd, nil
}

// BuildBottomLevel creates and records builds for one BLAS per geometry,
// batching against the scratch budget. geoms must be index-aligned with
// the scene's render primitives; vertex/index buffers must already be
// uploaded (the recorded commands begin with a transfer-to-build
// barrier). Compacted-size queries are recorded after each build so
// CompactBottomLevel can run once the queue drains.
func (b *ASBuilder) BuildBottomLevel(geoms []GeometryTriangles) error {
	b.geoms = geoms
	b.BLAS = make([]*AccelerationStructure, len(geoms))
	b.sizes = make([]BuildSizes, len(geoms))

	requests := make([]rt.ScratchRequest, len(geoms))
	for i, g := range geoms {
		b.sizes[i] = QueryBLASBuildSizes(b.device, g, b.cfg.AllowBLASUpdate)
		requests[i] = rt.ScratchRequest{PrimitiveIndex: i, ScratchSize: b.sizes[i].BuildScratchSize}

		as, err := CreateAccelerationStructure(b.device, b.sizes[i].AccelerationStructureSize, ASTypeBottomLevel)
		if err != nil {
			return fmt.Errorf("blas %d: %w", i, err)
		}
		b.BLAS[i] = as
		b.tracker.Add("blas", int64(b.sizes[i].AccelerationStructureSize))
	}

	pool, err := CreateQueryPool(b.device, uint32(len(geoms)))
	if err != nil {
		return err
	}
	b.queryPool = pool

	batches := rt.PlanBatches(requests, b.cfg.ScratchBudget)
	for _, batch := range batches {
		scratchSize := rt.TotalScratch(requests, batch)
		if b.blasScratch == nil || b.blasScratch.Size < scratchSize {
			if b.blasScratch != nil {
				b.tracker.Sub("blas-scratch", int64(b.blasScratch.Size))
				b.blasScratch.Destroy(b.device)
			}
			b.blasScratch, err = CreateBufferWithAddress(b.device, scratchSize,
				C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT,
				C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT)
			if err != nil {
				return fmt.Errorf("blas scratch: %w", err)
			}
			b.tracker.Add("blas-scratch", int64(scratchSize))
		}

		cmd, err := b.newCommandBuffer()
		if err != nil {
			return err
		}
		BarrierTransferToASBuild(cmd)
		scratchOffset := uint64(0)
		scratchBase := GetBufferDeviceAddress(b.device, b.blasScratch)
		for _, primID := range batch {
			CmdBuildBLAS(cmd, b.BLAS[primID], b.geoms[primID], scratchBase+scratchOffset, false)
			CmdWriteCompactedSize(cmd, b.BLAS[primID], b.queryPool, uint32(primID))
			scratchOffset += b.sizes[primID].BuildScratchSize
		}
		BarrierASBuildToASRead(cmd)
		if err := cmd.End(); err != nil {
			return err
		}
		b.queue.Push(WorkItem{Cmd: cmd, IsBlasBuild: true})
	}
	return nil
}

// CompactBottomLevel reads back the compacted sizes recorded during
// BuildBottomLevel (the build submissions must have drained first),
// records compacting copies into one command buffer, and swaps each BLAS
// for its compact copy as soon as that command buffer is queued. The
// originals are destroyed when the submission completes.
func (b *ASBuilder) CompactBottomLevel() error {
	if b.queryPool == nil || len(b.BLAS) == 0 {
		return nil
	}
	sizes, err := GetQueryPoolResults(b.device, b.queryPool, uint32(len(b.BLAS)))
	if err != nil {
		return err
	}

	cmd, err := b.newCommandBuffer()
	if err != nil {
		return err
	}
	originals := make([]*AccelerationStructure, len(b.BLAS))
	copy(originals, b.BLAS)
	compacted := make([]*AccelerationStructure, len(b.BLAS))
	for i, size := range sizes {
		if size == 0 || size >= originals[i].Buffer.Size {
			compacted[i] = originals[i]
			originals[i] = nil
			continue
		}
		dst, err := CreateAccelerationStructure(b.device, size, ASTypeBottomLevel)
		if err != nil {
			return fmt.Errorf("compact blas %d: %w", i, err)
		}
		CmdCopyCompact(cmd, originals[i], dst)
		compacted[i] = dst
		b.tracker.Add("blas", int64(size))
	}
	BarrierASBuildToASRead(cmd)
	if err := cmd.End(); err != nil {
		return err
	}

	b.queue.Push(WorkItem{Cmd: cmd, IsBlasBuild: true, OnComplete: func() {
		for _, orig := range originals {
			if orig == nil {
				continue
			}
			b.tracker.Sub("blas", int64(orig.Buffer.Size))
			orig.Destroy(b.device)
		}
	}})
	b.BLAS = compacted

	DestroyQueryPool(b.device, b.queryPool)
	b.queryPool = nil
	return nil
}

// blasAddresses returns the per-primitive device addresses the instance
// rows reference.
func (b *ASBuilder) blasAddresses() []uint64 {
	addrs := make([]uint64, len(b.BLAS))
	for i, as := range b.BLAS {
		if as != nil {
			addrs[i] = as.DeviceAddress
		}
	}
	return addrs
}

// instanceRow derives one render node's packed TLAS instance row.
func (b *ASBuilder) instanceRow(rn scene.RenderNode, flags rt.InstanceFlags) InstanceData {
	transform, mask, _, asRef := rt.BuildInstanceRow(rn, flags, b.blasAddresses())
	var vkFlags uint32
	if flags.ForceOpaque {
		vkFlags |= uint32(C.VK_GEOMETRY_INSTANCE_FORCE_OPAQUE_BIT_KHR)
	}
	if flags.CullDisable {
		vkFlags |= uint32(C.VK_GEOMETRY_INSTANCE_TRIANGLE_FACING_CULL_DISABLE_BIT_KHR)
	}
	customIndex := uint32(rn.RenderPrimID) & 0xffffff
	return InstanceData{
		Transform:                transform,
		CustomIndexAndMask:       customIndex | uint32(mask)<<24,
		InstanceOffsetAndFlags:   vkFlags << 24, // SBT record offset 0
		AccelerationStructureRef: asRef,
	}
}

// BuildTopLevel creates the instance buffer and TLAS for the scene's
// render nodes and records the initial build. flagsFor resolves a render
// node's material-derived instance flags.
func (b *ASBuilder) BuildTopLevel(nodes []scene.RenderNode, flagsFor func(rn scene.RenderNode) rt.InstanceFlags) error {
	if len(nodes) == 0 {
		return nil
	}
	b.instanceRows = make([]InstanceData, len(nodes))
	visible := 0
	for i, rn := range nodes {
		b.instanceRows[i] = b.instanceRow(rn, flagsFor(rn))
		if b.instanceRows[i].AccelerationStructureRef != 0 {
			visible++
		}
	}
	b.VisibleCount = visible

	rowBytes := uint64(len(b.instanceRows)) * uint64(unsafe.Sizeof(InstanceData{}))
	buf, err := CreateBufferWithAddress(b.device, rowBytes,
		C.VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_BUILD_INPUT_READ_ONLY_BIT_KHR|C.VK_BUFFER_USAGE_TRANSFER_DST_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return fmt.Errorf("instance buffer: %w", err)
	}
	b.instanceBuf = buf
	b.tracker.Add("tlas-instances", int64(rowBytes))
	if err := buf.Map(b.device); err != nil {
		return err
	}
	buf.CopyData(unsafe.Pointer(&b.instanceRows[0]), rowBytes)

	sizes := QueryTLASBuildSizes(b.device, uint32(len(b.instanceRows)))
	b.TLAS, err = CreateAccelerationStructure(b.device, sizes.AccelerationStructureSize, ASTypeTopLevel)
	if err != nil {
		return fmt.Errorf("tlas: %w", err)
	}
	b.tracker.Add("tlas", int64(sizes.AccelerationStructureSize))

	scratchSize := sizes.BuildScratchSize
	if sizes.UpdateScratchSize > scratchSize {
		scratchSize = sizes.UpdateScratchSize
	}
	b.tlasScratch, err = CreateBufferWithAddress(b.device, scratchSize,
		C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT,
		C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT)
	if err != nil {
		return fmt.Errorf("tlas scratch: %w", err)
	}
	b.tracker.Add("tlas-scratch", int64(scratchSize))

	cmd, err := b.newCommandBuffer()
	if err != nil {
		return err
	}
	BarrierTransferToASBuild(cmd)
	CmdBuildTLAS(cmd, b.TLAS, GetBufferDeviceAddress(b.device, b.instanceBuf),
		uint32(len(b.instanceRows)), GetBufferDeviceAddress(b.device, b.tlasScratch), false)
	BarrierASBuildToASRead(cmd)
	if err := cmd.End(); err != nil {
		return err
	}
	b.queue.Push(WorkItem{Cmd: cmd, IsBlasBuild: true})
	return nil
}

// UpdateTopLevel rewrites the instance rows for the dirty render nodes
// (all of them when dirty is empty) and records a TLAS refit — or a full
// rebuild when the visible-instance count changed, since a refit cannot
// add or remove instances.
func (b *ASBuilder) UpdateTopLevel(cmd CommandBuffer, nodes []scene.RenderNode, dirty []int, flagsFor func(rn scene.RenderNode) rt.InstanceFlags) {
	if len(b.instanceRows) == 0 || b.TLAS == nil {
		return
	}
	if len(dirty) == 0 {
		dirty = make([]int, len(nodes))
		for i := range nodes {
			dirty[i] = i
		}
	}
	for _, i := range dirty {
		if i < 0 || i >= len(b.instanceRows) {
			continue
		}
		b.instanceRows[i] = b.instanceRow(nodes[i], flagsFor(nodes[i]))
	}
	visible := 0
	for i := range b.instanceRows {
		if b.instanceRows[i].AccelerationStructureRef != 0 {
			visible++
		}
	}
	rebuild := rt.ShouldRebuildTLAS(b.VisibleCount, visible)
	b.VisibleCount = visible

	rowBytes := uint64(len(b.instanceRows)) * uint64(unsafe.Sizeof(InstanceData{}))
	b.instanceBuf.CopyData(unsafe.Pointer(&b.instanceRows[0]), rowBytes)

	BarrierTransferToASBuild(cmd)
	CmdBuildTLAS(cmd, b.TLAS, GetBufferDeviceAddress(b.device, b.instanceBuf),
		uint32(len(b.instanceRows)), GetBufferDeviceAddress(b.device, b.tlasScratch), !rebuild)
	BarrierASBuildToASRead(cmd)
}

// UpdateBottomLevel refits the BLAS of every listed render primitive in
// place after its vertex buffer was rewritten by skinning or morphing.
// Successive refits share the update scratch buffer, so an
// AS-write-to-AS-write barrier separates them.
func (b *ASBuilder) UpdateBottomLevel(cmd CommandBuffer, primIDs []int) error {
	var maxUpdate uint64
	for _, id := range primIDs {
		if id < 0 || id >= len(b.sizes) {
			continue
		}
		if b.sizes[id].UpdateScratchSize > maxUpdate {
			maxUpdate = b.sizes[id].UpdateScratchSize
		}
	}
	if maxUpdate == 0 {
		return nil
	}
	if b.updScratch == nil || b.updScratch.Size < maxUpdate {
		if b.updScratch != nil {
			b.tracker.Sub("blas-scratch", int64(b.updScratch.Size))
			b.updScratch.Destroy(b.device)
		}
		var err error
		b.updScratch, err = CreateBufferWithAddress(b.device, maxUpdate,
			C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT,
			C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT)
		if err != nil {
			return fmt.Errorf("blas update scratch: %w", err)
		}
		b.tracker.Add("blas-scratch", int64(maxUpdate))
	}

	scratch := GetBufferDeviceAddress(b.device, b.updScratch)
	BarrierTransferToASBuild(cmd)
	first := true
	for _, id := range primIDs {
		if id < 0 || id >= len(b.BLAS) || b.BLAS[id] == nil {
			continue
		}
		if !first {
			BarrierASWriteToASWrite(cmd)
		}
		CmdBuildBLAS(cmd, b.BLAS[id], b.geoms[id], scratch, true)
		first = false
	}
	BarrierASBuildToASRead(cmd)
	return nil
}

// Destroy releases every structure and buffer the builder owns.
func (b *ASBuilder) Destroy() {
	for _, as := range b.BLAS {
		if as != nil {
			as.Destroy(b.device)
		}
	}
	b.BLAS = nil
	if b.TLAS != nil {
		b.TLAS.Destroy(b.device)
		b.TLAS = nil
	}
	for _, buf := range []**Buffer{&b.instanceBuf, &b.tlasScratch, &b.blasScratch, &b.updScratch} {
		if *buf != nil {
			(*buf).Destroy(b.device)
			*buf = nil
		}
	}
	if b.queryPool != nil {
		DestroyQueryPool(b.device, b.queryPool)
		b.queryPool = nil
	}
}
