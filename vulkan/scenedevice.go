package vulkan

// #include <vulkan/vulkan.h>
import "C"
import (
	"fmt"
	"unsafe"

	"vkgltfscene/asset"
	"vkgltfscene/core"
	"vkgltfscene/gpu"
	vmath "vkgltfscene/math"
	"vkgltfscene/rt"
	"vkgltfscene/scene"
)

// ImageDecoder decodes one captured image payload into RGBA8 pixels. A
// false return substitutes the magenta fallback texture and keeps the
// scene.
type ImageDecoder func(img asset.ImageData) (width, height int, pixels []byte, ok bool)

// primitiveBuffers is one render primitive's device-resident geometry:
// the position buffer feeds both the BLAS build and the hit shaders, the
// rest are fetched through the render-primitive table's addresses.
type primitiveBuffers struct {
	positions *Buffer
	normals   *Buffer
	uv0       *Buffer
	indices   *Buffer

	vertexCount int
	indexCount  int
}

// SceneDevice is the device side of the GPU mirror: it uploads a
// gpu.Mirror's tables and vertex buffers, owns the per-primitive
// geometry buffers and scene textures, drives the acceleration-structure
// builder, and publishes the scene-descriptor record the ray-tracing
// stages read. It implements gpu.BufferAddresses so the mirror's
// render-primitive table resolves real device addresses.
type SceneDevice struct {
	device  *Device
	Queue   *CommandWorkQueue
	Builder *ASBuilder
	Tracker *gpu.MemoryTracker

	prims map[int]*primitiveBuffers

	materialBuf *Buffer
	texInfoBuf  *Buffer
	primBuf     *Buffer
	nodeBuf     *Buffer
	lightBuf    *Buffer
	descBuf     *Buffer

	textures []*TextureUploadResult
	fallback *TextureUploadResult

	radianceImage    *Image
	normalDepthImage *Image

	descLayout C.VkDescriptorSetLayout
	descPool   *DescriptorPool
	sceneSet   DescriptorSet
}

// NewSceneDevice wires a scene device over an already-created logical
// device; LoadRayTracingFunctions must have been called.
func NewSceneDevice(device *Device, cfg BuildConfig) *SceneDevice {
	tracker := gpu.NewMemoryTracker()
	queue := &CommandWorkQueue{}
	return &SceneDevice{
		device:  device,
		Queue:   queue,
		Builder: NewASBuilder(device, queue, cfg, tracker),
		Tracker: tracker,
		prims:   map[int]*primitiveBuffers{},
	}
}

// PrimitiveAddresses implements gpu.BufferAddresses against the uploaded
// geometry buffers.
func (sd *SceneDevice) PrimitiveAddresses(primID int) gpu.PrimitiveRecord {
	pb, ok := sd.prims[primID]
	if !ok {
		return gpu.PrimitiveRecord{}
	}
	rec := gpu.PrimitiveRecord{
		VertexCount: uint32(pb.vertexCount),
		IndexCount:  uint32(pb.indexCount),
	}
	if pb.positions != nil {
		rec.PositionAddr = GetBufferDeviceAddress(sd.device, pb.positions)
	}
	if pb.normals != nil {
		rec.NormalAddr = GetBufferDeviceAddress(sd.device, pb.normals)
	}
	if pb.uv0 != nil {
		rec.TexCoord0Addr = GetBufferDeviceAddress(sd.device, pb.uv0)
	}
	if pb.indices != nil {
		rec.IndexAddr = GetBufferDeviceAddress(sd.device, pb.indices)
	}
	return rec
}

// uploadBuffer creates (or grows) a host-visible device-address buffer
// and copies size bytes into it. Buffers only grow; a shrinking table
// reuses its existing allocation.
func (sd *SceneDevice) uploadBuffer(buf **Buffer, category string, data unsafe.Pointer, size uint64, usage C.VkBufferUsageFlags) error {
	if size == 0 {
		return nil
	}
	if *buf == nil || (*buf).Size < size {
		if *buf != nil {
			sd.Tracker.Sub(category, int64((*buf).Size))
			(*buf).Destroy(sd.device)
			*buf = nil
		}
		b, err := CreateBufferWithAddress(sd.device, size,
			usage|C.VK_BUFFER_USAGE_TRANSFER_DST_BIT,
			C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
		if err != nil {
			return fmt.Errorf("%s buffer: %w", category, err)
		}
		if err := b.Map(sd.device); err != nil {
			b.Destroy(sd.device)
			return err
		}
		sd.Tracker.Add(category, int64(size))
		*buf = b
	}
	(*buf).CopyData(data, size)
	return nil
}

// uploadPrimitive (re)uploads one render primitive's geometry from its
// current (possibly skinned/morphed) vertex set.
func (sd *SceneDevice) uploadPrimitive(primID int, verts []core.Vertex, indices []uint32) error {
	pb := sd.prims[primID]
	if pb == nil {
		pb = &primitiveBuffers{}
		sd.prims[primID] = pb
	}
	pb.vertexCount = len(verts)
	pb.indexCount = len(indices)
	if len(verts) == 0 {
		return nil
	}

	positions := make([]vmath.Vec3, len(verts))
	normals := make([]vmath.Vec3, len(verts))
	uvs := make([]vmath.Vec2, len(verts))
	for i, v := range verts {
		positions[i] = v.Position
		normals[i] = v.Normal
		uvs[i] = v.UV0
	}

	const geomUsage = C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT |
		C.VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_BUILD_INPUT_READ_ONLY_BIT_KHR
	if err := sd.uploadBuffer(&pb.positions, "vertex", unsafe.Pointer(&positions[0]), uint64(len(positions))*12, geomUsage); err != nil {
		return err
	}
	if err := sd.uploadBuffer(&pb.normals, "vertex", unsafe.Pointer(&normals[0]), uint64(len(normals))*12, C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT); err != nil {
		return err
	}
	if err := sd.uploadBuffer(&pb.uv0, "vertex", unsafe.Pointer(&uvs[0]), uint64(len(uvs))*8, C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT); err != nil {
		return err
	}
	if len(indices) > 0 {
		if err := sd.uploadBuffer(&pb.indices, "index", unsafe.Pointer(&indices[0]), uint64(len(indices))*4, geomUsage); err != nil {
			return err
		}
	}
	return nil
}

// primitiveIndices resolves primID's index list from the source model,
// synthesizing a sequential list for non-indexed primitives the way the
// BLAS build expects.
func primitiveIndices(s *scene.Scene, primID int) []uint32 {
	rp := s.GetRenderPrimitives()[primID]
	model := s.Model()
	prim := model.Meshes[rp.MeshIndex].Primitives[rp.PrimitiveIndex]
	if len(prim.Indices) > 0 {
		return prim.Indices
	}
	indices := make([]uint32, len(prim.Positions))
	for i := range indices {
		indices[i] = uint32(i)
	}
	return indices
}

// uploadTables mirrors every gpu.Mirror table into its device buffer and
// republishes the scene descriptor with the (possibly moved) addresses.
func (sd *SceneDevice) uploadTables(s *scene.Scene, m *gpu.Mirror) error {
	type upload struct {
		buf      **Buffer
		category string
		data     unsafe.Pointer
		size     uint64
	}
	mats := m.Materials
	uploads := []upload{}
	if len(mats.Materials) > 0 {
		uploads = append(uploads, upload{&sd.materialBuf, "material-table", unsafe.Pointer(&mats.Materials[0]), uint64(len(mats.Materials)) * uint64(unsafe.Sizeof(mats.Materials[0]))})
	}
	if len(mats.TexInfos) > 0 {
		uploads = append(uploads, upload{&sd.texInfoBuf, "texinfo-table", unsafe.Pointer(&mats.TexInfos[0]), uint64(len(mats.TexInfos)) * uint64(unsafe.Sizeof(mats.TexInfos[0]))})
	}
	if len(m.Nodes.Rows) > 0 {
		uploads = append(uploads, upload{&sd.nodeBuf, "node-table", unsafe.Pointer(&m.Nodes.Rows[0]), uint64(len(m.Nodes.Rows)) * uint64(unsafe.Sizeof(m.Nodes.Rows[0]))})
	}
	if len(m.Lights.Rows) > 0 {
		uploads = append(uploads, upload{&sd.lightBuf, "light-table", unsafe.Pointer(&m.Lights.Rows[0]), uint64(len(m.Lights.Rows)) * uint64(unsafe.Sizeof(m.Lights.Rows[0]))})
	}

	m.Primitives = gpu.NewPrimitiveTable(s.GetRenderPrimitives(), sd)
	if len(m.Primitives.Records) > 0 {
		uploads = append(uploads, upload{&sd.primBuf, "prim-table", unsafe.Pointer(&m.Primitives.Records[0]), uint64(len(m.Primitives.Records)) * uint64(unsafe.Sizeof(m.Primitives.Records[0]))})
	}

	for _, u := range uploads {
		if err := sd.uploadBuffer(u.buf, u.category, u.data, u.size, C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT); err != nil {
			return err
		}
	}

	addrOf := func(b *Buffer) uint64 {
		if b == nil {
			return 0
		}
		return GetBufferDeviceAddress(sd.device, b)
	}
	m.PublishDescriptor(gpu.TableAddrs{
		Materials:  addrOf(sd.materialBuf),
		TexInfos:   addrOf(sd.texInfoBuf),
		Primitives: addrOf(sd.primBuf),
		Nodes:      addrOf(sd.nodeBuf),
		Lights:     addrOf(sd.lightBuf),
	})
	return sd.uploadBuffer(&sd.descBuf, "scene-descriptor",
		unsafe.Pointer(&m.Descriptor), uint64(unsafe.Sizeof(m.Descriptor)),
		C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT)
}

// uploadTextures decodes and uploads every scene texture; a failed
// decode logs and substitutes the magenta fallback.
func (sd *SceneDevice) uploadTextures(model *asset.Model, decode ImageDecoder) error {
	if err := gpu.CheckTextureCapacity(len(model.Textures)); err != nil {
		return err
	}
	if sd.fallback == nil {
		fb, err := UploadFallbackTexture(sd.device)
		if err != nil {
			return fmt.Errorf("fallback texture: %w", err)
		}
		sd.fallback = fb
	}

	// Decode largest payloads first so a parallel decoder's big jobs
	// start before the tail of small ones.
	type decoded struct {
		w, h   int
		pixels []byte
	}
	images := map[int]decoded{}
	if decode != nil {
		for _, imgIdx := range model.ImageLoadOrder() {
			w, h, pixels, ok := decode(model.Images[imgIdx])
			if !ok || w <= 0 || h <= 0 {
				fmt.Printf("vulkan: image %d: decode failed, using fallback\n", imgIdx)
				continue
			}
			images[imgIdx] = decoded{w: w, h: h, pixels: pixels}
		}
	}

	sd.textures = make([]*TextureUploadResult, len(model.Textures))
	for i, tex := range model.Textures {
		sd.textures[i] = sd.fallback
		img, ok := images[tex.ImageIndex]
		if !ok {
			continue
		}
		up, err := UploadTextureData(sd.device, uint32(img.w), uint32(img.h), img.pixels)
		if err != nil {
			fmt.Printf("vulkan: texture %d: upload: %v\n", i, err)
			continue
		}
		sd.textures[i] = up
	}
	return nil
}

// Commit uploads the whole mirror (geometry, tables, textures) and
// builds the scene's acceleration structures: BLAS batched against the
// scratch budget, compaction once the builds drain, then the TLAS.
func (sd *SceneDevice) Commit(s *scene.Scene, m *gpu.Mirror, decode ImageDecoder) error {
	model := s.Model()

	prims := s.GetRenderPrimitives()
	geoms := make([]GeometryTriangles, len(prims))
	for primID := range prims {
		verts := m.Vertices[primID]
		indices := primitiveIndices(s, primID)
		if err := sd.uploadPrimitive(primID, verts, indices); err != nil {
			return err
		}
		pb := sd.prims[primID]
		geom := GeometryTriangles{
			VertexStride:  12,
			VertexCount:   uint32(pb.vertexCount),
			TriangleCount: uint32(pb.indexCount / 3),
		}
		if pb.positions != nil {
			geom.VertexAddress = GetBufferDeviceAddress(sd.device, pb.positions)
		}
		if pb.indices != nil {
			geom.IndexAddress = GetBufferDeviceAddress(sd.device, pb.indices)
		}
		geoms[primID] = geom
	}

	if err := sd.uploadTables(s, m); err != nil {
		return err
	}
	if err := sd.uploadTextures(model, decode); err != nil {
		return err
	}

	if err := sd.Builder.BuildBottomLevel(geoms); err != nil {
		return err
	}
	if err := sd.Queue.DrainAll(sd.device, sd.device.GraphicsQueue); err != nil {
		return err
	}
	if err := sd.Builder.CompactBottomLevel(); err != nil {
		return err
	}
	if err := sd.Queue.DrainAll(sd.device, sd.device.GraphicsQueue); err != nil {
		return err
	}

	if err := sd.Builder.BuildTopLevel(s.GetRenderNodes(), sd.instanceFlags(model)); err != nil {
		return err
	}
	return sd.Queue.DrainAll(sd.device, sd.device.GraphicsQueue)
}

func (sd *SceneDevice) instanceFlags(model *asset.Model) func(rn scene.RenderNode) rt.InstanceFlags {
	return func(rn scene.RenderNode) rt.InstanceFlags {
		if rn.MaterialID < 0 || rn.MaterialID >= len(model.Materials) {
			return rt.InstanceFlags{ForceOpaque: true}
		}
		return rt.DeriveInstanceFlags(model.Materials[rn.MaterialID])
	}
}

// ApplyFrame pushes one frame's dirty set to the device after
// gpu.Mirror.ApplyFrame has updated the CPU tables: touched vertex
// buffers re-upload, every affected BLAS refits, and the TLAS refits (or
// rebuilds when visibility changed), all in one queued command buffer.
func (sd *SceneDevice) ApplyFrame(s *scene.Scene, m *gpu.Mirror, dirty gpu.FrameDirty) error {
	nodes := s.GetRenderNodes()

	touchedPrims := map[int]bool{}
	for _, ni := range dirty.Nodes {
		if ni < 0 || ni >= len(nodes) {
			continue
		}
		touchedPrims[nodes[ni].RenderPrimID] = true
	}
	var primIDs []int
	for primID := range touchedPrims {
		if err := sd.uploadPrimitive(primID, m.Vertices[primID], primitiveIndices(s, primID)); err != nil {
			return err
		}
		primIDs = append(primIDs, primID)
	}

	if err := sd.uploadTables(s, m); err != nil {
		return err
	}

	cmds, err := AllocateCommandBuffers(sd.device, sd.device.CommandPool, 1)
	if err != nil {
		return err
	}
	cmd := cmds[0]
	if err := cmd.Begin(true); err != nil {
		return err
	}
	if err := sd.Builder.UpdateBottomLevel(cmd, primIDs); err != nil {
		return err
	}
	sd.Builder.UpdateTopLevel(cmd, nodes, dirty.Nodes, sd.instanceFlags(s.Model()))
	if err := cmd.End(); err != nil {
		return err
	}
	sd.Queue.Push(WorkItem{Cmd: cmd, IsBlasBuild: true})
	return nil
}

// CreateSceneSet allocates the trace outputs at width x height and the
// descriptor set binding the TLAS, both output images, the scene
// descriptor, and the texture array.
func (sd *SceneDevice) CreateSceneSet(width, height int) error {
	if sd.Builder.TLAS == nil || sd.descBuf == nil {
		return fmt.Errorf("scene not committed")
	}

	var err error
	sd.radianceImage, err = CreateStorageImage(sd.device, uint32(width), uint32(height))
	if err != nil {
		return fmt.Errorf("radiance image: %w", err)
	}
	sd.normalDepthImage, err = CreateStorageImage(sd.device, uint32(width), uint32(height))
	if err != nil {
		return fmt.Errorf("normal-depth image: %w", err)
	}
	if err := ExecuteSingleTimeCommands(sd.device, func(cmd C.VkCommandBuffer) {
		TransitionImageLayout(cmd, sd.radianceImage.Handle, sd.radianceImage.Format,
			C.VK_IMAGE_LAYOUT_UNDEFINED, C.VK_IMAGE_LAYOUT_GENERAL, 1)
		TransitionImageLayout(cmd, sd.normalDepthImage.Handle, sd.normalDepthImage.Format,
			C.VK_IMAGE_LAYOUT_UNDEFINED, C.VK_IMAGE_LAYOUT_GENERAL, 1)
	}); err != nil {
		return err
	}

	texCount := uint32(len(sd.textures))
	if texCount == 0 {
		texCount = 1
	}
	bindings := []C.VkDescriptorSetLayoutBinding{
		AccelerationStructureBinding(0),
		StorageImageBinding(1),
		StorageImageBinding(2),
		UniformBufferBinding(3),
		SampledTextureArrayBinding(4, texCount),
	}
	sd.descLayout, err = CreateDescriptorSetLayout(sd.device, bindings)
	if err != nil {
		return err
	}

	poolSizes := []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR, descriptorCount: 1},
		{_type: C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE, descriptorCount: 2},
		{_type: C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, descriptorCount: 1},
		{_type: C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, descriptorCount: C.uint32_t(texCount)},
	}
	sd.descPool, err = CreateDescriptorPool(sd.device, poolSizes, 1)
	if err != nil {
		return err
	}
	sets, err := sd.descPool.AllocateDescriptorSets(sd.device, []C.VkDescriptorSetLayout{sd.descLayout})
	if err != nil {
		return err
	}
	sd.sceneSet = sets[0]

	UpdateDescriptorSetAccelerationStructure(sd.device, sd.sceneSet.Handle, 0, sd.Builder.TLAS)
	UpdateDescriptorSetStorageImage(sd.device, sd.sceneSet.Handle, 1, sd.radianceImage.View)
	UpdateDescriptorSetStorageImage(sd.device, sd.sceneSet.Handle, 2, sd.normalDepthImage.View)
	UpdateDescriptorSetBuffer(sd.device, sd.sceneSet.Handle, 3, sd.descBuf.Handle, 0, sd.descBuf.Size)
	for i := range sd.textures {
		t := sd.textures[i]
		if t == nil {
			t = sd.fallback
		}
		UpdateDescriptorSetImage(sd.device, sd.sceneSet.Handle, 4, uint32(i), t.Image.View, t.Sampler)
	}
	if len(sd.textures) == 0 && sd.fallback != nil {
		UpdateDescriptorSetImage(sd.device, sd.sceneSet.Handle, 4, 0, sd.fallback.Image.View, sd.fallback.Sampler)
	}
	return nil
}

// SceneSet returns the bound scene descriptor set for trace dispatch.
func (sd *SceneDevice) SceneSet() DescriptorSet { return sd.sceneSet }

// Destroy releases everything the scene device owns.
func (sd *SceneDevice) Destroy() {
	sd.device.WaitIdle()
	for _, pb := range sd.prims {
		for _, b := range []*Buffer{pb.positions, pb.normals, pb.uv0, pb.indices} {
			if b != nil {
				b.Destroy(sd.device)
			}
		}
	}
	sd.prims = map[int]*primitiveBuffers{}
	for _, b := range []**Buffer{&sd.materialBuf, &sd.texInfoBuf, &sd.primBuf, &sd.nodeBuf, &sd.lightBuf, &sd.descBuf} {
		if *b != nil {
			(*b).Destroy(sd.device)
			*b = nil
		}
	}
	for _, t := range sd.textures {
		if t != nil && t != sd.fallback {
			t.Destroy(sd.device)
		}
	}
	sd.textures = nil
	if sd.fallback != nil {
		sd.fallback.Destroy(sd.device)
		sd.fallback = nil
	}
	if sd.radianceImage != nil {
		sd.radianceImage.Destroy(sd.device)
		sd.radianceImage = nil
	}
	if sd.normalDepthImage != nil {
		sd.normalDepthImage.Destroy(sd.device)
		sd.normalDepthImage = nil
	}
	if sd.descPool != nil {
		sd.descPool.Destroy(sd.device)
		sd.descPool = nil
	}
	if sd.descLayout != nil {
		C.vkDestroyDescriptorSetLayout(sd.device.Device, sd.descLayout, nil)
		sd.descLayout = nil
	}
	sd.Builder.Destroy()
}
