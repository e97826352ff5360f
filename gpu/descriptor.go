package gpu

import (
	"fmt"

	"vkgltfscene/scene"
)

// MaxSceneTextures is the descriptor-array capacity for scene textures.
// A scene that exceeds it cannot be committed; the caller aborts and
// cleans up partially-loaded resources instead of binding a truncated
// set.
const MaxSceneTextures = 4096

// CheckTextureCapacity rejects a scene whose texture count would
// overflow the descriptor array.
func CheckTextureCapacity(textureCount int) error {
	if textureCount > MaxSceneTextures {
		return fmt.Errorf("gpu: scene uses %d textures, descriptor capacity is %d", textureCount, MaxSceneTextures)
	}
	return nil
}

// PrimitiveRecord is one render primitive's entry in the GPU
// render-primitive table: the device addresses of its vertex attribute
// buffers and index buffer, plus the counts ray-generation needs to
// compute primitive counts. A zero address means the attribute is not
// present (the shader substitutes defaults).
type PrimitiveRecord struct {
	PositionAddr uint64
	NormalAddr   uint64
	TangentAddr  uint64
	TexCoord0Addr uint64
	TexCoord1Addr uint64
	ColorAddr    uint64
	IndexAddr    uint64

	VertexCount uint32
	IndexCount  uint32
}

// BufferAddresses resolves a render primitive's per-attribute device
// addresses; the vulkan wrapper implements it against its live buffer
// set, tests implement it with fakes.
type BufferAddresses interface {
	PrimitiveAddresses(primID int) PrimitiveRecord
}

// PrimitiveTable is the render-primitive table. It is rebuilt only on a
// geometry change (load, scene switch); per-frame skinning and morphing
// rewrite buffer contents in place and never move addresses, so the
// table stays valid across frames.
type PrimitiveTable struct {
	Records []PrimitiveRecord
}

// NewPrimitiveTable builds the table for every render primitive in order.
func NewPrimitiveTable(prims []scene.RenderPrimitive, addrs BufferAddresses) *PrimitiveTable {
	t := &PrimitiveTable{Records: make([]PrimitiveRecord, len(prims))}
	for i, rp := range prims {
		rec := PrimitiveRecord{VertexCount: uint32(rp.VertexCount), IndexCount: uint32(rp.IndexCount)}
		if addrs != nil {
			rec = addrs.PrimitiveAddresses(i)
			rec.VertexCount = uint32(rp.VertexCount)
			rec.IndexCount = uint32(rp.IndexCount)
		}
		t.Records[i] = rec
	}
	return t
}

// SceneDescriptor is the single uniform record every shader stage reads
// to find the rest of the scene: device addresses of the five tables
// plus the light count. Republish after any table buffer is resized,
// since a resize allocates a new buffer with a new address.
type SceneDescriptor struct {
	MaterialTableAddr  uint64
	TexInfoTableAddr   uint64
	PrimitiveTableAddr uint64
	NodeTableAddr      uint64
	LightTableAddr     uint64
	LightCount         uint32
}

// TableAddrs is the address set a descriptor publish reads; the vulkan
// wrapper fills it from its buffer handles after any (re)allocation.
type TableAddrs struct {
	Materials  uint64
	TexInfos   uint64
	Primitives uint64
	Nodes      uint64
	Lights     uint64
}

// Publish rewrites the descriptor from the current table addresses and
// light table size.
func (d *SceneDescriptor) Publish(addrs TableAddrs, lightCount int) {
	d.MaterialTableAddr = addrs.Materials
	d.TexInfoTableAddr = addrs.TexInfos
	d.PrimitiveTableAddr = addrs.Primitives
	d.NodeTableAddr = addrs.Nodes
	d.LightTableAddr = addrs.Lights
	d.LightCount = uint32(lightCount)
}
