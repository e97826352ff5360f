package gpu

import (
	"vkgltfscene/core"
	"vkgltfscene/math"
	"vkgltfscene/scene"
)

// Mirror is the CPU side of the GPU mirror: the material/texture-info table,
// render-node table, and light table kept in lockstep with a scene.Scene,
// plus the per-frame skinning/morph pass that produces the vertex buffers
// those tables' RenderPrimIDs point at. It holds no GPU handles itself;
// vulkan.SceneDevice wraps it with the actual buffer uploads.
type Mirror struct {
	Materials  *MaterialTable
	Nodes      *NodeTable
	Lights     *LightTable
	Primitives *PrimitiveTable

	// Descriptor is republished via PublishDescriptor whenever a table
	// buffer is (re)allocated and its device address moves.
	Descriptor SceneDescriptor

	// Vertices[primID] is the current (possibly skinned/morphed) vertex
	// buffer for that render primitive, rebuilt whenever a render node
	// referencing it moves through ApplyFrame.
	Vertices map[int][]core.Vertex

	baseVertices map[int][]core.Vertex
}

// NewMirror builds every table from scratch against s's current render
// graph.
func NewMirror(s *scene.Scene) *Mirror {
	model := s.Model()
	m := &Mirror{
		Materials:    NewMaterialTable(model.Materials),
		Nodes:        NewNodeTable(s.GetRenderNodes()),
		Lights:       NewLightTable(s.GetRenderLights(), model),
		Vertices:     map[int][]core.Vertex{},
		baseVertices: map[int][]core.Vertex{},
	}
	for i, rp := range s.GetRenderPrimitives() {
		prim := model.Meshes[rp.MeshIndex].Primitives[rp.PrimitiveIndex]
		base := BuildVertices(prim)
		m.baseVertices[i] = base
		m.Vertices[i] = base
	}
	m.Primitives = NewPrimitiveTable(s.GetRenderPrimitives(), nil)
	return m
}

// PublishDescriptor refreshes the scene descriptor from the current
// table addresses; call after any upload pass that may have resized a
// table buffer.
func (m *Mirror) PublishDescriptor(addrs TableAddrs) {
	m.Descriptor.Publish(addrs, len(m.Lights.Rows))
}

// FrameDirty is the union of dirty signals a frame boundary collects:
// node transform/visibility dirt from scene.ApplyNodeDirty, and resource
// dirt from animation.Player.LastResourceDirty.
type FrameDirty struct {
	Nodes     []int
	Materials []int
	Lights    []int
}

// ApplyFrame pushes one frame's dirty set through every table: materials
// use the surgical-vs-rebuild policy, the node table patches touched rows,
// and the light table rebuilds (lights are cheap and rarely churn). It
// also re-skins/re-morphs any touched render primitive whose node carries
// a skin or active morph weights.
func (m *Mirror) ApplyFrame(s *scene.Scene, dirty FrameDirty) {
	model := s.Model()
	m.Materials.Update(dirty.Materials, model.Materials)

	nodes := s.GetRenderNodes()
	m.Nodes.Update(dirty.Nodes, nodes)

	if len(dirty.Lights) > 0 {
		m.Lights.Rebuild(s.GetRenderLights(), model)
	}

	touchedPrims := map[int]bool{}
	for _, ni := range dirty.Nodes {
		if ni < 0 || ni >= len(nodes) {
			continue
		}
		touchedPrims[nodes[ni].RenderPrimID] = true
	}
	for primID := range touchedPrims {
		m.reskin(s, primID, nodes)
	}
}

// reskin recomputes primID's vertex buffer from its base geometry: applies
// morph blending first (object space), then CPU skinning. Finds the first render node referencing primID to source the
// skin/morph weights from; if several render nodes share the primitive
// with different weights, each would need its own vertex buffer — out of
// scope here; a render primitive's vertex buffer is shared across its
// instances.
func (m *Mirror) reskin(s *scene.Scene, primID int, nodes []scene.RenderNode) {
	base, ok := m.baseVertices[primID]
	if !ok {
		return
	}
	model := s.Model()

	var owner *scene.RenderNode
	for i := range nodes {
		if nodes[i].RenderPrimID == primID {
			owner = &nodes[i]
			break
		}
	}
	if owner == nil {
		return
	}

	verts := base
	if rp := findPrimitive(s, primID); rp.meshIndex >= 0 {
		mesh := model.Meshes[rp.meshIndex]
		if HasActiveMorph(mesh.MorphWeights) {
			verts = BlendMorphs(verts, mesh.MorphWeights)
		}
	}

	if owner.SkinID >= 0 && owner.SkinID < len(model.Skins) {
		skin := model.Skins[owner.SkinID]
		refNode := owner.RefNodeID
		if skin.Skeleton != nil {
			refNode = *skin.Skeleton
		}
		jointWorlds := make([]math.Mat4, len(skin.Joints))
		for i, j := range skin.Joints {
			jointWorlds[i] = s.NodeWorldMatrix(j)
		}
		jointMats, normalMats := JointMatrices(s.NodeWorldMatrix(refNode), jointWorlds, skin.InverseBindMatrices)
		verts = SkinVertices(verts, jointMats, normalMats)
	}

	m.Vertices[primID] = verts
}

type primRef struct {
	meshIndex, primIndex int
}

func findPrimitive(s *scene.Scene, primID int) primRef {
	prims := s.GetRenderPrimitives()
	if primID < 0 || primID >= len(prims) {
		return primRef{meshIndex: -1}
	}
	rp := prims[primID]
	return primRef{meshIndex: rp.MeshIndex, primIndex: rp.PrimitiveIndex}
}
