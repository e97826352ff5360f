package scene

import (
	"fmt"

	"vkgltfscene/asset"
	"vkgltfscene/core"
	"vkgltfscene/math"
)

// assignDefaultNames gives every unnamed scene/mesh/material/node/camera/
// light a default "<Kind>-<index>" name, so downstream UI and
// diagnostics never show an empty label.
func assignDefaultNames(m *asset.Model) {
	for i := range m.SceneNames {
		if m.SceneNames[i] == "" {
			m.SceneNames[i] = fmt.Sprintf("Scene-%d", i)
		}
	}
	for i := range m.Meshes {
		if m.Meshes[i].Name == "" {
			m.Meshes[i].Name = fmt.Sprintf("Mesh-%d", i)
		}
	}
	for i := range m.Materials {
		if m.Materials[i].Name == "" {
			m.Materials[i].Name = fmt.Sprintf("Material-%d", i)
		}
	}
	for i := range m.Nodes {
		if m.Nodes[i].Name == "" {
			m.Nodes[i].Name = fmt.Sprintf("Node-%d", i)
		}
	}
	for i := range m.Cameras {
		if m.Cameras[i].Name == "" {
			m.Cameras[i].Name = fmt.Sprintf("Camera-%d", i)
		}
	}
	for i := range m.Lights {
		if m.Lights[i].Name == "" {
			m.Lights[i].Name = fmt.Sprintf("Light-%d", i)
		}
	}
}

// ensureDefaultMaterial appends a default PBR material when the document
// defines none, so every primitive resolves to a valid material index.
func ensureDefaultMaterial(m *asset.Model) {
	if len(m.Materials) > 0 {
		return
	}
	m.Materials = append(m.Materials, asset.Material{
		Name:            "Material-0",
		BaseColorFactor: core.ColorWhite,
		MetallicFactor:  1,
		RoughnessFactor: 1,
		AlphaCutoff:     0.5,
		IOR:             1.5,
		PointerPath:     "/materials/0",
	})
}

// parseScene rebuilds s.primitives, s.nodes, s.lights and
// s.nodeToRenderNodes from s.graph by depth-first traversal of the active
// scene's roots, deduplicating geometry and expanding
// EXT_mesh_gpu_instancing along the way.
func (s *Scene) parseScene() error {
	s.primitives = nil
	s.primKeyIndex = map[string]int{}
	s.nodes = nil
	s.lights = nil
	s.nodeToRenderNodes = map[int][]int{}

	for _, nodeIndex := range s.graph.orderedNodes() {
		n := s.model.Nodes[nodeIndex]
		world := s.graph.worldMatrix(nodeIndex)
		visible := s.effectiveVisibility(nodeIndex)

		if n.Light != nil {
			s.lights = append(s.lights, RenderLight{
				WorldMatrix: world,
				LightIndex:  *n.Light,
				RefNodeID:   nodeIndex,
			})
		}

		if n.Mesh == nil {
			continue
		}
		mesh := s.model.Meshes[*n.Mesh]

		instances := instanceTransforms(n)

		for pi, prim := range mesh.Primitives {
			if prim.DracoPlaceholder {
				continue
			}
			primID, err := s.internPrimitive(*n.Mesh, pi, prim)
			if err != nil {
				return err
			}
			matID := s.resolveMaterial(prim)
			skinID := -1
			if n.Skin != nil {
				skinID = *n.Skin
			}

			if len(instances) == 0 {
				rn := RenderNode{
					WorldMatrix:  world,
					MaterialID:   matID,
					RenderPrimID: primID,
					RefNodeID:    nodeIndex,
					SkinID:       skinID,
					Visible:      visible,
				}
				idx := len(s.nodes)
				s.nodes = append(s.nodes, rn)
				s.nodeToRenderNodes[nodeIndex] = append(s.nodeToRenderNodes[nodeIndex], idx)
				continue
			}
			for _, inst := range instances {
				rn := RenderNode{
					WorldMatrix:  world.Mul(inst),
					MaterialID:   matID,
					RenderPrimID: primID,
					RefNodeID:    nodeIndex,
					SkinID:       skinID,
					Visible:      visible,
				}
				idx := len(s.nodes)
				s.nodes = append(s.nodes, rn)
				s.nodeToRenderNodes[nodeIndex] = append(s.nodeToRenderNodes[nodeIndex], idx)
			}
		}
	}

	s.generateMissingTangents()
	s.invalidateShadedCache()
	return nil
}

// internPrimitive returns the render-primitive index for (meshIndex,
// primIndex), creating a new entry the first time its DedupKey is seen.
func (s *Scene) internPrimitive(meshIndex, primIndex int, prim asset.Primitive) (int, error) {
	key := prim.DedupKey
	if idx, ok := s.primKeyIndex[key]; ok {
		return idx, nil
	}
	rp := RenderPrimitive{
		Key:            key,
		MeshIndex:      meshIndex,
		PrimitiveIndex: primIndex,
		VertexCount:    len(prim.Positions),
		IndexCount:     len(prim.Indices),
	}
	idx := len(s.primitives)
	s.primitives = append(s.primitives, rp)
	s.primKeyIndex[key] = idx
	return idx, nil
}

// resolveMaterial resolves a primitive's effective material under the
// currently active variant, falling back to its default material.
func (s *Scene) resolveMaterial(prim asset.Primitive) int {
	if s.currentVariant >= 0 {
		if mat, ok := prim.MaterialVariants[s.currentVariant]; ok {
			return mat
		}
	}
	if prim.Material != nil {
		return *prim.Material
	}
	return 0
}

// effectiveVisibility is the AND of nodeIndex's own Visible flag and every
// ancestor's.
func (s *Scene) effectiveVisibility(nodeIndex int) bool {
	for idx := nodeIndex; idx != -1; {
		if !s.model.Nodes[idx].Visible {
			return false
		}
		gn := s.graph.nodes[idx]
		if gn == nil {
			break
		}
		idx = gn.parent
	}
	return true
}

// instanceTransforms expands EXT_mesh_gpu_instancing into per-instance
// local matrices. The instance count is the max length across whichever
// of TRANSLATION/ROTATION/SCALE are present; a shorter or absent component
// takes the identity value for the remaining rows. Returns
// nil when the node does not carry the extension.
func instanceTransforms(n asset.Node) []math.Mat4 {
	count := len(n.InstancingTranslations)
	if l := len(n.InstancingRotations); l > count {
		count = l
	}
	if l := len(n.InstancingScales); l > count {
		count = l
	}
	if count == 0 {
		return nil
	}
	out := make([]math.Mat4, count)
	for i := 0; i < count; i++ {
		t := math.Vec3Zero
		if i < len(n.InstancingTranslations) {
			t = n.InstancingTranslations[i]
		}
		r := math.QuaternionIdentity()
		if i < len(n.InstancingRotations) {
			r = n.InstancingRotations[i]
		}
		sc := math.Vec3One
		if i < len(n.InstancingScales) {
			sc = n.InstancingScales[i]
		}
		out[i] = math.Mat4Translation(t).Mul(r.ToMat4()).Mul(math.Mat4Scale(sc))
	}
	return out
}
