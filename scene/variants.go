package scene

import "fmt"

// SetVariant activates KHR_materials_variants variant index (or -1 to
// return to each primitive's default material) and reassigns MaterialID
// on every affected render node without rebuilding the render graph.
// The returned slice lists exactly the render nodes whose MaterialID
// changed, in index order, ready to feed the GPU mirror's node-table
// update.
func (s *Scene) SetVariant(variantIndex int) ([]int, error) {
	if variantIndex >= len(s.model.Variants) {
		return nil, fmt.Errorf("scene: variant index %d out of range (have %d)", variantIndex, len(s.model.Variants))
	}
	s.currentVariant = variantIndex
	var dirty []int
	for i := range s.nodes {
		rn := &s.nodes[i]
		mesh := s.model.Meshes[s.primitives[rn.RenderPrimID].MeshIndex]
		prim := mesh.Primitives[s.primitives[rn.RenderPrimID].PrimitiveIndex]
		if resolved := s.resolveMaterial(prim); resolved != rn.MaterialID {
			rn.MaterialID = resolved
			dirty = append(dirty, i)
		}
	}
	if len(dirty) > 0 {
		s.invalidateShadedCache()
	}
	return dirty, nil
}

func (s *Scene) CurrentVariant() int { return s.currentVariant }
