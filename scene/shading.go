package scene

import "vkgltfscene/asset"

// GetShadedNodes returns the indices of every visible render node whose
// material falls in the requested ShadingBucket, caching the result
// until the render graph or material assignments next change. Passing
// BucketAll returns every visible render node.
func (s *Scene) GetShadedNodes(kind ShadingBucket) []int {
	if s.shadedCacheValid {
		if cached, ok := s.shadedCache[kind]; ok {
			return cached
		}
	}
	if s.shadedCache == nil {
		s.shadedCache = map[ShadingBucket][]int{}
	}
	var out []int
	for i, rn := range s.nodes {
		if !rn.Visible {
			continue
		}
		if kind == BucketAll || s.bucketOf(rn) == kind {
			out = append(out, i)
		}
	}
	s.shadedCache[kind] = out
	s.shadedCacheValid = true
	return out
}

func (s *Scene) bucketOf(rn RenderNode) ShadingBucket {
	if rn.MaterialID < 0 || rn.MaterialID >= len(s.model.Materials) {
		return BucketOpaqueSingleSided
	}
	mat := s.model.Materials[rn.MaterialID]
	// Transmissive surfaces sort with blended ones: both need
	// behind-them color resolved first.
	if mat.AlphaMode == asset.AlphaBlend || mat.TransmissionFactor > 0 {
		return BucketBlended
	}
	if mat.DoubleSided {
		return BucketOpaqueDoubleSided
	}
	return BucketOpaqueSingleSided
}
