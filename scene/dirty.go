package scene

// updateNodeWorldMatrices recomputes the world matrix of every node in
// dirtySet (and propagates to their render nodes), then returns the set of
// render-node indices that need their WorldMatrix re-uploaded. Used after
// an animation tick or a KHR_animation_pointer write touches node
// transforms without requiring a full parseScene rebuild.
func (s *Scene) updateNodeWorldMatrices(dirtySet map[int]bool) []int {
	var touched []int
	for nodeIndex := range dirtySet {
		gn := s.graph.nodes[nodeIndex]
		if gn == nil {
			continue
		}
		n := s.model.Nodes[nodeIndex]
		s.graph.setLocal(nodeIndex, localMatrix(n))
	}
	for _, rnIdx := range s.collectRenderNodeIndices(dirtySet, true, 1.0) {
		rn := &s.nodes[rnIdx]
		rn.WorldMatrix = s.graph.worldMatrix(rn.RefNodeID)
		touched = append(touched, rnIdx)
	}
	return touched
}

// updateVisibility recomputes RenderNode.Visible for every render node
// descending from any node in dirtySet, honoring the ancestor-AND
// invariant, and returns the touched render-node indices.
func (s *Scene) updateVisibility(dirtySet map[int]bool) []int {
	var touched []int
	affected := s.collectRenderNodeIndices(dirtySet, true, 1.0)
	for _, rnIdx := range affected {
		rn := &s.nodes[rnIdx]
		v := s.effectiveVisibility(rn.RefNodeID)
		if v != rn.Visible {
			rn.Visible = v
			touched = append(touched, rnIdx)
		}
	}
	return touched
}

// collectRenderNodeIndices maps a set of source node indices to their
// render-node indices. When includeDescendants is true, every descendant
// of a dirty node is also included (a parent transform or visibility
// write affects the whole subtree). fullUpdateRatio is the fraction of
// the scene's total render-node count above which the caller should
// prefer a full pass over this surgical one (see ShouldFullRebuild);
// the decision belongs to the GPU mirror, not here.
func (s *Scene) collectRenderNodeIndices(nodeSet map[int]bool, includeDescendants bool, fullUpdateRatio float32) []int {
	visited := map[int]bool{}
	var out []int

	var mark func(idx int)
	mark = func(idx int) {
		for _, rnIdx := range s.nodeToRenderNodes[idx] {
			if !visited[rnIdx] {
				visited[rnIdx] = true
				out = append(out, rnIdx)
			}
		}
		if includeDescendants {
			gn := s.graph.nodes[idx]
			if gn != nil {
				for _, c := range gn.children {
					mark(c)
				}
			}
		}
	}
	for idx := range nodeSet {
		mark(idx)
	}
	return out
}

// ApplyNodeDirty is the entry point the animation package drives after
// writing new transforms/visibility into the live asset.Model: it
// refreshes world matrices and visibility for dirtySet and returns every
// touched render-node index, suitable as the GPU mirror's per-frame dirty
// set.
func (s *Scene) ApplyNodeDirty(dirtySet map[int]bool) []int {
	touched := map[int]bool{}
	for _, idx := range s.updateNodeWorldMatrices(dirtySet) {
		touched[idx] = true
	}
	for _, idx := range s.updateVisibility(dirtySet) {
		touched[idx] = true
	}
	if len(touched) > 0 {
		s.invalidateShadedCache()
	}
	out := make([]int, 0, len(touched))
	for idx := range touched {
		out = append(out, idx)
	}
	return out
}

// ShouldFullRebuild reports whether the number of touched render nodes
// relative to the total exceeds ratio, the threshold past which a full
// dirty pass costs more than just reparsing the whole scene.
func (s *Scene) ShouldFullRebuild(touched int, ratio float32) bool {
	if len(s.nodes) == 0 {
		return false
	}
	return float32(touched)/float32(len(s.nodes)) > ratio
}
