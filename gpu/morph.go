package gpu

import "vkgltfscene/core"

// BlendMorph starts from v's authored position/normal/tangent and adds
// weight * delta for every morph target with a non-zero weight. Targets
// beyond len(weights) are ignored; v itself is left untouched.
func BlendMorph(v core.Vertex, weights []float32) core.Vertex {
	out := v
	n := len(v.MorphDeltas)
	if n > len(weights) {
		n = len(weights)
	}
	for t := 0; t < n; t++ {
		w := weights[t]
		if w == 0 {
			continue
		}
		d := v.MorphDeltas[t]
		out.Position = out.Position.Add(d.DPosition.Mul(w))
		out.Normal = out.Normal.Add(d.DNormal.Mul(w))
		out.Tangent = out.Tangent.Add(d.DTangent.Mul(w))
	}
	return out
}

// BlendMorphs applies BlendMorph across every vertex of base, batched the
// same way SkinVertices is. base is left untouched.
func BlendMorphs(base []core.Vertex, weights []float32) []core.Vertex {
	out := make([]core.Vertex, len(base))
	runBatched(len(base), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = BlendMorph(base[i], weights)
		}
	})
	return out
}

// HasActiveMorph reports whether any weight is non-zero, so a caller can
// skip the blend pass entirely for primitives whose morph weights are all
// at rest.
func HasActiveMorph(weights []float32) bool {
	for _, w := range weights {
		if w != 0 {
			return true
		}
	}
	return false
}
