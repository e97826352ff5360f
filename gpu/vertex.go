// Package gpu mirrors the live scene.Scene into GPU-ready tables: the
// material/texture-info table, the render-node transform table, the light
// table, and the CPU-side skinning/morph passes that feed them.
// Dirty updates are driven by the same node/material/light index sets
// animation.Player and scene.Scene already produce; this package decides,
// for each table, whether a surgical in-place update or a full rebuild is
// cheaper, and does the actual math in pure, goroutine-batched helpers so
// the policy can be exercised without a GPU.
package gpu

import (
	"vkgltfscene/asset"
	"vkgltfscene/core"
)

// BuildVertices assembles one RenderPrimitive's interleaved CPU vertex
// buffer from an asset.Primitive's parallel attribute arrays, transposing
// its per-target morph arrays (asset.MorphTarget.DPositions/DNormals/
// DTangents, one parallel array per target) into per-vertex
// core.Vertex.MorphDeltas, the layout the blend pass in morph.go and the
// skinning pass in skinning.go both iterate vertex-major.
func BuildVertices(prim asset.Primitive) []core.Vertex {
	n := len(prim.Positions)
	if n == 0 {
		return nil
	}
	out := make([]core.Vertex, n)
	targetCount := len(prim.MorphTargets)
	if targetCount > core.MaxMorphTargets {
		targetCount = core.MaxMorphTargets
	}
	for i := 0; i < n; i++ {
		v := &out[i]
		v.Position = prim.Positions[i]
		if i < len(prim.Normals) {
			v.Normal = prim.Normals[i]
		}
		if i < len(prim.Tangents) {
			t := prim.Tangents[i]
			v.Tangent = t.ToVec3()
			v.Bitangent = v.Normal.Cross(v.Tangent).Mul(t.W)
		}
		if i < len(prim.UV0) {
			v.UV0 = prim.UV0[i]
		}
		if i < len(prim.UV1) {
			v.UV1 = prim.UV1[i]
		}
		if i < len(prim.Colors) {
			v.Color = prim.Colors[i]
		} else {
			v.Color = core.ColorWhite
		}
		if i < len(prim.Joints) {
			v.Joints = prim.Joints[i]
		}
		if i < len(prim.Weights) {
			v.Weights = prim.Weights[i]
		}
		if targetCount > 0 {
			v.MorphDeltas = make([]core.MorphDelta, targetCount)
			for t := 0; t < targetCount; t++ {
				mt := prim.MorphTargets[t]
				var d core.MorphDelta
				if i < len(mt.DPositions) {
					d.DPosition = mt.DPositions[i]
				}
				if i < len(mt.DNormals) {
					d.DNormal = mt.DNormals[i]
				}
				if i < len(mt.DTangents) {
					d.DTangent = mt.DTangents[i]
				}
				v.MorphDeltas[t] = d
			}
		}
	}
	return out
}
