package scene

import (
	"vkgltfscene/asset"
	"vkgltfscene/math"
)

// generateMissingTangents fills in Primitive.Tangents for any primitive
// that has normals and a UV0 set but was not authored with tangents,
// using the UV-gradient method: accumulate a per-triangle tangent/
// bitangent from the UV parameterization, then Gram-Schmidt orthogonalize
// against the vertex normal. Handedness is
// recorded in the w component per glTF convention.
func (s *Scene) generateMissingTangents() {
	for mi := range s.model.Meshes {
		mesh := &s.model.Meshes[mi]
		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			if prim.DracoPlaceholder || len(prim.Tangents) > 0 {
				continue
			}
			if len(prim.Normals) == 0 || len(prim.UV0) == 0 || len(prim.Positions) == 0 {
				continue
			}
			generatePrimitiveTangents(prim)
		}
	}
}

func generatePrimitiveTangents(prim *asset.Primitive) {
	n := len(prim.Positions)
	tangent := make([]math.Vec3, n)
	bitangent := make([]math.Vec3, n)

	accum := func(i0, i1, i2 uint32) {
		v0, v1, v2 := prim.Positions[i0], prim.Positions[i1], prim.Positions[i2]
		uv0, uv1, uv2 := prim.UV0[i0], prim.UV0[i1], prim.UV0[i2]

		e1 := v1.Sub(v0)
		e2 := v2.Sub(v0)

		du1 := uv1.X - uv0.X
		dv1 := uv1.Y - uv0.Y
		du2 := uv2.X - uv0.X
		dv2 := uv2.Y - uv0.Y

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			return
		}
		r := 1.0 / denom

		t := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		b := e2.Mul(du1 * r).Sub(e1.Mul(du2 * r))

		tangent[i0] = tangent[i0].Add(t)
		tangent[i1] = tangent[i1].Add(t)
		tangent[i2] = tangent[i2].Add(t)
		bitangent[i0] = bitangent[i0].Add(b)
		bitangent[i1] = bitangent[i1].Add(b)
		bitangent[i2] = bitangent[i2].Add(b)
	}

	if len(prim.Indices) > 0 {
		for i := 0; i+2 < len(prim.Indices); i += 3 {
			accum(prim.Indices[i], prim.Indices[i+1], prim.Indices[i+2])
		}
	} else {
		for i := 0; i+2 < n; i += 3 {
			accum(uint32(i), uint32(i+1), uint32(i+2))
		}
	}

	out := make([]math.Vec4, n)
	for i := 0; i < n; i++ {
		nrm := prim.Normals[i]
		t := tangent[i]
		b := bitangent[i]

		t = t.Sub(nrm.Mul(nrm.Dot(t)))
		if t.LengthSqr() < 1e-8 {
			if absf(nrm.X) < 0.9 {
				t = math.Vec3{X: 1}.Sub(nrm.Mul(nrm.X))
			} else {
				t = math.Vec3{Y: 1}.Sub(nrm.Mul(nrm.Y))
			}
		}
		t = t.Normalize()

		handedness := float32(1)
		if nrm.Cross(t).Dot(b) < 0 {
			handedness = -1
		}
		out[i] = math.Vec4{X: t.X, Y: t.Y, Z: t.Z, W: handedness}
	}
	prim.Tangents = out
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
