package pathtrace

import (
	"vkgltfscene/asset"
	vmath "vkgltfscene/math"
	"vkgltfscene/scene"
)

// Instance is one TLAS-equivalent row: a render node's world transform
// plus a reference to its render primitive's local-space BVH. Two-level
// traversal (Accel.Intersect transforms the ray into instance space,
// then walks Primitive) keeps the same per-primitive-reuse structure the
// GPU BLAS/TLAS split has, rather than flattening every instance's
// triangles into one giant world-space soup.
type Instance struct {
	World     vmath.Mat4
	Inverse   vmath.Mat4 // World.Inverse(), cached
	Normal    vmath.Mat3 // World.NormalMatrix(), cached
	Primitive *BVH
	MaterialID int
	RenderPrimID int
	Visible    bool
	// ForceOpaque mirrors rt.InstanceFlags.ForceOpaque: skip the
	// any-hit opacity test entirely for a fully opaque instance.
	ForceOpaque bool
}

// Accel is the pathtrace package's CPU stand-in for the GPU TLAS: a
// flat instance array plus a world-space AABB per instance for the broad
// phase, then a per-instance BVH descent for the narrow phase.
type Accel struct {
	instances []Instance
	bounds    []AABB // world-space, parallel to instances
}

// primitiveBVHCache caches one BVH per RenderPrimitive, built once in
// local space and shared across every instance that references it, the
// same sharing the one-BLAS-per-render-primitive layout has.
type primitiveBVHCache struct {
	byPrimID map[int]*BVH
}

func newPrimitiveBVHCache() *primitiveBVHCache {
	return &primitiveBVHCache{byPrimID: make(map[int]*BVH)}
}

// get constructs (or returns the cached) local-space BVH
// for a render primitive's triangle soup, assembled from the primitive's
// source asset.Primitive attribute arrays exactly as gpu.BuildVertices
// indexes them, but kept as a triangle list rather than the interleaved
// core.Vertex records gpu.BuildVertices produces since the integrator only ever reads, never
// uploads, this data.
func (c *primitiveBVHCache) get(primID int, prim asset.Primitive) *BVH {
	if bvh, ok := c.byPrimID[primID]; ok {
		return bvh
	}
	tris := trianglesFromPrimitive(prim)
	bvh := BuildBVH(tris)
	c.byPrimID[primID] = bvh
	return bvh
}

func trianglesFromPrimitive(prim asset.Primitive) []Triangle {
	indices := prim.Indices
	if len(indices) == 0 {
		indices = make([]uint32, len(prim.Positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	vertexAt := func(i uint32) Vertex {
		v := Vertex{}
		if int(i) < len(prim.Positions) {
			v.Position = prim.Positions[i]
		}
		if int(i) < len(prim.Normals) {
			v.Normal = prim.Normals[i]
		}
		if int(i) < len(prim.Tangents) {
			v.Tangent = prim.Tangents[i].ToVec3()
		}
		if int(i) < len(prim.UV0) {
			v.UV0 = prim.UV0[i]
		}
		if int(i) < len(prim.Colors) {
			c := prim.Colors[i]
			v.Color = vmath.Vec3{X: c.R, Y: c.G, Z: c.B}
		} else {
			v.Color = vmath.Vec3{X: 1, Y: 1, Z: 1}
		}
		return v
	}
	tris := make([]Triangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		tris = append(tris, Triangle{
			V0: vertexAt(indices[i]),
			V1: vertexAt(indices[i+1]),
			V2: vertexAt(indices[i+2]),
		})
	}
	return tris
}

// BuildAccel flattens the current render graph into the two-level
// structure Intersect walks, one instance per render node.
func BuildAccel(sc *scene.Scene, model *asset.Model, materialFlags func(asset.Material) (forceOpaque bool)) *Accel {
	cache := newPrimitiveBVHCache()
	primitives := sc.GetRenderPrimitives()
	nodes := sc.GetRenderNodes()

	accel := &Accel{
		instances: make([]Instance, 0, len(nodes)),
		bounds:    make([]AABB, 0, len(nodes)),
	}
	for _, rn := range nodes {
		if rn.RenderPrimID < 0 || rn.RenderPrimID >= len(primitives) {
			continue
		}
		rp := primitives[rn.RenderPrimID]
		if rp.MeshIndex < 0 || rp.MeshIndex >= len(model.Meshes) {
			continue
		}
		mesh := model.Meshes[rp.MeshIndex]
		if rp.PrimitiveIndex < 0 || rp.PrimitiveIndex >= len(mesh.Primitives) {
			continue
		}
		prim := mesh.Primitives[rp.PrimitiveIndex]
		if prim.DracoPlaceholder {
			continue // Draco-flagged primitives carry no decoded geometry
		}
		bvh := cache.get(rn.RenderPrimID, prim)

		forceOpaque := false
		if rn.MaterialID >= 0 && rn.MaterialID < len(model.Materials) && materialFlags != nil {
			forceOpaque = materialFlags(model.Materials[rn.MaterialID])
		}

		inst := Instance{
			World:        rn.WorldMatrix,
			Inverse:      rn.WorldMatrix.Inverse(),
			Normal:       rn.WorldMatrix.NormalMatrix(),
			Primitive:    bvh,
			MaterialID:   rn.MaterialID,
			RenderPrimID: rn.RenderPrimID,
			Visible:      rn.Visible,
			ForceOpaque:  forceOpaque,
		}
		accel.instances = append(accel.instances, inst)
		accel.bounds = append(accel.bounds, instanceWorldBounds(bvh, rn.WorldMatrix))
	}
	return accel
}

func instanceWorldBounds(bvh *BVH, world vmath.Mat4) AABB {
	local := bvh.Bounds()
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := vmath.Vec3{
			X: pickAxis(i&1 != 0, local.Min.X, local.Max.X),
			Y: pickAxis(i&2 != 0, local.Min.Y, local.Max.Y),
			Z: pickAxis(i&4 != 0, local.Min.Z, local.Max.Z),
		}
		out = out.Encapsulate(world.MulVec3(corner))
	}
	return out
}

func pickAxis(cond bool, a, b float32) float32 {
	if cond {
		return b
	}
	return a
}

// OpaqueTest is called for a hit on a non-force-opaque instance; it
// reports whether the hit should be accepted (opaque or
// probabilistically accepted BLEND) or skipped (continue traversal past
// it).
type OpaqueTest func(inst *Instance, hit Hit, rnd *Rand) bool

// Intersect finds the closest hit across every visible instance,
// testing each instance's world AABB before transforming the ray into
// its local space and descending that instance's BVH.
func (a *Accel) Intersect(r Ray, tmin, tmax float32) (Hit, *Instance, bool) {
	var bestHit Hit
	var bestInst *Instance
	found := false
	for i := range a.instances {
		inst := &a.instances[i]
		if !inst.Visible {
			continue
		}
		if !a.bounds[i].Hit(r, tmin, tmax) {
			continue
		}
		// localRay's direction is the inverse-transformed (not
		// renormalized) world direction, so t stays parametrically
		// identical in both spaces — an affine map's Jacobian is
		// constant, so distance-along-the-ray scales linearly and h.T
		// compares directly against world-space tmax/tmin.
		localRay := Ray{Origin: inst.Inverse.MulVec3(r.Origin), Direction: inst.Inverse.ToMat3().MulVec3(r.Direction)}
		if h, ok := inst.Primitive.Intersect(localRay, tmin, tmax); ok && h.T < tmax {
			tmax = h.T
			bestHit = h
			bestInst = inst
			found = true
		}
	}
	return bestHit, bestInst, found
}

// AnyOccluder reports whether any visible instance occludes the segment
// [tmin, tmax] along r, applying opaqueTest to decide whether a non-
// force-opaque hit actually blocks the shadow ray.
func (a *Accel) AnyOccluder(r Ray, tmin, tmax float32, rnd *Rand, opaqueTest OpaqueTest) bool {
	for i := range a.instances {
		inst := &a.instances[i]
		if !inst.Visible {
			continue
		}
		if !a.bounds[i].Hit(r, tmin, tmax) {
			continue
		}
		localRay := Ray{Origin: inst.Inverse.MulVec3(r.Origin), Direction: inst.Inverse.ToMat3().MulVec3(r.Direction)}
		hit := inst.Primitive.AnyHit(localRay, tmin, tmax, func(h Hit) bool {
			if inst.ForceOpaque || opaqueTest == nil {
				return true
			}
			return opaqueTest(inst, h, rnd)
		})
		if hit {
			return true
		}
	}
	return false
}
