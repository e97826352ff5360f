package pathtrace

import (
	vmath "vkgltfscene/math"
)

// Ray is a world-space ray; the valid-distance window travels alongside
// as [tmin, tmax] arguments rather than on the struct.
type Ray struct {
	Origin    vmath.Vec3
	Direction vmath.Vec3
}

func (r Ray) At(t float32) vmath.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// eps guards the Möller–Trumbore determinant test and the shadow-ray
// self-intersection offset.
const eps = 1e-6

// AABB is an axis-aligned bounding box used by the BVH broad phase and
// the SAH split heuristic.
type AABB struct {
	Min, Max vmath.Vec3
}

func EmptyAABB() AABB {
	const inf = 3.402823e+38
	return AABB{
		Min: vmath.Vec3{X: inf, Y: inf, Z: inf},
		Max: vmath.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

func (b AABB) Encapsulate(p vmath.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

func (b AABB) Union(o AABB) AABB {
	return b.Encapsulate(o.Min).Encapsulate(o.Max)
}

func (b AABB) Center() vmath.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) LongestAxis() int {
	d := b.Max.Sub(b.Min)
	axis := 0
	longest := d.X
	if d.Y > longest {
		axis, longest = 1, d.Y
	}
	if d.Z > longest {
		axis = 2
	}
	return axis
}

func (b AABB) SurfaceArea() float32 {
	d := b.Max.Sub(b.Min)
	if d.X < 0 || d.Y < 0 || d.Z < 0 {
		return 0
	}
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

func axis(v vmath.Vec3, a int) float32 {
	switch a {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Hit tests r against the box's three slabs, the standard slab test.
func (b AABB) Hit(r Ray, tmin, tmax float32) bool {
	for a := 0; a < 3; a++ {
		origin, dir := axis(r.Origin, a), axis(r.Direction, a)
		lo, hi := axis(b.Min, a), axis(b.Max, a)
		if dir == 0 {
			if origin < lo || origin > hi {
				return false
			}
			continue
		}
		invD := 1 / dir
		t0 := (lo - origin) * invD
		t1 := (hi - origin) * invD
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmax <= tmin {
			return false
		}
	}
	return true
}

// Vertex is the minimal per-corner attribute set the integrator
// interpolates across a hit triangle.
type Vertex struct {
	Position vmath.Vec3
	Normal   vmath.Vec3
	Tangent  vmath.Vec3
	UV0      vmath.Vec2
	Color    vmath.Vec3
}

// Triangle is one world-space BVH leaf. InstanceID/MaterialID identify
// which TLAS-equivalent instance and which material produced it, since
// the BVH flattens several render nodes' geometry into one leaf array.
type Triangle struct {
	V0, V1, V2 Vertex
	InstanceID int
	MaterialID int
	PrimID     int // RenderPrimID, instanceCustomIndex's equivalent
}

func (t Triangle) Bounds() AABB {
	b := EmptyAABB()
	return b.Encapsulate(t.V0.Position).Encapsulate(t.V1.Position).Encapsulate(t.V2.Position)
}

func (t Triangle) Centroid() vmath.Vec3 {
	return t.V0.Position.Add(t.V1.Position).Add(t.V2.Position).Mul(1.0 / 3.0)
}

// Hit is a resolved ray-triangle intersection's barycentric coordinates
// and parametric distance; interpolation is deferred to Interpolate so a
// BVH traversal can cheaply compare just t across candidate leaves.
type Hit struct {
	T    float32
	U, V float32
	Tri  *Triangle
}

// Intersect implements the Möller–Trumbore algorithm, with a small
// epsilon slack on the barycentric bounds so edge-on hits aren't lost
// to rounding.
func (t *Triangle) Intersect(r Ray, tmin, tmax float32) (Hit, bool) {
	edge1 := t.V1.Position.Sub(t.V0.Position)
	edge2 := t.V2.Position.Sub(t.V0.Position)
	h := r.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -eps && a < eps {
		return Hit{}, false
	}
	f := 1 / a
	s := r.Origin.Sub(t.V0.Position)
	u := f * s.Dot(h)
	if u < -eps || u > 1+eps {
		return Hit{}, false
	}
	q := s.Cross(edge1)
	v := f * r.Direction.Dot(q)
	if v < -eps || u+v > 1+eps {
		return Hit{}, false
	}
	dist := f * edge2.Dot(q)
	if dist < tmin || dist > tmax {
		return Hit{}, false
	}
	return Hit{T: dist, U: u, V: v, Tri: t}, true
}

// Interpolate barycentrically blends the hit triangle's three corner
// vertices; the geometric normal (face normal, unaffected by shading
// normals) is returned separately since the NEE hemisphere test and the
// shadow-ray offset both want the geometric normal, not the
// interpolated shading normal.
func (h Hit) Interpolate() (v Vertex, geometricNormal vmath.Vec3) {
	w := 1 - h.U - h.V
	tri := h.Tri
	v.Position = tri.V0.Position.Mul(w).Add(tri.V1.Position.Mul(h.U)).Add(tri.V2.Position.Mul(h.V))
	v.Normal = tri.V0.Normal.Mul(w).Add(tri.V1.Normal.Mul(h.U)).Add(tri.V2.Normal.Mul(h.V)).Normalize()
	v.Tangent = tri.V0.Tangent.Mul(w).Add(tri.V1.Tangent.Mul(h.U)).Add(tri.V2.Tangent.Mul(h.V)).Normalize()
	v.UV0 = tri.V0.UV0.Mul(w).Add(tri.V1.UV0.Mul(h.U)).Add(tri.V2.UV0.Mul(h.V))
	v.Color = tri.V0.Color.Mul(w).Add(tri.V1.Color.Mul(h.U)).Add(tri.V2.Color.Mul(h.V))
	geometricNormal = tri.V1.Position.Sub(tri.V0.Position).Cross(tri.V2.Position.Sub(tri.V0.Position)).Normalize()
	return v, geometricNormal
}
