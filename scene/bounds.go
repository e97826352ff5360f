package scene

import "vkgltfscene/math"

// boundsBox is a simple world-space axis-aligned bounding box, tracked
// separately from core.AABB because the scene package only ever needs the
// min/max pair and recomputes it from render-node world matrices.
type boundsBox struct {
	min, max math.Vec3
	valid    bool
}

// recomputeBounds rebuilds s.bounds by unioning every visible render
// node's local position extents transformed into world space. Falls back
// to a unit cube centered on the origin when the scene has no geometry,
// so a synthesized camera always has something finite to frame.
func (s *Scene) recomputeBounds() {
	var b boundsBox
	for _, rn := range s.nodes {
		if !rn.Visible || rn.RenderPrimID < 0 || rn.RenderPrimID >= len(s.primitives) {
			continue
		}
		corners := primitiveLocalCorners(s, rn.RenderPrimID)
		for _, c := range corners {
			wc := rn.WorldMatrix.MulVec3(c)
			encapsulate(&b, wc)
		}
	}
	if !b.valid {
		b.min = math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}
		b.max = math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	}
	s.bounds = b
}

func encapsulate(b *boundsBox, p math.Vec3) {
	if !b.valid {
		b.min, b.max, b.valid = p, p, true
		return
	}
	if p.X < b.min.X {
		b.min.X = p.X
	}
	if p.Y < b.min.Y {
		b.min.Y = p.Y
	}
	if p.Z < b.min.Z {
		b.min.Z = p.Z
	}
	if p.X > b.max.X {
		b.max.X = p.X
	}
	if p.Y > b.max.Y {
		b.max.Y = p.Y
	}
	if p.Z > b.max.Z {
		b.max.Z = p.Z
	}
}

// primitiveLocalCorners returns the 8 corners of the primitive's local
// bounding box, computed from its vertex positions directly since
// RenderPrimitive does not cache one.
func primitiveLocalCorners(s *Scene, primID int) []math.Vec3 {
	rp := s.primitives[primID]
	mesh := s.model.Meshes[rp.MeshIndex]
	prim := mesh.Primitives[rp.PrimitiveIndex]
	if len(prim.Positions) == 0 {
		return nil
	}
	min, max := prim.Positions[0], prim.Positions[0]
	for _, p := range prim.Positions[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}
	return []math.Vec3{
		{X: min.X, Y: min.Y, Z: min.Z}, {X: max.X, Y: min.Y, Z: min.Z},
		{X: min.X, Y: max.Y, Z: min.Z}, {X: max.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: min.Y, Z: max.Z}, {X: max.X, Y: min.Y, Z: max.Z},
		{X: min.X, Y: max.Y, Z: max.Z}, {X: max.X, Y: max.Y, Z: max.Z},
	}
}
