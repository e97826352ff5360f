package pathtrace

import (
	"testing"

	vmath "vkgltfscene/math"
)

func TestPrimaryRayOriginAndAim(t *testing.T) {
	eye := vmath.Vec3{Z: 3}
	view := vmath.Mat4LookAt(eye, vmath.Vec3{}, vmath.Vec3Up)
	proj := vmath.Mat4Perspective(0.7853982, 1, 0.1, 100)
	cam := NewCamera(view, proj, 64, 64, 0, 1)

	if cam.Origin.Sub(eye).Length() > 1e-5 {
		t.Fatalf("camera origin %v, want %v", cam.Origin, eye)
	}

	r := cam.PrimaryRay(32, 32, NewRand(0, 0, 0))
	if r.Origin != cam.Origin {
		t.Fatalf("pinhole ray must start at the eye, got %v", r.Origin)
	}
	if abs32(r.Direction.Length()-1) > 1e-5 {
		t.Fatalf("ray direction must be unit length, got %g", r.Direction.Length())
	}
	// The center pixel looks down -Z toward the origin; jitter keeps it
	// within the pixel's footprint.
	if r.Direction.Z > -0.99 {
		t.Fatalf("center ray should aim roughly -Z, got %v", r.Direction)
	}
}

func TestPrimaryRayCoversFrustum(t *testing.T) {
	view := vmath.Mat4LookAt(vmath.Vec3{Z: 3}, vmath.Vec3{}, vmath.Vec3Up)
	proj := vmath.Mat4Perspective(0.7853982, 1, 0.1, 100)
	cam := NewCamera(view, proj, 64, 64, 0, 1)
	rnd := NewRand(0, 0, 0)

	left := cam.PrimaryRay(0, 32, rnd)
	right := cam.PrimaryRay(63, 32, rnd)
	if left.Direction.X >= 0 {
		t.Fatalf("leftmost pixel should aim -X, got %v", left.Direction)
	}
	if right.Direction.X <= 0 {
		t.Fatalf("rightmost pixel should aim +X, got %v", right.Direction)
	}

	top := cam.PrimaryRay(32, 0, rnd)
	bottom := cam.PrimaryRay(32, 63, rnd)
	if top.Direction.Y <= 0 {
		t.Fatalf("top pixel row should aim +Y, got %v", top.Direction)
	}
	if bottom.Direction.Y >= 0 {
		t.Fatalf("bottom pixel row should aim -Y, got %v", bottom.Direction)
	}
}

func TestPrimaryRayDepthOfFieldKeepsFocalPlaneSharp(t *testing.T) {
	view := vmath.Mat4LookAt(vmath.Vec3{Z: 3}, vmath.Vec3{}, vmath.Vec3Up)
	proj := vmath.Mat4Perspective(0.7853982, 1, 0.1, 100)

	pinhole := NewCamera(view, proj, 64, 64, 0, 3)
	dof := NewCamera(view, proj, 64, 64, 0.2, 3)

	// Same jitter sequence for both cameras.
	base := pinhole.PrimaryRay(20, 20, NewRand(9, 9, 9))
	lens := dof.PrimaryRay(20, 20, NewRand(9, 9, 9))

	if lens.Origin == base.Origin {
		t.Fatalf("lens ray should be displaced off the pinhole origin")
	}
	// Both rays pass (nearly) through the same focal point at t = 3.
	focalBase := base.At(3)
	// Solve for the lens ray's parameter at the focal plane depth rather
	// than assuming t=3, since its direction length normalization shifts
	// the parametrization slightly.
	tLens := focalBase.Sub(lens.Origin).Length()
	focalLens := lens.At(tLens)
	if focalLens.Sub(focalBase).Length() > 1e-3 {
		t.Fatalf("focal-plane points diverge: %v vs %v", focalLens, focalBase)
	}
}
