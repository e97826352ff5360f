package gpu

import (
	"math"
	"testing"

	"vkgltfscene/asset"
	"vkgltfscene/core"
	mathx "vkgltfscene/math"
)

func TestDeriveLightDirectionalAngularSize(t *testing.T) {
	l := asset.Light{Type: asset.LightDirectional, Radius: defaultSunDistance}
	rec := DeriveLight(l, mathx.Mat4Identity())
	want := float32(2 * math.Atan(1))
	if diff := rec.AngularSize - want; diff > 1e-5 || diff < -1e-5 {
		t.Fatalf("expected angularSize %v, got %v", want, rec.AngularSize)
	}
}

func TestDeriveLightDirectionalZeroRadiusIsHardSun(t *testing.T) {
	l := asset.Light{Type: asset.LightDirectional}
	rec := DeriveLight(l, mathx.Mat4Identity())
	if rec.AngularSize != 0 {
		t.Fatalf("zero radius should leave angularSize at 0, got %v", rec.AngularSize)
	}
}

func TestDeriveLightPointInvRange(t *testing.T) {
	l := asset.Light{Type: asset.LightPoint, Range: 4}
	rec := DeriveLight(l, mathx.Mat4Identity())
	if rec.InvRange != 0.25 {
		t.Fatalf("expected invRange 0.25, got %v", rec.InvRange)
	}
}

func TestDeriveLightPointInfiniteRange(t *testing.T) {
	l := asset.Light{Type: asset.LightPoint}
	rec := DeriveLight(l, mathx.Mat4Identity())
	if rec.InvRange != 0 {
		t.Fatalf("range=0 (infinite) should leave invRange at 0, got %v", rec.InvRange)
	}
}

func TestDeriveLightPositionFollowsWorldMatrix(t *testing.T) {
	l := asset.Light{Type: asset.LightPoint, Color: core.ColorWhite, Intensity: 1}
	world := mathx.Mat4Translation(mathx.Vec3{X: 1, Y: 2, Z: 3})
	rec := DeriveLight(l, world)
	want := mathx.Vec3{X: 1, Y: 2, Z: 3}
	if rec.Position != want {
		t.Fatalf("expected position %v, got %v", want, rec.Position)
	}
}
