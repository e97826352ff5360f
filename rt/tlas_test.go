package rt

import (
	"testing"

	"vkgltfscene/math"
	"vkgltfscene/scene"
)

func TestRowMajor3x4DropsBottomRow(t *testing.T) {
	m := math.Mat4Translation(math.Vec3{X: 1, Y: 2, Z: 3})
	out := rowMajor3x4(m)
	want := [12]float32{
		1, 0, 0, 1,
		0, 1, 0, 2,
		0, 0, 1, 3,
	}
	if out != want {
		t.Fatalf("rowMajor3x4 = %v, want %v", out, want)
	}
}

func TestRowMajor3x4Identity(t *testing.T) {
	out := rowMajor3x4(math.Mat4Identity())
	want := [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
	if out != want {
		t.Fatalf("rowMajor3x4(identity) = %v", out)
	}
}

func TestBuildInstanceRowVisible(t *testing.T) {
	rn := scene.RenderNode{
		WorldMatrix:  math.Mat4Translation(math.Vec3{X: 5}),
		RenderPrimID: 1,
		Visible:      true,
	}
	blas := []uint64{0x1000, 0x2000}
	transform, mask, flags, asRef := BuildInstanceRow(rn, InstanceFlags{ForceOpaque: true}, blas)

	if transform[3] != 5 {
		t.Fatalf("translation not packed into row 0 column 3: %v", transform)
	}
	if mask != 0x01 {
		t.Fatalf("visible instance mask = %#x, want 0x01", mask)
	}
	if !flags.ForceOpaque {
		t.Fatalf("flags must pass through")
	}
	if asRef != 0x2000 {
		t.Fatalf("AS reference = %#x, want the prim's BLAS address 0x2000", asRef)
	}
}

func TestBuildInstanceRowInvisibleZeroesReference(t *testing.T) {
	rn := scene.RenderNode{
		WorldMatrix:  math.Mat4Identity(),
		RenderPrimID: 0,
		Visible:      false,
	}
	_, mask, _, asRef := BuildInstanceRow(rn, InstanceFlags{}, []uint64{0x1000})
	if mask != 0 {
		t.Fatalf("invisible instance mask = %#x, want 0", mask)
	}
	if asRef != 0 {
		t.Fatalf("invisible instance must carry a zero AS reference, got %#x", asRef)
	}
}

func TestBuildInstanceRowOutOfRangePrim(t *testing.T) {
	rn := scene.RenderNode{
		WorldMatrix:  math.Mat4Identity(),
		RenderPrimID: 7,
		Visible:      true,
	}
	_, _, _, asRef := BuildInstanceRow(rn, InstanceFlags{}, []uint64{0x1000})
	if asRef != 0 {
		t.Fatalf("missing BLAS must yield a zero reference, got %#x", asRef)
	}
}
