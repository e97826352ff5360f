package gpu

import (
	"testing"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

func TestJointMatricesIdentity(t *testing.T) {
	refWorld := math.Mat4Identity()
	jointWorlds := []math.Mat4{math.Mat4Translation(math.Vec3{X: 1})}
	ibm := []math.Mat4{math.Mat4Identity()}

	joints, normals := JointMatrices(refWorld, jointWorlds, ibm)
	if len(joints) != 1 {
		t.Fatalf("expected 1 joint matrix, got %d", len(joints))
	}
	got := joints[0].MulVec3(math.Vec3Zero)
	want := math.Vec3{X: 1}
	if got != want {
		t.Fatalf("joint matrix should translate origin to %v, got %v", want, got)
	}
	if normals[0] != joints[0].ToMat3().Inverse().Transpose() {
		t.Fatalf("normal matrix mismatch")
	}
}

func TestSkinVertexZeroWeightIsNoop(t *testing.T) {
	v := core.Vertex{Position: math.Vec3{X: 1, Y: 2, Z: 3}, Normal: math.Vec3Up}
	out := SkinVertex(v, []math.Mat4{math.Mat4Translation(math.Vec3{X: 5})}, []math.Mat3{math.Mat4Identity().ToMat3()})
	if out.Position != v.Position || out.Normal != v.Normal {
		t.Fatalf("a vertex with all-zero weights should pass through unchanged, got %+v", out)
	}
}

func TestSkinVertexSingleInfluence(t *testing.T) {
	v := core.Vertex{
		Position: math.Vec3{X: 1},
		Normal:   math.Vec3Up,
		Joints:   [4]uint16{0, 0, 0, 0},
		Weights:  [4]float32{1, 0, 0, 0},
	}
	jointMats := []math.Mat4{math.Mat4Translation(math.Vec3{X: 2})}
	normalMats := []math.Mat3{math.Mat4Identity().ToMat3()}
	out := SkinVertex(v, jointMats, normalMats)
	want := math.Vec3{X: 3}
	if out.Position != want {
		t.Fatalf("expected skinned position %v, got %v", want, out.Position)
	}
}

func TestSkinVerticesBatchesMatchSequential(t *testing.T) {
	n := batchSize*3 + 17
	verts := make([]core.Vertex, n)
	for i := range verts {
		verts[i] = core.Vertex{
			Position: math.Vec3{X: float32(i)},
			Normal:   math.Vec3Up,
			Weights:  [4]float32{1, 0, 0, 0},
		}
	}
	jointMats := []math.Mat4{math.Mat4Translation(math.Vec3{X: 10})}
	normalMats := []math.Mat3{math.Mat4Identity().ToMat3()}

	out := SkinVertices(verts, jointMats, normalMats)
	for i, v := range out {
		want := float32(i) + 10
		if v.Position.X != want {
			t.Fatalf("vertex %d: expected X=%v, got %v", i, want, v.Position.X)
		}
	}
}
