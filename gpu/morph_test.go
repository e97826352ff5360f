package gpu

import (
	"testing"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

func TestBlendMorphAddsWeightedDelta(t *testing.T) {
	v := core.Vertex{
		Position: math.Vec3{X: 1},
		MorphDeltas: []core.MorphDelta{
			{DPosition: math.Vec3{X: 2}},
			{DPosition: math.Vec3{X: 100}}, // weight 0, must not contribute
		},
	}
	out := BlendMorph(v, []float32{0.5, 0})
	want := float32(1 + 0.5*2)
	if out.Position.X != want {
		t.Fatalf("expected blended X=%v, got %v", want, out.Position.X)
	}
}

func TestBlendMorphIgnoresExtraWeights(t *testing.T) {
	v := core.Vertex{MorphDeltas: []core.MorphDelta{{DPosition: math.Vec3{X: 1}}}}
	out := BlendMorph(v, []float32{1, 1, 1})
	if out.Position.X != 1 {
		t.Fatalf("expected only the first weight to apply, got %v", out.Position.X)
	}
}

func TestHasActiveMorph(t *testing.T) {
	if HasActiveMorph([]float32{0, 0, 0}) {
		t.Fatalf("all-zero weights should not be active")
	}
	if !HasActiveMorph([]float32{0, 0.001, 0}) {
		t.Fatalf("a non-zero weight should be active")
	}
}

func TestBlendMorphsMatchesSequential(t *testing.T) {
	n := batchSize + 5
	verts := make([]core.Vertex, n)
	for i := range verts {
		verts[i] = core.Vertex{
			Position:    math.Vec3{X: float32(i)},
			MorphDeltas: []core.MorphDelta{{DPosition: math.Vec3{X: 1}}},
		}
	}
	out := BlendMorphs(verts, []float32{2})
	for i, v := range out {
		want := float32(i) + 2
		if v.Position.X != want {
			t.Fatalf("vertex %d: expected X=%v, got %v", i, want, v.Position.X)
		}
	}
}
