package gpu

import (
	"testing"

	"vkgltfscene/asset"
	"vkgltfscene/core"
)

func sampleMaterials(n int) []asset.Material {
	out := make([]asset.Material, n)
	for i := range out {
		out[i] = asset.Material{
			BaseColorFactor: core.Color{R: float32(i), G: 1, B: 1, A: 1},
			MetallicFactor:  float32(i) / 10,
			RoughnessFactor: 0.5,
			BaseColorTex:    &asset.TextureRef{TextureIndex: i, TexCoord: 0},
		}
	}
	return out
}

func TestShouldFullRebuild(t *testing.T) {
	cases := []struct {
		dirty, total int
		want         bool
	}{
		{0, 10, false},
		{5, 10, false},
		{6, 10, true},
		{10, 10, true},
		{0, 0, false},
	}
	for _, c := range cases {
		if got := ShouldFullRebuild(c.dirty, c.total); got != c.want {
			t.Errorf("ShouldFullRebuild(%d,%d) = %v, want %v", c.dirty, c.total, got, c.want)
		}
	}
}

// A surgical
// update of one material must produce exactly the same row (and
// texture-info span) that a full rebuild would produce for that material.
func TestMaterialTableSurgicalParity(t *testing.T) {
	mats := sampleMaterials(10)
	full := NewMaterialTable(mats)

	surgical := NewMaterialTable(mats)
	mats[3].MetallicFactor = 0.9
	mats[3].BaseColorTex.TexCoord = 1
	surgical.Update([]int{3}, mats)

	rebuilt := NewMaterialTable(mats)

	if surgical.Materials[3] != rebuilt.Materials[3] {
		t.Fatalf("surgical update diverged from rebuild: got %+v, want %+v", surgical.Materials[3], rebuilt.Materials[3])
	}
	base := rebuilt.Materials[3].TexInfoBase
	for i := uint32(0); i < texInfosPerMaterial; i++ {
		if surgical.TexInfos[base+i] != rebuilt.TexInfos[base+i] {
			t.Fatalf("tex info slot %d diverged", base+i)
		}
	}
	// Untouched materials must be unaffected by the surgical path.
	if surgical.Materials[0] != full.Materials[0] {
		t.Fatalf("untouched material 0 changed under surgical update")
	}
}

func TestMaterialTableOverHalfDirtyRebuilds(t *testing.T) {
	mats := sampleMaterials(10)
	table := NewMaterialTable(mats)
	before := append([]MaterialRecord(nil), table.Materials...)

	mats[0].MetallicFactor = 0.1
	dirty := []int{0, 1, 2, 3, 4, 5}
	table.Update(dirty, mats)

	if len(table.Materials) != len(mats) {
		t.Fatalf("rebuild should preserve material count")
	}
	if table.Materials[0] == before[0] {
		t.Fatalf("rebuild should have recomputed material 0")
	}
}

func TestMaterialTableResizeForcesRebuild(t *testing.T) {
	mats := sampleMaterials(4)
	table := NewMaterialTable(mats)
	mats = append(mats, asset.Material{MetallicFactor: 1})
	table.Update(nil, mats)
	if len(table.Materials) != 5 {
		t.Fatalf("expected table to grow to 5 materials, got %d", len(table.Materials))
	}
}

func TestTexInfoSentinelSlot(t *testing.T) {
	table := NewMaterialTable(sampleMaterials(2))
	if table.TexInfos[0].TextureIndex != -1 {
		t.Fatalf("slot 0 must be the reserved no-texture sentinel")
	}
}
