package animation

import (
	"testing"

	"vkgltfscene/asset"
)

func linearAnim(node int) asset.Animation {
	return asset.Animation{
		Samplers: []asset.Sampler{
			{
				Input:         []float32{0, 1, 2},
				Output:        [][]float32{{0, 0, 0}, {10, 0, 0}, {0, 0, 0}},
				Interpolation: asset.InterpLinear,
			},
		},
		Channels: []asset.Channel{
			{SamplerIndex: 0, TargetNode: &node, TargetPath: asset.PathTranslation},
		},
	}
}

func newTestModel() *asset.Model {
	return &asset.Model{
		Nodes: []asset.Node{{Name: "root"}},
	}
}

func TestPlayerAdvanceLinear(t *testing.T) {
	m := newTestModel()
	m.Animations = []asset.Animation{linearAnim(0)}

	p := New(m)
	if err := p.Play(0); err != nil {
		t.Fatalf("Play: %v", err)
	}
	dirty := p.Advance(0.5)
	if !dirty[0] {
		t.Fatalf("expected node 0 dirty")
	}
	if got := m.Nodes[0].Translation.X; got != 5 {
		t.Fatalf("expected halfway interpolation x=5, got %v", got)
	}
}

func TestPlayerLoops(t *testing.T) {
	m := newTestModel()
	m.Animations = []asset.Animation{linearAnim(0)}

	p := New(m)
	p.Play(0)
	p.Advance(2.5) // loops past end=2 back into range
	if p.Time() < 0 || p.Time() >= 2 {
		t.Fatalf("expected looped time in [0,2), got %v", p.Time())
	}
}

func TestPlayerStopIgnoresAdvance(t *testing.T) {
	m := newTestModel()
	m.Animations = []asset.Animation{linearAnim(0)}
	p := New(m)
	p.Stop()
	dirty := p.Advance(1)
	if len(dirty) != 0 {
		t.Fatalf("expected no dirty nodes while stopped, got %v", dirty)
	}
}

func TestPlayInvalidIndex(t *testing.T) {
	m := newTestModel()
	p := New(m)
	if err := p.Play(3); err == nil {
		t.Fatalf("expected error for out-of-range animation index")
	}
}

func TestCubicSplineMatchesHermiteAtEndpoints(t *testing.T) {
	samp := asset.Sampler{
		Input: []float32{0, 1},
		Output: [][]float32{
			{0, 0, 0, /*value*/ 0, 0, 0, /*out-tangent*/ 0, 0, 0},
			{/*in-tangent*/ 0, 0, 0, /*value*/ 5, 5, 5, 0, 0, 0},
		},
		Interpolation: asset.InterpCubicSpline,
	}
	at0 := cubicSpline(samp, 0, 0, 3)
	if at0[0] != 0 {
		t.Fatalf("expected value at t=0 to equal key0 value, got %v", at0)
	}
	at1 := cubicSpline(samp, 0, 1, 3)
	if at1[0] != 5 {
		t.Fatalf("expected value at t=1 to equal key1 value, got %v", at1)
	}
}

func TestPointerChannelWritesShadowAndSyncsMaterial(t *testing.T) {
	m := &asset.Model{
		Materials: []asset.Material{{Name: "m0", PointerPath: "/materials/0"}},
	}
	node := 0
	_ = node
	anim := asset.Animation{
		Samplers: []asset.Sampler{
			{Input: []float32{0, 1}, Output: [][]float32{{1}, {0}}, Interpolation: asset.InterpLinear},
		},
		Channels: []asset.Channel{
			{SamplerIndex: 0, TargetPath: asset.PathPointer, PointerPath: "/materials/0/extensions/KHR_materials_emissive_strength/emissiveStrength"},
		},
	}
	m.Animations = []asset.Animation{anim}

	p := New(m)
	p.Play(0)
	p.Advance(0.5)

	if m.Materials[0].EmissiveStrength != 0.5 {
		t.Fatalf("expected emissiveStrength synced to 0.5, got %v", m.Materials[0].EmissiveStrength)
	}
}

func TestParsePointerResourceKinds(t *testing.T) {
	cases := []struct {
		path string
		kind ResourceKind
		idx  int
	}{
		{"/materials/2/pbrMetallicRoughness/baseColorFactor", ResourceMaterial, 2},
		{"/extensions/KHR_lights_punctual/lights/1/intensity", ResourceLight, 1},
		{"/cameras/0/orthographic/ymag", ResourceCamera, 0},
		{"/nodes/3/translation", ResourceNode, 3},
		{"/unknown/path", ResourceNone, -1},
	}
	for _, c := range cases {
		cp := parsePointer(c.path)
		if cp.kind != c.kind || cp.index != c.idx {
			t.Errorf("parsePointer(%q) = %v/%d, want %v/%d", c.path, cp.kind, cp.index, c.kind, c.idx)
		}
	}
}
