package scene

import (
	"testing"

	"vkgltfscene/asset"
	"vkgltfscene/math"
)

func cubePrimitive(key string) asset.Primitive {
	return asset.Primitive{
		Positions: []math.Vec3{
			{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
		Mode:    asset.ModeTriangles,
		DedupKey: key,
	}
}

func twoNodeModel() *asset.Model {
	mesh := 0
	return &asset.Model{
		Meshes: []asset.Mesh{
			{Primitives: []asset.Primitive{cubePrimitive("mesh0/prim0")}},
		},
		Nodes: []asset.Node{
			{Name: "parent", Visible: true, Scale: math.Vec3{X: 1, Y: 1, Z: 1}, Children: []int{1}},
			{Name: "child", Visible: true, Mesh: &mesh, Scale: math.Vec3{X: 1, Y: 1, Z: 1}, Translation: math.Vec3{X: 2, Y: 0, Z: 0}},
		},
		Scenes:       [][]int{{0}},
		DefaultScene: 0,
	}
}

func TestNewBuildsOneRenderNodePerMeshNode(t *testing.T) {
	m := twoNodeModel()
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nodes := s.GetRenderNodes()
	if len(nodes) != 1 {
		t.Fatalf("expected 1 render node, got %d", len(nodes))
	}
	if nodes[0].RefNodeID != 1 {
		t.Fatalf("expected render node to reference source node 1, got %d", nodes[0].RefNodeID)
	}
}

func TestPrimitiveDedup(t *testing.T) {
	mesh0, mesh1 := 0, 1
	key := "shared"
	m := &asset.Model{
		Meshes: []asset.Mesh{
			{Primitives: []asset.Primitive{cubePrimitive(key)}},
			{Primitives: []asset.Primitive{cubePrimitive(key)}},
		},
		Nodes: []asset.Node{
			{Name: "a", Visible: true, Mesh: &mesh0, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
			{Name: "b", Visible: true, Mesh: &mesh1, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
		},
		Scenes:       [][]int{{0, 1}},
		DefaultScene: 0,
	}
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.GetRenderPrimitives()) != 1 {
		t.Fatalf("expected primitives with identical DedupKey to share one render primitive, got %d", len(s.GetRenderPrimitives()))
	}
	if len(s.GetRenderNodes()) != 2 {
		t.Fatalf("expected 2 render nodes, got %d", len(s.GetRenderNodes()))
	}
}

func TestAncestorVisibilityInvariant(t *testing.T) {
	m := twoNodeModel()
	m.Nodes[0].Visible = false // parent invisible
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nodes := s.GetRenderNodes()
	if len(nodes) != 1 {
		t.Fatalf("expected 1 render node, got %d", len(nodes))
	}
	if nodes[0].Visible {
		t.Fatalf("expected render node to be invisible when an ancestor is invisible")
	}
}

func TestApplyNodeDirtyUpdatesWorldMatrix(t *testing.T) {
	m := twoNodeModel()
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := s.GetRenderNodes()[0].WorldMatrix

	m.Nodes[0].Translation = math.Vec3{X: 5, Y: 0, Z: 0}
	touched := s.ApplyNodeDirty(map[int]bool{0: true})
	if len(touched) == 0 {
		t.Fatalf("expected at least one touched render node")
	}
	after := s.GetRenderNodes()[0].WorldMatrix
	if after == before {
		t.Fatalf("expected world matrix to change after parent translation")
	}
}

func TestSetVariantRangeChecked(t *testing.T) {
	m := twoNodeModel()
	m.Variants = []string{"v0", "v1"}
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.SetVariant(1); err != nil {
		t.Fatalf("SetVariant(1): %v", err)
	}
	if _, err := s.SetVariant(5); err == nil {
		t.Fatalf("expected error for out-of-range variant")
	}
}

func TestSetVariantReportsChangedRenderNodes(t *testing.T) {
	m := twoNodeModel()
	m.Variants = []string{"day", "night"}
	m.Materials = make([]asset.Material, 8)
	m.Meshes[0].Primitives[0].MaterialVariants = map[int]int{1: 7}
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dirty, err := s.SetVariant(1)
	if err != nil {
		t.Fatalf("SetVariant(1): %v", err)
	}
	if len(dirty) != 1 || dirty[0] != 0 {
		t.Fatalf("expected dirty set {0}, got %v", dirty)
	}
	if got := s.GetRenderNodes()[0].MaterialID; got != 7 {
		t.Fatalf("expected material 7 after variant switch, got %d", got)
	}

	// Re-applying the same variant changes nothing.
	dirty, err = s.SetVariant(1)
	if err != nil {
		t.Fatalf("SetVariant(1) again: %v", err)
	}
	if len(dirty) != 0 {
		t.Fatalf("expected empty dirty set on no-op switch, got %v", dirty)
	}

	// Switching back restores the default material and re-reports the node.
	dirty, err = s.SetVariant(0)
	if err != nil {
		t.Fatalf("SetVariant(0): %v", err)
	}
	if len(dirty) != 1 {
		t.Fatalf("expected dirty set {0} switching back, got %v", dirty)
	}
	if got := s.GetRenderNodes()[0].MaterialID; got != 0 {
		t.Fatalf("expected default material 0 after switching back, got %d", got)
	}
}

func TestGetShadedNodesBuckets(t *testing.T) {
	m := twoNodeModel()
	m.Materials = []asset.Material{
		{AlphaMode: asset.AlphaOpaque},
	}
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.GetShadedNodes(BucketOpaqueSingleSided); len(got) != 1 {
		t.Fatalf("expected 1 opaque single-sided node, got %v", got)
	}
	if got := s.GetShadedNodes(BucketBlended); len(got) != 0 {
		t.Fatalf("expected no blended nodes, got %v", got)
	}

	// A transmissive material sorts with the blended bucket.
	m.Materials[0].TransmissionFactor = 0.5
	s.invalidateShadedCache()
	if got := s.GetShadedNodes(BucketBlended); len(got) != 1 {
		t.Fatalf("expected transmissive node in blended bucket, got %v", got)
	}
	if got := s.GetShadedNodes(BucketAll); len(got) != 1 {
		t.Fatalf("BucketAll should list every visible node, got %v", got)
	}
}

func TestBoundsFallBackToUnitCubeWithoutGeometry(t *testing.T) {
	m := &asset.Model{
		Nodes:        []asset.Node{{Name: "empty", Visible: true}},
		Scenes:       [][]int{{0}},
		DefaultScene: 0,
	}
	s, err := New(m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	min, max := s.Bounds()
	if min.X != -0.5 || max.X != 0.5 {
		t.Fatalf("expected unit-cube fallback bounds, got min=%v max=%v", min, max)
	}
}
