package pathtrace

import (
	"testing"

	"vkgltfscene/asset"
	"vkgltfscene/core"
	vmath "vkgltfscene/math"
	"vkgltfscene/scene"
)

func testCamera(width, height int) Camera {
	view := vmath.Mat4LookAt(vmath.Vec3{Z: 3}, vmath.Vec3{}, vmath.Vec3Up)
	proj := vmath.Mat4Perspective(0.7853982, 1, 0.1, 100)
	return NewCamera(view, proj, width, height, 0, 1)
}

// quadModel returns a model with one camera-facing quad at z=0 spanning
// [-2,2]^2, large enough that every primary ray from testCamera hits it.
func quadModel(mat asset.Material) *asset.Model {
	mesh := 0
	m := &asset.Model{
		Materials: []asset.Material{mat},
		Meshes: []asset.Mesh{{Primitives: []asset.Primitive{{
			Positions: []vmath.Vec3{
				{X: -2, Y: -2}, {X: 2, Y: -2}, {X: 2, Y: 2}, {X: -2, Y: 2},
			},
			Normals: []vmath.Vec3{
				{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1},
			},
			Indices:  []uint32{0, 1, 2, 0, 2, 3},
			Mode:     asset.ModeTriangles,
			DedupKey: "quad",
		}}}},
		Nodes: []asset.Node{{
			Name: "quad", Visible: true, Mesh: &mesh,
			Scale: vmath.Vec3{X: 1, Y: 1, Z: 1},
		}},
		Scenes:       [][]int{{0}},
		DefaultScene: 0,
	}
	return m
}

func buildTestIntegrator(t *testing.T, model *asset.Model, env Environment, cfg Config) *Integrator {
	t.Helper()
	sc, err := scene.New(model)
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	accel := BuildAccel(sc, model, func(m asset.Material) bool {
		return m.AlphaMode == asset.AlphaOpaque && m.TransmissionFactor == 0
	})
	mix := NewLightMix(nil, env)
	return NewIntegrator(accel, model, mix, env, nil, cfg)
}

func TestMissReturnsBackgroundAndClearsAlpha(t *testing.T) {
	model := &asset.Model{
		Nodes:        []asset.Node{{Name: "empty", Visible: true}},
		Scenes:       [][]int{{0}},
		DefaultScene: 0,
	}
	bg := FlatBackground{Color: vmath.Vec3{X: 0.25, Y: 0.5, Z: 0.75}}
	cfg := DefaultConfig()
	it := buildTestIntegrator(t, model, bg, cfg)

	ps := it.TracePixel(testCamera(8, 8), 4, 4, 0)
	if ps.Alpha != 0 {
		t.Fatalf("expected alpha 0 on primary miss, got %g", ps.Alpha)
	}
	if ps.FirstHitDepth != 0 {
		t.Fatalf("expected zero depth on miss, got %g", ps.FirstHitDepth)
	}
	// A camera ray is an impulse, so the background arrives unweighted.
	if abs32(ps.Radiance.X-0.25) > 1e-5 || abs32(ps.Radiance.Y-0.5) > 1e-5 || abs32(ps.Radiance.Z-0.75) > 1e-5 {
		t.Fatalf("expected background radiance, got %v", ps.Radiance)
	}
}

func TestEmissiveHitAccumulatesAndFillsAux(t *testing.T) {
	mat := asset.Material{
		EmissiveFactor:   vmath.Vec3{X: 1, Y: 2, Z: 3},
		EmissiveStrength: 1,
		AlphaMode:        asset.AlphaOpaque,
		AlphaCutoff:      0.5,
		BaseColorFactor:  core.Color{A: 1},
		RoughnessFactor:  1,
		IOR:              1.5,
	}
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	it := buildTestIntegrator(t, quadModel(mat), nil, cfg)

	ps := it.TracePixel(testCamera(8, 8), 4, 4, 0)
	if ps.Alpha != 1 {
		t.Fatalf("expected alpha 1 on hit, got %g", ps.Alpha)
	}
	if ps.FirstHitDepth <= 0 {
		t.Fatalf("expected positive first-hit depth, got %g", ps.FirstHitDepth)
	}
	if ps.FirstHitNormal.Z <= 0.9 {
		t.Fatalf("expected camera-facing first-hit normal, got %v", ps.FirstHitNormal)
	}
	if abs32(ps.Radiance.X-1) > 1e-4 || abs32(ps.Radiance.Y-2) > 1e-4 || abs32(ps.Radiance.Z-3) > 1e-4 {
		t.Fatalf("expected emissive radiance (1,2,3), got %v", ps.Radiance)
	}
}

func TestUnlitTerminatesWithBaseColor(t *testing.T) {
	mat := asset.Material{
		BaseColorFactor: core.Color{R: 0.2, G: 0.4, B: 0.6, A: 1},
		Unlit:           true,
		AlphaMode:       asset.AlphaOpaque,
		IOR:             1.5,
	}
	bg := FlatBackground{Color: vmath.Vec3{X: 100, Y: 100, Z: 100}}
	cfg := DefaultConfig()
	cfg.FireflyClamp = 0
	it := buildTestIntegrator(t, quadModel(mat), bg, cfg)

	ps := it.TracePixel(testCamera(8, 8), 4, 4, 0)
	if abs32(ps.Radiance.X-0.2) > 1e-5 || abs32(ps.Radiance.Y-0.4) > 1e-5 || abs32(ps.Radiance.Z-0.6) > 1e-5 {
		t.Fatalf("expected unlit base color, got %v", ps.Radiance)
	}
}

func TestFireflyClampBoundsLuminance(t *testing.T) {
	mat := asset.Material{
		EmissiveFactor:   vmath.Vec3{X: 500, Y: 500, Z: 500},
		EmissiveStrength: 1,
		AlphaMode:        asset.AlphaOpaque,
		BaseColorFactor:  core.Color{A: 1},
		RoughnessFactor:  1,
		IOR:              1.5,
	}
	cfg := DefaultConfig()
	cfg.FireflyClamp = 2
	cfg.MaxDepth = 1
	it := buildTestIntegrator(t, quadModel(mat), nil, cfg)

	ps := it.TracePixel(testCamera(8, 8), 4, 4, 0)
	if lum := luminance(ps.Radiance); lum > 2+1e-4 {
		t.Fatalf("expected luminance clamped to 2, got %g", lum)
	}
}

func TestRenderFrameDimensions(t *testing.T) {
	mat := asset.Material{
		BaseColorFactor: core.Color{R: 1, G: 1, B: 1, A: 1},
		RoughnessFactor: 1,
		AlphaMode:       asset.AlphaOpaque,
		IOR:             1.5,
	}
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	it := buildTestIntegrator(t, quadModel(mat), FlatBackground{Color: vmath.Vec3{X: 1, Y: 1, Z: 1}}, cfg)

	frame := it.Render(testCamera(16, 12), 16, 12, 0)
	if frame.Width != 16 || frame.Height != 12 {
		t.Fatalf("unexpected frame dims %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Radiance) != 16*12 || len(frame.NormalDepth) != 16*12 {
		t.Fatalf("unexpected buffer sizes %d/%d", len(frame.Radiance), len(frame.NormalDepth))
	}
	center := frame.Radiance[6*16+8]
	if center.W != 1 {
		t.Fatalf("expected full coverage at frame center, got alpha %g", center.W)
	}
}

// Deterministic seeding: the same (pixel, frame) always traces the same
// path.
func TestTracePixelDeterministic(t *testing.T) {
	mat := asset.Material{
		BaseColorFactor: core.Color{R: 0.8, G: 0.8, B: 0.8, A: 1},
		RoughnessFactor: 0.5,
		AlphaMode:       asset.AlphaOpaque,
		IOR:             1.5,
	}
	it := buildTestIntegrator(t, quadModel(mat), FlatBackground{Color: vmath.Vec3{X: 1, Y: 1, Z: 1}}, DefaultConfig())
	cam := testCamera(8, 8)

	a := it.TracePixel(cam, 3, 5, 7)
	b := it.TracePixel(cam, 3, 5, 7)
	if a.Radiance != b.Radiance || a.FirstHitDepth != b.FirstHitDepth {
		t.Fatalf("identical (pixel, frame) traced different paths: %v vs %v", a, b)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
