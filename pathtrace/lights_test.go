package pathtrace

import (
	"testing"

	"vkgltfscene/gpu"
	vmath "vkgltfscene/math"
)

// The two strategies' balance-heuristic weights for the same direction
// must sum to 1 whenever both pdfs are finite and non-zero.
func TestMISWeightClosure(t *testing.T) {
	cases := []struct {
		envPdf, bsdfPdf float32
	}{
		{0.5, 0.5},
		{0.1, 2.0},
		{3.0, 0.01},
		{1e-3, 1e3},
	}
	for _, tc := range cases {
		// Environment sampled via NEE vs. the same direction reached by a
		// BSDF sample: envMISWeight weights the BSDF side against the
		// env pdf, and the complement is exactly the env side's weight.
		bsdfW := envMISWeight(tc.bsdfPdf, tc.envPdf)
		envW := tc.envPdf / (tc.bsdfPdf + tc.envPdf)
		if sum := bsdfW + envW; abs32(sum-1) > 1e-5 {
			t.Fatalf("env/bsdf MIS weights sum to %g for pdfs %v", sum, tc)
		}
	}
}

// Within the NEE mixture itself, the light and environment branches'
// weights for one shared direction close to 1.
func TestMISWeightNEEMixtureClosure(t *testing.T) {
	const lw, ew = 0.5, 0.5
	lightPdf, envPdf := float32(0.8), float32(0.3)
	fromLight := misWeightNEE(lightPdf, envPdf, false, lw, ew)
	fromEnv := misWeightNEE(envPdf, lightPdf, true, lw, ew)
	if sum := fromLight + fromEnv; abs32(sum-1) > 1e-5 {
		t.Fatalf("mixture MIS weights sum to %g", sum)
	}
}

func TestMISWeightDiracIsFull(t *testing.T) {
	if w := misWeightNEE(Dirac, 0.7, false, 0.5, 0.5); w != 1 {
		t.Fatalf("Dirac chosen pdf must get weight 1, got %g", w)
	}
	if w := envMISWeight(Dirac, 0.7); w != 1 {
		t.Fatalf("impulse BSDF event must get weight 1, got %g", w)
	}
}

func TestNewLightMixWeights(t *testing.T) {
	light := gpu.LightRecord{Intensity: 1}
	cases := []struct {
		lights       []gpu.LightRecord
		env          Environment
		wantL, wantE float32
	}{
		{nil, NoEnvironment{}, 0, 0},
		{[]gpu.LightRecord{light}, NoEnvironment{}, 1, 0},
		{nil, FlatBackground{}, 0, 1},
		{[]gpu.LightRecord{light}, FlatBackground{}, 0.5, 0.5},
	}
	for i, tc := range cases {
		m := NewLightMix(tc.lights, tc.env)
		if m.lightWeight != tc.wantL || m.envWeight != tc.wantE {
			t.Fatalf("case %d: weights (%g,%g), want (%g,%g)", i, m.lightWeight, m.envWeight, tc.wantL, tc.wantE)
		}
	}
}

// Both mixture weights zero (no lights, no environment): NEE draws
// nothing and the integrator adds no direct light, leaving the pixel
// black apart from emissives.
func TestLightMixSampleNothingToSample(t *testing.T) {
	m := NewLightMix(nil, NoEnvironment{})
	rnd := NewRand(0, 0, 0)
	if _, ok := m.Sample(vmath.Vec3{}, vmath.Vec3{Z: 1}, vmath.Vec3{Z: 1}, PBR{}, rnd); ok {
		t.Fatalf("expected no NEE sample with empty mixture")
	}
}

func TestSampleLightPointFalloff(t *testing.T) {
	l := gpu.LightRecord{
		Type:      uint32(lightTypePoint),
		Color:     [3]float32{1, 1, 1},
		Intensity: 4,
		Position:  vmath.Vec3{Z: 2},
	}
	rnd := NewRand(1, 1, 1)
	s := SampleLight(l, vmath.Vec3{}, rnd)
	if s.Pdf != Dirac {
		t.Fatalf("point light must report a Dirac pdf, got %g", s.Pdf)
	}
	if abs32(s.Dist-2) > 1e-5 {
		t.Fatalf("expected distance 2, got %g", s.Dist)
	}
	// intensity/dist^2 = 4/4 = 1
	if abs32(s.RadianceOverPdf.X-1) > 1e-4 {
		t.Fatalf("expected inverse-square falloff radiance 1, got %v", s.RadianceOverPdf)
	}
	if abs32(s.Dir.Z-1) > 1e-5 {
		t.Fatalf("expected direction +Z toward light, got %v", s.Dir)
	}
}
