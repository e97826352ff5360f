package pathtrace

import (
	"testing"

	"vkgltfscene/asset"
	"vkgltfscene/core"
)

func maskHit() (Instance, Hit) {
	tri := &Triangle{}
	return Instance{MaterialID: 0}, Hit{T: 1, U: 0.25, V: 0.25, Tri: tri}
}

func TestOpacityMaskBelowCutoffPassesThrough(t *testing.T) {
	model := &asset.Model{Materials: []asset.Material{{
		AlphaMode:       asset.AlphaMask,
		AlphaCutoff:     0.5,
		BaseColorFactor: core.Color{R: 1, G: 1, B: 1, A: 0.25},
	}}}
	inst, hit := maskHit()
	tester := OpacityTester{Model: model}
	if tester.Test(&inst, hit, NewRand(0, 0, 0)) {
		t.Fatalf("alpha 0.25 below cutoff 0.5 must not block")
	}
}

func TestOpacityMaskAboveCutoffBlocks(t *testing.T) {
	model := &asset.Model{Materials: []asset.Material{{
		AlphaMode:       asset.AlphaMask,
		AlphaCutoff:     0.5,
		BaseColorFactor: core.Color{R: 1, G: 1, B: 1, A: 0.75},
	}}}
	inst, hit := maskHit()
	tester := OpacityTester{Model: model}
	if !tester.Test(&inst, hit, NewRand(0, 0, 0)) {
		t.Fatalf("alpha 0.75 above cutoff 0.5 must block")
	}
}

func TestOpacityOpaqueAlwaysBlocks(t *testing.T) {
	model := &asset.Model{Materials: []asset.Material{{
		AlphaMode:       asset.AlphaOpaque,
		BaseColorFactor: core.Color{A: 0}, // alpha is ignored for OPAQUE
	}}}
	inst, hit := maskHit()
	tester := OpacityTester{Model: model}
	if !tester.Test(&inst, hit, NewRand(0, 0, 0)) {
		t.Fatalf("OPAQUE material must always block")
	}
}

func TestOpacityBlendIsStochasticInAlpha(t *testing.T) {
	model := &asset.Model{Materials: []asset.Material{{
		AlphaMode:       asset.AlphaBlend,
		BaseColorFactor: core.Color{R: 1, G: 1, B: 1, A: 0.5},
	}}}
	inst, hit := maskHit()
	tester := OpacityTester{Model: model}

	blocked := 0
	const trials = 2000
	rnd := NewRand(7, 7, 7)
	for i := 0; i < trials; i++ {
		if tester.Test(&inst, hit, rnd) {
			blocked++
		}
	}
	frac := float32(blocked) / trials
	if frac < 0.4 || frac > 0.6 {
		t.Fatalf("BLEND alpha 0.5 should block about half the time, blocked %g", frac)
	}
}

func TestOpacityOutOfRangeMaterialBlocks(t *testing.T) {
	model := &asset.Model{}
	inst, hit := maskHit()
	inst.MaterialID = 5
	tester := OpacityTester{Model: model}
	if !tester.Test(&inst, hit, NewRand(0, 0, 0)) {
		t.Fatalf("missing material must degrade to opaque")
	}
}
