package pathtrace

import (
	"vkgltfscene/asset"
)

// OpacityTester evaluates the any-hit opacity test against a concrete
// material and sampler, producing the OpaqueTest closure
// Accel.AnyOccluder calls per candidate hit: OPAQUE always blocks,
// MASK blocks iff alpha clears alphaCutoff, BLEND stochastically blocks
// with probability alpha (a cheap unbiased stand-in for true alpha
// transmission on a shadow ray, since this integrator has no dedicated
// transparency accumulation pass).
type OpacityTester struct {
	Model   *asset.Model
	Sampler TextureSampler
}

func (o OpacityTester) Test(inst *Instance, hit Hit, rnd *Rand) bool {
	if inst.MaterialID < 0 || inst.MaterialID >= len(o.Model.Materials) {
		return true
	}
	m := o.Model.Materials[inst.MaterialID]
	switch m.AlphaMode {
	case asset.AlphaOpaque:
		return true
	case asset.AlphaMask:
		v, _ := hit.Interpolate()
		alpha := sampleAlpha(m, v, o.Sampler)
		return alpha >= m.AlphaCutoff
	case asset.AlphaBlend:
		v, _ := hit.Interpolate()
		alpha := sampleAlpha(m, v, o.Sampler)
		return rnd.Float32() < alpha
	default:
		return true
	}
}

func sampleAlpha(m asset.Material, v Vertex, sampler TextureSampler) float32 {
	alpha := m.BaseColorFactor.A
	if sampler != nil && m.BaseColorTex != nil {
		t := sampler.Sample(*m.BaseColorTex, v.UV0)
		alpha *= t.W
	}
	return clamp32(alpha, 0, 1)
}
