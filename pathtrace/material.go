package pathtrace

import (
	"math"

	"vkgltfscene/asset"
	vmath "vkgltfscene/math"
)

// TextureSampler is the image-decoding collaborator: the core receives
// already-decoded mip pyramids, and whatever populates them from the raw
// byte ranges asset.Load captured implements this so the integrator can
// sample base-color alpha and PBR factors. A nil sampler makes every
// material behave as if it carried only its constant factors.
type TextureSampler interface {
	// Sample returns an RGBA sample (straight alpha) of texRef's texture
	// at uv, after applying texRef's KHR_texture_transform if present.
	Sample(texRef asset.TextureRef, uv vmath.Vec2) (rgba vmath.Vec4)
}

// Event classifies which lobe a BSDF sample drew from.
type Event int

const (
	EventAbsorb Event = iota
	EventDiffuse
	EventGlossy
	EventImpulse
	EventTransmission
)

// PBR is the flat, already-textured-and-factored material record the
// integrator evaluates a hit against; flat factors and flags instead of
// a polymorphic Material.Shade dispatch.
type PBR struct {
	BaseColor vmath.Vec3
	Alpha     float32

	Metallic  float32
	Roughness float32

	Emissive vmath.Vec3

	Unlit bool

	// TransmissionFactor/IOR/ThinWalled feed the transmission event;
	// zero TransmissionFactor disables it entirely.
	TransmissionFactor float32
	IOR                float32
	ThinWalled         bool

	// F0 is the dielectric/metal base reflectance Schlick's
	// approximation blends from, derived from IOR for dielectrics and
	// from BaseColor for metals (the standard metallic-roughness
	// F0 split).
	F0 vmath.Vec3
}

// EvaluateMaterial resolves m's factors and (if sampler is non-nil and a
// texture is bound) textures at the hit's interpolated UV, producing the
// flat PBR record BSDF sampling and NEE both consume. Vertex color
// modulates base color per glTF's COLOR_0 convention.
func EvaluateMaterial(m asset.Material, v Vertex, sampler TextureSampler) PBR {
	baseColor := vmath.Vec3{X: m.BaseColorFactor.R, Y: m.BaseColorFactor.G, Z: m.BaseColorFactor.B}
	alpha := m.BaseColorFactor.A
	if sampler != nil && m.BaseColorTex != nil {
		t := sampler.Sample(*m.BaseColorTex, v.UV0)
		baseColor = baseColor.MulVec(t.ToVec3())
		alpha *= t.W
	}
	baseColor = baseColor.MulVec(v.Color)

	metallic, roughness := m.MetallicFactor, m.RoughnessFactor
	if sampler != nil && m.MetallicRoughnessTex != nil {
		t := sampler.Sample(*m.MetallicRoughnessTex, v.UV0)
		roughness *= t.Y
		metallic *= t.Z
	}
	roughness = clamp32(roughness, 0.02, 1)

	emissive := m.EmissiveFactor
	if m.EmissiveStrength > 0 {
		emissive = emissive.Mul(m.EmissiveStrength)
	}
	if sampler != nil && m.EmissiveTex != nil {
		t := sampler.Sample(*m.EmissiveTex, v.UV0)
		emissive = emissive.MulVec(t.ToVec3())
	}

	ior := m.IOR
	if ior == 0 {
		ior = 1.5
	}
	f0Dielectric := dielectricF0(ior)
	f0 := vmath.Vec3{X: f0Dielectric, Y: f0Dielectric, Z: f0Dielectric}.Lerp(baseColor, metallic)

	thinWalled := m.ThinWalled
	if !m.ThinWalled && m.FallbackThinWalled {
		thinWalled = m.DoubleSided
	}

	return PBR{
		BaseColor:          baseColor,
		Alpha:              alpha,
		Metallic:           metallic,
		Roughness:          roughness,
		Emissive:           emissive,
		Unlit:              m.Unlit,
		TransmissionFactor: m.TransmissionFactor,
		IOR:                ior,
		ThinWalled:         thinWalled,
		F0:                 f0,
	}
}

func dielectricF0(ior float32) float32 {
	f := (ior - 1) / (ior + 1)
	return f * f
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fresnelSchlick is the Schlick approximation over an RGB F0.
func fresnelSchlick(f0 vmath.Vec3, cosTheta float32) vmath.Vec3 {
	if cosTheta < 0 {
		cosTheta = 0
	}
	m := 1 - cosTheta
	m5 := m * m * m * m * m
	one := vmath.Vec3{X: 1, Y: 1, Z: 1}
	return f0.Add(one.Sub(f0).Mul(m5))
}

// beckmannD is the Beckmann normal-distribution term.
func beckmannD(nDotH, roughness float32) float32 {
	if nDotH <= 0 {
		return 0
	}
	m2 := roughness * roughness
	cos2 := nDotH * nDotH
	exponent := (cos2 - 1) / (m2 * cos2)
	return float32(math.Exp(float64(exponent))) / (math.Pi * m2 * cos2 * cos2)
}

// smithG1 is the Smith masking-shadowing term, one direction
// (Beckmann geometry term, Walter et al.'s rational approximation).
func smithG1(cosThetaV, roughness float32) float32 {
	if cosThetaV <= 0 {
		return 0
	}
	tanTheta := float32(math.Sqrt(float64(1-cosThetaV*cosThetaV))) / cosThetaV
	if tanTheta <= 0 {
		return 1
	}
	a := 1 / (roughness * tanTheta)
	if a >= 1.6 {
		return 1
	}
	return (3.535*a + 2.181*a*a) / (1 + 2.276*a + 2.577*a*a)
}

// EvalBSDF returns the diffuse and glossy BRDF*cosTheta contributions
// separately. The analytic lobe pdf is NOT applied here; NEE divides by
// the light's own pdf, not the BSDF's, so this returns the raw
// f(wo,wi)*cosTheta values.
func EvalBSDF(pbr PBR, wo, wi, n vmath.Vec3) (diffuse, glossy vmath.Vec3) {
	nDotL := n.Dot(wi)
	nDotV := n.Dot(wo)
	if nDotL <= 0 || nDotV <= 0 {
		return vmath.Vec3{}, vmath.Vec3{}
	}
	h := wo.Add(wi).Normalize()
	F := fresnelSchlick(pbr.F0, maxf(0, h.Dot(wo)))
	D := beckmannD(n.Dot(h), pbr.Roughness)
	G := smithG1(nDotV, pbr.Roughness) * smithG1(nDotL, pbr.Roughness)
	denom := 4*nDotV*nDotL + eps
	glossy = F.Mul(D * G / denom * nDotL)

	diffuseWeight := (1 - pbr.Metallic) * (1 - maxComponent(F))
	diffuse = pbr.BaseColor.Mul(diffuseWeight * nDotL / math.Pi)
	return diffuse, glossy
}

func maxComponent(v vmath.Vec3) float32 {
	m := v.X
	if v.Y > m {
		m = v.Y
	}
	if v.Z > m {
		m = v.Z
	}
	return m
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// SampleBSDF draws a new outgoing direction and the throughput
// multiplier bsdf_over_pdf: reflect-plus-fuzz perturbation for the
// glossy lobe, a cosine-weighted hemisphere for the diffuse lobe, picked
// probabilistically by a Fresnel-weighted specular chance the way
// production path tracers split diffuse/specular sampling.
func SampleBSDF(pbr PBR, wo, n vmath.Vec3, isInside bool, rnd *Rand) (wi vmath.Vec3, bsdfOverPdf vmath.Vec3, pdf float32, event Event) {
	if pbr.TransmissionFactor > 0 && rnd.Float32() < pbr.TransmissionFactor {
		return sampleTransmission(pbr, wo, n, isInside, rnd)
	}

	cosTheta := maxf(0, n.Dot(wo))
	F := fresnelSchlick(pbr.F0, cosTheta)
	specChance := clamp32(maxComponent(F)*0.5+pbr.Metallic*0.5, 0.05, 0.95)

	if rnd.Float32() < specChance {
		reflected := wo.Mul(-1).Reflect(n)
		if pbr.Roughness < 0.02 {
			// Mirror-smooth: impulse reflection, no pdf to divide by.
			return reflected, F.Mul(1 / specChance), Dirac, EventImpulse
		}
		fuzz := rnd.InUnitSphere().Mul(pbr.Roughness)
		wi = reflected.Add(fuzz).Normalize()
		if wi.Dot(n) <= 0 {
			return vmath.Vec3{}, vmath.Vec3{}, 0, EventAbsorb
		}
		_, glossy := EvalBSDF(pbr, wo, wi, n)
		pdf = specChance * cosineHemispherePdf(n, wi)
		if pdf <= 0 {
			return vmath.Vec3{}, vmath.Vec3{}, 0, EventAbsorb
		}
		return wi, glossy.Mul(1 / pdf), pdf, EventGlossy
	}

	wi = rnd.CosineWeightedHemisphere(n)
	diffChance := 1 - specChance
	pdf = diffChance * cosineHemispherePdf(n, wi)
	if pdf <= 0 {
		return vmath.Vec3{}, vmath.Vec3{}, 0, EventAbsorb
	}
	oneMinusF := vmath.Vec3{X: 1, Y: 1, Z: 1}.Sub(F)
	albedo := pbr.BaseColor.Mul(1 - pbr.Metallic).MulVec(oneMinusF)
	// Lambertian bsdf/pdf collapses to albedo (the cosine and 1/pi
	// cancel against the cosine-weighted pdf).
	return wi, albedo.Mul(1 / diffChance), pdf, EventDiffuse
}

func cosineHemispherePdf(n, wi vmath.Vec3) float32 {
	cosTheta := n.Dot(wi)
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / math.Pi
}

// sampleTransmission refracts through the surface using the material's
// IOR; the caller toggles its inside-the-volume state on the returned
// transmission event. A thin-walled surface instead passes straight
// through without bending, matching KHR_materials_transmission's
// thin-surface model.
func sampleTransmission(pbr PBR, wo, n vmath.Vec3, isInside bool, rnd *Rand) (wi vmath.Vec3, bsdfOverPdf vmath.Vec3, pdf float32, event Event) {
	if pbr.ThinWalled {
		return wo.Mul(-1), pbr.BaseColor, Dirac, EventTransmission
	}
	eta := float32(1) / pbr.IOR
	facingNormal := n
	if isInside {
		eta = pbr.IOR
		facingNormal = n.Mul(-1)
	}
	refracted, ok := wo.Mul(-1).Refract(facingNormal, eta)
	if !ok {
		// Total internal reflection: fall back to mirror reflection.
		reflected := wo.Mul(-1).Reflect(n)
		return reflected, vmath.Vec3{X: 1, Y: 1, Z: 1}, Dirac, EventImpulse
	}
	return refracted, pbr.BaseColor, Dirac, EventTransmission
}
