package pathtrace

import (
	stdmath "math"

	"vkgltfscene/asset"
	vmath "vkgltfscene/math"
)

// shadowRayOffset displaces secondary-ray origins along the geometric
// normal to escape the surface they spawned on without tunneling through
// thin geometry.
const shadowRayOffset = 1e-4

// Integrator holds everything one frame of path tracing reads: the
// acceleration structure, the source materials, the light/environment
// mixture, and the tunables. It is immutable during a Render call, so
// every worker goroutine shares one Integrator with no locking.
type Integrator struct {
	Accel   *Accel
	Model   *asset.Model
	Mix     *LightMix
	Env     Environment
	Sampler TextureSampler
	Cfg     Config
}

// NewIntegrator wires an integrator over an already-built Accel. env may
// be nil for a black background.
func NewIntegrator(accel *Accel, model *asset.Model, lights *LightMix, env Environment, sampler TextureSampler, cfg Config) *Integrator {
	if env == nil {
		env = NoEnvironment{}
	}
	return &Integrator{Accel: accel, Model: model, Mix: lights, Env: env, Sampler: sampler, Cfg: cfg}
}

// PixelSample is one pixel's integrator output: accumulated radiance plus
// the auxiliary first-hit channels a denoiser or compositor consumes.
type PixelSample struct {
	Radiance vmath.Vec3
	Alpha    float32

	FirstHitDepth  float32 // parametric distance of the primary hit; 0 on a miss
	FirstHitNormal vmath.Vec3
}

// intersectMasked walks closest hits, rejecting any whose material fails
// the alpha-mask/blend opacity test and resuming traversal just past the
// rejected surface, so a cutout leaf never registers as geometry.
func (it *Integrator) intersectMasked(r Ray, tmin, tmax float32, rnd *Rand) (Hit, *Instance, bool) {
	opacity := OpacityTester{Model: it.Model, Sampler: it.Sampler}
	for {
		h, inst, ok := it.Accel.Intersect(r, tmin, tmax)
		if !ok {
			return Hit{}, nil, false
		}
		if inst.ForceOpaque || opacity.Test(inst, h, rnd) {
			return h, inst, true
		}
		tmin = h.T + eps
	}
}

// absorptionCoefficient derives the Beer-Lambert sigma from the volume
// extension's attenuation color and distance: sigma = -ln(color)/dist
// per channel. A material without a volume (zero attenuation distance)
// absorbs nothing.
func absorptionCoefficient(m asset.Material) vmath.Vec3 {
	if m.AttenuationDistance <= 0 || m.ThicknessFactor <= 0 {
		return vmath.Vec3{}
	}
	ln := func(c float32) float32 {
		if c <= 0 {
			c = 1e-4
		}
		return -float32(stdmath.Log(float64(c))) / m.AttenuationDistance
	}
	return vmath.Vec3{
		X: ln(m.AttenuationColor.R),
		Y: ln(m.AttenuationColor.G),
		Z: ln(m.AttenuationColor.B),
	}
}

func expNeg(sigma vmath.Vec3, dist float32) vmath.Vec3 {
	return vmath.Vec3{
		X: float32(stdmath.Exp(float64(-sigma.X * dist))),
		Y: float32(stdmath.Exp(float64(-sigma.Y * dist))),
		Z: float32(stdmath.Exp(float64(-sigma.Z * dist))),
	}
}

// envMISWeight weights a BSDF-sampled ray's environment contribution
// against the NEE strategy that could have produced the same direction:
// lastSamplePdf/(lastSamplePdf+envPdf), or 1 when the BSDF event was an
// impulse nothing else could have sampled.
func envMISWeight(lastSamplePdf float32, envPdf float32) float32 {
	if lastSamplePdf == Dirac {
		return 1
	}
	denom := lastSamplePdf + envPdf
	if denom <= 0 {
		return 0
	}
	return lastSamplePdf / denom
}

// TracePixel traces one full path for pixel (px, py) of frame `frame`.
func (it *Integrator) TracePixel(cam Camera, px, py, frame int) PixelSample {
	rnd := NewRand(px, py, frame)
	opacity := OpacityTester{Model: it.Model, Sampler: it.Sampler}

	var out PixelSample
	out.Alpha = 1

	ray := cam.PrimaryRay(px, py, rnd)
	throughput := vmath.Vec3{X: 1, Y: 1, Z: 1}
	radiance := vmath.Vec3{}
	lastSamplePdf := float32(Dirac) // a camera ray is an impulse
	isInside := false

	for depth := 0; depth < it.Cfg.MaxDepth; depth++ {
		hit, inst, ok := it.intersectMasked(ray, eps, float32(stdmath.Inf(1)), rnd)
		if !ok {
			envPdf := it.Env.Pdf(ray.Direction) * it.Mix.EnvWeight()
			w := envMISWeight(lastSamplePdf, envPdf)
			env := it.Env.Eval(ray.Direction).Mul(it.Cfg.EnvIntensity * w)
			radiance = radiance.Add(throughput.MulVec(env))
			if depth == 0 {
				out.Alpha = 0
			}
			break
		}

		v, gn := hit.Interpolate()
		worldPos := inst.World.MulVec3(v.Position)
		shadingNormal := inst.Normal.MulVec3(v.Normal).Normalize()
		geomNormal := inst.Normal.MulVec3(gn).Normalize()

		// Keep both normals on the side the ray arrived from.
		if geomNormal.Dot(ray.Direction) > 0 {
			geomNormal = geomNormal.Mul(-1)
		}
		if shadingNormal.Dot(geomNormal) < 0 {
			shadingNormal = shadingNormal.Mul(-1)
		}

		if depth == 0 {
			out.FirstHitDepth = hit.T
			out.FirstHitNormal = shadingNormal
		}

		var mat asset.Material
		if inst.MaterialID >= 0 && inst.MaterialID < len(it.Model.Materials) {
			mat = it.Model.Materials[inst.MaterialID]
		}
		pbr := EvaluateMaterial(mat, v, it.Sampler)

		if pbr.Unlit {
			radiance = radiance.Add(throughput.MulVec(pbr.BaseColor))
			break
		}

		radiance = radiance.Add(throughput.MulVec(pbr.Emissive))

		if isInside && !pbr.ThinWalled {
			throughput = throughput.MulVec(expNeg(absorptionCoefficient(mat), hit.T))
		}

		wo := ray.Direction.Mul(-1)

		// Next-event estimation against the light/environment mixture,
		// resolved by an offset shadow ray.
		if nee, ok := it.Mix.Sample(worldPos, wo, geomNormal, pbr, rnd); ok {
			shadow := Ray{
				Origin:    worldPos.Add(geomNormal.Mul(shadowRayOffset)),
				Direction: nee.ShadowRay.Direction,
			}
			if !it.Accel.AnyOccluder(shadow, eps, nee.MaxDist, rnd, opacity.Test) {
				radiance = radiance.Add(throughput.MulVec(nee.Radiance))
			}
		}

		wi, bsdfOverPdf, pdf, event := SampleBSDF(pbr, wo, shadingNormal, isInside, rnd)
		if event == EventAbsorb {
			break
		}
		throughput = throughput.MulVec(bsdfOverPdf)
		lastSamplePdf = pdf
		if event == EventTransmission && !pbr.ThinWalled {
			isInside = !isInside
		}

		offsetSign := float32(1)
		if wi.Dot(geomNormal) < 0 {
			offsetSign = -1
		}
		ray = Ray{
			Origin:    worldPos.Add(geomNormal.Mul(offsetSign * shadowRayOffset)),
			Direction: wi,
		}

		if it.Cfg.RussianRouletteStartDepth > 0 && depth >= it.Cfg.RussianRouletteStartDepth {
			p := minf32(maxComponent(throughput)+0.001, 0.95)
			if rnd.Float32() >= p {
				break
			}
			throughput = throughput.Mul(1 / p)
		}
	}

	if it.Cfg.FireflyClamp > 0 {
		if lum := luminance(radiance); lum > it.Cfg.FireflyClamp {
			radiance = radiance.Mul(it.Cfg.FireflyClamp / lum)
		}
	}

	out.Radiance = radiance
	return out
}

func minf32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
