package pathtrace

import (
	"math"

	"vkgltfscene/gpu"
	vmath "vkgltfscene/math"
)

// LightSample is the result of drawing a direction toward one punctual
// light, the NEE counterpart to Environment.Sample.
type LightSample struct {
	Dir             vmath.Vec3
	Dist            float32
	RadianceOverPdf vmath.Vec3
	Pdf             float32 // Dirac for a true point/spot/directional light
}

// lightRadiantIntensity evaluates l's color*intensity with range falloff
// and spot cone attenuation applied, at a point `dist` away in direction
// `toLight` (from the light toward the shading point, i.e. -Dir for a
// directional light sample), using the falloff parameters LightRecord
// encodes (InvRange, inner/outer cone).
func lightRadiantIntensity(l gpu.LightRecord, toLight vmath.Vec3, dist float32) vmath.Vec3 {
	color := vmath.Vec3{X: l.Color[0], Y: l.Color[1], Z: l.Color[2]}.Mul(l.Intensity)
	switch asset_LightType(l.Type) {
	case lightTypeDirectional:
		return color
	}
	if l.InvRange > 0 {
		windowing := clamp32(1-powf(dist*l.InvRange, 4), 0, 1)
		windowing *= windowing
		color = color.Mul(windowing / maxf(dist*dist, eps))
	} else {
		color = color.Mul(1 / maxf(dist*dist, eps))
	}
	if asset_LightType(l.Type) == lightTypeSpot {
		cosAngle := l.Direction.Dot(toLight)
		cosOuter := float32(math.Cos(float64(l.OuterAngle)))
		cosInner := float32(math.Cos(float64(l.InnerAngle)))
		t := clamp32((cosAngle-cosOuter)/maxf(cosInner-cosOuter, eps), 0, 1)
		color = color.Mul(t * t)
	}
	return color
}

// asset_LightType re-derives the asset.LightType from the uint32 the GPU
// light table stores it as, avoiding an import of the asset package here
// purely for three named constants.
type asset_LightType uint32

const (
	lightTypeDirectional asset_LightType = 0
	lightTypePoint       asset_LightType = 1
	lightTypeSpot        asset_LightType = 2
)

func powf(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}

// SampleLight draws a direction from surface point p toward light l. A
// light with Extras.radius baked into gpu.LightRecord.AngularSize
// (directional only, in this reduced model) samples a disk cap for a
// soft shadow; all other lights are point samples, reported with the
// Dirac pdf sentinel since a punctual light occupies zero solid angle
// and can never be hit by a BSDF-sampled ray.
func SampleLight(l gpu.LightRecord, p vmath.Vec3, rnd *Rand) LightSample {
	if asset_LightType(l.Type) == lightTypeDirectional {
		dir := l.Direction.Mul(-1)
		if l.AngularSize > 0 {
			dir = jitterDirection(dir, l.AngularSize*0.5, rnd)
		}
		radiance := lightRadiantIntensity(l, dir, 0)
		return LightSample{Dir: dir, Dist: float32(math.Inf(1)), RadianceOverPdf: radiance, Pdf: Dirac}
	}

	toLight := l.Position.Sub(p)
	dist := toLight.Length()
	if dist < eps {
		return LightSample{Pdf: 0}
	}
	dir := toLight.Mul(1 / dist)
	radiance := lightRadiantIntensity(l, dir.Mul(-1), dist)
	return LightSample{Dir: dir, Dist: dist, RadianceOverPdf: radiance, Pdf: Dirac}
}

// jitterDirection perturbs dir within a cone of half-angle halfAngle,
// approximating a disk-shaped sun for directional-light soft shadows
//.
func jitterDirection(dir vmath.Vec3, halfAngle float32, rnd *Rand) vmath.Vec3 {
	if halfAngle <= 0 {
		return dir
	}
	x, y := rnd.UnitDisk()
	tangent, bitangent := orthonormalBasis(dir)
	offset := tangent.Mul(x * halfAngle).Add(bitangent.Mul(y * halfAngle))
	return dir.Add(offset).Normalize()
}

// LightMix is the NEE light/environment mixture: a fixed weight decides
// which side a given NEE sample draws from (a punctual light picked
// uniformly, or the environment), and the same weights MIS-balance each
// side against the other.
type LightMix struct {
	Lights []gpu.LightRecord
	Env    Environment

	lightWeight float32
	envWeight   float32
}

// NewLightMix computes the fixed mixture weights: half the probability
// mass goes to the punctual lights as a group (split
// uniformly among them) when any exist, the other half to the
// environment when one is bound; either side's absence folds its weight
// onto the other.
func NewLightMix(lights []gpu.LightRecord, env Environment) *LightMix {
	if env == nil {
		env = NoEnvironment{}
	}
	hasLights := len(lights) > 0
	_, hasEnv := envHasRadiance(env)

	lw, ew := float32(0), float32(0)
	switch {
	case hasLights && hasEnv:
		lw, ew = 0.5, 0.5
	case hasLights:
		lw = 1
	case hasEnv:
		ew = 1
	}
	return &LightMix{Lights: lights, Env: env, lightWeight: lw, envWeight: ew}
}

func envHasRadiance(env Environment) (Environment, bool) {
	switch env.(type) {
	case NoEnvironment:
		return env, false
	default:
		return env, true
	}
}

// NEEContribution is one next-event-estimation sample's result: the MIS-
// weighted, throughput-scaled radiance to add directly to the pixel, plus
// the shadow ray to test it against.
type NEEContribution struct {
	ShadowRay Ray
	MaxDist   float32
	Radiance  vmath.Vec3 // already divided by pdf and MIS-weighted; throughput not yet applied
}

// Sample draws one NEE sample: pick the light or environment branch by
// the mixture weight, sample a direction, evaluate
// the BSDF toward it, and fold in the MIS weight against the other
// branch's pdf at that same direction (misWeight = chosenPdf /
// (lightPdf+envPdf), or 1 when the chosen pdf is Dirac — a delta light
// can never be reproduced by the other sampling strategy, so there is
// nothing to weight against).
func (m *LightMix) Sample(p vmath.Vec3, wo, n vmath.Vec3, pbr PBR, rnd *Rand) (NEEContribution, bool) {
	if m.lightWeight == 0 && m.envWeight == 0 {
		return NEEContribution{}, false
	}
	fromEnv := rnd.Float32() < m.envWeight/(m.lightWeight+m.envWeight)

	var dir vmath.Vec3
	var dist float32
	var radianceOverPdf vmath.Vec3
	var chosenPdf, otherPdf float32

	if fromEnv {
		d, rOverPdf, pdf := m.Env.Sample(rnd)
		if pdf <= 0 {
			return NEEContribution{}, false
		}
		dir, dist, radianceOverPdf, chosenPdf = d, float32(math.Inf(1)), rOverPdf, pdf
		otherPdf = m.lightPdfUniform()
	} else {
		li := rnd.Intn(len(m.Lights))
		ls := SampleLight(m.Lights[li], p, rnd)
		if ls.Pdf == 0 {
			return NEEContribution{}, false
		}
		dir, dist = ls.Dir, ls.Dist
		radianceOverPdf = ls.RadianceOverPdf.Mul(1 / (1.0 / float32(len(m.Lights))))
		chosenPdf = Dirac
		otherPdf = m.Env.Pdf(dir)
	}

	if dir.Dot(n) <= 0 {
		return NEEContribution{}, false
	}

	diffuse, glossy := EvalBSDF(pbr, wo, dir, n)
	bsdf := diffuse.Add(glossy)
	if maxComponent(bsdf) <= 0 {
		return NEEContribution{}, false
	}

	misWeight := misWeightNEE(chosenPdf, otherPdf, fromEnv, m.lightWeight, m.envWeight)
	radiance := radianceOverPdf.MulVec(bsdf).Mul(misWeight)

	shadowDist := dist
	if math.IsInf(float64(dist), 1) {
		shadowDist = 1e30
	}
	return NEEContribution{
		ShadowRay: Ray{Origin: p, Direction: dir},
		MaxDist:   shadowDist - eps,
		Radiance:  radiance,
	}, true
}

// EnvWeight is the selection probability mass assigned to the
// environment branch, used by the integrator to MIS-weight a BSDF-
// sampled continuation ray that escapes to the environment against this
// same mixture's NEE strategy.
func (m *LightMix) EnvWeight() float32 { return m.envWeight }

func (m *LightMix) lightPdfUniform() float32 {
	if len(m.Lights) == 0 {
		return 0
	}
	// Punctual lights are delta distributions; there's no continuous pdf
	// to mix an environment sample's direction against, so they
	// contribute zero density here (matching Dirac's "excluded from a
	// continuous pdf sum" treatment from the other direction).
	return 0
}

// misWeightNEE computes the chosenPdf/(lightPdf+envPdf) balance
// heuristic, folding the mixture's selection probabilities into each
// side's pdf and treating a Dirac pdf as automatically full weight (1)
// since nothing else in the mixture can ever land on that same direction.
func misWeightNEE(chosenPdf, otherPdf float32, fromEnv bool, lightWeight, envWeight float32) float32 {
	if chosenPdf == Dirac {
		return 1
	}
	selWeight := envWeight
	otherSelWeight := lightWeight
	if !fromEnv {
		selWeight, otherSelWeight = lightWeight, envWeight
	}
	a := selWeight * chosenPdf
	b := otherSelWeight * otherPdf
	denom := a + b
	if denom <= 0 {
		return 0
	}
	return a / denom
}
