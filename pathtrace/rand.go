package pathtrace

import (
	"math"
	"math/rand"

	vmath "vkgltfscene/math"
)

// Rand wraps a math/rand.Rand with the sampling helpers the kernel
// needs: cosine-weighted hemisphere, unit disk, and unit sphere. One
// *Rand per pixel, never shared across goroutines.
type Rand struct {
	*rand.Rand
}

// NewRand seeds a PRNG from (pixel, frame), making every pixel's sample
// sequence independent and reproducible across frames without a shared
// counter.
func NewRand(px, py, frame int) *Rand {
	seed := pixelSeed(px, py, frame)
	return &Rand{rand.New(rand.NewSource(seed))}
}

// pixelSeed mixes the three coordinates into one int64 seed with a
// splitmix-style finalizer so adjacent pixels don't produce correlated
// low bits in math/rand's linear generator.
func pixelSeed(px, py, frame int) int64 {
	h := uint64(px)*2654435761 + uint64(py)*2246822519 + uint64(frame)*3266489917 + 1
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return int64(h & 0x7fffffffffffffff)
}

// UnitDisk returns a uniformly distributed point in the unit disk via
// rejection sampling.
func (r *Rand) UnitDisk() (x, y float32) {
	for {
		px := r.Float32()*2 - 1
		py := r.Float32()*2 - 1
		if px*px+py*py < 1 {
			return px, py
		}
	}
}

// Float32 returns a float32 uniform sample in [0,1); math/rand has no
// native float32 generator, so this narrows Float64 the way the rest of
// this module samples single precision.
func (r *Rand) Float32() float32 {
	return float32(r.Float64())
}

// CosineWeightedHemisphere samples a direction around normal with a
// cosine-weighted distribution (pdf = cosTheta/pi), the standard
// importance sampling for a Lambertian lobe.
func (r *Rand) CosineWeightedHemisphere(normal vmath.Vec3) vmath.Vec3 {
	u1 := r.Float32()
	u2 := r.Float32()
	radius := float32(math.Sqrt(float64(u1)))
	theta := 2 * math.Pi * float64(u2)
	x := radius * float32(math.Cos(theta))
	y := radius * float32(math.Sin(theta))
	z := float32(math.Sqrt(float64(1 - u1)))

	tangent, bitangent := orthonormalBasis(normal)
	return tangent.Mul(x).Add(bitangent.Mul(y)).Add(normal.Mul(z)).Normalize()
}

// InUnitSphere returns a vector uniformly distributed within the unit
// ball (length < 1) via rejection sampling, used to perturb a mirror
// reflection direction for the glossy lobe's roughness cone.
func (r *Rand) InUnitSphere() vmath.Vec3 {
	for {
		p := vmath.Vec3{X: r.Float32(), Y: r.Float32(), Z: r.Float32()}.Mul(2).Sub(vmath.Vec3{X: 1, Y: 1, Z: 1})
		if p.LengthSqr() < 1 {
			return p
		}
	}
}

// UniformSphere samples a direction uniformly over the full sphere, used
// for environment fallback sampling when no importance-sampling table is
// available.
func (r *Rand) UniformSphere() vmath.Vec3 {
	azimuth := r.Float64() * 2 * math.Pi
	z := r.Float64()*2 - 1
	radius := math.Sqrt(1 - z*z)
	return vmath.Vec3{
		X: float32(radius * math.Cos(azimuth)),
		Y: float32(radius * math.Sin(azimuth)),
		Z: float32(z),
	}
}

// orthonormalBasis builds an arbitrary tangent/bitangent pair
// perpendicular to normal (Duff et al.'s branchless construction).
func orthonormalBasis(normal vmath.Vec3) (tangent, bitangent vmath.Vec3) {
	sign := float32(1)
	if normal.Z < 0 {
		sign = -1
	}
	a := -1 / (sign + normal.Z)
	b := normal.X * normal.Y * a
	tangent = vmath.Vec3{X: 1 + sign*normal.X*normal.X*a, Y: sign * b, Z: -sign * normal.X}
	bitangent = vmath.Vec3{X: b, Y: sign + normal.Y*normal.Y*a, Z: -normal.Y}
	return tangent, bitangent
}
