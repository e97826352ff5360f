package pathtrace

import (
	stdmath "math"

	vmath "vkgltfscene/math"
)

// Camera generates primary rays from a view/projection pair. The inverse
// matrices are cached at construction so the per-pixel path touches no
// matrix inversion; Right/Up/Origin come from the inverse view's basis
// rows and feed the depth-of-field disk sampling.
type Camera struct {
	invView vmath.Mat4
	invProj vmath.Mat4

	Origin vmath.Vec3
	right  vmath.Vec3
	up     vmath.Vec3

	width, height int

	aperture  float32
	focalDist float32
}

// NewCamera caches the inverses of view and proj for a width x height
// target. aperture <= 0 yields a pinhole camera.
func NewCamera(view, proj vmath.Mat4, width, height int, aperture, focalDist float32) Camera {
	inv := view.Inverse()
	return Camera{
		invView:   inv,
		invProj:   proj.Inverse(),
		Origin:    vmath.Vec3{X: inv[3][0], Y: inv[3][1], Z: inv[3][2]},
		right:     vmath.Vec3{X: inv[0][0], Y: inv[0][1], Z: inv[0][2]},
		up:        vmath.Vec3{X: inv[1][0], Y: inv[1][1], Z: inv[1][2]},
		width:     width,
		height:    height,
		aperture:  aperture,
		focalDist: focalDist,
	}
}

// PrimaryRay builds the ray through pixel (px, py) with a uniform
// sub-pixel jitter, unprojecting the jittered pixel center through the
// inverse projection and view. With a positive aperture the origin is
// displaced on the lens disk and the direction re-aimed at the focal
// point so that geometry at focalDist stays sharp.
func (c Camera) PrimaryRay(px, py int, rnd *Rand) Ray {
	jx, jy := rnd.Float32(), rnd.Float32()
	ndcX := (float32(px)+jx)/float32(c.width)*2 - 1
	ndcY := 1 - (float32(py)+jy)/float32(c.height)*2

	nearClip := vmath.Vec4{X: ndcX, Y: ndcY, Z: -1, W: 1}
	viewPt := nearClip.MulMat(c.invProj)
	viewDir := viewPt.ToVec3DivW().Normalize()
	dir := c.invView.ToMat3().MulVec3(viewDir).Normalize()

	r := Ray{Origin: c.Origin, Direction: dir}
	if c.aperture <= 0 {
		return r
	}

	focalPoint := r.Origin.Add(r.Direction.Mul(c.focalDist))
	theta := rnd.Float32() * 2 * stdmath.Pi
	radius := sqrtf(rnd.Float32() * c.aperture)
	offset := c.right.Mul(radius * cosf(theta)).Add(c.up.Mul(radius * sinf(theta)))
	r.Origin = r.Origin.Add(offset)
	r.Direction = focalPoint.Sub(r.Origin).Normalize()
	return r
}

func cosf(v float32) float32  { return float32(stdmath.Cos(float64(v))) }
func sinf(v float32) float32  { return float32(stdmath.Sin(float64(v))) }
func sqrtf(v float32) float32 { return float32(stdmath.Sqrt(float64(v))) }
