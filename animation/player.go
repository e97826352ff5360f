// Package animation drives asset.Model animations: sampler interpolation
// (STEP/LINEAR/CUBICSPLINE), current-time advancement with looping, and
// the KHR_animation_pointer shadow-JSON mechanism for animating
// arbitrary material/light/camera/node properties.
package animation

import (
	"vkgltfscene/asset"
	"vkgltfscene/math"
)

// Player advances one animation of a Model and writes the results back
// into its live Node/Mesh.MorphWeights fields, collecting the set of
// dirty node indices for the caller to push through
// scene.Scene.ApplyNodeDirty.
type Player struct {
	model   *asset.Model
	current int
	time    float32
	speed   float32

	pointers *PointerStore

	lastResources DirtyResources
}

// New returns a Player bound to model, initially stopped on no
// animation (Current() == -1).
func New(model *asset.Model) *Player {
	return &Player{model: model, current: -1, speed: 1, pointers: NewPointerStore(model)}
}

func (p *Player) Current() int     { return p.current }
func (p *Player) Time() float32    { return p.time }
func (p *Player) SetSpeed(s float32) { p.speed = s }

// Play selects animation index and resets current-time to the start of
// its time range.
func (p *Player) Play(index int) error {
	if index < 0 || index >= len(p.model.Animations) {
		return &AnimationIndexError{Index: index, Count: len(p.model.Animations)}
	}
	p.current = index
	p.time = animationStart(p.model.Animations[index])
	return nil
}

func (p *Player) Stop() { p.current = -1 }

// AnimationIndexError reports an out-of-range Play/animation index.
type AnimationIndexError struct {
	Index, Count int
}

func (e *AnimationIndexError) Error() string {
	return "animation: index out of range"
}

func animationStart(a asset.Animation) float32 {
	start := float32(1e30)
	found := false
	for _, s := range a.Samplers {
		if len(s.Input) == 0 {
			continue
		}
		found = true
		if s.Input[0] < start {
			start = s.Input[0]
		}
	}
	if !found {
		return 0
	}
	return start
}

func animationRange(a asset.Animation) (start, end float32) {
	start, end = 1e30, -1e30
	for _, s := range a.Samplers {
		if len(s.Input) == 0 {
			continue
		}
		if s.Input[0] < start {
			start = s.Input[0]
		}
		if last := s.Input[len(s.Input)-1]; last > end {
			end = last
		}
	}
	if end < start {
		return 0, 0
	}
	return start, end
}

// Advance moves current-time forward by deltaTime*speed, looping via
// fmod into [start,end), applies every channel of the current animation,
// and returns the set of node indices whose local transform or
// visibility-affecting state changed.
func (p *Player) Advance(deltaTime float32) map[int]bool {
	dirty := map[int]bool{}
	if p.current < 0 {
		return dirty
	}
	anim := p.model.Animations[p.current]
	start, end := animationRange(anim)
	if end > start {
		p.time += deltaTime * p.speed
		span := end - start
		p.time = start + fmod(p.time-start, span)
	}

	for _, ch := range anim.Channels {
		p.applyChannel(anim, ch, dirty)
	}
	p.lastResources = p.pointers.SyncToModelDetailed()
	for _, idx := range p.lastResources.Nodes {
		dirty[idx] = true
	}
	return dirty
}

// LastResourceDirty returns the material/light/camera/node indices touched
// by the KHR_animation_pointer sync performed during the most recent
// Advance/Step call, for callers (the GPU mirror) that need the
// non-node dirty kinds too.
func (p *Player) LastResourceDirty() DirtyResources { return p.lastResources }

// Step advances by one fixed step-forward tick of speed/60 seconds.
func (p *Player) Step() map[int]bool {
	return p.Advance(1.0 / 60.0)
}

func fmod(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	m := a - b*float32(int(a/b))
	if m < 0 {
		m += b
	}
	return m
}

func (p *Player) applyChannel(anim asset.Animation, ch asset.Channel, dirty map[int]bool) {
	if ch.SamplerIndex < 0 || ch.SamplerIndex >= len(anim.Samplers) {
		return
	}
	samp := anim.Samplers[ch.SamplerIndex]
	idx, t, ok := bracket(samp.Input, p.time)
	if !ok {
		return
	}

	if ch.TargetPath == asset.PathPointer {
		p.applyPointerChannel(samp, ch, idx, t, dirty)
		return
	}

	if ch.TargetNode == nil {
		return
	}
	node := &p.model.Nodes[*ch.TargetNode]

	switch ch.TargetPath {
	case asset.PathTranslation:
		node.Translation = sampleVec3(samp, idx, t)
	case asset.PathRotation:
		node.Rotation = sampleQuat(samp, idx, t)
	case asset.PathScale:
		node.Scale = sampleVec3(samp, idx, t)
	case asset.PathWeights:
		if node.Mesh == nil {
			return
		}
		mesh := &p.model.Meshes[*node.Mesh]
		mesh.MorphWeights = sampleWeights(samp, idx, t, len(mesh.MorphWeights))
	}
	dirty[*ch.TargetNode] = true
}

// applyPointerChannel samples a KHR_animation_pointer channel and writes
// the result into the shadow document rather than the live Model,
// mirroring AnimationPointerSystem::applyValue's per-width overloads
// (float/vec2/vec3/vec4); Advance merges the shadow document back into
// the Model at the end of every tick.
func (p *Player) applyPointerChannel(samp asset.Sampler, ch asset.Channel, idx int, t float32, dirty map[int]bool) {
	n := stride(samp)
	if n == 0 {
		return
	}
	v := sampleComponents(samp, idx, t, n)
	var value interface{}
	switch n {
	case 1:
		value = v[0]
	case 2:
		value = []interface{}{v[0], v[1]}
	case 3:
		value = []interface{}{v[0], v[1], v[2]}
	case 4:
		value = []interface{}{v[0], v[1], v[2], v[3]}
	default:
		arr := make([]interface{}, n)
		for i, f := range v {
			arr[i] = f
		}
		value = arr
	}
	p.pointers.Apply(ch.PointerPath, value)
}

// Sync deep-merges every pointer write accumulated since the last call
// back into the live Model and returns the set of node indices the merge
// touched, for the caller to forward into scene.Scene.ApplyNodeDirty
// alongside this tick's transform-channel dirty set.
func (p *Player) Sync() map[int]bool {
	return p.pointers.SyncToModel()
}

// bracket finds the keyframe pair input[idx], input[idx+1] surrounding
// time and returns the clamped interpolation factor t. The factor clamps
// to the edges instead of bailing outside the range, so a looped time
// value exactly at the end keeps animating.
func bracket(input []float32, time float32) (idx int, t float32, ok bool) {
	if len(input) == 0 {
		return 0, 0, false
	}
	if len(input) == 1 || time <= input[0] {
		return 0, 0, true
	}
	if time >= input[len(input)-1] {
		return len(input) - 2, 1, true
	}
	for i := 0; i < len(input)-1; i++ {
		if time >= input[i] && time < input[i+1] {
			span := input[i+1] - input[i]
			if span <= 0 {
				return i, 0, true
			}
			f := (time - input[i]) / span
			if f < 0 {
				f = 0
			} else if f > 1 {
				f = 1
			}
			return i, f, true
		}
	}
	return len(input) - 2, 1, true
}

func stride(samp asset.Sampler) int {
	if len(samp.Output) == 0 {
		return 0
	}
	if samp.Interpolation == asset.InterpCubicSpline {
		return len(samp.Output[0]) / 3
	}
	return len(samp.Output[0])
}

func sampleVec3(samp asset.Sampler, idx int, t float32) math.Vec3 {
	v := sampleComponents(samp, idx, t, 3)
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func sampleQuat(samp asset.Sampler, idx int, t float32) math.Quaternion {
	switch samp.Interpolation {
	case asset.InterpStep:
		o := samp.Output[idx]
		return math.Quaternion{X: o[0], Y: o[1], Z: o[2], W: o[3]}.Normalize()
	case asset.InterpCubicSpline:
		v := cubicSpline(samp, idx, t, 4)
		return math.Quaternion{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
	default:
		a := samp.Output[idx]
		b := samp.Output[idx+1]
		qa := math.Quaternion{X: a[0], Y: a[1], Z: a[2], W: a[3]}
		qb := math.Quaternion{X: b[0], Y: b[1], Z: b[2], W: b[3]}
		return qa.Slerp(qb, t).Normalize()
	}
}

func sampleWeights(samp asset.Sampler, idx int, t float32, count int) []float32 {
	n := stride(samp)
	if n == 0 {
		n = count
	}
	return sampleComponents(samp, idx, t, n)
}

// sampleComponents interpolates component-wise for an n-wide output
// (translation/scale/weights).
func sampleComponents(samp asset.Sampler, idx int, t float32, n int) []float32 {
	switch samp.Interpolation {
	case asset.InterpStep:
		out := make([]float32, n)
		copy(out, samp.Output[idx])
		return out
	case asset.InterpCubicSpline:
		return cubicSpline(samp, idx, t, n)
	default:
		out := make([]float32, n)
		a := samp.Output[idx]
		b := samp.Output[idx+1]
		for i := 0; i < n; i++ {
			out[i] = a[i] + (b[i]-a[i])*t
		}
		return out
	}
}

// cubicSpline evaluates the Hermite basis for CUBICSPLINE sampler
// output, where each key is stored as
// (in-tangent, value, out-tangent) triples of width n.
func cubicSpline(samp asset.Sampler, idx int, t float32, n int) []float32 {
	i0, i1 := idx, idx+1
	td := float32(1)
	if i1 < len(samp.Input) {
		td = samp.Input[i1] - samp.Input[i0]
	}
	t2 := t * t
	t3 := t2 * t
	cV1 := -2*t3 + 3*t2
	cV0 := 1 - cV1
	cA := td * (t3 - t2)
	cB := td * (t3 - 2*t2 + t)

	out := make([]float32, n)
	v0 := samp.Output[i0][n : 2*n]
	a1 := samp.Output[i1][0:n]
	b0 := samp.Output[i0][2*n : 3*n]
	v1 := samp.Output[i1][n : 2*n]
	for k := 0; k < n; k++ {
		out[k] = v0[k]*cV0 + a1[k]*cA + b0[k]*cB + v1[k]*cV1
	}
	return out
}
