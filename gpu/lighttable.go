package gpu

import (
	"math"

	"vkgltfscene/asset"
	mathx "vkgltfscene/math"
	"vkgltfscene/scene"
)

// defaultSunDistance is the distance (in scene units) an authored
// directional light's extras.radius is assumed to sit from the shaded
// surface when converting it into an angular size via
// 2*atan(radius/distance). A distance isn't otherwise part of the glTF
// directional-light model, so a constant unit distance stands in for it,
// which makes the angular size 2*atan(radius).
const defaultSunDistance = 1.0

// LightRecord is one row of the GPU light table.
type LightRecord struct {
	Position    mathx.Vec3
	Direction   mathx.Vec3
	Color       [3]float32
	Intensity   float32
	Type        uint32
	InvRange    float32 // 0 for infinite range
	AngularSize float32 // directional lights only
	InnerAngle  float32
	OuterAngle  float32
}

// DeriveLight builds a LightRecord from a light placement: directional
// lights get an angular size derived from their
// extras.radius; point/spot lights get an inverse range instead (0 when
// range is the glTF default of "infinite").
func DeriveLight(l asset.Light, worldMatrix mathx.Mat4) LightRecord {
	rec := LightRecord{
		Position:  worldMatrix.MulVec3(mathx.Vec3Zero),
		Direction: worldMatrix.ToMat3().MulVec3(mathx.Vec3Back).Normalize(),
		Color:     [3]float32{l.Color.R, l.Color.G, l.Color.B},
		Intensity: l.Intensity,
		Type:      uint32(l.Type),
	}
	switch l.Type {
	case asset.LightDirectional:
		if l.Radius > 0 {
			rec.AngularSize = 2 * float32(math.Atan(float64(l.Radius/defaultSunDistance)))
		}
	default:
		if l.Range > 0 {
			rec.InvRange = 1 / l.Range
		}
		if l.Type == asset.LightSpot {
			rec.InnerAngle = l.InnerConeAngle
			rec.OuterAngle = l.OuterConeAngle
		}
	}
	return rec
}

// LightTable mirrors scene.Scene's light arena; lights have no dirty-vs-
// rebuild split: a scene typically carries far fewer lights than
// materials or render nodes, so every sync is a full rebuild.
type LightTable struct {
	Rows []LightRecord
}

func NewLightTable(lights []scene.RenderLight, model *asset.Model) *LightTable {
	t := &LightTable{Rows: make([]LightRecord, len(lights))}
	t.Rebuild(lights, model)
	return t
}

func (t *LightTable) Rebuild(lights []scene.RenderLight, model *asset.Model) {
	t.Rows = make([]LightRecord, len(lights))
	for i, rl := range lights {
		if rl.LightIndex < 0 || rl.LightIndex >= len(model.Lights) {
			continue
		}
		t.Rows[i] = DeriveLight(model.Lights[rl.LightIndex], rl.WorldMatrix)
	}
}
