package asset

import (
	"github.com/qmuntal/gltf"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

// applyMaterialExtensions decodes the flat tagged material extension
// records spec 3 lists (clearcoat, sheen, specular, anisotropy,
// iridescence, dispersion, volume-scatter, diffuse-transmission, legacy
// spec-gloss) from gm's raw Extensions map. Each is independently optional;
// a decode failure degrades that one extension rather than the material.
func applyMaterialExtensions(gm *gltf.Material, mat *Material) {
	if gm.Extensions == nil {
		return
	}

	if _, ok := gm.Extensions["KHR_materials_unlit"]; ok {
		mat.Unlit = true
	}

	if raw, ok := gm.Extensions["KHR_materials_clearcoat"]; ok {
		var v khrClearcoat
		if err := decodeExtension(raw, &v); err == nil {
			mat.Clearcoat = ClearcoatExt{
				Present:         true,
				Factor:          floatOr(v.ClearcoatFactor, 0),
				Tex:             textureRefFrom(v.ClearcoatTexture),
				RoughnessFactor: floatOr(v.ClearcoatRoughnessFactor, 0),
				RoughnessTex:    textureRefFrom(v.ClearcoatRoughnessTexture),
				NormalTex:       textureRefFrom(v.ClearcoatNormalTexture),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_sheen"]; ok {
		var v khrSheen
		if err := decodeExtension(raw, &v); err == nil {
			mat.Sheen = SheenExt{
				Present:         true,
				ColorFactor:     vec3Or(v.SheenColorFactor, 0, 0, 0),
				ColorTex:        textureRefFrom(v.SheenColorTexture),
				RoughnessFactor: floatOr(v.SheenRoughnessFactor, 0),
				RoughnessTex:    textureRefFrom(v.SheenRoughnessTexture),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_specular"]; ok {
		var v khrSpecular
		if err := decodeExtension(raw, &v); err == nil {
			mat.Specular = SpecularExt{
				Present:     true,
				Factor:      floatOr(v.SpecularFactor, 1),
				Tex:         textureRefFrom(v.SpecularTexture),
				ColorFactor: vec3Or(v.SpecularColorFactor, 1, 1, 1),
				ColorTex:    textureRefFrom(v.SpecularColorTexture),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_anisotropy"]; ok {
		var v khrAnisotropy
		if err := decodeExtension(raw, &v); err == nil {
			mat.Anisotropy = AnisotropyExt{
				Present:  true,
				Strength: floatOr(v.AnisotropyStrength, 0),
				Rotation: floatOr(v.AnisotropyRotation, 0),
				Tex:      textureRefFrom(v.AnisotropyTexture),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_iridescence"]; ok {
		var v khrIridescence
		if err := decodeExtension(raw, &v); err == nil {
			mat.Iridescence = IridescenceExt{
				Present:      true,
				Factor:       floatOr(v.IridescenceFactor, 0),
				IOR:          floatOr(v.IridescenceIOR, 1.3),
				Tex:          textureRefFrom(v.IridescenceTexture),
				ThicknessMin: floatOr(v.IridescenceThicknessMinimum, 100),
				ThicknessMax: floatOr(v.IridescenceThicknessMaximum, 400),
				ThicknessTex: textureRefFrom(v.IridescenceThicknessTexture),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_dispersion"]; ok {
		var v khrDispersion
		if err := decodeExtension(raw, &v); err == nil {
			mat.Dispersion = DispersionExt{Present: true, Dispersion: floatOr(v.Dispersion, 0)}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_volume_scatter"]; ok {
		var v khrVolumeScatter
		if err := decodeExtension(raw, &v); err == nil {
			mat.VolumeScatter = VolumeScatterExt{
				Present:         true,
				ScatterDistance: floatOr(v.ScatterDistance, 3.402823e+38),
				ScatterColor:    vec3Or(v.ScatterColor, 1, 1, 1),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_diffuse_transmission"]; ok {
		var v khrDiffuseTransmission
		if err := decodeExtension(raw, &v); err == nil {
			mat.DiffuseTransmission = DiffuseTransmissionExt{
				Present:     true,
				Factor:      floatOr(v.DiffuseTransmissionFactor, 0),
				Tex:         textureRefFrom(v.DiffuseTransmissionTexture),
				ColorFactor: vec3Or(v.DiffuseTransmissionColorFactor, 1, 1, 1),
				ColorTex:    textureRefFrom(v.DiffuseTransmissionColorTexture),
			}
		}
	}

	if raw, ok := gm.Extensions["KHR_materials_pbrSpecularGlossiness"]; ok {
		var v khrSpecGloss
		if err := decodeExtension(raw, &v); err == nil {
			df := v.DiffuseFactor
			if df == ([4]float64{}) {
				df = [4]float64{1, 1, 1, 1}
			}
			mat.SpecGloss = SpecGlossExt{
				Present:               true,
				DiffuseFactor:         colorFrom4(df),
				DiffuseTex:            textureRefFrom(v.DiffuseTexture),
				SpecularFactor:        vec3Or(v.SpecularFactor, 1, 1, 1),
				GlossinessFactor:      floatOr(v.GlossinessFactor, 1),
				SpecularGlossinessTex: textureRefFrom(v.SpecularGlossinessTexture),
			}
		}
	}
}

func floatOr(v *float64, def float32) float32 {
	if v == nil {
		return def
	}
	return float32(*v)
}

func vec3Or(v *[3]float64, x, y, z float32) math.Vec3 {
	if v == nil {
		return math.Vec3{X: x, Y: y, Z: z}
	}
	return math.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
}

func colorFrom4(a [4]float64) core.Color {
	return core.Color{R: float32(a[0]), G: float32(a[1]), B: float32(a[2]), A: float32(a[3])}
}

func textureRefFrom(t *khrTextureInfo) *TextureRef {
	if t == nil {
		return nil
	}
	return &TextureRef{TextureIndex: t.Index, TexCoord: t.TexCoord}
}

type khrClearcoat struct {
	ClearcoatFactor           *float64        `json:"clearcoatFactor"`
	ClearcoatTexture          *khrTextureInfo `json:"clearcoatTexture"`
	ClearcoatRoughnessFactor  *float64        `json:"clearcoatRoughnessFactor"`
	ClearcoatRoughnessTexture *khrTextureInfo `json:"clearcoatRoughnessTexture"`
	ClearcoatNormalTexture    *khrTextureInfo `json:"clearcoatNormalTexture"`
}

type khrSheen struct {
	SheenColorFactor     *[3]float64     `json:"sheenColorFactor"`
	SheenColorTexture    *khrTextureInfo `json:"sheenColorTexture"`
	SheenRoughnessFactor *float64        `json:"sheenRoughnessFactor"`
	SheenRoughnessTexture *khrTextureInfo `json:"sheenRoughnessTexture"`
}

type khrSpecular struct {
	SpecularFactor       *float64        `json:"specularFactor"`
	SpecularTexture      *khrTextureInfo `json:"specularTexture"`
	SpecularColorFactor  *[3]float64     `json:"specularColorFactor"`
	SpecularColorTexture *khrTextureInfo `json:"specularColorTexture"`
}

type khrAnisotropy struct {
	AnisotropyStrength *float64        `json:"anisotropyStrength"`
	AnisotropyRotation *float64        `json:"anisotropyRotation"`
	AnisotropyTexture  *khrTextureInfo `json:"anisotropyTexture"`
}

type khrIridescence struct {
	IridescenceFactor           *float64        `json:"iridescenceFactor"`
	IridescenceIOR              *float64        `json:"iridescenceIor"`
	IridescenceTexture          *khrTextureInfo `json:"iridescenceTexture"`
	IridescenceThicknessMinimum *float64        `json:"iridescenceThicknessMinimum"`
	IridescenceThicknessMaximum *float64        `json:"iridescenceThicknessMaximum"`
	IridescenceThicknessTexture *khrTextureInfo `json:"iridescenceThicknessTexture"`
}

type khrDispersion struct {
	Dispersion *float64 `json:"dispersion"`
}

type khrVolumeScatter struct {
	ScatterDistance *float64    `json:"scatterDistance"`
	ScatterColor    *[3]float64 `json:"scatterColor"`
}

type khrDiffuseTransmission struct {
	DiffuseTransmissionFactor       *float64        `json:"diffuseTransmissionFactor"`
	DiffuseTransmissionTexture      *khrTextureInfo `json:"diffuseTransmissionTexture"`
	DiffuseTransmissionColorFactor  *[3]float64     `json:"diffuseTransmissionColorFactor"`
	DiffuseTransmissionColorTexture *khrTextureInfo `json:"diffuseTransmissionColorTexture"`
}

type khrSpecGloss struct {
	DiffuseFactor             [4]float64      `json:"diffuseFactor"`
	DiffuseTexture            *khrTextureInfo `json:"diffuseTexture"`
	SpecularFactor            *[3]float64     `json:"specularFactor"`
	GlossinessFactor          *float64        `json:"glossinessFactor"`
	SpecularGlossinessTexture *khrTextureInfo `json:"specularGlossinessTexture"`
}
