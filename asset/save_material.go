package asset

import (
	"github.com/qmuntal/gltf"
)

// buildMaterial is the inverse of convertMaterial: it re-encodes a
// decoded Material back into a gltf.Material, including the extension
// payloads applyMaterialExtensions knows how to read.
func buildMaterial(mat Material) *gltf.Material {
	mf := float64(mat.MetallicFactor)
	rf := float64(mat.RoughnessFactor)
	gm := &gltf.Material{
		Name: mat.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{
				float64(mat.BaseColorFactor.R), float64(mat.BaseColorFactor.G),
				float64(mat.BaseColorFactor.B), float64(mat.BaseColorFactor.A),
			},
			MetallicFactor:  &mf,
			RoughnessFactor: &rf,
		},
		EmissiveFactor: [3]float64{float64(mat.EmissiveFactor.X), float64(mat.EmissiveFactor.Y), float64(mat.EmissiveFactor.Z)},
		DoubleSided:    mat.DoubleSided,
	}

	if mat.BaseColorTex != nil {
		gm.PBRMetallicRoughness.BaseColorTexture = buildTextureInfo(mat.BaseColorTex)
	}
	if mat.MetallicRoughnessTex != nil {
		gm.PBRMetallicRoughness.MetallicRoughnessTexture = buildTextureInfo(mat.MetallicRoughnessTex)
	}
	if mat.NormalTex != nil {
		idx := uint32(mat.NormalTex.TextureIndex)
		scale := float64(mat.NormalScale)
		gm.NormalTexture = &gltf.NormalTexture{Index: &idx, TexCoord: mat.NormalTex.TexCoord, Scale: &scale}
	}
	if mat.OcclusionTex != nil {
		idx := uint32(mat.OcclusionTex.TextureIndex)
		strength := float64(mat.OcclusionStrength)
		gm.OcclusionTexture = &gltf.OcclusionTexture{Index: &idx, TexCoord: mat.OcclusionTex.TexCoord, Strength: &strength}
	}
	if mat.EmissiveTex != nil {
		gm.EmissiveTexture = buildTextureInfo(mat.EmissiveTex)
	}

	switch mat.AlphaMode {
	case AlphaMask:
		gm.AlphaMode = gltf.AlphaMask
	case AlphaBlend:
		gm.AlphaMode = gltf.AlphaBlend
	default:
		gm.AlphaMode = gltf.AlphaOpaque
	}
	cutoff := float64(mat.AlphaCutoff)
	gm.AlphaCutoff = &cutoff

	gm.Extensions = gltf.Extensions{}
	if mat.TransmissionFactor != 0 || mat.TransmissionTex != nil {
		ext := khrMaterialsTransmission{TransmissionFactor: f64ptr(float64(mat.TransmissionFactor))}
		if mat.TransmissionTex != nil {
			ext.TransmissionTexture = &khrTextureInfo{Index: mat.TransmissionTex.TextureIndex, TexCoord: mat.TransmissionTex.TexCoord}
		}
		gm.Extensions["KHR_materials_transmission"] = ext
	}
	if mat.ThicknessFactor != 0 {
		gm.Extensions["KHR_materials_volume"] = khrMaterialsVolume{
			ThicknessFactor:     f64ptr(float64(mat.ThicknessFactor)),
			AttenuationColor:    [3]float64{float64(mat.AttenuationColor.R), float64(mat.AttenuationColor.G), float64(mat.AttenuationColor.B)},
			AttenuationDistance: f64ptr(float64(mat.AttenuationDistance)),
		}
	}
	if mat.IOR != 1.5 {
		gm.Extensions["KHR_materials_ior"] = khrMaterialsIOR{IOR: f64ptr(float64(mat.IOR))}
	}
	if mat.EmissiveStrength != 1 {
		gm.Extensions["KHR_materials_emissive_strength"] = khrMaterialsEmissiveStrength{EmissiveStrength: f64ptr(float64(mat.EmissiveStrength))}
	}
	if mat.Unlit {
		gm.Extensions["KHR_materials_unlit"] = struct{}{}
	}
	if mat.Clearcoat.Present {
		gm.Extensions["KHR_materials_clearcoat"] = khrClearcoat{
			ClearcoatFactor:          f64ptr(float64(mat.Clearcoat.Factor)),
			ClearcoatTexture:         textureInfoJSON(mat.Clearcoat.Tex),
			ClearcoatRoughnessFactor: f64ptr(float64(mat.Clearcoat.RoughnessFactor)),
			ClearcoatRoughnessTexture: textureInfoJSON(mat.Clearcoat.RoughnessTex),
			ClearcoatNormalTexture:   textureInfoJSON(mat.Clearcoat.NormalTex),
		}
	}
	if mat.Sheen.Present {
		c := mat.Sheen.ColorFactor
		gm.Extensions["KHR_materials_sheen"] = khrSheen{
			SheenColorFactor:     &[3]float64{float64(c.X), float64(c.Y), float64(c.Z)},
			SheenColorTexture:    textureInfoJSON(mat.Sheen.ColorTex),
			SheenRoughnessFactor: f64ptr(float64(mat.Sheen.RoughnessFactor)),
			SheenRoughnessTexture: textureInfoJSON(mat.Sheen.RoughnessTex),
		}
	}
	if mat.Specular.Present {
		c := mat.Specular.ColorFactor
		gm.Extensions["KHR_materials_specular"] = khrSpecular{
			SpecularFactor:      f64ptr(float64(mat.Specular.Factor)),
			SpecularTexture:     textureInfoJSON(mat.Specular.Tex),
			SpecularColorFactor: &[3]float64{float64(c.X), float64(c.Y), float64(c.Z)},
			SpecularColorTexture: textureInfoJSON(mat.Specular.ColorTex),
		}
	}
	if mat.Anisotropy.Present {
		gm.Extensions["KHR_materials_anisotropy"] = khrAnisotropy{
			AnisotropyStrength: f64ptr(float64(mat.Anisotropy.Strength)),
			AnisotropyRotation: f64ptr(float64(mat.Anisotropy.Rotation)),
			AnisotropyTexture:  textureInfoJSON(mat.Anisotropy.Tex),
		}
	}
	if mat.Iridescence.Present {
		gm.Extensions["KHR_materials_iridescence"] = khrIridescence{
			IridescenceFactor:           f64ptr(float64(mat.Iridescence.Factor)),
			IridescenceTexture:          textureInfoJSON(mat.Iridescence.Tex),
			IridescenceIOR:              f64ptr(float64(mat.Iridescence.IOR)),
			IridescenceThicknessMinimum: f64ptr(float64(mat.Iridescence.ThicknessMin)),
			IridescenceThicknessMaximum: f64ptr(float64(mat.Iridescence.ThicknessMax)),
			IridescenceThicknessTexture: textureInfoJSON(mat.Iridescence.ThicknessTex),
		}
	}
	if mat.Dispersion.Present {
		gm.Extensions["KHR_materials_dispersion"] = khrDispersion{Dispersion: f64ptr(float64(mat.Dispersion.Dispersion))}
	}
	if mat.VolumeScatter.Present {
		c := mat.VolumeScatter.ScatterColor
		gm.Extensions["KHR_materials_volume_scatter"] = khrVolumeScatter{
			ScatterDistance: f64ptr(float64(mat.VolumeScatter.ScatterDistance)),
			ScatterColor:    &[3]float64{float64(c.X), float64(c.Y), float64(c.Z)},
		}
	}
	if mat.DiffuseTransmission.Present {
		c := mat.DiffuseTransmission.ColorFactor
		gm.Extensions["KHR_materials_diffuse_transmission"] = khrDiffuseTransmission{
			DiffuseTransmissionFactor:        f64ptr(float64(mat.DiffuseTransmission.Factor)),
			DiffuseTransmissionTexture:       textureInfoJSON(mat.DiffuseTransmission.Tex),
			DiffuseTransmissionColorFactor:   &[3]float64{float64(c.X), float64(c.Y), float64(c.Z)},
			DiffuseTransmissionColorTexture:  textureInfoJSON(mat.DiffuseTransmission.ColorTex),
		}
	}
	if mat.SpecGloss.Present {
		sg := mat.SpecGloss
		gm.Extensions["KHR_materials_pbrSpecularGlossiness"] = khrSpecGloss{
			DiffuseFactor:  [4]float64{float64(sg.DiffuseFactor.R), float64(sg.DiffuseFactor.G), float64(sg.DiffuseFactor.B), float64(sg.DiffuseFactor.A)},
			DiffuseTexture: textureInfoJSON(sg.DiffuseTex),
			SpecularFactor: &[3]float64{float64(sg.SpecularFactor.X), float64(sg.SpecularFactor.Y), float64(sg.SpecularFactor.Z)},
			GlossinessFactor: f64ptr(float64(sg.GlossinessFactor)),
			SpecularGlossinessTexture: textureInfoJSON(sg.SpecularGlossinessTex),
		}
	}
	if len(gm.Extensions) == 0 {
		gm.Extensions = nil
	}
	return gm
}

func buildTextureInfo(t *TextureRef) *gltf.TextureInfo {
	ti := &gltf.TextureInfo{Index: uint32(t.TextureIndex), TexCoord: t.TexCoord}
	if t.UVTransform != nil {
		ti.Extensions = gltf.Extensions{
			"KHR_texture_transform": khrTextureTransform{
				Offset:   [2]float64{float64(t.UVTransform.Offset.X), float64(t.UVTransform.Offset.Y)},
				Rotation: float64(t.UVTransform.Rotation),
				Scale:    [2]float64{float64(t.UVTransform.Scale.X), float64(t.UVTransform.Scale.Y)},
			},
		}
	}
	return ti
}

func textureInfoJSON(t *TextureRef) *khrTextureInfo {
	if t == nil {
		return nil
	}
	return &khrTextureInfo{Index: t.TextureIndex, TexCoord: t.TexCoord}
}
