package asset

import (
	"encoding/json"
	"fmt"

	"github.com/qmuntal/gltf"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

func loadVariants(doc *gltf.Document, m *Model) error {
	if doc.Extensions == nil {
		return nil
	}
	raw, ok := doc.Extensions["KHR_materials_variants"]
	if !ok {
		return nil
	}
	var v khrMaterialsVariantsDoc
	if err := decodeExtension(raw, &v); err != nil {
		return err
	}
	for _, entry := range v.Variants {
		m.Variants = append(m.Variants, entry.Name)
	}
	return nil
}

func loadCamerasAndLights(doc *gltf.Document, m *Model) {
	m.Cameras = make([]Camera, len(doc.Cameras))
	for i, gc := range doc.Cameras {
		cam := Camera{Name: gc.Name}
		if gc.Perspective != nil {
			cam.YFov = float32(gc.Perspective.Yfov)
			if gc.Perspective.AspectRatio != nil {
				cam.AspectRatio = float32(*gc.Perspective.AspectRatio)
			}
			cam.ZNear = float32(gc.Perspective.Znear)
			if gc.Perspective.Zfar != nil {
				cam.ZFar = float32(*gc.Perspective.Zfar)
			}
		} else if gc.Orthographic != nil {
			cam.Orthographic = true
			cam.XMag = float32(gc.Orthographic.Xmag)
			cam.YMag = float32(gc.Orthographic.Ymag)
			cam.ZNear = float32(gc.Orthographic.Znear)
			cam.ZFar = float32(gc.Orthographic.Zfar)
		}
		m.Cameras[i] = cam
	}

	if doc.Extensions == nil {
		return
	}
	raw, ok := doc.Extensions["KHR_lights_punctual"]
	if !ok {
		return
	}
	var ld khrLightsPunctualDoc
	if err := decodeExtension(raw, &ld); err != nil {
		fmt.Printf("asset: KHR_lights_punctual: %v\n", err)
		return
	}
	for i, gl := range ld.Lights {
		light := Light{
			Name:  gl.Name,
			Color: core.Color{R: float32(gl.Color[0]), G: float32(gl.Color[1]), B: float32(gl.Color[2]), A: 1},
			PointerPath: fmt.Sprintf("/extensions/KHR_lights_punctual/lights/%d", i),
		}
		switch gl.Type {
		case "point":
			light.Type = LightPoint
		case "spot":
			light.Type = LightSpot
		default:
			light.Type = LightDirectional
		}
		if gl.Intensity != nil {
			light.Intensity = float32(*gl.Intensity)
		} else {
			light.Intensity = 1
		}
		if gl.Range != nil {
			light.Range = float32(*gl.Range)
		}
		if gl.Spot != nil {
			if gl.Spot.InnerConeAngle != nil {
				light.InnerConeAngle = float32(*gl.Spot.InnerConeAngle)
			}
			if gl.Spot.OuterConeAngle != nil {
				light.OuterConeAngle = float32(*gl.Spot.OuterConeAngle)
			} else {
				light.OuterConeAngle = 0.785398163 // pi/4 default per the extension spec
			}
		}
		if len(gl.Extras) > 0 {
			var extras khrLightExtras
			if err := json.Unmarshal(gl.Extras, &extras); err == nil && extras.Radius != nil {
				light.Radius = float32(*extras.Radius)
			}
		}
		m.Lights = append(m.Lights, light)
	}
}

func loadSkins(doc *gltf.Document, m *Model) error {
	m.Skins = make([]Skin, len(doc.Skins))
	for i, gs := range doc.Skins {
		skin := Skin{}
		for _, j := range gs.Joints {
			skin.Joints = append(skin.Joints, int(j))
		}
		if gs.Skeleton != nil {
			v := int(*gs.Skeleton)
			skin.Skeleton = &v
		}
		if gs.InverseBindMatrices != nil {
			mats, err := readMat4Accessor(doc, *gs.InverseBindMatrices)
			if err != nil {
				return fmt.Errorf("skin %d inverse bind matrices: %w", i, err)
			}
			skin.InverseBindMatrices = mats
		} else {
			skin.InverseBindMatrices = make([]math.Mat4, len(skin.Joints))
			for j := range skin.InverseBindMatrices {
				skin.InverseBindMatrices[j] = math.Mat4Identity()
			}
		}
		m.Skins[i] = skin
	}
	return nil
}

func loadAnimations(doc *gltf.Document, m *Model) {
	m.Animations = make([]Animation, len(doc.Animations))
	for ai, ga := range doc.Animations {
		anim := Animation{Name: ga.Name}
		for _, gsamp := range ga.Samplers {
			samp := Sampler{}
			input, err := readScalarAccessor(doc, gsamp.Input)
			if err != nil {
				fmt.Printf("asset: animation %d sampler input: %v\n", ai, err)
				continue
			}
			samp.Input = input
			output, err := readVectorAccessor(doc, gsamp.Output)
			if err != nil {
				fmt.Printf("asset: animation %d sampler output: %v\n", ai, err)
				continue
			}
			if len(input) > 0 && len(output) > len(input) && len(output)%len(input) == 0 {
				g := len(output) / len(input)
				grouped := make([][]float32, len(input))
				for k := range grouped {
					for _, row := range output[k*g : (k+1)*g] {
						grouped[k] = append(grouped[k], row...)
					}
				}
				output = grouped
			}
			samp.Output = output
			switch gsamp.Interpolation {
			case gltf.InterpolationStep:
				samp.Interpolation = InterpStep
			case gltf.InterpolationCubicSpline:
				samp.Interpolation = InterpCubicSpline
			default:
				samp.Interpolation = InterpLinear
			}
			anim.Samplers = append(anim.Samplers, samp)
		}
		for _, gc := range ga.Channels {
			ch := Channel{SamplerIndex: int(gc.Sampler)}
			if gc.Target.Node != nil {
				v := int(*gc.Target.Node)
				ch.TargetNode = &v
			}
			switch gc.Target.Path {
			case gltf.TRSTranslation:
				ch.TargetPath = PathTranslation
			case gltf.TRSRotation:
				ch.TargetPath = PathRotation
			case gltf.TRSScale:
				ch.TargetPath = PathScale
			case gltf.TRSWeights:
				ch.TargetPath = PathWeights
			}
			if gc.Target.Extensions != nil {
				if raw, ok := gc.Target.Extensions["KHR_animation_pointer"]; ok {
					var ptr khrAnimationPointerTarget
					if err := decodeExtension(raw, &ptr); err == nil {
						ch.TargetPath = PathPointer
						ch.PointerPath = ptr.Pointer
					}
				}
			}
			anim.Channels = append(anim.Channels, ch)
		}
		m.Animations[ai] = anim
	}
}

func convertMaterial(index int, gm *gltf.Material) Material {
	mat := Material{
		Name:            gm.Name,
		BaseColorFactor: core.ColorWhite,
		MetallicFactor:  1,
		RoughnessFactor: 1,
		AlphaCutoff:     0.5,
		PointerPath:     fmt.Sprintf("/materials/%d", index),
	}

	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		cf := pbr.BaseColorFactorOrDefault()
		mat.BaseColorFactor = core.Color{R: float32(cf[0]), G: float32(cf[1]), B: float32(cf[2]), A: float32(cf[3])}
		mat.MetallicFactor = float32(pbr.MetallicFactorOrDefault())
		mat.RoughnessFactor = float32(pbr.RoughnessFactorOrDefault())
		if pbr.BaseColorTexture != nil {
			mat.BaseColorTex = convertTextureInfoIndex(pbr.BaseColorTexture.Index, pbr.BaseColorTexture.TexCoord, pbr.BaseColorTexture.Extensions)
		}
		if pbr.MetallicRoughnessTexture != nil {
			mat.MetallicRoughnessTex = convertTextureInfoIndex(pbr.MetallicRoughnessTexture.Index, pbr.MetallicRoughnessTexture.TexCoord, pbr.MetallicRoughnessTexture.Extensions)
		}
	}

	if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
		mat.NormalTex = convertTextureInfoIndex(*gm.NormalTexture.Index, gm.NormalTexture.TexCoord, gm.NormalTexture.Extensions)
		mat.NormalScale = float32(gm.NormalTexture.ScaleOrDefault())
	}
	if gm.OcclusionTexture != nil && gm.OcclusionTexture.Index != nil {
		mat.OcclusionTex = convertTextureInfoIndex(*gm.OcclusionTexture.Index, gm.OcclusionTexture.TexCoord, gm.OcclusionTexture.Extensions)
		mat.OcclusionStrength = float32(gm.OcclusionTexture.StrengthOrDefault())
	}
	if gm.EmissiveTexture != nil {
		mat.EmissiveTex = convertTextureInfoIndex(gm.EmissiveTexture.Index, gm.EmissiveTexture.TexCoord, gm.EmissiveTexture.Extensions)
	}
	ef := gm.EmissiveFactor
	mat.EmissiveFactor = math.Vec3{X: float32(ef[0]), Y: float32(ef[1]), Z: float32(ef[2])}
	mat.EmissiveStrength = 1

	switch gm.AlphaMode {
	case gltf.AlphaMask:
		mat.AlphaMode = AlphaMask
	case gltf.AlphaBlend:
		mat.AlphaMode = AlphaBlend
	default:
		mat.AlphaMode = AlphaOpaque
	}
	if gm.AlphaCutoff != nil {
		mat.AlphaCutoff = float32(*gm.AlphaCutoff)
	}
	mat.DoubleSided = gm.DoubleSided

	mat.IOR = 1.5 // KHR_materials_ior default

	if gm.Extensions != nil {
		if raw, ok := gm.Extensions["KHR_materials_transmission"]; ok {
			var t khrMaterialsTransmission
			if err := decodeExtension(raw, &t); err == nil {
				if t.TransmissionFactor != nil {
					mat.TransmissionFactor = float32(*t.TransmissionFactor)
				}
				if t.TransmissionTexture != nil {
					mat.TransmissionTex = convertTextureInfoIndex(t.TransmissionTexture.Index, t.TransmissionTexture.TexCoord, nil)
				}
			}
		}
		if raw, ok := gm.Extensions["KHR_materials_volume"]; ok {
			var v khrMaterialsVolume
			if err := decodeExtension(raw, &v); err == nil {
				if v.ThicknessFactor != nil {
					mat.ThicknessFactor = float32(*v.ThicknessFactor)
				}
				mat.AttenuationColor = core.Color{R: float32(v.AttenuationColor[0]), G: float32(v.AttenuationColor[1]), B: float32(v.AttenuationColor[2]), A: 1}
				if v.AttenuationDistance != nil {
					mat.AttenuationDistance = float32(*v.AttenuationDistance)
				} else {
					mat.AttenuationDistance = 3.402823e+38
				}
			}
		}
		if raw, ok := gm.Extensions["KHR_materials_ior"]; ok {
			var v khrMaterialsIOR
			if err := decodeExtension(raw, &v); err == nil && v.IOR != nil {
				mat.IOR = float32(*v.IOR)
			}
		}
		if raw, ok := gm.Extensions["KHR_materials_emissive_strength"]; ok {
			var v khrMaterialsEmissiveStrength
			if err := decodeExtension(raw, &v); err == nil && v.EmissiveStrength != nil {
				mat.EmissiveStrength = float32(*v.EmissiveStrength)
			}
		}
		if _, ok := gm.Extensions["KHR_materials_unlit"]; ok {
			mat.RoughnessFactor = 1
			mat.MetallicFactor = 0
		}
	}

	applyMaterialExtensions(gm, &mat)

	// Fall back to doubleSided as the thin-walled proxy only
	// when the asset never expressed it another way (there is no standard
	// glTF extension for this; an asset-specific extras flag, if present,
	// would be read here instead).
	mat.ThinWalled = mat.DoubleSided
	mat.FallbackThinWalled = true

	return mat
}

func convertTextureInfoIndex(index int, texCoord int, extensions gltf.Extensions) *TextureRef {
	ref := &TextureRef{TextureIndex: index, TexCoord: texCoord}
	if extensions != nil {
		if raw, ok := extensions["KHR_texture_transform"]; ok {
			var t khrTextureTransform
			if err := decodeExtension(raw, &t); err == nil {
				ref.UVTransform = &UVTransform{
					Offset:   math.Vec2{X: float32(t.Offset[0]), Y: float32(t.Offset[1])},
					Rotation: float32(t.Rotation),
					Scale:    math.Vec2{X: float32(t.Scale[0]), Y: float32(t.Scale[1])},
				}
				if t.TexCoord != nil {
					ref.TexCoord = *t.TexCoord
				}
			}
		}
	}
	return ref
}
