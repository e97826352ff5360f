package asset

import (
	"encoding/json"
	"fmt"
)

// knownExtensions is the allow-list of extensions this decoder understands
// well enough for extensionsRequired to be satisfied. Entries used but not
// required degrade gracefully (logged, feature skipped); entries required
// but absent from this list abort the load.
var knownExtensions = map[string]bool{
	"KHR_lights_punctual":                 true,
	"KHR_materials_variants":              true,
	"KHR_materials_transmission":          true,
	"KHR_materials_volume":                true,
	"KHR_materials_volume_scatter":        true,
	"KHR_materials_ior":                   true,
	"KHR_materials_emissive_strength":     true,
	"KHR_materials_unlit":                 true,
	"KHR_materials_clearcoat":             true,
	"KHR_materials_sheen":                 true,
	"KHR_materials_specular":              true,
	"KHR_materials_anisotropy":            true,
	"KHR_materials_iridescence":           true,
	"KHR_materials_dispersion":            true,
	"KHR_materials_diffuse_transmission":  true,
	"KHR_materials_displacement":          true,
	"KHR_materials_pbrSpecularGlossiness": true,
	"KHR_texture_transform":               true,
	"KHR_texture_basisu":                  true,
	"KHR_mesh_quantization":               true,
	"KHR_animation_pointer":               true,
	"KHR_node_visibility":                 true,
	"KHR_draco_mesh_compression":          true, // flagged-only: decode not implemented
	"EXT_mesh_gpu_instancing":             true,
	"EXT_meshopt_compression":             true,
	"EXT_texture_webp":                    true,
	"MSFT_texture_dds":                    true,
	"NV_attributes_iray":                  true, // accepted, not interpreted: author-tool metadata
}

// UnsupportedRequiredExtension is returned when extensionsRequired names an
// extension this decoder cannot satisfy.
type UnsupportedRequiredExtension struct {
	Name string
}

func (e *UnsupportedRequiredExtension) Error() string {
	return fmt.Sprintf("asset: required extension %q is not supported", e.Name)
}

func checkExtensionSupport(used, required []string) error {
	for _, name := range required {
		if !knownExtensions[name] {
			return &UnsupportedRequiredExtension{Name: name}
		}
	}
	for _, name := range used {
		if !knownExtensions[name] {
			fmt.Printf("asset: extensionsUsed entry %q is unrecognized, ignoring\n", name)
		}
	}
	return nil
}

// decodeExtension unmarshals a raw extension payload (however the
// underlying gltf.Extensions map stores it — json.RawMessage or
// interface{}, both round-trip through json.Marshal) into dst.
func decodeExtension(raw interface{}, dst interface{}) error {
	if raw == nil {
		return fmt.Errorf("asset: extension payload is nil")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("asset: re-marshal extension payload: %w", err)
	}
	return json.Unmarshal(b, dst)
}

type khrLightsPunctualDoc struct {
	Lights []khrLight `json:"lights"`
}

type khrLight struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Color     [3]float64      `json:"color"`
	Intensity *float64        `json:"intensity"`
	Range     *float64        `json:"range"`
	Spot      *khrSpot        `json:"spot"`
	Extras    json.RawMessage `json:"extras"`
}

type khrLightExtras struct {
	Radius *float64 `json:"radius"`
}

type khrSpot struct {
	InnerConeAngle *float64 `json:"innerConeAngle"`
	OuterConeAngle *float64 `json:"outerConeAngle"`
}

type khrNodeLightRef struct {
	Light int `json:"light"`
}

// cameraNodeExtras carries the camera::eye/center/up overrides a node
// holding a camera may attach via extras.
type cameraNodeExtras struct {
	Eye    *[3]float64 `json:"camera::eye"`
	Center *[3]float64 `json:"camera::center"`
	Up     *[3]float64 `json:"camera::up"`
}

type khrMaterialsVariantsDoc struct {
	Variants []struct {
		Name string `json:"name"`
	} `json:"variants"`
}

type khrPrimitiveVariantsMapping struct {
	Mappings []struct {
		Variants []int `json:"variants"`
		Material int    `json:"material"`
	} `json:"mappings"`
}

type khrMaterialsTransmission struct {
	TransmissionFactor  *float64        `json:"transmissionFactor"`
	TransmissionTexture *khrTextureInfo `json:"transmissionTexture"`
}

type khrMaterialsVolume struct {
	ThicknessFactor     *float64   `json:"thicknessFactor"`
	AttenuationColor    [3]float64 `json:"attenuationColor"`
	AttenuationDistance *float64   `json:"attenuationDistance"`
}

type khrMaterialsIOR struct {
	IOR *float64 `json:"ior"`
}

type khrMaterialsEmissiveStrength struct {
	EmissiveStrength *float64 `json:"emissiveStrength"`
}

type khrTextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord"`
}

type khrTextureTransform struct {
	Offset   [2]float64 `json:"offset"`
	Rotation float64    `json:"rotation"`
	Scale    [2]float64 `json:"scale"`
	TexCoord *int       `json:"texCoord"`
}

type extMeshGPUInstancing struct {
	Attributes map[string]int `json:"attributes"`
}

type extMeshoptCompression struct {
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride"`
	Count      int    `json:"count"`
	Mode       string `json:"mode"`
	Filter     string `json:"filter"`
}

type khrAnimationPointerTarget struct {
	Pointer string `json:"pointer"`
}

type khrNodeVisibility struct {
	Visible *bool `json:"visible"`
}
