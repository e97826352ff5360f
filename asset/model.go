// Package asset decodes glTF 2.0 documents (.gltf and .glb) into a
// flattened, GPU-ready in-memory Model: accessors are fully materialized.
// The package also holds an EXT_meshopt_compression decoder and buffer
// compaction helpers, but Load calls neither: compressed buffer views are
// not decoded and no buffer bytes are dropped.
package asset

import (
	"vkgltfscene/core"
	"vkgltfscene/math"
)

// Model is the decoded representation of one glTF document.
// It still mirrors the document's node/mesh/material graph; it is the
// scene package's job to flatten this into a render graph.
type Model struct {
	Nodes      []Node
	Meshes     []Mesh
	Materials  []Material
	Skins      []Skin
	Cameras    []Camera
	Lights     []Light
	Animations []Animation
	Variants   []string // KHR_materials_variants variant names, in document order

	// Images holds captured (not decoded) image payloads; Textures binds
	// texture indices to them. An external loader decodes Images into
	// mip pyramids.
	Images   []ImageData
	Textures []TextureDesc

	Scenes       [][]int  // each entry is a list of root node indices
	SceneNames   []string // parallel to Scenes
	DefaultScene int      // index into Scenes, or -1 if the document named none

	SourceDir string // directory the document was opened from, for relative URIs

	// CompactionStats records the source buffers' total byte length and
	// the bytes covered by buffer views, for diagnostics. No compaction
	// is performed; the buffers are kept as loaded.
	CompactionStats CompactionStats
}

type CompactionStats struct {
	TotalBytes      int
	KeptBytes       int
	Skipped         bool // true when shouldCompact reports the buffers as already tight
}

type Node struct {
	Name        string
	Children    []int
	Mesh        *int
	Skin        *int
	Camera      *int
	Light       *int // KHR_lights_punctual
	Translation math.Vec3
	Rotation    math.Quaternion
	Scale       math.Vec3

	// Visible is this node's own visibility flag (KHR_node_visibility),
	// default true. A render node is visible iff itself and every
	// ancestor have Visible=true.
	Visible bool

	// InstancingTranslations/Rotations/Scales hold per-instance TRS from
	// EXT_mesh_gpu_instancing; empty unless the node carries it.
	InstancingTranslations []math.Vec3
	InstancingRotations    []math.Quaternion
	InstancingScales       []math.Vec3

	// CameraEye/CameraCenter/CameraUp are the optional camera::eye,
	// camera::center, and camera::up node extras. When present on a node
	// holding a camera they override the eye/center/up otherwise derived
	// from the node's world matrix.
	CameraEye    *math.Vec3
	CameraCenter *math.Vec3
	CameraUp     *math.Vec3

	// PointerPath is the JSON-pointer-addressable path of this node inside
	// the document, e.g. "/nodes/3". Used by KHR_animation_pointer.
	PointerPath string
}

type Mesh struct {
	Name         string
	Primitives   []Primitive
	MorphWeights []float32 // default weights from mesh.weights; node.weights is not read
}

type PrimitiveMode int

const (
	ModeTriangles PrimitiveMode = iota
	ModeTriangleStrip
	ModeTriangleFan
	ModeLines
	ModePoints
)

type Primitive struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Tangents  []math.Vec4 // w = bitangent handedness, per glTF convention
	UV0       []math.Vec2
	UV1       []math.Vec2
	Colors    []core.Color
	Joints    [][core.MaxJointInfluences]uint16
	Weights   [][core.MaxJointInfluences]float32
	Indices   []uint32
	Mode      PrimitiveMode

	Material *int

	// MaterialVariants maps a KHR_materials_variants variant index to the
	// material index that should be used when that variant is active.
	MaterialVariants map[int]int

	// DedupKey identifies this primitive for render-primitive
	// deduplication: the concatenation of its source attribute accessor
	// indices, indices accessor index, and material index, exactly the
	// identity under which two source primitives map to the same
	// render-primitive index. Computed once at decode time, before the
	// accessors are materialized away into the slices above.
	DedupKey string

	MorphTargets []MorphTarget

	// DracoPlaceholder is set when the primitive carries
	// KHR_draco_mesh_compression; its accessor-derived fields above are
	// empty and it must not be rendered or included in acceleration
	// structures until a Draco decoder is wired in.
	DracoPlaceholder bool
}

type MorphTarget struct {
	DPositions []math.Vec3
	DNormals   []math.Vec3
	DTangents  []math.Vec3
}

// AlphaMode mirrors glTF material.alphaMode.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

type Material struct {
	Name string

	BaseColorFactor core.Color
	BaseColorTex    *TextureRef

	MetallicFactor  float32
	RoughnessFactor float32
	MetallicRoughnessTex *TextureRef

	NormalTex    *TextureRef
	NormalScale  float32

	OcclusionTex     *TextureRef
	OcclusionStrength float32

	EmissiveFactor  math.Vec3
	EmissiveTex     *TextureRef
	EmissiveStrength float32 // KHR_materials_emissive_strength

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	// KHR_materials_transmission / volume / ior, carried through for the
	// path tracer's BSDF selection; zero values mean "not present" per the
	// extension defaults.
	TransmissionFactor float32
	TransmissionTex    *TextureRef
	IOR                float32
	ThicknessFactor    float32
	AttenuationColor   core.Color
	AttenuationDistance float32

	// ThinWalled splits the refraction model off the culling flag, in
	// place of the older dual use of
	// doubleSided as both a culling hint and a thin-walled/solid proxy for
	// refraction. When an asset never says either way, DoubleSided is used
	// as the fallback (FallbackThinWalled records that this happened).
	ThinWalled         bool
	FallbackThinWalled bool

	Unlit bool // KHR_materials_unlit

	// Flat tagged extension records: one struct per extension with a
	// Present flag plus fields, rather than polymorphism.
	Clearcoat           ClearcoatExt
	Sheen               SheenExt
	Specular            SpecularExt
	Anisotropy          AnisotropyExt
	Iridescence         IridescenceExt
	Dispersion          DispersionExt
	VolumeScatter       VolumeScatterExt
	DiffuseTransmission DiffuseTransmissionExt
	SpecGloss           SpecGlossExt // legacy KHR_materials_pbrSpecularGlossiness

	// PointerPath is this material's JSON-pointer path, e.g. "/materials/2".
	PointerPath string
}

type ClearcoatExt struct {
	Present           bool
	Factor            float32
	Tex               *TextureRef
	RoughnessFactor   float32
	RoughnessTex      *TextureRef
	NormalTex         *TextureRef
}

type SheenExt struct {
	Present         bool
	ColorFactor     math.Vec3
	ColorTex        *TextureRef
	RoughnessFactor float32
	RoughnessTex    *TextureRef
}

type SpecularExt struct {
	Present      bool
	Factor       float32
	Tex          *TextureRef
	ColorFactor  math.Vec3
	ColorTex     *TextureRef
}

type AnisotropyExt struct {
	Present  bool
	Strength float32
	Rotation float32 // radians
	Tex      *TextureRef
}

type IridescenceExt struct {
	Present      bool
	Factor       float32
	IOR          float32
	Tex          *TextureRef
	ThicknessMin float32
	ThicknessMax float32
	ThicknessTex *TextureRef
}

// DispersionExt is KHR_materials_dispersion: a single scalar spread on top
// of TransmissionFactor/IOR, so it carries no texture slots.
type DispersionExt struct {
	Present    bool
	Dispersion float32
}

// VolumeScatterExt supplements KHR_materials_volume with a scattering
// distance/color, per the proposed KHR_materials_volume_scatter extension
// referenced by the volume-scatter record.
type VolumeScatterExt struct {
	Present         bool
	ScatterDistance float32
	ScatterColor    math.Vec3
}

type DiffuseTransmissionExt struct {
	Present      bool
	Factor       float32
	Tex          *TextureRef
	ColorFactor  math.Vec3
	ColorTex     *TextureRef
}

// SpecGlossExt is the legacy KHR_materials_pbrSpecularGlossiness workflow;
// present only on assets authored before the metallic-roughness model was
// standardized.
type SpecGlossExt struct {
	Present             bool
	DiffuseFactor       core.Color
	DiffuseTex          *TextureRef
	SpecularFactor      math.Vec3
	GlossinessFactor    float32
	SpecularGlossinessTex *TextureRef
}

type TextureRef struct {
	TextureIndex int
	TexCoord     int // 0 or 1, selecting UV0/UV1
	UVTransform  *UVTransform
}

// UVTransform is KHR_texture_transform.
type UVTransform struct {
	Offset   math.Vec2
	Rotation float32
	Scale    math.Vec2
}

type Texture struct {
	Name   string
	Width  int
	Height int
	Pixels []byte // RGBA8, row-major, top-to-bottom
}

type Skin struct {
	InverseBindMatrices []math.Mat4
	Joints              []int // node indices
	Skeleton            *int
}

type Camera struct {
	Name        string
	Orthographic bool

	// Perspective fields
	YFov        float32
	AspectRatio float32 // 0 means "derive from viewport"

	// Orthographic fields
	XMag, YMag float32

	ZNear, ZFar float32 // ZFar == 0 means infinite far plane
}

type LightType int

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

type Light struct {
	Name      string
	Type      LightType
	Color     core.Color
	Intensity float32
	Range     float32 // 0 means infinite

	InnerConeAngle float32
	OuterConeAngle float32

	// Radius is extras.radius. For directional lights gpu.DeriveLight
	// turns it into an angular size of 2*atan(radius) radians (a unit sun
	// distance); for point/spot lights it is carried but not used by the
	// light table or the path tracer. Zero (the glTF default) means a hard
	// point/sun.
	Radius float32

	PointerPath string
}

type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
	InterpCubicSpline
)

type TargetPath int

const (
	PathTranslation TargetPath = iota
	PathRotation
	PathScale
	PathWeights
	PathPointer // KHR_animation_pointer — see Channel.PointerPath
)

type Sampler struct {
	Input         []float32 // keyframe times, seconds
	Output        [][]float32
	Interpolation Interpolation
}

type Channel struct {
	SamplerIndex int
	TargetNode   *int
	TargetPath   TargetPath

	// PointerPath is set when TargetPath == PathPointer; it is the raw
	// JSON pointer string from the extension payload, e.g.
	// "/materials/1/emissiveFactor".
	PointerPath string
}

type Animation struct {
	Name     string
	Samplers []Sampler
	Channels []Channel
}
