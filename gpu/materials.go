package gpu

import "vkgltfscene/asset"

// texInfosPerMaterial is the fixed number of texture-info slots reserved
// per material: base color, metallic-roughness, normal, occlusion,
// emissive. Slot 0 of the whole table is the global "no texture" sentinel,
// so material i's slots occupy TexInfos[1+i*texInfosPerMaterial : ...+N).
// A fixed stride keeps every surgical per-material update touching
// exactly one contiguous span, so a dirty material's texture-info rows
// always upload as one batched transfer by construction.
const texInfosPerMaterial = 5

const (
	texSlotBaseColor = iota
	texSlotMetallicRoughness
	texSlotNormal
	texSlotOcclusion
	texSlotEmissive
)

// TexInfoRecord is one row of the GPU texture-info table: which texture to
// sample, which UV set, and the KHR_texture_transform applied to the UVs.
type TexInfoRecord struct {
	TextureIndex int32
	TexCoord     uint32
	UVOffset     [2]float32
	UVRotation   float32
	UVScale      [2]float32
}

var noTexture = TexInfoRecord{TextureIndex: -1}

// MaterialRecord is one row of the GPU material table: the flattened,
// GPU-friendly form of asset.Material, with texture references replaced by
// an index into the texture-info table.
type MaterialRecord struct {
	BaseColorFactor      [4]float32
	MetallicFactor       float32
	RoughnessFactor      float32
	NormalScale          float32
	OcclusionStrength    float32
	EmissiveFactor       [3]float32
	EmissiveStrength     float32
	AlphaMode            uint32
	AlphaCutoff          float32
	DoubleSided          uint32
	TransmissionFactor   float32
	IOR                  float32
	ThicknessFactor      float32
	AttenuationColor     [3]float32
	AttenuationDistance  float32
	Unlit                uint32
	TexInfoBase          uint32 // first of this material's texInfosPerMaterial slots
}

// MaterialTable is the GPU mirror's material/texture-info table, with the
// surgical-vs-rebuild dirty-update policy.
type MaterialTable struct {
	Materials []MaterialRecord
	TexInfos  []TexInfoRecord
}

// NewMaterialTable builds a table from scratch, always a full rebuild.
func NewMaterialTable(mats []asset.Material) *MaterialTable {
	t := &MaterialTable{}
	t.rebuild(mats)
	return t
}

func (t *MaterialTable) rebuild(mats []asset.Material) {
	t.TexInfos = make([]TexInfoRecord, 1+len(mats)*texInfosPerMaterial)
	t.TexInfos[0] = noTexture
	t.Materials = make([]MaterialRecord, len(mats))
	for i := range mats {
		t.writeMaterial(i, mats[i])
	}
}

// ShouldFullRebuild mirrors scene.ShouldFullRebuild's ratio test: a
// full rebuild is cheaper than a surgical update once more than half the
// materials are dirty.
func ShouldFullRebuild(dirtyCount, totalCount int) bool {
	if totalCount == 0 {
		return false
	}
	return dirtyCount*2 > totalCount
}

// Update applies the material-table dirty policy: if dirty touches
// more than half of mats, rebuild the whole table; otherwise patch each
// dirty material's fixed-stride row and texture-info span in place. The
// table is resized first if mats grew or shrank.
func (t *MaterialTable) Update(dirty []int, mats []asset.Material) {
	if len(t.Materials) != len(mats) || ShouldFullRebuild(len(dirty), len(mats)) {
		t.rebuild(mats)
		return
	}
	for _, i := range dirty {
		if i < 0 || i >= len(mats) {
			continue
		}
		t.writeMaterial(i, mats[i])
	}
}

func (t *MaterialTable) writeMaterial(i int, m asset.Material) {
	base := uint32(1 + i*texInfosPerMaterial)
	rec := MaterialRecord{
		BaseColorFactor:     [4]float32{m.BaseColorFactor.R, m.BaseColorFactor.G, m.BaseColorFactor.B, m.BaseColorFactor.A},
		MetallicFactor:      m.MetallicFactor,
		RoughnessFactor:     m.RoughnessFactor,
		NormalScale:         m.NormalScale,
		OcclusionStrength:   m.OcclusionStrength,
		EmissiveFactor:      [3]float32{m.EmissiveFactor.X, m.EmissiveFactor.Y, m.EmissiveFactor.Z},
		EmissiveStrength:    m.EmissiveStrength,
		AlphaMode:           uint32(m.AlphaMode),
		AlphaCutoff:         m.AlphaCutoff,
		DoubleSided:         boolToU32(m.DoubleSided),
		TransmissionFactor:  m.TransmissionFactor,
		IOR:                 m.IOR,
		ThicknessFactor:     m.ThicknessFactor,
		AttenuationColor:    [3]float32{m.AttenuationColor.R, m.AttenuationColor.G, m.AttenuationColor.B},
		AttenuationDistance: m.AttenuationDistance,
		Unlit:               boolToU32(m.Unlit),
		TexInfoBase:         base,
	}
	t.Materials[i] = rec

	span := t.TexInfos[base : base+texInfosPerMaterial]
	for i := range span {
		span[i] = noTexture
	}
	writeTexSlot(span, texSlotBaseColor, m.BaseColorTex)
	writeTexSlot(span, texSlotMetallicRoughness, m.MetallicRoughnessTex)
	writeTexSlot(span, texSlotNormal, m.NormalTex)
	writeTexSlot(span, texSlotOcclusion, m.OcclusionTex)
	writeTexSlot(span, texSlotEmissive, m.EmissiveTex)
}

func writeTexSlot(span []TexInfoRecord, slot int, ref *asset.TextureRef) {
	if ref == nil {
		return
	}
	rec := TexInfoRecord{
		TextureIndex: int32(ref.TextureIndex),
		TexCoord:     uint32(ref.TexCoord),
		UVScale:      [2]float32{1, 1},
	}
	if ref.UVTransform != nil {
		rec.UVOffset = [2]float32{ref.UVTransform.Offset.X, ref.UVTransform.Offset.Y}
		rec.UVRotation = ref.UVTransform.Rotation
		rec.UVScale = [2]float32{ref.UVTransform.Scale.X, ref.UVTransform.Scale.Y}
	}
	span[slot] = rec
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
