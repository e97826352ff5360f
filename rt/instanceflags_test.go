package rt

import (
	"testing"

	"vkgltfscene/asset"
)

func TestDeriveInstanceFlagsOpaque(t *testing.T) {
	m := asset.Material{AlphaMode: asset.AlphaOpaque}
	f := DeriveInstanceFlags(m)
	if !f.ForceOpaque {
		t.Fatalf("plain opaque material should force-opaque")
	}
	if f.CullDisable {
		t.Fatalf("single-sided opaque material should not disable culling")
	}
}

func TestDeriveInstanceFlagsBlendNeverForceOpaque(t *testing.T) {
	m := asset.Material{AlphaMode: asset.AlphaBlend}
	if DeriveInstanceFlags(m).ForceOpaque {
		t.Fatalf("AlphaBlend must never be force-opaque")
	}
}

func TestDeriveInstanceFlagsTransmissionBreaksForceOpaque(t *testing.T) {
	m := asset.Material{AlphaMode: asset.AlphaOpaque, TransmissionFactor: 0.5}
	f := DeriveInstanceFlags(m)
	if f.ForceOpaque {
		t.Fatalf("non-zero transmission must disable force-opaque even under AlphaOpaque")
	}
	if !f.CullDisable {
		t.Fatalf("non-zero transmission must disable backface culling")
	}
}

func TestDeriveInstanceFlagsDoubleSided(t *testing.T) {
	m := asset.Material{AlphaMode: asset.AlphaOpaque, DoubleSided: true}
	f := DeriveInstanceFlags(m)
	if !f.ForceOpaque {
		t.Fatalf("double-sided alone should not affect force-opaque")
	}
	if !f.CullDisable {
		t.Fatalf("double-sided must disable backface culling")
	}
}

func TestDeriveInstanceFlagsVolumeThickness(t *testing.T) {
	m := asset.Material{AlphaMode: asset.AlphaOpaque, ThicknessFactor: 1}
	if !DeriveInstanceFlags(m).CullDisable {
		t.Fatalf("non-zero volume thickness must disable backface culling")
	}
}

func TestInstanceMaskAndASReference(t *testing.T) {
	if InstanceMask(true) != 0x01 {
		t.Fatalf("visible instance should have mask 0x01")
	}
	if InstanceMask(false) != 0x00 {
		t.Fatalf("invisible instance should have mask 0x00")
	}
	if AccelerationStructureReference(false, 0xABCD) != 0 {
		t.Fatalf("invisible instance must zero its AS reference")
	}
	if AccelerationStructureReference(true, 0xABCD) != 0xABCD {
		t.Fatalf("visible instance must keep its AS reference")
	}
}
