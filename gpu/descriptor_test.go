package gpu

import (
	"testing"

	"vkgltfscene/scene"
)

type fakeAddrs struct{}

func (fakeAddrs) PrimitiveAddresses(primID int) PrimitiveRecord {
	base := uint64(primID+1) * 0x1000
	return PrimitiveRecord{
		PositionAddr:  base,
		NormalAddr:    base + 0x100,
		TexCoord0Addr: base + 0x200,
		IndexAddr:     base + 0x300,
	}
}

func TestNewPrimitiveTableCountsAndAddresses(t *testing.T) {
	prims := []scene.RenderPrimitive{
		{VertexCount: 8, IndexCount: 36},
		{VertexCount: 3, IndexCount: 3},
	}
	tbl := NewPrimitiveTable(prims, fakeAddrs{})
	if len(tbl.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(tbl.Records))
	}
	if tbl.Records[0].VertexCount != 8 || tbl.Records[0].IndexCount != 36 {
		t.Fatalf("counts not carried: %+v", tbl.Records[0])
	}
	if tbl.Records[1].PositionAddr != 0x2000 {
		t.Fatalf("addresses not resolved per primitive: %+v", tbl.Records[1])
	}
}

func TestNewPrimitiveTableNilAddresses(t *testing.T) {
	prims := []scene.RenderPrimitive{{VertexCount: 4, IndexCount: 6}}
	tbl := NewPrimitiveTable(prims, nil)
	if tbl.Records[0].PositionAddr != 0 {
		t.Fatalf("nil resolver must leave addresses zero")
	}
	if tbl.Records[0].VertexCount != 4 {
		t.Fatalf("counts must still be filled")
	}
}

func TestSceneDescriptorPublish(t *testing.T) {
	var d SceneDescriptor
	d.Publish(TableAddrs{
		Materials:  1,
		TexInfos:   2,
		Primitives: 3,
		Nodes:      4,
		Lights:     5,
	}, 9)
	if d.MaterialTableAddr != 1 || d.TexInfoTableAddr != 2 || d.PrimitiveTableAddr != 3 ||
		d.NodeTableAddr != 4 || d.LightTableAddr != 5 {
		t.Fatalf("addresses not published: %+v", d)
	}
	if d.LightCount != 9 {
		t.Fatalf("light count not published: %d", d.LightCount)
	}

	// Republishing after a resize overwrites every address.
	d.Publish(TableAddrs{Materials: 10, TexInfos: 20, Primitives: 30, Nodes: 40, Lights: 50}, 0)
	if d.MaterialTableAddr != 10 || d.LightCount != 0 {
		t.Fatalf("republish did not overwrite: %+v", d)
	}
}
