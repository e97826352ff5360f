package gpu

import (
	"vkgltfscene/math"
	"vkgltfscene/scene"
)

// RenderNodeRecord is one row of the GPU render-node table: the transform
// and indirection a shader needs to draw one instance.
type RenderNodeRecord struct {
	ObjectToWorld math.Mat4
	WorldToObject math.Mat4
	MaterialID    uint32
	RenderPrimID  uint32
}

// NodeTable mirrors scene.Scene's render-node arena into GPU rows,
// one-to-one and in the same order, so a dirty render-node index from
// scene.ApplyNodeDirty maps directly onto this table's index.
type NodeTable struct {
	Rows []RenderNodeRecord
}

func NewNodeTable(nodes []scene.RenderNode) *NodeTable {
	t := &NodeTable{Rows: make([]RenderNodeRecord, len(nodes))}
	for i, rn := range nodes {
		t.Rows[i] = recordFor(rn)
	}
	return t
}

// Update rewrites only the touched rows, resizing first if the render-node
// count changed (always via a full scene rebuild, never a partial one).
func (t *NodeTable) Update(touched []int, nodes []scene.RenderNode) {
	if len(t.Rows) != len(nodes) {
		t.Rows = make([]RenderNodeRecord, len(nodes))
		for i, rn := range nodes {
			t.Rows[i] = recordFor(rn)
		}
		return
	}
	for _, i := range touched {
		if i < 0 || i >= len(nodes) {
			continue
		}
		t.Rows[i] = recordFor(nodes[i])
	}
}

func recordFor(rn scene.RenderNode) RenderNodeRecord {
	return RenderNodeRecord{
		ObjectToWorld: rn.WorldMatrix,
		WorldToObject: rn.WorldMatrix.Inverse(),
		MaterialID:    uint32(rn.MaterialID),
		RenderPrimID:  uint32(rn.RenderPrimID),
	}
}
