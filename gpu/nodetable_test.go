package gpu

import (
	"testing"

	"vkgltfscene/math"
	"vkgltfscene/scene"
)

func TestNodeTableUpdateMatchesRebuild(t *testing.T) {
	nodes := []scene.RenderNode{
		{WorldMatrix: math.Mat4Identity(), MaterialID: 0, RenderPrimID: 0},
		{WorldMatrix: math.Mat4Translation(math.Vec3{X: 1}), MaterialID: 1, RenderPrimID: 1},
	}
	table := NewNodeTable(nodes)

	nodes[1].WorldMatrix = math.Mat4Translation(math.Vec3{X: 5})
	table.Update([]int{1}, nodes)

	rebuilt := NewNodeTable(nodes)
	if table.Rows[1].ObjectToWorld != rebuilt.Rows[1].ObjectToWorld {
		t.Fatalf("surgical node update diverged from rebuild")
	}
	if table.Rows[0].ObjectToWorld != rebuilt.Rows[0].ObjectToWorld {
		t.Fatalf("untouched row should be unaffected")
	}
}

func TestNodeTableResizeRebuilds(t *testing.T) {
	nodes := []scene.RenderNode{{WorldMatrix: math.Mat4Identity()}}
	table := NewNodeTable(nodes)
	nodes = append(nodes, scene.RenderNode{WorldMatrix: math.Mat4Identity()})
	table.Update(nil, nodes)
	if len(table.Rows) != 2 {
		t.Fatalf("expected table to grow to 2 rows, got %d", len(table.Rows))
	}
}
