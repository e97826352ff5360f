// Package scene flattens a decoded asset.Model into a render graph: a flat
// list of render primitives and render nodes with resolved world matrices,
// materials, and instance transforms, ready for the GPU mirror to consume.
package scene

import (
	"fmt"

	"vkgltfscene/asset"
	"vkgltfscene/math"
)

// graphNode mirrors one asset.Node inside a built scene hierarchy, caching
// its world matrix the same way the node graph this was adapted from does:
// a dirty flag set on the node and propagated to every descendant, cleared
// lazily the next time the matrix is read.
type graphNode struct {
	index       int
	parent      int // -1 for a scene root
	children    []int
	local       math.Mat4
	world       math.Mat4
	worldDirty  bool
}

type graph struct {
	model *asset.Model
	nodes map[int]*graphNode // keyed by asset.Model node index; only nodes reachable from the active scene are present
	roots []int
}

func buildGraph(model *asset.Model, sceneIndex int) (*graph, error) {
	if sceneIndex < 0 || sceneIndex >= len(model.Scenes) {
		return nil, fmt.Errorf("scene: scene index %d out of range (have %d)", sceneIndex, len(model.Scenes))
	}
	g := &graph{model: model, nodes: make(map[int]*graphNode)}

	var visit func(nodeIndex, parent int) error
	visit = func(nodeIndex, parent int) error {
		if nodeIndex < 0 || nodeIndex >= len(model.Nodes) {
			return fmt.Errorf("scene: node index %d out of range", nodeIndex)
		}
		if _, seen := g.nodes[nodeIndex]; seen {
			return fmt.Errorf("scene: node %d reached twice — cyclic or shared parentage is not supported", nodeIndex)
		}
		n := model.Nodes[nodeIndex]
		gn := &graphNode{
			index:      nodeIndex,
			parent:     parent,
			local:      localMatrix(n),
			worldDirty: true,
		}
		g.nodes[nodeIndex] = gn
		for _, c := range n.Children {
			if err := visit(c, nodeIndex); err != nil {
				return err
			}
			gn.children = append(gn.children, c)
		}
		return nil
	}

	for _, root := range model.Scenes[sceneIndex] {
		if err := visit(root, -1); err != nil {
			return nil, err
		}
		g.roots = append(g.roots, root)
	}
	return g, nil
}

func localMatrix(n asset.Node) math.Mat4 {
	return math.Mat4Translation(n.Translation).Mul(n.Rotation.ToMat4()).Mul(math.Mat4Scale(n.Scale))
}

// worldMatrix returns nodeIndex's cached world matrix, recomputing it (and
// its ancestors, if they are also dirty) on demand.
func (g *graph) worldMatrix(nodeIndex int) math.Mat4 {
	gn := g.nodes[nodeIndex]
	if gn == nil {
		return math.Mat4Identity()
	}
	if gn.worldDirty {
		if gn.parent == -1 {
			gn.world = gn.local
		} else {
			gn.world = g.worldMatrix(gn.parent).Mul(gn.local)
		}
		gn.worldDirty = false
	}
	return gn.world
}

// markDirty marks nodeIndex and every descendant's world matrix stale,
// mirroring the propagate-to-children pattern render graphs use after an
// animation or pointer write touches a node's local transform.
func (g *graph) markDirty(nodeIndex int) {
	gn := g.nodes[nodeIndex]
	if gn == nil || gn.worldDirty {
		return
	}
	gn.worldDirty = true
	for _, c := range gn.children {
		g.markDirty(c)
	}
}

// setLocal updates nodeIndex's local matrix (e.g. after an animation
// channel writes a new translation/rotation/scale) and marks it dirty.
func (g *graph) setLocal(nodeIndex int, m math.Mat4) {
	gn := g.nodes[nodeIndex]
	if gn == nil {
		return
	}
	gn.local = m
	g.markDirty(nodeIndex)
}

func (g *graph) orderedNodes() []int {
	out := make([]int, 0, len(g.nodes))
	var walk func(int)
	walk = func(idx int) {
		out = append(out, idx)
		for _, c := range g.nodes[idx].children {
			walk(c)
		}
	}
	for _, r := range g.roots {
		walk(r)
	}
	return out
}
