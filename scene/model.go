// Package scene flattens a decoded asset.Model into a render graph: a flat,
// deduplicated list of render primitives and render nodes with resolved
// world matrices, materials, and instance transforms, ready for the GPU
// mirror and acceleration-structure builder to consume.
package scene

import (
	"fmt"

	"vkgltfscene/asset"
	"vkgltfscene/math"
)

// RenderPrimitive is a unique, deduplicated geometric primitive. Multiple
// Render Nodes may reference the same Render Primitive (instancing).
type RenderPrimitive struct {
	Key            string // asset.Primitive.DedupKey this was built from
	MeshIndex      int
	PrimitiveIndex int // index within asset.Mesh.Primitives
	VertexCount    int
	IndexCount     int
}

// RenderNode is a concrete draw instance: a (transform, material, geometry)
// triple derived from one (node, primitive) pair of the source model, or
// one instance row of EXT_mesh_gpu_instancing.
type RenderNode struct {
	WorldMatrix  math.Mat4
	MaterialID   int
	RenderPrimID int
	RefNodeID    int // source node index this render node was derived from
	SkinID       int // -1 if the node is not skinned
	Visible      bool
}

// RenderLight is a KHR_lights_punctual light placed in the current scene.
type RenderLight struct {
	WorldMatrix math.Mat4
	LightIndex  int // index into Model.Lights
	RefNodeID   int
}

// RenderCamera is a camera placed in the current scene, either authored in
// the glTF document or synthesized to frame the scene bounds.
type RenderCamera struct {
	RefNodeID   int
	CameraIndex int
	Synthesized bool
}

// ShadingBucket classifies a RenderNode by how it must be drawn.
type ShadingBucket int

const (
	BucketAll ShadingBucket = iota
	BucketOpaqueSingleSided
	BucketOpaqueDoubleSided
	BucketBlended
)

// Scene owns the current render graph derived from an asset.Model: the
// flattened render-node/render-primitive/render-light arenas, the node
// hierarchy used to recompute world matrices, and the bookkeeping (variant,
// camera, shading buckets) layered on top.
type Scene struct {
	model *asset.Model

	currentScene   int
	currentVariant int // index into model.Variants, or -1

	graph *graph

	primitives   []RenderPrimitive
	primKeyIndex map[string]int // DedupKey -> index into primitives

	nodes   []RenderNode
	lights  []RenderLight
	cameras []RenderCamera

	sceneCameraIdx int // index into cameras, or -1

	// nodeToRenderNodes[nodeIndex] lists the render-node indices produced
	// from that source node, in primitive (or instance) order.
	nodeToRenderNodes map[int][]int

	bounds boundsBox

	shadedCache      map[ShadingBucket][]int
	shadedCacheValid bool
}

// New builds the initial render graph for model's default scene (or scene
// 0 if the document named none).
func New(model *asset.Model) (*Scene, error) {
	assignDefaultNames(model)
	ensureDefaultMaterial(model)

	s := &Scene{model: model, currentVariant: -1, sceneCameraIdx: -1}
	sceneIdx := model.DefaultScene
	if sceneIdx < 0 {
		sceneIdx = 0
	}
	if err := s.SetCurrentScene(sceneIdx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load opens path with asset.Load and builds the initial render graph.
func Load(path string) (*Scene, error) {
	m, err := asset.Load(path)
	if err != nil {
		return nil, err
	}
	return New(m)
}

// Save writes the live model back to path as .gltf or .glb.
func (s *Scene) Save(path string) error {
	return asset.Save(s.model, path)
}

// TakeModel hands ownership of the underlying asset.Model to the caller
// and leaves the Scene unusable; used when a caller wants to mutate the
// document directly (e.g. the save-as-copy path) without racing the live
// render graph.
func (s *Scene) TakeModel() *asset.Model {
	m := s.model
	s.model = nil
	return m
}

func (s *Scene) Model() *asset.Model { return s.model }

func (s *Scene) GetRenderNodes() []RenderNode         { return s.nodes }
func (s *Scene) GetRenderPrimitives() []RenderPrimitive { return s.primitives }
func (s *Scene) GetRenderLights() []RenderLight       { return s.lights }

// GetRenderCameras returns the cameras discovered (or synthesized) in the
// current scene. Passing force=true recomputes discovery even if a camera
// list is already cached (e.g. after an edit changed which node carries a
// camera).
func (s *Scene) GetRenderCameras(force bool) []RenderCamera {
	if force || s.cameras == nil {
		s.discoverCameras()
	}
	return s.cameras
}

// SetSceneCamera selects cameras[index] (by position in GetRenderCameras)
// as the active camera driving the view matrix.
func (s *Scene) SetSceneCamera(index int) error {
	if index < 0 || index >= len(s.cameras) {
		return fmt.Errorf("scene: camera index %d out of range (have %d)", index, len(s.cameras))
	}
	s.sceneCameraIdx = index
	return nil
}

func (s *Scene) SceneCamera() (RenderCamera, bool) {
	if s.sceneCameraIdx < 0 {
		return RenderCamera{}, false
	}
	return s.cameras[s.sceneCameraIdx], true
}

func (s *Scene) Bounds() (min, max math.Vec3) { return s.bounds.min, s.bounds.max }

// NodeWorldMatrix returns the world matrix of an arbitrary source-model node
// index, recomputing it from the cached graph if stale. Unlike
// GetRenderNodes, which only carries one world matrix per render node, this
// is the entry point skinning reads joint nodes through,
// since a joint node rarely also hosts a mesh of its own.
func (s *Scene) NodeWorldMatrix(nodeIndex int) math.Mat4 {
	if s.graph == nil {
		return math.Mat4Identity()
	}
	return s.graph.worldMatrix(nodeIndex)
}

// SetCurrentScene rebuilds the entire render graph for a different scene
// index of the document. Scene switches always rebuild fully; there is
// no partial-update path for them.
func (s *Scene) SetCurrentScene(sceneIndex int) error {
	if s.model == nil {
		return fmt.Errorf("scene: model already taken")
	}
	g, err := buildGraph(s.model, sceneIndex)
	if err != nil {
		return err
	}
	s.currentScene = sceneIndex
	s.graph = g
	s.invalidateShadedCache()
	if err := s.parseScene(); err != nil {
		return err
	}
	s.discoverCameras()
	s.recomputeBounds()
	return nil
}

func (s *Scene) invalidateShadedCache() {
	s.shadedCache = nil
	s.shadedCacheValid = false
}
