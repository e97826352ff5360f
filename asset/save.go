package asset

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Save writes m back out to path as .gltf (JSON + separate buffer, via
// gltf.Save) or .glb (single binary container, via gltf.SaveBinary),
// chosen by path's extension. This is the write side of component A: the
// live, possibly animation/pointer-modified Model round-trips through the
// same qmuntal/gltf document model the loader decoded it from.
func Save(m *Model, path string) error {
	doc := &gltf.Document{Asset: gltf.Asset{Version: "2.0", Generator: "vkgltfscene"}}

	for _, mesh := range m.Meshes {
		gm := &gltf.Mesh{Name: mesh.Name}
		for _, w := range mesh.MorphWeights {
			gm.Weights = append(gm.Weights, float64(w))
		}
		for _, prim := range mesh.Primitives {
			gm.Primitives = append(gm.Primitives, buildPrimitive(doc, prim))
		}
		doc.Meshes = append(doc.Meshes, gm)
	}

	for _, mat := range m.Materials {
		doc.Materials = append(doc.Materials, buildMaterial(mat))
	}

	for _, n := range m.Nodes {
		doc.Nodes = append(doc.Nodes, buildNode(n))
	}

	for _, cam := range m.Cameras {
		doc.Cameras = append(doc.Cameras, buildCamera(cam))
	}

	for sceneIdx, roots := range m.Scenes {
		gs := &gltf.Scene{}
		if sceneIdx < len(m.SceneNames) {
			gs.Name = m.SceneNames[sceneIdx]
		}
		for _, r := range roots {
			gs.Nodes = append(gs.Nodes, uint32(r))
		}
		doc.Scenes = append(doc.Scenes, gs)
	}
	if m.DefaultScene >= 0 {
		idx := uint32(m.DefaultScene)
		doc.Scene = &idx
	}

	for _, skin := range m.Skins {
		doc.Skins = append(doc.Skins, buildSkin(doc, skin))
	}

	if len(m.Lights) > 0 {
		writeLightsExtension(doc, m.Lights)
	}

	if err := writeImages(doc, m, path); err != nil {
		return err
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".glb" {
		return gltf.SaveBinary(doc, path)
	}
	return gltf.Save(doc, path)
}

func buildNode(n Node) *gltf.Node {
	gn := &gltf.Node{
		Name:        n.Name,
		Translation: [3]float64{float64(n.Translation.X), float64(n.Translation.Y), float64(n.Translation.Z)},
		Rotation:    [4]float64{float64(n.Rotation.X), float64(n.Rotation.Y), float64(n.Rotation.Z), float64(n.Rotation.W)},
		Scale:       [3]float64{float64(n.Scale.X), float64(n.Scale.Y), float64(n.Scale.Z)},
	}
	for _, c := range n.Children {
		gn.Children = append(gn.Children, uint32(c))
	}
	if n.Mesh != nil {
		v := uint32(*n.Mesh)
		gn.Mesh = &v
	}
	if n.Skin != nil {
		v := uint32(*n.Skin)
		gn.Skin = &v
	}
	if n.Camera != nil {
		v := uint32(*n.Camera)
		gn.Camera = &v
	}
	if n.Light != nil {
		gn.Extensions = gltf.Extensions{"KHR_lights_punctual": khrNodeLightRef{Light: *n.Light}}
	}
	if !n.Visible {
		v := false
		ext := khrNodeVisibility{Visible: &v}
		if gn.Extensions == nil {
			gn.Extensions = gltf.Extensions{}
		}
		gn.Extensions["KHR_node_visibility"] = ext
	}
	return gn
}

func buildCamera(c Camera) *gltf.Camera {
	gc := &gltf.Camera{Name: c.Name}
	if c.Orthographic {
		gc.Orthographic = &gltf.Orthographic{
			Xmag: float64(c.XMag), Ymag: float64(c.YMag),
			Znear: float64(c.ZNear), Zfar: float64(c.ZFar),
		}
	} else {
		p := &gltf.Perspective{Yfov: float64(c.YFov), Znear: float64(c.ZNear)}
		if c.AspectRatio != 0 {
			ar := float64(c.AspectRatio)
			p.AspectRatio = &ar
		}
		if c.ZFar != 0 {
			zf := float64(c.ZFar)
			p.Zfar = &zf
		}
		gc.Perspective = p
	}
	return gc
}

func buildSkin(doc *gltf.Document, skin Skin) *gltf.Skin {
	gs := &gltf.Skin{}
	for _, j := range skin.Joints {
		gs.Joints = append(gs.Joints, uint32(j))
	}
	if skin.Skeleton != nil {
		v := uint32(*skin.Skeleton)
		gs.Skeleton = &v
	}
	ibm := make([][4][4]float32, len(skin.InverseBindMatrices))
	for i, mat := range skin.InverseBindMatrices {
		ibm[i] = mat
	}
	idx := modeler.WriteAccessor(doc, gltf.TargetNone, ibm)
	doc.Accessors[idx].Type = gltf.AccessorMat4
	gs.InverseBindMatrices = &idx
	return gs
}

func writeLightsExtension(doc *gltf.Document, lights []Light) {
	var doclights []khrLight
	for _, l := range lights {
		kl := khrLight{
			Name:      l.Name,
			Color:     [3]float64{float64(l.Color.R), float64(l.Color.G), float64(l.Color.B)},
			Intensity: f64ptr(float64(l.Intensity)),
		}
		switch l.Type {
		case LightPoint:
			kl.Type = "point"
		case LightSpot:
			kl.Type = "spot"
			kl.Spot = &khrSpot{
				InnerConeAngle: f64ptr(float64(l.InnerConeAngle)),
				OuterConeAngle: f64ptr(float64(l.OuterConeAngle)),
			}
		default:
			kl.Type = "directional"
		}
		if l.Range != 0 {
			kl.Range = f64ptr(float64(l.Range))
		}
		if l.Radius != 0 {
			if raw, err := json.Marshal(khrLightExtras{Radius: f64ptr(float64(l.Radius))}); err == nil {
				kl.Extras = raw
			}
		}
		doclights = append(doclights, kl)
	}
	if doc.Extensions == nil {
		doc.Extensions = gltf.Extensions{}
	}
	doc.Extensions["KHR_lights_punctual"] = khrLightsPunctualDoc{Lights: doclights}
	doc.ExtensionsUsed = appendUnique(doc.ExtensionsUsed, "KHR_lights_punctual")
}

func f64ptr(v float64) *float64 { return &v }

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
