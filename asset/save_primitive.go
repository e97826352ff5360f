package asset

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

// buildPrimitive writes prim's attribute/index data into doc's
// accessor/bufferView/buffer tables and returns the resulting
// gltf.Primitive, mirroring the Read* calls loadPrimitive used to decode
// it in the first place.
func buildPrimitive(doc *gltf.Document, prim Primitive) *gltf.Primitive {
	gp := &gltf.Primitive{
		Attributes: map[string]uint32{},
		Mode:       primitiveGLTFMode(prim.Mode),
	}

	if len(prim.Positions) > 0 {
		gp.Attributes[gltf.POSITION] = modeler.WritePosition(doc, toArr3(prim.Positions))
	}
	if len(prim.Normals) > 0 {
		gp.Attributes[gltf.NORMAL] = modeler.WriteNormal(doc, toArr3(prim.Normals))
	}
	if len(prim.Tangents) > 0 {
		gp.Attributes[gltf.TANGENT] = modeler.WriteTangent(doc, toArr4(prim.Tangents))
	}
	if len(prim.UV0) > 0 {
		gp.Attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, toArr2(prim.UV0))
	}
	if len(prim.UV1) > 0 {
		gp.Attributes[gltf.TEXCOORD_1] = modeler.WriteTextureCoord(doc, toArr2(prim.UV1))
	}
	if len(prim.Colors) > 0 {
		gp.Attributes[gltf.COLOR_0] = modeler.WriteColor(doc, toArrColor(prim.Colors))
	}
	if len(prim.Joints) > 0 {
		gp.Attributes[gltf.JOINTS_0] = modeler.WriteJoints(doc, prim.Joints)
	}
	if len(prim.Weights) > 0 {
		gp.Attributes[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, prim.Weights)
	}
	if len(prim.Indices) > 0 {
		idx := modeler.WriteIndices(doc, prim.Indices)
		gp.Indices = gltf.Index(idx)
	}
	if prim.Material != nil {
		gp.Material = gltf.Index(uint32(*prim.Material))
	}
	for _, mt := range prim.MorphTargets {
		target := map[string]uint32{}
		if len(mt.DPositions) > 0 {
			target[gltf.POSITION] = modeler.WritePosition(doc, toArr3(mt.DPositions))
		}
		if len(mt.DNormals) > 0 {
			target[gltf.NORMAL] = modeler.WriteNormal(doc, toArr3(mt.DNormals))
		}
		if len(mt.DTangents) > 0 {
			target[gltf.TANGENT] = modeler.WriteNormal(doc, toArr3(mt.DTangents))
		}
		gp.Targets = append(gp.Targets, target)
	}
	return gp
}

func primitiveGLTFMode(m PrimitiveMode) gltf.PrimitiveMode {
	switch m {
	case ModeTriangleStrip:
		return gltf.PrimitiveTriangleStrip
	case ModeTriangleFan:
		return gltf.PrimitiveTriangleFan
	case ModeLines:
		return gltf.PrimitiveLines
	case ModePoints:
		return gltf.PrimitivePoints
	default:
		return gltf.PrimitiveTriangles
	}
}

func toArr3(v []math.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i, p := range v {
		out[i] = [3]float32{p.X, p.Y, p.Z}
	}
	return out
}

func toArr4(v []math.Vec4) [][4]float32 {
	out := make([][4]float32, len(v))
	for i, p := range v {
		out[i] = [4]float32{p.X, p.Y, p.Z, p.W}
	}
	return out
}

func toArr2(v []math.Vec2) [][2]float32 {
	out := make([][2]float32, len(v))
	for i, p := range v {
		out[i] = [2]float32{p.X, p.Y}
	}
	return out
}

func toArrColor(v []core.Color) [][4]float32 {
	out := make([][4]float32, len(v))
	for i, c := range v {
		out[i] = [4]float32{c.R, c.G, c.B, c.A}
	}
	return out
}
