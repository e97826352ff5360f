package asset

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"vkgltfscene/math"
)

// readMat4Accessor reads a MAT4-typed accessor (inverse bind matrices) into
// row-major Mat4 values.
func readMat4Accessor(doc *gltf.Document, index int) ([]math.Mat4, error) {
	if index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	mats, ok := raw.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d is not MAT4", index)
	}
	out := make([]math.Mat4, len(mats))
	for i, m := range mats {
		out[i] = math.Mat4(m)
	}
	return out, nil
}

// readScalarAccessor reads a SCALAR float accessor (animation sampler
// input / keyframe times).
func readScalarAccessor(doc *gltf.Document, index int) ([]float32, error) {
	if index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	vals, ok := raw.([]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d is not a float scalar", index)
	}
	return vals, nil
}

// readVectorAccessor reads an animation sampler output accessor, whose
// element width depends on the channel's target path: VEC3 for
// translation/scale, VEC4 for rotation, or a flat SCALAR run for
// morph-target weights. It returns one []float32 row per accessor
// element; loadAnimations then joins the rows that belong to one keyframe
// so the caller can reinterpret per target path.
func readVectorAccessor(doc *gltf.Document, index int) ([][]float32, error) {
	if index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case [][3]float32:
		out := make([][]float32, len(v))
		for i := range v {
			out[i] = v[i][:]
		}
		return out, nil
	case [][4]float32:
		out := make([][]float32, len(v))
		for i := range v {
			out[i] = v[i][:]
		}
		return out, nil
	case []float32:
		out := make([][]float32, len(v))
		for i := range v {
			out[i] = v[i : i+1]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("accessor %d: unsupported output type %T", index, raw)
	}
}

// readInstancingVec3 reads one VEC3 EXT_mesh_gpu_instancing attribute
// accessor (TRANSLATION or SCALE) by index.
func readInstancingVec3(doc *gltf.Document, index int) ([]math.Vec3, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	vals, err := modeler.ReadPosition(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	out := make([]math.Vec3, len(vals))
	for i, v := range vals {
		out[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return out, nil
}

func readInstancingQuat(doc *gltf.Document, index int) ([]math.Quaternion, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	quats, ok := raw.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d is not VEC4", index)
	}
	out := make([]math.Quaternion, len(quats))
	for i, q := range quats {
		out[i] = math.Quaternion{X: q[0], Y: q[1], Z: q[2], W: q[3]}
	}
	return out, nil
}
