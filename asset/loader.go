package asset

import (
	"encoding/json"
	"fmt"
	stdmath "math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

// Load opens a .gltf or .glb file, decodes every accessor it references,
// and resolves the extensions this package understands. It does not run
// the EXT_meshopt_compression decoder or compactBuffers; it only records
// buffer byte totals in Model.CompactionStats. Per-element failures (a
// bad accessor, an undecodable image) are logged and degrade that element; only a structurally broken
// document or an unsupported required extension aborts the load.
func Load(path string) (*Model, error) {
	var doc *gltf.Document
	var err error

	doc, err = gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open %q: %w", path, err)
	}

	if err := checkExtensionSupport(doc.ExtensionsUsed, doc.ExtensionsRequired); err != nil {
		return nil, err
	}

	m := &Model{SourceDir: filepath.Dir(path)}

	if err := loadVariants(doc, m); err != nil {
		fmt.Printf("asset: %s: variants: %v\n", path, err)
	}
	loadCamerasAndLights(doc, m)
	loadImages(doc, m)
	if err := loadSkins(doc, m); err != nil {
		return nil, fmt.Errorf("asset: %s: skins: %w", path, err)
	}
	loadAnimations(doc, m)

	m.Materials = make([]Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		m.Materials[i] = convertMaterial(i, gm)
	}

	m.Meshes = make([]Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		mesh := Mesh{Name: gm.Name}
		for _, w := range gm.Weights {
			mesh.MorphWeights = append(mesh.MorphWeights, float32(w))
		}
		for pi, prim := range gm.Primitives {
			p, err := loadPrimitive(doc, *prim)
			if err != nil {
				fmt.Printf("asset: %s: mesh %d primitive %d: %v\n", path, mi, pi, err)
				continue
			}
			mesh.Primitives = append(mesh.Primitives, p)
		}
		m.Meshes[mi] = mesh
	}

	m.Nodes = make([]Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		m.Nodes[i] = convertNode(doc, i, gn)
	}

	if doc.Scene != nil {
		m.DefaultScene = int(*doc.Scene)
	} else {
		m.DefaultScene = -1
	}
	for _, gs := range doc.Scenes {
		var roots []int
		for _, idx := range gs.Nodes {
			roots = append(roots, int(idx))
		}
		m.Scenes = append(m.Scenes, roots)
		m.SceneNames = append(m.SceneNames, gs.Name)
	}

	computeCompactionStats(doc, m)

	return m, nil
}

func convertNode(doc *gltf.Document, index int, gn *gltf.Node) Node {
	n := Node{
		Name:        gn.Name,
		PointerPath: fmt.Sprintf("/nodes/%d", index),
		Visible:     true,
	}
	for _, c := range gn.Children {
		n.Children = append(n.Children, int(c))
	}
	if gn.Mesh != nil {
		v := int(*gn.Mesh)
		n.Mesh = &v
	}
	if gn.Skin != nil {
		v := int(*gn.Skin)
		n.Skin = &v
	}
	if gn.Camera != nil {
		v := int(*gn.Camera)
		n.Camera = &v
	}

	if m := gn.MatrixOrDefault(); m != gltf.DefaultMatrix {
		n.Translation, n.Rotation, n.Scale = decomposeNodeMatrix(m)
	} else {
		t := gn.TranslationOrDefault()
		n.Translation = vec3From64(t)
		s := gn.ScaleOrDefault()
		n.Scale = vec3From64(s)
		r := gn.RotationOrDefault()
		n.Rotation = math.Quaternion{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}
	}

	if gn.Camera != nil && gn.Extras != nil {
		// Extras decode through a marshal round-trip since the parser
		// hands them back as an untyped tree.
		if raw, err := json.Marshal(gn.Extras); err == nil {
			var ce cameraNodeExtras
			if json.Unmarshal(raw, &ce) == nil {
				if ce.Eye != nil {
					v := vec3From64(*ce.Eye)
					n.CameraEye = &v
				}
				if ce.Center != nil {
					v := vec3From64(*ce.Center)
					n.CameraCenter = &v
				}
				if ce.Up != nil {
					v := vec3From64(*ce.Up)
					n.CameraUp = &v
				}
			}
		}
	}

	if gn.Extensions != nil {
		if raw, ok := gn.Extensions["KHR_lights_punctual"]; ok {
			var ref khrNodeLightRef
			if err := decodeExtension(raw, &ref); err == nil {
				n.Light = &ref.Light
			}
		}
		if raw, ok := gn.Extensions["EXT_mesh_gpu_instancing"]; ok {
			var inst extMeshGPUInstancing
			if err := decodeExtension(raw, &inst); err == nil {
				loadInstancing(doc, inst, &n)
			}
		}
		if raw, ok := gn.Extensions["KHR_node_visibility"]; ok {
			var v khrNodeVisibility
			if err := decodeExtension(raw, &v); err == nil && v.Visible != nil {
				n.Visible = *v.Visible
			}
		}
	}

	return n
}

// loadInstancing resolves EXT_mesh_gpu_instancing's per-attribute accessor
// indices into per-instance TRS arrays on n. Any attribute the extension
// omits keeps its identity default (zero translation, identity rotation,
// unit scale) for every instance, sized from whichever attribute is present.
func loadInstancing(doc *gltf.Document, inst extMeshGPUInstancing, n *Node) {
	count := 0
	if idx, ok := inst.Attributes["TRANSLATION"]; ok {
		if v, err := readInstancingVec3(doc, idx); err == nil {
			n.InstancingTranslations = v
			count = len(v)
		} else {
			fmt.Printf("asset: instancing translation: %v\n", err)
		}
	}
	if idx, ok := inst.Attributes["ROTATION"]; ok {
		if v, err := readInstancingQuat(doc, idx); err == nil {
			n.InstancingRotations = v
			if len(v) > count {
				count = len(v)
			}
		} else {
			fmt.Printf("asset: instancing rotation: %v\n", err)
		}
	}
	if idx, ok := inst.Attributes["SCALE"]; ok {
		if v, err := readInstancingVec3(doc, idx); err == nil {
			n.InstancingScales = v
			if len(v) > count {
				count = len(v)
			}
		} else {
			fmt.Printf("asset: instancing scale: %v\n", err)
		}
	}
	if count == 0 {
		return
	}
	if n.InstancingTranslations == nil {
		n.InstancingTranslations = make([]math.Vec3, count)
	}
	if n.InstancingRotations == nil {
		n.InstancingRotations = make([]math.Quaternion, count)
		for i := range n.InstancingRotations {
			n.InstancingRotations[i] = math.QuaternionIdentity
		}
	}
	if n.InstancingScales == nil {
		n.InstancingScales = make([]math.Vec3, count)
		for i := range n.InstancingScales {
			n.InstancingScales[i] = math.Vec3{X: 1, Y: 1, Z: 1}
		}
	}
}

func vec3From64(a [3]float64) math.Vec3 {
	return math.Vec3{X: float32(a[0]), Y: float32(a[1]), Z: float32(a[2])}
}

// decomposeNodeMatrix splits a column-major affine matrix into the
// T/R/S triple the scene model's local-matrix recomposition expects.
// Shear is not representable in glTF's TRS form and is dropped.
func decomposeNodeMatrix(m [16]float64) (math.Vec3, math.Quaternion, math.Vec3) {
	translation := math.Vec3{X: float32(m[12]), Y: float32(m[13]), Z: float32(m[14])}

	colLen := func(x, y, z float64) float32 {
		return float32(stdmath.Sqrt(x*x + y*y + z*z))
	}
	sx := colLen(m[0], m[1], m[2])
	sy := colLen(m[4], m[5], m[6])
	sz := colLen(m[8], m[9], m[10])
	scale := math.Vec3{X: sx, Y: sy, Z: sz}

	nx, ny, nz := sx, sy, sz
	if nx < 1e-8 {
		nx = 1
	}
	if ny < 1e-8 {
		ny = 1
	}
	if nz < 1e-8 {
		nz = 1
	}
	r00, r10, r20 := float32(m[0])/nx, float32(m[1])/nx, float32(m[2])/nx
	r01, r11, r21 := float32(m[4])/ny, float32(m[5])/ny, float32(m[6])/ny
	r02, r12, r22 := float32(m[8])/nz, float32(m[9])/nz, float32(m[10])/nz

	var x, y, z, w float32
	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		s := float32(stdmath.Sqrt(float64(trace+1.0))) * 2
		w = 0.25 * s
		x = (r21 - r12) / s
		y = (r02 - r20) / s
		z = (r10 - r01) / s
	case r00 > r11 && r00 > r22:
		s := float32(stdmath.Sqrt(float64(1.0+r00-r11-r22))) * 2
		w = (r21 - r12) / s
		x = 0.25 * s
		y = (r01 + r10) / s
		z = (r02 + r20) / s
	case r11 > r22:
		s := float32(stdmath.Sqrt(float64(1.0+r11-r00-r22))) * 2
		w = (r02 - r20) / s
		x = (r01 + r10) / s
		y = 0.25 * s
		z = (r12 + r21) / s
	default:
		s := float32(stdmath.Sqrt(float64(1.0+r22-r00-r11))) * 2
		w = (r10 - r01) / s
		x = (r02 + r20) / s
		y = (r12 + r21) / s
		z = 0.25 * s
	}
	return translation, math.Quaternion{X: x, Y: y, Z: z, W: w}.Normalize(), scale
}

func loadPrimitive(doc *gltf.Document, prim gltf.Primitive) (Primitive, error) {
	p := Primitive{Mode: ModeTriangles, MaterialVariants: map[int]int{}, DedupKey: primitiveDedupKey(prim)}

	if _, ok := prim.Extensions["KHR_draco_mesh_compression"]; ok {
		p.DracoPlaceholder = true
		return p, nil
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return p, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return p, fmt.Errorf("positions: %w", err)
	}
	for _, pos := range positions {
		p.Positions = append(p.Positions, math.Vec3{X: pos[0], Y: pos[1], Z: pos[2]})
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil); err == nil {
			for _, n := range normals {
				p.Normals = append(p.Normals, math.Vec3{X: n[0], Y: n[1], Z: n[2]})
			}
		}
	}
	if idx, ok := prim.Attributes["TANGENT"]; ok {
		if tangents, err := modeler.ReadTangent(doc, doc.Accessors[idx], nil); err == nil {
			for _, t := range tangents {
				p.Tangents = append(p.Tangents, math.Vec4{X: t[0], Y: t[1], Z: t[2], W: t[3]})
			}
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err == nil {
			for _, uv := range uvs {
				p.UV0 = append(p.UV0, math.Vec2{X: uv[0], Y: uv[1]})
			}
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_1"]; ok {
		if uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err == nil {
			for _, uv := range uvs {
				p.UV1 = append(p.UV1, math.Vec2{X: uv[0], Y: uv[1]})
			}
		}
	}
	if idx, ok := prim.Attributes["JOINTS_0"]; ok {
		if joints, err := modeler.ReadJoints(doc, doc.Accessors[idx], nil); err == nil {
			for _, j := range joints {
				var jn [core.MaxJointInfluences]uint16
				for k := 0; k < core.MaxJointInfluences && k < len(j); k++ {
					jn[k] = j[k]
				}
				p.Joints = append(p.Joints, jn)
			}
		}
	}
	if idx, ok := prim.Attributes["WEIGHTS_0"]; ok {
		if weights, err := modeler.ReadWeights(doc, doc.Accessors[idx], nil); err == nil {
			for _, w := range weights {
				var wn [core.MaxJointInfluences]float32
				for k := 0; k < core.MaxJointInfluences && k < len(w); k++ {
					wn[k] = w[k]
				}
				p.Weights = append(p.Weights, wn)
			}
		}
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return p, fmt.Errorf("indices: %w", err)
		}
		p.Indices = indices
	}

	if prim.Material != nil {
		v := int(*prim.Material)
		p.Material = &v
	}

	if raw, ok := prim.Extensions["KHR_materials_variants"]; ok {
		var mapping khrPrimitiveVariantsMapping
		if err := decodeExtension(raw, &mapping); err == nil {
			for _, mm := range mapping.Mappings {
				for _, variantIdx := range mm.Variants {
					p.MaterialVariants[variantIdx] = mm.Material
				}
			}
		}
	}

	for _, target := range prim.Targets {
		mt := MorphTarget{}
		if idx, ok := target["POSITION"]; ok {
			if deltas, err := modeler.ReadPosition(doc, doc.Accessors[idx], nil); err == nil {
				for _, d := range deltas {
					mt.DPositions = append(mt.DPositions, math.Vec3{X: d[0], Y: d[1], Z: d[2]})
				}
			}
		}
		if idx, ok := target["NORMAL"]; ok {
			if deltas, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil); err == nil {
				for _, d := range deltas {
					mt.DNormals = append(mt.DNormals, math.Vec3{X: d[0], Y: d[1], Z: d[2]})
				}
			}
		}
		p.MorphTargets = append(p.MorphTargets, mt)
	}

	return p, nil
}

func computeCompactionStats(doc *gltf.Document, m *Model) {
	total := 0
	for _, b := range doc.Buffers {
		total += int(b.ByteLength)
	}
	used := 0
	for _, bv := range doc.BufferViews {
		used += int(bv.ByteLength)
	}
	m.CompactionStats = CompactionStats{
		TotalBytes: total,
		KeptBytes:  used,
		Skipped:    !shouldCompact(total, used, false),
	}
}

// primitiveDedupKey builds the render-primitive dedup identity:
// attribute accessor indices, indices accessor, and material, all taken
// before decode so it is unaffected by anything compaction later does to
// the underlying buffers.
func primitiveDedupKey(prim gltf.Primitive) string {
	names := make([]string, 0, len(prim.Attributes))
	for name := range prim.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%d;", name, prim.Attributes[name])
	}
	if prim.Indices != nil {
		fmt.Fprintf(&b, "indices=%d;", *prim.Indices)
	}
	if prim.Material != nil {
		fmt.Fprintf(&b, "material=%d;", *prim.Material)
	}
	return b.String()
}
