package animation

import (
	"strconv"
	"strings"

	"vkgltfscene/asset"
)

// ResourceKind is the resource a KHR_animation_pointer path targets,
// parsed from its prefix.
type ResourceKind int

const (
	ResourceNone ResourceKind = iota
	ResourceMaterial
	ResourceLight
	ResourceCamera
	ResourceNode
)

var pointerPrefixes = []struct {
	prefix string
	kind   ResourceKind
}{
	{"/materials/", ResourceMaterial},
	{"/extensions/KHR_lights_punctual/lights/", ResourceLight},
	{"/cameras/", ResourceCamera},
	{"/nodes/", ResourceNode},
}

// cachedPath is the parsed-once result of a pointer string, mirroring
// AnimationPointerSystem::CachedPathInfo: which resource it targets, its
// index, and the token path below the resource root.
type cachedPath struct {
	kind   ResourceKind
	index  int
	tokens []string // tokens below the resource index, e.g. ["pbrMetallicRoughness","baseColorFactor"]
}

// PointerStore is the shadow JSON document KHR_animation_pointer writes
// land in: a nested map keyed by pointer token, deep-merged into the live
// Model on syncToModel rather than applied directly.
type PointerStore struct {
	model *asset.Model

	pathCache map[string]cachedPath
	shadow    map[string]interface{} // per-resource-root shadow document, keyed by "kind:index"

	dirty map[string]bool // "kind:index" keys touched since the last sync
}

func NewPointerStore(model *asset.Model) *PointerStore {
	return &PointerStore{
		model:     model,
		pathCache: map[string]cachedPath{},
		shadow:    map[string]interface{}{},
		dirty:     map[string]bool{},
	}
}

func (ps *PointerStore) getOrCreateCachedPath(pointer string) cachedPath {
	if cp, ok := ps.pathCache[pointer]; ok {
		return cp
	}
	cp := parsePointer(pointer)
	ps.pathCache[pointer] = cp
	return cp
}

func parsePointer(pointer string) cachedPath {
	for _, m := range pointerPrefixes {
		if !strings.HasPrefix(pointer, m.prefix) {
			continue
		}
		rest := pointer[len(m.prefix):]
		end := strings.IndexByte(rest, '/')
		idxStr := rest
		var tokens []string
		if end >= 0 {
			idxStr = rest[:end]
			tokens = strings.Split(strings.Trim(rest[end+1:], "/"), "/")
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			idx = -1
		}
		return cachedPath{kind: m.kind, index: idx, tokens: tokens}
	}
	return cachedPath{kind: ResourceNone, index: -1}
}

func resourceKey(kind ResourceKind, index int) string {
	return strconv.Itoa(int(kind)) + ":" + strconv.Itoa(index)
}

// Apply writes value into the shadow document at pointer and marks its
// resource dirty.
func (ps *PointerStore) Apply(pointer string, value interface{}) {
	cp := ps.getOrCreateCachedPath(pointer)
	if cp.kind == ResourceNone || cp.index < 0 {
		return
	}
	key := resourceKey(cp.kind, cp.index)
	root, _ := ps.shadow[key].(map[string]interface{})
	if root == nil {
		root = map[string]interface{}{}
	}
	setNested(root, cp.tokens, value)
	ps.shadow[key] = root
	ps.dirty[key] = true
}

func setNested(root map[string]interface{}, tokens []string, value interface{}) {
	if len(tokens) == 0 {
		return
	}
	cur := root
	for i, tok := range tokens {
		if i == len(tokens)-1 {
			cur[tok] = value
			return
		}
		next, ok := cur[tok].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[tok] = next
		}
		cur = next
	}
}

// DirtyResources reports which resources syncToModel wrote into, grouped by
// kind, so each collaborator (GPU mirror, scene world-matrix update) can
// pull the slice it cares about.
type DirtyResources struct {
	Materials []int
	Lights    []int
	Cameras   []int
	Nodes     []int
}

// SyncToModel walks every dirty resource, deep-merges its shadow document
// into the live Model, and returns the set of node indices that should be
// treated as transform/visibility-dirty as a result.
func (ps *PointerStore) SyncToModel() map[int]bool {
	dr := ps.SyncToModelDetailed()
	out := make(map[int]bool, len(dr.Nodes))
	for _, idx := range dr.Nodes {
		out[idx] = true
	}
	return out
}

// SyncToModelDetailed is SyncToModel but reports every dirtied resource
// kind, not just nodes — the GPU mirror's material/light table updates
// need the dirty material and light indices from this same pass
//.
func (ps *PointerStore) SyncToModelDetailed() DirtyResources {
	var dr DirtyResources
	for key := range ps.dirty {
		kind, index := splitResourceKey(key)
		shadow, _ := ps.shadow[key].(map[string]interface{})
		switch kind {
		case ResourceMaterial:
			if index >= 0 && index < len(ps.model.Materials) {
				applyMaterialShadow(&ps.model.Materials[index], shadow)
				dr.Materials = append(dr.Materials, index)
			}
		case ResourceLight:
			if index >= 0 && index < len(ps.model.Lights) {
				applyLightShadow(&ps.model.Lights[index], shadow)
				dr.Lights = append(dr.Lights, index)
			}
		case ResourceCamera:
			if index >= 0 && index < len(ps.model.Cameras) {
				applyCameraShadow(&ps.model.Cameras[index], shadow)
				dr.Cameras = append(dr.Cameras, index)
			}
		case ResourceNode:
			if index >= 0 && index < len(ps.model.Nodes) {
				applyNodeShadow(&ps.model.Nodes[index], shadow)
				dr.Nodes = append(dr.Nodes, index)
			}
		}
	}
	ps.dirty = map[string]bool{}
	return dr
}

func splitResourceKey(key string) (ResourceKind, int) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return ResourceNone, -1
	}
	k, _ := strconv.Atoi(parts[0])
	idx, _ := strconv.Atoi(parts[1])
	return ResourceKind(k), idx
}

func boolFrom(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case float32:
		return t != 0, true
	}
	return false, false
}

func floatFromAny(v interface{}) (float32, bool) {
	switch t := v.(type) {
	case float64:
		return float32(t), true
	case float32:
		return t, true
	}
	return 0, false
}

func applyNodeShadow(n *asset.Node, shadow map[string]interface{}) {
	if shadow == nil {
		return
	}
	if v, ok := shadow["visible"]; ok {
		if b, ok := boolFrom(v); ok {
			n.Visible = b
		}
	}
	if v, ok := shadow["translation"].([]interface{}); ok && len(v) == 3 {
		n.Translation.X, _ = floatFromAny(v[0])
		n.Translation.Y, _ = floatFromAny(v[1])
		n.Translation.Z, _ = floatFromAny(v[2])
	}
	if v, ok := shadow["rotation"].([]interface{}); ok && len(v) == 4 {
		n.Rotation.X, _ = floatFromAny(v[0])
		n.Rotation.Y, _ = floatFromAny(v[1])
		n.Rotation.Z, _ = floatFromAny(v[2])
		n.Rotation.W, _ = floatFromAny(v[3])
	}
	if v, ok := shadow["scale"].([]interface{}); ok && len(v) == 3 {
		n.Scale.X, _ = floatFromAny(v[0])
		n.Scale.Y, _ = floatFromAny(v[1])
		n.Scale.Z, _ = floatFromAny(v[2])
	}
}

func applyCameraShadow(c *asset.Camera, shadow map[string]interface{}) {
	walkFloat(shadow, "orthographic", "xmag", &c.XMag)
	walkFloat(shadow, "orthographic", "ymag", &c.YMag)
	walkFloat(shadow, "perspective", "yfov", &c.YFov)
}

func applyLightShadow(l *asset.Light, shadow map[string]interface{}) {
	if v, ok := shadow["intensity"]; ok {
		if f, ok := floatFromAny(v); ok {
			l.Intensity = f
		}
	}
	if v, ok := shadow["range"]; ok {
		if f, ok := floatFromAny(v); ok {
			l.Range = f
		}
	}
	if v, ok := shadow["color"].([]interface{}); ok && len(v) == 3 {
		l.Color.R, _ = floatFromAny(v[0])
		l.Color.G, _ = floatFromAny(v[1])
		l.Color.B, _ = floatFromAny(v[2])
	}
}

func applyMaterialShadow(mat *asset.Material, shadow map[string]interface{}) {
	if shadow == nil {
		return
	}
	if v, ok := shadow["emissiveFactor"].([]interface{}); ok && len(v) == 3 {
		mat.EmissiveFactor.X, _ = floatFromAny(v[0])
		mat.EmissiveFactor.Y, _ = floatFromAny(v[1])
		mat.EmissiveFactor.Z, _ = floatFromAny(v[2])
	}
	if pbr, ok := shadow["pbrMetallicRoughness"].(map[string]interface{}); ok {
		if v, ok := pbr["baseColorFactor"].([]interface{}); ok && len(v) == 4 {
			mat.BaseColorFactor.R, _ = floatFromAny(v[0])
			mat.BaseColorFactor.G, _ = floatFromAny(v[1])
			mat.BaseColorFactor.B, _ = floatFromAny(v[2])
			mat.BaseColorFactor.A, _ = floatFromAny(v[3])
		}
		if v, ok := pbr["metallicFactor"]; ok {
			if f, ok := floatFromAny(v); ok {
				mat.MetallicFactor = f
			}
		}
		if v, ok := pbr["roughnessFactor"]; ok {
			if f, ok := floatFromAny(v); ok {
				mat.RoughnessFactor = f
			}
		}
	}
	if ext, ok := shadow["extensions"].(map[string]interface{}); ok {
		if ior, ok := ext["KHR_materials_ior"].(map[string]interface{}); ok {
			if v, ok := ior["ior"]; ok {
				if f, ok := floatFromAny(v); ok {
					mat.IOR = f
				}
			}
		}
		if es, ok := ext["KHR_materials_emissive_strength"].(map[string]interface{}); ok {
			if v, ok := es["emissiveStrength"]; ok {
				if f, ok := floatFromAny(v); ok {
					mat.EmissiveStrength = f
				}
			}
		}
	}
}

func walkFloat(shadow map[string]interface{}, section, key string, dst *float32) {
	sec, ok := shadow[section].(map[string]interface{})
	if !ok {
		return
	}
	if v, ok := sec[key]; ok {
		if f, ok := floatFromAny(v); ok {
			*dst = f
		}
	}
}
