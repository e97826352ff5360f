package gpu

import (
	"runtime"
	"sync"

	"vkgltfscene/core"
	"vkgltfscene/math"
)

// batchSize is the vertex-count granularity the skinning and morph passes
// chunk work into before handing batches to a worker pool.
const batchSize = 2048

// JointMatrices computes the per-joint skinning matrix and normal matrix
// for one skinned render node:
// "jointMatrix = inverse(refNodeWorldMat) * jointNodeWorldMat * inverseBindMatrix"
// and "normal matrix = transpose(inverse(mat3(jointMatrix)))". jointWorlds
// and inverseBindMatrices are parallel, one entry per joint.
func JointMatrices(refNodeWorld math.Mat4, jointWorlds, inverseBindMatrices []math.Mat4) (joints []math.Mat4, normals []math.Mat3) {
	n := len(jointWorlds)
	if len(inverseBindMatrices) < n {
		n = len(inverseBindMatrices)
	}
	invRef := refNodeWorld.Inverse()
	joints = make([]math.Mat4, n)
	normals = make([]math.Mat3, n)
	for i := 0; i < n; i++ {
		m := invRef.Mul(jointWorlds[i]).Mul(inverseBindMatrices[i])
		joints[i] = m
		normals[i] = m.NormalMatrix()
	}
	return joints, normals
}

// SkinVertex blends v's joint matrices by its joint weights (glTF's linear
// blend skinning) and returns the world-space-relative-to-refNode result.
// Position uses the full joint matrix; normal/tangent use the joint's
// normal matrix so non-uniform joint scale doesn't skew shading.
func SkinVertex(v core.Vertex, jointMats []math.Mat4, normalMats []math.Mat3) core.Vertex {
	var totalWeight float32
	for _, w := range v.Weights {
		totalWeight += w
	}
	if totalWeight == 0 || len(jointMats) == 0 {
		return v
	}

	var pos, normal, tangent math.Vec3
	for k := 0; k < core.MaxJointInfluences; k++ {
		w := v.Weights[k]
		if w == 0 {
			continue
		}
		j := int(v.Joints[k])
		if j < 0 || j >= len(jointMats) {
			continue
		}
		pos = pos.Add(jointMats[j].MulVec3(v.Position).Mul(w))
		normal = normal.Add(normalMats[j].MulVec3(v.Normal).Mul(w))
		tangent = tangent.Add(normalMats[j].MulVec3(v.Tangent).Mul(w))
	}

	out := v
	out.Position = pos
	out.Normal = normal.Normalize()
	out.Tangent = tangent.Normalize()
	out.Bitangent = out.Normal.Cross(out.Tangent)
	return out
}

// SkinVertices skins every vertex in verts against the same joint/normal
// matrix set, splitting the work into batchSize-vertex chunks run across a
// worker pool sized to GOMAXPROCS. base is left untouched; a
// fresh slice is returned.
func SkinVertices(base []core.Vertex, jointMats []math.Mat4, normalMats []math.Mat3) []core.Vertex {
	out := make([]core.Vertex, len(base))
	runBatched(len(base), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = SkinVertex(base[i], jointMats, normalMats)
		}
	})
	return out
}

// runBatched splits [0,n) into batchSize-sized ranges and runs work on
// each range concurrently, capped at GOMAXPROCS workers in flight.
func runBatched(n int, work func(lo, hi int)) {
	if n == 0 {
		return
	}
	numBatches := (n + batchSize - 1) / batchSize
	if numBatches <= 1 {
		work(0, n)
		return
	}

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for b := 0; b < numBatches; b++ {
		lo := b * batchSize
		hi := lo + batchSize
		if hi > n {
			hi = n
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(lo, hi int) {
			defer wg.Done()
			defer func() { <-sem }()
			work(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
