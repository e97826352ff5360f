package pathtrace

import "sort"

// BVH is a bounding volume hierarchy over a flat Triangle array, built
// once per primitive and traversed once per primary/shadow ray. Nodes
// live in one flat array rather than a pointer tree, sized for many
// thousands of glTF triangles per render primitive.
type BVH struct {
	nodes []bvhNode
	tris  []Triangle
}

type bvhNode struct {
	bounds       AABB
	left, right  int32 // child node indices; right==-1 marks a leaf
	start, count int32 // leaf triangle range into tris, valid when right==-1
}

const (
	maxLeafTriangles = 4
	numSAHBins       = 16
)

// BuildBVH partitions tris into a binned-SAH tree. The BVH keeps the
// caller's slice as its triangle storage (no copy) and reorders it in
// place. An empty input yields a nil
// BVH; Intersect on a nil receiver reports no hit.
func BuildBVH(tris []Triangle) *BVH {
	if len(tris) == 0 {
		return nil
	}
	b := &BVH{tris: tris}
	b.nodes = make([]bvhNode, 0, 2*len(tris))
	b.build(0, int32(len(tris)))
	return b
}

// build recursively partitions tris[start:start+count] and appends the
// resulting subtree to b.nodes, returning the new subtree root's index.
func (b *BVH) build(start, count int32) int32 {
	bounds := EmptyAABB()
	for i := start; i < start+count; i++ {
		bounds = bounds.Union(b.tris[i].Bounds())
	}

	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{bounds: bounds})

	if count <= maxLeafTriangles {
		b.nodes[idx].left = -1
		b.nodes[idx].right = -1
		b.nodes[idx].start = start
		b.nodes[idx].count = count
		return idx
	}

	split, ok := b.bestSplit(start, count, bounds)
	if !ok {
		// Degenerate distribution (all centroids coincide): fall back to
		// an even split rather than looping forever.
		split = start + count/2
		sub := b.tris[start : start+count]
		sort.Slice(sub, func(i, j int) bool {
			return sub[i].Centroid().X < sub[j].Centroid().X
		})
	}

	leftCount := split - start
	rightCount := count - leftCount
	leftIdx := b.build(start, leftCount)
	rightIdx := b.build(split, rightCount)
	b.nodes[idx].left = leftIdx
	b.nodes[idx].right = rightIdx
	return idx
}

// bestSplit is a binned-SAH partition: bin centroids along the longest
// axis, accumulate
// left/right bounding-box surface area per bin boundary, and pick the
// boundary minimizing the SAH cost. Returns ok=false when every centroid
// falls in the same bin (no boundary separates anything).
func (b *BVH) bestSplit(start, count int32, bounds AABB) (split int32, ok bool) {
	a := bounds.LongestAxis()
	lo, hi := axis(bounds.Min, a), axis(bounds.Max, a)
	if hi-lo < eps {
		return 0, false
	}

	type bin struct {
		bounds AABB
		count  int32
	}
	bins := make([]bin, numSAHBins)
	for i := range bins {
		bins[i].bounds = EmptyAABB()
	}
	binOf := func(tri Triangle) int {
		t := (axis(tri.Centroid(), a) - lo) / (hi - lo)
		idx := int(t * numSAHBins)
		if idx >= numSAHBins {
			idx = numSAHBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		return idx
	}

	sub := b.tris[start : start+count]
	sort.Slice(sub, func(i, j int) bool {
		return axis(sub[i].Centroid(), a) < axis(sub[j].Centroid(), a)
	})
	for i := start; i < start+count; i++ {
		bi := binOf(b.tris[i])
		bins[bi].count++
		bins[bi].bounds = bins[bi].bounds.Union(b.tris[i].Bounds())
	}

	leftCount := make([]int32, numSAHBins)
	leftBounds := make([]AABB, numSAHBins)
	acc, accBounds := int32(0), EmptyAABB()
	for i := 0; i < numSAHBins; i++ {
		acc += bins[i].count
		accBounds = accBounds.Union(bins[i].bounds)
		leftCount[i] = acc
		leftBounds[i] = accBounds
	}
	rightCount := make([]int32, numSAHBins)
	rightBounds := make([]AABB, numSAHBins)
	acc, accBounds = 0, EmptyAABB()
	for i := numSAHBins - 1; i >= 0; i-- {
		acc += bins[i].count
		accBounds = accBounds.Union(bins[i].bounds)
		rightCount[i] = acc
		rightBounds[i] = accBounds
	}

	totalSA := bounds.SurfaceArea()
	bestCost := float32(1e30)
	bestBin := -1
	for i := 0; i < numSAHBins-1; i++ {
		if leftCount[i] == 0 || rightCount[i+1] == 0 {
			continue
		}
		pLeft := leftBounds[i].SurfaceArea() / totalSA
		pRight := rightBounds[i+1].SurfaceArea() / totalSA
		cost := 1 + float32(leftCount[i])*pLeft + float32(rightCount[i+1])*pRight
		if cost < bestCost {
			bestCost, bestBin = cost, i
		}
	}
	if bestBin == -1 {
		return 0, false
	}

	// Stable-partition around the chosen bin boundary (tris is already
	// sorted by centroid along axis a, so the split point is just the
	// count of triangles landing in bins <= bestBin).
	splitCount := int32(0)
	for i := start; i < start+count; i++ {
		if binOf(b.tris[i]) <= bestBin {
			splitCount++
		} else {
			break
		}
	}
	if splitCount == 0 || splitCount == count {
		return 0, false
	}
	return start + splitCount, true
}

// Intersect walks the tree for the closest hit within [tmin, tmax],
// pruning subtrees whose bounds the ray misses or whose near distance
// already exceeds the best hit found so far.
func (b *BVH) Intersect(r Ray, tmin, tmax float32) (Hit, bool) {
	if b == nil || len(b.nodes) == 0 {
		return Hit{}, false
	}
	var best Hit
	found := false
	var visit func(idx int32)
	visit = func(idx int32) {
		n := &b.nodes[idx]
		if !n.bounds.Hit(r, tmin, tmax) {
			return
		}
		if n.right == -1 {
			for i := n.start; i < n.start+n.count; i++ {
				if h, ok := b.tris[i].Intersect(r, tmin, tmax); ok {
					found = true
					best = h
					tmax = h.T
				}
			}
			return
		}
		visit(n.left)
		visit(n.right)
	}
	visit(0)
	return best, found
}

// AnyHit reports whether anything occludes r within [tmin, tmax],
// without resolving the closest one: the shadow-ray fast path, and the
// one MASK/BLEND materials route through accept before blocking.
func (b *BVH) AnyHit(r Ray, tmin, tmax float32, accept func(Hit) bool) bool {
	if b == nil || len(b.nodes) == 0 {
		return false
	}
	var visit func(idx int32) bool
	visit = func(idx int32) bool {
		n := &b.nodes[idx]
		if !n.bounds.Hit(r, tmin, tmax) {
			return false
		}
		if n.right == -1 {
			for i := n.start; i < n.start+n.count; i++ {
				if h, ok := b.tris[i].Intersect(r, tmin, tmax); ok {
					if accept == nil || accept(h) {
						return true
					}
				}
			}
			return false
		}
		return visit(n.left) || visit(n.right)
	}
	return visit(0)
}

func (b *BVH) Bounds() AABB {
	if b == nil || len(b.nodes) == 0 {
		return EmptyAABB()
	}
	return b.nodes[0].bounds
}
