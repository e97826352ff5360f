package rt

// ScratchRequest is one primitive's BLAS build-size query result.
type ScratchRequest struct {
	PrimitiveIndex int
	ScratchSize    uint64
}

// PlanBatches groups requests into the fewest batches such that each
// batch's total scratch size stays within budget, preserving input order
// within a batch. A single request that alone exceeds budget still gets
// its own batch; the scratch buffer is allocated to fit it, so the
// budget is a batching hint, not a hard ceiling.
func PlanBatches(requests []ScratchRequest, budget uint64) [][]int {
	if len(requests) == 0 {
		return nil
	}
	var batches [][]int
	var current []int
	var currentSize uint64

	for _, r := range requests {
		if len(current) > 0 && currentSize+r.ScratchSize > budget {
			batches = append(batches, current)
			current = nil
			currentSize = 0
		}
		current = append(current, r.PrimitiveIndex)
		currentSize += r.ScratchSize
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// TotalScratch sums a batch's requests back out of the original request
// list, the size the caller must actually allocate the shared scratch
// buffer to.
func TotalScratch(requests []ScratchRequest, batch []int) uint64 {
	sizes := make(map[int]uint64, len(requests))
	for _, r := range requests {
		sizes[r.PrimitiveIndex] = r.ScratchSize
	}
	var total uint64
	for _, idx := range batch {
		total += sizes[idx]
	}
	return total
}
