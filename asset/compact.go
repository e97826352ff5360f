package asset

// shouldCompact reports whether merging the referenced buffer bytes pays
// off: always when some bytes are entirely unreferenced, otherwise only
// when less than 95% of the buffer bytes are in use. Load consults it
// only to fill Model.CompactionStats; it does not call compactBuffers.
func shouldCompact(totalBytes, usedBytes int, hasUnreferenced bool) bool {
	if hasUnreferenced {
		return true
	}
	if totalBytes == 0 {
		return false
	}
	return float64(usedBytes) < 0.95*float64(totalBytes)
}

// byteRange is a half-open [Offset, Offset+Length) span into a source
// buffer, used to build the transitive closure of referenced bytes before
// remapping.
type byteRange struct {
	BufferIndex int
	Offset      int
	Length      int
}

// compactBuffers merges the referenced ranges of src (one slice per
// original glTF buffer) into a single tightly packed, 4-byte-aligned
// buffer and returns the new offset for each input range in the same
// order they were supplied.
func compactBuffers(src [][]byte, ranges []byteRange) ([]byte, []int, int) {
	total := 0
	for _, r := range ranges {
		total += align4(r.Length)
	}
	out := make([]byte, 0, total)
	newOffsets := make([]int, len(ranges))

	for i, r := range ranges {
		newOffsets[i] = len(out)
		if r.BufferIndex < 0 || r.BufferIndex >= len(src) {
			continue
		}
		buf := src[r.BufferIndex]
		end := r.Offset + r.Length
		if end > len(buf) {
			end = len(buf)
		}
		if r.Offset < end {
			out = append(out, buf[r.Offset:end]...)
		}
		if pad := newOffsets[i] + align4(r.Length) - len(out); pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
	}
	return out, newOffsets, len(out)
}

func align4(n int) int {
	return (n + 3) &^ 3
}
