package asset

import (
	"bytes"
	"testing"
)

func TestShouldCompact(t *testing.T) {
	cases := []struct {
		total, used   int
		unreferenced  bool
		want          bool
	}{
		{1000, 1000, false, false}, // fully used
		{1000, 960, false, false},  // above the 95% threshold
		{1000, 940, false, true},   // below it
		{1000, 1000, true, true},   // unreferenced data always compacts
		{0, 0, false, false},       // empty model
	}
	for i, tc := range cases {
		if got := shouldCompact(tc.total, tc.used, tc.unreferenced); got != tc.want {
			t.Fatalf("case %d: shouldCompact(%d,%d,%v) = %v, want %v",
				i, tc.total, tc.used, tc.unreferenced, got, tc.want)
		}
	}
}

func TestCompactBuffersMergesAndAligns(t *testing.T) {
	src := [][]byte{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		{20, 21, 22, 23, 24, 25},
	}
	ranges := []byteRange{
		{BufferIndex: 0, Offset: 4, Length: 6}, // 5..10
		{BufferIndex: 1, Offset: 0, Length: 3}, // 20..22
	}
	merged, offsets, size := compactBuffers(src, ranges)
	if size != len(merged) {
		t.Fatalf("size %d != merged length %d", size, len(merged))
	}
	if offsets[0] != 0 {
		t.Fatalf("first range offset = %d, want 0", offsets[0])
	}
	// 6 bytes pad to 8, so the second range starts 4-byte aligned.
	if offsets[1] != 8 {
		t.Fatalf("second range offset = %d, want 8", offsets[1])
	}
	if !bytes.Equal(merged[:6], []byte{5, 6, 7, 8, 9, 10}) {
		t.Fatalf("first range bytes wrong: %v", merged[:6])
	}
	if !bytes.Equal(merged[8:11], []byte{20, 21, 22}) {
		t.Fatalf("second range bytes wrong: %v", merged[8:11])
	}
}

// Compacting already-compacted data changes nothing: feeding the merged
// buffer back through with the remapped ranges reproduces it exactly.
func TestCompactBuffersIdempotent(t *testing.T) {
	src := [][]byte{
		{9, 9, 1, 2, 3, 4, 9, 9, 5, 6, 7, 8},
	}
	ranges := []byteRange{
		{BufferIndex: 0, Offset: 2, Length: 4},
		{BufferIndex: 0, Offset: 8, Length: 4},
	}
	first, offsets, _ := compactBuffers(src, ranges)

	again := make([]byteRange, len(ranges))
	for i, r := range ranges {
		again[i] = byteRange{BufferIndex: 0, Offset: offsets[i], Length: r.Length}
	}
	second, offsets2, _ := compactBuffers([][]byte{first}, again)

	if !bytes.Equal(first, second) {
		t.Fatalf("second compaction changed bytes: %v -> %v", first, second)
	}
	for i := range offsets {
		if offsets[i] != offsets2[i] {
			t.Fatalf("second compaction moved range %d: %d -> %d", i, offsets[i], offsets2[i])
		}
	}
}

func TestCompactBuffersClampsOutOfRange(t *testing.T) {
	src := [][]byte{{1, 2, 3, 4}}
	ranges := []byteRange{
		{BufferIndex: 0, Offset: 2, Length: 8}, // runs past the buffer
		{BufferIndex: 3, Offset: 0, Length: 4}, // no such buffer
	}
	merged, offsets, _ := compactBuffers(src, ranges)
	if !bytes.Equal(merged[:2], []byte{3, 4}) {
		t.Fatalf("clamped range bytes wrong: %v", merged)
	}
	if offsets[1] != 8 {
		t.Fatalf("missing-buffer range still reserves its slot, offset = %d", offsets[1])
	}
}

func TestAlign4(t *testing.T) {
	for in, want := range map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 8: 8} {
		if got := align4(in); got != want {
			t.Fatalf("align4(%d) = %d, want %d", in, got, want)
		}
	}
}
