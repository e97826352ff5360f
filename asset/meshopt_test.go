package asset

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestParseMeshoptMode(t *testing.T) {
	for s, want := range map[string]meshoptMode{
		"ATTRIBUTES": meshoptModeAttributes,
		"TRIANGLES":  meshoptModeTriangles,
		"INDICES":    meshoptModeIndices,
	} {
		got, err := parseMeshoptMode(s)
		if err != nil || got != want {
			t.Fatalf("parseMeshoptMode(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := parseMeshoptMode("BOGUS"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestZigzagDecode8(t *testing.T) {
	if got := zigzagDecode8(5, 8); got != 5 {
		t.Fatalf("positive residual: got %d", got)
	}
	// Sign bit set: negative of the low bits.
	if got := zigzagDecode8(3, 2); got != 0xFF {
		t.Fatalf("negative residual width 2: got %#x", got)
	}
	if got := zigzagDecode8(0x81, 8); got != 0xFF {
		t.Fatalf("negative residual width 8: got %#x", got)
	}
}

func TestDecodeVertexBufferAllZeroResiduals(t *testing.T) {
	// Header byte, then one 16-vertex block: two lanes, each with a
	// 2-bit width header of 0 (no residual bits follow).
	data := []byte{0xa0, 0x00}
	out, err := decodeVertexBuffer(data, 4, 2)
	if err != nil {
		t.Fatalf("decodeVertexBuffer: %v", err)
	}
	if len(out) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(out))
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestDecodeVertexBufferDeltaAccumulates(t *testing.T) {
	// One lane, two vertices, width 8: bit stream is
	// "11" (width 8) + 0x05 + 0x05 -> bytes 0xC1 0x41 0x40.
	data := []byte{0xa0, 0xC1, 0x41, 0x40}
	out, err := decodeVertexBuffer(data, 2, 1)
	if err != nil {
		t.Fatalf("decodeVertexBuffer: %v", err)
	}
	if out[0] != 5 || out[1] != 10 {
		t.Fatalf("expected deltas to accumulate to [5 10], got %v", out)
	}
}

func TestDecodeIndexSequence(t *testing.T) {
	// Zigzag-varint deltas 2, 2, 2 -> indices 2, 4, 6.
	data := []byte{4, 4, 4}
	out, err := decodeIndexSequence(data, 3, 4)
	if err != nil {
		t.Fatalf("decodeIndexSequence: %v", err)
	}
	want := []uint32{2, 4, 6}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(out[i*4:]); got != w {
			t.Fatalf("index %d = %d, want %d", i, got, w)
		}
	}
}

func TestDecodeIndexBufferTrianglesFreshVertices(t *testing.T) {
	// One triangle emitted as three fresh deltas of +1 each
	// (zigzag(0) = 0 -> next advances by 1): indices 0, 1, 2.
	data := []byte{0xf0, 0, 0, 0}
	out, err := decodeIndexBufferTriangles(data, 3)
	if err != nil {
		t.Fatalf("decodeIndexBufferTriangles: %v", err)
	}
	want := []uint32{0, 1, 2}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(out[i*4:]); got != w {
			t.Fatalf("index %d = %d, want %d", i, got, w)
		}
	}
}

func TestDecodeIndexBufferTrianglesRejectsBadCount(t *testing.T) {
	if _, err := decodeIndexBufferTriangles(nil, 4); err == nil {
		t.Fatalf("expected error for non-multiple-of-3 count")
	}
}

func TestExponentialFilter(t *testing.T) {
	// Mantissa 3, exponent 0 -> 3.0; mantissa 1, exponent 2 -> 4.0.
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], 3)
	binary.LittleEndian.PutUint32(data[4:], uint32(2)<<24|1)
	applyExponentialFilter(data, 8)
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[0:])); got != 3 {
		t.Fatalf("component 0 = %g, want 3", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4:])); got != 4 {
		t.Fatalf("component 1 = %g, want 4", got)
	}
}

func TestOctahedralFilterAxis(t *testing.T) {
	data := make([]byte, 12)
	data[0] = 127 // x = 1
	data[1] = 0   // y = 0
	applyOctahedralFilter(data, 12)
	x := math.Float32frombits(binary.LittleEndian.Uint32(data[0:]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(data[4:]))
	z := math.Float32frombits(binary.LittleEndian.Uint32(data[8:]))
	if x != 1 || y != 0 || z != 0 {
		t.Fatalf("expected +X axis, got (%g,%g,%g)", x, y, z)
	}
}

func TestQuaternionFilterIdentity(t *testing.T) {
	// Largest component index 3 (w), stored components all zero ->
	// identity quaternion (0,0,0,1).
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data, 3)
	applyQuaternionFilter(data, 16)
	var q [4]float32
	for i := range q {
		q[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	if q[0] != 0 || q[1] != 0 || q[2] != 0 || q[3] != 1 {
		t.Fatalf("expected identity quaternion, got %v", q)
	}
}
