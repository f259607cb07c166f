package vector

import (
	"math"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	orig := []float32{0.0, 1.5, -2.25, 3.75}

	b, err := Encode(orig, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(b) != len(orig)*4 {
		t.Fatalf("blob length = %d, want %d", len(b), len(orig)*4)
	}

	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded) != len(orig) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(orig))
	}
	for i := range orig {
		if got, want := decoded[i], orig[i]; got != want {
			t.Fatalf("decoded[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeDecode_Empty(t *testing.T) {
	b, err := Encode(nil, false)
	if err != nil {
		t.Fatalf("Encode(nil) failed: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("expected empty blob for nil slice, got len=%d", len(b))
	}

	vec, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil) failed: %v", err)
	}
	if len(vec) != 0 {
		t.Fatalf("expected empty slice for nil blob, got len=%d", len(vec))
	}
}

func TestDecode_InvalidLength(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for blob length not a multiple of 4")
	}
}

func TestEncode_Normalized(t *testing.T) {
	b, err := Encode([]float32{3, 4}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	vec, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m := Magnitude(vec); math.Abs(m-1) > 1e-6 {
		t.Fatalf("magnitude after normalization = %v, want 1", m)
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Fatalf("normalized vector = %v, want [0.6 0.8]", vec)
	}
}

func TestEncode_NormalizeZeroVector(t *testing.T) {
	b, err := Encode([]float32{0, 0, 0}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	vec, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("zero vector changed at %d: %v", i, v)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize([]float32{1, 2, 2})
	twice := Normalize(once)
	for i := range once {
		if math.Abs(float64(once[i])-float64(twice[i])) > 1e-6 {
			t.Fatalf("normalizing twice changed component %d: %v vs %v", i, once[i], twice[i])
		}
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions([]float32{1, 2, 3}, 3); err != nil {
		t.Fatalf("unexpected error for matching dims: %v", err)
	}
	if err := CheckDimensions([]float32{1, 2, 3}, 0); err != nil {
		t.Fatalf("unexpected error for unconstrained dims: %v", err)
	}
	if err := CheckDimensions([]float32{1, 2}, 3); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
