package mask

import (
	"testing"
)

// TestDilateIdentity verifies that zero iterations return an unchanged copy.
func TestDilateIdentity(t *testing.T) {
	m := New(5, 5)
	m.Set(2, 2)

	out := Dilate(m, 0)
	if out == m {
		t.Fatalf("Dilate must return a new mask, got the input")
	}
	if out.Count() != 1 || !out.At(2, 2) {
		t.Errorf("identity dilation changed the mask: count=%d", out.Count())
	}

	// The input must not be touched by later operations on the output.
	out.Set(0, 0)
	if m.At(0, 0) {
		t.Errorf("mutating the output leaked into the input")
	}
}

// TestDilateSinglePixel checks the 4-connected growth of a single pixel:
// one round yields the plus shape, two rounds the diamond of radius 2.
func TestDilateSinglePixel(t *testing.T) {
	m := New(7, 7)
	m.Set(3, 3)

	one := Dilate(m, 1)
	if one.Count() != 5 {
		t.Errorf("expected 5 pixels after one round, got %d", one.Count())
	}
	for _, p := range [][2]int{{3, 3}, {2, 3}, {4, 3}, {3, 2}, {3, 4}} {
		if !one.At(p[0], p[1]) {
			t.Errorf("expected pixel (%d,%d) set after one round", p[0], p[1])
		}
	}
	if one.At(2, 2) {
		t.Errorf("diagonal neighbor must not be set by 4-connected dilation")
	}

	two := Dilate(m, 2)
	// Diamond of radius 2: 1 + 4 + 8 = 13 pixels.
	if two.Count() != 13 {
		t.Errorf("expected 13 pixels after two rounds, got %d", two.Count())
	}
}

// TestDilateMonotonic verifies dilate(m, k) ⊇ dilate(m, k-1) ⊇ m for k ≥ 1.
func TestDilateMonotonic(t *testing.T) {
	m := New(12, 12)
	m.Set(4, 4)
	m.Set(5, 4)
	m.Set(8, 9)

	prev := m
	for k := 1; k <= 4; k++ {
		cur := Dilate(m, k)
		for i, b := range prev.Bits {
			if b && !cur.Bits[i] {
				t.Fatalf("dilation with %d iterations lost pixel %d present at %d iterations", k, i, k-1)
			}
		}
		prev = cur
	}
}

// TestDilateEdgeClipping ensures dilation never writes outside the grid.
func TestDilateEdgeClipping(t *testing.T) {
	m := New(3, 3)
	m.Set(0, 0)

	out := Dilate(m, 5)
	if out.Count() != 9 {
		t.Errorf("expected the whole 3x3 grid set, got %d pixels", out.Count())
	}
}

// TestRingInvariants checks ring ⊆ dilated and ring ∩ particle = ∅.
func TestRingInvariants(t *testing.T) {
	particle := New(10, 10)
	for y := 3; y <= 6; y++ {
		for x := 3; x <= 6; x++ {
			particle.Set(x, y)
		}
	}
	dilated := Dilate(particle, 2)

	ring, err := Ring(particle, dilated)
	if err != nil {
		t.Fatalf("Ring failed: %v", err)
	}

	for i := range ring.Bits {
		if ring.Bits[i] && particle.Bits[i] {
			t.Fatalf("ring overlaps particle at index %d", i)
		}
		if ring.Bits[i] && !dilated.Bits[i] {
			t.Fatalf("ring escapes dilated mask at index %d", i)
		}
	}
	if ring.Count() != dilated.Count()-particle.Count() {
		t.Errorf("ring count %d != dilated %d - particle %d",
			ring.Count(), dilated.Count(), particle.Count())
	}
}

// TestRingEmpty verifies that an undilated mask yields an empty ring, which
// is valid output rather than an error.
func TestRingEmpty(t *testing.T) {
	particle := New(4, 4)
	particle.Set(1, 1)

	ring, err := Ring(particle, particle.Clone())
	if err != nil {
		t.Fatalf("Ring failed: %v", err)
	}
	if ring.Count() != 0 {
		t.Errorf("expected empty ring, got %d pixels", ring.Count())
	}
}

// TestRingDimensionMismatch verifies the error path for mismatched grids.
func TestRingDimensionMismatch(t *testing.T) {
	if _, err := Ring(New(4, 4), New(5, 5)); err == nil {
		t.Errorf("expected an error for mismatched mask dimensions")
	}
}

// TestValues checks intensity extraction under a mask.
func TestValues(t *testing.T) {
	pixels := make([]float64, 9)
	for i := range pixels {
		pixels[i] = float64(i)
	}
	m := New(3, 3)
	m.Set(0, 0)
	m.Set(2, 1)
	m.Set(1, 2)

	got := m.Values(pixels)
	want := []float64{0, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: expected %g, got %g", i, want[i], got[i])
		}
	}
}
