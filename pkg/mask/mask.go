// Package mask provides boolean pixel masks and the binary morphology used
// to derive background sampling rings around particles.
package mask

import (
	"fmt"
)

// Mask is a boolean pixel grid with the same dimensions as the image it was
// derived from. Masks are never mutated in place by the transforms in this
// package; every operation returns a new grid.
type Mask struct {
	// Width and Height are the pixel dimensions of the grid
	Width  int
	Height int

	// Bits holds the set/unset state in row-major order
	Bits []bool
}

// New creates an empty mask with the given dimensions.
func New(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// At reports whether the pixel at (x, y) is set. Out-of-range coordinates
// are unset, which keeps the dilation loop free of bounds checks.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set marks the pixel at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = true
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the mask.
func (m *Mask) Clone() *Mask {
	out := New(m.Width, m.Height)
	copy(out.Bits, m.Bits)
	return out
}

// Dilate returns a new mask expanded by the given number of rounds of
// 4-connected binary dilation: in each round a pixel becomes set if it or
// any of its 4 axis-neighbors was set in the previous round. Zero iterations
// return an identity copy. The operation is total on well-formed grids and
// monotonic: the result always contains the input.
func Dilate(m *Mask, iterations int) *Mask {
	cur := m.Clone()
	for i := 0; i < iterations; i++ {
		next := New(cur.Width, cur.Height)
		for y := 0; y < cur.Height; y++ {
			for x := 0; x < cur.Width; x++ {
				if cur.At(x, y) || cur.At(x-1, y) || cur.At(x+1, y) ||
					cur.At(x, y-1) || cur.At(x, y+1) {
					next.Bits[y*cur.Width+x] = true
				}
			}
		}
		cur = next
	}
	return cur
}

// Ring derives the background sampling ring for one ROI: the pixels that
// belong to the dilated mask but not to the particle mask. The result is a
// new mask satisfying ring ⊆ dilated and ring ∩ particle = ∅. An empty ring
// is valid output; the caller decides whether to skip the ROI.
func Ring(particle, dilated *Mask) (*Mask, error) {
	if particle.Width != dilated.Width || particle.Height != dilated.Height {
		return nil, fmt.Errorf("mask dimensions differ: particle %dx%d, dilated %dx%d",
			particle.Width, particle.Height, dilated.Width, dilated.Height)
	}
	out := New(particle.Width, particle.Height)
	for i := range out.Bits {
		out.Bits[i] = dilated.Bits[i] && !particle.Bits[i]
	}
	return out, nil
}

// Values extracts the intensity samples of an image under the set pixels of
// the mask, in row-major order. The image grid must match the mask
// dimensions; pixels holds the image samples in row-major order.
func (m *Mask) Values(pixels []float64) []float64 {
	out := make([]float64, 0, 64)
	for i, b := range m.Bits {
		if b {
			out = append(out, pixels[i])
		}
	}
	return out
}
