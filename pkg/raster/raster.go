// Package raster converts stored ROIs into boolean pixel masks on an image
// grid. Vertex outlines are filled with an even-odd scanline rule sampled at
// pixel centers, which reproduces the mask-generation convention of the
// upstream segmentation tool (inclusive boundary: a pixel whose center lies
// exactly on an edge counts as inside).
package raster

import (
	"fmt"
	"math"
	"sort"

	"enrichquant/pkg/mask"
	"enrichquant/pkg/roi"
)

// GeometryError reports malformed ROI geometry. It aborts only the record of
// the ROI it names; the rest of the configuration proceeds.
type GeometryError struct {
	// Index and Name identify the offending ROI within its set
	Index int
	Name  string

	// Reason is a human-readable description of the defect
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("roi %d (%s): %s", e.Index, e.Name, e.Reason)
}

// Rasterize produces a pixel mask with the given grid dimensions from a ROI.
// Polygon ROIs need at least 3 vertices; a ROI whose coordinate bounds fall
// entirely outside the target grid fails with a GeometryError, as does a
// bitmap larger than the grid.
func Rasterize(r roi.ROI, width, height int) (*mask.Mask, error) {
	switch r.Kind {
	case roi.Polygon:
		return rasterizePolygon(r, width, height)
	case roi.Rect:
		return rasterizeRect(r, width, height)
	case roi.Oval:
		return rasterizeOval(r, width, height)
	case roi.Bitmap:
		return rasterizeBitmap(r, width, height)
	default:
		return nil, &GeometryError{Index: r.Index, Name: r.Name, Reason: fmt.Sprintf("unsupported roi kind %v", r.Kind)}
	}
}

func rasterizePolygon(r roi.ROI, width, height int) (*mask.Mask, error) {
	if len(r.Vertices) < 3 {
		return nil, &GeometryError{Index: r.Index, Name: r.Name,
			Reason: fmt.Sprintf("polygon needs at least 3 vertices, has %d", len(r.Vertices))}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range r.Vertices {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
	}
	if maxX < 0 || maxY < 0 || minX > float64(width) || minY > float64(height) {
		return nil, &GeometryError{Index: r.Index, Name: r.Name,
			Reason: fmt.Sprintf("coordinate bounds [%g,%g]x[%g,%g] outside %dx%d grid",
				minX, maxX, minY, maxY, width, height)}
	}

	m := mask.New(width, height)
	verts := r.Vertices

	yStart := int(math.Max(0, math.Floor(minY)))
	yEnd := int(math.Min(float64(height-1), math.Ceil(maxY)))

	crossings := make([]float64, 0, 8)
	for y := yStart; y <= yEnd; y++ {
		cy := float64(y) + 0.5
		crossings = crossings[:0]

		// Half-open crossing rule: an edge contributes when the scanline
		// is within [min(y0,y1), max(y0,y1)), so a vertex shared by two
		// edges is counted exactly once.
		for i := range verts {
			a := verts[i]
			b := verts[(i+1)%len(verts)]
			if a.Y == b.Y {
				continue
			}
			lo, hi := a, b
			if lo.Y > hi.Y {
				lo, hi = hi, lo
			}
			if cy < lo.Y || cy >= hi.Y {
				continue
			}
			t := (cy - lo.Y) / (hi.Y - lo.Y)
			crossings = append(crossings, lo.X+t*(hi.X-lo.X))
		}
		sort.Float64s(crossings)

		for i := 0; i+1 < len(crossings); i += 2 {
			x0 := int(math.Ceil(crossings[i] - 0.5))
			x1 := int(math.Floor(crossings[i+1] - 0.5))
			for x := x0; x <= x1; x++ {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}

func rasterizeRect(r roi.ROI, width, height int) (*mask.Mask, error) {
	if err := checkBounds(r, width, height); err != nil {
		return nil, err
	}
	m := mask.New(width, height)
	for y := 0; y < height; y++ {
		cy := float64(y) + 0.5
		if cy < r.Top || cy > r.Bottom {
			continue
		}
		for x := 0; x < width; x++ {
			cx := float64(x) + 0.5
			if cx >= r.Left && cx <= r.Right {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}

func rasterizeOval(r roi.ROI, width, height int) (*mask.Mask, error) {
	if err := checkBounds(r, width, height); err != nil {
		return nil, err
	}
	rx := (r.Right - r.Left) / 2
	ry := (r.Bottom - r.Top) / 2
	if rx <= 0 || ry <= 0 {
		return nil, &GeometryError{Index: r.Index, Name: r.Name, Reason: "oval with non-positive radius"}
	}
	cx := r.Left + rx
	cy := r.Top + ry

	m := mask.New(width, height)
	for y := 0; y < height; y++ {
		dy := (float64(y) + 0.5 - cy) / ry
		for x := 0; x < width; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			if dx*dx+dy*dy <= 1 {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}

func rasterizeBitmap(r roi.ROI, width, height int) (*mask.Mask, error) {
	if r.BitmapWidth > width || r.BitmapHeight > height {
		return nil, &GeometryError{Index: r.Index, Name: r.Name,
			Reason: fmt.Sprintf("bitmap %dx%d exceeds %dx%d grid",
				r.BitmapWidth, r.BitmapHeight, width, height)}
	}
	m := mask.New(width, height)
	for y := 0; y < r.BitmapHeight; y++ {
		for x := 0; x < r.BitmapWidth; x++ {
			if r.Bitmap[y*r.BitmapWidth+x] != 0 {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}

func checkBounds(r roi.ROI, width, height int) error {
	if r.Right < 0 || r.Bottom < 0 || r.Left > float64(width) || r.Top > float64(height) {
		return &GeometryError{Index: r.Index, Name: r.Name,
			Reason: fmt.Sprintf("coordinate bounds [%g,%g]x[%g,%g] outside %dx%d grid",
				r.Left, r.Right, r.Top, r.Bottom, width, height)}
	}
	return nil
}
