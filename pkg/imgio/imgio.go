// Package imgio loads single-channel intensity images into float64 grids
// and writes diagnostic mask images. Microscopy exports arrive as 8- or
// 16-bit grayscale TIFFs; PNG is accepted as a fallback. Raw sample values
// are preserved without normalization, so a 16-bit image keeps its 0-65535
// intensity range.
package imgio

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"enrichquant/internal/models"
	"enrichquant/pkg/mask"
)

// LoadIntensity reads an intensity image from disk. TIFF and PNG are
// supported, selected by file extension.
func LoadIntensity(path string) (*models.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening intensity image %s", path)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	default:
		return nil, errors.Errorf("unsupported image format %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding intensity image %s", path)
	}

	return ToIntensity(img), nil
}

// ToIntensity converts a decoded image into a raw-intensity float grid.
func ToIntensity(img image.Image) *models.Image {
	b := img.Bounds()
	out := &models.Image{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: make([]float64, b.Dx()*b.Dy()),
	}

	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Pixels[y*out.Width+x] = float64(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Pixels[y*out.Width+x] = float64(im.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		// Single-channel data stored in a multi-channel container; the
		// first channel carries the intensity.
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out.Pixels[y*out.Width+x] = float64(r >> 8)
			}
		}
	}
	return out
}

// WriteMaskTIFF writes the union of the given masks as an 8-bit grayscale
// TIFF with set pixels at 255, the same layout the segmentation tool uses
// for its exported masks. Used to dump the derived background rings for
// visual inspection.
func WriteMaskTIFF(path string, masks []*mask.Mask, width, height int) error {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for _, m := range masks {
		if m == nil {
			continue
		}
		for y := 0; y < m.Height && y < height; y++ {
			for x := 0; x < m.Width && x < width; x++ {
				if m.At(x, y) {
					img.Pix[y*img.Stride+x] = 255
				}
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating mask image %s", path)
	}
	defer f.Close()

	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return errors.Wrapf(err, "encoding mask image %s", path)
	}
	return nil
}
