package roi

import (
	"archive/zip"
	"image"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// ReadArchive loads an ordered ROI set from a zip archive. Entries are
// sorted by name before decoding so that two archives written by the same
// segmentation run keep their index correspondence. ".roi" entries are
// decoded as ImageJ regions; ".tif"/".tiff" entries are decoded as embedded
// bitmap masks anchored at the image origin.
func ReadArchive(archivePath string) (Set, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening roi archive %s", archivePath)
	}
	defer zr.Close()

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".roi", ".tif", ".tiff":
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	if len(files) == 0 {
		return nil, errors.Errorf("roi archive %s contains no roi entries", archivePath)
	}

	set := make(Set, 0, len(files))
	for _, f := range files {
		r, err := decodeArchiveEntry(f)
		if err != nil {
			return nil, errors.Wrapf(err, "roi archive %s", archivePath)
		}
		r.Index = len(set) + 1
		set = append(set, r)
	}
	return set, nil
}

func decodeArchiveEntry(f *zip.File) (ROI, error) {
	rc, err := f.Open()
	if err != nil {
		return ROI{}, errors.Wrapf(err, "opening entry %s", f.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ROI{}, errors.Wrapf(err, "reading entry %s", f.Name)
	}

	base := strings.TrimSuffix(path.Base(f.Name), path.Ext(f.Name))
	if strings.EqualFold(path.Ext(f.Name), ".roi") {
		return DecodeEntry(data, base)
	}
	return decodeBitmapEntry(data, base)
}

// decodeBitmapEntry turns a TIFF mask stored inside the archive into a
// Bitmap ROI. The raw sample values are kept; thresholding at non-zero
// happens in the rasterizer.
func decodeBitmapEntry(data []byte, name string) (ROI, error) {
	img, err := tiff.Decode(strings.NewReader(string(data)))
	if err != nil {
		return ROI{}, errors.Wrapf(err, "decoding bitmap entry %s", name)
	}

	b := img.Bounds()
	out := ROI{
		Name:         name,
		Kind:         Bitmap,
		BitmapWidth:  b.Dx(),
		BitmapHeight: b.Dy(),
		Bitmap:       make([]float64, b.Dx()*b.Dy()),
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Bitmap[y*b.Dx()+x] = sampleValue(img, b.Min.X+x, b.Min.Y+y)
		}
	}
	return out, nil
}

// sampleValue reads the raw first-channel sample at (x, y) without scaling.
func sampleValue(img image.Image, x, y int) float64 {
	switch im := img.(type) {
	case *image.Gray:
		return float64(im.GrayAt(x, y).Y)
	case *image.Gray16:
		return float64(im.Gray16At(x, y).Y)
	default:
		r, _, _, _ := img.At(x, y).RGBA()
		return float64(r >> 8)
	}
}
