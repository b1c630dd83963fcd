// Package roi decodes ImageJ/Fiji region-of-interest archives into ordered
// ROI sets. An archive is a zip of ".roi" entries in the de-facto ImageJ
// binary interchange format, optionally mixed with ".tif" entries holding
// embedded bitmap masks. Entry order (sorted by name) defines the index
// correspondence between the particle-mask set and the dilated-mask set of
// the same analysis.
package roi

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// Kind identifies the geometric form of a ROI.
type Kind int

const (
	// Polygon is a closed vertex outline (ImageJ polygon, freehand or
	// traced types)
	Polygon Kind = iota

	// Rect is an axis-aligned rectangle given by its bounds
	Rect

	// Oval is an ellipse inscribed in its bounds
	Oval

	// Bitmap is an embedded pixel mask; samples are thresholded at a
	// non-zero value by the rasterizer
	Bitmap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Polygon:
		return "polygon"
	case Rect:
		return "rect"
	case Oval:
		return "oval"
	case Bitmap:
		return "bitmap"
	default:
		return "unknown"
	}
}

// Point is a 2-D coordinate in image pixel space. ImageJ stores vertex
// coordinates either as integers relative to the ROI bounds or as absolute
// floats when the sub-pixel resolution option is set; both decode to this.
type Point struct {
	X, Y float64
}

// ROI is one named region from an archive.
type ROI struct {
	// Index is the 1-based position of the ROI within its set
	Index int

	// Name is the label from the ROI header, or the archive entry name
	// when the header carries none
	Name string

	// Kind selects which geometry fields below are meaningful
	Kind Kind

	// Vertices is the closed outline for Polygon ROIs
	Vertices []Point

	// Left, Top, Right, Bottom are the bounds for Rect and Oval ROIs
	// (right and bottom exclusive, per ImageJ convention)
	Left, Top, Right, Bottom float64

	// BitmapWidth, BitmapHeight and Bitmap hold the embedded mask samples
	// in row-major order for Bitmap ROIs
	BitmapWidth, BitmapHeight int
	Bitmap                    []float64
}

// Set is an ordered sequence of ROIs sharing one archive.
type Set []ROI

// ImageJ .roi header layout constants. All multi-byte fields are big-endian.
const (
	headerSize = 64

	offVersion     = 4
	offType        = 6
	offTop         = 8
	offLeft        = 10
	offBottom      = 12
	offRight       = 14
	offNCoords     = 16
	offOptions     = 50
	offHeader2     = 60
	offCoordData   = 64
	h2OffName      = 16
	h2OffNameLen   = 20
	optSubPixel    = 128
)

// ImageJ ROI type codes.
const (
	typePolygon  = 0
	typeRect     = 1
	typeOval     = 2
	typeFreehand = 7
	typeTraced   = 8
)

// DecodeEntry decodes one ImageJ ".roi" entry. fallbackName is used when the
// header does not carry a name (typically the zip entry name without its
// extension).
func DecodeEntry(data []byte, fallbackName string) (ROI, error) {
	if len(data) < headerSize {
		return ROI{}, errors.Errorf("roi entry %q: truncated header (%d bytes)", fallbackName, len(data))
	}
	if string(data[0:4]) != "Iout" {
		return ROI{}, errors.Errorf("roi entry %q: bad magic %q", fallbackName, data[0:4])
	}

	roiType := int(data[offType])
	top := int(int16(binary.BigEndian.Uint16(data[offTop:])))
	left := int(int16(binary.BigEndian.Uint16(data[offLeft:])))
	bottom := int(int16(binary.BigEndian.Uint16(data[offBottom:])))
	right := int(int16(binary.BigEndian.Uint16(data[offRight:])))
	nCoords := int(binary.BigEndian.Uint16(data[offNCoords:]))
	options := int(binary.BigEndian.Uint16(data[offOptions:]))

	out := ROI{Name: fallbackName}
	if name := decodeName(data); name != "" {
		out.Name = name
	}

	switch roiType {
	case typeRect:
		out.Kind = Rect
		out.Left, out.Top = float64(left), float64(top)
		out.Right, out.Bottom = float64(right), float64(bottom)

	case typeOval:
		out.Kind = Oval
		out.Left, out.Top = float64(left), float64(top)
		out.Right, out.Bottom = float64(right), float64(bottom)

	case typePolygon, typeFreehand, typeTraced:
		out.Kind = Polygon
		verts, err := decodeVertices(data, nCoords, left, top, options)
		if err != nil {
			return ROI{}, errors.Wrapf(err, "roi entry %q", fallbackName)
		}
		out.Vertices = verts

	default:
		return ROI{}, errors.Errorf("roi entry %q: unsupported roi type %d", fallbackName, roiType)
	}

	return out, nil
}

// decodeVertices reads the coordinate block that follows the fixed header.
// Integer coordinates are stored as two runs of int16 values relative to the
// ROI bounds; when the sub-pixel option is set, two runs of absolute float32
// values follow and take precedence.
func decodeVertices(data []byte, n, left, top, options int) ([]Point, error) {
	need := offCoordData + 4*n
	if len(data) < need {
		return nil, errors.Errorf("truncated coordinate block: need %d bytes, have %d", need, len(data))
	}

	verts := make([]Point, n)
	for i := 0; i < n; i++ {
		x := int(int16(binary.BigEndian.Uint16(data[offCoordData+2*i:])))
		y := int(int16(binary.BigEndian.Uint16(data[offCoordData+2*n+2*i:])))
		verts[i] = Point{X: float64(left + x), Y: float64(top + y)}
	}

	if options&optSubPixel != 0 {
		base := offCoordData + 4*n
		needF := base + 8*n
		if len(data) >= needF {
			for i := 0; i < n; i++ {
				xb := binary.BigEndian.Uint32(data[base+4*i:])
				yb := binary.BigEndian.Uint32(data[base+4*n+4*i:])
				verts[i] = Point{
					X: float64(math.Float32frombits(xb)),
					Y: float64(math.Float32frombits(yb)),
				}
			}
		}
	}

	return verts, nil
}

// decodeName extracts the UTF-16 name stored via the second header, if any.
func decodeName(data []byte) string {
	if len(data) < offHeader2+4 {
		return ""
	}
	h2 := int(int32(binary.BigEndian.Uint32(data[offHeader2:])))
	if h2 <= 0 || h2+h2OffNameLen+4 > len(data) {
		return ""
	}
	nameOff := int(int32(binary.BigEndian.Uint32(data[h2+h2OffName:])))
	nameLen := int(int32(binary.BigEndian.Uint32(data[h2+h2OffNameLen:])))
	if nameOff <= 0 || nameLen <= 0 || nameOff+2*nameLen > len(data) {
		return ""
	}
	chars := make([]uint16, nameLen)
	for i := range chars {
		chars[i] = binary.BigEndian.Uint16(data[nameOff+2*i:])
	}
	return strings.TrimSpace(string(utf16.Decode(chars)))
}
