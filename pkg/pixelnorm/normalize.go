// Package pixelnorm converts a parsed DICOM dataset's pixel data — raw or
// compressed, 8/16-bit, monochrome or RGB — into 8-bit grayscale or RGB
// output suitable for display.
package pixelnorm

import (
	"fmt"

	"github.com/sorenlund/dicom-lossless/pkg/baselinejpeg"
	"github.com/sorenlund/dicom-lossless/pkg/dicom"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/tag"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/transfer"
	"github.com/sorenlund/dicom-lossless/pkg/jpeglossless"
	"github.com/sorenlund/dicom-lossless/pkg/pixelframes"
)

// Kind is the flat error taxonomy for this package.
type Kind int

const (
	KindUnknown Kind = iota
	KindPixelDataNotFound
	KindInvalidPixelData
	KindUnsupportedTransferSyntax
)

func (k Kind) String() string {
	switch k {
	case KindPixelDataNotFound:
		return "PixelDataNotFound"
	case KindInvalidPixelData:
		return "InvalidPixelData"
	case KindUnsupportedTransferSyntax:
		return "UnsupportedTransferSyntax"
	default:
		return "Unknown"
	}
}

// Error is raised by Normalize.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Geometry is the subset of Image Pixel Module attributes the decoders
// need, with their documented defaults applied.
type Geometry struct {
	Rows                      int
	Columns                   int
	BitsAllocated             int
	BitsStored                int
	SamplesPerPixel           int
	PhotometricInterpretation string
}

// Image is an 8-bit raster, one or three channels, row-major.
type Image struct {
	Pixels   []byte
	Width    int
	Height   int
	Channels int
}

func readGeometry(ds *dicom.Dataset) Geometry {
	g := Geometry{
		BitsAllocated:             16,
		SamplesPerPixel:           1,
		PhotometricInterpretation: "MONOCHROME2",
	}
	if v, ok := ds.GetAsInt(tag.Rows); ok {
		g.Rows = v
	}
	if v, ok := ds.GetAsInt(tag.Columns); ok {
		g.Columns = v
	}
	if v, ok := ds.GetAsInt(tag.BitsAllocated); ok {
		g.BitsAllocated = v
	}
	g.BitsStored = g.BitsAllocated
	if v, ok := ds.GetAsInt(tag.BitsStored); ok {
		g.BitsStored = v
	}
	if v, ok := ds.GetAsInt(tag.SamplesPerPixel); ok {
		g.SamplesPerPixel = v
	}
	if v, ok := ds.GetAsString(tag.PhotometricInterpretation); ok && v != "" {
		g.PhotometricInterpretation = v
	}
	return g
}

// Normalize extracts and decodes ds's pixel data (frame 0 for
// multi-frame/encapsulated streams) and converts it to 8-bit grayscale.
func Normalize(ds *dicom.Dataset, ts transfer.Syntax) (*Image, error) {
	elem, ok := ds.FindByTag(tag.PixelData)
	if !ok {
		return nil, newErr(KindPixelDataNotFound, "(7FE0,0010) absent")
	}

	geom := readGeometry(ds)
	value := ds.Bytes()[elem.ValueOffset : elem.ValueOffset+int(elem.ValueLength)]

	if ts.Refused() {
		return nil, newErr(KindUnsupportedTransferSyntax, "%s is not decoded by this library", ts)
	}

	if ts.Encapsulated() {
		frames, err := pixelframes.Extract(value)
		if err != nil {
			return nil, wrapErr(KindInvalidPixelData, err, "extracting encapsulated frames")
		}
		frame := frames[0]

		var decoded struct {
			data               []byte
			width, height, nf int
		}
		switch ts {
		case transfer.JPEGLossless:
			img, err := jpeglossless.Decode(frame)
			if err != nil {
				return nil, wrapErr(KindInvalidPixelData, err, "decoding JPEG Lossless frame")
			}
			decoded.data, decoded.width, decoded.height, decoded.nf = img.Data, img.Width, img.Height, img.Channels
		case transfer.JPEGBaseline:
			img, err := baselinejpeg.Decode(frame)
			if err != nil {
				return nil, wrapErr(KindInvalidPixelData, err, "decoding baseline JPEG frame")
			}
			decoded.data, decoded.width, decoded.height, decoded.nf = img.Data, img.Width, img.Height, img.Channels
		default:
			return nil, newErr(KindUnsupportedTransferSyntax, "%s has no registered decoder", ts)
		}

		geom.BitsAllocated = 8
		geom.SamplesPerPixel = decoded.nf
		if geom.Rows == 0 {
			geom.Rows = decoded.height
		}
		if geom.Columns == 0 {
			geom.Columns = decoded.width
		}
		return grayscaleFrom8Bit(decoded.data, decoded.width, decoded.height, decoded.nf, geom.PhotometricInterpretation)
	}

	if geom.Rows == 0 || geom.Columns == 0 {
		return nil, newErr(KindInvalidPixelData, "missing Rows/Columns for native pixel data")
	}

	switch {
	case geom.BitsAllocated == 8:
		return grayscaleFrom8Bit(value, geom.Columns, geom.Rows, geom.SamplesPerPixel, geom.PhotometricInterpretation)
	case geom.BitsAllocated == 16:
		return grayscaleFrom16Bit(value, geom.Columns, geom.Rows, geom.SamplesPerPixel, geom.PhotometricInterpretation)
	default:
		return nil, newErr(KindInvalidPixelData, "unsupported BitsAllocated %d", geom.BitsAllocated)
	}
}

func grayscaleFrom8Bit(data []byte, width, height, channels int, photometric string) (*Image, error) {
	n := width * height
	out := make([]byte, n)
	switch channels {
	case 1:
		if len(data) < n {
			return nil, newErr(KindInvalidPixelData, "pixel data too short: have %d bytes, need %d", len(data), n)
		}
		copy(out, data[:n])
	case 3:
		if len(data) < n*3 {
			return nil, newErr(KindInvalidPixelData, "pixel data too short: have %d bytes, need %d", len(data), n*3)
		}
		for i := 0; i < n; i++ {
			r := float64(data[i*3])
			g := float64(data[i*3+1])
			b := float64(data[i*3+2])
			out[i] = clampByte(0.299*r + 0.587*g + 0.114*b + 0.5)
		}
	default:
		return nil, newErr(KindInvalidPixelData, "unsupported SamplesPerPixel %d", channels)
	}
	if photometric == "MONOCHROME1" {
		for i, v := range out {
			out[i] = 255 - v
		}
	}
	return &Image{Pixels: out, Width: width, Height: height, Channels: 1}, nil
}

func grayscaleFrom16Bit(data []byte, width, height, channels int, photometric string) (*Image, error) {
	if channels != 1 {
		return nil, newErr(KindInvalidPixelData, "16-bit multi-sample pixel data is not supported")
	}
	n := width * height
	if len(data) < n*2 {
		return nil, newErr(KindInvalidPixelData, "pixel data too short: have %d bytes, need %d", len(data), n*2)
	}

	samples := make([]int32, n)
	for i := 0; i < n; i++ {
		samples[i] = int32(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
	}

	min, max := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	out := make([]byte, n)
	if min != max {
		span := max - min
		for i, s := range samples {
			out[i] = clampByte(float64((s-min)*255) / float64(span))
		}
	}
	if photometric == "MONOCHROME1" {
		for i, v := range out {
			out[i] = 255 - v
		}
	}
	return &Image{Pixels: out, Width: width, Height: height, Channels: 1}, nil
}

// ToRGB replicates a grayscale image's single channel into three.
func ToRGB(img *Image) *Image {
	if img.Channels == 3 {
		return img
	}
	out := make([]byte, len(img.Pixels)*3)
	for i, v := range img.Pixels {
		out[i*3] = v
		out[i*3+1] = v
		out[i*3+2] = v
	}
	return &Image{Pixels: out, Width: img.Width, Height: img.Height, Channels: 3}
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
