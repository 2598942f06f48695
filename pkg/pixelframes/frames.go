// Package pixelframes reconstructs compressed frame byte streams from the
// encapsulated (item-framed) pixel data format used by DICOM's compressed
// transfer syntaxes.
package pixelframes

import (
	"fmt"

	"github.com/sorenlund/dicom-lossless/pkg/dicom/bytereader"
)

var itemTag = [4]byte{0xFE, 0xFF, 0x00, 0xE0}

// Kind is the flat error taxonomy for this package; it mirrors the
// dataset parser's so callers can switch on one set of kinds end to end.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidPixelData
	KindUnexpectedEndOfData
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPixelData:
		return "InvalidPixelData"
	case KindUnexpectedEndOfData:
		return "UnexpectedEndOfData"
	default:
		return "Unknown"
	}
}

// Error is raised by Extract.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Extract walks value, the raw bytes of an encapsulated PixelData
// element, and returns one borrowed byte slice per frame. value is not
// copied; the returned slices are views into it.
//
// The leading item is always the Basic Offset Table, whatever its
// length (zero means no offsets were recorded). Its body is skipped
// without being interpreted, since frame offsets are not required to
// recover frame boundaries from the stream itself. Frames are then read
// as successive items until the Sequence Delimitation Item or any other
// unrecognized tag.
func Extract(value []byte) ([][]byte, error) {
	r := bytereader.New(value, true)

	if looksLikeOffsetTable(value) {
		if _, _, length, err := readItemHeader(r); err != nil {
			return nil, err
		} else if err := r.Skip(int(length)); err != nil {
			return nil, newErr(KindUnexpectedEndOfData, "skipping basic offset table: %v", err)
		}
	}

	var frames [][]byte
	for {
		if r.Remaining() < 8 {
			break
		}
		group, element, length, err := readItemHeader(r)
		if err != nil {
			return nil, err
		}
		if group == 0xFFFE && element == 0xE0DD {
			break
		}
		if group != 0xFFFE || element != 0xE000 {
			break
		}
		if length == 0 || uint64(length) > uint64(r.Remaining()) {
			break
		}
		frame, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, newErr(KindUnexpectedEndOfData, "reading frame: %v", err)
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, newErr(KindInvalidPixelData, "encapsulated pixel data yielded zero frames")
	}
	return frames, nil
}

// looksLikeOffsetTable reports whether the first 8 bytes of value name an
// item tag (FFFE,E000). The Basic Offset Table item is always first when
// present, regardless of its length — a length of 0 just means no offsets
// were recorded, not that the item is absent.
func looksLikeOffsetTable(value []byte) bool {
	if len(value) < 8 {
		return false
	}
	return value[0] == itemTag[0] && value[1] == itemTag[1] && value[2] == itemTag[2] && value[3] == itemTag[3]
}

// readItemHeader reads a 4-byte tag and 4-byte little-endian length.
func readItemHeader(r *bytereader.Reader) (group, element uint16, length uint32, err error) {
	group, err = r.ReadU16()
	if err != nil {
		return 0, 0, 0, newErr(KindUnexpectedEndOfData, "reading item tag: %v", err)
	}
	element, err = r.ReadU16()
	if err != nil {
		return 0, 0, 0, newErr(KindUnexpectedEndOfData, "reading item tag: %v", err)
	}
	length, err = r.ReadU32()
	if err != nil {
		return 0, 0, 0, newErr(KindUnexpectedEndOfData, "reading item length: %v", err)
	}
	return group, element, length, nil
}
