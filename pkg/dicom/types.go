package dicom

import (
	"encoding/binary"
	"strings"

	"github.com/sorenlund/dicom-lossless/pkg/dicom/tag"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/transfer"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/vr"
)

// Tag re-exports tag.Tag so callers of this package don't need a second import.
type Tag = tag.Tag

// DataElement is a single parsed Data Element. Its value is never copied:
// ValueOffset/ValueLength describe a byte range into the Dataset's source
// buffer, which the caller must keep alive for as long as any DataElement
// derived from it is in use.
type DataElement struct {
	Tag         Tag
	VR          vr.VR
	ValueLength uint32
	ValueOffset int
}

// Dataset is an ordered, non-owning index of Data Elements parsed from one
// input buffer. Elements appear in stream order.
type Dataset struct {
	Elements []DataElement

	buf          []byte
	littleEndian bool
}

// FindByTag returns the first element matching t, in stream order.
func (ds *Dataset) FindByTag(t Tag) (DataElement, bool) {
	for _, e := range ds.Elements {
		if e.Tag.Equals(t) {
			return e, true
		}
	}
	return DataElement{}, false
}

// valueBytes returns the borrowed byte range for e, or nil if out of range.
func (ds *Dataset) valueBytes(e DataElement) []byte {
	start := e.ValueOffset
	end := start + int(e.ValueLength)
	if start < 0 || end > len(ds.buf) || end < start {
		return nil
	}
	return ds.buf[start:end]
}

// GetAsString returns the element's value trimmed of trailing space/NUL padding.
func (ds *Dataset) GetAsString(t Tag) (string, bool) {
	e, ok := ds.FindByTag(t)
	if !ok {
		return "", false
	}
	raw := ds.valueBytes(e)
	if raw == nil {
		return "", false
	}
	return strings.TrimRight(string(raw), " \x00"), true
}

// GetAsU16 returns the element's value as a single little/big-endian
// uint16, per the dataset's transfer syntax.
func (ds *Dataset) GetAsU16(t Tag) (uint16, bool) {
	e, ok := ds.FindByTag(t)
	if !ok {
		return 0, false
	}
	raw := ds.valueBytes(e)
	if len(raw) < 2 {
		return 0, false
	}
	return ds.order().Uint16(raw[:2]), true
}

// GetAsU32 returns the element's value as a single little/big-endian uint32.
func (ds *Dataset) GetAsU32(t Tag) (uint32, bool) {
	e, ok := ds.FindByTag(t)
	if !ok {
		return 0, false
	}
	raw := ds.valueBytes(e)
	if len(raw) < 4 {
		return 0, false
	}
	return ds.order().Uint32(raw[:4]), true
}

// GetAsInt widens GetAsU16/GetAsU32 (or a numeric string) to int, trying
// the VR-appropriate interpretation first.
func (ds *Dataset) GetAsInt(t Tag) (int, bool) {
	e, ok := ds.FindByTag(t)
	if !ok {
		return 0, false
	}
	raw := ds.valueBytes(e)
	if raw == nil {
		return 0, false
	}
	if e.VR.IsString() {
		s := strings.TrimSpace(strings.TrimRight(string(raw), " \x00"))
		var n int
		if _, err := parseInt(s, &n); err == nil {
			return n, true
		}
		return 0, false
	}
	switch len(raw) {
	case 2:
		return int(ds.order().Uint16(raw)), true
	case 4:
		return int(ds.order().Uint32(raw)), true
	default:
		return 0, false
	}
}

func (ds *Dataset) order() binary.ByteOrder {
	if ds.littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Bytes returns the dataset's source buffer.
func (ds *Dataset) Bytes() []byte {
	return ds.buf
}

// FileMeta holds the File Meta Information group (0002), parsed once at
// the start of a file. Its string fields are owned copies: unlike
// Dataset elements they may outlive the source buffer.
type FileMeta struct {
	Preamble                [128]byte
	Prefix                  string
	GroupLength             uint32
	TransferSyntaxUID       string
	SOPClassUID             string
	SOPInstanceUID          string
	ImplementationClassUID  string
	DataSetStartOffset      int
}

// TransferSyntax resolves the declared Transfer Syntax UID to the closed enum.
func (fm *FileMeta) TransferSyntax() (transfer.Syntax, error) {
	return transfer.FromUID(fm.TransferSyntaxUID)
}

func parseInt(s string, out *int) (int, error) {
	neg := false
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if i == len(s) {
		return 0, &Error{Kind: KindInvalidLength, Msg: "empty integer string"}
	}
	n := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	*out = n
	return n, nil
}
