// Package vr defines the DICOM Value Representation enumeration and the
// coarse, parsing-relevant properties derived from it.
package vr

import "fmt"

// VR is one of the 34 standard two-letter DICOM Value Representation codes.
type VR string

// The complete closed set of standard Value Representations.
const (
	AE VR = "AE" // Application Entity
	AS VR = "AS" // Age String
	AT VR = "AT" // Attribute Tag
	CS VR = "CS" // Code String
	DA VR = "DA" // Date
	DS VR = "DS" // Decimal String
	DT VR = "DT" // Date Time
	FL VR = "FL" // Floating Point Single
	FD VR = "FD" // Floating Point Double
	IS VR = "IS" // Integer String
	LO VR = "LO" // Long String
	LT VR = "LT" // Long Text
	OB VR = "OB" // Other Byte
	OD VR = "OD" // Other Double
	OF VR = "OF" // Other Float
	OL VR = "OL" // Other Long
	OV VR = "OV" // Other Very Long
	OW VR = "OW" // Other Word
	PN VR = "PN" // Person Name
	SH VR = "SH" // Short String
	SL VR = "SL" // Signed Long
	SQ VR = "SQ" // Sequence of Items
	SS VR = "SS" // Signed Short
	ST VR = "ST" // Short Text
	SV VR = "SV" // Signed Very Long
	TM VR = "TM" // Time
	UC VR = "UC" // Unlimited Characters
	UI VR = "UI" // Unique Identifier
	UL VR = "UL" // Unsigned Long
	UN VR = "UN" // Unknown
	UR VR = "UR" // Universal Resource Identifier
	US VR = "US" // Unsigned Short
	UT VR = "UT" // Unlimited Text
	UV VR = "UV" // Unsigned Very Long
)

// all enumerates every valid VR, used for validation and round-trip tests.
var all = map[VR]struct{}{
	AE: {}, AS: {}, AT: {}, CS: {}, DA: {}, DS: {}, DT: {}, FL: {}, FD: {}, IS: {},
	LO: {}, LT: {}, OB: {}, OD: {}, OF: {}, OL: {}, OV: {}, OW: {}, PN: {}, SH: {},
	SL: {}, SQ: {}, SS: {}, ST: {}, SV: {}, TM: {}, UC: {}, UI: {}, UL: {}, UN: {},
	UR: {}, US: {}, UT: {}, UV: {},
}

// longLength is the set of VRs that use a 4-byte value-length field
// preceded by 2 reserved bytes, rather than a plain 2-byte length. This
// doesn't line up with the semantic Kind boundaries below (a handful of
// textual and numeric-binary VRs also take the long form), so it stays
// its own per-VR table rather than being derived from Kind.
var longLength = map[VR]bool{
	OB: true, OD: true, OF: true, OL: true, OV: true, OW: true,
	SQ: true, UC: true, UN: true, UR: true, UT: true, SV: true, UV: true,
}

// Kind is the coarse category a VR belongs to, used to classify value
// interpretation the way go-dicom-parser's read.go does: text, fixed-size
// binary numbers, opaque bulk data, unique identifiers, sequences, and
// attribute tags.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindNumberBinary
	KindBulkData
	KindUniqueIdentifier
	KindSequence
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindNumberBinary:
		return "NumberBinary"
	case KindBulkData:
		return "BulkData"
	case KindUniqueIdentifier:
		return "UniqueIdentifier"
	case KindSequence:
		return "Sequence"
	case KindTag:
		return "Tag"
	default:
		return "Unknown"
	}
}

// kinds classifies every standard VR into one of the six coarse
// categories above.
var kinds = map[VR]Kind{
	AE: KindText, AS: KindText, CS: KindText, DA: KindText, DS: KindText,
	DT: KindText, IS: KindText, LO: KindText, LT: KindText, PN: KindText,
	SH: KindText, ST: KindText, TM: KindText, UC: KindText, UR: KindText,
	UT: KindText,

	FL: KindNumberBinary, FD: KindNumberBinary, SL: KindNumberBinary,
	SS: KindNumberBinary, UL: KindNumberBinary, US: KindNumberBinary,
	SV: KindNumberBinary, UV: KindNumberBinary,

	OB: KindBulkData, OD: KindBulkData, OF: KindBulkData, OL: KindBulkData,
	OV: KindBulkData, OW: KindBulkData, UN: KindBulkData,

	UI: KindUniqueIdentifier,
	SQ: KindSequence,
	AT: KindTag,
}

var maxLengths = map[VR]int{
	AE: 16, AS: 4, CS: 16, DA: 8, DS: 16, DT: 26, IS: 12, LO: 64,
	LT: 10240, PN: 64, SH: 16, ST: 1024, TM: 16, UI: 64,
}

// FromBytes validates two raw VR bytes and returns the matching VR.
//
// Both bytes must be printable ASCII (0x20..0x7E) and must name one of
// the 34 standard codes; otherwise ErrInvalidVR is returned.
func FromBytes(b [2]byte) (VR, error) {
	if !isPrintableASCII(b[0]) || !isPrintableASCII(b[1]) {
		return "", ErrInvalidVR
	}
	candidate := VR([]byte{b[0], b[1]})
	if _, ok := all[candidate]; !ok {
		return "", ErrInvalidVR
	}
	return candidate, nil
}

func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// ToBytes is the inverse of FromBytes.
func (v VR) ToBytes() [2]byte {
	return [2]byte{v[0], v[1]}
}

// Valid reports whether v names one of the 34 standard codes.
func (v VR) Valid() bool {
	_, ok := all[v]
	return ok
}

// Uses32BitLength reports whether this VR's explicit encoding carries a
// 4-byte value-length field (with 2 reserved bytes before it) rather
// than a plain 2-byte length.
func (v VR) Uses32BitLength() bool {
	return longLength[v]
}

// IsString reports whether this VR's value is textual, derived from its
// Kind: both plain text VRs and the unique-identifier VR decode to a
// trimmed Go string.
func (v VR) IsString() bool {
	k := kinds[v]
	return k == KindText || k == KindUniqueIdentifier
}

// Kind returns v's coarse category.
func (v VR) Kind() Kind {
	return kinds[v]
}

// MaxLength returns the VR's maximum value length in bytes, or 0 if unbounded/fixed-binary.
func (v VR) MaxLength() int {
	return maxLengths[v]
}

// ErrInvalidVR is returned by FromBytes for non-printable or unknown codes.
var ErrInvalidVR = fmt.Errorf("vr: invalid value representation")

// InferFromTag is the coarse VR inference used under Implicit VR Little
// Endian: every element is treated as UN with a 32-bit length field. A
// full tag dictionary is out of scope; this is sufficient to parse
// through a dataset without misinterpreting lengths.
func InferFromTag() VR {
	return UN
}
