// Package dicom parses DICOM files: the File Meta Information prefix, the
// main dataset of Data Elements under whatever transfer syntax the file
// declares, and the encapsulated item framing used by compressed pixel
// data. Values are never copied into the element index; each DataElement
// records a byte range into the caller's buffer.
package dicom

import (
	"github.com/sorenlund/dicom-lossless/pkg/dicom/bytereader"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/tag"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/transfer"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/vr"
)

// Parse reads a complete DICOM file from buf: the preamble and file-meta
// group, then the main dataset under the declared transfer syntax. buf
// must outlive the returned Dataset — its elements borrow from it.
func Parse(buf []byte) (*FileMeta, *Dataset, transfer.Syntax, error) {
	fm, r, err := parseFileMeta(buf)
	if err != nil {
		return nil, nil, transfer.Unknown, err
	}

	ts, err := fm.TransferSyntax()
	if err != nil {
		return fm, nil, transfer.Unknown, wrapErr(KindUnsupportedTransferSyntax, err, "transfer syntax %q", fm.TransferSyntaxUID)
	}

	ds, err := parseDataset(buf, r, ts)
	if err != nil {
		return fm, nil, ts, err
	}
	return fm, ds, ts, nil
}

// parseDataset streams Data Elements from r (already positioned at the
// dataset start) until the buffer is exhausted, honoring ts's VR mode and
// endianness.
func parseDataset(buf []byte, r *bytereader.Reader, ts transfer.Syntax) (*Dataset, error) {
	ds := &Dataset{buf: buf, littleEndian: ts.LittleEndian()}
	explicitVR := ts.ExplicitVR()

	for {
		if r.Remaining() < 8 {
			break
		}
		posBefore := r.Pos()

		group, err := r.ReadU16()
		if err != nil {
			return nil, wrapErr(KindUnexpectedEndOfData, err, "reading tag")
		}
		element, err := r.ReadU16()
		if err != nil {
			return nil, wrapErr(KindUnexpectedEndOfData, err, "reading tag")
		}
		t := tag.New(group, element)
		if group == 0 && element == 0 {
			break
		}

		var elemVR vr.VR
		var length uint32

		if explicitVR {
			vrBytes, err := r.ReadBytes(2)
			if err != nil {
				return nil, wrapErr(KindUnexpectedEndOfData, err, "reading VR for %v", t)
			}
			elemVR, err = vr.FromBytes([2]byte{vrBytes[0], vrBytes[1]})
			if err != nil {
				return nil, wrapErr(KindInvalidVR, err, "element %v", t)
			}
			if elemVR.Uses32BitLength() {
				if err := r.Skip(2); err != nil {
					return nil, wrapErr(KindUnexpectedEndOfData, err, "reading reserved bytes for %v", t)
				}
				length, err = r.ReadU32()
			} else {
				var l16 uint16
				l16, err = r.ReadU16()
				length = uint32(l16)
			}
			if err != nil {
				return nil, wrapErr(KindUnexpectedEndOfData, err, "reading length for %v", t)
			}
		} else {
			elemVR = vr.InferFromTag()
			length, err = r.ReadU32()
			if err != nil {
				return nil, wrapErr(KindUnexpectedEndOfData, err, "reading length for %v", t)
			}
		}

		var valueOffset int
		var valueLength uint32

		if length == 0xFFFFFFFF {
			valueOffset = r.Pos()
			spanEnd, err := scanUndefinedLengthValue(r)
			if err != nil {
				return nil, err
			}
			valueLength = uint32(spanEnd - valueOffset)
		} else {
			valueOffset = r.Pos()
			if err := r.Skip(int(length)); err != nil {
				return nil, wrapErr(KindUnexpectedEndOfData, err, "skipping value for %v", t)
			}
			valueLength = length
		}

		ds.Elements = append(ds.Elements, DataElement{
			Tag:         t,
			VR:          elemVR,
			ValueLength: valueLength,
			ValueOffset: valueOffset,
		})

		if r.Pos() == posBefore {
			return nil, newErr(KindUnexpectedEndOfData, "no progress parsing element %v", t)
		}
	}

	return ds, nil
}

// scanUndefinedLengthValue walks an undefined-length element's item
// stream looking for the Sequence Delimitation Item, treating everything
// in between as a flat sequence of items (recursive sequence parsing is
// out of scope). It returns the absolute offset where the enclosed value
// span ends, i.e. the start of the delimiter tag.
func scanUndefinedLengthValue(r *bytereader.Reader) (int, error) {
	for {
		if r.Remaining() < 8 {
			return 0, newErr(KindUnexpectedEndOfData, "truncated undefined-length element")
		}
		delimPos := r.Pos()

		group, err := r.ReadU16()
		if err != nil {
			return 0, wrapErr(KindUnexpectedEndOfData, err, "reading item tag")
		}
		element, err := r.ReadU16()
		if err != nil {
			return 0, wrapErr(KindUnexpectedEndOfData, err, "reading item tag")
		}
		itemLength, err := r.ReadU32()
		if err != nil {
			return 0, wrapErr(KindUnexpectedEndOfData, err, "reading item length")
		}
		t := tag.New(group, element)

		switch {
		case t.Equals(tag.SequenceDelimitationItem):
			return delimPos, nil
		case t.Equals(tag.Item):
			if err := r.Skip(int(itemLength)); err != nil {
				return 0, wrapErr(KindUnexpectedEndOfData, err, "skipping item body")
			}
		default:
			return 0, newErr(KindInvalidLength, "unexpected tag %v inside undefined-length element", t)
		}
	}
}
