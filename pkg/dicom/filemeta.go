package dicom

import (
	"encoding/binary"

	"github.com/sorenlund/dicom-lossless/pkg/dicom/bytereader"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/tag"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/vr"
)

// maxFileMetaElements caps the file-meta loop against a malformed stream
// that never leaves group 0002.
const maxFileMetaElements = 100

// parseFileMeta reads the 128-byte preamble, the "DICM" prefix, and the
// File Meta Information group (0002), which is always Explicit VR Little
// Endian regardless of the transfer syntax the file itself declares.
//
// It returns the parsed FileMeta and the byte reader positioned at the
// start of the main dataset, ready for parseDataset.
func parseFileMeta(buf []byte) (*FileMeta, *bytereader.Reader, error) {
	if len(buf) < 132 {
		return nil, nil, newErr(KindInvalidPreamble, "input is %d bytes, need at least 132", len(buf))
	}

	fm := &FileMeta{}
	copy(fm.Preamble[:], buf[:128])

	if string(buf[128:132]) != "DICM" {
		return nil, nil, newErr(KindInvalidPrefix, "bytes 128..132 are %q, want \"DICM\"", buf[128:132])
	}
	fm.Prefix = "DICM"

	r := bytereader.New(buf, true)
	if err := r.SetPos(132); err != nil {
		return nil, nil, wrapErr(KindInvalidFileMeta, err, "seeking past prefix")
	}

	var (
		haveGroupLength  bool
		haveTransferUID  bool
		haveSOPClass     bool
		haveSOPInstance  bool
	)

	for i := 0; ; i++ {
		if i >= maxFileMetaElements {
			return nil, nil, newErr(KindInvalidFileMeta, "exceeded %d elements without leaving group 0002", maxFileMetaElements)
		}
		if r.AtEnd() {
			// A file whose dataset is empty ends right after group 0002.
			break
		}
		if r.Remaining() < 8 {
			return nil, nil, newErr(KindInvalidFileMeta, "truncated before end of file-meta group")
		}

		tagPos := r.Pos()
		group, err := r.ReadU16()
		if err != nil {
			return nil, nil, wrapErr(KindUnexpectedEndOfData, err, "reading file-meta tag")
		}
		element, err := r.ReadU16()
		if err != nil {
			return nil, nil, wrapErr(KindUnexpectedEndOfData, err, "reading file-meta tag")
		}

		if group != 0x0002 {
			if err := r.SetPos(tagPos); err != nil {
				return nil, nil, wrapErr(KindInvalidFileMeta, err, "rolling back to dataset start")
			}
			break
		}
		t := tag.New(group, element)

		vrBytes, err := r.ReadBytes(2)
		if err != nil {
			return nil, nil, wrapErr(KindUnexpectedEndOfData, err, "reading VR for %v", t)
		}
		elemVR, err := vr.FromBytes([2]byte{vrBytes[0], vrBytes[1]})
		if err != nil {
			return nil, nil, wrapErr(KindInvalidVR, err, "element %v", t)
		}

		var length uint32
		if elemVR.Uses32BitLength() {
			if err := r.Skip(2); err != nil {
				return nil, nil, wrapErr(KindUnexpectedEndOfData, err, "reading reserved bytes for %v", t)
			}
			length, err = r.ReadU32()
		} else {
			var l16 uint16
			l16, err = r.ReadU16()
			length = uint32(l16)
		}
		if err != nil {
			return nil, nil, wrapErr(KindUnexpectedEndOfData, err, "reading length for %v", t)
		}
		if length == 0xFFFFFFFF {
			return nil, nil, newErr(KindInvalidFileMeta, "undefined length not permitted in file-meta element %v", t)
		}

		value, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, nil, wrapErr(KindUnexpectedEndOfData, err, "reading value for %v", t)
		}

		switch t {
		case tag.FileMetaInformationGroupLength:
			if len(value) >= 4 {
				fm.GroupLength = binary.LittleEndian.Uint32(value)
			}
			haveGroupLength = true
		case tag.TransferSyntaxUID:
			fm.TransferSyntaxUID = trimUIString(value)
			haveTransferUID = true
		case tag.MediaStorageSOPClassUID:
			fm.SOPClassUID = trimUIString(value)
			haveSOPClass = true
		case tag.MediaStorageSOPInstanceUID:
			fm.SOPInstanceUID = trimUIString(value)
			haveSOPInstance = true
		case tag.ImplementationClassUID:
			fm.ImplementationClassUID = trimUIString(value)
		}
	}

	if !haveGroupLength || !haveTransferUID || !haveSOPClass || !haveSOPInstance {
		return nil, nil, newErr(KindInvalidFileMeta, "missing required field (groupLength=%v transferSyntax=%v sopClass=%v sopInstance=%v)",
			haveGroupLength, haveTransferUID, haveSOPClass, haveSOPInstance)
	}

	fm.DataSetStartOffset = r.Pos()
	return fm, r, nil
}

func trimUIString(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == 0) {
		s = s[:len(s)-1]
	}
	return s
}
