// Package metadata projects a parsed DICOM dataset down to the small,
// fixed set of tags a display client needs, as a simple JSON record.
package metadata

import (
	"strconv"
	"strings"

	"github.com/sorenlund/dicom-lossless/pkg/dicom"
	"github.com/sorenlund/dicom-lossless/pkg/dicom/tag"
)

// Record is the projected metadata record. Keys are omitted from the
// emitted JSON when the underlying tag was absent, via `omitempty`.
type Record struct {
	PatientName               string `json:"patientName,omitempty"`
	PatientID                 string `json:"patientId,omitempty"`
	PatientBirthDate          string `json:"patientBirthDate,omitempty"`
	PatientSex                string `json:"patientSex,omitempty"`
	StudyInstanceUID          string `json:"studyInstanceUid,omitempty"`
	StudyDate                 string `json:"studyDate,omitempty"`
	StudyTime                 string `json:"studyTime,omitempty"`
	StudyDescription          string `json:"studyDescription,omitempty"`
	Rows                      *int   `json:"rows,omitempty"`
	Columns                   *int   `json:"columns,omitempty"`
	BitsAllocated             *int   `json:"bitsAllocated,omitempty"`
	BitsStored                *int   `json:"bitsStored,omitempty"`
	SamplesPerPixel           *int   `json:"samplesPerPixel,omitempty"`
	PhotometricInterpretation string `json:"photometricInterpretation,omitempty"`
	RescaleIntercept          *float64 `json:"rescaleIntercept,omitempty"`
	RescaleSlope              *float64 `json:"rescaleSlope,omitempty"`
	WindowCenter              *float64 `json:"windowCenter,omitempty"`
	WindowWidth               *float64 `json:"windowWidth,omitempty"`
}

// Project builds a Record from ds, reading only the tags named in the
// metadata projection contract.
func Project(ds *dicom.Dataset) Record {
	var rec Record
	rec.PatientName = stringOrEmpty(ds, tag.PatientName)
	rec.PatientID = stringOrEmpty(ds, tag.PatientID)
	rec.PatientBirthDate = stringOrEmpty(ds, tag.PatientBirthDate)
	rec.PatientSex = stringOrEmpty(ds, tag.PatientSex)
	rec.StudyInstanceUID = stringOrEmpty(ds, tag.StudyInstanceUID)
	rec.StudyDate = stringOrEmpty(ds, tag.StudyDate)
	rec.StudyTime = stringOrEmpty(ds, tag.StudyTime)
	rec.StudyDescription = stringOrEmpty(ds, tag.StudyDescription)
	rec.PhotometricInterpretation = stringOrEmpty(ds, tag.PhotometricInterpretation)

	rec.Rows = intPtr(ds, tag.Rows)
	rec.Columns = intPtr(ds, tag.Columns)
	rec.BitsAllocated = intPtr(ds, tag.BitsAllocated)
	rec.BitsStored = intPtr(ds, tag.BitsStored)
	rec.SamplesPerPixel = intPtr(ds, tag.SamplesPerPixel)

	rec.RescaleIntercept = floatPtr(ds, tag.RescaleIntercept)
	rec.RescaleSlope = floatPtr(ds, tag.RescaleSlope)
	rec.WindowCenter = floatPtr(ds, tag.WindowCenter)
	rec.WindowWidth = floatPtr(ds, tag.WindowWidth)

	return rec
}

func stringOrEmpty(ds *dicom.Dataset, t tag.Tag) string {
	s, _ := ds.GetAsString(t)
	return s
}

func intPtr(ds *dicom.Dataset, t tag.Tag) *int {
	if v, ok := ds.GetAsInt(t); ok {
		return &v
	}
	return nil
}

func floatPtr(ds *dicom.Dataset, t tag.Tag) *float64 {
	s, ok := ds.GetAsString(t)
	if !ok {
		return nil
	}
	// DS (Decimal String) values may hold several values separated by '\';
	// only the first value is projected.
	first := strings.SplitN(strings.TrimSpace(s), "\\", 2)[0]
	v, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return nil
	}
	return &v
}
