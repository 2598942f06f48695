package metadata

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorenlund/dicom-lossless/pkg/dicom"
)

func writeExplicitElement(buf *bytes.Buffer, group, element uint16, vrCode string, value []byte) {
	binary.Write(buf, binary.LittleEndian, group)
	binary.Write(buf, binary.LittleEndian, element)
	buf.WriteString(vrCode)

	switch vrCode {
	case "OB", "OW", "OF", "SQ", "UT", "UN", "UC", "UR", "OD", "OL", "OV", "SV", "UV":
		buf.Write([]byte{0, 0})
		binary.Write(buf, binary.LittleEndian, uint32(len(value)))
	default:
		binary.Write(buf, binary.LittleEndian, uint16(len(value)))
	}
	buf.Write(value)
}

func padEven(s string) []byte {
	b := []byte(s)
	if len(b)%2 == 1 {
		b = append(b, ' ')
	}
	return b
}

func buildMinimalFile(datasetBody []byte) []byte {
	var meta bytes.Buffer
	writeExplicitElement(&meta, 0x0002, 0x0002, "UI", padEven("1.2.840.10008.5.1.4.1.1.7"))
	writeExplicitElement(&meta, 0x0002, 0x0003, "UI", padEven("1.2.3.4.5.6.7.8.9"))
	writeExplicitElement(&meta, 0x0002, 0x0010, "UI", padEven("1.2.840.10008.1.2.1"))

	var groupLen bytes.Buffer
	writeExplicitElement(&groupLen, 0x0002, 0x0000, "UL", func() []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(meta.Len()))
		return b
	}())

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	out.Write(groupLen.Bytes())
	out.Write(meta.Bytes())
	out.Write(datasetBody)
	return out.Bytes()
}

func TestProjectOmitsAbsentTags(t *testing.T) {
	var dataset bytes.Buffer
	writeExplicitElement(&dataset, 0x0010, 0x0010, "PN", padEven("Doe^Jane"))

	buf := buildMinimalFile(dataset.Bytes())
	_, ds, _, err := dicom.Parse(buf)
	require.NoError(t, err)

	rec := Project(ds)
	assert.Equal(t, "Doe^Jane", rec.PatientName)
	assert.Nil(t, rec.Rows)
	assert.Nil(t, rec.RescaleIntercept)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"patientName":"Doe^Jane"`)
	assert.NotContains(t, string(out), "rows")
	assert.NotContains(t, string(out), "rescaleIntercept")
}

func TestProjectNumericFields(t *testing.T) {
	var dataset bytes.Buffer
	writeExplicitElement(&dataset, 0x0028, 0x0010, "US", func() []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, 512)
		return b
	}())
	writeExplicitElement(&dataset, 0x0028, 0x1052, "DS", padEven("-1024"))

	buf := buildMinimalFile(dataset.Bytes())
	_, ds, _, err := dicom.Parse(buf)
	require.NoError(t, err)

	rec := Project(ds)
	require.NotNil(t, rec.Rows)
	assert.Equal(t, 512, *rec.Rows)
	require.NotNil(t, rec.RescaleIntercept)
	assert.Equal(t, -1024.0, *rec.RescaleIntercept)
}

func TestProjectDecimalStringMultiplicityTakesFirstValue(t *testing.T) {
	var dataset bytes.Buffer
	writeExplicitElement(&dataset, 0x0028, 0x1050, "DS", padEven("40\\80"))

	buf := buildMinimalFile(dataset.Bytes())
	_, ds, _, err := dicom.Parse(buf)
	require.NoError(t, err)

	rec := Project(ds)
	require.NotNil(t, rec.WindowCenter)
	assert.Equal(t, 40.0, *rec.WindowCenter)
}
