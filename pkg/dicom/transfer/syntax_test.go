package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUIDToUIDRoundTrip(t *testing.T) {
	all := []Syntax{
		ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRBigEndian,
		JPEGBaseline, JPEGLossless, JPEG2000Lossless, JPEG2000, RLELossless,
	}
	for _, s := range all {
		got, err := FromUID(s.ToUID())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestFromUIDTrimsPadding(t *testing.T) {
	got, err := FromUID("1.2.840.10008.1.2.1 \x00\x00")
	require.NoError(t, err)
	assert.Equal(t, ExplicitVRLittleEndian, got)
}

func TestFromUIDUnknown(t *testing.T) {
	_, err := FromUID("1.2.3.4.5.unknown")
	require.ErrorIs(t, err, ErrUnsupportedTransferSyntax)
}

func TestDerivedProperties(t *testing.T) {
	assert.False(t, ImplicitVRLittleEndian.ExplicitVR())
	assert.True(t, ExplicitVRLittleEndian.ExplicitVR())

	assert.True(t, ExplicitVRLittleEndian.LittleEndian())
	assert.False(t, ExplicitVRBigEndian.LittleEndian())

	assert.False(t, ExplicitVRLittleEndian.Encapsulated())
	assert.True(t, JPEGLossless.Encapsulated())
	assert.True(t, JPEG2000.Encapsulated())

	assert.True(t, JPEG2000.Refused())
	assert.True(t, RLELossless.Refused())
	assert.False(t, JPEGLossless.Refused())
}
