package vr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesToBytesRoundTrip(t *testing.T) {
	for v := range all {
		b := v.ToBytes()
		got, err := FromBytes(b)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestFromBytesInvalid(t *testing.T) {
	_, err := FromBytes([2]byte{'Z', 'Z'})
	require.ErrorIs(t, err, ErrInvalidVR)

	_, err = FromBytes([2]byte{0x01, 'E'})
	require.ErrorIs(t, err, ErrInvalidVR)
}

func TestUses32BitLength(t *testing.T) {
	assert.True(t, OB.Uses32BitLength())
	assert.True(t, SQ.Uses32BitLength())
	assert.False(t, US.Uses32BitLength())
	assert.False(t, CS.Uses32BitLength())
}

func TestIsString(t *testing.T) {
	assert.True(t, PN.IsString())
	assert.True(t, UI.IsString())
	assert.False(t, OB.IsString())
	assert.False(t, US.IsString())
}

func TestInferFromTag(t *testing.T) {
	assert.Equal(t, UN, InferFromTag())
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindText, PN.Kind())
	assert.Equal(t, KindUniqueIdentifier, UI.Kind())
	assert.Equal(t, KindNumberBinary, US.Kind())
	assert.Equal(t, KindBulkData, OB.Kind())
	assert.Equal(t, KindSequence, SQ.Kind())
	assert.Equal(t, KindTag, AT.Kind())
}
