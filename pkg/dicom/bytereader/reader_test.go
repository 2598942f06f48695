package bytereader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPrimitivesLittleEndian(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03, 0x00, 0xAA, 0xBB}, true)

	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), u16)

	b, err := r.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xAA}, b)
}

func TestReadU32BigEndian(t *testing.T) {
	r := New([]byte{0x00, 0x00, 0x01, 0x00}, false)
	v, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(256), v)
}

func TestReadPastEndFails(t *testing.T) {
	r := New([]byte{0x01}, true)
	_, err := r.ReadU16()
	require.ErrorIs(t, err, ErrUnexpectedEndOfData)
}

func TestSetPosForwardAndBackward(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03, 0x04}, true)
	require.NoError(t, r.SetPos(2))
	assert.Equal(t, 2, r.Pos())

	v, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x03), v)

	require.NoError(t, r.SetPos(0))
	assert.Equal(t, 0, r.Pos())
}

func TestSetPosOutOfRange(t *testing.T) {
	r := New([]byte{0x01, 0x02}, true)
	require.ErrorIs(t, r.SetPos(3), ErrInvalidPosition)
	require.ErrorIs(t, r.SetPos(-1), ErrInvalidPosition)
}

func TestAtEndAndRemaining(t *testing.T) {
	r := New([]byte{0x01, 0x02}, true)
	assert.False(t, r.AtEnd())
	assert.Equal(t, 2, r.Remaining())
	_, _ = r.ReadBytes(2)
	assert.True(t, r.AtEnd())
	assert.Equal(t, 0, r.Remaining())
}
