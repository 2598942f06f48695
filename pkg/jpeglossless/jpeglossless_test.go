package jpeglossless

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReaderByteStuffingCollapse(t *testing.T) {
	br := newBitReader([]byte{0xFF, 0x00, 0xAB})
	v, err := br.readBits(8)
	require.NoError(t, err)
	assert.Equal(t, 0xFF, v)

	v, err = br.readBits(8)
	require.NoError(t, err)
	assert.Equal(t, 0xAB, v)
}

func TestBitReaderSplitReads(t *testing.T) {
	br := newBitReader([]byte{0b10110011, 0b11001100})
	v, err := br.readBits(4)
	require.NoError(t, err)
	assert.Equal(t, 0b1011, v)

	v, err = br.readBits(8)
	require.NoError(t, err)
	assert.Equal(t, 0b00111100, v)
}

func TestBitReaderReadBitsZero(t *testing.T) {
	br := newBitReader([]byte{0xFF, 0x00})
	v, err := br.readBits(0)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestBitReaderSkipsRestartMarkersDuringFill(t *testing.T) {
	br := newBitReader([]byte{0xFF, 0xD3, 0xAB})
	v, err := br.readBits(8)
	require.NoError(t, err)
	assert.Equal(t, 0xAB, v)
}

func TestBitReaderStopsAtRealMarker(t *testing.T) {
	br := newBitReader([]byte{0x01, 0xFF, 0xD9})
	v, err := br.readBits(8)
	require.NoError(t, err)
	assert.Equal(t, 0x01, v)

	_, err = br.readBits(8)
	require.Error(t, err)
}

func TestPredictorCorrectness(t *testing.T) {
	d := &decoder{}
	ra, rb, rc := int32(100), int32(200), int32(50)

	d.predictor = 1
	assert.Equal(t, int32(100), d.predict(1, 1, false, ra, rb, rc, 0))
	d.predictor = 2
	assert.Equal(t, int32(200), d.predict(1, 1, false, ra, rb, rc, 0))
	d.predictor = 3
	assert.Equal(t, int32(50), d.predict(1, 1, false, ra, rb, rc, 0))
	d.predictor = 4
	assert.Equal(t, int32(250), d.predict(1, 1, false, ra, rb, rc, 0))
	d.predictor = 7
	assert.Equal(t, int32(150), d.predict(1, 1, false, ra, rb, rc, 0))
}

func TestInitialPredictorValue(t *testing.T) {
	d := &decoder{}
	assert.Equal(t, int32(128), d.predict(0, 0, false, 0, 0, 0, 128))
	assert.Equal(t, int32(32768), d.predict(0, 0, false, 0, 0, 0, 32768))
}

func TestDecodeValueSignExtension(t *testing.T) {
	assert.Equal(t, 0, decodeValue(0, 0))
	assert.Equal(t, 5, decodeValue(0b101, 3))  // 5 >= 4 (half), positive
	assert.Equal(t, -2, decodeValue(0b101, 3)-7)
	assert.Equal(t, -7, decodeValue(0b000, 3)) // 0 < 4, negative: 0-(8-1)=-7
}

func TestHuffmanTableSingleSymbol(t *testing.T) {
	var counts [17]int
	counts[1] = 1
	ht := buildHuffmanTable(counts, []byte{0x02})

	br := newBitReader([]byte{0x00})
	sym, err := decodeSymbol(br, ht)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), sym)
}

func TestToImage8BitClamps(t *testing.T) {
	d := &decoder{precision: 8, width: 2, height: 1}
	img := d.toImage([]int32{-5, 300}, 1)
	assert.Equal(t, []byte{0, 255}, img.Data)
}

func TestToImage16BitAutoWindow(t *testing.T) {
	d := &decoder{precision: 16, width: 2, height: 1}
	img := d.toImage([]int32{1000, 4000}, 1)
	assert.Equal(t, []byte{0, 255}, img.Data)
}

func TestToImage16BitDegenerateWindow(t *testing.T) {
	d := &decoder{precision: 16, width: 2, height: 1}
	img := d.toImage([]int32{500, 500}, 1)
	assert.Equal(t, []byte{0, 0}, img.Data)
}

// buildMinimalLossless assembles a hand-written SOF3 stream: a 2x1,
// 1-component, 8-bit image whose single Huffman table always decodes
// SSSS=0 (zero difference), so every reconstructed sample equals the
// initial predictor value 128.
func buildMinimalLossless() []byte {
	return []byte{
		0xFF, 0xD8, // SOI

		0xFF, 0xC3, 0x00, 0x0B, // SOF3, length 11
		0x08,       // precision
		0x00, 0x01, // height = 1
		0x00, 0x02, // width = 2
		0x01,             // Nf = 1
		0x01, 0x11, 0x00, // component: id=1, sampling=1x1, quant=0

		0xFF, 0xC4, 0x00, 0x14, // DHT, length 20
		0x00,                                           // table info: class=0 (DC), id=0
		0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // code_counts[1..16]
		0x00, // value: SSSS=0

		0xFF, 0xDA, 0x00, 0x08, // SOS, length 8
		0x01,       // Ns = 1
		0x01, 0x00, // selector=1, DC/AC table ids = 0/0
		0x01, // predictor Ps = 1
		0x00, // Se (ignored)
		0x00, // Ah/Al

		0x00, // entropy data: two 0 bits + padding

		0xFF, 0xD9, // EOI
	}
}

func TestDecodeMinimalLosslessImage(t *testing.T) {
	img, err := Decode(buildMinimalLossless())
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, 1, img.Channels)
	assert.Equal(t, []byte{128, 128}, img.Data)
}

func TestDecodeRejectsArithmeticLosslessSOF(t *testing.T) {
	buf := buildMinimalLossless()
	// Flip SOF marker from C3 (Huffman lossless) to CB (arithmetic lossless).
	buf[3] = 0xCB
	_, err := Decode(buf)
	require.Error(t, err)
	var jerr *Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, KindArithmeticCodingNotSupported, jerr.Kind)
}

func TestDecodeRejectsNonLosslessSOF(t *testing.T) {
	buf := buildMinimalLossless()
	buf[3] = 0xC0 // baseline DCT
	_, err := Decode(buf)
	require.Error(t, err)
	var jerr *Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, KindUnsupportedFormat, jerr.Kind)
}
