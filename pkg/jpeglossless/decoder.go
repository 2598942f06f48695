// Package jpeglossless implements a from-scratch decoder for JPEG
// Lossless (ITU-T T.81 Annex H, SOF3, Huffman entropy coding): marker
// scanning, Huffman table construction, bit-level entropy decoding with
// byte stuffing and restart markers, the seven causal predictors, and
// dynamic-range down-mapping to 8-bit output.
package jpeglossless

import "fmt"

// DecodedImage is the decoder's output: samples interleaved by component,
// one byte per sample regardless of the source precision.
type DecodedImage struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

type componentSpec struct {
	id           byte
	hSampling    byte
	vSampling    byte
	quantTableID byte
	dcTableID    byte
}

type decoder struct {
	buf []byte
	pos int

	precision     int
	height        int
	width         int
	components    []componentSpec
	dcTables      [4]*huffmanTable

	restartInterval int
	predictor       int
	pointTransform  int
}

// Decode parses a complete JPEG Lossless (SOF3) byte stream starting at
// SOI and returns the reconstructed image.
func Decode(data []byte) (*DecodedImage, error) {
	d := &decoder{buf: data}
	return d.run()
}

func (d *decoder) run() (*DecodedImage, error) {
	marker, err := d.expectMarker()
	if err != nil {
		return nil, err
	}
	if marker != 0xD8 {
		return nil, newErr(KindInvalidMarker, "expected SOI (0xFFD8), got 0xFF%02X", marker)
	}

	for {
		marker, err := d.nextMarker()
		if err != nil {
			return nil, err
		}

		switch {
		case isSOF(marker):
			if !isLosslessSOF(marker) {
				return nil, newErr(KindUnsupportedFormat, "SOF marker 0xFF%02X is not a lossless (SOF3-family) frame", marker)
			}
			if isArithmeticSOF(marker) {
				return nil, newErr(KindArithmeticCodingNotSupported, "SOF marker 0xFF%02X uses arithmetic coding", marker)
			}
			if err := d.parseSOF(); err != nil {
				return nil, err
			}
		case marker == 0xC4:
			if err := d.parseDHT(); err != nil {
				return nil, err
			}
		case marker == 0xDD:
			if err := d.parseDRI(); err != nil {
				return nil, err
			}
		case marker == 0xDA:
			if err := d.parseSOS(); err != nil {
				return nil, err
			}
			return d.decodeScan()
		case marker == 0xD9:
			return nil, newErr(KindUnexpectedEndOfData, "EOI reached before SOS")
		default:
			length, err := d.readU16()
			if err != nil {
				return nil, err
			}
			if length < 2 {
				return nil, newErr(KindInvalidMarker, "segment 0xFF%02X has implausible length %d", marker, length)
			}
			if err := d.skip(int(length) - 2); err != nil {
				return nil, err
			}
		}
	}
}

func isSOF(marker byte) bool {
	return marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
}

func isLosslessSOF(marker byte) bool {
	switch marker {
	case 0xC3, 0xC7, 0xCB, 0xCF:
		return true
	default:
		return false
	}
}

func isArithmeticSOF(marker byte) bool {
	return marker >= 0xC9 && marker <= 0xCF && marker%2 == 1
}

// expectMarker reads exactly one marker at the current position, with no
// tolerance for leading fill bytes (used only for the initial SOI check).
func (d *decoder) expectMarker() (byte, error) {
	b0, err := d.readU8()
	if err != nil {
		return 0, err
	}
	b1, err := d.readU8()
	if err != nil {
		return 0, err
	}
	if b0 != 0xFF {
		return 0, newErr(KindInvalidMarker, "expected marker, got 0x%02X%02X", b0, b1)
	}
	return b1, nil
}

// nextMarker reads the marker at the current position, tolerating runs
// of 0xFF fill bytes before the code byte. Any other byte where a marker
// is expected is an InvalidMarker error.
func (d *decoder) nextMarker() (byte, error) {
	for {
		b, err := d.readU8()
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			return 0, newErr(KindInvalidMarker, "expected 0xFF marker prefix, got 0x%02X", b)
		}
		code, err := d.readU8()
		if err != nil {
			return 0, err
		}
		if code == 0xFF {
			d.pos--
			continue
		}
		if code == 0x00 {
			return 0, newErr(KindInvalidMarker, "stray stuffed byte outside entropy stream")
		}
		return code, nil
	}
}

func (d *decoder) readU8() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, newErr(KindUnexpectedEndOfData, "reading byte at %d", d.pos)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readU16() (int, error) {
	if d.pos+2 > len(d.buf) {
		return 0, newErr(KindUnexpectedEndOfData, "reading u16 at %d", d.pos)
	}
	v := int(d.buf[d.pos])<<8 | int(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

func (d *decoder) skip(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return newErr(KindUnexpectedEndOfData, "skipping %d bytes at %d", n, d.pos)
	}
	d.pos += n
	return nil
}

func (d *decoder) parseSOF() error {
	length, err := d.readU16()
	if err != nil {
		return err
	}
	end := d.pos + length - 2

	precision, err := d.readU8()
	if err != nil {
		return err
	}
	height, err := d.readU16()
	if err != nil {
		return err
	}
	width, err := d.readU16()
	if err != nil {
		return err
	}
	nf, err := d.readU8()
	if err != nil {
		return err
	}
	if nf == 0 || nf > 4 {
		return newErr(KindInvalidFrameHeader, "unsupported component count %d", nf)
	}

	components := make([]componentSpec, nf)
	for i := 0; i < int(nf); i++ {
		id, err := d.readU8()
		if err != nil {
			return err
		}
		sampling, err := d.readU8()
		if err != nil {
			return err
		}
		quant, err := d.readU8()
		if err != nil {
			return err
		}
		components[i] = componentSpec{
			id:           id,
			hSampling:    sampling >> 4,
			vSampling:    sampling & 0x0F,
			quantTableID: quant,
		}
	}
	if d.pos != end {
		return newErr(KindInvalidFrameHeader, "SOF segment length mismatch: at %d, expected %d", d.pos, end)
	}

	d.precision = int(precision)
	d.height = height
	d.width = width
	d.components = components
	return nil
}

func (d *decoder) parseDHT() error {
	length, err := d.readU16()
	if err != nil {
		return err
	}
	end := d.pos + length - 2

	for d.pos < end {
		info, err := d.readU8()
		if err != nil {
			return err
		}
		class := info >> 4
		id := info & 0x0F
		if id > 3 {
			return newErr(KindInvalidHuffmanTable, "table id %d out of range", id)
		}

		var counts [17]int
		total := 0
		for l := 1; l <= 16; l++ {
			n, err := d.readU8()
			if err != nil {
				return err
			}
			counts[l] = int(n)
			total += int(n)
		}
		if total > 256 {
			return newErr(KindInvalidHuffmanTable, "table has %d codes, more than 256", total)
		}
		values := make([]byte, total)
		for i := range values {
			v, err := d.readU8()
			if err != nil {
				return err
			}
			values[i] = v
		}

		ht := buildHuffmanTable(counts, values)
		if class == 0 {
			d.dcTables[id] = ht
		}
		// AC tables are not meaningful for lossless SOF3 and are parsed
		// only to stay aligned with the segment; they are discarded.
	}
	if d.pos != end {
		return newErr(KindInvalidHuffmanTable, "DHT segment length mismatch: at %d, expected %d", d.pos, end)
	}
	return nil
}

func (d *decoder) parseDRI() error {
	length, err := d.readU16()
	if err != nil {
		return err
	}
	if length != 4 {
		return newErr(KindInvalidMarker, "DRI segment length %d, want 4", length)
	}
	interval, err := d.readU16()
	if err != nil {
		return err
	}
	d.restartInterval = interval
	return nil
}

func (d *decoder) parseSOS() error {
	length, err := d.readU16()
	if err != nil {
		return err
	}
	end := d.pos + length - 2

	ns, err := d.readU8()
	if err != nil {
		return err
	}
	if int(ns) != len(d.components) {
		return newErr(KindInvalidScanHeader, "scan names %d components, frame has %d", ns, len(d.components))
	}

	selectors := make(map[byte]byte, ns)
	for i := 0; i < int(ns); i++ {
		selector, err := d.readU8()
		if err != nil {
			return err
		}
		tableIDs, err := d.readU8()
		if err != nil {
			return err
		}
		selectors[selector] = tableIDs >> 4
	}

	predictor, err := d.readU8()
	if err != nil {
		return err
	}
	if _, err := d.readU8(); err != nil { // Se, ignored for lossless
		return err
	}
	ahAl, err := d.readU8()
	if err != nil {
		return err
	}
	if d.pos != end {
		return newErr(KindInvalidScanHeader, "SOS segment length mismatch: at %d, expected %d", d.pos, end)
	}
	if predictor > 7 {
		return newErr(KindInvalidScanHeader, "predictor selector %d out of range", predictor)
	}

	for i := range d.components {
		dcID, ok := selectors[d.components[i].id]
		if !ok {
			return newErr(KindInvalidScanHeader, "no DC table selector for component id %d", d.components[i].id)
		}
		d.components[i].dcTableID = dcID
	}

	d.predictor = int(predictor)
	d.pointTransform = int(ahAl & 0x0F)
	return nil
}

// decodeScan decodes the entropy-coded segment starting at the current
// position and reconstructs the raster via the selected predictor.
func (d *decoder) decodeScan() (*DecodedImage, error) {
	nf := len(d.components)
	if nf == 0 || d.width == 0 || d.height == 0 {
		return nil, newErr(KindInvalidFrameHeader, "missing SOF before SOS")
	}

	tables := make([]*huffmanTable, nf)
	for c, comp := range d.components {
		ht := d.dcTables[comp.dcTableID]
		if ht == nil {
			return nil, newErr(KindInvalidHuffmanTable, "component %d references undefined DC table %d", c, comp.dcTableID)
		}
		tables[c] = ht
	}

	initial := 0
	if d.precision-d.pointTransform-1 > 0 {
		initial = 1 << uint(d.precision-d.pointTransform-1)
	}

	samples := make([]int32, d.width*d.height*nf)
	prevRow := make([][]int32, nf)
	currRow := make([][]int32, nf)
	for c := 0; c < nf; c++ {
		prevRow[c] = make([]int32, d.width)
		currRow[c] = make([]int32, d.width)
	}

	br := newBitReader(d.buf[d.pos:])
	mcuCount := 0
	justRestarted := false

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			if d.restartInterval > 0 && mcuCount > 0 && mcuCount%d.restartInterval == 0 {
				if err := d.consumeRestartMarker(br); err != nil {
					return nil, err
				}
				justRestarted = true
			}

			for c := 0; c < nf; c++ {
				var ra, rb, rc int32
				if x > 0 {
					ra = currRow[c][x-1]
				}
				if y > 0 {
					rb = prevRow[c][x]
					if x > 0 {
						rc = prevRow[c][x-1]
					}
				}

				pred := d.predict(x, y, justRestarted, ra, rb, rc, int32(initial))

				ssss, err := decodeSymbol(br, tables[c])
				if err != nil {
					return nil, wrapJPEGErr(KindInvalidHuffmanCode, err, "decoding DC category at (%d,%d) component %d", x, y, c)
				}
				if ssss > 16 {
					return nil, newErr(KindInvalidCategory, "category %d exceeds 16", ssss)
				}

				var diff int32
				if ssss > 0 {
					bits, err := br.readBits(int(ssss))
					if err != nil {
						return nil, wrapJPEGErr(KindEndOfStream, err, "reading %d difference bits at (%d,%d)", ssss, x, y)
					}
					diff = int32(decodeValue(bits, int(ssss)))
				}

				sample := pred + diff
				currRow[c][x] = sample
				samples[(y*d.width+x)*nf+c] = sample
			}
			justRestarted = false
			mcuCount++
		}
		prevRow, currRow = currRow, prevRow
	}

	return d.toImage(samples, nf), nil
}

// predict computes the predictor value for position (x,y), honoring the
// first-row/first-column special cases and a restart boundary, which
// resets prediction context exactly as the first pixel of the frame does.
func (d *decoder) predict(x, y int, justRestarted bool, ra, rb, rc, initial int32) int32 {
	if justRestarted || (x == 0 && y == 0) {
		return initial
	}
	if y == 0 {
		return ra
	}
	if x == 0 {
		return rb
	}
	switch d.predictor {
	case 0:
		return 0
	case 1:
		return ra
	case 2:
		return rb
	case 3:
		return rc
	case 4:
		return ra + rb - rc
	case 5:
		return ra + ((rb - rc) >> 1)
	case 6:
		return rb + ((ra - rc) >> 1)
	case 7:
		return (ra + rb) >> 1
	default:
		return ra
	}
}

func (d *decoder) consumeRestartMarker(br *bitReader) error {
	br.alignToByte()
	b0, err := br.readByte()
	if err != nil {
		return wrapJPEGErr(KindEndOfStream, err, "reading restart marker")
	}
	b1, err := br.readByte()
	if err != nil {
		return wrapJPEGErr(KindEndOfStream, err, "reading restart marker")
	}
	if b0 != 0xFF || b1 < 0xD0 || b1 > 0xD7 {
		return newErr(KindInvalidMarker, "expected restart marker, got 0x%02X%02X", b0, b1)
	}
	return nil
}

// decodeValue is the JPEG SSSS/"extend" sign-extension rule: a value
// coded with ssss bits B represents B itself when B is in the upper
// half of its range, and B-(2^ssss-1) otherwise.
func decodeValue(b, ssss int) int {
	if ssss == 0 {
		return 0
	}
	half := 1 << uint(ssss-1)
	if b < half {
		return b - (1<<uint(ssss) - 1)
	}
	return b
}

// toImage converts the 32-bit intermediate samples to the 8-bit output
// format: direct clamping for P<=8, min/max auto-windowing above that.
func (d *decoder) toImage(samples []int32, nf int) *DecodedImage {
	out := make([]byte, len(samples))

	if d.precision <= 8 {
		for i, s := range samples {
			out[i] = clampByte(s)
		}
		return &DecodedImage{Data: out, Width: d.width, Height: d.height, Channels: nf}
	}

	min, max := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if min == max {
		return &DecodedImage{Data: out, Width: d.width, Height: d.height, Channels: nf}
	}
	span := max - min
	for i, s := range samples {
		v := (s - min) * 255 / span
		out[i] = clampByte(v)
	}
	return &DecodedImage{Data: out, Width: d.width, Height: d.height, Channels: nf}
}

func clampByte(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func wrapJPEGErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
