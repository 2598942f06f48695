package jpeglossless

// huffmanTable is a canonical JPEG Huffman table built from per-length
// code counts and a flat value list, per ITU-T T.81 Annex C.
//
// maxCode[L] is -1 when no code of length L exists (the sentinel used by
// the decode loop to skip that length outright).
type huffmanTable struct {
	codeCounts [17]int // index 1..16; codeCounts[0] unused
	values     []byte

	minCode   [17]int
	maxCode   [17]int
	valOffset [17]int
}

// buildHuffmanTable derives min/max/val-offset per length from
// codeCounts and values, following the standard canonical-code
// construction.
func buildHuffmanTable(codeCounts [17]int, values []byte) *huffmanTable {
	ht := &huffmanTable{codeCounts: codeCounts, values: values}

	code := 0
	valIndex := 0
	for l := 1; l <= 16; l++ {
		n := codeCounts[l]
		if n == 0 {
			ht.maxCode[l] = -1
		} else {
			ht.minCode[l] = code
			ht.valOffset[l] = valIndex - code
			valIndex += n
			code += n
			ht.maxCode[l] = code - 1
		}
		code <<= 1
	}
	return ht
}

// decodeSymbol reads one Huffman-coded symbol bit by bit, per the slow
// path: accumulate one bit at a time and check whether the running code
// falls within [minCode[L], maxCode[L]] for the current length L.
func decodeSymbol(br *bitReader, ht *huffmanTable) (byte, error) {
	code := 0
	for l := 1; l <= 16; l++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | bit
		if ht.maxCode[l] >= 0 && code <= ht.maxCode[l] {
			idx := code + ht.valOffset[l]
			if idx < 0 || idx >= len(ht.values) {
				return 0, newErr(KindInvalidHuffmanCode, "decoded index %d out of range for %d values", idx, len(ht.values))
			}
			return ht.values[idx], nil
		}
	}
	return 0, newErr(KindInvalidHuffmanCode, "no match after 16 bits, code=%016b", code)
}
