// Package baselinejpeg delegates ordinary (DCT, Huffman-baseline) JPEG
// decoding to the standard library's image/jpeg codec. It exists so the
// pixel-data normalizer has a uniform DecodedImage shape regardless of
// whether a frame came through the from-scratch lossless decoder or an
// external baseline decoder.
package baselinejpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// DecodedImage mirrors jpeglossless.DecodedImage's shape so the
// normalizer can treat both decoders identically.
type DecodedImage struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

// Decode decodes a baseline JPEG frame via image/jpeg and flattens it
// into interleaved 8-bit samples.
func Decode(data []byte) (*DecodedImage, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("baselinejpeg: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		out := make([]byte, width*height)
		for y := 0; y < height; y++ {
			copy(out[y*width:(y+1)*width], gray.Pix[y*gray.Stride:y*gray.Stride+width])
		}
		return &DecodedImage{Data: out, Width: width, Height: height, Channels: 1}, nil
	}

	out := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*width + x) * 3
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
		}
	}
	return &DecodedImage{Data: out, Width: width, Height: height, Channels: 3}, nil
}
