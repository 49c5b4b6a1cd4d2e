package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// dominantColor returns the most frequent color in the image after a cheap
// quantization pass: the image is shrunk, each channel is reduced to 3 bits,
// and the average color of the fullest bucket wins. Fast and rough, which is
// all the letterbox fill needs.
func dominantColor(img image.Image) (color.NRGBA, error) {
	small := imaging.Resize(img, 32, 0, imaging.NearestNeighbor)
	bounds := small.Bounds()
	if bounds.Empty() {
		return color.NRGBA{}, errors.New("image has no pixels to sample")
	}

	type bucket struct {
		count   int
		r, g, b int
	}
	buckets := make(map[uint16]*bucket)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(small.At(x, y)).(color.NRGBA)
			key := uint16(c.R>>5)<<6 | uint16(c.G>>5)<<3 | uint16(c.B>>5)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
			}
			b.count++
			b.r += int(c.R)
			b.g += int(c.G)
			b.b += int(c.B)
		}
	}

	var best *bucket
	for _, b := range buckets {
		if best == nil || b.count > best.count {
			best = b
		}
	}

	return color.NRGBA{
		R: uint8(best.r / best.count),
		G: uint8(best.g / best.count),
		B: uint8(best.b / best.count),
		A: 0xff,
	}, nil
}
