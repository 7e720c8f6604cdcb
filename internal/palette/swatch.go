package palette

import (
	"image"
	"image/color"
	"slices"

	"filmpalette-backend/internal/diary"
)

const (
	// bits kept per channel when bucketing pixels
	quantizeBits = 5
	// maximum number of swatches kept from the histogram
	maxSwatches = 64

	minAlpha   = 125
	whiteLevel = 250
)

// Swatch is a cluster of similar pixels.
type Swatch struct {
	Color      diary.Color
	Population int
}

type bucket struct {
	r, g, b uint64
	count   int
}

func keep(c color.NRGBA) bool {
	if c.A < minAlpha {
		return false
	}
	return !(c.R > whiteLevel && c.G > whiteLevel && c.B > whiteLevel)
}

func bucketKey(c color.NRGBA) uint32 {
	shift := 8 - quantizeBits
	return uint32(c.R>>shift)<<(2*quantizeBits) |
		uint32(c.G>>shift)<<quantizeBits |
		uint32(c.B>>shift)
}

// Quantize buckets the pixels of img and returns the most populated swatches,
// largest first. Mostly transparent and near-white pixels are ignored.
func Quantize(img image.Image) []Swatch {
	buckets := map[uint32]*bucket{}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if !keep(c) {
				continue
			}
			key := bucketKey(c)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
			}
			b.r += uint64(c.R)
			b.g += uint64(c.G)
			b.b += uint64(c.B)
			b.count++
		}
	}

	swatches := make([]Swatch, 0, len(buckets))
	for _, b := range buckets {
		n := uint64(b.count)
		swatches = append(swatches, Swatch{
			Color: diary.Color{
				R: uint8(b.r / n),
				G: uint8(b.g / n),
				B: uint8(b.b / n),
			},
			Population: b.count,
		})
	}

	slices.SortFunc(swatches, func(a, b Swatch) int {
		if a.Population != b.Population {
			return b.Population - a.Population
		}
		return int(a.Color.Packed()) - int(b.Color.Packed())
	})
	if len(swatches) > maxSwatches {
		swatches = swatches[:maxSwatches]
	}
	return swatches
}
