package palette

import (
	"image"
	"math"

	"filmpalette-backend/internal/diary"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	minSaturation    = 0.35
	targetSaturation = 1.0

	weightSaturation = 3
	weightLuma       = 6
	weightPopulation = 1
)

// target describes a saturated swatch within a band of lightness.
type target struct {
	minLuma    float64
	targetLuma float64
	maxLuma    float64
}

var (
	targetVibrant      = target{minLuma: 0.3, targetLuma: 0.5, maxLuma: 0.7}
	targetDarkVibrant  = target{minLuma: 0, targetLuma: 0.26, maxLuma: 0.45}
	targetLightVibrant = target{minLuma: 0.55, targetLuma: 0.74, maxLuma: 1}
)

func (t target) accepts(saturation, luma float64) bool {
	return saturation >= minSaturation && luma >= t.minLuma && luma <= t.maxLuma
}

func (t target) score(saturation, luma float64, population, maxPopulation int) float64 {
	sum := weightSaturation*(1-math.Abs(saturation-targetSaturation)) +
		weightLuma*(1-math.Abs(luma-t.targetLuma)) +
		weightPopulation*(float64(population)/float64(maxPopulation))
	return sum / (weightSaturation + weightLuma + weightPopulation)
}

// best picks the swatch closest to t. Ties go to the larger swatch, then to
// the lower packed RGB value, so the pick never depends on input order.
func (t target) best(swatches []Swatch) (Swatch, bool) {
	maxPopulation := 0
	for _, s := range swatches {
		maxPopulation = max(maxPopulation, s.Population)
	}

	var best Swatch
	bestScore := -1.0
	found := false
	for _, s := range swatches {
		_, saturation, luma := s.Color.Colorful().Hsl()
		if !t.accepts(saturation, luma) {
			continue
		}

		sc := t.score(saturation, luma, s.Population, maxPopulation)
		switch {
		case !found, sc > bestScore:
		case sc == bestScore && s.Population > best.Population:
		case sc == bestScore && s.Population == best.Population && s.Color.Packed() < best.Color.Packed():
		default:
			continue
		}
		best = s
		bestScore = sc
		found = true
	}
	return best, found
}

// Vibrant picks the swatch closest to a saturated color of medium lightness.
// When no swatch is in that band, the best dark (then light) vibrant swatch
// is shifted to medium lightness instead. ok is false only for palettes
// without any saturated swatch.
func Vibrant(swatches []Swatch) (Swatch, bool) {
	s, ok := targetVibrant.best(swatches)
	if ok {
		return s, true
	}
	for _, t := range []target{targetDarkVibrant, targetLightVibrant} {
		s, ok = t.best(swatches)
		if !ok {
			continue
		}
		h, saturation, _ := s.Color.Colorful().Hsl()
		return Swatch{
			Color:      diary.FromColorful(colorful.Hsl(h, saturation, targetVibrant.targetLuma)),
			Population: s.Population,
		}, true
	}
	return Swatch{}, false
}

// Dominant returns the vibrant color of img, ok is false if no swatch qualifies.
func Dominant(img image.Image) (color diary.Color, ok bool) {
	swatch, ok := Vibrant(Quantize(Downscale(img)))
	return swatch.Color, ok
}
