package wind

import (
	"math"
	"sort"

	"windglobe/core"
)

// Percentile returns the nearest-rank p-th percentile of values: the element
// at index floor(p/100 * n) of the ascending sort, clamped into the slice.
// values is not modified. An empty slice gives 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Floor(p / 100 * float64(n)))
	if idx < 0 || math.IsNaN(p) {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Normalizer maps a speed onto [0, 1] between a low and a high reference so
// rare extreme speeds do not flatten everything else.
type Normalizer struct {
	Low, High float64
}

// NewNormalizer takes the lowP and highP percentiles of speeds as references.
// Non-finite speeds are ignored.
func NewNormalizer(speeds []float64, lowP, highP float64) Normalizer {
	finite := make([]float64, 0, len(speeds))
	for _, s := range speeds {
		if core.IsFinite(s) {
			finite = append(finite, s)
		}
	}
	if len(finite) == 0 {
		return Normalizer{}
	}
	sort.Float64s(finite)
	return Normalizer{
		Low:  percentileSorted(finite, lowP),
		High: percentileSorted(finite, highP),
	}
}

// Normalize returns (speed - Low) / (High - Low) clamped to [0, 1]. A zero
// range divides by 1 instead.
func (n Normalizer) Normalize(speed float64) float64 {
	denom := n.High - n.Low
	if denom == 0 || !core.IsFinite(denom) {
		denom = 1
	}
	t := (speed - n.Low) / denom
	if math.IsNaN(t) {
		return 0
	}
	return core.Clamp(t, 0, 1)
}
