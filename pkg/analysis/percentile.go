package analysis

import (
	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/DataDog/sketches-go/ddsketch/mapping"
	"github.com/DataDog/sketches-go/ddsketch/store"
)

// sketchAccuracy is the relative accuracy of voltage percentiles.
const sketchAccuracy = 0.01

// PercentileSpan returns quantile(hi) - quantile(lo) of v. It gives a peak-to-peak
// figure that ignores isolated spikes. Empty input returns 0.
func PercentileSpan(v []float64, lo, hi float64) float64 {
	if len(v) == 0 {
		return 0
	}

	m, err := mapping.NewLogarithmicMapping(sketchAccuracy)
	if err != nil {
		return 0
	}
	s := ddsketch.NewDDSketch(m, store.NewDenseStore(), store.NewDenseStore())
	for _, x := range v {
		if err := s.Add(x); err != nil {
			continue
		}
	}
	if s.GetCount() == 0 {
		return 0
	}

	qlo, err := s.GetValueAtQuantile(lo)
	if err != nil {
		return 0
	}
	qhi, err := s.GetValueAtQuantile(hi)
	if err != nil {
		return 0
	}
	return qhi - qlo
}
