package jitter

import (
	"github.com/chewxy/math32"
)

// Quick is a float32 summary for targets without cheap float64 math.
type Quick struct {
	Mean float32
	RMS  float32
	Max  uint32
	Min  uint32
}

// QuickSummary computes the same metrics as Compute in float32.
func QuickSummary(a *Accumulator, stamps []uint32) Quick {
	n := len(stamps)
	if n < 2 || a == nil {
		return Quick{}
	}

	var sumSq float32
	for i := 1; i < n; i++ {
		d := float32(int64(stamps[i]-stamps[i-1]) - int64(a.ideal))
		sumSq += d * d
	}

	return Quick{
		Mean: float32(a.sum) / float32(n-1),
		RMS:  math32.Sqrt(sumSq / float32(n-1)),
		Max:  a.max,
		Min:  a.min,
	}
}
