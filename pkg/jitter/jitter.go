// Package jitter measures how far timer-driven sampling intervals stray from the ideal
// interval. The Accumulator is updated from the sampling callback in constant time;
// everything else runs after the acquisition finished.
package jitter

import (
	"math"
)

// Accumulator keeps running statistics of |interval - ideal| in microseconds.
type Accumulator struct {
	ideal uint32
	sum   uint64
	max   uint32
	min   uint32
	count int
}

// NewAccumulator creates an accumulator for the given ideal interval.
func NewAccumulator(idealUS uint32) *Accumulator {
	return &Accumulator{ideal: idealUS}
}

// IdealInterval returns the ideal sampling interval in whole microseconds.
func IdealInterval(rateHz int) uint32 {
	if rateHz <= 0 {
		return 0
	}
	return uint32(1_000_000 / rateHz)
}

// SetIdeal changes the ideal interval and resets the statistics.
func (a *Accumulator) SetIdeal(idealUS uint32) {
	a.ideal = idealUS
	a.Reset()
}

// Ideal returns the ideal interval in microseconds.
func (a *Accumulator) Ideal() uint32 {
	return a.ideal
}

// Reset clears the statistics between runs.
func (a *Accumulator) Reset() {
	a.sum = 0
	a.max = 0
	a.min = 0
	a.count = 0
}

// Observe records the interval between two consecutive sample timestamps.
// The subtraction is done on the wrapping counter.
func (a *Accumulator) Observe(prev, cur uint32) {
	j := absDiff(cur-prev, a.ideal)

	a.sum += uint64(j)
	if j > a.max {
		a.max = j
	}
	if a.count == 0 || j < a.min {
		a.min = j
	}
	a.count++
}

// Count returns the number of observed intervals.
func (a *Accumulator) Count() int {
	return a.count
}

// Sum returns the sum of absolute deviations (µs).
func (a *Accumulator) Sum() uint64 {
	return a.sum
}

// Max returns the largest absolute deviation (µs).
func (a *Accumulator) Max() uint32 {
	return a.max
}

// Min returns the smallest absolute deviation (µs).
func (a *Accumulator) Min() uint32 {
	return a.min
}

// Metrics summarizes a run. All values are in microseconds.
//
// Mean is the mean absolute deviation from the accumulator while RMS is the root mean
// square of the signed deviation recomputed from the timestamps. They are different
// statistics and are reported separately.
type Metrics struct {
	Mean float64
	RMS  float64
	Max  uint32
	Min  uint32
}

// Compute derives the run metrics from the accumulator and the filled timestamps.
// Fewer than two timestamps yield zero metrics.
func Compute(a *Accumulator, stamps []uint32) Metrics {
	n := len(stamps)
	if n < 2 || a == nil {
		return Metrics{}
	}

	var sumSq float64
	for i := 1; i < n; i++ {
		d := float64(stamps[i]-stamps[i-1]) - float64(a.ideal)
		sumSq += d * d
	}

	return Metrics{
		Mean: float64(a.sum) / float64(n-1),
		RMS:  math.Sqrt(sumSq / float64(n-1)),
		Max:  a.max,
		Min:  a.min,
	}
}

// Intervals writes the n-1 intervals between consecutive timestamps into dst,
// reusing its capacity when possible.
func Intervals(dst []uint32, stamps []uint32) []uint32 {
	n := len(stamps) - 1
	if n < 1 {
		return dst[:0]
	}
	if cap(dst) >= n {
		dst = dst[:n]
	} else {
		dst = make([]uint32, n)
	}
	for i := range n {
		dst[i] = stamps[i+1] - stamps[i]
	}
	return dst
}

// RelativeError returns rms as a percentage of the ideal interval.
func RelativeError(m Metrics, idealUS uint32) float64 {
	if idealUS == 0 {
		return 0
	}
	return m.RMS / float64(idealUS) * 100
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Replay rebuilds the accumulator of a run from its timestamps, giving the same state
// the sampling callback would have produced.
func Replay(idealUS uint32, stamps []uint32) *Accumulator {
	a := NewAccumulator(idealUS)
	for i := 1; i < len(stamps); i++ {
		a.Observe(stamps[i-1], stamps[i])
	}
	return a
}
