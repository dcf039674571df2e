package jitter

import (
	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histMin    = 1
	histMax    = 10_000_000 // 10 s in µs
	histSigFig = 3
)

// Distribution holds percentiles of |interval - ideal| in microseconds.
type Distribution struct {
	Count  int64
	P50    int64
	P90    int64
	P99    int64
	P999   int64
	StdDev float64
}

// Histogram records absolute interval deviations for percentile reporting.
// It is filled after a run, never from the sampling callback.
type Histogram struct {
	h *hdrhistogram.Histogram
}

// NewHistogram creates an empty deviation histogram.
func NewHistogram() *Histogram {
	return &Histogram{h: hdrhistogram.New(histMin, histMax, histSigFig)}
}

// Record adds the deviations of the given intervals.
func (h *Histogram) Record(intervals []uint32, idealUS uint32) {
	for _, iv := range intervals {
		// Out of range values (> histMax) are dropped by the histogram.
		_ = h.h.RecordValue(int64(absDiff(iv, idealUS)))
	}
}

// Reset clears the histogram.
func (h *Histogram) Reset() {
	h.h.Reset()
}

// Distribution returns the current percentiles.
func (h *Histogram) Distribution() Distribution {
	if h.h.TotalCount() == 0 {
		return Distribution{}
	}
	return Distribution{
		Count:  h.h.TotalCount(),
		P50:    h.h.ValueAtQuantile(50),
		P90:    h.h.ValueAtQuantile(90),
		P99:    h.h.ValueAtQuantile(99),
		P999:   h.h.ValueAtQuantile(99.9),
		StdDev: h.h.StdDev(),
	}
}

// Distribute is a one-shot helper building the distribution of a run.
func Distribute(intervals []uint32, idealUS uint32) Distribution {
	h := NewHistogram()
	h.Record(intervals, idealUS)
	return h.Distribution()
}
