// Package analysis derives signal and sampling quality from an acquired run.
// Everything here is a pure function of its inputs.
package analysis

import (
	"math"

	"github.com/itohio/gosampler/pkg/jitter"
	"github.com/itohio/gosampler/pkg/sample"
)

// Params describe the ADC and the expected test signal.
type Params struct {
	VRef    float64 // ADC reference voltage (V)
	MaxCode uint16  // Full-scale code
	RateHz  int     // Nominal sample rate, used when there are no timestamps

	SignalFrequency float64 // Expected signal frequency (Hz), 0 if unknown
	ExpectedVpp     float64 // Expected peak-to-peak amplitude (V)
	ExpectedOffset  float64 // Expected DC offset (V)
}

// SampleInterval returns the nominal sample interval in seconds.
func (p Params) SampleInterval() float64 {
	if p.RateHz <= 0 {
		return 0
	}
	return 1 / float64(p.RateHz)
}

// Result is the read-only outcome of one analyzed run.
type Result struct {
	Samples int

	VoltageMin  float64
	VoltageMax  float64
	VoltageMean float64
	Vpp         float64
	ACAmplitude float64 // max |v - mean|
	RobustVpp   float64 // p99 - p1

	Crossings int
	Frequency float64 // 0 when fewer than two crossings

	HasJitter      bool
	IdealUS        uint32
	Jitter         jitter.Metrics
	Distribution   jitter.Distribution
	TimingErrorPct float64 // RMS jitter relative to the ideal interval
	SNRdB          float64 // +Inf without timing noise
	ENOB           float64

	DCError           float64
	VppError          float64
	FrequencyError    float64
	FrequencyErrorPct float64
}

// Analyze converts the codes to volts and computes the run statistics.
// stamps may be nil, in which case no jitter metrics are derived and the frequency
// estimate uses the nominal sample rate. acc must be the accumulator of the same run
// (see jitter.Replay) when stamps are present.
func Analyze(codes []uint16, stamps []uint32, acc *jitter.Accumulator, p Params) Result {
	var r Result

	voltages := sample.Voltages(nil, codes, p.MaxCode, p.VRef)
	var intervals []uint32

	if stamps != nil && acc != nil {
		intervals = jitter.Intervals(nil, stamps)
		r.HasJitter = true
		r.IdealUS = acc.Ideal()
		r.Jitter = jitter.Compute(acc, stamps)
		r.Distribution = jitter.Distribute(intervals, acc.Ideal())
		r.TimingErrorPct = jitter.RelativeError(r.Jitter, acc.Ideal())
	}

	if len(voltages) > 0 {
		r.Samples = len(voltages)
		r.VoltageMin, r.VoltageMax, r.VoltageMean = Stats(voltages)
		r.Vpp = r.VoltageMax - r.VoltageMin
		r.RobustVpp = PercentileSpan(voltages, 0.01, 0.99)

		ac := RemoveMean(voltages, r.VoltageMean)
		for _, v := range ac {
			r.ACAmplitude = math.Max(r.ACAmplitude, math.Abs(v))
		}

		r.Crossings = ZeroCrossings(ac)
		r.Frequency = EstimateFrequency(r.Crossings, totalSeconds(len(voltages), intervals, p))

		r.DCError = r.VoltageMean - p.ExpectedOffset
		r.VppError = r.Vpp - p.ExpectedVpp
	}

	if p.SignalFrequency > 0 {
		r.FrequencyError = math.Abs(r.Frequency - p.SignalFrequency)
		r.FrequencyErrorPct = r.FrequencyError / p.SignalFrequency * 100
	}

	if r.HasJitter {
		f := p.SignalFrequency
		if f <= 0 {
			f = r.Frequency
		}
		r.SNRdB = SNR(f, r.Jitter.RMS)
		r.ENOB = ENOB(r.SNRdB)
	}

	return r
}

// Stats returns min, max and mean. All zero for empty input.
func Stats(v []float64) (lo, hi, mean float64) {
	if len(v) == 0 {
		return 0, 0, 0
	}
	lo, hi = v[0], v[0]
	var sum float64
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		sum += x
	}
	return lo, hi, sum / float64(len(v))
}

// RemoveMean returns v - mean as a new slice.
func RemoveMean(v []float64, mean float64) []float64 {
	ac := make([]float64, len(v))
	for i, x := range v {
		ac[i] = x - mean
	}
	return ac
}

// ZeroCrossings counts sign changes between neighbours. A sample exactly at zero
// never forms a crossing.
func ZeroCrossings(ac []float64) int {
	n := 0
	for i := 1; i < len(ac); i++ {
		if ac[i-1]*ac[i] < 0 {
			n++
		}
	}
	return n
}

// EstimateFrequency turns a crossing count over totalS seconds into a frequency,
// assuming a single-frequency oscillation crossing zero twice per period.
// Fewer than two crossings give 0.
func EstimateFrequency(crossings int, totalS float64) float64 {
	if crossings < 2 || totalS <= 0 {
		return 0
	}
	period := (2 * totalS) / float64(crossings)
	return 1 / period
}

// SNR returns the jitter-limited SNR in dB for a sine at freqHz sampled with
// rmsUS of RMS timing jitter. No jitter gives +Inf.
func SNR(freqHz, rmsUS float64) float64 {
	if rmsUS == 0 || freqHz == 0 {
		return math.Inf(1)
	}
	return 20 * math.Log10(1/(2*math.Pi*freqHz*rmsUS*1e-6))
}

// ENOB returns the effective number of bits for snrDB. +Inf stays +Inf.
func ENOB(snrDB float64) float64 {
	return (snrDB - 1.76) / 6.02
}

func totalSeconds(n int, intervals []uint32, p Params) float64 {
	if intervals != nil {
		var sum uint64
		for _, iv := range intervals {
			sum += uint64(iv)
		}
		return float64(sum) / 1_000_000
	}
	return float64(n-1) * p.SampleInterval()
}
