package hal

import (
	"math"
	"math/rand"
)

// SineParams describes the simulated test signal.
type SineParams struct {
	FrequencyHz float64 // Signal frequency (Hz)
	Vpp         float64 // Peak-to-peak amplitude (V)
	Offset      float64 // DC offset (V)
	Phase       float64 // Initial phase (rad)
	VRef        float64 // ADC reference voltage (V)
	MaxCode     uint16  // Full-scale ADC code
	NoiseLevel  float64 // Gaussian noise sigma (V)
	Seed        int64
}

// SineSource simulates an ADC wired to a sine generator.
// The signal is evaluated at the clock's current time, so timer jitter shows up in the
// samples the same way it does on hardware.
type SineSource struct {
	clock Clock
	p     SineParams
	rng   *rand.Rand
}

// NewSineSource creates a simulated ADC reading the signal at clock time.
func NewSineSource(clock Clock, p SineParams) *SineSource {
	if p.MaxCode == 0 {
		p.MaxCode = math.MaxUint16
	}
	if p.VRef == 0 {
		p.VRef = 3.3
	}
	return &SineSource{
		clock: clock,
		p:     p,
		rng:   rand.New(rand.NewSource(p.Seed)),
	}
}

// ReadRaw returns the code for the signal at the current clock time.
// Not safe for concurrent use; the acquisition callback is the only caller.
func (s *SineSource) ReadRaw() uint16 {
	t := float64(s.clock.NowUS()) / 1e6
	v := s.Voltage(t)
	if s.p.NoiseLevel > 0 {
		v += s.rng.NormFloat64() * s.p.NoiseLevel
	}

	code := math.Round(v / s.p.VRef * float64(s.p.MaxCode))
	if code < 0 {
		code = 0
	} else if code > float64(s.p.MaxCode) {
		code = float64(s.p.MaxCode)
	}
	return uint16(code)
}

// Voltage returns the noiseless signal at t seconds.
func (s *SineSource) Voltage(t float64) float64 {
	return s.p.Offset + s.p.Vpp/2*math.Sin(2*math.Pi*s.p.FrequencyHz*t+s.p.Phase)
}
