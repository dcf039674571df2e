package jitter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// observeAll feeds consecutive timestamp pairs the same way the sampling callback does.
func observeAll(a *Accumulator, stamps []uint32) {
	for i := 1; i < len(stamps); i++ {
		a.Observe(stamps[i-1], stamps[i])
	}
}

func evenStamps(start uint32, n int, spacing uint32) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = start + uint32(i)*spacing
	}
	return s
}

func TestIdealInterval(t *testing.T) {
	assert.Equal(t, uint32(500), IdealInterval(2000))
	assert.Equal(t, uint32(333), IdealInterval(3000))
	assert.Equal(t, uint32(0), IdealInterval(0))
}

func TestCompute_ConstantSpacing(t *testing.T) {
	for _, n := range []int{2, 3, 10, 512} {
		a := NewAccumulator(500)
		stamps := evenStamps(12345, n, 500)
		observeAll(a, stamps)

		m := Compute(a, stamps)
		assert.Equal(t, Metrics{}, m, "n=%d", n)
		assert.Equal(t, n-1, a.Count())
	}
}

func TestCompute_Degenerate(t *testing.T) {
	a := NewAccumulator(500)
	assert.Equal(t, Metrics{}, Compute(a, nil))
	assert.Equal(t, Metrics{}, Compute(a, []uint32{100}))
	assert.Equal(t, Metrics{}, Compute(nil, []uint32{100, 600}))
}

func TestCompute_Values(t *testing.T) {
	// intervals 500, 510, 490, 520 around an ideal 500
	stamps := []uint32{0, 500, 1010, 1500, 2020}
	a := NewAccumulator(500)
	observeAll(a, stamps)

	m := Compute(a, stamps)
	assert.InDelta(t, (0+10+10+20)/4.0, m.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt((0+100+100+400)/4.0), m.RMS, 1e-9)
	assert.Equal(t, uint32(20), m.Max)
	assert.Equal(t, uint32(0), m.Min)
}

func TestCompute_MinStartsAtFirstInterval(t *testing.T) {
	stamps := []uint32{0, 505, 1015}
	a := NewAccumulator(500)
	observeAll(a, stamps)

	assert.Equal(t, uint32(5), a.Min())
	assert.Equal(t, uint32(10), a.Max())
}

func TestObserve_Wraparound(t *testing.T) {
	a := NewAccumulator(500)
	a.Observe(math.MaxUint32-199, 300)

	assert.Equal(t, uint32(0), a.Max(), "interval across wrap is exactly 500")
	assert.Equal(t, uint64(0), a.Sum())
}

func TestReset(t *testing.T) {
	a := NewAccumulator(500)
	observeAll(a, []uint32{0, 600, 1000})
	require.Equal(t, 2, a.Count())

	a.Reset()
	assert.Equal(t, 0, a.Count())
	assert.Equal(t, uint64(0), a.Sum())
	assert.Equal(t, uint32(0), a.Max())
	assert.Equal(t, uint32(0), a.Min())

	a.SetIdeal(250)
	assert.Equal(t, uint32(250), a.Ideal())
}

func TestIntervals(t *testing.T) {
	dst := make([]uint32, 0, 10)
	got := Intervals(dst, []uint32{100, 600, 1110})
	assert.Equal(t, []uint32{500, 510}, got)
	assert.Equal(t, 10, cap(got))

	assert.Empty(t, Intervals(nil, []uint32{1}))
	assert.Empty(t, Intervals(nil, nil))
}

func TestRelativeError(t *testing.T) {
	assert.InDelta(t, 2.0, RelativeError(Metrics{RMS: 10}, 500), 1e-9)
	assert.Equal(t, 0.0, RelativeError(Metrics{RMS: 10}, 0))
}

func TestDistribute(t *testing.T) {
	intervals := make([]uint32, 0, 100)
	for i := range 100 {
		intervals = append(intervals, 500+uint32(i+1)) // deviations 1..100
	}

	d := Distribute(intervals, 500)
	assert.Equal(t, int64(100), d.Count)
	assert.InDelta(t, 50, d.P50, 1)
	assert.InDelta(t, 90, d.P90, 1)
	assert.InDelta(t, 99, d.P99, 1)
	assert.InDelta(t, 100, d.P999, 1)
	assert.Greater(t, d.StdDev, 0.0)
}

func TestDistribute_Empty(t *testing.T) {
	assert.Equal(t, Distribution{}, Distribute(nil, 500))
}

func TestQuickSummary(t *testing.T) {
	stamps := []uint32{0, 500, 1010, 1500, 2020}
	a := NewAccumulator(500)
	observeAll(a, stamps)

	q := QuickSummary(a, stamps)
	m := Compute(a, stamps)
	assert.InDelta(t, m.Mean, float64(q.Mean), 1e-4)
	assert.InDelta(t, m.RMS, float64(q.RMS), 1e-4)
	assert.Equal(t, m.Max, q.Max)
	assert.Equal(t, m.Min, q.Min)

	assert.Equal(t, Quick{}, QuickSummary(a, stamps[:1]))
}

func TestReplay_MatchesStreaming(t *testing.T) {
	stamps := []uint32{0, 500, 1010, 1500, 2020}
	streamed := NewAccumulator(500)
	observeAll(streamed, stamps)

	replayed := Replay(500, stamps)
	assert.Equal(t, streamed, replayed)
	assert.Equal(t, Compute(streamed, stamps), Compute(replayed, stamps))
}
