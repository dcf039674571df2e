package hal

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElapsed_Wraparound(t *testing.T) {
	tests := []struct {
		name string
		now  uint32
		then uint32
		want uint32
	}{
		{name: "no wrap", now: 1500, then: 1000, want: 500},
		{name: "wrap", now: 200, then: math.MaxUint32 - 299, want: 500},
		{name: "equal", now: 42, then: 42, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(tt.now, tt.then))
		})
	}
}

func TestFakeClock(t *testing.T) {
	c := NewFakeClock(math.MaxUint32)
	assert.Equal(t, uint32(math.MaxUint32), c.NowUS())

	c.Advance(501)
	assert.Equal(t, uint32(500), c.NowUS())
	assert.Equal(t, uint32((uint64(math.MaxUint32)+501)/1000), c.NowMS())
}

func TestSystemClock_Monotonic(t *testing.T) {
	c := NewSystemClock()
	a := c.NowUS()
	time.Sleep(2 * time.Millisecond)
	b := c.NowUS()
	assert.GreaterOrEqual(t, Elapsed(b, a), uint32(2000))
	assert.GreaterOrEqual(t, c.NowMS(), uint32(2))
}

func TestTickerTimer_DisarmFromCallback(t *testing.T) {
	timer := NewTickerTimer()

	var calls atomic.Int32
	done := make(chan struct{})
	err := timer.Arm(1000, func() {
		if calls.Add(1) == 5 {
			timer.Disarm()
			close(done)
		}
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire 5 times")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(5), calls.Load(), "no ticks after disarm")
	assert.False(t, timer.Armed())

	// Disarm is idempotent.
	timer.Disarm()
}

func TestTickerTimer_ArmTwice(t *testing.T) {
	timer := NewTickerTimer()
	require.NoError(t, timer.Arm(100, func() {}))
	defer timer.Disarm()

	assert.ErrorIs(t, timer.Arm(100, func() {}), ErrArmed)
}

func TestTickerTimer_InvalidFrequency(t *testing.T) {
	timer := NewTickerTimer()
	assert.Error(t, timer.Arm(0, func() {}))
	assert.Error(t, timer.Arm(10, nil))
}

func TestManualTimer(t *testing.T) {
	timer := NewManualTimer()
	assert.False(t, timer.Fire(), "disarmed timer must not fire")

	n := 0
	require.NoError(t, timer.Arm(2000, func() {
		n++
		if n == 3 {
			timer.Disarm()
		}
	}))
	assert.Equal(t, 2000, timer.Frequency())

	for timer.Fire() {
	}
	assert.Equal(t, 3, n)
	assert.False(t, timer.Armed())
}

func TestSineSource(t *testing.T) {
	clock := NewFakeClock(0)
	src := NewSineSource(clock, SineParams{
		FrequencyHz: 200,
		Vpp:         1.2,
		Offset:      1.6,
		VRef:        3.3,
		MaxCode:     65535,
	})

	// t=0: offset only
	assert.InDelta(t, 1.6/3.3*65535, float64(src.ReadRaw()), 1)

	// quarter period: peak
	clock.Advance(1250)
	assert.InDelta(t, 2.2/3.3*65535, float64(src.ReadRaw()), 1)

	// three quarters: trough
	clock.Advance(2500)
	assert.InDelta(t, 1.0/3.3*65535, float64(src.ReadRaw()), 1)
}

func TestSineSource_Clamps(t *testing.T) {
	clock := NewFakeClock(1250)
	src := NewSineSource(clock, SineParams{FrequencyHz: 200, Vpp: 10, Offset: 1.65, VRef: 3.3, MaxCode: 4095})
	assert.Equal(t, uint16(4095), src.ReadRaw())

	clock.Advance(2500)
	assert.Equal(t, uint16(0), src.ReadRaw())
}
