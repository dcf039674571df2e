package acquire

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/gosampler/pkg/hal"
	"github.com/itohio/gosampler/pkg/jitter"
	"github.com/itohio/gosampler/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterADC returns 0, 1, 2, ... on consecutive reads.
func counterADC() hal.ADC {
	var n atomic.Uint32
	return hal.ADCFunc(func() uint16 {
		return uint16(n.Add(1) - 1)
	})
}

// fireUntilDisarmed waits for the timer to be armed and then fires it, advancing the
// clock by stepUS after every tick, until the controller disarms it.
func fireUntilDisarmed(t *testing.T, timer *hal.ManualTimer, clock *hal.FakeClock, stepUS uint64) <-chan int {
	t.Helper()
	fired := make(chan int, 1)
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for !timer.Armed() {
			if time.Now().After(deadline) {
				fired <- 0
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
		n := 0
		for timer.Fire() {
			n++
			clock.Advance(stepUS)
		}
		fired <- n
	}()
	return fired
}

func TestRun_TimerNeverFires(t *testing.T) {
	buf := sample.NewBuffer(512, true)
	timer := hal.NewManualTimer()
	c := New(counterADC(), hal.NewSystemClock(), timer, buf, Options{})

	start := time.Now()
	filled, err := c.Run(context.Background(), 2000, 512, 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.Filled)
	assert.Equal(t, 512, te.Requested)

	assert.Equal(t, 0, filled)
	assert.Equal(t, 0, c.Filled())
	assert.Equal(t, TimedOut, c.State())
	assert.False(t, timer.Armed(), "timer must be disarmed on timeout")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, jitter.Metrics{}, c.Metrics())
}

func TestRun_Completes(t *testing.T) {
	buf := sample.NewBuffer(512, true)
	timer := hal.NewManualTimer()
	clock := hal.NewFakeClock(1_000_000)
	c := New(counterADC(), clock, timer, buf, Options{CollectGarbage: true})

	fired := fireUntilDisarmed(t, timer, clock, 500)

	filled, err := c.Run(context.Background(), 2000, 512, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 512, filled)
	assert.Equal(t, 512, <-fired, "no tick may be delivered after the final sample")
	assert.Equal(t, Completed, c.State())
	assert.Equal(t, 2000, timer.Frequency())

	codes := c.Codes()
	stamps := c.Timestamps()
	require.Len(t, codes, 512)
	require.Len(t, stamps, 512)
	for i := range codes {
		assert.Equal(t, uint16(i), codes[i])
		assert.Equal(t, uint32(1_000_000+500*i), stamps[i])
	}

	assert.Equal(t, 511, c.Jitter().Count())
	assert.Equal(t, jitter.Metrics{}, c.Metrics(), "constant spacing has no jitter")
}

func TestRun_JitterAccumulated(t *testing.T) {
	buf := sample.NewBuffer(8, true)
	timer := hal.NewManualTimer()
	clock := hal.NewFakeClock(0)
	c := New(counterADC(), clock, timer, buf, Options{})

	steps := []uint64{510, 490, 500, 520, 500, 480, 500, 500}
	go func() {
		for !timer.Armed() {
			time.Sleep(100 * time.Microsecond)
		}
		for _, s := range steps {
			if !timer.Fire() {
				return
			}
			clock.Advance(s)
		}
	}()

	filled, err := c.Run(context.Background(), 2000, 8, time.Second)
	require.NoError(t, err)
	require.Equal(t, 8, filled)

	m := c.Metrics()
	// deviations: 10, 10, 0, 20, 0, 20, 0
	assert.InDelta(t, 60.0/7.0, m.Mean, 1e-9)
	assert.Equal(t, uint32(20), m.Max)
	assert.Equal(t, uint32(0), m.Min)
	assert.Greater(t, m.RMS, m.Mean)
}

func TestRun_PartialDataOnTimeout(t *testing.T) {
	buf := sample.NewBuffer(100, true)
	timer := hal.NewManualTimer()
	c := New(counterADC(), hal.NewSystemClock(), timer, buf, Options{})

	go func() {
		for !timer.Armed() {
			time.Sleep(100 * time.Microsecond)
		}
		for range 10 {
			timer.Fire()
		}
	}()

	filled, err := c.Run(context.Background(), 1000, 100, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 10, filled)
	assert.Equal(t, []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, c.Codes())
	assert.Len(t, c.Timestamps(), 10)

	// Late ticks after a timed out run do not write.
	c.tick()
	assert.Equal(t, 10, c.Filled())

	cp := c.Capture()
	assert.True(t, cp.TimedOut)
	assert.Equal(t, 10, cp.Filled())
	assert.Equal(t, 100, cp.Requested)
	assert.Equal(t, uint32(1000), cp.IdealUS)
}

func TestRun_BasicVariant(t *testing.T) {
	buf := sample.NewBuffer(16, false)
	timer := hal.NewManualTimer()
	clock := hal.NewFakeClock(0)
	c := New(counterADC(), clock, timer, buf, Options{})

	fired := fireUntilDisarmed(t, timer, clock, 500)

	filled, err := c.Run(context.Background(), 2000, 16, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 16, filled)
	assert.Equal(t, 16, <-fired)
	assert.Nil(t, c.Timestamps())
	assert.Nil(t, c.Jitter())
	assert.Equal(t, jitter.Metrics{}, c.Metrics())

	cp := c.Capture()
	assert.False(t, cp.TimedOut)
	assert.False(t, cp.HasTimestamps())
}

func TestRun_ReusedAcrossRuns(t *testing.T) {
	buf := sample.NewBuffer(32, true)
	timer := hal.NewManualTimer()
	clock := hal.NewFakeClock(0)
	c := New(counterADC(), clock, timer, buf, Options{})

	fired := fireUntilDisarmed(t, timer, clock, 500)
	_, err := c.Run(context.Background(), 2000, 32, time.Second)
	require.NoError(t, err)
	<-fired

	fired = fireUntilDisarmed(t, timer, clock, 1000)
	filled, err := c.Run(context.Background(), 1000, 4, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4, filled)
	assert.Equal(t, 4, <-fired)
	assert.Equal(t, []uint16{32, 33, 34, 35}, c.Codes())
	assert.Equal(t, 3, c.Jitter().Count())
	assert.Equal(t, uint32(1000), c.Jitter().Ideal())
}

func TestRun_InvalidParameters(t *testing.T) {
	c := New(counterADC(), hal.NewSystemClock(), hal.NewManualTimer(), sample.NewBuffer(8, true), Options{})

	tests := []struct {
		name  string
		rate  int
		count int
	}{
		{name: "zero rate", rate: 0, count: 4},
		{name: "zero count", rate: 100, count: 0},
		{name: "over capacity", rate: 100, count: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Run(context.Background(), tt.rate, tt.count, time.Second)
			assert.ErrorIs(t, err, ErrInvalidRun)
		})
	}
}

func TestRun_Busy(t *testing.T) {
	timer := hal.NewManualTimer()
	c := New(counterADC(), hal.NewSystemClock(), timer, sample.NewBuffer(8, true), Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), 100, 8, 200*time.Millisecond)
		done <- err
	}()

	for !timer.Armed() {
		time.Sleep(100 * time.Microsecond)
	}
	_, err := c.Run(context.Background(), 100, 8, time.Second)
	assert.ErrorIs(t, err, ErrBusy)

	assert.ErrorIs(t, <-done, ErrTimeout)
}

func TestRun_Canceled(t *testing.T) {
	timer := hal.NewManualTimer()
	c := New(counterADC(), hal.NewSystemClock(), timer, sample.NewBuffer(8, true), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for !timer.Armed() {
			time.Sleep(100 * time.Microsecond)
		}
		cancel()
	}()

	_, err := c.Run(ctx, 100, 8, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Canceled, c.State())
	assert.False(t, timer.Armed())
}

func TestRun_TickerTimer(t *testing.T) {
	clock := hal.NewSystemClock()
	adc := hal.NewSineSource(clock, hal.SineParams{FrequencyHz: 200, Vpp: 1.2, Offset: 1.6, VRef: 3.3, MaxCode: 65535})
	timer := hal.NewTickerTimer()
	c := New(adc, clock, timer, sample.NewBuffer(64, true), Options{CollectGarbage: true})

	filled, err := c.Run(context.Background(), 2000, 64, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 64, filled)
	assert.False(t, timer.Armed())

	// 63 intervals of 500µs; the ticker drops ticks rather than bunching them up.
	stamps := c.Timestamps()
	assert.GreaterOrEqual(t, hal.Elapsed(stamps[63], stamps[0]), uint32(25_000))
	assert.Equal(t, uint32(500), c.Jitter().Ideal())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "armed", Armed.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "timed out", TimedOut.String())
	assert.Equal(t, "canceled", Canceled.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestTimeoutError_Message(t *testing.T) {
	err := &TimeoutError{Filled: 3, Requested: 512, Timeout: 5 * time.Second}
	assert.Equal(t, "acquisition timeout after 5s: 3 of 512 samples", err.Error())
}
