// Package acquire runs timer-driven ADC acquisitions into a pre-allocated sample buffer.
//
// A run has two parties: the timer callback, which is the only writer of the buffer,
// the fill count and the jitter accumulator while the run is armed, and the caller of
// Run, which only polls the completion flag until the run completes or times out.
// The callback body and the teardown of a timed out run share one critical section,
// so once Run returns no callback touches the buffers any more.
//
// Slot i is written before the fill count is published past i, and the completion
// flag is published after the final fill count.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/gosampler/pkg/hal"
	"github.com/itohio/gosampler/pkg/jitter"
	"github.com/itohio/gosampler/pkg/sample"
)

// DefaultPollInterval is how often Run checks the completion flag.
const DefaultPollInterval = time.Millisecond

var (
	// ErrTimeout matches any *TimeoutError.
	ErrTimeout = errors.New("acquisition timeout")
	// ErrInvalidRun is returned for non-positive rates/counts or counts above capacity.
	ErrInvalidRun = errors.New("invalid acquisition parameters")
	// ErrBusy is returned when Run is called while another run is in flight.
	ErrBusy = errors.New("acquisition already running")
)

// TimeoutError reports a run that did not reach the requested sample count in time.
// The samples acquired so far stay valid.
type TimeoutError struct {
	Filled    int
	Requested int
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("acquisition timeout after %v: %d of %d samples", e.Timeout, e.Filled, e.Requested)
}

// Is makes errors.Is(err, ErrTimeout) true.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// State is the run state.
type State int32

const (
	Idle State = iota
	Armed
	Completed
	TimedOut
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Canceled:
		return "canceled"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Options tune the waiting side of a run.
type Options struct {
	PollInterval   time.Duration // Completion poll interval (default 1ms)
	CollectGarbage bool          // Run the GC right before arming the timer
}

// Controller owns the timer and the sample buffer for one acquisition at a time.
type Controller struct {
	adc   hal.ADC
	clock hal.Clock
	timer hal.Timer
	buf   *sample.Buffer
	acc   *jitter.Accumulator // nil when the buffer has no timestamps
	opts  Options

	// mu is the critical section between the timer callback and run teardown.
	mu        sync.Mutex
	target    int
	rateHz    int
	prevStamp uint32

	state     atomic.Int32
	filled    atomic.Int32
	completed atomic.Bool
	running   atomic.Bool
}

// New creates a controller. Timestamps and jitter accumulation are enabled when buf
// records timestamps.
func New(adc hal.ADC, clock hal.Clock, timer hal.Timer, buf *sample.Buffer, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	c := &Controller{
		adc:   adc,
		clock: clock,
		timer: timer,
		buf:   buf,
		opts:  opts,
	}
	if buf.HasTimestamps() {
		c.acc = jitter.NewAccumulator(0)
	}
	return c
}

// Run acquires count samples at rateHz, waiting at most timeout.
// It returns the number of filled samples. On timeout the error is a *TimeoutError and
// the partial data remains readable through Codes and Timestamps.
func (c *Controller) Run(ctx context.Context, rateHz, count int, timeout time.Duration) (int, error) {
	if rateHz <= 0 || count <= 0 || count > c.buf.Cap() {
		return 0, fmt.Errorf("%w: rate=%d Hz count=%d capacity=%d", ErrInvalidRun, rateHz, count, c.buf.Cap())
	}
	if !c.running.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer c.running.Store(false)

	c.reset(rateHz, count)

	if c.opts.CollectGarbage {
		// Keep a collection from landing in the middle of the run.
		runtime.GC()
	}

	if err := c.timer.Arm(rateHz, c.tick); err != nil {
		c.state.Store(int32(Idle))
		return 0, fmt.Errorf("failed to arm timer: %w", err)
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	start := c.clock.NowMS()
	timeoutMS := uint32(timeout.Milliseconds())

	for !c.completed.Load() {
		if hal.Elapsed(c.clock.NowMS(), start) > timeoutMS {
			if filled, done := c.stop(TimedOut); !done {
				return filled, &TimeoutError{Filled: filled, Requested: count, Timeout: timeout}
			}
			break
		}

		select {
		case <-ctx.Done():
			if filled, done := c.stop(Canceled); !done {
				return filled, fmt.Errorf("acquisition canceled at %d of %d samples: %w", filled, count, ctx.Err())
			}
		case <-ticker.C:
		}
	}

	return int(c.filled.Load()), nil
}

func (c *Controller) reset(rateHz, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.target = count
	c.rateHz = rateHz
	c.prevStamp = 0
	c.filled.Store(0)
	c.completed.Store(false)
	if c.acc != nil {
		c.acc.SetIdeal(jitter.IdealInterval(rateHz))
	}
	c.state.Store(int32(Armed))
}

// stop ends an armed run with the given terminal state and disarms the timer.
// If the run completed in the meantime it reports done and leaves the state alone.
func (c *Controller) stop(s State) (filled int, done bool) {
	c.mu.Lock()
	if State(c.state.Load()) == Armed {
		c.state.Store(int32(s))
	} else {
		done = State(c.state.Load()) == Completed
	}
	filled = int(c.filled.Load())
	c.mu.Unlock()

	c.timer.Disarm()
	return filled, done
}

// tick is the timer callback. It must not allocate.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if State(c.state.Load()) != Armed {
		return
	}
	i := int(c.filled.Load())
	if i >= c.target {
		return
	}

	if c.acc != nil {
		now := c.clock.NowUS()
		c.buf.SetStamp(i, now)
		c.buf.SetCode(i, c.adc.ReadRaw())
		if i > 0 {
			c.acc.Observe(c.prevStamp, now)
		}
		c.prevStamp = now
	} else {
		c.buf.SetCode(i, c.adc.ReadRaw())
	}

	c.filled.Store(int32(i + 1))

	if i+1 == c.target {
		c.state.Store(int32(Completed))
		c.completed.Store(true)
		c.timer.Disarm()
	}
}

// Filled returns the current fill count. It is final once Run returned.
func (c *Controller) Filled() int {
	return int(c.filled.Load())
}

// State returns the run state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Codes returns the filled raw codes. The slice aliases the buffer and must not be
// read while a run is in flight.
func (c *Controller) Codes() []uint16 {
	return c.buf.Codes(c.Filled())
}

// Timestamps returns the filled timestamps, or nil without timestamps.
func (c *Controller) Timestamps() []uint32 {
	return c.buf.Timestamps(c.Filled())
}

// Jitter returns the accumulator of the last run, or nil without timestamps.
func (c *Controller) Jitter() *jitter.Accumulator {
	return c.acc
}

// Metrics returns the jitter metrics of the last run.
func (c *Controller) Metrics() jitter.Metrics {
	return jitter.Compute(c.acc, c.Timestamps())
}

// Capture copies the last run out of the controller buffers.
func (c *Controller) Capture() sample.Capture {
	c.mu.Lock()
	rate, requested := c.rateHz, c.target
	c.mu.Unlock()

	codes := c.Codes()
	cp := sample.Capture{
		RateHz:    rate,
		Requested: requested,
		IdealUS:   jitter.IdealInterval(rate),
		TimedOut:  c.State() != Completed,
		Codes:     append(make([]uint16, 0, len(codes)), codes...),
	}
	if stamps := c.Timestamps(); stamps != nil {
		cp.Stamps = append(make([]uint32, 0, len(stamps)), stamps...)
	}
	return cp
}
