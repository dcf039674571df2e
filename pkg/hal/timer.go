package hal

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrArmed is returned when arming a timer that is already running.
var ErrArmed = errors.New("timer already armed")

// TickerTimer runs the callback on its own goroutine driven by time.Ticker.
// This is the host stand-in for a hardware periodic timer interrupt.
type TickerTimer struct {
	mu    sync.Mutex
	stop  chan struct{}
	armed bool
}

// NewTickerTimer creates a disarmed timer.
func NewTickerTimer() *TickerTimer {
	return &TickerTimer{}
}

// Arm starts calling callback at freqHz.
func (t *TickerTimer) Arm(freqHz int, callback func()) error {
	if freqHz <= 0 {
		return fmt.Errorf("invalid timer frequency %d Hz", freqHz)
	}
	if callback == nil {
		return fmt.Errorf("nil timer callback")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.armed {
		return ErrArmed
	}

	stop := make(chan struct{})
	t.stop = stop
	t.armed = true

	go t.run(time.Second/time.Duration(freqHz), stop, callback)

	return nil
}

// Disarm stops the timer. A tick already being delivered completes first.
func (t *TickerTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return
	}
	t.armed = false
	close(t.stop)
}

// Armed reports whether the timer is running.
func (t *TickerTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *TickerTimer) run(period time.Duration, stop <-chan struct{}, callback func()) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Disarm wins over a tick that raced with it.
			select {
			case <-stop:
				return
			default:
			}
			callback()
		}
	}
}

// ManualTimer only fires when Fire is called. Used by tests and by
// simulations that need exact, jitter-free timing.
type ManualTimer struct {
	mu       sync.Mutex
	callback func()
	freqHz   int
	armed    bool
}

// NewManualTimer creates a disarmed manual timer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// Arm stores the callback.
func (t *ManualTimer) Arm(freqHz int, callback func()) error {
	if freqHz <= 0 {
		return fmt.Errorf("invalid timer frequency %d Hz", freqHz)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.armed {
		return ErrArmed
	}
	t.callback = callback
	t.freqHz = freqHz
	t.armed = true
	return nil
}

// Disarm stops further Fire calls from reaching the callback.
func (t *ManualTimer) Disarm() {
	t.mu.Lock()
	t.armed = false
	t.mu.Unlock()
}

// Armed reports whether the timer is armed.
func (t *ManualTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Frequency returns the frequency of the last Arm call.
func (t *ManualTimer) Frequency() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.freqHz
}

// Fire delivers one tick. It returns false if the timer is not armed.
func (t *ManualTimer) Fire() bool {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return false
	}
	cb := t.callback
	t.mu.Unlock()

	cb()
	return true
}
