// Package hal describes the hardware capabilities the acquisition path depends on:
// a raw ADC read, a monotonic clock and a periodic timer. Host implementations live
// next to the interfaces; the firmware provides its own ADC.
package hal

// ADC reads one raw conversion. Implementations must return within microseconds.
type ADC interface {
	ReadRaw() uint16
}

// Clock is a monotonic clock. Both counters wrap; use Elapsed for differences.
type Clock interface {
	NowUS() uint32
	NowMS() uint32
}

// Timer invokes a callback periodically until disarmed.
// Disarm must be safe to call from within the callback and more than once.
type Timer interface {
	Arm(freqHz int, callback func()) error
	Disarm()
}

// Elapsed returns now - then for a wrapping counter.
func Elapsed(now, then uint32) uint32 {
	return now - then
}

// ADCFunc adapts a plain function to ADC.
type ADCFunc func() uint16

// ReadRaw calls f.
func (f ADCFunc) ReadRaw() uint16 {
	return f()
}

var (
	_ Clock = (*SystemClock)(nil)
	_ Clock = (*FakeClock)(nil)
	_ Timer = (*TickerTimer)(nil)
	_ Timer = (*ManualTimer)(nil)
	_ ADC   = (*SineSource)(nil)
	_ ADC   = ADCFunc(nil)
)
