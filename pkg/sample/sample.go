package sample

// Buffer is the pre-allocated sample store for one acquisition channel.
// Codes and timestamps are parallel arrays indexed by the acquisition fill count.
// The buffer is sized once and never resized, so writers never allocate.
type Buffer struct {
	codes  []uint16
	stamps []uint32 // nil when timestamps are not recorded
}

// NewBuffer allocates a buffer for capacity samples. When timestamps is true a parallel
// microsecond timestamp array is allocated as well.
func NewBuffer(capacity int, timestamps bool) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	b := &Buffer{
		codes: make([]uint16, capacity),
	}
	if timestamps {
		b.stamps = make([]uint32, capacity)
	}
	return b
}

// Cap returns the number of slots.
func (b *Buffer) Cap() int {
	return len(b.codes)
}

// HasTimestamps reports whether per-sample timestamps are recorded.
func (b *Buffer) HasTimestamps() bool {
	return b.stamps != nil
}

// SetCode writes the raw code at slot i.
func (b *Buffer) SetCode(i int, code uint16) {
	b.codes[i] = code
}

// SetStamp writes the timestamp at slot i. It is a no-op without timestamps.
func (b *Buffer) SetStamp(i int, us uint32) {
	if b.stamps != nil {
		b.stamps[i] = us
	}
}

// Stamp returns the timestamp at slot i, or 0 without timestamps.
func (b *Buffer) Stamp(i int) uint32 {
	if b.stamps == nil {
		return 0
	}
	return b.stamps[i]
}

// Codes returns the first n codes. The slice aliases the buffer.
func (b *Buffer) Codes(n int) []uint16 {
	return b.codes[:n]
}

// Timestamps returns the first n timestamps, or nil without timestamps.
// The slice aliases the buffer.
func (b *Buffer) Timestamps(n int) []uint32 {
	if b.stamps == nil {
		return nil
	}
	return b.stamps[:n]
}

// ToVoltage converts a raw code to volts: code / maxCode * vref.
func ToVoltage(code uint16, maxCode uint16, vref float64) float64 {
	if maxCode == 0 {
		return 0
	}
	return (float64(code) / float64(maxCode)) * vref
}

// Voltages converts codes to volts into dst, reusing its capacity when possible.
func Voltages(dst []float64, codes []uint16, maxCode uint16, vref float64) []float64 {
	if cap(dst) >= len(codes) {
		dst = dst[:len(codes)]
	} else {
		dst = make([]float64, len(codes))
	}
	for i, c := range codes {
		dst[i] = ToVoltage(c, maxCode, vref)
	}
	return dst
}
