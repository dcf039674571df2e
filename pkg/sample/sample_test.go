package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToVoltage(t *testing.T) {
	tests := []struct {
		name    string
		code    uint16
		maxCode uint16
		vref    float64
		want    float64
	}{
		{name: "zero code", code: 0, maxCode: 65535, vref: 3.3, want: 0.0},
		{name: "full scale", code: 65535, maxCode: 65535, vref: 3.3, want: 3.3},
		{name: "half scale", code: 32768, maxCode: 65535, vref: 3.3, want: 1.65},
		{name: "12-bit full scale", code: 4095, maxCode: 4095, vref: 3.3, want: 3.3},
		{name: "different VRef", code: 2047, maxCode: 4095, vref: 5.0, want: 2.5},
		{name: "zero max code", code: 100, maxCode: 0, vref: 3.3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToVoltage(tt.code, tt.maxCode, tt.vref)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestToVoltage_Monotonic(t *testing.T) {
	prev := ToVoltage(0, 65535, 3.3)
	for code := 1; code <= 65535; code += 97 {
		v := ToVoltage(uint16(code), 65535, 3.3)
		require.Greater(t, v, prev, "code %d", code)
		prev = v
	}
}

func TestVoltages_ReusesDst(t *testing.T) {
	dst := make([]float64, 0, 8)
	got := Voltages(dst, []uint16{0, 65535, 0, 65535}, 65535, 3.3)

	assert.Equal(t, []float64{0, 3.3, 0, 3.3}, got)
	assert.Equal(t, 8, cap(got), "dst capacity should be reused")

	got = Voltages(nil, []uint16{65535}, 65535, 3.3)
	assert.Equal(t, []float64{3.3}, got)
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(4, true)
	require.Equal(t, 4, b.Cap())
	require.True(t, b.HasTimestamps())

	for i := range 4 {
		b.SetCode(i, uint16(i*10))
		b.SetStamp(i, uint32(i*500))
	}

	assert.Equal(t, []uint16{0, 10, 20}, b.Codes(3))
	assert.Equal(t, []uint32{0, 500, 1000}, b.Timestamps(3))
	assert.Equal(t, uint32(1500), b.Stamp(3))
}

func TestBuffer_NoTimestamps(t *testing.T) {
	b := NewBuffer(2, false)
	assert.False(t, b.HasTimestamps())

	b.SetStamp(0, 123) // ignored
	assert.Nil(t, b.Timestamps(2))
	assert.Equal(t, uint32(0), b.Stamp(0))
}

func TestTrace(t *testing.T) {
	v := []float64{1, 2, 3}

	got := Trace(nil, v, nil, 0.0005)
	assert.InDelta(t, 0.001, got[2].T, 1e-12)

	got = Trace(got, v, []uint32{1000, 1500, 2100}, 0.0005)
	assert.InDelta(t, 0.0011, got[2].T, 1e-12)
	assert.Equal(t, 3.0, got[2].V)
}

func TestDownsamplePoints(t *testing.T) {
	points := make([]Point, 100)
	for i := range points {
		points[i] = Point{T: float64(i), V: float64(i)}
	}

	t.Run("no downsampling needed", func(t *testing.T) {
		got := DownsamplePoints(nil, points[:10], 50)
		assert.Len(t, got, 10)
	})

	t.Run("decimates", func(t *testing.T) {
		dst := make([]Point, 0, 20)
		got := DownsamplePoints(dst, points, 10)
		require.Len(t, got, 10)
		assert.Equal(t, 0.0, got[0].T)
		assert.Equal(t, 90.0, got[9].T)
		assert.Equal(t, 20, cap(got))
	})
}
