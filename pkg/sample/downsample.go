package sample

// Point is one plotted sample: time since the first sample (s) and value.
type Point struct {
	T float64
	V float64
}

// Trace builds plot points from voltages and timestamps. Without timestamps the nominal
// interval is used. dst is reused when large enough.
func Trace(dst []Point, voltages []float64, stamps []uint32, intervalS float64) []Point {
	if cap(dst) >= len(voltages) {
		dst = dst[:len(voltages)]
	} else {
		dst = make([]Point, len(voltages))
	}

	var elapsedUS uint64
	for i, v := range voltages {
		t := float64(i) * intervalS
		if len(stamps) == len(voltages) {
			if i > 0 {
				elapsedUS += uint64(stamps[i] - stamps[i-1])
			}
			t = float64(elapsedUS) / 1e6
		}
		dst[i] = Point{T: t, V: v}
	}
	return dst
}

// DownsamplePoints downsamples points to at most maxPoints using simple decimation.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
func DownsamplePoints(dst []Point, points []Point, maxPoints int) []Point {
	if len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		result := make([]Point, len(points))
		copy(result, points)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	step := float64(len(points)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(points) {
			dst = append(dst, points[idx])
		}
	}

	return dst
}
