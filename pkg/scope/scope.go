// Package scope provides an oscilloscope style Fyne widget for analyzed captures.
package scope

import (
	"image/color"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/monitor"
	"github.com/itohio/gosampler/pkg/sample"
)

// ScopeWidget shows the sampled voltage trace above the interval deviation trace of
// the latest capture, with the key metrics as an overlay.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu      sync.RWMutex
	entry   monitor.Entry
	summary monitor.Summary
	hasData bool

	// Display buffers (reused between updates)
	trace          []sample.Point
	displayTrace   []sample.Point
	deviations     []sample.Point
	displayDevs    []sample.Point
	vMin, vMax     float64
	devMin, devMax float64
	tMax           float64

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.updateScale()
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the displayed capture.
// This should be called from the monitor callback using fyne.Do().
func (s *ScopeWidget) UpdateData(entry monitor.Entry, summary monitor.Summary) {
	s.mu.Lock()

	interval := 0.0
	if entry.Capture.RateHz > 0 {
		interval = 1 / float64(entry.Capture.RateHz)
	}
	s.trace = sample.Trace(s.trace, entry.Voltages, entry.Capture.Stamps, interval)
	s.displayTrace = sample.DownsamplePoints(s.displayTrace, s.trace, s.maxDisplayPoints)
	s.deviations = Deviations(s.deviations, entry.Capture.Stamps, entry.Capture.IdealUS)
	s.displayDevs = sample.DownsamplePoints(s.displayDevs, s.deviations, s.maxDisplayPoints)

	s.entry = entry
	s.summary = summary
	s.hasData = true
	s.updateScale()

	s.mu.Unlock()

	s.Refresh()
}

// updateScale must be called with mu held.
func (s *ScopeWidget) updateScale() {
	// Fixed voltage axis covering the ADC range keeps DC offset errors visible.
	s.vMin, s.vMax = 0, s.cfg.ADC.VRef
	if lo, hi, ok := Bounds(s.displayTrace); ok && (lo < s.vMin || hi > s.vMax) {
		s.vMin, s.vMax = Margin(math.Min(lo, s.vMin), math.Max(hi, s.vMax), 0.05)
	}

	s.devMin, s.devMax = -1, 1
	if lo, hi, ok := Bounds(s.displayDevs); ok {
		s.devMin, s.devMax = Margin(math.Min(lo, -1), math.Max(hi, 1), 0.1)
	}

	s.tMax = 0
	if n := len(s.displayTrace); n > 0 {
		s.tMax = s.displayTrace[n-1].T
	}
	if s.tMax <= 0 {
		s.tMax = 1
	}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}

// Deviations converts timestamps into signed interval deviations from idealUS in
// microseconds, placed at the end time of each interval. dst is reused when large enough.
func Deviations(dst []sample.Point, stamps []uint32, idealUS uint32) []sample.Point {
	if len(stamps) < 2 {
		return dst[:0]
	}
	n := len(stamps) - 1
	if cap(dst) >= n {
		dst = dst[:n]
	} else {
		dst = make([]sample.Point, n)
	}

	var elapsedUS uint64
	for i := 1; i < len(stamps); i++ {
		iv := stamps[i] - stamps[i-1]
		elapsedUS += uint64(iv)
		dst[i-1] = sample.Point{
			T: float64(elapsedUS) / 1e6,
			V: float64(iv) - float64(idealUS),
		}
	}
	return dst
}

// Bounds returns the value range of points.
func Bounds(points []sample.Point) (lo, hi float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	lo, hi = points[0].V, points[0].V
	for _, p := range points[1:] {
		lo = math.Min(lo, p.V)
		hi = math.Max(hi, p.V)
	}
	return lo, hi, true
}

// Margin widens [lo, hi] by frac of its span on both sides. An empty span becomes one unit wide.
func Margin(lo, hi, frac float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - span*frac, hi + span*frac
}
