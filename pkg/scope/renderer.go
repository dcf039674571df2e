package scope

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/gosampler/pkg/sample"
)

var (
	gridColor      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	axisTextColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	traceColor     = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	deviationColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	expectedColor  = color.RGBA{R: 0, G: 100, B: 200, A: 255}   // Dark blue
	labelColor     = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	warnColor      = color.RGBA{R: 255, G: 80, B: 80, A: 255}
)

// plotArea is one pane of the scope in widget coordinates.
type plotArea struct {
	x, y, w, h float32
	yMin, yMax float64
	tMax       float64
}

func (p plotArea) pos(t, v float64) fyne.Position {
	x := p.x + float32(t/p.tMax)*p.w
	y := p.y + p.h - float32((v-p.yMin)/(p.yMax-p.yMin))*p.h
	return fyne.NewPos(x, y)
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	background *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws the widget from the current data.
func (r *scopeRenderer) Refresh() {
	s := r.scope
	s.mu.RLock()
	trace := s.displayTrace
	devs := s.displayDevs
	entry := s.entry
	summary := s.summary
	hasData := s.hasData
	signal := s.cfg.Signal
	vMin, vMax := s.vMin, s.vMax
	devMin, devMax := s.devMin, s.devMax
	tMax := s.tMax
	s.mu.RUnlock()

	size := s.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background}

	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)
	gap := float32(30.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom - gap
	signalHeight := plotHeight * 0.7

	top := plotArea{x: marginLeft, y: marginTop, w: plotWidth, h: signalHeight, yMin: vMin, yMax: vMax, tMax: tMax}
	bottom := plotArea{
		x: marginLeft, y: marginTop + signalHeight + gap, w: plotWidth, h: plotHeight - signalHeight,
		yMin: devMin, yMax: devMax, tMax: tMax,
	}

	r.drawGrid(top, 8, formatVoltage)
	r.drawGrid(bottom, 4, formatMicros)
	r.drawTimeAxis(bottom, top.y, 10)

	if !hasData {
		r.addText("No capture", labelColor, 14, fyne.NewPos(top.x+10, top.y+10))
		return
	}

	r.drawLevel(top, signal.DCOffset)
	r.drawLevel(top, signal.DCOffset-signal.AmplitudeVpp/2)
	r.drawLevel(top, signal.DCOffset+signal.AmplitudeVpp/2)
	r.drawLevel(bottom, 0)

	r.drawTrace(top, trace, traceColor, 1.5)
	r.drawTrace(bottom, devs, deviationColor, 1)

	res := entry.Result
	lines := []string{
		fmt.Sprintf("#%d  %d/%d samples @ %d Hz", entry.Capture.Seq, entry.Capture.Filled(), entry.Capture.Requested, entry.Capture.RateHz),
		fmt.Sprintf("Vpp %s  mean %s  f %.1f Hz", formatVoltage(res.Vpp), formatVoltage(res.VoltageMean), res.Frequency),
	}
	if res.HasJitter {
		lines = append(lines,
			fmt.Sprintf("jitter mean %.2f us  rms %.2f us  p99 %d us", res.Jitter.Mean, res.Jitter.RMS, res.Distribution.P99),
			fmt.Sprintf("SNR %s dB  ENOB %s bits", formatFloat(res.SNRdB, 1), formatFloat(res.ENOB, 1)),
		)
	}
	lines = append(lines, fmt.Sprintf("history %d  worst rms %.2f us  timeouts %d", summary.Captures, summary.WorstRMS, summary.TimedOut))

	for i, line := range lines {
		r.addText(line, labelColor, 11, fyne.NewPos(top.x+10, top.y+10+float32(i)*14))
	}
	if entry.Capture.TimedOut {
		r.addText("TIMEOUT", warnColor, 12, fyne.NewPos(top.x+top.w-70, top.y+10))
	}
}

func (r *scopeRenderer) addText(s string, c color.Color, size float32, pos fyne.Position) *canvas.Text {
	text := canvas.NewText(s, c)
	text.TextSize = size
	text.Move(pos)
	r.objects = append(r.objects, text)
	return text
}

func (r *scopeRenderer) addLine(c color.Color, width float32, p1, p2 fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// drawGrid draws horizontal grid lines with value labels.
func (r *scopeRenderer) drawGrid(p plotArea, n int, format func(float64) string) {
	for i := range n + 1 {
		y := p.y + float32(i)*p.h/float32(n)
		r.addLine(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		value := p.yMax - float64(i)*(p.yMax-p.yMin)/float64(n)
		text := r.addText(format(value), axisTextColor, 10, fyne.NewPos(p.x-5, y-6))
		text.Alignment = fyne.TextAlignTrailing
	}
}

// drawTimeAxis draws vertical grid lines from topY down to the bottom of p, with time
// labels below p.
func (r *scopeRenderer) drawTimeAxis(p plotArea, topY float32, n int) {
	for i := range n + 1 {
		x := p.x + float32(i)*p.w/float32(n)
		r.addLine(gridColor, 1, fyne.NewPos(x, topY), fyne.NewPos(x, p.y+p.h))

		text := r.addText(formatTime(float64(i)*p.tMax/float64(n)), axisTextColor, 10, fyne.NewPos(x-20, p.y+p.h+5))
		text.Alignment = fyne.TextAlignCenter
	}
}

func (r *scopeRenderer) drawLevel(p plotArea, v float64) {
	if v < p.yMin || v > p.yMax {
		return
	}
	r.addLine(expectedColor, 1, p.pos(0, v), p.pos(p.tMax, v))
}

func (r *scopeRenderer) drawTrace(p plotArea, points []sample.Point, c color.Color, width float32) {
	for i := 1; i < len(points); i++ {
		r.addLine(c, width, p.pos(points[i-1].T, points[i-1].V), p.pos(points[i].T, points[i].V))
	}
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatVoltage(v float64) string {
	if math.Abs(v) < 0.0005 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64) + "V"
}

func formatMicros(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64) + "us"
}

func formatTime(seconds float64) string {
	if seconds < 0.1 {
		return strconv.FormatFloat(seconds*1000, 'f', 1, 64) + "ms"
	}
	return strconv.FormatFloat(seconds, 'f', 2, 64) + "s"
}

// formatFloat prints infinities as "inf".
func formatFloat(v float64, decimals int) string {
	if math.IsInf(v, 0) {
		if v > 0 {
			return "inf"
		}
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
