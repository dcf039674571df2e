// Package monitor analyzes a stream of captures and keeps a bounded history of the
// results for live display.
package monitor

import (
	"math"
	"sync"

	"github.com/itohio/gosampler/pkg/analysis"
	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/jitter"
	"github.com/itohio/gosampler/pkg/sample"
)

var _ CaptureMonitor = (*Monitor)(nil)

// Entry is one analyzed capture.
type Entry struct {
	Capture  sample.Capture
	Voltages []float64
	Result   analysis.Result
}

// Summary aggregates the captures in the history.
type Summary struct {
	Captures     int
	TimedOut     int
	Distribution jitter.Distribution // interval deviations over all captures
	WorstRMS     float64             // µs
	WorstSNR     float64             // dB, +Inf if no capture had timing noise
}

// CaptureMonitor processes captures and reports updates.
type CaptureMonitor interface {
	ProcessCaptures(input <-chan sample.Capture)
	History() []Entry // Oldest first
	Latest() (Entry, bool)
	Summary() Summary
	OnUpdate(func(latest Entry, summary Summary)) // Register callback for updates
}

// Monitor implements CaptureMonitor.
type Monitor struct {
	cfg *config.Config

	history []Entry
	hist    *jitter.Histogram
	mu      sync.RWMutex

	callbacks []func(latest Entry, summary Summary)
	cbMu      sync.RWMutex

	maxHistory int

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a monitor keeping cfg.Monitor.History entries.
func New(cfg *config.Config) *Monitor {
	n := cfg.Monitor.History
	if n <= 0 {
		n = 1
	}
	return &Monitor{
		cfg:        cfg,
		history:    make([]Entry, 0, n),
		hist:       jitter.NewHistogram(),
		maxHistory: n,
	}
}

// Params returns the analysis parameters for a capture taken at rateHz.
func Params(cfg *config.Config, rateHz int) analysis.Params {
	return analysis.Params{
		VRef:            cfg.ADC.VRef,
		MaxCode:         cfg.ADC.MaxCode,
		RateHz:          rateHz,
		SignalFrequency: cfg.Signal.FrequencyHz,
		ExpectedVpp:     cfg.Signal.AmplitudeVpp,
		ExpectedOffset:  cfg.Signal.DCOffset,
	}
}

// Analyze analyzes a capture. Jitter statistics are rebuilt from the timestamps
// the same way the acquisition callback accumulates them.
func Analyze(cfg *config.Config, cp *sample.Capture) analysis.Result {
	var acc *jitter.Accumulator
	if cp.HasTimestamps() {
		acc = jitter.Replay(cp.IdealUS, cp.Stamps)
	}
	return analysis.Analyze(cp.Codes, cp.Stamps, acc, Params(cfg, cp.RateHz))
}

// ProcessCaptures analyzes captures until the input channel closes.
func (m *Monitor) ProcessCaptures(input <-chan sample.Capture) {
	for cp := range input {
		m.process(cp)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

func (m *Monitor) process(cp sample.Capture) {
	e := Entry{
		Capture:  cp,
		Voltages: sample.Voltages(nil, cp.Codes, m.cfg.ADC.MaxCode, m.cfg.ADC.VRef),
		Result:   Analyze(m.cfg, &cp),
	}

	m.mu.Lock()
	if len(m.history) == m.maxHistory {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, e)
	summary := m.summarize()
	notify := !m.shutdown
	m.mu.Unlock()

	if notify {
		m.notifyCallbacks(e, summary)
	}
}

// summarize must be called with mu held.
func (m *Monitor) summarize() Summary {
	s := Summary{Captures: len(m.history), WorstSNR: math.Inf(1)}

	m.hist.Reset()
	for i := range m.history {
		e := &m.history[i]
		if e.Capture.TimedOut {
			s.TimedOut++
		}
		if !e.Result.HasJitter {
			continue
		}
		m.hist.Record(jitter.Intervals(nil, e.Capture.Stamps), e.Capture.IdealUS)
		s.WorstRMS = math.Max(s.WorstRMS, e.Result.Jitter.RMS)
		s.WorstSNR = math.Min(s.WorstSNR, e.Result.SNRdB)
	}
	s.Distribution = m.hist.Distribution()
	return s
}

// History returns a copy of the analyzed captures, oldest first.
func (m *Monitor) History() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Entry, len(m.history))
	copy(result, m.history)
	return result
}

// Latest returns the most recent entry.
func (m *Monitor) Latest() (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return Entry{}, false
	}
	return m.history[len(m.history)-1], true
}

// Summary returns the aggregate over the current history.
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summarize()
}

// OnUpdate registers a callback invoked after every analyzed capture.
// Entries share their slices with the history and must not be modified.
func (m *Monitor) OnUpdate(callback func(latest Entry, summary Summary)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again before a new capture chain is started.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

func (m *Monitor) notifyCallbacks(latest Entry, summary Summary) {
	m.cbMu.RLock()
	callbacks := make([]func(Entry, Summary), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(latest, summary)
		}
	}
}
