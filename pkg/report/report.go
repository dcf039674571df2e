// Package report formats analyzed runs for the console and for persisted text reports.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itohio/gosampler/pkg/analysis"
	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/sample"
)

// ErrPersist wraps any failure to write a report file. The analysis it came from
// is still valid.
var ErrPersist = errors.New("failed to persist report")

// Run is everything a report needs about one acquisition.
type Run struct {
	RateHz    int
	Requested int
	IdealUS   uint32
	TimedOut  bool
	Signal    config.SignalConfig
	Voltages  []float64
	Stamps    []uint32 // nil without timestamps
	Result    analysis.Result
}

// NewRun assembles a report run from a capture and its analysis.
func NewRun(cfg *config.Config, cp *sample.Capture, r analysis.Result) Run {
	return Run{
		RateHz:    cp.RateHz,
		Requested: cp.Requested,
		IdealUS:   cp.IdealUS,
		TimedOut:  cp.TimedOut,
		Signal:    cfg.Signal,
		Voltages:  sample.Voltages(nil, cp.Codes, cfg.ADC.MaxCode, cfg.ADC.VRef),
		Stamps:    cp.Stamps,
		Result:    r,
	}
}

// Filled returns the number of samples in the run.
func (r *Run) Filled() int {
	return len(r.Voltages)
}

// WriteBasic writes every sample with its nominal time.
func WriteBasic(w io.Writer, voltages []float64, rateHz int) error {
	ew := &errWriter{w: w}
	ew.printf("Sample\tTime(s)\tVoltage(V)\n")

	var dt float64
	if rateHz > 0 {
		dt = 1 / float64(rateHz)
	}
	for i, v := range voltages {
		ew.printf("%d\t%.6f\t%.6f\n", i, float64(i)*dt, v)
	}
	return ew.err
}

// WriteJitter writes the jitter summary followed by the first maxRows samples with
// their raw timestamps.
func WriteJitter(w io.Writer, run *Run, maxRows int) error {
	ew := &errWriter{w: w}
	res := &run.Result

	ew.printf("Jitter analysis of signal sampling\n")
	ew.printf("%s\n\n", strings.Repeat("=", 50))
	ew.printf("Target sample rate: %d Hz\n", run.RateHz)
	ew.printf("Ideal interval: %d µs\n", run.IdealUS)
	ew.printf("Samples acquired: %d of %d\n", run.Filled(), run.Requested)
	ew.printf("Mean jitter: %.2f µs\n", res.Jitter.Mean)
	ew.printf("RMS jitter: %.2f µs\n", res.Jitter.RMS)
	ew.printf("Temporal error: %.2f%%\n\n", res.TimingErrorPct)

	ew.printf("Sample\tTime(us)\tVoltage(V)\n")
	n := min(maxRows, len(run.Voltages), len(run.Stamps))
	for i := range n {
		ew.printf("%d\t%d\t%.6f\n", i, run.Stamps[i], run.Voltages[i])
	}
	return ew.err
}

// Save writes a report file through write. Any failure is wrapped in ErrPersist.
func Save(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %w", ErrPersist, path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	return nil
}

// Persist saves the report matching the run: the jitter report for timestamped runs,
// the full sample listing otherwise. It returns the written path.
func Persist(run *Run, cfg config.ReportConfig) (string, error) {
	if run.Stamps != nil {
		return cfg.Path, Save(cfg.Path, func(w io.Writer) error {
			return WriteJitter(w, run, cfg.MaxRows)
		})
	}
	return cfg.BasicPath, Save(cfg.BasicPath, func(w io.Writer) error {
		return WriteBasic(w, run.Voltages, run.RateHz)
	})
}

// errWriter keeps the first write error so formatting code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
