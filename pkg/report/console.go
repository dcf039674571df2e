package report

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const lineWidth = 60

// Console writes the human readable report.
func Console(w io.Writer, run *Run) error {
	ew := &errWriter{w: w}
	res := &run.Result
	sep := strings.Repeat("=", separatorWidth(w))

	ew.printf("\n%s\nSAMPLING QUALITY REPORT\n%s\n", sep, sep)

	ew.printf("\n● SAMPLING CONFIGURATION:\n")
	ew.printf("  Target rate: %d Hz\n", run.RateHz)
	ew.printf("  Ideal interval: %d µs\n", run.IdealUS)
	ew.printf("  Samples acquired: %d of %d\n", run.Filled(), run.Requested)
	if run.RateHz > 0 {
		ew.printf("  Duration: %.3f s\n", float64(run.Requested)/float64(run.RateHz))
	}
	if run.TimedOut {
		ew.printf("  Status: TIMEOUT, partial data\n")
	}

	if res.HasJitter {
		d := res.Distribution
		ew.printf("\n● TIMING JITTER:\n")
		ew.printf("  Mean jitter: %.2f µs\n", res.Jitter.Mean)
		ew.printf("  RMS jitter: %.2f µs\n", res.Jitter.RMS)
		ew.printf("  Max jitter: %d µs\n", res.Jitter.Max)
		ew.printf("  Min jitter: %d µs\n", res.Jitter.Min)
		ew.printf("  Relative timing error: %.2f%%\n", res.TimingErrorPct)
		ew.printf("  Percentiles p50/p90/p99/p99.9: %d/%d/%d/%d µs\n", d.P50, d.P90, d.P99, d.P999)
	}

	ew.printf("\n● SIGNAL QUALITY:\n")
	ew.printf("  Voltage min: %.3f V\n", res.VoltageMin)
	ew.printf("  Voltage max: %.3f V\n", res.VoltageMax)
	ew.printf("  Voltage mean (DC): %.3f V\n", res.VoltageMean)
	ew.printf("  AC amplitude: %.3f V\n", res.ACAmplitude)
	ew.printf("  DC offset: expected %.3f V, error %.3f V\n", run.Signal.DCOffset, res.DCError)
	ew.printf("  Vpp: measured %.3f V, expected %.3f V, error %.3f V\n", res.Vpp, run.Signal.AmplitudeVpp, res.VppError)
	ew.printf("  Vpp p1..p99: %.3f V\n", res.RobustVpp)
	ew.printf("  Zero crossings: %d\n", res.Crossings)
	ew.printf("  Frequency: measured %.2f Hz, expected %.2f Hz\n", res.Frequency, run.Signal.FrequencyHz)
	ew.printf("  Frequency error: %.2f Hz (%.2f%%)\n", res.FrequencyError, res.FrequencyErrorPct)

	if res.HasJitter {
		ew.printf("\n● IMPACT ON QUALITY:\n")
		ew.printf("  Jitter-limited SNR: %.2f dB\n", res.SNRdB)
		ew.printf("  Jitter-limited ENOB: %.2f bits\n", res.ENOB)
	}

	return ew.err
}

// separatorWidth shrinks the separator to fit a narrow terminal.
func separatorWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return lineWidth
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 || cols >= lineWidth {
		return lineWidth
	}
	return cols
}
